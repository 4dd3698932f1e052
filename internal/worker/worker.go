// Package worker runs the per-connection event loop: a reader goroutine
// that reassembles and parses incoming bytes and hands parsed messages
// to a dispatcher, and a writer goroutine that drains the outbound
// queue whenever the connection's doorbell rings. This is the Go
// rendering of spec.md §4.7's cooperative event loop — see SPEC_FULL.md
// §5 for why two goroutines plus a channel stand in for the
// readable/async-wakeup/writable watcher trio.
package worker

import (
	"errors"
	"io"

	"go.uber.org/zap"

	"github.com/foxcpp/scandicd/internal/conn"
	"github.com/foxcpp/scandicd/internal/ircmsg"
	"github.com/foxcpp/scandicd/internal/reassembler"
)

// Dispatcher is the external boundary from spec.md §4.8: given the
// connection record and a parsed message, it decides what happens next,
// including calling conn.Record.Notify on this or any other connection.
type Dispatcher interface {
	Dispatch(client *conn.Record, msg ircmsg.Message)
	// Disconnected is called once, from the reader goroutine, when the
	// socket has been closed for any reason (clean QUIT, EOF or an I/O
	// error). A malformed-terminator reset does not close the socket and
	// is not reported to the dispatcher. It is the dispatcher's chance to
	// unregister the client and clean up channel membership.
	Disconnected(client *conn.Record)
}

// Run drives one connection until its socket closes. It blocks the
// calling goroutine in the reader loop and spawns exactly one writer
// goroutine; callers typically invoke Run in its own goroutine per
// accepted connection.
func Run(c *conn.Record, d Dispatcher, log *zap.SugaredLogger) {
	go writerLoop(c, log)
	readerLoop(c, d, log)
}

func readerLoop(c *conn.Record, d Dispatcher, log *zap.SugaredLogger) {
	defer func() {
		close(c.Done)
		c.Net.Close()
		d.Disconnected(c)
	}()

readLoop:
	for {
		_, err := c.Reassembler.ReadMore(c.Net)
		if err != nil {
			if errors.Is(err, reassembler.ErrOverlong) {
				log.Debugw("message exceeded capacity, buffer reset", "remote", c.Net.RemoteAddr())
				continue
			}
			if err != io.EOF {
				log.Debugw("read error", "remote", c.Net.RemoteAddr(), "err", err)
			}
			return
		}

		for {
			result, raw := c.Reassembler.Next()
			switch result {
			case reassembler.Continue:
				continue readLoop
			case reassembler.FinishErr:
				log.Debugw("malformed line terminator, buffer reset", "remote", c.Net.RemoteAddr())
				continue readLoop
			case reassembler.Message:
				line := raw[:len(raw)-2] // strip CRLF
				msg, perr := ircmsg.Parse(string(line))
				if perr != nil {
					log.Debugw("parse error", "remote", c.Net.RemoteAddr(), "err", perr)
					continue
				}
				d.Dispatch(c, msg)
			}
		}
	}
}

func writerLoop(c *conn.Record, log *zap.SugaredLogger) {
	for {
		select {
		case <-c.Done:
			// Best-effort final drain before the socket goes away, per
			// spec.md §5's shutdown sequence.
			drain(c, log)
			return
		case <-c.Doorbell:
			drain(c, log)
		}
	}
}

func drain(c *conn.Record, log *zap.SugaredLogger) {
	for {
		msg, ok := c.Queue.Dequeue()
		if !ok {
			return
		}
		if _, err := c.Net.Write(msg); err != nil {
			log.Debugw("write error", "remote", c.Net.RemoteAddr(), "err", err)
			return
		}
	}
}
