// Package conn defines the connection record shape shared by the
// registry, the worker loop, and the dispatcher.
package conn

import (
	"net"
	"sync"

	"github.com/foxcpp/scandicd/internal/queue"
	"github.com/foxcpp/scandicd/internal/reassembler"
)

// Record holds everything the core touches about one client connection.
// It is created by the accept loop before registration; Nickname may be
// empty until NICK succeeds, and the record is destroyed by the
// connection worker once the socket is closed and the registry no
// longer references it.
type Record struct {
	Net net.Conn

	mu       sync.Mutex
	nickname string
	username string
	hostname string
	realname string

	Reassembler *reassembler.Reassembler
	Queue       *queue.Queue

	// Doorbell is the async-wakeup primitive: a buffered, capacity-1
	// channel. Sending never blocks (a non-blocking send that is
	// dropped when the channel is already full is fine because the
	// queue, not the channel, is the source of truth — see spec.md
	// §4.7's coalescing-wakeup design note), so N signals between two
	// drains of the writer loop collapse into one wakeup.
	Doorbell chan struct{}

	// Done is closed exactly once, by the worker, to stop the writer
	// goroutine during shutdown.
	Done chan struct{}

	registered bool
}

// New wraps an accepted net.Conn in a fresh Record with a reassembler
// and outbound queue sized by reassemblerCapacity and queueCapacity.
func New(c net.Conn, queueCapacity, reassemblerCapacity int) *Record {
	host, _, _ := net.SplitHostPort(c.RemoteAddr().String())
	return &Record{
		Net:         c,
		hostname:    host,
		Reassembler: reassembler.New(reassemblerCapacity),
		Queue:       queue.New(queueCapacity),
		Doorbell:    make(chan struct{}, 1),
		Done:        make(chan struct{}),
	}
}

// Nick returns the client's current nickname, or "" if no NICK has
// succeeded yet.
// Implements registry.Client.
func (r *Record) Nick() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.nickname
}

// SetNick records the nickname the registry has accepted for this
// client. Callers must have already succeeded at registry.Add before
// calling this.
func (r *Record) SetNick(nick string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nickname = nick
}

// User returns the username supplied via USER, if any.
func (r *Record) User() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.username
}

// SetUser records the username supplied via USER.
func (r *Record) SetUser(u string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.username = u
}

// Hostname returns the remote host address for this connection, taken
// from RemoteAddr without a DNS lookup.
func (r *Record) Hostname() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.hostname
}

// Realname returns the real name supplied via USER, if any.
func (r *Record) Realname() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.realname
}

// SetRealname records the real name supplied via USER.
func (r *Record) SetRealname(rn string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.realname = rn
}

// Registered reports whether USER has completed the registration dance.
func (r *Record) Registered() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.registered
}

// SetRegistered marks registration complete.
func (r *Record) SetRegistered() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.registered = true
}

// Notify is the cross-worker delivery primitive (spec.md §4.7):
// enqueue bytes on this connection's outbound queue, then ring the
// doorbell so its writer goroutine observes the non-empty queue within
// its next loop turn. It returns the queue's error verbatim (most
// notably queue.ErrFull) so callers can apply backpressure policy.
func (r *Record) Notify(bytes []byte) error {
	if err := r.Queue.Enqueue(bytes); err != nil {
		return err
	}
	select {
	case r.Doorbell <- struct{}{}:
	default:
		// Doorbell already has a pending wakeup queued; the writer
		// loop will drain everything currently enqueued when it runs,
		// so dropping this second ring is exactly the coalescing the
		// design calls for.
	}
	return nil
}
