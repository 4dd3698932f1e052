// Package dispatch implements the reference dispatcher described in
// SPEC_FULL.md §4.12: enough command semantics to exercise the core
// engine's contract end to end. It is explicitly a replaceable
// collaborator per spec.md §4.8 — channel modes, bans and operator
// privileges stay out of scope.
package dispatch

import (
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/foxcpp/scandicd/internal/conn"
	"github.com/foxcpp/scandicd/internal/ircmsg"
	"github.com/foxcpp/scandicd/internal/registry"
)

// Dispatcher is the reference implementation of worker.Dispatcher.
type Dispatcher struct {
	ServerName string
	MOTD       []string
	Registry   *registry.Registry
	Log        *zap.SugaredLogger

	mu       sync.Mutex
	channels map[string]*channel
}

type channel struct {
	name    string
	lock    sync.Mutex
	members map[*conn.Record]struct{}
}

// broadcast sends wire to every member of ch.
func (ch *channel) broadcast(wire []byte) {
	ch.lock.Lock()
	defer ch.lock.Unlock()
	for m := range ch.members {
		_ = m.Notify(wire)
	}
}

// broadcastExcept sends wire to every member of ch other than except.
func (ch *channel) broadcastExcept(except *conn.Record, wire []byte) {
	ch.lock.Lock()
	defer ch.lock.Unlock()
	for m := range ch.members {
		if m == except {
			continue
		}
		_ = m.Notify(wire)
	}
}

// New constructs a Dispatcher. motdPath may be empty, in which case
// ERR_NOMOTD (422) is sent instead of a MOTD burst.
func New(serverName, motdPath string, reg *registry.Registry, log *zap.SugaredLogger) *Dispatcher {
	d := &Dispatcher{
		ServerName: serverName,
		Registry:   reg,
		Log:        log,
		channels:   make(map[string]*channel),
	}
	if motdPath != "" {
		if data, err := os.ReadFile(motdPath); err == nil {
			d.MOTD = strings.Split(strings.TrimRight(string(data), "\n"), "\n")
		} else {
			log.Debugw("motd: could not read file", "path", motdPath, "err", err)
		}
	}
	return d
}

// Dispatch implements worker.Dispatcher.
func (d *Dispatcher) Dispatch(c *conn.Record, msg ircmsg.Message) {
	switch msg.Command {
	case "NICK":
		d.handleNick(c, msg)
	case "USER":
		d.handleUser(c, msg)
	case "PING":
		d.handlePing(c, msg)
	case "PONG":
		// No-op: we don't track idleness in the reference dispatcher.
	case "PRIVMSG", "NOTICE":
		d.handleMessage(c, msg)
	case "JOIN":
		d.handleJoin(c, msg)
	case "PART":
		d.handlePart(c, msg)
	case "NAMES":
		d.handleNames(c, msg)
	case "QUIT":
		d.handleQuit(c, msg)
	default:
		if !c.Registered() {
			d.reply(c, ircmsg.ERR_NOTREGISTERED, "*", "You have not registered")
			return
		}
		d.reply(c, ircmsg.ERR_UNKNOWNCOMMAND, c.Nick(), msg.Command, "Unknown command")
	}
}

// Disconnected implements worker.Dispatcher.
func (d *Dispatcher) Disconnected(c *conn.Record) {
	d.leaveAll(c)
	if nick := c.Nick(); nick != "" {
		d.Registry.Delete(nick)
	}
}

func (d *Dispatcher) handleNick(c *conn.Record, msg ircmsg.Message) {
	if len(msg.Params) < 1 {
		d.reply(c, ircmsg.ERR_NONICKNAMEGIVEN, "*", "No nickname given")
		return
	}
	nick := msg.Params[0]
	old := c.Nick()

	if old != "" {
		d.Registry.Delete(old)
	}

	if err := d.Registry.Add(c, nick); err != nil {
		if old != "" {
			// Reclaim the previous nickname so a failed change doesn't
			// leave an already-registered client with no entry at all.
			_ = d.Registry.Add(c, old)
		}
		switch err {
		case registry.ErrAlreadyExists:
			d.reply(c, ircmsg.ERR_NICKNAMEINUSE, "*", nick, "Nickname is already in use")
		default:
			d.reply(c, ircmsg.ERR_ERRONEUSNICKNAME, "*", nick, "Erroneous nickname")
		}
		return
	}
	c.SetNick(nick)
}

func (d *Dispatcher) handleUser(c *conn.Record, msg ircmsg.Message) {
	if c.Nick() == "" {
		d.reply(c, ircmsg.ERR_NOTREGISTERED, "*", "You have not registered")
		return
	}
	if len(msg.Params) < 4 {
		d.reply(c, ircmsg.ERR_NEEDMOREPARAMS, c.Nick(), "USER", "Not enough parameters")
		return
	}
	c.SetUser(msg.Params[0])
	c.SetRealname(msg.Params[3])
	c.SetRegistered()

	nick := c.Nick()
	c.Notify(ircmsg.Reply(d.ServerName, ircmsg.RPL_WELCOME, nick, "Welcome to the Internet Relay Network "+nick))
	c.Notify(ircmsg.Reply(d.ServerName, ircmsg.RPL_YOURHOST, nick, "Your host is "+d.ServerName))
	c.Notify(ircmsg.Reply(d.ServerName, ircmsg.RPL_CREATED, nick, "This server is young"))
	c.Notify(ircmsg.Reply(d.ServerName, ircmsg.RPL_MYINFO, nick, d.ServerName))
	d.sendMOTD(c)
}

func (d *Dispatcher) sendMOTD(c *conn.Record) {
	nick := c.Nick()
	if len(d.MOTD) == 0 {
		d.reply(c, ircmsg.ERR_NOMOTD, nick, "MOTD File is missing")
		return
	}
	d.reply(c, ircmsg.RPL_MOTDSTART, nick, "- "+d.ServerName+" Message of the day -")
	for _, line := range d.MOTD {
		d.reply(c, ircmsg.RPL_MOTD, nick, "- "+line)
	}
	d.reply(c, ircmsg.RPL_ENDOFMOTD, nick, "End of MOTD command")
}

func (d *Dispatcher) handlePing(c *conn.Record, msg ircmsg.Message) {
	token := d.ServerName
	if len(msg.Params) > 0 {
		token = msg.Params[0]
	}
	c.Notify(ircmsg.Command(d.ServerName, "PONG", d.ServerName, token))
}

func (d *Dispatcher) handleMessage(c *conn.Record, msg ircmsg.Message) {
	if !c.Registered() {
		d.reply(c, ircmsg.ERR_NOTREGISTERED, "*", "You have not registered")
		return
	}
	if len(msg.Params) < 2 {
		d.reply(c, ircmsg.ERR_NEEDMOREPARAMS, c.Nick(), msg.Command, "Not enough parameters")
		return
	}
	target, text := msg.Params[0], msg.Params[1]
	wire := ircmsg.Command(c.Nick(), msg.Command, target, text)

	if strings.HasPrefix(target, "#") {
		d.mu.Lock()
		ch := d.channels[target]
		d.mu.Unlock()
		if ch == nil {
			d.reply(c, ircmsg.ERR_NOSUCHCHANNEL, c.Nick(), target, "No such channel")
			return
		}
		ch.broadcastExcept(c, wire)
		return
	}

	called := d.Registry.FindAndApply(target, func(recv registry.Client) {
		if rc, ok := recv.(*conn.Record); ok {
			if err := rc.Notify(wire); err != nil {
				d.Log.Debugw("dropped message, recipient queue full", "target", target, "err", err)
			}
		}
	})
	if !called {
		d.reply(c, ircmsg.ERR_NOSUCHNICK, c.Nick(), target, "No such nick/channel")
	}
}

func (d *Dispatcher) handleJoin(c *conn.Record, msg ircmsg.Message) {
	if !c.Registered() {
		d.reply(c, ircmsg.ERR_NOTREGISTERED, "*", "You have not registered")
		return
	}
	if len(msg.Params) < 1 {
		d.reply(c, ircmsg.ERR_NEEDMOREPARAMS, c.Nick(), "JOIN", "Not enough parameters")
		return
	}

	for _, name := range strings.Split(msg.Params[0], ",") {
		ch := d.joinChannel(name, c)
		ch.broadcast(ircmsg.Command(c.Nick(), "JOIN", name))
		d.sendNames(c, ch)
	}
}

func (d *Dispatcher) joinChannel(name string, c *conn.Record) *channel {
	d.mu.Lock()
	ch, ok := d.channels[name]
	if !ok {
		ch = &channel{name: name, members: map[*conn.Record]struct{}{}}
		d.channels[name] = ch
	}
	d.mu.Unlock()

	ch.lock.Lock()
	ch.members[c] = struct{}{}
	ch.lock.Unlock()
	return ch
}

func (d *Dispatcher) sendNames(c *conn.Record, ch *channel) {
	ch.lock.Lock()
	names := make([]string, 0, len(ch.members))
	for m := range ch.members {
		names = append(names, m.Nick())
	}
	ch.lock.Unlock()

	d.reply(c, ircmsg.RPL_NAMREPLY, c.Nick(), "=", ch.name, strings.Join(names, " "))
	d.reply(c, ircmsg.RPL_ENDOFNAMES, c.Nick(), ch.name, "End of NAMES list")
}

func (d *Dispatcher) handlePart(c *conn.Record, msg ircmsg.Message) {
	if !c.Registered() {
		d.reply(c, ircmsg.ERR_NOTREGISTERED, "*", "You have not registered")
		return
	}
	if len(msg.Params) < 1 {
		d.reply(c, ircmsg.ERR_NEEDMOREPARAMS, c.Nick(), "PART", "Not enough parameters")
		return
	}
	for _, name := range strings.Split(msg.Params[0], ",") {
		d.mu.Lock()
		ch := d.channels[name]
		d.mu.Unlock()
		if ch == nil {
			d.reply(c, ircmsg.ERR_NOTONCHANNEL, c.Nick(), name, "You're not on that channel")
			continue
		}
		ch.broadcast(ircmsg.Command(c.Nick(), "PART", name))
		d.leaveChannel(ch, c)
	}
}

func (d *Dispatcher) handleNames(c *conn.Record, msg ircmsg.Message) {
	if !c.Registered() {
		d.reply(c, ircmsg.ERR_NOTREGISTERED, "*", "You have not registered")
		return
	}
	if len(msg.Params) < 1 {
		return
	}
	d.mu.Lock()
	ch := d.channels[msg.Params[0]]
	d.mu.Unlock()
	if ch != nil {
		d.sendNames(c, ch)
	}
}

func (d *Dispatcher) handleQuit(c *conn.Record, msg ircmsg.Message) {
	reason := "Client quit"
	if len(msg.Params) > 0 {
		reason = msg.Params[0]
	}
	c.Notify(ircmsg.Command(d.ServerName, "ERROR", "Closing link: "+reason))
	c.Net.Close()
}

func (d *Dispatcher) leaveAll(c *conn.Record) {
	d.mu.Lock()
	var joined []*channel
	for _, ch := range d.channels {
		ch.lock.Lock()
		_, ok := ch.members[c]
		ch.lock.Unlock()
		if ok {
			joined = append(joined, ch)
		}
	}
	d.mu.Unlock()

	for _, ch := range joined {
		ch.broadcastExcept(c, ircmsg.Command(c.Nick(), "QUIT", "Connection closed"))
		d.leaveChannel(ch, c)
	}
}

func (d *Dispatcher) leaveChannel(ch *channel, c *conn.Record) {
	ch.lock.Lock()
	delete(ch.members, c)
	empty := len(ch.members) == 0
	ch.lock.Unlock()

	if empty {
		d.mu.Lock()
		delete(d.channels, ch.name)
		d.mu.Unlock()
	}
}

func (d *Dispatcher) reply(c *conn.Record, numeric string, args ...string) {
	if len(args) == 0 {
		return
	}
	if err := c.Notify(ircmsg.Reply(d.ServerName, numeric, args[0], args[1:]...)); err != nil {
		d.Log.Debugw("dropped reply, queue full", "numeric", numeric, "err", err)
	}
}
