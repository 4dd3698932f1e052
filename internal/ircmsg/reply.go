package ircmsg

import irc "gopkg.in/irc.v3"

// Reply builds a numeric-reply line ready for Notify, reusing
// gopkg.in/irc.v3's Message marshalling so the wire framing (space vs.
// trailing-colon rules) lives in one well-tested place rather than
// being hand-rolled again at the dispatcher boundary.
func Reply(serverName, numeric, target string, args ...string) []byte {
	params := append([]string{target}, args...)
	msg := &irc.Message{
		Prefix:  &irc.Prefix{Name: serverName},
		Command: numeric,
		Params:  params,
	}
	return []byte(msg.String() + "\r\n")
}

// Command builds an arbitrary server-originated command line (JOIN,
// PART, NOTICE, PRIVMSG, ...) the same way Reply builds numerics.
func Command(prefix, command string, params ...string) []byte {
	msg := &irc.Message{
		Prefix:  &irc.Prefix{Name: prefix},
		Command: command,
		Params:  params,
	}
	return []byte(msg.String() + "\r\n")
}
