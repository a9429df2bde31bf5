package irc

import (
	"fmt"
	"strings"
)

// maxParams is the largest number of parameters a Message may carry,
// trailing parameter included.
const maxParams = 15

// maxCommandLen rejects absurdly long verbs before they ever reach the
// dispatcher.
const maxCommandLen = 16

// maxLineLen is the wire limit, terminator included.
const maxLineLen = 512

// Message is the result of parsing one line of the wire protocol. It has
// no side effects and no knowledge of sessions, channels, or the server.
type Message struct {
	Prefix  string
	Command string
	Params  []string
}

// ParseMessage parses a single line with terminators already stripped.
// It returns nil for any line that violates the grammar in full: empty
// prefix after ':', empty or overlong command, too many parameters, a
// line that was already over the wire limit, or an embedded control
// byte other than CR/LF (the caller is expected to have stripped CR/LF
// already, so their presence here is itself a rejection).
func ParseMessage(line string) *Message {
	if len(line) > maxLineLen {
		return nil
	}
	for _, b := range []byte(line) {
		if b == '\r' || b == '\n' {
			return nil
		}
		if b < 0x20 {
			return nil
		}
	}

	msg := &Message{}
	rest := line

	if strings.HasPrefix(rest, ":") {
		sp := strings.IndexByte(rest, ' ')
		var prefix string
		if sp == -1 {
			prefix = rest[1:]
			rest = ""
		} else {
			prefix = rest[1:sp]
			rest = rest[sp+1:]
		}
		if prefix == "" {
			return nil
		}
		msg.Prefix = prefix
		rest = strings.TrimLeft(rest, " ")
	}

	if rest == "" {
		return nil
	}

	sp := strings.IndexByte(rest, ' ')
	var command string
	if sp == -1 {
		command = rest
		rest = ""
	} else {
		command = rest[:sp]
		rest = strings.TrimLeft(rest[sp+1:], " ")
	}
	if command == "" || len(command) > maxCommandLen {
		return nil
	}
	msg.Command = strings.ToUpper(command)

	for rest != "" {
		if len(msg.Params) >= maxParams {
			return nil
		}
		if strings.HasPrefix(rest, ":") {
			msg.Params = append(msg.Params, rest[1:])
			break
		}
		sp = strings.IndexByte(rest, ' ')
		if sp == -1 {
			msg.Params = append(msg.Params, rest)
			break
		}
		msg.Params = append(msg.Params, rest[:sp])
		rest = strings.TrimLeft(rest[sp+1:], " ")
	}

	return msg
}

// String renders the message back to wire form, without a trailing
// terminator. The last parameter is sent as a trailing parameter if it
// is empty or contains a space or colon, and always for numerics and for
// PRIVMSG, NOTICE, TOPIC, PART, KICK, QUIT and PONG, whose last
// parameter is free text.
func (m *Message) String() string {
	var b strings.Builder
	if m.Prefix != "" {
		b.WriteByte(':')
		b.WriteString(m.Prefix)
		b.WriteByte(' ')
	}
	b.WriteString(m.Command)
	textLast := len(m.Command) == 3 && m.Command[0] >= '0' && m.Command[0] <= '9'
	switch m.Command {
	case "PRIVMSG", "NOTICE", "TOPIC", "PART", "KICK", "QUIT", "PONG":
		textLast = true
	}
	for i, p := range m.Params {
		b.WriteByte(' ')
		last := i == len(m.Params)-1
		if last && (textLast || p == "" || strings.ContainsAny(p, " :") || strings.HasPrefix(p, ":")) {
			b.WriteByte(':')
		}
		b.WriteString(p)
	}
	return b.String()
}

// ParseHostmask splits a nick!user@host hostmask into its components.
// Any component missing from the input is returned empty.
func ParseHostmask(mask string) (nick, user, host string) {
	if bang := strings.IndexByte(mask, '!'); bang != -1 {
		nick = mask[:bang]
		mask = mask[bang+1:]
	} else if at := strings.IndexByte(mask, '@'); at != -1 {
		nick = mask[:at]
		mask = mask[at:]
	} else {
		return mask, "", ""
	}
	if at := strings.IndexByte(mask, '@'); at != -1 {
		user = mask[:at]
		host = mask[at+1:]
	} else {
		user = mask
	}
	return nick, user, host
}

// FormatHostmask renders nick!user@host, substituting "*" for empty
// components the way numeric replies and WHOIS do.
func FormatHostmask(nick, user, host string) string {
	if user == "" {
		user = "*"
	}
	if host == "" {
		host = "*"
	}
	return fmt.Sprintf("%s!%s@%s", nick, user, host)
}
