package irc

import (
	"errors"
	"sort"
	"sync"
	"time"
)

// Errors returned by Channel.AddMember; the dispatcher maps each to its
// RFC 2812 numeric (ERR_BADCHANNELKEY, ERR_INVITEONLYCHAN, ERR_CHANNELISFULL).
var (
	ErrKeyRequired = errors.New("channel key required")
	ErrInviteOnly  = errors.New("channel is invite-only")
	ErrChannelFull = errors.New("channel is full")
)

// Channel is the membership/mode/broadcast model, trimmed to the four
// modes (i, t, k, l) plus per-channel operator this
// server supports; everything beyond that (ban lists, secret/private/
// moderated flags, voice, half-op) belonged to the teacher's fuller IRC
// network simulation and is out of this system's scope.
type Channel struct {
	mu sync.RWMutex

	name    string
	topic   string
	key     string
	limit   int
	created time.Time

	inviteOnly      bool
	topicRestricted bool

	members   map[string]*Session
	operators map[string]bool
	invited   map[string]bool
}

// NewChannel creates a channel defaulting to topic-restricted (+t),
// matching most production networks' default channel mode.
func NewChannel(name string) *Channel {
	return &Channel{
		name:            name,
		created:         time.Now(),
		topicRestricted: true,
		members:         make(map[string]*Session),
		operators:       make(map[string]bool),
		invited:         make(map[string]bool),
	}
}

func (c *Channel) Name() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.name
}

func (c *Channel) Topic() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.topic
}

func (c *Channel) MemberCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.members)
}

// Members returns a snapshot of current member nicknames.
func (c *Channel) Members() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, 0, len(c.members))
	for nick := range c.members {
		names = append(names, nick)
	}
	return names
}

func (c *Channel) IsMember(nick string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.members[nick]
	return ok
}

func (c *Channel) IsOperator(nick string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.operators[nick]
}

func (c *Channel) IsInvited(nick string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.invited[nick]
}

func (c *Channel) Invite(nick string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.invited[nick] = true
}

// AddMember joins s to the channel: idempotent for an existing member,
// otherwise enforces key/invite-only/limit in that order before
// appending. The first member to join becomes an operator.
func (c *Channel) AddMember(s *Session, key string) error {
	nick := s.Nickname()

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.members[nick]; ok {
		return nil
	}
	if c.key != "" && key != c.key {
		return ErrKeyRequired
	}
	if c.inviteOnly && !c.invited[nick] {
		return ErrInviteOnly
	}
	if c.limit > 0 && len(c.members) >= c.limit {
		return ErrChannelFull
	}

	first := len(c.members) == 0
	c.members[nick] = s
	delete(c.invited, nick)
	if first {
		c.operators[nick] = true
	}
	return nil
}

// RemoveMember removes nick from the channel. It returns the number of
// members remaining, so callers can decide whether to schedule the
// channel for the empty-channel sweep.
func (c *Channel) RemoveMember(nick string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.members, nick)
	delete(c.operators, nick)
	return len(c.members)
}

// RenameMember updates the member/operator index when a session's
// nickname changes, preserving operator status.
func (c *Channel) RenameMember(oldNick, newNick string, s *Session) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.members[oldNick]; !ok {
		return
	}
	delete(c.members, oldNick)
	c.members[newNick] = s
	if c.operators[oldNick] {
		delete(c.operators, oldNick)
		c.operators[newNick] = true
	}
}

func (c *Channel) AddOperator(nick string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.operators[nick] = true
}

func (c *Channel) RemoveOperator(nick string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.operators, nick)
}

func (c *Channel) SetTopic(topic string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.topic = topic
}

func (c *Channel) TopicRestricted() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.topicRestricted
}

func (c *Channel) InviteOnly() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.inviteOnly
}

func (c *Channel) Key() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.key
}

func (c *Channel) Limit() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.limit
}

func (c *Channel) SetInviteOnly(v bool)      { c.mu.Lock(); c.inviteOnly = v; c.mu.Unlock() }
func (c *Channel) SetTopicRestricted(v bool) { c.mu.Lock(); c.topicRestricted = v; c.mu.Unlock() }
func (c *Channel) SetKey(key string)         { c.mu.Lock(); c.key = key; c.mu.Unlock() }
func (c *Channel) SetLimit(n int)            { c.mu.Lock(); c.limit = n; c.mu.Unlock() }

// ModeString renders the channel's active flags as a compact mode
// string, e.g. "+tk" (the key's value is not included, matching how
// MODE replies hide +k's argument from non-members in real networks;
// here it is simply never echoed back).
func (c *Channel) ModeString() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s := "+"
	if c.inviteOnly {
		s += "i"
	}
	if c.topicRestricted {
		s += "t"
	}
	if c.key != "" {
		s += "k"
	}
	if c.limit > 0 {
		s += "l"
	}
	if s == "+" {
		return ""
	}
	return s
}

// Broadcast sends msg to every current member except the given session,
// which may be nil to mean "no exclusion". The member snapshot is taken
// under the read lock so the send itself does not hold the channel
// lock. No lock spans a handler's mutation and its broadcast, so the
// lines of commands running on different connections can interleave.
func (c *Channel) Broadcast(except *Session, msg *Message) {
	c.mu.RLock()
	targets := make([]*Session, 0, len(c.members))
	var exceptNick string
	if except != nil {
		exceptNick = except.Nickname()
	}
	for nick, m := range c.members {
		if nick == exceptNick {
			continue
		}
		targets = append(targets, m)
	}
	c.mu.RUnlock()

	line := msg.String()
	for _, m := range targets {
		_ = m.SendRaw(line)
	}
}

// NamesReply emits 353/366 to the given session, operators prefixed
// with '@'.
func (c *Channel) NamesReply(server *Server, to *Session) {
	c.mu.RLock()
	names := make([]string, 0, len(c.members))
	for nick := range c.members {
		if c.operators[nick] {
			names = append(names, "@"+nick)
		} else {
			names = append(names, nick)
		}
	}
	name := c.name
	c.mu.RUnlock()

	sort.Strings(names)
	to.SendNumeric(RPL_NAMREPLY, "=", name, joinSpace(names))
	to.SendNumeric(RPL_ENDOFNAMES, name, "End of /NAMES list")
}

func joinSpace(ss []string) string {
	out := ""
	for i, s := range ss {
		if i > 0 {
			out += " "
		}
		out += s
	}
	return out
}
