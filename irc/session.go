package irc

import (
	"bufio"
	"net"
	"strings"
	"sync"
	"time"
)

// Phase is the session's position in the registration state machine.
type Phase int

const (
	PhaseConnecting Phase = iota
	PhaseRegistering
	PhaseRegistered
)

// Default framing limits; overridable per-server via ambient config
// (see irc/config).
const (
	DefaultIngressBufferCap    = 8 * 1024
	DefaultMaxMessagesPerBatch = 100
)

// Session is the per-connection state the original specification calls
// for: identity, registration phase, joined channels, and activity
// timestamp, framed around a net.Conn instead of a raw fd. It owns its
// socket exclusively; Close closes it exactly once.
type Session struct {
	mu sync.RWMutex

	id   uint64
	conn net.Conn

	server *Server

	remoteHost string

	phase        Phase
	passAccepted bool

	nickname string
	username string
	realname string

	channels map[string]bool

	lastActivity time.Time

	awayMessage string
	Modes       UserMode

	writer  *bufio.Writer
	writeMu sync.Mutex

	inbuf []byte

	closeOnce  sync.Once
	removeOnce sync.Once
	quitting   bool

	// isBot marks a virtual session with no underlying socket, used by
	// the bot subsystem to occupy a nickname in the Registry.
	isBot bool
}

func newSession(id uint64, srv *Server, conn net.Conn) *Session {
	host := "unknown"
	if conn != nil {
		if h, _, err := net.SplitHostPort(conn.RemoteAddr().String()); err == nil {
			host = h
		}
	}
	s := &Session{
		id:           id,
		conn:         conn,
		server:       srv,
		remoteHost:   host,
		phase:        PhaseConnecting,
		channels:     make(map[string]bool),
		lastActivity: time.Now(),
	}
	if conn != nil {
		s.writer = bufio.NewWriter(conn)
	}
	return s
}

// newBotSession creates a virtual session occupying a reserved nickname
// in the Registry: it owns no socket, so writes to it are silently
// dropped (see SendRaw), but it participates in NICK collision checks
// and PRIVMSG addressing like any other Registry entry.
func newBotSession(srv *Server, nickname string) *Session {
	s := &Session{
		server:       srv,
		remoteHost:   "bot",
		phase:        PhaseRegistered,
		passAccepted: true,
		nickname:     nickname,
		username:     nickname,
		realname:     "bot",
		channels:     make(map[string]bool),
		lastActivity: time.Now(),
		isBot:        true,
	}
	return s
}

func (s *Session) ID() uint64 { return s.id }

func (s *Session) Nickname() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.nickname
}

func (s *Session) setNickname(nick string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nickname = nick
}

func (s *Session) Username() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.username
}

func (s *Session) Realname() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.realname
}

func (s *Session) Hostname() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.remoteHost
}

func (s *Session) Phase() Phase {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.phase
}

func (s *Session) setPhase(p Phase) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.phase = p
}

func (s *Session) PassAccepted() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.passAccepted
}

func (s *Session) IsOperator() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Modes.Operator
}

func (s *Session) IsAway() (bool, string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Modes.Away, s.awayMessage
}

func (s *Session) SetAway(away bool, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Modes.Away = away
	s.awayMessage = message
}

// Hostmask renders nick!user@host for use as a message prefix.
func (s *Session) Hostmask() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return FormatHostmask(s.nickname, s.username, s.remoteHost)
}

// Prefix satisfies dcc.Peer; it is the nick!user@host form the DCC
// manager stamps onto the CTCP offer so it appears to come from the
// sending client, not the server.
func (s *Session) Prefix() string { return s.Hostmask() }

// IP satisfies dcc.Peer, giving the DCC manager the address to encode
// into the SEND offer's host field.
func (s *Session) IP() net.IP {
	s.mu.RLock()
	host := s.remoteHost
	s.mu.RUnlock()
	if ip := net.ParseIP(host); ip != nil {
		return ip
	}
	return net.IPv4(127, 0, 0, 1)
}

// SendNotice satisfies dcc.Peer, delivering a server-prefixed NOTICE,
// the form original_source uses for DCC lifecycle messages.
func (s *Session) SendNotice(text string) {
	s.SendMessage("NOTICE", s.Nickname(), text)
}

// Deliver satisfies dcc.Peer, sending a message under an explicit
// prefix rather than the server's own.
func (s *Session) Deliver(prefix, command string, params ...string) {
	s.SendFrom(prefix, command, params...)
}

func (s *Session) joinedChannels() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.channels))
	for name := range s.channels {
		names = append(names, name)
	}
	return names
}

func (s *Session) addChannel(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.channels[name] = true
}

func (s *Session) removeChannel(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.channels, name)
}

func (s *Session) inChannel(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.channels[name]
}

func (s *Session) touch() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastActivity = time.Now()
}

// filterIngress drops NUL bytes and ANSI escape sequences before they
// ever reach the line buffer, so a raw-terminal client cannot inject
// control garbage into framed messages.
func filterIngress(data []byte) []byte {
	out := make([]byte, 0, len(data))
	for i := 0; i < len(data); i++ {
		b := data[i]
		if b == 0 {
			continue
		}
		if b == 0x1b { // ESC
			i++
			for i < len(data) {
				c := data[i]
				if (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') {
					break
				}
				i++
			}
			continue
		}
		out = append(out, b)
	}
	return out
}

// appendIngress appends filtered bytes to the session's bounded ingress
// buffer, truncating to the cap when exceeded, and returns the complete
// lines extracted, in arrival order, capped at maxBatch.
func (s *Session) appendIngress(data []byte, cap int, maxBatch int) []string {
	s.mu.Lock()
	s.inbuf = append(s.inbuf, filterIngress(data)...)
	if len(s.inbuf) > cap {
		s.inbuf = s.inbuf[len(s.inbuf)-cap:]
	}
	buf := s.inbuf
	s.mu.Unlock()

	var lines []string
	dropped := 0
	start := 0
	for i := 0; i < len(buf); i++ {
		if buf[i] == '\n' {
			line := string(buf[start:i])
			line = strings.TrimSuffix(line, "\r")
			start = i + 1
			if line == "" {
				continue
			}
			if len(lines) >= maxBatch {
				dropped++
				continue
			}
			lines = append(lines, line)
		}
	}
	if dropped > 0 {
		logf("session %d: discarded %d messages beyond the per-read cap of %d", s.id, dropped, maxBatch)
	}

	s.mu.Lock()
	if start <= len(s.inbuf) {
		s.inbuf = append([]byte{}, s.inbuf[start:]...)
	}
	s.mu.Unlock()

	if len(lines) > maxBatch {
		lines = lines[:maxBatch]
	}
	return lines
}

// SendRaw writes one already-formatted line, truncated to the wire
// limit and terminated with CR-LF. It is safe for concurrent use. A
// write failure is logged by the caller and does not close the
// session; a short write is not itself cause for teardown.
func (s *Session) SendRaw(line string) error {
	if s.isBot || s.conn == nil {
		return nil
	}
	if len(line) > maxLineLen-2 {
		line = line[:maxLineLen-2]
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if _, err := s.writer.WriteString(line); err != nil {
		return newError(KindTransport, "send", err)
	}
	if _, err := s.writer.WriteString("\r\n"); err != nil {
		return newError(KindTransport, "send", err)
	}
	if err := s.writer.Flush(); err != nil {
		return newError(KindTransport, "flush", err)
	}
	return nil
}

// SendMessage formats and sends a message from the server itself.
func (s *Session) SendMessage(command string, params ...string) {
	msg := &Message{Prefix: s.server.prefix(), Command: command, Params: params}
	logSendError(s.SendRaw(msg.String()))
}

// SendFrom formats and sends a message with an explicit prefix (used for
// relaying another client's or a bot's messages).
func (s *Session) SendFrom(prefix, command string, params ...string) {
	msg := &Message{Prefix: prefix, Command: command, Params: params}
	logSendError(s.SendRaw(msg.String()))
}

// SendNumeric sends a numeric reply addressed to this session's current
// nickname (or "*" before one is set).
func (s *Session) SendNumeric(code string, text ...string) {
	nick := s.Nickname()
	if nick == "" {
		nick = "*"
	}
	params := append([]string{nick}, text...)
	msg := &Message{Prefix: s.server.prefix(), Command: code, Params: params}
	logSendError(s.SendRaw(msg.String()))
}

func logSendError(err error) {
	if err != nil {
		logf("%v", err)
	}
}

// Close closes the underlying connection exactly once.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.quitting = true
		s.mu.Unlock()
		if s.conn != nil {
			_ = s.conn.Close()
		}
	})
}

func (s *Session) isQuitting() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.quitting
}
