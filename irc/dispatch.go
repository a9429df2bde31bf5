package irc

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/presbrey/ircd/irc/dcc"
)

// handlerFunc is one verb's implementation. requiresRegistration marks
// commands that need RFC 2812 registration (PASS/NICK/USER) to have
// completed; the dispatcher itself enforces it before calling through.
type handlerFunc func(s *Server, sess *Session, msg *Message)

type verb struct {
	handler              handlerFunc
	requiresRegistration bool
}

var verbTable = map[string]verb{
	"PASS":    {cmdPass, false},
	"NICK":    {cmdNick, false},
	"USER":    {cmdUser, false},
	"CAP":     {cmdCap, false},
	"PING":    {cmdPing, false},
	"PONG":    {cmdPong, false},
	"QUIT":    {cmdQuit, false},
	"JOIN":    {cmdJoin, true},
	"PART":    {cmdPart, true},
	"PRIVMSG": {cmdPrivmsg, true},
	"NOTICE":  {cmdNotice, true},
	"KICK":    {cmdKick, true},
	"INVITE":  {cmdInvite, true},
	"TOPIC":   {cmdTopic, true},
	"MODE":    {cmdMode, true},
	"WHO":     {cmdWho, true},
	"WHOIS":   {cmdWhois, true},
	"AWAY":    {cmdAway, true},
	"DCC":     {cmdDCC, true},
}

// dispatch gates on requiresRegistration, then routes to the verb's
// handler. An unknown verb before registration elicits no response, as
// an unregistered client has no useful numeric to receive it with;
// once registered it gets ERR_UNKNOWNCOMMAND, and a too-early verb
// gets ERR_NOTREGISTERED.
func (s *Server) dispatch(sess *Session, msg *Message) {
	v, ok := verbTable[msg.Command]
	if !ok {
		if sess.Phase() == PhaseRegistered {
			sess.SendNumeric(ERR_UNKNOWNCOMMAND, msg.Command, "Unknown command")
		}
		return
	}
	if v.requiresRegistration && sess.Phase() != PhaseRegistered {
		sess.SendNumeric(ERR_NOTREGISTERED, "You have not registered")
		return
	}
	v.handler(s, sess, msg)
}

func cmdPass(s *Server, sess *Session, msg *Message) {
	if sess.Phase() == PhaseRegistered {
		sess.SendNumeric(ERR_ALREADYREGISTRED, "You may not reregister")
		return
	}
	if len(msg.Params) < 1 {
		sess.SendNumeric(ERR_NEEDMOREPARAMS, "PASS", "Not enough parameters")
		return
	}
	if !s.CheckPassword(msg.Params[0]) {
		sess.SendNumeric(ERR_PASSWDMISMATCH, "Password incorrect")
		return
	}
	sess.mu.Lock()
	sess.passAccepted = true
	if sess.phase == PhaseConnecting {
		sess.phase = PhaseRegistering
	}
	sess.mu.Unlock()
}

func isValidNickname(nick string) bool {
	if len(nick) < 1 || len(nick) > 9 {
		return false
	}
	first := nick[0]
	if first >= '0' && first <= '9' {
		return false
	}
	if first == '#' {
		return false
	}
	for i := 0; i < len(nick); i++ {
		c := nick[i]
		switch {
		case c >= 'a' && c <= 'z':
		case c >= 'A' && c <= 'Z':
		case c >= '0' && c <= '9':
		case c == '-' || c == '_':
		default:
			return false
		}
	}
	return true
}

func cmdNick(s *Server, sess *Session, msg *Message) {
	if len(msg.Params) < 1 || msg.Params[0] == "" {
		sess.SendNumeric(ERR_NONICKNAMEGIVEN, "No nickname given")
		return
	}
	nick := msg.Params[0]
	if !isValidNickname(nick) {
		sess.SendNumeric(ERR_ERRONEUSNICKNAME, nick, "Erroneous nickname")
		return
	}

	old := sess.Nickname()
	if old == nick {
		return
	}

	if old == "" {
		if !s.bindNickname(nick, sess) {
			sess.SendNumeric(ERR_NICKNAMEINUSE, nick, "Nickname is already in use")
			return
		}
		sess.setNickname(nick)
		s.maybeCompleteRegistration(sess)
		return
	}

	if !s.renameNickname(old, nick, sess) {
		sess.SendNumeric(ERR_NICKNAMEINUSE, nick, "Nickname is already in use")
		return
	}
	sess.setNickname(nick)

	notice := &Message{Prefix: FormatHostmask(old, sess.Username(), sess.Hostname()), Command: "NICK", Params: []string{nick}}
	sess.SendRaw(notice.String())
	for _, cn := range sess.joinedChannels() {
		if ch, ok := s.findChannel(cn); ok {
			ch.RenameMember(old, nick, sess)
			ch.Broadcast(sess, notice)
		}
	}
}

func cmdUser(s *Server, sess *Session, msg *Message) {
	if sess.Phase() == PhaseRegistered {
		sess.SendNumeric(ERR_ALREADYREGISTRED, "You may not reregister")
		return
	}
	if len(msg.Params) < 4 {
		sess.SendNumeric(ERR_NEEDMOREPARAMS, "USER", "Not enough parameters")
		return
	}
	sess.mu.Lock()
	sess.username = msg.Params[0]
	sess.realname = strings.TrimPrefix(msg.Params[3], ":")
	sess.mu.Unlock()
	s.maybeCompleteRegistration(sess)
}

// maybeCompleteRegistration transitions REGISTERING -> REGISTERED once
// PASS/NICK/USER have all landed, emitting the 001-004 welcome burst.
func (s *Server) maybeCompleteRegistration(sess *Session) {
	sess.mu.Lock()
	ready := sess.passAccepted && sess.nickname != "" && sess.username != "" && sess.phase != PhaseRegistered
	if ready {
		sess.phase = PhaseRegistered
	}
	sess.mu.Unlock()
	if !ready {
		return
	}

	nick := sess.Nickname()
	sess.SendNumeric(RPL_WELCOME, fmt.Sprintf("Welcome to the Internet Relay Network %s", sess.Hostmask()))
	sess.SendNumeric(RPL_YOURHOST, fmt.Sprintf("Your host is %s, running this server", s.prefix()))
	sess.SendNumeric(RPL_CREATED, fmt.Sprintf("This server was created %s", s.created.Format("2006-01-02 15:04:05")))
	sess.SendNumeric(RPL_MYINFO, fmt.Sprintf("%s :supports channel modes itkl, user modes ao", s.prefix()))
	sess.SendNumeric(RPL_MOTDSTART, fmt.Sprintf("- %s Message of the day -", s.prefix()))
	sess.SendNumeric(RPL_MOTD, "- Welcome.")
	sess.SendNumeric(RPL_ENDOFMOTD, "End of /MOTD command")
	_ = nick
}

// cmdCap implements a minimal CAP stub: LS/LIST reply with an empty
// capability list, REQ always NAKs, END is a no-op. CAP never touches
// the registration state machine.
func cmdCap(s *Server, sess *Session, msg *Message) {
	if len(msg.Params) < 1 {
		return
	}
	nick := sess.Nickname()
	if nick == "" {
		nick = "*"
	}
	sub := strings.ToUpper(msg.Params[0])
	switch sub {
	case "LS", "LIST":
		sess.SendFrom(s.prefix(), "CAP", nick, sub, "")
	case "REQ":
		requested := ""
		if len(msg.Params) > 1 {
			requested = msg.Params[1]
		}
		sess.SendFrom(s.prefix(), "CAP", nick, "NAK", requested)
	case "END":
	}
}

func cmdPing(s *Server, sess *Session, msg *Message) {
	if len(msg.Params) < 1 {
		sess.SendNumeric(ERR_NOORIGIN, "No origin specified")
		return
	}
	sess.SendFrom(s.prefix(), "PONG", s.prefix(), msg.Params[0])
}

func cmdPong(s *Server, sess *Session, msg *Message) {}

func cmdQuit(s *Server, sess *Session, msg *Message) {
	reason := "Client Quit"
	if len(msg.Params) > 0 {
		reason = msg.Params[0]
	}
	s.removeSession(sess, reason)
	sess.Close()
}

func isChannelName(name string) bool {
	return len(name) > 1 && name[0] == '#'
}

func cmdJoin(s *Server, sess *Session, msg *Message) {
	if len(msg.Params) < 1 {
		sess.SendNumeric(ERR_NEEDMOREPARAMS, "JOIN", "Not enough parameters")
		return
	}
	if msg.Params[0] == "0" {
		for _, cn := range sess.joinedChannels() {
			partOne(s, sess, cn, "")
		}
		return
	}

	channels := strings.Split(msg.Params[0], ",")
	var keys []string
	if len(msg.Params) > 1 {
		keys = strings.Split(msg.Params[1], ",")
	}

	for i, cn := range channels {
		if !isChannelName(cn) {
			sess.SendNumeric(ERR_NOSUCHCHANNEL, cn, "No such channel")
			continue
		}
		key := ""
		if i < len(keys) {
			key = keys[i]
		}
		ch, _ := s.getOrCreateChannel(cn)
		if err := ch.AddMember(sess, key); err != nil {
			switch err {
			case ErrKeyRequired:
				sess.SendNumeric(ERR_BADCHANNELKEY, cn, "Cannot join channel (+k)")
			case ErrInviteOnly:
				sess.SendNumeric(ERR_INVITEONLYCHAN, cn, "Cannot join channel (+i)")
			case ErrChannelFull:
				sess.SendNumeric(ERR_CHANNELISFULL, cn, "Cannot join channel (+l)")
			}
			continue
		}
		sess.addChannel(cn)

		join := &Message{Prefix: sess.Hostmask(), Command: "JOIN", Params: []string{cn}}
		ch.Broadcast(nil, join)

		if topic := ch.Topic(); topic != "" {
			sess.SendNumeric(RPL_TOPIC, cn, topic)
		} else {
			sess.SendNumeric(RPL_NOTOPIC, cn, "No topic is set")
		}
		ch.NamesReply(s, sess)
		s.bots.HandleJoin(sess.Nickname(), cn)
	}
}

func partOne(s *Server, sess *Session, cn, reason string) {
	ch, ok := s.findChannel(cn)
	if !ok || !ch.IsMember(sess.Nickname()) {
		return
	}
	part := &Message{Prefix: sess.Hostmask(), Command: "PART", Params: []string{cn, reason}}
	ch.Broadcast(nil, part)
	ch.RemoveMember(sess.Nickname())
	sess.removeChannel(cn)
	s.bots.HandlePart(sess.Nickname(), cn)
}

func cmdPart(s *Server, sess *Session, msg *Message) {
	if len(msg.Params) < 1 {
		sess.SendNumeric(ERR_NEEDMOREPARAMS, "PART", "Not enough parameters")
		return
	}
	reason := ""
	if len(msg.Params) > 1 {
		reason = msg.Params[1]
	}
	for _, cn := range strings.Split(msg.Params[0], ",") {
		ch, ok := s.findChannel(cn)
		if !ok {
			sess.SendNumeric(ERR_NOSUCHCHANNEL, cn, "No such channel")
			continue
		}
		if !ch.IsMember(sess.Nickname()) {
			sess.SendNumeric(ERR_NOTONCHANNEL, cn, "You're not on that channel")
			continue
		}
		partOne(s, sess, cn, reason)
	}
}

func deliverText(s *Server, sess *Session, target, text string, isNotice bool) {
	if isChannelName(target) {
		ch, ok := s.findChannel(target)
		if !ok {
			if !isNotice {
				sess.SendNumeric(ERR_NOSUCHCHANNEL, target, "No such channel")
			}
			return
		}
		if !ch.IsMember(sess.Nickname()) {
			if !isNotice {
				sess.SendNumeric(ERR_CANNOTSENDTOCHAN, target, "Cannot send to channel")
			}
			return
		}
		command := "PRIVMSG"
		if isNotice {
			command = "NOTICE"
		}
		ch.Broadcast(sess, &Message{Prefix: sess.Hostmask(), Command: command, Params: []string{target, text}})
		return
	}

	if s.bots.IsBotNickname(target) {
		if reply, ok := s.bots.HandleMessage(target, sess.Nickname(), text); ok && reply != "" {
			sess.SendFrom(FormatHostmask(target, target, s.prefix()), "PRIVMSG", sess.Nickname(), reply)
		}
		return
	}

	dest, ok := s.findSession(target)
	if !ok {
		if !isNotice {
			sess.SendNumeric(ERR_NOSUCHNICK, target, "No such nick/channel")
		}
		return
	}
	command := "PRIVMSG"
	if isNotice {
		command = "NOTICE"
	}
	dest.SendFrom(sess.Hostmask(), command, target, text)
	if !isNotice {
		if away, awayMsg := dest.IsAway(); away {
			sess.SendNumeric(RPL_AWAY, target, awayMsg)
		}
	}
}

func cmdPrivmsg(s *Server, sess *Session, msg *Message) { privOrNotice(s, sess, msg, false) }
func cmdNotice(s *Server, sess *Session, msg *Message)  { privOrNotice(s, sess, msg, true) }

func privOrNotice(s *Server, sess *Session, msg *Message, isNotice bool) {
	if len(msg.Params) < 1 {
		if !isNotice {
			sess.SendNumeric(ERR_NORECIPIENT, "No recipient given")
		}
		return
	}
	if len(msg.Params) < 2 || msg.Params[1] == "" {
		if !isNotice {
			sess.SendNumeric(ERR_NOTEXTTOSEND, "No text to send")
		}
		return
	}
	text := msg.Params[1]
	for _, target := range strings.Split(msg.Params[0], ",") {
		deliverText(s, sess, target, text, isNotice)
	}
}

func cmdKick(s *Server, sess *Session, msg *Message) {
	if len(msg.Params) < 2 {
		sess.SendNumeric(ERR_NEEDMOREPARAMS, "KICK", "Not enough parameters")
		return
	}
	cn, target := msg.Params[0], msg.Params[1]
	reason := target
	if len(msg.Params) > 2 {
		reason = msg.Params[2]
	}
	ch, ok := s.findChannel(cn)
	if !ok {
		sess.SendNumeric(ERR_NOSUCHCHANNEL, cn, "No such channel")
		return
	}
	if !ch.IsMember(sess.Nickname()) {
		sess.SendNumeric(ERR_NOTONCHANNEL, cn, "You're not on that channel")
		return
	}
	if !ch.IsOperator(sess.Nickname()) {
		sess.SendNumeric(ERR_CHANOPRIVSNEEDED, cn, "You're not channel operator")
		return
	}
	if !ch.IsMember(target) {
		sess.SendNumeric(ERR_USERNOTINCHANNEL, target, cn, "They aren't on that channel")
		return
	}
	kick := &Message{Prefix: sess.Hostmask(), Command: "KICK", Params: []string{cn, target, reason}}
	ch.Broadcast(nil, kick)
	ch.RemoveMember(target)
	if victim, ok := s.findSession(target); ok {
		victim.removeChannel(cn)
	}
}

func cmdInvite(s *Server, sess *Session, msg *Message) {
	if len(msg.Params) < 2 {
		sess.SendNumeric(ERR_NEEDMOREPARAMS, "INVITE", "Not enough parameters")
		return
	}
	target, cn := msg.Params[0], msg.Params[1]
	ch, ok := s.findChannel(cn)
	if !ok {
		sess.SendNumeric(ERR_NOSUCHCHANNEL, cn, "No such channel")
		return
	}
	if !ch.IsMember(sess.Nickname()) {
		sess.SendNumeric(ERR_NOTONCHANNEL, cn, "You're not on that channel")
		return
	}
	if ch.InviteOnly() && !ch.IsOperator(sess.Nickname()) {
		sess.SendNumeric(ERR_CHANOPRIVSNEEDED, cn, "You're not channel operator")
		return
	}
	dest, ok := s.findSession(target)
	if !ok {
		sess.SendNumeric(ERR_NOSUCHNICK, target, "No such nick/channel")
		return
	}
	if ch.IsMember(target) {
		sess.SendNumeric(ERR_USERONCHANNEL, target, cn, "is already on channel")
		return
	}
	ch.Invite(target)
	sess.SendNumeric(RPL_INVITING, target, cn)
	dest.SendFrom(sess.Hostmask(), "INVITE", target, cn)
}

func cmdTopic(s *Server, sess *Session, msg *Message) {
	if len(msg.Params) < 1 {
		sess.SendNumeric(ERR_NEEDMOREPARAMS, "TOPIC", "Not enough parameters")
		return
	}
	cn := msg.Params[0]
	ch, ok := s.findChannel(cn)
	if !ok {
		sess.SendNumeric(ERR_NOTONCHANNEL, cn, "You're not on that channel")
		return
	}
	if !ch.IsMember(sess.Nickname()) {
		sess.SendNumeric(ERR_NOTONCHANNEL, cn, "You're not on that channel")
		return
	}
	if len(msg.Params) < 2 {
		if topic := ch.Topic(); topic != "" {
			sess.SendNumeric(RPL_TOPIC, cn, topic)
		} else {
			sess.SendNumeric(RPL_NOTOPIC, cn, "No topic is set")
		}
		return
	}
	if ch.TopicRestricted() && !ch.IsOperator(sess.Nickname()) {
		sess.SendNumeric(ERR_CHANOPRIVSNEEDED, cn, "You're not channel operator")
		return
	}
	ch.SetTopic(msg.Params[1])
	topicMsg := &Message{Prefix: sess.Hostmask(), Command: "TOPIC", Params: []string{cn, msg.Params[1]}}
	ch.Broadcast(nil, topicMsg)
}

// cmdMode handles channel modes only; this server has no network OPER
// command, so there is no user-mode-setting path beyond what a client
// does to itself with AWAY (see DESIGN.md Open Question 1).
func cmdMode(s *Server, sess *Session, msg *Message) {
	if len(msg.Params) < 1 {
		sess.SendNumeric(ERR_NEEDMOREPARAMS, "MODE", "Not enough parameters")
		return
	}
	cn := msg.Params[0]
	ch, ok := s.findChannel(cn)
	if !ok {
		sess.SendNumeric(ERR_NOSUCHCHANNEL, cn, "No such channel")
		return
	}
	if len(msg.Params) < 2 {
		sess.SendNumeric(RPL_CHANNELMODEIS, cn, ch.ModeString())
		return
	}
	if !ch.IsOperator(sess.Nickname()) {
		sess.SendNumeric(ERR_CHANOPRIVSNEEDED, cn, "You're not channel operator")
		return
	}

	modeString := msg.Params[1]
	args := msg.Params[2:]
	argIdx := 0
	nextArg := func() (string, bool) {
		if argIdx >= len(args) {
			return "", false
		}
		v := args[argIdx]
		argIdx++
		return v, true
	}

	add := true
	var applied []string
	for _, ch2 := range modeString {
		switch ch2 {
		case '+':
			add = true
		case '-':
			add = false
		case 'i':
			ch.SetInviteOnly(add)
			applied = append(applied, signChar(add)+"i")
		case 't':
			ch.SetTopicRestricted(add)
			applied = append(applied, signChar(add)+"t")
		case 'k':
			if add {
				key, ok := nextArg()
				if !ok {
					continue
				}
				ch.SetKey(key)
				applied = append(applied, signChar(add)+"k "+key)
			} else {
				ch.SetKey("")
				applied = append(applied, "-k")
			}
		case 'l':
			if add {
				n, ok := nextArg()
				if !ok {
					continue
				}
				limit, err := strconv.Atoi(n)
				if err != nil || limit <= 0 {
					continue
				}
				ch.SetLimit(limit)
				applied = append(applied, fmt.Sprintf("+l %d", limit))
			} else {
				ch.SetLimit(0)
				applied = append(applied, "-l")
			}
		case 'o':
			nick, ok := nextArg()
			if !ok {
				continue
			}
			if !ch.IsMember(nick) {
				sess.SendNumeric(ERR_USERNOTINCHANNEL, nick, cn, "They aren't on that channel")
				continue
			}
			if add {
				ch.AddOperator(nick)
			} else {
				ch.RemoveOperator(nick)
			}
			applied = append(applied, signChar(add)+"o "+nick)
		default:
			sess.SendNumeric(ERR_UNKNOWNMODE, string(ch2), "is unknown mode char to me")
		}
	}

	for _, a := range applied {
		parts := strings.SplitN(a, " ", 2)
		params := []string{cn, parts[0]}
		if len(parts) > 1 {
			params = append(params, parts[1])
		}
		ch.Broadcast(nil, &Message{Prefix: sess.Hostmask(), Command: "MODE", Params: params})
	}
}

func signChar(add bool) string {
	if add {
		return "+"
	}
	return "-"
}

func cmdAway(s *Server, sess *Session, msg *Message) {
	if len(msg.Params) < 1 || msg.Params[0] == "" {
		sess.SetAway(false, "")
		sess.SendNumeric(RPL_UNAWAY, "You are no longer marked as being away")
		return
	}
	sess.SetAway(true, msg.Params[0])
	sess.SendNumeric(RPL_NOWAWAY, "You have been marked as being away")
}

func cmdWho(s *Server, sess *Session, msg *Message) {
	if len(msg.Params) < 1 {
		sess.SendNumeric(RPL_ENDOFWHO, "*", "End of /WHO list")
		return
	}
	target := msg.Params[0]
	if ch, ok := s.findChannel(target); ok {
		for _, nick := range ch.Members() {
			if who, ok := s.findSession(nick); ok {
				sess.SendNumeric(RPL_WHOREPLY, target, who.Username(), who.Hostname(), s.prefix(), who.Nickname(), "H", "0 "+who.Realname())
			}
		}
	}
	sess.SendNumeric(RPL_ENDOFWHO, target, "End of /WHO list")
}

func cmdWhois(s *Server, sess *Session, msg *Message) {
	if len(msg.Params) < 1 {
		sess.SendNumeric(ERR_NONICKNAMEGIVEN, "No nickname given")
		return
	}
	target := msg.Params[0]
	who, ok := s.findSession(target)
	if !ok {
		sess.SendNumeric(ERR_NOSUCHNICK, target, "No such nick/channel")
		return
	}
	sess.SendNumeric(RPL_WHOISUSER, target, who.Username(), who.Hostname(), "*", who.Realname())
	sess.SendNumeric(RPL_WHOISSERVER, target, s.prefix(), "ircd")
	sess.SendNumeric(RPL_ENDOFWHOIS, target, "End of /WHOIS list")
}

// cmdDCC handles the DCC subcommands: SEND/GET/ACCEPT/REJECT/LIST/
// CANCEL/STATUS, each delegating to the DCC manager.
func cmdDCC(s *Server, sess *Session, msg *Message) {
	if len(msg.Params) < 1 {
		sess.SendNotice("DCC: missing subcommand")
		return
	}
	sub := strings.ToUpper(msg.Params[0])
	args := msg.Params[1:]

	switch sub {
	case "SEND":
		if len(args) < 2 {
			sess.SendNotice("DCC SEND: usage: DCC SEND <nick> <filepath>")
			return
		}
		path := filepath.Clean(args[1])
		if _, err := os.Stat(path); err != nil {
			sess.SendNotice("DCC SEND: " + err.Error())
			return
		}
		t, err := s.dccMgr.CreateSendTransfer(sess, args[0], path)
		if err != nil {
			sess.SendNotice("Failed to create DCC transfer: " + err.Error())
			return
		}
		sess.SendNotice(fmt.Sprintf("DCC SEND %s to %s offered (id %s)", t.Filename, args[0], t.ID))

	case "GET":
		if len(args) == 1 {
			if _, err := s.dccMgr.AcceptTransfer(args[0], sess); err != nil {
				sess.SendNotice("DCC GET: " + err.Error())
			}
			return
		}
		if len(args) >= 2 {
			if err := s.dccMgr.RequestPull(sess, args[0], args[1]); err != nil {
				sess.SendNotice("DCC GET: " + err.Error())
			}
			return
		}
		sess.SendNotice("DCC GET: usage: DCC GET <id> | DCC GET <nick> <filename>")

	case "ACCEPT":
		if len(args) < 1 {
			sess.SendNotice("DCC ACCEPT: usage: DCC ACCEPT <id>")
			return
		}
		if _, err := s.dccMgr.AcceptTransfer(args[0], sess); err != nil {
			sess.SendNotice("DCC ACCEPT: " + err.Error())
		}

	case "REJECT":
		if len(args) < 1 {
			sess.SendNotice("DCC REJECT: usage: DCC REJECT <id>")
			return
		}
		if err := s.dccMgr.RejectTransfer(args[0], sess); err != nil {
			sess.SendNotice("DCC REJECT: " + err.Error())
		}

	case "CANCEL":
		if len(args) < 1 {
			sess.SendNotice("DCC CANCEL: usage: DCC CANCEL <id>")
			return
		}
		if err := s.dccMgr.CancelTransfer(args[0], sess); err != nil {
			sess.SendNotice("DCC CANCEL: " + err.Error())
		}

	case "LIST":
		transfers := s.dccMgr.ListTransfers(sess.Nickname())
		if len(transfers) == 0 {
			sess.SendNotice("DCC LIST: no transfers")
			return
		}
		for _, t := range transfers {
			sess.SendNotice(fmt.Sprintf("%s %s %s %s %d/%d", t.ID, t.Type, t.Status(), t.Filename, t.BytesTransferred(), t.Filesize))
		}

	case "STATUS":
		active, pending, completed, failed, total := s.dccMgr.Status()
		sess.SendNotice(fmt.Sprintf("DCC STATUS: active=%d pending=%d completed=%d failed=%d bytes=%d", active, pending, completed, failed, total))

	default:
		sess.SendNotice("DCC: unknown subcommand " + sub)
	}
}

var _ dcc.Peer = (*Session)(nil)
