package irc

// Registry operations: the fd->session, nickname->session, and
// name->channel lookups/mutations the dispatcher leans on for nearly
// every verb. Kept on Server rather than split into a separate type
// since they all share Server.mu with the accept loop and removeSession.

// bindNickname claims nick for sess if it is not already taken,
// enforcing the one-nickname-per-session invariant the Registry keeps.
func (s *Server) bindNickname(nick string, sess *Session) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, taken := s.nicknames[nick]; taken {
		return false
	}
	s.nicknames[nick] = sess
	return true
}

// renameNickname atomically moves sess's Registry entry from old to
// newNick, failing if newNick is already claimed by a different session.
func (s *Server) renameNickname(old, newNick string, sess *Session) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cur, taken := s.nicknames[newNick]; taken && cur != sess {
		return false
	}
	delete(s.nicknames, old)
	s.nicknames[newNick] = sess
	return true
}

// findSession looks a connected session up by its current nickname.
func (s *Server) findSession(nick string) (*Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.nicknames[nick]
	return sess, ok
}

// findChannel looks a channel up by name.
func (s *Server) findChannel(name string) (*Channel, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ch, ok := s.channels[name]
	return ch, ok
}

// getOrCreateChannel returns the named channel, creating it under lock
// if this is the first reference to it. The bool reports whether a new
// channel was created.
func (s *Server) getOrCreateChannel(name string) (*Channel, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ch, ok := s.channels[name]; ok {
		return ch, false
	}
	ch := NewChannel(name)
	s.channels[name] = ch
	return ch, true
}
