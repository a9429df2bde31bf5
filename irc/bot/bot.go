// Package bot implements a pluggable hook-based message consumer: the
// original BotManager's polymorphic hooks become an optional set of
// function slots consulted after normal dispatch, grounded concretely
// on original_source/include/bonus/BotManager.hpp.
package bot

import "sync"

// Bot is one reserved-nickname message consumer. Implementations are
// virtual clients: they occupy a nickname but own no socket.
type Bot interface {
	Nickname() string
	OnMessage(from, text string) (reply string, ok bool)
	OnJoin(from, channel string)
	OnPart(from, channel string)
	OnQuit(from string)
}

// Manager keeps the nickname-keyed registry original_source's
// BotManager maintained as map<string,Bot*> _bots.
type Manager struct {
	mu   sync.RWMutex
	bots map[string]Bot
}

func NewManager() *Manager {
	return &Manager{bots: make(map[string]Bot)}
}

func (m *Manager) Register(b Bot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bots[b.Nickname()] = b
}

func (m *Manager) IsBotNickname(nick string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.bots[nick]
	return ok
}

func (m *Manager) Nicknames() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(m.bots))
	for n := range m.bots {
		out = append(out, n)
	}
	return out
}

// HandleMessage routes a PRIVMSG/NOTICE addressed to a bot nickname to
// that bot's OnMessage hook.
func (m *Manager) HandleMessage(botNick, from, text string) (reply string, ok bool) {
	m.mu.RLock()
	b, found := m.bots[botNick]
	m.mu.RUnlock()
	if !found {
		return "", false
	}
	return b.OnMessage(from, text)
}

// HandleJoin/HandlePart/HandleQuit notify every registered bot of a
// channel membership event, mirroring BotManager::handleJoin/handlePart/
// handleQuit, which notify all bots rather than one in particular.
func (m *Manager) HandleJoin(from, channel string) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, b := range m.bots {
		b.OnJoin(from, channel)
	}
}

func (m *Manager) HandlePart(from, channel string) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, b := range m.bots {
		b.OnPart(from, channel)
	}
}

func (m *Manager) HandleQuit(from string) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, b := range m.bots {
		b.OnQuit(from)
	}
}
