package bot

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestManagerRegisterAndRoute(t *testing.T) {
	m := NewManager()
	m.Register(NewJanken("janken"))

	assert.True(t, m.IsBotNickname("janken"))
	assert.False(t, m.IsBotNickname("alice"))
	assert.Equal(t, []string{"janken"}, m.Nicknames())

	reply, ok := m.HandleMessage("janken", "alice", "rock")
	assert.True(t, ok)
	assert.NotEmpty(t, reply)

	_, ok = m.HandleMessage("nosuchbot", "alice", "rock")
	assert.False(t, ok)
}

func TestManagerBroadcastsJoinPartQuit(t *testing.T) {
	m := NewManager()
	m.Register(NewJanken("janken"))

	// These should not panic even though Janken's hooks are no-ops for
	// join/part; quit clears any score state.
	m.HandleJoin("alice", "#room")
	m.HandlePart("alice", "#room")
	m.HandleQuit("alice")
}
