package bot

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestJankenRejectsUnknownMove(t *testing.T) {
	j := NewJanken("janken")
	reply, ok := j.OnMessage("alice", "banana")
	assert.True(t, ok)
	assert.Contains(t, reply, "rock, paper, or scissors")
}

func TestJankenRecordsScore(t *testing.T) {
	j := NewJanken("janken")
	_, ok := j.OnMessage("alice", "rock")
	assert.True(t, ok)
	j.mu.Lock()
	s := j.scores["alice"]
	j.mu.Unlock()
	if assert.NotNil(t, s) {
		assert.Equal(t, 1, s.wins+s.losses+s.draws)
	}
}

func TestJankenOnQuitClearsScore(t *testing.T) {
	j := NewJanken("janken")
	_, _ = j.OnMessage("alice", "paper")
	j.OnQuit("alice")
	j.mu.Lock()
	_, ok := j.scores["alice"]
	j.mu.Unlock()
	assert.False(t, ok)
}

func TestMoveBeats(t *testing.T) {
	assert.True(t, moveRock.beats(moveScissors))
	assert.True(t, movePaper.beats(moveRock))
	assert.True(t, moveScissors.beats(movePaper))
	assert.False(t, moveRock.beats(movePaper))
}

func TestParseMove(t *testing.T) {
	for _, in := range []string{"rock", "R", " paper ", "scissors", "s"} {
		_, ok := parseMove(in)
		assert.True(t, ok, "expected %q to parse", in)
	}
	_, ok := parseMove("lizard")
	assert.False(t, ok)
}
