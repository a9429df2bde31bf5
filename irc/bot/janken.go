package bot

import (
	"crypto/rand"
	"fmt"
	"strings"
	"sync"
)

// move is one of the three rock-paper-scissors throws.
type move int

const (
	moveRock move = iota
	movePaper
	moveScissors
)

func (m move) String() string {
	switch m {
	case moveRock:
		return "rock"
	case movePaper:
		return "paper"
	default:
		return "scissors"
	}
}

func parseMove(s string) (move, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "rock", "r":
		return moveRock, true
	case "paper", "p":
		return movePaper, true
	case "scissors", "s":
		return moveScissors, true
	default:
		return 0, false
	}
}

// beats reports whether m beats other.
func (m move) beats(other move) bool {
	return (m == moveRock && other == moveScissors) ||
		(m == movePaper && other == moveRock) ||
		(m == moveScissors && other == movePaper)
}

// score tracks one opponent's running tally against the bot, kept in
// memory only per the no-persistent-storage non-goal.
type score struct {
	wins, losses, draws int
}

// Janken is a rock-paper-scissors bot: a reserved-nickname PRIVMSG
// consumer, grounded on original_source/src/bonus/JankenBot.cpp. The
// name is the Japanese term for the game, matching the original's
// class name.
type Janken struct {
	nickname string

	mu     sync.Mutex
	scores map[string]*score
}

func NewJanken(nickname string) *Janken {
	return &Janken{
		nickname: nickname,
		scores:   make(map[string]*score),
	}
}

func (j *Janken) Nickname() string { return j.nickname }

func (j *Janken) OnMessage(from, text string) (string, bool) {
	playerMove, ok := parseMove(text)
	if !ok {
		return "play rock, paper, or scissors", true
	}

	botMove := randomMove()

	j.mu.Lock()
	s, ok := j.scores[from]
	if !ok {
		s = &score{}
		j.scores[from] = s
	}

	var outcome string
	switch {
	case playerMove == botMove:
		s.draws++
		outcome = "a draw"
	case playerMove.beats(botMove):
		s.wins++
		outcome = "you win"
	default:
		s.losses++
		outcome = "you lose"
	}
	wins, losses, draws := s.wins, s.losses, s.draws
	j.mu.Unlock()

	return fmt.Sprintf("I played %s, %s! (score vs you: %d-%d-%d w/l/d)",
		botMove, outcome, wins, losses, draws), true
}

func (j *Janken) OnJoin(from, channel string) {}
func (j *Janken) OnPart(from, channel string) {}
func (j *Janken) OnQuit(from string) {
	j.mu.Lock()
	delete(j.scores, from)
	j.mu.Unlock()
}

func randomMove() move {
	var b [1]byte
	for {
		_, _ = rand.Read(b[:])
		if b[0] < 255 {
			return move(b[0] % 3)
		}
	}
}
