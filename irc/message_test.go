package irc_test

import (
	"strings"
	"testing"

	"github.com/presbrey/ircd/irc"
	"github.com/stretchr/testify/assert"
)

func TestParseMessageBasic(t *testing.T) {
	msg := irc.ParseMessage("NICK alice")
	if assert.NotNil(t, msg) {
		assert.Equal(t, "NICK", msg.Command)
		assert.Equal(t, []string{"alice"}, msg.Params)
		assert.Equal(t, "", msg.Prefix)
	}
}

func TestParseMessageWithPrefixAndTrailing(t *testing.T) {
	msg := irc.ParseMessage(":alice!a@h PRIVMSG #room :hello there, world")
	if assert.NotNil(t, msg) {
		assert.Equal(t, "alice!a@h", msg.Prefix)
		assert.Equal(t, "PRIVMSG", msg.Command)
		assert.Equal(t, []string{"#room", "hello there, world"}, msg.Params)
	}
}

func TestParseMessageRoundTrip(t *testing.T) {
	for _, line := range []string{
		"NICK alice",
		":srv 001 alice :Welcome",
		"PRIVMSG #room :hi there",
	} {
		msg := irc.ParseMessage(line)
		if assert.NotNil(t, msg) {
			assert.Equal(t, line, msg.String())
		}
	}
}

func TestParseMessageRejectsOverlongLine(t *testing.T) {
	assert.Nil(t, irc.ParseMessage(strings.Repeat("a", 513)))
}

func TestParseMessageRejectsEmptyPrefix(t *testing.T) {
	assert.Nil(t, irc.ParseMessage(": NICK alice"))
}

func TestParseMessageRejectsTooManyParams(t *testing.T) {
	var b strings.Builder
	b.WriteString("CMD")
	for i := 0; i < 16; i++ {
		b.WriteString(" p")
	}
	assert.Nil(t, irc.ParseMessage(b.String()))
}

func TestParseMessageRejectsControlBytes(t *testing.T) {
	assert.Nil(t, irc.ParseMessage("NICK al\x01ice"))
}

func TestFormatAndParseHostmask(t *testing.T) {
	mask := irc.FormatHostmask("alice", "auser", "host.example")
	assert.Equal(t, "alice!auser@host.example", mask)

	nick, user, host := irc.ParseHostmask(mask)
	assert.Equal(t, "alice", nick)
	assert.Equal(t, "auser", user)
	assert.Equal(t, "host.example", host)
}

func TestFormatHostmaskDefaultsMissingComponents(t *testing.T) {
	assert.Equal(t, "alice!*@*", irc.FormatHostmask("alice", "", ""))
}
