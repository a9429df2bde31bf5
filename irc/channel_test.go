package irc

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSession(nick string) (*Session, net.Conn) {
	server, client := net.Pipe()
	sess := newSession(1, nil, server)
	sess.setNickname(nick)
	return sess, client
}

func TestChannelAddMemberFirstJoinerIsOperator(t *testing.T) {
	ch := NewChannel("#room")
	alice, _ := newTestSession("alice")

	require.NoError(t, ch.AddMember(alice, ""))
	assert.True(t, ch.IsMember("alice"))
	assert.True(t, ch.IsOperator("alice"))
	assert.Equal(t, 1, ch.MemberCount())
}

func TestChannelAddMemberIsIdempotent(t *testing.T) {
	ch := NewChannel("#room")
	alice, _ := newTestSession("alice")

	require.NoError(t, ch.AddMember(alice, ""))
	require.NoError(t, ch.AddMember(alice, ""))
	assert.Equal(t, 1, ch.MemberCount())
}

func TestChannelKeyEnforced(t *testing.T) {
	ch := NewChannel("#room")
	ch.SetKey("secret")

	bob, _ := newTestSession("bob")
	assert.ErrorIs(t, ch.AddMember(bob, ""), ErrKeyRequired)
	assert.ErrorIs(t, ch.AddMember(bob, "wrong"), ErrKeyRequired)
	assert.NoError(t, ch.AddMember(bob, "secret"))
}

func TestChannelInviteOnlyEnforced(t *testing.T) {
	ch := NewChannel("#room")
	ch.SetInviteOnly(true)

	bob, _ := newTestSession("bob")
	assert.ErrorIs(t, ch.AddMember(bob, ""), ErrInviteOnly)

	ch.Invite("bob")
	assert.NoError(t, ch.AddMember(bob, ""))
	assert.False(t, ch.IsInvited("bob"))
}

func TestChannelLimitEnforced(t *testing.T) {
	ch := NewChannel("#room")
	ch.SetLimit(1)

	alice, _ := newTestSession("alice")
	bob, _ := newTestSession("bob")

	require.NoError(t, ch.AddMember(alice, ""))
	assert.ErrorIs(t, ch.AddMember(bob, ""), ErrChannelFull)
}

func TestChannelRemoveMember(t *testing.T) {
	ch := NewChannel("#room")
	alice, _ := newTestSession("alice")
	bob, _ := newTestSession("bob")

	require.NoError(t, ch.AddMember(alice, ""))
	require.NoError(t, ch.AddMember(bob, ""))

	remaining := ch.RemoveMember("alice")
	assert.Equal(t, 1, remaining)
	assert.False(t, ch.IsMember("alice"))
	assert.False(t, ch.IsOperator("alice"))
}

func TestChannelRenameMemberPreservesOperator(t *testing.T) {
	ch := NewChannel("#room")
	alice, _ := newTestSession("alice")
	require.NoError(t, ch.AddMember(alice, ""))
	require.True(t, ch.IsOperator("alice"))

	ch.RenameMember("alice", "alicia", alice)
	assert.False(t, ch.IsMember("alice"))
	assert.True(t, ch.IsMember("alicia"))
	assert.True(t, ch.IsOperator("alicia"))
}

func TestChannelModeString(t *testing.T) {
	ch := NewChannel("#room")
	assert.Equal(t, "+t", ch.ModeString())

	ch.SetInviteOnly(true)
	ch.SetTopicRestricted(true)
	ch.SetKey("k")
	ch.SetLimit(5)
	assert.Equal(t, "+itkl", ch.ModeString())
}

func TestUserModeFieldsDefaultFalse(t *testing.T) {
	var m UserMode
	assert.False(t, m.Away)
	assert.False(t, m.Operator)
}
