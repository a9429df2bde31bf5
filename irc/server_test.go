package irc_test

import (
	"bufio"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/presbrey/ircd/irc"
	"github.com/presbrey/ircd/irc/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testClient is a minimal line-oriented IRC client, grounded on the
// teacher's irc_test.go IRCClient helper.
type testClient struct {
	conn   net.Conn
	reader *bufio.Reader
}

func dialTestClient(t *testing.T, addr string) *testClient {
	conn, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	return &testClient{conn: conn, reader: bufio.NewReader(conn)}
}

func (c *testClient) send(line string) {
	_, _ = c.conn.Write([]byte(line + "\r\n"))
}

func (c *testClient) expect(t *testing.T, contains string, timeout time.Duration) string {
	_ = c.conn.SetReadDeadline(time.Now().Add(timeout))
	defer c.conn.SetReadDeadline(time.Time{})
	for {
		line, err := c.reader.ReadString('\n')
		if err != nil {
			t.Fatalf("expected line containing %q, got error: %v", contains, err)
		}
		line = strings.TrimRight(line, "\r\n")
		if strings.Contains(line, contains) {
			return line
		}
	}
}

func startTestServer(t *testing.T) (addr string, srv *irc.Server) {
	cfg := config.Default()
	srv = irc.NewServer("letmein", cfg)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() { _ = srv.Serve(ln) }()
	t.Cleanup(srv.Stop)
	return ln.Addr().String(), srv
}

func register(t *testing.T, c *testClient, nick string) {
	c.send("PASS letmein")
	c.send("NICK " + nick)
	c.send("USER " + nick + " 0 * :" + nick)
	c.expect(t, " 001 ", time.Second)
}

func TestRegistrationHandshake(t *testing.T) {
	addr, _ := startTestServer(t)
	c := dialTestClient(t, addr)
	defer c.conn.Close()
	register(t, c, "alice")
}

func TestNickCollision(t *testing.T) {
	addr, _ := startTestServer(t)

	c1 := dialTestClient(t, addr)
	defer c1.conn.Close()
	register(t, c1, "alice")

	c2 := dialTestClient(t, addr)
	defer c2.conn.Close()
	c2.send("PASS letmein")
	c2.send("NICK alice")
	c2.expect(t, " 433 ", time.Second)
}

func TestJoinModeKeyScenario(t *testing.T) {
	addr, _ := startTestServer(t)

	alice := dialTestClient(t, addr)
	defer alice.conn.Close()
	register(t, alice, "alice")

	alice.send("JOIN #room")
	alice.expect(t, "JOIN #room", time.Second)
	alice.expect(t, "@alice", time.Second)

	alice.send("MODE #room +k secret")

	bob := dialTestClient(t, addr)
	defer bob.conn.Close()
	register(t, bob, "bob")

	bob.send("JOIN #room")
	bob.expect(t, " 475 ", time.Second)

	bob.send("JOIN #room secret")
	alice.expect(t, "JOIN #room", time.Second)
}

func TestTopicRestrictedToOperator(t *testing.T) {
	addr, _ := startTestServer(t)

	alice := dialTestClient(t, addr)
	defer alice.conn.Close()
	register(t, alice, "alice")
	alice.send("JOIN #room")
	alice.expect(t, "JOIN #room", time.Second)

	bob := dialTestClient(t, addr)
	defer bob.conn.Close()
	register(t, bob, "bob")
	bob.send("JOIN #room")
	bob.expect(t, "JOIN #room", time.Second)

	bob.send("TOPIC #room :hello")
	bob.expect(t, " 482 ", time.Second)

	alice.send("MODE #room +o bob")
	bob.expect(t, "MODE #room +o bob", time.Second)

	bob.send("TOPIC #room :hello")
	alice.expect(t, "TOPIC #room :hello", time.Second)
}

func TestPrivmsgExcludesSender(t *testing.T) {
	addr, _ := startTestServer(t)

	alice := dialTestClient(t, addr)
	defer alice.conn.Close()
	register(t, alice, "alice")
	alice.send("JOIN #room")
	alice.expect(t, "JOIN #room", time.Second)

	bob := dialTestClient(t, addr)
	defer bob.conn.Close()
	register(t, bob, "bob")
	bob.send("JOIN #room")
	bob.expect(t, "JOIN #room", time.Second)
	alice.expect(t, "JOIN #room", time.Second)

	alice.send("PRIVMSG #room :hi")
	bob.expect(t, "PRIVMSG #room :hi", time.Second)

	_ = alice.conn.SetReadDeadline(time.Now().Add(150 * time.Millisecond))
	line, err := alice.reader.ReadString('\n')
	alice.conn.SetReadDeadline(time.Time{})
	if err == nil {
		assert.NotContains(t, line, "PRIVMSG #room :hi")
	}
}

func TestBotJankenReplies(t *testing.T) {
	addr, _ := startTestServer(t)

	alice := dialTestClient(t, addr)
	defer alice.conn.Close()
	register(t, alice, "alice")

	alice.send("PRIVMSG janken :rock")
	alice.expect(t, "janken!", time.Second)
}
