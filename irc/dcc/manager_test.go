package dcc

import (
	"net"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakePeer is a minimal Peer implementation for exercising Manager
// without pulling in package irc (which dcc must never import).
type fakePeer struct {
	nick string
	ip   net.IP

	mu       sync.Mutex
	notices  []string
	delivers []string
}

func newFakePeer(nick string) *fakePeer {
	return &fakePeer{nick: nick, ip: net.IPv4(127, 0, 0, 1)}
}

func (p *fakePeer) Nickname() string { return p.nick }
func (p *fakePeer) Prefix() string   { return p.nick + "!u@h" }
func (p *fakePeer) IP() net.IP       { return p.ip }
func (p *fakePeer) SendNotice(text string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.notices = append(p.notices, text)
}
func (p *fakePeer) Deliver(prefix, command string, params ...string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.delivers = append(p.delivers, command)
}

// fakeResolver resolves nicknames against a fixed peer set.
type fakeResolver struct {
	mu    sync.Mutex
	peers map[string]Peer
}

func newFakeResolver(peers ...*fakePeer) *fakeResolver {
	r := &fakeResolver{peers: make(map[string]Peer)}
	for _, p := range peers {
		r.peers[p.nick] = p
	}
	return r
}

func (r *fakeResolver) Resolve(nick string) (Peer, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.peers[nick]
	return p, ok
}

func testConfig(t *testing.T) Config {
	dir := t.TempDir()
	return Config{
		PortLow:       15000,
		PortHigh:      15003,
		BufferSize:    4096,
		FlushInterval: 65536,
		Timeout:       300 * time.Second,
		MaxFileSize:   10 * 1024 * 1024,
		MaxPerClient:  3,
		SendDir:       dir,
		ReceiveDir:    filepath.Join(dir, "received"),
	}
}

func writeTempFile(t *testing.T, dir, name string, size int) string {
	path := filepath.Join(dir, name)
	data := make([]byte, size)
	for i := range data {
		data[i] = byte(i % 251)
	}
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestAllocatePortWrapsAroundAndExhausts(t *testing.T) {
	cfg := testConfig(t)
	m := NewManager(cfg, newFakeResolver(), nil)

	seen := make(map[int]bool)
	for i := 0; i < 4; i++ {
		port, err := m.allocatePort()
		require.NoError(t, err)
		assert.False(t, seen[port], "port %d allocated twice", port)
		seen[port] = true
		m.byPort[port] = &Transfer{}
	}

	_, err := m.allocatePort()
	assert.ErrorIs(t, err, ErrPortsExhausted)

	// Freeing one port makes it available again.
	delete(m.byPort, cfg.PortLow+1)
	port, err := m.allocatePort()
	require.NoError(t, err)
	assert.Equal(t, cfg.PortLow+1, port)
}

func TestCreateSendTransferRejectsMissingOrOversizedFile(t *testing.T) {
	cfg := testConfig(t)
	alice := newFakePeer("alice")
	bob := newFakePeer("bob")
	m := NewManager(cfg, newFakeResolver(alice, bob), nil)

	_, err := m.CreateSendTransfer(alice, "bob", filepath.Join(cfg.SendDir, "nope.bin"))
	assert.ErrorIs(t, err, ErrFileInvalid)

	big := writeTempFile(t, cfg.SendDir, "big.bin", 32)
	cfg.MaxFileSize = 4
	m2 := NewManager(cfg, newFakeResolver(alice, bob), nil)
	_, err = m2.CreateSendTransfer(alice, "bob", big)
	assert.ErrorIs(t, err, ErrFileInvalid)
}

func TestCreateSendTransferUnknownReceiver(t *testing.T) {
	cfg := testConfig(t)
	alice := newFakePeer("alice")
	m := NewManager(cfg, newFakeResolver(alice), nil)

	path := writeTempFile(t, cfg.SendDir, "f.bin", 16)
	_, err := m.CreateSendTransfer(alice, "ghost", path)
	assert.Error(t, err)
}

func TestCreateSendTransferAnnouncesAndTracksPending(t *testing.T) {
	cfg := testConfig(t)
	alice := newFakePeer("alice")
	bob := newFakePeer("bob")
	var events []string
	var mu sync.Mutex
	m := NewManager(cfg, newFakeResolver(alice, bob), func(t *Transfer, ev string) {
		mu.Lock()
		events = append(events, ev)
		mu.Unlock()
	})

	path := writeTempFile(t, cfg.SendDir, "f.bin", 16)
	tr, err := m.CreateSendTransfer(alice, "bob", path)
	require.NoError(t, err)
	t.Cleanup(tr.Cleanup)
	assert.Equal(t, Pending, tr.Status())
	assert.Equal(t, Send, tr.Type)

	bob.mu.Lock()
	delivered := len(bob.delivers)
	bob.mu.Unlock()
	assert.Equal(t, 1, delivered, "receiver should get a CTCP DCC SEND announcement")

	list := m.ListTransfers("alice")
	require.Len(t, list, 1)
	assert.Equal(t, tr.ID, list[0].ID)
}

func TestCreateSendTransferEnforcesPerClientCap(t *testing.T) {
	cfg := testConfig(t)
	cfg.MaxPerClient = 1
	alice := newFakePeer("alice")
	bob := newFakePeer("bob")
	m := NewManager(cfg, newFakeResolver(alice, bob), nil)

	path := writeTempFile(t, cfg.SendDir, "f.bin", 16)
	tr, err := m.CreateSendTransfer(alice, "bob", path)
	require.NoError(t, err)
	t.Cleanup(tr.Cleanup)

	path2 := writeTempFile(t, cfg.SendDir, "g.bin", 16)
	_, err = m.CreateSendTransfer(alice, "bob", path2)
	assert.ErrorIs(t, err, ErrTooManyActive)
}

func TestRejectTransferRequiresReceiverAndPendingState(t *testing.T) {
	cfg := testConfig(t)
	alice := newFakePeer("alice")
	bob := newFakePeer("bob")
	eve := newFakePeer("eve")
	m := NewManager(cfg, newFakeResolver(alice, bob, eve), nil)

	path := writeTempFile(t, cfg.SendDir, "f.bin", 16)
	tr, err := m.CreateSendTransfer(alice, "bob", path)
	require.NoError(t, err)

	assert.ErrorIs(t, m.RejectTransfer(tr.ID, eve), ErrNotOwner)
	assert.ErrorIs(t, m.RejectTransfer("nope", bob), ErrNotFound)

	require.NoError(t, m.RejectTransfer(tr.ID, bob))
	assert.Equal(t, Rejected, tr.Status())

	assert.ErrorIs(t, m.RejectTransfer(tr.ID, bob), ErrWrongState)
}

func TestCancelTransferRequiresParty(t *testing.T) {
	cfg := testConfig(t)
	alice := newFakePeer("alice")
	bob := newFakePeer("bob")
	eve := newFakePeer("eve")
	m := NewManager(cfg, newFakeResolver(alice, bob, eve), nil)

	path := writeTempFile(t, cfg.SendDir, "f.bin", 16)
	tr, err := m.CreateSendTransfer(alice, "bob", path)
	require.NoError(t, err)

	assert.ErrorIs(t, m.CancelTransfer(tr.ID, eve), ErrNotOwner)
	require.NoError(t, m.CancelTransfer(tr.ID, alice))
	assert.Equal(t, Failed, tr.Status())
}

func TestRemoveClientTransfersFailsInFlight(t *testing.T) {
	cfg := testConfig(t)
	alice := newFakePeer("alice")
	bob := newFakePeer("bob")
	m := NewManager(cfg, newFakeResolver(alice, bob), nil)

	path := writeTempFile(t, cfg.SendDir, "f.bin", 16)
	tr, err := m.CreateSendTransfer(alice, "bob", path)
	require.NoError(t, err)

	m.RemoveClientTransfers("alice")
	assert.Equal(t, Failed, tr.Status())

	_, stillTracked := m.byPort[tr.Port]
	assert.False(t, stillTracked)
}

func TestStatusAggregatesCounters(t *testing.T) {
	cfg := testConfig(t)
	alice := newFakePeer("alice")
	bob := newFakePeer("bob")
	m := NewManager(cfg, newFakeResolver(alice, bob), nil)

	path := writeTempFile(t, cfg.SendDir, "f.bin", 16)
	tr, err := m.CreateSendTransfer(alice, "bob", path)
	require.NoError(t, err)

	active, pending, completed, failed, _ := m.Status()
	assert.Equal(t, 0, active)
	assert.Equal(t, 1, pending)
	assert.Equal(t, 0, completed)
	assert.Equal(t, 0, failed)

	require.NoError(t, m.RejectTransfer(tr.ID, bob))
	_, pending2, _, failed2, _ := m.Status()
	assert.Equal(t, 0, pending2)
	assert.Equal(t, 1, failed2)
}

func TestRequestPullNotifiesSender(t *testing.T) {
	cfg := testConfig(t)
	alice := newFakePeer("alice")
	bob := newFakePeer("bob")
	m := NewManager(cfg, newFakeResolver(alice, bob), nil)

	require.NoError(t, m.RequestPull(bob, "alice", "report.pdf"))
	alice.mu.Lock()
	defer alice.mu.Unlock()
	require.Len(t, alice.notices, 1)
	assert.Contains(t, alice.notices[0], "report.pdf")
}
