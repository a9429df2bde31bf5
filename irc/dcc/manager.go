package dcc

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Config mirrors the tunables original_source/include/DCCManager.hpp
// hard-codes as class constants (MIN_DCC_PORT/MAX_DCC_PORT/
// TRANSFER_TIMEOUT/MAX_FILE_SIZE and the buffer/flush sizes in
// DCCTransfer.hpp); here they are configurable via the ambient config
// layer instead of compiled-in constants.
type Config struct {
	PortLow       int
	PortHigh      int
	BufferSize    int
	FlushInterval int64
	Timeout       time.Duration
	MaxFileSize   int64
	MaxPerClient  int
	SendDir       string
	ReceiveDir    string
}

// DefaultConfig matches the original source's compiled-in constants.
func DefaultConfig() Config {
	return Config{
		PortLow:       5000,
		PortHigh:      5100,
		BufferSize:    8192,
		FlushInterval: 65536,
		Timeout:       300 * time.Second,
		MaxFileSize:   100 * 1024 * 1024,
		MaxPerClient:  3,
		SendDir:       "dcc_transfers",
		ReceiveDir:    filepath.Join("dcc_transfers", "received"),
	}
}

var (
	ErrFileInvalid    = errors.New("file missing, not regular, empty, or too large")
	ErrTooManyActive  = errors.New("too many concurrent transfers for this client")
	ErrPortsExhausted = errors.New("no DCC ports available")
	ErrNotFound       = errors.New("no such transfer")
	ErrNotOwner       = errors.New("not a party to this transfer")
	ErrWrongState     = errors.New("transfer is not in the required state")
)

// Manager is the DCC lifecycle manager: transfer lifecycle, port pool,
// and the id/socket/pending-nickname indices from
// original_source/src/DCCManager.cpp.
type Manager struct {
	mu sync.Mutex

	cfg      Config
	resolver Resolver

	onNotify func(t *Transfer, event string)

	transfers map[string]*Transfer
	byPort    map[int]*Transfer
	pending   map[string][]string // receiver nickname -> pending transfer ids
	cursor    int
}

// NewManager constructs a Manager. onNotify is invoked for every
// lifecycle transition and 10%-progress boundary; the caller (package
// irc) is responsible for turning that into NOTICE lines for both
// parties.
func NewManager(cfg Config, resolver Resolver, onNotify func(t *Transfer, event string)) *Manager {
	return &Manager{
		cfg:       cfg,
		resolver:  resolver,
		onNotify:  onNotify,
		transfers: make(map[string]*Transfer),
		byPort:    make(map[int]*Transfer),
		pending:   make(map[string][]string),
	}
}

func (m *Manager) countActive(nick string) int {
	n := 0
	for _, t := range m.transfers {
		if t.Status().Terminal() {
			continue
		}
		if (t.Sender != nil && t.Sender.Nickname() == nick) || (t.Receiver != nil && t.Receiver.Nickname() == nick) {
			n++
		}
	}
	return n
}

// allocatePort implements the cursor-with-wraparound allocator from
// the original DCCManager::getAvailablePort. A port held only by a
// transfer in a terminal state counts as free.
func (m *Manager) allocatePort() (int, error) {
	span := m.cfg.PortHigh - m.cfg.PortLow + 1
	for i := 0; i < span; i++ {
		port := m.cfg.PortLow + ((m.cursor + i) % span)
		if holder, inUse := m.byPort[port]; !inUse || holder.Status().Terminal() {
			m.cursor = (m.cursor + i + 1) % span
			return port, nil
		}
	}
	return 0, ErrPortsExhausted
}

// CreateSendTransfer implements DCC SEND: stats the file, allocates a
// port, opens a listener, and announces the offer to the receiver as a
// CTCP-framed PRIVMSG.
func (m *Manager) CreateSendTransfer(sender Peer, receiverNick, path string) (*Transfer, error) {
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() || info.Size() == 0 || info.Size() > m.cfg.MaxFileSize {
		return nil, ErrFileInvalid
	}

	receiver, ok := m.resolver.Resolve(receiverNick)
	if !ok {
		return nil, fmt.Errorf("no such nick: %s", receiverNick)
	}

	m.mu.Lock()
	if m.countActive(sender.Nickname()) >= m.cfg.MaxPerClient {
		m.mu.Unlock()
		return nil, ErrTooManyActive
	}
	port, err := m.allocatePort()
	if err != nil {
		m.mu.Unlock()
		return nil, err
	}
	id := uuid.NewString()
	t := &Transfer{
		ID:            id,
		Sender:        sender,
		Receiver:      receiver,
		Filename:      filepath.Base(path),
		Filepath:      path,
		Filesize:      info.Size(),
		Type:          Send,
		Port:          port,
		SenderIP:      sender.IP(),
		bufferSize:    m.cfg.BufferSize,
		flushInterval: m.cfg.FlushInterval,
		timeout:       m.cfg.Timeout,
		onNotify:      m.onNotify,
	}
	t.setStatus(Pending)
	m.transfers[id] = t
	m.byPort[port] = t
	m.pending[receiverNick] = append(m.pending[receiverNick], id)
	m.mu.Unlock()

	if err := t.startListen(); err != nil {
		m.mu.Lock()
		delete(m.transfers, id)
		delete(m.byPort, port)
		m.mu.Unlock()
		return nil, err
	}

	ip := ipToUint32String(t.SenderIP)
	ctcp := fmt.Sprintf("\x01DCC SEND %s %s %d %d %s\x01", t.Filename, ip, t.Port, t.Filesize, t.ID)
	receiver.Deliver(sender.Prefix(), "PRIVMSG", receiverNick, ctcp)

	return t, nil
}

// AcceptTransfer implements DCC GET/ACCEPT: the receiver connects out
// to the sender's announced listening socket.
func (m *Manager) AcceptTransfer(id string, receiver Peer) (*Transfer, error) {
	m.mu.Lock()
	t, ok := m.transfers[id]
	m.mu.Unlock()
	if !ok {
		return nil, ErrNotFound
	}
	if t.Receiver == nil || t.Receiver.Nickname() != receiver.Nickname() {
		return nil, ErrNotOwner
	}
	if t.Status() != Pending {
		return nil, ErrWrongState
	}

	destPath := filepath.Join(m.cfg.ReceiveDir, t.Filename)
	t.Filepath = destPath
	addr := fmt.Sprintf("%s:%d", t.SenderIP.String(), t.Port)
	if err := t.startReceive(addr); err != nil {
		t.fail("connect: " + err.Error())
		return nil, err
	}
	if t.onNotify != nil {
		t.onNotify(t, "accepted")
	}
	return t, nil
}

// RequestPull implements the "GET <nick> <filename>" pull form: there is
// no existing PENDING transfer yet, so a pull request is recorded and
// handed to the sender as a request to initiate SEND. Grounded on
// original_source's addPendingGetRequest/checkAndAutoAcceptGetRequest.
func (m *Manager) RequestPull(requester Peer, senderNick, filename string) error {
	sender, ok := m.resolver.Resolve(senderNick)
	if !ok {
		return fmt.Errorf("no such nick: %s", senderNick)
	}
	sender.SendNotice(fmt.Sprintf("%s is requesting file %s via DCC GET; use DCC SEND %s <path> to send it", requester.Nickname(), filename, requester.Nickname()))
	return nil
}

func (m *Manager) RejectTransfer(id string, by Peer) error {
	m.mu.Lock()
	t, ok := m.transfers[id]
	m.mu.Unlock()
	if !ok {
		return ErrNotFound
	}
	if t.Receiver == nil || t.Receiver.Nickname() != by.Nickname() {
		return ErrNotOwner
	}
	if t.Status() != Pending {
		return ErrWrongState
	}
	t.setStatus(Rejected)
	t.Cleanup()
	m.release(t)
	if t.onNotify != nil {
		t.onNotify(t, "rejected")
	}
	return nil
}

func (m *Manager) CancelTransfer(id string, by Peer) error {
	m.mu.Lock()
	t, ok := m.transfers[id]
	m.mu.Unlock()
	if !ok {
		return ErrNotFound
	}
	isParty := (t.Sender != nil && t.Sender.Nickname() == by.Nickname()) ||
		(t.Receiver != nil && t.Receiver.Nickname() == by.Nickname())
	if !isParty {
		return ErrNotOwner
	}
	t.setStatus(Failed)
	t.Cleanup()
	m.release(t)
	if t.onNotify != nil {
		t.onNotify(t, "cancelled")
	}
	return nil
}

func (m *Manager) release(t *Transfer) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.byPort, t.Port)
}

func (m *Manager) Get(id string) (*Transfer, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.transfers[id]
	return t, ok
}

// ListTransfers returns every transfer the named peer participates in.
func (m *Manager) ListTransfers(nick string) []*Transfer {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*Transfer
	for _, t := range m.transfers {
		if (t.Sender != nil && t.Sender.Nickname() == nick) || (t.Receiver != nil && t.Receiver.Nickname() == nick) {
			out = append(out, t)
		}
	}
	return out
}

// Status reports the aggregate counters DCC STATUS and the operational
// HTTP surface both consume.
func (m *Manager) Status() (active, pending, completed, failed int, totalBytes int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.transfers {
		totalBytes += t.BytesTransferred()
		switch t.Status() {
		case Active:
			active++
		case Pending:
			pending++
		case Completed:
			completed++
		case Failed, Rejected:
			failed++
		}
	}
	return
}

// RemoveClientTransfers cancels and releases every transfer a
// disconnecting client participates in, mirroring the session removal
// discipline in Server.doRemoveSession.
func (m *Manager) RemoveClientTransfers(nick string) {
	m.mu.Lock()
	var victims []*Transfer
	for _, t := range m.transfers {
		if t.Status().Terminal() {
			continue
		}
		if (t.Sender != nil && t.Sender.Nickname() == nick) || (t.Receiver != nil && t.Receiver.Nickname() == nick) {
			victims = append(victims, t)
		}
	}
	m.mu.Unlock()
	for _, t := range victims {
		t.fail("peer disconnected")
		m.release(t)
	}
}

// CheckTimeouts marks any transfer with no progress for the configured
// timeout as Failed; called periodically by the maintenance loop.
func (m *Manager) CheckTimeouts() {
	m.mu.Lock()
	var victims []*Transfer
	for _, t := range m.transfers {
		if t.IsTimeout() {
			victims = append(victims, t)
		}
	}
	m.mu.Unlock()
	for _, t := range victims {
		t.fail("timeout")
		m.release(t)
	}
}
