package dcc

import (
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"
)

// TransferType distinguishes which side of the pair this server plays.
type TransferType int

const (
	Send TransferType = iota
	Get
)

func (t TransferType) String() string {
	if t == Send {
		return "SEND"
	}
	return "GET"
}

// Status is the DCC transfer lifecycle: Pending -> Active -> one of
// Completed/Failed, or Pending -> Rejected.
type Status int

const (
	Pending Status = iota
	Active
	Completed
	Failed
	Rejected
)

func (s Status) String() string {
	switch s {
	case Pending:
		return "pending"
	case Active:
		return "active"
	case Completed:
		return "completed"
	case Failed:
		return "failed"
	case Rejected:
		return "rejected"
	default:
		return "unknown"
	}
}

func (s Status) Terminal() bool {
	return s == Completed || s == Failed || s == Rejected
}

// Transfer is a single peer-to-peer stream, grounded on
// original_source/include/DCCTransfer.hpp and DCCTransfer.cpp: an 8 KiB
// chunk size, a 64 KiB flush interval on the receive side, and a 4-byte
// big-endian acknowledgment written back after every received chunk.
type Transfer struct {
	ID string

	Sender   Peer
	Receiver Peer

	Filename string
	Filepath string
	Filesize int64

	bytesTransferred int64 // atomic

	Type TransferType

	mu             sync.Mutex
	status         Status
	lastProgressPct int

	listener net.Listener
	data     net.Conn
	Port     int
	SenderIP net.IP

	StartTime    time.Time
	lastActivity int64 // unix nanos, atomic

	bufferSize    int
	flushInterval int64
	timeout       time.Duration

	onNotify func(t *Transfer, event string)
	done      chan struct{}
}

func (t *Transfer) Status() Status {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.status
}

func (t *Transfer) setStatus(s Status) {
	t.mu.Lock()
	t.status = s
	t.mu.Unlock()
}

func (t *Transfer) BytesTransferred() int64 {
	return atomic.LoadInt64(&t.bytesTransferred)
}

func (t *Transfer) touch() {
	atomic.StoreInt64(&t.lastActivity, time.Now().UnixNano())
}

// IsTimeout reports whether the transfer has made no progress for its
// configured timeout (default 300s).
func (t *Transfer) IsTimeout() bool {
	if t.Status().Terminal() {
		return false
	}
	last := atomic.LoadInt64(&t.lastActivity)
	if last == 0 {
		return false
	}
	return time.Since(time.Unix(0, last)) > t.timeout
}

func (t *Transfer) Progress() float64 {
	if t.Filesize <= 0 {
		return 0
	}
	return float64(t.BytesTransferred()) / float64(t.Filesize) * 100
}

func (t *Transfer) notify(event string) {
	if t.onNotify != nil {
		t.onNotify(t, event)
	}
}

func (t *Transfer) maybeNotifyProgress() {
	pct := int(t.Progress())
	t.mu.Lock()
	last := t.lastProgressPct
	if pct >= last+10 {
		t.lastProgressPct = pct - (pct % 10)
	}
	crossed := t.lastProgressPct > last
	t.mu.Unlock()
	if crossed {
		t.notify("progress")
	}
}

// startListen opens the sender-side listening socket on Port and spawns
// a goroutine that accepts the single expected connection, then streams
// the file to it. Called by Manager.CreateSendTransfer.
func (t *Transfer) startListen() error {
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", t.Port))
	if err != nil {
		return err
	}
	t.listener = ln
	t.touch()
	go t.acceptAndSend()
	return nil
}

func (t *Transfer) acceptAndSend() {
	conn, err := t.listener.Accept()
	_ = t.listener.Close()
	if err != nil {
		t.fail("accept: " + err.Error())
		return
	}
	t.mu.Lock()
	t.data = conn
	t.status = Active
	t.StartTime = time.Now()
	t.mu.Unlock()
	t.touch()
	t.notify("accepted")
	t.sendFile()
}

func (t *Transfer) sendFile() {
	f, err := os.Open(t.Filepath)
	if err != nil {
		t.fail("open: " + err.Error())
		return
	}
	defer f.Close()
	defer t.data.Close()

	buf := make([]byte, t.bufferSize)
	for {
		n, rerr := f.Read(buf)
		if n > 0 {
			if _, werr := t.data.Write(buf[:n]); werr != nil {
				t.fail("send: " + werr.Error())
				return
			}
			atomic.AddInt64(&t.bytesTransferred, int64(n))
			t.touch()
			t.maybeNotifyProgress()
		}
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			t.fail("read: " + rerr.Error())
			return
		}
		if t.BytesTransferred() >= t.Filesize {
			break
		}
	}
	t.complete()
}

// startReceive connects out to the sender's announced address and
// streams the inbound file to disk, acking each chunk as it arrives.
func (t *Transfer) startReceive(addr string) error {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return err
	}
	t.mu.Lock()
	t.data = conn
	t.status = Active
	t.StartTime = time.Now()
	t.mu.Unlock()
	t.touch()
	go t.receiveFile()
	return nil
}

func (t *Transfer) receiveFile() {
	if err := os.MkdirAll(filepath.Dir(t.Filepath), 0o755); err != nil {
		t.fail("mkdir: " + err.Error())
		return
	}
	f, err := os.Create(t.Filepath)
	if err != nil {
		t.fail("create: " + err.Error())
		return
	}
	defer f.Close()
	defer t.data.Close()

	buf := make([]byte, t.bufferSize)
	var sinceFlush int64
	for {
		n, rerr := t.data.Read(buf)
		if n > 0 {
			if _, werr := f.Write(buf[:n]); werr != nil {
				t.fail("write: " + werr.Error())
				return
			}
			atomic.AddInt64(&t.bytesTransferred, int64(n))
			sinceFlush += int64(n)
			t.touch()

			if sinceFlush >= t.flushInterval {
				_ = f.Sync()
				sinceFlush = 0
			}

			var ack [4]byte
			binary.BigEndian.PutUint32(ack[:], uint32(t.BytesTransferred()))
			if _, werr := t.data.Write(ack[:]); werr != nil {
				t.fail("ack: " + werr.Error())
				return
			}
			t.maybeNotifyProgress()
		}
		if t.BytesTransferred() >= t.Filesize {
			break
		}
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			t.fail("recv: " + rerr.Error())
			return
		}
	}
	_ = f.Sync()
	if t.BytesTransferred() == t.Filesize {
		t.complete()
	} else {
		t.fail("peer closed early")
	}
}

func (t *Transfer) complete() {
	t.setStatus(Completed)
	t.notify("completed")
	t.closeDone()
}

// fail moves a non-terminal transfer to Failed; a transfer that already
// reached a terminal state keeps it and no notice is sent.
func (t *Transfer) fail(reason string) {
	t.mu.Lock()
	if t.status.Terminal() {
		t.mu.Unlock()
		return
	}
	t.status = Failed
	t.mu.Unlock()
	t.notify("failed: " + reason)
	t.closeDone()
}

func (t *Transfer) closeDone() {
	if t.listener != nil {
		_ = t.listener.Close()
	}
	if t.data != nil {
		_ = t.data.Close()
	}
}

// Cleanup releases sockets and file handles without changing status; it
// is called for explicit REJECT/CANCEL, which set the status
// themselves.
func (t *Transfer) Cleanup() {
	t.closeDone()
}
