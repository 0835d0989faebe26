package relayer

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/R3E-Network/relayer_sdk/pkg/logger"
	"github.com/R3E-Network/relayer_sdk/pkg/relayer/relayertest"
)

// fakeClock records requested waits. Waits fire immediately unless blockWaits is set;
// deadlines only fire through fireDeadlines.
type fakeClock struct {
	mu         sync.Mutex
	now        time.Time
	waits      []time.Duration
	deadlines  []*fakeTimer
	blockWaits bool
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Unix(1_700_000_000, 0)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) NewTimer(d time.Duration) timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.waits = append(c.waits, d)
	t := &fakeTimer{ch: make(chan time.Time, 1), d: d}
	if !c.blockWaits {
		c.now = c.now.Add(d)
		t.ch <- c.now
	}
	return t
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{fn: f, d: d}
	c.deadlines = append(c.deadlines, t)
	return t
}

func (c *fakeClock) recordedWaits() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]time.Duration(nil), c.waits...)
}

// fireDeadlines runs every deadline callback that was not stopped.
func (c *fakeClock) fireDeadlines() {
	c.mu.Lock()
	pending := append([]*fakeTimer(nil), c.deadlines...)
	c.mu.Unlock()
	for _, t := range pending {
		if t.Stop() {
			t.fn()
		}
	}
}

func (c *fakeClock) allDeadlinesStopped() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, t := range c.deadlines {
		if !t.isStopped() {
			return false
		}
	}
	return true
}

type fakeTimer struct {
	mu      sync.Mutex
	ch      chan time.Time
	fn      func()
	d       time.Duration
	stopped bool
}

func (t *fakeTimer) C() <-chan time.Time { return t.ch }

func (t *fakeTimer) Stop() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	active := !t.stopped
	t.stopped = true
	return active
}

func (t *fakeTimer) isStopped() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stopped
}

func newTestClient(t *testing.T, srv *relayertest.Server, mutate ...func(*Config)) (*Client, *fakeClock) {
	t.Helper()
	cfg := Config{
		BaseURL:    srv.URL,
		HTTPClient: srv.Client(),
		Logger:     logger.NewDiscard("relayer-test"),
	}
	for _, m := range mutate {
		m(&cfg)
	}
	c, err := New(cfg)
	require.NoError(t, err)
	fc := newFakeClock()
	c.clock = fc
	return c, fc
}

func newTestServer(t *testing.T) *relayertest.Server {
	t.Helper()
	srv := relayertest.NewServer()
	t.Cleanup(srv.Close)
	return srv
}

// assertReleased checks nothing owned by r outlives termination.
func assertReleased[T any](t *testing.T, r *Request[T]) {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.phase != phaseTerminated {
		t.Errorf("phase = %v, want terminated", r.phase)
	}
	if r.waitTimer != nil {
		t.Error("wait timer still set")
	}
	if r.deadline != nil {
		t.Error("deadline timer still set")
	}
	if r.stopSignal != nil {
		t.Error("signal subscription still attached")
	}
	if r.cancelRun != nil {
		t.Error("run context not released")
	}
	if r.progress != nil {
		t.Error("progress dispatcher still open")
	}
}

const (
	acceptedProof = `{"accepted":true,"handles":["0x1111111111111111111111111111111111111111111111111111111111111111"],"signatures":["0xaabb"],"extraData":"0x00"}`
	rejectedProof = `{"accepted":false,"extraData":"0x00"}`
)

func testInputProofPayload() InputProofPayload {
	return InputProofPayload{
		ContractAddress: mustAddress("0x5FbDB2315678afecb367f032d93F642f64180aa3"),
		UserAddress:     mustAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"),
		Ciphertext:      []byte{0x01, 0x02, 0x03},
		ContractChainID: 31337,
	}
}

func mustAddress(s string) Address {
	var a Address
	if err := a.UnmarshalText([]byte(s)); err != nil {
		panic(err)
	}
	return a
}
