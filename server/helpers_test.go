package server

import (
	"context"
	"net"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"vagabond/protocol"
)

func useTestLogger(t *testing.T) {
	t.Helper()
	prev := Log
	Log = zaptest.NewLogger(t).Sugar()
	t.Cleanup(func() { Log = prev })
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func startArena(t *testing.T, cfg ArenaConfig, hub *Hub) (*Arena, *Metrics) {
	t.Helper()
	metrics := &Metrics{}
	a := NewArena(cfg, metrics, hub)
	ctx, cancel := context.WithCancel(context.Background())
	go a.Run(ctx)
	t.Cleanup(func() {
		cancel()
		<-a.Done()
	})
	return a, metrics
}

type testServer struct {
	addr    string
	arena   *Arena
	metrics *Metrics
	slots   *SlotManager
	cancel  context.CancelFunc
	errc    chan error

	once    sync.Once
	stopErr error
}

func startServer(t *testing.T, codec protocol.Codec) *testServer {
	t.Helper()
	useTestLogger(t)
	arena, metrics := startArena(t, ArenaConfig{RoundTicks: 60, TickDuration: time.Hour, ClockSlot: -1}, nil)
	slots := NewSlotManager()
	srv := NewServer(arena, slots, metrics, SessionOptions{Codec: codec, WriteTimeout: time.Second})

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	ts := &testServer{addr: ln.Addr().String(), arena: arena, metrics: metrics, slots: slots, cancel: cancel, errc: make(chan error, 1)}
	go func() { ts.errc <- srv.Serve(ctx, ln) }()
	t.Cleanup(ts.stop)
	return ts
}

// stop 可重复调用，Serve 的返回值存入 stopErr
func (ts *testServer) stop() {
	ts.once.Do(func() {
		ts.cancel()
		select {
		case ts.stopErr = <-ts.errc:
		case <-time.After(5 * time.Second):
			ts.stopErr = context.DeadlineExceeded
		}
	})
}

func dial(t *testing.T, addr string, codec protocol.Codec) *protocol.Client {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	c, err := protocol.Dial(ctx, addr, codec)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}
