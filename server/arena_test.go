package server

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"vagabond/game"
)

func attackEntity(m game.ServerGameMatch, slot, target int) game.ServerEntity {
	e := m.ServerEntities[slot]
	e.EntityActions.Attacking = true
	e.EntityActions.DamageCheck = true
	e.AttackBound = m.ServerEntities[target].Bound
	return e
}

func TestArenaResolveReturnsUpdatedSnapshot(t *testing.T) {
	useTestLogger(t)
	a, metrics := startArena(t, ArenaConfig{RoundTicks: 60}, nil)
	ctx := context.Background()

	cur, err := a.Snapshot(ctx)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	got, err := a.Resolve(ctx, 0, attackEntity(cur, 0, 1))
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if got.ServerEntities[1].HP != 4 {
		t.Fatalf("defender hp = %d, want 4", got.ServerEntities[1].HP)
	}
	if got.ServerEntities[0].EntityActions.DamageCheck {
		t.Fatalf("damage_check not consumed in snapshot")
	}
	if atomic.LoadInt64(&metrics.HitsLanded) != 1 || atomic.LoadInt64(&metrics.Resolutions) != 1 {
		t.Fatalf("metrics = %v", metrics.Snapshot())
	}
}

func TestArenaClockAdvancesFromAnySlot(t *testing.T) {
	useTestLogger(t)
	clk := newFakeClock()
	a, _ := startArena(t, ArenaConfig{RoundTicks: 60, TickDuration: time.Second, ClockSlot: -1, Now: clk.Now}, nil)
	ctx := context.Background()
	cur, _ := a.Snapshot(ctx)

	clk.Advance(10 * time.Second)
	got, err := a.Resolve(ctx, 0, cur.ServerEntities[0])
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if got.Clock.Current != 50 {
		t.Fatalf("clock after slot 0 pass = %d, want 50", got.Clock.Current)
	}

	clk.Advance(5 * time.Second)
	got, _ = a.Resolve(ctx, 1, cur.ServerEntities[1])
	if got.Clock.Current != 45 {
		t.Fatalf("clock after slot 1 pass = %d, want 45", got.Clock.Current)
	}
}

func TestArenaLegacyClockSlot(t *testing.T) {
	useTestLogger(t)
	clk := newFakeClock()
	a, _ := startArena(t, ArenaConfig{RoundTicks: 60, TickDuration: time.Second, ClockSlot: 1, Now: clk.Now}, nil)
	ctx := context.Background()
	cur, _ := a.Snapshot(ctx)

	clk.Advance(10 * time.Second)
	got, _ := a.Resolve(ctx, 0, cur.ServerEntities[0])
	if got.Clock.Current != 60 {
		t.Fatalf("slot 0 pass advanced the clock to %d", got.Clock.Current)
	}
	got, _ = a.Resolve(ctx, 1, cur.ServerEntities[1])
	if got.Clock.Current != 50 {
		t.Fatalf("clock after slot 1 pass = %d, want 50", got.Clock.Current)
	}
}

func TestArenaTimeoutEndsMatch(t *testing.T) {
	useTestLogger(t)
	clk := newFakeClock()
	a, metrics := startArena(t, ArenaConfig{RoundTicks: 60, TickDuration: time.Second, ClockSlot: -1, Now: clk.Now}, nil)
	ctx := context.Background()
	cur, _ := a.Snapshot(ctx)

	clk.Advance(61 * time.Second)
	got, _ := a.Resolve(ctx, 0, cur.ServerEntities[0])
	if got.Clock.Current != 0 || !got.MatchStatus.IsInProgress() {
		t.Fatalf("after expiry pass: clock=%d status=%s", got.Clock.Current, got.MatchStatus)
	}
	got, _ = a.Resolve(ctx, 1, cur.ServerEntities[1])
	if got.MatchStatus != game.Over(0) {
		t.Fatalf("status = %s, want Over(0)", got.MatchStatus)
	}
	if atomic.LoadInt64(&metrics.MatchesFinished) != 1 {
		t.Fatalf("matches finished = %d", metrics.MatchesFinished)
	}
}

func TestArenaRestartResetsClockAndFlags(t *testing.T) {
	useTestLogger(t)
	clk := newFakeClock()
	a, _ := startArena(t, ArenaConfig{RoundTicks: 60, TickDuration: time.Second, ClockSlot: -1, Now: clk.Now}, nil)
	ctx := context.Background()

	clk.Advance(30 * time.Second)
	cur, _ := a.Snapshot(ctx)
	if _, err := a.Resolve(ctx, 0, cur.ServerEntities[0]); err != nil {
		t.Fatalf("resolve: %v", err)
	}

	m, err := a.Restart(ctx)
	if err != nil {
		t.Fatalf("restart: %v", err)
	}
	if m.Clock.Current != 60 || !m.ServerEntities[0].Reset || !m.ServerEntities[1].Reset {
		t.Fatalf("after restart: clock=%d reset=%v/%v", m.Clock.Current, m.ServerEntities[0].Reset, m.ServerEntities[1].Reset)
	}

	// 客户端看到一次 reset=true 后标志清除
	got, _ := a.Resolve(ctx, 0, cur.ServerEntities[0])
	if !got.ServerEntities[0].Reset {
		t.Fatalf("first snapshot after restart should carry reset for slot 0")
	}
	if got.Clock.Current != 60 {
		t.Fatalf("round timer not restarted: clock=%d", got.Clock.Current)
	}
	got, _ = a.Resolve(ctx, 0, got.ServerEntities[0])
	if got.ServerEntities[0].Reset {
		t.Fatalf("reset flag should be cleared after it was delivered")
	}
	if !got.ServerEntities[1].Reset {
		t.Fatalf("slot 1 has not been served yet; its reset flag must remain")
	}
}

func TestArenaRejectsBadSlot(t *testing.T) {
	useTestLogger(t)
	a, _ := startArena(t, ArenaConfig{RoundTicks: 60}, nil)
	if _, err := a.Resolve(context.Background(), 5, game.ServerEntity{}); !errors.Is(err, game.ErrBadSlot) {
		t.Fatalf("err = %v, want ErrBadSlot", err)
	}
}

func TestArenaConcurrentResolvesAreSerialized(t *testing.T) {
	useTestLogger(t)
	a, metrics := startArena(t, ArenaConfig{RoundTicks: 60, TickDuration: time.Hour}, nil)
	ctx := context.Background()
	cur, _ := a.Snapshot(ctx)

	var wg sync.WaitGroup
	for slot := 0; slot < game.Slots; slot++ {
		wg.Add(1)
		go func(slot int) {
			defer wg.Done()
			e := attackEntity(cur, slot, 1-slot)
			for i := 0; i < 50; i++ {
				if _, err := a.Resolve(ctx, slot, e); err != nil {
					t.Errorf("resolve slot %d: %v", slot, err)
					return
				}
			}
		}(slot)
	}
	wg.Wait()

	final, _ := a.Snapshot(ctx)
	lost := int64(2*game.MaxHP) - int64(final.ServerEntities[0].HP) - int64(final.ServerEntities[1].HP)
	if hits := atomic.LoadInt64(&metrics.HitsLanded); hits != lost {
		t.Fatalf("hits landed %d but hp lost %d", hits, lost)
	}
	if final.ServerEntities[0].HP > 0 && final.ServerEntities[1].HP > 0 {
		t.Fatalf("expected someone to be defeated: hp=%d/%d", final.ServerEntities[0].HP, final.ServerEntities[1].HP)
	}
	if final.MatchStatus.IsInProgress() {
		t.Fatalf("match should be over, status %s", final.MatchStatus)
	}
}

func TestArenaClosedAfterRunExits(t *testing.T) {
	useTestLogger(t)
	a := NewArena(ArenaConfig{RoundTicks: 60}, nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	go a.Run(ctx)
	cancel()
	<-a.Done()

	if _, err := a.Snapshot(context.Background()); !errors.Is(err, ErrArenaClosed) {
		t.Fatalf("err = %v, want ErrArenaClosed", err)
	}
}
