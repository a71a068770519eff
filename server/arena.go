package server

import (
	"context"
	"errors"
	"time"

	"vagabond/game"
)

var ErrArenaClosed = errors.New("arena closed")

// ArenaConfig 比赛时钟相关参数
type ArenaConfig struct {
	RoundTicks   uint16
	TickDuration time.Duration
	ClockSlot    int // -1：任何结算与服务端 tick 都推进时钟；0/1：只有该槽位的结算推进
	Now          func() time.Time
}

// Arena 权威比赛：状态只在 Run 所在的协程内读写，会话通过 inbox 提交请求。
// 一次结算（合并 → 命中 → 时钟 → 快照）在同一次处理中完成，不会与另一会话交错。
type Arena struct {
	inbox chan any
	done  chan struct{}

	match      game.ServerGameMatch
	roundStart time.Time
	tick       time.Duration
	clockSlot  int
	now        func() time.Time

	metrics *Metrics
	hub     *Hub
}

// NewArena 创建比赛；hub 可以为 nil（无观战）
func NewArena(cfg ArenaConfig, metrics *Metrics, hub *Hub) *Arena {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.TickDuration <= 0 {
		cfg.TickDuration = time.Second
	}
	if metrics == nil {
		metrics = &Metrics{}
	}
	return &Arena{
		inbox:      make(chan any, 64),
		done:       make(chan struct{}),
		match:      game.NewServerGameMatch(cfg.RoundTicks),
		roundStart: cfg.Now(),
		tick:       cfg.TickDuration,
		clockSlot:  cfg.ClockSlot,
		now:        cfg.Now,
		metrics:    metrics,
		hub:        hub,
	}
}

// Resolve 提交 slot 的客户端实体，返回结算后的完整比赛快照
func (a *Arena) Resolve(ctx context.Context, slot int, e game.ServerEntity) (game.ServerGameMatch, error) {
	reply := make(chan resolveResult, 1)
	if err := a.send(ctx, resolveRequest{Slot: slot, Entity: e, Reply: reply}); err != nil {
		return game.ServerGameMatch{}, err
	}
	select {
	case res := <-reply:
		return res.Match, res.Err
	case <-ctx.Done():
		return game.ServerGameMatch{}, ctx.Err()
	case <-a.done:
		return game.ServerGameMatch{}, ErrArenaClosed
	}
}

// Snapshot 当前权威状态的副本
func (a *Arena) Snapshot(ctx context.Context) (game.ServerGameMatch, error) {
	reply := make(chan game.ServerGameMatch, 1)
	if err := a.send(ctx, snapshotRequest{Reply: reply}); err != nil {
		return game.ServerGameMatch{}, err
	}
	return a.await(ctx, reply)
}

// Restart 强制重开一局
func (a *Arena) Restart(ctx context.Context) (game.ServerGameMatch, error) {
	reply := make(chan game.ServerGameMatch, 1)
	if err := a.send(ctx, restartRequest{Reply: reply}); err != nil {
		return game.ServerGameMatch{}, err
	}
	return a.await(ctx, reply)
}

func (a *Arena) send(ctx context.Context, req any) error {
	select {
	case a.inbox <- req:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-a.done:
		return ErrArenaClosed
	}
}

func (a *Arena) await(ctx context.Context, reply <-chan game.ServerGameMatch) (game.ServerGameMatch, error) {
	select {
	case m := <-reply:
		return m, nil
	case <-ctx.Done():
		return game.ServerGameMatch{}, ctx.Err()
	case <-a.done:
		return game.ServerGameMatch{}, ErrArenaClosed
	}
}

func (a *Arena) handleCommand(cmd any) {
	switch c := cmd.(type) {
	case resolveRequest:
		m, err := a.resolve(c.Slot, c.Entity)
		c.Reply <- resolveResult{Match: m, Err: err}
	case snapshotRequest:
		c.Reply <- a.match
	case restartRequest:
		a.restart()
		a.publish()
		c.Reply <- a.match
	}
}

// resolve 一次完整结算：合并并做命中检测、推进时钟、取快照
func (a *Arena) resolve(slot int, e game.ServerEntity) (game.ServerGameMatch, error) {
	start := time.Now()
	res, err := a.match.UpdateEntity(slot, e)
	if err != nil {
		return game.ServerGameMatch{}, err
	}
	if res.Restarted {
		a.roundStart = a.now()
		a.metrics.IncRestarts()
		Log.Infow("rematch accepted, round restarted", "slot", slot, "round_ticks", a.match.RoundTicks())
	}
	if a.clockSlot < 0 || a.clockSlot == slot {
		a.advanceClock()
	}
	if res.Hits > 0 {
		Log.Debugw("hit", "attacker", slot, "hp", hpOf(&a.match))
	}
	if res.Finished {
		a.metrics.IncFinished()
		Log.Infow("match over", "status", a.match.MatchStatus.String(), "hp", hpOf(&a.match), "clock", a.match.Clock.Current)
	}

	snap := a.match
	a.match.ClearReset(slot)
	a.metrics.AddResolve(time.Since(start).Nanoseconds(), res.Hits)
	a.publish()
	return snap, nil
}

func (a *Arena) restart() {
	a.match.RestartMatch()
	a.roundStart = a.now()
	a.metrics.IncRestarts()
	Log.Infow("round restarted by admin", "round_ticks", a.match.RoundTicks())
}

// advanceClock 按本局开始以来流逝的 tick 写入剩余时间
func (a *Arena) advanceClock() {
	elapsed := a.now().Sub(a.roundStart)
	if elapsed < 0 {
		elapsed = 0
	}
	a.match.AdvanceClock(uint64(elapsed / a.tick))
}

func (a *Arena) publish() {
	if a.hub != nil {
		a.hub.Broadcast(a.match)
	}
}

func hpOf(m *game.ServerGameMatch) [game.Slots]int8 {
	var hp [game.Slots]int8
	for i := range m.ServerEntities {
		hp[i] = m.ServerEntities[i].HP
	}
	return hp
}
