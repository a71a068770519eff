package server

import (
	"context"
	"time"
)

// Run 启动比赛的处理循环（单协程推进），ctx 结束时退出
func (a *Arena) Run(ctx context.Context) {
	defer close(a.done)

	// 服务端 tick：与哪个会话发来消息无关，每个 tick 推进一次时钟并广播给观战者。
	// 旧模式（ClockSlot >= 0）只在该槽位的结算中推进，这里不启用 ticker。
	var tickC <-chan time.Time
	if a.clockSlot < 0 {
		ticker := time.NewTicker(a.tick)
		defer ticker.Stop()
		tickC = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			return
		case cmd := <-a.inbox:
			a.handleCommand(cmd)
		case <-tickC:
			before := a.match.Clock.Current
			a.advanceClock()
			if a.match.Clock.Current != before {
				a.publish()
			}
		}
	}
}

// Done 在 Run 退出后关闭
func (a *Arena) Done() <-chan struct{} {
	return a.done
}
