package game

// DefaultRoundTicks 一局的总时长（tick）
const DefaultRoundTicks uint16 = 60

// Clock 剩余比赛时间（倒计时），不是已流逝时间
type Clock struct {
	Current uint16 `json:"current" msgpack:"current"`
}

func NewClock(roundTicks uint16) Clock {
	return Clock{Current: roundTicks}
}

// Remaining 还有剩余时间
func (c Clock) Remaining() bool {
	return c.Current > 0
}

// Update 写入 roundTicks - elapsed，最低到 0；同一局内只减不增
func (c *Clock) Update(roundTicks uint16, elapsed uint64) {
	left := uint16(0)
	if elapsed < uint64(roundTicks) {
		left = roundTicks - uint16(elapsed)
	}
	if left < c.Current {
		c.Current = left
	}
}
