package game

import (
	"errors"
	"fmt"
)

// Slots 一场比赛固定两个玩家槽位
const Slots = 2

var ErrBadSlot = errors.New("slot out of range")

// ServerGameMatch 权威比赛状态：时钟 + 两个实体 + 比赛状态
type ServerGameMatch struct {
	Clock          Clock               `json:"clock" msgpack:"clock"`
	ServerEntities [Slots]ServerEntity `json:"server_entities" msgpack:"server_entities"`
	MatchStatus    MatchStatus         `json:"match_status" msgpack:"match_status"`

	roundTicks uint16
}

// Resolution 一次结算的结果摘要，供日志与指标使用
type Resolution struct {
	Hits      int
	Finished  bool
	Restarted bool
}

// NewServerGameMatch 创建新比赛：两个满血实体、满时钟、InProgress
func NewServerGameMatch(roundTicks uint16) ServerGameMatch {
	if roundTicks == 0 {
		roundTicks = DefaultRoundTicks
	}
	m := ServerGameMatch{roundTicks: roundTicks}
	m.seed()
	return m
}

func (m *ServerGameMatch) seed() {
	for i := range m.ServerEntities {
		m.ServerEntities[i] = NewServerEntity(i)
	}
	m.Clock = NewClock(m.roundTicks)
	m.MatchStatus = InProgress()
}

// RoundTicks 每局时长
func (m *ServerGameMatch) RoundTicks() uint16 {
	return m.roundTicks
}

// BothAlive 双方 HP 都大于 0
func (m *ServerGameMatch) BothAlive() bool {
	for i := range m.ServerEntities {
		if !m.ServerEntities[i].Alive() {
			return false
		}
	}
	return true
}

// InPlay 双方存活且时钟还有剩余
func (m *ServerGameMatch) InPlay() bool {
	return m.BothAlive() && m.Clock.Remaining()
}

// UpdateEntity 将 slot 的客户端上报合并进权威状态并结算。
//
// 比赛进行中：覆盖该槽位的动作/位置/速度/包围盒（保留权威 HP），
// 然后与其他槽位做命中检测。否则只复制 redo_status；若刚从 InProgress
// 结束，则设为 Over(HP 较高者，平局取 0 号)，并给胜者种下 Rematch(Maybe)。
func (m *ServerGameMatch) UpdateEntity(slot int, in ServerEntity) (Resolution, error) {
	var res Resolution
	if slot < 0 || slot >= Slots {
		return res, fmt.Errorf("update entity %d: %w", slot, ErrBadSlot)
	}
	self := &m.ServerEntities[slot]

	if m.InPlay() {
		// 重开后该槽位的首个上报是旧局数据，不合并
		if !self.Reset {
			self.mergeFrom(slot, in)
		}
		for other := range m.ServerEntities {
			if other == slot {
				continue
			}
			if m.AttackBoundCheck(slot, other) {
				res.Hits++
			}
		}
		return res, nil
	}

	self.RedoStatus = in.RedoStatus
	if m.MatchStatus.IsInProgress() {
		winner := m.WinnerSlot()
		m.MatchStatus = Over(winner)
		m.ServerEntities[winner].RedoStatus = Rematch(VoteMaybe)
		res.Finished = true
		return res, nil
	}
	res.Restarted = m.tallyRematch()
	return res, nil
}

// AttackBoundCheck attacker 的攻击框与 defender 的身体框重叠时扣血。
// 仅在 attacker.damage_check 为真且双方都未格挡时检测；
// 无论是否命中，attacker.damage_check 都会被清除。
func (m *ServerGameMatch) AttackBoundCheck(attacker, defender int) bool {
	a := &m.ServerEntities[attacker]
	d := &m.ServerEntities[defender]
	defer func() { a.EntityActions.DamageCheck = false }()

	if !a.EntityActions.DamageCheck || a.EntityActions.Blocking || d.EntityActions.Blocking {
		return false
	}
	if !a.AttackBound.CheckBounds(d.Bound) {
		return false
	}
	d.TakeDamage(Damage)
	return true
}

// WinnerSlot HP 严格更高的槽位，平局为 0
func (m *ServerGameMatch) WinnerSlot() int {
	if m.ServerEntities[1].HP > m.ServerEntities[0].HP {
		return 1
	}
	return 0
}

// AdvanceClock 比赛进行中时按已流逝 tick 更新剩余时间
func (m *ServerGameMatch) AdvanceClock(elapsed uint64) {
	if !m.MatchStatus.IsInProgress() {
		return
	}
	m.Clock.Update(m.roundTicks, elapsed)
}

// RestartMatch 重新布置两个实体（满血、reset=true），时钟归位，状态回到 InProgress
func (m *ServerGameMatch) RestartMatch() {
	if m.roundTicks == 0 {
		m.roundTicks = DefaultRoundTicks
	}
	m.seed()
	for i := range m.ServerEntities {
		m.ServerEntities[i].Reset = true
	}
}

// ClearReset 该槽位已收到带 reset 的快照后调用
func (m *ServerGameMatch) ClearReset(slot int) {
	if slot >= 0 && slot < Slots {
		m.ServerEntities[slot].Reset = false
	}
}

// tallyRematch 统计双方投票：都同意则重开；有人拒绝则 Rematch(No)；
// 有人同意则 Rematch(Yes) 等待另一方。返回是否重开。
func (m *ServerGameMatch) tallyRematch() bool {
	a := m.ServerEntities[0].RedoStatus.VoteOf()
	b := m.ServerEntities[1].RedoStatus.VoteOf()
	switch {
	case a == VoteYes && b == VoteYes:
		m.RestartMatch()
		return true
	case a == VoteNo || b == VoteNo:
		m.MatchStatus = Rematch(VoteNo)
	case a == VoteYes || b == VoteYes:
		m.MatchStatus = Rematch(VoteYes)
	}
	return false
}
