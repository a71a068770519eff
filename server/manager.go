package server

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"vagabond/game"
)

var ErrServerFull = errors.New("server full")

// SessionInfo 已接入会话的描述（管理接口使用）
type SessionInfo struct {
	ID       uuid.UUID `json:"id"`
	Slot     int       `json:"slot"`
	Remote   string    `json:"remote"`
	Admitted time.Time `json:"admitted"`
}

// SlotManager 管理两个玩家槽位：满员拒绝，空出的槽位可被复用
type SlotManager struct {
	mu    sync.RWMutex
	slots [game.Slots]*SessionInfo
}

func NewSlotManager() *SlotManager {
	return &SlotManager{}
}

// Acquire 分配编号最小的空槽位
func (m *SlotManager) Acquire(remote string) (SessionInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, s := range m.slots {
		if s != nil {
			continue
		}
		info := &SessionInfo{ID: uuid.New(), Slot: i, Remote: remote, Admitted: time.Now()}
		m.slots[i] = info
		return *info, nil
	}
	return SessionInfo{}, ErrServerFull
}

// Release 释放槽位；id 不匹配时忽略（槽位已被新会话占用）
func (m *SlotManager) Release(info SessionInfo) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if info.Slot < 0 || info.Slot >= len(m.slots) {
		return
	}
	if s := m.slots[info.Slot]; s != nil && s.ID == info.ID {
		m.slots[info.Slot] = nil
	}
}

// Active 当前已接入的会话数
func (m *SlotManager) Active() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, s := range m.slots {
		if s != nil {
			n++
		}
	}
	return n
}

// Sessions 按槽位排序的会话列表
func (m *SlotManager) Sessions() []SessionInfo {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]SessionInfo, 0, len(m.slots))
	for _, s := range m.slots {
		if s != nil {
			out = append(out, *s)
		}
	}
	return out
}
