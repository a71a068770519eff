package game

import "fmt"

// 角色与屏幕常量（与客户端保持一致）
const (
	Scale        float32 = 5.5
	TileSize     float32 = 32
	ScreenWidth  float32 = 800
	ScreenHeight float32 = 600

	MaxHP  int8 = 5
	Damage int8 = 1
)

// Facing 朝向
type Facing int

const (
	FacingRight Facing = iota
	FacingLeft
)

func (f Facing) String() string {
	if f == FacingLeft {
		return "Left"
	}
	return "Right"
}

func (f Facing) MarshalText() ([]byte, error) {
	return []byte(f.String()), nil
}

func (f *Facing) UnmarshalText(b []byte) error {
	switch string(b) {
	case "Left":
		*f = FacingLeft
	case "Right":
		*f = FacingRight
	default:
		return fmt.Errorf("unknown facing %q", b)
	}
	return nil
}

// EntityActions 离散的战斗意图。
// DamageCheck 为一次性标志：攻击动画到达结算帧时由客户端置位，
// 服务端在每次结算中消费（清零）一次，无论是否命中。
type EntityActions struct {
	Facing      Facing `json:"facing" msgpack:"facing"`
	MovingLeft  bool   `json:"moving_left" msgpack:"moving_left"`
	MovingRight bool   `json:"moving_right" msgpack:"moving_right"`
	CanAttack   bool   `json:"can_attack" msgpack:"can_attack"`
	Attacking   bool   `json:"attacking" msgpack:"attacking"`
	DamageCheck bool   `json:"damage_check" msgpack:"damage_check"`
	Blocking    bool   `json:"blocking" msgpack:"blocking"`
}

func NewEntityActions(facing Facing) EntityActions {
	return EntityActions{Facing: facing, CanAttack: true}
}

// ServerAnimator 仅做帧同步的转发，动画计时由客户端驱动
type ServerAnimator struct {
	CurrentFrame  uint64 `json:"current_frame" msgpack:"current_frame"`
	CurrentRepeat int8   `json:"current_repeat" msgpack:"current_repeat"`
}

// ServerEntity 单个玩家的权威记录
type ServerEntity struct {
	ID             int            `json:"id" msgpack:"id"`
	HP             int8           `json:"hp" msgpack:"hp"`
	EntityActions  EntityActions  `json:"entity_actions" msgpack:"entity_actions"`
	AttackAnimator ServerAnimator `json:"attack_animator" msgpack:"attack_animator"`
	Pos            Point2         `json:"pos" msgpack:"pos"`
	Vel            Point2         `json:"vel" msgpack:"vel"`
	Bound          Rect           `json:"bound" msgpack:"bound"`
	AttackBound    Rect           `json:"attack_bound" msgpack:"attack_bound"`
	RedoStatus     MatchStatus    `json:"redo_status" msgpack:"redo_status"`
	Reset          bool           `json:"reset" msgpack:"reset"`
}

// NewServerEntity 按槽位生成出生姿态：0 号在左侧朝右，1 号在右侧朝左
func NewServerEntity(slot int) ServerEntity {
	tile := TileSize * Scale
	pos := NewPoint2(20*Scale, ScreenHeight-tile)
	facing := FacingRight
	if slot == 1 {
		pos.X = ScreenWidth - 20*Scale
		facing = FacingLeft
	}

	boundTL := pos
	if slot == 1 {
		boundTL.X -= tile
	}
	boundBR := NewPoint2(boundTL.X+tile, boundTL.Y+tile)

	// 攻击框：身体前方 12x11 的条带
	attackTL := NewPoint2(boundTL.X+20*Scale, boundTL.Y+6*Scale)
	attackBR := NewPoint2(boundBR.X, boundTL.Y+17*Scale)
	if slot == 1 {
		attackTL = NewPoint2(boundTL.X, boundTL.Y+6*Scale)
		attackBR = NewPoint2(boundTL.X+12*Scale, boundTL.Y+17*Scale)
	}

	return ServerEntity{
		ID:            slot,
		HP:            MaxHP,
		EntityActions: NewEntityActions(facing),
		Pos:           pos,
		Bound:         NewRect(boundTL, boundBR),
		AttackBound:   NewRect(attackTL, attackBR),
		RedoStatus:    InProgress(),
	}
}

// Alive 生命值大于 0
func (e *ServerEntity) Alive() bool {
	return e.HP > 0
}

// TakeDamage 扣血，最低到 0
func (e *ServerEntity) TakeDamage(dmg int8) {
	if dmg >= e.HP {
		e.HP = 0
		return
	}
	e.HP -= dmg
}

// mergeFrom 用客户端上报覆盖动作/位置/速度/包围盒。
// HP、重赛状态与 reset 标志由服务端掌握，不从客户端复制。
func (e *ServerEntity) mergeFrom(slot int, in ServerEntity) {
	hp, redo, reset := e.HP, e.RedoStatus, e.Reset
	*e = in
	e.ID = slot
	e.HP = hp
	e.RedoStatus = redo
	e.Reset = reset
}
