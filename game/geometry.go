package game

import "github.com/go-gl/mathgl/mgl32"

// Point2 二维点/向量（位置与速度共用）
type Point2 struct {
	X float32 `json:"x" msgpack:"x"`
	Y float32 `json:"y" msgpack:"y"`
}

func NewPoint2(x, y float32) Point2 {
	return Point2{X: x, Y: y}
}

// Vec 转为 mgl32 向量，便于做向量运算
func (p Point2) Vec() mgl32.Vec2 {
	return mgl32.Vec2{p.X, p.Y}
}

func pointFromVec(v mgl32.Vec2) Point2 {
	return Point2{X: v.X(), Y: v.Y()}
}

// Rect 轴对齐矩形，约定 TopLeft <= BottomRight（由调用方维护，不做校验）
type Rect struct {
	TopLeft     Point2 `json:"top_left" msgpack:"top_left"`
	BottomRight Point2 `json:"bottom_right" msgpack:"bottom_right"`
}

func NewRect(topLeft, bottomRight Point2) Rect {
	return Rect{TopLeft: topLeft, BottomRight: bottomRight}
}

// Translate 按速度向量平移两个角点
func (r *Rect) Translate(vel Point2) {
	d := vel.Vec()
	r.TopLeft = pointFromVec(r.TopLeft.Vec().Add(d))
	r.BottomRight = pointFromVec(r.BottomRight.Vec().Add(d))
}

// CheckBounds 两矩形在两个轴上都重叠时返回 true。
// 使用严格不等式：仅边缘接触不算重叠。Y 轴向下增长。
func (r Rect) CheckBounds(other Rect) bool {
	aMin, aMax := r.TopLeft.Vec(), r.BottomRight.Vec()
	bMin, bMax := other.TopLeft.Vec(), other.BottomRight.Vec()
	// 0 为 X 轴，1 为 Y 轴：任一轴上分离即不重叠
	for axis := range aMin {
		if aMin[axis] >= bMax[axis] || bMin[axis] >= aMax[axis] {
			return false
		}
	}
	return true
}
