// 包 assemble：从无序的边界线段拼装闭合的地块（宗地/建筑）多边形
// 背景：地籍交换数据中的界线（HP 层）按线段存储，每条线段登记其左右两侧的地块号，
// 但不携带任何顺序与走向信息；本包负责把同一地块号下的线段链接成一个或多个闭合环，
// 区分外环与内环（洞），并产出最终的多边形几何。
package assemble

import "errors"

// Point：平面坐标点
// 约束：连接判定依赖坐标的精确相等（无容差），上游不得对坐标做任何投影或舍入
type Point struct {
	X float64
	Y float64
}

// Segment：一条存储形态的界线（顶点链），至少两个点；存储方向与环的绕行方向无关
type Segment []Point

// Segments：同一地块号下的全部界线，集合无序；一次拼装中每条线段恰好被消费一次
type Segments []Segment

// Ring：按序连接形成的环；首末点精确相等时视为闭合
type Ring []Point

// Closed：判断环是否闭合（首末点精确相等）
func (r Ring) Closed() bool {
	return len(r) >= 2 && r[0] == r[len(r)-1]
}

// Envelope：环的轴对齐包围盒，仅用于外环/洞的判别
type Envelope struct {
	MinX float64
	MaxX float64
	MinY float64
	MaxY float64
}

// RingEnvelope：计算环的包围盒
func RingEnvelope(r Ring) Envelope {
	e := Envelope{MinX: r[0].X, MaxX: r[0].X, MinY: r[0].Y, MaxY: r[0].Y}
	for _, p := range r[1:] {
		if p.X < e.MinX {
			e.MinX = p.X
		}
		if p.X > e.MaxX {
			e.MaxX = p.X
		}
		if p.Y < e.MinY {
			e.MinY = p.Y
		}
		if p.Y > e.MaxY {
			e.MaxY = p.Y
		}
	}
	return e
}

var (
	// ErrRingNotClosed：线段耗尽后存在首末点不相等的环，整个地块视为未闭合
	ErrRingNotClosed = errors.New("assemble: ring endpoints never met")
	// ErrAmbiguousRings：多环时包围盒四项极值未指向同一个环，外环无法判别
	ErrAmbiguousRings = errors.New("assemble: outer ring is ambiguous by envelope")
	// ErrNoRings：输入不含任何线段，无几何可产出
	ErrNoRings = errors.New("assemble: no segments to assemble")
	// ErrBadSegment：存在顶点数不足 2 的线段，无法参与链接
	ErrBadSegment = errors.New("assemble: segment has fewer than 2 points")
)
