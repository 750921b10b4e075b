package client

import (
	"soccer/pkg/core"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/solarlune/resolv"
)

const (
	tagWall   = "wall"
	tagPlayer = "player"

	// 场外缓冲带宽度（米），边线外仍允许跑动
	pitchMargin = 3.0
	wallDepth   = 2.0

	// resolv 以整数单元划分空间，按分米建模
	spaceScale = 10.0
	cellSize   = 5
)

// Pitch 球场边界碰撞
// resolv 的二维平面对应世界坐标的 x/z（单位分米），原点平移到空间左上角
type Pitch struct {
	space  *resolv.Space
	player *resolv.Object

	halfW, halfL float64 // 可活动区域半宽、半长（米）
}

// NewPitch 用四面墙围出可活动区域
func NewPitch() *Pitch {
	halfW := core.PitchWidth/2 + pitchMargin
	halfL := core.PitchLength/2 + pitchMargin

	outerW := (2*halfW + 2*wallDepth) * spaceScale
	outerL := (2*halfL + 2*wallDepth) * spaceScale
	innerW := 2 * halfW * spaceScale
	innerL := 2 * halfL * spaceScale
	depth := wallDepth * spaceScale

	space := resolv.NewSpace(int(outerW)+1, int(outerL)+1, cellSize, cellSize)
	p := &Pitch{space: space, halfW: halfW, halfL: halfL}

	walls := []*resolv.Object{
		// 两端底线外
		resolv.NewObject(0, 0, outerW, depth, tagWall),
		resolv.NewObject(0, depth+innerL, outerW, depth, tagWall),
		// 两侧边线外
		resolv.NewObject(0, depth, depth, innerL, tagWall),
		resolv.NewObject(depth+innerW, depth, depth, innerL, tagWall),
	}
	for _, w := range walls {
		w.SetShape(resolv.NewRectangle(0, 0, w.W, w.H))
		space.Add(w)
	}

	size := 2 * core.PlayerRadius * spaceScale
	p.player = resolv.NewObject(0, 0, size, size, tagPlayer)
	p.player.SetShape(resolv.NewRectangle(0, 0, size, size))
	space.Add(p.player)

	return p
}

// Bounds 可活动区域半宽、半长（米）
func (p *Pitch) Bounds() (halfW, halfL float64) {
	return p.halfW, p.halfL
}

// Resolve 将 from -> to 的移动限制在球场内，先 x 后 z，撞墙的轴贴墙停下
// 起点已经在场外时先拉回边界
func (p *Pitch) Resolve(from, to mgl64.Vec3) mgl64.Vec3 {
	from = p.Clamp(from)

	p.player.X, p.player.Y = p.toSpace(from)
	p.player.Update()

	dx := (to.X() - from.X()) * spaceScale
	dz := (to.Z() - from.Z()) * spaceScale

	if check := p.player.Check(dx, 0, tagWall); check != nil {
		if wall := p.blocking(check, dx, 0); wall != nil {
			dx = contact(p.player.X, p.player.W, wall.X, wall.W, dx)
		}
	}
	p.player.X += dx
	p.player.Update()

	if check := p.player.Check(0, dz, tagWall); check != nil {
		if wall := p.blocking(check, 0, dz); wall != nil {
			dz = contact(p.player.Y, p.player.H, wall.Y, wall.H, dz)
		}
	}
	p.player.Y += dz
	p.player.Update()

	out := p.fromSpace(p.player.X, p.player.Y)
	out[1] = to.Y()
	// 单帧位移跨过整面墙时由这里兜底
	return p.Clamp(out)
}

// blocking 返回与移动后碰撞盒真正重叠的墙
// resolv 的 Check 只按单元格粗筛，相邻单元格里的墙也会被报告；
// 仅贴着墙面（重叠不超过 overlapEpsilon）不算阻挡，否则沿墙滑动会被误判
func (p *Pitch) blocking(check *resolv.Collision, dx, dy float64) *resolv.Object {
	a := p.player
	for _, w := range check.ObjectsByTags(tagWall) {
		if overlaps(a.X+dx, a.W, w.X, w.W) && overlaps(a.Y+dy, a.H, w.Y, w.H) {
			return w
		}
	}
	return nil
}

const overlapEpsilon = 1e-6

func overlaps(pos, size, wallPos, wallSize float64) bool {
	return pos < wallPos+wallSize-overlapEpsilon && pos+size > wallPos+overlapEpsilon
}

// contact 沿单轴移动 delta 时能走到的最远距离，停在墙面上，不会反向
func contact(pos, size, wallPos, wallSize, delta float64) float64 {
	switch {
	case delta > 0:
		return clampRange(wallPos-(pos+size), 0, delta)
	case delta < 0:
		return clampRange(wallPos+wallSize-pos, delta, 0)
	}
	return 0
}

// Step 输入积分后做边界碰撞，可直接用作预测步进函数
func (p *Pitch) Step(pos mgl64.Vec3, input core.Input, dt float64) mgl64.Vec3 {
	return p.Resolve(pos, core.ApplyInput(pos, input, dt))
}

// Clamp 把球员中心限制在可活动区域内
func (p *Pitch) Clamp(pos mgl64.Vec3) mgl64.Vec3 {
	r := core.PlayerRadius
	pos[0] = clampRange(pos[0], -p.halfW+r, p.halfW-r)
	pos[2] = clampRange(pos[2], -p.halfL+r, p.halfL-r)
	return pos
}

// toSpace 世界坐标（球员中心）-> resolv 坐标（碰撞盒左上角）
func (p *Pitch) toSpace(pos mgl64.Vec3) (float64, float64) {
	r := core.PlayerRadius
	x := (pos.X() + p.halfW + wallDepth - r) * spaceScale
	y := (pos.Z() + p.halfL + wallDepth - r) * spaceScale
	return x, y
}

func (p *Pitch) fromSpace(x, y float64) mgl64.Vec3 {
	r := core.PlayerRadius
	return mgl64.Vec3{x/spaceScale - p.halfW - wallDepth + r, 0, y/spaceScale - p.halfL - wallDepth + r}
}

func clampRange(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
