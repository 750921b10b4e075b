package client

import (
	"soccer/pkg/core"

	"github.com/hajimehoshi/ebiten/v2"
)

// ControlScheme 按键方案
type ControlScheme int

const (
	ControlWASD  ControlScheme = iota // WASD + Shift 冲刺 + 空格踢球
	ControlArrow                      // 方向键 + 右 Shift 冲刺 + 回车踢球
)

func (c ControlScheme) String() string {
	switch c {
	case ControlWASD:
		return "WASD+空格"
	case ControlArrow:
		return "方向键+回车"
	}
	return "未知"
}

// ParseControlScheme 解析按键方案名称
func ParseControlScheme(s string) (ControlScheme, bool) {
	switch s {
	case "wasd", "":
		return ControlWASD, true
	case "arrow", "arrows":
		return ControlArrow, true
	}
	return ControlWASD, false
}

type keyBinding struct {
	up, down, left, right ebiten.Key
	sprint, kick          ebiten.Key
}

func (c ControlScheme) keys() keyBinding {
	if c == ControlArrow {
		return keyBinding{
			up: ebiten.KeyArrowUp, down: ebiten.KeyArrowDown,
			left: ebiten.KeyArrowLeft, right: ebiten.KeyArrowRight,
			sprint: ebiten.KeyShiftRight, kick: ebiten.KeyEnter,
		}
	}
	return keyBinding{
		up: ebiten.KeyW, down: ebiten.KeyS,
		left: ebiten.KeyA, right: ebiten.KeyD,
		sprint: ebiten.KeyShiftLeft, kick: ebiten.KeySpace,
	}
}

// readInput 读取当前按键对应的移动意图
// 屏幕横向为球门方向（z），纵向为边线方向（x）
func readInput(scheme ControlScheme) core.Input {
	k := scheme.keys()

	var in core.Input
	if ebiten.IsKeyPressed(k.right) {
		in.MoveZ++
	}
	if ebiten.IsKeyPressed(k.left) {
		in.MoveZ--
	}
	if ebiten.IsKeyPressed(k.down) {
		in.MoveX++
	}
	if ebiten.IsKeyPressed(k.up) {
		in.MoveX--
	}
	in.Sprint = ebiten.IsKeyPressed(k.sprint)
	return in
}

type keyTracker struct {
	prev map[ebiten.Key]bool
}

func (k *keyTracker) JustPressed(key ebiten.Key) bool {
	if k.prev == nil {
		k.prev = make(map[ebiten.Key]bool)
	}
	now := ebiten.IsKeyPressed(key)
	prev := k.prev[key]
	k.prev[key] = now
	return now && !prev
}
