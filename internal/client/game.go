package client

import (
	"context"
	"fmt"
	"image/color"
	"strings"
	"sync/atomic"
	"time"

	"soccer/pkg/core"
	"soccer/pkg/protocol"

	"github.com/charmbracelet/log"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/text/v2"
	"github.com/hajimehoshi/ebiten/v2/vector"
	"golang.org/x/image/font/basicfont"
)

// 调试视图尺寸
const (
	ScreenWidth  = 680
	ScreenHeight = 480

	pxPerMeter = 6.0
	hudHeight  = 28

	// 踢球特效持续时间（毫秒）
	effectLifetimeMs = 600
)

var hudFont = text.NewGoXFace(basicfont.Face7x13)

var (
	grassColor  = color.RGBA{34, 110, 52, 255}
	lineColor   = color.RGBA{230, 240, 230, 255}
	localColor  = color.RGBA{250, 220, 60, 255}
	homeColor   = color.RGBA{70, 130, 230, 255}
	awayColor   = color.RGBA{220, 70, 70, 255}
	ballColor   = color.RGBA{250, 250, 250, 255}
	shadowColor = color.RGBA{0, 0, 0, 80}
)

type kickFlash struct {
	pos mgl64.Vec3
	at  time.Time
}

// Game 俯视调试视图（Ebiten 游戏循环）
// 负责采集输入、测量帧耗时并驱动 Session
type Game struct {
	session *Session
	network *NetworkClient
	logger  *log.Logger

	controlScheme ControlScheme
	keys          keyTracker
	lastUpdate    time.Time

	reconnecting atomic.Bool
	rejoined     atomic.Bool
	flashes      []kickFlash
	status       atomic.Value // string
}

// NewGame 创建调试视图；network 可以为 nil（离线回放）
func NewGame(session *Session, network *NetworkClient, scheme ControlScheme, logger *log.Logger) *Game {
	return &Game{
		session:       session,
		network:       network,
		logger:        logger,
		controlScheme: scheme,
		lastUpdate:    time.Now(),
	}
}

// Update 更新游戏状态
func (g *Game) Update() error {
	now := time.Now()
	frame := now.Sub(g.lastUpdate)
	g.lastUpdate = now

	g.checkConnection()

	g.session.SetInput(readInput(g.controlScheme))
	if g.keys.JustPressed(g.controlScheme.keys().kick) {
		g.kick()
	}

	g.session.Update(frame)

	for _, e := range g.session.Effects() {
		if e.Event.Data.Kind == protocol.EventKick && e.Event.Data.Kick != nil {
			g.flashes = append(g.flashes, kickFlash{pos: e.Event.Data.Kick.BallPosition, at: now})
		}
	}
	g.expireFlashes(now)
	return nil
}

// checkConnection 连接断开时在后台重连，失败后按退避间隔继续重试
// 重连成功后在渲染线程重置会话
func (g *Game) checkConnection() {
	if g.network == nil {
		return
	}
	if g.rejoined.CompareAndSwap(true, false) {
		g.session.Reset(g.network.PlayerID())
		g.flashes = nil
	}
	if g.reconnecting.Load() {
		return
	}
	select {
	case err := <-g.network.Errors():
		g.logger.Error("连接断开", "err", err)
		g.status.Store("重连中...")
		g.reconnecting.Store(true)
		go func() {
			defer g.reconnecting.Store(false)
			if err := g.network.ReconnectLoop(context.Background()); err != nil {
				g.logger.Error("放弃重连", "err", err)
				g.status.Store("重连失败")
				return
			}
			g.rejoined.Store(true)
			g.status.Store("")
		}()
	default:
	}
}

// kick 朝球的方向踢，找不到球时朝当前移动方向
func (g *Game) kick() {
	local, ok := g.session.LocalState()
	if !ok {
		return
	}

	dir := local.Velocity
	for _, r := range g.session.Remotes() {
		if r.Kind == core.KindBall {
			dir = r.State.Position.Sub(local.Position)
			break
		}
	}
	dir[1] = 0

	power := core.MaxKickPower * 0.6
	if readInput(g.controlScheme).Sprint {
		power = core.MaxKickPower
	}
	if err := g.session.Kick(dir, power); err != nil {
		g.logger.Debug("踢球失败", "err", err)
	}
}

func (g *Game) expireFlashes(now time.Time) {
	keep := g.flashes[:0]
	for _, f := range g.flashes {
		if now.Sub(f.at) < effectLifetimeMs*time.Millisecond {
			keep = append(keep, f)
		}
	}
	g.flashes = keep
}

// Draw 绘制游戏画面
func (g *Game) Draw(screen *ebiten.Image) {
	settings := g.session.Quality()
	aa := settings.Antialias

	screen.Fill(color.RGBA{20, 60, 30, 255})
	g.drawPitch(screen, aa)

	for _, r := range g.session.Remotes() {
		clr := homeColor
		radius := core.PlayerRadius
		switch {
		case r.Kind == core.KindBall:
			clr = ballColor
			radius = core.BallRadius * 2
		case r.Team == core.TeamAway:
			clr = awayColor
		}
		g.drawEntity(screen, r.State.Position, radius, clr, settings.ShadowsEnabled, aa)
	}

	if local, ok := g.session.LocalState(); ok {
		g.drawEntity(screen, local.Position, core.PlayerRadius, localColor, settings.ShadowsEnabled, aa)
	}

	// 特效数量受画质预设限制
	limit := settings.ParticleCount / 50
	for i, f := range g.flashes {
		if i >= limit {
			break
		}
		age := float32(time.Since(f.at).Milliseconds()) / effectLifetimeMs
		if age > 1 {
			age = 1
		}
		x, y := worldToScreen(f.pos)
		vector.StrokeCircle(screen, x, y, 4+age*18, 2, color.RGBA{255, 255, 255, uint8(255 * (1 - age))}, aa)
	}

	g.drawHUD(screen)
}

func (g *Game) drawPitch(screen *ebiten.Image, aa bool) {
	halfW := float32(core.PitchWidth / 2 * pxPerMeter)
	halfL := float32(core.PitchLength / 2 * pxPerMeter)
	cx, cy := worldToScreen(mgl64.Vec3{})

	vector.DrawFilledRect(screen, cx-halfL, cy-halfW, 2*halfL, 2*halfW, grassColor, aa)
	vector.StrokeRect(screen, cx-halfL, cy-halfW, 2*halfL, 2*halfW, 2, lineColor, aa)
	vector.StrokeLine(screen, cx, cy-halfW, cx, cy+halfW, 2, lineColor, aa)
	vector.StrokeCircle(screen, cx, cy, 9.15*pxPerMeter, 2, lineColor, aa)

	// 球门
	goal := float32(core.GoalWidth / 2 * pxPerMeter)
	vector.StrokeLine(screen, cx-halfL, cy-goal, cx-halfL, cy+goal, 5, lineColor, aa)
	vector.StrokeLine(screen, cx+halfL, cy-goal, cx+halfL, cy+goal, 5, lineColor, aa)
}

func (g *Game) drawEntity(screen *ebiten.Image, pos mgl64.Vec3, radius float64, clr color.Color, shadow, aa bool) {
	x, y := worldToScreen(pos)
	r := float32(radius * pxPerMeter)
	if r < 2 {
		r = 2
	}
	if shadow {
		// 高度越高影子越远
		off := float32(pos.Y()*pxPerMeter) + 1.5
		vector.DrawFilledCircle(screen, x+off, y+off, r, shadowColor, aa)
	}
	vector.DrawFilledCircle(screen, x, y, r, clr, aa)
}

func (g *Game) drawHUD(screen *ebiten.Image) {
	vector.DrawFilledRect(screen, 0, 0, ScreenWidth, hudHeight, color.RGBA{0, 0, 0, 160}, false)

	home, away := g.session.Score()
	line := fmt.Sprintf("%d : %d  %s  rtt %dms  pending %d  quality %s",
		home, away, phaseLabel(g.session.Phase()), g.session.RTT(),
		g.session.PendingInputs(), g.session.QualityLevel())
	drawText(screen, 8, 8, line, color.White)

	if status, _ := g.status.Load().(string); status != "" {
		drawText(screen, 8, ScreenHeight-20, status, color.RGBA{255, 120, 120, 255})
	}
}

// Layout 设置屏幕布局
func (g *Game) Layout(outsideWidth, outsideHeight int) (int, int) {
	return ScreenWidth, ScreenHeight
}

// worldToScreen 世界坐标转屏幕坐标：z 向右，x 向下
func worldToScreen(pos mgl64.Vec3) (float32, float32) {
	cx := float64(ScreenWidth) / 2
	cy := hudHeight + float64(ScreenHeight-hudHeight)/2
	return float32(cx + pos.Z()*pxPerMeter), float32(cy + pos.X()*pxPerMeter)
}

func drawText(screen *ebiten.Image, x, y int, msg string, clr color.Color) {
	options := &text.DrawOptions{}
	options.GeoM.Translate(float64(x), float64(y))
	options.ColorScale.ScaleWithColor(clr)
	text.Draw(screen, msg, hudFont, options)
}

func phaseLabel(phase protocol.MatchPhase) string {
	return strings.ToUpper(phase.String())
}
