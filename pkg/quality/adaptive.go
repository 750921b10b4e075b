// Package quality 根据帧耗时调整渲染预算
package quality

// Level 画质等级
type Level int

const (
	Low Level = iota
	Medium
	High
)

func (l Level) String() string {
	switch l {
	case Low:
		return "low"
	case Medium:
		return "medium"
	case High:
		return "high"
	}
	return "unknown"
}

// ParseLevel 解析画质名称，未知名称返回 false
func ParseLevel(s string) (Level, bool) {
	switch s {
	case "low":
		return Low, true
	case "medium":
		return Medium, true
	case "high":
		return High, true
	}
	return High, false
}

// Settings 渲染预设
type Settings struct {
	ShadowsEnabled bool    `yaml:"shadows_enabled"`
	ShadowMapSize  int     `yaml:"shadow_map_size"`
	ParticleCount  int     `yaml:"particle_count"`
	RenderDistance float64 `yaml:"render_distance"`
	PixelRatio     float64 `yaml:"pixel_ratio"`
	Antialias      bool    `yaml:"antialias"`
}

// Presets 每个等级对应的预设
type Presets map[Level]Settings

// DefaultPresets 默认预设表
func DefaultPresets() Presets {
	return Presets{
		Low: {
			ShadowsEnabled: false,
			ShadowMapSize:  512,
			ParticleCount:  50,
			RenderDistance: 60,
			PixelRatio:     0.75,
			Antialias:      false,
		},
		Medium: {
			ShadowsEnabled: true,
			ShadowMapSize:  1024,
			ParticleCount:  150,
			RenderDistance: 120,
			PixelRatio:     1,
			Antialias:      false,
		},
		High: {
			ShadowsEnabled: true,
			ShadowMapSize:  2048,
			ParticleCount:  300,
			RenderDistance: 200,
			PixelRatio:     1,
			Antialias:      true,
		},
	}
}

// Lookup 等级对应的预设，缺失时取默认值
func (p Presets) Lookup(l Level) Settings {
	if s, ok := p[l]; ok {
		return s
	}
	return DefaultPresets()[l]
}

// Thresholds 帧耗时阈值（毫秒）
type Thresholds struct {
	DegradeMs  float64 `yaml:"degrade_ms"`  // 平均高于此值降到 medium（< 30fps）
	CriticalMs float64 `yaml:"critical_ms"` // 平均高于此值再降到 low（< 20fps）
	UpgradeMs  float64 `yaml:"upgrade_ms"`  // 平均低于此值升到 medium（> 50fps）
	TargetMs   float64 `yaml:"target_ms"`   // 平均低于此值再升到 high（>= 60fps）
}

// DefaultThresholds 默认阈值
func DefaultThresholds() Thresholds {
	return Thresholds{
		DegradeMs:  33.33,
		CriticalMs: 50,
		UpgradeMs:  20,
		TargetMs:   16.67,
	}
}

// WindowSize 帧耗时滑动窗口长度
const WindowSize = 60

// AdaptiveQuality 帧耗时驱动的画质状态机（无滞回）
type AdaptiveQuality struct {
	level      Level
	presets    Presets
	thresholds Thresholds
	samples    []float64
}

// New 创建状态机；presets 缺失的等级用默认值补齐
func New(initial Level, thresholds Thresholds, presets Presets) *AdaptiveQuality {
	merged := DefaultPresets()
	for lvl, s := range presets {
		merged[lvl] = s
	}
	if initial < Low || initial > High {
		initial = High
	}
	if thresholds == (Thresholds{}) {
		thresholds = DefaultThresholds()
	}
	return &AdaptiveQuality{
		level:      initial,
		presets:    merged,
		thresholds: thresholds,
		samples:    make([]float64, 0, WindowSize),
	}
}

// NewDefault 默认阈值与预设，初始为 high
func NewDefault() *AdaptiveQuality {
	return New(High, DefaultThresholds(), nil)
}

// UpdateQuality 记录一帧耗时并按窗口平均值调整等级
func (q *AdaptiveQuality) UpdateQuality(frameMs float64) Settings {
	q.samples = append(q.samples, frameMs)
	if len(q.samples) > WindowSize {
		q.samples = append(q.samples[:0], q.samples[len(q.samples)-WindowSize:]...)
	}

	avg := q.AverageFrameTime()
	t := q.thresholds

	switch {
	case avg > t.DegradeMs && q.level != Low:
		q.level = Medium
		if avg > t.CriticalMs {
			q.level = Low
		}
	case avg < t.UpgradeMs && q.level != High:
		q.level = Medium
		if avg < t.TargetMs {
			q.level = High
		}
	}

	return q.Settings()
}

// AverageFrameTime 窗口内平均帧耗时（毫秒）
func (q *AdaptiveQuality) AverageFrameTime() float64 {
	if len(q.samples) == 0 {
		return 0
	}
	var sum float64
	for _, v := range q.samples {
		sum += v
	}
	return sum / float64(len(q.samples))
}

// Settings 当前等级的预设
func (q *AdaptiveQuality) Settings() Settings {
	return q.presets[q.level]
}

// CurrentLevel 当前等级
func (q *AdaptiveQuality) CurrentLevel() Level {
	return q.level
}
