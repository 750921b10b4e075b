// Package config 客户端 YAML 配置（内置默认值）
// 加载后的 Config 由调用方逐层传递，不使用全局变量
package config

import (
	"soccer/pkg/netsync"
	"soccer/pkg/quality"
)

// Config 客户端同步层的全部可调参数
type Config struct {
	Network       NetworkConfig       `yaml:"network"`
	Interpolation InterpolationConfig `yaml:"interpolation"`
	Prediction    PredictionConfig    `yaml:"prediction"`
	Events        EventsConfig        `yaml:"events"`
	Quality       QualityConfig       `yaml:"quality"`
	Log           LogConfig           `yaml:"log"`
}

// NetworkConfig 传输参数
type NetworkConfig struct {
	Address        string  `yaml:"address"`
	Protocol       string  `yaml:"protocol"` // tcp / kcp / ws
	PlayerName     string  `yaml:"player_name"`
	RoomID         string  `yaml:"room_id"`
	DialTimeoutMs  int     `yaml:"dial_timeout_ms"`
	JoinTimeoutMs  int     `yaml:"join_timeout_ms"`
	PingIntervalMs int     `yaml:"ping_interval_ms"`
	InputRateHz    float64 `yaml:"input_rate_hz"` // 每秒最多发送的输入指令数
	InputBurst     int     `yaml:"input_burst"`
	ClockSync      bool    `yaml:"clock_sync"` // 是否按 RTT 估算服务器时钟偏移
	ClockSmoothing float64 `yaml:"clock_smoothing"`
}

// InterpolationConfig 远端实体插值参数
type InterpolationConfig struct {
	BufferTimeMs    int64 `yaml:"buffer_time_ms"`
	HistoryCapacity int   `yaml:"history_capacity"` // 本地历史环形缓冲区容量
}

// PredictionConfig 本地预测与纠错参数
type PredictionConfig struct {
	SnapDistance   float64 `yaml:"snap_distance"`   // 米
	CorrectionRate float64 `yaml:"correction_rate"` // 每次纠正比例
	MaxAgeMs       int64   `yaml:"max_age_ms"`
	Replay         bool    `yaml:"replay"` // 收到权威状态后重放未确认输入
}

// EventsConfig 事件日志参数
type EventsConfig struct {
	WindowMs int64 `yaml:"window_ms"`
	MaxAgeMs int64 `yaml:"max_age_ms"`
}

// QualityConfig 自适应画质参数
type QualityConfig struct {
	Enabled    bool                        `yaml:"enabled"`
	Initial    string                      `yaml:"initial"` // low / medium / high
	Thresholds quality.Thresholds          `yaml:"thresholds"`
	Presets    map[string]quality.Settings `yaml:"presets"`
}

// LogConfig 日志参数
type LogConfig struct {
	Level string `yaml:"level"` // debug / info / warn / error
}

// PredictionOptions 转换为 netsync 预测参数
func (c PredictionConfig) PredictionOptions() netsync.PredictionConfig {
	return netsync.PredictionConfig{
		SnapDistance:   c.SnapDistance,
		CorrectionRate: c.CorrectionRate,
		MaxAgeMs:       c.MaxAgeMs,
	}
}

// InitialLevel 初始画质等级（无法识别时为 high）
func (c QualityConfig) InitialLevel() quality.Level {
	lvl, _ := quality.ParseLevel(c.Initial)
	return lvl
}

// PresetTable 将按名称配置的预设转换为 quality.Presets，忽略未知名称
func (c QualityConfig) PresetTable() quality.Presets {
	out := make(quality.Presets, len(c.Presets))
	for name, s := range c.Presets {
		if lvl, ok := quality.ParseLevel(name); ok {
			out[lvl] = s
		}
	}
	return out
}
