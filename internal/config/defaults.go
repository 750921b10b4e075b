package config

import (
	_ "embed"

	"soccer/pkg/netsync"
	"soccer/pkg/quality"
)

//go:embed defaults/client.yaml
var defaultClientYAML []byte

// DefaultConfig 硬编码默认配置（内置 YAML 解析失败时兜底）
func DefaultConfig() Config {
	presets := make(map[string]quality.Settings)
	for lvl, s := range quality.DefaultPresets() {
		presets[lvl.String()] = s
	}

	return Config{
		Network: NetworkConfig{
			Address:        "127.0.0.1:7350",
			Protocol:       "tcp",
			PlayerName:     "player",
			DialTimeoutMs:  5000,
			JoinTimeoutMs:  10000,
			PingIntervalMs: 2000,
			InputRateHz:    60,
			InputBurst:     4,
			ClockSync:      true,
			ClockSmoothing: netsync.DefaultClockSmoothing,
		},
		Interpolation: InterpolationConfig{
			BufferTimeMs:    netsync.DefaultBufferTimeMs,
			HistoryCapacity: netsync.DefaultHistoryCapacity,
		},
		Prediction: PredictionConfig{
			SnapDistance:   netsync.DefaultSnapDistance,
			CorrectionRate: netsync.DefaultCorrectionRate,
			MaxAgeMs:       netsync.DefaultInputMaxAgeMs,
			Replay:         true,
		},
		Events: EventsConfig{
			WindowMs: netsync.DefaultEventWindowMs,
			MaxAgeMs: netsync.DefaultEventMaxAgeMs,
		},
		Quality: QualityConfig{
			Enabled:    true,
			Initial:    quality.High.String(),
			Thresholds: quality.DefaultThresholds(),
			Presets:    presets,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}
