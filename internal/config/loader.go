package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

var errInvalid = errors.New("配置非法")

// Load 加载客户端配置
// 查找顺序: customPath -> ~/.soccer/configs/client.yaml -> ./configs/client.yaml -> 内置默认
// 各来源都在默认值之上覆盖，缺省字段保持默认
func Load(customPath string) (Config, error) {
	cfg, err := embedded()
	if err != nil {
		return cfg, err
	}

	// 优先使用显式指定的路径，失败直接报错
	if customPath != "" {
		data, err := os.ReadFile(customPath)
		if err != nil {
			return cfg, fmt.Errorf("读取配置 %s 失败: %w", customPath, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("解析配置 %s 失败: %w", customPath, err)
		}
		return cfg, cfg.Validate()
	}

	// 用户目录
	if userCfgPath := userConfigPath("client.yaml"); userCfgPath != "" {
		if data, err := os.ReadFile(userCfgPath); err == nil {
			if err := yaml.Unmarshal(data, &cfg); err == nil {
				return cfg, cfg.Validate()
			}
		}
	}

	// 当前目录
	if data, err := os.ReadFile(filepath.Join("configs", "client.yaml")); err == nil {
		if err := yaml.Unmarshal(data, &cfg); err == nil {
			return cfg, cfg.Validate()
		}
	}

	return cfg, nil
}

// embedded 解析内置默认 YAML，失败时退回硬编码默认值
func embedded() (Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(defaultClientYAML, &cfg); err != nil {
		return DefaultConfig(), nil
	}
	return cfg, nil
}

// userConfigPath 用户配置文件路径，无法获取 home 目录时返回空
func userConfigPath(filename string) string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".soccer", "configs", filename)
}

// Validate 检查明显错误的取值
func (c Config) Validate() error {
	switch c.Network.Protocol {
	case "tcp", "kcp", "ws":
	default:
		return fmt.Errorf("%w: 不支持的协议 %q", errInvalid, c.Network.Protocol)
	}
	if c.Interpolation.BufferTimeMs < 0 {
		return fmt.Errorf("%w: buffer_time_ms 不能为负", errInvalid)
	}
	if c.Prediction.CorrectionRate < 0 || c.Prediction.CorrectionRate > 1 {
		return fmt.Errorf("%w: correction_rate 必须在 [0, 1] 之间", errInvalid)
	}
	if c.Prediction.SnapDistance < 0 {
		return fmt.Errorf("%w: snap_distance 不能为负", errInvalid)
	}
	if c.Network.InputRateHz < 0 {
		return fmt.Errorf("%w: input_rate_hz 不能为负", errInvalid)
	}
	return nil
}
