package main

import (
	"context"
	"time"

	"soccer/internal/client"

	"github.com/spf13/cobra"
)

var (
	flagDuration time.Duration
	flagReport   time.Duration
)

var probeCmd = &cobra.Command{
	Use:   "probe",
	Short: "无窗口连接服务器并打印同步状态",
	Long: `以 60Hz 驱动同步会话但不渲染，定期打印时延、远端实体数与比分。
用于在没有图形环境的机器上检查服务器与网络状况。`,
	RunE: runProbe,
}

func init() {
	probeCmd.Flags().DurationVar(&flagDuration, "duration", 10*time.Second, "运行时长（0 表示一直运行）")
	probeCmd.Flags().DurationVar(&flagReport, "report", time.Second, "打印间隔")
}

func runProbe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg.Log.Level)

	ctx := cmd.Context()
	if flagDuration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, flagDuration)
		defer cancel()
	}

	network := client.NewNetworkClient(cfg.Network, logger)
	if err := network.Connect(ctx); err != nil {
		return err
	}
	defer network.Close()

	session := client.NewSession(cfg, network, logger, nil)

	frame := time.Second / 60
	ticker := time.NewTicker(frame)
	defer ticker.Stop()
	report := time.NewTicker(flagReport)
	defer report.Stop()

	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			return nil

		case err := <-network.Errors():
			return err

		case now := <-ticker.C:
			session.Update(now.Sub(last))
			last = now
			for _, e := range session.Effects() {
				logger.Info("事件", "type", e.Event.Type, "at", e.Event.Timestamp, "local_known", e.HasLocal)
			}

		case <-report.C:
			home, away := session.Score()
			local, _ := session.LocalState()
			logger.Info("同步状态",
				"rtt", session.RTT(),
				"remotes", len(session.RemoteIDs()),
				"pending", session.PendingInputs(),
				"pos", local.Position,
				"score", [2]uint32{home, away},
				"phase", session.Phase(),
			)
		}
	}
}
