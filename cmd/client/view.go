package main

import (
	"context"
	"fmt"
	"time"

	"soccer/internal/client"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/spf13/cobra"
)

var flagControl string

var viewCmd = &cobra.Command{
	Use:   "view",
	Short: "打开调试窗口并加入比赛",
	RunE:  runView,
}

func init() {
	viewCmd.Flags().StringVar(&flagControl, "control", "wasd", "按键方案 wasd/arrow")
}

func runView(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg.Log.Level)

	scheme, ok := client.ParseControlScheme(flagControl)
	if !ok {
		return fmt.Errorf("未知按键方案: %s", flagControl)
	}

	network := client.NewNetworkClient(cfg.Network, logger)
	ctx, cancel := context.WithTimeout(cmd.Context(), 15*time.Second)
	err = network.Connect(ctx)
	cancel()
	if err != nil {
		return err
	}
	defer network.Close()

	session := client.NewSession(cfg, network, logger, nil)
	game := client.NewGame(session, network, scheme, logger)

	// 设置窗口选项
	ebiten.SetWindowSize(client.ScreenWidth, client.ScreenHeight)
	ebiten.SetWindowTitle(fmt.Sprintf("Soccer - 玩家 %d [%s] [%s]", network.PlayerID(), cfg.Network.Protocol, scheme))
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeDisabled)

	// 运行游戏
	return ebiten.RunGame(game)
}
