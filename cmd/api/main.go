package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/zhouzirui/relaychat/backend/internal/config"
	"github.com/zhouzirui/relaychat/backend/pkg/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		logger.Fatalf("%v", err)
	}
}

func newRootCommand() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "api",
		Short:         "Chat session and LLM relay backend",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "optional YAML config file")

	load := func() (*config.Config, error) {
		// Load .env file
		if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
			logger.Warnf("failed to load .env file: %v", err)
		}

		cfg, err := config.Load(configPath)
		if err != nil {
			return nil, err
		}
		if err := logger.Init(cfg.Log.Level, cfg.Log.Format); err != nil {
			return nil, err
		}
		return cfg, nil
	}

	root.AddCommand(newServeCommand(load), newGatewayCommand(load))
	return root
}
