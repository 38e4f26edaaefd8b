package main

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/zhouzirui/relaychat/backend/internal/config"
	"github.com/zhouzirui/relaychat/backend/internal/handler"
	"github.com/zhouzirui/relaychat/backend/internal/service/gateway"
	"github.com/zhouzirui/relaychat/backend/pkg/logger"
)

func newGatewayCommand(load func() (*config.Config, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "gateway",
		Short: "Run the development backend gateway (POST /api/generate)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}

			generator, err := gateway.New(cmd.Context(), cfg.Gateway)
			if err != nil {
				return err
			}
			if closer, ok := generator.(io.Closer); ok {
				defer closer.Close()
			}

			router := handler.NewGatewayRouter(generator, cfg.CORS.AllowedOrigins)
			logger.Infof("gateway (%s) listening on %s", generator.Name(), cfg.Gateway.Addr)
			return runServer(cmd.Context(), newHTTPServer(cfg.Gateway.Addr, router))
		},
	}
}
