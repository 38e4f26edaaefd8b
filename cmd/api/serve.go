package main

import (
	"net/http"

	"github.com/spf13/cobra"

	"github.com/zhouzirui/relaychat/backend/internal/config"
	"github.com/zhouzirui/relaychat/backend/internal/handler"
	"github.com/zhouzirui/relaychat/backend/internal/handler/events"
	"github.com/zhouzirui/relaychat/backend/internal/service/chat"
	"github.com/zhouzirui/relaychat/backend/internal/service/relay"
	"github.com/zhouzirui/relaychat/backend/internal/service/session"
	"github.com/zhouzirui/relaychat/backend/pkg/logger"
)

func newServeCommand(load func() (*config.Config, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the relay endpoints and the session API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}

			if cfg.Relay.BackendURL == "" {
				logger.Warnf("LLM_BACKEND_URL 未配置，中继请求将返回 500")
			}

			store := session.NewStore()
			hub := events.NewHub(store)
			defer hub.Close()

			client := relay.NewClient(cfg.Relay.Endpoint, &http.Client{Timeout: cfg.Relay.ClientTimeout})
			router := handler.NewRouter(handler.Dependencies{
				Store:          store,
				Orchestrator:   chat.NewOrchestrator(store, client),
				Hub:            hub,
				BackendURL:     cfg.Relay.BackendURL,
				AllowedOrigins: cfg.CORS.AllowedOrigins,
			})

			logger.Infof("relay backend listening on %s", cfg.Server.Addr)
			return runServer(cmd.Context(), newHTTPServer(cfg.Server.Addr, router))
		},
	}
}
