package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/zhouzirui/relaychat/backend/internal/handler/chat"
	"github.com/zhouzirui/relaychat/backend/internal/handler/events"
	"github.com/zhouzirui/relaychat/backend/internal/handler/gateway"
	"github.com/zhouzirui/relaychat/backend/internal/handler/relay"
	middlewarePkg "github.com/zhouzirui/relaychat/backend/internal/middleware"
	chatService "github.com/zhouzirui/relaychat/backend/internal/service/chat"
	gatewayService "github.com/zhouzirui/relaychat/backend/internal/service/gateway"
	relayService "github.com/zhouzirui/relaychat/backend/internal/service/relay"
	"github.com/zhouzirui/relaychat/backend/internal/service/session"
	"github.com/zhouzirui/relaychat/backend/pkg/utils"
)

// Dependencies 汇总路由需要的服务。
type Dependencies struct {
	Store        *session.Store
	Orchestrator *chatService.Orchestrator
	Hub          *events.Hub
	// BackendURL 同时供两种中继绑定使用。
	BackendURL     string
	RelayClient    *http.Client
	AllowedOrigins []string
}

func newBaseRouter(origins []string) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middlewarePkg.RequestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS(origins))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		utils.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	return r
}

// NewRouter wires the relay endpoints and the session API.
func NewRouter(deps Dependencies) http.Handler {
	r := newBaseRouter(deps.AllowedOrigins)

	handlerRelay := relay.New(relayService.NewAdapter(deps.BackendURL, relayService.HandlerBinding{}, deps.RelayClient))
	functionRelay := relay.New(relayService.NewAdapter(deps.BackendURL, relayService.FunctionBinding{}, deps.RelayClient))
	handlerRelay.Mount(r, relay.HandlerPath)
	functionRelay.Mount(r, relay.FunctionPath)

	chatHandler := chat.New(deps.Store, deps.Orchestrator)

	r.Route("/api", func(api chi.Router) {
		if deps.Hub != nil {
			deps.Hub.RegisterRoutes(api)
		}
		chatHandler.RegisterRoutes(api)
	})

	return r
}

// NewGatewayRouter wires the development backend gateway.
func NewGatewayRouter(generator gatewayService.Generator, origins []string) http.Handler {
	r := newBaseRouter(origins)
	r.Route("/api", func(api chi.Router) {
		gateway.New(generator).RegisterRoutes(api)
	})
	return r
}
