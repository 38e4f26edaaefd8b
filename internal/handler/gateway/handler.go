package gateway

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	relaymodel "github.com/zhouzirui/relaychat/backend/internal/model/relay"
	gatewayService "github.com/zhouzirui/relaychat/backend/internal/service/gateway"
	"github.com/zhouzirui/relaychat/backend/pkg/logger"
	"github.com/zhouzirui/relaychat/backend/pkg/utils"
)

// Handler 暴露开发用后端网关
type Handler struct {
	generator gatewayService.Generator
}

func New(generator gatewayService.Generator) *Handler {
	return &Handler{generator: generator}
}

// RegisterRoutes 注册网关路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/generate", h.handleGenerate)
}

func (h *Handler) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var payload relaymodel.Request
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(payload.Question) == "" {
		utils.RespondError(w, http.StatusBadRequest, "question is required")
		return
	}

	var history string
	if payload.Context != nil {
		history = *payload.Context
	}

	text, err := h.generator.Generate(r.Context(), payload.Question, history)
	if err != nil {
		logger.WithFields(logrus.Fields{"provider": h.generator.Name()}).WithError(err).Error("generation failed")
		utils.RespondError(w, http.StatusBadGateway, "generation failed")
		return
	}

	utils.RespondJSON(w, http.StatusOK, relaymodel.NewReply(text))
}
