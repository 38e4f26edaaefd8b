package relay

import (
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	relayService "github.com/zhouzirui/relaychat/backend/internal/service/relay"
	"github.com/zhouzirui/relaychat/backend/pkg/logger"
	"github.com/zhouzirui/relaychat/backend/pkg/utils"
)

const (
	// HandlerPath 是 handler 风格部署的中继入口。
	HandlerPath = "/api/proxyLLM"
	// FunctionPath 是 function 风格部署的中继入口。
	FunctionPath = "/.netlify/functions/proxyLLM"
)

// maxBodyBytes 限制单次请求体大小。
const maxBodyBytes = 1 << 20

// Handler 把 HTTP 请求交给中继适配器。
type Handler struct {
	adapter *relayService.Adapter
}

// New 创建中继处理器
func New(adapter *relayService.Adapter) *Handler {
	return &Handler{adapter: adapter}
}

// Mount 在 path 上注册中继，接受所有方法以便由适配器返回 405。
func (h *Handler) Mount(r chi.Router, path string) {
	r.HandleFunc(path, h.ServeHTTP)
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		logger.Warnf("[relay] read request body: %v", err)
		body = nil
	}

	resp := h.adapter.Handle(r.Context(), r.Method, body)
	utils.RespondRawJSON(w, resp.Status, resp.Body)
}
