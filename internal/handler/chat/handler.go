package chat

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	chatService "github.com/zhouzirui/relaychat/backend/internal/service/chat"
	"github.com/zhouzirui/relaychat/backend/internal/service/session"
	"github.com/zhouzirui/relaychat/backend/pkg/logger"
	"github.com/zhouzirui/relaychat/backend/pkg/utils"
)

// Sender 执行一次乐观发送。
type Sender interface {
	Send(ctx context.Context, input string) (chatService.Outcome, error)
}

// Handler 会话管理的HTTP处理器
type Handler struct {
	store  *session.Store
	sender Sender
}

// New 创建会话处理器
func New(store *session.Store, sender Sender) *Handler {
	return &Handler{store: store, sender: sender}
}

// RegisterRoutes 注册会话相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/chats", h.handleList)
	r.Post("/chats", h.handleCreate)
	r.Post("/chats/active/messages", h.handleSend)
	r.Delete("/chats/{index}", h.handleDelete)
	r.Put("/chats/{index}/active", h.handleSelect)
	r.Put("/chats/{index}/title", h.handleRename)
	r.Get("/chats/{index}/messages", h.handleMessages)
	r.Get("/chats/{index}/export", h.handleExport)
}

type chatSummary struct {
	Index        int    `json:"index"`
	ID           string `json:"id"`
	Title        string `json:"title"`
	MessageCount int    `json:"messageCount"`
}

type listResponse struct {
	Chats       []chatSummary `json:"chats"`
	ActiveIndex *int          `json:"activeIndex"`
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	chats := h.store.Chats()
	resp := listResponse{Chats: make([]chatSummary, 0, len(chats))}
	for i, c := range chats {
		resp.Chats = append(resp.Chats, chatSummary{Index: i, ID: c.ID, Title: c.Title, MessageCount: len(c.Messages)})
	}
	if active, ok := h.store.Active(); ok {
		resp.ActiveIndex = &active
	}
	utils.RespondJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	index, c := h.store.CreateChat()
	utils.RespondJSON(w, http.StatusCreated, chatSummary{Index: index, ID: c.ID, Title: c.Title, MessageCount: len(c.Messages)})
}

func (h *Handler) handleSelect(w http.ResponseWriter, r *http.Request) {
	index, ok := parseIndex(w, r)
	if !ok {
		return
	}
	if err := h.store.SelectChat(index); err != nil {
		respondStoreError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, map[string]int{"activeIndex": index})
}

func (h *Handler) handleRename(w http.ResponseWriter, r *http.Request) {
	index, ok := parseIndex(w, r)
	if !ok {
		return
	}

	var payload struct {
		Title string `json:"title"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.store.RenameChat(index, payload.Title); err != nil {
		respondStoreError(w, err)
		return
	}
	c, err := h.store.Chat(index)
	if err != nil {
		respondStoreError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, chatSummary{Index: index, ID: c.ID, Title: c.Title, MessageCount: len(c.Messages)})
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	index, ok := parseIndex(w, r)
	if !ok {
		return
	}
	if err := h.store.DeleteChat(index); err != nil {
		respondStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleMessages(w http.ResponseWriter, r *http.Request) {
	index, ok := parseIndex(w, r)
	if !ok {
		return
	}
	messages, err := h.store.LiveMessages(index)
	if err != nil {
		respondStoreError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, map[string]any{"messages": messages})
}

func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	index, ok := parseIndex(w, r)
	if !ok {
		return
	}
	text, err := h.store.ExportText(index)
	if err != nil {
		respondStoreError(w, err)
		return
	}
	utils.RespondText(w, http.StatusOK, text)
}

// handleSend 在当前会话中发送消息并等待回复落定
func (h *Handler) handleSend(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Input string `json:"input"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	outcome, err := h.sender.Send(r.Context(), payload.Input)
	if err != nil {
		respondStoreError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, outcome)
}

func parseIndex(w http.ResponseWriter, r *http.Request) (int, bool) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		respondStoreError(w, session.ErrOutOfRange)
		return 0, false
	}
	return index, true
}

func respondStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, session.ErrOutOfRange), errors.Is(err, session.ErrChatNotFound):
		utils.RespondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, session.ErrInvalidTitle), errors.Is(err, chatService.ErrEmptyInput):
		utils.RespondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, session.ErrNoActiveChat):
		utils.RespondError(w, http.StatusConflict, err.Error())
	default:
		logger.Errorf("[chat] unexpected error: %v", err)
		utils.RespondError(w, http.StatusInternalServerError, "internal error")
	}
}
