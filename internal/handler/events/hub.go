package events

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/zhouzirui/relaychat/backend/internal/service/session"
	"github.com/zhouzirui/relaychat/backend/pkg/logger"
)

const (
	sendBuffer = 64
	writeWait  = 10 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub 把会话事件推送给所有已连接的 websocket 客户端。
type Hub struct {
	mu          sync.RWMutex
	clients     map[uuid.UUID]*client
	unsubscribe func()
}

// NewHub 订阅 store 的事件。
func NewHub(store *session.Store) *Hub {
	h := &Hub{clients: make(map[uuid.UUID]*client)}
	h.unsubscribe = store.Subscribe(h.publish)
	return h
}

// RegisterRoutes 注册事件推送路由
func (h *Hub) RegisterRoutes(r chi.Router) {
	r.Get("/chats/events", h.HandleWebSocket)
}

// HandleWebSocket 升级连接并保持读循环直到客户端断开。
func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warnf("[events] websocket upgrade failed: %v", err)
		return
	}

	id := uuid.New()
	c := &client{conn: conn, send: make(chan []byte, sendBuffer)}
	h.register(id, c)

	go h.writeLoop(id, c)
	go func() {
		defer h.unregister(id)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

// Len 返回当前连接数。
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close 取消订阅并断开所有客户端。
func (h *Hub) Close() {
	h.unsubscribe()

	h.mu.Lock()
	ids := make([]uuid.UUID, 0, len(h.clients))
	for id := range h.clients {
		ids = append(ids, id)
	}
	h.mu.Unlock()

	for _, id := range ids {
		h.unregister(id)
	}
}

func (h *Hub) register(id uuid.UUID, c *client) {
	h.mu.Lock()
	h.clients[id] = c
	total := len(h.clients)
	h.mu.Unlock()

	logger.Infof("[events] client %s connected (total: %d)", id, total)
}

func (h *Hub) unregister(id uuid.UUID) {
	h.mu.Lock()
	c, ok := h.clients[id]
	if ok {
		delete(h.clients, id)
		close(c.send)
	}
	h.mu.Unlock()

	if ok {
		_ = c.conn.Close()
		logger.Infof("[events] client %s disconnected", id)
	}
}

func (h *Hub) writeLoop(id uuid.UUID, c *client) {
	for data := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
			logger.Warnf("[events] write to %s: %v", id, err)
			h.unregister(id)
			return
		}
	}
}

// publish 在 store 的变更协程上运行，不能阻塞；缓冲区满的客户端会被丢弃。
func (h *Hub) publish(ev session.Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		logger.Errorf("[events] encode %s: %v", ev.Type, err)
		return
	}

	var slow []uuid.UUID
	h.mu.RLock()
	for id, c := range h.clients {
		select {
		case c.send <- data:
		default:
			slow = append(slow, id)
		}
	}
	h.mu.RUnlock()

	for _, id := range slow {
		logger.Warnf("[events] dropping slow client %s", id)
		h.unregister(id)
	}
}
