package server

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"vagabond/game"
)

// ClientConn 观战连接的写端包装
type ClientConn struct {
	ws   *websocket.Conn
	send chan []byte
}

func NewClientConn(ws *websocket.Conn) *ClientConn {
	return &ClientConn{
		ws:   ws,
		send: make(chan []byte, 64),
	}
}

// Enqueue 将要发送的消息压入队列（非阻塞，满则丢弃）
func (c *ClientConn) Enqueue(b []byte) {
	select {
	case c.send <- b:
	default:
		// 为了实时性丢弃本条，慢速观战者不能阻塞结算
	}
}

// writePump 独立协程，负责从 send 队列写出到 WS
func (c *ClientConn) writePump() {
	defer c.ws.Close()
	for msg := range c.send {
		c.ws.SetWriteDeadline(time.Now().Add(5 * time.Second))
		if err := c.ws.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
}

// readPump 观战者只读，入站消息丢弃；读错误时从 hub 注销
func (c *ClientConn) readPump(h *Hub) {
	defer h.Remove(c)
	c.ws.SetReadLimit(4096)
	c.ws.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.ws.SetPongHandler(func(string) error { c.ws.SetReadDeadline(time.Now().Add(60 * time.Second)); return nil })
	for {
		if _, _, err := c.ws.ReadMessage(); err != nil {
			return
		}
	}
}

// stateMessage 推送给观战者的比赛快照
type stateMessage struct {
	Type  string               `json:"type"`
	Match game.ServerGameMatch `json:"match"`
}

// Hub 观战者集合
type Hub struct {
	mu      sync.RWMutex
	clients map[*ClientConn]struct{}
}

func NewHub() *Hub {
	return &Hub{clients: make(map[*ClientConn]struct{})}
}

func (h *Hub) Add(c *ClientConn) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
}

// Remove 注销并关闭发送队列（只在持写锁时关闭，Broadcast 不会向已关闭的通道写）
func (h *Hub) Remove(c *ClientConn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	close(c.send)
}

func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast 将快照编码一次后推给所有观战者
func (h *Hub) Broadcast(m game.ServerGameMatch) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if len(h.clients) == 0 {
		return
	}
	b, err := json.Marshal(stateMessage{Type: "state", Match: m})
	if err != nil {
		Log.Warnw("encode spectator state", "err", err)
		return
	}
	for c := range h.clients {
		c.Enqueue(b)
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		// 观战只读，允许所有来源
		return true
	},
}

// HandleWS 观战 WebSocket 接入：GET /spectate
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		Log.Warnw("spectator upgrade", "err", err)
		return
	}
	c := NewClientConn(ws)
	h.Add(c)
	Log.Infow("spectator joined", "remote", r.RemoteAddr, "spectators", h.Count())

	go c.writePump()
	go c.readPump(h)
}
