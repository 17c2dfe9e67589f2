package http

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// PredictionEvent 预测事件
type PredictionEvent struct {
	Type        string    `json:"type"`
	ID          string    `json:"id,omitempty"`
	Mode        string    `json:"mode"`
	Label       int       `json:"label"`
	RiskLabel   string    `json:"risk_label"`
	Probability *float64  `json:"probability,omitempty"`
	ModelDigest string    `json:"model_digest"`
	Timestamp   time.Time `json:"timestamp"`
}

// feedClient WebSocket客户端
type feedClient struct {
	conn *websocket.Conn
	send chan []byte
	id   string
}

// Feed 广播每次预测结果的WebSocket中心
type Feed struct {
	clients    map[*feedClient]bool
	broadcast  chan []byte
	register   chan *feedClient
	unregister chan *feedClient
	mu         sync.RWMutex
	upgrader   websocket.Upgrader
	logger     *zap.Logger
	done       chan struct{}
}

// NewFeed 创建WebSocket中心
func NewFeed(logger *zap.Logger) *Feed {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Feed{
		clients:    make(map[*feedClient]bool),
		broadcast:  make(chan []byte, 256),
		register:   make(chan *feedClient),
		unregister: make(chan *feedClient),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		logger: logger,
		done:   make(chan struct{}),
	}
}

// Run 运行中心直到ctx结束
func (f *Feed) Run(ctx context.Context) {
	defer close(f.done)
	for {
		select {
		case client := <-f.register:
			f.mu.Lock()
			f.clients[client] = true
			total := len(f.clients)
			f.mu.Unlock()
			f.logger.Debug("feed client connected", zap.String("client", client.id), zap.Int("total", total))

		case client := <-f.unregister:
			f.mu.Lock()
			if _, ok := f.clients[client]; ok {
				delete(f.clients, client)
				close(client.send)
			}
			total := len(f.clients)
			f.mu.Unlock()
			f.logger.Debug("feed client disconnected", zap.String("client", client.id), zap.Int("total", total))

		case message := <-f.broadcast:
			f.mu.Lock()
			for client := range f.clients {
				select {
				case client.send <- message:
				default:
					close(client.send)
					delete(f.clients, client)
				}
			}
			f.mu.Unlock()

		case <-ctx.Done():
			f.mu.Lock()
			for client := range f.clients {
				close(client.send)
				delete(f.clients, client)
			}
			f.mu.Unlock()
			return
		}
	}
}

// Done 在Run退出后关闭
func (f *Feed) Done() <-chan struct{} {
	return f.done
}

// Publish 广播预测事件，队列满时丢弃
func (f *Feed) Publish(event PredictionEvent) {
	event.Type = "prediction"
	event.RiskLabel = RiskLabel(event.Label)
	message, err := json.Marshal(event)
	if err != nil {
		f.logger.Warn("failed to encode feed event", zap.Error(err))
		return
	}
	select {
	case f.broadcast <- message:
	default:
		f.logger.Warn("feed broadcast queue is full, dropping event")
	}
}

// ClientCount 当前连接数
func (f *Feed) ClientCount() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.clients)
}

// ServeHTTP 处理WebSocket连接
func (f *Feed) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := f.upgrader.Upgrade(w, r, nil)
	if err != nil {
		f.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	client := &feedClient{
		conn: conn,
		send: make(chan []byte, 256),
		id:   uuid.NewString(),
	}

	select {
	case f.register <- client:
	case <-f.done:
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump(f)
}

// writePump WebSocket写入泵
func (c *feedClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump 读取泵，只处理控制帧
func (c *feedClient) readPump(f *Feed) {
	defer func() {
		select {
		case f.unregister <- c:
		case <-f.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				f.logger.Debug("websocket read error", zap.Error(err))
			}
			return
		}
	}
}
