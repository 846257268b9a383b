package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"founder-waitlist/internal/core/redisx"
	"founder-waitlist/pkg/utils"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

var wsClients = prometheus.NewGauge(
	prometheus.GaugeOpts{Name: "ws_clients", Help: "Currently connected websocket clients"},
)

func init() { prometheus.MustRegister(wsClients) }

// Hub 纯发布的扇出通道：只推计数类事件，不收客户端消息，
// 无队列、无回放、无投递保证。由 main 持有并注入，不做进程级单例。
type Hub struct {
	log    *zap.Logger
	origin string // 实例标识，用于中继防回声

	mu    sync.Mutex
	conns map[*websocket.Conn]struct{}

	relay  *redisx.Relay
	cancel context.CancelFunc
}

func NewHub(log *zap.Logger) *Hub {
	if log == nil {
		log = zap.NewNop()
	}
	return &Hub{
		log:    log,
		origin: utils.NewID(),
		conns:  make(map[*websocket.Conn]struct{}),
	}
}

// relayEnvelope 中继信封；Msg 原样透传给本地连接
type relayEnvelope struct {
	Origin string          `json:"origin"`
	Msg    json.RawMessage `json:"msg"`
}

// StartRelay 挂接跨实例中继：本地广播同时发布到 redis 频道，
// 其它实例的 hub 收到后转发给各自的连接。
func (h *Hub) StartRelay(relay *redisx.Relay) {
	h.relay = relay
	ctx, cancel := context.WithCancel(context.Background())
	h.cancel = cancel
	go relay.Subscribe(ctx, func(b []byte) {
		var env relayEnvelope
		if err := json.Unmarshal(b, &env); err != nil || env.Origin == h.origin {
			return
		}
		h.fanout([]byte(env.Msg))
	})
}

// Handle 升级连接并挂进扇出集合；入站消息一律丢弃
func (h *Hub) Handle(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error("websocket upgrade failed", zap.Error(err))
		return
	}

	h.mu.Lock()
	h.conns[conn] = struct{}{}
	n := len(h.conns)
	h.mu.Unlock()
	wsClients.Set(float64(n))
	h.log.Debug("ws client connected", zap.Int("clients", n))

	// 读循环只为感知断开
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	h.remove(conn)
}

// Broadcast 序列化 {type, ...payload} 并推给当前所有连接；
// 写失败的连接静默剔除。没有任何客户端在线不算失败。
func (h *Hub) Broadcast(event string, payload map[string]any) {
	msg := make(map[string]any, len(payload)+1)
	msg["type"] = event
	for k, v := range payload {
		msg[k] = v
	}
	b, err := json.Marshal(msg)
	if err != nil {
		h.log.Error("broadcast marshal failed", zap.Error(err))
		return
	}

	h.fanout(b)

	if h.relay != nil {
		env, _ := json.Marshal(relayEnvelope{Origin: h.origin, Msg: b})
		if err := h.relay.Publish(context.Background(), env); err != nil {
			h.log.Warn("ws relay publish failed", zap.Error(err))
		}
	}
}

func (h *Hub) fanout(b []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.conns {
		if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
			_ = conn.Close()
			delete(h.conns, conn)
		}
	}
	wsClients.Set(float64(len(h.conns)))
}

func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.conns)
}

func (h *Hub) remove(conn *websocket.Conn) {
	h.mu.Lock()
	_ = conn.Close()
	delete(h.conns, conn)
	n := len(h.conns)
	h.mu.Unlock()
	wsClients.Set(float64(n))
	h.log.Debug("ws client disconnected", zap.Int("clients", n))
}

// Close 随服务停机关闭全部连接
func (h *Hub) Close() {
	if h.cancel != nil {
		h.cancel()
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.conns {
		_ = conn.WriteMessage(websocket.CloseMessage, []byte{})
		_ = conn.Close()
		delete(h.conns, conn)
	}
	wsClients.Set(0)
}
