package stream

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"charzing/internal/pkg/jwt"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	maxMsgSize = 4 * 1024
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Origin checks happen at the reverse proxy in production.
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// clientMessage is the only shape clients may send. Anything outside
// subscribe/ping gets an error event back.
type clientMessage struct {
	Type    string `json:"type"`
	OrderID string `json:"orderId,omitempty"`
}

type controlEvent struct {
	Type    string `json:"type"`
	OrderID string `json:"orderId,omitempty"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}

type Handler struct {
	hub        *Hub
	jwtService *jwt.Service
	logger     *zap.Logger
}

func NewHandler(hub *Hub, jwtService *jwt.Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{hub: hub, jwtService: jwtService, logger: logger}
}

func (h *Handler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/ws/payments", h.HandleWebSocket)
}

// HandleWebSocket godoc
// @Summary Payment outcome stream
// @Description Websocket endpoint. Authenticate with ?token=JWT, then send {"type":"subscribe","orderId":"CHZ_..."}.
// @Tags Stream
// @Param token query string true "JWT access token"
// @Router /ws/payments [get]
func (h *Handler) HandleWebSocket(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "토큰이 필요합니다."})
		return
	}
	claims, err := h.jwtService.ValidateToken(token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "유효하지 않은 토큰입니다."})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	cl := h.hub.register(claims.UserID)
	defer func() {
		h.hub.unregister(cl)
		conn.Close()
	}()

	conn.SetReadLimit(maxMsgSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	// The write pump and the read loop both answer the client, so conn
	// writes go through one serialized writer.
	w := &connWriter{conn: conn}

	done := make(chan struct{})
	go h.writePump(w, cl, done)

	h.readLoop(w, cl)
	close(done)
}

// connWriter serializes writes from the hub pump and the read loop.
type connWriter struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (w *connWriter) writeJSON(v interface{}) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return w.conn.WriteJSON(v)
}

func (w *connWriter) ping() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return w.conn.WriteMessage(websocket.PingMessage, nil)
}

func (h *Handler) writePump(w *connWriter, cl *client, done <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case event, ok := <-cl.send:
			if !ok {
				return
			}
			if err := w.writeJSON(event); err != nil {
				return
			}
		case <-ticker.C:
			if err := w.ping(); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}

func (h *Handler) readLoop(w *connWriter, cl *client) {
	for {
		_, raw, err := w.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseGoingAway,
				websocket.CloseAbnormalClosure) {
				h.logger.Debug("websocket read error",
					zap.String("user_id", cl.userID), zap.Error(err))
			}
			return
		}

		var msg clientMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			w.writeJSON(controlEvent{Type: "error", Code: "INVALID_JSON", Message: "메시지를 해석할 수 없습니다."})
			continue
		}

		switch msg.Type {
		case "subscribe":
			if msg.OrderID == "" {
				w.writeJSON(controlEvent{Type: "error", Code: "MISSING_ORDER_ID", Message: "orderId가 필요합니다."})
				continue
			}
			h.hub.subscribe(cl, msg.OrderID)
			w.writeJSON(controlEvent{Type: "subscribed", OrderID: msg.OrderID})
		case "ping":
			w.writeJSON(controlEvent{Type: "pong"})
		default:
			w.writeJSON(controlEvent{Type: "error", Code: "UNKNOWN_TYPE", Message: "지원하지 않는 메시지 타입입니다: " + msg.Type})
		}
	}
}
