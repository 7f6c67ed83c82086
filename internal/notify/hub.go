package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// WebSocket 事件名称（与前端约定的协议）
const (
	wsEventQueueChanged = "QueueChanged"
	wsEventNewCall      = "NewCall"
	wsEventPanelCall    = "PanelCall"
)

const wsWriteTimeout = 5 * time.Second

// Hub is the in-process WebSocket fanout. Clients join per-room groups or the
// administrators group; panel calls go to every connection regardless of
// membership (shared display boards just connect and listen).
type Hub struct {
	mu       sync.RWMutex
	clients  map[*hubClient]bool
	upgrader websocket.Upgrader
	logger   *zap.Logger
}

var _ Notifier = (*Hub)(nil)

type hubClient struct {
	conn  *websocket.Conn
	mu    sync.Mutex // serializes writes
	rooms map[string]bool
	admin bool
}

// clientCommand 客户端订阅命令
type clientCommand struct {
	Action string `json:"action"` // join_room | leave_room | join_admins | leave_admins
	RoomID string `json:"room_id,omitempty"`
}

type wsMessage struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		clients: map[*hubClient]bool{},
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Panel boards and dashboards are served from other origins.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		logger: logger,
	}
}

// HandleWS upgrades the request and runs the client's subscription loop until
// the connection drops.
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	c := &hubClient{conn: conn, rooms: map[string]bool{}}
	h.mu.Lock()
	h.clients[c] = true
	h.mu.Unlock()

	defer func() {
		h.mu.Lock()
		delete(h.clients, c)
		h.mu.Unlock()
		conn.Close()
	}()

	for {
		var cmd clientCommand
		if err := conn.ReadJSON(&cmd); err != nil {
			return
		}
		h.mu.Lock()
		switch cmd.Action {
		case "join_room":
			if cmd.RoomID != "" {
				c.rooms[cmd.RoomID] = true
			}
		case "leave_room":
			delete(c.rooms, cmd.RoomID)
		case "join_admins":
			c.admin = true
		case "leave_admins":
			c.admin = false
		}
		h.mu.Unlock()
	}
}

func (h *Hub) QueueChanged(_ context.Context, roomID string) error {
	event := QueueChangedEvent{RoomID: roomID, Timestamp: time.Now().UTC()}
	h.broadcast(wsEventQueueChanged, event, func(c *hubClient) bool {
		return c.rooms[roomID] || c.admin
	})
	return nil
}

func (h *Hub) NewCall(_ context.Context, roomID string, ticketNumber int, patientName string) error {
	event := NewCallEvent{
		RoomID:       roomID,
		TicketNumber: ticketNumber,
		PatientName:  patientName,
		Timestamp:    time.Now().UTC(),
	}
	h.broadcast(wsEventNewCall, event, func(c *hubClient) bool {
		return c.rooms[roomID]
	})
	return nil
}

func (h *Hub) PanelCall(_ context.Context, roomID string, ticketNumber int) error {
	event := PanelCallEvent{RoomID: roomID, TicketNumber: ticketNumber, Timestamp: time.Now().UTC()}
	h.broadcast(wsEventPanelCall, event, func(*hubClient) bool { return true })
	return nil
}

func (h *Hub) broadcast(event string, data any, want func(*hubClient) bool) {
	payload, err := json.Marshal(wsMessage{Event: event, Data: data})
	if err != nil {
		h.logger.Error("failed to marshal websocket event", zap.Error(err))
		return
	}

	h.mu.RLock()
	targets := make([]*hubClient, 0, len(h.clients))
	for c := range h.clients {
		if want(c) {
			targets = append(targets, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range targets {
		if err := c.write(payload); err != nil {
			// The read loop will clean the client up when it notices the
			// broken connection.
			h.logger.Debug("websocket write failed", zap.Error(err))
		}
	}
}

func (c *hubClient) write(payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	return c.conn.WriteMessage(websocket.TextMessage, payload)
}
