package http

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"contest-service/internal/app"
	"contest-service/internal/domain"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// WSHandler is the presence channel: contestant sockets announce which team
// they are playing as, and admin sockets watch the live active-team list.
type WSHandler struct {
	service  *app.ContestService
	upgrader websocket.Upgrader

	mu    sync.Mutex
	conns map[string]*websocket.Conn
}

func NewWSHandler(service *app.ContestService) *WSHandler {
	return &WSHandler{
		service: service,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		conns: make(map[string]*websocket.Conn),
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type joinPayload struct {
	TeamName string `json:"teamName"`
}

type joinedPayload struct {
	TeamName     domain.TeamIdentity `json:"teamName"`
	ConnectionID string              `json:"connectionId"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// ServeWS handles contestant presence sockets. Each socket gets a connection
// ID; a join-contest event binds it to a team identity and evicts any prior
// socket holding the same identity. Closing the socket releases the session.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	connID := uuid.NewString()
	h.track(connID, conn)
	defer h.untrack(connID)
	defer h.service.LeavePresence(connID)

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			return
		}
		switch inbound.Type {
		case "join-contest":
			var payload joinPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				h.send(conn, outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: "invalid join payload"}})
				continue
			}
			identity, evicted, err := h.service.JoinPresence(connID, payload.TeamName)
			if err != nil {
				h.send(conn, outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: err.Error()}})
				continue
			}
			if evicted != "" {
				h.closeEvicted(evicted)
			}
			log.Printf("%s joined", identity)
			h.send(conn, outboundMessage[joinedPayload]{Type: "joined", Payload: joinedPayload{TeamName: identity, ConnectionID: connID}})
		default:
			h.send(conn, outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: "unsupported message type"}})
		}
	}
}

// ServeAdminWS streams active-team snapshots to an admin socket until it
// disconnects. Callers must guard it with admin auth.
func (h *WSHandler) ServeAdminWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("admin ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	updates, cancel := h.service.WatchPresence()
	defer cancel()

	readerDone := make(chan struct{})
	go func() {
		defer close(readerDone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case snapshot, ok := <-updates:
			if !ok {
				return
			}
			if err := conn.WriteJSON(outboundMessage[[]domain.ActiveTeam]{Type: "activeTeams", Payload: snapshot}); err != nil {
				return
			}
		case <-readerDone:
			return
		}
	}
}

func (h *WSHandler) send(conn *websocket.Conn, msg any) {
	if err := conn.WriteJSON(msg); err != nil {
		log.Printf("ws write error: %v", err)
	}
}

func (h *WSHandler) track(connID string, conn *websocket.Conn) {
	h.mu.Lock()
	h.conns[connID] = conn
	h.mu.Unlock()
}

func (h *WSHandler) untrack(connID string) {
	h.mu.Lock()
	delete(h.conns, connID)
	h.mu.Unlock()
}

// closeEvicted tells a superseded socket its session moved elsewhere, then
// closes it. The registry entry is already gone; this only tears down I/O.
func (h *WSHandler) closeEvicted(connID string) {
	h.mu.Lock()
	conn, ok := h.conns[connID]
	h.mu.Unlock()
	if !ok {
		return
	}
	deadline := time.Now().Add(time.Second)
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "session replaced by another window"),
		deadline)
	_ = conn.Close()
}
