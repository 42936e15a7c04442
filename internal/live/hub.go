// Package live pushes change notifications to connected browsers over a
// websocket so other tabs reload the affected partials.
package live

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/olahol/melody"

	"ledgerdesk/internal/log"
)

// Event types sent to clients.
const (
	EventTransactionsChanged = "transactions:changed"
	EventAccountsChanged     = "accounts:changed"
	EventSelectionChanged    = "selection:changed"
)

// Event is one notification. Only Type is always set.
type Event struct {
	Type      string `json:"type"`
	AccountID int64  `json:"account_id,omitempty"`
	Account   string `json:"account,omitempty"`
	Year      int    `json:"year,omitempty"`
	Month     int    `json:"month,omitempty"`
}

type Hub struct {
	m      *melody.Melody
	logger *log.Logger
}

func NewHub(logger *log.Logger) *Hub {
	logger = log.OrDiscard(logger).WithComponent(log.ComponentLive)

	m := melody.New()
	m.Config.MaxMessageSize = 4 * 1024
	m.Config.PingPeriod = 30 * time.Second
	m.Config.PongWait = 60 * time.Second

	m.HandleConnect(func(s *melody.Session) {
		logger.Debug("Client connected", log.FieldClientIP, s.Request.RemoteAddr)
	})
	m.HandleDisconnect(func(s *melody.Session) {
		logger.Debug("Client disconnected", log.FieldClientIP, s.Request.RemoteAddr)
	})
	m.HandleError(func(s *melody.Session, err error) {
		logger.Warn("WebSocket error", log.FieldError, err)
	})
	// clients only listen
	m.HandleMessage(func(*melody.Session, []byte) {})

	return &Hub{m: m, logger: logger}
}

// ServeHTTP upgrades the request and keeps the session until it closes.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if err := h.m.HandleRequest(w, r); err != nil {
		h.logger.Warn("Failed to upgrade websocket", log.FieldError, err)
	}
}

// Broadcast sends ev to every connected client.
func (h *Hub) Broadcast(ev Event) {
	msg, err := json.Marshal(ev)
	if err != nil {
		h.logger.Error("Failed to encode event", log.FieldError, err)
		return
	}
	if err := h.m.Broadcast(msg); err != nil && !errors.Is(err, melody.ErrClosed) {
		h.logger.Warn("Broadcast failed", "type", ev.Type, log.FieldError, err)
	}
}

// Len returns the number of connected clients.
func (h *Hub) Len() int {
	return h.m.Len()
}

// Close disconnects every client. Later broadcasts are dropped.
func (h *Hub) Close() error {
	if h.m.IsClosed() {
		return nil
	}
	return h.m.Close()
}
