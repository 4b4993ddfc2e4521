// Package ws delivers live sale events to connected creator dashboards.
package ws

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"
)

// SaleEvent is broadcast to a seller's connected dashboards when one of
// their files is purchased.
type SaleEvent struct {
	Type              string    `json:"type"`
	FileID            string    `json:"file_id"`
	FileTitle         string    `json:"file_title"`
	TransactionNumber string    `json:"transaction_number"`
	AmountCents       int64     `json:"amount_cents"`
	EarningsCents     int64     `json:"earnings_cents"`
	CompletedAt       time.Time `json:"completed_at"`
}

// NewSaleEvent builds a SaleEvent with its type tag set.
func NewSaleEvent(fileID, fileTitle, transactionNumber string, amountCents, earningsCents int64, completedAt time.Time) SaleEvent {
	return SaleEvent{
		Type:              "sale_completed",
		FileID:            fileID,
		FileTitle:         fileTitle,
		TransactionNumber: transactionNumber,
		AmountCents:       amountCents,
		EarningsCents:     earningsCents,
		CompletedAt:       completedAt,
	}
}

// Hub maintains the set of active connections keyed by the profile that
// opened them and routes sale events to the selling creator only.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]map[*Client]struct{}
	logger  *slog.Logger
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		clients: make(map[string]map[*Client]struct{}),
		logger:  logger,
	}
}

// Register adds a client under its profile.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	set, ok := h.clients[c.profileID]
	if !ok {
		set = make(map[*Client]struct{})
		h.clients[c.profileID] = set
	}
	set[c] = struct{}{}
	h.mu.Unlock()
}

// Unregister removes a client and closes its send channel.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	if set, ok := h.clients[c.profileID]; ok {
		if _, ok := set[c]; ok {
			delete(set, c)
			close(c.send)
		}
		if len(set) == 0 {
			delete(h.clients, c.profileID)
		}
	}
	h.mu.Unlock()
}

// NotifySale sends the event to every connection the seller has open.
func (h *Hub) NotifySale(sellerProfileID string, ev SaleEvent) {
	data, err := json.Marshal(ev)
	if err != nil {
		h.logger.Error("marshal sale event", "error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.clients[sellerProfileID] {
		select {
		case c.send <- data:
		default:
			// Client buffer full — drop event to avoid blocking
		}
	}
}

// ClientCount returns the number of connections open for a profile.
func (h *Hub) ClientCount(profileID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[profileID])
}
