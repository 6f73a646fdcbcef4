package websocket

import (
	"go.uber.org/zap"

	"github.com/ramonehamilton/deckforge/internal/events"
)

// Observer forwards deck events to WebSocket clients.
type Observer struct {
	hub *Hub
}

// NewObserver creates an observer that broadcasts every event through hub.
func NewObserver(hub *Hub) *Observer {
	return &Observer{hub: hub}
}

// OnEvent broadcasts the event to all connected clients.
func (o *Observer) OnEvent(event events.Event) error {
	if o.hub == nil {
		return nil
	}
	if !o.hub.Broadcast(Message{Type: event.Type, DeckID: event.DeckID, Data: event.Data}) {
		o.hub.logger.Debug("event not broadcast", zap.String("type", event.Type))
	}
	return nil
}

// GetName returns the observer's name.
func (o *Observer) GetName() string {
	return "WebSocketObserver"
}

// ShouldHandle returns true for all events.
func (o *Observer) ShouldHandle(string) bool {
	return true
}

var _ events.Observer = (*Observer)(nil)
