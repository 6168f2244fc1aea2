package ws

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/kiwari-pos/order-engine/internal/events"
	"go.uber.org/zap"
)

// ErrHubStopped is returned by Publish once Run has returned.
var ErrHubStopped = errors.New("websocket hub stopped")

// Hub fans committed order and table events out to the staff screens of the
// store they belong to. It implements events.Publisher.
type Hub struct {
	// Registered clients by store ID
	rooms map[uuid.UUID]map[*Client]bool

	register   chan *Client
	unregister chan *Client
	broadcast  chan events.Event
	done       chan struct{}

	log *zap.Logger

	// Guards rooms for readers outside the Run loop
	mu sync.RWMutex
}

// NewHub creates a new Hub instance
func NewHub(log *zap.Logger) *Hub {
	if log == nil {
		log = zap.NewNop()
	}
	return &Hub{
		rooms:      make(map[uuid.UUID]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan events.Event, 256),
		done:       make(chan struct{}),
		log:        log,
	}
}

// Run starts the hub's main loop and returns when ctx is cancelled, closing
// every client. Call it as a goroutine: go hub.Run(ctx)
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for storeID, clients := range h.rooms {
				for client := range clients {
					close(client.send)
				}
				delete(h.rooms, storeID)
			}
			h.mu.Unlock()
			return

		case client := <-h.register:
			h.mu.Lock()
			if h.rooms[client.storeID] == nil {
				h.rooms[client.storeID] = make(map[*Client]bool)
			}
			h.rooms[client.storeID][client] = true
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			h.drop(client)
			h.mu.Unlock()

		case e := <-h.broadcast:
			h.mu.Lock()
			for client := range h.rooms[e.StoreID] {
				select {
				case client.send <- e:
				default:
					// Slow consumer: its buffer is full
					h.log.Warn("dropping slow websocket client",
						zap.String("store_id", e.StoreID.String()),
						zap.String("event", e.Type),
					)
					h.drop(client)
				}
			}
			h.mu.Unlock()
		}
	}
}

// drop removes a client and cleans up its room when empty. Caller holds mu.
func (h *Hub) drop(client *Client) {
	clients, ok := h.rooms[client.storeID]
	if !ok {
		return
	}
	if _, exists := clients[client]; !exists {
		return
	}
	delete(clients, client)
	close(client.send)
	if len(clients) == 0 {
		delete(h.rooms, client.storeID)
	}
}

// Publish queues e for every client watching e.StoreID. Encoding happens in
// each client's write pump, batched with whatever else is queued.
func (h *Hub) Publish(ctx context.Context, e events.Event) error {
	select {
	case h.broadcast <- e:
		return nil
	case <-h.done:
		return ErrHubStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Clients returns the number of clients connected for a store.
func (h *Hub) Clients(storeID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[storeID])
}
