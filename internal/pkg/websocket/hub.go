package websocket

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/yigit/motobuddies/internal/app/models"
)

// Listener receives every notification delivered to one user.
type Listener func(n *models.Notification)

// Event is the frame pushed to websocket clients
type Event struct {
	Type         string               `json:"type"`
	Notification *models.Notification `json:"notification"`
}

const eventNotificationInserted = "notification.inserted"

// Hub maintains the set of active clients, keyed by user, and pushes
// inserted notifications to them.
type Hub struct {
	clients map[uuid.UUID]map[*Client]bool

	// Callback subscribers keyed by user
	listeners  map[uuid.UUID]map[int]Listener
	listenerID int

	deliver    chan *models.Notification
	register   chan *Client
	unregister chan *Client
	done       chan struct{}

	mu     sync.RWMutex
	logger zerolog.Logger
}

// NewHub creates a new Hub instance
func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{
		clients:    make(map[uuid.UUID]map[*Client]bool),
		listeners:  make(map[uuid.UUID]map[int]Listener),
		deliver:    make(chan *models.Notification, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		logger:     logger,
	}
}

// Run serves registrations and deliveries until ctx is done.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			close(h.done)
			h.closeAll()
			return

		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.removeClient(client)

		case n := <-h.deliver:
			h.dispatch(n)
		}
	}
}

// Publish queues n for delivery to its recipient. It implements the
// notification publisher used by the fan-out service.
func (h *Hub) Publish(ctx context.Context, n *models.Notification) error {
	select {
	case h.deliver <- n:
		return nil
	case <-h.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Subscribe registers fn for userID and returns a function that removes it.
func (h *Hub) Subscribe(userID uuid.UUID, fn Listener) (unsubscribe func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.listenerID++
	id := h.listenerID
	if _, ok := h.listeners[userID]; !ok {
		h.listeners[userID] = make(map[int]Listener)
	}
	h.listeners[userID][id] = fn

	return func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		delete(h.listeners[userID], id)
		if len(h.listeners[userID]) == 0 {
			delete(h.listeners, userID)
		}
	}
}

// ClientCount returns the number of open connections of userID
func (h *Hub) ClientCount(userID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}

func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client.userID]; !ok {
		h.clients[client.userID] = make(map[*Client]bool)
	}
	h.clients[client.userID][client] = true

	h.logger.Info().
		Str("userID", client.userID.String()).
		Str("addr", client.remoteAddr()).
		Msg("Client registered")
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeClientLocked(client)
}

func (h *Hub) removeClientLocked(client *Client) {
	set, ok := h.clients[client.userID]
	if !ok || !set[client] {
		return
	}
	delete(set, client)
	close(client.send)
	if len(set) == 0 {
		delete(h.clients, client.userID)
	}

	h.logger.Info().
		Str("userID", client.userID.String()).
		Str("addr", client.remoteAddr()).
		Msg("Client unregistered")
}

func (h *Hub) dispatch(n *models.Notification) {
	h.mu.RLock()
	fns := make([]Listener, 0, len(h.listeners[n.UserID]))
	for _, fn := range h.listeners[n.UserID] {
		fns = append(fns, fn)
	}
	h.mu.RUnlock()

	for _, fn := range fns {
		fn(n)
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	clients := h.clients[n.UserID]
	if len(clients) == 0 {
		return
	}

	data, err := json.Marshal(Event{Type: eventNotificationInserted, Notification: n})
	if err != nil {
		h.logger.Error().Err(err).Str("notificationID", n.ID.String()).Msg("Failed to marshal notification")
		return
	}

	for client := range clients {
		select {
		case client.send <- data:
		default:
			// slow consumer
			h.removeClientLocked(client)
		}
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, set := range h.clients {
		for client := range set {
			h.removeClientLocked(client)
		}
	}
}
