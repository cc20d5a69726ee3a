package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrUnknownConnection is returned for operations on a connection that is
// not subscribed.
var ErrUnknownConnection = errors.New("unknown connection")

// ErrHubClosed is returned by Subscribe after Close.
var ErrHubClosed = errors.New("hub closed")

// Hub defaults.
const (
	DefaultSendBufferSize = 64
	DefaultWriteTimeout   = 10 * time.Second
)

// Sender writes one serialized event to a client connection.
type Sender interface {
	Send(ctx context.Context, data []byte) error
}

// HubOptions configures a Hub. Zero values use the defaults.
type HubOptions struct {
	SendBufferSize int
	WriteTimeout   time.Duration
}

// subscriber is one live connection. Its queue is drained by a single
// goroutine so events reach the connection in publish order.
type subscriber struct {
	id     string
	userID uuid.UUID
	sender Sender
	queue  chan []byte
	done   chan struct{}
	topics map[string]struct{}
}

// Hub routes published events to live connections by user and by topic.
// Publish never blocks on a slow connection: when a connection's queue is
// full the event is dropped for that connection.
type Hub struct {
	mu      sync.RWMutex
	conns   map[string]*subscriber
	byUser  map[uuid.UUID]map[string]*subscriber
	byTopic map[string]map[string]*subscriber
	closed  bool
	done    chan struct{}
	wg      sync.WaitGroup

	bufferSize   int
	writeTimeout time.Duration
	logger       *slog.Logger
}

// NewHub creates an empty Hub.
func NewHub(opts HubOptions, logger *slog.Logger) *Hub {
	if opts.SendBufferSize <= 0 {
		opts.SendBufferSize = DefaultSendBufferSize
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = DefaultWriteTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		conns:        make(map[string]*subscriber),
		byUser:       make(map[uuid.UUID]map[string]*subscriber),
		byTopic:      make(map[string]map[string]*subscriber),
		done:         make(chan struct{}),
		bufferSize:   opts.SendBufferSize,
		writeTimeout: opts.WriteTimeout,
		logger:       logger.With(slog.String("component", "realtime_hub")),
	}
}

// Subscribe registers a connection of userID. Events addressed to userID
// are delivered to sender until Unsubscribe is called.
func (h *Hub) Subscribe(connID string, userID uuid.UUID, sender Sender) error {
	if connID == "" || userID == uuid.Nil || sender == nil {
		return fmt.Errorf("subscribe: connection id, user id and sender are required")
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return ErrHubClosed
	}
	if _, ok := h.conns[connID]; ok {
		return fmt.Errorf("subscribe: connection %s already registered", connID)
	}

	sub := &subscriber{
		id:     connID,
		userID: userID,
		sender: sender,
		queue:  make(chan []byte, h.bufferSize),
		done:   make(chan struct{}),
		topics: make(map[string]struct{}),
	}
	h.conns[connID] = sub
	addMember(h.byUser, userID, sub)

	h.wg.Add(1)
	go h.pump(sub)

	h.logger.Debug("connection subscribed",
		slog.String("connection_id", connID),
		slog.String("user_id", userID.String()))
	return nil
}

// Unsubscribe removes a connection and all of its topic memberships.
// Queued events that were not yet written are discarded.
func (h *Hub) Unsubscribe(connID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(connID)
}

func (h *Hub) removeLocked(connID string) {
	sub, ok := h.conns[connID]
	if !ok {
		return
	}
	delete(h.conns, connID)
	removeMember(h.byUser, sub.userID, connID)
	for topic := range sub.topics {
		removeMember(h.byTopic, topic, connID)
	}
	close(sub.done)

	h.logger.Debug("connection unsubscribed",
		slog.String("connection_id", connID),
		slog.String("user_id", sub.userID.String()))
}

// JoinTopic adds the connection to topic. Joining twice is a no-op.
func (h *Hub) JoinTopic(connID, topic string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	sub, ok := h.conns[connID]
	if !ok {
		return ErrUnknownConnection
	}
	sub.topics[topic] = struct{}{}
	addMember(h.byTopic, topic, sub)
	return nil
}

// LeaveTopic removes the connection from topic. Leaving a topic that was
// never joined is a no-op.
func (h *Hub) LeaveTopic(connID, topic string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	sub, ok := h.conns[connID]
	if !ok {
		return ErrUnknownConnection
	}
	delete(sub.topics, topic)
	removeMember(h.byTopic, topic, connID)
	return nil
}

// Publish implements Publisher. Every connection of every recipient and
// every connection in msg.Topic receives the event exactly once.
func (h *Hub) Publish(ctx context.Context, msg Message) error {
	if msg.Event == nil {
		return fmt.Errorf("publish: message has no event")
	}
	data, err := json.Marshal(msg.Event)
	if err != nil {
		return fmt.Errorf("publish: failed to encode event: %w", err)
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	targets := make(map[string]*subscriber)
	for _, userID := range msg.Recipients {
		for id, sub := range h.byUser[userID] {
			targets[id] = sub
		}
	}
	if msg.Topic != "" {
		for id, sub := range h.byTopic[msg.Topic] {
			targets[id] = sub
		}
	}

	dropped := 0
	for _, sub := range targets {
		select {
		case sub.queue <- data:
		default:
			dropped++
			h.logger.Warn("send queue full, dropping event",
				slog.String("connection_id", sub.id),
				slog.String("user_id", sub.userID.String()),
				slog.String("event_type", msg.Event.Type))
		}
	}

	h.logger.Debug("event published",
		slog.String("event_id", msg.Event.ID.String()),
		slog.String("event_type", msg.Event.Type),
		slog.Int("connections", len(targets)),
		slog.Int("dropped", dropped))
	return nil
}

// ConnectionCount returns the number of live connections.
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

// Done is closed when the hub shuts down. Connection handlers watch it to
// close their transports.
func (h *Hub) Done() <-chan struct{} {
	return h.done
}

// Close unsubscribes every connection and waits for the writers to stop.
// Calling Close more than once is safe.
func (h *Hub) Close() {
	h.mu.Lock()
	if !h.closed {
		h.closed = true
		close(h.done)
	}
	for id := range h.conns {
		h.removeLocked(id)
	}
	h.mu.Unlock()
	h.wg.Wait()
}

func (h *Hub) pump(sub *subscriber) {
	defer h.wg.Done()
	for {
		select {
		case <-sub.done:
			return
		case data := <-sub.queue:
			ctx, cancel := context.WithTimeout(context.Background(), h.writeTimeout)
			err := sub.sender.Send(ctx, data)
			cancel()
			if err != nil {
				h.logger.Warn("failed to send event",
					slog.String("connection_id", sub.id),
					slog.String("error", err.Error()))
			}
		}
	}
}

func addMember[K comparable](index map[K]map[string]*subscriber, key K, sub *subscriber) {
	members, ok := index[key]
	if !ok {
		members = make(map[string]*subscriber)
		index[key] = members
	}
	members[sub.id] = sub
}

func removeMember[K comparable](index map[K]map[string]*subscriber, key K, connID string) {
	members, ok := index[key]
	if !ok {
		return
	}
	delete(members, connID)
	if len(members) == 0 {
		delete(index, key)
	}
}
