// Package relay multiplexes websocket peers under session identifiers and
// fans "found" notifications out to every peer of a session, debounced per
// session. All state is owned by the Hub instance; nothing is ambient, so
// several independent hubs can live in one process.
package relay

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"

	"github.com/hsqsh/maisHack25/internal/dto"
	"github.com/hsqsh/maisHack25/internal/pkg/logger"
)

// RolePeer is the only role accepted on socket registration.
const RolePeer = "peer"

// ErrBadRegistration rejects sockets registering without a session or with an
// unknown role.
var ErrBadRegistration = errors.New("session and role=peer required")

// ValidateRegistration checks the query parameters a socket registers with.
// The handler closes rejected sockets with a policy-violation code.
func ValidateRegistration(session, role string) error {
	if session == "" || role != RolePeer {
		return ErrBadRegistration
	}
	return nil
}

// redisChannel carries cross-instance notifications when Redis is configured.
const redisChannel = "relay_events"

// DefaultCooldown is the minimum gap between two delivered notifications for
// the same session.
const DefaultCooldown = 1000 * time.Millisecond

type Hub struct {
	// sessions: session id -> connected peers. Created on first register,
	// deleted when the last peer leaves.
	sessions map[string][]*Client

	// Lock for safe session map access.
	mu sync.RWMutex

	// lastNotify holds one TTL marker per session; an unexpired marker means
	// the session is inside its cooldown window. Add is atomic, so of two
	// racing notifies exactly one wins and the other observes the marker.
	lastNotify *cache.Cache

	cooldown time.Duration

	// Optional Redis connection for cross-instance fanout.
	rdb *redis.Client

	// instanceID lets the bridge skip messages this hub published itself.
	instanceID string

	logger logger.ILogger
}

func NewHub(cooldown time.Duration, rdb *redis.Client, log logger.ILogger) *Hub {
	if cooldown <= 0 {
		cooldown = DefaultCooldown
	}
	return &Hub{
		sessions:   make(map[string][]*Client),
		lastNotify: cache.New(cache.NoExpiration, 10*time.Minute),
		cooldown:   cooldown,
		rdb:        rdb,
		instanceID: uuid.NewString(),
		logger:     log,
	}
}

// Register adds a connection to its session's set, creating the set if absent.
// Session/role validation happens in the HTTP handler before the client exists.
func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	h.sessions[client.Session] = append(h.sessions[client.Session], client)
	h.mu.Unlock()
	h.logger.Info("Relay", "Peer registered", map[string]interface{}{
		"session": client.Session,
		"client":  client.ID,
	})
}

// Unregister removes a connection; when the session set becomes empty the
// session entry itself is deleted so dead sessions never accumulate.
func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients, ok := h.sessions[client.Session]
	if !ok {
		return
	}
	for i, c := range clients {
		if c == client {
			h.sessions[client.Session] = append(clients[:i], clients[i+1:]...)
			close(client.Send)
			break
		}
	}
	if len(h.sessions[client.Session]) == 0 {
		delete(h.sessions, client.Session)
		h.logger.Info("Relay", "Session removed", map[string]interface{}{"session": client.Session})
	}
}

// SessionSize reports the number of peers currently registered under session.
func (h *Hub) SessionSize(session string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions[session])
}

// Notify delivers {type, payload, timestamp} to every open peer of a session.
// Within the cooldown window the call is a throttled no-op. Returns the count
// of successful deliveries (0 for an unknown or empty session) and whether
// the call was throttled.
func (h *Hub) Notify(session, eventType string, payload map[string]interface{}) (int, bool) {
	if eventType == "" {
		eventType = "found"
	}
	if payload == nil {
		payload = make(map[string]interface{})
	}

	if err := h.lastNotify.Add(session, time.Now(), h.cooldown); err != nil {
		h.logger.Debug("Relay", "Notify throttled", map[string]interface{}{"session": session})
		return 0, true
	}

	data, err := json.Marshal(dto.RelayMessage{
		Type:      eventType,
		Payload:   payload,
		Timestamp: time.Now().UnixMilli(),
	})
	if err != nil {
		h.logger.Error("Relay", "Failed to marshal notification", map[string]interface{}{"error": err.Error()})
		return 0, false
	}

	delivered := h.deliverLocal(session, data)

	if h.rdb != nil {
		h.publishRemote(session, data)
	}

	h.logger.Info("Relay", "Notification delivered", map[string]interface{}{
		"session":   session,
		"type":      eventType,
		"delivered": delivered,
	})
	return delivered, false
}

func (h *Hub) deliverLocal(session string, data []byte) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	delivered := 0
	for _, client := range h.sessions[session] {
		select {
		case client.Send <- data:
			delivered++
		default:
			// Buffer full: the peer is not keeping up, skip it this round.
			h.logger.Warn("Relay", "Peer send buffer full, dropping notification", map[string]interface{}{
				"session": session,
				"client":  client.ID,
			})
		}
	}
	return delivered
}

type redisEnvelope struct {
	Origin  string          `json:"origin"`
	Session string          `json:"session"`
	Message json.RawMessage `json:"message"`
}

func (h *Hub) publishRemote(session string, data []byte) {
	payload, err := json.Marshal(redisEnvelope{Origin: h.instanceID, Session: session, Message: data})
	if err != nil {
		return
	}
	if err := h.rdb.Publish(context.Background(), redisChannel, payload).Err(); err != nil {
		h.logger.Warn("Relay", "Redis publish failed", map[string]interface{}{"error": err.Error()})
	}
}

// RunBridge consumes cross-instance notifications and delivers them to local
// peers. No-throttle: the originating instance already enforced the cooldown.
// Blocks until ctx is cancelled; no-op when Redis is not configured.
func (h *Hub) RunBridge(ctx context.Context) {
	if h.rdb == nil {
		return
	}

	pubsub := h.rdb.Subscribe(ctx, redisChannel)
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var env redisEnvelope
			if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
				h.logger.Warn("Relay", "Malformed bridge message", map[string]interface{}{"error": err.Error()})
				continue
			}
			if env.Origin == h.instanceID {
				// Already delivered locally when we published it.
				continue
			}
			h.deliverLocal(env.Session, env.Message)
		}
	}
}
