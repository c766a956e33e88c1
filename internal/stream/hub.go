package stream

import (
	"context"
	"encoding/json"
	"log"
	"sync"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Hub fans tracking snapshots out to websocket clients. With redis attached,
// snapshots also travel to clients connected to other instances.
type Hub struct {
	id      string
	redis   *redis.Client
	clients map[string]map[*Client]struct{}
	latest  map[string][]byte
	mu      sync.RWMutex

	cancel context.CancelFunc
	ready  chan struct{}
}

type Client struct {
	SessionID string
	Send      chan []byte
}

type envelope struct {
	Origin  string          `json:"origin"`
	Payload json.RawMessage `json:"payload"`
}

func NewHub(redisClient *redis.Client) *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	h := &Hub{
		id:      uuid.NewString(),
		redis:   redisClient,
		clients: map[string]map[*Client]struct{}{},
		latest:  map[string][]byte{},
		cancel:  cancel,
		ready:   make(chan struct{}),
	}

	if redisClient != nil {
		go h.subscribeRedis(ctx)
	} else {
		close(h.ready)
	}
	return h
}

// Register adds a viewer for sessionID and primes it with the latest
// snapshot, if one has been seen.
func (h *Hub) Register(sessionID string) *Client {
	client := &Client{
		SessionID: sessionID,
		Send:      make(chan []byte, 64),
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[sessionID] == nil {
		h.clients[sessionID] = map[*Client]struct{}{}
	}
	h.clients[sessionID][client] = struct{}{}
	if last, ok := h.latest[sessionID]; ok {
		client.Send <- last
	}
	return client
}

func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if sessionClients, ok := h.clients[client.SessionID]; ok {
		delete(sessionClients, client)
		if len(sessionClients) == 0 {
			delete(h.clients, client.SessionID)
		}
	}
	close(client.Send)
}

func (h *Hub) Broadcast(sessionID string, payload []byte) {
	h.deliver(sessionID, payload)

	if h.redis != nil {
		msg, err := json.Marshal(envelope{Origin: h.id, Payload: payload})
		if err != nil {
			log.Printf("snapshot encode error: %v", err)
			return
		}
		if err := h.redis.Publish(context.Background(), redisChannel(sessionID), msg).Err(); err != nil {
			log.Printf("redis publish error: %v", err)
		}
	}
}

// Forget drops the cached snapshot of a finished session.
func (h *Hub) Forget(sessionID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.latest, sessionID)
}

func (h *Hub) deliver(sessionID string, payload []byte) {
	h.mu.Lock()
	h.latest[sessionID] = payload
	h.mu.Unlock()

	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.clients[sessionID] {
		select {
		case client.Send <- payload:
		default:
		}
	}
}

func (h *Hub) subscribeRedis(ctx context.Context) {
	pubsub := h.redis.PSubscribe(ctx, redisChannel("*"))
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		log.Printf("redis subscribe error: %v", err)
	}
	close(h.ready)

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var env envelope
			if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil || env.Origin == h.id {
				continue
			}
			sessionID := sessionIDFromChannel(msg.Channel)
			if sessionID == "" {
				continue
			}
			h.deliver(sessionID, env.Payload)
		}
	}
}

// Ready is closed once the redis subscription is established.
func (h *Hub) Ready() <-chan struct{} {
	return h.ready
}

func (h *Hub) Close() {
	h.cancel()
}

func redisChannel(sessionID string) string {
	return "tracking:" + sessionID + ":snapshots"
}

func sessionIDFromChannel(ch string) string {
	// tracking:{session}:snapshots
	const prefix = "tracking:"
	const suffix = ":snapshots"
	if len(ch) <= len(prefix)+len(suffix) {
		return ""
	}
	return ch[len(prefix) : len(ch)-len(suffix)]
}
