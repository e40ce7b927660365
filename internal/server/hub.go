package server

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/goliatone/go-artefacts/pkg/model"
	"github.com/goliatone/go-artefacts/pkg/render"
)

const (
	// clientBuffer is how many redraw messages may queue per connection
	// before new ones are dropped for that connection.
	clientBuffer = 32
	writeTimeout = 5 * time.Second
)

// Message is one redraw notification pushed to browsers.
type Message struct {
	Type  string     `json:"type"`
	ID    string     `json:"id,omitempty"`
	Kind  model.Kind `json:"kind,omitempty"`
	State string     `json:"state,omitempty"`
	Count int        `json:"count,omitempty"`
	Error string     `json:"error,omitempty"`
}

// Hub fans section notifications out to every connected websocket.
type Hub struct {
	mu      sync.RWMutex
	clients map[uuid.UUID]chan Message
	logger  zerolog.Logger
}

var _ render.SectionRenderer = (*Hub)(nil)

// NewHub builds an empty hub.
func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{clients: make(map[uuid.UUID]chan Message), logger: logger}
}

// SectionLoaded broadcasts a "section" message.
func (h *Hub) SectionLoaded(kind model.Kind, section model.Section) {
	h.broadcast(Message{Type: "section", Kind: kind, State: section.State.String(), Count: section.Len()})
}

// SectionFailed broadcasts an "error" message.
func (h *Hub) SectionFailed(kind model.Kind, err error) {
	msg := Message{Type: "error", Kind: kind, State: model.StateFailed.String()}
	if err != nil {
		msg.Error = err.Error()
	}
	h.broadcast(msg)
}

// Clients reports the number of open connections.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) broadcast(msg Message) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for id, ch := range h.clients {
		select {
		case ch <- msg:
		default:
			h.logger.Warn().Str("client", id.String()).Str("kind", string(msg.Kind)).Msg("redraw dropped")
		}
	}
}

func (h *Hub) register() (uuid.UUID, chan Message) {
	id := uuid.New()
	ch := make(chan Message, clientBuffer)
	h.mu.Lock()
	h.clients[id] = ch
	h.mu.Unlock()
	return id, ch
}

func (h *Hub) unregister(id uuid.UUID) {
	h.mu.Lock()
	delete(h.clients, id)
	h.mu.Unlock()
}

// ServeHTTP upgrades to a websocket and streams redraw messages until the
// peer goes away.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"localhost:*", "127.0.0.1:*"},
	})
	if err != nil {
		h.logger.Warn().Err(err).Msg("websocket accept")
		return
	}
	defer conn.CloseNow()

	id, ch := h.register()
	defer h.unregister(id)
	log := h.logger.With().Str("client", id.String()).Logger()
	log.Debug().Msg("client connected")

	// Clients never send; CloseRead handles control frames and cancels ctx
	// when the peer disconnects.
	ctx := conn.CloseRead(r.Context())

	if err := h.write(ctx, conn, Message{Type: "hello", ID: id.String()}); err != nil {
		return
	}
	for {
		select {
		case <-ctx.Done():
			log.Debug().Msg("client disconnected")
			return
		case msg := <-ch:
			if err := h.write(ctx, conn, msg); err != nil {
				log.Debug().Err(err).Msg("write failed")
				return
			}
		}
	}
}

func (h *Hub) write(ctx context.Context, conn *websocket.Conn, msg Message) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return wsjson.Write(ctx, conn, msg)
}
