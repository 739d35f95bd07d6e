package api

import (
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/talgya/valley-farm/internal/farm"
)

// DefaultMaxStreams caps concurrent live-stream connections.
const DefaultMaxStreams = 50

const (
	streamBuffer   = 64
	pingInterval   = 15 * time.Second
	writeDeadline  = 10 * time.Second
	readLimitBytes = 512
)

// Hub fans farm events out to live-stream subscribers. Publish never blocks;
// a subscriber that falls behind misses events until it catches up.
type Hub struct {
	mu     sync.Mutex
	subs   map[chan farm.Event]struct{}
	max    int
	closed bool
}

// NewHub creates a hub accepting at most max subscribers.
func NewHub(max int) *Hub {
	if max <= 0 {
		max = DefaultMaxStreams
	}
	return &Hub{subs: make(map[chan farm.Event]struct{}), max: max}
}

// Publish delivers ev to every subscriber with room in its buffer.
func (h *Hub) Publish(ev farm.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

// Subscribe registers a new subscriber. It returns false when the hub is
// full or closed.
func (h *Hub) Subscribe() (chan farm.Event, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed || len(h.subs) >= h.max {
		return nil, false
	}
	ch := make(chan farm.Event, streamBuffer)
	h.subs[ch] = struct{}{}
	return ch, true
}

// Unsubscribe removes and closes a subscriber channel.
func (h *Hub) Unsubscribe(ch chan farm.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.subs[ch]; ok {
		delete(h.subs, ch)
		close(ch)
	}
}

// Count is the number of live subscribers.
func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Close disconnects every subscriber and refuses new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for ch := range h.subs {
		delete(h.subs, ch)
		close(ch)
	}
}

type streamMessage struct {
	Type  string      `json:"type"`
	View  *farm.View  `json:"view,omitempty"`
	Event *farm.Event `json:"event,omitempty"`
}

// checkOrigin admits clients that send no Origin header and browsers on an
// allowed CORS origin.
func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, o := range s.allowedOrigins() {
		if strings.EqualFold(o, origin) {
			return true
		}
	}
	slog.Debug("stream origin rejected", "origin", origin)
	return false
}

// handleStream upgrades to a websocket, sends the current farm view, then
// forwards each farm event followed by the refreshed view.
func (s *Server) handleStream(c echo.Context) error {
	ch, ok := s.Hub.Subscribe()
	if !ok {
		return c.String(http.StatusServiceUnavailable, "too many stream connections")
	}
	defer s.Hub.Unsubscribe(ch)

	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin:     s.checkOrigin,
	}
	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		slog.Debug("stream upgrade failed", "error", err)
		return nil
	}
	defer conn.Close()

	// Reader: only needed to notice the client going away.
	gone := make(chan struct{})
	conn.SetReadLimit(readLimitBytes)
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	send := func(msg streamMessage) bool {
		conn.SetWriteDeadline(time.Now().Add(writeDeadline))
		return conn.WriteJSON(msg) == nil
	}

	view := s.Farm.View()
	if !send(streamMessage{Type: "view", View: &view}) {
		return nil
	}

	ping := time.NewTicker(pingInterval)
	defer ping.Stop()
	for {
		select {
		case ev, open := <-ch:
			if !open {
				conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
					time.Now().Add(time.Second))
				return nil
			}
			if !send(streamMessage{Type: "event", Event: &ev}) {
				return nil
			}
			view := s.Farm.View()
			if !send(streamMessage{Type: "view", View: &view}) {
				return nil
			}
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeDeadline)); err != nil {
				return nil
			}
		case <-gone:
			return nil
		}
	}
}
