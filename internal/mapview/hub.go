package mapview

import (
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/wildwatch/wildwatch-server/internal/metrics"
)

// Message types sent to browsers
const (
	MessageTypeSnapshot = "snapshot"
	MessageTypeAdd      = "add"
	MessageTypeUpdate   = "update"
	MessageTypeRemove   = "remove"
	MessageTypeDestroy  = "destroy"
	MessageTypePing     = "ping"
	MessageTypePong     = "pong"
)

// View describes the initial map camera
type View struct {
	Lat  float64 `json:"lat"`
	Lng  float64 `json:"lng"`
	Zoom int     `json:"zoom"`
}

// Message is one marker operation on the wire
type Message struct {
	Type    string   `json:"type"`
	Key     string   `json:"key,omitempty"`
	Marker  *Marker  `json:"marker,omitempty"`
	Markers []Marker `json:"markers,omitempty"`
	View    *View    `json:"view,omitempty"`
}

// Hub is a Surface whose markers live in connected browsers. Each new
// browser receives a snapshot, then every operation as it happens.
type Hub struct {
	mu        sync.Mutex
	clients   map[*Client]bool
	markers   map[string]Marker
	view      View
	destroyed bool
	upgrader  websocket.Upgrader
}

var _ Surface = (*Hub)(nil)

// NewHub creates a hub. Browsers from origins other than the request host
// are refused unless listed in allowedOrigins.
func NewHub(allowedOrigins []string) *Hub {
	h := &Hub{
		clients: make(map[*Client]bool),
		markers: make(map[string]Marker),
		view:    View{Lat: CenterLat, Lng: CenterLng, Zoom: InitialZoom},
	}

	h.upgrader = websocket.Upgrader{ReadBufferSize: 1024, WriteBufferSize: 1024}
	if len(allowedOrigins) > 0 {
		allowed := make(map[string]bool, len(allowedOrigins))
		for _, o := range allowedOrigins {
			allowed[o] = true
		}
		h.upgrader.CheckOrigin = func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || allowed[origin] || origin == "http://"+r.Host || origin == "https://"+r.Host
		}
	}
	return h
}

// ServeWS upgrades the request and registers the browser
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("Websocket upgrade failed")
		return
	}

	c := newClient(h, conn)
	if !h.register(c) {
		_ = conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "map closed"))
		_ = conn.Close()
		return
	}
	c.start()
}

// register adds c and queues the snapshot under the same lock so no
// operation can slip between them
func (h *Hub) register(c *Client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.destroyed {
		return false
	}

	markers := make([]Marker, 0, len(h.markers))
	for _, m := range h.markers {
		markers = append(markers, m)
	}
	sortMarkers(markers)
	view := h.view

	c.send <- Message{Type: MessageTypeSnapshot, Markers: markers, View: &view}
	h.clients[c] = true
	metrics.WebSocketClients.Inc()
	log.Info().Uint64("client_id", c.id).Int("total_clients", len(h.clients)).Msg("Map client connected")
	return true
}

func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.dropLocked(c)
}

// dropLocked removes c; h.mu must be held
func (h *Hub) dropLocked(c *Client) {
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	close(c.send)
	metrics.WebSocketClients.Dec()
	log.Info().Uint64("client_id", c.id).Int("total_clients", len(h.clients)).Msg("Map client disconnected")
}

// broadcastLocked queues msg for every client, dropping clients that
// cannot keep up; h.mu must be held
func (h *Hub) broadcastLocked(msg Message) {
	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
			log.Warn().Uint64("client_id", c.id).Msg("Map client too slow, disconnecting")
			h.dropLocked(c)
		}
	}
}

// Clients returns the number of connected browsers
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *Hub) AddMarker(m Marker) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.destroyed {
		return ErrDestroyed
	}
	h.markers[m.Key] = m
	h.broadcastLocked(Message{Type: MessageTypeAdd, Key: m.Key, Marker: &m})
	return nil
}

func (h *Hub) UpdateMarker(m Marker) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.destroyed {
		return ErrDestroyed
	}
	h.markers[m.Key] = m
	h.broadcastLocked(Message{Type: MessageTypeUpdate, Key: m.Key, Marker: &m})
	return nil
}

func (h *Hub) RemoveMarker(key string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.destroyed {
		return ErrDestroyed
	}
	delete(h.markers, key)
	h.broadcastLocked(Message{Type: MessageTypeRemove, Key: key})
	return nil
}

// Destroy tells every browser to tear down its map and disconnects them
func (h *Hub) Destroy() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.destroyed {
		return nil
	}
	h.destroyed = true
	h.broadcastLocked(Message{Type: MessageTypeDestroy})
	for c := range h.clients {
		h.dropLocked(c)
	}
	h.markers = make(map[string]Marker)
	return nil
}
