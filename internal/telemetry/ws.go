package telemetry

import (
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/san-kum/quadfc/internal/flight"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Hub fans status snapshots out to connected websocket clients. It is an
// Observer on the flight loop; like the MQTT publisher it drops snapshots
// rather than block a tick.
type Hub struct {
	mu        sync.Mutex
	clients   map[*websocket.Conn]bool
	broadcast chan flight.Status
	done      chan struct{}
}

func NewHub() *Hub {
	h := &Hub{
		clients:   make(map[*websocket.Conn]bool),
		broadcast: make(chan flight.Status, 64),
		done:      make(chan struct{}),
	}
	go h.run()
	return h
}

func (h *Hub) OnTick(s flight.Status) {
	select {
	case h.broadcast <- s:
	default:
	}
}

// ServeWS upgrades an HTTP request and parks the connection in the hub.
// Inbound messages are read and discarded; commands arrive over MQTT, not
// the websocket.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Println(err)
		return
	}

	h.mu.Lock()
	h.clients[ws] = true
	h.mu.Unlock()

	for {
		if _, _, err := ws.ReadMessage(); err != nil {
			h.mu.Lock()
			delete(h.clients, ws)
			h.mu.Unlock()
			ws.Close()
			return
		}
	}
}

func (h *Hub) run() {
	for {
		select {
		case <-h.done:
			return
		case s := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				if err := client.WriteJSON(s); err != nil {
					client.Close()
					delete(h.clients, client)
				}
			}
			h.mu.Unlock()
		}
	}
}

func (h *Hub) Close() {
	close(h.done)
	h.mu.Lock()
	for client := range h.clients {
		client.Close()
		delete(h.clients, client)
	}
	h.mu.Unlock()
}
