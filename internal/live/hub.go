// Package live pushes report snapshots and record changes to websocket
// clients.
package live

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"bizdash/internal/amqp"
	"bizdash/internal/log"
	"bizdash/internal/report"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBuffer     = 16
	fetchTimeout   = 7 * time.Second
)

// Message types sent to clients.
const (
	TypeReport        = "report"
	TypeRecordChanged = amqp.RoutingRecordChanged
	TypeError         = "error"
)

// ReportFetcher computes a report for a request.
type ReportFetcher interface {
	Fetch(ctx context.Context, req report.Request) (report.Report, error)
}

type Notification struct {
	Type    string `json:"type"`
	Title   string `json:"title"`
	Message string `json:"message"`
}

// Message is one frame sent to a client.
type Message struct {
	Type         string                     `json:"type"`
	Generation   uint64                     `json:"generation,omitempty"`
	Report       *report.Report             `json:"report,omitempty"`
	Change       *amqp.RecordChangedMessage `json:"change,omitempty"`
	Notification *Notification              `json:"notification,omitempty"`
}

// Filter is what a client sends to select its report window.
type Filter struct {
	Period string `json:"period"`
	Start  string `json:"start,omitempty"`
	End    string `json:"end,omitempty"`
}

// Hub tracks connected clients and fans messages out to them. Run owns the
// client set.
type Hub struct {
	fetcher  ReportFetcher
	logger   *log.Logger
	upgrader websocket.Upgrader

	register   chan *client
	unregister chan *client
	broadcast  chan broadcastMsg

	stopped chan struct{}

	mu      sync.RWMutex
	clients map[*client]struct{}
}

type broadcastMsg struct {
	data    []byte
	refresh bool
}

func NewHub(fetcher ReportFetcher, logger *log.Logger) *Hub {
	if logger == nil {
		logger = log.FromSlog(nil, log.ComponentLive)
	}
	return &Hub{
		fetcher: fetcher,
		logger:  logger.WithComponent(log.ComponentLive),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		register:   make(chan *client),
		unregister: make(chan *client),
		broadcast:  make(chan broadcastMsg),
		stopped:    make(chan struct{}),
		clients:    make(map[*client]struct{}),
	}
}

// Run processes registrations and broadcasts until ctx is done, then
// disconnects every client.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.stopped)
	for {
		select {
		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = struct{}{}
			n := len(h.clients)
			h.mu.Unlock()
			h.logger.Debug("Live client connected", "clients", n)
		case c := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				c.close()
			}
			n := len(h.clients)
			h.mu.Unlock()
			h.logger.Debug("Live client disconnected", "clients", n)
		case msg := <-h.broadcast:
			h.mu.RLock()
			for c := range h.clients {
				if !c.enqueue(msg.data) {
					h.logger.Warn("Dropping slow live client")
					go h.drop(c)
					continue
				}
				if msg.refresh {
					go c.refresh()
				}
			}
			h.mu.RUnlock()
		case <-ctx.Done():
			h.mu.Lock()
			for c := range h.clients {
				c.close()
				delete(h.clients, c)
			}
			h.mu.Unlock()
			return
		}
	}
}

func (h *Hub) drop(c *client) {
	select {
	case h.unregister <- c:
	case <-h.stopped:
	}
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// PublishRecordChanged tells every client about a change and makes those
// with an active filter reload their report.
func (h *Hub) PublishRecordChanged(ctx context.Context, msg *amqp.RecordChangedMessage) error {
	data, err := json.Marshal(Message{Type: TypeRecordChanged, Change: msg})
	if err != nil {
		return fmt.Errorf("marshal change: %w", err)
	}
	select {
	case h.broadcast <- broadcastMsg{data: data, refresh: true}:
		return nil
	case <-h.stopped:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ServeHTTP upgrades the request and serves the client until it goes away.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("Failed to upgrade to websocket", log.FieldError, err)
		return
	}
	c := newClient(h, conn)
	select {
	case h.register <- c:
	case <-h.stopped:
		conn.Close()
		return
	case <-r.Context().Done():
		conn.Close()
		return
	}
	go c.writePump()
	c.readPump()
}
