package live

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"bizdash/internal/log"
	"bizdash/internal/report"
	"bizdash/internal/view"
)

type client struct {
	hub   *Hub
	conn  *websocket.Conn
	send  chan []byte
	done  chan struct{}
	once  sync.Once
	state *view.State[report.Report]

	mu     sync.Mutex
	req    report.Request
	active bool
}

func newClient(h *Hub, conn *websocket.Conn) *client {
	return &client{
		hub:   h,
		conn:  conn,
		send:  make(chan []byte, sendBuffer),
		done:  make(chan struct{}),
		state: view.NewState[report.Report](),
	}
}

func (c *client) close() {
	c.once.Do(func() { close(c.done) })
}

// enqueue reports false when the client's buffer is full.
func (c *client) enqueue(data []byte) bool {
	select {
	case c.send <- data:
		return true
	case <-c.done:
		return true
	default:
		return false
	}
}

func (c *client) readPump() {
	defer func() {
		c.hub.drop(c)
		c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var f Filter
		if err := c.conn.ReadJSON(&f); err != nil {
			var (
				syntaxErr *json.SyntaxError
				typeErr   *json.UnmarshalTypeError
			)
			if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) || errors.Is(err, io.ErrUnexpectedEOF) {
				c.notify("Invalid filter", "The filter message is not valid JSON.")
				continue
			}
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.Warn("Live connection closed unexpectedly", log.FieldError, err)
			}
			return
		}
		req, err := f.Request()
		if err == nil {
			err = req.CheckRange(time.Now())
		}
		if err != nil {
			c.notify("Invalid filter", err.Error())
			continue
		}
		c.mu.Lock()
		c.req, c.active = req, true
		c.mu.Unlock()
		go c.load(req)
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case data := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			_ = c.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
			return
		}
	}
}

// refresh reloads the client's current filter, if it has one.
func (c *client) refresh() {
	c.mu.Lock()
	req, active := c.req, c.active
	c.mu.Unlock()
	if active {
		c.load(req)
	}
}

// load fetches under a new generation. Results overtaken by a newer filter
// are dropped; a failure sends the last good report with the error.
func (c *client) load(req report.Request) {
	ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
	defer cancel()

	res := c.state.Load(ctx, func(ctx context.Context) (report.Report, error) {
		return c.hub.fetcher.Fetch(ctx, req)
	})
	if res.Stale {
		return
	}
	msg := Message{Type: TypeReport, Generation: res.Generation}
	if res.Loaded {
		rep := res.Data
		msg.Report = &rep
	}
	if res.LoadErr != nil {
		c.hub.logger.Error("Live report fetch failed", log.FieldError, res.LoadErr)
		msg.Type = TypeError
		msg.Notification = &Notification{Type: "error", Title: "Report unavailable", Message: "Could not load the report. Showing the last available data."}
	}
	c.write(msg)
}

func (c *client) notify(title, message string) {
	c.write(Message{Type: TypeError, Notification: &Notification{Type: "error", Title: title, Message: message}})
}

func (c *client) write(msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		c.hub.logger.Error("Failed to marshal live message", log.FieldError, err)
		return
	}
	c.enqueue(data)
}

// Request validates the filter and turns it into a report request.
func (f Filter) Request() (report.Request, error) {
	return report.ParseRequest(f.Period, f.Start, f.End)
}
