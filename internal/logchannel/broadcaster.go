// Package logchannel implements the analysis core's log channel: a
// websocket fan-out of human-readable progress messages tagged with a
// stoplight color and storm-intensity signal, modeled on a
// register/unregister/broadcast websocket hub.
package logchannel

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/vortrac/analysis/pkg/logger"
)

// StopLightColor mirrors the display hint the original UI used to flag
// how urgently a log line deserves attention.
type StopLightColor string

const (
	ColorAllOff     StopLightColor = "all_off"
	ColorBlinkRed   StopLightColor = "blink_red"
	ColorRed        StopLightColor = "red"
	ColorBlinkYellow StopLightColor = "blink_yellow"
	ColorYellow     StopLightColor = "yellow"
	ColorBlinkGreen StopLightColor = "blink_green"
	ColorGreen      StopLightColor = "green"
	ColorAllOn      StopLightColor = "all_on"
)

// StormSignalStatus flags whether the latest published record shows the
// storm rapidly changing.
type StormSignalStatus string

const (
	SignalRapidIncrease StormSignalStatus = "rapid_increase"
	SignalRapidDecrease StormSignalStatus = "rapid_decrease"
	SignalOK            StormSignalStatus = "ok"
)

// Message is one broadcast log entry.
type Message struct {
	Time   time.Time         `json:"time"`
	Text   string            `json:"text"`
	Color  StopLightColor    `json:"color"`
	Signal StormSignalStatus `json:"signal"`
}

// Client is one subscriber's websocket connection.
type Client struct {
	conn      *websocket.Conn
	send      chan *Message
	broadcaster *Broadcaster
	mu        sync.Mutex
	closed    bool
}

// Broadcaster fans out Messages to every connected Client.
type Broadcaster struct {
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	broadcast  chan *Message
	upgrader   websocket.Upgrader
	logger     *logger.Logger
	mu         sync.RWMutex
}

// NewBroadcaster constructs a Broadcaster. Run must be called to start
// servicing register/unregister/broadcast events.
func NewBroadcaster(log *logger.Logger) *Broadcaster {
	return &Broadcaster{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *Message, 64),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		logger: log.Named("logchannel"),
	}
}

// Run services the broadcaster's event loop until ctx is canceled.
func (b *Broadcaster) Run(ctx context.Context) {
	b.logger.Info("starting log channel broadcaster")
	for {
		select {
		case <-ctx.Done():
			b.mu.Lock()
			for client := range b.clients {
				client.mu.Lock()
				if !client.closed {
					client.closed = true
					close(client.send)
				}
				client.mu.Unlock()
				delete(b.clients, client)
			}
			b.mu.Unlock()
			return

		case client := <-b.register:
			b.mu.Lock()
			b.clients[client] = true
			b.mu.Unlock()

		case client := <-b.unregister:
			b.mu.Lock()
			if _, ok := b.clients[client]; ok {
				delete(b.clients, client)
				client.mu.Lock()
				if !client.closed {
					client.closed = true
					close(client.send)
				}
				client.mu.Unlock()
			}
			b.mu.Unlock()

		case msg := <-b.broadcast:
			b.mu.RLock()
			var stale []*Client
			for client := range b.clients {
				select {
				case client.send <- msg:
				default:
					stale = append(stale, client)
				}
			}
			b.mu.RUnlock()
			if len(stale) > 0 {
				b.mu.Lock()
				for _, client := range stale {
					if _, ok := b.clients[client]; ok {
						delete(b.clients, client)
						client.mu.Lock()
						if !client.closed {
							client.closed = true
							close(client.send)
						}
						client.mu.Unlock()
					}
				}
				b.mu.Unlock()
			}
		}
	}
}

// Publish enqueues a message for broadcast. It never blocks: a full
// broadcast queue drops the message and logs a warning, since the log
// channel is a best-effort progress feed, not a durable record.
func (b *Broadcaster) Publish(msg *Message) {
	select {
	case b.broadcast <- msg:
	default:
		b.logger.Warn("log channel broadcast queue full, dropping message", logger.String("text", msg.Text))
	}
}

// ServeWS upgrades an HTTP request to a websocket connection and
// registers it as a subscriber.
func (b *Broadcaster) ServeWS(w http.ResponseWriter, r *http.Request) error {
	conn, err := b.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}

	client := &Client{conn: conn, send: make(chan *Message, 16), broadcaster: b}
	b.register <- client

	go client.writePump()
	go client.readPump()
	return nil
}

func (c *Client) writePump() {
	defer c.conn.Close()
	for msg := range c.send {
		if err := c.conn.WriteJSON(msg); err != nil {
			c.broadcaster.unregister <- c
			return
		}
	}
	c.conn.WriteMessage(websocket.CloseMessage, []byte{})
}

func (c *Client) readPump() {
	defer func() {
		c.broadcaster.unregister <- c
		c.conn.Close()
	}()
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}
