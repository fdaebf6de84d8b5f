package http

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"matchcast/db"
)

const (
	feedWriteWait      = 10 * time.Second
	feedClientBacklog  = 16
	feedBroadcastQueue = 64
)

// feedEvent is what subscribers receive for every stored prediction.
type feedEvent struct {
	Type       string        `json:"type"`
	Timestamp  time.Time     `json:"timestamp"`
	Prediction db.Prediction `json:"prediction"`
}

// Feed pushes every successful prediction to connected WebSocket clients.
// Slow clients are dropped rather than allowed to stall the hub.
type Feed struct {
	upgrader   websocket.Upgrader
	register   chan *feedClient
	unregister chan *feedClient
	broadcast  chan []byte
	done       chan struct{}
	logger     *zap.Logger
}

type feedClient struct {
	conn *websocket.Conn
	send chan []byte
}

func NewFeed(logger *zap.Logger) *Feed {
	f := &Feed{
		upgrader: websocket.Upgrader{
			// Same openness as the HTTP CORS policy.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		register:   make(chan *feedClient),
		unregister: make(chan *feedClient),
		broadcast:  make(chan []byte, feedBroadcastQueue),
		done:       make(chan struct{}),
		logger:     logger,
	}
	go f.run()
	return f
}

func (f *Feed) run() {
	clients := make(map[*feedClient]bool)
	for {
		select {
		case client := <-f.register:
			clients[client] = true
		case client := <-f.unregister:
			if clients[client] {
				delete(clients, client)
				close(client.send)
			}
		case message := <-f.broadcast:
			for client := range clients {
				select {
				case client.send <- message:
				default:
					delete(clients, client)
					close(client.send)
				}
			}
		case <-f.done:
			for client := range clients {
				delete(clients, client)
				close(client.send)
			}
			return
		}
	}
}

// Publish broadcasts a stored prediction to all subscribers.
func (f *Feed) Publish(rec db.Prediction) {
	payload, err := json.Marshal(feedEvent{
		Type:       "prediction",
		Timestamp:  time.Now().UTC(),
		Prediction: rec,
	})
	if err != nil {
		f.logger.Error("encode feed event", zap.Error(err))
		return
	}
	select {
	case f.broadcast <- payload:
	default:
		f.logger.Warn("feed broadcast queue full, dropping event")
	}
}

// ServeHTTP upgrades the connection and subscribes it to the feed.
func (f *Feed) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := f.upgrader.Upgrade(w, r, nil)
	if err != nil {
		f.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	client := &feedClient{conn: conn, send: make(chan []byte, feedClientBacklog)}
	f.register <- client

	go f.writePump(client)
	go f.readPump(client)
}

func (f *Feed) writePump(client *feedClient) {
	defer client.conn.Close()
	for message := range client.send {
		client.conn.SetWriteDeadline(time.Now().Add(feedWriteWait))
		if err := client.conn.WriteMessage(websocket.TextMessage, message); err != nil {
			return
		}
	}
	client.conn.WriteMessage(websocket.CloseMessage, []byte{})
}

// readPump discards inbound frames; the feed is one-way. It exists to
// notice the client closing the connection.
func (f *Feed) readPump(client *feedClient) {
	defer func() {
		select {
		case f.unregister <- client:
		case <-f.done:
		}
		client.conn.Close()
	}()
	for {
		if _, _, err := client.conn.ReadMessage(); err != nil {
			return
		}
	}
}

// Close disconnects all subscribers and stops the hub.
func (f *Feed) Close() {
	close(f.done)
}
