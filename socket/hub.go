package socket

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"studysync/helpers"
	"studysync/metrics"
	"studysync/services"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// Frame commands
const (
	CommandSubscribe   = "SUBSCRIBE"
	CommandUnsubscribe = "UNSUBSCRIBE"
	CommandSend        = "SEND"
	CommandMessage     = "MESSAGE"
	CommandError       = "ERROR"
)

// Frame is the JSON envelope exchanged over /ws
type Frame struct {
	Command     string          `json:"command"`
	Destination string          `json:"destination,omitempty"`
	Type        string          `json:"type,omitempty"`
	Body        json.RawMessage `json:"body,omitempty"`
}

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
	sendBuffer = 64
)

// Listener observes every frame the hub delivers
type Listener func(topic string, f Frame)

// Hub tracks websocket connections and their topic subscriptions.
// It implements services.Broadcaster.
type Hub struct {
	Chat     *services.ChatService
	Broker   Broker
	Log      zerolog.Logger
	Upgrader websocket.Upgrader

	mu        sync.RWMutex
	topics    map[string]map[*conn]struct{}
	listeners []Listener
}

// NewHub subscribes the hub to broker. A nil broker means a LocalBroker.
func NewHub(broker Broker, log zerolog.Logger) (*Hub, error) {
	if broker == nil {
		broker = NewLocalBroker()
	}
	h := &Hub{
		Broker: broker,
		Log:    log,
		Upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		topics: map[string]map[*conn]struct{}{},
	}
	if err := broker.Subscribe(h.deliver); err != nil {
		return nil, err
	}
	return h, nil
}

// Broadcast publishes payload to topic through the broker
func (h *Hub) Broadcast(topic, eventType string, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	data, err := json.Marshal(Frame{Command: CommandMessage, Destination: topic, Type: eventType, Body: body})
	if err != nil {
		return err
	}
	return h.Broker.Publish(topic, data)
}

// AddListener registers fn for every delivered frame
func (h *Hub) AddListener(fn Listener) {
	h.mu.Lock()
	h.listeners = append(h.listeners, fn)
	h.mu.Unlock()
}

func (h *Hub) deliver(topic string, data []byte) {
	h.mu.RLock()
	subs := make([]*conn, 0, len(h.topics[topic]))
	for c := range h.topics[topic] {
		subs = append(subs, c)
	}
	listeners := append([]Listener(nil), h.listeners...)
	h.mu.RUnlock()

	for _, c := range subs {
		c.enqueue(data)
	}
	if len(listeners) == 0 {
		return
	}
	var f Frame
	if err := json.Unmarshal(data, &f); err != nil {
		h.Log.Warn().Err(err).Str("topic", topic).Msg("Dropping undecodable frame")
		return
	}
	for _, fn := range listeners {
		fn(topic, f)
	}
}

// Subscribers returns the number of connections subscribed to topic
func (h *Hub) Subscribers(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.topics[topic])
}

func (h *Hub) subscribe(c *conn, topic string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.topics[topic]
	if !ok {
		set = map[*conn]struct{}{}
		h.topics[topic] = set
	}
	set[c] = struct{}{}
}

func (h *Hub) unsubscribe(c *conn, topic string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if set, ok := h.topics[topic]; ok {
		delete(set, c)
		if len(set) == 0 {
			delete(h.topics, topic)
		}
	}
}

func (h *Hub) drop(c *conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for topic, set := range h.topics {
		delete(set, c)
		if len(set) == 0 {
			delete(h.topics, topic)
		}
	}
}

// ServeWS upgrades an authenticated request and serves frames until the peer leaves
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	userID, ok := helpers.UserIDFrom(r.Context())
	if !ok {
		helpers.WriteError(w, http.StatusUnauthorized, "Unauthorized", "Not authenticated")
		return
	}
	ws, err := h.Upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.Log.Warn().Err(err).Msg("Websocket upgrade failed")
		return
	}

	c := &conn{hub: h, ws: ws, userID: userID, send: make(chan []byte, sendBuffer), done: make(chan struct{})}
	metrics.WebsocketConnections.Inc()
	h.Log.Info().Int64("user_id", userID).Msg("✅ Websocket connected")

	go c.writePump()
	c.readPump()

	h.drop(c)
	c.close()
	metrics.WebsocketConnections.Dec()
	h.Log.Info().Int64("user_id", userID).Msg("Websocket disconnected")
}

// conn is one websocket peer
type conn struct {
	hub    *Hub
	ws     *websocket.Conn
	userID int64
	send   chan []byte

	closeOnce sync.Once
	done      chan struct{}
}

func (c *conn) close() {
	c.closeOnce.Do(func() { close(c.done) })
}

// enqueue drops the frame when the peer is not keeping up
func (c *conn) enqueue(data []byte) {
	select {
	case <-c.done:
	case c.send <- data:
	default:
		c.hub.Log.Warn().Int64("user_id", c.userID).Msg("Websocket send buffer full, dropping frame")
	}
}

func (c *conn) sendFrame(f Frame) {
	data, err := json.Marshal(f)
	if err != nil {
		return
	}
	c.enqueue(data)
}

func (c *conn) sendError(destination, message string) {
	body, _ := json.Marshal(map[string]string{"message": message})
	c.sendFrame(Frame{Command: CommandError, Destination: destination, Body: body})
}

func (c *conn) readPump() {
	c.ws.SetReadLimit(64 * 1024)
	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		var f Frame
		if err := c.ws.ReadJSON(&f); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.Log.Debug().Err(err).Int64("user_id", c.userID).Msg("Websocket read failed")
			}
			return
		}
		c.handle(f)
	}
}

func (c *conn) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.ws.Close()
	}()
	for {
		select {
		case <-c.done:
			_ = c.ws.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
			return
		case data := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
				c.close()
				return
			}
		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.close()
				return
			}
		}
	}
}

// matchIDFrom extracts the id from /topic/chat/{id} or /app/chat/{id}/...
func matchIDFrom(destination, prefix string) (int64, string, bool) {
	rest := strings.TrimPrefix(destination, prefix)
	if rest == destination {
		return 0, "", false
	}
	idPart, action, _ := strings.Cut(rest, "/")
	id, err := strconv.ParseInt(idPart, 10, 64)
	if err != nil || id <= 0 {
		return 0, "", false
	}
	return id, action, true
}

func (c *conn) handle(f Frame) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	switch f.Command {
	case CommandSubscribe:
		matchID, rest, ok := matchIDFrom(f.Destination, "/topic/chat/")
		if !ok || rest != "" {
			c.sendError(f.Destination, "Unknown destination")
			return
		}
		if _, err := c.hub.Chat.Authorize(ctx, matchID, c.userID); err != nil {
			c.sendError(f.Destination, services.UserMessage(err, "Subscription refused"))
			return
		}
		c.hub.subscribe(c, f.Destination)

	case CommandUnsubscribe:
		c.hub.unsubscribe(c, f.Destination)

	case CommandSend:
		matchID, action, ok := matchIDFrom(f.Destination, "/app/chat/")
		if !ok {
			c.sendError(f.Destination, "Unknown destination")
			return
		}
		switch action {
		case "sendMessage":
			var in services.PostMessageInput
			if err := json.Unmarshal(f.Body, &in); err != nil {
				c.sendError(f.Destination, "Invalid message body")
				return
			}
			if in.SenderID != 0 && in.SenderID != c.userID {
				c.sendError(f.Destination, "You can only send messages as yourself")
				return
			}
			in.MatchID = matchID
			in.SenderID = c.userID
			if _, _, err := c.hub.Chat.PostMessage(ctx, in); err != nil {
				c.sendError(f.Destination, services.UserMessage(err, "Failed to send message"))
			}
		case "addUser":
			if err := c.hub.Chat.AnnounceJoin(ctx, matchID, c.userID); err != nil {
				c.sendError(f.Destination, services.UserMessage(err, "Failed to join"))
			}
		default:
			c.sendError(f.Destination, "Unknown destination")
		}

	default:
		c.sendError(f.Destination, "Unknown command "+f.Command)
	}
}

// Close releases the broker
func (h *Hub) Close() error {
	return h.Broker.Close()
}
