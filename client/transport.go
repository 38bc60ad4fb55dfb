package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// Frame is the JSON envelope of the /ws protocol
type Frame struct {
	Command     string          `json:"command"`
	Destination string          `json:"destination,omitempty"`
	Type        string          `json:"type,omitempty"`
	Body        json.RawMessage `json:"body,omitempty"`
}

// FrameHandler receives MESSAGE frames of a subscription
type FrameHandler func(Frame)

// PubSub is one publish/subscribe session
type PubSub interface {
	Subscribe(topic string, fn FrameHandler) error
	Send(destination string, body interface{}) error
	Close() error
}

// Dialer opens a PubSub session
type Dialer func(ctx context.Context) (PubSub, error)

// WSTransport is a PubSub over the server websocket endpoint
type WSTransport struct {
	ws  *websocket.Conn
	log zerolog.Logger

	writeMu   sync.Mutex
	mu        sync.RWMutex
	handlers  map[string]FrameHandler
	done      chan struct{}
	once      sync.Once
	closeOnce sync.Once
}

// WSURL turns an http(s) API base into the ws(s) endpoint
func WSURL(apiBase string) (string, error) {
	u, err := url.Parse(strings.TrimRight(apiBase, "/"))
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	case "http":
		u.Scheme = "ws"
	default:
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	u.Path += "/ws"
	return u.String(), nil
}

// WebsocketDialer dials c's websocket endpoint with its session cookie. Connection
// attempts back off exponentially for at most maxElapsed.
func WebsocketDialer(c *Client, maxElapsed time.Duration, log zerolog.Logger) Dialer {
	return func(ctx context.Context) (PubSub, error) {
		return DialWebsocket(ctx, c.BaseURL(), c.Jar(), maxElapsed, log)
	}
}

// DialWebsocket connects to apiBase/ws.
func DialWebsocket(ctx context.Context, apiBase string, jar http.CookieJar, maxElapsed time.Duration, log zerolog.Logger) (*WSTransport, error) {
	endpoint, err := WSURL(apiBase)
	if err != nil {
		return nil, err
	}
	dialer := websocket.Dialer{
		Jar:              jar,
		HandshakeTimeout: 10 * time.Second,
	}

	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = 200 * time.Millisecond
	exp.MaxInterval = 5 * time.Second
	exp.MaxElapsedTime = maxElapsed

	var ws *websocket.Conn
	operation := func() error {
		conn, resp, err := dialer.DialContext(ctx, endpoint, nil)
		if err != nil {
			if resp != nil && (resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden) {
				return backoff.Permanent(fmt.Errorf("%w: websocket handshake", ErrUnauthorized))
			}
			return err
		}
		ws = conn
		return nil
	}
	notify := func(err error, wait time.Duration) {
		log.Debug().Err(err).Dur("retry_in", wait).Msg("Websocket connect failed")
	}
	if err := backoff.RetryNotify(operation, backoff.WithContext(exp, ctx), notify); err != nil {
		if IsAuthExpired(err) {
			return nil, err
		}
		return nil, &TransportError{Op: "dial " + endpoint, Err: err}
	}

	t := &WSTransport{ws: ws, log: log, handlers: map[string]FrameHandler{}, done: make(chan struct{})}
	go t.readLoop()
	return t, nil
}

func (t *WSTransport) readLoop() {
	defer t.shutdown()
	for {
		var f Frame
		if err := t.ws.ReadJSON(&f); err != nil {
			select {
			case <-t.done:
			default:
				t.log.Debug().Err(err).Msg("Websocket closed")
			}
			return
		}
		switch f.Command {
		case "MESSAGE":
			t.mu.RLock()
			fn := t.handlers[f.Destination]
			t.mu.RUnlock()
			if fn != nil {
				fn(f)
			}
		case "ERROR":
			t.log.Warn().Str("destination", f.Destination).RawJSON("body", f.Body).Msg("Server rejected frame")
		}
	}
}

func (t *WSTransport) write(f Frame) error {
	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	_ = t.ws.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return t.ws.WriteJSON(f)
}

// Subscribe registers fn for MESSAGE frames on topic
func (t *WSTransport) Subscribe(topic string, fn FrameHandler) error {
	t.mu.Lock()
	t.handlers[topic] = fn
	t.mu.Unlock()
	return t.write(Frame{Command: "SUBSCRIBE", Destination: topic})
}

// Send publishes body to destination
func (t *WSTransport) Send(destination string, body interface{}) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}
	return t.write(Frame{Command: "SEND", Destination: destination, Body: data})
}

// Done is closed when the connection ends
func (t *WSTransport) Done() <-chan struct{} { return t.done }

func (t *WSTransport) shutdown() {
	t.once.Do(func() { close(t.done) })
}

// Close unsubscribes and closes the connection. The socket is released even when
// the server already ended the session.
func (t *WSTransport) Close() error {
	var err error
	t.closeOnce.Do(func() {
		select {
		case <-t.done:
		default:
			t.unsubscribeAll()
			t.shutdown()
			t.writeMu.Lock()
			_ = t.ws.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
			t.writeMu.Unlock()
		}
		err = t.ws.Close()
	})
	return err
}

func (t *WSTransport) unsubscribeAll() {
	t.mu.Lock()
	topics := make([]string, 0, len(t.handlers))
	for topic := range t.handlers {
		topics = append(topics, topic)
	}
	t.handlers = map[string]FrameHandler{}
	t.mu.Unlock()
	for _, topic := range topics {
		_ = t.write(Frame{Command: "UNSUBSCRIBE", Destination: topic})
	}
}
