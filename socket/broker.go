package socket

import (
	"fmt"
	"strings"
	"sync"

	"studysync/metrics"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
)

// DeliverFunc receives every frame published on a topic
type DeliverFunc func(topic string, data []byte)

// Broker carries encoded frames between hubs
type Broker interface {
	Publish(topic string, data []byte) error
	Subscribe(fn DeliverFunc) error
	Close() error
}

// LocalBroker delivers in-process, synchronously
type LocalBroker struct {
	mu       sync.RWMutex
	handlers []DeliverFunc
}

func NewLocalBroker() *LocalBroker {
	return &LocalBroker{}
}

func (b *LocalBroker) Publish(topic string, data []byte) error {
	b.mu.RLock()
	handlers := append([]DeliverFunc(nil), b.handlers...)
	b.mu.RUnlock()
	for _, fn := range handlers {
		fn(topic, data)
	}
	return nil
}

func (b *LocalBroker) Subscribe(fn DeliverFunc) error {
	b.mu.Lock()
	b.handlers = append(b.handlers, fn)
	b.mu.Unlock()
	return nil
}

func (b *LocalBroker) Close() error { return nil }

// SubjectPrefix is the NATS subject namespace for chat topics
const SubjectPrefix = "studysync.chat"

// SubjectFor maps /topic/chat/42 to studysync.chat.42
func SubjectFor(topic string) (string, error) {
	id := strings.TrimPrefix(topic, "/topic/chat/")
	if id == topic || id == "" || strings.ContainsAny(id, ". *>") {
		return "", fmt.Errorf("unsupported topic %q", topic)
	}
	return SubjectPrefix + "." + id, nil
}

// TopicFor is the inverse of SubjectFor
func TopicFor(subject string) string {
	return "/topic/chat/" + strings.TrimPrefix(subject, SubjectPrefix+".")
}

// NATSBroker fans frames out through a NATS server so several API instances share subscribers
type NATSBroker struct {
	conn *nats.Conn
	sub  *nats.Subscription
	log  zerolog.Logger
}

// NewNATSBroker connects to url.
func NewNATSBroker(url string, log zerolog.Logger) (*NATSBroker, error) {
	nc, err := nats.Connect(url,
		nats.Name("studysync-api"),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Warn().Err(err).Msg("NATS disconnected")
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			log.Info().Str("url", c.ConnectedUrl()).Msg("NATS reconnected")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS at %s: %w", url, err)
	}
	log.Info().Str("url", nc.ConnectedUrl()).Msg("✅ Connected to NATS")
	return &NATSBroker{conn: nc, log: log}, nil
}

func (b *NATSBroker) Publish(topic string, data []byte) error {
	subject, err := SubjectFor(topic)
	if err != nil {
		return err
	}
	if err := b.conn.Publish(subject, data); err != nil {
		metrics.BrokerPublishErrorsTotal.Inc()
		return fmt.Errorf("publish %s: %w", subject, err)
	}
	return nil
}

func (b *NATSBroker) Subscribe(fn DeliverFunc) error {
	sub, err := b.conn.Subscribe(SubjectPrefix+".>", func(m *nats.Msg) {
		fn(TopicFor(m.Subject), m.Data)
	})
	if err != nil {
		return fmt.Errorf("subscribe %s.>: %w", SubjectPrefix, err)
	}
	b.sub = sub
	return nil
}

func (b *NATSBroker) Close() error {
	if b.sub != nil {
		_ = b.sub.Unsubscribe()
	}
	return b.conn.Drain()
}
