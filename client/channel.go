package client

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"studysync/metrics"
	"studysync/models"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// DefaultPollInterval is the fixed message poll period
const DefaultPollInterval = 3 * time.Second

// Channel notices
const (
	MsgSendFailed        = "Failed to send message"
	MsgNetworkSendFailed = "Network error sending message"
)

// ChannelAPI is the part of *Client a Channel needs
type ChannelAPI interface {
	Messages(ctx context.Context, matchID int64) ([]models.Message, error)
	PostMessage(ctx context.Context, matchID int64, m OutgoingMessage) (*models.Message, error)
}

// ChannelOptions configures OpenChannel
type ChannelOptions struct {
	// PollInterval defaults to DefaultPollInterval
	PollInterval time.Duration
	// Dial opens the pub/sub session. Nil means polling only.
	Dial     Dialer
	Notifier Notifier
	Log      zerolog.Logger
}

// Channel keeps one conversation in sync
type Channel struct {
	api     ChannelAPI
	matchID int64
	self    *models.User
	opts    ChannelOptions
	stream  *MessageStream
	updates chan struct{}

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu        sync.Mutex
	pubsub    PubSub
	closeOnce sync.Once
}

// ChatTopic is the topic of a match conversation
func ChatTopic(matchID int64) string {
	return fmt.Sprintf("/topic/chat/%d", matchID)
}

func sendDestination(matchID int64) string {
	return fmt.Sprintf("/app/chat/%d/sendMessage", matchID)
}

func joinDestination(matchID int64) string {
	return fmt.Sprintf("/app/chat/%d/addUser", matchID)
}

// OpenChannel loads the history of matchID, starts polling and, when opts.Dial is
// set, subscribes to the match topic. A failed dial leaves the channel polling.
func OpenChannel(ctx context.Context, api ChannelAPI, matchID int64, self *models.User, opts ChannelOptions) (*Channel, error) {
	if self == nil {
		return nil, ErrNotAuthenticated
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	if opts.Notifier == nil {
		opts.Notifier = nopNotifier{}
	}

	history, err := api.Messages(ctx, matchID)
	if err != nil {
		return nil, err
	}

	runCtx, cancel := context.WithCancel(context.Background())
	c := &Channel{
		api:     api,
		matchID: matchID,
		self:    self,
		opts:    opts,
		stream:  NewMessageStream(),
		updates: make(chan struct{}, 1),
		ctx:     runCtx,
		cancel:  cancel,
	}
	c.stream.ReplaceSnapshot(history)

	c.wg.Add(1)
	go c.pollLoop()

	if opts.Dial != nil {
		c.connect(ctx)
	}
	return c, nil
}

func (c *Channel) connect(ctx context.Context) {
	ps, err := c.opts.Dial(ctx)
	if err != nil {
		c.opts.Log.Warn().Err(err).Int64("match_id", c.matchID).Msg("Realtime unavailable, polling only")
		return
	}
	if err := ps.Subscribe(ChatTopic(c.matchID), c.onFrame); err != nil {
		c.opts.Log.Warn().Err(err).Msg("Subscribe failed, polling only")
		_ = ps.Close()
		return
	}
	_ = ps.Send(joinDestination(c.matchID), map[string]interface{}{"senderId": c.self.ID, "matchId": c.matchID})

	c.mu.Lock()
	c.pubsub = ps
	c.mu.Unlock()
}

func (c *Channel) onFrame(f Frame) {
	if f.Type != "" && f.Type != "CHAT" {
		return
	}
	var m models.Message
	if err := json.Unmarshal(f.Body, &m); err != nil {
		c.opts.Log.Debug().Err(err).Msg("Ignoring undecodable frame")
		return
	}
	if c.ctx.Err() != nil {
		return
	}
	if c.stream.Merge(m) {
		c.signal()
	}
}

func (c *Channel) pollLoop() {
	defer c.wg.Done()
	ticker := time.NewTicker(c.opts.PollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-c.ctx.Done():
			return
		case <-ticker.C:
			c.poll()
		}
	}
}

func (c *Channel) poll() {
	msgs, err := c.api.Messages(c.ctx, c.matchID)
	if c.ctx.Err() != nil {
		return
	}
	if err != nil {
		metrics.ClientPollsTotal.WithLabelValues("error").Inc()
		c.opts.Log.Debug().Err(err).Int64("match_id", c.matchID).Msg("Message poll failed")
		return
	}
	metrics.ClientPollsTotal.WithLabelValues("ok").Inc()
	if c.stream.ReplaceSnapshot(msgs) {
		c.signal()
	}
}

func (c *Channel) signal() {
	select {
	case c.updates <- struct{}{}:
	default:
	}
}

// Send persists text over REST, merges the stored copy and re-announces it on the
// pub/sub session when one is open.
func (c *Channel) Send(ctx context.Context, text string) (*models.Message, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyMessage
	}
	out := OutgoingMessage{
		SenderID:        c.self.ID,
		Message:         text,
		MessageType:     models.MessageTypeText,
		ClientMessageID: uuid.NewString(),
	}
	saved, err := c.api.PostMessage(ctx, c.matchID, out)
	if err != nil {
		if IsTransport(err) {
			c.opts.Notifier.Error(MsgNetworkSendFailed)
		} else {
			c.opts.Notifier.Error(MsgSendFailed)
		}
		return nil, err
	}
	if c.ctx.Err() == nil && c.stream.Merge(*saved) {
		c.signal()
	}

	c.mu.Lock()
	ps := c.pubsub
	c.mu.Unlock()
	if ps != nil {
		if err := ps.Send(sendDestination(c.matchID), out); err != nil {
			c.opts.Log.Debug().Err(err).Msg("Realtime re-announce failed")
		}
	}
	return saved, nil
}

// Messages returns the conversation snapshot
func (c *Channel) Messages() []models.Message {
	return c.stream.Messages()
}

// Updates is signalled after the conversation changes. Signals coalesce.
func (c *Channel) Updates() <-chan struct{} {
	return c.updates
}

// Realtime reports whether a pub/sub session is open
func (c *Channel) Realtime() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pubsub != nil
}

// Close stops polling and tears down the pub/sub session
func (c *Channel) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.cancel()
		c.wg.Wait()
		c.mu.Lock()
		ps := c.pubsub
		c.pubsub = nil
		c.mu.Unlock()
		if ps != nil {
			err = ps.Close()
		}
	})
	return err
}
