// Package eventbus decouples the gateway adapter process from the
// strategy-core process: fill events, funding-payment events, and status
// snapshots travel over NATS JetStream rather than a direct function call,
// so an engine process can restart independently of the gateway that feeds
// it. Adapted from the OMS's pkg/nats client, renamed to this domain's
// subjects (§6 Event bus).
package eventbus

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"
)

// Client wraps a NATS JetStream connection scoped to the fills/funding/
// status subjects this module publishes and subscribes to.
type Client struct {
	conn   *nats.Conn
	js     nats.JetStreamContext
	logger *logrus.Entry
	config *Config
}

// Config holds connection and stream configuration.
type Config struct {
	URL       string
	ClientID  string
	Streams   []StreamConfig
}

// StreamConfig defines one JetStream stream to ensure exists at startup.
type StreamConfig struct {
	Name      string
	Subjects  []string
	Retention nats.RetentionPolicy
	MaxAge    time.Duration
	MaxMsgs   int64
}

// DefaultStreams returns the three streams this module's subjects need:
// fills, funding payments, and status snapshots.
func DefaultStreams() []StreamConfig {
	return []StreamConfig{
		{Name: "FILLS", Subjects: []string{"fills.>"}, Retention: nats.LimitsPolicy, MaxAge: 24 * time.Hour},
		{Name: "FUNDING", Subjects: []string{"funding.>"}, Retention: nats.LimitsPolicy, MaxAge: 7 * 24 * time.Hour},
		{Name: "STATUS", Subjects: []string{"status.>"}, Retention: nats.LimitsPolicy, MaxMsgs: 1000},
	}
}

// NewClient connects to NATS, opens a JetStream context, and ensures every
// configured stream exists.
func NewClient(config *Config) (*Client, error) {
	logger := logrus.WithField("component", "eventbus")

	opts := []nats.Option{
		nats.Name(config.ClientID),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(time.Second),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			logger.Errorf("eventbus disconnected: %v", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("eventbus reconnected")
		}),
		nats.ErrorHandler(func(nc *nats.Conn, sub *nats.Subscription, err error) {
			logger.Errorf("eventbus error: %v", err)
		}),
	}

	conn, err := nats.Connect(config.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("eventbus: connect: %w", err)
	}

	js, err := conn.JetStream()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("eventbus: jetstream context: %w", err)
	}

	client := &Client{conn: conn, js: js, logger: logger, config: config}

	if err := client.initializeStreams(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("eventbus: initialize streams: %w", err)
	}

	return client, nil
}

func (c *Client) initializeStreams() error {
	for _, streamConfig := range c.config.Streams {
		cfg := &nats.StreamConfig{
			Name:      streamConfig.Name,
			Subjects:  streamConfig.Subjects,
			Retention: streamConfig.Retention,
			MaxAge:    streamConfig.MaxAge,
			MaxMsgs:   streamConfig.MaxMsgs,
			Storage:   nats.FileStorage,
			Replicas:  1,
		}

		if _, err := c.js.StreamInfo(streamConfig.Name); err == nil {
			if _, err := c.js.UpdateStream(cfg); err != nil {
				return fmt.Errorf("update stream %s: %w", streamConfig.Name, err)
			}
			c.logger.Infof("updated stream: %s", streamConfig.Name)
		} else {
			if _, err := c.js.AddStream(cfg); err != nil {
				return fmt.Errorf("create stream %s: %w", streamConfig.Name, err)
			}
			c.logger.Infof("created stream: %s", streamConfig.Name)
		}
	}
	return nil
}

// Close closes the underlying NATS connection.
func (c *Client) Close() {
	if c.conn != nil {
		c.conn.Close()
	}
}

// FillEvent is published whenever a gateway reports a confirmed own-trade.
type FillEvent struct {
	Exchange string          `json:"exchange"`
	Market   string          `json:"market"`
	Side     string          `json:"side"`
	Amount   json.Number     `json:"amount"`
	Price    json.Number     `json:"price"`
	Time     time.Time       `json:"time"`
}

// FundingPaymentEvent is published whenever a perpetual gateway reports a
// completed funding payment for an active FRA leg.
type FundingPaymentEvent struct {
	Venue  string      `json:"venue"`
	Token  string      `json:"token"`
	Amount json.Number `json:"amount"`
	Time   time.Time   `json:"time"`
}

// PublishFill publishes a fill event to fills.<exchange>.<market>.
func (c *Client) PublishFill(event FillEvent) error {
	subject := fmt.Sprintf("fills.%s.%s", event.Exchange, event.Market)
	return c.publish(subject, event)
}

// PublishFundingPayment publishes a funding-payment event to
// funding.<venue>.<token>.
func (c *Client) PublishFundingPayment(event FundingPaymentEvent) error {
	subject := fmt.Sprintf("funding.%s.%s", event.Venue, event.Token)
	return c.publish(subject, event)
}

// PublishStatus publishes a status snapshot string to status.<engine>.
func (c *Client) PublishStatus(engine string, report string) error {
	subject := fmt.Sprintf("status.%s", engine)
	return c.publish(subject, report)
}

func (c *Client) publish(subject string, data interface{}) error {
	msg, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("eventbus: marshal: %w", err)
	}
	if _, err := c.js.Publish(subject, msg); err != nil {
		return fmt.Errorf("eventbus: publish %s: %w", subject, err)
	}
	c.logger.Debugf("published to %s", subject)
	return nil
}

// MessageHandler processes an incoming message's raw payload.
type MessageHandler func(subject string, data []byte) error

// Subscription wraps a durable JetStream subscription.
type Subscription struct {
	sub    *nats.Subscription
	logger *logrus.Entry
}

// Unsubscribe cancels the subscription.
func (s *Subscription) Unsubscribe() error {
	if err := s.sub.Unsubscribe(); err != nil {
		return fmt.Errorf("eventbus: unsubscribe: %w", err)
	}
	s.logger.Info("unsubscribed")
	return nil
}

// SubscribeFills subscribes to every fill event across all exchanges and
// markets.
func (c *Client) SubscribeFills(handler MessageHandler) (*Subscription, error) {
	return c.subscribe("fills.>", handler)
}

// SubscribeFunding subscribes to every funding-payment event.
func (c *Client) SubscribeFunding(handler MessageHandler) (*Subscription, error) {
	return c.subscribe("funding.>", handler)
}

func (c *Client) subscribe(subject string, handler MessageHandler) (*Subscription, error) {
	sub, err := c.js.Subscribe(subject, func(msg *nats.Msg) {
		if err := handler(msg.Subject, msg.Data); err != nil {
			c.logger.Errorf("handler error for %s: %v", msg.Subject, err)
		}
		msg.Ack()
	}, nats.Durable(fmt.Sprintf("tradecore-%s", sanitizeSubject(subject))))
	if err != nil {
		return nil, fmt.Errorf("eventbus: subscribe %s: %w", subject, err)
	}

	c.logger.Infof("subscribed to %s", subject)
	return &Subscription{sub: sub, logger: c.logger}, nil
}

func sanitizeSubject(subject string) string {
	out := make([]byte, len(subject))
	for i := 0; i < len(subject); i++ {
		switch subject[i] {
		case '.', '>', '*':
			out[i] = '-'
		default:
			out[i] = subject[i]
		}
	}
	return string(out)
}
