package rpc

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/Mikkkkkkka/cat-accounts-api/internal/utils"
)

// Channel is the subset of the amqp091 channel API this package uses.
// *amqp091.Channel satisfies it; tests substitute an in-memory fake.
type Channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error)
	Qos(prefetchCount, prefetchSize int, global bool) error
}

const defaultCallTimeout = 5 * time.Second

// ClientConfig names the request route of one target service.
type ClientConfig struct {
	Exchange   string
	RoutingKey string
	// Service is the human-readable target name carried by
	// ServiceUnavailableError.
	Service string
	// Timeout bounds each call; zero means defaultCallTimeout.
	Timeout time.Duration
}

// Client performs blocking, correlated calls against one domain service.
// Replies arrive on an exclusive auto-delete queue and are demultiplexed by
// correlation id, so any number of in-flight calls share one channel.
type Client struct {
	ch      Channel
	cfg     ClientConfig
	replyTo string

	mu      sync.Mutex
	pending map[string]chan Envelope
}

// NewClient declares the client's reply queue and starts consuming from it.
func NewClient(ch Channel, cfg ClientConfig) (*Client, error) {
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultCallTimeout
	}
	q, err := ch.QueueDeclare("", false, true, true, false, nil)
	if err != nil {
		return nil, err
	}
	deliveries, err := ch.Consume(q.Name, "", true, true, false, false, nil)
	if err != nil {
		return nil, err
	}
	c := &Client{
		ch:      ch,
		cfg:     cfg,
		replyTo: q.Name,
		pending: make(map[string]chan Envelope),
	}
	go c.readReplies(deliveries)
	return c, nil
}

func (c *Client) readReplies(deliveries <-chan amqp.Delivery) {
	for d := range deliveries {
		var env Envelope
		if err := json.Unmarshal(d.Body, &env); err != nil {
			log.Printf("rpc: dropping malformed reply %q: %v", d.CorrelationId, err)
			continue
		}
		c.mu.Lock()
		waiter, ok := c.pending[d.CorrelationId]
		delete(c.pending, d.CorrelationId)
		c.mu.Unlock()
		if ok {
			waiter <- env
		}
	}
}

// Call encodes payload, publishes it tagged with action, and blocks until a
// correlated reply arrives or the timeout elapses. On a 200 reply the data
// is decoded into out (which may be nil); any other status becomes a
// RemoteError and a missing reply becomes a ServiceUnavailableError.
func (c *Client) Call(ctx context.Context, action string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return &InvalidPayloadError{Err: err}
	}

	corrID := utils.GenerateID("req")
	waiter := make(chan Envelope, 1)
	c.mu.Lock()
	c.pending[corrID] = waiter
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		delete(c.pending, corrID)
		c.mu.Unlock()
	}()

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	err = c.ch.PublishWithContext(ctx, c.cfg.Exchange, c.cfg.RoutingKey, false, false, amqp.Publishing{
		ContentType:   "application/json",
		CorrelationId: corrID,
		ReplyTo:       c.replyTo,
		Headers:       amqp.Table{"action": action},
		Body:          body,
	})
	if err != nil {
		return &ServiceUnavailableError{Service: c.cfg.Service}
	}

	select {
	case env := <-waiter:
		return c.decodeReply(env, out)
	case <-ctx.Done():
		return &ServiceUnavailableError{Service: c.cfg.Service}
	}
}

func (c *Client) decodeReply(env Envelope, out any) error {
	if env.Status != http.StatusOK {
		msg := env.Message
		if msg == "" {
			var eb errorBody
			if err := json.Unmarshal(env.Data, &eb); err == nil {
				msg = eb.Message
			}
		}
		return &RemoteError{Status: env.Status, Message: msg}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return &InvalidPayloadError{Err: err}
	}
	return nil
}
