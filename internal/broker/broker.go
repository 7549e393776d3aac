// Package broker wraps the RabbitMQ connection and declares the fixed
// request topology: one topic exchange per domain service, bound to one
// queue by one routing key. Replies travel over the default exchange to
// per-client reply queues, so no reply topology is declared here.
package broker

import (
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Topology names one service's request route.
type Topology struct {
	Exchange   string
	Queue      string
	RoutingKey string
}

var (
	CatTopology   = Topology{Exchange: "cat_exchange", Queue: "cat_queue", RoutingKey: "cat_routing_key"}
	OwnerTopology = Topology{Exchange: "owner_exchange", Queue: "owner_queue", RoutingKey: "owner_routing_key"}
)

type Client struct {
	conn *amqp.Connection
}

// Dial connects to RabbitMQ. The connection is shared process-wide; callers
// open one channel per consumer or publisher.
func Dial(url string) (*Client, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to broker: %w", err)
	}
	return &Client{conn: conn}, nil
}

func (c *Client) Channel() (*amqp.Channel, error) {
	ch, err := c.conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}
	return ch, nil
}

func (c *Client) Close() error {
	return c.conn.Close()
}

// Declare sets up a service's exchange, queue and binding. Declaration is
// idempotent, so both the service and the gateway may call it at startup.
func Declare(ch *amqp.Channel, t Topology) error {
	if err := ch.ExchangeDeclare(t.Exchange, "topic", true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare exchange %s: %w", t.Exchange, err)
	}
	if _, err := ch.QueueDeclare(t.Queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare queue %s: %w", t.Queue, err)
	}
	if err := ch.QueueBind(t.Queue, t.RoutingKey, t.Exchange, false, nil); err != nil {
		return fmt.Errorf("failed to bind queue %s: %w", t.Queue, err)
	}
	return nil
}
