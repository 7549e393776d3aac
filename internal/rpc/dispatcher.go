package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"

	amqp "github.com/rabbitmq/amqp091-go"
)

// HandlerFunc decodes one action's payload, invokes exactly one domain
// operation and returns its result. Decode failures must be reported as
// InvalidPayloadError before any domain call is made.
type HandlerFunc func(ctx context.Context, body []byte) (any, error)

const defaultPrefetch = 8

// Dispatcher consumes one shared queue and routes each message to the
// handler registered for its action header. Every outcome is converted to an
// Envelope and published to the message's reply queue; handler failures
// never crash the process.
type Dispatcher struct {
	ch       Channel
	queue    string
	origin   string
	prefetch int
	handlers map[string]HandlerFunc
}

// NewDispatcher creates a dispatcher for queue. Origin names this service in
// every envelope it produces, e.g. "Cat Service".
func NewDispatcher(ch Channel, queue, origin string) *Dispatcher {
	return &Dispatcher{
		ch:       ch,
		queue:    queue,
		origin:   origin,
		prefetch: defaultPrefetch,
		handlers: make(map[string]HandlerFunc),
	}
}

// Register adds a handler for an action tag. The action set is closed at
// startup; Register is not safe to call once Run has started.
func (d *Dispatcher) Register(action string, h HandlerFunc) {
	d.handlers[action] = h
}

// Dispatch executes one action and wraps the outcome. An unknown tag is
// fatal for the request only.
func (d *Dispatcher) Dispatch(ctx context.Context, action string, body []byte) Envelope {
	h, ok := d.handlers[action]
	if !ok {
		return Fail(http.StatusInternalServerError, d.origin, "Unknown action: "+action)
	}
	result, err := h(ctx, body)
	if err != nil {
		return d.failFor(err)
	}
	return OK(d.origin, result)
}

func (d *Dispatcher) failFor(err error) Envelope {
	var (
		invalid  *InvalidPayloadError
		improper *ImproperUpdateError
		notFound *NotFoundError
	)
	switch {
	case errors.As(err, &invalid):
		return Fail(http.StatusBadRequest, d.origin, "Invalid payload")
	case errors.As(err, &improper):
		return Fail(http.StatusBadRequest, d.origin, improper.Message)
	case errors.As(err, &notFound):
		return Fail(http.StatusNotFound, d.origin, notFound.Message)
	default:
		return Fail(http.StatusInternalServerError, d.origin, err.Error())
	}
}

// Run consumes the queue until ctx is cancelled. Deliveries are served
// concurrently but never more than prefetch at a time: consumption is
// manual-ack so the broker honours Qos, and a local semaphore enforces the
// same bound on the goroutines themselves. Handlers must still tolerate
// concurrent execution over the same entity.
func (d *Dispatcher) Run(ctx context.Context) error {
	if err := d.ch.Qos(d.prefetch, 0, false); err != nil {
		return fmt.Errorf("failed to set prefetch: %w", err)
	}
	deliveries, err := d.ch.Consume(d.queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("failed to consume %s: %w", d.queue, err)
	}
	log.Printf("Dispatcher started: queue=%s, origin=%s", d.queue, d.origin)

	sem := make(chan struct{}, d.prefetch)
	for {
		select {
		case <-ctx.Done():
			log.Printf("Dispatcher stopping: %s", d.queue)
			return ctx.Err()
		case delivery, ok := <-deliveries:
			if !ok {
				return fmt.Errorf("delivery channel for %s closed", d.queue)
			}
			sem <- struct{}{}
			go func(delivery amqp.Delivery) {
				defer func() { <-sem }()
				d.serve(ctx, delivery)
				if err := delivery.Ack(false); err != nil {
					log.Printf("Failed to ack delivery %q: %v", delivery.CorrelationId, err)
				}
			}(delivery)
		}
	}
}

func (d *Dispatcher) serve(ctx context.Context, delivery amqp.Delivery) {
	action, _ := delivery.Headers["action"].(string)
	env := d.Dispatch(ctx, action, delivery.Body)

	if delivery.ReplyTo == "" {
		return
	}
	body, err := json.Marshal(env)
	if err != nil {
		log.Printf("Failed to encode reply for %q: %v", action, err)
		return
	}
	err = d.ch.PublishWithContext(ctx, "", delivery.ReplyTo, false, false, amqp.Publishing{
		ContentType:   "application/json",
		CorrelationId: delivery.CorrelationId,
		Body:          body,
	})
	if err != nil {
		log.Printf("Failed to publish reply for %q: %v", action, err)
	}
}
