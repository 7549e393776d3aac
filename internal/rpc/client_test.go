package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// fakeChannel stands in for the broker: publishes run through onPublish and
// replies are injected into the delivery stream returned by Consume.
type fakeChannel struct {
	deliveries chan amqp.Delivery
	onPublish  func(exchange, key string, msg amqp.Publishing) error
}

func newFakeChannel() *fakeChannel {
	return &fakeChannel{deliveries: make(chan amqp.Delivery, 64)}
}

func (f *fakeChannel) PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
	if f.onPublish != nil {
		return f.onPublish(exchange, key, msg)
	}
	return nil
}

func (f *fakeChannel) QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error) {
	return amqp.Queue{Name: "test-reply-queue"}, nil
}

func (f *fakeChannel) Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error) {
	return f.deliveries, nil
}

func (f *fakeChannel) Qos(prefetchCount, prefetchSize int, global bool) error {
	return nil
}

// reply injects a correlated reply as if the remote service had published it.
func (f *fakeChannel) reply(corrID string, env Envelope) {
	body, _ := json.Marshal(env)
	f.deliveries <- amqp.Delivery{CorrelationId: corrID, Body: body}
}

func newTestClient(t *testing.T, ch Channel, timeout time.Duration) *Client {
	t.Helper()
	client, err := NewClient(ch, ClientConfig{
		Exchange:   "cat_exchange",
		RoutingKey: "cat_routing_key",
		Service:    "Cat Service",
		Timeout:    timeout,
	})
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}
	return client
}

func TestCallRoundTrip(t *testing.T) {
	ch := newFakeChannel()
	ch.onPublish = func(exchange, key string, msg amqp.Publishing) error {
		if exchange != "cat_exchange" || key != "cat_routing_key" {
			t.Errorf("published to %s/%s", exchange, key)
		}
		if action, _ := msg.Headers["action"].(string); action != "GET_CAT_BY_ID" {
			t.Errorf("expected action header GET_CAT_BY_ID, got %v", msg.Headers["action"])
		}
		if msg.ReplyTo != "test-reply-queue" {
			t.Errorf("expected reply-to test-reply-queue, got %q", msg.ReplyTo)
		}
		var id int64
		if err := json.Unmarshal(msg.Body, &id); err != nil {
			t.Errorf("failed to decode request body: %v", err)
		}
		ch.reply(msg.CorrelationId, OK("Cat Service", map[string]any{"id": id, "name": "Whiskers"}))
		return nil
	}
	client := newTestClient(t, ch, time.Second)

	var cat struct {
		ID   int64  `json:"id"`
		Name string `json:"name"`
	}
	if err := client.Call(context.Background(), "GET_CAT_BY_ID", int64(7), &cat); err != nil {
		t.Fatalf("call failed: %v", err)
	}
	if cat.ID != 7 || cat.Name != "Whiskers" {
		t.Errorf("unexpected result: %+v", cat)
	}
}

func TestCallRemoteError(t *testing.T) {
	ch := newFakeChannel()
	ch.onPublish = func(exchange, key string, msg amqp.Publishing) error {
		ch.reply(msg.CorrelationId, Fail(http.StatusNotFound, "Cat Service", "Cat not found"))
		return nil
	}
	client := newTestClient(t, ch, time.Second)

	err := client.Call(context.Background(), "GET_CAT_BY_ID", int64(404), nil)

	var remote *RemoteError
	if !errors.As(err, &remote) {
		t.Fatalf("expected RemoteError, got %v", err)
	}
	if remote.Status != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", remote.Status)
	}
	if remote.Message != "Cat not found" {
		t.Errorf("expected message \"Cat not found\", got %q", remote.Message)
	}
}

func TestCallRemoteErrorMessageFromData(t *testing.T) {
	// Some producers only carry the message inside data.
	ch := newFakeChannel()
	ch.onPublish = func(exchange, key string, msg amqp.Publishing) error {
		ch.reply(msg.CorrelationId, Envelope{
			Status: http.StatusBadRequest,
			Path:   "Cat Service",
			Data:   json.RawMessage(`{"message":"Cannot update Cat id"}`),
		})
		return nil
	}
	client := newTestClient(t, ch, time.Second)

	err := client.Call(context.Background(), "UPDATE_CAT", int64(1), nil)

	var remote *RemoteError
	if !errors.As(err, &remote) {
		t.Fatalf("expected RemoteError, got %v", err)
	}
	if remote.Message != "Cannot update Cat id" {
		t.Errorf("expected message from data, got %q", remote.Message)
	}
}

func TestCallTimeout(t *testing.T) {
	ch := newFakeChannel()
	// No reply ever arrives.
	client := newTestClient(t, ch, 50*time.Millisecond)

	start := time.Now()
	err := client.Call(context.Background(), "GET_CAT_BY_ID", int64(1), nil)
	elapsed := time.Since(start)

	var unavailable *ServiceUnavailableError
	if !errors.As(err, &unavailable) {
		t.Fatalf("expected ServiceUnavailableError, got %v", err)
	}
	if unavailable.Service != "Cat Service" {
		t.Errorf("expected service \"Cat Service\", got %q", unavailable.Service)
	}
	if elapsed > time.Second {
		t.Errorf("call blocked %v, expected roughly the 50ms timeout", elapsed)
	}
}

func TestCallPublishFailure(t *testing.T) {
	ch := newFakeChannel()
	ch.onPublish = func(exchange, key string, msg amqp.Publishing) error {
		return fmt.Errorf("channel closed")
	}
	client := newTestClient(t, ch, time.Second)

	err := client.Call(context.Background(), "GET_CAT_BY_ID", int64(1), nil)

	var unavailable *ServiceUnavailableError
	if !errors.As(err, &unavailable) {
		t.Fatalf("expected ServiceUnavailableError, got %v", err)
	}
}

func TestCallEncodeFailure(t *testing.T) {
	client := newTestClient(t, newFakeChannel(), time.Second)

	err := client.Call(context.Background(), "CREATE_CAT", make(chan int), nil)

	var invalid *InvalidPayloadError
	if !errors.As(err, &invalid) {
		t.Fatalf("expected InvalidPayloadError, got %v", err)
	}
}

func TestConcurrentCallsCorrelate(t *testing.T) {
	// Every call echoes its payload back; each caller must get its own.
	ch := newFakeChannel()
	ch.onPublish = func(exchange, key string, msg amqp.Publishing) error {
		var id int64
		if err := json.Unmarshal(msg.Body, &id); err != nil {
			return err
		}
		ch.reply(msg.CorrelationId, OK("Cat Service", id))
		return nil
	}
	client := newTestClient(t, ch, time.Second)

	var wg sync.WaitGroup
	for i := int64(1); i <= 20; i++ {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			var got int64
			if err := client.Call(context.Background(), "GET_CAT_BY_ID", id, &got); err != nil {
				t.Errorf("call %d failed: %v", id, err)
				return
			}
			if got != id {
				t.Errorf("call %d got reply %d", id, got)
			}
		}(i)
	}
	wg.Wait()
}

func TestCallThroughDispatcher(t *testing.T) {
	// Full loopback: the client's publish lands in a dispatcher, whose
	// envelope travels back as the correlated reply.
	ch := newFakeChannel()
	d := NewDispatcher(ch, "cat_queue", "Cat Service")
	d.Register("GET_CAT_BY_ID", func(ctx context.Context, body []byte) (any, error) {
		var id int64
		if err := json.Unmarshal(body, &id); err != nil {
			return nil, &InvalidPayloadError{Err: err}
		}
		if id == 404 {
			return nil, NotFound("Cat not found")
		}
		return id, nil
	})
	ch.onPublish = func(exchange, key string, msg amqp.Publishing) error {
		action, _ := msg.Headers["action"].(string)
		ch.reply(msg.CorrelationId, d.Dispatch(context.Background(), action, msg.Body))
		return nil
	}
	client := newTestClient(t, ch, time.Second)

	var got int64
	if err := client.Call(context.Background(), "GET_CAT_BY_ID", int64(9), &got); err != nil {
		t.Fatalf("call failed: %v", err)
	}
	if got != 9 {
		t.Errorf("expected 9, got %d", got)
	}

	err := client.Call(context.Background(), "GET_CAT_BY_ID", int64(404), nil)
	var remote *RemoteError
	if !errors.As(err, &remote) || remote.Status != http.StatusNotFound {
		t.Errorf("expected remote 404, got %v", err)
	}
}
