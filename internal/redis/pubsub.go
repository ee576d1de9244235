package redis

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
)

// Publisher fans out push events through Redis pub/sub so every server
// instance sees every topic, regardless of which instance holds the
// websocket connection.
type Publisher struct {
	client *redis.Client
}

// NewPublisher creates a new Publisher.
func NewPublisher(client *redis.Client) *Publisher {
	return &Publisher{client: client}
}

// Publish serializes the payload and publishes it on the topic channel.
func (p *Publisher) Publish(ctx context.Context, topic string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return p.client.Publish(ctx, topic, data).Err()
}

// TopicSink receives messages forwarded from Redis pub/sub.
type TopicSink interface {
	Deliver(topic string, payload []byte)
}

// Subscriber bridges Redis pub/sub channels into a local sink (the
// websocket hub). Runs until the context is cancelled.
type Subscriber struct {
	client *redis.Client
	sink   TopicSink
}

// NewSubscriber creates a new Subscriber.
func NewSubscriber(client *redis.Client, sink TopicSink) *Subscriber {
	return &Subscriber{client: client, sink: sink}
}

// Run subscribes to all request and service topics and forwards every
// message to the sink. Intended to run in its own goroutine.
func (s *Subscriber) Run(ctx context.Context) {
	pubsub := s.client.PSubscribe(ctx, "request:*", "service:*")
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			s.sink.Deliver(msg.Channel, []byte(msg.Payload))
		}
	}
}
