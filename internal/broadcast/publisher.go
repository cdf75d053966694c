// Package broadcast pushes show lifecycle events to RabbitMQ so community
// surfaces (bots, overlays) can react. Publishing is best-effort: errors are
// logged and returned, never allowed to interrupt the show.
package broadcast

import (
	"context"
	"encoding/json"
	"log"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

type envelope struct {
	Event     string      `json:"event"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data"`
}

type Publisher struct {
	url   string
	queue string
}

func NewPublisher(url, queue string) *Publisher {
	return &Publisher{url: url, queue: queue}
}

// Publish sends one event to the durable event queue. The connection is
// dialed per publish; lifecycle events are rare enough that holding a
// channel open buys nothing.
func (p *Publisher) Publish(event string, data interface{}) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, err := amqp.Dial(p.url)
	if err != nil {
		log.Printf("⚠️ broadcast: dial failed: %v", err)
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		log.Printf("⚠️ broadcast: channel open failed: %v", err)
		return err
	}
	defer func() { _ = ch.Close() }()

	// Idempotent declare; durable so events survive broker restarts.
	if _, err := ch.QueueDeclare(p.queue, true, false, false, false, nil); err != nil {
		log.Printf("⚠️ broadcast: queue declare failed: %v", err)
		return err
	}

	body, err := json.Marshal(envelope{Event: event, Timestamp: time.Now().UTC(), Data: data})
	if err != nil {
		log.Printf("⚠️ broadcast: marshal failed: %v", err)
		return err
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}

	if err := ch.PublishWithContext(ctx, "", p.queue, false, false, pub); err != nil {
		log.Printf("⚠️ broadcast: publish failed: %v", err)
		return err
	}
	return nil
}
