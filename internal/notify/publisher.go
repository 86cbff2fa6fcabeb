// README: Fire-and-forget job publisher backed by RabbitMQ.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
)

const publishTimeout = 5 * time.Second

// Publisher submits background jobs to the topic exchange. The job kind is
// the routing key; consumers bind the kinds they handle.
type Publisher struct {
	ch       *amqp.Channel
	exchange string
	log      *logrus.Logger
}

func NewPublisher(ch *amqp.Channel, exchange string, log *logrus.Logger) *Publisher {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Publisher{ch: ch, exchange: exchange, log: log}
}

type envelope struct {
	Kind       string    `json:"kind"`
	Payload    any       `json:"payload"`
	EnqueuedAt time.Time `json:"enqueued_at"`
}

// Enqueue publishes one job. Callers treat failures as non-fatal; nothing
// in the engine waits on job completion.
func (p *Publisher) Enqueue(ctx context.Context, kind string, payload any) error {
	body, err := json.Marshal(envelope{Kind: kind, Payload: payload, EnqueuedAt: time.Now().UTC()})
	if err != nil {
		return fmt.Errorf("marshal job %s: %w", kind, err)
	}

	pubCtx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	err = p.ch.PublishWithContext(pubCtx, p.exchange, kind, false, false, amqp.Publishing{
		DeliveryMode: amqp.Persistent,
		ContentType:  "application/json",
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("publish job %s: %w", kind, err)
	}
	p.log.WithField("kind", kind).Debug("job enqueued")
	return nil
}
