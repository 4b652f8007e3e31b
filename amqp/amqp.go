// Package amqp publishes machine events to a RabbitMQ topic exchange.
package amqp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jt05610/ptnet"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

type Event struct {
	Machine    string            `json:"machine"`
	Transition string            `json:"transition"`
	Seq        int64             `json:"seq,omitempty"`
	State      ptnet.StateVector `json:"state,omitempty"`
	Reason     string            `json:"reason,omitempty"`
	Error      string            `json:"error,omitempty"`
}

func (e *Event) RoutingKey() string {
	kind := "committed"
	if e.Reason != "" {
		kind = "rejected"
	}
	return fmt.Sprintf("%s.%s.%s", e.Machine, kind, e.Transition)
}

// Message builds the publishing for e. Committed events carry their seq in
// the x-seq header.
func Message(e *Event) (amqp.Publishing, error) {
	bytes, err := json.Marshal(e)
	if err != nil {
		var zero amqp.Publishing
		return zero, err
	}
	headers := amqp.Table{
		"x-machine":    e.Machine,
		"x-transition": e.Transition,
	}
	if e.Reason == "" {
		headers["x-seq"] = e.Seq
	} else {
		headers["x-reason"] = e.Reason
	}
	return amqp.Publishing{
		Body:         bytes,
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Headers:      headers,
	}, nil
}

type publisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// Publisher is a ptnet.Observer that publishes every commit and rejection.
// Publishing failures are logged and never affect the machine.
type Publisher struct {
	conn     *amqp.Connection
	ch       publisher
	exchange string
	logger   *zap.Logger
}

var _ ptnet.Observer = (*Publisher)(nil)

// Dial connects to uri and declares exchange as a durable topic exchange.
func Dial(uri, exchange string, logger *zap.Logger) (*Publisher, error) {
	conn, err := amqp.Dial(uri)
	if err != nil {
		return nil, fmt.Errorf("dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	err = ch.ExchangeDeclare(
		exchange, // name
		"topic",  // type
		true,     // durable
		false,    // delete when unused
		false,    // internal
		false,    // no-wait
		nil,      // arguments
	)
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("declare exchange %s: %w", exchange, err)
	}
	return &Publisher{conn: conn, ch: ch, exchange: exchange, logger: logger}, nil
}

func (p *Publisher) Close() error {
	if ch, ok := p.ch.(*amqp.Channel); ok {
		if err := ch.Close(); err != nil {
			return err
		}
	}
	if p.conn == nil {
		return nil
	}
	return p.conn.Close()
}

func (p *Publisher) Committed(ctx context.Context, machine string, rec ptnet.Record) {
	p.publish(ctx, &Event{
		Machine:    machine,
		Transition: rec.Transition,
		Seq:        rec.Seq,
		State:      rec.State,
	})
}

func (p *Publisher) Rejected(ctx context.Context, machine, transition string, err error) {
	p.publish(ctx, &Event{
		Machine:    machine,
		Transition: transition,
		Reason:     ptnet.Reason(err),
		Error:      err.Error(),
	})
}

func (p *Publisher) publish(ctx context.Context, e *Event) {
	msg, err := Message(e)
	if err == nil {
		err = p.ch.PublishWithContext(ctx,
			p.exchange,     // exchange
			e.RoutingKey(), // routing key
			false,          // mandatory
			false,          // immediate
			msg,
		)
	}
	if err != nil {
		p.logger.Warn("publish failed",
			zap.String("exchange", p.exchange),
			zap.String("key", e.RoutingKey()),
			zap.Error(err),
		)
	}
}
