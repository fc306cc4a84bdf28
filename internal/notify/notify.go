// Package notify publishes registration notices to a message broker so that
// mailers and other consumers can react after the core has committed.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"

	"github.com/Shivanand-hulikatti/society-events/internal/model"
)

// Kind names what happened to a registration.
type Kind string

const (
	KindRegistered Kind = "registered"
	KindCancelled  Kind = "cancelled"
)

// Notice is the message body published for each registration change.
type Notice struct {
	Kind              Kind      `json:"kind"`
	RegistrationID    string    `json:"registration_id"`
	EventID           string    `json:"event_id"`
	EventTitle        string    `json:"event_title"`
	EventStart        time.Time `json:"event_start"`
	MemberID          string    `json:"member_id"`
	MemberDisplayName string    `json:"member_display_name"`
	OccurredAt        time.Time `json:"occurred_at"`
}

// NewNotice builds a notice from a registration and its event.
func NewNotice(kind Kind, reg model.Registration, event model.Event, at time.Time) Notice {
	return Notice{
		Kind:              kind,
		RegistrationID:    reg.ID,
		EventID:           reg.EventID,
		EventTitle:        event.Title,
		EventStart:        event.StartDate,
		MemberID:          reg.MemberID,
		MemberDisplayName: reg.MemberDisplayName,
		OccurredAt:        at,
	}
}

// Publisher delivers notices.
type Publisher interface {
	Publish(ctx context.Context, n Notice) error
}

// Nop discards every notice.
type Nop struct{}

// Publish does nothing.
func (Nop) Publish(context.Context, Notice) error { return nil }

// Rabbit publishes notices as JSON to a durable topic exchange, routed by
// kind ("registration.registered", "registration.cancelled").
type Rabbit struct {
	conn     *amqp.Connection
	channel  *amqp.Channel
	exchange string
	log      zerolog.Logger
}

// NewRabbit dials url and declares the exchange.
func NewRabbit(url, exchange string, log zerolog.Logger) (*Rabbit, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open rabbitmq channel: %w", err)
	}

	if err := ch.ExchangeDeclare(
		exchange,
		amqp.ExchangeTopic,
		true,
		false,
		false,
		false,
		nil,
	); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare exchange %q: %w", exchange, err)
	}

	log = log.With().Str("component", "notify").Str("exchange", exchange).Logger()
	log.Info().Msg("rabbitmq publisher ready")
	return &Rabbit{conn: conn, channel: ch, exchange: exchange, log: log}, nil
}

// RoutingKey returns the routing key used for a notice kind.
func RoutingKey(k Kind) string {
	return "registration." + string(k)
}

// Publish sends n to the exchange.
func (r *Rabbit) Publish(ctx context.Context, n Notice) error {
	body, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("marshal notice: %w", err)
	}
	err = r.channel.PublishWithContext(ctx,
		r.exchange,
		RoutingKey(n.Kind),
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    n.RegistrationID + ":" + string(n.Kind),
			Timestamp:    n.OccurredAt,
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("publish notice: %w", err)
	}
	r.log.Debug().
		Str("registration_id", n.RegistrationID).
		Str("kind", string(n.Kind)).
		Msg("notice published")
	return nil
}

// Close releases the channel and connection.
func (r *Rabbit) Close() {
	if r.channel != nil {
		_ = r.channel.Close()
	}
	if r.conn != nil {
		_ = r.conn.Close()
	}
	r.log.Info().Msg("rabbitmq connection closed")
}
