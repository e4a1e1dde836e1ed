package events

import (
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"

	"movienight-backend/internal/models"
)

const exchangeName = "movienight.events"

// envelope is the wire form of an event crossing the broker.
type envelope struct {
	Topic  Topic           `json:"topic"`
	Origin string          `json:"origin"`
	Data   json.RawMessage `json:"data"`
}

// AMQPBroadcaster bridges the in-memory Hub across processes through a
// RabbitMQ fanout exchange. Local delivery still happens synchronously via
// the wrapped Hub; remote envelopes are decoded by topic and re-published
// locally. Broker failures degrade to single-process behavior: they are
// logged, never fatal to the mutation that published.
type AMQPBroadcaster struct {
	local  *Hub
	conn   *amqp.Connection
	ch     *amqp.Channel
	pubMu  sync.Mutex
	origin string
	logger *logrus.Logger
}

func NewAMQPBroadcaster(url string, local *Hub, logger *logrus.Logger) (*AMQPBroadcaster, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	if err := ch.ExchangeDeclare(exchangeName, "fanout", false, true, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, err
	}

	b := &AMQPBroadcaster{
		local:  local,
		conn:   conn,
		ch:     ch,
		origin: uuid.New().String(),
		logger: logger,
	}
	if err := b.startConsumer(); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, err
	}
	logger.WithField("exchange", exchangeName).Info("AMQP event bridge enabled")
	return b, nil
}

func (b *AMQPBroadcaster) startConsumer() error {
	// Exclusive auto-delete queue: every instance sees every event, nothing
	// is retained for disconnected instances.
	q, err := b.ch.QueueDeclare("", false, true, true, false, nil)
	if err != nil {
		return err
	}
	if err := b.ch.QueueBind(q.Name, "", exchangeName, false, nil); err != nil {
		return err
	}
	deliveries, err := b.ch.Consume(q.Name, "", true, true, false, false, nil)
	if err != nil {
		return err
	}

	go func() {
		for d := range deliveries {
			b.dispatch(d.Body)
		}
	}()
	return nil
}

func (b *AMQPBroadcaster) dispatch(body []byte) {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		b.logger.WithError(err).Warn("Dropping malformed broker envelope")
		return
	}
	if env.Origin == b.origin {
		// Already delivered locally at publish time.
		return
	}

	switch env.Topic {
	case TopicMovieAdded, TopicMovieVoted:
		var movie models.Movie
		if err := json.Unmarshal(env.Data, &movie); err != nil {
			b.logger.WithError(err).WithField("topic", env.Topic).Warn("Dropping undecodable movie event")
			return
		}
		b.local.Publish(env.Topic, &movie)
	case TopicNightUpdated:
		var night models.MovieNight
		if err := json.Unmarshal(env.Data, &night); err != nil {
			b.logger.WithError(err).Warn("Dropping undecodable movie night event")
			return
		}
		b.local.Publish(env.Topic, &night)
	default:
		b.logger.WithField("topic", env.Topic).Warn("Dropping event with unknown topic")
	}
}

// Publish delivers locally first, then forwards to the exchange so other
// instances deliver to their own listeners.
func (b *AMQPBroadcaster) Publish(topic Topic, payload any) {
	b.local.Publish(topic, payload)

	data, err := json.Marshal(payload)
	if err != nil {
		b.logger.WithError(err).WithField("topic", topic).Error("Failed to marshal event for broker")
		return
	}
	body, err := json.Marshal(envelope{Topic: topic, Origin: b.origin, Data: data})
	if err != nil {
		b.logger.WithError(err).Error("Failed to marshal broker envelope")
		return
	}

	b.pubMu.Lock()
	defer b.pubMu.Unlock()
	if err := b.ch.Publish(exchangeName, "", false, false, amqp.Publishing{
		ContentType: "application/json",
		Body:        body,
	}); err != nil {
		b.logger.WithError(err).WithField("topic", topic).Error("Failed to publish event to broker")
	}
}

// Subscribe registers on the local hub; remote events arrive through the
// consumer goroutine and reach the same listeners.
func (b *AMQPBroadcaster) Subscribe(topic Topic, fn Listener) func() {
	return b.local.Subscribe(topic, fn)
}

// Close tears down the broker link. The wrapped hub stays usable and is
// closed separately by the composition root.
func (b *AMQPBroadcaster) Close() {
	if err := b.ch.Close(); err != nil {
		b.logger.WithError(err).Warn("Error closing AMQP channel")
	}
	if err := b.conn.Close(); err != nil {
		b.logger.WithError(err).Warn("Error closing AMQP connection")
	}
}
