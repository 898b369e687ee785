package subscriber

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// RabbitMQ subscribes to a fanout exchange on an AMQP broker. The topic
// name doubles as the exchange name; each kiosk consumes from its own
// exclusive auto-delete queue. amqp091 has no built-in reconnect, so a
// redial loop applies the shared retry policy after the broker drops us.
type RabbitMQ struct {
	cfg     Config
	handler Handler
	logger  *slog.Logger

	mu   sync.Mutex
	conn *amqp.Connection
}

func NewRabbitMQ(cfg Config, handler Handler, logger *slog.Logger) *RabbitMQ {
	return &RabbitMQ{
		cfg:     cfg,
		handler: handler,
		logger:  logger.With("transport", "amqp", "exchange", cfg.Topic),
	}
}

// Start performs the initial dial and subscribe; failure there is
// unrecoverable and returned. On success the consume loop runs in the
// background until the context is canceled.
func (s *RabbitMQ) Start(ctx context.Context) error {
	deliveries, err := s.setup()
	if err != nil {
		return err
	}
	s.logger.Info("connected and consuming", "endpoint", s.cfg.Endpoint)

	go s.run(ctx, deliveries)
	return nil
}

func (s *RabbitMQ) setup() (<-chan amqp.Delivery, error) {
	conn, err := amqp.DialConfig(s.cfg.Endpoint, amqp.Config{
		Properties: amqp.Table{"connection_name": s.cfg.ClientID},
		Heartbeat:  keepAlive,
	})
	if err != nil {
		return nil, fmt.Errorf("connect to rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	err = ch.ExchangeDeclare(
		s.cfg.Topic,
		"fanout",
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}

	q, err := ch.QueueDeclare(
		"", // broker-named
		false,
		true,
		true,
		false,
		nil,
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("declare queue: %w", err)
	}

	err = ch.QueueBind(
		q.Name,
		"",
		s.cfg.Topic,
		false,
		nil,
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("bind queue: %w", err)
	}

	deliveries, err := ch.Consume(q.Name, s.cfg.ClientID, true, true, false, false, nil)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("start consuming: %w", err)
	}

	s.mu.Lock()
	s.conn = conn
	s.mu.Unlock()

	return deliveries, nil
}

func (s *RabbitMQ) run(ctx context.Context, deliveries <-chan amqp.Delivery) {
	for {
		s.consume(ctx, deliveries)
		if ctx.Err() != nil {
			s.Close()
			return
		}

		s.logger.Warn("connection lost, redialing")

		var err error
		deliveries, err = s.redial(ctx)
		if err != nil {
			// Only context cancellation ends the redial loop.
			return
		}
		s.logger.Info("reconnected")
	}
}

// consume forwards deliveries until the channel closes (disconnect) or the
// context is canceled.
func (s *RabbitMQ) consume(ctx context.Context, deliveries <-chan amqp.Delivery) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-deliveries:
			if !ok {
				return
			}
			s.logger.Debug("message received", "size", len(msg.Body))
			s.handler(msg.Body)
		}
	}
}

func (s *RabbitMQ) redial(ctx context.Context) (<-chan amqp.Delivery, error) {
	backoff := retryMin
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}

		deliveries, err := s.setup()
		if err == nil {
			return deliveries, nil
		}

		s.logger.Warn("redial failed", "error", err, "next_attempt_in", backoff)
		backoff *= 2
		if backoff > retryMax {
			backoff = retryMax
		}
	}
}

// Close tears down the current connection, which also ends the consume loop.
func (s *RabbitMQ) Close() {
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()

	if conn != nil && !conn.IsClosed() {
		conn.Close()
	}
}
