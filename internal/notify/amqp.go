package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/avc/marketplace-backend/internal/domain"
	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// AMQPSink публикует события в topic-exchange RabbitMQ; routing key — тип
// события, чтобы потребители подписывались выборочно
type AMQPSink struct {
	conn     *amqp.Connection
	channel  *amqp.Channel
	exchange string
}

// NewAMQPSink подключается к RabbitMQ и объявляет exchange
func NewAMQPSink(url, exchange string) (*AMQPSink, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("notify: failed to connect to rabbitmq: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("notify: failed to open channel: %w", err)
	}

	if err := channel.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("notify: failed to declare exchange %q: %w", exchange, err)
	}

	return &AMQPSink{
		conn:     conn,
		channel:  channel,
		exchange: exchange,
	}, nil
}

// Publish отправляет событие в exchange
func (s *AMQPSink) Publish(ctx context.Context, event domain.Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("notify: failed to marshal event: %w", err)
	}

	err = s.channel.PublishWithContext(ctx, s.exchange, string(event.Type), false, false,
		amqp.Publishing{
			ContentType: "application/json",
			MessageId:   uuid.New().String(),
			Timestamp:   time.Now(),
			Body:        body,
		})
	if err != nil {
		return fmt.Errorf("notify: failed to publish event: %w", err)
	}

	return nil
}

// Close закрывает канал и соединение
func (s *AMQPSink) Close() error {
	if err := s.channel.Close(); err != nil {
		return fmt.Errorf("notify: failed to close channel: %w", err)
	}
	if err := s.conn.Close(); err != nil {
		return fmt.Errorf("notify: failed to close connection: %w", err)
	}

	return nil
}

// LogSink пишет события в лог; используется, когда RabbitMQ не настроен
type LogSink struct {
	logger *zap.Logger
}

// NewLogSink создает новый LogSink
func NewLogSink(logger *zap.Logger) *LogSink {
	return &LogSink{logger: logger}
}

// Publish логирует событие
func (s *LogSink) Publish(_ context.Context, event domain.Event) error {
	s.logger.Info("notification",
		zap.String("type", string(event.Type)),
		zap.Int64("user_id", event.UserID),
		zap.String("title", event.Title),
	)
	return nil
}
