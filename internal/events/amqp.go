package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// OrderEventsQueue задаёт имя очереди событий заказов.
const OrderEventsQueue = "hotel.order.events"

// AMQPPublisher публикует события заказов в RabbitMQ через очередь по умолчанию.
type AMQPPublisher struct {
	url    string
	queue  string
	logger *zap.Logger

	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel
}

// NewAMQPPublisher подключается к брокеру и объявляет устойчивую очередь событий.
func NewAMQPPublisher(url string, logger *zap.Logger) (*AMQPPublisher, error) {
	p := &AMQPPublisher{
		url:    url,
		queue:  OrderEventsQueue,
		logger: logger,
	}

	if err := p.connect(); err != nil {
		return nil, err
	}

	return p, nil
}

func (p *AMQPPublisher) connect() error {
	conn, err := amqp.Dial(p.url)
	if err != nil {
		return fmt.Errorf("dial broker: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("open channel: %w", err)
	}

	if _, err := ch.QueueDeclare(p.queue, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return fmt.Errorf("declare queue: %w", err)
	}

	p.conn = conn
	p.ch = ch
	return nil
}

// Publish отправляет событие как постоянное JSON-сообщение.
// При закрытом соединении выполняется одна попытка переподключения.
func (p *AMQPPublisher) Publish(ctx context.Context, ev OrderEvent) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    uuid.NewString(),
		Type:         ev.Type,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.ch == nil || p.ch.IsClosed() {
		p.closeLocked()
		if err := p.connect(); err != nil {
			p.logger.Warn("order event dropped: broker unavailable",
				zap.String("type", ev.Type), zap.Int64("orderID", ev.OrderID), zap.Error(err))
			return err
		}
	}

	if err := p.ch.PublishWithContext(ctx, "", p.queue, false, false, msg); err != nil {
		p.logger.Warn("publish order event failed",
			zap.String("type", ev.Type), zap.Int64("orderID", ev.OrderID), zap.Error(err))
		return fmt.Errorf("publish event: %w", err)
	}

	return nil
}

// Close закрывает канал и соединение с брокером.
func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.closeLocked()
	return nil
}

func (p *AMQPPublisher) closeLocked() {
	if p.ch != nil {
		_ = p.ch.Close()
		p.ch = nil
	}
	if p.conn != nil {
		_ = p.conn.Close()
		p.conn = nil
	}
}
