package notify

import (
	"context"
	"sync"
	"time"

	"github.com/avc/marketplace-backend/internal/domain"
	"go.uber.org/zap"
)

const publishTimeout = 5 * time.Second

// Sink доставляет одно событие во внешний канал уведомлений
type Sink interface {
	Publish(ctx context.Context, event domain.Event) error
}

// Dispatcher реализует domain.Notifier: события складываются в буферизованную
// очередь и доставляются пулом воркеров вне границы транзакции. Сбой доставки
// логируется и никогда не влияет на уже зафиксированную операцию.
type Dispatcher struct {
	workers int
	queue   chan domain.Event
	sink    Sink
	logger  *zap.Logger
	wg      sync.WaitGroup
}

// NewDispatcher создает новый диспетчер уведомлений
func NewDispatcher(workers, queueSize int, sink Sink, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		workers: workers,
		queue:   make(chan domain.Event, queueSize),
		sink:    sink,
		logger:  logger,
	}
}

// Start запускает воркеры доставки
func (d *Dispatcher) Start(ctx context.Context) {
	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.worker(ctx, i)
	}
}

// Stop останавливает диспетчер, дождавшись доставки оставшихся событий
func (d *Dispatcher) Stop() {
	close(d.queue)
	d.wg.Wait()
}

// Notify ставит событие в очередь без блокировки вызывающего.
// При переполненной очереди событие отбрасывается с предупреждением.
func (d *Dispatcher) Notify(event domain.Event) {
	select {
	case d.queue <- event:
	default:
		d.logger.Warn("notification queue is full, event dropped",
			zap.String("type", string(event.Type)),
			zap.Int64("user_id", event.UserID),
		)
	}
}

// worker доставляет события из очереди
func (d *Dispatcher) worker(ctx context.Context, id int) {
	defer d.wg.Done()

	d.logger.Debug("notification worker started", zap.Int("worker_id", id))

	for {
		select {
		case <-ctx.Done():
			d.logger.Debug("notification worker stopping", zap.Int("worker_id", id))
			return
		case event, ok := <-d.queue:
			if !ok {
				return
			}
			d.deliver(event)
		}
	}
}

// deliver публикует одно событие с таймаутом
func (d *Dispatcher) deliver(event domain.Event) {
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()

	if err := d.sink.Publish(ctx, event); err != nil {
		d.logger.Error("failed to publish notification",
			zap.String("type", string(event.Type)),
			zap.Int64("user_id", event.UserID),
			zap.Error(err),
		)
	}
}
