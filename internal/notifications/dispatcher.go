// Package notifications hands new-message alerts to the push pipeline without
// making the sender wait on delivery.
package notifications

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"dm-service/internal/models"
	"dm-service/internal/observability"
)

// Publisher is the transport the workers publish to.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, event any) error
}

// Dispatcher is a bounded queue drained by a fixed worker pool.
type Dispatcher struct {
	publisher  Publisher
	routingKey string
	timeout    time.Duration
	workers    int
	log        *zap.Logger

	queue  chan models.Notification
	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

func NewDispatcher(publisher Publisher, routingKey string, queueSize, workers int, log *zap.Logger) *Dispatcher {
	if workers <= 0 {
		workers = 1
	}
	return &Dispatcher{
		publisher:  publisher,
		routingKey: routingKey,
		timeout:    5 * time.Second,
		workers:    workers,
		log:        log,
		queue:      make(chan models.Notification, queueSize),
	}
}

// Start launches the workers. They exit once Stop has drained the queue.
func (d *Dispatcher) Start() {
	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.run()
	}
}

// Notify enqueues n and returns immediately. A full or stopped queue drops n.
func (d *Dispatcher) Notify(n models.Notification) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		d.log.Warn("notification dropped: dispatcher stopped", zap.String("recipient_id", n.RecipientID))
		observability.IncNotification("dropped")
		return
	}
	select {
	case d.queue <- n:
		observability.IncNotification("queued")
	default:
		d.log.Warn("notification dropped: queue full", zap.String("recipient_id", n.RecipientID))
		observability.IncNotification("dropped")
	}
}

// Stop closes the queue and waits for in-flight deliveries.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	close(d.queue)
	d.mu.Unlock()
	d.wg.Wait()
}

func (d *Dispatcher) run() {
	defer d.wg.Done()
	for n := range d.queue {
		d.deliver(n)
	}
}

func (d *Dispatcher) deliver(n models.Notification) {
	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()
	if err := d.publisher.Publish(ctx, d.routingKey, n); err != nil {
		observability.IncNotification("failed")
		observability.IncAMQPPublishError()
		d.log.Warn("notification publish failed", zap.String("recipient_id", n.RecipientID), zap.Error(err))
		return
	}
	observability.IncNotification("sent")
}
