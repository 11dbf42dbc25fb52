package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/thusa/managed-reports/internal/events"
)

// ErrQueueFull is returned when the worker buffer cannot take another event.
var ErrQueueFull = errors.New("auth event queue full")

const publishTimeout = 5 * time.Second

// Publisher delivers an event to an external sink.
type Publisher interface {
	Publish(ctx context.Context, event events.Event) error
}

// AuthEventWorker moves auth events off the request path and hands them to
// a Publisher one at a time.
type AuthEventWorker struct {
	publisher Publisher
	queue     chan events.Event
	logger    *zap.Logger
	wg        sync.WaitGroup
}

// NewAuthEventWorker builds a worker with a bounded buffer.
func NewAuthEventWorker(publisher Publisher, buffer int, logger *zap.Logger) *AuthEventWorker {
	if buffer <= 0 {
		buffer = 256
	}
	return &AuthEventWorker{
		publisher: publisher,
		queue:     make(chan events.Event, buffer),
		logger:    logger,
	}
}

// Register subscribes the worker to every auth event type.
func (w *AuthEventWorker) Register(dispatcher events.Dispatcher) {
	for _, eventType := range []events.EventType{
		events.EventLoginSucceeded,
		events.EventLoginFailed,
		events.EventAccountProvisioned,
	} {
		dispatcher.Subscribe(eventType, w.enqueue)
	}
}

func (w *AuthEventWorker) enqueue(_ context.Context, event events.Event) error {
	select {
	case w.queue <- event:
		return nil
	default:
		w.logger.Warn("dropping auth event", zap.String("type", string(event.Type)), zap.String("id", event.ID))
		return ErrQueueFull
	}
}

// Start consumes the buffer until ctx is cancelled, then drains what is left.
func (w *AuthEventWorker) Start(ctx context.Context) {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		for {
			select {
			case <-ctx.Done():
				w.drain()
				return
			case event := <-w.queue:
				w.publish(event)
			}
		}
	}()
}

// Wait blocks until the worker goroutine has exited.
func (w *AuthEventWorker) Wait() {
	w.wg.Wait()
}

func (w *AuthEventWorker) drain() {
	for {
		select {
		case event := <-w.queue:
			w.publish(event)
		default:
			return
		}
	}
}

func (w *AuthEventWorker) publish(event events.Event) {
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()
	if err := w.publisher.Publish(ctx, event); err != nil {
		w.logger.Error("failed to publish auth event",
			zap.String("type", string(event.Type)),
			zap.String("id", event.ID),
			zap.Error(err),
		)
	}
}
