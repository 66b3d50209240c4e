// Package service wires the rating pipeline together and owns its
// lifecycle: bus subscription, queue, worker, and directory refresh.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/FAForever/faf-rating-service/internal/adapters/mq/bus"
	ratingqueue "github.com/FAForever/faf-rating-service/internal/adapters/mq/queue"
	"github.com/FAForever/faf-rating-service/internal/adapters/mq/worker"
	"github.com/FAForever/faf-rating-service/internal/adapters/repository"
	"github.com/FAForever/faf-rating-service/internal/domain/model"
	"github.com/FAForever/faf-rating-service/internal/domain/rater"
	"github.com/FAForever/faf-rating-service/pkg/logger"
	"github.com/FAForever/faf-rating-service/pkg/metrics"
)

// Lifecycle states of the service.
const (
	StateInitializing = "initializing"
	StateAccepting    = "accepting"
	StateDraining     = "draining"
	StateStopped      = "stopped"
)

// Drop reason reported for undecodable bus messages.
const dropMalformed = "malformed"

// Service accepts rating requests from the bus and drives them through
// the queue, the rater, and the store.
type Service struct {
	mu    sync.RWMutex
	state string

	store     *repository.Store
	directory *repository.Directory
	bus       bus.Bus
	notifier  worker.Notifier
	rater     rater.GameRater

	queue  *ratingqueue.InMemoryQueue
	worker *worker.Worker

	queueSize       int
	refreshInterval time.Duration
	requestTimeout  time.Duration
	exchange        string
	requestKey      string

	workerCancel context.CancelFunc
	stopCh       chan struct{}

	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithQueueSize sets the request queue capacity.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithRefreshInterval sets how often the rating type directory reloads.
func WithRefreshInterval(interval time.Duration) Option {
	return func(s *Service) {
		if interval > 0 {
			s.refreshInterval = interval
		}
	}
}

// WithRequestTimeout bounds the worker's processing of one request.
func WithRequestTimeout(timeout time.Duration) Option {
	return func(s *Service) {
		if timeout > 0 {
			s.requestTimeout = timeout
		}
	}
}

// WithRequestBinding sets the exchange and routing key requests arrive on.
func WithRequestBinding(exchange, routingKey string) Option {
	return func(s *Service) {
		if exchange != "" {
			s.exchange = exchange
		}
		if routingKey != "" {
			s.requestKey = routingKey
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New constructs a stopped service over its collaborators.
func New(store *repository.Store, directory *repository.Directory, b bus.Bus, notifier worker.Notifier, opts ...Option) *Service {
	s := &Service{
		state:           StateInitializing,
		store:           store,
		directory:       directory,
		bus:             b,
		notifier:        notifier,
		rater:           rater.NewGlicko2Rater(),
		queueSize:       10_000,
		refreshInterval: 10 * time.Minute,
		requestTimeout:  30 * time.Second,
		exchange:        "faf-rabbitmq",
		requestKey:      "request.rating",
		stopCh:          make(chan struct{}),
		logger:          logger.Get().Named("service"),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start loads the directory, subscribes to the bus, and launches the
// worker. A failed initial directory load is fatal: rating requests
// cannot be resolved without it.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateInitializing {
		return nil
	}

	s.logger.Info(ctx, "starting rating service")

	if err := s.directory.Load(ctx); err != nil {
		return fmt.Errorf("initial directory load: %w", err)
	}

	s.queue = ratingqueue.NewInMemoryQueue(ratingqueue.WithCapacity(s.queueSize))

	workerCtx, cancel := context.WithCancel(context.Background())
	s.workerCancel = cancel
	s.worker = worker.New(s.queue, s.directory, s.store, s.rater, s.notifier,
		worker.WithRequestTimeout(s.requestTimeout))
	go s.worker.Run(workerCtx)

	if err := s.bus.Listen(ctx, s.exchange, s.requestKey, s.HandleDelivery); err != nil {
		cancel()
		return fmt.Errorf("subscribe to rating requests: %w", err)
	}

	go s.refreshLoop(workerCtx)

	s.state = StateAccepting
	s.logger.Info(ctx, "rating service started",
		logger.Int("queueSize", s.queueSize),
		logger.String("exchange", s.exchange),
		logger.String("routingKey", s.requestKey),
	)

	return nil
}

// refreshLoop reloads the rating type directory on a fixed interval so
// leaderboards added at runtime become ratable without a restart.
func (s *Service) refreshLoop(ctx context.Context) {
	ticker := time.NewTicker(s.refreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		case <-ticker.C:
			if err := s.directory.Load(ctx); err != nil {
				s.logger.Error(ctx, "directory refresh failed", logger.Error(err))
			}
		}
	}
}

// HandleDelivery decodes one bus message and enqueues it. Malformed
// messages are acknowledged and dropped: redelivery cannot fix them.
func (s *Service) HandleDelivery(ctx context.Context, d bus.Delivery) {
	req, err := model.ParseRequest(d.Body())
	if err != nil {
		metrics.RecordRequestDropped(dropMalformed)
		s.logger.Warn(ctx, "dropping malformed rating request",
			logger.String("deliveryID", d.ID()),
			logger.Error(err),
		)
		d.Ack()
		return
	}

	req.Completion = model.NewCompletion(d.Ack)

	// A valid request the service cannot take right now stays unresolved:
	// the broker redelivers it once the service accepts work again.
	if err := s.Enqueue(ctx, req); err != nil {
		s.logger.Error(ctx, "could not enqueue rating request",
			logger.String("deliveryID", d.ID()),
			logger.Int64("gameID", req.GameID),
			logger.Error(err),
		)
	}
}

// Enqueue submits a rating request. Only an accepting service takes new
// requests.
func (s *Service) Enqueue(ctx context.Context, req model.RatingRequest) error {
	s.mu.RLock()
	state := s.state
	s.mu.RUnlock()

	if state != StateAccepting {
		return fmt.Errorf("%w: state %s", ErrServiceNotReady, state)
	}

	return s.queue.Enqueue(ctx, req)
}

// Shutdown stops accepting requests and drains the backlog. It returns
// once every queued request is rated or ctx expires, whichever is first.
func (s *Service) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	if s.state != StateAccepting {
		s.mu.Unlock()
		return nil
	}
	s.state = StateDraining
	s.mu.Unlock()

	s.logger.Info(ctx, "draining rating service", logger.Int("backlog", s.queue.Len()))

	close(s.stopCh)
	if err := s.queue.Close(); err != nil && !errors.Is(err, ratingqueue.ErrClosed) {
		s.logger.Error(ctx, "error closing queue", logger.Error(err))
	}

	var err error
	select {
	case <-s.worker.Done():
	case <-ctx.Done():
		s.logger.Warn(ctx, "drain timed out", logger.Int("backlog", s.queue.Len()))
		err = fmt.Errorf("drain interrupted: %w", ctx.Err())
	}

	s.workerCancel()

	s.mu.Lock()
	s.state = StateStopped
	s.mu.Unlock()

	s.logger.Info(ctx, "rating service stopped")
	return err
}

// Kill stops the service immediately, abandoning the backlog. Unrated
// requests stay unacknowledged for redelivery.
func (s *Service) Kill() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateStopped || s.state == StateInitializing {
		s.state = StateStopped
		return
	}

	s.workerCancel()
	select {
	case <-s.stopCh:
	default:
		close(s.stopCh)
	}
	_ = s.queue.Close()

	s.state = StateStopped
	s.logger.Warn(context.Background(), "rating service killed", logger.Int("backlog", s.queue.Len()))
}

// State reports the lifecycle state.
func (s *Service) State() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Backlog reports the number of queued, not yet rated requests.
func (s *Service) Backlog() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.queue == nil {
		return 0
	}
	return s.queue.Len()
}
