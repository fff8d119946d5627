package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/notifyhub/request-queue/internal/domain"
	"github.com/notifyhub/request-queue/internal/queue"
	"github.com/notifyhub/request-queue/internal/repository"
)

// Store states reported by Health.
const (
	StoreOK          = "ok"
	StoreUnreachable = "unreachable"
	StoreNone        = "none"
)

const storePingTimeout = 2 * time.Second

// Health is the liveness view served on /health.
type Health struct {
	Status        string `json:"status"`
	Store         string `json:"store"`
	QueueSize     int    `json:"queue_size"`
	QueueCapacity int    `json:"queue_capacity"`
}

// Healthy reports whether the snapshot store can take commits.
func (h Health) Healthy() bool {
	return h.Store != StoreUnreachable
}

// Stats is a point-in-time view of the queue for the metrics endpoint.
type Stats struct {
	Size            int  `json:"size"`
	Capacity        int  `json:"capacity"`
	HasRegistration bool `json:"has_registration"`
	InFlight        bool `json:"in_flight"`
}

// RequestService validates inbound requests and applies them to the queue.
// HTTP handlers depend on this service, not on the queue directly.
type RequestService struct {
	q        *queue.Queue
	store    repository.BlobRepository
	inFlight func() bool
	logger   *zap.Logger
}

// NewRequestService builds the service. store is the substrate the queue
// persists into and is only pinged for health; nil means none. inFlight
// reports whether the dispatcher is sending the head right now; nil means
// never.
func NewRequestService(q *queue.Queue, store repository.BlobRepository, inFlight func() bool, logger *zap.Logger) *RequestService {
	if inFlight == nil {
		inFlight = func() bool { return false }
	}
	return &RequestService{q: q, store: store, inFlight: inFlight, logger: logger}
}

// Enqueue validates req and appends it to the queue.
func (s *RequestService) Enqueue(ctx context.Context, req domain.EnqueueRequest) (domain.Item, error) {
	if err := req.Validate(); err != nil {
		return domain.Item{}, err
	}
	item := domain.NewItem(req.Tag, req.Payload)
	s.q.Enqueue(item)

	s.logger.Debug("request enqueued",
		zap.String("request_id", item.ID),
		zap.String("tag", item.Tag),
		zap.Int("size", s.q.Size()),
	)
	return item, nil
}

// InsertAt validates req and places it at index.
func (s *RequestService) InsertAt(ctx context.Context, req domain.EnqueueRequest, index int) (domain.Item, error) {
	if err := req.Validate(); err != nil {
		return domain.Item{}, err
	}
	item := domain.NewItem(req.Tag, req.Payload)
	if !s.q.InsertAt(item, index) {
		return domain.Item{}, domain.ErrIndexOutOfRange
	}
	return item, nil
}

// Get returns the item at index.
func (s *RequestService) Get(ctx context.Context, index int) (domain.Item, error) {
	item, ok := s.q.PeekAt(index)
	if !ok {
		return domain.Item{}, domain.ErrNotFound
	}
	return item, nil
}

// Remove deletes the item at index and returns it.
func (s *RequestService) Remove(ctx context.Context, index int) (domain.Item, error) {
	item, ok := s.q.RemoveAt(index)
	if !ok {
		return domain.Item{}, domain.ErrNotFound
	}
	s.logger.Info("request removed",
		zap.String("request_id", item.ID),
		zap.String("tag", item.Tag),
		zap.Int("index", index),
	)
	return item, nil
}

// List returns the queue contents in dispatch order.
func (s *RequestService) List(ctx context.Context) []domain.Item {
	return s.q.Items()
}

// Register moves the queued registration to the front, or queues a new one
// tagged req.Tag. It returns the registration now queued.
func (s *RequestService) Register(ctx context.Context, req domain.RegisterRequest) (domain.Item, error) {
	if err := req.Validate(); err != nil {
		return domain.Item{}, err
	}

	hint := 0
	if req.PositionHint != nil {
		hint = *req.PositionHint
	} else if s.inFlight() {
		hint = 1
	}
	s.q.PromoteOrInsertPriority(req.Tag, hint)

	for i := 0; i < 2; i++ {
		if item, ok := s.q.PeekAt(i); ok && item.IsPriority() {
			s.logger.Info("registration at front",
				zap.String("tag", item.Tag), zap.Int("index", i))
			return item, nil
		}
	}
	// The dispatcher sent it between the promotion and the lookup.
	return domain.Item{}, domain.ErrNotFound
}

// Stats reports queue size and registration state.
func (s *RequestService) Stats(ctx context.Context) Stats {
	return Stats{
		Size:            s.q.Size(),
		Capacity:        s.q.Capacity(),
		HasRegistration: s.q.ContainsPriorityClass(),
		InFlight:        s.inFlight(),
	}
}

// Health pings the snapshot store and reports queue occupancy. An unreachable
// store leaves the queue working in memory, so the status is degraded rather
// than down.
func (s *RequestService) Health(ctx context.Context) Health {
	h := Health{
		Status:        "ok",
		Store:         StoreNone,
		QueueSize:     s.q.Size(),
		QueueCapacity: s.q.Capacity(),
	}
	if s.store == nil {
		return h
	}

	ctx, cancel := context.WithTimeout(ctx, storePingTimeout)
	defer cancel()
	if err := s.store.Ping(ctx); err != nil {
		s.logger.Warn("snapshot store unreachable", zap.Error(err))
		h.Status = "degraded"
		h.Store = StoreUnreachable
		return h
	}
	h.Store = StoreOK
	return h
}
