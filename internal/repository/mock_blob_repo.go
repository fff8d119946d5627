package repository

import (
	"context"
	"sync"

	"github.com/notifyhub/request-queue/internal/domain"
)

// MockBlobRepository is a hand-written, in-memory implementation of
// BlobRepository. It backs the "memory" store and unit tests.
type MockBlobRepository struct {
	mu       sync.RWMutex
	blobs    map[string]string
	setCalls int
	setErrs  []error
	pingErr  error

	// Optional error override — set in tests to simulate failure paths.
	GetErr error
}

func NewMockBlobRepository() *MockBlobRepository {
	return &MockBlobRepository{blobs: make(map[string]string)}
}

func (m *MockBlobRepository) Get(_ context.Context, key string) (string, error) {
	if m.GetErr != nil {
		return "", m.GetErr
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.blobs[key]
	if !ok {
		return "", domain.ErrNotFound
	}
	return v, nil
}

func (m *MockBlobRepository) Set(ctx context.Context, key, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.setCalls++
	if len(m.setErrs) > 0 {
		err := m.setErrs[0]
		m.setErrs = m.setErrs[1:]
		if err != nil {
			return err
		}
	}
	m.blobs[key] = value
	return nil
}

func (m *MockBlobRepository) Ping(ctx context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.pingErr != nil {
		return m.pingErr
	}
	return ctx.Err()
}

// FailPings makes every later Ping return err; nil restores it.
func (m *MockBlobRepository) FailPings(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pingErr = err
}

// FailSets queues errors for the next Set calls, one per call. A nil entry
// lets that call succeed.
func (m *MockBlobRepository) FailSets(errs ...error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.setErrs = append(m.setErrs, errs...)
}

// Put seeds a blob without counting as a Set call.
func (m *MockBlobRepository) Put(key, value string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blobs[key] = value
}

// Value returns the stored blob for key.
func (m *MockBlobRepository) Value(key string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.blobs[key]
	return v, ok
}

// SetCalls returns how many times Set has been called.
func (m *MockBlobRepository) SetCalls() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.setCalls
}

var _ BlobRepository = (*MockBlobRepository)(nil)
