package queue

import (
	"slices"
	"sync"
	"time"

	"github.com/notifyhub/request-queue/internal/domain"
)

// MaxItems bounds the queue. An append that brings the queue to MaxItems
// evicts the oldest item behind the head, so at rest the queue holds at most
// MaxItems-1 requests. Inserts and promotions may use the last slot and only
// evict once the queue would exceed MaxItems.
const MaxItems = 25

// Hooks carries optional observation callbacks. Nil fields are no-ops.
type Hooks struct {
	OnDepth  func(size int)
	OnEvict  func(item domain.Item)
	OnCommit func(result string, elapsed time.Duration)
}

// Queue is the ordered, bounded list of pending requests.
//
// Every operation, single-element or whole-queue, runs under one mutex. The
// head (index 0) may already be executing in the dispatcher, so overflow
// evicts index 1 and never the head.
//
// Mutations return before anything is written to storage: the notify callback
// only wakes the durability writer.
type Queue struct {
	mu       sync.Mutex
	items    []domain.Item
	capacity int
	notify   func()
	hooks    Hooks

	writer     *Writer
	stopWriter func()
}

// Option configures a Queue built with New.
type Option func(*Queue)

// WithCapacity overrides MaxItems. Values below 2 are raised to 2 so there is
// always a non-head slot to evict.
func WithCapacity(n int) Option {
	return func(q *Queue) {
		q.capacity = max(n, 2)
	}
}

// WithItems seeds the queue, applying the eviction rule if seeds overflow.
func WithItems(items ...domain.Item) Option {
	return func(q *Queue) {
		q.items = append(q.items[:0], items...)
	}
}

// WithHooks installs observation callbacks.
func WithHooks(h Hooks) Option {
	return func(q *Queue) {
		q.hooks = h
	}
}

// WithNotifier sets the callback invoked after every successful mutation.
func WithNotifier(fn func()) Option {
	return func(q *Queue) {
		q.notify = fn
	}
}

// New builds an in-memory queue. It does not persist anything unless a
// notifier is wired to a Writer; Open does that wiring.
func New(opts ...Option) *Queue {
	q := &Queue{capacity: MaxItems}
	for _, opt := range opts {
		opt(q)
	}
	if q.notify == nil {
		q.notify = func() {}
	}
	if q.hooks.OnDepth == nil {
		q.hooks.OnDepth = func(int) {}
	}
	if q.hooks.OnEvict == nil {
		q.hooks.OnEvict = func(domain.Item) {}
	}

	seeded := q.items
	q.items = make([]domain.Item, 0, q.capacity)
	for _, item := range seeded {
		if item.IsZero() {
			continue
		}
		q.items = append(q.items, item)
		q.evictLocked(q.capacity, -1)
	}
	return q
}

// Size returns the number of queued requests.
func (q *Queue) Size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Capacity returns the configured bound.
func (q *Queue) Capacity() int {
	return q.capacity
}

// Enqueue appends item at the tail. A zero item is ignored.
func (q *Queue) Enqueue(item domain.Item) {
	if item.IsZero() {
		return
	}

	q.mu.Lock()
	q.items = append(q.items, item)
	q.observeLocked(q.evictLocked(q.capacity, -1))
	q.mu.Unlock()

	q.notify()
}

// Dequeue removes and returns the head. ok is false when the queue is empty.
func (q *Queue) Dequeue() (item domain.Item, ok bool) {
	q.mu.Lock()
	if len(q.items) == 0 {
		q.mu.Unlock()
		return domain.Item{}, false
	}
	item = q.items[0]
	q.items = slices.Delete(q.items, 0, 1)
	q.observeLocked(nil)
	q.mu.Unlock()

	q.notify()
	return item, true
}

// Peek returns the head without removing it.
func (q *Queue) Peek() (domain.Item, bool) {
	return q.PeekAt(0)
}

// PeekAt returns the item at index without removing it. Any out-of-range
// index, negative included, yields ok=false.
func (q *Queue) PeekAt(index int) (domain.Item, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if index < 0 || index >= len(q.items) {
		return domain.Item{}, false
	}
	return q.items[index], true
}

// InsertAt places item at index, shifting later items back. index may equal
// Size() to append. Out-of-range indexes and zero items are ignored; the
// return value reports whether the insert happened. An insert into a queue
// already holding Capacity() items evicts the oldest item behind the head,
// never the inserted item nor a head it displaced.
func (q *Queue) InsertAt(item domain.Item, index int) bool {
	if item.IsZero() {
		return false
	}

	q.mu.Lock()
	if !q.insertLocked(item, index) {
		q.mu.Unlock()
		return false
	}
	q.observeLocked(q.evictLocked(q.capacity+1, index))
	q.mu.Unlock()

	q.notify()
	return true
}

// RemoveAt removes and returns the item at index.
func (q *Queue) RemoveAt(index int) (domain.Item, bool) {
	q.mu.Lock()
	if index < 0 || index >= len(q.items) {
		q.mu.Unlock()
		return domain.Item{}, false
	}
	item := q.items[index]
	q.items = slices.Delete(q.items, index, index+1)
	q.observeLocked(nil)
	q.mu.Unlock()

	q.notify()
	return item, true
}

// RemoveID removes the first item whose ID matches. The dispatcher uses it to
// retire the request it just sent even if the head moved meanwhile.
func (q *Queue) RemoveID(id string) (domain.Item, bool) {
	q.mu.Lock()
	i := slices.IndexFunc(q.items, func(it domain.Item) bool { return it.ID == id })
	if i < 0 {
		q.mu.Unlock()
		return domain.Item{}, false
	}
	item := q.items[i]
	q.items = slices.Delete(q.items, i, i+1)
	q.observeLocked(nil)
	q.mu.Unlock()

	q.notify()
	return item, true
}

// ContainsPriorityClass reports whether an install or open registration is
// queued.
func (q *Queue) ContainsPriorityClass() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return slices.ContainsFunc(q.items, domain.Item.IsPriority)
}

// PromoteOrInsertPriority moves the queued registration to the front, or
// inserts a new one tagged defaultTag when none is queued. An existing
// registration keeps its own tag so an install is never downgraded to an open.
//
// positionHint 0 places the registration at index 0; anything else places it
// at index 1, behind a head that is already in flight, or at the tail when the
// queue is shorter than that. The removal and the insert happen under a single
// lock acquisition.
func (q *Queue) PromoteOrInsertPriority(defaultTag string, positionHint int) {
	index := 1
	if positionHint == 0 {
		index = 0
	}

	q.mu.Lock()
	tag := defaultTag
	removed := false
	if i := slices.IndexFunc(q.items, domain.Item.IsPriority); i >= 0 {
		tag = q.items[i].Tag
		q.items = slices.Delete(q.items, i, i+1)
		removed = true
	}

	index = min(index, len(q.items))
	var evicted *domain.Item
	inserted := tag != "" && q.insertLocked(domain.NewItem(tag, nil), index)
	if inserted {
		evicted = q.evictLocked(q.capacity+1, index)
	}
	changed := removed || inserted
	if changed {
		q.observeLocked(evicted)
	}
	q.mu.Unlock()

	if changed {
		q.notify()
	}
}

// Items returns a copy of the queue contents in dispatch order.
func (q *Queue) Items() []domain.Item {
	q.mu.Lock()
	defer q.mu.Unlock()
	return slices.Clone(q.items)
}

func (q *Queue) insertLocked(item domain.Item, index int) bool {
	if index < 0 || index > len(q.items) {
		return false
	}
	q.items = slices.Insert(q.items, index, item)
	return true
}

// evictLocked removes one item once the queue holds limit items. Appends pass
// the capacity, inserts pass capacity+1. The oldest item behind the head goes
// first; after an insert at index 0 or 1 that is index 2, so neither the
// inserted item nor the head it displaced is lost.
func (q *Queue) evictLocked(limit, protect int) *domain.Item {
	if len(q.items) < limit || len(q.items) < 2 {
		return nil
	}
	victim := 1
	if (protect == 0 || protect == 1) && len(q.items) > 2 {
		victim = 2
	}
	item := q.items[victim]
	q.items = slices.Delete(q.items, victim, victim+1)
	return &item
}

// observeLocked reports a mutation to the hooks. It runs under q.mu so depth
// updates reach the gauge in mutation order.
func (q *Queue) observeLocked(evicted *domain.Item) {
	if evicted != nil {
		q.hooks.OnEvict(*evicted)
	}
	q.hooks.OnDepth(len(q.items))
}
