package queue

import "sync"

// Lazy hands out one queue, opened on first use. It replaces a package-level
// singleton: whoever composes the application owns the Lazy and passes it to
// the components that need the queue.
type Lazy struct {
	get func() (*Queue, error)
}

// NewLazy wraps open so that it runs at most once, however many goroutines
// call Get concurrently.
func NewLazy(open func() (*Queue, error)) *Lazy {
	return &Lazy{get: sync.OnceValues(open)}
}

// Get returns the queue, opening it on the first call. An open error is
// returned to every caller.
func (l *Lazy) Get() (*Queue, error) {
	return l.get()
}
