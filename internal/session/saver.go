package session

import (
	"context"
	"sync"

	"github.com/xenking/supernova-store/internal/domain/cart"
)

// saver writes cart snapshots in the background. Only the latest pending
// snapshot is kept, so a slow store never queues stale carts.
type saver struct {
	store   cart.Store
	onError func(error)

	mu      sync.Mutex
	pending []cart.Line
	dirty   bool

	wake     chan struct{}
	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

func newSaver(store cart.Store, onError func(error)) *saver {
	return &saver{
		store:   store,
		onError: onError,
		wake:    make(chan struct{}, 1),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
}

// submit replaces the pending snapshot. It never blocks.
func (s *saver) submit(lines []cart.Line) {
	s.mu.Lock()
	s.pending = lines
	s.dirty = true
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *saver) run(ctx context.Context) {
	defer close(s.done)
	for {
		select {
		case <-s.wake:
			s.flush(ctx)
		case <-s.stop:
			s.flush(ctx)
			return
		}
	}
}

func (s *saver) flush(ctx context.Context) {
	s.mu.Lock()
	if !s.dirty {
		s.mu.Unlock()
		return
	}
	lines := s.pending
	s.pending, s.dirty = nil, false
	s.mu.Unlock()

	if err := s.store.Save(ctx, lines); err != nil {
		s.onError(err)
	}
}

// close flushes the pending snapshot and stops the goroutine.
func (s *saver) close(ctx context.Context) error {
	s.stopOnce.Do(func() { close(s.stop) })
	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
