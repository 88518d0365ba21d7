package audit

import (
	"context"
	"sync"
	"time"
)

// AsyncOptions tunes AsyncStore batching.
type AsyncOptions struct {
	BufferSize     int           // queued events before Store falls back to a synchronous write
	BatchSize      int           // events per write
	FlushInterval  time.Duration // upper bound on how long a partial batch waits
	StorageTimeout time.Duration // per-batch write timeout
}

func (o AsyncOptions) withDefaults() AsyncOptions {
	if o.BufferSize <= 0 {
		o.BufferSize = 1000
	}
	if o.BatchSize <= 0 {
		o.BatchSize = 100
	}
	if o.FlushInterval <= 0 {
		o.FlushInterval = 100 * time.Millisecond
	}
	if o.StorageTimeout <= 0 {
		o.StorageTimeout = 5 * time.Second
	}
	return o
}

// AsyncStore queues events and writes them to next in batches from a single
// goroutine. Store does not wait for the write; Close drains the queue.
type AsyncStore struct {
	next Store
	opts AsyncOptions

	queue chan Event
	done  chan struct{}
	wg    sync.WaitGroup

	mu     sync.RWMutex
	closed bool
	onErr  func(error)
}

// NewAsyncStore starts the writer goroutine. onErr, when set, receives batch
// write failures.
func NewAsyncStore(next Store, opts AsyncOptions, onErr func(error)) *AsyncStore {
	if next == nil {
		panic("audit: next store cannot be nil")
	}
	opts = opts.withDefaults()
	s := &AsyncStore{
		next:  next,
		opts:  opts,
		queue: make(chan Event, opts.BufferSize),
		done:  make(chan struct{}),
		onErr: onErr,
	}
	s.wg.Add(1)
	go s.run()
	return s
}

func (s *AsyncStore) Store(ctx context.Context, events ...Event) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrStoreClosed
	}
	for i, e := range events {
		select {
		case s.queue <- e:
		default:
			// Queue full: write the rest inline rather than drop them.
			return s.next.Store(ctx, events[i:]...)
		}
	}
	return nil
}

// Query reads through to next. Events still queued are not visible yet.
func (s *AsyncStore) Query(ctx context.Context, c Criteria) ([]Event, error) {
	return s.next.Query(ctx, c)
}

// Close stops accepting events and flushes what is queued. ctx bounds the wait.
func (s *AsyncStore) Close(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	close(s.done)
	s.mu.Unlock()

	flushed := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(flushed)
	}()
	select {
	case <-flushed:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *AsyncStore) run() {
	defer s.wg.Done()

	batch := make([]Event, 0, s.opts.BatchSize)
	ticker := time.NewTicker(s.opts.FlushInterval)
	defer ticker.Stop()

	flush := func() {
		if len(batch) == 0 {
			return
		}
		// Detached from callers so their cancellation cannot drop a batch.
		ctx, cancel := context.WithTimeout(context.Background(), s.opts.StorageTimeout)
		defer cancel()
		if err := s.next.Store(ctx, batch...); err != nil && s.onErr != nil {
			s.onErr(err)
		}
		batch = batch[:0]
	}

	for {
		select {
		case e := <-s.queue:
			batch = append(batch, e)
			if len(batch) >= s.opts.BatchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		case <-s.done:
			// Store holds the read lock while enqueueing, so nothing new arrives now.
			for {
				select {
				case e := <-s.queue:
					batch = append(batch, e)
					if len(batch) >= s.opts.BatchSize {
						flush()
					}
				default:
					flush()
					return
				}
			}
		}
	}
}
