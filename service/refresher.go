package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pagebound/backend/models"
	"github.com/pagebound/backend/providers"
	"go.uber.org/zap"
)

// Refresher runs the detached work a request schedules but never waits on:
// staleness-triggered provider refreshes, access-stat touches and cover
// mirroring. A bounded worker pool rather than bare goroutines, so shutdown
// and tests can drain it deterministically. Task failures are logged and
// dropped; there are no retries.
type Refresher struct {
	store   Store
	clients map[models.APISource]providers.Client
	timeout time.Duration
	log     *zap.Logger

	tasks chan task
	wg    sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

type task struct {
	id   string
	kind string
	run  func(ctx context.Context) error
}

// NewRefresher builds the pool. workers goroutines consume a queue of size
// queueSize; when the queue is full new tasks are dropped, never blocked on.
func NewRefresher(st Store, chain []providers.Client, timeout time.Duration, workers, queueSize int, log *zap.Logger) *Refresher {
	if workers <= 0 {
		workers = 2
	}
	if queueSize <= 0 {
		queueSize = 64
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	clients := make(map[models.APISource]providers.Client, len(chain))
	for _, c := range chain {
		clients[c.Name()] = c
	}
	r := &Refresher{
		store:   st,
		clients: clients,
		timeout: timeout,
		log:     log,
		tasks:   make(chan task, queueSize),
	}
	for i := 0; i < workers; i++ {
		r.wg.Add(1)
		go r.worker()
	}
	return r
}

func (r *Refresher) worker() {
	defer r.wg.Done()
	for t := range r.tasks {
		ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
		if err := t.run(ctx); err != nil {
			r.log.Warn("background task failed",
				zap.String("task", t.id),
				zap.String("kind", t.kind),
				zap.Error(err))
		}
		cancel()
	}
}

// Submit queues a task without blocking. Returns false when the queue is full
// or the pool is shut down; the task is simply dropped.
func (r *Refresher) Submit(kind string, run func(ctx context.Context) error) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return false
	}
	t := task{id: uuid.New().String(), kind: kind, run: run}
	select {
	case r.tasks <- t:
		return true
	default:
		r.log.Warn("background queue full, dropping task", zap.String("kind", kind))
		return false
	}
}

// RefreshBook schedules a re-fetch of the record from its originating
// provider, replacing volumeInfo/saleInfo and bumping lastUpdated. At most one
// attempt per trigger.
func (r *Refresher) RefreshBook(book models.Book) bool {
	client, ok := r.clients[book.APISource]
	providerID := book.ProviderID()
	if !ok || providerID == "" || book.ID.IsZero() {
		return false
	}
	id := book.ID
	return r.Submit("refresh", func(ctx context.Context) error {
		rec, err := client.GetByIdentifier(ctx, providerID)
		if err != nil {
			return err
		}
		return r.store.UpdateFromRefresh(ctx, id, *rec)
	})
}

// TouchAccess schedules the usage-stat bump for a served record.
func (r *Refresher) TouchAccess(book models.Book) bool {
	if book.ID.IsZero() {
		return false
	}
	id := book.ID
	return r.Submit("touch", func(ctx context.Context) error {
		return r.store.TouchAccess(ctx, id)
	})
}

// Drain stops accepting tasks and waits for queued work to finish. Used at
// shutdown and by tests that assert on store state.
func (r *Refresher) Drain() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		r.wg.Wait()
		return
	}
	r.closed = true
	close(r.tasks)
	r.mu.Unlock()
	r.wg.Wait()
}
