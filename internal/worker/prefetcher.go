// Package worker runs the background cache-warming pool.
package worker

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"board-activity/internal/cache"
	"board-activity/internal/domain"
	"board-activity/internal/usecase"
)

// Prefetcher warms the cache for every roster group except the active one,
// using a fixed-size pool of workers pulling from one shared FIFO queue.
// Each Trigger starts a new generation; workers check the generation before
// every task and abandon the queue once superseded, so rapid selection
// changes waste at most one in-flight fetch per worker.
type Prefetcher struct {
	loader      *usecase.SummaryLoader
	store       *cache.Store
	logger      *slog.Logger
	concurrency int

	gen    atomic.Uint64
	mu     sync.Mutex
	cancel context.CancelFunc
}

var _ usecase.PrefetchTrigger = (*Prefetcher)(nil)

func NewPrefetcher(loader *usecase.SummaryLoader, store *cache.Store, concurrency int, logger *slog.Logger) *Prefetcher {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Prefetcher{
		loader:      loader,
		store:       store,
		logger:      logger,
		concurrency: concurrency,
	}
}

// Trigger starts prefetching summaries for the selection's sibling groups.
// Groups whose key is already cached are skipped without occupying a worker.
// Results are only written to the cache, never surfaced to manager state;
// individual failures are logged and swallowed so one group's failure cannot
// abort the rest.
func (p *Prefetcher) Trigger(sel usecase.Selection, cr *domain.ComputedRange) {
	if sel.Group == nil || cr == nil {
		return
	}

	gen := p.gen.Add(1)
	ctx := p.replaceContext()

	active := *sel.Group
	var tasks []domain.GroupInfo
	for _, group := range sel.Roster {
		if group.ID == active.ID {
			continue
		}
		if p.store.Contains(cache.Key(group, sel.Date, sel.TimeRange)) {
			continue
		}
		tasks = append(tasks, group)
	}
	if len(tasks) == 0 {
		return
	}

	queue := make(chan domain.GroupInfo, len(tasks))
	for _, task := range tasks {
		queue <- task
	}
	close(queue)

	workers := p.concurrency
	if workers > len(tasks) {
		workers = len(tasks)
	}

	p.logger.Debug("prefetch started",
		slog.Uint64("generation", gen),
		slog.Int("tasks", len(tasks)),
		slog.Int("workers", workers))

	go p.run(ctx, gen, workers, queue, sel, cr)
}

// Cancel aborts all outstanding prefetch work, e.g. when the activity panel
// is hidden.
func (p *Prefetcher) Cancel() {
	p.gen.Add(1)
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
}

// replaceContext cancels the previous generation's context and installs a
// fresh one.
func (p *Prefetcher) replaceContext() context.Context {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		p.cancel()
	}
	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	return ctx
}

func (p *Prefetcher) run(ctx context.Context, gen uint64, workers int, queue <-chan domain.GroupInfo, sel usecase.Selection, cr *domain.ComputedRange) {
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < workers; i++ {
		g.Go(func() error {
			for group := range queue {
				if p.gen.Load() != gen || gctx.Err() != nil {
					return nil
				}
				key := cache.Key(group, sel.Date, sel.TimeRange)
				if p.store.Contains(key) {
					continue
				}
				if _, err := p.loader.Load(gctx, key, group, cr); err != nil && !domain.IsCancelled(err) {
					p.logger.Warn("prefetch task failed",
						slog.String("group", group.Identifier()),
						slog.String("error", err.Error()))
				}
			}
			return nil
		})
	}
	_ = g.Wait()
}
