package usecase

import (
	"context"
	"log/slog"
	"time"

	"board-activity/internal/cache"
	"board-activity/internal/domain"
)

// SummaryLoader is the shared fetch → aggregate → write-through path used by
// the manager, the synchronous summary endpoint and every prefetch worker.
// It owns the error-preserving cache-entry semantics: a failed load records
// its error without destroying a previously cached summary for the same key.
type SummaryLoader struct {
	client domain.DiffClient
	store  *cache.Store
	logger *slog.Logger
	limit  int
}

func NewSummaryLoader(client domain.DiffClient, store *cache.Store, limit int, logger *slog.Logger) *SummaryLoader {
	return &SummaryLoader{
		client: client,
		store:  store,
		logger: logger,
		limit:  limit,
	}
}

// Load fetches diffs for group over the resolved range, aggregates them and
// writes the outcome through to the cache under key. The fetch window starts
// at the previous window's start so late-arriving context is available to the
// aggregator. Cancelled loads write nothing and surface the context error.
func (l *SummaryLoader) Load(ctx context.Context, key string, group domain.GroupInfo, cr *domain.ComputedRange) (domain.DiffSummary, error) {
	query := domain.DiffQuery{
		Since: cr.PreviousStart,
		Until: cr.CurrentEnd,
		Limit: l.limit,
	}

	records, err := l.fetchWithCandidates(ctx, group, query)
	if err != nil {
		if domain.IsCancelled(err) {
			return domain.DiffSummary{}, err
		}
		// A fetch can fail with a real upstream error after the caller was
		// already cancelled; the superseded key must not gain an entry.
		if ctx.Err() != nil {
			return domain.DiffSummary{}, ctx.Err()
		}
		// Reading the previous entry also refreshes the key's LRU recency, so
		// a repeatedly failing key keeps its stale summary resident.
		previous, _ := l.store.Get(key)
		l.store.Set(key, cache.Entry{
			Summary:  previous.Summary,
			Err:      domain.FormatFetchError(err),
			StoredAt: time.Now(),
		})
		l.logger.Warn("diff fetch failed",
			slog.String("key", key),
			slog.String("group", group.Identifier()),
			slog.String("error", err.Error()))
		return domain.DiffSummary{}, err
	}

	summary := domain.AggregateDiffs(records, cr)

	// A cancellation racing the fetch completion must not reach the cache.
	if ctx.Err() != nil {
		return domain.DiffSummary{}, ctx.Err()
	}

	l.store.Set(key, cache.Entry{Summary: &summary, StoredAt: time.Now()})
	return summary, nil
}

// fetchWithCandidates tries every identifier form the board may know the
// group by, advancing only on NotFound-class failures. Any other failure is
// returned as-is: retrying a transport error under a different name would
// just double the pressure on a rate-sensitive upstream.
func (l *SummaryLoader) fetchWithCandidates(ctx context.Context, group domain.GroupInfo, q domain.DiffQuery) ([]domain.DiffRecord, error) {
	candidates := group.IDCandidates()
	if len(candidates) == 0 {
		return nil, nil
	}

	var lastErr error
	for _, candidate := range candidates {
		records, err := l.client.FetchDiffs(ctx, candidate, q)
		if err == nil {
			return records, nil
		}
		if domain.IsCancelled(err) {
			return nil, err
		}
		if domain.IsNotFound(err) {
			lastErr = err
			continue
		}
		return nil, err
	}
	return nil, lastErr
}
