package usecase

import (
	"context"
	"log/slog"
	"sync"

	"board-activity/internal/cache"
	"board-activity/internal/domain"
)

// Selection is one "active" choice of group, date and time range, together
// with the roster used to pick prefetch targets. Active false means the board
// activity panel is not visible; everything is torn down.
type Selection struct {
	Active    bool
	Group     *domain.GroupInfo
	Roster    []domain.GroupInfo
	Date      string
	TimeRange string
}

// State is the manager-facing view consumed by the UI.
type State struct {
	Summary *domain.DiffSummary `json:"summary"`
	Loading bool                `json:"loading"`
	Error   string              `json:"error,omitempty"`
}

// PrefetchTrigger warms the cache for sibling groups once the active group's
// entry is settled. Implemented by worker.Prefetcher.
type PrefetchTrigger interface {
	Trigger(sel Selection, cr *domain.ComputedRange)
	Cancel()
}

// SummaryManager orchestrates the board activity summary for a single active
// selection: it resolves the range, serves from cache or fetches, exposes
// the loading/error/summary state, and triggers sibling prefetch. In-flight
// fetches are fenced by a monotonically increasing epoch: a completion whose
// epoch no longer matches is discarded without touching state.
type SummaryManager struct {
	loader   *SummaryLoader
	store    *cache.Store
	prefetch PrefetchTrigger
	logger   *slog.Logger

	mu        sync.Mutex
	selection Selection
	state     State
	epoch     uint64
	cancel    context.CancelFunc
}

func NewSummaryManager(loader *SummaryLoader, store *cache.Store, prefetch PrefetchTrigger, logger *slog.Logger) *SummaryManager {
	return &SummaryManager{
		loader:   loader,
		store:    store,
		prefetch: prefetch,
		logger:   logger,
	}
}

// Activate switches the manager to a new selection. Incomplete input yields a
// deterministic guidance message and never issues a fetch. A cache hit is
// served immediately with no loading flicker; a miss starts an asynchronous
// fetch that supersedes any fetch still in flight.
func (m *SummaryManager) Activate(sel Selection) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.supersedeLocked()
	m.selection = sel

	if !sel.Active {
		m.state = State{}
		if m.prefetch != nil {
			m.prefetch.Cancel()
		}
		return
	}
	if sel.Group == nil {
		m.state = State{Error: domain.ErrNoGroupSelected.Error()}
		return
	}
	if sel.Date == "" || sel.TimeRange == "" {
		m.state = State{Error: domain.ErrRangeNotSelected.Error()}
		return
	}
	cr := domain.ResolveRange(sel.Date, sel.TimeRange)
	if cr == nil {
		m.state = State{Error: domain.ErrRangeInvalid.Error()}
		return
	}

	key := cache.Key(*sel.Group, sel.Date, sel.TimeRange)
	if entry, ok := m.store.Get(key); ok {
		m.state = State{Summary: entry.Summary, Error: entry.Err}
		m.triggerPrefetchLocked(sel, cr)
		return
	}

	m.state = State{Loading: true}
	m.startFetchLocked(sel, cr, key)
}

// Refresh re-evaluates the current selection. With force true the cache read
// is bypassed and a fresh fetch issued; the last known summary stays visible
// while it runs (and after it fails). Without force a cached entry is served
// as-is.
func (m *SummaryManager) Refresh(force bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sel := m.selection
	if !sel.Active || sel.Group == nil || sel.Date == "" || sel.TimeRange == "" {
		return
	}
	cr := domain.ResolveRange(sel.Date, sel.TimeRange)
	if cr == nil {
		return
	}
	key := cache.Key(*sel.Group, sel.Date, sel.TimeRange)

	if !force {
		if entry, ok := m.store.Get(key); ok {
			m.state = State{Summary: entry.Summary, Error: entry.Err}
			return
		}
	}

	m.supersedeLocked()
	m.state = State{Summary: m.state.Summary, Loading: true}
	m.startFetchLocked(sel, cr, key)
}

// State returns a snapshot of the current summary, loading and error state.
func (m *SummaryManager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// supersedeLocked invalidates any in-flight fetch: its completion will see a
// stale epoch and discard itself, and its context is cancelled so the fetch
// unblocks promptly.
func (m *SummaryManager) supersedeLocked() {
	m.epoch++
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
}

func (m *SummaryManager) startFetchLocked(sel Selection, cr *domain.ComputedRange, key string) {
	epoch := m.epoch
	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel

	go func() {
		defer cancel()
		summary, err := m.loader.Load(ctx, key, *sel.Group, cr)

		m.mu.Lock()
		defer m.mu.Unlock()
		if m.epoch != epoch {
			return
		}
		m.cancel = nil

		if err != nil {
			if domain.IsCancelled(err) {
				return
			}
			// The loader preserved any prior summary in the entry; surface it
			// alongside the new error so stale data stays visible.
			entry, _ := m.store.Get(key)
			m.state = State{Summary: entry.Summary, Error: entry.Err}
			m.triggerPrefetchLocked(sel, cr)
			return
		}

		m.state = State{Summary: &summary}
		m.triggerPrefetchLocked(sel, cr)
	}()
}

// triggerPrefetchLocked fans out cache warming for the roster siblings. Only
// called once the active key's entry exists, so prefetch never races the
// primary fetch for the same key.
func (m *SummaryManager) triggerPrefetchLocked(sel Selection, cr *domain.ComputedRange) {
	if m.prefetch == nil || len(sel.Roster) <= 1 {
		return
	}
	m.prefetch.Trigger(sel, cr)
}
