package di

import (
	"log/slog"
	"time"

	"board-activity/internal/adapter/boardapi"
	"board-activity/internal/cache"
	"board-activity/internal/domain"
	"board-activity/internal/infra/config"
	"board-activity/internal/infra/httpclient"
	"board-activity/internal/usecase"
	"board-activity/internal/worker"
)

// ApplicationComponents holds all wired dependencies for the application.
type ApplicationComponents struct {
	Store       *cache.Store
	DiffClient  domain.DiffClient
	GroupClient domain.GroupClient
	Loader      *usecase.SummaryLoader
	Prefetcher  *worker.Prefetcher
	Manager     *usecase.SummaryManager
}

// NewApplicationComponents wires all dependencies from config.
func NewApplicationComponents(cfg *config.Config, log *slog.Logger) *ApplicationComponents {
	// Shared HTTP client with connection pooling; its timeout is the fetch
	// deadline for every upstream call.
	boardHTTP := httpclient.NewPooledClient(time.Duration(cfg.BoardAPITimeout) * time.Second)

	diffClient := boardapi.NewClient(cfg.BoardAPIURL, boardHTTP, log)
	groupClient := boardapi.NewGroupClient(cfg.BoardAPIURL, boardHTTP, log)

	store := cache.NewStore(cfg.CacheMaxEntries)
	loader := usecase.NewSummaryLoader(diffClient, store, cfg.DiffFetchLimit, log)
	prefetcher := worker.NewPrefetcher(loader, store, cfg.PrefetchConcurrency, log)
	manager := usecase.NewSummaryManager(loader, store, prefetcher, log)

	return &ApplicationComponents{
		Store:       store,
		DiffClient:  diffClient,
		GroupClient: groupClient,
		Loader:      loader,
		Prefetcher:  prefetcher,
		Manager:     manager,
	}
}
