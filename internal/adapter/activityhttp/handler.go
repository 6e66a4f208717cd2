// Package activityhttp exposes the summary manager over HTTP.
package activityhttp

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"board-activity/internal/cache"
	"board-activity/internal/domain"
	"board-activity/internal/usecase"
)

type Handler struct {
	manager *usecase.SummaryManager
	loader  *usecase.SummaryLoader
	store   *cache.Store
	groups  domain.GroupClient
	logger  *slog.Logger
}

func NewHandler(
	manager *usecase.SummaryManager,
	loader *usecase.SummaryLoader,
	store *cache.Store,
	groups domain.GroupClient,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		manager: manager,
		loader:  loader,
		store:   store,
		groups:  groups,
		logger:  logger,
	}
}

func (h *Handler) Register(e *echo.Echo) {
	e.GET("/v1/health", h.Health)
	e.GET("/v1/activity/groups", h.Groups)
	e.POST("/v1/activity/select", h.Select)
	e.GET("/v1/activity/state", h.GetState)
	e.POST("/v1/activity/refresh", h.Refresh)
	e.GET("/v1/activity/summary", h.Summary)
}

func (h *Handler) Health(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

type selectRequest struct {
	GroupID   string `json:"group_id"`
	Date      string `json:"date"`
	TimeRange string `json:"time_range"`
	Active    *bool  `json:"active"`
}

// Select activates a new (group, date, range) selection and returns the
// resulting state snapshot. The snapshot may still be loading; clients poll
// GET /v1/activity/state until it settles.
func (h *Handler) Select(ctx echo.Context) error {
	var req selectRequest
	if err := ctx.Bind(&req); err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request"})
	}

	active := req.Active == nil || *req.Active
	sel := usecase.Selection{
		Active:    active,
		Date:      req.Date,
		TimeRange: req.TimeRange,
	}

	if active && strings.TrimSpace(req.GroupID) != "" {
		roster := h.fetchRoster(ctx, req.Date, req.TimeRange)
		sel.Roster = roster
		group := findGroup(roster, req.GroupID)
		sel.Group = &group
	}

	h.manager.Activate(sel)
	return ctx.JSON(http.StatusOK, h.manager.State())
}

func (h *Handler) GetState(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, h.manager.State())
}

type refreshRequest struct {
	Force bool `json:"force"`
}

func (h *Handler) Refresh(ctx echo.Context) error {
	var req refreshRequest
	if err := ctx.Bind(&req); err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request"})
	}
	h.manager.Refresh(req.Force)
	return ctx.JSON(http.StatusOK, h.manager.State())
}

// Groups proxies the roster so CLI tooling can enumerate prefetch targets.
func (h *Handler) Groups(ctx echo.Context) error {
	var since, until time.Time
	if cr := domain.ResolveRange(ctx.QueryParam("date"), ctx.QueryParam("time_range")); cr != nil {
		since, until = cr.CurrentStart, cr.CurrentEnd
	}
	groups, err := h.groups.FetchGroups(ctx.Request().Context(), since, until)
	if err != nil {
		h.logger.Warn("roster fetch failed", slog.String("error", err.Error()))
		return ctx.JSON(http.StatusBadGateway, map[string]string{"error": "failed to fetch groups"})
	}
	return ctx.JSON(http.StatusOK, map[string]any{"groups": groups})
}

// Summary is the synchronous path: it resolves, serves from cache or loads
// inline on the request context, and returns the summary for one group. Used
// by the warm CLI; it shares loader semantics with the manager but does not
// touch manager state or trigger prefetch.
func (h *Handler) Summary(ctx echo.Context) error {
	groupID := strings.TrimSpace(ctx.QueryParam("group_id"))
	date := ctx.QueryParam("date")
	timeRange := ctx.QueryParam("time_range")

	if groupID == "" {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": domain.ErrNoGroupSelected.Error()})
	}
	if date == "" || timeRange == "" {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": domain.ErrRangeNotSelected.Error()})
	}
	cr := domain.ResolveRange(date, timeRange)
	if cr == nil {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": domain.ErrRangeInvalid.Error()})
	}

	group := domain.GroupInfo{RawID: groupID}
	key := cache.Key(group, date, timeRange)
	if entry, ok := h.store.Get(key); ok && entry.Summary != nil {
		return ctx.JSON(http.StatusOK, map[string]any{"summary": entry.Summary, "cached": true})
	}

	summary, err := h.loader.Load(ctx.Request().Context(), key, group, cr)
	if err != nil {
		if domain.IsCancelled(err) {
			return err
		}
		return ctx.JSON(http.StatusBadGateway, map[string]string{"error": domain.FormatFetchError(err)})
	}
	return ctx.JSON(http.StatusOK, map[string]any{"summary": summary, "cached": false})
}

// fetchRoster pulls the roster for the selection's window. A roster failure
// only disables sibling prefetch; the primary selection still proceeds.
func (h *Handler) fetchRoster(ctx echo.Context, date, timeRange string) []domain.GroupInfo {
	var since, until time.Time
	if cr := domain.ResolveRange(date, timeRange); cr != nil {
		since, until = cr.CurrentStart, cr.CurrentEnd
	}
	roster, err := h.groups.FetchGroups(ctx.Request().Context(), since, until)
	if err != nil {
		h.logger.Warn("roster fetch failed, prefetch disabled for this selection",
			slog.String("error", err.Error()))
		return nil
	}
	return roster
}

// findGroup resolves the requested identifier against the roster; unknown
// identifiers still produce a usable group so diffs can be fetched directly
// by raw id.
func findGroup(roster []domain.GroupInfo, groupID string) domain.GroupInfo {
	trimmed := strings.TrimSpace(groupID)
	for _, group := range roster {
		if group.RawID == trimmed || group.ID == trimmed || group.Name == trimmed {
			return group
		}
	}
	return domain.GroupInfo{RawID: trimmed}
}
