// Package boardapi implements the collaboration-board API clients.
package boardapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"board-activity/internal/domain"
)

const diffsPath = "/api/board/diffs"

// Client talks to the board API over HTTP. It implements domain.DiffClient.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

func NewClient(baseURL string, httpClient *http.Client, logger *slog.Logger) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		logger:     logger,
	}
}

// The board API is migrating field names; both camelCase and snake_case forms
// are in the wild, so the DTOs accept either and the first non-empty wins.
type diffDTO struct {
	BoardID      string            `json:"boardId"`
	BoardIDSnake string            `json:"board_id"`
	DiffAt       string            `json:"diffAt"`
	DiffAtSnake  string            `json:"diff_at"`
	Added        []map[string]any  `json:"added"`
	Updated      []map[string]any  `json:"updated"`
	Deleted      []deletedItemDTO  `json:"deleted"`
}

type deletedItemDTO struct {
	ID   any    `json:"id"`
	Type string `json:"type"`
}

type errorBody struct {
	Error  string `json:"error"`
	Detail string `json:"detail"`
}

// FetchDiffs retrieves diff records for one group identifier over [since,
// until]. Non-2xx responses become *domain.UpstreamError with the upstream
// message when the body carries one.
func (c *Client) FetchDiffs(ctx context.Context, groupID string, q domain.DiffQuery) ([]domain.DiffRecord, error) {
	groupID = strings.TrimSpace(groupID)
	if groupID == "" {
		return nil, fmt.Errorf("group id is required to fetch diffs")
	}

	params := url.Values{}
	params.Set("group_id", groupID)
	if !q.Since.IsZero() {
		params.Set("since", q.Since.UTC().Format("2006-01-02T15:04:05.000Z07:00"))
	}
	if !q.Until.IsZero() {
		params.Set("until", q.Until.UTC().Format("2006-01-02T15:04:05.000Z07:00"))
	}
	if q.Limit > 0 {
		params.Set("limit", strconv.Itoa(q.Limit))
	}

	reqURL := c.baseURL + diffsPath + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	requestID := uuid.NewString()
	req.Header.Set("X-Request-Id", requestID)

	c.logger.Debug("fetching board diffs",
		slog.String("request_id", requestID),
		slog.String("group_id", groupID),
		slog.Int("limit", q.Limit))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("failed to fetch board diffs: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, decodeError(resp)
	}

	var payload []diffDTO
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		// Non-array payloads are treated as empty, matching upstream behavior
		// for groups with no recorded activity.
		return nil, nil
	}

	records := make([]domain.DiffRecord, 0, len(payload))
	for _, dto := range payload {
		if record, ok := mapDiff(dto); ok {
			records = append(records, record)
		}
	}

	c.logger.Debug("fetched board diffs",
		slog.String("request_id", requestID),
		slog.String("group_id", groupID),
		slog.Int("count", len(records)))
	return records, nil
}

func decodeError(resp *http.Response) error {
	upstream := &domain.UpstreamError{Status: resp.StatusCode}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err != nil || len(body) == 0 {
		return upstream
	}

	var decoded errorBody
	if err := json.Unmarshal(body, &decoded); err == nil {
		if decoded.Error != "" {
			upstream.Message = decoded.Error
		} else if decoded.Detail != "" {
			upstream.Message = decoded.Detail
		}
	} else {
		upstream.Message = strings.TrimSpace(string(body))
	}
	return upstream
}

// mapDiff converts a wire record to the domain shape. Records missing a board
// id or timestamp are discarded before aggregation ever sees them.
func mapDiff(dto diffDTO) (domain.DiffRecord, bool) {
	boardID := firstNonEmpty(dto.BoardID, dto.BoardIDSnake)
	diffAt := firstNonEmpty(dto.DiffAt, dto.DiffAtSnake)
	if boardID == "" || diffAt == "" {
		return domain.DiffRecord{}, false
	}

	record := domain.DiffRecord{
		BoardID: boardID,
		DiffAt:  diffAt,
		Added:   mapItems(dto.Added),
		Updated: mapUpdatedItems(dto.Updated),
	}
	for _, item := range dto.Deleted {
		id := normalizeID(item.ID)
		if id == "" {
			continue
		}
		record.Deleted = append(record.Deleted, domain.DeletedItem{
			ID:   id,
			Type: strings.TrimSpace(item.Type),
		})
	}
	return record, true
}

// mapItems keeps added object entries as-is. Items without a usable id are
// NOT dropped here: they still count toward the category totals, and detail
// construction skips them later.
func mapItems(entries []map[string]any) []domain.ItemRecord {
	if len(entries) == 0 {
		return nil
	}
	items := make([]domain.ItemRecord, 0, len(entries))
	for _, entry := range entries {
		if entry == nil {
			continue
		}
		itemType, _ := entry["type"].(string)
		items = append(items, domain.ItemRecord{
			ID:      normalizeID(entry["id"]),
			Type:    strings.TrimSpace(itemType),
			Payload: entry,
		})
	}
	return items
}

// mapUpdatedItems resolves each update's identity through its before/after
// snapshots: upstream regularly nests id and type inside the change payload
// instead of the envelope. Updates with no id in any of the three places
// carry nothing renderable and are dropped, unlike added items.
func mapUpdatedItems(entries []map[string]any) []domain.ItemRecord {
	if len(entries) == 0 {
		return nil
	}
	items := make([]domain.ItemRecord, 0, len(entries))
	for _, entry := range entries {
		if entry == nil {
			continue
		}
		before := snapshotField(entry, "before", "before_data")
		after := snapshotField(entry, "after", "after_data")

		id := firstNonEmpty(normalizeID(entry["id"]), normalizeID(after["id"]), normalizeID(before["id"]))
		if id == "" {
			continue
		}
		itemType := firstNonEmpty(typeField(entry), typeField(after), typeField(before))

		items = append(items, domain.ItemRecord{
			ID:      id,
			Type:    itemType,
			Payload: buildUpdatePayload(entry, before, after, id, itemType),
		})
	}
	return items
}

// buildUpdatePayload rebuilds the update envelope with normalized identity
// and snapshot fields, keeping every other top-level field in place for the
// aggregator's text extractors.
func buildUpdatePayload(entry, before, after map[string]any, id, itemType string) map[string]any {
	payload := make(map[string]any, len(entry)+4)
	for key, value := range entry {
		switch key {
		case "before", "before_data", "after", "after_data",
			"beforeText", "before_text", "afterText", "after_text",
			"changedPaths", "changed_paths":
			continue
		}
		payload[key] = value
	}
	payload["id"] = id
	if itemType != "" {
		payload["type"] = itemType
	}
	if before != nil {
		payload["before"] = before
	}
	if after != nil {
		payload["after"] = after
	}
	if text := stringField(entry, "beforeText", "before_text"); text != "" {
		payload["beforeText"] = text
	}
	if text := stringField(entry, "afterText", "after_text"); text != "" {
		payload["afterText"] = text
	}
	if paths, ok := changedPaths(entry); ok {
		payload["changedPaths"] = paths
	}
	return payload
}

func snapshotField(entry map[string]any, keys ...string) map[string]any {
	for _, key := range keys {
		if snapshot, ok := entry[key].(map[string]any); ok {
			return snapshot
		}
	}
	return nil
}

func typeField(m map[string]any) string {
	s, _ := m["type"].(string)
	return strings.TrimSpace(s)
}

func stringField(entry map[string]any, keys ...string) string {
	for _, key := range keys {
		if s, ok := entry[key].(string); ok {
			if trimmed := strings.TrimSpace(s); trimmed != "" {
				return trimmed
			}
		}
	}
	return ""
}

func changedPaths(entry map[string]any) ([]string, bool) {
	for _, key := range []string{"changedPaths", "changed_paths"} {
		raw, ok := entry[key].([]any)
		if !ok {
			continue
		}
		paths := make([]string, 0, len(raw))
		for _, v := range raw {
			if s, ok := v.(string); ok {
				if trimmed := strings.TrimSpace(s); trimmed != "" {
					paths = append(paths, trimmed)
				}
			}
		}
		return paths, true
	}
	return nil, false
}

// normalizeID accepts the two id shapes the board API emits: strings and
// finite numbers.
func normalizeID(v any) string {
	switch id := v.(type) {
	case string:
		return strings.TrimSpace(id)
	case float64:
		if id == float64(int64(id)) {
			return strconv.FormatInt(int64(id), 10)
		}
		return strconv.FormatFloat(id, 'f', -1, 64)
	default:
		return ""
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			return trimmed
		}
	}
	return ""
}
