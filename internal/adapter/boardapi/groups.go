package boardapi

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"board-activity/internal/domain"
)

const groupsPath = "/api/groups"

var shortIDRe = regexp.MustCompile(`([A-Ga-g])$`)

// GroupClient fetches the roster from the board API. It implements
// domain.GroupClient.
type GroupClient struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

func NewGroupClient(baseURL string, httpClient *http.Client, logger *slog.Logger) *GroupClient {
	return &GroupClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		logger:     logger,
	}
}

type groupItemDTO struct {
	GroupID string `json:"group_id"`
}

type groupsResponse struct {
	Items []groupItemDTO `json:"items"`
}

// FetchGroups returns the groups active inside [since, until]. Upstream group
// ids end in the display letter (e.g. "workshop-2024-C"); that suffix becomes
// the short id, with the raw id kept for diff fetching.
func (c *GroupClient) FetchGroups(ctx context.Context, since, until time.Time) ([]domain.GroupInfo, error) {
	params := url.Values{}
	if !since.IsZero() {
		params.Set("since", since.UTC().Format(time.RFC3339))
	}
	if !until.IsZero() {
		params.Set("until", until.UTC().Format(time.RFC3339))
	}

	reqURL := c.baseURL + groupsPath
	if encoded := params.Encode(); encoded != "" {
		reqURL += "?" + encoded
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("failed to fetch groups: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, decodeError(resp)
	}

	var payload groupsResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode groups response: %w", err)
	}

	groups := make([]domain.GroupInfo, 0, len(payload.Items))
	seen := make(map[string]bool, len(payload.Items))
	for _, item := range payload.Items {
		rawID := strings.TrimSpace(item.GroupID)
		if rawID == "" || seen[rawID] {
			continue
		}
		seen[rawID] = true

		shortID := rawID
		if m := shortIDRe.FindStringSubmatch(rawID); m != nil {
			shortID = strings.ToUpper(m[1])
		}
		groups = append(groups, domain.GroupInfo{
			ID:    shortID,
			RawID: rawID,
			Name:  "Group " + shortID,
		})
	}

	c.logger.Debug("fetched roster", slog.Int("count", len(groups)))
	return groups, nil
}
