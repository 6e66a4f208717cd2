package domain

import (
	"context"
	"time"
)

// ItemRecord is one added or updated item inside a diff record. Board item
// payloads are shape-dependent (sticky notes, shapes, connectors all carry
// different fields), so everything beyond id/type stays in the raw payload
// and is interpreted lazily when a detail title is derived.
type ItemRecord struct {
	ID      string
	Type    string
	Payload map[string]any
}

// DeletedItem is the reduced item shape the upstream reports for deletions.
type DeletedItem struct {
	ID   string
	Type string
}

// DiffRecord is one upstream change-log entry: a batch of added, updated and
// deleted items sharing a single timestamp. DiffAt stays in its wire form;
// records whose timestamp does not parse are discarded during aggregation.
type DiffRecord struct {
	BoardID string
	DiffAt  string
	Added   []ItemRecord
	Updated []ItemRecord
	Deleted []DeletedItem
}

// DiffSummaryDetail is a normalized, display-ready record for one changed item.
type DiffSummaryDetail struct {
	ID       string `json:"id"`
	Type     string `json:"type,omitempty"`
	Title    string `json:"title"`
	Subtitle string `json:"subtitle,omitempty"`
	DiffAt   string `json:"diffAt"`
	Link     string `json:"link,omitempty"`
}

// DiffSummaryDetails groups the per-category detail listings. Each list is
// sorted most recent first.
type DiffSummaryDetails struct {
	Added   []DiffSummaryDetail `json:"added"`
	Updated []DiffSummaryDetail `json:"updated"`
	Deleted []DiffSummaryDetail `json:"deleted"`
}

// DiffSummary is the aggregation result for one (group, window) pair.
type DiffSummary struct {
	Added      int                `json:"added"`
	Updated    int                `json:"updated"`
	Deleted    int                `json:"deleted"`
	Total      int                `json:"total"`
	DiffCount  int                `json:"diffCount"`
	BoardID    string             `json:"boardId,omitempty"`
	LastDiffAt string             `json:"lastDiffAt,omitempty"`
	Details    DiffSummaryDetails `json:"details"`
}

// DiffQuery bounds a diff fetch against the board API.
type DiffQuery struct {
	Since time.Time
	Until time.Time
	Limit int
}

// DiffClient retrieves raw change-log records for one group identifier from
// the collaboration board API.
type DiffClient interface {
	FetchDiffs(ctx context.Context, groupID string, q DiffQuery) ([]DiffRecord, error)
}

// GroupClient fetches the roster of groups active in a time window.
type GroupClient interface {
	FetchGroups(ctx context.Context, since, until time.Time) ([]GroupInfo, error)
}
