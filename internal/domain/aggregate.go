package domain

import (
	"fmt"
	"html"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
)

const maxTitleLength = 160

// Item payloads arrive with board-flavored rich text; titles are derived from
// the first extractor that yields a non-empty sanitized string. Structured
// content fields are preferred over the generic top-level ones.
var (
	payloadTextKeys  = []string{"content", "plainText", "title", "text", "description"}
	topLevelTextKeys = []string{"title", "text", "content", "caption", "name"}

	stripPolicy  = bluemonday.StrictPolicy()
	whitespaceRe = regexp.MustCompile(`\s+`)
)

type internalDetail struct {
	DiffSummaryDetail
	timestampMs int64
}

// AggregateDiffs reduces a list of diff records into category counts and
// detail listings for the resolved window. Only records whose timestamp
// parses and falls inside [CurrentStart, CurrentEnd] (inclusive both ends)
// contribute to counts; board identity and last-activity timestamp are taken
// from all input records so they survive an empty window. The function never
// fails: malformed records and id-less items are dropped, not reported.
func AggregateDiffs(records []DiffRecord, cr *ComputedRange) DiffSummary {
	var summary DiffSummary
	var lastDiffMs int64 = -1 << 62
	buckets := map[string][]internalDetail{}

	for _, record := range records {
		if summary.BoardID == "" && record.BoardID != "" {
			summary.BoardID = record.BoardID
		}

		diffAt, err := time.Parse(time.RFC3339, record.DiffAt)
		if err != nil {
			continue
		}
		diffMs := diffAt.UnixMilli()

		if diffMs > lastDiffMs {
			lastDiffMs = diffMs
			summary.LastDiffAt = record.DiffAt
		}

		if diffMs < cr.CurrentStartMs || diffMs > cr.CurrentEndMs {
			continue
		}

		summary.DiffCount++
		summary.Added += len(record.Added)
		summary.Updated += len(record.Updated)
		summary.Deleted += len(record.Deleted)

		for _, item := range record.Added {
			if detail, ok := buildDetail(item, record.DiffAt, diffMs); ok {
				buckets["added"] = append(buckets["added"], detail)
			}
		}
		for _, item := range record.Updated {
			if detail, ok := buildDetail(item, record.DiffAt, diffMs); ok {
				buckets["updated"] = append(buckets["updated"], detail)
			}
		}
		for _, item := range record.Deleted {
			if detail, ok := buildDeletedDetail(item, record.DiffAt, diffMs); ok {
				buckets["deleted"] = append(buckets["deleted"], detail)
			}
		}
	}

	summary.Total = summary.Added + summary.Updated + summary.Deleted
	summary.Details = DiffSummaryDetails{
		Added:   sortedDetails(buckets["added"]),
		Updated: sortedDetails(buckets["updated"]),
		Deleted: sortedDetails(buckets["deleted"]),
	}
	return summary
}

func buildDetail(item ItemRecord, diffAt string, diffMs int64) (internalDetail, bool) {
	id := strings.TrimSpace(item.ID)
	if id == "" {
		return internalDetail{}, false
	}

	itemType := strings.TrimSpace(item.Type)

	title := extractItemText(item)
	if title == "" {
		if itemType != "" {
			title = fmt.Sprintf("%s (%s)", itemType, id)
		} else {
			title = fmt.Sprintf("ID: %s", id)
		}
	}

	return internalDetail{
		DiffSummaryDetail: DiffSummaryDetail{
			ID:       id,
			Type:     itemType,
			Title:    truncateLabel(title, maxTitleLength),
			Subtitle: buildSubtitle(itemType, id),
			DiffAt:   diffAt,
			Link:     extractItemLink(item.Payload),
		},
		timestampMs: diffMs,
	}, true
}

func buildDeletedDetail(item DeletedItem, diffAt string, diffMs int64) (internalDetail, bool) {
	id := strings.TrimSpace(item.ID)
	if id == "" {
		return internalDetail{}, false
	}
	itemType := strings.TrimSpace(item.Type)

	title := fmt.Sprintf("ID: %s", id)
	if itemType != "" {
		title = fmt.Sprintf("%s (%s)", itemType, id)
	}

	return internalDetail{
		DiffSummaryDetail: DiffSummaryDetail{
			ID:       id,
			Type:     itemType,
			Title:    truncateLabel(title, maxTitleLength),
			Subtitle: buildSubtitle(itemType, id),
			DiffAt:   diffAt,
		},
		timestampMs: diffMs,
	}, true
}

func buildSubtitle(itemType, id string) string {
	if itemType != "" {
		return fmt.Sprintf("type: %s / ID: %s", itemType, id)
	}
	return fmt.Sprintf("ID: %s", id)
}

// extractItemText tries the structured payload fields first, then the generic
// top-level ones, returning the first non-empty sanitized candidate.
func extractItemText(item ItemRecord) string {
	if data, ok := item.Payload["data"].(map[string]any); ok {
		for _, key := range payloadTextKeys {
			if text := sanitizeRichText(stringValue(data[key])); text != "" {
				return text
			}
		}
	}
	for _, key := range topLevelTextKeys {
		if text := sanitizeRichText(stringValue(item.Payload[key])); text != "" {
			return text
		}
	}
	return ""
}

func extractItemLink(payload map[string]any) string {
	links, ok := payload["links"].(map[string]any)
	if !ok {
		return ""
	}
	return strings.TrimSpace(stringValue(links["self"]))
}

func stringValue(v any) string {
	s, _ := v.(string)
	return s
}

// sanitizeRichText strips markup and collapses whitespace runs to a single
// space. Board text fields often embed HTML fragments.
func sanitizeRichText(value string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return ""
	}
	text := html.UnescapeString(stripPolicy.Sanitize(trimmed))
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(text, " "))
}

func truncateLabel(value string, maxLength int) string {
	runes := []rune(value)
	if len(runes) <= maxLength {
		return value
	}
	head := strings.TrimRight(string(runes[:maxLength-1]), " \t")
	return head + "…"
}

func sortedDetails(details []internalDetail) []DiffSummaryDetail {
	sort.SliceStable(details, func(i, j int) bool {
		return details[i].timestampMs > details[j].timestampMs
	})
	out := make([]DiffSummaryDetail, len(details))
	for i, d := range details {
		out[i] = d.DiffSummaryDetail
	}
	return out
}
