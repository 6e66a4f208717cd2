package domain

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Guidance errors for incomplete input. These are user-facing strings, not
// failures: the manager surfaces them without issuing any fetch.
var (
	// ErrNoGroupSelected indicates activation without a selected group.
	ErrNoGroupSelected = errors.New("no group selected")

	// ErrRangeNotSelected indicates a missing date or time-range selection.
	ErrRangeNotSelected = errors.New("select a time range to view diffs")

	// ErrRangeInvalid indicates a time-range label that does not resolve.
	ErrRangeInvalid = errors.New("time range format invalid")
)

// genericFetchFailure is surfaced when the upstream gave no usable message.
const genericFetchFailure = "failed to fetch board diffs"

// boardMappingNotFound is surfaced for NotFound-class upstream failures.
const boardMappingNotFound = "board mapping not found; register the board mapping first"

// UpstreamError is a non-2xx response from the board API with the decoded
// upstream message, when one was present.
type UpstreamError struct {
	Status  int
	Message string
}

func (e *UpstreamError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("board api: %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("board api: unexpected status %d", e.Status)
}

// IsNotFound reports whether err is a NotFound-class upstream failure: the
// group mapping does not exist on the board side. This class alone lets the
// caller advance to the next identifier candidate.
func IsNotFound(err error) bool {
	var upstream *UpstreamError
	if !errors.As(err, &upstream) {
		return false
	}
	if upstream.Status == http.StatusNotFound || upstream.Status == http.StatusBadRequest {
		return true
	}
	return strings.Contains(strings.ToLower(upstream.Message), "mapping not found")
}

// IsCancelled reports whether err stems from caller-side cancellation.
// Cancellation is not a failure and must produce no state or cache change.
func IsCancelled(err error) bool {
	return errors.Is(err, context.Canceled)
}

// FormatFetchError maps a fetch failure to the short, actionable string shown
// to the user. The raw upstream message is used only when no recognized error
// shape is present.
func FormatFetchError(err error) string {
	if err == nil {
		return ""
	}
	if IsNotFound(err) {
		return boardMappingNotFound
	}
	var upstream *UpstreamError
	if errors.As(err, &upstream) && upstream.Message != "" {
		return upstream.Message
	}
	return genericFetchFailure
}
