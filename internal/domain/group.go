package domain

import (
	"fmt"
	"strings"
)

// GroupInfo identifies one group in the roster. ID is the internal short id
// ("A".."G"), RawID the upstream-assigned identifier, Name the display name.
type GroupInfo struct {
	ID    string `json:"id"`
	RawID string `json:"rawId,omitempty"`
	Name  string `json:"name,omitempty"`
}

// Identifier returns the stable identifier used in cache keys: the raw
// upstream id when present, else the display name, else the short id.
// Prefetch and the primary fetch path must agree on this resolution so both
// hash a group to the same key.
func (g GroupInfo) Identifier() string {
	for _, candidate := range []string{strings.TrimSpace(g.RawID), strings.TrimSpace(g.Name), g.ID} {
		if candidate != "" {
			return candidate
		}
	}
	return fmt.Sprintf("Group %s", g.ID)
}

// IDCandidates returns every identifier form the upstream may know this group
// by, in retry order. Duplicates are removed, order preserved.
func (g GroupInfo) IDCandidates() []string {
	raw := []string{g.RawID, g.Name, g.ID, fmt.Sprintf("Group %s", g.ID)}

	seen := make(map[string]bool, len(raw))
	candidates := make([]string, 0, len(raw))
	for _, candidate := range raw {
		trimmed := strings.TrimSpace(candidate)
		if trimmed == "" || seen[trimmed] {
			continue
		}
		seen[trimmed] = true
		candidates = append(candidates, trimmed)
	}
	return candidates
}
