package domain_test

import (
	"testing"

	"board-activity/internal/domain"

	"github.com/stretchr/testify/assert"
)

func TestGroupInfo_Identifier(t *testing.T) {
	tests := []struct {
		name  string
		group domain.GroupInfo
		want  string
	}{
		{name: "raw id wins", group: domain.GroupInfo{ID: "A", RawID: "grp-42", Name: "Group A"}, want: "grp-42"},
		{name: "name when no raw id", group: domain.GroupInfo{ID: "A", Name: "Group A"}, want: "Group A"},
		{name: "short id as last resort", group: domain.GroupInfo{ID: "A"}, want: "A"},
		{name: "whitespace raw id ignored", group: domain.GroupInfo{ID: "A", RawID: "   ", Name: "Group A"}, want: "Group A"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.group.Identifier())
		})
	}
}

func TestGroupInfo_IDCandidates(t *testing.T) {
	group := domain.GroupInfo{ID: "C", RawID: "workshop-C", Name: "Group C"}
	assert.Equal(t, []string{"workshop-C", "Group C", "C"}, group.IDCandidates())
}

func TestGroupInfo_IDCandidates_Dedupes(t *testing.T) {
	group := domain.GroupInfo{ID: "B", RawID: "Group B", Name: "Group B"}
	assert.Equal(t, []string{"Group B", "B"}, group.IDCandidates())
}
