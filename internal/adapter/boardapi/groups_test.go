package boardapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGroupClient_FetchGroups(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/groups", r.URL.Path)
		assert.Equal(t, "2024-05-01T02:25:00Z", r.URL.Query().Get("since"))
		assert.Equal(t, "2024-05-01T02:30:00Z", r.URL.Query().Get("until"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"items": [
			{"group_id": "workshop-2024-a"},
			{"group_id": "workshop-2024-B"},
			{"group_id": "workshop-2024-a"},
			{"group_id": "  "},
			{"group_id": "control-room"}
		]}`))
	}))
	defer server.Close()

	client := NewGroupClient(server.URL, &http.Client{Timeout: 5 * time.Second}, testLogger())
	groups, err := client.FetchGroups(context.Background(),
		time.Date(2024, 5, 1, 2, 25, 0, 0, time.UTC),
		time.Date(2024, 5, 1, 2, 30, 0, 0, time.UTC))
	require.NoError(t, err)

	require.Len(t, groups, 3, "duplicates and blanks are dropped")

	assert.Equal(t, "A", groups[0].ID, "trailing letter becomes the short id")
	assert.Equal(t, "workshop-2024-a", groups[0].RawID)
	assert.Equal(t, "Group A", groups[0].Name)

	assert.Equal(t, "B", groups[1].ID)

	assert.Equal(t, "control-room", groups[2].ID, "ids without a letter suffix keep the raw form")
}

func TestGroupClient_FetchGroups_UpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error": "sessions store down"}`))
	}))
	defer server.Close()

	client := NewGroupClient(server.URL, &http.Client{Timeout: 5 * time.Second}, testLogger())
	_, err := client.FetchGroups(context.Background(), time.Time{}, time.Time{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sessions store down")
}
