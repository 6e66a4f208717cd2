package usecase_test

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"board-activity/internal/cache"
	"board-activity/internal/domain"
	"board-activity/internal/usecase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockDiffClient is a test double for domain.DiffClient.
type MockDiffClient struct {
	mock.Mock
}

func (m *MockDiffClient) FetchDiffs(ctx context.Context, groupID string, q domain.DiffQuery) ([]domain.DiffRecord, error) {
	args := m.Called(ctx, groupID, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.DiffRecord), args.Error(1)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func testRange(t *testing.T) *domain.ComputedRange {
	t.Helper()
	cr := domain.ResolveRange("2024-05-01", "11:25〜11:30")
	require.NotNil(t, cr)
	return cr
}

func TestSummaryLoader_Load_FetchWindowAndLimit(t *testing.T) {
	cr := testRange(t)
	group := domain.GroupInfo{ID: "A", RawID: "grp-42"}

	client := new(MockDiffClient)
	client.On("FetchDiffs", mock.Anything, "grp-42", domain.DiffQuery{
		Since: cr.PreviousStart,
		Until: cr.CurrentEnd,
		Limit: 500,
	}).Return([]domain.DiffRecord{}, nil)

	store := cache.NewStore(8)
	loader := usecase.NewSummaryLoader(client, store, 500, discardLogger())

	_, err := loader.Load(context.Background(), "key", group, cr)
	require.NoError(t, err)
	client.AssertExpectations(t)

	entry, ok := store.Get("key")
	require.True(t, ok)
	require.NotNil(t, entry.Summary)
	assert.Zero(t, entry.Summary.Total)
	assert.Empty(t, entry.Err)
}

func TestSummaryLoader_Load_CandidateRetryOnNotFound(t *testing.T) {
	cr := testRange(t)
	group := domain.GroupInfo{ID: "A", RawID: "grp-raw", Name: "Group A"}

	client := new(MockDiffClient)
	client.On("FetchDiffs", mock.Anything, "grp-raw", mock.Anything).
		Return(nil, &domain.UpstreamError{Status: 404, Message: "Mapping not found"}).Once()
	client.On("FetchDiffs", mock.Anything, "Group A", mock.Anything).
		Return([]domain.DiffRecord{{BoardID: "b", DiffAt: "2024-05-01T02:26:00Z"}}, nil).Once()

	store := cache.NewStore(8)
	loader := usecase.NewSummaryLoader(client, store, 500, discardLogger())

	summary, err := loader.Load(context.Background(), "key", group, cr)
	require.NoError(t, err)
	assert.Equal(t, "b", summary.BoardID)
	client.AssertExpectations(t)
}

func TestSummaryLoader_Load_NoRetryOnTransientFailure(t *testing.T) {
	cr := testRange(t)
	group := domain.GroupInfo{ID: "A", RawID: "grp-raw", Name: "Group A"}

	client := new(MockDiffClient)
	client.On("FetchDiffs", mock.Anything, "grp-raw", mock.Anything).
		Return(nil, &domain.UpstreamError{Status: 500, Message: "boom"})

	store := cache.NewStore(8)
	loader := usecase.NewSummaryLoader(client, store, 500, discardLogger())

	_, err := loader.Load(context.Background(), "key", group, cr)
	require.Error(t, err)
	client.AssertNumberOfCalls(t, "FetchDiffs", 1)
}

func TestSummaryLoader_Load_FailurePreservesPriorSummary(t *testing.T) {
	cr := testRange(t)
	group := domain.GroupInfo{ID: "A", RawID: "grp-42"}

	store := cache.NewStore(8)
	prior := &domain.DiffSummary{Total: 7}
	store.Set("key", cache.Entry{Summary: prior})

	client := new(MockDiffClient)
	client.On("FetchDiffs", mock.Anything, mock.Anything, mock.Anything).
		Return(nil, &domain.UpstreamError{Status: 503, Message: "briefly down"})

	loader := usecase.NewSummaryLoader(client, store, 500, discardLogger())
	_, err := loader.Load(context.Background(), "key", group, cr)
	require.Error(t, err)

	entry, ok := store.Get("key")
	require.True(t, ok)
	assert.Equal(t, prior, entry.Summary, "stale summary survives the failed refresh")
	assert.Equal(t, "briefly down", entry.Err)
}

func TestSummaryLoader_Load_CancelledDuringUpstreamFailureWritesNothing(t *testing.T) {
	cr := testRange(t)
	group := domain.GroupInfo{ID: "A", RawID: "grp-42"}

	// The upstream fails with a real error while the caller has already been
	// cancelled; the superseded key must not gain an error entry.
	client := new(MockDiffClient)
	client.On("FetchDiffs", mock.Anything, mock.Anything, mock.Anything).
		Return(nil, &domain.UpstreamError{Status: 502, Message: "bad gateway"})

	store := cache.NewStore(8)
	loader := usecase.NewSummaryLoader(client, store, 500, discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := loader.Load(ctx, "key", group, cr)
	require.Error(t, err)
	assert.True(t, domain.IsCancelled(err))
	assert.False(t, store.Contains("key"))
}

func TestSummaryLoader_Load_CancelledWritesNothing(t *testing.T) {
	cr := testRange(t)
	group := domain.GroupInfo{ID: "A", RawID: "grp-42"}

	client := new(MockDiffClient)
	client.On("FetchDiffs", mock.Anything, mock.Anything, mock.Anything).
		Return(nil, context.Canceled)

	store := cache.NewStore(8)
	loader := usecase.NewSummaryLoader(client, store, 500, discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := loader.Load(ctx, "key", group, cr)
	require.Error(t, err)
	assert.True(t, domain.IsCancelled(err))
	assert.False(t, store.Contains("key"))
}
