package service

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vadim/postline/internal/domain/schedule/dao"
	"github.com/vadim/postline/internal/domain/schedule/entity"
)

var baseTime = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestService(t *testing.T) (*Service, *time.Time) {
	t.Helper()
	clock := baseTime
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := New(dao.NewEntryMemory(), logger, WithClock(func() time.Time { return clock }))
	return svc, &clock
}

func schedule(t *testing.T, svc *Service, draftID string, at time.Time) *entity.Entry {
	t.Helper()
	e, err := svc.Schedule(context.Background(), draftID, []string{"linkedin"}, at)
	require.NoError(t, err)
	return e
}

func TestScheduleValidation(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Schedule(context.Background(), "", []string{"linkedin"}, baseTime)
	assert.ErrorIs(t, err, entity.ErrEmptyDraftID)

	_, err = svc.Schedule(context.Background(), "d1", nil, baseTime)
	assert.ErrorIs(t, err, entity.ErrNoChannels)
}

func TestGetDueFiltersByTimeAndStatus(t *testing.T) {
	svc, clock := newTestService(t)

	past := schedule(t, svc, "d1", baseTime.Add(-time.Minute))
	exact := schedule(t, svc, "d2", baseTime)
	future := schedule(t, svc, "d3", baseTime.Add(time.Hour))

	cancelled := schedule(t, svc, "d4", baseTime.Add(-time.Hour))
	require.NoError(t, svc.Cancel(context.Background(), cancelled.ID))

	due, err := svc.GetDue(context.Background())
	require.NoError(t, err)

	ids := make(map[string]bool)
	for _, e := range due {
		ids[e.ID] = true
		assert.Equal(t, entity.EntryStatusScheduled, e.Status)
		assert.False(t, e.PublishAt.After(*clock))
	}
	assert.True(t, ids[past.ID])
	assert.True(t, ids[exact.ID], "publish_at == now is due")
	assert.False(t, ids[future.ID])
	assert.False(t, ids[cancelled.ID])
}

func TestMarkPublishedIdempotent(t *testing.T) {
	svc, _ := newTestService(t)
	e := schedule(t, svc, "d1", baseTime)

	changed, err := svc.MarkPublished(context.Background(), e.ID)
	require.NoError(t, err)
	assert.True(t, changed)

	// Second call is a no-op, not an error.
	changed, err = svc.MarkPublished(context.Background(), e.ID)
	require.NoError(t, err)
	assert.False(t, changed)

	cur, err := svc.Get(context.Background(), e.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.EntryStatusPublished, cur.Status)
}

func TestMarkFailedDoesNotOverwriteTerminal(t *testing.T) {
	svc, _ := newTestService(t)
	e := schedule(t, svc, "d1", baseTime)

	changed, err := svc.MarkPublished(context.Background(), e.ID)
	require.NoError(t, err)
	require.True(t, changed)

	changed, err = svc.MarkFailed(context.Background(), e.ID, "boom")
	require.NoError(t, err)
	assert.False(t, changed)

	cur, err := svc.Get(context.Background(), e.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.EntryStatusPublished, cur.Status)
	assert.Empty(t, cur.Error)
}

func TestCancelOnlyWhileScheduled(t *testing.T) {
	svc, _ := newTestService(t)
	e := schedule(t, svc, "d1", baseTime.Add(time.Hour))

	require.NoError(t, svc.Cancel(context.Background(), e.ID))

	err := svc.Cancel(context.Background(), e.ID)
	assert.ErrorIs(t, err, entity.ErrEntryAlreadyResolved)

	_, err = svc.MarkPublished(context.Background(), "missing")
	assert.ErrorIs(t, err, entity.ErrEntryNotFound)
}

func TestCleanupOldKeepsScheduledEntries(t *testing.T) {
	svc, _ := newTestService(t)

	oldScheduled := schedule(t, svc, "d1", baseTime.AddDate(0, 0, -30))
	oldFailed := schedule(t, svc, "d2", baseTime.AddDate(0, 0, -30))
	recentPublished := schedule(t, svc, "d3", baseTime.AddDate(0, 0, -2))

	_, err := svc.MarkFailed(context.Background(), oldFailed.ID, "boom")
	require.NoError(t, err)
	_, err = svc.MarkPublished(context.Background(), recentPublished.ID)
	require.NoError(t, err)

	removed, err := svc.CleanupOld(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	// Old but still scheduled: retained regardless of age.
	cur, err := svc.Get(context.Background(), oldScheduled.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.EntryStatusScheduled, cur.Status)

	// Recent terminal entry inside retention: retained.
	_, err = svc.Get(context.Background(), recentPublished.ID)
	require.NoError(t, err)

	// Old terminal entry: removed.
	_, err = svc.Get(context.Background(), oldFailed.ID)
	assert.ErrorIs(t, err, entity.ErrEntryNotFound)
}

func TestTimeFromOffset(t *testing.T) {
	svc, _ := newTestService(t)

	assert.Equal(t, baseTime, svc.TimeFromOffset("now"))
	assert.Equal(t, baseTime.Add(time.Hour), svc.TimeFromOffset("1h"))
	assert.Equal(t, baseTime.Add(3*time.Hour), svc.TimeFromOffset("3h"))
	assert.Equal(t, time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC), svc.TimeFromOffset("tomorrow"))
	assert.Equal(t, time.Date(2025, 6, 1, 18, 0, 0, 0, time.UTC), svc.TimeFromOffset("evening"))
	assert.Equal(t, baseTime, svc.TimeFromOffset("bogus"))
}
