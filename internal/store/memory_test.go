package store

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryRunLifecycle(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	id := uuid.NewString()

	require.NoError(t, m.CreateRun(ctx, Run{ID: id, Problem: []byte(`{}`)}))
	run, err := m.GetRun(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, RunQueued, run.Status)

	require.NoError(t, m.StartRun(ctx, id))
	require.NoError(t, m.CompleteRun(ctx, id, RunDone, []byte(`{"code":0}`), "", 42))

	run, err = m.GetRun(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, RunDone, run.Status)
	assert.Equal(t, int64(42), run.SolvingMs)
	require.NotNil(t, run.CompletedAt)

	_, err = m.GetRun(ctx, uuid.NewString())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryListRunsPagination(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	base := time.Now().UTC()
	ids := []string{"a", "b", "c", "d"}
	for i, id := range ids {
		require.NoError(t, m.CreateRun(ctx, Run{ID: id, CreatedAt: base.Add(time.Duration(i) * time.Second)}))
	}

	page, next, err := m.ListRuns(ctx, "", "", 2)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "a", page[0].ID)
	assert.Equal(t, "b", next)

	page, next, err = m.ListRuns(ctx, "", next, 10)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "c", page[0].ID)
	assert.Empty(t, next)

	require.NoError(t, m.CompleteRun(ctx, "a", RunFailed, nil, "boom", 0))
	page, _, err = m.ListRuns(ctx, RunFailed, "", 10)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "a", page[0].ID)
}

func TestMemoryWebhookQueue(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	id, err := m.EnqueueWebhook(ctx, "run-1", "run.done", "http://example.test/hook", "s3cret", []byte(`{}`))
	require.NoError(t, err)

	due, err := m.FetchDueWebhookDeliveries(ctx, 10)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, "run-1", due[0].RunID)

	// A retry scheduled in the future keeps the delivery out of the due
	// set.
	next := time.Now().Add(time.Hour)
	require.NoError(t, m.MarkWebhookDelivery(ctx, id, false, &next, "503", 503, 12))
	due, err = m.FetchDueWebhookDeliveries(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, due)

	require.NoError(t, m.FailWebhookDelivery(ctx, id, "gave up", 503, 9))
	due, err = m.FetchDueWebhookDeliveries(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, due)
}
