package handlers

import (
	"context"
	"testing"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vodarr/vodarr/internal/queue"
)

// newQueueHandler wires a handler over a bare store. Operations that only
// touch the store are testable without a running engine.
func newQueueHandler(t *testing.T) (*QueueHandler, *queue.Store) {
	t.Helper()
	store := queue.NewStore(queue.Options{})
	return NewQueueHandler(nil, store), store
}

func enqueueN(t *testing.T, store *queue.Store, names ...string) []string {
	t.Helper()
	ids := make([]string, 0, len(names))
	for _, name := range names {
		job, created := store.Enqueue("/movies/"+name, false, 0, time.Time{})
		require.True(t, created)
		ids = append(ids, job.ID)
	}
	return ids
}

func TestQueueHandlerGet(t *testing.T) {
	handler, store := newQueueHandler(t)
	enqueueN(t, store, "a.mkv", "b.mkv")

	output, err := handler.Get(context.Background(), &GetQueueInput{})
	require.NoError(t, err)
	assert.Len(t, output.Body.Pending, 2)
	assert.Empty(t, output.Body.Active)
	assert.Empty(t, output.Body.Completed)
}

func TestQueueHandlerMove(t *testing.T) {
	handler, store := newQueueHandler(t)
	ids := enqueueN(t, store, "a.mkv", "b.mkv", "c.mkv")
	ctx := context.Background()

	output, err := handler.MoveUp(ctx, &JobIDInput{ID: ids[1]})
	require.NoError(t, err)
	assert.True(t, output.Body.OK)
	assert.Equal(t, ids[1], store.Pending()[0].ID)

	output, err = handler.MoveToTop(ctx, &JobIDInput{ID: ids[2]})
	require.NoError(t, err)
	assert.True(t, output.Body.OK)
	assert.Equal(t, ids[2], store.Pending()[0].ID)

	_, err = handler.MoveDown(ctx, &JobIDInput{ID: "unknown"})
	require.Error(t, err)
	var status huma.StatusError
	require.ErrorAs(t, err, &status)
	assert.Equal(t, 404, status.GetStatus())
}

func TestQueueHandlerReorder(t *testing.T) {
	handler, store := newQueueHandler(t)
	ids := enqueueN(t, store, "a.mkv", "b.mkv", "c.mkv")
	ctx := context.Background()

	input := &ReorderInput{}
	input.Body.IDs = []string{ids[2], ids[0], ids[1]}
	output, err := handler.Reorder(ctx, input)
	require.NoError(t, err)
	assert.True(t, output.Body.OK)
	assert.Equal(t, ids[2], store.Pending()[0].ID)

	// A partial list rejects the whole operation.
	input = &ReorderInput{}
	input.Body.IDs = []string{ids[0]}
	_, err = handler.Reorder(ctx, input)
	require.Error(t, err)
	var status huma.StatusError
	require.ErrorAs(t, err, &status)
	assert.Equal(t, 400, status.GetStatus())
}

func TestQueueHandlerRemove(t *testing.T) {
	handler, store := newQueueHandler(t)
	ids := enqueueN(t, store, "a.mkv", "b.mkv")

	input := &RemoveJobsInput{}
	input.Body.IDs = []string{ids[0], "unknown"}
	output, err := handler.Remove(context.Background(), input)
	require.NoError(t, err)
	assert.Equal(t, 1, output.Body.Removed)

	pending, _, _ := store.Counts()
	assert.Equal(t, 1, pending)
}

func TestQueueHandlerDeduplicate(t *testing.T) {
	handler, store := newQueueHandler(t)
	enqueueN(t, store, "a.mkv")

	output, err := handler.Deduplicate(context.Background(), &ControlInput{})
	require.NoError(t, err)
	assert.Zero(t, output.Body.Removed)
}
