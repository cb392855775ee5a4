package engine

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vodarr/vodarr/internal/layout"
	"github.com/vodarr/vodarr/internal/queue"
)

func TestResumeRequiresPendingWork(t *testing.T) {
	store := queue.NewStore(queue.Options{})
	eng := New(Config{}, store, nil, nil, nil, nil, layout.New(t.TempDir(), ""), slog.Default())

	store.SetRunning(true)
	store.SetPaused(true)

	eng.Resume()
	_, paused := store.Flags()
	assert.True(t, paused, "an empty queue must stay paused")

	_, created := store.Enqueue("/movies/Alien (1979).mkv", false, 0, time.Time{})
	require.True(t, created)

	eng.Resume()
	running, paused := store.Flags()
	assert.True(t, running)
	assert.False(t, paused)
}

func TestResumeIgnoredWhenNotPaused(t *testing.T) {
	store := queue.NewStore(queue.Options{})
	eng := New(Config{}, store, nil, nil, nil, nil, layout.New(t.TempDir(), ""), slog.Default())

	store.Enqueue("/movies/Alien (1979).mkv", false, 0, time.Time{})

	// Stopped, not paused: resume is not a start.
	eng.Resume()
	running, _ := store.Flags()
	assert.False(t, running)
}
