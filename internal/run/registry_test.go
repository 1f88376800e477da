package run

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tejjnayak/clawdeck/internal/session"
)

func newTestRegistry(t *testing.T, capacity int, ids ...string) *Registry {
	t.Helper()
	sessions := make([]*session.Session, 0, len(ids))
	for _, id := range ids {
		sessions = append(sessions, session.New(id, id))
	}
	return NewRegistry(capacity, session.NewResolver(session.NewStore(sessions...)))
}

func TestTrackResolvesSession(t *testing.T) {
	t.Parallel()
	r := newTestRegistry(t, 0, "main")

	evicted := r.Track("run-1", "agent:main:discord")
	require.Empty(t, evicted)
	require.True(t, r.Has("run-1"))

	id, ok := r.SessionFor("run-1")
	require.True(t, ok)
	require.Equal(t, "main", id)
}

func TestTrackFirstResolutionWins(t *testing.T) {
	t.Parallel()
	r := newTestRegistry(t, 0, "main", "other")

	r.Track("run-1", "main")
	// Later events with a different hint must not rebind the run.
	r.Track("run-1", "other")

	id, ok := r.SessionFor("run-1")
	require.True(t, ok)
	require.Equal(t, "main", id)
}

func TestTrackResolvesLaterWhenFirstHintMisses(t *testing.T) {
	t.Parallel()
	r := newTestRegistry(t, 0, "main")

	r.Track("run-1", "unknown")
	_, ok := r.SessionFor("run-1")
	require.False(t, ok)

	r.Track("run-1", "main")
	id, ok := r.SessionFor("run-1")
	require.True(t, ok)
	require.Equal(t, "main", id)
}

func TestTrackEvictsOldestAtCapacity(t *testing.T) {
	t.Parallel()
	r := newTestRegistry(t, 0, "main")

	for i := range DefaultCapacity {
		r.Track(fmt.Sprintf("run-%d", i), "main")
	}
	require.Equal(t, DefaultCapacity, r.Len())

	evicted := r.Track("run-overflow", "main")
	require.Equal(t, []string{"run-0"}, evicted)
	require.Equal(t, DefaultCapacity, r.Len())
	require.False(t, r.Has("run-0"))
	require.True(t, r.Has("run-1"))
	require.True(t, r.Has("run-overflow"))

	// The evicted run's session mapping is gone with it.
	_, ok := r.SessionFor("run-0")
	require.False(t, ok)
}

func TestTrackIgnoresEmptyRunID(t *testing.T) {
	t.Parallel()
	r := newTestRegistry(t, 0, "main")

	require.Empty(t, r.Track("", "main"))
	require.Zero(t, r.Len())
}

func TestResolveSession(t *testing.T) {
	t.Parallel()
	r := newTestRegistry(t, 0, "main", "other")

	r.Track("run-1", "main")

	// Stored mapping wins over the fallback hint.
	id, ok := r.ResolveSession("run-1", "other")
	require.True(t, ok)
	require.Equal(t, "main", id)

	// Unknown run falls back to resolving the hint.
	id, ok = r.ResolveSession("run-2", "other")
	require.True(t, ok)
	require.Equal(t, "other", id)

	_, ok = r.ResolveSession("run-2", "unknown")
	require.False(t, ok)
}

func TestRemoveIsIdempotent(t *testing.T) {
	t.Parallel()
	r := newTestRegistry(t, 0, "main")

	r.Track("run-1", "main")

	id, ok := r.Remove("run-1")
	require.True(t, ok)
	require.Equal(t, "main", id)
	require.False(t, r.Has("run-1"))

	// A duplicate terminal misses cleanly.
	_, ok = r.Remove("run-1")
	require.False(t, ok)
}

func TestRemoveMarksFinished(t *testing.T) {
	t.Parallel()
	r := newTestRegistry(t, 0, "main")

	r.Track("run-1", "main")
	r.Remove("run-1")

	require.True(t, r.Finished("run-1"))
	require.False(t, r.Finished("run-2"))
}

func TestMarkFinished(t *testing.T) {
	t.Parallel()
	r := newTestRegistry(t, 3, "main")

	// Never-tracked runs can be marked directly.
	r.MarkFinished("run-1")
	require.True(t, r.Finished("run-1"))

	r.MarkFinished("")
	require.False(t, r.Finished(""))

	// The finished set is bounded, oldest first.
	r.MarkFinished("run-2")
	r.MarkFinished("run-3")
	r.MarkFinished("run-4")
	require.False(t, r.Finished("run-1"))
	require.True(t, r.Finished("run-2"))
	require.True(t, r.Finished("run-4"))

	// Re-marking a finished run does not grow the set.
	r.MarkFinished("run-4")
	require.True(t, r.Finished("run-2"))
}
