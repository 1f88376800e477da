// Package run tracks in-flight agent runs and their session attribution.
package run

import (
	"time"

	"github.com/tejjnayak/clawdeck/internal/session"
)

// DefaultCapacity bounds the number of concurrently tracked runs. When the
// registry is full the oldest run (by insertion order) is evicted, silently
// abandoning its bookkeeping.
const DefaultCapacity = 100

type entry struct {
	startedAt time.Time
	sessionID string
}

// Registry is a bounded map from run id to its creation time and resolved
// session. A run's session mapping, once resolved, is never overwritten.
// Completed run ids are remembered in a second bounded set so a terminal
// event seen twice can be told apart from a run whose terminal frame is its
// first sight.
type Registry struct {
	capacity      int
	order         []string
	runs          map[string]*entry
	finished      map[string]struct{}
	finishedOrder []string
	resolver      *session.Resolver
	now           func() time.Time
}

// NewRegistry returns a registry with the given capacity; zero or negative
// means [DefaultCapacity].
func NewRegistry(capacity int, resolver *session.Resolver) *Registry {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Registry{
		capacity: capacity,
		runs:     make(map[string]*entry, capacity),
		finished: make(map[string]struct{}, capacity),
		resolver: resolver,
		now:      time.Now,
	}
}

// Track registers a run's existence and attempts to resolve its session from
// the hint. An already resolved mapping is kept as is: later events may
// carry stale or absent hints. It returns the ids of any runs evicted to
// make room so the caller can drop their buffers too.
func (r *Registry) Track(runID, sessionHint string) (evicted []string) {
	if runID == "" {
		return nil
	}
	if e, ok := r.runs[runID]; ok {
		if e.sessionID == "" {
			if id, ok := r.resolver.Resolve(sessionHint); ok {
				e.sessionID = id
			}
		}
		return nil
	}

	for len(r.runs) >= r.capacity {
		oldest := r.order[0]
		r.order = r.order[1:]
		delete(r.runs, oldest)
		evicted = append(evicted, oldest)
	}

	e := &entry{startedAt: r.now()}
	if id, ok := r.resolver.Resolve(sessionHint); ok {
		e.sessionID = id
	}
	r.order = append(r.order, runID)
	r.runs[runID] = e
	return evicted
}

// Has reports whether the run is currently tracked.
func (r *Registry) Has(runID string) bool {
	_, ok := r.runs[runID]
	return ok
}

// Len returns the number of tracked runs.
func (r *Registry) Len() int {
	return len(r.runs)
}

// SessionFor returns the stored session mapping for a run.
func (r *Registry) SessionFor(runID string) (string, bool) {
	e, ok := r.runs[runID]
	if !ok || e.sessionID == "" {
		return "", false
	}
	return e.sessionID, true
}

// ResolveSession attributes an event to a session: the stored mapping for
// the run if there is one, else a fresh resolution of fallbackHint. The
// second return is false when neither produced an id; callers then fall back
// to the focused session so unattributable events still render somewhere
// sane.
func (r *Registry) ResolveSession(runID, fallbackHint string) (string, bool) {
	if id, ok := r.SessionFor(runID); ok {
		return id, true
	}
	if id, ok := r.resolver.Resolve(fallbackHint); ok {
		return id, true
	}
	return "", false
}

// Remove clears the run's registry state, returning its session mapping, and
// marks the run finished. A second Remove for the same run misses cleanly,
// which is what makes terminal-event handling idempotent.
func (r *Registry) Remove(runID string) (sessionID string, ok bool) {
	e, ok := r.runs[runID]
	if !ok {
		return "", false
	}
	delete(r.runs, runID)
	for i, id := range r.order {
		if id == runID {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	r.MarkFinished(runID)
	return e.sessionID, true
}

// MarkFinished records that the run completed. The set is bounded to the
// registry capacity, oldest first.
func (r *Registry) MarkFinished(runID string) {
	if runID == "" {
		return
	}
	if _, ok := r.finished[runID]; ok {
		return
	}
	for len(r.finished) >= r.capacity {
		oldest := r.finishedOrder[0]
		r.finishedOrder = r.finishedOrder[1:]
		delete(r.finished, oldest)
	}
	r.finished[runID] = struct{}{}
	r.finishedOrder = append(r.finishedOrder, runID)
}

// Finished reports whether the run recently completed.
func (r *Registry) Finished(runID string) bool {
	_, ok := r.finished[runID]
	return ok
}
