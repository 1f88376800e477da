package session

import "strings"

// KeySeparator splits composite session tokens of the form
// "tenant:session:channel".
const KeySeparator = ":"

// Key is a session token parsed once at the resolver boundary instead of
// being re-split ad hoc.
type Key struct {
	Raw           string
	LastSegment   string
	SecondSegment string
}

// ParseKey splits a raw session token into its candidate segments. For plain
// tokens the segments are empty.
func ParseKey(token string) Key {
	k := Key{Raw: token}
	if !strings.Contains(token, KeySeparator) {
		return k
	}
	parts := strings.Split(token, KeySeparator)
	k.LastSegment = parts[len(parts)-1]
	if len(parts) > 1 {
		k.SecondSegment = parts[1]
	}
	return k
}

// Candidates returns the match candidates in preference order: the raw
// token, then the last segment, then the second segment.
func (k Key) Candidates() []string {
	out := []string{k.Raw}
	if k.LastSegment != "" {
		out = append(out, k.LastSegment)
	}
	if k.SecondSegment != "" {
		out = append(out, k.SecondSegment)
	}
	return out
}

// Resolver maps raw session tokens onto the UI's known session list. It is
// tolerant of both bare and namespaced identifiers without requiring the
// emitting side to agree on a single format.
type Resolver struct {
	store *Store
}

func NewResolver(store *Store) *Resolver {
	return &Resolver{store: store}
}

// Resolve returns the first known session id matching the token's
// candidates, in preference order. It has no side effects.
func (r *Resolver) Resolve(token string) (string, bool) {
	if token == "" {
		return "", false
	}
	for _, candidate := range ParseKey(token).Candidates() {
		if r.store.Has(candidate) {
			return candidate, true
		}
	}
	return "", false
}
