package session

import (
	"github.com/tejjnayak/clawdeck/internal/proto"
)

// ProviderUsage is one row of a per-provider or per-local-model usage
// breakdown.
type ProviderUsage struct {
	Requests     int64 `json:"requests"`
	InputTokens  int64 `json:"input_tokens"`
	OutputTokens int64 `json:"output_tokens"`
}

// Session is one chat conversation tab. Sessions are created and destroyed
// by the UI layer; the event core only appends messages and folds usage into
// the counters.
type Session struct {
	ID    string `json:"id"`
	Title string `json:"title"`

	Messages []proto.Message `json:"messages"`

	Cost              float64 `json:"cost"`
	InputTokens       int64   `json:"input_tokens"`
	OutputTokens      int64   `json:"output_tokens"`
	RequestCount      int64   `json:"request_count"`
	LocalRequestCount int64   `json:"local_request_count"`

	ProviderRequests map[string]*ProviderUsage `json:"provider_requests,omitempty"`
	LocalModelUsage  map[string]*ProviderUsage `json:"local_model_usage,omitempty"`
}

// New returns an empty session with the given id.
func New(id, title string) *Session {
	return &Session{
		ID:               id,
		Title:            title,
		ProviderRequests: make(map[string]*ProviderUsage),
		LocalModelUsage:  make(map[string]*ProviderUsage),
	}
}

// LastMessage returns a pointer to the trailing message, or nil for an empty
// transcript.
func (s *Session) LastMessage() *proto.Message {
	if len(s.Messages) == 0 {
		return nil
	}
	return &s.Messages[len(s.Messages)-1]
}

// Append adds a message to the end of the transcript.
func (s *Session) Append(msg proto.Message) {
	s.Messages = append(s.Messages, msg)
}

// Store holds the closed set of sessions known to the UI plus the focus
// marker. The event core never adds or removes entries.
type Store struct {
	order    []string
	sessions map[string]*Session
	focused  string
}

// NewStore builds a store over the given sessions. The first session starts
// focused.
func NewStore(sessions ...*Session) *Store {
	s := &Store{
		sessions: make(map[string]*Session, len(sessions)),
	}
	for _, sess := range sessions {
		if _, dup := s.sessions[sess.ID]; dup {
			continue
		}
		s.order = append(s.order, sess.ID)
		s.sessions[sess.ID] = sess
	}
	if len(s.order) > 0 {
		s.focused = s.order[0]
	}
	return s
}

// Get returns the session with the given id.
func (s *Store) Get(id string) (*Session, bool) {
	sess, ok := s.sessions[id]
	return sess, ok
}

// Has reports whether id names a known session.
func (s *Store) Has(id string) bool {
	_, ok := s.sessions[id]
	return ok
}

// IDs returns the known session ids in UI order.
func (s *Store) IDs() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// FocusedID returns the id of the currently visible session, or "" when
// nothing is focused.
func (s *Store) FocusedID() string {
	return s.focused
}

// Focused returns the currently visible session, or nil.
func (s *Store) Focused() *Session {
	return s.sessions[s.focused]
}

// SetFocused moves focus to the given session. Unknown ids are ignored so a
// stale UI focus change cannot point the store at a session that does not
// exist.
func (s *Store) SetFocused(id string) {
	if _, ok := s.sessions[id]; ok {
		s.focused = id
	}
}
