package proto

// ChatState is the state discriminator on chat events.
type ChatState string

const (
	// ChatStateStreaming is the implicit state of a content delta; most
	// gateways omit the field entirely while streaming.
	ChatStateStreaming ChatState = "streaming"
	ChatStateFinal     ChatState = "final"
	ChatStateError     ChatState = "error"
)

func (s ChatState) MarshalText() ([]byte, error) {
	return []byte(s), nil
}

func (s *ChatState) UnmarshalText(data []byte) error {
	*s = ChatState(data)
	return nil
}

// ChatEvent carries assistant output for a run: streamed content, the final
// message, or a run-level error. Senders differ on whether Content is a pure
// delta or the accumulated text so far; the dispatcher handles both.
type ChatEvent struct {
	RunID        string    `json:"runId"`
	SessionKey   string    `json:"sessionKey,omitempty"`
	Content      string    `json:"content,omitempty"`
	Delta        string    `json:"delta,omitempty"`
	Done         bool      `json:"done,omitempty"`
	State        ChatState `json:"state,omitempty"`
	ErrorMessage string    `json:"errorMessage,omitempty"`
	Message      *Message  `json:"message,omitempty"`
	Model        string    `json:"model,omitempty"`
	Usage        *Usage    `json:"usage,omitempty"`
}

// Terminal reports whether the event ends its run: completion, a final
// message, or an error.
func (e ChatEvent) Terminal() bool {
	return e.Done || e.State == ChatStateFinal || e.State == ChatStateError || e.ErrorMessage != ""
}

// Failed reports whether the event signals a run-level error.
func (e ChatEvent) Failed() bool {
	return e.State == ChatStateError || e.ErrorMessage != ""
}

// Text returns the content carried by the event, preferring an explicit
// delta over accumulated content.
func (e ChatEvent) Text() string {
	if e.Delta != "" {
		return e.Delta
	}
	return e.Content
}

// Prompt is the outbound payload that starts a run in a session.
type Prompt struct {
	SessionID string `json:"sessionId"`
	Content   string `json:"content"`
}
