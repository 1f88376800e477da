package proto

import "fmt"

type MessageRole string

const (
	Assistant MessageRole = "assistant"
	User      MessageRole = "user"
	System    MessageRole = "system"
)

func (r MessageRole) MarshalText() ([]byte, error) {
	return []byte(r), nil
}

func (r *MessageRole) UnmarshalText(data []byte) error {
	*r = MessageRole(data)
	return nil
}

// Message is one entry in a session's transcript. The dispatcher only ever
// appends messages or updates the trailing assistant one.
type Message struct {
	ID        string      `json:"id"`
	SessionID string      `json:"session_id"`
	Role      MessageRole `json:"role"`
	Content   string      `json:"content"`
	Model     string      `json:"model,omitempty"`
	Provider  string      `json:"provider,omitempty"`
	// Streaming marks an assistant message that is still receiving content.
	Streaming bool      `json:"streaming,omitempty"`
	Artifact  *Artifact `json:"artifact,omitempty"`
	CreatedAt int64     `json:"created_at"`
	UpdatedAt int64     `json:"updated_at"`
}

// Artifact is a structured renderable payload embedded in a final message,
// e.g. a generated document or image the UI renders out of band.
type Artifact struct {
	Name     string `json:"name"`
	MIMEType string `json:"mime_type,omitempty"`
	Data     string `json:"data,omitempty"`
}

// Preview returns the placeholder text substituted in place of the artifact
// body in the transcript.
func (a Artifact) Preview() string {
	if a.MIMEType != "" {
		return fmt.Sprintf("[%s artifact: %s]", a.MIMEType, a.Name)
	}
	return fmt.Sprintf("[artifact: %s]", a.Name)
}
