package dispatch

import (
	"github.com/tejjnayak/clawdeck/internal/proto"
	"github.com/tejjnayak/clawdeck/internal/session"
)

// UI is the outbound render port. The dispatcher calls it only for events
// whose resolved session is the currently focused one; implementations do
// their own scheduling and error handling.
type UI interface {
	// RenderMessage displays a newly appended message.
	RenderMessage(msg proto.Message)
	// UpdateMessage redraws an existing message after its content changed.
	UpdateMessage(msg proto.Message)
	// UpdateWorklog replaces the visible progress transcript.
	UpdateWorklog(text string)
	// HideTyping removes the typing/progress indicator.
	HideTyping()
	// UpdateInfobar refreshes the session's accounting display.
	UpdateInfobar(sess *session.Session)
}

// NoopUI is the headless render port.
type NoopUI struct{}

func (NoopUI) RenderMessage(proto.Message)    {}
func (NoopUI) UpdateMessage(proto.Message)    {}
func (NoopUI) UpdateWorklog(string)           {}
func (NoopUI) HideTyping()                    {}
func (NoopUI) UpdateInfobar(*session.Session) {}
