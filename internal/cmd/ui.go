package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/tejjnayak/clawdeck/internal/proto"
	"github.com/tejjnayak/clawdeck/internal/session"
)

// consoleUI is the headless render port for the CLI: messages go to the
// writer as they stream, progress lines are overwritten in place.
type consoleUI struct {
	w       io.Writer
	lastMsg string
}

func newConsoleUI(w io.Writer) *consoleUI {
	return &consoleUI{w: w}
}

func (c *consoleUI) RenderMessage(msg proto.Message) {
	fmt.Fprintf(c.w, "\n[%s] %s\n", msg.Role, msg.Content)
	c.lastMsg = msg.ID
}

func (c *consoleUI) UpdateMessage(msg proto.Message) {
	if msg.ID != c.lastMsg {
		c.RenderMessage(msg)
		return
	}
	// Redraw the trailing line only; full transcripts belong to real UIs.
	fmt.Fprintf(c.w, "\r%s", tail(msg.Content))
}

func (c *consoleUI) UpdateWorklog(text string) {
	fmt.Fprintf(c.w, "\r· %s", tail(text))
}

func (c *consoleUI) HideTyping() {
	fmt.Fprintln(c.w)
}

func (c *consoleUI) UpdateInfobar(sess *session.Session) {
	fmt.Fprintf(c.w, "\n-- session %s: %d reqs, %d in / %d out tokens, $%.4f --\n",
		sess.ID, sess.RequestCount, sess.InputTokens, sess.OutputTokens, sess.Cost)
}

// tail returns the last line of a transcript, for single-line status
// display.
func tail(text string) string {
	if i := strings.LastIndex(strings.TrimRight(text, "\n"), "\n"); i >= 0 {
		return text[i+1:]
	}
	return text
}
