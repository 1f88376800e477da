// Package dispatch consumes the interleaved gateway event stream,
// reassembles per-run transcripts, and feeds accounting back to sessions.
package dispatch

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tejjnayak/clawdeck/internal/proto"
	"github.com/tejjnayak/clawdeck/internal/run"
	"github.com/tejjnayak/clawdeck/internal/session"
	"github.com/tejjnayak/clawdeck/internal/usage"
	"github.com/tejjnayak/clawdeck/internal/worklog"
)

// persistTimeout bounds the fire-and-forget usage write.
const persistTimeout = 5 * time.Second

// RunRecord is the usage snapshot handed to the persistence collaborator
// when a run completes.
type RunRecord struct {
	RunID        string
	SessionID    string
	Model        string
	Provider     string
	InputTokens  int64
	OutputTokens int64
	Cost         float64
}

// Persister stores completed-run usage. Calls are dispatched fire-and-forget
// off the event path.
type Persister interface {
	RecordRun(ctx context.Context, rec RunRecord) error
}

// Dispatcher owns all run-keyed mutable state: the run registry, the
// worklog/thinking buffers, and the session accounting fields. It is driven
// by a single stream of frames in arrival order and is not safe for
// concurrent use.
type Dispatcher struct {
	sessions   *session.Store
	resolver   *session.Resolver
	registry   *run.Registry
	logs       *worklog.Store
	accountant *usage.Accountant
	ui         UI
	persist    Persister

	// suppressProgress skips worklog pushes while the UI is in a mode that
	// hides textual progress, e.g. voice-only.
	suppressProgress bool
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithUI sets the render port. The default is [NoopUI].
func WithUI(ui UI) Option {
	return func(d *Dispatcher) { d.ui = ui }
}

// WithPersister sets the usage persistence collaborator.
func WithPersister(p Persister) Option {
	return func(d *Dispatcher) { d.persist = p }
}

// WithCapacity overrides the run registry capacity.
func WithCapacity(n int) Option {
	return func(d *Dispatcher) {
		d.registry = run.NewRegistry(n, d.resolver)
	}
}

// New builds a dispatcher over the UI's session store.
func New(sessions *session.Store, accountant *usage.Accountant, opts ...Option) *Dispatcher {
	resolver := session.NewResolver(sessions)
	d := &Dispatcher{
		sessions:   sessions,
		resolver:   resolver,
		registry:   run.NewRegistry(run.DefaultCapacity, resolver),
		logs:       worklog.NewStore(),
		accountant: accountant,
		ui:         NoopUI{},
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// SetProgressSuppressed toggles worklog pushes to the UI. Buffers still
// accumulate either way.
func (d *Dispatcher) SetProgressSuppressed(v bool) {
	d.suppressProgress = v
}

// Worklog returns the current worklog text for a run.
func (d *Dispatcher) Worklog(runID string) string {
	return d.logs.Log(runID)
}

// Thinking returns the accumulated reasoning transcript for a run.
func (d *Dispatcher) Thinking(runID string) string {
	return d.logs.Thinking(runID)
}

// TrackedRuns returns the number of live runs.
func (d *Dispatcher) TrackedRuns() int {
	return d.registry.Len()
}

// HandleFrame classifies and processes one raw gateway frame. It never
// fails: a malformed frame is logged and skipped so the stream keeps
// flowing.
func (d *Dispatcher) HandleFrame(data []byte) {
	ev, err := proto.DecodeFrame(data)
	if err != nil {
		slog.Warn("dropping malformed frame", "error", err)
		return
	}
	switch ev := ev.(type) {
	case proto.AgentEvent:
		d.HandleAgentEvent(ev)
	case proto.ChatEvent:
		d.HandleChatEvent(ev)
	case proto.UnknownEvent:
		slog.Warn("ignoring unknown frame type", "type", ev.Type)
	}
}

// HandleAgentEvent processes lifecycle, tool, and assistant-thought events.
func (d *Dispatcher) HandleAgentEvent(ev proto.AgentEvent) {
	if ev.RunID == "" {
		slog.Debug("agent event without run id", "stream", ev.Stream)
		return
	}
	d.dropEvicted(d.registry.Track(ev.RunID, ev.SessionKey))
	sess, focused := d.eventSession(ev.RunID, ev.SessionKey)

	switch {
	case ev.Stream == proto.StreamLifecycle:
		d.handleLifecycle(ev, sess, focused)
	case ev.IsTool():
		if ev.Tool == nil {
			return
		}
		line := ev.Tool.Summary()
		if d.appendWorklog(ev.RunID, line, focused) {
			d.logs.AppendThinking(ev.RunID, line+"\n")
		}
	case ev.Stream == proto.StreamAssistant:
		if ev.Thinking == "" {
			return
		}
		d.logs.AppendThinking(ev.RunID, ev.Thinking)
		// The generic marker only stands in when the event carries no more
		// specific signal.
		if ev.Tool == nil {
			d.appendWorklog(ev.RunID, "analyzing", focused)
		}
	default:
		slog.Warn("ignoring unknown agent stream", "stream", ev.Stream)
	}
}

func (d *Dispatcher) handleLifecycle(ev proto.AgentEvent, sess *session.Session, focused bool) {
	switch ev.Phase {
	case proto.PhaseStart:
		d.logs.ResetThinking(ev.RunID)
		d.appendWorklog(ev.RunID, "planning", focused)
	case proto.PhaseFallback:
		short := proto.ShortModelName(ev.Model)
		d.appendWorklog(ev.RunID, "fallback -> "+short, focused)
		if sess != nil {
			msg := d.newMessage(sess, proto.System, "Primary model unavailable, continuing with "+short+".")
			msg.Model = ev.Model
			sess.Append(msg)
			if focused {
				d.ui.RenderMessage(msg)
			}
		}
	case proto.PhaseError:
		line := "error"
		if ev.Error != "" {
			line = "error: " + ev.Error
		}
		d.appendWorklog(ev.RunID, line, focused)
	case proto.PhaseEnd:
		if focused && !d.suppressProgress {
			if log := d.logs.Log(ev.RunID); log != "" {
				d.ui.UpdateWorklog(log)
			}
		}
		d.clearRun(ev.RunID)
		if focused {
			d.ui.HideTyping()
		}
	default:
		slog.Warn("ignoring unknown lifecycle phase", "phase", ev.Phase)
	}
}

// HandleChatEvent processes content deltas and terminal chat events.
func (d *Dispatcher) HandleChatEvent(ev proto.ChatEvent) {
	if ev.Terminal() {
		d.finishRun(ev)
		return
	}

	if ev.RunID == "" {
		slog.Debug("chat event without run id")
		return
	}
	content := ev.Text()
	if content == "" {
		return
	}

	d.dropEvicted(d.registry.Track(ev.RunID, ev.SessionKey))
	sess, focused := d.eventSession(ev.RunID, ev.SessionKey)
	if sess == nil {
		return
	}

	last := sess.LastMessage()
	if last != nil && last.Role == proto.Assistant && last.Streaming {
		mergeContent(last, content)
		last.UpdatedAt = time.Now().UnixMilli()
		if focused {
			d.ui.UpdateMessage(*last)
		}
		return
	}

	msg := d.newMessage(sess, proto.Assistant, content)
	msg.Model = ev.Model
	msg.Streaming = true
	sess.Append(msg)
	if focused {
		d.ui.RenderMessage(msg)
	}
}

// finishRun handles any terminal chat event: error, final, or done. A
// duplicate terminal for an already-finished run is a no-op, which keeps
// completion idempotent under at-least-once delivery. A terminal for a run
// seen for the first time is still processed: the gateway may answer a
// prompt in a single non-streamed frame.
func (d *Dispatcher) finishRun(ev proto.ChatEvent) {
	if ev.RunID == "" {
		slog.Debug("terminal event without run id")
		return
	}
	sessionID, tracked := d.registry.Remove(ev.RunID)
	if !tracked {
		if d.registry.Finished(ev.RunID) {
			slog.Debug("duplicate terminal event", "run_id", ev.RunID)
			return
		}
		d.registry.MarkFinished(ev.RunID)
	}
	d.logs.Drop(ev.RunID)

	if sessionID == "" {
		sessionID = d.fallbackSession(ev.SessionKey)
	}
	sess, _ := d.sessions.Get(sessionID)
	if sess == nil {
		return
	}
	focused := sessionID == d.sessions.FocusedID()

	if ev.Failed() {
		if last := sess.LastMessage(); last != nil && last.Streaming {
			last.Streaming = false
		}
		msg := d.newMessage(sess, proto.Assistant, TranslateError(ev.ErrorMessage))
		sess.Append(msg)
		if focused {
			d.ui.RenderMessage(msg)
			d.ui.HideTyping()
		}
		return
	}

	d.finalize(sess, ev, focused)
	if focused {
		d.ui.HideTyping()
	}

	if ev.Usage != nil {
		applied := d.accountant.Apply(sess, *ev.Usage, ev.Model)
		if focused {
			d.ui.UpdateInfobar(sess)
		}
		d.persistUsage(ev, sess.ID, applied)
	}
}

// finalize settles the trailing assistant message for a completed run.
func (d *Dispatcher) finalize(sess *session.Session, ev proto.ChatEvent, focused bool) {
	content := ev.Text()
	var artifact *proto.Artifact
	if ev.Message != nil {
		if content == "" {
			content = ev.Message.Content
		}
		artifact = ev.Message.Artifact
	}

	last := sess.LastMessage()
	if last != nil && last.Role == proto.Assistant && last.Streaming {
		if content != "" {
			mergeContent(last, content)
		}
		attachArtifact(last, artifact)
		last.Streaming = false
		last.UpdatedAt = time.Now().UnixMilli()
		if focused {
			d.ui.UpdateMessage(*last)
		}
		return
	}

	if content == "" && artifact == nil {
		return
	}
	msg := d.newMessage(sess, proto.Assistant, content)
	msg.Model = ev.Model
	attachArtifact(&msg, artifact)
	sess.Append(msg)
	if focused {
		d.ui.RenderMessage(msg)
	}
}

func (d *Dispatcher) persistUsage(ev proto.ChatEvent, sessionID string, applied usage.Applied) {
	if d.persist == nil {
		return
	}
	u := ev.Usage.Sanitized()
	rec := RunRecord{
		RunID:        ev.RunID,
		SessionID:    sessionID,
		Model:        ev.Model,
		Provider:     applied.Provider,
		InputTokens:  int64(u.InputTokens),
		OutputTokens: int64(u.OutputTokens),
		Cost:         applied.Cost,
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
		defer cancel()
		if err := d.persist.RecordRun(ctx, rec); err != nil {
			slog.Error("failed to persist run usage", "run_id", rec.RunID, "error", err)
		}
	}()
}

// eventSession attributes an event to a session and reports whether that
// session is focused. Unattributable events land on the focused session so
// they still render somewhere sane.
func (d *Dispatcher) eventSession(runID, hint string) (*session.Session, bool) {
	id, ok := d.registry.ResolveSession(runID, hint)
	if !ok {
		id = d.sessions.FocusedID()
	}
	sess, _ := d.sessions.Get(id)
	return sess, id != "" && id == d.sessions.FocusedID()
}

func (d *Dispatcher) fallbackSession(hint string) string {
	if id, ok := d.resolver.Resolve(hint); ok {
		return id
	}
	return d.sessions.FocusedID()
}

// appendWorklog appends a progress line and pushes the updated log to the UI
// when the owning session is visible and progress is not suppressed.
func (d *Dispatcher) appendWorklog(runID, text string, focused bool) bool {
	log, changed := d.logs.Append(runID, text)
	if changed && focused && !d.suppressProgress {
		d.ui.UpdateWorklog(log)
	}
	return changed
}

func (d *Dispatcher) clearRun(runID string) {
	d.registry.Remove(runID)
	d.logs.Drop(runID)
}

func (d *Dispatcher) dropEvicted(runIDs []string) {
	for _, id := range runIDs {
		d.logs.Drop(id)
	}
}

func (d *Dispatcher) newMessage(sess *session.Session, role proto.MessageRole, content string) proto.Message {
	now := time.Now().UnixMilli()
	return proto.Message{
		ID:        uuid.New().String(),
		SessionID: sess.ID,
		Role:      role,
		Content:   content,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// mergeContent appends only the suffix of content not already present.
// Senders that resend accumulated content instead of pure deltas are
// detected by prefix match, not equality.
func mergeContent(msg *proto.Message, content string) {
	if strings.HasPrefix(content, msg.Content) {
		msg.Content = content
		return
	}
	msg.Content += content
}

func attachArtifact(msg *proto.Message, artifact *proto.Artifact) {
	if artifact == nil {
		return
	}
	msg.Artifact = artifact
	if msg.Content == "" {
		msg.Content = artifact.Preview()
	} else {
		msg.Content += "\n" + artifact.Preview()
	}
}
