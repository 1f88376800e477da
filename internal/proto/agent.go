package proto

import (
	"fmt"
	"strings"
)

// AgentStream identifies the sub-stream an agent event belongs to.
type AgentStream string

const (
	StreamAssistant AgentStream = "assistant"
	StreamTool      AgentStream = "tool"
	// StreamTools is emitted by older gateways; treated the same as
	// StreamTool.
	StreamTools     AgentStream = "tools"
	StreamLifecycle AgentStream = "lifecycle"
)

func (s AgentStream) MarshalText() ([]byte, error) {
	return []byte(s), nil
}

func (s *AgentStream) UnmarshalText(data []byte) error {
	*s = AgentStream(data)
	return nil
}

// LifecyclePhase is the run phase carried by lifecycle events.
type LifecyclePhase string

const (
	PhaseStart    LifecyclePhase = "start"
	PhaseFallback LifecyclePhase = "fallback"
	PhaseError    LifecyclePhase = "error"
	PhaseEnd      LifecyclePhase = "end"
)

func (p LifecyclePhase) MarshalText() ([]byte, error) {
	return []byte(p), nil
}

func (p *LifecyclePhase) UnmarshalText(data []byte) error {
	*p = LifecyclePhase(data)
	return nil
}

// AgentEvent is an asynchronous event from the agent side of a run:
// lifecycle transitions, tool activity, and assistant thinking fragments.
// Any field other than Stream and RunID may be absent.
type AgentEvent struct {
	Stream     AgentStream    `json:"stream"`
	RunID      string         `json:"runId"`
	SessionKey string         `json:"sessionKey,omitempty"`
	Phase      LifecyclePhase `json:"phase,omitempty"`
	Model      string         `json:"model,omitempty"`
	Thinking   string         `json:"thinking,omitempty"`
	Content    string         `json:"content,omitempty"`
	Tool       *ToolActivity  `json:"tool,omitempty"`
	Error      string         `json:"error,omitempty"`
}

// IsTool reports whether the event carries tool activity, accepting both the
// "tool" and legacy "tools" stream names.
func (e AgentEvent) IsTool() bool {
	return e.Stream == StreamTool || e.Stream == StreamTools
}

// ToolActivity describes one tool invocation in progress.
type ToolActivity struct {
	Name    string `json:"name"`
	State   string `json:"state,omitempty"`
	Command string `json:"command,omitempty"`
	Path    string `json:"path,omitempty"`
	URL     string `json:"url,omitempty"`
	Query   string `json:"query,omitempty"`
}

// summaryDetailMax caps the detail portion of a tool summary line.
const summaryDetailMax = 80

// Summary renders a one-line human-readable description of the activity for
// the worklog, e.g. "bash (running): ls -la".
func (t ToolActivity) Summary() string {
	var sb strings.Builder
	sb.WriteString(t.Name)
	if t.State != "" {
		fmt.Fprintf(&sb, " (%s)", t.State)
	}
	if detail := t.detail(); detail != "" {
		sb.WriteString(": ")
		sb.WriteString(truncate(detail, summaryDetailMax))
	}
	return sb.String()
}

func (t ToolActivity) detail() string {
	switch {
	case t.Command != "":
		return t.Command
	case t.Path != "":
		return t.Path
	case t.URL != "":
		return t.URL
	case t.Query != "":
		return t.Query
	}
	return ""
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max]) + "…"
}

// ShortModelName strips the provider prefix from a composite model
// identifier: "openai/gpt-4o-mini" becomes "gpt-4o-mini".
func ShortModelName(model string) string {
	if i := strings.LastIndex(model, "/"); i >= 0 && i < len(model)-1 {
		return model[i+1:]
	}
	return model
}
