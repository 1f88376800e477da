package proto

import (
	"encoding/json"
	"fmt"
)

// FrameType discriminates the payload carried by a gateway frame.
type FrameType string

const (
	FrameTypeAgent FrameType = "agent"
	FrameTypeChat  FrameType = "chat"
)

func (t FrameType) MarshalText() ([]byte, error) {
	return []byte(t), nil
}

func (t *FrameType) UnmarshalText(data []byte) error {
	*t = FrameType(data)
	return nil
}

// Frame is the wire envelope for a single gateway event. The payload is kept
// raw until the frame type is known, the same two-pass decode the event
// stream uses everywhere.
type Frame struct {
	Type    FrameType       `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// UnknownEvent is the forward-compatibility variant: a frame whose type this
// client does not understand. Callers are expected to skip it.
type UnknownEvent struct {
	Type FrameType
}

// DecodeFrame parses a raw frame and returns its typed payload: an
// [AgentEvent], a [ChatEvent], or an [UnknownEvent] for unrecognized frame
// types. It returns an error only when the envelope itself is not valid
// JSON; a payload that fails to decode degrades to UnknownEvent so that one
// bad frame never stops the stream.
func DecodeFrame(data []byte) (any, error) {
	var f Frame
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("invalid frame: %w", err)
	}

	switch f.Type {
	case FrameTypeAgent:
		var ev AgentEvent
		if err := json.Unmarshal(f.Payload, &ev); err != nil {
			return UnknownEvent{Type: f.Type}, nil
		}
		return ev, nil
	case FrameTypeChat:
		var ev ChatEvent
		if err := json.Unmarshal(f.Payload, &ev); err != nil {
			return UnknownEvent{Type: f.Type}, nil
		}
		return ev, nil
	default:
		return UnknownEvent{Type: f.Type}, nil
	}
}

// MarshalFrame wraps a typed event back into a wire frame. Used by tests and
// by the transport's loopback tooling.
func MarshalFrame(payload any) ([]byte, error) {
	var typ FrameType
	switch payload.(type) {
	case AgentEvent:
		typ = FrameTypeAgent
	case ChatEvent:
		typ = FrameTypeChat
	default:
		return nil, fmt.Errorf("unknown payload type: %T", payload)
	}

	bts, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	return json.Marshal(&Frame{
		Type:    typ,
		Payload: bts,
	})
}
