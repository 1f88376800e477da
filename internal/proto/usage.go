package proto

import "math"

// Usage is the token/cost accounting attached to a terminal chat event.
// Token counts are floats on the wire; some gateways report fractional or
// garbage values, so consumers sanitize before folding.
type Usage struct {
	InputTokens  float64 `json:"inputTokens,omitempty"`
	OutputTokens float64 `json:"outputTokens,omitempty"`
	// Cost is the gateway's own cost figure when it has one; nil means the
	// client computes cost from its price table.
	Cost *float64 `json:"cost,omitempty"`
}

// Sanitized returns a copy with non-finite or negative numbers replaced by
// zero. Partial accounting beats none.
func (u Usage) Sanitized() Usage {
	out := Usage{
		InputTokens:  finiteOrZero(u.InputTokens),
		OutputTokens: finiteOrZero(u.OutputTokens),
	}
	if u.Cost != nil {
		c := finiteOrZero(*u.Cost)
		out.Cost = &c
	}
	return out
}

func finiteOrZero(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0
	}
	return v
}
