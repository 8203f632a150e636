package engine

import "context"

// DecisionInput carries everything a provider may consider for one message.
// MustEscalate is the upstream override channel for hard constraints the
// keyword tables cannot express (e.g. "never discuss pricing").
type DecisionInput struct {
	Text         string
	Channel      string
	MustEscalate bool
}

// DecisionProvider is the polymorphic decision contract. The deterministic
// engine and the agent-backed client both implement it, so either can be
// swapped in or run side-by-side for evaluation.
type DecisionProvider interface {
	Decide(ctx context.Context, in DecisionInput) (Result, error)
}

// Decide implements DecisionProvider. The deterministic engine never
// returns an error; the MustEscalate override forces escalation without
// touching category, reasons, or priority.
func (e *Engine) Decide(_ context.Context, in DecisionInput) (Result, error) {
	res := e.Classify(in.Text)
	if in.MustEscalate {
		res.Escalate = true
	}
	return res, nil
}
