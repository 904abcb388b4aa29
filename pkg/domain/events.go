package domain

import (
	"strconv"
	"time"
)

// Transition is one activation change observed after a recompute.
// Plug is empty when the change concerns the node itself. Nested nodes use
// dotted full names ("outer.inner").
type Transition struct {
	Pass      int    `json:"pass"`
	Node      string `json:"node"`
	Plug      string `json:"plug,omitempty"`
	Activated bool   `json:"activated"`
}

// String renders the transition in record notation: "<pass><+|-><node>:<plug>".
func (t Transition) String() string {
	sign := "-"
	if t.Activated {
		sign = "+"
	}
	s := strconv.Itoa(t.Pass) + sign + t.Node
	if t.Plug != "" {
		s += ":" + t.Plug
	}
	return s
}

// RecomputeEvent summarizes one activation recompute.
type RecomputeEvent struct {
	Pipeline    string
	Passes      int
	Transitions int
	Duration    time.Duration
	Err         error
}

// ActivationHooks are optional callbacks fired by the engine after a
// recompute. They run synchronously and must not mutate the graph.
type ActivationHooks struct {
	OnRecompute  func(RecomputeEvent)
	OnTransition func(Transition)
}

// Merge returns hooks calling h first and then other.
func (h ActivationHooks) Merge(other ActivationHooks) ActivationHooks {
	return ActivationHooks{
		OnRecompute:  chain(h.OnRecompute, other.OnRecompute),
		OnTransition: chain(h.OnTransition, other.OnTransition),
	}
}

func chain[T any](a, b func(T)) func(T) {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	}
	return func(v T) {
		a(v)
		b(v)
	}
}
