package domain_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/aretw0/pipegraph/pkg/domain"
	"github.com/stretchr/testify/assert"
)

func TestParseEndpoint(t *testing.T) {
	tests := []struct {
		ref  string
		want domain.Endpoint
	}{
		{"A.x", domain.Endpoint{Node: "A", Plug: "x"}},
		{"x", domain.Endpoint{Plug: "x"}},
		{"outer.inner.x", domain.Endpoint{Node: "outer.inner", Plug: "x"}},
	}
	for _, tt := range tests {
		t.Run(tt.ref, func(t *testing.T) {
			got := domain.ParseEndpoint(tt.ref)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.ref, got.String())
		})
	}
	assert.True(t, domain.ParseEndpoint("x").IsBoundary())
}

func TestTransitionString(t *testing.T) {
	assert.Equal(t, "2+A:x", domain.Transition{Pass: 2, Node: "A", Plug: "x", Activated: true}.String())
	assert.Equal(t, "0-B", domain.Transition{Node: "B"}.String())
}

func TestErrorsMatchSentinels(t *testing.T) {
	dangling := &domain.InvalidLinkError{Reason: "no such node", Dangling: true}
	assert.ErrorIs(t, dangling, domain.ErrInvalidLink)
	assert.ErrorIs(t, dangling, domain.ErrDanglingReference)
	assert.NotErrorIs(t, &domain.InvalidLinkError{}, domain.ErrDanglingReference)

	wrapped := fmt.Errorf("decode: %w", &domain.UnknownAlternativeError{Switch: "s", Alternative: "z"})
	assert.ErrorIs(t, wrapped, domain.ErrUnknownAlternative)
	var alt *domain.UnknownAlternativeError
	assert.True(t, errors.As(wrapped, &alt))
	assert.Equal(t, "z", alt.Alternative)

	assert.ErrorIs(t, &domain.UnsupportedVersionError{}, domain.ErrUnsupportedVersion)
	assert.Contains(t, (&domain.UnsupportedVersionError{Supported: "2.0"}).Error(), "missing")
}

func TestHooksMerge(t *testing.T) {
	var calls []string
	a := domain.ActivationHooks{OnTransition: func(domain.Transition) { calls = append(calls, "a") }}
	b := domain.ActivationHooks{
		OnTransition: func(domain.Transition) { calls = append(calls, "b") },
		OnRecompute:  func(domain.RecomputeEvent) { calls = append(calls, "r") },
	}
	m := a.Merge(b)
	m.OnTransition(domain.Transition{})
	m.OnRecompute(domain.RecomputeEvent{})
	assert.Equal(t, []string{"a", "b", "r"}, calls)
}
