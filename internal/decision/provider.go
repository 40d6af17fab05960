package decision

import (
	"context"
	"errors"
	"time"

	"papertrader/internal/logger"
)

// ErrDecisionTimeout marks a provider call that ran past its deadline. The
// caller treats it as HOLD for the cycle (fail-open to inaction).
var ErrDecisionTimeout = errors.New("decision request timed out")

// Provider is the only capability the simulation loop needs from the
// decision-producing collaborator.
type Provider interface {
	RequestDecision(ctx context.Context, mctx MarketContext) (Decision, error)
}

// WithTimeout wraps a provider with a hard per-request deadline. On timeout
// (or provider error) the returned decision is HOLD; the error is reported so
// the loop can count the degraded cycle.
type TimeoutProvider struct {
	inner   Provider
	timeout time.Duration
}

func WithTimeout(inner Provider, timeout time.Duration) *TimeoutProvider {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &TimeoutProvider{inner: inner, timeout: timeout}
}

func (p *TimeoutProvider) RequestDecision(ctx context.Context, mctx MarketContext) (Decision, error) {
	reqCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	type result struct {
		d   Decision
		err error
	}
	ch := make(chan result, 1)
	go func() {
		d, err := p.inner.RequestDecision(reqCtx, mctx)
		ch <- result{d, err}
	}()

	select {
	case <-reqCtx.Done():
		if errors.Is(reqCtx.Err(), context.DeadlineExceeded) {
			logger.Warnf("decision request for %s exceeded %s, holding", mctx.Symbol, p.timeout)
			return Hold(mctx.Symbol, "provider timeout"), ErrDecisionTimeout
		}
		return Hold(mctx.Symbol, "request cancelled"), reqCtx.Err()
	case res := <-ch:
		if res.err != nil {
			return Hold(mctx.Symbol, "provider error: "+res.err.Error()), res.err
		}
		return res.d, nil
	}
}

// StaticProvider always answers with a fixed action. Used for dry runs and in
// backtests exercising the execution path without a live collaborator.
type StaticProvider struct {
	Action     string
	Confidence int
}

func (p StaticProvider) RequestDecision(_ context.Context, mctx MarketContext) (Decision, error) {
	action := NormalizeAction(p.Action)
	if action == "" {
		action = ActionHold
	}
	return Decision{Action: action, Symbol: mctx.Symbol, Confidence: p.Confidence, Reasoning: "static provider"}, nil
}

// FuncProvider adapts a function to the Provider interface (test hook).
type FuncProvider func(ctx context.Context, mctx MarketContext) (Decision, error)

func (f FuncProvider) RequestDecision(ctx context.Context, mctx MarketContext) (Decision, error) {
	return f(ctx, mctx)
}
