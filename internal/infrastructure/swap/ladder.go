package swap

import (
	"context"
	"errors"
	"fmt"

	"github.com/arvatny/tokendir/internal/domain/entities"
)

// DefaultSlippageLadder is the tolerance escalation used when the caller
// does not pin a slippage. Thin creator-token pools often fail at tight
// tolerances while still being tradeable at looser ones.
var DefaultSlippageLadder = []uint64{50, 100, 300, 500}

type ladderProvider struct {
	inner  Provider
	ladder []uint64
}

// WithSlippageLadder wraps a provider in a progressive slippage retry:
// tolerances are tried tightest-first and the first success wins, so the
// swap keeps the strongest min-out bound the pool can satisfy. Retry
// happens only on ErrNoRoute; a transport failure aborts the ladder.
//
// A slippage pinned by the caller is a hard cap: the ladder never escalates
// past it.
func WithSlippageLadder(inner Provider, ladder []uint64) Provider {
	if len(ladder) == 0 {
		ladder = DefaultSlippageLadder
	}
	return &ladderProvider{inner: inner, ladder: ladder}
}

func (l *ladderProvider) Name() entities.ProviderName {
	return l.inner.Name()
}

func (l *ladderProvider) Quote(ctx context.Context, params QuoteParams) (*entities.ProviderQuote, error) {
	attempts := l.attempts(params.SlippageBps)

	var lastErr error
	for _, bps := range attempts {
		attempt := params
		attempt.SlippageBps = bps

		quote, err := l.inner.Quote(ctx, attempt)
		if err == nil {
			return quote, nil
		}
		if !errors.Is(err, ErrNoRoute) {
			return nil, err
		}
		lastErr = err
	}

	if lastErr == nil {
		lastErr = ErrNoRoute
	}
	return nil, fmt.Errorf("%s: exhausted slippage ladder: %w", l.inner.Name(), lastErr)
}

func (l *ladderProvider) attempts(pinned uint64) []uint64 {
	if pinned == 0 {
		return l.ladder
	}

	var attempts []uint64
	for _, bps := range l.ladder {
		if bps < pinned {
			attempts = append(attempts, bps)
		}
	}
	return append(attempts, pinned)
}
