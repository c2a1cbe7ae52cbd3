package swap

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arvatny/tokendir/internal/domain/entities"
)

// fakeProvider records the slippage of every attempt and answers according
// to a script keyed by slippage bps.
type fakeProvider struct {
	name     entities.ProviderName
	attempts []uint64
	results  map[uint64]error // nil = success
}

func (f *fakeProvider) Name() entities.ProviderName { return f.name }

func (f *fakeProvider) Quote(ctx context.Context, params QuoteParams) (*entities.ProviderQuote, error) {
	f.attempts = append(f.attempts, params.SlippageBps)
	if err, ok := f.results[params.SlippageBps]; ok && err != nil {
		return nil, err
	}
	return &entities.ProviderQuote{
		Provider:    f.name,
		SellAmount:  params.SellAmount,
		BuyAmount:   big.NewInt(1000),
		SlippageBps: params.SlippageBps,
	}, nil
}

func ladderParams(slippageBps uint64) QuoteParams {
	return QuoteParams{
		SellToken:   common.HexToAddress("0x0000000000000000000000000000000000000001"),
		BuyToken:    common.HexToAddress("0x0000000000000000000000000000000000000002"),
		SellAmount:  big.NewInt(1_000_000),
		SlippageBps: slippageBps,
	}
}

func TestLadderStopsAtFirstSuccess(t *testing.T) {
	inner := &fakeProvider{
		name: entities.ProviderZeroEx,
		results: map[uint64]error{
			50:  ErrNoRoute,
			100: ErrNoRoute,
		},
	}
	wrapped := WithSlippageLadder(inner, []uint64{50, 100, 300, 500})

	quote, err := wrapped.Quote(context.Background(), ladderParams(0))
	require.NoError(t, err)
	assert.Equal(t, uint64(300), quote.SlippageBps)
	assert.Equal(t, []uint64{50, 100, 300}, inner.attempts)
}

func TestLadderExhausted(t *testing.T) {
	inner := &fakeProvider{
		name: entities.ProviderZeroEx,
		results: map[uint64]error{
			50: ErrNoRoute, 100: ErrNoRoute, 300: ErrNoRoute, 500: ErrNoRoute,
		},
	}
	wrapped := WithSlippageLadder(inner, []uint64{50, 100, 300, 500})

	_, err := wrapped.Quote(context.Background(), ladderParams(0))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNoRoute))
	assert.Len(t, inner.attempts, 4)
}

func TestLadderTransportErrorAborts(t *testing.T) {
	boom := errors.New("connection refused")
	inner := &fakeProvider{
		name: entities.ProviderKyber,
		results: map[uint64]error{
			50:  ErrNoRoute,
			100: boom,
		},
	}
	wrapped := WithSlippageLadder(inner, []uint64{50, 100, 300})

	_, err := wrapped.Quote(context.Background(), ladderParams(0))
	require.Error(t, err)
	assert.True(t, errors.Is(err, boom))
	assert.False(t, errors.Is(err, ErrNoRoute))
	assert.Equal(t, []uint64{50, 100}, inner.attempts)
}

func TestLadderPinnedSlippageIsACap(t *testing.T) {
	inner := &fakeProvider{
		name: entities.ProviderZeroEx,
		results: map[uint64]error{
			50: ErrNoRoute, 100: ErrNoRoute, 200: ErrNoRoute,
		},
	}
	wrapped := WithSlippageLadder(inner, []uint64{50, 100, 300, 500})

	_, err := wrapped.Quote(context.Background(), ladderParams(200))
	require.Error(t, err)
	// tighter ladder entries first, then the pinned cap; never beyond it
	assert.Equal(t, []uint64{50, 100, 200}, inner.attempts)
}

func TestLadderPinnedSuccessKeepsTightestTolerance(t *testing.T) {
	inner := &fakeProvider{
		name:    entities.ProviderZeroEx,
		results: map[uint64]error{},
	}
	wrapped := WithSlippageLadder(inner, []uint64{50, 100, 300})

	quote, err := wrapped.Quote(context.Background(), ladderParams(200))
	require.NoError(t, err)
	assert.Equal(t, uint64(50), quote.SlippageBps)
	assert.Equal(t, []uint64{50}, inner.attempts)
}

func TestLadderDefaultWhenEmpty(t *testing.T) {
	inner := &fakeProvider{name: entities.ProviderZeroEx, results: map[uint64]error{}}
	wrapped := WithSlippageLadder(inner, nil)

	_, err := wrapped.Quote(context.Background(), ladderParams(0))
	require.NoError(t, err)
	assert.Equal(t, []uint64{DefaultSlippageLadder[0]}, inner.attempts)
}
