package handlers

import (
	"context"
	"fmt"
	"math/big"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/arvatny/tokendir/internal/domain/entities"
	"github.com/arvatny/tokendir/internal/domain/services"
	"github.com/arvatny/tokendir/internal/infrastructure/cache"
	"github.com/arvatny/tokendir/internal/infrastructure/ethereum"
	"github.com/arvatny/tokendir/internal/infrastructure/store"
	"github.com/arvatny/tokendir/internal/infrastructure/swap"
)

// stubProvider answers every quote the same way.
type stubProvider struct {
	name  entities.ProviderName
	quote *entities.ProviderQuote
	err   error
	calls int
}

func (p *stubProvider) Name() entities.ProviderName { return p.name }

func (p *stubProvider) Quote(ctx context.Context, params swap.QuoteParams) (*entities.ProviderQuote, error) {
	p.calls++
	if p.err != nil {
		return nil, p.err
	}
	q := *p.quote
	q.SellToken = params.SellToken
	q.BuyToken = params.BuyToken
	q.SellAmount = params.SellAmount
	return &q, nil
}

func quotingProvider(buyAmount int64) *stubProvider {
	return &stubProvider{
		name: entities.ProviderUniswap,
		quote: &entities.ProviderQuote{
			Provider:    entities.ProviderUniswap,
			BuyAmount:   big.NewInt(buyAmount),
			SlippageBps: 50,
			FeeTier:     3000,
			GasEstimate: 150_000,
		},
	}
}

// stubReader validates any address it was seeded with.
type stubReader struct {
	tokens map[common.Address]entities.Token
}

func (r *stubReader) ReadMetadata(ctx context.Context, addr common.Address) (entities.Token, error) {
	if token, ok := r.tokens[addr]; ok {
		return token, nil
	}
	return entities.Token{}, fmt.Errorf("%w: no code at %s", ethereum.ErrNotERC20, addr.Hex())
}

func newRouter(t *testing.T, providers ...swap.Provider) *services.RouterService {
	t.Helper()
	return services.NewRouterService(providers, cache.NewInMemoryCache(), zerolog.Nop())
}

func newProfiles(t *testing.T, reader services.TokenMetadataReader) *services.ProfileService {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "handlers.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	return services.NewProfileService(st, reader, entities.DefaultRegistry(), cache.NewInMemoryCache(), zerolog.Nop())
}
