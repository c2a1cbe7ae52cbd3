package services

import (
	"context"
	"math/big"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arvatny/tokendir/internal/domain/entities"
	"github.com/arvatny/tokendir/internal/infrastructure/cache"
	"github.com/arvatny/tokendir/internal/infrastructure/swap"
)

func TestGetTokenPriceViaRouter(t *testing.T) {
	provider := NewMockProvider(entities.ProviderUniswap)
	provider.SetQuote(big.NewInt(1_370_000)) // 1.37 USDC per token

	router := NewRouterService([]swap.Provider{provider}, cache.NewInMemoryCache(), zerolog.Nop())
	prices := NewPriceService(router)

	price, err := prices.GetTokenPrice(context.Background(), entities.DEGEN)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(1_370_000), price)
	assert.Equal(t, 1, provider.calls)
}

func TestGetTokenPriceUSDCIsIdentity(t *testing.T) {
	prices := NewPriceService(NewRouterService(nil, nil, zerolog.Nop()))

	price, err := prices.GetTokenPrice(context.Background(), entities.USDC)
	require.NoError(t, err)
	assert.Equal(t, entities.USDC.OneUnit(), price)
}

func TestGetTokenPriceNoRoute(t *testing.T) {
	provider := NewMockProvider(entities.ProviderUniswap)
	provider.SetError(swap.ErrNoRoute)

	router := NewRouterService([]swap.Provider{provider}, cache.NewInMemoryCache(), zerolog.Nop())
	prices := NewPriceService(router)

	_, err := prices.GetTokenPrice(context.Background(), entities.DEGEN)
	require.Error(t, err)
}
