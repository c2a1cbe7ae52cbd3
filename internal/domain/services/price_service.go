package services

import (
	"context"
	"fmt"
	"math/big"

	"github.com/arvatny/tokendir/internal/domain/entities"
	"github.com/arvatny/tokendir/internal/infrastructure/swap"
)

// PriceService reports an indicative USDC price for a creator token by
// quoting one whole token into USDC through the router. It rides the same
// provider fallback as real quotes, so a token is priceable exactly when it
// is tradeable.
type PriceService struct {
	router *RouterService
}

func NewPriceService(router *RouterService) *PriceService {
	return &PriceService{router: router}
}

// GetTokenPrice returns the USDC base-unit value of one whole token.
func (s *PriceService) GetTokenPrice(ctx context.Context, token entities.Token) (*big.Int, error) {
	if token.Address == entities.USDC.Address {
		return entities.USDC.OneUnit(), nil
	}

	quote, err := s.router.GetQuote(ctx, swap.QuoteParams{
		SellToken:  token.Address,
		BuyToken:   entities.USDC.Address,
		SellAmount: token.OneUnit(),
	})
	if err != nil {
		return nil, fmt.Errorf("price %s: %w", token.Symbol, err)
	}

	return quote.BuyAmount, nil
}
