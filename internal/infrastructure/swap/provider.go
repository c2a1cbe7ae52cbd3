package swap

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/arvatny/tokendir/internal/domain/entities"
)

// ErrNoRoute means a provider has no liquidity for the pair at the requested
// size and tolerance. It is the only error the router treats as "keep
// trying"; everything else is a transport or upstream failure.
var ErrNoRoute = errors.New("no route for token pair")

// QuoteParams is a single-hop quote request. Amounts are base units of the
// sell token.
type QuoteParams struct {
	SellToken   common.Address
	BuyToken    common.Address
	SellAmount  *big.Int
	Taker       common.Address
	SlippageBps uint64
}

// Validate rejects requests no provider could answer.
func (p QuoteParams) Validate() error {
	if p.SellToken == (common.Address{}) || p.BuyToken == (common.Address{}) {
		return fmt.Errorf("sell and buy token are required")
	}
	if p.SellToken == p.BuyToken {
		return fmt.Errorf("sell and buy token must differ")
	}
	if p.SellAmount == nil || p.SellAmount.Sign() <= 0 {
		return fmt.Errorf("sell amount must be positive")
	}
	if p.SlippageBps > 10000 {
		return fmt.Errorf("slippage must be 0-10000 basis points")
	}
	return nil
}

// Provider is one upstream quote source.
type Provider interface {
	Quote(ctx context.Context, params QuoteParams) (*entities.ProviderQuote, error)
	Name() entities.ProviderName
}
