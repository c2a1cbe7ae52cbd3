package services

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"

	"github.com/arvatny/tokendir/internal/domain/entities"
	"github.com/arvatny/tokendir/internal/infrastructure/swap"
	"github.com/arvatny/tokendir/internal/metrics"
)

// fallback when neither the quoter nor an aggregator supplied an estimate
const defaultSwapGas = 250000

// RouteEncoder encodes swap calldata for on-chain routes. Satisfied by
// *swap.UniswapQuoter.
type RouteEncoder interface {
	BuildExactInputSingle(quote *entities.ProviderQuote, recipient common.Address) ([]byte, error)
	Router() common.Address
}

// SwapService turns routed quotes into submittable transactions. Aggregator
// quotes already carry calldata and pass through; on-chain quotes get a
// SwapRouter02 call encoded here.
type SwapService struct {
	router  *RouterService
	encoder RouteEncoder
	log     zerolog.Logger
}

func NewSwapService(router *RouterService, encoder RouteEncoder, log zerolog.Logger) *SwapService {
	return &SwapService{
		router:  router,
		encoder: encoder,
		log:     log.With().Str("component", "swap").Logger(),
	}
}

// BuildSwap quotes the pair and returns the transaction the taker's wallet
// should sign. The taker address is required: calldata from aggregators is
// bound to it, and the on-chain route uses it as recipient.
func (s *SwapService) BuildSwap(ctx context.Context, params swap.QuoteParams) (*entities.SwapTransaction, error) {
	if params.Taker == (common.Address{}) {
		return nil, fmt.Errorf("taker address is required to build a swap")
	}

	quote, err := s.router.GetQuote(ctx, params)
	if err != nil {
		return nil, err
	}

	tx := &entities.SwapTransaction{
		QuoteID:      quote.ID,
		Provider:     quote.Provider,
		SellToken:    quote.SellToken,
		SellAmount:   quote.SellAmount,
		MinBuyAmount: quote.MinBuyAmount,
		GasEstimate:  quote.GasEstimate,
	}

	switch quote.Provider {
	case entities.ProviderUniswap:
		data, err := s.encoder.BuildExactInputSingle(&quote.ProviderQuote, params.Taker)
		if err != nil {
			return nil, fmt.Errorf("encode swap: %w", err)
		}
		tx.To = s.encoder.Router()
		tx.Data = data
		tx.Value = big.NewInt(0)
		tx.AllowanceTarget = s.encoder.Router()

	default:
		if len(quote.Calldata) == 0 {
			return nil, fmt.Errorf("%s quote carries no calldata", quote.Provider)
		}
		tx.To = quote.To
		tx.Data = quote.Calldata
		tx.Value = quote.Value
		if tx.Value == nil {
			tx.Value = big.NewInt(0)
		}
		tx.AllowanceTarget = quote.AllowanceTarget
	}

	if tx.GasEstimate == 0 {
		tx.GasEstimate = defaultSwapGas
	}

	metrics.SwapBuilds.WithLabelValues(string(quote.Provider)).Inc()
	s.log.Info().
		Str("provider", string(quote.Provider)).
		Str("quoteId", quote.ID).
		Str("to", tx.To.Hex()).
		Msg("swap transaction built")

	return tx, nil
}
