package entities

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// ProviderName identifies a quote provider.
type ProviderName string

const (
	ProviderUniswap ProviderName = "uniswap_v3"
	ProviderZeroEx  ProviderName = "zerox"
	ProviderKyber   ProviderName = "kyberswap"
)

// ProviderQuote is the normalized result of a single provider's quote call.
// For HTTP aggregators the pre-built transaction fields are populated; for
// the on-chain quoter they stay empty and the swap service encodes the
// router call itself.
type ProviderQuote struct {
	Provider     ProviderName   `json:"provider"`
	SellToken    common.Address `json:"sellToken"`
	BuyToken     common.Address `json:"buyToken"`
	SellAmount   *big.Int       `json:"sellAmount"`
	BuyAmount    *big.Int       `json:"buyAmount"`
	MinBuyAmount *big.Int       `json:"minBuyAmount"`
	SlippageBps  uint64         `json:"slippageBps"`
	FeeTier      uint32         `json:"feeTier,omitempty"` // on-chain route only
	GasEstimate  uint64         `json:"gasEstimate"`

	// Pre-built transaction, HTTP aggregator routes only. Calldata is
	// hexutil.Bytes so cached quotes survive a JSON round trip.
	To              common.Address `json:"to,omitempty"`
	Calldata        hexutil.Bytes  `json:"calldata,omitempty"`
	Value           *big.Int       `json:"value,omitempty"`
	AllowanceTarget common.Address `json:"allowanceTarget,omitempty"`
}

// Quote is a routed quote: the winning provider's result plus the outcome of
// every provider the router tried on the way.
type Quote struct {
	ID string `json:"id"`
	ProviderQuote
	Sources   map[ProviderName]string `json:"sources"`
	CreatedAt time.Time               `json:"createdAt"`
}

// SwapTransaction is a ready-to-submit swap for the taker's wallet.
type SwapTransaction struct {
	QuoteID         string         `json:"quoteId"`
	Provider        ProviderName   `json:"provider"`
	To              common.Address `json:"to"`
	Data            []byte         `json:"-"`
	Value           *big.Int       `json:"value"`
	AllowanceTarget common.Address `json:"allowanceTarget"`
	SellToken       common.Address `json:"sellToken"`
	SellAmount      *big.Int       `json:"sellAmount"`
	MinBuyAmount    *big.Int       `json:"minBuyAmount"`
	GasEstimate     uint64         `json:"gasEstimate"`
}

// MinOut applies a slippage tolerance in basis points to a quoted output:
// amount * (10000 - bps) / 10000, floored.
func MinOut(amount *big.Int, slippageBps uint64) *big.Int {
	if amount == nil || amount.Sign() <= 0 {
		return big.NewInt(0)
	}
	if slippageBps >= 10000 {
		return big.NewInt(0)
	}
	out := new(big.Int).Mul(amount, big.NewInt(10000-int64(slippageBps)))
	return out.Div(out, big.NewInt(10000))
}
