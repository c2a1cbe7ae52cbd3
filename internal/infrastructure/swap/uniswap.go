package swap

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"github.com/arvatny/tokendir/internal/domain/entities"
)

// Uniswap V3 contract addresses on Base mainnet.
var (
	UniswapQuoterV2     = common.HexToAddress("0x3d4e44Eb1374240CE5F1B871ab261CD16335B76a")
	UniswapSwapRouter02 = common.HexToAddress("0x2626664c2603336E57B271c5C0b26F421741e481")
)

// DefaultFeeTiers is the fee tier probe order, in hundredths of a bip.
// Long-tail creator tokens usually sit in the 1% tier, but the cheaper
// tiers are tried first so a better pool wins when one exists.
var DefaultFeeTiers = []uint32{100, 500, 3000, 10000}

const quoterV2ABI = `[
	{"name":"quoteExactInputSingle","type":"function","stateMutability":"nonpayable","inputs":[{"name":"params","type":"tuple","components":[{"name":"tokenIn","type":"address"},{"name":"tokenOut","type":"address"},{"name":"amountIn","type":"uint256"},{"name":"fee","type":"uint24"},{"name":"sqrtPriceLimitX96","type":"uint160"}]}],"outputs":[{"name":"amountOut","type":"uint256"},{"name":"sqrtPriceX96After","type":"uint160"},{"name":"initializedTicksCrossed","type":"uint32"},{"name":"gasEstimate","type":"uint256"}]}
]`

const swapRouter02ABI = `[
	{"name":"exactInputSingle","type":"function","stateMutability":"payable","inputs":[{"name":"params","type":"tuple","components":[{"name":"tokenIn","type":"address"},{"name":"tokenOut","type":"address"},{"name":"fee","type":"uint24"},{"name":"recipient","type":"address"},{"name":"amountIn","type":"uint256"},{"name":"amountOutMinimum","type":"uint256"},{"name":"sqrtPriceLimitX96","type":"uint160"}]}],"outputs":[{"name":"amountOut","type":"uint256"}]}
]`

// ContractCaller is the chain access the quoter needs; satisfied by
// *ethereum.Client, faked in tests.
type ContractCaller interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg) ([]byte, error)
}

// UniswapQuoter quotes single-hop swaps against Uniswap V3 QuoterV2,
// probing every fee tier and keeping the best output.
type UniswapQuoter struct {
	caller    ContractCaller
	quoter    common.Address
	router    common.Address
	feeTiers  []uint32
	quoterABI abi.ABI
	routerABI abi.ABI
}

func NewUniswapQuoter(caller ContractCaller) (*UniswapQuoter, error) {
	qABI, err := abi.JSON(strings.NewReader(quoterV2ABI))
	if err != nil {
		return nil, fmt.Errorf("parse quoter abi: %w", err)
	}
	rABI, err := abi.JSON(strings.NewReader(swapRouter02ABI))
	if err != nil {
		return nil, fmt.Errorf("parse router abi: %w", err)
	}

	return &UniswapQuoter{
		caller:    caller,
		quoter:    UniswapQuoterV2,
		router:    UniswapSwapRouter02,
		feeTiers:  DefaultFeeTiers,
		quoterABI: qABI,
		routerABI: rABI,
	}, nil
}

func (u *UniswapQuoter) Name() entities.ProviderName {
	return entities.ProviderUniswap
}

// Router returns the SwapRouter02 address transactions must be sent to.
func (u *UniswapQuoter) Router() common.Address {
	return u.router
}

func (u *UniswapQuoter) Quote(ctx context.Context, params QuoteParams) (*entities.ProviderQuote, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	var (
		bestOut *big.Int
		bestFee uint32
		bestGas uint64
	)

	for _, fee := range u.feeTiers {
		amountOut, gasEstimate, err := u.quoteExactInputSingle(ctx, params.SellToken, params.BuyToken, params.SellAmount, fee)
		if err != nil {
			// Nonexistent pools revert; anything else is the RPC failing
			// and must not be reported as missing liquidity.
			if isRevert(err) {
				continue
			}
			return nil, err
		}
		if amountOut.Sign() <= 0 {
			continue
		}
		if bestOut == nil || amountOut.Cmp(bestOut) > 0 {
			bestOut = amountOut
			bestFee = fee
			bestGas = gasEstimate
		}
	}

	if bestOut == nil {
		return nil, ErrNoRoute
	}

	if bestGas == 0 {
		bestGas = 150000
	}

	return &entities.ProviderQuote{
		Provider:        entities.ProviderUniswap,
		SellToken:       params.SellToken,
		BuyToken:        params.BuyToken,
		SellAmount:      new(big.Int).Set(params.SellAmount),
		BuyAmount:       bestOut,
		MinBuyAmount:    entities.MinOut(bestOut, params.SlippageBps),
		SlippageBps:     params.SlippageBps,
		FeeTier:         bestFee,
		GasEstimate:     bestGas,
		AllowanceTarget: u.router,
	}, nil
}

func isRevert(err error) bool {
	return err != nil && strings.Contains(err.Error(), "execution reverted")
}

func (u *UniswapQuoter) quoteExactInputSingle(ctx context.Context, tokenIn, tokenOut common.Address, amountIn *big.Int, fee uint32) (*big.Int, uint64, error) {
	input := struct {
		TokenIn           common.Address
		TokenOut          common.Address
		AmountIn          *big.Int
		Fee               *big.Int
		SqrtPriceLimitX96 *big.Int
	}{
		TokenIn:           tokenIn,
		TokenOut:          tokenOut,
		AmountIn:          amountIn,
		Fee:               big.NewInt(int64(fee)),
		SqrtPriceLimitX96: big.NewInt(0),
	}

	data, err := u.quoterABI.Pack("quoteExactInputSingle", input)
	if err != nil {
		return nil, 0, fmt.Errorf("pack quote: %w", err)
	}

	result, err := u.caller.CallContract(ctx, ethereum.CallMsg{
		To:   &u.quoter,
		Data: data,
	})
	if err != nil {
		return nil, 0, fmt.Errorf("quoter call (fee %d): %w", fee, err)
	}

	out, err := u.quoterABI.Unpack("quoteExactInputSingle", result)
	if err != nil || len(out) != 4 {
		return nil, 0, fmt.Errorf("decode quoter response (fee %d)", fee)
	}

	amountOut, ok := out[0].(*big.Int)
	if !ok {
		return nil, 0, fmt.Errorf("unexpected amountOut type %T", out[0])
	}

	var gasEstimate uint64
	if gas, ok := out[3].(*big.Int); ok && gas.IsUint64() {
		gasEstimate = gas.Uint64()
	}

	return amountOut, gasEstimate, nil
}

// BuildExactInputSingle encodes the SwapRouter02 call that executes a quote
// previously produced by this provider.
func (u *UniswapQuoter) BuildExactInputSingle(quote *entities.ProviderQuote, recipient common.Address) ([]byte, error) {
	if quote.Provider != entities.ProviderUniswap {
		return nil, fmt.Errorf("quote is from %s, not %s", quote.Provider, entities.ProviderUniswap)
	}
	if quote.MinBuyAmount == nil || (quote.MinBuyAmount.Sign() <= 0 && quote.SlippageBps < 10000) {
		return nil, fmt.Errorf("quote has no minimum output bound")
	}

	input := struct {
		TokenIn           common.Address
		TokenOut          common.Address
		Fee               *big.Int
		Recipient         common.Address
		AmountIn          *big.Int
		AmountOutMinimum  *big.Int
		SqrtPriceLimitX96 *big.Int
	}{
		TokenIn:           quote.SellToken,
		TokenOut:          quote.BuyToken,
		Fee:               big.NewInt(int64(quote.FeeTier)),
		Recipient:         recipient,
		AmountIn:          quote.SellAmount,
		AmountOutMinimum:  quote.MinBuyAmount,
		SqrtPriceLimitX96: big.NewInt(0),
	}

	data, err := u.routerABI.Pack("exactInputSingle", input)
	if err != nil {
		return nil, fmt.Errorf("pack exactInputSingle: %w", err)
	}
	return data, nil
}
