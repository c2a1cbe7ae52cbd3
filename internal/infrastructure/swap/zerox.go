package swap

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/arvatny/tokendir/internal/domain/entities"
)

const DefaultZeroExBaseURL = "https://api.0x.org"

// ZeroExClient quotes through the 0x Swap API v2 allowance-holder endpoint.
// The response carries ready-to-submit calldata, so routed swaps through
// this provider are pure passthrough.
type ZeroExClient struct {
	baseURL string
	apiKey  string
	chainID uint64
	http    *http.Client
}

func NewZeroExClient(baseURL, apiKey string, chainID uint64) *ZeroExClient {
	if baseURL == "" {
		baseURL = DefaultZeroExBaseURL
	}
	return &ZeroExClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		chainID: chainID,
		http:    &http.Client{Timeout: 8 * time.Second},
	}
}

func (z *ZeroExClient) Name() entities.ProviderName {
	return entities.ProviderZeroEx
}

type zeroExQuoteResponse struct {
	LiquidityAvailable bool   `json:"liquidityAvailable"`
	BuyAmount          string `json:"buyAmount"`
	MinBuyAmount       string `json:"minBuyAmount"`
	Transaction        struct {
		To    string `json:"to"`
		Data  string `json:"data"`
		Gas   string `json:"gas"`
		Value string `json:"value"`
	} `json:"transaction"`
	Issues struct {
		Allowance *struct {
			Spender string `json:"spender"`
		} `json:"allowance"`
	} `json:"issues"`
}

func (z *ZeroExClient) Quote(ctx context.Context, params QuoteParams) (*entities.ProviderQuote, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	q := url.Values{}
	q.Set("chainId", strconv.FormatUint(z.chainID, 10))
	q.Set("sellToken", params.SellToken.Hex())
	q.Set("buyToken", params.BuyToken.Hex())
	q.Set("sellAmount", params.SellAmount.String())
	if params.Taker != (common.Address{}) {
		q.Set("taker", params.Taker.Hex())
	}
	if params.SlippageBps > 0 {
		q.Set("slippageBps", strconv.FormatUint(params.SlippageBps, 10))
	}

	u := z.baseURL + "/swap/allowance-holder/quote?" + q.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("0x-api-key", z.apiKey)
	req.Header.Set("0x-version", "v2")

	resp, err := z.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("zerox quote: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusUnprocessableEntity:
		// 0x signals unsupported pairs with these statuses.
		return nil, fmt.Errorf("%w: zerox status %d", ErrNoRoute, resp.StatusCode)
	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("zerox quote status %d: %s", resp.StatusCode, body)
	}

	var qr zeroExQuoteResponse
	if err := json.NewDecoder(resp.Body).Decode(&qr); err != nil {
		return nil, fmt.Errorf("decode zerox quote: %w", err)
	}

	if !qr.LiquidityAvailable {
		return nil, fmt.Errorf("%w: zerox reports no liquidity", ErrNoRoute)
	}

	buyAmount, ok := new(big.Int).SetString(qr.BuyAmount, 10)
	if !ok || buyAmount.Sign() <= 0 {
		return nil, fmt.Errorf("zerox quote: bad buyAmount %q", qr.BuyAmount)
	}

	minBuy, ok := new(big.Int).SetString(qr.MinBuyAmount, 10)
	if !ok {
		minBuy = entities.MinOut(buyAmount, params.SlippageBps)
	}

	calldata := common.FromHex(qr.Transaction.Data)
	if len(calldata) == 0 {
		return nil, fmt.Errorf("zerox quote: empty calldata")
	}

	value := big.NewInt(0)
	if qr.Transaction.Value != "" {
		if v, ok := new(big.Int).SetString(qr.Transaction.Value, 10); ok {
			value = v
		}
	}

	var gas uint64
	if qr.Transaction.Gas != "" {
		if g, err := strconv.ParseUint(qr.Transaction.Gas, 10, 64); err == nil {
			gas = g
		}
	}

	to := common.HexToAddress(qr.Transaction.To)
	allowanceTarget := to
	if qr.Issues.Allowance != nil && common.IsHexAddress(qr.Issues.Allowance.Spender) {
		allowanceTarget = common.HexToAddress(qr.Issues.Allowance.Spender)
	}

	return &entities.ProviderQuote{
		Provider:        entities.ProviderZeroEx,
		SellToken:       params.SellToken,
		BuyToken:        params.BuyToken,
		SellAmount:      new(big.Int).Set(params.SellAmount),
		BuyAmount:       buyAmount,
		MinBuyAmount:    minBuy,
		SlippageBps:     params.SlippageBps,
		GasEstimate:     gas,
		To:              to,
		Calldata:        calldata,
		Value:           value,
		AllowanceTarget: allowanceTarget,
	}, nil
}
