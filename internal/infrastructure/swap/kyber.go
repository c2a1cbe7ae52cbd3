package swap

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"net/url"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/arvatny/tokendir/internal/domain/entities"
)

const (
	DefaultKyberBaseURL = "https://aggregator-api.kyberswap.com"
	kyberChainSlug      = "base"
)

// KyberClient quotes through the KyberSwap Aggregator API: a route lookup
// followed by a build call that turns the chosen route into calldata. The
// route summary is passed back to the build endpoint verbatim.
type KyberClient struct {
	baseURL  string
	clientID string
	http     *http.Client
}

func NewKyberClient(baseURL, clientID string) *KyberClient {
	if baseURL == "" {
		baseURL = DefaultKyberBaseURL
	}
	return &KyberClient{
		baseURL:  baseURL,
		clientID: clientID,
		http:     &http.Client{Timeout: 8 * time.Second},
	}
}

func (k *KyberClient) Name() entities.ProviderName {
	return entities.ProviderKyber
}

type kyberRoutesResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    struct {
		RouteSummary  json.RawMessage `json:"routeSummary"`
		RouterAddress string          `json:"routerAddress"`
	} `json:"data"`
}

type kyberRouteSummary struct {
	AmountOut string `json:"amountOut"`
	Gas       string `json:"gas"`
}

type kyberBuildResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    struct {
		AmountOut     string `json:"amountOut"`
		MinAmountOut  string `json:"minAmountOut"`
		Data          string `json:"data"`
		RouterAddress string `json:"routerAddress"`
		Gas           string `json:"gas"`
	} `json:"data"`
}

func (k *KyberClient) Quote(ctx context.Context, params QuoteParams) (*entities.ProviderQuote, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	routes, err := k.fetchRoutes(ctx, params)
	if err != nil {
		return nil, err
	}

	var summary kyberRouteSummary
	if err := json.Unmarshal(routes.Data.RouteSummary, &summary); err != nil {
		return nil, fmt.Errorf("decode kyber route summary: %w", err)
	}

	amountOut, ok := new(big.Int).SetString(summary.AmountOut, 10)
	if !ok || amountOut.Sign() <= 0 {
		return nil, fmt.Errorf("%w: kyber returned zero output", ErrNoRoute)
	}

	build, err := k.buildRoute(ctx, routes.Data.RouteSummary, params)
	if err != nil {
		return nil, err
	}

	calldata := common.FromHex(build.Data.Data)
	if len(calldata) == 0 {
		return nil, fmt.Errorf("kyber build: empty calldata")
	}

	minOut, ok := new(big.Int).SetString(build.Data.MinAmountOut, 10)
	if !ok {
		minOut = entities.MinOut(amountOut, params.SlippageBps)
	}

	router := common.HexToAddress(build.Data.RouterAddress)
	if router == (common.Address{}) {
		router = common.HexToAddress(routes.Data.RouterAddress)
	}

	var gas uint64
	if g, ok := new(big.Int).SetString(build.Data.Gas, 10); ok && g.IsUint64() {
		gas = g.Uint64()
	} else if g, ok := new(big.Int).SetString(summary.Gas, 10); ok && g.IsUint64() {
		gas = g.Uint64()
	}

	return &entities.ProviderQuote{
		Provider:        entities.ProviderKyber,
		SellToken:       params.SellToken,
		BuyToken:        params.BuyToken,
		SellAmount:      new(big.Int).Set(params.SellAmount),
		BuyAmount:       amountOut,
		MinBuyAmount:    minOut,
		SlippageBps:     params.SlippageBps,
		GasEstimate:     gas,
		To:              router,
		Calldata:        calldata,
		Value:           big.NewInt(0),
		AllowanceTarget: router,
	}, nil
}

func (k *KyberClient) fetchRoutes(ctx context.Context, params QuoteParams) (*kyberRoutesResponse, error) {
	q := url.Values{}
	q.Set("tokenIn", params.SellToken.Hex())
	q.Set("tokenOut", params.BuyToken.Hex())
	q.Set("amountIn", params.SellAmount.String())

	u := fmt.Sprintf("%s/%s/api/v1/routes?%s", k.baseURL, kyberChainSlug, q.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	k.setHeaders(req)

	resp, err := k.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("kyber routes: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("kyber routes status %d: %s", resp.StatusCode, body)
	}

	var rr kyberRoutesResponse
	if err := json.NewDecoder(resp.Body).Decode(&rr); err != nil {
		return nil, fmt.Errorf("decode kyber routes: %w", err)
	}
	if rr.Code != 0 || len(rr.Data.RouteSummary) == 0 {
		return nil, fmt.Errorf("%w: kyber code %d (%s)", ErrNoRoute, rr.Code, rr.Message)
	}
	return &rr, nil
}

func (k *KyberClient) buildRoute(ctx context.Context, routeSummary json.RawMessage, params QuoteParams) (*kyberBuildResponse, error) {
	recipient := params.Taker
	payload := map[string]any{
		"routeSummary":      routeSummary,
		"sender":            params.Taker.Hex(),
		"recipient":         recipient.Hex(),
		"slippageTolerance": params.SlippageBps,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal kyber build request: %w", err)
	}

	u := fmt.Sprintf("%s/%s/api/v1/route/build", k.baseURL, kyberChainSlug)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	k.setHeaders(req)

	resp, err := k.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("kyber build: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("kyber build status %d: %s", resp.StatusCode, respBody)
	}

	var br kyberBuildResponse
	if err := json.NewDecoder(resp.Body).Decode(&br); err != nil {
		return nil, fmt.Errorf("decode kyber build: %w", err)
	}
	if br.Code != 0 {
		return nil, fmt.Errorf("%w: kyber build code %d (%s)", ErrNoRoute, br.Code, br.Message)
	}
	return &br, nil
}

func (k *KyberClient) setHeaders(req *http.Request) {
	if k.clientID != "" {
		req.Header.Set("x-client-id", k.clientID)
	}
}
