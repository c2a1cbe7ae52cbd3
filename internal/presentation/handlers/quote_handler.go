package handlers

import (
	"errors"
	"math/big"
	"net/http"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/arvatny/tokendir/internal/domain/entities"
	"github.com/arvatny/tokendir/internal/domain/services"
	"github.com/arvatny/tokendir/internal/infrastructure/swap"
)

// QuoteHandler serves swap quotes.
type QuoteHandler struct {
	router *services.RouterService
}

func NewQuoteHandler(router *services.RouterService) *QuoteHandler {
	return &QuoteHandler{router: router}
}

// QuoteResponse is the wire shape of a routed quote.
type QuoteResponse struct {
	ID              string            `json:"id"`
	Provider        string            `json:"provider"`
	SellToken       string            `json:"sellToken"`
	BuyToken        string            `json:"buyToken"`
	SellAmount      string            `json:"sellAmount"`
	BuyAmount       string            `json:"buyAmount"`
	MinBuyAmount    string            `json:"minBuyAmount"`
	SlippageBps     uint64            `json:"slippageBps"`
	FeeTier         uint32            `json:"feeTier,omitempty"`
	GasEstimate     uint64            `json:"gasEstimate"`
	AllowanceTarget string            `json:"allowanceTarget,omitempty"`
	Sources         map[string]string `json:"sources"`
	CreatedAt       string            `json:"createdAt"`
}

// GetQuote handles GET /api/v1/quote. sellToken defaults to USDC; buyToken
// and sellAmount are required.
func (h *QuoteHandler) GetQuote(w http.ResponseWriter, r *http.Request) {
	params, ok := parseQuoteQuery(w, r)
	if !ok {
		return
	}

	quote, err := h.router.GetQuote(r.Context(), params)
	if err != nil {
		if errors.Is(err, swap.ErrNoRoute) {
			writeError(w, http.StatusNotFound, "no_route", err.Error())
			return
		}
		writeError(w, http.StatusBadGateway, "quote_failed", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, buildQuoteResponse(quote))
}

func parseQuoteQuery(w http.ResponseWriter, r *http.Request) (swap.QuoteParams, bool) {
	query := r.URL.Query()

	var params swap.QuoteParams

	sellToken := query.Get("sellToken")
	if sellToken == "" {
		params.SellToken = entities.USDC.Address
	} else if common.IsHexAddress(sellToken) {
		params.SellToken = common.HexToAddress(sellToken)
	} else {
		writeError(w, http.StatusBadRequest, "invalid_sell_token", "sellToken is not a valid address")
		return params, false
	}

	buyToken := query.Get("buyToken")
	if !common.IsHexAddress(buyToken) {
		writeError(w, http.StatusBadRequest, "invalid_buy_token", "buyToken is required and must be a valid address")
		return params, false
	}
	params.BuyToken = common.HexToAddress(buyToken)

	amount, ok := new(big.Int).SetString(query.Get("sellAmount"), 10)
	if !ok || amount.Sign() <= 0 {
		writeError(w, http.StatusBadRequest, "invalid_amount", "sellAmount must be a positive integer in base units")
		return params, false
	}
	params.SellAmount = amount

	if taker := query.Get("taker"); taker != "" {
		if !common.IsHexAddress(taker) {
			writeError(w, http.StatusBadRequest, "invalid_taker", "taker is not a valid address")
			return params, false
		}
		params.Taker = common.HexToAddress(taker)
	}

	if slippage := query.Get("slippageBps"); slippage != "" {
		bps, err := strconv.ParseUint(slippage, 10, 64)
		if err != nil || bps > 10000 {
			writeError(w, http.StatusBadRequest, "invalid_slippage", "slippageBps must be 0-10000")
			return params, false
		}
		params.SlippageBps = bps
	}

	return params, true
}

func buildQuoteResponse(quote *entities.Quote) QuoteResponse {
	sources := make(map[string]string, len(quote.Sources))
	for provider, outcome := range quote.Sources {
		sources[string(provider)] = outcome
	}

	resp := QuoteResponse{
		ID:           quote.ID,
		Provider:     string(quote.Provider),
		SellToken:    quote.SellToken.Hex(),
		BuyToken:     quote.BuyToken.Hex(),
		SellAmount:   quote.SellAmount.String(),
		BuyAmount:    quote.BuyAmount.String(),
		MinBuyAmount: quote.MinBuyAmount.String(),
		SlippageBps:  quote.SlippageBps,
		FeeTier:      quote.FeeTier,
		GasEstimate:  quote.GasEstimate,
		Sources:      sources,
		CreatedAt:    quote.CreatedAt.Format(time.RFC3339),
	}
	if quote.AllowanceTarget != (common.Address{}) {
		resp.AllowanceTarget = quote.AllowanceTarget.Hex()
	}
	return resp
}

// hexData renders calldata for JSON responses.
func hexData(data []byte) string {
	if len(data) == 0 {
		return "0x"
	}
	return hexutil.Encode(data)
}
