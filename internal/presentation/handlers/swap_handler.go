package handlers

import (
	"encoding/json"
	"errors"
	"math/big"
	"net/http"

	"github.com/ethereum/go-ethereum/common"

	"github.com/arvatny/tokendir/internal/domain/entities"
	"github.com/arvatny/tokendir/internal/domain/services"
	"github.com/arvatny/tokendir/internal/infrastructure/swap"
)

// SwapHandler builds submittable swap transactions.
type SwapHandler struct {
	swaps *services.SwapService
}

func NewSwapHandler(swaps *services.SwapService) *SwapHandler {
	return &SwapHandler{swaps: swaps}
}

type SwapRequest struct {
	SellToken   string `json:"sellToken"`
	BuyToken    string `json:"buyToken"`
	SellAmount  string `json:"sellAmount"`
	Taker       string `json:"taker"`
	SlippageBps uint64 `json:"slippageBps"`
}

type SwapResponse struct {
	QuoteID         string `json:"quoteId"`
	Provider        string `json:"provider"`
	To              string `json:"to"`
	Data            string `json:"data"`
	Value           string `json:"value"`
	AllowanceTarget string `json:"allowanceTarget"`
	SellToken       string `json:"sellToken"`
	SellAmount      string `json:"sellAmount"`
	MinBuyAmount    string `json:"minBuyAmount"`
	GasEstimate     uint64 `json:"gasEstimate"`
}

// BuildSwap handles POST /api/v1/swap.
func (h *SwapHandler) BuildSwap(w http.ResponseWriter, r *http.Request) {
	var req SwapRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "request body must be JSON")
		return
	}

	params, ok := h.parseRequest(w, req)
	if !ok {
		return
	}

	tx, err := h.swaps.BuildSwap(r.Context(), params)
	if err != nil {
		if errors.Is(err, swap.ErrNoRoute) {
			writeError(w, http.StatusNotFound, "no_route", err.Error())
			return
		}
		writeError(w, http.StatusBadGateway, "swap_build_failed", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, SwapResponse{
		QuoteID:         tx.QuoteID,
		Provider:        string(tx.Provider),
		To:              tx.To.Hex(),
		Data:            hexData(tx.Data),
		Value:           tx.Value.String(),
		AllowanceTarget: tx.AllowanceTarget.Hex(),
		SellToken:       tx.SellToken.Hex(),
		SellAmount:      tx.SellAmount.String(),
		MinBuyAmount:    tx.MinBuyAmount.String(),
		GasEstimate:     tx.GasEstimate,
	})
}

func (h *SwapHandler) parseRequest(w http.ResponseWriter, req SwapRequest) (swap.QuoteParams, bool) {
	var params swap.QuoteParams

	if req.SellToken == "" {
		params.SellToken = entities.USDC.Address
	} else if common.IsHexAddress(req.SellToken) {
		params.SellToken = common.HexToAddress(req.SellToken)
	} else {
		writeError(w, http.StatusBadRequest, "invalid_sell_token", "sellToken is not a valid address")
		return params, false
	}

	if !common.IsHexAddress(req.BuyToken) {
		writeError(w, http.StatusBadRequest, "invalid_buy_token", "buyToken is required and must be a valid address")
		return params, false
	}
	params.BuyToken = common.HexToAddress(req.BuyToken)

	amount, ok := new(big.Int).SetString(req.SellAmount, 10)
	if !ok || amount.Sign() <= 0 {
		writeError(w, http.StatusBadRequest, "invalid_amount", "sellAmount must be a positive integer in base units")
		return params, false
	}
	params.SellAmount = amount

	if !common.IsHexAddress(req.Taker) {
		writeError(w, http.StatusBadRequest, "invalid_taker", "taker is required and must be a valid address")
		return params, false
	}
	params.Taker = common.HexToAddress(req.Taker)

	if req.SlippageBps > 10000 {
		writeError(w, http.StatusBadRequest, "invalid_slippage", "slippageBps must be 0-10000")
		return params, false
	}
	params.SlippageBps = req.SlippageBps

	return params, true
}
