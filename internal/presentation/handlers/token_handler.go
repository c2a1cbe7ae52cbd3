package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/chi/v5"

	"github.com/arvatny/tokendir/internal/domain/services"
	"github.com/arvatny/tokendir/internal/infrastructure/ethereum"
	"github.com/arvatny/tokendir/internal/infrastructure/swap"
)

// TokenHandler serves creator token metadata and indicative prices.
type TokenHandler struct {
	profiles *services.ProfileService
	prices   *services.PriceService
}

func NewTokenHandler(profiles *services.ProfileService, prices *services.PriceService) *TokenHandler {
	return &TokenHandler{profiles: profiles, prices: prices}
}

type TokenResponse struct {
	Address  string `json:"address"`
	Symbol   string `json:"symbol"`
	Name     string `json:"name"`
	Decimals uint8  `json:"decimals"`
}

type PriceResponse struct {
	Token     string `json:"token"`
	Symbol    string `json:"symbol"`
	PriceUSDC string `json:"priceUsdc"`
	UpdatedAt string `json:"updatedAt"`
}

// GetToken handles GET /api/v1/tokens/{address}.
func (h *TokenHandler) GetToken(w http.ResponseWriter, r *http.Request) {
	addr, ok := tokenAddressParam(w, r)
	if !ok {
		return
	}

	token, err := h.profiles.ResolveToken(r.Context(), addr)
	if err != nil {
		if errors.Is(err, ethereum.ErrNotERC20) {
			writeError(w, http.StatusBadRequest, "not_erc20", err.Error())
			return
		}
		writeError(w, http.StatusBadGateway, "token_lookup_failed", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, TokenResponse{
		Address:  token.Address.Hex(),
		Symbol:   token.Symbol,
		Name:     token.Name,
		Decimals: token.Decimals,
	})
}

// GetPrice handles GET /api/v1/tokens/{address}/price.
func (h *TokenHandler) GetPrice(w http.ResponseWriter, r *http.Request) {
	addr, ok := tokenAddressParam(w, r)
	if !ok {
		return
	}

	token, err := h.profiles.ResolveToken(r.Context(), addr)
	if err != nil {
		if errors.Is(err, ethereum.ErrNotERC20) {
			writeError(w, http.StatusBadRequest, "not_erc20", err.Error())
			return
		}
		writeError(w, http.StatusBadGateway, "token_lookup_failed", err.Error())
		return
	}

	price, err := h.prices.GetTokenPrice(r.Context(), token)
	if err != nil {
		if errors.Is(err, swap.ErrNoRoute) {
			writeError(w, http.StatusNotFound, "price_unavailable", err.Error())
			return
		}
		writeError(w, http.StatusBadGateway, "price_failed", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, PriceResponse{
		Token:     token.Address.Hex(),
		Symbol:    token.Symbol,
		PriceUSDC: formatUSDC(price.String()),
		UpdatedAt: time.Now().UTC().Format(time.RFC3339),
	})
}

func tokenAddressParam(w http.ResponseWriter, r *http.Request) (common.Address, bool) {
	raw := chi.URLParam(r, "address")
	if !common.IsHexAddress(raw) {
		writeError(w, http.StatusBadRequest, "invalid_token", "token address is invalid")
		return common.Address{}, false
	}
	return common.HexToAddress(raw), true
}

// formatUSDC renders USDC base units (6 decimals) as a decimal string.
func formatUSDC(raw string) string {
	if len(raw) <= 6 {
		return "0." + strings.Repeat("0", 6-len(raw)) + raw
	}
	split := len(raw) - 6
	return raw[:split] + "." + raw[split:]
}
