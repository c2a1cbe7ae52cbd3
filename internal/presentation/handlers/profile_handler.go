package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/chi/v5"

	"github.com/arvatny/tokendir/internal/domain/entities"
	"github.com/arvatny/tokendir/internal/domain/services"
	"github.com/arvatny/tokendir/internal/infrastructure/ethereum"
	"github.com/arvatny/tokendir/internal/infrastructure/store"
)

// ProfileHandler serves the member directory.
type ProfileHandler struct {
	profiles *services.ProfileService
}

func NewProfileHandler(profiles *services.ProfileService) *ProfileHandler {
	return &ProfileHandler{profiles: profiles}
}

type ProfileRequest struct {
	Username     string `json:"username"`
	DisplayName  string `json:"displayName"`
	Bio          string `json:"bio"`
	AvatarURL    string `json:"avatarUrl"`
	Wallet       string `json:"wallet"`
	TokenAddress string `json:"tokenAddress"`
}

type ProfileResponse struct {
	FID          uint64 `json:"fid"`
	Username     string `json:"username"`
	DisplayName  string `json:"displayName"`
	Bio          string `json:"bio,omitempty"`
	AvatarURL    string `json:"avatarUrl,omitempty"`
	Wallet       string `json:"wallet,omitempty"`
	TokenAddress string `json:"tokenAddress,omitempty"`
	CreatedAt    string `json:"createdAt"`
	UpdatedAt    string `json:"updatedAt"`
}

// Upsert handles PUT /api/v1/profiles/{fid}.
func (h *ProfileHandler) Upsert(w http.ResponseWriter, r *http.Request) {
	fid, ok := fidParam(w, r)
	if !ok {
		return
	}

	var req ProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "request body must be JSON")
		return
	}
	if req.Username == "" {
		writeError(w, http.StatusBadRequest, "missing_username", "username is required")
		return
	}

	profile := &entities.Profile{
		FID:         fid,
		Username:    req.Username,
		DisplayName: req.DisplayName,
		Bio:         req.Bio,
		AvatarURL:   req.AvatarURL,
	}

	if req.Wallet != "" {
		if !common.IsHexAddress(req.Wallet) {
			writeError(w, http.StatusBadRequest, "invalid_wallet", "wallet is not a valid address")
			return
		}
		profile.Wallet = common.HexToAddress(req.Wallet)
	}
	if req.TokenAddress != "" {
		if !common.IsHexAddress(req.TokenAddress) {
			writeError(w, http.StatusBadRequest, "invalid_token", "tokenAddress is not a valid address")
			return
		}
		profile.TokenAddress = common.HexToAddress(req.TokenAddress)
	}

	if err := h.profiles.Upsert(r.Context(), profile); err != nil {
		if errors.Is(err, ethereum.ErrNotERC20) {
			writeError(w, http.StatusBadRequest, "not_erc20", err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "upsert_failed", err.Error())
		return
	}

	saved, err := h.profiles.Get(r.Context(), fid)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "read_back_failed", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, buildProfileResponse(saved))
}

// Get handles GET /api/v1/profiles/{fid}.
func (h *ProfileHandler) Get(w http.ResponseWriter, r *http.Request) {
	fid, ok := fidParam(w, r)
	if !ok {
		return
	}

	profile, err := h.profiles.Get(r.Context(), fid)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not_found", err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "get_failed", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, buildProfileResponse(profile))
}

// List handles GET /api/v1/profiles.
func (h *ProfileHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	profiles, err := h.profiles.List(r.Context(), limit, offset)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "list_failed", err.Error())
		return
	}

	responses := make([]ProfileResponse, 0, len(profiles))
	for _, p := range profiles {
		responses = append(responses, buildProfileResponse(p))
	}
	writeJSON(w, http.StatusOK, map[string]any{"profiles": responses})
}

// Delete handles DELETE /api/v1/profiles/{fid}.
func (h *ProfileHandler) Delete(w http.ResponseWriter, r *http.Request) {
	fid, ok := fidParam(w, r)
	if !ok {
		return
	}

	if err := h.profiles.Delete(r.Context(), fid); err != nil {
		writeError(w, http.StatusInternalServerError, "delete_failed", err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func fidParam(w http.ResponseWriter, r *http.Request) (uint64, bool) {
	fid, err := strconv.ParseUint(chi.URLParam(r, "fid"), 10, 64)
	if err != nil || fid == 0 {
		writeError(w, http.StatusBadRequest, "invalid_fid", "fid must be a positive integer")
		return 0, false
	}
	return fid, true
}

func buildProfileResponse(p *entities.Profile) ProfileResponse {
	resp := ProfileResponse{
		FID:         p.FID,
		Username:    p.Username,
		DisplayName: p.DisplayName,
		Bio:         p.Bio,
		AvatarURL:   p.AvatarURL,
		CreatedAt:   p.CreatedAt.Format(time.RFC3339),
		UpdatedAt:   p.UpdatedAt.Format(time.RFC3339),
	}
	if p.Wallet != (common.Address{}) {
		resp.Wallet = p.Wallet.Hex()
	}
	if p.HasToken() {
		resp.TokenAddress = p.TokenAddress.Hex()
	}
	return resp
}
