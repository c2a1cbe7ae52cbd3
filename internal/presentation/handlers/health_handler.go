package handlers

import "net/http"

type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	ChainID uint64 `json:"chainId"`
}

type HealthHandler struct {
	version string
	chainID uint64
}

func NewHealthHandler(version string, chainID uint64) *HealthHandler {
	return &HealthHandler{version: version, chainID: chainID}
}

// Health handles GET /health
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:  "ok",
		Version: h.version,
		ChainID: h.chainID,
	})
}
