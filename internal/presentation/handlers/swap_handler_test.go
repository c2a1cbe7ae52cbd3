package handlers

import (
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arvatny/tokendir/internal/domain/entities"
	"github.com/arvatny/tokendir/internal/domain/services"
	"github.com/arvatny/tokendir/internal/infrastructure/swap"
)

type stubEncoder struct{}

func (stubEncoder) BuildExactInputSingle(quote *entities.ProviderQuote, recipient common.Address) ([]byte, error) {
	return []byte{0x04, 0xe4, 0x5a, 0xaf}, nil
}

func (stubEncoder) Router() common.Address { return swap.UniswapSwapRouter02 }

func newSwapHandler(t *testing.T, providers ...swap.Provider) *SwapHandler {
	t.Helper()
	svc := services.NewSwapService(newRouter(t, providers...), stubEncoder{}, zerolog.Nop())
	return NewSwapHandler(svc)
}

func TestBuildSwapAggregatorRoute(t *testing.T) {
	to := common.HexToAddress("0x0000000000001fF3684f28c67538d4D072C22734")
	provider := &stubProvider{
		name: entities.ProviderZeroEx,
		quote: &entities.ProviderQuote{
			Provider:        entities.ProviderZeroEx,
			BuyAmount:       big.NewInt(9_000),
			MinBuyAmount:    big.NewInt(8_910),
			SlippageBps:     100,
			To:              to,
			Calldata:        []byte{0x1f, 0xff},
			Value:           big.NewInt(0),
			AllowanceTarget: to,
		},
	}
	handler := newSwapHandler(t, provider)

	body := `{"buyToken": "` + entities.DEGEN.Address.Hex() + `", "sellAmount": "1000000", "taker": "0x00000000000000000000000000000000000000AA"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/swap", strings.NewReader(body))
	rec := httptest.NewRecorder()
	handler.BuildSwap(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp SwapResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.QuoteID)
	assert.Equal(t, "zerox", resp.Provider)
	assert.Equal(t, to.Hex(), resp.To)
	assert.Equal(t, "0x1fff", resp.Data)
	assert.Equal(t, "8910", resp.MinBuyAmount)
}

func TestBuildSwapOnchainRouteEncodes(t *testing.T) {
	handler := newSwapHandler(t, quotingProvider(5_000_000))

	body := `{"buyToken": "` + entities.DEGEN.Address.Hex() + `", "sellAmount": "1000000", "taker": "0x00000000000000000000000000000000000000AA"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/swap", strings.NewReader(body))
	rec := httptest.NewRecorder()
	handler.BuildSwap(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp SwapResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, swap.UniswapSwapRouter02.Hex(), resp.To)
	assert.Equal(t, swap.UniswapSwapRouter02.Hex(), resp.AllowanceTarget)
	assert.Equal(t, "0x04e45aaf", resp.Data)
	assert.Equal(t, "0", resp.Value)
}

func TestBuildSwapRequiresTakerAddress(t *testing.T) {
	handler := newSwapHandler(t, quotingProvider(1))

	body := `{"buyToken": "` + entities.DEGEN.Address.Hex() + `", "sellAmount": "1000000"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/swap", strings.NewReader(body))
	rec := httptest.NewRecorder()
	handler.BuildSwap(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "invalid_taker", resp.Error)
}

func TestBuildSwapNoRoute(t *testing.T) {
	provider := &stubProvider{name: entities.ProviderZeroEx, err: swap.ErrNoRoute}
	handler := newSwapHandler(t, provider)

	body := `{"buyToken": "` + entities.DEGEN.Address.Hex() + `", "sellAmount": "1000000", "taker": "0x00000000000000000000000000000000000000AA"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/swap", strings.NewReader(body))
	rec := httptest.NewRecorder()
	handler.BuildSwap(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestBuildSwapRejectsNonJSON(t *testing.T) {
	handler := newSwapHandler(t, quotingProvider(1))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/swap", strings.NewReader("not json"))
	rec := httptest.NewRecorder()
	handler.BuildSwap(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
