package services

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arvatny/tokendir/internal/domain/entities"
	"github.com/arvatny/tokendir/internal/infrastructure/cache"
	"github.com/arvatny/tokendir/internal/infrastructure/ethereum"
	"github.com/arvatny/tokendir/internal/infrastructure/store"
)

type mockTokenReader struct {
	tokens map[common.Address]entities.Token
	reads  int
}

func (m *mockTokenReader) ReadMetadata(ctx context.Context, addr common.Address) (entities.Token, error) {
	m.reads++
	if token, ok := m.tokens[addr]; ok {
		return token, nil
	}
	return entities.Token{}, fmt.Errorf("%w: no code at %s", ethereum.ErrNotERC20, addr.Hex())
}

func newProfileService(t *testing.T, reader *mockTokenReader) (*ProfileService, *entities.TokenRegistry) {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "profiles.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	registry := entities.DefaultRegistry()
	return NewProfileService(st, reader, registry, cache.NewInMemoryCache(), zerolog.Nop()), registry
}

func TestProfileUpsertValidatesToken(t *testing.T) {
	creatorToken := common.HexToAddress("0x00000000000000000000000000000000000000C0")
	reader := &mockTokenReader{tokens: map[common.Address]entities.Token{
		creatorToken: {Address: creatorToken, Symbol: "CRTR", Name: "Creator", Decimals: 18},
	}}
	svc, registry := newProfileService(t, reader)

	profile := &entities.Profile{
		FID:          42,
		Username:     "alice",
		DisplayName:  "Alice",
		TokenAddress: creatorToken,
	}
	require.NoError(t, svc.Upsert(context.Background(), profile))

	saved, err := svc.Get(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, "alice", saved.Username)
	assert.Equal(t, creatorToken, saved.TokenAddress)
	assert.Equal(t, 1, reader.reads)

	// the linked token is registered, so the second upsert never
	// touches the chain
	_, ok := registry.GetByAddress(creatorToken)
	assert.True(t, ok)
	require.NoError(t, svc.Upsert(context.Background(), profile))
	assert.Equal(t, 1, reader.reads)
}

func TestProfileUpsertRejectsNonToken(t *testing.T) {
	svc, _ := newProfileService(t, &mockTokenReader{})

	err := svc.Upsert(context.Background(), &entities.Profile{
		FID:          7,
		Username:     "bob",
		TokenAddress: common.HexToAddress("0x00000000000000000000000000000000000000DD"),
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ethereum.ErrNotERC20)

	_, err = svc.Get(context.Background(), 7)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestProfileUpsertWithoutTokenSkipsValidation(t *testing.T) {
	reader := &mockTokenReader{}
	svc, _ := newProfileService(t, reader)

	require.NoError(t, svc.Upsert(context.Background(), &entities.Profile{
		FID:      9,
		Username: "carol",
	}))
	assert.Equal(t, 0, reader.reads)
}

func TestResolveTokenCachesChainReads(t *testing.T) {
	creatorToken := common.HexToAddress("0x00000000000000000000000000000000000000C1")
	reader := &mockTokenReader{tokens: map[common.Address]entities.Token{
		creatorToken: {Address: creatorToken, Symbol: "ART", Name: "Art Coin", Decimals: 18},
	}}
	svc, _ := newProfileService(t, reader)

	first, err := svc.ResolveToken(context.Background(), creatorToken)
	require.NoError(t, err)
	second, err := svc.ResolveToken(context.Background(), creatorToken)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, reader.reads)
}

func TestResolveTokenDoesNotGrowRegistry(t *testing.T) {
	creatorToken := common.HexToAddress("0x00000000000000000000000000000000000000C2")
	reader := &mockTokenReader{tokens: map[common.Address]entities.Token{
		creatorToken: {Address: creatorToken, Symbol: "ART", Name: "Art Coin", Decimals: 18},
	}}
	svc, registry := newProfileService(t, reader)
	before := registry.Count()

	// anonymous lookups must not pin arbitrary addresses in memory
	_, err := svc.ResolveToken(context.Background(), creatorToken)
	require.NoError(t, err)
	assert.Equal(t, before, registry.Count())
}
