package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arvatny/tokendir/internal/domain/entities"
)

func openTestStore(t *testing.T) *ProfileStore {
	t.Helper()
	st, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func TestUpsertAndGet(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	profile := &entities.Profile{
		FID:          100,
		Username:     "alice",
		DisplayName:  "Alice",
		Bio:          "onchain artist",
		Wallet:       common.HexToAddress("0x00000000000000000000000000000000000000AA"),
		TokenAddress: common.HexToAddress("0x00000000000000000000000000000000000000C0"),
	}
	require.NoError(t, st.Upsert(ctx, profile))

	got, err := st.GetByFID(ctx, 100)
	require.NoError(t, err)
	assert.Equal(t, profile.Username, got.Username)
	assert.Equal(t, profile.Wallet, got.Wallet)
	assert.Equal(t, profile.TokenAddress, got.TokenAddress)
	assert.False(t, got.CreatedAt.IsZero())
}

func TestUpsertIsIdempotentOnFID(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, st.Upsert(ctx, &entities.Profile{FID: 1, Username: "old"}))
	first, err := st.GetByFID(ctx, 1)
	require.NoError(t, err)

	require.NoError(t, st.Upsert(ctx, &entities.Profile{FID: 1, Username: "new", Bio: "updated"}))
	second, err := st.GetByFID(ctx, 1)
	require.NoError(t, err)

	assert.Equal(t, "new", second.Username)
	assert.Equal(t, "updated", second.Bio)
	assert.Equal(t, first.CreatedAt, second.CreatedAt)

	profiles, err := st.List(ctx, 10, 0)
	require.NoError(t, err)
	assert.Len(t, profiles, 1)
}

func TestGetMissing(t *testing.T) {
	st := openTestStore(t)

	_, err := st.GetByFID(context.Background(), 999)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestListPagination(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	for fid := uint64(1); fid <= 5; fid++ {
		require.NoError(t, st.Upsert(ctx, &entities.Profile{FID: fid, Username: "user"}))
	}

	page, err := st.List(ctx, 2, 0)
	require.NoError(t, err)
	assert.Len(t, page, 2)

	rest, err := st.List(ctx, 10, 2)
	require.NoError(t, err)
	assert.Len(t, rest, 3)
}

func TestDelete(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, st.Upsert(ctx, &entities.Profile{FID: 5, Username: "gone"}))
	require.NoError(t, st.Delete(ctx, 5))

	_, err := st.GetByFID(ctx, 5)
	assert.True(t, errors.Is(err, ErrNotFound))

	// deleting again is not an error
	require.NoError(t, st.Delete(ctx, 5))
}

func TestUpsertRequiresFIDAndUsername(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	assert.Error(t, st.Upsert(ctx, &entities.Profile{Username: "nofid"}))
	assert.Error(t, st.Upsert(ctx, &entities.Profile{FID: 3}))
}
