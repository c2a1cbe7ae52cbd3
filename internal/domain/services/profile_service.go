package services

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"

	"github.com/arvatny/tokendir/internal/domain/entities"
	"github.com/arvatny/tokendir/internal/infrastructure/cache"
	"github.com/arvatny/tokendir/internal/infrastructure/store"
	"github.com/arvatny/tokendir/internal/metrics"
)

// TokenMetadataReader validates ERC-20 contracts; satisfied by
// *ethereum.TokenReader.
type TokenMetadataReader interface {
	ReadMetadata(ctx context.Context, addr common.Address) (entities.Token, error)
}

// ProfileService owns directory member records. Writes that link a creator
// token validate it on-chain first, so the directory never points a swap at
// a non-token address.
type ProfileService struct {
	store    *store.ProfileStore
	tokens   TokenMetadataReader
	registry *entities.TokenRegistry
	cache    cache.Cache
	tokenTTL time.Duration
	log      zerolog.Logger
}

func NewProfileService(st *store.ProfileStore, tokens TokenMetadataReader, registry *entities.TokenRegistry, c cache.Cache, log zerolog.Logger) *ProfileService {
	return &ProfileService{
		store:    st,
		tokens:   tokens,
		registry: registry,
		cache:    c,
		tokenTTL: time.Hour, // token metadata is immutable in practice
		log:      log.With().Str("component", "profiles").Logger(),
	}
}

// Upsert validates the linked token (when present) and writes the profile.
// Linked tokens are registered for good: the set is bounded by directory
// membership and they should resolve without chain reads from then on.
func (s *ProfileService) Upsert(ctx context.Context, p *entities.Profile) error {
	if p.HasToken() {
		token, err := s.ResolveToken(ctx, p.TokenAddress)
		if err != nil {
			return fmt.Errorf("token validation: %w", err)
		}
		s.registry.Register(token)
		s.log.Debug().Uint64("fid", p.FID).Str("token", token.Symbol).Msg("linked token validated")
	}

	if err := s.store.Upsert(ctx, p); err != nil {
		return err
	}
	metrics.ProfileUpserts.Inc()
	return nil
}

func (s *ProfileService) Get(ctx context.Context, fid uint64) (*entities.Profile, error) {
	return s.store.GetByFID(ctx, fid)
}

func (s *ProfileService) List(ctx context.Context, limit, offset int) ([]*entities.Profile, error) {
	return s.store.List(ctx, limit, offset)
}

func (s *ProfileService) Delete(ctx context.Context, fid uint64) error {
	return s.store.Delete(ctx, fid)
}

// ResolveToken returns metadata for addr, serving from the registry or
// cache when possible and reading the chain otherwise. Lookups do not touch
// the registry: it holds only seeded and profile-linked tokens, while
// arbitrary addresses age out of the cache with its TTL.
func (s *ProfileService) ResolveToken(ctx context.Context, addr common.Address) (entities.Token, error) {
	if token, ok := s.registry.GetByAddress(addr); ok {
		return token, nil
	}

	cacheKey := cache.TokenCacheKey(addr.Hex())
	if s.cache != nil {
		if cached, err := s.cache.GetToken(ctx, cacheKey); err == nil && cached != nil {
			return *cached, nil
		}
	}

	token, err := s.tokens.ReadMetadata(ctx, addr)
	if err != nil {
		return entities.Token{}, err
	}

	if s.cache != nil {
		if err := s.cache.SetToken(ctx, cacheKey, &token, s.tokenTTL); err != nil {
			s.log.Debug().Err(err).Msg("token cache write failed")
		}
	}
	return token, nil
}
