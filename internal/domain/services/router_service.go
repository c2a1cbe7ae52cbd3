package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/arvatny/tokendir/internal/domain/entities"
	"github.com/arvatny/tokendir/internal/infrastructure/cache"
	"github.com/arvatny/tokendir/internal/infrastructure/swap"
	"github.com/arvatny/tokendir/internal/metrics"
)

// RouterService routes quote requests across providers in a fixed priority
// order, returning the first provider that can serve the pair. Providers
// are expected to arrive already wrapped in their slippage ladders.
type RouterService struct {
	providers []swap.Provider
	cache     cache.Cache
	cacheTTL  time.Duration
	log       zerolog.Logger
}

func NewRouterService(providers []swap.Provider, c cache.Cache, log zerolog.Logger) *RouterService {
	return &RouterService{
		providers: providers,
		cache:     c,
		cacheTTL:  10 * time.Second, // quotes go stale fast
		log:       log.With().Str("component", "router").Logger(),
	}
}

// GetQuote tries each provider in order and returns the first successful
// quote. A provider answering "no route" or failing outright both fall
// through to the next one; only when every provider is exhausted does the
// router itself report no route.
func (s *RouterService) GetQuote(ctx context.Context, params swap.QuoteParams) (*entities.Quote, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	cacheKey := cache.QuoteCacheKey(
		params.SellToken.Hex(), params.BuyToken.Hex(),
		params.SellAmount.String(), params.SlippageBps, params.Taker.Hex(),
	)
	if s.cache != nil {
		if cached, err := s.cache.GetQuote(ctx, cacheKey); err == nil && cached != nil {
			return cached, nil
		}
	}

	sources := make(map[entities.ProviderName]string, len(s.providers))

	for _, provider := range s.providers {
		name := provider.Name()
		start := time.Now()

		quote, err := provider.Quote(ctx, params)
		metrics.QuoteLatency.WithLabelValues(string(name)).Observe(time.Since(start).Seconds())

		if err != nil {
			if errors.Is(err, swap.ErrNoRoute) {
				metrics.QuoteRequests.WithLabelValues(string(name), metrics.OutcomeNoRoute).Inc()
				sources[name] = "no_route"
			} else {
				metrics.QuoteRequests.WithLabelValues(string(name), metrics.OutcomeError).Inc()
				sources[name] = "error"
				s.log.Warn().Err(err).Str("provider", string(name)).Msg("provider failed, trying next")
			}
			continue
		}

		metrics.QuoteRequests.WithLabelValues(string(name), metrics.OutcomeOK).Inc()
		sources[name] = quote.BuyAmount.String()

		if quote.MinBuyAmount == nil || quote.MinBuyAmount.Sign() <= 0 {
			quote.MinBuyAmount = entities.MinOut(quote.BuyAmount, quote.SlippageBps)
		}

		routed := &entities.Quote{
			ID:            uuid.NewString(),
			ProviderQuote: *quote,
			Sources:       sources,
			CreatedAt:     time.Now().UTC(),
		}

		if s.cache != nil {
			if err := s.cache.SetQuote(ctx, cacheKey, routed, s.cacheTTL); err != nil {
				s.log.Debug().Err(err).Msg("quote cache write failed")
			}
		}

		s.log.Info().
			Str("provider", string(name)).
			Str("sellAmount", params.SellAmount.String()).
			Str("buyAmount", quote.BuyAmount.String()).
			Uint64("slippageBps", quote.SlippageBps).
			Msg("quote routed")

		return routed, nil
	}

	return nil, fmt.Errorf("all providers exhausted for %s -> %s: %w",
		params.SellToken.Hex(), params.BuyToken.Hex(), swap.ErrNoRoute)
}
