package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/arvatny/tokendir/internal/config"
	"github.com/arvatny/tokendir/internal/domain/entities"
	"github.com/arvatny/tokendir/internal/domain/services"
	"github.com/arvatny/tokendir/internal/infrastructure/cache"
	"github.com/arvatny/tokendir/internal/infrastructure/ethereum"
	"github.com/arvatny/tokendir/internal/infrastructure/store"
	"github.com/arvatny/tokendir/internal/infrastructure/swap"
	"github.com/arvatny/tokendir/internal/presentation/handlers"
)

const version = "0.3.0"

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		bootLog := zerolog.New(os.Stderr)
		bootLog.Fatal().Err(err).Msg("load config")
	}

	log := newLogger(cfg.App.LogLevel)

	// Ethereum client
	ethClient, err := ethereum.NewClient(cfg.Chain.RPCURL)
	if err != nil {
		log.Fatal().Err(err).Msg("connect to chain")
	}
	defer ethClient.Close()
	log.Info().Str("chainId", ethClient.ChainID().String()).Msg("connected to chain")

	// Cache
	var cacheClient cache.Cache
	if cfg.Cache.RedisAddr != "" {
		redisCache, err := cache.NewRedisCache(cfg.Cache.RedisAddr, cfg.Cache.RedisPassword, cfg.Cache.RedisDB)
		if err != nil {
			log.Warn().Err(err).Msg("redis unavailable, using in-memory cache")
			cacheClient = cache.NewInMemoryCache()
		} else {
			defer redisCache.Close()
			cacheClient = redisCache
			log.Info().Str("addr", cfg.Cache.RedisAddr).Msg("connected to redis")
		}
	} else {
		cacheClient = cache.NewInMemoryCache()
		log.Info().Msg("using in-memory cache")
	}

	// Profile store
	profileStore, err := store.Open(cfg.Store.SQLitePath)
	if err != nil {
		log.Fatal().Err(err).Msg("open profile store")
	}
	defer profileStore.Close()

	// Token registry
	registry := entities.DefaultRegistry()
	if cfg.TokensFile != "" {
		if err := registry.LoadFromFile(cfg.TokensFile); err != nil {
			log.Fatal().Err(err).Str("path", cfg.TokensFile).Msg("load tokens file")
		}
		log.Info().Int("tokens", registry.Count()).Msg("token registry loaded")
	}

	tokenReader, err := ethereum.NewTokenReader(ethClient)
	if err != nil {
		log.Fatal().Err(err).Msg("init token reader")
	}

	// Quote providers, in configured priority order
	uniswap, err := swap.NewUniswapQuoter(ethClient)
	if err != nil {
		log.Fatal().Err(err).Msg("init uniswap quoter")
	}

	providers := make([]swap.Provider, 0, len(cfg.Providers.Order))
	for _, name := range cfg.Providers.Order {
		var p swap.Provider
		switch name {
		case "uniswap_v3":
			p = uniswap
		case "zerox":
			p = swap.NewZeroExClient(cfg.Providers.ZeroEx.BaseURL, cfg.Providers.ZeroEx.APIKey, cfg.Chain.ChainID)
		case "kyberswap":
			p = swap.NewKyberClient(cfg.Providers.Kyber.BaseURL, cfg.Providers.Kyber.ClientID)
		}
		providers = append(providers, swap.WithSlippageLadder(p, cfg.Providers.SlippageLadder))
	}
	log.Info().Strs("order", cfg.Providers.Order).Msg("quote providers ready")

	// Services
	routerService := services.NewRouterService(providers, cacheClient, log)
	swapService := services.NewSwapService(routerService, uniswap, log)
	priceService := services.NewPriceService(routerService)
	profileService := services.NewProfileService(profileStore, tokenReader, registry, cacheClient, log)

	// Handlers
	healthHandler := handlers.NewHealthHandler(version, cfg.Chain.ChainID)
	quoteHandler := handlers.NewQuoteHandler(routerService)
	swapHandler := handlers.NewSwapHandler(swapService)
	tokenHandler := handlers.NewTokenHandler(profileService, priceService)
	profileHandler := handlers.NewProfileHandler(profileService)

	// Router
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(corsMiddleware)
	r.Use(requestLogger(log))

	r.Get("/health", healthHandler.Health)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/quote", quoteHandler.GetQuote)
		r.Post("/swap", swapHandler.BuildSwap)
		r.Get("/tokens/{address}", tokenHandler.GetToken)
		r.Get("/tokens/{address}/price", tokenHandler.GetPrice)
		r.Get("/profiles", profileHandler.List)
		r.Get("/profiles/{fid}", profileHandler.Get)
		r.Put("/profiles/{fid}", profileHandler.Upsert)
		r.Delete("/profiles/{fid}", profileHandler.Delete)
	})

	server := &http.Server{
		Addr:         cfg.App.ListenAddr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", cfg.App.ListenAddr).Str("version", version).Msg("starting server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("shutdown error")
	}
	log.Info().Msg("server stopped")
}

func newLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(os.Stdout).With().Timestamp().Logger().Level(lvl)
}

func requestLogger(log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			log.Info().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Dur("duration", time.Since(start)).
				Msg("request")
		})
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
