// README: Entry point; loads config, wires services, starts HTTP server and the session sweeper.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"nile/internal/ai"
	"nile/internal/config"
	"nile/internal/gateway"
	httptransport "nile/internal/http"
	"nile/internal/infra"
	"nile/internal/maps"
	"nile/internal/modules/conversation"
	"nile/internal/modules/itinerary"
	"nile/internal/modules/preference"
	"nile/internal/modules/profile"
	"nile/internal/modules/session"
	"nile/internal/observability"
	"nile/internal/planner"
	"nile/internal/service"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := run(); err != nil {
		slog.Error("nile-api stopped", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	observability.Init(cfg.Log.Level, cfg.Log.JSON)
	logger := observability.Logger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var verifier infra.TokenVerifier
	if cfg.Firebase.ProjectID != "" {
		verifier, err = infra.NewFirebaseVerifier(ctx, cfg.Firebase.ProjectID, cfg.Firebase.CredentialsFile)
		if err != nil {
			return err
		}
	} else {
		logger.Warn("NILE_FIREBASE_PROJECT_ID not set; API runs without auth")
	}

	dbPool, err := infra.NewDB(ctx, cfg.DB.DSN)
	if err != nil {
		if cfg.Gateway.BaseURL == "" {
			return err
		}
		logger.Warn("postgres unavailable; profile enrichment disabled", "error", err)
		dbPool = nil
	}
	if dbPool != nil {
		defer dbPool.Close()
	}

	redisClient, err := infra.NewRedis(ctx, cfg.Redis.Addr)
	if err != nil {
		logger.Warn("redis unavailable; using in-memory conversation history", "error", err)
		redisClient = nil
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	plannerSvc, err := buildPlanner(ctx, cfg, redisClient)
	if err != nil {
		return err
	}

	catalog, err := preference.LoadCatalog(cfg.Engine.PreferenceFile)
	if err != nil {
		return err
	}

	deps := session.Deps{Catalog: catalog, Engine: cfg.Engine}
	serverDeps := httptransport.ServerDeps{
		Planner:        plannerSvc,
		PlannerTimeout: cfg.Planner.Timeout,
		Verifier:       verifier,
	}

	if cfg.Planner.BaseURL != "" {
		deps.Planner = planner.NewClient(cfg.Planner.BaseURL, cfg.Planner.Timeout)
	} else {
		deps.Planner = plannerSvc
	}

	if dbPool != nil {
		itinerarySvc := itinerary.NewService(itinerary.NewStore(dbPool))
		serverDeps.Itineraries = itinerarySvc
		if cfg.Gateway.BaseURL == "" {
			deps.Gateway = gateway.NewLocal(itinerarySvc)
		}
		deps.Profiles = buildProfiles(dbPool, redisClient)
	}
	if cfg.Gateway.BaseURL != "" {
		deps.Gateway = gateway.NewClient(cfg.Gateway.BaseURL, cfg.Gateway.Timeout)
	}

	registry := session.NewRegistry(deps)
	serverDeps.Sessions = registry
	go registry.RunSweeper(ctx)

	server := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           httptransport.NewServer(serverDeps).Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", "addr", cfg.HTTP.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	err = server.Shutdown(shutdownCtx)
	registry.Shutdown()
	return err
}

func buildPlanner(ctx context.Context, cfg config.Config, redisClient *redis.Client) (*service.PlannerService, error) {
	logger := observability.Logger()

	var provider ai.LLMProvider
	if cfg.AI.GeminiKey != "" {
		gemini, err := ai.NewGeminiProvider(ctx, cfg.AI.GeminiKey, cfg.AI.Model)
		if err != nil {
			return nil, err
		}
		provider = gemini
	} else {
		logger.Warn("GEMINI_API_KEY not set; using the mock planner")
		provider = ai.NewMockProvider()
	}

	var history conversation.Store = conversation.NewMemoryStore()
	if redisClient != nil {
		history = conversation.NewRedisStore(redisClient, cfg.Redis.ConversationTTL)
	}

	var places service.PlaceFinder
	var routes service.RouteEstimator
	if cfg.Maps.APIKey != "" {
		p, err := maps.NewPlacesService(cfg.Maps.APIKey)
		if err != nil {
			return nil, err
		}
		r, err := maps.NewRouteService(cfg.Maps.APIKey)
		if err != nil {
			return nil, err
		}
		places, routes = p, r
	}
	return service.NewPlannerService(provider, history, places, routes)
}

func buildProfiles(db *pgxpool.Pool, redisClient *redis.Client) *profile.Service {
	var cache *profile.Cache
	if redisClient != nil {
		cache = profile.NewCache(redisClient)
	}
	return profile.NewService(profile.NewStore(db), cache)
}
