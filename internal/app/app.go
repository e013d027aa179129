package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"fraccional/internal/auth"
	"fraccional/internal/cache"
	"fraccional/internal/config"
	"fraccional/internal/database"
	"fraccional/internal/event"
	"fraccional/internal/handler"
	"fraccional/internal/repository"
	"fraccional/internal/role"
	"fraccional/internal/router"
	"fraccional/internal/service"
	"fraccional/internal/session"
	"fraccional/internal/supabase"
)

type App struct {
	server       *http.Server
	cleanupFuncs []func()
}

func New(cfg *config.Config) (*App, error) {
	a := &App{}
	ctx := context.Background()

	slog.Info("connecting to PostgreSQL")
	db, err := database.New(ctx, database.Config{URL: cfg.DatabaseURL, MaxConns: cfg.DBMaxConns, MinConns: cfg.DBMinConns})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	a.onClose(db.Close)

	if cfg.DBAutoMigrate {
		if err := db.EnsureSchema(ctx); err != nil {
			a.cleanup()
			return nil, fmt.Errorf("failed to ensure database schema: %w", err)
		}
	}

	pool := db.Pool
	profileRepo := repository.NewProfileRepository(pool)
	roleRepo := repository.NewRoleRepository(pool)
	planRepo := repository.NewPlanRepository(pool)
	tenantRepo := repository.NewTenantRepository(pool)
	slog.Info("database ready")

	provider, err := supabase.NewClient(supabase.Config{
		URL:     cfg.SupabaseURL,
		AnonKey: cfg.SupabaseAnonKey,
		Timeout: cfg.SupabaseTimeout,
	})
	if err != nil {
		a.cleanup()
		return nil, fmt.Errorf("failed to initialize auth provider client: %w", err)
	}
	gateway := auth.NewGateway(auth.SupabaseBinder(provider), session.CookieConfig{
		Secure:     cfg.CookieSecure,
		RefreshTTL: cfg.RefreshCookieTTL,
	})

	issuer, err := role.NewClaimIssuer(cfg.RoleClaimSecret, cfg.RoleClaimTTL)
	if err != nil {
		a.cleanup()
		return nil, fmt.Errorf("failed to initialize role claims: %w", err)
	}
	roleCookies := handler.NewRoleCookies(role.NewResolver(roleRepo), issuer, cfg.CookieSecure)

	bus := event.NewBus()
	events, unsubscribe := bus.Subscribe()
	a.onClose(unsubscribe)
	go logEvents(events)

	credentials := service.NewCredentialService(profileRepo, cfg.SiteURL)
	tenants := service.NewTenantService(tenantRepo, planRepo, roleRepo, bus)

	onboardingHandler := handler.NewOnboardingHandler(gateway, tenants, roleCookies, nil)
	if cfg.RedisURL != "" {
		redisClient, err := cache.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			a.cleanup()
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		a.onClose(func() { _ = redisClient.Close() })
		onboardingHandler = handler.NewOnboardingHandler(gateway, tenants, roleCookies, cache.NewIdempotencyStore(redisClient, cache.DefaultIdempotencyTTL))
	} else {
		slog.Info("REDIS_URL not set, Idempotency-Key support disabled")
	}

	pageHandler, err := handler.NewPageHandler(gateway, credentials, tenants, roleCookies)
	if err != nil {
		a.cleanup()
		return nil, fmt.Errorf("failed to load page templates: %w", err)
	}

	appRouter := router.New(cfg, gateway, router.Handlers{
		Auth:       handler.NewAuthHandler(gateway, credentials, roleCookies),
		Profile:    handler.NewProfileHandler(credentials, roleCookies),
		Plans:      handler.NewPlanHandler(tenants),
		Onboarding: onboardingHandler,
		Pages:      pageHandler,
	}, db)

	a.server = &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           appRouter,
		ReadHeaderTimeout: cfg.ServerReadHeaderTimeout,
		WriteTimeout:      cfg.ServerWriteTimeout,
		IdleTimeout:       cfg.ServerIdleTimeout,
	}

	return a, nil
}

func (a *App) Run() error {
	go func() {
		slog.Info("server starting", "addr", a.server.Addr)
		if serveErr := a.server.ListenAndServe(); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			slog.Error("server failed", "error", serveErr)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	shutdownErr := a.server.Shutdown(ctx)

	// Backing services close after in-flight requests drain.
	a.cleanup()

	if shutdownErr != nil {
		return fmt.Errorf("graceful shutdown failed: %w", shutdownErr)
	}

	slog.Info("server stopped")
	return nil
}

func (a *App) onClose(fn func()) {
	a.cleanupFuncs = append(a.cleanupFuncs, fn)
}

// cleanup runs the registered funcs in reverse order.
func (a *App) cleanup() {
	for i := len(a.cleanupFuncs) - 1; i >= 0; i-- {
		a.cleanupFuncs[i]()
	}
	a.cleanupFuncs = nil
}

func logEvents(events <-chan event.Event) {
	for e := range events {
		slog.Info("event", "id", e.ID, "type", e.Type, "payload", e.Payload)
	}
}
