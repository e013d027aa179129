package router

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"fraccional/internal/auth"
	"fraccional/internal/config"
	"fraccional/internal/handler"
	"fraccional/internal/middleware"
)

// HealthChecker reports whether a backing service is reachable.
type HealthChecker interface {
	Health(ctx context.Context) error
}

type Handlers struct {
	Auth       *handler.AuthHandler
	Profile    *handler.ProfileHandler
	Plans      *handler.PlanHandler
	Onboarding *handler.OnboardingHandler
	Pages      *handler.PageHandler
}

func New(cfg *config.Config, gateway *auth.Gateway, handlers Handlers, health HealthChecker) http.Handler {
	r := chi.NewRouter()
	rateLimitMiddleware := middleware.NewRateLimitMiddleware(cfg.RateLimitRPM, cfg.AuthRateLimitRPM)

	guardCfg := middleware.DefaultGuardConfig()
	guardCfg.AllowLoginBypass = cfg.GuardLoginBypass
	guard := middleware.NewGuard(guardCfg)

	requireSession := middleware.RequireSession(gateway)

	r.Use(middleware.Recovery)
	r.Use(middleware.Logging)
	r.Use(middleware.CORS(cfg.CORSOrigins))
	r.Use(middleware.SecurityHeaders)
	r.Use(rateLimitMiddleware.Handler)

	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		if health != nil {
			ctx, cancel := context.WithTimeout(req.Context(), 2*time.Second)
			defer cancel()
			if err := health.Health(ctx); err != nil {
				slog.Warn("health check failed", "error", err)
				http.Error(w, "unavailable", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Route("/api/v1", func(api chi.Router) {
		api.Use(middleware.Timeout(cfg.RequestTimeout))

		api.Route("/auth", func(a chi.Router) {
			a.Post("/signup", handlers.Auth.SignUp)
			a.Post("/login", handlers.Auth.Login)
			a.Post("/logout", handlers.Auth.Logout)
			a.Post("/refresh", handlers.Auth.Refresh)
			a.Get("/session", handlers.Auth.Session)
			a.Post("/password/forgot", handlers.Auth.ForgotPassword)
			a.With(requireSession).Post("/password/reset", handlers.Auth.ResetPassword)
			a.With(requireSession).Post("/password/change", handlers.Auth.ChangePassword)
			a.Post("/verify", handlers.Auth.Verify)
			a.Post("/verify/resend", handlers.Auth.ResendVerification)
		})

		api.With(requireSession).Get("/profile", handlers.Profile.Get)
		api.With(requireSession).Patch("/profile", handlers.Profile.Update)
		api.With(requireSession).Delete("/profile", handlers.Profile.Delete)

		api.Get("/plans", handlers.Plans.List)
		api.Post("/onboarding/condominiums", handlers.Onboarding.CreateCondominium)
	})

	r.Group(func(pages chi.Router) {
		pages.Use(guard.Handler)

		p := handlers.Pages
		pages.Get("/", p.Landing)

		pages.Get("/auth/login", p.LoginForm)
		pages.Post("/auth/login", p.Login)
		pages.Get("/auth/signup", p.SignUpForm)
		pages.Post("/auth/signup", p.SignUp)
		pages.Post("/auth/logout", p.Logout)
		pages.Get("/auth/forgot-password", p.ForgotPasswordForm)
		pages.Post("/auth/forgot-password", p.ForgotPassword)
		pages.Get("/auth/reset-password", p.ResetPasswordForm)
		pages.Post("/auth/reset-password", p.ResetPassword)
		pages.Get("/auth/verify-email", p.VerifyEmail)
		pages.Post("/auth/verify-email", p.ResendVerification)

		pages.Get("/dashboard", p.Dashboard)
		pages.Get("/onboarding", p.OnboardingForm)
		pages.Post("/onboarding", p.Onboarding)
		pages.Get("/profile", p.Profile)
		pages.Post("/profile", p.UpdateProfile)
		pages.Post("/profile/password", p.ChangePassword)
		pages.Get("/settings", p.Settings)
	})

	return r
}
