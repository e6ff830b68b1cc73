/*
Package handler provides the HTTP handlers and routing setup for the development backend.

The routes reproduce the game backend's REST surface so the client gateway can be
exercised end to end without the real server. This file defines the Router, applying
CORS, request ids, logging, panic recovery and IP-based rate limiting on the
unauthenticated auth routes.
*/
package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"golang.org/x/time/rate"

	"mmoclient/internal/configs"
	"mmoclient/internal/pkg/auth/jwt"
	"mmoclient/internal/pkg/limiter"
	"mmoclient/internal/pkg/logx"
)

const (
	// AuthRate is the sustained per-IP rate, in requests per second, on /api/auth routes.
	AuthRate = 1
	// AuthBurst is how many /api/auth requests an IP may make before AuthRate applies.
	AuthBurst = 10
)

// Router sets up the main HTTP routing table (chi.Router) for the backend.
// The rate limiter's cleanup goroutine stops when ctx is done.
func Router(ctx context.Context, deps *AppDeps) http.Handler {
	authLimiter := limiter.NewIPRateLimiter(ctx, rate.Limit(AuthRate), AuthBurst)

	r := chi.NewRouter()

	corsAllowedOrigins := []string{}
	if deps.Config.Environment == configs.EnvDevelopment {
		corsAllowedOrigins = []string{"*"}
	} else if len(deps.Config.AllowedOrigins) > 0 {
		corsAllowedOrigins = deps.Config.AllowedOrigins
	}

	c := cors.New(cors.Options{
		AllowedOrigins:   corsAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           300,
	})
	r.Use(c.Handler)

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logx.RequestLogger())
	r.Use(middleware.Recoverer)

	r.Get("/health", HandleHealth(deps))
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{}))

	r.Route("/api", func(api chi.Router) {
		api.Route("/auth", func(auth chi.Router) {
			auth.With(authLimiter.Middleware).Post("/register", HandleRegister(deps))
			auth.With(authLimiter.Middleware).Post("/login", HandleLogin(deps))
			auth.With(jwt.RequireIdentity(deps.Config.JWTSecret)).Get("/verify", HandleVerify(deps))
		})

		api.Route("/characters", func(chars chi.Router) {
			chars.Use(jwt.RequireIdentity(deps.Config.JWTSecret))

			chars.Get("/", HandleListCharacters(deps))
			chars.Post("/", HandleCreateCharacter(deps))
			chars.Get("/{id}", HandleGetCharacter(deps))
			chars.Put("/{id}/position", HandleSavePosition(deps))
		})
	})

	return r
}
