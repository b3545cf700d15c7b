package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/hitoshi/citary/internal/middleware"
	"github.com/hitoshi/citary/internal/model"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	Authenticator     middleware.Authenticator
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	Logger            *slog.Logger

	// 監視
	HealthChecker  HealthChecker
	Metrics        MetricsRecorder
	MetricsHandler http.Handler

	// 認証
	AuthService AuthServiceInterface
	AuthConfig  AuthHandlerConfig

	// ロール
	RoleService RoleServiceInterface
}

// MetricsRecorder はルーターが利用するメトリクスの記録先。
type MetricsRecorder interface {
	AuthMetrics
	middleware.HTTPMetricsRecorder
}

// roleAdmins はロール管理APIを利用できるロール。
var roleAdmins = []string{model.RoleCodeSuperAdmin, model.RoleCodeAdmin}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	RequestID → Recovery → RealIP → Logging → Metrics → SecurityHeaders → CORS
//	  /auth/*（公開）:   RateLimit(Auth)
//	  /auth/renew, /auth/me: BearerAuth
//	  /api/*:           BearerAuth → RateLimit(API) → RequireRole
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r.Use(chimiddleware.RequestID)
	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.NewLoggingMiddleware(logger))
	if deps.Metrics != nil {
		r.Use(middleware.NewMetricsMiddleware(deps.Metrics))
	}
	r.Use(middleware.NewSecurityHeadersMiddleware(deps.AuthConfig.CookieSecure))
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))

	var authMetrics AuthMetrics
	if deps.Metrics != nil {
		authMetrics = deps.Metrics
	}
	authHandler := NewAuthHandler(deps.AuthService, authMetrics, deps.AuthConfig)
	roleHandler := NewRoleHandler(deps.RoleService)
	bearer := middleware.NewBearerAuthMiddleware(deps.Authenticator)

	// --- 監視 ---
	r.Get("/health", NewHealthHandler(deps.HealthChecker))
	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	}

	// --- 認証 ---
	r.Route("/auth", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(deps.RateLimiter.AuthMiddleware())

			r.Get("/google/login", authHandler.GoogleRedirect)
			r.Get("/google/callback", authHandler.GoogleCallback)
			r.Post("/google", authHandler.GoogleLogin)
			r.Post("/signup", authHandler.Signup)
			r.Post("/login", authHandler.Login)
			r.Post("/check-token", authHandler.CheckToken)
			r.Post("/verify-email", authHandler.VerifyEmail)
		})

		r.Group(func(r chi.Router) {
			r.Use(bearer)
			r.Get("/renew", authHandler.Renew)
			r.Get("/me", authHandler.Me)
		})
	})

	// --- 認証が必要なAPI ---
	r.Route("/api", func(r chi.Router) {
		r.Use(bearer)
		r.Use(deps.RateLimiter.APIMiddleware())

		r.Route("/roles", func(r chi.Router) {
			r.Use(middleware.NewRequireRoleMiddleware(roleAdmins...))

			r.Get("/", roleHandler.List)
			r.Post("/", roleHandler.Create)
			r.Get("/by-ids", roleHandler.GetByIDs)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", roleHandler.Get)
				r.Put("/", roleHandler.Update)
				r.Delete("/", roleHandler.Delete)
			})
		})
	})

	return r
}
