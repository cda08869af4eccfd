package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/prboard/internal/metrics"
	"github.com/hitoshi/prboard/internal/middleware"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	ViewerResolver    middleware.ViewerResolver
	Logger            *slog.Logger
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	CSRFConfig        middleware.CSRFConfig

	// 監視
	HealthChecker   HealthChecker
	MetricsRecorder middleware.RequestRecorder // nilの場合はHTTPメトリクスを記録しない
	MetricsGatherer prometheus.Gatherer        // nilの場合は/metricsを公開しない

	// 認証
	AuthService AuthServiceInterface
	AuthConfig  AuthHandlerConfig

	ProjectService     ProjectServiceInterface
	LeaderboardService LeaderboardServiceInterface
	ProfileService     ProfileServiceInterface
	StatsService       StatsServiceInterface
	UserService        UserServiceInterface
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → SecurityHeaders → CORS → Viewer → Logging → Metrics
//	/api/*: RateLimit(General) → CSRF → RequireViewer | RequireAdmin → RateLimit(Admin)
//
// 閲覧者の解決はLoggingより前に一度だけ行い、アクセスログにuser_idを含める。
// 認証ルート（/auth/*）とヘルスチェックはレート制限とCSRF検証の外に配置する。
func NewRouter(deps *RouterDeps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()

	r.Use(middleware.NewRecoveryMiddleware(logger))
	r.Use(middleware.NewSecurityHeadersMiddleware(deps.CSRFConfig.CookieSecure))
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	r.Use(middleware.NewViewerMiddleware(deps.ViewerResolver, logger))
	r.Use(middleware.NewLoggingMiddleware(logger))
	if deps.MetricsRecorder != nil {
		r.Use(middleware.NewMetricsMiddleware(deps.MetricsRecorder))
	}

	authHandler := NewAuthHandler(deps.AuthService, deps.AuthConfig)
	projectHandler := NewProjectHandler(deps.ProjectService)
	lbHandler := NewLeaderboardHandler(deps.LeaderboardService)
	profileHandler := NewProfileHandler(deps.ProfileService)
	statsHandler := NewStatsHandler(deps.StatsService)
	userHandler := NewUserHandler(deps.UserService, deps.AuthConfig)

	// --- 監視用エンドポイント ---
	r.Get("/health", NewHealthHandler(deps.HealthChecker))
	if deps.MetricsGatherer != nil {
		r.Handle("/metrics", metrics.Handler(deps.MetricsGatherer))
	}

	// --- 認証ルート（OAuthフロー） ---
	r.Route("/auth", func(r chi.Router) {
		r.Get("/github/login", authHandler.Login)
		r.Get("/github/callback", authHandler.Callback)
		r.Post("/logout", authHandler.Logout)
		r.Get("/me", authHandler.Me)
	})

	// --- API ---
	r.Group(func(r chi.Router) {
		if deps.RateLimiter != nil {
			r.Use(deps.RateLimiter.GeneralMiddleware())
		}
		r.Use(middleware.NewCSRFMiddleware(deps.CSRFConfig))

		r.Method(http.MethodGet, "/api/csrf-token", middleware.NewCSRFTokenHandler(deps.CSRFConfig))

		// 公開ルート
		r.Get("/api/stats", statsHandler.Summary)
		r.Get("/api/ranking", lbHandler.GlobalRanking)
		r.Get("/api/users/{userId}", profileHandler.Activity)

		r.Route("/api/projects", func(r chi.Router) {
			r.Get("/", projectHandler.List)
			r.Get("/{id}", projectHandler.Get)
		})

		r.Route("/api/leaderboards", func(r chi.Router) {
			r.Get("/", lbHandler.ListActive)
			r.Get("/next", lbHandler.Next)
			r.Get("/{id}/ranking", lbHandler.Ranking)
		})

		// ログインが必要なルート
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireViewer)

			r.Route("/api/profile", func(r chi.Router) {
				r.Get("/", profileHandler.GetOwn)
				r.Put("/", profileHandler.UpdateOwn)
				r.Get("/contributions", profileHandler.OwnContributions)
			})

			r.Delete("/api/users/me", userHandler.Withdraw)
		})

		// 管理者ルート
		r.Route("/api/admin", func(r chi.Router) {
			r.Use(middleware.RequireAdmin)
			if deps.RateLimiter != nil {
				r.Use(deps.RateLimiter.AdminMiddleware())
			}

			r.Route("/projects", func(r chi.Router) {
				r.Get("/", projectHandler.AdminList)
				r.Post("/", projectHandler.Create)
				r.Delete("/{id}", projectHandler.Delete)
				r.Post("/{id}/refresh", projectHandler.Refresh)
			})

			r.Route("/leaderboards", func(r chi.Router) {
				r.Get("/", lbHandler.AdminList)
				r.Post("/", lbHandler.Create)
				r.Patch("/{id}", lbHandler.SetActive)
				r.Delete("/{id}", lbHandler.Delete)
			})
		})
	})

	return r
}
