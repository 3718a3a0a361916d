package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/homefav/internal/metrics"
	"github.com/hitoshi/homefav/internal/middleware"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	Logger            *slog.Logger
	TokenResolver     middleware.TokenResolver
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	// trueの場合のみプロキシヘッダーからクライアントIPを決定する。
	// falseではRemoteAddrをそのままレート制限のキーに使う
	TrustProxyHeaders bool

	// メトリクス。Metricsがnilの場合は計測も/metricsも無効
	Metrics         *metrics.Collector
	MetricsGatherer prometheus.Gatherer

	// サービス
	UserService     UserServiceInterface
	FavoriteService FavoriteServiceInterface
	HealthChecker   Pinger

	// ルート切り替え
	LegacyRoutesEnabled bool
	DebugRoutesEnabled  bool
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	RequestID → [RealIP] → Logging → Metrics → Recovery → SecurityHeaders → CORS → RateLimit(General)
//
// Bearer認証と書き込み系レート制限はルートごとに適用する。
// /healthと/metricsはレート制限の外に配置する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r.Use(middleware.NewRequestIDMiddleware())
	if deps.TrustProxyHeaders {
		r.Use(chimw.RealIP)
	}
	r.Use(middleware.NewLoggingMiddleware(logger))
	if deps.Metrics != nil {
		r.Use(deps.Metrics.Middleware())
	}
	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))

	userHandler := NewUserHandler(deps.UserService, deps.LegacyRoutesEnabled)
	favoriteHandler := NewFavoriteHandler(deps.FavoriteService)

	requireToken := middleware.NewBearerAuthMiddleware(deps.TokenResolver)
	optionalToken := middleware.NewOptionalBearerAuthMiddleware(deps.TokenResolver)
	writeLimit := deps.RateLimiter.WriteMiddleware()

	// --- 運用系ルート ---
	r.Get("/health", NewHealthHandler(deps.HealthChecker))
	if deps.Metrics != nil && deps.MetricsGatherer != nil {
		r.Method(http.MethodGet, "/metrics", metrics.Handler(deps.MetricsGatherer))
	}

	// --- API ---
	// ミドルウェアスタック: RateLimit(General) → [Bearer] → [RateLimit(Write)]
	r.Group(func(r chi.Router) {
		r.Use(deps.RateLimiter.GeneralMiddleware())

		r.With(optionalToken, writeLimit).Post("/user", userHandler.Register)
		r.With(requireToken).Get("/favorites", favoriteHandler.ListMine)
		r.With(requireToken, writeLimit).Post("/favorite", favoriteHandler.AddMine)

		// トークンなしでユーザーを指定する旧来のルート
		if deps.LegacyRoutesEnabled {
			r.Get("/user/{id}", favoriteHandler.ListByIdentifier)
			r.With(writeLimit).Post("/favorite/{user_id}", favoriteHandler.AddForUser)
		}

		if deps.DebugRoutesEnabled {
			r.Get("/houses", favoriteHandler.ListHouses)
		}
	})

	return r
}
