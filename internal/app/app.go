// Package app はアプリケーションの初期化と起動モードの切り替えを提供する。
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/hitoshi/homefav/internal/auth"
	"github.com/hitoshi/homefav/internal/config"
	"github.com/hitoshi/homefav/internal/database"
	"github.com/hitoshi/homefav/internal/favorite"
	"github.com/hitoshi/homefav/internal/handler"
	"github.com/hitoshi/homefav/internal/logger"
	"github.com/hitoshi/homefav/internal/metrics"
	"github.com/hitoshi/homefav/internal/middleware"
	"github.com/hitoshi/homefav/internal/repository"
	"github.com/hitoshi/homefav/internal/security"
	"github.com/hitoshi/homefav/internal/user"
)

// shutdownTimeout はグレースフルシャットダウンの待ち時間。
const shutdownTimeout = 30 * time.Second

// Init はアプリケーションの初期化を行う。
// .envと環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. 設定読み込み前にログを使えるようにする
	logger.SetupDefault(w, slog.LevelInfo)

	// 2. .envと環境変数から設定を読み込む
	if err := config.LoadDotEnv(); err != nil {
		return nil, fmt.Errorf("failed to load env file: %w", err)
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// 3. 設定されたログレベルで再構成する
	logger.SetupDefault(w, cfg.LogLevel)

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd := ParseCommand(args)

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "8080"
		}
		return runHealthcheck(fmt.Sprintf("http://localhost:%s/health", port))
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
		slog.String("auth_mode", cfg.AuthMode),
	)

	switch cmd {
	case CommandMigrate:
		return runMigrate(cfg)
	default:
		return runServe(cfg)
	}
}

// Server はルーターと、停止時に解放が必要なバックグラウンド資源をまとめたもの。
type Server struct {
	Handler http.Handler

	rateLimiter *middleware.RateLimiter
}

// Close はレートリミッターのクリーンアップを停止する。
func (s *Server) Close() {
	s.rateLimiter.Stop()
}

// NewServer は開いているDBから全依存関係をワイヤリングし、HTTPハンドラーを構築する。
// regがnilの場合はメトリクス用に新しいレジストリを生成する。
func NewServer(cfg *config.Config, db *sql.DB, reg *prometheus.Registry) (*Server, error) {
	// 1. トークン解決
	resolver, err := auth.NewResolver(cfg.AuthConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to create token resolver: %w", err)
	}

	// 2. リポジトリの初期化
	userRepo := repository.NewSQLUserRepo(db)
	houseRepo := repository.NewSQLHouseRepo(db)
	favoriteRepo := repository.NewSQLFavoriteRepo(db)

	// 3. メトリクス
	var collector *metrics.Collector
	if cfg.MetricsEnabled {
		if reg == nil {
			reg = prometheus.NewRegistry()
			reg.MustRegister(
				collectors.NewGoCollector(),
				collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			)
		}
		collector = metrics.NewCollector(reg)
	}

	// 4. ドメインサービスの初期化
	detector := security.NewMarkupDetector()
	var (
		userRecorder     user.Recorder
		favoriteRecorder favorite.Recorder
	)
	if collector != nil {
		userRecorder = collector
		favoriteRecorder = collector
	}
	userService := user.NewService(userRepo, detector, userRecorder)
	favoriteService := favorite.NewService(userService, houseRepo, favoriteRepo, detector, favoriteRecorder)

	// 5. ルーターの構築（req/min単位の設定をreq/secに変換する）
	rateLimiter := middleware.NewRateLimiter(middleware.NewRateLimiterConfig(cfg.RateLimitGeneral, cfg.RateLimitWrite))

	deps := &handler.RouterDeps{
		Logger:              slog.Default(),
		TokenResolver:       resolver,
		CORSAllowedOrigin:   cfg.CORSAllowedOrigin,
		RateLimiter:         rateLimiter,
		TrustProxyHeaders:   cfg.TrustProxyHeaders,
		Metrics:             collector,
		UserService:         userService,
		FavoriteService:     favoriteService,
		HealthChecker:       db,
		LegacyRoutesEnabled: cfg.LegacyRoutesEnabled,
		DebugRoutesEnabled:  cfg.DebugRoutesEnabled,
	}
	if collector != nil {
		deps.MetricsGatherer = reg
	}

	return &Server{
		Handler:     handler.NewRouter(deps),
		rateLimiter: rateLimiter,
	}, nil
}

// openDatabase はDB接続を開き、プール設定と疎通確認を行う。
// AUTO_MIGRATEが有効な場合はマイグレーションも適用する。
func openDatabase(ctx context.Context, cfg *config.Config) (*sql.DB, error) {
	db, dialect, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	database.ConfigurePool(db, dialect, database.PoolConfig{
		MaxOpenConns:    cfg.DBMaxOpenConns,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		ConnMaxLifetime: cfg.DBConnMaxLife,
	})

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Info("database connection established",
		slog.String("dialect", string(dialect)),
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	if cfg.AutoMigrate {
		if err := database.Migrate(ctx, db, dialect); err != nil {
			db.Close()
			return nil, fmt.Errorf("auto migration failed: %w", err)
		}
		slog.Info("database migrations applied")
	}

	return db, nil
}

// runServe はAPIサーバーモードで起動する。
// DB接続を開き、全依存関係をワイヤリングし、HTTPサーバーを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := openDatabase(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	srv, err := NewServer(cfg, db, nil)
	if err != nil {
		return err
	}
	defer srv.Close()

	server := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           srv.Handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("API server starting",
			slog.String("addr", server.Addr),
			slog.Bool("legacy_routes", cfg.LegacyRoutesEnabled),
			slog.Bool("debug_routes", cfg.DebugRoutesEnabled),
			slog.Bool("trust_proxy_headers", cfg.TrustProxyHeaders),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server listen error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("shutting down API server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("API server stopped gracefully")
	return nil
}

// runMigrate はデータベースマイグレーションを実行する。
// すべての未適用マイグレーションを順番に適用する。
func runMigrate(cfg *config.Config) error {
	slog.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("database migrations completed successfully")
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(healthURL string) error {
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(healthURL)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// maskDatabaseURL はデータベースURLのパスワードをマスクする。
func maskDatabaseURL(databaseURL string) string {
	u, err := url.Parse(databaseURL)
	if err != nil {
		return "***"
	}
	return u.Redacted()
}
