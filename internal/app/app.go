package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"

	"github.com/hitoshi/prboard/internal/auth"
	"github.com/hitoshi/prboard/internal/config"
	"github.com/hitoshi/prboard/internal/countdown"
	"github.com/hitoshi/prboard/internal/database"
	"github.com/hitoshi/prboard/internal/githubapi"
	"github.com/hitoshi/prboard/internal/handler"
	"github.com/hitoshi/prboard/internal/leaderboard"
	"github.com/hitoshi/prboard/internal/logger"
	"github.com/hitoshi/prboard/internal/metrics"
	"github.com/hitoshi/prboard/internal/middleware"
	"github.com/hitoshi/prboard/internal/model"
	"github.com/hitoshi/prboard/internal/profile"
	"github.com/hitoshi/prboard/internal/project"
	"github.com/hitoshi/prboard/internal/repository"
	"github.com/hitoshi/prboard/internal/security"
	"github.com/hitoshi/prboard/internal/stats"
	"github.com/hitoshi/prboard/internal/user"
	"github.com/hitoshi/prboard/internal/worker/cleanup"
	fetchpkg "github.com/hitoshi/prboard/internal/worker/fetch"
)

// Init はアプリケーションの初期化を行う。
// 環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w, slog.LevelInfo)

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// 3. LOG_LEVEL を反映してロガーを再構築する
	logger.SetupDefault(w, cfg.LogLevel)

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd, err := ParseCommand(args)
	if err != nil {
		return err
	}

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "8080"
		}
		return runHealthcheck(port)
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
		slog.String("base_url", cfg.BaseURL),
	)

	switch cmd {
	case CommandServe:
		return runServe(cfg)
	case CommandWorker:
		return runWorker(cfg)
	case CommandMigrate:
		return runMigrate(cfg)
	case CommandCountdown:
		return runCountdown(w, cfg)
	default:
		return fmt.Errorf("unsupported command %q", cmd)
	}
}

// runServe はAPIサーバーモードで起動する。
// DB接続を開き、全依存関係をワイヤリングし、HTTPサーバーを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	// 1. DB接続
	db, err := database.Connect(context.Background(), cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()

	slog.Info("database connection established")

	// 2. リポジトリの初期化
	userRepo := repository.NewPostgresUserRepo(db)
	identRepo := repository.NewPostgresIdentityRepo(db)
	sessionRepo := repository.NewPostgresSessionRepo(db)
	profileRepo := repository.NewPostgresProfileRepo(db)
	roleRepo := repository.NewPostgresUserRoleRepo(db)
	projectRepo := repository.NewPostgresProjectRepo(db)
	leaderboardRepo := repository.NewPostgresLeaderboardRepo(db)
	contribRepo := repository.NewPostgresContributionRepo(db)

	// 3. セキュリティサービスの初期化
	sanitizer := security.NewTextSanitizer()

	// 4. ドメインサービスの初期化
	oauthProvider, err := auth.NewGitHubOAuthProvider(auth.GitHubOAuthConfig{
		ClientID:     cfg.GitHubClientID,
		ClientSecret: cfg.GitHubClientSecret,
		RedirectURL:  cfg.GitHubRedirectURL,
	})
	if err != nil {
		return fmt.Errorf("failed to create oauth provider: %w", err)
	}
	authService := auth.NewService(
		oauthProvider, userRepo, identRepo, sessionRepo, profileRepo, roleRepo,
		auth.ServiceConfig{
			SessionMaxAge:     cfg.SessionMaxAge,
			AdminGitHubLogins: cfg.AdminGitHubLogins,
		},
	)

	// GITHUB_TOKEN 未設定時はメタデータ取得を無効化する
	var metadataFetcher project.MetadataFetcher
	if cfg.GitHubToken != "" {
		metadataFetcher = githubapi.NewClient(cfg.GitHubToken, slog.Default())
	}

	projectService := project.NewService(projectRepo, metadataFetcher, sanitizer, slog.Default())
	leaderboardService := leaderboard.NewService(leaderboardRepo, contribRepo, profileRepo, sanitizer, slog.Default())
	profileService := profile.NewService(profileRepo, contribRepo, projectRepo, sanitizer, slog.Default())
	statsService := stats.NewService(projectRepo, profileRepo, contribRepo)
	userService := user.NewService(userRepo, sessionRepo)

	// 5. メトリクスの初期化
	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	// 6. ルーターの構築
	// configのレート制限はreq/min単位なのでreq/secに変換する
	rateLimiterCfg := middleware.DefaultRateLimiterConfig()
	if cfg.RateLimitGeneral > 0 {
		rateLimiterCfg.GeneralRate = rate.Limit(float64(cfg.RateLimitGeneral) / 60.0)
		rateLimiterCfg.GeneralBurst = cfg.RateLimitGeneral
	}
	if cfg.RateLimitAdmin > 0 {
		rateLimiterCfg.AdminRate = rate.Limit(float64(cfg.RateLimitAdmin) / 60.0)
		rateLimiterCfg.AdminBurst = cfg.RateLimitAdmin
	}
	rateLimiter := middleware.NewRateLimiter(rateLimiterCfg)
	defer rateLimiter.Stop()

	deps := &handler.RouterDeps{
		ViewerResolver:    authService,
		Logger:            slog.Default(),
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		RateLimiter:       rateLimiter,
		CSRFConfig: middleware.CSRFConfig{
			CookieSecure: cfg.CookieSecure,
			CookieDomain: cfg.CookieDomain,
		},
		HealthChecker:   db,
		MetricsRecorder: collector,
		MetricsGatherer: registry,

		AuthService: authService,
		AuthConfig: handler.AuthHandlerConfig{
			BaseURL:       cfg.BaseURL,
			CookieDomain:  cfg.CookieDomain,
			CookieSecure:  cfg.CookieSecure,
			SessionMaxAge: cfg.SessionMaxAge,
		},

		ProjectService:     projectService,
		LeaderboardService: leaderboardService,
		ProfileService:     profileService,
		StatsService:       statsService,
		UserService:        userService,
	}

	router := handler.NewRouter(deps)

	// 7. HTTPサーバーの起動
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// グレースフルシャットダウンのためのシグナルハンドリング
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("API server starting",
			slog.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server listen error", slog.String("error", err.Error()))
		}
	}()

	<-stop
	slog.Info("shutting down API server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("API server stopped gracefully")
	return nil
}

// runWorker はワーカーモードで起動する。
// DB接続を開き、GitHub同期スケジューラとクリーンアップジョブを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとシャットダウンする。
func runWorker(cfg *config.Config) error {
	// 1. DB接続
	db, err := database.Connect(context.Background(), cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()

	slog.Info("database connection established (worker)")

	if cfg.GitHubToken == "" {
		slog.Warn("GITHUB_TOKEN is not set, GitHub API rate limit is severely restricted")
	}

	// 2. リポジトリの初期化
	projectRepo := repository.NewPostgresProjectRepo(db)
	profileRepo := repository.NewPostgresProfileRepo(db)
	leaderboardRepo := repository.NewPostgresLeaderboardRepo(db)
	contribRepo := repository.NewPostgresContributionRepo(db)

	// 3. メトリクスの初期化
	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	// 4. 同期処理の初期化
	githubClient := githubapi.NewClient(cfg.GitHubToken, slog.Default())
	syncer := fetchpkg.NewSyncer(
		githubClient, projectRepo, profileRepo, leaderboardRepo, contribRepo,
		security.NewTextSanitizer(), collector, slog.Default(), cfg.SyncTimeout,
	)
	scheduler := fetchpkg.NewScheduler(
		projectRepo, syncer, slog.Default(), cfg.SyncMaxConcurrent,
	)

	// 5. クリーンアップジョブの初期化
	cleanupJob := cleanup.NewCleanupJob(db, slog.Default())

	// グレースフルシャットダウンのためのシグナルハンドリング
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-stop
		slog.Info("shutting down worker...")
		cancel()
	}()

	// 6. /metrics の公開
	if cfg.MetricsPort != "" {
		metricsServer := &http.Server{
			Addr:              ":" + cfg.MetricsPort,
			Handler:           metrics.SetupMetricsRoute(registry),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				slog.Error("metrics server error", slog.String("error", err.Error()))
			}
		}()
		defer func() {
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer shutdownCancel()
			_ = metricsServer.Shutdown(shutdownCtx)
		}()
	}

	slog.Info("worker starting",
		slog.Duration("sync_interval", cfg.SyncInterval),
		slog.Int("max_concurrent", cfg.SyncMaxConcurrent),
		slog.Duration("cleanup_interval", cfg.CleanupInterval),
	)

	go cleanupJob.Start(ctx, cfg.CleanupInterval)

	// 同期スケジューラをメインgoroutineで実行（ブロッキング）
	scheduler.Start(ctx, cfg.SyncInterval)

	slog.Info("worker stopped gracefully")
	return nil
}

// runMigrate はデータベースマイグレーションを実行する。
// すべての未適用マイグレーションを順番に適用する。
func runMigrate(cfg *config.Config) error {
	slog.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	version, err := database.RunMigrations(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("database migrations completed successfully",
		slog.Uint64("version", uint64(version)),
	)
	return nil
}

// runCountdown は次に終了する公開リーダーボードまでの残り時間を1秒ごとに表示する。
// 終了日時に到達するか、SIGINT/SIGTERMを受信すると終了する。
func runCountdown(w io.Writer, cfg *config.Config) error {
	db, err := database.Connect(context.Background(), cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	finder := repository.NewPostgresLeaderboardRepo(db)
	return printCountdown(ctx, w, finder, time.Now, countdown.DefaultInterval)
}

// nextEndingFinder は次に終了するリーダーボードを検索するインターフェース。
type nextEndingFinder interface {
	FindNextEnding(ctx context.Context, now time.Time) (*model.Leaderboard, error)
}

func printCountdown(ctx context.Context, w io.Writer, finder nextEndingFinder, now func() time.Time, interval time.Duration) error {
	lb, err := finder.FindNextEnding(ctx, now())
	if err != nil {
		return fmt.Errorf("failed to find next leaderboard: %w", err)
	}
	if lb == nil {
		fmt.Fprintln(w, "no active leaderboard")
		return nil
	}

	fmt.Fprintf(w, "%s ends at %s\n", lb.Name, lb.EndDate.UTC().Format(time.RFC3339))
	err = countdown.Run(ctx, now, lb.EndDate, interval, func(r countdown.Remaining) {
		fmt.Fprintln(w, r.String())
	})
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	url := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// maskDatabaseURL はデータベースURLの認証情報をマスクする。
func maskDatabaseURL(url string) string {
	if len(url) > 20 {
		return url[:12] + "***@..."
	}
	return "***"
}
