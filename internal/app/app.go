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
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/time/rate"

	"github.com/hitoshi/likereader/internal/api"
	"github.com/hitoshi/likereader/internal/config"
	"github.com/hitoshi/likereader/internal/database"
	"github.com/hitoshi/likereader/internal/handler"
	"github.com/hitoshi/likereader/internal/logger"
	"github.com/hitoshi/likereader/internal/metrics"
	"github.com/hitoshi/likereader/internal/middleware"
	"github.com/hitoshi/likereader/internal/reader"
	"github.com/hitoshi/likereader/internal/repository"
	"github.com/hitoshi/likereader/internal/security"
	"github.com/hitoshi/likereader/internal/worker/persist"
	"github.com/hitoshi/likereader/internal/worker/refresh"
)

// dbPingTimeout は起動時の永続化先（PostgreSQL/Redis）への疎通確認のタイムアウト。
const dbPingTimeout = 5 * time.Second

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

	// 3. 設定されたログレベルで再初期化する
	level, err := logger.ParseLevel(cfg.LogLevel)
	if err != nil {
		slog.Warn("invalid LOG_LEVEL, falling back to info", slog.String("log_level", cfg.LogLevel))
	}
	logger.SetupDefault(w, level)

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
		return runHealthcheck(port)
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
		slog.Bool("persistence", cfg.PersistenceEnabled()),
	)

	switch cmd {
	case CommandMigrate:
		return runMigrate(cfg)
	case CommandSync:
		return runSync(cfg)
	default:
		return runServe(cfg)
	}
}

// components はサブコマンド間で共通の依存関係をまとめた構造体。
type components struct {
	registry  *prometheus.Registry
	collector *metrics.Collector
	store     *reader.Store
	scheduler *refresh.Scheduler

	// 永続化が無効な場合はnil
	db        *sql.DB
	redis     *repository.RedisSnapshotRepo
	health    handler.HealthChecker
	snapshots *persist.Job
}

// close はDB接続と購読を解放する。
func (c *components) close() {
	if c.snapshots != nil {
		c.snapshots.Close()
	}
	if c.db != nil {
		c.db.Close()
	}
	if c.redis != nil {
		c.redis.Close()
	}
}

// buildComponents はリモートAPIクライアント、リーダーストア、ワーカーを組み立てる。
// DATABASE_URLまたはREDIS_URLが設定されている場合は接続し、スナップショット永続化を有効にする。
func buildComponents(cfg *config.Config) (*components, error) {
	log := slog.Default()

	// 1. メトリクス
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	collector := metrics.NewCollector(registry)

	// 2. セキュリティサービスの初期化
	guard := security.NewURLGuard(cfg.APIAllowPrivateHosts)
	sanitizer := security.NewTextSanitizer()
	httpClient := guard.NewSafeClient(cfg.APITimeout)

	// 3. リモートAPIクライアントの初期化
	apiConfig := func(baseURL string) api.Config {
		return api.Config{
			BaseURL:   baseURL,
			UserAgent: cfg.APIUserAgent,
			DeviceID:  cfg.DeviceID,
			RateLimit: rate.Limit(cfg.APIRateLimit),
			RateBurst: cfg.APIRateBurst,
			Recorder:  collector,
		}
	}
	likerLand := api.NewLikerLandClient(httpClient, log, apiConfig(cfg.LikerLandAPIURL))
	likeCo := api.NewLikeCoClient(httpClient, log, apiConfig(cfg.LikeCoAPIURL))

	// 4. リーダーストアとスケジューラ
	store := reader.NewStore(reader.Deps{
		LikerLand: likerLand,
		LikeCo:    likeCo,
		Sanitizer: sanitizer,
		Validator: guard,
		Recorder:  collector,
		Logger:    log,
	})

	c := &components{
		registry:  registry,
		collector: collector,
		store:     store,
		scheduler: refresh.NewScheduler(store, collector, log),
	}

	if !cfg.PersistenceEnabled() {
		slog.Info("DATABASE_URL and REDIS_URL are not set, snapshot persistence is disabled")
		return c, nil
	}

	// 5. スナップショット永続化（PostgreSQLを優先し、なければRedisを使う）
	var repo repository.SnapshotRepository
	if cfg.DatabaseURL != "" {
		db, err := database.Open(cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
		if err := database.Ping(context.Background(), db, dbPingTimeout); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}

		slog.Info("database connection established",
			slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
		)
		c.db = db
		c.health = db
		repo = repository.NewPostgresSnapshotRepo(db)
	} else {
		redisRepo, err := repository.NewRedisSnapshotRepo(repository.RedisConfig{
			URL: cfg.RedisURL,
			TTL: cfg.SnapshotTTL,
		})
		if err != nil {
			return nil, err
		}
		ctx, cancel := context.WithTimeout(context.Background(), dbPingTimeout)
		defer cancel()
		if err := redisRepo.PingContext(ctx); err != nil {
			redisRepo.Close()
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}

		slog.Info("redis connection established",
			slog.String("redis_url", maskDatabaseURL(cfg.RedisURL)),
		)
		c.redis = redisRepo
		c.health = redisRepo
		repo = redisRepo
	}

	c.snapshots = persist.NewJob(store, repo, collector, log)
	return c, nil
}

// restore は保存済みのスナップショットを復元する。失敗しても起動は継続する。
func (c *components) restore(ctx context.Context) {
	if c.snapshots == nil {
		return
	}
	if err := c.snapshots.Restore(ctx); err != nil {
		slog.Warn("failed to restore snapshot, starting with an empty cache",
			slog.String("error", err.Error()),
		)
	}
}

// runServe はAPIサーバーモードで起動する。
// 全依存関係をワイヤリングし、定期更新とスナップショット保存を開始してHTTPサーバーを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	c, err := buildComponents(cfg)
	if err != nil {
		return err
	}
	defer c.close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	c.restore(ctx)

	// 1. ルーターの構築
	rateLimiter := middleware.NewRateLimiter(
		middleware.NewRateLimiterConfig(cfg.RateLimitGeneral, cfg.MutationRatePerMin),
	)
	defer rateLimiter.Stop()

	deps := &handler.RouterDeps{
		Logger:            slog.Default(),
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		RateLimiter:       rateLimiter,

		Reader:   c.store,
		Contents: c.store,
		Creators: c.store,
		Session:  c.store,

		MetricsHandler: metrics.Handler(c.registry),
	}
	if c.health != nil {
		deps.HealthChecker = c.health
	}
	if c.snapshots != nil {
		deps.Snapshots = c.snapshots
	}

	router := handler.NewRouter(deps)

	// 2. バックグラウンドジョブの起動
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		c.scheduler.Start(ctx, cfg.RefreshInterval)
	}()
	if c.snapshots != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.snapshots.Start(ctx, cfg.SnapshotInterval)
		}()
	}

	// 3. HTTPサーバーの起動
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.APITimeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// グレースフルシャットダウンのためのシグナルハンドリング
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(stop)

	serverErr := make(chan error, 1)
	go func() {
		slog.Info("API server starting",
			slog.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	var listenErr error
	select {
	case <-stop:
		slog.Info("shutting down API server...")
	case listenErr = <-serverErr:
		slog.Error("server listen error", slog.String("error", listenErr.Error()))
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	// ワーカーを停止し、未保存のスナップショットを書き出すまで待つ
	cancel()
	wg.Wait()

	if listenErr != nil {
		return fmt.Errorf("server listen failed: %w", listenErr)
	}

	slog.Info("API server stopped gracefully")
	return nil
}

// runSync は3つの一覧を1回だけ取得し直し、件数をログに出力して終了する。
// 永続化が有効な場合は復元してから取得し、結果を保存する。
func runSync(cfg *config.Config) error {
	c, err := buildComponents(cfg)
	if err != nil {
		return err
	}
	defer c.close()

	ctx := context.Background()
	c.restore(ctx)

	summary, syncErr := c.scheduler.RunOnce(ctx)

	results := make([]any, 0, len(summary.Results))
	for name, kind := range summary.Results {
		results = append(results, slog.String(name, string(kind)))
	}
	slog.Info("sync completed",
		slog.Group("results", results...),
		slog.Int("contents", summary.Contents),
		slog.Int("creators", summary.Creators),
		slog.Int("followed", len(c.store.FollowedList())),
		slog.Int("bookmarks", len(c.store.BookmarkList())),
	)

	if c.snapshots != nil {
		if err := c.snapshots.SaveNow(ctx); err != nil {
			return err
		}
	}

	if syncErr != nil {
		return fmt.Errorf("sync failed: %w", syncErr)
	}
	return nil
}

// runMigrate はデータベースマイグレーションを実行する。
// すべての未適用マイグレーションを順番に適用する。
func runMigrate(cfg *config.Config) error {
	if cfg.DatabaseURL == "" {
		return errors.New("DATABASE_URL is required for migrate")
	}

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
func runHealthcheck(port string) error {
	endpoint := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(endpoint)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// maskDatabaseURL はデータベースURLのパスワードとクエリをマスクする。
func maskDatabaseURL(databaseURL string) string {
	u, err := url.Parse(databaseURL)
	if err != nil || u.Host == "" {
		return "***"
	}
	u.RawQuery = ""
	return u.Redacted()
}
