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
	"github.com/redis/go-redis/v9"

	"github.com/mayadivina2014/pagina-carabinero-chile-urbano.io/internal/auth"
	"github.com/mayadivina2014/pagina-carabinero-chile-urbano.io/internal/authz"
	"github.com/mayadivina2014/pagina-carabinero-chile-urbano.io/internal/config"
	"github.com/mayadivina2014/pagina-carabinero-chile-urbano.io/internal/database"
	"github.com/mayadivina2014/pagina-carabinero-chile-urbano.io/internal/handler"
	"github.com/mayadivina2014/pagina-carabinero-chile-urbano.io/internal/logger"
	"github.com/mayadivina2014/pagina-carabinero-chile-urbano.io/internal/metrics"
	"github.com/mayadivina2014/pagina-carabinero-chile-urbano.io/internal/middleware"
	"github.com/mayadivina2014/pagina-carabinero-chile-urbano.io/internal/registry"
	"github.com/mayadivina2014/pagina-carabinero-chile-urbano.io/internal/repository"
	"github.com/mayadivina2014/pagina-carabinero-chile-urbano.io/internal/security"
	"github.com/mayadivina2014/pagina-carabinero-chile-urbano.io/internal/worker/cleanup"
)

// defaultHealthcheckPort はSERVER_PORT未設定時のヘルスチェック先ポート。
const defaultHealthcheckPort = "3000"

// Init はアプリケーションの初期化を行う。
// 環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 設定読み込み前にログを使えるようにする
	logger.SetupDefault(w, config.ParseLogLevel(os.Getenv("LOG_LEVEL")))

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd := ParseCommand(args)

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = defaultHealthcheckPort
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
		slog.String("session_store", cfg.SessionStore),
	)

	switch cmd {
	case CommandWorker:
		return runWorker(cfg)
	case CommandMigrate:
		return runMigrate(cfg)
	default:
		return runServe(cfg)
	}
}

// openDatabase はDB接続を開き、疎通を確認する。
func openDatabase(ctx context.Context, cfg *config.Config) (*sql.DB, error) {
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Info("database connection established")
	return db, nil
}

// openSessionStore はSESSION_STOREに応じたセッションリポジトリを返す。
// 戻り値のcloseは必ず呼び出すこと。
func openSessionStore(ctx context.Context, cfg *config.Config, db *sql.DB) (repository.SessionRepository, func(), error) {
	if cfg.SessionStore != config.SessionStoreRedis {
		return repository.NewPostgresSessionRepo(db), func() {}, nil
	}

	client, err := database.NewRedisClient(ctx, database.RedisOptions{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	slog.Info("redis session store connected", slog.String("addr", cfg.RedisAddr))
	return repository.NewRedisSessionRepo(client), func() { closeRedis(client) }, nil
}

func closeRedis(client *redis.Client) {
	if err := client.Close(); err != nil {
		slog.Warn("failed to close redis client", slog.String("error", err.Error()))
	}
}

// newMetrics はプロセス専用のPrometheusレジストリとCollectorを生成する。
func newMetrics() (*prometheus.Registry, *metrics.Collector) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg, metrics.NewCollector(reg)
}

// newAuthService はDiscord OAuth・ロール解決・セッション管理を組み立てる。
func newAuthService(
	cfg *config.Config,
	guard security.URLGuard,
	users repository.UserRepository,
	sessions repository.SessionRepository,
	mc metrics.MetricsCollector,
) *auth.Service {
	discordClient := guard.NewSafeClient(cfg.RoleQueryTimeout)

	oauthProvider := auth.NewDiscordOAuthProvider(auth.DiscordOAuthConfig{
		ClientID:      cfg.DiscordClientID,
		ClientSecret:  cfg.DiscordClientSecret,
		RedirectURL:   cfg.DiscordRedirectURL,
		TargetGuildID: cfg.TargetGuildID,
		EmbeddedRoles: cfg.EmbeddedRoles,
		APIBaseURL:    cfg.DiscordAPIBaseURL,
		HTTPClient:    discordClient,
	}, mc)

	// nilの*DiscordBotClientをインターフェースに入れないこと
	var live auth.MemberRoleFetcher
	if cfg.LiveRoleQueryEnabled() {
		live = auth.NewDiscordBotClient(cfg.DiscordAPIBaseURL, cfg.BotToken, discordClient, mc)
	}

	resolver := auth.NewRoleResolver(auth.ResolverConfig{
		TargetGuildID:    cfg.TargetGuildID,
		RoleMap:          cfg.RoleMap,
		MemberRole:       cfg.MemberRole,
		LiveQueryTimeout: cfg.RoleQueryTimeout,
	}, live, mc)

	slog.Info("role resolution configured",
		slog.Bool("live_query", live != nil),
		slog.Bool("embedded_roles", cfg.EmbeddedRoles),
		slog.Int("role_map_size", len(cfg.RoleMap)),
		slog.Int("admin_count", len(cfg.AdminUserIDs)),
	)

	return auth.NewService(
		oauthProvider, resolver, users, sessions,
		auth.ServiceConfig{SessionTTL: cfg.SessionTTL},
		mc,
	)
}

// runServe はAPIサーバーモードで起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	ctx := context.Background()

	db, err := openDatabase(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	sessionRepo, closeSessions, err := openSessionStore(ctx, cfg, db)
	if err != nil {
		return err
	}
	defer closeSessions()

	reg, collector := newMetrics()

	// リポジトリ
	userRepo := repository.NewPostgresUserRepo(db)
	personaRepo := repository.NewPostgresPersonaRepo(db)
	vehicleRepo := repository.NewPostgresVehicleRepo(db)
	fineRepo := repository.NewPostgresFineRepo(db)

	// セキュリティ
	guard := security.NewURLGuard()
	sanitizer := security.NewTextSanitizer()
	cookies := security.NewCookieCodec(cfg.SessionSecret, cfg.SessionTTL)

	// 認証・認可
	authService := newAuthService(cfg, guard, userRepo, sessionRepo, collector)
	policy := authz.NewPolicy(cfg.AdminUserIDs)
	gate := middleware.NewGate(policy, collector, handler.LoginPath)

	// 登録データサービス
	personaService := registry.NewPersonaService(personaRepo, vehicleRepo, sanitizer)
	vehicleService := registry.NewVehicleService(vehicleRepo, personaRepo, sanitizer, guard)
	fineService := registry.NewFineService(fineRepo, vehicleRepo, sanitizer)
	publicService := registry.NewPublicService(vehicleRepo, personaRepo, fineRepo)

	rateLimiter := middleware.NewRateLimiter(
		middleware.NewRateLimiterConfig(cfg.RateLimitGeneral, cfg.RateLimitWrite),
	)
	defer rateLimiter.Stop()

	csrf, err := middleware.NewCSRFMiddleware(cfg.BaseURL, cfg.CORSAllowedOrigin)
	if err != nil {
		return fmt.Errorf("failed to configure CSRF protection: %w", err)
	}

	router := handler.NewRouter(&handler.RouterDeps{
		HealthChecker:  db,
		MetricsHandler: metrics.Handler(reg),

		SessionLoader:     authService,
		Cookies:           cookies,
		Gate:              gate,
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		RateLimiter:       rateLimiter,
		CSRF:              csrf,
		Logger:            slog.Default(),

		AuthService: authService,
		Admins:      policy,
		AuthConfig: handler.AuthHandlerConfig{
			BaseURL:       cfg.BaseURL,
			CookieDomain:  cfg.CookieDomain,
			CookieSecure:  cfg.CookieSecure,
			SessionMaxAge: cfg.SessionMaxAgeSeconds(),
		},

		PersonaService: personaService,
		VehicleService: vehicleService,
		FineService:    fineService,
		PublicService:  publicService,

		Pages: handler.NewPageHandler(cfg.PublicDir),
	})

	server := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(stop)

	serveErr := make(chan error, 1)
	go func() {
		slog.Info("API server starting", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("server listen error: %w", err)
		}
		return nil
	case <-stop:
	}

	slog.Info("shutting down API server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("API server stopped gracefully")
	return nil
}

// runWorker はワーカーモードで起動する。
// 期限切れセッションの定期削除を行い、シグナル受信で停止する。
func runWorker(cfg *config.Config) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	db, err := openDatabase(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	sessionRepo, closeSessions, err := openSessionStore(ctx, cfg, db)
	if err != nil {
		return err
	}
	defer closeSessions()

	_, collector := newMetrics()
	job := cleanup.NewCleanupJob(sessionRepo, collector, slog.Default())

	slog.Info("worker starting",
		slog.Duration("cleanup_interval", cfg.SessionCleanupInterval),
	)

	// メインgoroutineで実行（ブロッキング）
	job.Start(ctx, cfg.SessionCleanupInterval)

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

	slog.Info("database migrations completed successfully", slog.Uint64("schema_version", uint64(version)))
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
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

// maskDatabaseURL はデータベースURLの認証情報をマスクする。
func maskDatabaseURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "***"
	}
	u.RawQuery = ""
	return u.Redacted()
}
