package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/spf13/cobra"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	"jobradar/internal/common/pagination"
	appcfg "jobradar/internal/pkg/config"
	"jobradar/pkg/config"
	"jobradar/pkg/ratelimit"
	"jobradar/pkg/security/csp"

	hhttp "jobradar/internal/handler/http"
	haction "jobradar/internal/handler/http/action"
	happcfg "jobradar/internal/handler/http/appconfig"
	hauth "jobradar/internal/handler/http/auth"
	hdigest "jobradar/internal/handler/http/digest"
	hjob "jobradar/internal/handler/http/job"
	"jobradar/internal/handler/http/middleware"
	"jobradar/internal/handler/http/requestid"
	hsrc "jobradar/internal/handler/http/source"
	"jobradar/internal/handler/web"
	"jobradar/internal/observability/tracing"
	authservice "jobradar/internal/service/auth"

	_ "jobradar/docs" // swagger docs
)

// @title           JobRadar API
// @version         1.0
// @description     求人情報の自動収集・LLM分析システムの REST API
// @description     求人とフィードソースの管理、セマンティック検索、ダイジェスト配信を提供します。

// @license.name  MIT
// @license.url   https://opensource.org/licenses/MIT

// @host      localhost:8080
// @BasePath  /

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description JWT トークンによる認証。ヘッダーに "Bearer {token}" 形式で指定してください。

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and dashboard server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe() error {
	logger := initLogger()
	if err := validateCredentials(logger); err != nil {
		return err
	}

	tracingShutdown := tracing.Init("jobradar")
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = tracingShutdown(shutdownCtx)
	}()

	database, err := openDatabase(logger)
	if err != nil {
		return err
	}
	defer closeDatabase(logger, database)

	store, err := loadStore()
	if err != nil {
		return err
	}

	pipe, err := buildPipeline(logger, database, store)
	if err != nil {
		return err
	}

	version := getVersion()
	components, err := setupServer(logger, database, store, pipe, version)
	if err != nil {
		return err
	}

	return runServer(logger, components, version)
}

// validateCredentials enforces startup credential hygiene: admin
// credentials and JWT secret are mandatory, viewer credentials degrade
// to admin-only mode when misconfigured.
func validateCredentials(logger *slog.Logger) error {
	if err := hauth.ValidateAdminCredentials(); err != nil {
		return fmt.Errorf("admin credentials validation failed: %w", err)
	}
	_ = hauth.ValidateViewerCredentials(logger)
	return validateJWTSecret()
}

// validateJWTSecret validates the JWT_SECRET environment variable for security requirements.
func validateJWTSecret() error {
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		return fmt.Errorf("JWT_SECRET must be set")
	}
	// セキュリティ: 最小32文字（256ビット）を強制
	if len(secret) < 32 {
		return fmt.Errorf("JWT_SECRET must be at least 32 characters (256 bits)")
	}
	// セキュリティ: よくある弱い秘密鍵を拒否
	weakSecrets := []string{"secret", "password", "test", "admin", "default"}
	for _, weak := range weakSecrets {
		if secret == weak || secret == weak+"123" {
			return fmt.Errorf("JWT_SECRET must not be a common weak value")
		}
	}
	return nil
}

// ServerComponents holds components needed for server operation and cleanup.
type ServerComponents struct {
	Handler     http.Handler
	Addr        string
	IPStore     *ratelimit.InMemoryRateLimitStore
	UserStore   *ratelimit.InMemoryRateLimitStore
	IPWindow    time.Duration
	UserWindow  time.Duration
	AuthLimiter *middleware.RateLimiter // legacy limiter, cleaned up separately
}

// setupServer configures and returns the HTTP handler with all routes and middleware.
func setupServer(logger *slog.Logger, database *sql.DB, store *appcfg.Store, pipe *pipeline, version string) (*ServerComponents, error) {
	rateLimitConfig, err := config.LoadRateLimitConfig()
	if err != nil {
		return nil, fmt.Errorf("load rate limit configuration: %w", err)
	}

	proxyConfig, err := middleware.LoadTrustedProxyConfig()
	if err != nil {
		return nil, fmt.Errorf("load trusted proxy configuration: %w", err)
	}

	var ipExtractor middleware.IPExtractor
	if proxyConfig.Enabled {
		ipExtractor = middleware.NewTrustedProxyExtractor(*proxyConfig)
		logger.Info("rate limiting: trusted proxy mode enabled",
			slog.Int("trusted_proxies_count", len(proxyConfig.AllowedCIDRs)))
	} else {
		ipExtractor = &middleware.RemoteAddrExtractor{}
		logger.Info("rate limiting: using RemoteAddr (proxy headers ignored)")
	}

	var ipRateLimiter *middleware.IPRateLimiter
	var userRateLimiter *middleware.UserRateLimiter
	var ipStore, userStore *ratelimit.InMemoryRateLimitStore

	if rateLimitConfig.Enabled {
		// IPとユーザーで別ストア。片方の掃除がもう片方に影響しない。
		ipStore = ratelimit.NewInMemoryRateLimitStore(ratelimit.InMemoryStoreConfig{
			MaxKeys: rateLimitConfig.MaxActiveKeys,
		})
		userStore = ratelimit.NewInMemoryRateLimitStore(ratelimit.InMemoryStoreConfig{
			MaxKeys: rateLimitConfig.MaxActiveKeys,
		})

		algorithm := ratelimit.NewSlidingWindowAlgorithm(&ratelimit.SystemClock{})
		metrics := ratelimit.NewPrometheusMetrics()

		ipCircuitBreaker := ratelimit.NewCircuitBreaker(ratelimit.CircuitBreakerConfig{
			FailureThreshold: rateLimitConfig.CircuitBreakerFailureThreshold,
			RecoveryTimeout:  rateLimitConfig.CircuitBreakerResetTimeout,
		})
		userCircuitBreaker := ratelimit.NewCircuitBreaker(ratelimit.CircuitBreakerConfig{
			FailureThreshold: rateLimitConfig.CircuitBreakerFailureThreshold,
			RecoveryTimeout:  rateLimitConfig.CircuitBreakerResetTimeout,
		})

		ipRateLimiter = middleware.NewIPRateLimiter(
			middleware.IPRateLimiterConfig{
				Limit:   rateLimitConfig.DefaultIPLimit,
				Window:  rateLimitConfig.DefaultIPWindow,
				Enabled: true,
			},
			ipExtractor,
			ipStore,
			algorithm,
			metrics,
			ipCircuitBreaker,
		)

		tierLimits := make(map[ratelimit.UserTier]middleware.TierLimit)
		for _, tierCfg := range rateLimitConfig.TierLimits {
			tierLimits[tierCfg.Tier] = middleware.TierLimit{
				Limit:  tierCfg.Limit,
				Window: tierCfg.Window,
			}
		}

		userRateLimiter = middleware.NewUserRateLimiter(middleware.UserRateLimiterConfig{
			Store:               userStore,
			Algorithm:           algorithm,
			Metrics:             metrics,
			CircuitBreaker:      userCircuitBreaker,
			UserExtractor:       middleware.NewJWTUserExtractor("user", nil),
			TierLimits:          tierLimits,
			DefaultLimit:        rateLimitConfig.DefaultUserLimit,
			DefaultWindow:       rateLimitConfig.DefaultUserWindow,
			SkipUnauthenticated: true,
			Clock:               &ratelimit.SystemClock{},
		})

		logger.Info("rate limiting initialized",
			slog.Int("ip_limit", rateLimitConfig.DefaultIPLimit),
			slog.Duration("ip_window", rateLimitConfig.DefaultIPWindow),
			slog.Int("user_limit", rateLimitConfig.DefaultUserLimit),
			slog.Duration("user_window", rateLimitConfig.DefaultUserWindow),
			slog.Int("max_keys", rateLimitConfig.MaxActiveKeys))
	} else {
		logger.Warn("rate limiting is DISABLED - not recommended for production")
	}

	rootMux, authLimiter := setupRoutes(database, store, pipe, version, ipExtractor, userRateLimiter, logger)
	handler, err := applyMiddleware(logger, rootMux, ipRateLimiter)
	if err != nil {
		return nil, err
	}

	addr := os.Getenv("API_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	return &ServerComponents{
		Handler:     handler,
		Addr:        addr,
		IPStore:     ipStore,
		UserStore:   userStore,
		IPWindow:    rateLimitConfig.DefaultIPWindow,
		UserWindow:  rateLimitConfig.DefaultUserWindow,
		AuthLimiter: authLimiter,
	}, nil
}

// setupRoutes registers all HTTP routes (public, API, and dashboard).
func setupRoutes(
	database *sql.DB,
	store *appcfg.Store,
	pipe *pipeline,
	version string,
	ipExtractor middleware.IPExtractor,
	userRateLimiter *middleware.UserRateLimiter,
	logger *slog.Logger,
) (*http.ServeMux, *middleware.RateLimiter) {
	// レート制限: 認証エンドポイントは1分間に5リクエストまで
	authRateLimiter := middleware.NewRateLimiter(5, 1*time.Minute, ipExtractor)
	// レート制限: 検索エンドポイントは1分間に100リクエストまで
	searchRateLimiter := middleware.NewRateLimiter(100, 1*time.Minute, ipExtractor)

	weakPasswords := []string{"password", "123456", "admin", "test", "secret"}
	authProvider := hauth.NewMultiUserAuthProvider(12, weakPasswords)
	publicEndpoints := []string{"/auth/token", "/health", "/ready", "/live", "/metrics", "/swagger/"}
	authService := authservice.NewAuthService(authProvider, publicEndpoints)

	publicMux := http.NewServeMux()
	publicMux.Handle("/auth/token", authRateLimiter.Middleware(hauth.TokenHandler(authService)))

	// ヘルスチェックエンドポイント（認証不要）
	publicMux.Handle("/health", &hhttp.HealthHandler{DB: database, Version: version})
	publicMux.HandleFunc("/health/mail", hhttp.NewMailHealthHandler(pipe.DigestSvc).Health)
	publicMux.Handle("/ready", &hhttp.ReadyHandler{DB: database})
	publicMux.Handle("/live", &hhttp.LiveHandler{})
	publicMux.Handle("/metrics", hhttp.MetricsHandler())
	publicMux.Handle("/swagger/", httpSwagger.WrapHandler)

	paginationCfg := pagination.LoadFromEnv()

	apiMux := http.NewServeMux()
	hjob.Register(apiMux, pipe.JobSvc, &pipe.SearchSvc, paginationCfg, logger)
	hsrc.Register(apiMux, pipe.SrcSvc, searchRateLimiter)
	hdigest.Register(apiMux, pipe.DigestSvc)
	happcfg.Register(apiMux, store)
	haction.Register(apiMux, haction.Triggers(&pipe.CollectSvc, pipe.DigestSvc, &pipe.SearchSvc), logger)

	// API全体を認証必須にする。閲覧系はviewerロールでも通る。
	protected := hauth.Authz(apiMux)
	if userRateLimiter != nil {
		protected = userRateLimiter.Middleware()(protected)
	}

	// ダッシュボードは同一ホストのHTML UI。読み取り専用なので認証なし。
	webMux := http.NewServeMux()
	web.NewHandler(pipe.JobSvc, store, logger).Register(webMux)

	rootMux := http.NewServeMux()
	rootMux.Handle("/auth/token", publicMux)
	rootMux.Handle("/health", publicMux)
	rootMux.Handle("/health/mail", publicMux)
	rootMux.Handle("/ready", publicMux)
	rootMux.Handle("/live", publicMux)
	rootMux.Handle("/metrics", publicMux)
	rootMux.Handle("/swagger/", publicMux)
	rootMux.Handle("/api/", protected)
	rootMux.Handle("/", webMux)

	return rootMux, authRateLimiter
}

// applyMiddleware wraps the handler with the middleware chain.
// Order: CORS → Tracing → Request ID → IP Rate Limit → Recovery → Logging → Body Limit → CSP → Metrics
func applyMiddleware(logger *slog.Logger, handler http.Handler, ipRateLimiter *middleware.IPRateLimiter) (http.Handler, error) {
	corsConfig, err := middleware.LoadCORSConfig()
	if err != nil {
		return nil, fmt.Errorf("load CORS configuration: %w", err)
	}
	corsConfig.Logger = &middleware.SlogAdapter{Logger: logger}

	logger.Info("CORS enabled",
		slog.Any("allowed_origins", corsConfig.Validator.GetAllowedOrigins()),
		slog.Any("allowed_methods", corsConfig.AllowedMethods),
		slog.Int("max_age", corsConfig.MaxAge))

	cspConfig, err := config.LoadCSPConfig()
	if err != nil {
		return nil, fmt.Errorf("load CSP configuration: %w", err)
	}

	cspMiddleware := func(next http.Handler) http.Handler { return next }
	if cspConfig.Enabled {
		dashboard := csp.DashboardPolicy()
		cspMW := middleware.NewCSPMiddleware(middleware.CSPMiddlewareConfig{
			Enabled:       true,
			DefaultPolicy: csp.APIPolicy(),
			PathPolicies: map[string]string{
				"/swagger/": csp.SwaggerUIPolicy(),
				"/jobs":     dashboard,
				"/stats":    dashboard,
				"/config":   dashboard,
				"/static/":  dashboard,
			},
			ReportOnly: cspConfig.ReportOnly,
		})
		cspMiddleware = cspMW.Middleware()
		logger.Info("CSP enabled", slog.Bool("report_only", cspConfig.ReportOnly))
	} else {
		logger.Warn("CSP is disabled")
	}

	// Apply in reverse order (innermost to outermost)
	chain := handler
	chain = hhttp.MetricsMiddleware(chain)
	chain = cspMiddleware(chain)
	chain = hhttp.LimitRequestBody(1 << 20)(chain) // 1MB limit
	chain = hhttp.Logging(logger)(chain)
	chain = hhttp.Recover(logger)(chain)
	if ipRateLimiter != nil {
		chain = ipRateLimiter.Middleware()(chain)
	}
	chain = requestid.Middleware(chain)
	chain = tracing.Middleware(chain)
	chain = middleware.CORS(*corsConfig)(chain)

	return chain, nil
}

// runServer starts the HTTP server and handles graceful shutdown.
func runServer(logger *slog.Logger, components *ServerComponents, version string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cleanupCfg := hhttp.LoadCleanupConfigFromEnv()
	if components.IPStore != nil {
		go hhttp.StartRateLimitCleanup(ctx, components.IPStore, cleanupCfg.Interval, components.IPWindow, "ip")
	}
	if components.UserStore != nil {
		go hhttp.StartRateLimitCleanup(ctx, components.UserStore, cleanupCfg.Interval, components.UserWindow, "user")
	}
	if components.AuthLimiter != nil {
		go hhttp.StartRateLimitCleanupLegacy(ctx, components.AuthLimiter, cleanupCfg.Interval, "auth")
	}

	srv := &http.Server{
		Addr:              components.Addr,
		Handler:           components.Handler,
		ReadHeaderTimeout: 10 * time.Second, // Slowloris対策
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting",
			slog.String("addr", components.Addr),
			slog.String("version", version))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-quit:
	}
	logger.Info("shutting down server...")

	// バックグラウンドの掃除goroutineを止めてからHTTPを閉じる
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", slog.Any("error", err))
	}
	logger.Info("server stopped")
	return nil
}
