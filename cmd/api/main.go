package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"

	"github.com/pantrykit/pantry-api/config"
	"github.com/pantrykit/pantry-api/internal/background"
	"github.com/pantrykit/pantry-api/internal/cache"
	"github.com/pantrykit/pantry-api/internal/handlers"
	"github.com/pantrykit/pantry-api/internal/middleware"
	"github.com/pantrykit/pantry-api/internal/ratelimit"
	"github.com/pantrykit/pantry-api/internal/repository"
	"github.com/pantrykit/pantry-api/internal/services"
	"github.com/pantrykit/pantry-api/pkg/db"
	"github.com/pantrykit/pantry-api/pkg/httpclient"
	"github.com/pantrykit/pantry-api/pkg/jwt"
	"github.com/pantrykit/pantry-api/pkg/logger"
	"github.com/pantrykit/pantry-api/pkg/mailer"
	"github.com/pantrykit/pantry-api/pkg/metrics"
	"github.com/pantrykit/pantry-api/pkg/ocr"
	"github.com/pantrykit/pantry-api/pkg/profiling"
	"github.com/pantrykit/pantry-api/pkg/recaptcha"
	"github.com/pantrykit/pantry-api/pkg/storage"
	"github.com/pantrykit/pantry-api/pkg/tracing"
)

const (
	maxBodySize    = 100 * 1024
	maxReceiptBody = 15 * 1024 * 1024 // base64 of storage.MaxImageSize plus JSON
	janitorEvery   = time.Hour
)

type routeHandlers struct {
	health      *handlers.HealthHandler
	magicLink   *handlers.MagicLinkHandler
	user        *handlers.UserHandler
	ingredients *handlers.IngredientHandler
	recipes     *handlers.RecipeHandler
	mealPlans   *handlers.MealPlanHandler
	receipts    *handlers.ReceiptHandler
	frontend    *handlers.FrontendHandler
}

type limiters struct {
	general     *middleware.RateLimiter
	linkRequest *middleware.RateLimiter
	poll        *ratelimit.FixedWindow
}

// registerRoutes wires the HTTP surface. Authorization for /api/user and
// ingredient writes is enforced by the global session gate.
func registerRoutes(router *gin.Engine, h routeHandlers, rl limiters, receiptsEnabled bool) {
	api := router.Group("/api")
	api.GET("/healthcheck", h.health.Healthcheck)
	api.GET("/metrics", gin.WrapH(promhttp.Handler()))

	auth := api.Group("/auth")
	auth.POST("/magic-link", rl.linkRequest.Middleware(), h.magicLink.RequestLink)
	auth.GET("/magic-link/poll", rl.poll.Middleware(ratelimit.ClientIP), h.magicLink.Poll)
	auth.GET("/magic-link/verify", rl.general.Middleware(), h.magicLink.Verify)
	auth.POST("/magic-link/exchange", rl.general.Middleware(), h.magicLink.Exchange)
	auth.POST("/logout", h.magicLink.Logout)
	auth.GET("/session", h.magicLink.Session)

	ingredients := api.Group("/ingredients", rl.general.Middleware())
	ingredients.GET("", h.ingredients.List)
	ingredients.POST("", h.ingredients.Create)
	ingredients.PUT("/:id", h.ingredients.Update)
	ingredients.DELETE("/:id", h.ingredients.Delete)

	user := api.Group("/user", rl.general.Middleware())
	user.GET("/me", h.user.Me)
	user.PATCH("/me", h.user.Update)
	user.DELETE("/me", h.user.Delete)

	user.GET("/saved-recipes", h.recipes.List)
	user.POST("/saved-recipes", h.recipes.Save)
	user.DELETE("/saved-recipes/:id", h.recipes.Delete)

	user.GET("/meal-plans", h.mealPlans.List)
	user.POST("/meal-plans", h.mealPlans.Create)
	user.DELETE("/meal-plans/:id", h.mealPlans.Delete)

	if receiptsEnabled {
		user.GET("/receipts", h.receipts.List)
		user.POST("/receipts", h.receipts.Scan)
	} else {
		logger.Warn("Receipt scanning disabled: RECEIPT_STORAGE_BUCKET_NAME or OCR_PROVIDER_URL not set")
	}

	router.NoRoute(h.frontend.Serve)
}

func newMailer(ctx context.Context, cfg *config.Config, httpClient httpclient.Client) (mailer.Mailer, error) {
	switch cfg.Mail.Provider {
	case config.MailProviderSES:
		return mailer.NewSESMailer(ctx, cfg.Mail.AWSRegion, cfg.Mail.From)
	case config.MailProviderWebhook:
		return mailer.NewWebhookMailer(cfg.Mail.WebhookURL, httpClient), nil
	default:
		logger.Warn("Magic links are written to the log instead of being emailed")
		return mailer.NewLogMailer(), nil
	}
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	err = logger.Initialize(logger.Config{
		Level:       cfg.Logging.Level,
		LogDir:      cfg.Logging.Dir,
		Environment: cfg.Server.AppEnv,
		ServiceName: cfg.Observability.ServiceName,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting Pantry API",
		zap.String("version", cfg.Observability.ServiceVersion),
		zap.String("environment", cfg.Server.AppEnv),
	)

	tracerShutdown, err := tracing.InitTracer(tracing.Config{
		ServiceName:       cfg.Observability.ServiceName,
		ServiceNamespace:  cfg.Observability.ServiceNamespace,
		ServiceVersion:    cfg.Observability.ServiceVersion,
		ServiceInstanceID: cfg.Observability.ServiceInstanceID,
		Environment:       cfg.Server.AppEnv,
		Endpoint:          cfg.Observability.ExporterEndpoint,
	})
	if err != nil {
		logger.Fatal("Failed to initialize tracer", zap.Error(err))
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if shutdownErr := tracerShutdown(ctx); shutdownErr != nil {
			logger.Error("Failed to shutdown tracer", zap.Error(shutdownErr))
		}
	}()

	stopProfiler, err := profiling.InitProfiler(profiling.Config{
		Enabled:               cfg.Profiling.Enabled,
		Endpoint:              cfg.Profiling.Endpoint,
		AppName:               cfg.Profiling.AppName,
		SampleTypes:           cfg.Profiling.SampleTypes,
		UploadIntervalSeconds: cfg.Profiling.UploadIntervalSeconds,
	}, profiling.Labels{
		ServiceName: cfg.Observability.ServiceName,
		Namespace:   cfg.Observability.ServiceNamespace,
		Version:     cfg.Observability.ServiceVersion,
		InstanceID:  cfg.Observability.ServiceInstanceID,
		Environment: cfg.Server.AppEnv,
	})
	if err != nil {
		logger.Fatal("Failed to initialize profiler", zap.Error(err))
	}
	defer stopProfiler()

	// Background loops stop when the server shuts down
	bgCtx, stopBackground := context.WithCancel(context.Background())
	defer stopBackground()

	metrics.RecordInfrastructureMetrics(bgCtx.Done())

	pool, err := db.NewPool(bgCtx, db.PoolConfig{
		URL:        cfg.Database.URL,
		MaxConns:   cfg.Database.MaxConns,
		MinConns:   cfg.Database.MinConns,
		CACertPath: cfg.Database.CACertPath,
	})
	if err != nil {
		logger.Fatal("Failed to initialize database connection pool", zap.Error(err))
	}
	defer pool.Close()

	// Migrations run separately: ./migrate

	httpClient := httpclient.NewStandardClient()

	// Repositories
	tokenRepo := repository.NewLoginTokenRepository(pool)
	userRepo := repository.NewUserRepository(pool)
	ingredientRepo := repository.NewIngredientRepository(pool)
	recipeRepo := repository.NewSavedRecipeRepository(pool)
	mealPlanRepo := repository.NewMealPlanRepository(pool)
	receiptRepo := repository.NewReceiptRepository(pool)

	accountCache := cache.NewAccountCache(userRepo.Exists, time.Duration(cfg.Cache.AccountTTLSeconds)*time.Second)
	tokenManager := jwt.NewTokenManager(cfg.Session.Secret, cfg.Session.Issuer, cfg.SessionTTL())
	verifier := services.NewAccountSessionVerifier(tokenManager, accountCache)

	mail, err := newMailer(bgCtx, cfg, httpClient)
	if err != nil {
		logger.Fatal("Failed to initialize mailer", zap.Error(err))
	}

	// Services
	magicLinkService := services.NewMagicLinkService(tokenRepo, userRepo, mail, tokenManager, cfg, httpClient)
	if cfg.ReCAPTCHA.SecretKey != "" {
		captcha := recaptcha.NewVerifier(cfg.ReCAPTCHA.SecretKey, httpClient)
		if cfg.ReCAPTCHA.MinScore > 0 {
			captcha.MinScore = cfg.ReCAPTCHA.MinScore
		}
		magicLinkService.SetCaptchaVerifier(captcha)
	}
	userService := services.NewUserService(userRepo, accountCache, cfg.Hooks.UserEventsURL, httpClient)
	inventoryService := services.NewInventoryService(ingredientRepo)
	recipeService := services.NewRecipeService(recipeRepo)
	mealPlanService := services.NewMealPlanService(mealPlanRepo, recipeRepo)

	var receiptService *services.ReceiptService
	if cfg.ReceiptScanningEnabled() {
		receiptStore, storeErr := storage.NewReceiptStore(storage.Config{
			AccessKeyID:     cfg.ReceiptStorage.AccessKeyID,
			SecretAccessKey: cfg.ReceiptStorage.SecretAccessKey,
			BucketName:      cfg.ReceiptStorage.BucketName,
			Endpoint:        cfg.ReceiptStorage.Endpoint,
			Region:          cfg.ReceiptStorage.Region,
			PublicBaseURL:   cfg.ReceiptStorage.PublicBaseURL,
		})
		if storeErr != nil {
			logger.Fatal("Failed to initialize receipt storage", zap.Error(storeErr))
		}
		ocrClient := ocr.NewClient(cfg.OCR.ProviderURL, cfg.OCR.APIKey, httpclient.NewClientWithTimeout(60*time.Second))
		receiptService = services.NewReceiptService(receiptRepo, ingredientRepo, receiptStore, ocrClient)
	}

	// Handlers
	cookies := middleware.CookieOptions{
		Domain: cfg.Session.CookieDomain,
		Secure: cfg.Session.CookieSecure,
		TTL:    tokenManager.GetExpirationTime(),
	}
	frontendHandler, err := handlers.NewFrontendHandler(cfg.Server.FrontendURL)
	if err != nil {
		logger.Fatal("Failed to initialize frontend proxy", zap.Error(err))
	}
	h := routeHandlers{
		health:      handlers.NewHealthHandler(pool),
		magicLink:   handlers.NewMagicLinkHandler(magicLinkService, cookies),
		user:        handlers.NewUserHandler(userService, cookies),
		ingredients: handlers.NewIngredientHandler(inventoryService),
		recipes:     handlers.NewRecipeHandler(recipeService),
		mealPlans:   handlers.NewMealPlanHandler(mealPlanService),
		frontend:    frontendHandler,
	}
	if receiptService != nil {
		h.receipts = handlers.NewReceiptHandler(receiptService)
	}

	rl := limiters{
		general:     middleware.NewRateLimiter("api", 50, 100),
		linkRequest: middleware.NewRateLimiter("link_request", 0.1, 5), // 1 req/10s, burst of 5
		poll:        ratelimit.NewPollLimiter(),
	}

	background.NewRateLimitSweeper(ratelimit.DefaultSweepInterval, rl.poll, rl.general, rl.linkRequest).Start(bgCtx)
	go background.NewLoginTokenJanitor(tokenRepo, cfg.LoginTokenRetention(), janitorEvery).Start(bgCtx)

	gin.SetMode(cfg.Server.GinMode)
	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware(cfg.Observability.ServiceName))
	router.Use(middleware.ObservabilityMiddleware())
	router.Use(middleware.SecurityHeadersMiddleware(cfg.Session.CookieSecure))

	allowedOrigins := cfg.Server.AllowedOrigins
	if cfg.IsDevelopment() {
		allowedOrigins = append(allowedOrigins, "http://localhost:3000", "http://127.0.0.1:3000")
	}
	router.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "traceparent", "tracestate"},
		ExposeHeaders:    []string{"Content-Length", "Retry-After"},
		AllowCredentials: true, // session cookie
		MaxAge:           12 * time.Hour,
	}))

	router.Use(middleware.BodySizeLimitMiddleware(maxBodySize, map[string]int64{"/api/user/receipts": maxReceiptBody}))
	router.Use(middleware.SessionGate(verifier, middleware.DefaultGateRules(), middleware.DefaultLoginPath))
	router.Use(middleware.OptionalSession(verifier))

	registerRoutes(router, h, rl, receiptService != nil)

	srv := &http.Server{
		Addr:              "0.0.0.0:" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 15 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      90 * time.Second, // receipt scans wait on OCR
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	go func() {
		logger.Info("Server started", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")
	stopBackground()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited")
}
