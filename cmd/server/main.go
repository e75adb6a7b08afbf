package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/textocerto/TextoCerto-Back/internal/admin"
	"github.com/textocerto/TextoCerto-Back/internal/analytics"
	"github.com/textocerto/TextoCerto-Back/internal/auth"
	"github.com/textocerto/TextoCerto-Back/internal/config"
	"github.com/textocerto/TextoCerto-Back/internal/correction"
	"github.com/textocerto/TextoCerto-Back/internal/database"
	"github.com/textocerto/TextoCerto-Back/internal/feedback"
	"github.com/textocerto/TextoCerto-Back/internal/giftcode"
	"github.com/textocerto/TextoCerto-Back/internal/logs"
	"github.com/textocerto/TextoCerto-Back/internal/mercadopago"
	"github.com/textocerto/TextoCerto-Back/internal/middleware"
	"github.com/textocerto/TextoCerto-Back/internal/payment"
	"github.com/textocerto/TextoCerto-Back/internal/ratelimit"
	"github.com/textocerto/TextoCerto-Back/internal/storage"
	stripebilling "github.com/textocerto/TextoCerto-Back/internal/stripe"
	"github.com/textocerto/TextoCerto-Back/internal/supabase"
	"github.com/textocerto/TextoCerto-Back/internal/user"
)

func main() {
	_ = godotenv.Load()

	cfg := config.LoadConfig()
	if err := cfg.Validate(); err != nil {
		logs.LogJSON("FATAL", "Invalid configuration", map[string]interface{}{"error": err.Error()})
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	database.Connect(cfg.DBUrl)

	supabase.Auth = supabase.NewClient(supabase.Config{
		BaseURL:        cfg.Supabase.URL,
		AnonKey:        cfg.Supabase.AnonKey,
		ServiceRoleKey: cfg.Supabase.ServiceRoleKey,
		Timeout:        10 * time.Second,
	})

	correction.SetGenerator(correction.NewEngine(correction.EngineConfig{
		URL:     cfg.Correction.ProviderURL,
		APIKey:  cfg.Correction.APIKey,
		Model:   cfg.Correction.Model,
		Timeout: cfg.Correction.Timeout,
	}))

	analytics.Default = analytics.New(analytics.Config{
		MeasurementID: cfg.Analytics.MeasurementID,
		APISecret:     cfg.Analytics.APISecret,
	})

	stripebilling.Setup(stripebilling.Settings{
		SecretKey:     cfg.Stripe.SecretKey,
		WebhookSecret: cfg.Stripe.WebhookSecret,
		PriceID:       cfg.Stripe.PriceIDProMonthly,
		DomainURL:     cfg.DomainURL,
	})

	if cfg.MercadoPago.AccessToken != "" {
		mercadopago.Setup(mercadopago.NewClient(mercadopago.Config{
			AccessToken:     cfg.MercadoPago.AccessToken,
			WebhookSecret:   cfg.MercadoPago.WebhookSecret,
			NotificationURL: cfg.MercadoPago.NotificationURL,
			BaseURL:         cfg.MercadoPago.BaseURL,
		}), mercadopago.Settings{
			PriceCents: cfg.ProPriceCents,
			PlanDays:   cfg.ProPlanDays,
			DomainURL:  cfg.DomainURL,
		})
	}

	if err := storage.InitS3(ctx, storage.Config{
		Bucket:          cfg.AWS.Bucket,
		Region:          cfg.AWS.Region,
		AccessKeyID:     cfg.AWS.AccessKeyID,
		SecretAccessKey: cfg.AWS.SecretAccessKey,
	}); err != nil {
		logs.LogJSON("WARN", "S3 disabled, admin exports unavailable", map[string]interface{}{"error": err.Error()})
	}

	limiter, closeLimiter := newLimiter(ctx, cfg)
	defer closeLimiter()

	r := newRouter(cfg, limiter)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logs.LogJSON("INFO", "Server started", map[string]interface{}{"port": cfg.Port})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logs.LogJSON("FATAL", "Server error", map[string]interface{}{"error": err.Error()})
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logs.LogJSON("ERROR", "Graceful shutdown failed", map[string]interface{}{"error": err.Error()})
	}
	logs.LogJSON("INFO", "Server stopped", nil)
}

// newLimiter usa Redis quando REDIS_URL existe; a memória é sempre o fallback
func newLimiter(ctx context.Context, cfg *config.Config) (*ratelimit.Limiter, func()) {
	memory := ratelimit.NewMemoryStore(3 * time.Minute)
	go memory.RunCleanup(ctx)

	if cfg.Redis.URL == "" {
		logs.LogJSON("WARN", "REDIS_URL not set, rate limiting in memory only", nil)
		return ratelimit.New(nil, memory), func() {}
	}

	store, err := ratelimit.NewRedisStore(cfg.Redis.URL)
	if err != nil {
		logs.LogJSON("ERROR", "Invalid REDIS_URL, rate limiting in memory only", map[string]interface{}{"error": err.Error()})
		return ratelimit.New(nil, memory), func() {}
	}

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := store.Ping(pingCtx); err != nil {
		logs.LogJSON("WARN", "Redis unreachable at startup, using memory until it recovers", map[string]interface{}{"error": err.Error()})
	}

	return ratelimit.New(store, memory), func() { _ = store.Close() }
}

func newRouter(cfg *config.Config, limiter *ratelimit.Limiter) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), logs.RequestLogger(), middleware.CORS(cfg.AllowedOrigins))

	r.GET("/health", func(c *gin.Context) {
		store := "redis"
		if limiter.Degraded() {
			store = "memory"
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok", "rate_limit_store": store})
	})

	textPolicy := ratelimit.Policy{RPM: cfg.RateLimit.RequestsPerMinute, Burst: cfg.RateLimit.Burst}
	authPolicy := ratelimit.Policy{RPM: 10, Burst: 5}
	billingPolicy := ratelimit.Policy{RPM: 6, Burst: 3}

	api := r.Group("/api")

	// Webhooks: autenticados pela assinatura do provedor
	api.POST("/webhooks/stripe", stripebilling.HandleStripeWebhook)
	api.POST("/webhooks/mercadopago", mercadopago.HandleWebhook)

	// Inscrição e login
	authRoutes := api.Group("", middleware.RateLimit(limiter, "auth", authPolicy))
	authRoutes.POST("/signup", auth.Signup)
	authRoutes.POST("/login", auth.Login)
	authRoutes.POST("/refresh", auth.Refresh)

	// Correção: anônimos usam os limites do plano free
	text := api.Group("", middleware.OptionalAuthMiddleware(), middleware.RateLimit(limiter, "text", textPolicy))
	text.POST("/correct", correction.Correct)
	text.POST("/rewrite", correction.Rewrite)

	private := api.Group("", middleware.AuthMiddleware())
	private.GET("/me", user.GetMe)
	private.PATCH("/me", user.UpdateMe)
	private.GET("/usage", correction.GetUsage)

	private.GET("/corrections", correction.ListCorrections)
	private.GET("/corrections/:id", correction.GetCorrection)
	private.DELETE("/corrections/:id", correction.DeleteCorrection)

	private.POST("/feedback", feedback.CreateFeedback)

	private.GET("/payments", payment.ListPayments)
	private.GET("/payments/:id", payment.GetPayment)

	billing := private.Group("/billing", middleware.RateLimit(limiter, "billing", billingPolicy))
	billing.POST("/mercadopago/pix", mercadopago.CreatePixPayment)
	billing.POST("/mercadopago/checkout", mercadopago.CreateCheckout)
	billing.POST("/stripe/checkout", stripebilling.CreateCheckoutSession)
	billing.POST("/stripe/portal", stripebilling.CreatePortalSession)
	billing.POST("/stripe/cancel", stripebilling.CancelSubscription)

	private.POST("/gift/redeem", middleware.RateLimit(limiter, "gift", billingPolicy), giftcode.RedeemCode)

	adminGroup := api.Group("/admin", middleware.AuthMiddleware(), middleware.AdminOnlyMiddleware())
	{
		adminGroup.GET("/stats", admin.GetDashboardStats)
		adminGroup.GET("/charts/:type", admin.GetChartData)
		adminGroup.GET("/top-users", admin.GetTopUsers)

		adminGroup.GET("/users", user.ListUsers)
		adminGroup.GET("/users/:id", user.GetUser)
		adminGroup.PATCH("/users/:id/plan", user.UpdateUserPlan)
		adminGroup.DELETE("/users/:id", user.DeleteUser)

		adminGroup.GET("/payments", admin.ListPayments)
		adminGroup.PATCH("/payments/:id/status", admin.UpdatePaymentStatus)
		adminGroup.POST("/exports/payments", admin.ExportPayments)

		adminGroup.POST("/gift-codes", giftcode.CreateCodes)
		adminGroup.GET("/gift-codes", giftcode.ListCodes)
		adminGroup.PATCH("/gift-codes/:id/disable", giftcode.DisableCode)

		adminGroup.GET("/feedback", feedback.ListFeedback)
		adminGroup.GET("/feedback/stats", feedback.GetFeedbackStats)
		adminGroup.GET("/feedback/:id", feedback.GetFeedback)
		adminGroup.PUT("/feedback/:id", feedback.UpdateFeedback)
		adminGroup.DELETE("/feedback/:id", feedback.DeleteFeedback)
	}

	return r
}
