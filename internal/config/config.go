package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Port           string
	DBUrl          string
	JWTSecret      string
	DomainURL      string
	AllowedOrigins []string

	Supabase    SupabaseConfig
	Stripe      StripeConfig
	MercadoPago MercadoPagoConfig
	Redis       RedisConfig
	RateLimit   RateLimitConfig
	Correction  CorrectionConfig
	Analytics   AnalyticsConfig
	AWS         AWSConfig

	// Preço do plano pro cobrado via Mercado Pago (PIX/cartão), em centavos
	ProPriceCents int64
	ProPlanDays   int
}

type SupabaseConfig struct {
	URL            string
	AnonKey        string
	ServiceRoleKey string
}

type StripeConfig struct {
	SecretKey         string
	WebhookSecret     string
	PriceIDProMonthly string
}

type MercadoPagoConfig struct {
	AccessToken     string
	WebhookSecret   string
	NotificationURL string
	BaseURL         string
}

type RedisConfig struct {
	URL string
}

type RateLimitConfig struct {
	RequestsPerMinute int
	Burst             int
}

type CorrectionConfig struct {
	ProviderURL string
	APIKey      string
	Model       string
	Timeout     time.Duration
}

type AnalyticsConfig struct {
	MeasurementID string
	APISecret     string
}

type AWSConfig struct {
	Bucket          string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
}

func LoadConfig() *Config {
	return &Config{
		Port:           envOr("PORT", "8080"),
		DBUrl:          os.Getenv("SUPABASE_DB_URL"),
		JWTSecret:      os.Getenv("JWT_SECRET"),
		DomainURL:      strings.TrimRight(os.Getenv("DOMAIN_URL"), "/"),
		AllowedOrigins: splitList(os.Getenv("ALLOWED_ORIGINS")),
		Supabase: SupabaseConfig{
			URL:            strings.TrimRight(os.Getenv("NEXT_PUBLIC_SUPABASE_URL"), "/"),
			AnonKey:        os.Getenv("SUPABASE_ANON_KEY"),
			ServiceRoleKey: os.Getenv("SUPABASE_SERVICE_ROLE_KEY"),
		},
		Stripe: StripeConfig{
			SecretKey:         os.Getenv("STRIPE_SECRET_KEY"),
			WebhookSecret:     os.Getenv("STRIPE_WEBHOOK_SECRET"),
			PriceIDProMonthly: os.Getenv("STRIPE_PRICE_ID_PRO_MONTHLY"),
		},
		MercadoPago: MercadoPagoConfig{
			AccessToken:     os.Getenv("MERCADOPAGO_ACCESS_TOKEN"),
			WebhookSecret:   os.Getenv("MERCADOPAGO_WEBHOOK_SECRET"),
			NotificationURL: os.Getenv("MERCADOPAGO_NOTIFICATION_URL"),
			BaseURL:         envOr("MERCADOPAGO_BASE_URL", "https://api.mercadopago.com"),
		},
		Redis: RedisConfig{
			URL: os.Getenv("REDIS_URL"),
		},
		RateLimit: RateLimitConfig{
			RequestsPerMinute: envInt("RATE_LIMIT_RPM", 30),
			Burst:             envInt("RATE_LIMIT_BURST", 10),
		},
		Correction: CorrectionConfig{
			ProviderURL: envOr("CORRECTION_API_URL", "https://api.openai.com/v1/chat/completions"),
			APIKey:      os.Getenv("CORRECTION_API_KEY"),
			Model:       envOr("CORRECTION_MODEL", "gpt-4o-mini"),
			Timeout:     time.Duration(envInt("CORRECTION_TIMEOUT_SECONDS", 60)) * time.Second,
		},
		Analytics: AnalyticsConfig{
			MeasurementID: os.Getenv("GA_MEASUREMENT_ID"),
			APISecret:     os.Getenv("GA_API_SECRET"),
		},
		AWS: AWSConfig{
			Bucket:          os.Getenv("AWS_BUCKET_NAME"),
			Region:          os.Getenv("AWS_REGION"),
			AccessKeyID:     os.Getenv("AWS_ACCESS_KEY_ID"),
			SecretAccessKey: os.Getenv("AWS_SECRET_ACCESS_KEY"),
		},
		ProPriceCents: int64(envInt("PRO_PRICE_CENTS", 1990)),
		ProPlanDays:   envInt("PRO_PLAN_DAYS", 30),
	}
}

// Validate retorna erro quando faltam variáveis obrigatórias
func (c *Config) Validate() error {
	var missing []string
	if c.DBUrl == "" {
		missing = append(missing, "SUPABASE_DB_URL")
	}
	if c.JWTSecret == "" {
		missing = append(missing, "JWT_SECRET")
	}
	if len(missing) > 0 {
		return errors.New("variáveis obrigatórias ausentes: " + strings.Join(missing, ", "))
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
