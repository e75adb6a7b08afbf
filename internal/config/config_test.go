package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("RATE_LIMIT_RPM", "")
	t.Setenv("RATE_LIMIT_BURST", "abc")
	t.Setenv("CORRECTION_TIMEOUT_SECONDS", "-3")
	t.Setenv("PRO_PRICE_CENTS", "")
	t.Setenv("ALLOWED_ORIGINS", "https://textocerto.com.br, ,https://www.textocerto.com.br")
	t.Setenv("DOMAIN_URL", "https://textocerto.com.br/")

	cfg := LoadConfig()

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 30, cfg.RateLimit.RequestsPerMinute)
	assert.Equal(t, 10, cfg.RateLimit.Burst)
	assert.Equal(t, 60*time.Second, cfg.Correction.Timeout)
	assert.Equal(t, int64(1990), cfg.ProPriceCents)
	assert.Equal(t, []string{"https://textocerto.com.br", "https://www.textocerto.com.br"}, cfg.AllowedOrigins)
	assert.Equal(t, "https://textocerto.com.br", cfg.DomainURL)
	assert.Equal(t, "https://api.mercadopago.com", cfg.MercadoPago.BaseURL)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{name: "Complete", cfg: Config{DBUrl: "postgres://x", JWTSecret: "s"}, wantErr: false},
		{name: "Missing DB", cfg: Config{JWTSecret: "s"}, wantErr: true},
		{name: "Missing everything", cfg: Config{}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
