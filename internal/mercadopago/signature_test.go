package mercadopago

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseSignature(t *testing.T) {
	ts, v1 := parseSignature("ts=1704908010, v1=abc123")
	assert.Equal(t, "1704908010", ts)
	assert.Equal(t, "abc123", v1)

	ts, v1 = parseSignature("garbage")
	assert.Empty(t, ts)
	assert.Empty(t, v1)
}

func TestManifest(t *testing.T) {
	assert.Equal(t, "id:abc123;request-id:req-1;ts:1704908010;", manifest("ABC123", "req-1", "1704908010"))
	assert.Equal(t, "id:42;ts:1;", manifest("42", "", "1"))
}

func TestVerifySignature(t *testing.T) {
	secret := "webhook-secret"
	valid := "ts=1704908010,v1=" + sign(secret, manifest("123", "req-1", "1704908010"))

	tests := []struct {
		name      string
		secret    string
		header    string
		requestID string
		dataID    string
		wantErr   bool
	}{
		{"válida", secret, valid, "req-1", "123", false},
		{"segredo errado", "outro", valid, "req-1", "123", true},
		{"data.id alterado", secret, valid, "req-1", "124", true},
		{"request id alterado", secret, valid, "req-2", "123", true},
		{"sem cabeçalho", secret, "", "req-1", "123", true},
		{"sem segredo configurado", "", valid, "req-1", "123", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := VerifySignature(tt.secret, tt.header, tt.requestID, tt.dataID)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidSignature)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
