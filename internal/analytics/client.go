package analytics

import (
	"context"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/textocerto/TextoCerto-Back/internal/logs"
)

const defaultEndpoint = "https://www.google-analytics.com/mp/collect"

// Client envia eventos ao GA4 via Measurement Protocol
type Client struct {
	http          *resty.Client
	endpoint      string
	measurementID string
	apiSecret     string
}

type Config struct {
	MeasurementID string
	APISecret     string
	Endpoint      string
}

// Default é usado pelo restante da aplicação; nil desativa o envio
var Default *Client

func New(cfg Config) *Client {
	if cfg.MeasurementID == "" || cfg.APISecret == "" {
		return nil
	}
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = defaultEndpoint
	}
	return &Client{
		http:          resty.New().SetTimeout(5 * time.Second),
		endpoint:      endpoint,
		measurementID: cfg.MeasurementID,
		apiSecret:     cfg.APISecret,
	}
}

type Purchase struct {
	UserID        string
	TransactionID string
	Value         float64
	Currency      string
	Provider      string
	Method        string
}

type event struct {
	Name   string                 `json:"name"`
	Params map[string]interface{} `json:"params"`
}

type payload struct {
	ClientID string  `json:"client_id"`
	UserID   string  `json:"user_id,omitempty"`
	Events   []event `json:"events"`
}

// TrackPurchase nunca falha para quem chama; problemas só vão para o log
func (c *Client) TrackPurchase(ctx context.Context, p Purchase) {
	if c == nil {
		return
	}

	currency := p.Currency
	if currency == "" {
		currency = "BRL"
	}
	body := payload{
		ClientID: p.UserID,
		UserID:   p.UserID,
		Events: []event{{
			Name: "purchase",
			Params: map[string]interface{}{
				"transaction_id": p.TransactionID,
				"value":          p.Value,
				"currency":       currency,
				"payment_type":   p.Method,
				"affiliation":    p.Provider,
				"items": []map[string]interface{}{
					{"item_id": "pro", "item_name": "TextoCerto Pro", "price": p.Value, "quantity": 1},
				},
			},
		}},
	}

	resp, err := c.http.R().
		SetContext(context.WithoutCancel(ctx)).
		SetQueryParams(map[string]string{
			"measurement_id": c.measurementID,
			"api_secret":     c.apiSecret,
		}).
		SetBody(body).
		Post(c.endpoint)
	if err != nil {
		logs.LogJSON("WARN", "GA4 purchase event failed", map[string]interface{}{
			"error":         err.Error(),
			"transactionID": p.TransactionID,
		})
		return
	}
	if resp.IsError() {
		logs.LogJSON("WARN", "GA4 purchase event rejected", map[string]interface{}{
			"status":        resp.StatusCode(),
			"transactionID": p.TransactionID,
		})
	}
}
