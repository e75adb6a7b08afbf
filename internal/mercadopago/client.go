package mercadopago

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/textocerto/TextoCerto-Back/internal/payment"
)

const (
	defaultBaseURL = "https://api.mercadopago.com"
	dateLayout     = "2006-01-02T15:04:05.000-07:00"
)

// Client fala com a API REST do Mercado Pago
type Client struct {
	http            *resty.Client
	webhookSecret   string
	notificationURL string
}

type Config struct {
	AccessToken     string
	WebhookSecret   string
	NotificationURL string
	BaseURL         string
	Timeout         time.Duration
}

type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("mercadopago: status %d: %s", e.StatusCode, e.Body)
}

func NewClient(cfg Config) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		http: resty.New().
			SetBaseURL(baseURL).
			SetAuthToken(cfg.AccessToken).
			SetTimeout(timeout).
			SetHeader("Content-Type", "application/json"),
		webhookSecret:   cfg.WebhookSecret,
		notificationURL: cfg.NotificationURL,
	}
}

type Payer struct {
	Email string `json:"email"`
}

type PixRequest struct {
	Amount            float64
	Description       string
	PayerEmail        string
	ExternalReference string
	ExpiresAt         time.Time
}

type pixBody struct {
	TransactionAmount float64 `json:"transaction_amount"`
	Description       string  `json:"description"`
	PaymentMethodID   string  `json:"payment_method_id"`
	Payer             Payer   `json:"payer"`
	ExternalReference string  `json:"external_reference"`
	NotificationURL   string  `json:"notification_url,omitempty"`
	DateOfExpiration  string  `json:"date_of_expiration"`
}

type TransactionData struct {
	QRCode       string `json:"qr_code"`
	QRCodeBase64 string `json:"qr_code_base64"`
	TicketURL    string `json:"ticket_url"`
}

// Payment é o recurso /v1/payments (só os campos usados aqui)
type Payment struct {
	ID                 int64   `json:"id"`
	Status             string  `json:"status"`
	StatusDetail       string  `json:"status_detail"`
	ExternalReference  string  `json:"external_reference"`
	TransactionAmount  float64 `json:"transaction_amount"`
	PaymentMethodID    string  `json:"payment_method_id"`
	DateOfExpiration   string  `json:"date_of_expiration"`
	PointOfInteraction struct {
		TransactionData TransactionData `json:"transaction_data"`
	} `json:"point_of_interaction"`
}

func (p Payment) IDString() string {
	return strconv.FormatInt(p.ID, 10)
}

// CreatePix cria a cobrança PIX. A referência externa serve também de
// chave de idempotência: repetir a chamada não gera outra cobrança.
func (c *Client) CreatePix(ctx context.Context, req PixRequest) (*Payment, error) {
	body := pixBody{
		TransactionAmount: req.Amount,
		Description:       req.Description,
		PaymentMethodID:   "pix",
		Payer:             Payer{Email: req.PayerEmail},
		ExternalReference: req.ExternalReference,
		NotificationURL:   c.notificationURL,
		DateOfExpiration:  req.ExpiresAt.Format(dateLayout),
	}

	var out Payment
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("X-Idempotency-Key", req.ExternalReference).
		SetBody(body).
		SetResult(&out).
		Post("/v1/payments")
	if err != nil {
		return nil, fmt.Errorf("mercadopago create pix: %w", err)
	}
	if resp.IsError() {
		return nil, &APIError{StatusCode: resp.StatusCode(), Body: resp.String()}
	}
	return &out, nil
}

type PreferenceRequest struct {
	Title             string
	Amount            float64
	PayerEmail        string
	ExternalReference string
	SuccessURL        string
	FailureURL        string
	PendingURL        string
}

type preferenceItem struct {
	ID         string  `json:"id"`
	Title      string  `json:"title"`
	Quantity   int     `json:"quantity"`
	UnitPrice  float64 `json:"unit_price"`
	CurrencyID string  `json:"currency_id"`
}

type preferenceBody struct {
	Items             []preferenceItem       `json:"items"`
	Payer             Payer                  `json:"payer"`
	ExternalReference string                 `json:"external_reference"`
	NotificationURL   string                 `json:"notification_url,omitempty"`
	BackURLs          map[string]string      `json:"back_urls"`
	AutoReturn        string                 `json:"auto_return"`
	PaymentMethods    map[string]interface{} `json:"payment_methods"`
}

type Preference struct {
	ID               string `json:"id"`
	InitPoint        string `json:"init_point"`
	SandboxInitPoint string `json:"sandbox_init_point"`
}

// CreatePreference abre um Checkout Pro restrito a cartão
func (c *Client) CreatePreference(ctx context.Context, req PreferenceRequest) (*Preference, error) {
	body := preferenceBody{
		Items: []preferenceItem{{
			ID:         "pro",
			Title:      req.Title,
			Quantity:   1,
			UnitPrice:  req.Amount,
			CurrencyID: "BRL",
		}},
		Payer:             Payer{Email: req.PayerEmail},
		ExternalReference: req.ExternalReference,
		NotificationURL:   c.notificationURL,
		BackURLs: map[string]string{
			"success": req.SuccessURL,
			"failure": req.FailureURL,
			"pending": req.PendingURL,
		},
		AutoReturn: "approved",
		PaymentMethods: map[string]interface{}{
			"excluded_payment_types": []map[string]string{{"id": "ticket"}, {"id": "bank_transfer"}},
			"installments":           1,
		},
	}

	var out Preference
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("X-Idempotency-Key", req.ExternalReference).
		SetBody(body).
		SetResult(&out).
		Post("/checkout/preferences")
	if err != nil {
		return nil, fmt.Errorf("mercadopago create preference: %w", err)
	}
	if resp.IsError() {
		return nil, &APIError{StatusCode: resp.StatusCode(), Body: resp.String()}
	}
	return &out, nil
}

func (c *Client) GetPayment(ctx context.Context, id string) (*Payment, error) {
	var out Payment
	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParam("id", id).
		SetResult(&out).
		Get("/v1/payments/{id}")
	if err != nil {
		return nil, fmt.Errorf("mercadopago get payment: %w", err)
	}
	if resp.IsError() {
		return nil, &APIError{StatusCode: resp.StatusCode(), Body: resp.String()}
	}
	return &out, nil
}

// FetchStatus permite que o ledger de pagamentos consulte cobranças pendentes
func (c *Client) FetchStatus(ctx context.Context, externalID string) (payment.Status, error) {
	p, err := c.GetPayment(ctx, externalID)
	if err != nil {
		return "", err
	}
	status, ok := payment.MapMercadoPagoStatus(p.Status)
	if !ok {
		return "", fmt.Errorf("mercadopago: status desconhecido %q", p.Status)
	}
	return status, nil
}
