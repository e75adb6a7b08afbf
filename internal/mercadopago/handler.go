package mercadopago

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/textocerto/TextoCerto-Back/internal/logs"
	"github.com/textocerto/TextoCerto-Back/internal/payment"
	"github.com/textocerto/TextoCerto-Back/internal/user"
)

const pixTTL = 30 * time.Minute

// Settings reúne o que os handlers precisam além do cliente
type Settings struct {
	PriceCents int64
	PlanDays   int
	DomainURL  string
}

var (
	client   *Client
	settings Settings
)

// Setup registra o cliente usado pelos handlers e pelo ledger de pagamentos
func Setup(c *Client, s Settings) {
	client = c
	settings = s
	payment.RegisterFetcher(payment.ProviderMercadoPago, c)
}

func payerEmail(c *gin.Context, userID string) string {
	if u, err := user.GetByID(userID); err == nil && u.Email != "" {
		return u.Email
	}
	return c.GetString("user_email")
}

// CreatePixPayment POST /api/billing/mercadopago/pix
func CreatePixPayment(c *gin.Context) {
	route := c.FullPath()
	userID := c.GetString("user_id")

	if client == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Pagamento via PIX indisponível"})
		return
	}

	p := payment.NewPending(userID, payment.ProviderMercadoPago, payment.MethodPix, settings.PriceCents, settings.PlanDays)
	expiresAt := time.Now().Add(pixTTL)
	p.ExpiresAt = &expiresAt
	if err := payment.Create(&p); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erro ao registrar o pagamento"})
		logs.LogJSON("ERROR", "Error creating local payment", map[string]interface{}{
			"error":  err.Error(),
			"route":  route,
			"userID": userID,
		})
		return
	}

	mp, err := client.CreatePix(c.Request.Context(), PixRequest{
		Amount:            p.Amount(),
		Description:       "TextoCerto Pro",
		PayerEmail:        payerEmail(c, userID),
		ExternalReference: p.ID,
		ExpiresAt:         expiresAt,
	})
	if err != nil {
		if _, cerr := payment.Reconcile(c.Request.Context(), p.ID, payment.StatusCancelled, ""); cerr != nil {
			logs.LogJSON("ERROR", "Error cancelling local payment", map[string]interface{}{
				"error":     cerr.Error(),
				"paymentID": p.ID,
			})
		}
		c.JSON(http.StatusBadGateway, gin.H{"error": "Não foi possível gerar o PIX. Tente novamente."})
		logs.LogJSON("ERROR", "Mercado Pago PIX creation failed", map[string]interface{}{
			"error":     err.Error(),
			"route":     route,
			"userID":    userID,
			"paymentID": p.ID,
		})
		return
	}

	if err := payment.SetExternalID(p.ID, mp.IDString(), &expiresAt); err != nil {
		logs.LogJSON("ERROR", "Error saving Mercado Pago payment id", map[string]interface{}{
			"error":     err.Error(),
			"paymentID": p.ID,
			"mpID":      mp.ID,
		})
	}

	data := mp.PointOfInteraction.TransactionData
	c.JSON(http.StatusCreated, gin.H{
		"payment_id":     p.ID,
		"status":         p.Status,
		"amount":         p.Amount(),
		"qr_code":        data.QRCode,
		"qr_code_base64": data.QRCodeBase64,
		"ticket_url":     data.TicketURL,
		"expires_at":     expiresAt,
	})
	logs.LogJSON("INFO", "PIX payment created", map[string]interface{}{
		"route":     route,
		"userID":    userID,
		"paymentID": p.ID,
		"mpID":      mp.ID,
	})
}

// CreateCheckout POST /api/billing/mercadopago/checkout
func CreateCheckout(c *gin.Context) {
	route := c.FullPath()
	userID := c.GetString("user_id")

	if client == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Pagamento com cartão indisponível"})
		return
	}

	p := payment.NewPending(userID, payment.ProviderMercadoPago, payment.MethodCard, settings.PriceCents, settings.PlanDays)
	if err := payment.Create(&p); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erro ao registrar o pagamento"})
		logs.LogJSON("ERROR", "Error creating local payment", map[string]interface{}{
			"error":  err.Error(),
			"route":  route,
			"userID": userID,
		})
		return
	}

	back := settings.DomainURL + "/planos?payment=" + p.ID
	pref, err := client.CreatePreference(c.Request.Context(), PreferenceRequest{
		Title:             "TextoCerto Pro",
		Amount:            p.Amount(),
		PayerEmail:        payerEmail(c, userID),
		ExternalReference: p.ID,
		SuccessURL:        back + "&status=success",
		FailureURL:        back + "&status=failure",
		PendingURL:        back + "&status=pending",
	})
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "Não foi possível iniciar o checkout. Tente novamente."})
		logs.LogJSON("ERROR", "Mercado Pago preference creation failed", map[string]interface{}{
			"error":     err.Error(),
			"route":     route,
			"userID":    userID,
			"paymentID": p.ID,
		})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"payment_id":    p.ID,
		"preference_id": pref.ID,
		"init_point":    pref.InitPoint,
	})
}

type notification struct {
	ID     json.Number `json:"id"`
	Type   string      `json:"type"`
	Action string      `json:"action"`
	Data   struct {
		ID json.Number `json:"id"`
	} `json:"data"`
}

// HandleWebhook POST /api/webhooks/mercadopago
func HandleWebhook(c *gin.Context) {
	const maxBodyBytes = int64(65536)
	route := c.FullPath()
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBodyBytes)

	raw, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Falha ao ler o corpo"})
		return
	}

	var n notification
	if len(raw) > 0 {
		decoder := json.NewDecoder(bytes.NewReader(raw))
		decoder.UseNumber()
		_ = decoder.Decode(&n)
	}

	dataID := c.Query("data.id")
	if dataID == "" {
		dataID = n.Data.ID.String()
	}
	topic := n.Type
	if topic == "" {
		topic = c.Query("type")
	}

	if client == nil || VerifySignature(client.webhookSecret, c.GetHeader("x-signature"), c.GetHeader("x-request-id"), dataID) != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Assinatura inválida"})
		logs.LogJSON("WARN", "Mercado Pago webhook rejected", map[string]interface{}{
			"route":     route,
			"dataID":    dataID,
			"requestID": c.GetHeader("x-request-id"),
		})
		return
	}

	if topic != "payment" || dataID == "" {
		c.JSON(http.StatusOK, gin.H{"received": true, "ignored": true})
		return
	}

	eventID := n.ID.String()
	if eventID == "" {
		eventID = c.GetHeader("x-request-id")
	}
	if err := processPayment(c, dataID, eventID); err != nil {
		logs.LogJSON("ERROR", "Mercado Pago webhook processing failed", map[string]interface{}{
			"error":   err.Error(),
			"route":   route,
			"dataID":  dataID,
			"eventID": eventID,
		})
		if eventID != "" {
			if ferr := payment.ForgetEvent(payment.ProviderMercadoPago, eventID); ferr != nil {
				logs.LogJSON("ERROR", "Error releasing Mercado Pago event", map[string]interface{}{
					"error":   ferr.Error(),
					"eventID": eventID,
				})
			}
		}
	}

	c.JSON(http.StatusOK, gin.H{"received": true})
}

func processPayment(c *gin.Context, mpID, eventID string) error {
	ctx := c.Request.Context()

	if eventID != "" {
		first, err := payment.MarkEventProcessed(payment.ProviderMercadoPago, eventID)
		if err != nil {
			return err
		}
		if !first {
			logs.LogJSON("INFO", "Duplicate Mercado Pago event skipped", map[string]interface{}{
				"eventID": eventID,
				"mpID":    mpID,
			})
			return nil
		}
	}

	mp, err := client.GetPayment(ctx, mpID)
	if err != nil {
		return err
	}
	status, ok := payment.MapMercadoPagoStatus(mp.Status)
	if !ok {
		logs.LogJSON("WARN", "Unknown Mercado Pago status", map[string]interface{}{
			"mpID":   mpID,
			"status": mp.Status,
		})
		return nil
	}
	if mp.ExternalReference == "" {
		return errors.New("external_reference ausente")
	}

	out, err := payment.Reconcile(ctx, mp.ExternalReference, status, mp.IDString())
	if errors.Is(err, payment.ErrInvalidTransition) {
		logs.LogJSON("WARN", "Out-of-order Mercado Pago status ignored", map[string]interface{}{
			"paymentID": mp.ExternalReference,
			"mpID":      mpID,
			"status":    status,
		})
		return nil
	}
	if err != nil {
		return err
	}

	logs.LogJSON("INFO", "Mercado Pago webhook applied", map[string]interface{}{
		"paymentID": out.Payment.ID,
		"userID":    out.Payment.UserID,
		"status":    out.Payment.Status,
		"changed":   out.Changed,
	})
	return nil
}
