package stripe

import (
	"github.com/stripe/stripe-go/v78"
	"github.com/stripe/stripe-go/v78/customer"

	"github.com/textocerto/TextoCerto-Back/internal/database"
	"github.com/textocerto/TextoCerto-Back/internal/user"
)

// Settings vem da configuração carregada em main
type Settings struct {
	SecretKey     string
	WebhookSecret string
	PriceID       string
	DomainURL     string
}

var settings Settings

func Setup(s Settings) {
	settings = s
	stripe.Key = s.SecretKey
}

func enabled() bool {
	return settings.SecretKey != "" && settings.PriceID != ""
}

// ensureCustomer devolve o customer Stripe do usuário, criando-o na primeira vez
func ensureCustomer(u user.User) (string, error) {
	if u.StripeCustomerID != "" {
		return u.StripeCustomerID, nil
	}

	params := &stripe.CustomerParams{
		Email: stripe.String(u.Email),
		Metadata: map[string]string{
			"user_id": u.ID,
		},
	}
	if u.Name != "" {
		params.Name = stripe.String(u.Name)
	}
	cust, err := customer.New(params)
	if err != nil {
		return "", err
	}

	if err := database.DB.Model(&user.User{}).Where("id = ?", u.ID).Update("stripe_customer_id", cust.ID).Error; err != nil {
		return "", err
	}
	return cust.ID, nil
}
