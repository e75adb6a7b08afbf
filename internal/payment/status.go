package payment

import (
	"errors"
	"fmt"
	"strings"
)

var ErrInvalidTransition = errors.New("transição de status inválida")

var transitions = map[Status][]Status{
	StatusPending:  {StatusApproved, StatusRejected, StatusCancelled, StatusExpired},
	StatusApproved: {StatusRefunded},
}

// Transition valida a mudança de status. Repetir o status atual não muda
// nada (changed=false) e não é erro: webhooks chegam duplicados.
func Transition(from, to Status) (bool, error) {
	if from == to {
		return false, nil
	}
	for _, allowed := range transitions[from] {
		if allowed == to {
			return true, nil
		}
	}
	return false, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
}

// cardRetryApproved reconhece a aprovação de uma nova tentativa no checkout
// de cartão: depois de uma recusa o comprador tenta outro cartão, o que gera
// outro pagamento no provedor com a mesma referência externa.
func cardRetryApproved(p Payment, to Status, externalID string) bool {
	return p.Method == MethodCard &&
		p.Status == StatusRejected &&
		to == StatusApproved &&
		externalID != "" &&
		externalID != p.ExternalID
}

// MapMercadoPagoStatus traduz o status devolvido pela API do Mercado Pago
func MapMercadoPagoStatus(s string) (Status, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "approved", "authorized":
		return StatusApproved, true
	case "pending", "in_process", "in_mediation":
		return StatusPending, true
	case "rejected":
		return StatusRejected, true
	case "cancelled":
		return StatusCancelled, true
	case "refunded", "charged_back":
		return StatusRefunded, true
	}
	return "", false
}
