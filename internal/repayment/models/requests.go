package models

import (
	"strings"

	"vaultline/internal/repayment/calculator"
)

type PreviewPaymentRequest struct {
	PaymentType  string `json:"payment_type"`
	CustomAmount string `json:"custom_amount"`
}

func (r *PreviewPaymentRequest) Normalize() {
	r.PaymentType = strings.ToLower(strings.TrimSpace(r.PaymentType))
}

func (r *PreviewPaymentRequest) Validate() error {
	_, err := calculator.ParsePaymentType(r.PaymentType)
	return err
}

// ValidateAmountRequest carries raw input; the calculator decides what parses.
type ValidateAmountRequest struct {
	Amount         string `json:"amount"`
	MinimumPayment string `json:"minimum_payment"`
}
