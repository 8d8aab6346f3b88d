// Package calculator holds the pure repayment rules: minimum payments,
// totals with processing fees, and custom amount validation.
package calculator

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"vaultline/internal/repayment/money"
	"vaultline/pkg/domain"

	dErrors "vaultline/pkg/domain-errors"
)

type PaymentType string

const (
	PaymentMinimum PaymentType = "minimum"
	PaymentFull    PaymentType = "full"
	PaymentPartial PaymentType = "partial"
)

func ParsePaymentType(s string) (PaymentType, error) {
	switch t := PaymentType(strings.ToLower(strings.TrimSpace(s))); t {
	case PaymentMinimum, PaymentFull, PaymentPartial:
		return t, nil
	}
	return "", dErrors.New(dErrors.CodeValidation, fmt.Sprintf("payment_type must be minimum, full or partial, got %q", s))
}

// MinimumPayment is ParseCurrency(balance) * rate, rounded to cents.
func MinimumPayment(balance string, rate decimal.Decimal) string {
	return money.ParseCurrency(balance).MulRate(rate).Round().String()
}

// TotalAmount picks the base amount for paymentType and adds fee. A partial
// payment with a blank or unparseable customAmount counts as zero.
func TotalAmount(paymentType PaymentType, minimum, full, customAmount string, fee money.Money) (string, error) {
	var base money.Money
	switch paymentType {
	case PaymentMinimum:
		base = money.ParseCurrency(minimum)
	case PaymentFull:
		base = money.ParseCurrency(full)
	case PaymentPartial:
		base = money.ParseCurrency(customAmount)
	default:
		return "", dErrors.New(dErrors.CodeValidation, fmt.Sprintf("unknown payment type %q", paymentType))
	}
	return base.Add(fee).Round().String(), nil
}

type ValidationStatus string

const (
	StatusValid        ValidationStatus = "valid"
	StatusEmpty        ValidationStatus = "empty"
	StatusNotANumber   ValidationStatus = "not_a_number"
	StatusBelowMinimum ValidationStatus = "below_minimum"
)

// ValidationResult describes a custom amount. Empty input is not an error.
type ValidationResult struct {
	Status  ValidationStatus `json:"status"`
	Message string           `json:"message,omitempty"`
}

// OK reports whether the result should not block submission.
func (r ValidationResult) OK() bool {
	return r.Status == StatusValid || r.Status == StatusEmpty
}

// ValidateCustomAmount checks amount against the minimum payment. The lower
// bound is inclusive.
func ValidateCustomAmount(amount, minimumPayment string) ValidationResult {
	if strings.TrimSpace(amount) == "" {
		return ValidationResult{Status: StatusEmpty}
	}
	value, err := money.ParseStrict(amount)
	if err != nil {
		return ValidationResult{Status: StatusNotANumber, Message: "Please enter a valid amount"}
	}
	minimum := money.ParseCurrency(minimumPayment)
	if value.LessThan(minimum) {
		return ValidationResult{
			Status:  StatusBelowMinimum,
			Message: "Amount must be at least " + minimum.Round().String(),
		}
	}
	return ValidationResult{Status: StatusValid}
}

// Quote is derived from a balance on demand and never stored.
type Quote struct {
	EntityID       domain.EntityID `json:"entity_id"`
	CurrentBalance string          `json:"current_balance"`
	MinimumPayment string          `json:"minimum_payment"`
	FullBalance    string          `json:"full_balance"`
	ProcessingFee  string          `json:"processing_fee"`
	DueDate        string          `json:"due_date"`
}

// Preview is the outcome of a proposed payment.
type Preview struct {
	EntityID      domain.EntityID  `json:"entity_id"`
	PaymentType   PaymentType      `json:"payment_type"`
	ProcessingFee string           `json:"processing_fee"`
	TotalAmount   string           `json:"total_amount"`
	Validation    ValidationResult `json:"validation"`
}

// Calculator applies a policy table to individual entities.
type Calculator struct {
	policies Policies
}

func New(policies Policies) (*Calculator, error) {
	if policies == nil {
		return nil, errors.New("repayment policies are required")
	}
	if err := policies.Validate(); err != nil {
		return nil, err
	}
	return &Calculator{policies: policies}, nil
}

func (c *Calculator) policyFor(id domain.EntityID) (Policy, error) {
	kind, ok := id.Kind()
	if !ok {
		return Policy{}, dErrors.New(dErrors.CodeInvalidInput, "entity id has no known kind prefix")
	}
	return c.policies.For(kind)
}

func (c *Calculator) Quote(id domain.EntityID, balance, dueDate string) (Quote, error) {
	policy, err := c.policyFor(id)
	if err != nil {
		return Quote{}, err
	}
	full := money.ParseCurrency(balance).Round().String()
	return Quote{
		EntityID:       id,
		CurrentBalance: full,
		MinimumPayment: MinimumPayment(balance, policy.MinimumRate),
		FullBalance:    full,
		ProcessingFee:  policy.ProcessingFee.String(),
		DueDate:        dueDate,
	}, nil
}

// Preview totals a payment against balance. Partial payments also carry the
// custom amount validation.
func (c *Calculator) Preview(id domain.EntityID, balance string, paymentType PaymentType, customAmount string) (Preview, error) {
	quote, err := c.Quote(id, balance, "")
	if err != nil {
		return Preview{}, err
	}
	policy, err := c.policyFor(id)
	if err != nil {
		return Preview{}, err
	}
	total, err := TotalAmount(paymentType, quote.MinimumPayment, quote.FullBalance, customAmount, policy.ProcessingFee)
	if err != nil {
		return Preview{}, err
	}
	validation := ValidationResult{Status: StatusValid}
	if paymentType == PaymentPartial {
		validation = ValidateCustomAmount(customAmount, quote.MinimumPayment)
	}
	return Preview{
		EntityID:      id,
		PaymentType:   paymentType,
		ProcessingFee: quote.ProcessingFee,
		TotalAmount:   total,
		Validation:    validation,
	}, nil
}
