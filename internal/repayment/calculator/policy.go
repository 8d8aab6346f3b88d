package calculator

import (
	"fmt"

	"github.com/shopspring/decimal"

	"vaultline/internal/platform/config"
	"vaultline/internal/repayment/money"
	"vaultline/pkg/domain"

	dErrors "vaultline/pkg/domain-errors"
)

// Policy is the repayment terms for one entity kind.
type Policy struct {
	MinimumRate   decimal.Decimal
	ProcessingFee money.Money
}

// Policies maps every kind to its terms. Kinds are never defaulted.
type Policies map[domain.EntityKind]Policy

func DefaultPolicies() Policies {
	return Policies{
		domain.KindCard: {MinimumRate: decimal.RequireFromString("0.03"), ProcessingFee: money.FromFloat(2.50)},
		domain.KindLoan: {MinimumRate: decimal.RequireFromString("0.05"), ProcessingFee: money.FromFloat(5.00)},
	}
}

// PoliciesFromConfig builds the table from configured rates and fees.
func PoliciesFromConfig(cfg config.Repayment) Policies {
	return Policies{
		domain.KindCard: {MinimumRate: decimal.NewFromFloat(cfg.CardMinimumRate), ProcessingFee: money.FromFloat(cfg.CardProcessingFee)},
		domain.KindLoan: {MinimumRate: decimal.NewFromFloat(cfg.LoanMinimumRate), ProcessingFee: money.FromFloat(cfg.LoanProcessingFee)},
	}
}

// Validate checks that every known kind is declared.
func (p Policies) Validate() error {
	for _, kind := range domain.Kinds() {
		if _, ok := p[kind]; !ok {
			return fmt.Errorf("no repayment policy for kind %q", kind)
		}
	}
	return nil
}

func (p Policies) For(kind domain.EntityKind) (Policy, error) {
	policy, ok := p[kind]
	if !ok {
		return Policy{}, dErrors.New(dErrors.CodeInternal, fmt.Sprintf("no repayment policy for kind %q", kind))
	}
	return policy, nil
}
