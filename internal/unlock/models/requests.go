package models

import (
	"strings"

	dErrors "vaultline/pkg/domain-errors"
)

type BeginChallengeRequest struct {
	EntityID string `json:"entity_id"`
}

func (r *BeginChallengeRequest) Normalize() {
	r.EntityID = strings.TrimSpace(r.EntityID)
}

func (r *BeginChallengeRequest) Validate() error {
	if r.EntityID == "" {
		return dErrors.New(dErrors.CodeValidation, "entity_id is required")
	}
	return nil
}

// SubmitCVVRequest is not trimmed: the code must be exactly three digits as sent.
type SubmitCVVRequest struct {
	CVV string `json:"cvv"`
}

type SubmitOTPRequest struct {
	OTP string `json:"otp"`
}

// IsDigits reports whether s is exactly n ASCII digits.
func IsDigits(s string, n int) bool {
	if len(s) != n {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
