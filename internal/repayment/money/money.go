// Package money carries currency amounts as decimals and converts them to and
// from the "$#,##0.00" display strings used at the API boundary.
package money

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	dErrors "vaultline/pkg/domain-errors"
)

// Money is an amount in the account currency. The zero value is $0.00.
type Money struct {
	Amount decimal.Decimal
}

var Zero = Money{Amount: decimal.Zero}

func New(amount decimal.Decimal) Money {
	return Money{Amount: amount}
}

func FromFloat(f float64) Money {
	return Money{Amount: decimal.NewFromFloat(f)}
}

// ParseCurrency drops every rune that is not an ASCII digit or '.', then
// parses what remains. Any failure yields zero. "$2,500.00" is 2500.
func ParseCurrency(s string) Money {
	var b strings.Builder
	for _, r := range s {
		if (r >= '0' && r <= '9') || r == '.' {
			b.WriteRune(r)
		}
	}
	cleaned := b.String()
	if cleaned == "" {
		return Zero
	}
	amount, err := decimal.NewFromString(cleaned)
	if err != nil {
		return Zero
	}
	return Money{Amount: amount}
}

var plainAmount = regexp.MustCompile(`^(\d+(\.\d*)?|\.\d+)$`)

// ParseStrict accepts only a plain non-negative number such as "75", "75.5",
// "75." or ".50", after trimming surrounding space.
func ParseStrict(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if !plainAmount.MatchString(s) {
		return Zero, dErrors.New(dErrors.CodeValidation, "Please enter a valid amount")
	}
	if strings.HasPrefix(s, ".") {
		s = "0" + s
	}
	s = strings.TrimSuffix(s, ".")
	amount, err := decimal.NewFromString(s)
	if err != nil {
		return Zero, dErrors.Wrap(err, dErrors.CodeValidation, "Please enter a valid amount")
	}
	return Money{Amount: amount}, nil
}

func (m Money) Add(o Money) Money {
	return Money{Amount: m.Amount.Add(o.Amount)}
}

// MulRate scales m by rate without rounding.
func (m Money) MulRate(rate decimal.Decimal) Money {
	return Money{Amount: m.Amount.Mul(rate)}
}

func (m Money) LessThan(o Money) bool {
	return m.Amount.LessThan(o.Amount)
}

func (m Money) Equal(o Money) bool {
	return m.Amount.Equal(o.Amount)
}

// Round rounds half away from zero to cents.
func (m Money) Round() Money {
	return Money{Amount: m.Amount.Round(2)}
}

// String formats as "$1,234.56", or "-$1,234.56" for negative amounts.
func (m Money) String() string {
	fixed := m.Amount.Round(2).StringFixed(2)
	sign := ""
	if strings.HasPrefix(fixed, "-") {
		fixed = fixed[1:]
		if strings.Trim(fixed, "0.") != "" {
			sign = "-"
		}
	}
	whole, frac, _ := strings.Cut(fixed, ".")
	return sign + "$" + group(whole) + "." + frac
}

func group(digits string) string {
	if len(digits) <= 3 {
		return digits
	}
	var b strings.Builder
	lead := len(digits) % 3
	if lead > 0 {
		b.WriteString(digits[:lead])
	}
	for i := lead; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}

func (m Money) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}
