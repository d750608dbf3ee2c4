package sheet

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/unicode/norm"
)

// ErrInvalidAmount marks a deduction cell that is not a positive number.
var ErrInvalidAmount = errors.New("invalid payroll deduction amount")

// cleanCell trims, composes to NFC and collapses inner whitespace runs so
// names typed with stray spaces still match the directory.
func cleanCell(s string) string {
	return strings.Join(strings.Fields(norm.NFC.String(s)), " ")
}

// parseAmount coerces a deduction cell to a decimal. Thousands separators,
// a peso sign and surrounding spaces are tolerated.
func parseAmount(raw string) (decimal.Decimal, error) {
	s := strings.NewReplacer(",", "", "₱", "", " ", "").Replace(strings.TrimSpace(raw))
	s = strings.TrimPrefix(strings.TrimPrefix(s, "PHP"), "Php")
	if s == "" {
		return decimal.Zero, fmt.Errorf("%w: empty", ErrInvalidAmount)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidAmount, raw)
	}
	if d.IsNegative() {
		// Reversals go through manual adjustment, never through this job.
		return decimal.Zero, fmt.Errorf("%w: %s (reversals are not posted)", ErrInvalidAmount, d.String())
	}
	if d.IsZero() {
		return decimal.Zero, fmt.Errorf("%w: %s", ErrInvalidAmount, d.String())
	}
	return d, nil
}
