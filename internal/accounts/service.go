package accounts

import (
	"context"
	"errors"
	"fmt"

	"github.com/cleared-dev/payroll/internal/model"
)

var (
	// ErrNotFound means neither the card number nor the card name matched.
	ErrNotFound = errors.New("serials not found")
	// ErrAmbiguous means the winning predicate matched more than one account.
	ErrAmbiguous = errors.New("ambiguous account match")
)

// Directory looks up card serials. Each method returns every match.
type Directory interface {
	AccountsByCardNumber(ctx context.Context, cardNumber string) ([]model.Account, error)
	AccountsByCardName(ctx context.Context, cardName string) ([]model.Account, error)
}

// Resolver maps a spreadsheet row's card number and name to one account.
// A card number match takes precedence; the name is only consulted when the
// card number matches nothing. Nothing is cached between calls.
type Resolver struct {
	dir Directory
}

// NewResolver creates a Resolver over a directory.
func NewResolver(dir Directory) *Resolver {
	return &Resolver{dir: dir}
}

// Resolve returns the single matching account, ErrNotFound, or ErrAmbiguous.
func (r *Resolver) Resolve(ctx context.Context, cardNumber, fullName string) (model.Account, error) {
	if cardNumber != "" {
		byCard, err := r.dir.AccountsByCardNumber(ctx, cardNumber)
		if err != nil {
			return model.Account{}, fmt.Errorf("looking up card %s: %w", cardNumber, err)
		}
		if len(byCard) > 0 {
			return single(byCard, "card number "+cardNumber)
		}
	}

	if fullName != "" {
		byName, err := r.dir.AccountsByCardName(ctx, fullName)
		if err != nil {
			return model.Account{}, fmt.Errorf("looking up name %q: %w", fullName, err)
		}
		if len(byName) > 0 {
			return single(byName, "card name "+fullName)
		}
	}

	return model.Account{}, ErrNotFound
}

func single(matches []model.Account, what string) (model.Account, error) {
	if len(matches) > 1 {
		serials := make([]string, len(matches))
		for i, m := range matches {
			serials[i] = m.SerialNumber
		}
		return model.Account{}, fmt.Errorf("%w: %s matches serials %v", ErrAmbiguous, what, serials)
	}
	return matches[0], nil
}
