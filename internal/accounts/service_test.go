package accounts

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleared-dev/payroll/internal/model"
)

type mockDirectory struct {
	accounts  []model.Account
	err       error
	cardCalls int
	nameCalls int
}

func (m *mockDirectory) AccountsByCardNumber(_ context.Context, card string) ([]model.Account, error) {
	m.cardCalls++
	if m.err != nil {
		return nil, m.err
	}
	var out []model.Account
	for _, a := range m.accounts {
		if a.CardNumber == card {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *mockDirectory) AccountsByCardName(_ context.Context, name string) ([]model.Account, error) {
	m.nameCalls++
	if m.err != nil {
		return nil, m.err
	}
	var out []model.Account
	for _, a := range m.accounts {
		if a.CardName == name {
			out = append(out, a)
		}
	}
	return out, nil
}

func directory() *mockDirectory {
	return &mockDirectory{accounts: []model.Account{
		{SerialNumber: "S-1", CardNumber: "100234", CardName: "DELA CRUZ, JUAN"},
		{SerialNumber: "S-2", CardNumber: "100235", CardName: "SANTOS, ANA"},
		{SerialNumber: "S-3", CardNumber: "100236", CardName: "REYES, JOSE"},
		{SerialNumber: "S-4", CardNumber: "100237", CardName: "REYES, JOSE"},
	}}
}

func TestResolve_ByCardNumber(t *testing.T) {
	dir := directory()
	acct, err := NewResolver(dir).Resolve(context.Background(), "100235", "SOMEONE ELSE")
	require.NoError(t, err)
	assert.Equal(t, "S-2", acct.SerialNumber)
	assert.Equal(t, 0, dir.nameCalls, "name is not consulted when the card matches")
}

func TestResolve_CardWinsOverName(t *testing.T) {
	acct, err := NewResolver(directory()).Resolve(context.Background(), "100234", "SANTOS, ANA")
	require.NoError(t, err)
	assert.Equal(t, "S-1", acct.SerialNumber)
}

func TestResolve_FallsBackToName(t *testing.T) {
	acct, err := NewResolver(directory()).Resolve(context.Background(), "999999", "SANTOS, ANA")
	require.NoError(t, err)
	assert.Equal(t, "S-2", acct.SerialNumber)

	acct, err = NewResolver(directory()).Resolve(context.Background(), "", "DELA CRUZ, JUAN")
	require.NoError(t, err)
	assert.Equal(t, "S-1", acct.SerialNumber)
}

func TestResolve_NotFound(t *testing.T) {
	_, err := NewResolver(directory()).Resolve(context.Background(), "999999", "NOBODY")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = NewResolver(directory()).Resolve(context.Background(), "", "")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestResolve_AmbiguousName(t *testing.T) {
	_, err := NewResolver(directory()).Resolve(context.Background(), "", "REYES, JOSE")
	require.ErrorIs(t, err, ErrAmbiguous)
	assert.Contains(t, err.Error(), "S-3")
	assert.Contains(t, err.Error(), "S-4")
}

func TestResolve_SameNameDifferentCards(t *testing.T) {
	r := NewResolver(directory())
	a, err := r.Resolve(context.Background(), "100236", "REYES, JOSE")
	require.NoError(t, err)
	b, err := r.Resolve(context.Background(), "100237", "REYES, JOSE")
	require.NoError(t, err)
	assert.NotEqual(t, a.SerialNumber, b.SerialNumber)
}

func TestResolve_DirectoryError(t *testing.T) {
	dir := directory()
	dir.err = errors.New("connection reset")
	_, err := NewResolver(dir).Resolve(context.Background(), "100234", "")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
	assert.Contains(t, err.Error(), "connection reset")
}
