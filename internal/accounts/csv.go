package accounts

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/cleared-dev/payroll/internal/model"
)

// Header is the CSV header of a card directory export.
const Header = "sno,cardno,cardname"

const (
	numFields   = 3
	colSerial   = 0
	colCardNo   = 1
	colCardName = 2
)

// ReadAccounts reads a card directory export.
func ReadAccounts(r io.Reader) ([]model.Account, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = numFields

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading accounts CSV: %w", err)
	}

	if len(records) == 0 {
		return nil, nil
	}
	if got := strings.Join(records[0], ","); !strings.EqualFold(strings.TrimPrefix(got, "\ufeff"), Header) {
		return nil, fmt.Errorf("unexpected header %q, want %q", got, Header)
	}

	var accounts []model.Account
	for i, rec := range records[1:] {
		acct, err := UnmarshalAccount(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		accounts = append(accounts, acct)
	}
	return accounts, nil
}

// UnmarshalAccount converts a CSV row to an Account.
func UnmarshalAccount(record []string) (model.Account, error) {
	if len(record) != numFields {
		return model.Account{}, fmt.Errorf("expected %d fields, got %d", numFields, len(record))
	}
	if record[colSerial] == "" {
		return model.Account{}, fmt.Errorf("empty serial number")
	}
	return model.Account{
		SerialNumber: record[colSerial],
		CardNumber:   record[colCardNo],
		CardName:     record[colCardName],
	}, nil
}
