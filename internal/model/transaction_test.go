package model

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestSameDay(t *testing.T) {
	manila := time.FixedZone("PHT", 8*3600)
	base := time.Date(2025, 3, 14, 9, 30, 12, 345_000_000, manila)

	tests := []struct {
		name  string
		other time.Time
		want  bool
	}{
		{"same instant", base, true},
		{"midnight same date", time.Date(2025, 3, 14, 0, 0, 0, 0, manila), true},
		{"last millisecond", time.Date(2025, 3, 14, 23, 59, 59, 999_000_000, manila), true},
		{"next day", time.Date(2025, 3, 15, 0, 0, 0, 0, manila), false},
		{"utc still same local date", time.Date(2025, 3, 14, 1, 0, 0, 0, time.UTC), true},
		{"utc previous local date", time.Date(2025, 3, 13, 15, 0, 0, 0, time.UTC), false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, SameDay(base, tt.other), tt.name)
	}
}

func TestLedgerEntryIsPayment(t *testing.T) {
	assert.True(t, LedgerEntry{Remarks: "Payroll Deduction Payment"}.IsPayment())
	assert.True(t, LedgerEntry{Remarks: "payment via POS"}.IsPayment())
	assert.False(t, LedgerEntry{Remarks: "Monthly dues"}.IsPayment())
}

func TestPaymentGross(t *testing.T) {
	p := Payment{Amount: decimal.RequireFromString("100.00"), Discount: decimal.RequireFromString("10")}
	assert.Equal(t, "110.00", p.Gross().StringFixed(2))
}

func TestRowErrorMessage(t *testing.T) {
	e := RowError{CardNumber: "100234", FullName: "DELA CRUZ, JUAN", Reason: "Duplicate payment detected"}
	assert.Equal(t, "Error processing row: 100234 DELA CRUZ, JUAN - Duplicate payment detected.", e.Error())

	e = RowError{FullName: "SANTOS, ANA", Reason: "Serials not found"}
	assert.Equal(t, "Error processing row: SANTOS, ANA - Serials not found.", e.Error())
}

func TestBatchOutcomeMerge(t *testing.T) {
	var total BatchOutcome
	total.Applied()
	total.Fail(RowError{Reason: "a"})

	other := BatchOutcome{Processed: 2, Errors: []RowError{{Reason: "b"}}}
	total.Merge(other)

	assert.Equal(t, 3, total.Processed)
	assert.Len(t, total.Errors, 2)
	assert.Equal(t, "a", total.Errors[0].Reason)
	assert.Equal(t, "b", total.Errors[1].Reason)
}
