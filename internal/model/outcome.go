package model

import (
	"fmt"
	"strings"
)

// RowError describes why one record was not applied.
type RowError struct {
	File       string
	Sheet      string
	Row        int
	CardNumber string
	FullName   string
	Reason     string
}

func (e RowError) Error() string {
	who := strings.TrimSpace(e.CardNumber + " " + e.FullName)
	return fmt.Sprintf("Error processing row: %s - %s.", who, e.Reason)
}

// BatchOutcome accumulates the result of one batch run.
type BatchOutcome struct {
	Processed int
	Errors    []RowError
}

// Applied counts one successfully posted payment.
func (o *BatchOutcome) Applied() {
	o.Processed++
}

// Fail appends a per-record error, keeping input order.
func (o *BatchOutcome) Fail(e RowError) {
	o.Errors = append(o.Errors, e)
}

// Merge folds another outcome into o.
func (o *BatchOutcome) Merge(other BatchOutcome) {
	o.Processed += other.Processed
	o.Errors = append(o.Errors, other.Errors...)
}
