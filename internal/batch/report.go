package batch

import (
	"fmt"
	"io"

	"github.com/cleared-dev/payroll/internal/model"
)

// WriteReport prints the end-of-run summary: counts, then every collected
// error in input order.
func WriteReport(w io.Writer, files int, out model.BatchOutcome) {
	fmt.Fprintf(w, "\n Files: %d\n Payments applied: %d\n Errors: %d\n", files, out.Processed, len(out.Errors))
	if len(out.Errors) == 0 {
		return
	}
	fmt.Fprintln(w, "\n Upload Errors:")
	for _, e := range out.Errors {
		fmt.Fprintf(w, " [%s row %d] %s\n", e.Sheet, e.Row, e.Error())
	}
}
