// Package sheets holds the outbound port used to mirror bill exports into a
// spreadsheet service.
package sheets

import (
	"context"

	"billtracker/internal/export"
)

// ReportWriter replaces the mirrored tabs with the content of a report and
// returns a reference to what was written.
type ReportWriter interface {
	WriteReport(ctx context.Context, r export.Report) (ref string, err error)
}
