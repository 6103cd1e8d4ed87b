// Package sheets lays a report out as spreadsheet rows and defines where
// those rows go.
package sheets

import (
	"context"
)

// ReportWriter appends a block of rows to the export sheet and returns a
// reference to where they landed.
type ReportWriter interface {
	AppendRows(ctx context.Context, rows [][]any) (ref string, err error)
}
