package sheets

import (
	"context"

	"townledger/internal/report"
)

// Sink receives whole report tables. Writing a table replaces whatever the
// sink held under the same name.
type Sink interface {
	WriteTable(ctx context.Context, t report.Table) error
}
