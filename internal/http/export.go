package http

import (
	"bytes"
	"net/http"
	"strings"

	applog "townledger/internal/log"
	"townledger/internal/report"
)

const (
	contentTypeCSV  = "text/csv; charset=utf-8"
	contentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// writeTable sends t as a file download in the requested format.
func writeTable(w http.ResponseWriter, r *http.Request, format exportFormat, t report.Table) {
	var buf bytes.Buffer
	var contentType string
	switch format {
	case formatXLSX:
		contentType = contentTypeXLSX
		if err := report.WriteXLSX(&buf, t); err != nil {
			fail(w, r, applog.OpRead, err)
			return
		}
	default:
		contentType = contentTypeCSV
		if err := report.WriteCSV(&buf, t); err != nil {
			fail(w, r, applog.OpRead, err)
			return
		}
	}
	NewResponse().
		Header("Content-Disposition", `attachment; filename="`+fileName(t.Name)+"."+string(format)+`"`).
		Body(contentType, buf.Bytes()).
		Write(w)
}

// fileName turns a table name into a lower-case, dash separated file name.
func fileName(name string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			dash = false
		case !dash && b.Len() > 0:
			b.WriteByte('-')
			dash = true
		}
	}
	out := strings.TrimSuffix(b.String(), "-")
	if out == "" {
		return "export"
	}
	return out
}
