package google

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"townledger/internal/report"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

func TestNewFromEnv_MissingSpreadsheetID(t *testing.T) {
	t.Setenv("GOOGLE_SPREADSHEET_ID", "")

	_, err := NewFromEnv(context.Background())
	if err == nil {
		t.Fatal("expected error for missing GOOGLE_SPREADSHEET_ID")
	}
	if err.Error() != "missing GOOGLE_SPREADSHEET_ID" {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestNewFromEnv_MissingCredentials(t *testing.T) {
	t.Setenv("GOOGLE_SPREADSHEET_ID", "test-id")
	t.Setenv("GOOGLE_SERVICE_ACCOUNT_JSON", "")
	t.Setenv("GOOGLE_SERVICE_ACCOUNT_FILE", "")
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "")

	_, err := NewFromEnv(context.Background())
	if err == nil || !strings.Contains(err.Error(), "missing service account credentials") {
		t.Fatalf("expected credentials error, got %v", err)
	}
}

func TestTabName(t *testing.T) {
	tests := []struct {
		prefix, table, want string
	}{
		{"Report", "Funds", "Report Funds"},
		{"", "Bills 2024-04", "Bills 2024-04"},
		{"Report", "Defaulters 2024", "Report Defaulters 2024"},
		{"Block/A", "Funds", "Block-A Funds"},
	}
	for _, tt := range tests {
		c := New(nil, "id", tt.prefix)
		if got := c.TabName(tt.table); got != tt.want {
			t.Errorf("TabName(%q, %q) = %q, want %q", tt.prefix, tt.table, got, tt.want)
		}
	}
}

// fakeSheets records the calls the client makes against the Sheets REST API.
type fakeSheets struct {
	mu      sync.Mutex
	added   []string
	cleared int
	updates []gsheet.ValueRange
	gets    int
}

func (f *fakeSheets) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	w.Header().Set("Content-Type", "application/json")

	switch {
	case r.Method == http.MethodGet:
		f.gets++
		w.Write([]byte(`{"sheets":[{"properties":{"title":"Report Funds"}}]}`))
	case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, ":batchUpdate"):
		var req gsheet.BatchUpdateSpreadsheetRequest
		json.NewDecoder(r.Body).Decode(&req)
		for _, rq := range req.Requests {
			if rq.AddSheet != nil {
				f.added = append(f.added, rq.AddSheet.Properties.Title)
			}
		}
		w.Write([]byte(`{}`))
	case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, ":clear"):
		f.cleared++
		w.Write([]byte(`{}`))
	case r.Method == http.MethodPut:
		var vr gsheet.ValueRange
		json.NewDecoder(r.Body).Decode(&vr)
		f.updates = append(f.updates, vr)
		w.Write([]byte(`{}`))
	default:
		http.Error(w, "unexpected call", http.StatusBadRequest)
	}
}

func newTestClient(t *testing.T, f *fakeSheets) *Client {
	t.Helper()
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)

	svc, err := gsheet.NewService(context.Background(),
		goption.WithEndpoint(srv.URL+"/"),
		goption.WithHTTPClient(srv.Client()))
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return New(svc, "sheet-id", "Report")
}

func TestWriteTable(t *testing.T) {
	f := &fakeSheets{}
	c := newTestClient(t, f)
	ctx := context.Background()

	bills := report.Table{
		Name:    "Bills 2024-04",
		Columns: []string{"house_no", "owner_phone"},
		Rows:    [][]string{{"A-12", "0300"}},
	}
	if err := c.WriteTable(ctx, bills); err != nil {
		t.Fatalf("WriteTable: %v", err)
	}
	if err := c.WriteTable(ctx, report.Table{Name: "Funds", Columns: report.FundColumns}); err != nil {
		t.Fatalf("WriteTable: %v", err)
	}
	if err := c.WriteTable(ctx, bills); err != nil {
		t.Fatalf("WriteTable: %v", err)
	}

	if f.gets != 1 {
		t.Errorf("spreadsheet read %d times, want 1", f.gets)
	}
	if len(f.added) != 1 || f.added[0] != "Report Bills 2024-04" {
		t.Errorf("added tabs = %v, want only the missing one", f.added)
	}
	if f.cleared != 3 || len(f.updates) != 3 {
		t.Fatalf("cleared=%d updates=%d, want 3 each", f.cleared, len(f.updates))
	}

	vals := f.updates[0].Values
	if len(vals) != 2 || vals[0][0] != "house_no" || vals[1][1] != "0300" {
		t.Fatalf("unexpected values: %v", vals)
	}
}

func TestWriteTableWithoutService(t *testing.T) {
	c := New(nil, "id", "Report")
	if err := c.WriteTable(context.Background(), report.Table{Name: "Funds"}); err == nil {
		t.Fatal("expected error without a service")
	}
}

func TestQuote(t *testing.T) {
	if got := quote("Bob's Funds"); got != "'Bob''s Funds'" {
		t.Fatalf("quote = %s", got)
	}
}
