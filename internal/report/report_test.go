package report

import (
	"bytes"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"

	"townledger/internal/core"
)

var rates = core.Rates{Water: core.Units(500), Security: core.Units(500), Sanitation: core.Units(1000)}

func a12() core.Resident {
	return core.Resident{
		ID:         1,
		HouseNo:    "A-12",
		Street:     "Street 1",
		Owner:      core.Person{Name: "Ali, Khan", NationalID: "35202", Phone: "0300"},
		Floors:     2,
		Facilities: core.Facilities{Water: true, Security: true},
	}
}

func TestWriteCSVDefaulters(t *testing.T) {
	q := core.DefaulterQuery{Scope: core.Monthly, Year: 2024, Month: 4, Rates: rates, Services: []core.Service{core.Water}}
	paid := map[int64]core.ServiceAmounts{1: {Water: core.Units(300), Security: core.Units(500)}}
	res := core.FindDefaulters(q, []core.Resident{a12()}, paid)

	table := DefaultersTable(res)
	if table.Name != "Defaulters 2024-04" {
		t.Errorf("name = %q", table.Name)
	}

	var buf bytes.Buffer
	if err := WriteCSV(&buf, table); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}
	want := "s_no,house_no,street_name,owner_name,owner_phone,water_pending,security_pending,sanitation_pending,total_pending\n" +
		"1,A-12,Street 1,\"Ali, Khan\",0300,200,0,0,200\n"
	if buf.String() != want {
		t.Fatalf("csv mismatch:\n got %q\nwant %q", buf.String(), want)
	}
}

func TestWriteCSVEmptyTableHasHeader(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, FundsTable(nil)); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}
	if buf.String() != "fund_title,fund_month,total_amount,contributors\n" {
		t.Fatalf("unexpected output %q", buf.String())
	}
}

func TestResidentsTableColumns(t *testing.T) {
	r := a12()
	r.IsRented = true
	r.Lessee = &core.Person{Name: "Tenant", NationalID: "42101", Phone: "0333"}

	table := ResidentsTable([]core.Resident{r})
	if len(table.Rows) != 1 || len(table.Rows[0]) != len(ResidentColumns) {
		t.Fatalf("row shape mismatch: %v", table.Rows)
	}
	row := table.Rows[0]
	if row[5] != "1" || row[6] != "Tenant" || row[9] != "2" || row[12] != "0" || row[13] != "" {
		t.Fatalf("unexpected row: %v", row)
	}
}

func TestBillsTablePendingNotClamped(t *testing.T) {
	paid := map[int64]core.ServiceAmounts{1: {Water: core.Units(800), Security: core.Units(500)}}
	report := core.ComputeDues(core.Month{Year: 2024, Month: 4}, []core.Resident{a12()}, paid, rates)

	table := BillsTable(report)
	if table.Name != "Bills 2024-04" {
		t.Errorf("name = %q", table.Name)
	}
	if got := table.Rows[0][8]; got != "-300" {
		t.Fatalf("pending = %s, want -300 for an overpayment", got)
	}
}

func TestWriteXLSX(t *testing.T) {
	funds := FundsTable([]core.FundSummary{{
		Fund:         core.Fund{Title: "Eid", Month: core.Month{Year: 2024, Month: 4}},
		Total:        core.Units(1500),
		Contributors: 2,
	}})
	residents := ResidentsTable([]core.Resident{a12()})

	var buf bytes.Buffer
	if err := WriteXLSX(&buf, funds, residents); err != nil {
		t.Fatalf("WriteXLSX: %v", err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("OpenReader: %v", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) != 2 || sheets[0] != "Funds" || sheets[1] != "Residents" {
		t.Fatalf("sheets = %v", sheets)
	}
	rows, err := f.GetRows("Funds")
	if err != nil {
		t.Fatalf("GetRows: %v", err)
	}
	if len(rows) != 2 || strings.Join(rows[0], ",") != strings.Join(FundColumns, ",") {
		t.Fatalf("unexpected funds sheet: %v", rows)
	}
	if rows[1][0] != "Eid" || rows[1][2] != "1500" {
		t.Fatalf("unexpected funds row: %v", rows[1])
	}

	rows, _ = f.GetRows("Residents")
	if rows[1][4] != "0300" {
		t.Fatalf("phone numbers must stay text, got %q", rows[1][4])
	}

	if err := WriteXLSX(&buf); err == nil {
		t.Fatal("expected error for no tables")
	}
}

func TestSheetName(t *testing.T) {
	used := make(map[string]bool)
	tests := []struct {
		in, want string
	}{
		{"Defaulters 2024-04", "Defaulters 2024-04"},
		{"Defaulters 2024-04", "Defaulters 2024-04 (2)"},
		{"a/b:c", "a-b-c"},
		{"", "Sheet"},
		{strings.Repeat("x", 40), strings.Repeat("x", 31)},
	}
	for _, tt := range tests {
		if got := SheetName(tt.in, used); got != tt.want {
			t.Errorf("SheetName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
