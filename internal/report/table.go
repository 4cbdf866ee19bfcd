// Package report turns ledger listings into flat tables with a fixed column
// order, and encodes them as CSV or XLSX.
package report

import (
	"strconv"

	"townledger/internal/core"
)

// Table is a named header plus string rows, one cell per column.
type Table struct {
	Name    string
	Columns []string
	Rows    [][]string
}

var (
	ResidentColumns = []string{
		"house_no", "street_name", "owner_name", "owner_cnic", "owner_phone",
		"is_rent", "lessee_name", "lessee_cnic", "lessee_phone", "floors",
		"facility_water", "facility_security", "facility_sanitation", "created_at",
	}
	DefaulterColumns = []string{
		"s_no", "house_no", "street_name", "owner_name", "owner_phone",
		"water_pending", "security_pending", "sanitation_pending", "total_pending",
	}
	BillColumns = []string{
		"s_no", "house_no", "street_name", "owner_name", "owner_phone",
		"water_paid", "security_paid", "sanitation_paid", "pending",
	}
	FundColumns         = []string{"fund_title", "fund_month", "total_amount", "contributors"}
	ContributionColumns = []string{"house_no", "contributed", "amount"}
	CollectionColumns   = []string{"billing_month", "billed", "collected", "payers", "left", "recovery_percent"}
)

const timestampLayout = "2006-01-02 15:04:05"

func flag(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

func ResidentsTable(residents []core.Resident) Table {
	t := Table{Name: "Residents", Columns: ResidentColumns, Rows: make([][]string, 0, len(residents))}
	for _, r := range residents {
		var lessee core.Person
		if r.Lessee != nil {
			lessee = *r.Lessee
		}
		created := ""
		if !r.CreatedAt.IsZero() {
			created = r.CreatedAt.Format(timestampLayout)
		}
		t.Rows = append(t.Rows, []string{
			r.HouseNo, r.Street, r.Owner.Name, r.Owner.NationalID, r.Owner.Phone,
			flag(r.IsRented), lessee.Name, lessee.NationalID, lessee.Phone, strconv.Itoa(r.Floors),
			flag(r.Facilities.Water), flag(r.Facilities.Security), flag(r.Facilities.Sanitation), created,
		})
	}
	return t
}

// DefaultersTable numbers rows from 1 in result order.
func DefaultersTable(res core.DefaulterResult) Table {
	t := Table{Name: "Defaulters " + res.Query.Label(), Columns: DefaulterColumns, Rows: make([][]string, 0, len(res.Rows))}
	for i, d := range res.Rows {
		t.Rows = append(t.Rows, []string{
			strconv.Itoa(i + 1), d.Resident.HouseNo, d.Resident.Street, d.Resident.Owner.Name, d.Resident.Owner.Phone,
			d.Pending.Water.String(), d.Pending.Security.String(), d.Pending.Sanitation.String(), d.Total.String(),
		})
	}
	return t
}

// BillsTable is the month sheet: paid amounts with the total still pending.
func BillsTable(report core.DuesReport) Table {
	t := Table{Name: "Bills " + report.Month.String(), Columns: BillColumns, Rows: make([][]string, 0, len(report.Lines))}
	for i, l := range report.Lines {
		r := l.Resident
		t.Rows = append(t.Rows, []string{
			strconv.Itoa(i + 1), r.HouseNo, r.Street, r.Owner.Name, r.Owner.Phone,
			l.Paid.Water.String(), l.Paid.Security.String(), l.Paid.Sanitation.String(), l.TotalPending().String(),
		})
	}
	return t
}

func FundsTable(funds []core.FundSummary) Table {
	t := Table{Name: "Funds", Columns: FundColumns, Rows: make([][]string, 0, len(funds))}
	for _, f := range funds {
		t.Rows = append(t.Rows, []string{
			f.Fund.Title, f.Fund.Month.String(), f.Total.String(), strconv.Itoa(f.Contributors),
		})
	}
	return t
}

func ContributionsTable(fund core.Fund, rows []core.ContributionRow) Table {
	t := Table{Name: fund.Title + " " + fund.Month.String(), Columns: ContributionColumns, Rows: make([][]string, 0, len(rows))}
	for _, r := range rows {
		amount := ""
		if r.Amount != nil {
			amount = r.Amount.String()
		}
		t.Rows = append(t.Rows, []string{r.HouseNo, flag(r.Ticked), amount})
	}
	return t
}

func CollectionsTable(months []core.MonthCollection) Table {
	t := Table{Name: "Collections", Columns: CollectionColumns, Rows: make([][]string, 0, len(months))}
	for _, m := range months {
		t.Rows = append(t.Rows, []string{
			m.Month.String(), m.Billed.String(), m.Collected.String(),
			strconv.Itoa(m.Payers), strconv.Itoa(m.Left),
			strconv.FormatFloat(m.RecoveryPercent(), 'f', 1, 64),
		})
	}
	return t
}
