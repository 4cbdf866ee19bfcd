package core

import (
	"errors"
	"testing"
)

var defaultRates = Rates{Water: Units(500), Security: Units(500), Sanitation: Units(1000)}

func TestComputeDuesHouseA12(t *testing.T) {
	a12 := Resident{ID: 1, HouseNo: "A-12", Facilities: Facilities{Water: true, Security: true}}
	paid := map[int64]ServiceAmounts{1: {Water: Units(300), Security: Units(500)}}

	report := ComputeDues(Month{Year: 2024, Month: 4}, []Resident{a12}, paid, defaultRates)
	if len(report.Lines) != 1 {
		t.Fatalf("expected one line, got %d", len(report.Lines))
	}
	line := report.Lines[0]
	if line.Pending.Water != Units(200) {
		t.Errorf("water pending = %s, want 200", line.Pending.Water)
	}
	if line.Pending.Security != Units(0) {
		t.Errorf("security pending = %s, want 0", line.Pending.Security)
	}
	if line.Pending.Sanitation != Units(0) {
		t.Errorf("sanitation pending = %s, want 0 (not billed)", line.Pending.Sanitation)
	}
	if line.TotalPending() != Units(200) {
		t.Errorf("total pending = %s, want 200", line.TotalPending())
	}
}

func TestFindDefaultersServiceFilter(t *testing.T) {
	a12 := Resident{ID: 1, HouseNo: "A-12", Facilities: Facilities{Water: true, Security: true}}
	paid := map[int64]ServiceAmounts{1: {Water: Units(300), Security: Units(500)}}
	base := DefaulterQuery{Scope: Monthly, Year: 2024, Month: 4, Rates: defaultRates}

	tests := []struct {
		services  []Service
		defaulter bool
	}{
		{[]Service{Water}, true},
		{[]Service{Security}, false},
		{[]Service{Sanitation}, false},
		{[]Service{Security, Water}, true},
	}
	for _, tt := range tests {
		q := base
		q.Services = tt.services
		res := FindDefaulters(q, []Resident{a12}, paid)
		if res.Empty() == tt.defaulter {
			t.Errorf("filter %v: defaulter=%v, want %v", tt.services, !res.Empty(), tt.defaulter)
		}
	}
}

func TestFindDefaultersAnnualOffsets(t *testing.T) {
	r := Resident{ID: 7, Facilities: Facilities{Water: true}}
	q := DefaulterQuery{Scope: Annual, Year: 2024, Rates: defaultRates, Services: []Service{Water}}

	// Month 1 overpays by 500, months 2-12 each fall 100 short: net -500 + 1100 = 600 short.
	var summed ServiceAmounts
	summed.Water = summed.Water.Add(Units(1000))
	for m := 2; m <= 12; m++ {
		summed.Water = summed.Water.Add(Units(400))
	}
	res := FindDefaulters(q, []Resident{r}, map[int64]ServiceAmounts{7: summed})
	if res.Empty() || res.Rows[0].Pending.Water != Units(600) {
		t.Fatalf("expected 600 pending, got %+v", res.Rows)
	}

	// A larger overpayment covers the whole year.
	summed.Water = summed.Water.Add(Units(600))
	res = FindDefaulters(q, []Resident{r}, map[int64]ServiceAmounts{7: summed})
	if !res.Empty() {
		t.Fatalf("net annual pending <= 0 must not flag a defaulter: %+v", res.Rows)
	}
}

func TestFindDefaultersKeepsResidentOrder(t *testing.T) {
	residents := []Resident{
		{ID: 3, Facilities: Facilities{Sanitation: true}},
		{ID: 1, Facilities: Facilities{Sanitation: true}},
		{ID: 2, Facilities: Facilities{Sanitation: true}},
	}
	paid := map[int64]ServiceAmounts{1: {Sanitation: Units(900)}}
	q := DefaulterQuery{Scope: Monthly, Year: 2024, Month: 1, Rates: defaultRates, Services: Services}
	res := FindDefaulters(q, residents, paid)
	if len(res.Rows) != 3 {
		t.Fatalf("expected 3 defaulters, got %d", len(res.Rows))
	}
	for i, want := range []int64{3, 1, 2} {
		if res.Rows[i].Resident.ID != want {
			t.Fatalf("row %d: got resident %d, want %d", i, res.Rows[i].Resident.ID, want)
		}
	}
	if res.Rows[1].Total != Units(100) {
		t.Fatalf("total = %s, want 100", res.Rows[1].Total)
	}
}

func TestFindDefaultersTotalNotClamped(t *testing.T) {
	r := Resident{ID: 1, Facilities: Facilities{Water: true, Security: true}}
	paid := map[int64]ServiceAmounts{1: {Water: Units(0), Security: Units(900)}}
	q := DefaulterQuery{Scope: Monthly, Year: 2024, Month: 1, Rates: defaultRates, Services: []Service{Water}}
	res := FindDefaulters(q, []Resident{r}, paid)
	if res.Empty() {
		t.Fatal("expected defaulter on water")
	}
	// 500 water pending - 400 security overpayment.
	if res.Rows[0].Total != Units(100) {
		t.Fatalf("total = %s, want 100", res.Rows[0].Total)
	}
}

func TestDefaulterQueryValidate(t *testing.T) {
	q := DefaulterQuery{Scope: Monthly, Year: 2024, Month: 4, Rates: defaultRates}
	if err := q.Validate(); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("empty service filter must be invalid, got %v", err)
	}
	q.Services = []Service{Water}
	if err := q.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	q.Month = 13
	if err := q.Validate(); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected invalid month, got %v", err)
	}
	q.Scope = Annual
	if err := q.Validate(); err != nil {
		t.Fatalf("annual scope ignores month, got %v", err)
	}
	if len(q.Months()) != 12 || q.Label() != "2024" {
		t.Fatalf("unexpected annual months/label: %d %s", len(q.Months()), q.Label())
	}
}
