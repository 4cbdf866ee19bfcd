package core

import "fmt"

// DuesLine is one resident's position for a billing period.
type DuesLine struct {
	Resident Resident
	Due      ServiceAmounts
	Paid     ServiceAmounts
	Pending  ServiceAmounts
}

// TotalPending is the sum of the three service pendings. It is never
// clamped, so an overpayment shows as a negative value.
func (l DuesLine) TotalPending() Money {
	return l.Pending.Total()
}

type DuesReport struct {
	Month Month
	Rates Rates
	Lines []DuesLine
	Due   ServiceAmounts
	Paid  ServiceAmounts
}

func (r DuesReport) Pending() ServiceAmounts {
	return ServiceAmounts{
		Water:      r.Due.Water.Sub(r.Paid.Water),
		Security:   r.Due.Security.Sub(r.Paid.Security),
		Sanitation: r.Due.Sanitation.Sub(r.Paid.Sanitation),
	}
}

// ValidateRates rejects negative per-service rates.
func ValidateRates(rates Rates) error {
	for _, s := range Services {
		if rates.Get(s).IsNegative() {
			return &ArgumentError{Argument: "rates", Reason: fmt.Sprintf("%s rate cannot be negative", s)}
		}
	}
	return nil
}

// DueFor returns the charge for one resident over months billing months.
// Dues follow the resident's current facility flags.
func DueFor(f Facilities, rates Rates, months int) ServiceAmounts {
	var due ServiceAmounts
	n := int64(months)
	if f.Water {
		due.Water = rates.Water.Times(n)
	}
	if f.Security {
		due.Security = rates.Security.Times(n)
	}
	if f.Sanitation {
		due.Sanitation = rates.Sanitation.Times(n)
	}
	return due
}

func pendingOf(due, paid ServiceAmounts) ServiceAmounts {
	return ServiceAmounts{
		Water:      due.Water.Sub(paid.Water),
		Security:   due.Security.Sub(paid.Security),
		Sanitation: due.Sanitation.Sub(paid.Sanitation),
	}
}

// ComputeDues derives dues and pending for one month. paid is keyed by
// resident id; residents without an entry paid nothing.
func ComputeDues(month Month, residents []Resident, paid map[int64]ServiceAmounts, rates Rates) DuesReport {
	report := DuesReport{Month: month, Rates: rates, Lines: make([]DuesLine, 0, len(residents))}
	for _, r := range residents {
		due := DueFor(r.Facilities, rates, 1)
		p := paid[r.ID]
		report.Lines = append(report.Lines, DuesLine{
			Resident: r,
			Due:      due,
			Paid:     p,
			Pending:  pendingOf(due, p),
		})
		report.Due = report.Due.Add(due)
		report.Paid = report.Paid.Add(p)
	}
	return report
}
