package core

import (
	"fmt"
	"strings"
)

const (
	Monthly Scope = "monthly"
	Annual  Scope = "annual"
)

type (
	Scope string

	DefaulterQuery struct {
		Scope    Scope
		Year     int
		Month    int // ignored for Annual
		Rates    Rates
		Services []Service
	}

	Defaulter struct {
		Resident Resident
		Pending  ServiceAmounts
		Total    Money
	}

	// DefaulterResult is ordered by resident insertion order.
	DefaulterResult struct {
		Query DefaulterQuery
		Rows  []Defaulter
	}
)

func ParseScope(s string) (Scope, error) {
	switch Scope(strings.ToLower(strings.TrimSpace(s))) {
	case Monthly, "":
		return Monthly, nil
	case Annual:
		return Annual, nil
	}
	return "", &ArgumentError{Argument: "scope", Reason: fmt.Sprintf("unknown scope %q", s)}
}

// Validate checks the query shape before any read.
func (q DefaulterQuery) Validate() error {
	if len(q.Services) == 0 {
		return &ArgumentError{Argument: "services", Reason: "select at least one service"}
	}
	for _, s := range q.Services {
		if _, err := ParseService(string(s)); err != nil {
			return err
		}
	}
	if err := ValidateRates(q.Rates); err != nil {
		return err
	}
	switch q.Scope {
	case Monthly:
		return Month{Year: q.Year, Month: q.Month}.Validate()
	case Annual:
		return Month{Year: q.Year, Month: 1}.Validate()
	}
	return &ArgumentError{Argument: "scope", Reason: fmt.Sprintf("unknown scope %q", q.Scope)}
}

// Months lists the billing months the query covers.
func (q DefaulterQuery) Months() []Month {
	if q.Scope == Annual {
		return MonthsOfYear(q.Year)
	}
	return []Month{{Year: q.Year, Month: q.Month}}
}

// Label is "2024-04" for monthly and "2024" for annual queries.
func (q DefaulterQuery) Label() string {
	if q.Scope == Annual {
		return fmt.Sprintf("%04d", q.Year)
	}
	return Month{Year: q.Year, Month: q.Month}.String()
}

// Empty reports the explicit no-defaulters outcome.
func (r DefaulterResult) Empty() bool {
	return len(r.Rows) == 0
}

// FindDefaulters flags residents with positive pending on any filtered
// service. paid holds amounts already summed over every month of the scope,
// so an overpayment in one month offsets a shortfall in another.
func FindDefaulters(q DefaulterQuery, residents []Resident, paid map[int64]ServiceAmounts) DefaulterResult {
	months := len(q.Months())
	result := DefaulterResult{Query: q, Rows: []Defaulter{}}
	for _, r := range residents {
		due := DueFor(r.Facilities, q.Rates, months)
		pending := pendingOf(due, paid[r.ID])

		flagged := false
		for _, s := range q.Services {
			if pending.Get(s).IsPositive() {
				flagged = true
				break
			}
		}
		if !flagged {
			continue
		}
		result.Rows = append(result.Rows, Defaulter{
			Resident: r,
			Pending:  pending,
			Total:    pending.Total(),
		})
	}
	return result
}
