package core

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	Water      Service = "water"
	Security   Service = "security"
	Sanitation Service = "sanitation"
)

// Services lists every billable service in column order.
var Services = []Service{Water, Security, Sanitation}

// Streets is the default street list of the community.
var Streets = func() []string {
	s := []string{"Al-Rehman Road", "Ali Road", "Habib Road", "Bilal Road", "Khadija Road"}
	for i := 1; i <= 22; i++ {
		s = append(s, "Street "+strconv.Itoa(i))
	}
	return s
}()

type (
	Service string

	// Month is a calendar-month key (no day).
	Month struct {
		Year  int
		Month int // 1-12
	}

	Person struct {
		Name       string
		NationalID string
		Phone      string
	}

	Facilities struct {
		Water      bool
		Security   bool
		Sanitation bool
	}

	Resident struct {
		ID         int64
		HouseNo    string
		Street     string
		Owner      Person
		IsRented   bool
		Lessee     *Person // set iff IsRented
		Floors     int
		Facilities Facilities
		CreatedAt  time.Time
	}

	FamilyMember struct {
		Floor int
		Head  Person
	}

	ResidentFilter struct {
		Streets    []string
		Facilities []Service // AND semantics
	}

	// ServiceAmounts holds one amount per billable service.
	ServiceAmounts struct {
		Water      Money
		Security   Money
		Sanitation Money
	}

	// Rates are the monthly charge per service. Never persisted.
	Rates = ServiceAmounts

	Payment struct {
		ResidentID int64
		Paid       ServiceAmounts
	}

	Bill struct {
		ID         int64
		ResidentID int64
		Month      Month
		Paid       ServiceAmounts
		TotalPaid  Money
	}

	StreetCount struct {
		Street string
		Houses int
	}
)

// ParseService accepts the service name in any case.
func ParseService(s string) (Service, error) {
	switch Service(strings.ToLower(strings.TrimSpace(s))) {
	case Water:
		return Water, nil
	case Security:
		return Security, nil
	case Sanitation:
		return Sanitation, nil
	}
	return "", &ArgumentError{Argument: "service", Reason: fmt.Sprintf("unknown service %q", s)}
}

// NewMonth builds a Month from a time, dropping the day.
func NewMonth(t time.Time) Month {
	return Month{Year: t.Year(), Month: int(t.Month())}
}

// ParseMonth parses the "YYYY-MM" billing-month key.
func ParseMonth(s string) (Month, error) {
	t, err := time.Parse("2006-01", strings.TrimSpace(s))
	if err != nil {
		return Month{}, &ArgumentError{Argument: "month", Reason: fmt.Sprintf("expected YYYY-MM, got %q", s)}
	}
	return NewMonth(t), nil
}

func (m Month) String() string {
	return fmt.Sprintf("%04d-%02d", m.Year, m.Month)
}

func (m Month) Validate() error {
	if m.Month < 1 || m.Month > 12 {
		return &ArgumentError{Argument: "month", Reason: fmt.Sprintf("month %d out of range", m.Month)}
	}
	if m.Year < 1 || m.Year > 9999 {
		return &ArgumentError{Argument: "year", Reason: fmt.Sprintf("year %d out of range", m.Year)}
	}
	return nil
}

// MonthsOfYear returns January through December of year.
func MonthsOfYear(year int) []Month {
	months := make([]Month, 12)
	for i := range months {
		months[i] = Month{Year: year, Month: i + 1}
	}
	return months
}

// Has reports whether the resident subscribes to s.
func (f Facilities) Has(s Service) bool {
	switch s {
	case Water:
		return f.Water
	case Security:
		return f.Security
	case Sanitation:
		return f.Sanitation
	}
	return false
}

func (a ServiceAmounts) Get(s Service) Money {
	switch s {
	case Water:
		return a.Water
	case Security:
		return a.Security
	case Sanitation:
		return a.Sanitation
	}
	return Money{}
}

func (a ServiceAmounts) Add(b ServiceAmounts) ServiceAmounts {
	return ServiceAmounts{
		Water:      a.Water.Add(b.Water),
		Security:   a.Security.Add(b.Security),
		Sanitation: a.Sanitation.Add(b.Sanitation),
	}
}

func (a ServiceAmounts) Total() Money {
	return a.Water.Add(a.Security).Add(a.Sanitation)
}

// Normalize trims every text field and clears lessee data on owner-occupied houses.
func (r Resident) Normalize() Resident {
	r.HouseNo = strings.TrimSpace(r.HouseNo)
	r.Street = strings.TrimSpace(r.Street)
	r.Owner = r.Owner.normalize()
	if !r.IsRented {
		r.Lessee = nil
	} else if r.Lessee != nil {
		l := r.Lessee.normalize()
		r.Lessee = &l
	}
	return r
}

func (p Person) normalize() Person {
	return Person{
		Name:       strings.TrimSpace(p.Name),
		NationalID: strings.TrimSpace(p.NationalID),
		Phone:      strings.TrimSpace(p.Phone),
	}
}

func (p Person) complete() bool {
	return p.Name != "" && p.NationalID != "" && p.Phone != ""
}
