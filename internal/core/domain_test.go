package core

import (
	"errors"
	"testing"
)

func TestParseMonth(t *testing.T) {
	m, err := ParseMonth("2024-04")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.Year != 2024 || m.Month != 4 || m.String() != "2024-04" {
		t.Fatalf("unexpected month: %+v", m)
	}
	for _, bad := range []string{"", "2024-13", "2024/04", "April"} {
		if _, err := ParseMonth(bad); !errors.Is(err, ErrInvalidArgument) {
			t.Fatalf("%q: expected invalid argument, got %v", bad, err)
		}
	}
}

func TestMonthsOfYear(t *testing.T) {
	months := MonthsOfYear(2024)
	if len(months) != 12 || months[0].String() != "2024-01" || months[11].String() != "2024-12" {
		t.Fatalf("unexpected months: %v", months)
	}
}

func TestParseService(t *testing.T) {
	if s, err := ParseService(" Water "); err != nil || s != Water {
		t.Fatalf("got %q, %v", s, err)
	}
	if _, err := ParseService("gas"); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected invalid argument, got %v", err)
	}
}

func TestResidentNormalize(t *testing.T) {
	r := Resident{
		HouseNo:  " A-12 ",
		Street:   "Ali Road ",
		Owner:    Person{Name: " Bilal ", NationalID: "1", Phone: "2"},
		IsRented: false,
		Lessee:   &Person{Name: "stale"},
	}.Normalize()
	if r.HouseNo != "A-12" || r.Street != "Ali Road" || r.Owner.Name != "Bilal" {
		t.Fatalf("fields not trimmed: %+v", r)
	}
	if r.Lessee != nil {
		t.Fatalf("lessee should be cleared for owner-occupied house")
	}
}

func TestErrorCategories(t *testing.T) {
	cases := []struct {
		err    error
		target error
	}{
		{&ValidationError{Field: "f", Reason: "r"}, ErrValidation},
		{ValidationErrors{{Field: "f", Reason: "r"}}, ErrValidation},
		{&ConflictError{Entity: "resident", Key: "A-1"}, ErrUniqueViolation},
		{&NotFoundError{Entity: "fund", ID: 3}, ErrNotFound},
		{&NotFoundError{Entity: "house", Key: "Z-9"}, ErrNotFound},
		{&ArgumentError{Argument: "services", Reason: "empty"}, ErrInvalidArgument},
		{&StorageError{Op: "insert", Err: errors.New("disk full")}, ErrStorage},
	}
	for _, tc := range cases {
		if !errors.Is(tc.err, tc.target) {
			t.Errorf("%v should match %v", tc.err, tc.target)
		}
	}

	if got := (&NotFoundError{Entity: "house", Key: "Z-9"}).Error(); got != `house "Z-9" not found` {
		t.Errorf("keyed not found = %q", got)
	}
	if got := (&NotFoundError{Entity: "fund", ID: 3}).Error(); got != "fund 3 not found" {
		t.Errorf("id not found = %q", got)
	}
}
