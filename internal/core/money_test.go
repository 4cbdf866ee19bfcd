package core

import "testing"

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in  string
		out int64
		ok  bool
	}{
		{"1", 100, true},
		{"1.0", 100, true},
		{"1.23", 123, true},
		{"1,23", 0, false},
		{"12,34", 0, false},
		{"1,000", 100000, true},
		{"1,500", 150000, true},
		{"2,000.50", 200050, true},
		{"-12,345,678.9", -1234567890, true},
		{"1,00", 0, false},
		{"1000,000", 0, false},
		{",500", 0, false},
		{"1,000,", 0, false},
		{"100000000000", 10000000000000, true},
		{"100000000000.01", 0, false},
		{"-100000000000.01", 0, false},
		{"0.01", 1, true},
		{"1.005", 101, true}, // half away from zero
		{" 2.50 ", 250, true},
		{"0", 0, true},
		{"-1", -100, true},
		{"500", 50000, true},
		{"abc", 0, false},
		{"1.2.3", 0, false},
		{"", 0, false},
	}
	for _, tc := range cases {
		got, err := ParseAmount(tc.in)
		if tc.ok {
			if err != nil || got.Cents != tc.out {
				t.Fatalf("%q expected %d, got %d (err=%v)", tc.in, tc.out, got.Cents, err)
			}
		} else if err == nil {
			t.Fatalf("%q expected error", tc.in)
		}
	}
}

func TestMoneyString(t *testing.T) {
	cases := map[int64]string{
		50000:  "500",
		20050:  "200.5",
		-1234:  "-12.34",
		0:      "0",
		100001: "1000.01",
	}
	for cents, want := range cases {
		if got := (Money{Cents: cents}).String(); got != want {
			t.Errorf("Money{%d}.String() = %q, want %q", cents, got, want)
		}
	}
}

func TestMoneyValidate(t *testing.T) {
	if err := (Money{Cents: 1}).Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if err := (Money{Cents: 0}).Validate(); err == nil {
		t.Fatalf("expected error for zero")
	}
}
