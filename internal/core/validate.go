package core

import (
	"fmt"
	"strings"
)

// ValidateResident checks a resident payload and its family rows before any
// write. All problems are reported together.
func ValidateResident(r Resident, families []FamilyMember) error {
	var errs ValidationErrors
	req := func(field, value string) {
		if strings.TrimSpace(value) == "" {
			errs = append(errs, &ValidationError{Field: field, Reason: "required"})
		}
	}

	req("house_no", r.HouseNo)
	req("street_name", r.Street)
	req("owner_name", r.Owner.Name)
	req("owner_cnic", r.Owner.NationalID)
	req("owner_phone", r.Owner.Phone)

	if r.IsRented {
		if r.Lessee == nil {
			errs = append(errs, &ValidationError{Field: "lessee", Reason: "required for rented houses"})
		} else {
			req("lessee_name", r.Lessee.Name)
			req("lessee_cnic", r.Lessee.NationalID)
			req("lessee_phone", r.Lessee.Phone)
		}
	}

	if r.Floors < 1 {
		errs = append(errs, &ValidationError{Field: "floors", Reason: "must be at least 1"})
		return errs
	}

	seen := make(map[int]bool, len(families))
	for _, f := range families {
		field := fmt.Sprintf("families[floor=%d]", f.Floor)
		if f.Floor < 1 || f.Floor > r.Floors {
			errs = append(errs, &ValidationError{Field: field, Reason: fmt.Sprintf("floor outside 1..%d", r.Floors)})
			continue
		}
		if seen[f.Floor] {
			errs = append(errs, &ValidationError{Field: field, Reason: "duplicate floor"})
			continue
		}
		seen[f.Floor] = true
		if !f.Head.normalize().complete() {
			errs = append(errs, &ValidationError{Field: field, Reason: "head name, cnic and phone are required"})
		}
	}
	for floor := 1; floor <= r.Floors; floor++ {
		if !seen[floor] {
			errs = append(errs, &ValidationError{Field: fmt.Sprintf("families[floor=%d]", floor), Reason: "missing family record"})
		}
	}

	return errs.orNil()
}

// NormalizeFamilies trims every family field.
func NormalizeFamilies(families []FamilyMember) []FamilyMember {
	out := make([]FamilyMember, len(families))
	for i, f := range families {
		out[i] = FamilyMember{Floor: f.Floor, Head: f.Head.normalize()}
	}
	return out
}

// ValidatePayments rejects negative paid amounts and duplicate residents in a batch.
func ValidatePayments(payments []Payment) error {
	var errs ValidationErrors
	seen := make(map[int64]bool, len(payments))
	for _, p := range payments {
		if seen[p.ResidentID] {
			errs = append(errs, &ValidationError{Field: fmt.Sprintf("payments[resident=%d]", p.ResidentID), Reason: "duplicate resident in batch"})
			continue
		}
		seen[p.ResidentID] = true
		for _, s := range Services {
			if p.Paid.Get(s).IsNegative() {
				errs = append(errs, &ValidationError{
					Field:  fmt.Sprintf("payments[resident=%d].%s", p.ResidentID, s),
					Reason: "paid amount cannot be negative",
				})
			}
		}
	}
	return errs.orNil()
}
