package core

import (
	"fmt"
	"strings"
	"time"
)

type (
	Fund struct {
		ID        int64
		Title     string
		Month     Month
		CreatedAt time.Time
	}

	Contribution struct {
		FundID     int64
		ResidentID int64
		Amount     Money
	}

	// ContributionRow is one line of a contribution sheet. Amount is nil
	// when the cell was left blank.
	ContributionRow struct {
		ResidentID int64
		HouseNo    string
		Ticked     bool
		Amount     *Money
	}

	FundSummary struct {
		Fund         Fund
		Total        Money
		Contributors int
	}
)

// ValidateFundKey trims and checks the (title, month) key.
func ValidateFundKey(title string, month Month) (string, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return "", &ValidationError{Field: "fund_title", Reason: "required"}
	}
	if err := month.Validate(); err != nil {
		return "", err
	}
	return title, nil
}

// ValidateContributionRows rejects a batch in which any ticked row lacks a
// positive amount, naming every offending house.
func ValidateContributionRows(rows []ContributionRow) error {
	var bad []string
	for _, r := range rows {
		if r.Ticked && (r.Amount == nil || !r.Amount.IsPositive()) {
			name := r.HouseNo
			if name == "" {
				name = fmt.Sprintf("resident %d", r.ResidentID)
			}
			bad = append(bad, "House "+name)
		}
	}
	if len(bad) > 0 {
		return &ArgumentError{
			Argument: "contributions",
			Reason:   "amount required if ticked: " + strings.Join(bad, ", "),
		}
	}
	return nil
}

// Keeps reports whether the row results in a stored contribution.
func (r ContributionRow) Keeps() bool {
	return r.Ticked && r.Amount != nil && r.Amount.IsPositive()
}
