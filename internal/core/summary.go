package core

import "sort"

// MonthCollection is a compact collection summary for one billing month.
type MonthCollection struct {
	Month     Month
	Billed    Money // dues at the requested rates for current subscribers
	Collected Money
	Payers    int // residents with any payment recorded
	Left      int // residents with nothing recorded
}

// RecoveryPercent is collected over billed, or 0 when nothing is billed.
func (m MonthCollection) RecoveryPercent() float64 {
	if m.Billed.Cents == 0 {
		return 0
	}
	return float64(m.Collected.Cents) / float64(m.Billed.Cents) * 100
}

// SummarizeCollections builds one MonthCollection per month in totals.
func SummarizeCollections(residents []Resident, totals map[Month]map[int64]Money, rates Rates) []MonthCollection {
	var billed Money
	for _, r := range residents {
		billed = billed.Add(DueFor(r.Facilities, rates, 1).Total())
	}
	out := make([]MonthCollection, 0, len(totals))
	for m, byResident := range totals {
		mc := MonthCollection{Month: m, Billed: billed}
		for _, paid := range byResident {
			mc.Collected = mc.Collected.Add(paid)
			if paid.IsPositive() {
				mc.Payers++
			}
		}
		mc.Left = len(residents) - mc.Payers
		if mc.Left < 0 {
			mc.Left = 0
		}
		out = append(out, mc)
	}
	sortCollections(out)
	return out
}

func sortCollections(out []MonthCollection) {
	sort.Slice(out, func(i, j int) bool {
		return out[i].Month.String() < out[j].Month.String()
	})
}
