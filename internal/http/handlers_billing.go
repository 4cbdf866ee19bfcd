package http

import (
	"net/http"

	"townledger/internal/core"
	applog "townledger/internal/log"
	"townledger/internal/report"
)

// handleMonthSheet shows every resident's dues, payments and pending
// amounts for one month at the requested rates.
func (s *Server) handleMonthSheet(w http.ResponseWriter, r *http.Request) {
	month, err := pathMonth(r)
	if err != nil {
		fail(w, r, applog.OpRead, err)
		return
	}
	q := r.URL.Query()
	format, err := parseFormat(q)
	if err != nil {
		fail(w, r, applog.OpRead, err)
		return
	}
	rates, err := parseRates(q, s.rates)
	if err != nil {
		fail(w, r, applog.OpRead, err)
		return
	}
	dues, err := s.billing.MonthSheet(r.Context(), month, rates)
	if err != nil {
		fail(w, r, applog.OpRead, err)
		return
	}
	if format != formatJSON {
		writeTable(w, r, format, report.BillsTable(dues))
		return
	}
	NewResponse().JSON(monthSheetFrom(dues)).Write(w)
}

func (s *Server) handleRecordPayments(w http.ResponseWriter, r *http.Request) {
	month, err := pathMonth(r)
	if err != nil {
		fail(w, r, applog.OpRecord, err)
		return
	}
	var body struct {
		Payments []payment `json:"payments"`
	}
	if err := decodeJSON(w, r, &body); err != nil {
		fail(w, r, applog.OpRecord, err)
		return
	}
	payments := make([]core.Payment, 0, len(body.Payments))
	ids := make([]int64, 0, len(body.Payments))
	for _, p := range body.Payments {
		payments = append(payments, core.Payment{
			ResidentID: p.ResidentID,
			Paid: core.ServiceAmounts{
				Water:      p.Water.money(),
				Security:   p.Security.money(),
				Sanitation: p.Sanitation.money(),
			},
		})
		ids = append(ids, p.ResidentID)
	}
	if err := s.billing.RecordPayments(r.Context(), month, payments); err != nil {
		fail(w, r, applog.OpRecord, err)
		return
	}
	mutated(r, "Payments recorded", applog.OpRecord, month.String(), 0, ids...)
	NewResponse().JSON(map[string]any{"month": month.String(), "recorded": len(payments)}).Write(w)
}

func (s *Server) handleListBills(w http.ResponseWriter, r *http.Request) {
	month, err := pathMonth(r)
	if err != nil {
		fail(w, r, applog.OpList, err)
		return
	}
	bills, err := s.billing.ListBills(r.Context(), month)
	if err != nil {
		fail(w, r, applog.OpList, err)
		return
	}
	out := make([]bill, 0, len(bills))
	for _, b := range bills {
		out = append(out, bill{
			ID:         b.ID,
			ResidentID: b.ResidentID,
			Month:      b.Month.String(),
			Paid:       amountsFrom(b.Paid),
			TotalPaid:  amount(b.TotalPaid),
		})
	}
	NewResponse().JSON(map[string]any{"month": month.String(), "bills": out}).Write(w)
}

func (s *Server) handleCollections(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	format, err := parseFormat(q)
	if err != nil {
		fail(w, r, applog.OpList, err)
		return
	}
	rates, err := parseRates(q, s.rates)
	if err != nil {
		fail(w, r, applog.OpList, err)
		return
	}
	months, err := s.billing.CollectionStats(r.Context(), rates)
	if err != nil {
		fail(w, r, applog.OpList, err)
		return
	}
	if format != formatJSON {
		writeTable(w, r, format, report.CollectionsTable(months))
		return
	}
	out := make([]collection, 0, len(months))
	for _, m := range months {
		out = append(out, collection{
			Month:           m.Month.String(),
			Billed:          amount(m.Billed),
			Collected:       amount(m.Collected),
			Payers:          m.Payers,
			Left:            m.Left,
			RecoveryPercent: m.RecoveryPercent(),
		})
	}
	NewResponse().JSON(map[string]any{"collections": out}).Write(w)
}

// handleDefaulters answers an empty result with 200 and "empty": true so
// clients can tell "nobody owes" apart from a failure.
func (s *Server) handleDefaulters(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	format, err := parseFormat(q)
	if err != nil {
		fail(w, r, applog.OpList, err)
		return
	}
	query, err := parseDefaulterQuery(q, s.rates, s.now())
	if err != nil {
		fail(w, r, applog.OpList, err)
		return
	}
	res, err := s.defaulters.Find(r.Context(), query)
	if err != nil {
		fail(w, r, applog.OpList, err)
		return
	}
	if format != formatJSON {
		writeTable(w, r, format, report.DefaultersTable(res))
		return
	}
	NewResponse().JSON(defaulterListFrom(res)).Write(w)
}
