package http

import (
	"net/http"

	"townledger/internal/core"
	applog "townledger/internal/log"
	"townledger/internal/report"
)

func (s *Server) handleFundSummary(w http.ResponseWriter, r *http.Request) {
	format, err := parseFormat(r.URL.Query())
	if err != nil {
		fail(w, r, applog.OpList, err)
		return
	}
	funds, err := s.funds.Summary(r.Context())
	if err != nil {
		fail(w, r, applog.OpList, err)
		return
	}
	if format != formatJSON {
		writeTable(w, r, format, report.FundsTable(funds))
		return
	}
	out := make([]fundSummary, 0, len(funds))
	for _, f := range funds {
		out = append(out, fundSummary{fund: fundFrom(f.Fund), Total: amount(f.Total), Contributors: f.Contributors})
	}
	NewResponse().JSON(map[string]any{"funds": out}).Write(w)
}

// handleCreateFund returns the existing fund when (title, month) is taken.
func (s *Server) handleCreateFund(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Title string `json:"fund_title"`
		Month string `json:"fund_month"`
	}
	if err := decodeJSON(w, r, &body); err != nil {
		fail(w, r, applog.OpCreate, err)
		return
	}
	month, err := core.ParseMonth(body.Month)
	if err != nil {
		fail(w, r, applog.OpCreate, err)
		return
	}
	id, err := s.funds.GetOrCreateFund(r.Context(), body.Title, month)
	if err != nil {
		fail(w, r, applog.OpCreate, err)
		return
	}
	f, err := s.funds.GetFund(r.Context(), id)
	if err != nil {
		fail(w, r, applog.OpRead, err)
		return
	}
	mutated(r, "Fund opened", applog.OpCreate, month.String(), id)
	NewResponse().JSON(fundFrom(f)).Write(w)
}

func (s *Server) handleGetFund(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		fail(w, r, applog.OpRead, err)
		return
	}
	f, err := s.funds.GetFund(r.Context(), id)
	if err != nil {
		fail(w, r, applog.OpRead, err)
		return
	}
	contributions, err := s.funds.ListContributions(r.Context(), id)
	if err != nil {
		fail(w, r, applog.OpRead, err)
		return
	}
	type contribution struct {
		ResidentID int64  `json:"resident_id"`
		Amount     amount `json:"amount"`
	}
	list := make([]contribution, 0, len(contributions))
	for _, c := range contributions {
		list = append(list, contribution{ResidentID: c.ResidentID, Amount: amount(c.Amount)})
	}
	NewResponse().JSON(map[string]any{"fund": fundFrom(f), "contributions": list}).Write(w)
}

func (s *Server) handleDeleteFund(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		fail(w, r, applog.OpDelete, err)
		return
	}
	if err := s.funds.DeleteFund(r.Context(), id); err != nil {
		fail(w, r, applog.OpDelete, err)
		return
	}
	mutated(r, "Fund deleted", applog.OpDelete, "", id)
	NewResponse().Status(http.StatusNoContent).Write(w)
}

// handleContributionSheet lists every resident with its contribution to
// the fund, blank when none.
func (s *Server) handleContributionSheet(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		fail(w, r, applog.OpRead, err)
		return
	}
	format, err := parseFormat(r.URL.Query())
	if err != nil {
		fail(w, r, applog.OpRead, err)
		return
	}
	f, err := s.funds.GetFund(r.Context(), id)
	if err != nil {
		fail(w, r, applog.OpRead, err)
		return
	}
	rows, err := s.funds.ContributionSheet(r.Context(), id)
	if err != nil {
		fail(w, r, applog.OpRead, err)
		return
	}
	if format != formatJSON {
		writeTable(w, r, format, report.ContributionsTable(f, rows))
		return
	}
	out := make([]contributionRow, 0, len(rows))
	for _, row := range rows {
		out = append(out, contributionRowFrom(row))
	}
	NewResponse().JSON(map[string]any{"fund": fundFrom(f), "rows": out}).Write(w)
}

func (s *Server) handleSaveContributions(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		fail(w, r, applog.OpRecord, err)
		return
	}
	var body struct {
		Rows []contributionRow `json:"rows"`
	}
	if err := decodeJSON(w, r, &body); err != nil {
		fail(w, r, applog.OpRecord, err)
		return
	}
	rows := make([]core.ContributionRow, 0, len(body.Rows))
	kept := 0
	for _, row := range body.Rows {
		c := row.core()
		if c.Keeps() {
			kept++
		}
		rows = append(rows, c)
	}
	if err := s.funds.SaveContributionBatch(r.Context(), id, rows); err != nil {
		fail(w, r, applog.OpRecord, err)
		return
	}
	mutated(r, "Contributions saved", applog.OpRecord, "", id)
	NewResponse().JSON(map[string]int{"rows": len(rows), "contributions": kept}).Write(w)
}

// handleUpsertContribution sets one resident's contribution; a null or
// zero amount removes it.
func (s *Server) handleUpsertContribution(w http.ResponseWriter, r *http.Request) {
	fundID, err := pathID(r, "id")
	if err != nil {
		fail(w, r, applog.OpRecord, err)
		return
	}
	residentID, err := pathID(r, "resident")
	if err != nil {
		fail(w, r, applog.OpRecord, err)
		return
	}
	var body struct {
		Amount *amount `json:"amount"`
	}
	if err := decodeJSON(w, r, &body); err != nil {
		fail(w, r, applog.OpRecord, err)
		return
	}
	var m *core.Money
	if body.Amount != nil {
		v := body.Amount.money()
		m = &v
	}
	if err := s.funds.UpsertContribution(r.Context(), fundID, residentID, m); err != nil {
		fail(w, r, applog.OpRecord, err)
		return
	}
	mutated(r, "Contribution saved", applog.OpRecord, "", fundID, residentID)
	NewResponse().Status(http.StatusNoContent).Write(w)
}
