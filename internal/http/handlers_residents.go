package http

import (
	"context"
	"net/http"

	"townledger/internal/core"
	applog "townledger/internal/log"
	"townledger/internal/report"
)

func (s *Server) handleStreets(w http.ResponseWriter, r *http.Request) {
	streets, err := s.registry.StreetOverview(r.Context())
	if err != nil {
		fail(w, r, applog.OpList, err)
		return
	}
	type street struct {
		Name   string `json:"street_name"`
		Houses int    `json:"houses"`
	}
	out := make([]street, 0, len(streets))
	for _, st := range streets {
		out = append(out, street{Name: st.Street, Houses: st.Houses})
	}
	NewResponse().JSON(map[string]any{"streets": out}).Write(w)
}

func (s *Server) handleListResidents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	format, err := parseFormat(q)
	if err != nil {
		fail(w, r, applog.OpList, err)
		return
	}
	filter, err := parseResidentFilter(q)
	if err != nil {
		fail(w, r, applog.OpList, err)
		return
	}
	residents, err := s.registry.ListResidents(r.Context(), filter)
	if err != nil {
		fail(w, r, applog.OpList, err)
		return
	}
	if format != formatJSON {
		writeTable(w, r, format, report.ResidentsTable(residents))
		return
	}
	out := make([]resident, 0, len(residents))
	for _, res := range residents {
		out = append(out, residentFrom(res, nil))
	}
	NewResponse().JSON(map[string]any{"residents": out, "count": len(out)}).Write(w)
}

func (s *Server) handleCreateResident(w http.ResponseWriter, r *http.Request) {
	var body resident
	if err := decodeJSON(w, r, &body); err != nil {
		fail(w, r, applog.OpCreate, err)
		return
	}
	res, families := body.core()
	id, err := s.registry.CreateResident(r.Context(), res, families)
	if err != nil {
		fail(w, r, applog.OpCreate, err)
		return
	}
	mutated(r, "Resident created", applog.OpCreate, "", 0, id)
	s.writeResident(w, r, id, http.StatusCreated)
}

func (s *Server) handleGetResident(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		fail(w, r, applog.OpRead, err)
		return
	}
	s.writeResident(w, r, id, http.StatusOK)
}

func (s *Server) handleGetResidentByHouse(w http.ResponseWriter, r *http.Request) {
	res, err := s.registry.GetResidentByHouse(r.Context(), r.PathValue("house"))
	if err != nil {
		fail(w, r, applog.OpRead, err)
		return
	}
	s.writeResident(w, r, res.ID, http.StatusOK)
}

func (s *Server) handleUpdateResident(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		fail(w, r, applog.OpUpdate, err)
		return
	}
	var body resident
	if err := decodeJSON(w, r, &body); err != nil {
		fail(w, r, applog.OpUpdate, err)
		return
	}
	res, families := body.core()
	if err := s.registry.UpdateResident(r.Context(), id, res, families); err != nil {
		fail(w, r, applog.OpUpdate, err)
		return
	}
	mutated(r, "Resident updated", applog.OpUpdate, "", 0, id)
	s.writeResident(w, r, id, http.StatusOK)
}

func (s *Server) handleDeleteResidents(w http.ResponseWriter, r *http.Request) {
	var body struct {
		IDs []int64 `json:"ids"`
	}
	if err := decodeJSON(w, r, &body); err != nil {
		fail(w, r, applog.OpDelete, err)
		return
	}
	n, err := s.registry.DeleteResidents(r.Context(), body.IDs)
	if err != nil {
		fail(w, r, applog.OpDelete, err)
		return
	}
	mutated(r, "Residents deleted", applog.OpDelete, "", 0, body.IDs...)
	NewResponse().JSON(map[string]int64{"deleted": n}).Write(w)
}

func (s *Server) writeResident(w http.ResponseWriter, r *http.Request, id int64, status int) {
	res, families, err := s.loadResident(r.Context(), id)
	if err != nil {
		fail(w, r, applog.OpRead, err)
		return
	}
	NewResponse().Status(status).JSON(residentFrom(res, families)).Write(w)
}

func (s *Server) loadResident(ctx context.Context, id int64) (core.Resident, []core.FamilyMember, error) {
	res, err := s.registry.GetResident(ctx, id)
	if err != nil {
		return core.Resident{}, nil, err
	}
	families, err := s.registry.ListFamilies(ctx, id)
	if err != nil {
		return core.Resident{}, nil, err
	}
	return res, families, nil
}
