package apiv1

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"refurb-workflow/internal/domain"
	"refurb-workflow/internal/domain/model"
	"refurb-workflow/internal/infra/logging"
)

const maxPageSize = 200

func (s *Server) createJob(w http.ResponseWriter, r *http.Request) {
	if s.d.Jobs == nil {
		s.writeError(w, r, errNotImplemented)
		return
	}
	var req CreateJobRequest
	if err := s.decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	prio, err := model.ParsePriority(req.Priority)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	job, err := s.d.Jobs.Create(r.Context(), model.NewJobParams{
		UnitID:       req.UnitID,
		PalletID:     req.PalletID,
		Category:     req.Category,
		Manufacturer: req.Manufacturer,
		Model:        req.Model,
		Priority:     prio,
		MaxAttempts:  req.MaxAttempts,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Location", "/api/v1/jobs/"+job.ID)
	writeJSON(w, http.StatusCreated, toJob(job))
}

func (s *Server) listJobs(w http.ResponseWriter, r *http.Request) {
	if s.d.Jobs == nil {
		s.writeError(w, r, errNotImplemented)
		return
	}
	f, err := parseFilter(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	jobs, err := s.d.Jobs.List(r.Context(), f)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	items := make([]Job, 0, len(jobs))
	for _, j := range jobs {
		items = append(items, toJob(j))
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items, "limit": f.Limit, "offset": f.Offset})
}

func parseFilter(r *http.Request) (model.JobFilter, error) {
	q := r.URL.Query()
	f := model.JobFilter{
		TechnicianID: strings.TrimSpace(q.Get("technician_id")),
		Category:     strings.TrimSpace(q.Get("category")),
		Limit:        50,
	}
	if v := q.Get("state"); v != "" {
		st, err := model.ParseState(v)
		if err != nil {
			return f, err
		}
		f.State = st
	}
	if v := q.Get("priority"); v != "" {
		p, err := model.ParsePriority(v)
		if err != nil {
			return f, err
		}
		f.Priority = p
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > maxPageSize {
			return f, domain.InvalidArgument("limit must be between 1 and %d", maxPageSize)
		}
		f.Limit = n
	}
	if v := q.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return f, domain.InvalidArgument("offset must be a non-negative integer")
		}
		f.Offset = n
	}
	return f, nil
}

func (s *Server) getJob(w http.ResponseWriter, r *http.Request) {
	if s.d.Jobs == nil {
		s.writeError(w, r, errNotImplemented)
		return
	}
	job, err := s.d.Jobs.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toJob(job))
}

func (s *Server) getJobByUnit(w http.ResponseWriter, r *http.Request) {
	if s.d.Jobs == nil {
		s.writeError(w, r, errNotImplemented)
		return
	}
	job, err := s.d.Jobs.GetByUnitID(r.Context(), chi.URLParam(r, "unitID"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toJob(job))
}

func (s *Server) assignJob(w http.ResponseWriter, r *http.Request) {
	if s.d.Jobs == nil {
		s.writeError(w, r, errNotImplemented)
		return
	}
	var req AssignRequest
	if err := s.decodeOptional(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	techID := actingTechnician(r, req.TechnicianID)
	job, err := s.d.Jobs.Assign(r.Context(), chi.URLParam(r, "id"), techID, req.TechnicianName)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toJob(job))
}

func (s *Server) listTransitions(w http.ResponseWriter, r *http.Request) {
	if s.d.Jobs == nil {
		s.writeError(w, r, errNotImplemented)
		return
	}
	entries, err := s.d.Jobs.History(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	items := make([]Transition, 0, len(entries))
	for _, e := range entries {
		items = append(items, toTransition(e))
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (s *Server) verifyTransitions(w http.ResponseWriter, r *http.Request) {
	if s.d.Jobs == nil {
		s.writeError(w, r, errNotImplemented)
		return
	}
	check, err := s.d.Jobs.VerifyHistory(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toHistoryCheck(check))
}

// actingTechnician prefers the authenticated identity over the body field.
func actingTechnician(r *http.Request, fromBody string) string {
	if id, ok := logging.TechnicianID(r.Context()); ok && id != "" {
		return id
	}
	return strings.TrimSpace(fromBody)
}
