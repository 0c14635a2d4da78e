package apiv1

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"refurb-workflow/internal/domain/model"
	"refurb-workflow/internal/usecase"
)

func (s *Server) transitionJob(w http.ResponseWriter, r *http.Request) {
	if s.d.Transitions == nil {
		s.writeError(w, r, errNotImplemented)
		return
	}
	var req TransitionRequest
	if err := s.decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	action, err := model.ParseAction(req.Action)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var body string
	if req.TechnicianID != nil {
		body = *req.TechnicianID
	}
	var techID *string
	if id := actingTechnician(r, body); id != "" {
		techID = &id
	}
	tr := usecase.TransitionRequest{JobID: chi.URLParam(r, "id"), Action: action, TechnicianID: techID}
	if req.Notes != nil || req.FinalGrade != nil || req.WarrantyEligible != nil || req.DispositionReason != nil {
		tr.Payload = &model.TransitionPayload{
			FinalGrade:        req.FinalGrade,
			WarrantyEligible:  req.WarrantyEligible,
			DispositionReason: req.DispositionReason,
			Notes:             req.Notes,
		}
	}
	job, err := s.d.Transitions.Execute(r.Context(), tr)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toJob(job))
}

func (s *Server) completeStep(w http.ResponseWriter, r *http.Request) {
	if s.d.Steps == nil {
		s.writeError(w, r, errNotImplemented)
		return
	}
	var req CompleteStepRequest
	if err := s.decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	data := model.StepData{
		Checklist:    req.Checklist,
		Inputs:       req.Inputs,
		Measurements: req.Measurements,
		Notes:        req.Notes,
	}
	for _, p := range req.Photos {
		data.Photos = append(data.Photos, model.PhotoRef{URL: p.URL, Type: p.Type})
	}
	sc, err := s.d.Steps.CompleteStep(r.Context(), chi.URLParam(r, "id"), usecase.CompleteStepInput{
		StepCode:       req.StepCode,
		TechnicianID:   actingTechnician(r, req.TechnicianID),
		TechnicianName: req.TechnicianName,
		Data:           data,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toStepCompletion(sc))
}

func (s *Server) listSteps(w http.ResponseWriter, r *http.Request) {
	if s.d.Steps == nil {
		s.writeError(w, r, errNotImplemented)
		return
	}
	list, err := s.d.Steps.ListCurrent(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	items := make([]StepCompletion, 0, len(list))
	for _, sc := range list {
		items = append(items, toStepCompletion(sc))
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (s *Server) getPrompt(w http.ResponseWriter, r *http.Request) {
	if s.d.Prompts == nil {
		s.writeError(w, r, errNotImplemented)
		return
	}
	p, err := s.d.Prompts.PromptForJob(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toPrompt(p))
}

// composePrompt builds the prompt against a step list sent by the caller.
func (s *Server) composePrompt(w http.ResponseWriter, r *http.Request) {
	if s.d.Prompts == nil {
		s.writeError(w, r, errNotImplemented)
		return
	}
	var req PromptRequest
	if err := s.decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	steps := make([]model.StepDescriptor, 0, len(req.Steps))
	for _, st := range req.Steps {
		steps = append(steps, model.StepDescriptor{Code: st.Code, Title: st.Title, Required: st.Required})
	}
	p, err := s.d.Prompts.CurrentPrompt(r.Context(), chi.URLParam(r, "id"), steps)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toPrompt(p))
}

func (s *Server) certifyJob(w http.ResponseWriter, r *http.Request) {
	if s.d.Certification == nil {
		s.writeError(w, r, errNotImplemented)
		return
	}
	var req CertifyRequest
	if err := s.decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	job, err := s.d.Certification.Certify(r.Context(), chi.URLParam(r, "id"), usecase.CertifyInput{
		TechnicianID:     actingTechnician(r, req.TechnicianID),
		FinalGrade:       req.FinalGrade,
		WarrantyEligible: req.WarrantyEligible,
		Notes:            req.Notes,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toJob(job))
}

func (s *Server) addDiagnosis(w http.ResponseWriter, r *http.Request) {
	if s.d.Diagnoses == nil {
		s.writeError(w, r, errNotImplemented)
		return
	}
	var req DiagnosisRequest
	if err := s.decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	parts := make([]model.RequiredPart, 0, len(req.RequiredParts))
	for _, p := range req.RequiredParts {
		parts = append(parts, model.RequiredPart{SKU: p.SKU, Name: p.Name, Quantity: p.Quantity})
	}
	d, err := s.d.Diagnoses.Add(r.Context(), chi.URLParam(r, "id"), model.NewDiagnosisParams{
		DefectCode:    req.DefectCode,
		Severity:      model.Severity(req.Severity),
		Measurements:  req.Measurements,
		RepairAction:  req.RepairAction,
		RequiredParts: parts,
		RepairStatus:  model.RepairStatus(req.RepairStatus),
		TechnicianID:  actingTechnician(r, req.TechnicianID),
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toDiagnosis(d))
}

func (s *Server) listDiagnoses(w http.ResponseWriter, r *http.Request) {
	if s.d.Diagnoses == nil {
		s.writeError(w, r, errNotImplemented)
		return
	}
	list, err := s.d.Diagnoses.List(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	items := make([]Diagnosis, 0, len(list))
	for _, d := range list {
		items = append(items, toDiagnosis(d))
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (s *Server) getStats(w http.ResponseWriter, r *http.Request) {
	if s.d.Stats == nil {
		s.writeError(w, r, errNotImplemented)
		return
	}
	st, err := s.d.Stats.GetStats(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toStats(st))
}
