//go:build !integration

package apiv1_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"refurb-workflow/internal/config"
	"refurb-workflow/internal/domain"
	"refurb-workflow/internal/domain/model"
	"refurb-workflow/internal/infra/api"
	apiv1 "refurb-workflow/internal/infra/api/apiv1"
	"refurb-workflow/internal/usecase"
)

//
// -------------------- test helpers --------------------
//

func newLogger() *zerolog.Logger { l := zerolog.Nop(); return &l }

func newRouter(d apiv1.Deps) *chi.Mux {
	r := chi.NewRouter()
	apiv1.RegisterAPIV1(r, apiv1.NewServer(d, newLogger()))
	return r
}

func do(t *testing.T, h http.Handler, method, path, body string, hdr ...string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(hdr); i += 2 {
		req.Header.Set(hdr[i], hdr[i+1])
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

type errEnvelope struct {
	Error struct {
		Code         string `json:"code"`
		Message      string `json:"message"`
		State        string `json:"state"`
		Action       string `json:"action"`
		AttemptCount *int   `json:"attempt_count"`
		MaxAttempts  *int   `json:"max_attempts"`
	} `json:"error"`
}

func decodeErr(t *testing.T, rec *httptest.ResponseRecorder) errEnvelope {
	t.Helper()
	var e errEnvelope
	if err := json.NewDecoder(rec.Body).Decode(&e); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	return e
}

func sampleJob(state model.State) *model.Job {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	return &model.Job{
		ID: "job-1", UnitID: "QL-1", PalletID: "PAL-1", Category: "laptop",
		State: state, MaxAttempts: 2, Priority: model.PriorityNormal,
		CreatedAt: now, UpdatedAt: now,
	}
}

//
// -------------------- tests --------------------
//

func TestJobs_Create_AllPaths(t *testing.T) {
	var got model.NewJobParams
	jobs := &mockJobs{
		CreateFunc: func(ctx context.Context, p model.NewJobParams) (*model.Job, error) {
			got = p
			if p.UnitID == "QL-DUP" {
				return nil, &domain.WorkflowError{Kind: domain.ErrDuplicateIdentity, Detail: "unit QL-DUP"}
			}
			return sampleJob(model.StateQueued), nil
		},
	}
	r := newRouter(apiv1.Deps{Jobs: jobs})

	t.Run("201 created", func(t *testing.T) {
		rec := do(t, r, http.MethodPost, "/api/v1/jobs", `{"unit_id":"QL-1","pallet_id":"PAL-1","category":"laptop","priority":"HIGH"}`)
		if rec.Code != http.StatusCreated {
			t.Fatalf("got %d, body=%s", rec.Code, rec.Body.String())
		}
		if got.Priority != model.PriorityHigh {
			t.Errorf("priority should be normalised, got %q", got.Priority)
		}
		var body apiv1.Job
		_ = json.NewDecoder(rec.Body).Decode(&body)
		if body.State != "QUEUED" || body.StateDisplayName != "Queued" || body.AttemptsRemaining != 2 {
			t.Errorf("unexpected job body: %+v", body)
		}
	})

	t.Run("409 duplicate", func(t *testing.T) {
		rec := do(t, r, http.MethodPost, "/api/v1/jobs", `{"unit_id":"QL-DUP","pallet_id":"PAL-1","category":"laptop"}`)
		if rec.Code != http.StatusConflict || decodeErr(t, rec).Error.Code != "duplicate_identity" {
			t.Fatalf("want 409 duplicate_identity, got %d, body=%s", rec.Code, rec.Body.String())
		}
	})

	t.Run("422 missing fields", func(t *testing.T) {
		rec := do(t, r, http.MethodPost, "/api/v1/jobs", `{"unit_id":"QL-2"}`)
		if rec.Code != http.StatusUnprocessableEntity {
			t.Fatalf("want 422, got %d, body=%s", rec.Code, rec.Body.String())
		}
	})

	t.Run("422 unknown priority", func(t *testing.T) {
		rec := do(t, r, http.MethodPost, "/api/v1/jobs", `{"unit_id":"QL-2","pallet_id":"P","category":"c","priority":"asap"}`)
		if rec.Code != http.StatusUnprocessableEntity {
			t.Fatalf("want 422, got %d", rec.Code)
		}
	})

	t.Run("400 missing or malformed body", func(t *testing.T) {
		if rec := do(t, r, http.MethodPost, "/api/v1/jobs", ""); rec.Code != http.StatusBadRequest {
			t.Errorf("missing body: want 400, got %d", rec.Code)
		}
		if rec := do(t, r, http.MethodPost, "/api/v1/jobs", `{"unit_id":`); rec.Code != http.StatusBadRequest {
			t.Errorf("malformed body: want 400, got %d", rec.Code)
		}
		if rec := do(t, r, http.MethodPost, "/api/v1/jobs", `{"unit_id":"x","surprise":1}`); rec.Code != http.StatusBadRequest {
			t.Errorf("unknown field: want 400, got %d", rec.Code)
		}
	})
}

func TestJobs_ListAndGet(t *testing.T) {
	var filter model.JobFilter
	jobs := &mockJobs{
		ListFunc: func(ctx context.Context, f model.JobFilter) ([]*model.Job, error) {
			filter = f
			return []*model.Job{sampleJob(model.StateDiagnosed)}, nil
		},
		GetFunc: func(ctx context.Context, id string) (*model.Job, error) {
			return nil, domain.NotFound("job", id)
		},
		GetByUnitIDFunc: func(ctx context.Context, unitID string) (*model.Job, error) {
			if unitID != "QL-1" {
				t.Errorf("unexpected unit id %q", unitID)
			}
			return sampleJob(model.StateDiagnosed), nil
		},
	}
	r := newRouter(apiv1.Deps{Jobs: jobs})

	rec := do(t, r, http.MethodGet, "/api/v1/jobs?state=diagnosed&priority=urgent&technician_id=tech-1&limit=10&offset=5", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("list: got %d, body=%s", rec.Code, rec.Body.String())
	}
	if filter.State != model.StateDiagnosed || filter.Priority != model.PriorityUrgent || filter.TechnicianID != "tech-1" || filter.Limit != 10 || filter.Offset != 5 {
		t.Errorf("filter not parsed: %+v", filter)
	}

	for _, q := range []string{"state=NOPE", "limit=0", "limit=abc", "offset=-1"} {
		if rec := do(t, r, http.MethodGet, "/api/v1/jobs?"+q, ""); rec.Code != http.StatusUnprocessableEntity {
			t.Errorf("%s: want 422, got %d", q, rec.Code)
		}
	}

	if rec := do(t, r, http.MethodGet, "/api/v1/jobs/missing", ""); rec.Code != http.StatusNotFound {
		t.Errorf("get: want 404, got %d", rec.Code)
	}
	if rec := do(t, r, http.MethodGet, "/api/v1/jobs/by-unit/QL-1", ""); rec.Code != http.StatusOK {
		t.Errorf("by unit: want 200, got %d", rec.Code)
	}
}

func TestTransitions(t *testing.T) {
	var got usecase.TransitionRequest
	trans := &mockTransitions{
		ExecuteFunc: func(ctx context.Context, req usecase.TransitionRequest) (*model.Job, error) {
			got = req
			switch req.Action {
			case model.ActionRetry:
				return nil, &domain.WorkflowError{
					Kind: domain.ErrMaxAttemptsExceeded, JobID: req.JobID,
					State: "FINAL_TEST_FAILED", Action: "RETRY", AttemptCount: 2, MaxAttempts: 2,
				}
			case model.ActionResolve:
				return nil, &domain.WorkflowError{Kind: domain.ErrInvalidTransition, JobID: req.JobID, State: "QUEUED", Action: "RESOLVE"}
			case model.ActionAdvance:
				return nil, errors.New("connection reset")
			}
			return sampleJob(model.StateFailedDisposition), nil
		},
	}
	r := newRouter(apiv1.Deps{Transitions: trans})

	t.Run("200 with payload", func(t *testing.T) {
		rec := do(t, r, http.MethodPost, "/api/v1/jobs/job-1/transitions", `{"action":"fail","technician_id":"tech-1","disposition_reason":"board dead"}`)
		if rec.Code != http.StatusOK {
			t.Fatalf("got %d, body=%s", rec.Code, rec.Body.String())
		}
		if got.JobID != "job-1" || got.Action != model.ActionFail || got.TechnicianID == nil || *got.TechnicianID != "tech-1" {
			t.Errorf("unexpected request: %+v", got)
		}
		if got.Payload == nil || *got.Payload.DispositionReason != "board dead" {
			t.Errorf("payload not forwarded: %+v", got.Payload)
		}
	})

	t.Run("409 carries the attempt budget", func(t *testing.T) {
		rec := do(t, r, http.MethodPost, "/api/v1/jobs/job-1/transitions", `{"action":"RETRY"}`)
		if rec.Code != http.StatusConflict {
			t.Fatalf("want 409, got %d", rec.Code)
		}
		e := decodeErr(t, rec)
		if e.Error.Code != "max_attempts_exceeded" || e.Error.AttemptCount == nil || *e.Error.MaxAttempts != 2 || e.Error.State != "FINAL_TEST_FAILED" {
			t.Errorf("unexpected error body: %+v", e.Error)
		}
	})

	t.Run("409 invalid transition names state and action", func(t *testing.T) {
		rec := do(t, r, http.MethodPost, "/api/v1/jobs/job-1/transitions", `{"action":"RESOLVE"}`)
		e := decodeErr(t, rec)
		if rec.Code != http.StatusConflict || e.Error.Code != "invalid_transition" || e.Error.Action != "RESOLVE" {
			t.Errorf("unexpected response %d %+v", rec.Code, e.Error)
		}
	})

	t.Run("422 unknown action", func(t *testing.T) {
		if rec := do(t, r, http.MethodPost, "/api/v1/jobs/job-1/transitions", `{"action":"TELEPORT"}`); rec.Code != http.StatusUnprocessableEntity {
			t.Errorf("want 422, got %d", rec.Code)
		}
	})

	t.Run("500 hides storage detail", func(t *testing.T) {
		rec := do(t, r, http.MethodPost, "/api/v1/jobs/job-1/transitions", `{"action":"ADVANCE"}`)
		e := decodeErr(t, rec)
		if rec.Code != http.StatusInternalServerError || e.Error.Message != "internal error" {
			t.Errorf("unexpected response %d %+v", rec.Code, e.Error)
		}
	})
}

func TestSteps_PromptAndCertify(t *testing.T) {
	steps := &mockSteps{
		CompleteStepFunc: func(ctx context.Context, jobID string, in usecase.CompleteStepInput) (*model.StepCompletion, error) {
			if in.Data.Inputs["method"] != "nist-800-88" || len(in.Data.Photos) != 1 {
				t.Errorf("step data not forwarded: %+v", in.Data)
			}
			return &model.StepCompletion{ID: "sc-1", JobID: jobID, StateCode: model.StateInProgress, StepCode: in.StepCode, TechnicianID: in.TechnicianID}, nil
		},
	}
	prompts := &mockPrompts{
		PromptForJobFunc: func(ctx context.Context, jobID string) (*model.Prompt, error) {
			step := model.StepDescriptor{Code: "wipe-drive", Required: true}
			return &model.Prompt{JobID: jobID, State: model.StateInProgress, Steps: []model.StepDescriptor{step}, CurrentStep: &step, CanBlock: true}, nil
		},
		CurrentPromptFunc: func(ctx context.Context, jobID string, s []model.StepDescriptor) (*model.Prompt, error) {
			return &model.Prompt{JobID: jobID, Steps: s, CurrentStepIndex: len(s)}, nil
		},
	}
	certify := &mockCertification{
		CertifyFunc: func(ctx context.Context, jobID string, in usecase.CertifyInput) (*model.Job, error) {
			if in.FinalGrade != "A" || !in.WarrantyEligible {
				t.Errorf("unexpected certify input: %+v", in)
			}
			return nil, &domain.WorkflowError{Kind: domain.ErrInvalidStateForCertification, JobID: jobID, State: "DIAGNOSED", Action: "CERTIFY"}
		},
	}
	r := newRouter(apiv1.Deps{Steps: steps, Prompts: prompts, Certification: certify})

	rec := do(t, r, http.MethodPost, "/api/v1/jobs/job-1/steps",
		`{"step_code":"wipe-drive","technician_id":"tech-1","inputs":{"method":"nist-800-88"},"photos":[{"url":"https://img.example/1.jpg"}]}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("complete step: got %d, body=%s", rec.Code, rec.Body.String())
	}
	if rec := do(t, r, http.MethodPost, "/api/v1/jobs/job-1/steps", `{"step_code":"x","photos":[{"url":"not a url"}]}`); rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("bad photo url: want 422, got %d", rec.Code)
	}

	rec = do(t, r, http.MethodGet, "/api/v1/jobs/job-1/prompt", "")
	var p apiv1.Prompt
	_ = json.NewDecoder(rec.Body).Decode(&p)
	if rec.Code != http.StatusOK || p.CurrentStep == nil || p.CurrentStep.Code != "wipe-drive" || !p.CanBlock {
		t.Errorf("unexpected prompt %d %+v", rec.Code, p)
	}
	rec = do(t, r, http.MethodPost, "/api/v1/jobs/job-1/prompt", `{"steps":[{"code":"a"},{"code":"b","required":true}]}`)
	_ = json.NewDecoder(rec.Body).Decode(&p)
	if rec.Code != http.StatusOK || len(p.Steps) != 2 || p.CurrentStepIndex != 2 {
		t.Errorf("unexpected composed prompt %d %+v", rec.Code, p)
	}

	rec = do(t, r, http.MethodPost, "/api/v1/jobs/job-1/certify", `{"final_grade":"A","warranty_eligible":true}`)
	if rec.Code != http.StatusConflict || decodeErr(t, rec).Error.Code != "invalid_state_for_certification" {
		t.Errorf("certify: want 409, got %d", rec.Code)
	}
	if rec := do(t, r, http.MethodPost, "/api/v1/jobs/job-1/certify", `{"warranty_eligible":true}`); rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("certify without grade: want 422, got %d", rec.Code)
	}
}

func TestDiagnosesAndStats(t *testing.T) {
	diag := &mockDiagnoses{
		AddFunc: func(ctx context.Context, jobID string, p model.NewDiagnosisParams) (*model.Diagnosis, error) {
			return &model.Diagnosis{ID: "dx-1", JobID: jobID, DefectCode: p.DefectCode, Severity: p.Severity, RepairStatus: model.RepairStatusPending}, nil
		},
		ListFunc: func(ctx context.Context, jobID string) ([]*model.Diagnosis, error) {
			return nil, nil
		},
	}
	stats := &mockStats{
		GetStatsFunc: func(ctx context.Context) (*model.Stats, error) {
			return &model.Stats{
				Total:            3,
				ByState:          map[model.State]int{model.StateComplete: 1, model.StateQueued: 2},
				ByPriority:       map[model.Priority]int{model.PriorityNormal: 3},
				CompletedToday:   1,
				AverageCycleTime: 90 * time.Minute,
			}, nil
		},
	}
	r := newRouter(apiv1.Deps{Diagnoses: diag, Stats: stats})

	if rec := do(t, r, http.MethodPost, "/api/v1/jobs/job-1/diagnoses", `{"defect_code":"BATT","severity":"major"}`); rec.Code != http.StatusCreated {
		t.Errorf("add diagnosis: got %d, body=%s", rec.Code, rec.Body.String())
	}
	if rec := do(t, r, http.MethodPost, "/api/v1/jobs/job-1/diagnoses", `{"defect_code":"BATT","severity":"apocalyptic"}`); rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("bad severity: want 422, got %d", rec.Code)
	}
	if rec := do(t, r, http.MethodPost, "/api/v1/jobs/job-1/diagnoses", `{"defect_code":"BATT","severity":"minor","required_parts":[{"sku":"X","quantity":0}]}`); rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("zero quantity: want 422, got %d", rec.Code)
	}
	rec := do(t, r, http.MethodGet, "/api/v1/jobs/job-1/diagnoses", "")
	if rec.Code != http.StatusOK || !bytes.Contains(rec.Body.Bytes(), []byte(`"items":[]`)) {
		t.Errorf("empty list should encode as [], got %s", rec.Body.String())
	}

	rec = do(t, r, http.MethodGet, "/api/v1/stats", "")
	var st apiv1.Stats
	_ = json.NewDecoder(rec.Body).Decode(&st)
	if rec.Code != http.StatusOK || st.ByState["COMPLETE"] != 1 || st.AverageCycleTimeSeconds != 5400 {
		t.Errorf("unexpected stats %d %+v", rec.Code, st)
	}
}

func TestNilUseCaseIs501(t *testing.T) {
	r := newRouter(apiv1.Deps{})
	if rec := do(t, r, http.MethodGet, "/api/v1/stats", ""); rec.Code != http.StatusNotImplemented {
		t.Errorf("want 501, got %d", rec.Code)
	}
	if rec := do(t, r, http.MethodGet, "/health", ""); rec.Code != http.StatusOK {
		t.Errorf("health: want 200, got %d", rec.Code)
	}
}

func TestAuth(t *testing.T) {
	const secret = "test-secret"
	var assigned string
	jobs := &mockJobs{
		AssignFunc: func(ctx context.Context, jobID, techID, techName string) (*model.Job, error) {
			assigned = techID
			return sampleJob(model.StateAssigned), nil
		},
	}
	auth := api.TechnicianAuth(config.AuthConfig{JWTSecret: secret, APIKey: "k-123"}, newLogger())
	r := newRouter(apiv1.Deps{Jobs: jobs, Auth: auth})

	t.Run("401 without credentials", func(t *testing.T) {
		if rec := do(t, r, http.MethodPost, "/api/v1/jobs/job-1/assign", ""); rec.Code != http.StatusUnauthorized {
			t.Errorf("want 401, got %d", rec.Code)
		}
	})

	t.Run("health stays public", func(t *testing.T) {
		if rec := do(t, r, http.MethodGet, "/health", ""); rec.Code != http.StatusOK {
			t.Errorf("want 200, got %d", rec.Code)
		}
	})

	t.Run("bearer token identifies the technician", func(t *testing.T) {
		tok, err := api.MintToken(secret, "tech-7", "Gia", time.Minute)
		if err != nil {
			t.Fatalf("MintToken() failed: %v", err)
		}
		rec := do(t, r, http.MethodPost, "/api/v1/jobs/job-1/assign", `{"technician_id":"someone-else"}`, "Authorization", "Bearer "+tok)
		if rec.Code != http.StatusOK || assigned != "tech-7" {
			t.Errorf("want 200 assigned to tech-7, got %d %q", rec.Code, assigned)
		}
	})

	t.Run("token signed with another secret is rejected", func(t *testing.T) {
		tok, _ := api.MintToken("other", "tech-7", "", time.Minute)
		if rec := do(t, r, http.MethodPost, "/api/v1/jobs/job-1/assign", "", "Authorization", "Bearer "+tok); rec.Code != http.StatusUnauthorized {
			t.Errorf("want 401, got %d", rec.Code)
		}
	})

	t.Run("api key with technician header", func(t *testing.T) {
		rec := do(t, r, http.MethodPost, "/api/v1/jobs/job-1/assign", "", api.HeaderAPIKey, "k-123", api.HeaderTechnicianID, "tech-3")
		if rec.Code != http.StatusOK || assigned != "tech-3" {
			t.Errorf("want 200 assigned to tech-3, got %d %q", rec.Code, assigned)
		}
		if rec := do(t, r, http.MethodPost, "/api/v1/jobs/job-1/assign", "", api.HeaderAPIKey, "wrong"); rec.Code != http.StatusUnauthorized {
			t.Errorf("wrong key: want 401, got %d", rec.Code)
		}
	})
}
