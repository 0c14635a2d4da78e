// Package apiv1 exposes the workflow use cases over JSON/HTTP under /api/v1.
package apiv1

import (
	"net/http"
	"reflect"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"refurb-workflow/internal/infra/api"
	"refurb-workflow/internal/usecase"
)

// Deps lists the use cases behind the API. A nil use case makes its routes
// answer 501.
type Deps struct {
	Jobs          usecase.JobUseCase
	Transitions   usecase.TransitionUseCase
	Steps         usecase.StepUseCase
	Prompts       usecase.PromptUseCase
	Certification usecase.CertificationUseCase
	Diagnoses     usecase.DiagnosisUseCase
	Stats         usecase.StatsUseCase
	// Auth guards every route except /health.
	Auth api.Middleware
}

type Server struct {
	d        Deps
	validate *validator.Validate
	log      *zerolog.Logger
}

func NewServer(d Deps, logger *zerolog.Logger) *Server {
	l := logger.With().Str("component", "apiv1").Logger()
	v := validator.New(validator.WithRequiredStructEnabled())
	// report json field names
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &Server{d: d, validate: v, log: &l}
}

// RegisterAPIV1 mounts the routes on r using absolute /api/v1 paths.
func RegisterAPIV1(r chi.Router, s *Server) {
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api/v1", func(r chi.Router) {
		if s.d.Auth != nil {
			r.Use(s.d.Auth)
		}
		r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		})

		r.Route("/jobs", func(r chi.Router) {
			r.Post("/", s.createJob)
			r.Get("/", s.listJobs)
			r.Get("/by-unit/{unitID}", s.getJobByUnit)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.getJob)
				r.Post("/assign", s.assignJob)
				r.Post("/transitions", s.transitionJob)
				r.Get("/transitions", s.listTransitions)
				r.Get("/transitions/verify", s.verifyTransitions)
				r.Post("/steps", s.completeStep)
				r.Get("/steps", s.listSteps)
				r.Get("/prompt", s.getPrompt)
				r.Post("/prompt", s.composePrompt)
				r.Post("/certify", s.certifyJob)
				r.Post("/diagnoses", s.addDiagnosis)
				r.Get("/diagnoses", s.listDiagnoses)
			})
		})

		r.Get("/stats", s.getStats)
	})
}
