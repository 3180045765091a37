// Package api is the HTTP surface over the verification engine. Handlers
// delegate to the services and map error kinds onto status codes.
package api

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/praxis-labs/veracity/internal/correction"
	"github.com/praxis-labs/veracity/internal/jobs"
	"github.com/praxis-labs/veracity/internal/model"
	"github.com/praxis-labs/veracity/internal/store"
	"github.com/praxis-labs/veracity/internal/verify"
)

// Handler serves the REST API.
type Handler struct {
	store       store.Store
	orch        *verify.Orchestrator
	corrections *correction.Service
	runner      jobs.Runner
}

// New wires a Handler.
func New(st store.Store, orch *verify.Orchestrator, corrections *correction.Service, runner jobs.Runner) *Handler {
	return &Handler{store: st, orch: orch, corrections: corrections, runner: runner}
}

// Router builds the chi route tree.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "Authorization"},
		MaxAge:         300,
	}))

	r.Get("/healthz", h.health)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/companies", func(r chi.Router) {
			r.Post("/", h.createCompany)
			r.Get("/", h.listCompanies)
			r.Route("/{companyID}", func(r chi.Router) {
				r.Get("/", h.getCompany)
				r.Post("/verify", h.submitVerification)
				r.Get("/result", h.latestResult)
				r.Get("/data-points", h.listDataPoints)
				r.Get("/corrections", h.listCorrections)
			})
		})

		r.Route("/runs/{runID}", func(r chi.Router) {
			r.Get("/", h.getRun)
			r.Delete("/", h.cancelRun)
		})

		r.Route("/jobs/{jobID}", func(r chi.Router) {
			r.Get("/", h.jobStatus)
			r.Delete("/", h.cancelJob)
		})

		r.Route("/corrections", func(r chi.Router) {
			r.Post("/", h.createCorrection)
			r.Post("/{correctionID}/approve", h.approveCorrection)
			r.Post("/{correctionID}/reject", h.rejectCorrection)
		})
	})

	return r
}

func (h *Handler) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) createCompany(w http.ResponseWriter, r *http.Request) {
	var c model.Company
	if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
		writeError(w, model.NewValidationError("invalid request body"))
		return
	}
	if c.LegalName == "" {
		writeError(w, model.NewValidationError("legal_name is required"))
		return
	}
	if err := h.store.CreateCompany(r.Context(), &c); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (h *Handler) getCompany(w http.ResponseWriter, r *http.Request) {
	c, err := h.store.GetCompany(r.Context(), chi.URLParam(r, "companyID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *Handler) listCompanies(w http.ResponseWriter, r *http.Request) {
	companies, err := h.store.ListCompanies(r.Context(), store.CompanyFilter{
		Jurisdiction: r.URL.Query().Get("jurisdiction"),
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"companies": companies})
}

func (h *Handler) submitVerification(w http.ResponseWriter, r *http.Request) {
	companyID := chi.URLParam(r, "companyID")
	if _, err := h.store.GetCompany(r.Context(), companyID); err != nil {
		writeError(w, err)
		return
	}

	var req struct {
		TimeoutSecs int `json:"timeout_secs"`
	}
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, model.NewValidationError("invalid request body"))
			return
		}
	}

	jobID, err := h.runner.Submit(r.Context(), companyID, time.Duration(req.TimeoutSecs)*time.Second)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"job_id": jobID, "company_id": companyID})
}

func (h *Handler) latestResult(w http.ResponseWriter, r *http.Request) {
	run, err := h.orch.LatestResult(r.Context(), chi.URLParam(r, "companyID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func (h *Handler) getRun(w http.ResponseWriter, r *http.Request) {
	run, err := h.store.GetRun(r.Context(), chi.URLParam(r, "runID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func (h *Handler) cancelRun(w http.ResponseWriter, r *http.Request) {
	if err := h.orch.Cancel(r.Context(), chi.URLParam(r, "runID")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) jobStatus(w http.ResponseWriter, r *http.Request) {
	job, err := h.runner.Status(r.Context(), chi.URLParam(r, "jobID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (h *Handler) cancelJob(w http.ResponseWriter, r *http.Request) {
	if err := h.runner.Cancel(r.Context(), chi.URLParam(r, "jobID")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) listDataPoints(w http.ResponseWriter, r *http.Request) {
	dps, err := h.store.ListDataPoints(r.Context(),
		chi.URLParam(r, "companyID"),
		model.DataType(strings.ToUpper(r.URL.Query().Get("type"))))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data_points": dps})
}

func (h *Handler) createCorrection(w http.ResponseWriter, r *http.Request) {
	var req correction.CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, model.NewValidationError("invalid request body"))
		return
	}
	current, err := h.corrections.CurrentValue(r.Context(), req.CompanyID, req.DataPointID, req.FieldName)
	if err != nil {
		writeError(w, err)
		return
	}
	if req.NewValue == current {
		writeError(w, model.NewValidationError("correction is a no-op: %q is already the value of %s", req.NewValue, req.FieldName))
		return
	}
	c, err := h.corrections.Create(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (h *Handler) approveCorrection(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ApprovedBy string `json:"approved_by"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, model.NewValidationError("invalid request body"))
		return
	}
	c, err := h.corrections.Approve(r.Context(), chi.URLParam(r, "correctionID"), req.ApprovedBy)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *Handler) rejectCorrection(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RejectedBy string `json:"rejected_by"`
		Reason     string `json:"reason"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, model.NewValidationError("invalid request body"))
		return
	}
	c, err := h.corrections.Reject(r.Context(), chi.URLParam(r, "correctionID"), req.RejectedBy, req.Reason)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *Handler) listCorrections(w http.ResponseWriter, r *http.Request) {
	history, err := h.corrections.History(r.Context(),
		chi.URLParam(r, "companyID"),
		r.URL.Query().Get("field"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"corrections": history})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Error("encode response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case model.IsValidation(err):
		status = http.StatusBadRequest
	case model.IsNotFound(err):
		status = http.StatusNotFound
	case model.IsConflict(err):
		status = http.StatusConflict
	}
	if status == http.StatusInternalServerError {
		zap.L().Error("request failed", zap.Error(err))
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
