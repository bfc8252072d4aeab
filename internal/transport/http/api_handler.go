package http

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"contest-service/internal/app"
	"contest-service/internal/domain"
)

// APIHandler exposes the contest REST surface: the question list, the
// advisory team validation, the single submission, and the admin views.
type APIHandler struct {
	service   *app.ContestService
	adminUser string
	adminPass string
}

func NewAPIHandler(service *app.ContestService, adminUser, adminPass string) *APIHandler {
	return &APIHandler{service: service, adminUser: adminUser, adminPass: adminPass}
}

// Register wires the REST routes onto the mux.
func (h *APIHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/api/questions", h.handleQuestions)
	mux.HandleFunc("/api/validate-team", h.handleValidateTeam)
	mux.HandleFunc("/api/submit", h.handleSubmit)
	mux.HandleFunc("/api/admin/submissions", h.RequireAdmin(h.handleAdminSubmissions))
	mux.HandleFunc("/api/admin/reload-config", h.RequireAdmin(h.handleAdminReload))
}

type validateRequest struct {
	TeamName     string `json:"teamName"`
	ConnectionID string `json:"connectionId,omitempty"`
}

type submitRequest struct {
	TeamName string          `json:"teamName"`
	Answers  json.RawMessage `json:"answers"`
}

type messagePayload struct {
	Message string `json:"message"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (h *APIHandler) handleQuestions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	questions, err := h.service.Questions()
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, "questions unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"questions": questions})
}

func (h *APIHandler) handleValidateTeam(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req validateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	err := h.service.ValidateTeam(r.Context(), req.TeamName, req.ConnectionID)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, messagePayload{Message: "Valid"})
	case errors.Is(err, domain.ErrInvalidTeamName):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrAlreadySubmitted), errors.Is(err, domain.ErrActiveElsewhere):
		writeError(w, http.StatusForbidden, err.Error())
	default:
		log.Printf("validate-team failed: %v", err)
		writeError(w, http.StatusServiceUnavailable, "validation unavailable")
	}
}

func (h *APIHandler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	score, err := h.service.Submit(r.Context(), req.TeamName, req.Answers)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, map[string]int{"score": score})
	case errors.Is(err, domain.ErrInvalidTeamName):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrAlreadySubmitted):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, domain.ErrConfigUnavailable):
		writeError(w, http.StatusServiceUnavailable, "questions unavailable")
	default:
		log.Printf("submit failed: %v", err)
		writeError(w, http.StatusInternalServerError, "submission failed")
	}
}

func (h *APIHandler) handleAdminSubmissions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	records, err := h.service.Submissions(r.Context())
	if err != nil {
		log.Printf("list submissions failed: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to fetch submissions")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"submissions": records})
}

func (h *APIHandler) handleAdminReload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if err := h.service.ReloadConfig(r.Context()); err != nil {
		log.Printf("config reload failed: %v", err)
		writeError(w, http.StatusInternalServerError, "reload failed, prior config still in effect")
		return
	}
	writeJSON(w, http.StatusOK, messagePayload{Message: "config reloaded"})
}

// RequireAdmin guards a handler with HTTP basic auth against the configured
// admin credentials.
func (h *APIHandler) RequireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok ||
			subtle.ConstantTimeCompare([]byte(user), []byte(h.adminUser)) != 1 ||
			subtle.ConstantTimeCompare([]byte(pass), []byte(h.adminPass)) != 1 {
			w.Header().Set("WWW-Authenticate", `Basic realm="contest admin"`)
			writeError(w, http.StatusUnauthorized, "access denied")
			return
		}
		next(w, r)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("write response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}
