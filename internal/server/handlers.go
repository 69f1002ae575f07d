package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"token-deploy-wizard/internal/deploy"
	"token-deploy-wizard/internal/domain"
	"token-deploy-wizard/internal/form"
	"token-deploy-wizard/internal/observability"
	"token-deploy-wizard/internal/preview"
	"token-deploy-wizard/internal/validation"
	"token-deploy-wizard/internal/wizard"
)

// maxUploadBytes caps multipart bodies. Files between MaxImageBytes and
// this cap are accepted by the transport and rejected by validation.
const maxUploadBytes = 2*validation.MaxImageBytes + 1<<20

// ErrorResponse is the body of every non-2xx API response.
type ErrorResponse struct {
	Error  string            `json:"error"`
	Errors map[string]string `json:"errors,omitempty"`
}

// StatusResponse is the server status.
type StatusResponse struct {
	Status   string    `json:"status"`
	Uptime   string    `json:"uptime"`
	Started  time.Time `json:"started"`
	Sessions int       `json:"sessions"`
	Network  string    `json:"network"`
}

// draftRequest is a partial basic-info update. Decimals accepts a number
// or a numeric string.
type draftRequest struct {
	Name          *string         `json:"name"`
	Symbol        *string         `json:"symbol"`
	Decimals      json.RawMessage `json:"decimals"`
	InitialSupply *string         `json:"initialSupply"`
	AdminWallet   *string         `json:"adminWallet"`
}

type descriptionRequest struct {
	Description string `json:"description"`
}

// Handler returns the HTTP handler serving the API, /health and /metrics.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.Handle("GET /metrics", observability.Handler())
	mux.HandleFunc("GET /status", s.handleStatus)

	mux.HandleFunc("POST /sessions", s.handleCreateSession)
	mux.HandleFunc("GET /sessions/{id}", s.withWizard(s.handleGetSession))
	mux.HandleFunc("DELETE /sessions/{id}", s.handleDeleteSession)
	mux.HandleFunc("PATCH /sessions/{id}/draft", s.withWizard(s.handlePatchDraft))
	mux.HandleFunc("PUT /sessions/{id}/metadata/description", s.withWizard(s.handleSetDescription))
	mux.HandleFunc("PUT /sessions/{id}/metadata/image", s.withWizard(s.handleSelectImage))
	mux.HandleFunc("DELETE /sessions/{id}/metadata/image", s.withWizard(s.handleRemoveImage))
	mux.HandleFunc("GET /sessions/{id}/preview", s.withWizard(s.handlePreview))
	mux.HandleFunc("POST /sessions/{id}/next", s.withWizard(s.action((*wizard.Wizard).Next)))
	mux.HandleFunc("POST /sessions/{id}/back", s.withWizard(s.action((*wizard.Wizard).Back)))
	mux.HandleFunc("POST /sessions/{id}/skip", s.withWizard(s.action((*wizard.Wizard).Skip)))
	mux.HandleFunc("POST /sessions/{id}/reset", s.withWizard(s.action((*wizard.Wizard).Reset)))
	mux.HandleFunc("POST /sessions/{id}/deploy", s.withWizard(s.handleDeploy))
	mux.HandleFunc("GET /sessions/{id}/fees", s.withWizard(s.handleFees))
	mux.HandleFunc("GET /sessions/{id}/deployments", s.withWizard(s.handleDeployments))
	mux.HandleFunc("GET /sessions/{id}/events", s.withWizard(s.handleEvents))
	mux.HandleFunc("GET /sessions/{id}/ws", s.handleWebSocket)

	return mux
}

type wizardHandler func(w http.ResponseWriter, r *http.Request, wz *wizard.Wizard)

func (s *Server) withWizard(h wizardHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		wz, err := s.Session(r.PathValue("id"))
		if err != nil {
			s.writeError(w, err)
			return
		}
		h(w, r, wz)
	}
}

// action adapts a wizard method without arguments to a handler.
func (s *Server) action(fn func(*wizard.Wizard) (wizard.Snapshot, error)) wizardHandler {
	return func(w http.ResponseWriter, r *http.Request, wz *wizard.Wizard) {
		snap, err := fn(wz)
		if err != nil {
			s.writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, snap)
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, StatusResponse{
		Status:   "running",
		Uptime:   time.Since(s.started).String(),
		Started:  s.started,
		Sessions: len(s.SessionIDs()),
		Network:  s.opts.Network,
	})
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	wz := s.CreateSession()
	writeJSON(w, http.StatusCreated, wz.Snapshot())
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request, wz *wizard.Wizard) {
	writeJSON(w, http.StatusOK, wz.Snapshot())
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := s.CloseSession(r.PathValue("id")); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handlePatchDraft(w http.ResponseWriter, r *http.Request, wz *wizard.Wizard) {
	var req draftRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid JSON: " + err.Error()})
		return
	}

	patch := domain.DraftPatch{
		Name:          req.Name,
		InitialSupply: req.InitialSupply,
		AdminWallet:   req.AdminWallet,
	}
	if req.Symbol != nil {
		upper := form.NormalizeSymbol(*req.Symbol)
		patch.Symbol = &upper
	}
	if len(req.Decimals) > 0 && string(req.Decimals) != "null" {
		d := decodeDecimals(req.Decimals)
		patch.Decimals = &d
	}

	snap, err := wz.UpdateBasic(patch)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleSetDescription(w http.ResponseWriter, r *http.Request, wz *wizard.Wizard) {
	var req descriptionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid JSON: " + err.Error()})
		return
	}
	snap, err := wz.SetDescription(req.Description)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleSelectImage(w http.ResponseWriter, r *http.Request, wz *wizard.Wizard) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(1 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, ErrorResponse{Error: validation.MsgImageTooLarge})
			return
		}
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid multipart form: " + err.Error()})
		return
	}
	defer r.MultipartForm.RemoveAll()

	part, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "missing form file \"file\""})
		return
	}
	defer part.Close()

	file := &domain.ImageFile{
		Name:     header.Filename,
		MimeType: header.Header.Get("Content-Type"),
		Size:     header.Size,
	}
	// Oversized files fail validation on size alone, so their bytes are never read.
	if header.Size <= validation.MaxImageBytes {
		data, err := io.ReadAll(part)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "read upload: " + err.Error()})
			return
		}
		file.Data = data
		if file.MimeType == "" || file.MimeType == "application/octet-stream" {
			file.MimeType = preview.SniffType(header.Filename, data)
		}
	}

	// The preview read outlives the request.
	snap, err := wz.SelectImage(context.WithoutCancel(r.Context()), file)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleRemoveImage(w http.ResponseWriter, r *http.Request, wz *wizard.Wizard) {
	snap, err := wz.RemoveImage()
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request, wz *wizard.Wizard) {
	writeJSON(w, http.StatusOK, wz.Snapshot().Preview)
}

// handleDeploy starts the deploy and answers immediately. The terminal
// status reaches subscribers through the session WebSocket.
func (s *Server) handleDeploy(w http.ResponseWriter, r *http.Request, wz *wizard.Wizard) {
	_, snap, err := wz.StartDeploy(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, snap)
}

func (s *Server) handleFees(w http.ResponseWriter, r *http.Request, wz *wizard.Wizard) {
	writeJSON(w, http.StatusOK, wz.Fees())
}

func (s *Server) handleDeployments(w http.ResponseWriter, r *http.Request, wz *wizard.Wizard) {
	records := []*domain.DeploymentRecord{}
	if s.opts.DeploymentStore != nil {
		got, err := s.opts.DeploymentStore.GetBySession(r.Context(), wz.SessionID())
		if err != nil {
			s.writeError(w, err)
			return
		}
		records = append(records, got...)
	}
	writeJSON(w, http.StatusOK, records)
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request, wz *wizard.Wizard) {
	events := []*domain.WizardEvent{}
	if s.opts.EventStore != nil {
		got, err := s.opts.EventStore.GetBySession(r.Context(), wz.SessionID())
		if err != nil {
			s.writeError(w, err)
			return
		}
		events = append(events, got...)
	}
	writeJSON(w, http.StatusOK, events)
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	sess, err := s.lookup(r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	sess.hub.serve(w, r, sess.wizard.Snapshot)
}

// writeError maps domain errors to HTTP status codes.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	var verr *wizard.ValidationError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusUnprocessableEntity, ErrorResponse{Error: err.Error(), Errors: verr.Result.Errors})
	case errors.Is(err, ErrSessionNotFound):
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: err.Error()})
	case errors.Is(err, wizard.ErrInvalidTransition),
		errors.Is(err, wizard.ErrLocked),
		errors.Is(err, deploy.ErrInFlight),
		errors.Is(err, deploy.ErrAlreadyDeployed):
		writeJSON(w, http.StatusConflict, ErrorResponse{Error: err.Error()})
	default:
		s.logger.Printf("request failed: %v", err)
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// decodeDecimals accepts a JSON number or string.
func decodeDecimals(raw json.RawMessage) int {
	var text string
	if err := json.Unmarshal(raw, &text); err != nil {
		text = string(raw)
	}
	return form.ParseDecimals(text)
}
