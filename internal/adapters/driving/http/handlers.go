package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/tallybooks/docfeed-core/internal/core/domain"
	"github.com/tallybooks/docfeed-core/internal/core/ports/driving"
)

// ErrorResponse represents an API error response
type ErrorResponse struct {
	Error string `json:"error"`
	Hint  string `json:"hint,omitempty"`
}

// Health endpoints

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.db != nil {
		if err := s.db.Ping(r.Context()); err != nil {
			writeError(w, http.StatusServiceUnavailable, "database unavailable")
			return
		}
	}
	if s.redisClient != nil {
		if err := s.redisClient.Ping(r.Context()); err != nil {
			writeError(w, http.StatusServiceUnavailable, "redis unavailable")
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"version": s.version})
}

// Source endpoints

func (s *Server) handleListSources(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	sources, err := s.sourceService.List(r.Context(), claims.TenantID)
	if err != nil {
		s.writeDomainError(w, err, "failed to list sources")
		return
	}

	writeJSON(w, http.StatusOK, sources)
}

func (s *Server) handleUpsertSource(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req driving.UpsertSourceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	source, err := s.sourceService.Upsert(r.Context(), claims.TenantID, claims.UserID, req)
	if err != nil {
		s.writeDomainError(w, err, "failed to save source")
		return
	}

	status := http.StatusOK
	if req.ID == "" {
		status = http.StatusCreated
	}
	writeJSON(w, status, source)
}

func (s *Server) handleGetSource(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	source, err := s.sourceService.Get(r.Context(), claims.TenantID, r.PathValue("id"))
	if err != nil {
		s.writeDomainError(w, err, "failed to get source")
		return
	}

	writeJSON(w, http.StatusOK, source)
}

func (s *Server) handleSourceStatus(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	status, err := s.sourceService.Status(r.Context(), claims.TenantID, r.PathValue("id"))
	if err != nil {
		s.writeDomainError(w, err, "failed to get source status")
		return
	}

	writeJSON(w, http.StatusOK, status)
}

func (s *Server) handleEnableSource(w http.ResponseWriter, r *http.Request) {
	s.setSourceEnabled(w, r, true)
}

func (s *Server) handleDisableSource(w http.ResponseWriter, r *http.Request) {
	s.setSourceEnabled(w, r, false)
}

func (s *Server) setSourceEnabled(w http.ResponseWriter, r *http.Request, enabled bool) {
	claims := GetClaims(r.Context())
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	if err := s.sourceService.SetEnabled(r.Context(), claims.TenantID, r.PathValue("id"), enabled); err != nil {
		s.writeDomainError(w, err, "failed to update source")
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"enabled": enabled})
}

// Sync endpoints

func (s *Server) handleTestSource(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	resp, err := s.syncService.Test(r.Context(), claims.TenantID, r.PathValue("id"))
	if err != nil {
		s.writeDomainError(w, err, "connection test failed")
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

type importRequest struct {
	Files []driving.FileRef `json:"files"`
}

func (s *Server) handleImportFiles(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req importRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	resp, err := s.syncService.Import(r.Context(), claims.TenantID, r.PathValue("id"), req.Files)
	if err != nil {
		s.writeDomainError(w, err, "import failed")
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// OAuth endpoints

func (s *Server) handleOAuthStart(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req driving.StartRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	resp, err := s.oauthService.Start(r.Context(), claims.UserID, claims.TenantID, req)
	if err != nil {
		s.writeDomainError(w, err, "failed to start authorization")
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// handleOAuthCallback receives the provider redirect. On success the
// browser is sent to the sanitised return path; failures are reported
// as JSON since there is no safe page to land on.
func (s *Server) handleOAuthCallback(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	q := r.URL.Query()

	// A denied or failed consent comes back as error/error_description
	// instead of a code.
	if errCode := q.Get("error"); errCode != "" {
		s.writeDomainError(w, &driving.OAuthError{Code: errCode, Hint: q.Get("error_description")}, "authorization failed")
		return
	}

	req := driving.CallbackRequest{
		Code:  q.Get("code"),
		State: q.Get("state"),
	}
	if req.Code == "" || req.State == "" {
		writeError(w, http.StatusBadRequest, "missing code or state")
		return
	}

	resp, err := s.oauthService.Callback(r.Context(), claims.UserID, req)
	if err != nil {
		s.writeDomainError(w, err, "authorization failed")
		return
	}

	http.Redirect(w, r, resp.RedirectTo, http.StatusFound)
}

func (s *Server) handleOAuthDisconnect(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	if err := s.oauthService.Disconnect(r.Context(), claims.UserID, claims.TenantID, r.PathValue("id")); err != nil {
		s.writeDomainError(w, err, "failed to disconnect source")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "disconnected"})
}

// Cron endpoints

func (s *Server) handleCronRotate(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	resp, err := s.cronService.Rotate(r.Context(), claims.UserID, claims.TenantID)
	if err != nil {
		s.writeDomainError(w, err, "failed to rotate cron secret")
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCronStatus(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	status, err := s.cronService.Status(r.Context(), claims.TenantID)
	if err != nil {
		s.writeDomainError(w, err, "failed to get cron status")
		return
	}

	writeJSON(w, http.StatusOK, status)
}

func (s *Server) handleCronEnable(w http.ResponseWriter, r *http.Request) {
	s.setCronEnabled(w, r, true)
}

func (s *Server) handleCronDisable(w http.ResponseWriter, r *http.Request) {
	s.setCronEnabled(w, r, false)
}

func (s *Server) setCronEnabled(w http.ResponseWriter, r *http.Request, enabled bool) {
	claims := GetClaims(r.Context())
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	if err := s.cronService.SetEnabled(r.Context(), claims.UserID, claims.TenantID, enabled); err != nil {
		s.writeDomainError(w, err, "failed to update cron access")
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"enabled": enabled})
}

// handleCronRun is the unattended entry point. Authentication happened
// in CronAuthMiddleware; the tenant comes from the path.
func (s *Server) handleCronRun(w http.ResponseWriter, r *http.Request) {
	tenantID := r.PathValue("tenant")

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	resp, err := s.cronService.RunDue(r.Context(), tenantID, limit)
	if err != nil {
		s.writeDomainError(w, err, "failed to run due sources")
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// Helper functions

// writeDomainError maps domain sentinels to HTTP statuses. fallback is
// used for anything unrecognised so internals never leak to clients.
func (s *Server) writeDomainError(w http.ResponseWriter, err error, fallback string) {
	var provErr *domain.ProviderError
	var oauthErr *driving.OAuthError

	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, domain.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, "invalid input")
	case errors.Is(err, domain.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, "unauthorized")
	case errors.Is(err, domain.ErrForbidden):
		writeError(w, http.StatusForbidden, "admin access required")
	case errors.Is(err, domain.ErrNotEntitled):
		writeError(w, http.StatusForbidden, "document feeds are not available on this plan")
	case errors.Is(err, domain.ErrNotConnected):
		writeError(w, http.StatusConflict, "source is not connected")
	case errors.Is(err, domain.ErrNoRefreshToken):
		writeError(w, http.StatusBadGateway, "provider did not return a refresh token")
	case errors.Is(err, domain.ErrStateExpired):
		writeError(w, http.StatusBadRequest, "authorization expired, start again")
	case errors.Is(err, domain.ErrStateInvalid), errors.Is(err, domain.ErrStateAudience):
		writeError(w, http.StatusBadRequest, "invalid authorization state")
	case errors.Is(err, domain.ErrNotConfigured):
		writeError(w, http.StatusConflict, "provider is not configured")
	case errors.Is(err, domain.ErrProviderAuth):
		writeError(w, http.StatusBadGateway, "provider rejected the stored credential, reconnect the source")
	case errors.As(err, &oauthErr):
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: oauthErr.Code, Hint: oauthErr.Hint})
	case errors.As(err, &provErr):
		writeJSON(w, http.StatusBadGateway, ErrorResponse{Error: "provider request failed", Hint: provErr.Hint})
	default:
		s.logger.Error("request failed", "error", err)
		writeError(w, http.StatusInternalServerError, fallback)
	}
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
