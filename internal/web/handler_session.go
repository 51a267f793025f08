package web

import (
	"net/http"
)

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	info, err := s.service.CreateSession(r.Context())
	if err != nil {
		s.logger.Error("create session failed", "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to create session")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"token": info.Token.String()})
}

func (s *Server) handleGrantSession(w http.ResponseWriter, r *http.Request) {
	session := sessionParam(r)
	if err := s.service.GrantSession(r.Context(), session); err != nil {
		status := statusFor(err)
		if status == http.StatusInternalServerError {
			s.logger.Error("grant session failed", "session", session.String(), "error", err)
		}
		s.writeError(w, status, "failed to grant session")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) handleAdminSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := s.service.AdminSessions(r.Context())
	if err != nil {
		s.logger.Error("admin sessions failed", "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to list sessions")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"sessions": sessions})
}
