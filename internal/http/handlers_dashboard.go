package http

import "net/http"

// handleDashboard returns the home overview. Sections that fail to load are
// reported in the body's errors map rather than failing the request.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	uid, ok := s.userID(w, r)
	if !ok {
		return
	}
	s.respond(w, r, "dashboard", s.dashboard.Overview(r.Context(), uid, s.now()), nil)
}
