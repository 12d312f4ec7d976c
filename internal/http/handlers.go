package http

import (
	"context"
	"net/http"
	"time"

	"lifedash/internal/log"
)

const readyTimeout = 5 * time.Second

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().Body(map[string]string{
		"status": "ok",
		"uptime": s.now().Sub(s.startedAt).Round(time.Second).String(),
	}).Write(w)
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
		defer cancel()
		if err := s.ready(ctx); err != nil {
			log.FromContext(r.Context()).WarnContext(r.Context(), "Readiness check failed", log.FieldError, err.Error())
			ServiceUnavailableError("store unavailable").Write(w)
			return
		}
	}
	NewJSONResponse().Body(map[string]string{"status": "ready"}).Write(w)
}

// userID resolves the caller, writing a 400 and returning false when the header is malformed.
func (s *Server) userID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id, err := UserID(r, s.defaultUserID)
	if err != nil {
		ErrorFor(err).Write(w)
		return "", false
	}
	return id, true
}

// body parses the request body, writing a 400 and returning nil on malformed input.
func (s *Server) body(w http.ResponseWriter, r *http.Request) *RequestBodyParser {
	p := NewRequestBodyParser(w, r)
	if err := p.Parse(); err != nil {
		ErrorFor(err).Write(w)
		return nil
	}
	return p
}

// sessionContext outlives the request: loads change state shared by every
// client of the session and must not be cut short by one disconnecting.
func sessionContext(r *http.Request) context.Context {
	return context.WithoutCancel(r.Context())
}

// respond writes v, or the error mapped to its status. Only unexpected errors are logged.
func (s *Server) respond(w http.ResponseWriter, r *http.Request, op string, v any, err error) {
	if err == nil {
		NewJSONResponse().Body(v).Write(w)
		return
	}
	res := ErrorFor(err)
	if res.statusCode >= http.StatusInternalServerError {
		s.errLog.Failed(r.Context(), "Request failed", err, op,
			log.NewFields().WithHTTPRequest(r.Method, r.URL.Path, r.URL.RawQuery, r.Header.Get("User-Agent")))
	}
	res.Write(w)
}
