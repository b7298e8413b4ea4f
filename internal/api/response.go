package api

import (
	"net/http"

	"github.com/goccy/go-json"

	"github.com/nerrad567/device-relay/internal/relay"
)

// envelope is the body of every response.
type envelope struct {
	Success bool           `json:"success"`
	Data    any            `json:"data,omitempty"`
	Error   *relay.Failure `json:"error,omitempty"`
}

// writeJSON writes a JSON response with the given status code and payload.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		//nolint:errcheck // Best-effort write to response; connection may be closed
		json.NewEncoder(w).Encode(v)
	}
}

// writeData writes a successful envelope.
func writeData(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, envelope{Success: true, Data: data})
}

// writeFailure writes a failed envelope with the failure's status.
func writeFailure(w http.ResponseWriter, f relay.Failure) {
	writeJSON(w, f.Status, envelope{Success: false, Error: &f})
}

// writeError classifies err and writes it.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	f := relay.Classify(err)
	if f.Status >= http.StatusInternalServerError {
		s.logger.Warn("request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"code", f.Code,
			"error", err,
			"request_id", requestIDFrom(r),
		)
	}
	writeFailure(w, f)
}
