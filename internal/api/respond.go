package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"wa-relay/internal/whatsapp"
)

// ErrorResponse is the body of every JSON error.
type ErrorResponse struct {
	Error  string `json:"error"`
	Detail string `json:"detail,omitempty"`
}

// writeJSON encodes v before touching the response, so an encoding failure
// still produces a 500.
func (a *API) writeJSON(w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		a.Log.WithError(err).Error("failed to encode response")
		body, _ = json.Marshal(ErrorResponse{Error: "internal_error", Detail: "could not encode response"})
		status = http.StatusInternalServerError
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(append(body, '\n'))
}

func (a *API) writeError(w http.ResponseWriter, status int, kind, detail string) {
	a.writeJSON(w, status, ErrorResponse{Error: kind, Detail: detail})
}

// writeSendError maps provider client errors onto HTTP statuses.
func (a *API) writeSendError(w http.ResponseWriter, err error) {
	var (
		verr *whatsapp.ValidationError
		perr *whatsapp.ProviderError
		terr *whatsapp.TransportError
	)
	switch {
	case errors.As(err, &verr):
		a.writeError(w, http.StatusBadRequest, "validation_error", verr.Error())
	case errors.As(err, &perr):
		a.Log.WithField("status", perr.StatusCode).Warn("provider rejected send")
		a.writeError(w, http.StatusBadGateway, "provider_error", perr.Body)
	case errors.As(err, &terr):
		a.Log.WithError(err).Error("provider unreachable")
		a.writeError(w, http.StatusGatewayTimeout, "transport_error", terr.Error())
	default:
		a.Log.WithError(err).Error("send failed")
		a.writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}
