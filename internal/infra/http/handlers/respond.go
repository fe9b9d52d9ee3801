package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/xavierca1/leadsync/internal/infra/integration/httpclient"
	"github.com/xavierca1/leadsync/internal/usecase"
)

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, err error) {
	resp := ErrorResponse{Error: usecase.UserMessage(err)}
	var de *usecase.DomainError
	if errors.As(err, &de) {
		resp.Code = de.Code
	}
	writeJSON(w, statusFor(err), resp)
}

// statusFor maps errors onto HTTP statuses. Upstream credential failures are
// a bad gateway from the caller's point of view.
func statusFor(err error) int {
	switch {
	case errors.Is(err, usecase.ErrSyncInProgress):
		return http.StatusConflict
	case usecase.IsDomainError(err):
		return http.StatusBadRequest
	}

	switch httpclient.KindOf(err) {
	case httpclient.KindUnauthorized, httpclient.KindMalformed:
		return http.StatusBadGateway
	case httpclient.KindNotFound:
		return http.StatusNotFound
	case httpclient.KindRateLimited, httpclient.KindTransient:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
