// Package httputil holds the shared JSON response helpers used by every HTTP
// handler.
package httputil

import (
	"encoding/json"
	"errors"
	"net/http"

	"timeroom/pkg/domainerrors"
)

// WriteJSON encodes v as the response body with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError translates a domain error into a JSON error envelope. Internal
// errors omit the description so storage details never leak to clients.
func WriteError(w http.ResponseWriter, err error) {
	code := domainerrors.CodeInternal
	message := ""

	var domainErr *domainerrors.Error
	if errors.As(err, &domainErr) {
		code = domainErr.Code
		message = domainErr.Message
	}

	body := map[string]string{"error": string(code)}
	if code != domainerrors.CodeInternal && message != "" {
		body["error_description"] = message
	}
	WriteJSON(w, domainerrors.ToHTTPStatus(code), body)
}
