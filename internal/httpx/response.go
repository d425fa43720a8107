// Package httpx holds the JSON envelope shared by every handler.
package httpx

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// maxBodyBytes caps JSON request bodies.
const maxBodyBytes = 1 << 20

// ErrorResponse is the body of every non-2xx reply. Error carries a stable
// snake_case code such as invalid_json, validation_failed, forbidden,
// role_in_use or store_unavailable; clients switch on it, never on the
// HTTP reason phrase.
//
// Details is optional. validation_failed puts the field violations there,
// and invalid_permission the rejected module and action.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"`
}

// encodeFailure is sent when a payload cannot be marshalled. Nothing has
// been written yet at that point, so the status is still ours to choose.
const encodeFailure = `{"error":"encode_error"}`

// JSON writes payload with status. A nil payload is written as null so
// clients always receive a JSON document.
func JSON(w http.ResponseWriter, status int, payload any) {
	body := []byte("null")
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = io.WriteString(w, encodeFailure)
			return
		}
		body = b
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// the client may be gone; there is no one left to tell
	_, _ = w.Write(body)
}

// JSONError replies with an ErrorResponse carrying code and details.
func JSONError(w http.ResponseWriter, status int, code string, details any) {
	JSON(w, status, ErrorResponse{Error: code, Details: details})
}

// DecodeJSON reads a JSON body into dst, rejecting empty or oversized bodies.
// Handlers answer its errors with invalid_json.
func DecodeJSON(r *http.Request, dst any) error {
	if r.Body == nil {
		return errors.New("empty body")
	}
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("empty body")
		}
		return fmt.Errorf("invalid json: %w", err)
	}
	return nil
}
