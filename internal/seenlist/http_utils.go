package seenlist

import (
	"encoding/json"
	"errors"
	"net/http"
)

// apiError carries an HTTP status out of list mutation logic so mutation
// closures can reject with the right code.
type apiError struct {
	status int
	msg    string
}

func (e *apiError) Error() string { return e.msg }

func errValidation(msg string) *apiError { return &apiError{http.StatusBadRequest, msg} }
func errForbidden(msg string) *apiError  { return &apiError{http.StatusForbidden, msg} }
func errNotFound(msg string) *apiError   { return &apiError{http.StatusNotFound, msg} }
func errConflict(msg string) *apiError   { return &apiError{http.StatusConflict, msg} }

func isNotFound(err error) bool {
	var ae *apiError
	return errors.As(err, &ae) && ae.status == http.StatusNotFound
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error": msg,
	})
}

// writeListError maps apiError to its status; anything else is an opaque
// backend failure.
func writeListError(w http.ResponseWriter, err error) {
	var ae *apiError
	if errors.As(err, &ae) {
		writeError(w, ae.status, ae.msg)
		return
	}
	writeError(w, http.StatusInternalServerError, "database error")
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
