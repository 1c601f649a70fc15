// Package render writes JSON views for the desk's HTTP handlers.
package render

import (
	"errors"
	"net/http"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// UnableToLoad is shown in place of data whose query failed.
const UnableToLoad = "unable to load"

// Section is a piece of a view that loads independently of the rest.
type Section[T any] struct {
	Data  T      `json:"data"`
	Error string `json:"error,omitempty"`
}

// Loaded wraps a query result. A failed query yields an empty section with
// the "unable to load" marker.
func Loaded[T any](v T, err error) Section[T] {
	if err != nil {
		var zero T
		return Section[T]{Data: zero, Error: UnableToLoad}
	}
	return Section[T]{Data: v}
}

func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}

// Decode reads a JSON request body into v.
func Decode(r *http.Request, v any) error {
	return json.NewDecoder(r.Body).Decode(v)
}

// Message returns the remote service's own description of err when it carries
// one, and err.Error() otherwise.
func Message(err error) string {
	var described interface{ UserMessage() string }
	if errors.As(err, &described) {
		return described.UserMessage()
	}
	return err.Error()
}
