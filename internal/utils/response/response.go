// Package response provides helpers for writing consistent JSON HTTP responses.
//
// Success responses may be any JSON shape (a record, a page, a list).
// Error responses always carry a message and, where it helps the client,
// the offending field(s):
//
//	{ "message": "Roll number already exists", "field": "rollNumber" }
//	{ "message": "All fields are required", "fields": ["age", "division"] }
//	{ "message": "Validation failed", "errors": ["Age must be at least 5"], "fields": ["age"] }
package response

import (
	"encoding/json"
	"net/http"

	"github.com/aanand-mishra/student-records/internal/types"
)

// Response is the envelope returned for error and confirmation cases.
type Response struct {
	Message string   `json:"message"`
	Field   string   `json:"field,omitempty"`
	Fields  []string `json:"fields,omitempty"`
	Errors  []string `json:"errors,omitempty"`

	// Error carries the underlying error text of a server fault. It is
	// only filled in when debug output is enabled.
	Error string `json:"error,omitempty"`
}

// Messages shared by the handlers.
const (
	MsgNotFound        = "Student not found"
	MsgDeleted         = "Student deleted successfully"
	MsgAllRequired     = "All fields are required"
	MsgValidation      = "Validation failed"
	MsgDuplicateRoll   = "Roll number already exists"
	MsgInvalidBody     = "Invalid request body"
	MsgEmptyBody       = "Request body is empty"
	MsgServerError     = "Server error"
	MsgUnexpectedError = "Something went wrong!"
)

// WriteJSON writes a JSON-encoded response with the given HTTP status code.
//
// IMPORTANT ORDER: Header() → WriteHeader() → body writes.
// Once WriteHeader is called (or the first Write), headers are locked.
func WriteJSON(w http.ResponseWriter, status int, data any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(data)
}

// Message is a response with only a message.
func Message(msg string) Response {
	return Response{Message: msg}
}

// FieldError flags a single field, e.g. a duplicate roll number.
func FieldError(field, msg string) Response {
	return Response{Message: msg, Field: field}
}

// MissingFields lists the required fields the client did not send.
func MissingFields(fields []string) Response {
	return Response{Message: MsgAllRequired, Fields: fields}
}

// ValidationError reports every field violation at once.
func ValidationError(violations []types.FieldError) Response {
	resp := Response{Message: MsgValidation}
	seen := make(map[string]bool, len(violations))
	for _, v := range violations {
		resp.Errors = append(resp.Errors, v.Message)
		if v.Field != "" && !seen[v.Field] {
			seen[v.Field] = true
			resp.Fields = append(resp.Fields, v.Field)
		}
	}
	return resp
}

// Fault is the body for an unexpected server error. The error text is
// included only when debug is true; callers log err themselves.
func Fault(err error, debug bool) Response {
	resp := Response{Message: MsgServerError}
	if debug && err != nil {
		resp.Error = err.Error()
	}
	return resp
}
