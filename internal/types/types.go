// Package types holds all shared data structures (models) used across
// the application. Keeping them in one place prevents import cycles:
// handlers, records, query and storage can all import types without
// depending on each other.
package types

import "time"

// Student is a stored student record.
//
// ID, CreatedAt and UpdatedAt are assigned by the storage layer; the six
// business fields are always present and already normalized.
type Student struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	RollNumber string    `json:"rollNumber"`
	Course     string    `json:"course"`
	Age        int       `json:"age"`
	Standard   string    `json:"standard"`
	Division   string    `json:"division"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// StudentList is one page of a filtered, sorted listing.
type StudentList struct {
	Records      []Student `json:"records"`
	TotalPages   int64     `json:"totalPages"`
	CurrentPage  int64     `json:"currentPage"`
	TotalRecords int64     `json:"totalRecords"`
}

// FieldError is a single validation failure for one field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}
