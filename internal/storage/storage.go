// Package storage defines the Storage interface, the contract any
// database backend must satisfy to serve the student handlers.
//
// Handlers depend only on this interface. The SQLite implementation lives
// in storage/sqlite; tests substitute the generated mock in storage/mocks.
package storage

//go:generate mockgen -source=storage.go -destination=mocks/mocks.go -package=mocks Storage

import (
	"context"
	"errors"

	"github.com/aanand-mishra/student-records/internal/query"
	"github.com/aanand-mishra/student-records/internal/types"
)

var (
	// ErrNotFound is returned when no record matches an id or roll number.
	ErrNotFound = errors.New("student not found")

	// ErrDuplicateRollNumber is returned when a write would give two
	// records the same roll number.
	ErrDuplicateRollNumber = errors.New("roll number already exists")
)

// Storage is the record store gateway.
//
// Roll numbers passed in must already be normalized (see
// records.NormalizeRollNumber); the store compares them as-is.
type Storage interface {
	// CreateStudent inserts student, assigning its ID and timestamps,
	// and returns the stored record.
	CreateStudent(ctx context.Context, student types.Student) (types.Student, error)

	// GetStudentByID returns ErrNotFound when no record has this id.
	GetStudentByID(ctx context.Context, id string) (types.Student, error)

	// ListStudents returns one page of records matching q. Never nil.
	ListStudents(ctx context.Context, q query.Query) ([]types.Student, error)

	// CountStudents counts records matching q's filter, ignoring paging.
	CountStudents(ctx context.Context, q query.Query) (int64, error)

	// RollNumberExists reports whether a record other than excludeID
	// holds rollNumber. An empty excludeID checks every record.
	RollNumberExists(ctx context.Context, rollNumber, excludeID string) (bool, error)

	// UpdateStudentByID replaces the six business fields and refreshes
	// UpdatedAt. Returns the stored record or ErrNotFound.
	UpdateStudentByID(ctx context.Context, id string, student types.Student) (types.Student, error)

	DeleteStudentByID(ctx context.Context, id string) error
	DeleteStudentByRollNumber(ctx context.Context, rollNumber string) error

	// ListCourses returns the distinct course values, sorted. Never nil.
	ListCourses(ctx context.Context) ([]string, error)

	// Ping checks that the database is reachable.
	Ping(ctx context.Context) error
}
