// Package sqlite provides a SQLite-backed implementation of the
// storage.Storage interface using Go's standard database/sql package and
// squirrel for statement building.
//
// Connections are opened through go-sqlite3 registered under driverName,
// whose connect hook adds the query.CaseFold SQL function used by searches.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"

	"github.com/aanand-mishra/student-records/internal/query"
	"github.com/aanand-mishra/student-records/internal/storage"
	"github.com/aanand-mishra/student-records/internal/types"
)

// Compile-time interface guard.
var _ storage.Storage = (*SQLite)(nil)

const driverName = "sqlite3_casefold"

var registerDriver sync.Once

// register makes driverName available to sql.Open. Every new connection
// gets a deterministic Unicode lower-casing function.
func register() {
	registerDriver.Do(func() {
		sql.Register(driverName, &sqlite3.SQLiteDriver{
			ConnectHook: func(conn *sqlite3.SQLiteConn) error {
				return conn.RegisterFunc(query.CaseFold, strings.ToLower, true)
			},
		})
	})
}

// Schema:
//
//	id          — UUID assigned on insert, never changed
//	roll_number — stored upper-cased; UNIQUE closes the race between the
//	              handlers' existence check and the write
//	age         — CHECK mirrors the validator so no bad row can exist
const schema = `
	CREATE TABLE IF NOT EXISTS students (
		id          TEXT     PRIMARY KEY,
		name        TEXT     NOT NULL,
		roll_number TEXT     NOT NULL UNIQUE,
		course      TEXT     NOT NULL,
		age         INTEGER  NOT NULL CHECK (age BETWEEN 5 AND 100),
		standard    TEXT     NOT NULL,
		division    TEXT     NOT NULL,
		created_at  DATETIME NOT NULL,
		updated_at  DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_students_name ON students (name);
	CREATE INDEX IF NOT EXISTS idx_students_course ON students (course);
`

var studentColumns = []string{
	"id", "name", "roll_number", "course", "age",
	"standard", "division", "created_at", "updated_at",
}

// SQLite is the concrete implementation of storage.Storage.
// A single *sql.DB is safe for concurrent use by multiple goroutines.
type SQLite struct {
	Db  *sql.DB
	sb  sq.StatementBuilderType
	now func() time.Time
}

// New opens the SQLite database at path, creates the students table if
// it does not already exist, and returns a ready-to-use *SQLite.
// ":memory:" gives a private in-memory database.
func New(path string) (*SQLite, error) {
	if path != ":memory:" && !strings.HasPrefix(path, "file:") {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("sqlite.New: create dir: %w", err)
			}
		}
	}

	register()
	db, err := sql.Open(driverName, path)
	if err != nil {
		return nil, fmt.Errorf("sqlite.New: open db: %w", err)
	}

	// One connection: SQLite serializes writers anyway, and an in-memory
	// database exists only on the connection that created it.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite.New: ping: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("sqlite.New: exec %q: %w", p, err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite.New: create table: %w", err)
	}

	return &SQLite{
		Db:  db,
		sb:  sq.StatementBuilder.PlaceholderFormat(sq.Question),
		now: func() time.Time { return time.Now().UTC() },
	}, nil
}

// Close closes the underlying database.
func (s *SQLite) Close() error {
	return s.Db.Close()
}

// Ping checks the database connection.
func (s *SQLite) Ping(ctx context.Context) error {
	return s.Db.PingContext(ctx)
}

// CreateStudent inserts a new row and returns it as stored.
func (s *SQLite) CreateStudent(ctx context.Context, student types.Student) (types.Student, error) {
	id := uuid.NewString()
	now := s.now()

	stmt, args, err := s.sb.Insert("students").
		Columns(studentColumns...).
		Values(id, student.Name, student.RollNumber, student.Course, student.Age,
			student.Standard, student.Division, now, now).
		ToSql()
	if err != nil {
		return types.Student{}, fmt.Errorf("CreateStudent: build: %w", err)
	}

	if _, err := s.Db.ExecContext(ctx, stmt, args...); err != nil {
		if isUniqueViolation(err) {
			return types.Student{}, storage.ErrDuplicateRollNumber
		}
		return types.Student{}, fmt.Errorf("CreateStudent: exec: %w", err)
	}

	return s.GetStudentByID(ctx, id)
}

// GetStudentByID fetches exactly one student row matched by id.
func (s *SQLite) GetStudentByID(ctx context.Context, id string) (types.Student, error) {
	stmt, args, err := s.sb.Select(studentColumns...).
		From("students").
		Where(sq.Eq{"id": id}).
		Limit(1).
		ToSql()
	if err != nil {
		return types.Student{}, fmt.Errorf("GetStudentByID: build: %w", err)
	}

	student, err := scanStudent(s.Db.QueryRowContext(ctx, stmt, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Student{}, storage.ErrNotFound
		}
		return types.Student{}, fmt.Errorf("GetStudentByID: scan: %w", err)
	}
	return student, nil
}

// ListStudents returns the page of rows selected by q.
func (s *SQLite) ListStudents(ctx context.Context, q query.Query) ([]types.Student, error) {
	stmt, args, err := s.sb.Select(studentColumns...).
		From("students").
		Where(q.Filter).
		OrderBy(q.OrderBy()...).
		Limit(q.Limit).
		Offset(q.Offset).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("ListStudents: build: %w", err)
	}

	rows, err := s.Db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("ListStudents: query: %w", err)
	}
	defer rows.Close()

	students := make([]types.Student, 0)
	for rows.Next() {
		student, err := scanStudent(rows)
		if err != nil {
			return nil, fmt.Errorf("ListStudents: scan row: %w", err)
		}
		students = append(students, student)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListStudents: rows iteration: %w", err)
	}
	return students, nil
}

// CountStudents counts rows matching q.Filter.
func (s *SQLite) CountStudents(ctx context.Context, q query.Query) (int64, error) {
	stmt, args, err := s.sb.Select("COUNT(*)").
		From("students").
		Where(q.Filter).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("CountStudents: build: %w", err)
	}

	var total int64
	if err := s.Db.QueryRowContext(ctx, stmt, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("CountStudents: scan: %w", err)
	}
	return total, nil
}

// RollNumberExists reports whether any row other than excludeID holds
// rollNumber.
func (s *SQLite) RollNumberExists(ctx context.Context, rollNumber, excludeID string) (bool, error) {
	where := sq.And{sq.Eq{"roll_number": rollNumber}}
	if excludeID != "" {
		where = append(where, sq.NotEq{"id": excludeID})
	}

	stmt, args, err := s.sb.Select("1").
		From("students").
		Where(where).
		Limit(1).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("RollNumberExists: build: %w", err)
	}

	var one int
	err = s.Db.QueryRowContext(ctx, stmt, args...).Scan(&one)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return false, nil
	case err != nil:
		return false, fmt.Errorf("RollNumberExists: scan: %w", err)
	}
	return true, nil
}

// UpdateStudentByID replaces the business fields of row id in a single
// statement and returns the stored result.
func (s *SQLite) UpdateStudentByID(ctx context.Context, id string, student types.Student) (types.Student, error) {
	stmt, args, err := s.sb.Update("students").
		SetMap(map[string]interface{}{
			"name":        student.Name,
			"roll_number": student.RollNumber,
			"course":      student.Course,
			"age":         student.Age,
			"standard":    student.Standard,
			"division":    student.Division,
			"updated_at":  s.now(),
		}).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return types.Student{}, fmt.Errorf("UpdateStudentByID: build: %w", err)
	}

	result, err := s.Db.ExecContext(ctx, stmt, args...)
	if err != nil {
		if isUniqueViolation(err) {
			return types.Student{}, storage.ErrDuplicateRollNumber
		}
		return types.Student{}, fmt.Errorf("UpdateStudentByID: exec: %w", err)
	}
	if err := requireOneRow(result); err != nil {
		return types.Student{}, fmt.Errorf("UpdateStudentByID: %w", err)
	}

	return s.GetStudentByID(ctx, id)
}

// DeleteStudentByID removes a row by id.
func (s *SQLite) DeleteStudentByID(ctx context.Context, id string) error {
	return s.delete(ctx, "DeleteStudentByID", sq.Eq{"id": id})
}

// DeleteStudentByRollNumber removes the row holding rollNumber.
func (s *SQLite) DeleteStudentByRollNumber(ctx context.Context, rollNumber string) error {
	return s.delete(ctx, "DeleteStudentByRollNumber", sq.Eq{"roll_number": rollNumber})
}

func (s *SQLite) delete(ctx context.Context, op string, where sq.Eq) error {
	stmt, args, err := s.sb.Delete("students").Where(where).ToSql()
	if err != nil {
		return fmt.Errorf("%s: build: %w", op, err)
	}

	result, err := s.Db.ExecContext(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("%s: exec: %w", op, err)
	}
	if err := requireOneRow(result); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// ListCourses returns every distinct course, sorted.
func (s *SQLite) ListCourses(ctx context.Context) ([]string, error) {
	stmt, args, err := s.sb.Select("DISTINCT course").
		From("students").
		OrderBy("course").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("ListCourses: build: %w", err)
	}

	rows, err := s.Db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("ListCourses: query: %w", err)
	}
	defer rows.Close()

	courses := make([]string, 0)
	for rows.Next() {
		var course string
		if err := rows.Scan(&course); err != nil {
			return nil, fmt.Errorf("ListCourses: scan row: %w", err)
		}
		courses = append(courses, course)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListCourses: rows iteration: %w", err)
	}
	return courses, nil
}

type scanner interface {
	Scan(dest ...any) error
}

// scanStudent reads one row in studentColumns order.
func scanStudent(row scanner) (types.Student, error) {
	var student types.Student
	err := row.Scan(
		&student.ID,
		&student.Name,
		&student.RollNumber,
		&student.Course,
		&student.Age,
		&student.Standard,
		&student.Division,
		&student.CreatedAt,
		&student.UpdatedAt,
	)
	return student, err
}

// requireOneRow maps "nothing matched" to storage.ErrNotFound.
func requireOneRow(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	return errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
}
