// Package student contains all HTTP handlers for the student record
// resource.
//
// Every write goes through the same pipeline before touching storage:
//
//	decode → required-field check → normalize + validate → uniqueness → write
//
// Expected failures (missing fields, bad values, duplicate roll number,
// unknown id) are answered directly with 400/404. Anything else is a
// server fault: logged in full, answered with a generic 500.
package student

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/aanand-mishra/student-records/internal/metrics"
	"github.com/aanand-mishra/student-records/internal/query"
	"github.com/aanand-mishra/student-records/internal/records"
	"github.com/aanand-mishra/student-records/internal/storage"
	"github.com/aanand-mishra/student-records/internal/types"
	"github.com/aanand-mishra/student-records/internal/utils/response"
)

// maxBodyBytes bounds create/update payloads.
const maxBodyBytes = 1 << 20

// Handler serves the student record routes. It holds no per-request
// state; everything lives in storage.
type Handler struct {
	storage storage.Storage
	log     *slog.Logger
	metrics *metrics.Metrics
	debug   bool
}

// New builds a Handler. m may be nil. When debug is true, 500 responses
// include the underlying error text.
func New(s storage.Storage, log *slog.Logger, m *metrics.Metrics, debug bool) *Handler {
	return &Handler{storage: s, log: log, metrics: m, debug: debug}
}

// Routes registers every student route on r.
//
// Route table:
//
//	GET    /records                      → paginated, filtered list
//	POST   /records                      → create a record
//	GET    /records/{id}                 → get one record
//	PUT    /records/{id}                 → replace a record's fields
//	DELETE /records/{id}                 → delete by id
//	DELETE /records/by-key/{rollNumber}  → delete by roll number
//	GET    /categories                   → distinct course names
//	GET    /healthz                      → database reachability
func (h *Handler) Routes(r chi.Router) {
	r.Get("/records", h.List)
	r.Post("/records", h.Create)
	r.Get("/records/{id}", h.GetByID)
	r.Put("/records/{id}", h.Update)
	r.Delete("/records/{id}", h.Delete)
	r.Delete("/records/by-key/{rollNumber}", h.DeleteByRollNumber)
	r.Get("/categories", h.ListCourses)
	r.Get("/healthz", h.Health)
}

// ─────────────────────────────────────────────────────────────────────────────
// List handles GET /records?page&limit&sortBy&sortOrder&search&course
//
// Success response (200 OK):
//
//	{ "records": [...], "totalPages": 3, "currentPage": 2, "totalRecords": 25 }
//
// Bad paging values fall back to defaults; only a storage fault fails.
// ─────────────────────────────────────────────────────────────────────────────
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	p := query.ParseParams(r.URL.Query())
	q := query.Build(p)

	students, err := h.storage.ListStudents(r.Context(), q)
	if err != nil {
		h.fault(w, r, "list students", err)
		return
	}
	total, err := h.storage.CountStudents(r.Context(), q)
	if err != nil {
		h.fault(w, r, "count students", err)
		return
	}

	response.WriteJSON(w, http.StatusOK, types.StudentList{
		Records:      students,
		TotalPages:   query.TotalPages(total, q.Limit),
		CurrentPage:  int64(p.Page),
		TotalRecords: total,
	})
}

// ─────────────────────────────────────────────────────────────────────────────
// GetByID handles GET /records/{id}
//
// A malformed id cannot name a stored record, so it is a plain 404.
// ─────────────────────────────────────────────────────────────────────────────
func (h *Handler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r)
	if !ok {
		notFound(w)
		return
	}

	student, err := h.storage.GetStudentByID(r.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		notFound(w)
		return
	}
	if err != nil {
		h.fault(w, r, "get student", err)
		return
	}

	response.WriteJSON(w, http.StatusOK, student)
}

// ─────────────────────────────────────────────────────────────────────────────
// Create handles POST /records
//
// Request body (JSON):
//
//	{ "name": "Ann Lee", "rollNumber": "a1", "course": "Math",
//	  "age": 20, "standard": "10", "division": "A" }
//
// Success response (201 Created): the stored record, with id, timestamps
// and the upper-cased roll number.
//
// Error responses:
//
//	400 — empty/malformed body, missing fields, validation, duplicate roll number
//	500 — storage fault
// ─────────────────────────────────────────────────────────────────────────────
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	student, ok := h.buildStudent(w, r)
	if !ok {
		return
	}

	taken, err := h.storage.RollNumberExists(r.Context(), student.RollNumber, "")
	if err != nil {
		h.fault(w, r, "check roll number", err)
		return
	}
	if taken {
		duplicateRollNumber(w)
		return
	}

	created, err := h.storage.CreateStudent(r.Context(), student)
	if errors.Is(err, storage.ErrDuplicateRollNumber) {
		// Lost a race with a concurrent create; the UNIQUE index caught it.
		duplicateRollNumber(w)
		return
	}
	if err != nil {
		h.fault(w, r, "create student", err)
		return
	}

	h.metrics.IncRecordWrite(metrics.OpCreated)
	h.log.Info("student created",
		slog.String("request_id", chimw.GetReqID(r.Context())),
		slog.String("id", created.ID),
		slog.String("roll_number", created.RollNumber),
	)
	response.WriteJSON(w, http.StatusCreated, created)
}

// ─────────────────────────────────────────────────────────────────────────────
// Update handles PUT /records/{id}
// Replaces all six business fields at once. The record's own roll number
// does not count as a duplicate.
//
// Error responses:
//
//	400 — same as Create
//	404 — no record with this id; nothing is written
//	500 — storage fault
// ─────────────────────────────────────────────────────────────────────────────
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r)
	if !ok {
		notFound(w)
		return
	}

	student, ok := h.buildStudent(w, r)
	if !ok {
		return
	}

	if _, err := h.storage.GetStudentByID(r.Context(), id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			notFound(w)
			return
		}
		h.fault(w, r, "get student", err)
		return
	}

	taken, err := h.storage.RollNumberExists(r.Context(), student.RollNumber, id)
	if err != nil {
		h.fault(w, r, "check roll number", err)
		return
	}
	if taken {
		duplicateRollNumber(w)
		return
	}

	updated, err := h.storage.UpdateStudentByID(r.Context(), id, student)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		notFound(w)
		return
	case errors.Is(err, storage.ErrDuplicateRollNumber):
		duplicateRollNumber(w)
		return
	case err != nil:
		h.fault(w, r, "update student", err)
		return
	}

	h.metrics.IncRecordWrite(metrics.OpUpdated)
	h.log.Info("student updated",
		slog.String("request_id", chimw.GetReqID(r.Context())),
		slog.String("id", id),
	)
	response.WriteJSON(w, http.StatusOK, updated)
}

// Delete handles DELETE /records/{id}.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r)
	if !ok {
		notFound(w)
		return
	}
	h.deleted(w, r, h.storage.DeleteStudentByID(r.Context(), id), slog.String("id", id))
}

// DeleteByRollNumber handles DELETE /records/by-key/{rollNumber}.
// The roll number matches case-insensitively.
func (h *Handler) DeleteByRollNumber(w http.ResponseWriter, r *http.Request) {
	roll := records.NormalizeRollNumber(chi.URLParam(r, "rollNumber"))
	if roll == "" {
		notFound(w)
		return
	}
	h.deleted(w, r, h.storage.DeleteStudentByRollNumber(r.Context(), roll), slog.String("roll_number", roll))
}

func (h *Handler) deleted(w http.ResponseWriter, r *http.Request, err error, key slog.Attr) {
	if errors.Is(err, storage.ErrNotFound) {
		notFound(w)
		return
	}
	if err != nil {
		h.fault(w, r, "delete student", err)
		return
	}

	h.metrics.IncRecordWrite(metrics.OpDeleted)
	h.log.Info("student deleted",
		slog.String("request_id", chimw.GetReqID(r.Context())),
		key,
	)
	response.WriteJSON(w, http.StatusOK, response.Message(response.MsgDeleted))
}

// ListCourses handles GET /categories: every distinct course, sorted,
// with no filtering or paging.
func (h *Handler) ListCourses(w http.ResponseWriter, r *http.Request) {
	courses, err := h.storage.ListCourses(r.Context())
	if err != nil {
		h.fault(w, r, "list courses", err)
		return
	}
	response.WriteJSON(w, http.StatusOK, courses)
}

// Health handles GET /healthz.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.storage.Ping(r.Context()); err != nil {
		h.log.Warn("health check failed", slog.String("error", err.Error()))
		response.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	response.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// buildStudent runs the shared write pipeline up to (not including) the
// uniqueness check. On failure it has already written the response.
func (h *Handler) buildStudent(w http.ResponseWriter, r *http.Request) (types.Student, bool) {
	var in records.Input
	err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&in)
	if errors.Is(err, io.EOF) {
		response.WriteJSON(w, http.StatusBadRequest, response.Message(response.MsgEmptyBody))
		return types.Student{}, false
	}
	if err != nil {
		body := response.Message(response.MsgInvalidBody)
		if h.debug {
			body.Error = err.Error()
		}
		response.WriteJSON(w, http.StatusBadRequest, body)
		return types.Student{}, false
	}

	if missing := records.Missing(in); len(missing) > 0 {
		response.WriteJSON(w, http.StatusBadRequest, response.MissingFields(missing))
		return types.Student{}, false
	}

	student, violations := records.Build(in)
	if len(violations) > 0 {
		response.WriteJSON(w, http.StatusBadRequest, response.ValidationError(violations))
		return types.Student{}, false
	}
	return student, true
}

// fault logs err and answers with a generic 500.
func (h *Handler) fault(w http.ResponseWriter, r *http.Request, op string, err error) {
	h.log.Error(op+" failed",
		slog.String("request_id", chimw.GetReqID(r.Context())),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.String("error", err.Error()),
	)
	response.WriteJSON(w, http.StatusInternalServerError, response.Fault(err, h.debug))
}

// parseID returns the canonical form of the {id} path parameter, or
// false when it is not a UUID.
func parseID(r *http.Request) (string, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		return "", false
	}
	return id.String(), true
}

func notFound(w http.ResponseWriter) {
	response.WriteJSON(w, http.StatusNotFound, response.Message(response.MsgNotFound))
}

func duplicateRollNumber(w http.ResponseWriter) {
	response.WriteJSON(w, http.StatusBadRequest,
		response.FieldError(records.FieldRollNumber, response.MsgDuplicateRoll))
}
