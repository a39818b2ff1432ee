package sqlite

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"github.com/aanand-mishra/student-records/internal/query"
	"github.com/aanand-mishra/student-records/internal/storage"
	"github.com/aanand-mishra/student-records/internal/types"
)

type SQLiteSuite struct {
	suite.Suite
	ctx   context.Context
	store *SQLite
	clock time.Time
}

func TestSQLiteSuite(t *testing.T) {
	suite.Run(t, new(SQLiteSuite))
}

func (s *SQLiteSuite) SetupTest() {
	store, err := New(":memory:")
	s.Require().NoError(err)
	s.clock = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	store.now = func() time.Time { return s.clock }

	s.ctx = context.Background()
	s.store = store
}

func (s *SQLiteSuite) TearDownTest() {
	s.NoError(s.store.Close())
}

func student(roll string) types.Student {
	return types.Student{
		Name:       "Ann Lee",
		RollNumber: roll,
		Course:     "Math",
		Age:        20,
		Standard:   "10",
		Division:   "A",
	}
}

func (s *SQLiteSuite) mustCreate(st types.Student) types.Student {
	created, err := s.store.CreateStudent(s.ctx, st)
	s.Require().NoError(err)
	return created
}

func (s *SQLiteSuite) TestCreateAndGet() {
	created := s.mustCreate(student("A1"))

	_, err := uuid.Parse(created.ID)
	s.NoError(err, "id should be a uuid")
	s.True(created.CreatedAt.Equal(s.clock))
	s.True(created.UpdatedAt.Equal(s.clock))

	got, err := s.store.GetStudentByID(s.ctx, created.ID)
	s.Require().NoError(err)
	s.Equal(created.ID, got.ID)
	s.Equal("Ann Lee", got.Name)
	s.Equal("A1", got.RollNumber)
	s.Equal("Math", got.Course)
	s.Equal(20, got.Age)
	s.Equal("10", got.Standard)
	s.Equal("A", got.Division)
}

func (s *SQLiteSuite) TestGetMissing() {
	_, err := s.store.GetStudentByID(s.ctx, uuid.NewString())
	s.ErrorIs(err, storage.ErrNotFound)
}

func (s *SQLiteSuite) TestUniqueRollNumberConstraint() {
	s.mustCreate(student("A1"))

	_, err := s.store.CreateStudent(s.ctx, student("A1"))
	s.ErrorIs(err, storage.ErrDuplicateRollNumber)
}

func (s *SQLiteSuite) TestRollNumberExists() {
	created := s.mustCreate(student("A1"))

	exists, err := s.store.RollNumberExists(s.ctx, "A1", "")
	s.Require().NoError(err)
	s.True(exists)

	exists, err = s.store.RollNumberExists(s.ctx, "A1", created.ID)
	s.Require().NoError(err)
	s.False(exists, "the record itself is excluded")

	exists, err = s.store.RollNumberExists(s.ctx, "B2", "")
	s.Require().NoError(err)
	s.False(exists)
}

func (s *SQLiteSuite) TestUpdate() {
	created := s.mustCreate(student("A1"))
	s.clock = s.clock.Add(time.Hour)

	changed := student("B7")
	changed.Name = "Ann Li"
	changed.Age = 21
	updated, err := s.store.UpdateStudentByID(s.ctx, created.ID, changed)
	s.Require().NoError(err)

	s.Equal(created.ID, updated.ID)
	s.Equal("Ann Li", updated.Name)
	s.Equal("B7", updated.RollNumber)
	s.Equal(21, updated.Age)
	s.True(updated.CreatedAt.Equal(created.CreatedAt), "createdAt must not change")
	s.True(updated.UpdatedAt.Equal(s.clock), "updatedAt must be refreshed")
}

func (s *SQLiteSuite) TestUpdateMissing() {
	_, err := s.store.UpdateStudentByID(s.ctx, uuid.NewString(), student("A1"))
	s.ErrorIs(err, storage.ErrNotFound)

	total, err := s.store.CountStudents(s.ctx, query.Build(query.Params{}))
	s.Require().NoError(err)
	s.Zero(total)
}

func (s *SQLiteSuite) TestUpdateToTakenRollNumber() {
	s.mustCreate(student("A1"))
	other := s.mustCreate(student("B2"))

	_, err := s.store.UpdateStudentByID(s.ctx, other.ID, student("A1"))
	s.ErrorIs(err, storage.ErrDuplicateRollNumber)
}

func (s *SQLiteSuite) TestDeleteByID() {
	created := s.mustCreate(student("A1"))

	s.Require().NoError(s.store.DeleteStudentByID(s.ctx, created.ID))
	_, err := s.store.GetStudentByID(s.ctx, created.ID)
	s.ErrorIs(err, storage.ErrNotFound)

	s.ErrorIs(s.store.DeleteStudentByID(s.ctx, created.ID), storage.ErrNotFound)
}

func (s *SQLiteSuite) TestDeleteByRollNumber() {
	created := s.mustCreate(student("A1"))

	s.Require().NoError(s.store.DeleteStudentByRollNumber(s.ctx, "A1"))
	_, err := s.store.GetStudentByID(s.ctx, created.ID)
	s.ErrorIs(err, storage.ErrNotFound)

	s.ErrorIs(s.store.DeleteStudentByRollNumber(s.ctx, "A1"), storage.ErrNotFound)
}

func (s *SQLiteSuite) TestListPagination() {
	for i := 1; i <= 25; i++ {
		st := student(fmt.Sprintf("R%02d", i))
		st.Name = fmt.Sprintf("Student %02d", i)
		s.mustCreate(st)
	}

	q := query.Build(query.Params{Page: 2, Limit: 10, SortBy: "name", SortOrder: query.SortAsc})
	page, err := s.store.ListStudents(s.ctx, q)
	s.Require().NoError(err)
	s.Require().Len(page, 10)
	s.Equal("Student 11", page[0].Name)
	s.Equal("Student 20", page[9].Name)

	total, err := s.store.CountStudents(s.ctx, q)
	s.Require().NoError(err)
	s.Equal(int64(25), total)
	s.Equal(int64(3), query.TotalPages(total, q.Limit))
}

func (s *SQLiteSuite) TestListSortDescending() {
	for i, age := range []int{30, 10, 20} {
		st := student(fmt.Sprintf("R%d", i))
		st.Age = age
		s.mustCreate(st)
	}

	q := query.Build(query.Params{Page: 1, Limit: 10, SortBy: "age", SortOrder: query.SortDesc})
	page, err := s.store.ListStudents(s.ctx, q)
	s.Require().NoError(err)
	s.Require().Len(page, 3)
	s.Equal([]int{30, 20, 10}, []int{page[0].Age, page[1].Age, page[2].Age})
}

func (s *SQLiteSuite) TestListSearchAndCourse() {
	ann := student("A1")
	s.mustCreate(ann)

	bob := student("ANN-2")
	bob.Name = "Bob Stone"
	bob.Course = "Physics"
	s.mustCreate(bob)

	carl := student("C3")
	carl.Name = "Carl Price"
	carl.Course = "Mathematics"
	s.mustCreate(carl)

	names := func(p query.Params) []string {
		p.Page, p.Limit, p.SortBy = 1, 10, "name"
		q := query.Build(p)
		page, err := s.store.ListStudents(s.ctx, q)
		s.Require().NoError(err)
		total, err := s.store.CountStudents(s.ctx, q)
		s.Require().NoError(err)
		s.Equal(int64(len(page)), total)

		out := make([]string, 0, len(page))
		for _, st := range page {
			out = append(out, st.Name)
		}
		return out
	}

	s.Equal([]string{"Ann Lee", "Bob Stone"}, names(query.Params{Search: "ann"}), "name or roll number, any case")
	s.Equal([]string{"Ann Lee", "Carl Price"}, names(query.Params{Course: "MATH"}))
	s.Equal([]string{"Ann Lee"}, names(query.Params{Search: "ann", Course: "math"}))
	s.Empty(names(query.Params{Search: "%"}), "wildcards match literally")
}

func (s *SQLiteSuite) TestListSearchFoldsUnicodeCase() {
	st := student("É-7")
	st.Name = "Élodie Ñúñez"
	st.Course = "Économie"
	s.mustCreate(st)
	s.mustCreate(student("A1"))

	for _, p := range []query.Params{
		{Search: "élodie"},
		{Search: "ÑÚÑEZ"},
		{Search: "ñúñez"},
		{Search: "é-7"},
		{Course: "ÉCONOMIE"},
		{Course: "économie"},
	} {
		q := query.Build(p)
		page, err := s.store.ListStudents(s.ctx, q)
		s.Require().NoError(err)
		s.Require().Len(page, 1, "%+v", p)
		s.Equal("Élodie Ñúñez", page[0].Name)

		total, err := s.store.CountStudents(s.ctx, q)
		s.Require().NoError(err)
		s.Equal(int64(1), total)
	}
}

func (s *SQLiteSuite) TestListPageBeyondEnd() {
	s.mustCreate(student("A1"))

	q := query.Build(query.Params{Page: query.MaxPage, Limit: query.MaxLimit})
	page, err := s.store.ListStudents(s.ctx, q)
	s.Require().NoError(err)
	s.Empty(page)

	total, err := s.store.CountStudents(s.ctx, q)
	s.Require().NoError(err)
	s.Equal(int64(1), total)
}

func (s *SQLiteSuite) TestListEmpty() {
	page, err := s.store.ListStudents(s.ctx, query.Build(query.Params{}))
	s.Require().NoError(err)
	s.NotNil(page)
	s.Empty(page)
}

func (s *SQLiteSuite) TestListCourses() {
	courses, err := s.store.ListCourses(s.ctx)
	s.Require().NoError(err)
	s.NotNil(courses)
	s.Empty(courses)

	for i, course := range []string{"Physics", "Math", "Physics"} {
		st := student(fmt.Sprintf("R%d", i))
		st.Course = course
		s.mustCreate(st)
	}

	courses, err = s.store.ListCourses(s.ctx)
	s.Require().NoError(err)
	s.Equal([]string{"Math", "Physics"}, courses)
}

func (s *SQLiteSuite) TestPing() {
	s.NoError(s.store.Ping(s.ctx))
}
