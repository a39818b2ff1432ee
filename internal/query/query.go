// Package query translates list-request parameters into a storage query:
// a filter, a sort key and a pagination window.
//
// Parameters arrive as loose URL strings. Anything unparseable or below
// one falls back to its default instead of failing the request; numbers
// that are too large are clamped to their maximum.
package query

import (
	"errors"
	"net/url"
	"strconv"
	"strings"

	sq "github.com/Masterminds/squirrel"
)

// Defaults applied when a list parameter is absent or unusable.
const (
	DefaultPage   = 1
	DefaultLimit  = 10
	MaxLimit      = 100
	DefaultSortBy = "name"
)

// MaxPage bounds page so that the offset and currentPage stay well inside
// int64. A page past the last record is simply empty.
const MaxPage = 1<<31 - 1

// CaseFold is the SQL function the storage layer registers for Unicode
// case folding. SQLite's own LIKE folds ASCII only.
const CaseFold = "casefold"

// Sort directions accepted in sortOrder.
const (
	SortAsc  = "asc"
	SortDesc = "desc"
)

// sortColumns whitelists the API fields a listing can be sorted by and
// maps each to its storage column. Unknown names fall back to DefaultSortBy.
var sortColumns = map[string]string{
	"name":       "name",
	"rollNumber": "roll_number",
	"course":     "course",
	"age":        "age",
	"standard":   "standard",
	"division":   "division",
	"createdAt":  "created_at",
	"updatedAt":  "updated_at",
}

// Params are the list parameters after defaults have been applied.
type Params struct {
	Page      uint64
	Limit     uint64
	SortBy    string
	SortOrder string
	Search    string
	Course    string
}

// ParseParams reads page, limit, sortBy, sortOrder, search and course
// from a query string.
func ParseParams(v url.Values) Params {
	p := Params{
		Page:      parsePositive(v.Get("page"), DefaultPage, MaxPage),
		Limit:     parsePositive(v.Get("limit"), DefaultLimit, MaxLimit),
		SortBy:    strings.TrimSpace(v.Get("sortBy")),
		SortOrder: strings.ToLower(strings.TrimSpace(v.Get("sortOrder"))),
		Search:    strings.TrimSpace(v.Get("search")),
		Course:    strings.TrimSpace(v.Get("course")),
	}
	if _, ok := sortColumns[p.SortBy]; !ok {
		p.SortBy = DefaultSortBy
	}
	if p.SortOrder != SortDesc {
		p.SortOrder = SortAsc
	}
	return p
}

func parsePositive(s string, def, ceil uint64) uint64 {
	n, err := strconv.ParseUint(strings.TrimSpace(s), 10, 64)
	switch {
	case errors.Is(err, strconv.ErrRange):
		return ceil
	case err != nil || n < 1:
		return def
	case n > ceil:
		return ceil
	}
	return n
}

// Query is the storage-level specification of one list request.
type Query struct {
	// Filter selects matching records. It is never nil; an empty
	// sq.And matches everything.
	Filter sq.And
	// SortColumn is a whitelisted storage column.
	SortColumn string
	Desc       bool
	Offset     uint64
	Limit      uint64
}

// Build produces the Query for p. p should come from ParseParams; zero
// values for Page and Limit are treated as their defaults and larger ones
// are clamped as ParseParams would.
func Build(p Params) Query {
	p = p.clamped()

	column, ok := sortColumns[p.SortBy]
	if !ok {
		column = sortColumns[DefaultSortBy]
	}

	filter := sq.And{}
	if p.Search != "" {
		pattern := containsPattern(p.Search)
		filter = append(filter, sq.Or{
			like("name", pattern),
			like("roll_number", pattern),
		})
	}
	if p.Course != "" {
		filter = append(filter, like("course", containsPattern(p.Course)))
	}

	return Query{
		Filter:     filter,
		SortColumn: column,
		Desc:       p.SortOrder == SortDesc,
		Offset:     (p.Page - 1) * p.Limit,
		Limit:      p.Limit,
	}
}

func (p Params) clamped() Params {
	switch {
	case p.Page < 1:
		p.Page = DefaultPage
	case p.Page > MaxPage:
		p.Page = MaxPage
	}
	switch {
	case p.Limit < 1:
		p.Limit = DefaultLimit
	case p.Limit > MaxLimit:
		p.Limit = MaxLimit
	}
	return p
}

// OrderBy renders the sort clause. id breaks ties so that pages are
// stable when many rows share a sort value.
func (q Query) OrderBy() []string {
	dir := "ASC"
	if q.Desc {
		dir = "DESC"
	}
	return []string{q.SortColumn + " " + dir, "id " + dir}
}

// TotalPages is ceil(total/limit).
func TotalPages(total int64, limit uint64) int64 {
	if total <= 0 || limit == 0 {
		return 0
	}
	l := int64(limit)
	return (total + l - 1) / l
}

// likeEscaper makes user text match literally inside a LIKE pattern.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func containsPattern(s string) string {
	return "%" + likeEscaper.Replace(s) + "%"
}

// like is a case-insensitive substring match. Both sides go through
// CaseFold so that non-ASCII letters match in any case.
func like(column, pattern string) sq.Sqlizer {
	return sq.Expr(CaseFold+"("+column+") LIKE "+CaseFold+`(?) ESCAPE '\'`, pattern)
}
