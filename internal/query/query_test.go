package query

import (
	"math"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseParamsDefaults(t *testing.T) {
	p := ParseParams(url.Values{})

	assert.Equal(t, Params{
		Page:      DefaultPage,
		Limit:     DefaultLimit,
		SortBy:    DefaultSortBy,
		SortOrder: SortAsc,
	}, p)
}

func TestParseParamsFallbacks(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  Params
	}{
		{
			name:  "non-numeric page and limit",
			query: "page=abc&limit=ten",
			want:  Params{Page: 1, Limit: 10, SortBy: "name", SortOrder: SortAsc},
		},
		{
			name:  "zero and negative",
			query: "page=0&limit=-5",
			want:  Params{Page: 1, Limit: 10, SortBy: "name", SortOrder: SortAsc},
		},
		{
			name:  "limit capped",
			query: "page=3&limit=500",
			want:  Params{Page: 3, Limit: MaxLimit, SortBy: "name", SortOrder: SortAsc},
		},
		{
			name:  "page beyond uint64 clamped",
			query: "page=99999999999999999999999&limit=1",
			want:  Params{Page: MaxPage, Limit: 1, SortBy: "name", SortOrder: SortAsc},
		},
		{
			name:  "max uint64 page clamped",
			query: "page=18446744073709551615&limit=1",
			want:  Params{Page: MaxPage, Limit: 1, SortBy: "name", SortOrder: SortAsc},
		},
		{
			name:  "page past int64 clamped",
			query: "page=9223372036854775809&limit=2",
			want:  Params{Page: MaxPage, Limit: 2, SortBy: "name", SortOrder: SortAsc},
		},
		{
			name:  "limit beyond uint64 capped",
			query: "limit=99999999999999999999999",
			want:  Params{Page: 1, Limit: MaxLimit, SortBy: "name", SortOrder: SortAsc},
		},
		{
			name:  "unknown sort field falls back",
			query: "sortBy=password&sortOrder=DESC",
			want:  Params{Page: 1, Limit: 10, SortBy: "name", SortOrder: SortDesc},
		},
		{
			name:  "unknown sort order is ascending",
			query: "sortBy=age&sortOrder=sideways",
			want:  Params{Page: 1, Limit: 10, SortBy: "age", SortOrder: SortAsc},
		},
		{
			name:  "filters trimmed",
			query: "search=+ann+&course=%20math%20",
			want:  Params{Page: 1, Limit: 10, SortBy: "name", SortOrder: SortAsc, Search: "ann", Course: "math"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := url.ParseQuery(tt.query)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ParseParams(v))
		})
	}
}

func TestBuildNoFilter(t *testing.T) {
	q := Build(Params{Page: 1, Limit: 10, SortBy: "name", SortOrder: SortAsc})

	assert.Empty(t, q.Filter)
	assert.Equal(t, "name", q.SortColumn)
	assert.False(t, q.Desc)
	assert.Equal(t, uint64(0), q.Offset)
	assert.Equal(t, uint64(10), q.Limit)
	assert.Equal(t, []string{"name ASC", "id ASC"}, q.OrderBy())
}

func TestBuildSearch(t *testing.T) {
	q := Build(Params{Page: 1, Limit: 10, SortBy: "name", Search: "ann"})

	sql, args, err := q.Filter.ToSql()
	require.NoError(t, err)
	assert.Contains(t, sql, "casefold(name) LIKE casefold(?) ESCAPE")
	assert.Contains(t, sql, "casefold(roll_number) LIKE casefold(?) ESCAPE")
	assert.Contains(t, sql, " OR ")
	assert.NotContains(t, sql, "course")
	assert.Equal(t, []interface{}{"%ann%", "%ann%"}, args)
}

func TestBuildSearchAndCourse(t *testing.T) {
	q := Build(Params{Page: 1, Limit: 10, SortBy: "name", Search: "ann", Course: "math"})

	sql, args, err := q.Filter.ToSql()
	require.NoError(t, err)
	assert.Contains(t, sql, " AND ")
	assert.Contains(t, sql, "casefold(course) LIKE casefold(?)")
	assert.Equal(t, []interface{}{"%ann%", "%ann%", "%math%"}, args)
}

func TestBuildEscapesWildcards(t *testing.T) {
	q := Build(Params{Course: `50%_off\`})

	_, args, err := q.Filter.ToSql()
	require.NoError(t, err)
	assert.Equal(t, []interface{}{`%50\%\_off\\%`}, args)
}

func TestBuildPaginationAndSort(t *testing.T) {
	q := Build(Params{Page: 2, Limit: 10, SortBy: "rollNumber", SortOrder: SortDesc})

	assert.Equal(t, uint64(10), q.Offset)
	assert.Equal(t, uint64(10), q.Limit)
	assert.Equal(t, []string{"roll_number DESC", "id DESC"}, q.OrderBy())
}

func TestBuildZeroParams(t *testing.T) {
	q := Build(Params{})

	assert.Equal(t, "name", q.SortColumn)
	assert.Equal(t, uint64(0), q.Offset)
	assert.Equal(t, uint64(DefaultLimit), q.Limit)
}

func TestBuildClampsHugePage(t *testing.T) {
	q := Build(Params{Page: math.MaxUint64, Limit: math.MaxUint64})

	assert.Equal(t, uint64(MaxLimit), q.Limit)
	assert.Equal(t, uint64(MaxPage-1)*MaxLimit, q.Offset)
	assert.LessOrEqual(t, q.Offset, uint64(math.MaxInt64))
}

func TestTotalPages(t *testing.T) {
	assert.Equal(t, int64(3), TotalPages(25, 10))
	assert.Equal(t, int64(2), TotalPages(20, 10))
	assert.Equal(t, int64(1), TotalPages(1, 10))
	assert.Equal(t, int64(0), TotalPages(0, 10))
	assert.Equal(t, int64(0), TotalPages(5, 0))
}
