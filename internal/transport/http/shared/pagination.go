package shared

import (
	"net/http"
	"strconv"
)

const (
	DefaultPageSize = 100
	MaxPageSize     = 500
)

// Pagination is a limit/offset window read from ?limit= and ?offset=.
type Pagination struct {
	Limit  int
	Offset int
}

// ParsePagination ignores malformed values and clamps limit to maxLimit.
func ParsePagination(r *http.Request, defaultLimit, maxLimit int) Pagination {
	query := r.URL.Query()
	page := Pagination{
		Limit:  queryInt(query.Get("limit"), defaultLimit, 1),
		Offset: queryInt(query.Get("offset"), 0, 0),
	}
	if maxLimit > 0 {
		page.Limit = min(page.Limit, maxLimit)
	}
	return page
}

func queryInt(raw string, fallback, floor int) int {
	v, err := strconv.Atoi(raw)
	if err != nil || v < floor {
		return fallback
	}
	return v
}

// Window returns the slice of items the page covers, for lists that are
// filtered in memory.
func Window[T any](items []T, page Pagination) []T {
	start := min(page.Offset, len(items))
	end := min(start+page.Limit, len(items))
	return items[start:end]
}

// SetTotal reports the unpaginated size of a list.
func SetTotal(w http.ResponseWriter, total int) {
	w.Header().Set("X-Total-Count", strconv.Itoa(total))
}
