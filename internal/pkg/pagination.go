package pkg

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/simp-lee/recordsvc/internal/domain"
)

const (
	defaultLimit = 10
	maxLimit     = 50
)

// validFieldName matches only alphanumeric characters and underscores.
var validFieldName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// PageDefaults bounds the limit accepted from query parameters.
type PageDefaults struct {
	DefaultLimit int
	MaxLimit     int
}

// DefaultPageDefaults returns limit 10, capped at 50.
func DefaultPageDefaults() PageDefaults {
	return PageDefaults{DefaultLimit: defaultLimit, MaxLimit: maxLimit}
}

// ListParams holds the window, ordering and filter of a list request.
type ListParams struct {
	Limit  int
	Offset int
	Cursor *string
	Sort   *domain.SortInput
	Filter *domain.RecordFilter
}

// ParseListParams extracts limit, offset, cursor, sort and search from the query
// string.
//
// A missing limit takes d.DefaultLimit and a limit above d.MaxLimit is capped.
// Non-positive limits and negative offsets are passed through unchanged so the
// service can reject them. Sort is "field" or "field:asc|desc". A search
// parameter that is present but empty is kept as an empty term.
func ParseListParams(c *gin.Context, d PageDefaults) (ListParams, error) {
	if d.DefaultLimit <= 0 {
		d.DefaultLimit = defaultLimit
	}
	if d.MaxLimit <= 0 {
		d.MaxLimit = maxLimit
	}

	var p ListParams

	limit, err := queryInt(c, "limit", d.DefaultLimit)
	if err != nil {
		return ListParams{}, err
	}
	if limit > d.MaxLimit {
		limit = d.MaxLimit
	}
	p.Limit = limit

	if p.Offset, err = queryInt(c, "offset", 0); err != nil {
		return ListParams{}, err
	}

	if cursor, ok := c.GetQuery("cursor"); ok {
		p.Cursor = &cursor
	}

	if raw := strings.TrimSpace(c.Query("sort")); raw != "" {
		sort, err := parseSort(raw)
		if err != nil {
			return ListParams{}, err
		}
		p.Sort = sort
	}

	if search, ok := c.GetQuery("search"); ok {
		p.Filter = &domain.RecordFilter{Search: &search}
	}

	return p, nil
}

func queryInt(c *gin.Context, key string, def int) (int, error) {
	raw, ok := c.GetQuery(key)
	if !ok || strings.TrimSpace(raw) == "" {
		return def, nil
	}
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, domain.UsageError("invalid %s %q: must be an integer", key, raw)
	}
	return v, nil
}

func parseSort(raw string) (*domain.SortInput, error) {
	field, dir, hasDir := strings.Cut(raw, ":")
	field = strings.TrimSpace(field)
	if !validFieldName.MatchString(field) {
		return nil, domain.UsageError("invalid sort field %q", field)
	}

	direction := domain.SortAsc
	if hasDir {
		d, ok := domain.ParseSortDirection(dir)
		if !ok {
			return nil, domain.UsageError("invalid sort direction %q: must be asc or desc", dir)
		}
		direction = d
	}

	return &domain.SortInput{Field: field, Direction: direction}, nil
}
