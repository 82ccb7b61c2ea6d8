package domain

// PaginationInput is an offset window. Cursor is reserved for keyset
// pagination, which is not supported; a non-nil Cursor is rejected.
type PaginationInput struct {
	Limit  int     `json:"limit"`
	Offset int     `json:"offset"`
	Cursor *string `json:"cursor,omitempty"`
}

// PageInfo is the metadata derived from a window and a total row count.
type PageInfo struct {
	CurrentPage     int  `json:"currentPage"`
	TotalPages      int  `json:"totalPages"`
	HasNextPage     bool `json:"hasNextPage"`
	HasPreviousPage bool `json:"hasPreviousPage"`
}

// ValidateWindow rejects windows the pagination arithmetic is undefined for.
func ValidateWindow(limit, offset int) error {
	if limit <= 0 {
		return UsageError("invalid limit %d: must be greater than 0", limit)
	}
	if offset < 0 {
		return UsageError("invalid offset %d: must not be negative", offset)
	}
	return nil
}

// ComputePageInfo derives page metadata:
//
//	totalPages      = ceil(totalCount / limit)
//	currentPage     = floor(offset / limit) + 1
//	hasNextPage     = offset + limit < totalCount
//	hasPreviousPage = offset > 0
func ComputePageInfo(limit, offset int, totalCount int64) (PageInfo, error) {
	if err := ValidateWindow(limit, offset); err != nil {
		return PageInfo{}, err
	}
	if totalCount < 0 {
		return PageInfo{}, UsageError("invalid total count %d: must not be negative", totalCount)
	}

	l := int64(limit)
	o := int64(offset)

	return PageInfo{
		CurrentPage:     offset/limit + 1,
		TotalPages:      int((totalCount + l - 1) / l),
		HasNextPage:     o+l < totalCount,
		HasPreviousPage: offset > 0,
	}, nil
}

// Connection is the edge-list shape of a listing. Cursors encode offsets.
type Connection struct {
	Edges      []Edge         `json:"edges"`
	PageInfo   ConnectionInfo `json:"pageInfo"`
	TotalCount int64          `json:"totalCount"`
}

// Edge pairs a record with its cursor.
type Edge struct {
	Cursor string `json:"cursor"`
	Node   Record `json:"node"`
}

// ConnectionInfo is the navigation block of a Connection.
type ConnectionInfo struct {
	HasNextPage     bool    `json:"hasNextPage"`
	HasPreviousPage bool    `json:"hasPreviousPage"`
	StartCursor     *string `json:"startCursor"`
	EndCursor       *string `json:"endCursor"`
}
