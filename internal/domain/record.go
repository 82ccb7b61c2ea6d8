package domain

import (
	"context"
	"strings"
)

// Record is the single entity type managed by the service.
type Record struct {
	BaseModel
	Name        string  `gorm:"size:255;not null" json:"name"`
	Description *string `gorm:"type:text" json:"description"`
}

// RecordFilter narrows listings. A nil Search means no filter was supplied;
// an empty Search is present but does not narrow.
type RecordFilter struct {
	Search *string `json:"search,omitempty"`
}

// SortDirection is the caller-facing ordering direction.
type SortDirection string

const (
	SortAsc  SortDirection = "ASC"
	SortDesc SortDirection = "DESC"
)

// ParseSortDirection accepts ASC/DESC in any letter case.
func ParseSortDirection(s string) (SortDirection, bool) {
	switch SortDirection(strings.ToUpper(strings.TrimSpace(s))) {
	case SortAsc:
		return SortAsc, true
	case SortDesc:
		return SortDesc, true
	default:
		return "", false
	}
}

// SortInput orders a listing by a single field. Field is passed to the store
// as-is; an unknown column surfaces as a store error.
type SortInput struct {
	Field     string        `json:"field"`
	Direction SortDirection `json:"direction"`
}

// CreateRecordInput is the payload for creating a record. It deliberately has
// no ID: identity is assigned by the store.
type CreateRecordInput struct {
	Name        string
	Description *string
}

// UpdateRecordInput is the closed set of fields a partial update may touch.
// Nil fields are left unchanged.
type UpdateRecordInput struct {
	Name        *string
	Description *string
}

// UpdateSet is a normalized partial update: column names in a stable order
// together with their new values.
type UpdateSet struct {
	Columns []string
	Values  map[string]any
}

// Len returns the number of assignments.
func (u UpdateSet) Len() int {
	return len(u.Columns)
}

// Map returns the assignments as a column → value map, the shape GORM's
// Updates expects. The returned map is a copy.
func (u UpdateSet) Map() map[string]any {
	m := make(map[string]any, len(u.Columns))
	for _, col := range u.Columns {
		m[col] = u.Values[col]
	}
	return m
}

// ListQuery is a fully translated listing request handed to the store.
type ListQuery struct {
	Filter *RecordFilter
	Sort   *SortInput
	Limit  int
	Offset int
}

// QueryResult is one fetched page. PageSize is the number of items in this
// page, not the number of matching rows; use Count for that.
type QueryResult struct {
	Items    []Record `json:"items"`
	PageSize int      `json:"pageSize"`
}

// PaginatedResult is a page plus metadata derived from a separate global count.
type PaginatedResult struct {
	Items      []Record `json:"items"`
	TotalCount int64    `json:"totalCount"`
	PageInfo
}

// RecordStore is the persistence boundary the services depend on.
type RecordStore interface {
	// FindUnique returns (nil, nil) when no row has the given id.
	FindUnique(ctx context.Context, id string) (*Record, error)
	FindByIDs(ctx context.Context, ids []string) ([]Record, error)
	FindMany(ctx context.Context, q ListQuery) ([]Record, error)
	Count(ctx context.Context, filter *RecordFilter) (int64, error)
	Create(ctx context.Context, record *Record) error
	// Update and Delete return ErrNotFound when no row has the given id.
	Update(ctx context.Context, id string, set UpdateSet) error
	Delete(ctx context.Context, id string) error
}

// RecordQueryService reads records.
type RecordQueryService interface {
	FindMany(ctx context.Context, limit, offset int, sort *SortInput, filter *RecordFilter) (*QueryResult, error)
	Count(ctx context.Context, filter *RecordFilter) (int64, error)
	FindByID(ctx context.Context, id string) (*Record, error)
}

// RecordMutationService writes records.
type RecordMutationService interface {
	Create(ctx context.Context, in CreateRecordInput) (*Record, error)
	Update(ctx context.Context, id string, in UpdateRecordInput) (string, error)
	Remove(ctx context.Context, id string) error
}
