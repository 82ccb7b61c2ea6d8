package record

import (
	"context"
	"encoding/base64"
	"errors"
	"log/slog"
	"strconv"

	"github.com/simp-lee/recordsvc/internal/domain"
)

const cursorPrefix = "offset:"

// GatewayConfig bounds connection listings.
type GatewayConfig struct {
	DefaultLimit int
	MaxLimit     int
	// ConsistentCount runs the page fetch and the count in one read
	// transaction when the store supports it.
	ConsistentCount bool
}

// snapshotter is implemented by stores that can run several reads against
// one consistent view.
type snapshotter interface {
	Snapshot(ctx context.Context, fn func(store domain.RecordStore) error) error
}

// Gateway is the outward surface over the query and mutation services.
type Gateway struct {
	store     domain.RecordStore
	queries   domain.RecordQueryService
	mutations domain.RecordMutationService
	cfg       GatewayConfig
	log       *slog.Logger
}

// NewGateway wires query and mutation services over store.
func NewGateway(store domain.RecordStore, cfg GatewayConfig, log *slog.Logger) *Gateway {
	if cfg.DefaultLimit <= 0 {
		cfg.DefaultLimit = 10
	}
	if cfg.MaxLimit <= 0 {
		cfg.MaxLimit = 50
	}
	if cfg.DefaultLimit > cfg.MaxLimit {
		cfg.DefaultLimit = cfg.MaxLimit
	}
	return &Gateway{
		store:     store,
		queries:   NewQueryService(store, log),
		mutations: NewMutationService(store, log),
		cfg:       cfg,
		log:       log,
	}
}

// ReadByID returns (nil, nil) when the record does not exist. Lookups go
// through the request loader when one is installed.
func (g *Gateway) ReadByID(ctx context.Context, id string) (*domain.Record, error) {
	if loader := LoaderFromContext(ctx); loader != nil {
		return loadOne(ctx, loader, id)
	}
	rec, err := g.queries.FindByID(ctx, id)
	if domain.IsNotFound(err) {
		return nil, nil
	}
	return rec, err
}

// ReadManyByID resolves ids in order; missing records are nil entries.
func (g *Gateway) ReadManyByID(ctx context.Context, ids []string) ([]*domain.Record, error) {
	loader := LoaderFromContext(ctx)
	if loader == nil {
		loader = NewLoader(g.store)
	}
	return loadMany(ctx, loader, ids)
}

// List returns an offset-backed connection. A zero limit takes the default
// and limits above the maximum are capped. Cursor input is rejected.
func (g *Gateway) List(ctx context.Context, page domain.PaginationInput, sort *domain.SortInput, filter *domain.RecordFilter) (*domain.Connection, error) {
	if page.Cursor != nil {
		return nil, domain.UsageError("cursor pagination is not supported; use limit and offset")
	}

	limit := page.Limit
	switch {
	case limit == 0:
		limit = g.cfg.DefaultLimit
	case limit > g.cfg.MaxLimit:
		limit = g.cfg.MaxLimit
	}
	if err := domain.ValidateWindow(limit, page.Offset); err != nil {
		return nil, err
	}

	items, total, err := g.fetchPage(ctx, limit, page.Offset, sort, filter)
	if err != nil {
		return nil, err
	}
	info, err := domain.ComputePageInfo(limit, page.Offset, total)
	if err != nil {
		return nil, err
	}

	conn := &domain.Connection{
		Edges:      make([]domain.Edge, len(items)),
		TotalCount: total,
		PageInfo: domain.ConnectionInfo{
			HasNextPage:     info.HasNextPage,
			HasPreviousPage: info.HasPreviousPage,
		},
	}
	for i, rec := range items {
		conn.Edges[i] = domain.Edge{Cursor: EncodeCursor(page.Offset + i), Node: rec}
	}
	if n := len(conn.Edges); n > 0 {
		start, end := conn.Edges[0].Cursor, conn.Edges[n-1].Cursor
		conn.PageInfo.StartCursor = &start
		conn.PageInfo.EndCursor = &end
	}
	return conn, nil
}

// ListPaginated returns one page with its global count and page metadata.
// The count and the page come from separate queries unless ConsistentCount is
// set, so a concurrent write may make them disagree.
func (g *Gateway) ListPaginated(ctx context.Context, limit, offset int, sort *domain.SortInput, filter *domain.RecordFilter) (*domain.PaginatedResult, error) {
	if err := domain.ValidateWindow(limit, offset); err != nil {
		return nil, err
	}

	items, total, err := g.fetchPage(ctx, limit, offset, sort, filter)
	if err != nil {
		return nil, err
	}
	info, err := domain.ComputePageInfo(limit, offset, total)
	if err != nil {
		return nil, err
	}

	return &domain.PaginatedResult{Items: items, TotalCount: total, PageInfo: info}, nil
}

// Create returns the id assigned by the store.
func (g *Gateway) Create(ctx context.Context, in domain.CreateRecordInput) (string, error) {
	rec, err := g.mutations.Create(ctx, in)
	if err != nil {
		return "", err
	}
	return rec.ID, nil
}

func (g *Gateway) Update(ctx context.Context, id string, in domain.UpdateRecordInput) (string, error) {
	return g.mutations.Update(ctx, id, in)
}

func (g *Gateway) Remove(ctx context.Context, id string) error {
	return g.mutations.Remove(ctx, id)
}

func (g *Gateway) fetchPage(ctx context.Context, limit, offset int, sort *domain.SortInput, filter *domain.RecordFilter) ([]domain.Record, int64, error) {
	snap, ok := g.store.(snapshotter)
	if !g.cfg.ConsistentCount || !ok {
		return readPage(ctx, g.queries, limit, offset, sort, filter)
	}

	var (
		items []domain.Record
		total int64
	)
	err := snap.Snapshot(ctx, func(store domain.RecordStore) error {
		var err error
		items, total, err = readPage(ctx, NewQueryService(store, g.log), limit, offset, sort, filter)
		return err
	})
	if err != nil {
		var appErr *domain.AppError
		if !errors.As(err, &appErr) {
			err = domain.StoreError(err)
		}
		return nil, 0, err
	}
	return items, total, nil
}

func readPage(ctx context.Context, q domain.RecordQueryService, limit, offset int, sort *domain.SortInput, filter *domain.RecordFilter) ([]domain.Record, int64, error) {
	page, err := q.FindMany(ctx, limit, offset, sort, filter)
	if err != nil {
		return nil, 0, err
	}
	total, err := q.Count(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	return page.Items, total, nil
}

// EncodeCursor renders an offset as an opaque cursor.
func EncodeCursor(offset int) string {
	return base64.RawURLEncoding.EncodeToString([]byte(cursorPrefix + strconv.Itoa(offset)))
}
