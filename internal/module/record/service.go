package record

import (
	"context"
	"log/slog"

	"github.com/simp-lee/recordsvc/internal/domain"
)

// queryService implements domain.RecordQueryService.
type queryService struct {
	store domain.RecordStore
	log   *slog.Logger
}

// NewQueryService creates a RecordQueryService over the given store.
func NewQueryService(store domain.RecordStore, log *slog.Logger) domain.RecordQueryService {
	return &queryService{store: store, log: log}
}

// FindMany fetches one page. PageSize in the result is the number of records
// returned, not the number of matches.
func (s *queryService) FindMany(ctx context.Context, limit, offset int, sort *domain.SortInput, filter *domain.RecordFilter) (*domain.QueryResult, error) {
	if err := domain.ValidateWindow(limit, offset); err != nil {
		return nil, err
	}

	items, err := s.store.FindMany(ctx, domain.ListQuery{
		Filter: filter,
		Sort:   sort,
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		s.log.ErrorContext(ctx, "find records failed", slog.Any("error", err))
		return nil, err
	}
	if items == nil {
		items = []domain.Record{}
	}

	return &domain.QueryResult{Items: items, PageSize: len(items)}, nil
}

func (s *queryService) Count(ctx context.Context, filter *domain.RecordFilter) (int64, error) {
	total, err := s.store.Count(ctx, filter)
	if err != nil {
		s.log.ErrorContext(ctx, "count records failed", slog.Any("error", err))
		return 0, err
	}
	return total, nil
}

// FindByID returns a not-found error when the record does not exist.
func (s *queryService) FindByID(ctx context.Context, id string) (*domain.Record, error) {
	rec, err := s.store.FindUnique(ctx, id)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, domain.NotFoundError("record", id)
	}
	return rec, nil
}

// mutationService implements domain.RecordMutationService.
type mutationService struct {
	store domain.RecordStore
	log   *slog.Logger
}

// NewMutationService creates a RecordMutationService over the given store.
func NewMutationService(store domain.RecordStore, log *slog.Logger) domain.RecordMutationService {
	return &mutationService{store: store, log: log}
}

// Create persists a new record. The store assigns its id and timestamps.
func (s *mutationService) Create(ctx context.Context, in domain.CreateRecordInput) (*domain.Record, error) {
	rec := &domain.Record{Name: in.Name, Description: in.Description}
	if err := s.store.Create(ctx, rec); err != nil {
		s.log.ErrorContext(ctx, "create record failed", slog.Any("error", err))
		return nil, err
	}

	s.log.InfoContext(ctx, "record created", slog.String("record_id", rec.ID))
	return rec, nil
}

// Update applies the non-nil fields of in and returns id unchanged. Empty
// strings are written as given.
func (s *mutationService) Update(ctx context.Context, id string, in domain.UpdateRecordInput) (string, error) {
	set := NormalizeUpdate(in)
	if err := s.store.Update(ctx, id, set); err != nil {
		if !domain.IsNotFound(err) {
			s.log.ErrorContext(ctx, "update record failed", slog.String("record_id", id), slog.Any("error", err))
		}
		return "", err
	}

	s.log.InfoContext(ctx, "record updated", slog.String("record_id", id), slog.Any("columns", set.Columns))
	return id, nil
}

func (s *mutationService) Remove(ctx context.Context, id string) error {
	if err := s.store.Delete(ctx, id); err != nil {
		if !domain.IsNotFound(err) {
			s.log.ErrorContext(ctx, "remove record failed", slog.String("record_id", id), slog.Any("error", err))
		}
		return err
	}

	s.log.InfoContext(ctx, "record removed", slog.String("record_id", id))
	return nil
}
