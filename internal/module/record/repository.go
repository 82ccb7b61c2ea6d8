package record

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"github.com/simp-lee/recordsvc/internal/domain"
	"github.com/simp-lee/recordsvc/internal/pkg"
)

// pgUniqueViolation is the SQLSTATE postgres reports for duplicate keys.
const pgUniqueViolation = "23505"

// recordRepository implements domain.RecordStore using GORM.
type recordRepository struct {
	db *gorm.DB
}

// NewRecordRepository creates a RecordStore backed by the given GORM database.
func NewRecordRepository(db *gorm.DB) domain.RecordStore {
	return &recordRepository{db: db}
}

func (r *recordRepository) FindUnique(ctx context.Context, id string) (*domain.Record, error) {
	var rec domain.Record
	err := r.db.WithContext(ctx).Where("id = ?", id).Take(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, mapError(err)
	}
	return &rec, nil
}

// FindByIDs returns the records among ids that exist, in no particular order.
func (r *recordRepository) FindByIDs(ctx context.Context, ids []string) ([]domain.Record, error) {
	records := []domain.Record{}
	if len(ids) == 0 {
		return records, nil
	}
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&records).Error; err != nil {
		return nil, mapError(err)
	}
	return records, nil
}

func (r *recordRepository) FindMany(ctx context.Context, q domain.ListQuery) ([]domain.Record, error) {
	records := []domain.Record{}
	err := r.db.WithContext(ctx).Model(&domain.Record{}).
		Scopes(FilterScope(q.Filter), SortScope(q.Sort)).
		Limit(q.Limit).
		Offset(q.Offset).
		Find(&records).Error
	if err != nil {
		return nil, mapError(err)
	}
	return records, nil
}

func (r *recordRepository) Count(ctx context.Context, filter *domain.RecordFilter) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).Model(&domain.Record{}).
		Scopes(FilterScope(filter)).
		Count(&total).Error
	if err != nil {
		return 0, mapError(err)
	}
	return total, nil
}

func (r *recordRepository) Create(ctx context.Context, rec *domain.Record) error {
	if err := r.db.WithContext(ctx).Create(rec).Error; err != nil {
		return mapError(err)
	}
	return nil
}

// Update applies set to the row with the given id. An empty set writes
// nothing and only checks that the row exists.
func (r *recordRepository) Update(ctx context.Context, id string, set domain.UpdateSet) error {
	if set.Len() == 0 {
		var n int64
		if err := r.db.WithContext(ctx).Model(&domain.Record{}).Where("id = ?", id).Count(&n).Error; err != nil {
			return mapError(err)
		}
		if n == 0 {
			return domain.NotFoundError("record", id)
		}
		return nil
	}

	result := r.db.WithContext(ctx).Model(&domain.Record{}).Where("id = ?", id).Updates(set.Map())
	if result.Error != nil {
		return mapError(result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.NotFoundError("record", id)
	}
	return nil
}

func (r *recordRepository) Delete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&domain.Record{})
	if result.Error != nil {
		return mapError(result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.NotFoundError("record", id)
	}
	return nil
}

// Snapshot runs fn against a store bound to a single read transaction. On
// postgres the transaction is read-only at repeatable-read isolation; SQLite
// transactions are already serializable.
func (r *recordRepository) Snapshot(ctx context.Context, fn func(store domain.RecordStore) error) error {
	opts := pkg.ReadSnapshot
	if r.db.Dialector.Name() != "postgres" {
		opts = nil
	}
	return pkg.WithTx(ctx, r.db, opts, func(tx *gorm.DB) error {
		return fn(&recordRepository{db: tx})
	})
}

// mapError converts GORM and driver errors to domain errors.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	var appErr *domain.AppError
	if errors.As(err, &appErr) {
		return err
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.ErrNotFound
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) || isDuplicateKeyError(err) {
		return domain.NewAppError(domain.CodeAlreadyExists, "record already exists", err)
	}
	return domain.StoreError(err)
}

// isDuplicateKeyError detects unique constraint violations. Postgres reports
// them as a typed *pgconn.PgError; the pure-Go SQLite driver only through the
// message text.
func isDuplicateKeyError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "duplicate key")
}
