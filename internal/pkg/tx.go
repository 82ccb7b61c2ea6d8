package pkg

import (
	"context"
	"database/sql"

	"gorm.io/gorm"
)

// ReadSnapshot asks for a read-only transaction at repeatable-read isolation,
// so several reads observe the same committed state.
var ReadSnapshot = &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true}

// WithTx executes fn within a database transaction bound to ctx.
// It commits on success, rolls back on error or panic. opts may be nil.
func WithTx(ctx context.Context, db *gorm.DB, opts *sql.TxOptions, fn func(tx *gorm.DB) error) error {
	tx := db.WithContext(ctx).Begin(opts)
	if tx.Error != nil {
		return tx.Error
	}

	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			panic(r)
		}
	}()

	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}

	return tx.Commit().Error
}
