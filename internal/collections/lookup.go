package collections

import (
	"context"
	"fmt"

	"github.com/freekieb7/neurovault-users/internal/database"
)

// Lookup reports whether a collection id is still registered.
type Lookup interface {
	Exists(ctx context.Context, id int64) (bool, error)
}

type PostgresLookup struct {
	DB database.DBTX
}

func NewPostgresLookup(db database.DBTX) *PostgresLookup {
	return &PostgresLookup{DB: db}
}

func (l *PostgresLookup) Exists(ctx context.Context, id int64) (bool, error) {
	var exists bool
	if err := l.DB.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM tbl_collection WHERE id = $1)`, id).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to look up collection %d: %w", id, err)
	}
	return exists, nil
}
