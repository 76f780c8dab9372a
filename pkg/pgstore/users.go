package pgstore

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// Directory reads the users table. It implements audience.Directory and
// preference.UserLister.
type Directory struct {
	db DB
}

// NewDirectory creates a Directory.
func NewDirectory(db DB) *Directory {
	return &Directory{db: db}
}

func (d *Directory) ActiveUserIDs(ctx context.Context) ([]int64, error) {
	return d.ids(ctx, `SELECT id FROM users WHERE active ORDER BY id`)
}

func (d *Directory) UserIDsByRoles(ctx context.Context, roles []string) ([]int64, error) {
	if len(roles) == 0 {
		return []int64{}, nil
	}
	return d.ids(ctx, `SELECT id FROM users WHERE active AND roles && $1 ORDER BY id`, roles)
}

func (d *Directory) ids(ctx context.Context, query string, args ...any) ([]int64, error) {
	rows, err := d.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[int64])
	if err != nil {
		return nil, fmt.Errorf("failed to scan users: %w", err)
	}
	return ids, nil
}
