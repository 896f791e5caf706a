package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"time"

	"github.com/jamesainslie/seek/pkg/seek/types"
)

// Catalog is a published snapshot opened for reading.
type Catalog struct {
	path string
	db   *sql.DB
}

// OpenCatalog opens a snapshot read-only and checks that it has a files table.
func OpenCatalog(ctx context.Context, path string) (*Catalog, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("%w: %w", types.ErrNoCatalog, err)
	}

	db, err := openReadOnly(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", types.ErrStore, err)
	}

	var name string
	err = db.QueryRowContext(ctx, `SELECT name FROM sqlite_master WHERE type = 'table' AND name = 'files'`).Scan(&name)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: %s is not a catalog: %w", types.ErrStore, path, err)
	}

	return &Catalog{path: path, db: db}, nil
}

// Path returns the snapshot path.
func (c *Catalog) Path() string {
	return c.path
}

// Search returns up to limit rows whose filename contains keyword, ignoring
// case. An empty keyword matches nothing.
func (c *Catalog) Search(ctx context.Context, keyword string, limit int) ([]types.FileRecord, error) {
	if keyword == "" || limit <= 0 {
		return []types.FileRecord{}, nil
	}

	rows, err := c.db.QueryContext(ctx, searchSQL, Fold(keyword), limit)
	if err != nil {
		return nil, fmt.Errorf("%w: searching: %w", types.ErrStore, err)
	}
	defer rows.Close()

	results := make([]types.FileRecord, 0, limit)
	for rows.Next() {
		var (
			path     string
			filename sql.NullString
			size     sql.NullInt64
			modified sql.NullString
		)
		if err := rows.Scan(&path, &filename, &size, &modified); err != nil {
			return nil, fmt.Errorf("%w: scanning row: %w", types.ErrStore, err)
		}
		rec := types.FileRecord{
			Path:     path,
			Filename: filename.String,
			Size:     size.Int64,
		}
		if modified.Valid {
			if t, err := time.ParseInLocation(types.ModTimeFormat, modified.String, time.Local); err == nil {
				rec.ModTime = t
			}
		}
		results = append(results, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: reading rows: %w", types.ErrStore, err)
	}

	return results, nil
}

// Count returns the number of records in the snapshot.
func (c *Catalog) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := c.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM files`).Scan(&n); err != nil {
		return 0, fmt.Errorf("%w: counting rows: %w", types.ErrStore, err)
	}
	return n, nil
}

// Close closes the snapshot.
func (c *Catalog) Close() error {
	return c.db.Close()
}
