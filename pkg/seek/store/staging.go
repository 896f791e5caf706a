package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jamesainslie/seek/pkg/seek/logging"
	"github.com/jamesainslie/seek/pkg/seek/types"
)

// ErrStagingClosed is returned when a staging artifact is used after it was
// published or discarded.
var ErrStagingClosed = errors.New("staging artifact already closed")

// Staging is the in-progress catalog of one session. It lives in the catalog
// directory under a hidden name and becomes visible only through Publish.
// Staging is safe for concurrent use, though sessions write from one goroutine.
type Staging struct {
	mu     sync.Mutex
	dir    string
	path   string
	db     *sql.DB
	closed bool
	logger *logging.Logger
}

// NewStaging creates an empty staging artifact in dir.
func NewStaging(ctx context.Context, dir string) (*Staging, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: creating catalog directory: %w", types.ErrStore, err)
	}

	path := filepath.Join(dir, stagingPrefix+uuid.NewString()+SnapshotExt)
	db, err := openWritable(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", types.ErrStore, err)
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		closeErr := db.Close()
		_ = os.Remove(path)
		return nil, fmt.Errorf("%w: creating schema: %w", types.ErrStore, errors.Join(err, closeErr))
	}

	s := &Staging{
		dir:    dir,
		path:   path,
		db:     db,
		logger: logging.Get("store"),
	}
	s.logger.Debug("staging created", "path", path)
	return s, nil
}

// Path returns the staging file path.
func (s *Staging) Path() string {
	return s.path
}

// Seed copies every row of an existing snapshot into the staging artifact,
// so that an incremental session starts from the previous generation.
func (s *Staging) Seed(ctx context.Context, snapshotPath string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, ErrStagingClosed
	}

	if _, err := s.db.ExecContext(ctx, `ATTACH DATABASE ? AS prev`, snapshotPath); err != nil {
		return 0, fmt.Errorf("%w: attaching %s: %w", types.ErrStore, snapshotPath, err)
	}

	res, err := s.db.ExecContext(ctx, `INSERT OR REPLACE INTO files (path, filename, size, modified_time)
		SELECT path, filename, size, modified_time FROM prev.files`)
	_, detachErr := s.db.ExecContext(ctx, `DETACH DATABASE prev`)
	if err != nil {
		return 0, fmt.Errorf("%w: seeding from %s: %w", types.ErrStore, snapshotPath, errors.Join(err, detachErr))
	}
	if detachErr != nil {
		return 0, fmt.Errorf("%w: detaching %s: %w", types.ErrStore, snapshotPath, detachErr)
	}

	n, _ := res.RowsAffected()
	s.logger.Debug("staging seeded", "from", snapshotPath, "rows", n)
	return n, nil
}

// Upsert writes records in a single transaction. A record whose path already
// exists replaces the stored row.
func (s *Staging) Upsert(ctx context.Context, records []types.FileRecord) error {
	if len(records) == 0 {
		return nil
	}
	return s.inTx(ctx, upsertSQL, len(records), func(stmt *sql.Stmt, i int) error {
		r := records[i]
		_, err := stmt.ExecContext(ctx, r.Path, r.Filename, r.Size, r.ModTimeString())
		return err
	})
}

// Remove deletes rows by path in a single transaction. Unknown paths are ignored.
func (s *Staging) Remove(ctx context.Context, paths []string) error {
	if len(paths) == 0 {
		return nil
	}
	return s.inTx(ctx, deleteSQL, len(paths), func(stmt *sql.Stmt, i int) error {
		_, err := stmt.ExecContext(ctx, paths[i])
		return err
	})
}

func (s *Staging) inTx(ctx context.Context, query string, n int, exec func(*sql.Stmt, int) error) (err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStagingClosed
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: beginning transaction: %w", types.ErrStore, err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				err = errors.Join(err, rbErr)
			}
		}
	}()

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return fmt.Errorf("%w: preparing statement: %w", types.ErrStore, err)
	}
	defer stmt.Close()

	for i := 0; i < n; i++ {
		if err := exec(stmt, i); err != nil {
			return fmt.Errorf("%w: writing row: %w", types.ErrStore, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: committing batch: %w", types.ErrStore, err)
	}
	return nil
}

// Count returns the number of rows in the staging artifact.
func (s *Staging) Count(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, ErrStagingClosed
	}

	var n int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM files`).Scan(&n); err != nil {
		return 0, fmt.Errorf("%w: counting rows: %w", types.ErrStore, err)
	}
	return n, nil
}

// Publish closes the staging artifact and renames it to its snapshot name.
// An existing snapshot with the same name is replaced. The returned path is
// the published snapshot. On failure the staging file is removed.
func (s *Staging) Publish(label string, completed time.Time) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return "", ErrStagingClosed
	}
	s.closed = true

	if err := s.db.Close(); err != nil {
		return "", s.fail(fmt.Errorf("%w: closing staging: %w", types.ErrStore, err))
	}

	final := filepath.Join(s.dir, SnapshotName(label, completed))
	if err := os.Remove(final); err != nil && !errors.Is(err, os.ErrNotExist) {
		return "", s.fail(fmt.Errorf("%w: replacing %s: %w", types.ErrStore, final, err))
	}
	if err := os.Rename(s.path, final); err != nil {
		return "", s.fail(fmt.Errorf("%w: publishing %s: %w", types.ErrStore, final, err))
	}

	s.logger.Info("snapshot published", "path", final)
	return final, nil
}

// Discard closes and deletes the staging artifact. It is safe to call more
// than once and after Publish.
func (s *Staging) Discard() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	closeErr := s.db.Close()
	if err := s.removeFiles(); err != nil {
		return fmt.Errorf("%w: discarding staging: %w", types.ErrStore, errors.Join(err, closeErr))
	}
	s.logger.Debug("staging discarded", "path", s.path)
	return nil
}

func (s *Staging) fail(err error) error {
	if rmErr := s.removeFiles(); rmErr != nil {
		return errors.Join(err, rmErr)
	}
	return err
}

func (s *Staging) removeFiles() error {
	var errs []error
	for _, p := range []string{s.path, s.path + "-journal"} {
		if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
