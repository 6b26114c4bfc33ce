package warehouse

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	_ "github.com/marcboeker/go-duckdb/v2"

	"github.com/Log-Tools/lift-tickets-pipeline/tickets"
)

// DuckDB keeps a local stage directory and loads it into a table. Loaded
// file names are recorded so repeated triggers never load a file twice.
type DuckDB struct {
	db       *sql.DB
	stageDir string
	table    string

	// Held while a load runs; a trigger during a load is a no-op
	loading sync.Mutex
}

// OpenDuckDB opens the database file, creating the stage directory and the
// bookkeeping table when missing
func OpenDuckDB(ctx context.Context, path, stageDir, table string) (*DuckDB, error) {
	if err := os.MkdirAll(stageDir, 0o755); err != nil {
		return nil, fmt.Errorf("create stage dir %s: %w", stageDir, err)
	}

	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("open duckdb %s: %w", path, err)
	}

	if _, err := db.ExecContext(ctx, "CREATE TABLE IF NOT EXISTS loaded_files (name VARCHAR PRIMARY KEY)"); err != nil {
		db.Close()
		return nil, fmt.Errorf("create loaded_files: %w", err)
	}

	log.Printf("DuckDB warehouse at %s staging into %s", path, stageDir)
	return &DuckDB{db: db, stageDir: stageDir, table: table}, nil
}

// Put copies localPath into the stage directory
func (d *DuckDB) Put(ctx context.Context, localPath string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	src, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("open %s: %w", localPath, err)
	}
	defer src.Close()

	target := filepath.Join(d.stageDir, filepath.Base(localPath))
	dst, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("create %s: %w", target, err)
	}

	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		os.Remove(target)
		return fmt.Errorf("copy %s: %w", localPath, err)
	}
	return dst.Close()
}

// ExecuteTask loads every staged file not loaded before
func (d *DuckDB) ExecuteTask(ctx context.Context) error {
	if !d.loading.TryLock() {
		log.Printf("Load of %s already running, skipping trigger", d.table)
		return nil
	}
	defer d.loading.Unlock()

	pending, err := d.pendingFiles(ctx)
	if err != nil {
		return err
	}
	if len(pending) == 0 {
		return nil
	}

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin load: %w", err)
	}
	defer tx.Rollback()

	create := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s AS SELECT * FROM read_parquet('%s') LIMIT 0",
		d.table, escapeLiteral(filepath.Join(d.stageDir, pending[0])))
	if _, err := tx.ExecContext(ctx, create); err != nil {
		return fmt.Errorf("create %s: %w", d.table, err)
	}

	for _, name := range pending {
		insert := fmt.Sprintf("INSERT INTO %s SELECT * FROM read_parquet('%s')",
			d.table, escapeLiteral(filepath.Join(d.stageDir, name)))
		if _, err := tx.ExecContext(ctx, insert); err != nil {
			return fmt.Errorf("load %s: %w", name, err)
		}
		if _, err := tx.ExecContext(ctx, "INSERT INTO loaded_files (name) VALUES (?)", name); err != nil {
			return fmt.Errorf("record %s: %w", name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit load: %w", err)
	}
	log.Printf("Loaded %d staged files into %s", len(pending), d.table)
	return nil
}

func (d *DuckDB) pendingFiles(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(d.stageDir)
	if err != nil {
		return nil, fmt.Errorf("read stage dir %s: %w", d.stageDir, err)
	}

	loaded, err := d.loadedFiles(ctx)
	if err != nil {
		return nil, err
	}

	var pending []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !tickets.IsStagedFile(name) || loaded[name] {
			continue
		}
		pending = append(pending, name)
	}
	sort.Strings(pending)
	return pending, nil
}

func (d *DuckDB) loadedFiles(ctx context.Context) (map[string]bool, error) {
	rows, err := d.db.QueryContext(ctx, "SELECT name FROM loaded_files")
	if err != nil {
		return nil, fmt.Errorf("query loaded_files: %w", err)
	}
	defer rows.Close()

	loaded := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		loaded[name] = true
	}
	return loaded, rows.Err()
}

// RowCount returns the number of rows in the target table, 0 before the first load
func (d *DuckDB) RowCount(ctx context.Context) (int64, error) {
	var exists bool
	err := d.db.QueryRowContext(ctx,
		"SELECT count(*) > 0 FROM information_schema.tables WHERE lower(table_name) = ?",
		strings.ToLower(d.table)).Scan(&exists)
	if err != nil || !exists {
		return 0, err
	}

	var n int64
	if err := d.db.QueryRowContext(ctx, "SELECT count(*) FROM "+d.table).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

func (d *DuckDB) Close() error {
	return d.db.Close()
}
