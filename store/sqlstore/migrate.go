package sqlstore

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"sync"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"
)

//go:embed migrations
var migrations embed.FS

// goose keeps its base FS and dialect in package globals.
var gooseMu sync.Mutex

// Open opens a handle for dialect. SQLite handles are limited to a single
// connection so in-memory databases are shared and writes serialize.
func Open(dialect Dialect, dsn string) (*sql.DB, error) {
	db, err := sql.Open(dialect.driverName(), dsn)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}
	if dialect == SQLite {
		db.SetMaxOpenConns(1)
	}
	return db, nil
}

// Migrate brings the users table up to date.
func Migrate(ctx context.Context, db *sql.DB, dialect Dialect) error {
	sub, err := fs.Sub(migrations, "migrations/"+string(dialect))
	if err != nil {
		return err
	}

	gooseMu.Lock()
	defer gooseMu.Unlock()

	goose.SetBaseFS(sub)
	defer goose.SetBaseFS(nil)
	goose.SetLogger(goose.NopLogger())

	if err := goose.SetDialect(dialect.gooseDialect()); err != nil {
		return err
	}
	if err := goose.UpContext(ctx, db, "."); err != nil {
		return fmt.Errorf("migration error: %w", err)
	}
	return nil
}
