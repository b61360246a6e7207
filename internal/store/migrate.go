package store

import (
	"context"
	"database/sql"
	"embed"
	"sync"

	"github.com/pressly/goose/v3"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

//go:embed migrations/postgres/*.sql migrations/sqlite/*.sql
var migrationsFS embed.FS

// goose keeps its dialect and filesystem in package state.
var gooseMu sync.Mutex

func runMigrations(ctx context.Context, db *sql.DB, dialect, dir string) error {
	gooseMu.Lock()
	defer gooseMu.Unlock()

	goose.SetBaseFS(migrationsFS)
	goose.SetLogger(&gooseLogger{})
	if err := goose.SetDialect(dialect); err != nil {
		return eris.Wrapf(err, "migrate: set dialect %s", dialect)
	}
	if err := goose.UpContext(ctx, db, dir); err != nil {
		return eris.Wrapf(err, "migrate: up %s", dir)
	}
	return nil
}

// gooseLogger routes goose output through zap.
type gooseLogger struct{}

func (l *gooseLogger) Printf(format string, v ...any) { zap.S().Infof(format, v...) }
func (l *gooseLogger) Fatalf(format string, v ...any) { zap.S().Fatalf(format, v...) }
