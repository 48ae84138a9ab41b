// Package sqlstore keeps the insurance table in PostgreSQL or SQLite.
package sqlstore

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/cenkalti/backoff/v4"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib" // PostgreSQL driver.
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/dgallion1/insurtree/internal/engine"
	"github.com/dgallion1/insurtree/internal/store"
)

const (
	EnginePostgres = "postgres"
	EngineSQLite   = "sqlite"

	table     = "insurances"
	batchSize = 500
)

var columns = []string{"id", "parent_id", "name", "value"}

// Config controls how the store connects.
type Config struct {
	Engine        string // EnginePostgres or EngineSQLite
	URI           string
	Migrate       bool // run migrations on open
	ExportMetrics bool // register a DB stats collector with Prometheus
	Log           *slog.Logger
}

// Store is a database/sql backed store.Store.
type Store struct {
	db        *sql.DB
	stbl      sq.StatementBuilderType
	engine    string
	collector prometheus.Collector
}

var _ store.Store = (*Store)(nil)

// New connects to the database, waiting for it with exponential backoff.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Log == nil {
		cfg.Log = slog.Default()
	}
	db, err := open(ctx, cfg.Engine, cfg.URI, cfg.Log)
	if err != nil {
		return nil, err
	}

	if cfg.Migrate {
		if err := Migrate(ctx, db, cfg.Engine, 0, cfg.Log); err != nil {
			db.Close()
			return nil, err
		}
	}

	s := &Store{
		db:     db,
		stbl:   builder(cfg.Engine).RunWith(db),
		engine: cfg.Engine,
	}
	if cfg.ExportMetrics {
		s.collector = collectors.NewDBStatsCollector(db, "insurtree")
		if err := prometheus.Register(s.collector); err != nil {
			db.Close()
			return nil, fmt.Errorf("initialize metrics: %w", err)
		}
	}
	return s, nil
}

func open(ctx context.Context, engineName, uri string, log *slog.Logger) (*sql.DB, error) {
	var (
		db  *sql.DB
		err error
	)
	switch engineName {
	case EnginePostgres:
		db, err = sql.Open("pgx", uri)
	case EngineSQLite:
		var dsn string
		if dsn, err = PrepareDSN(uri); err == nil {
			db, err = sql.Open("sqlite", dsn)
		}
	default:
		return nil, fmt.Errorf("unsupported sql engine %q", engineName)
	}
	if err != nil {
		return nil, fmt.Errorf("initialize %s connection: %w", engineName, err)
	}

	policy := backoff.NewExponentialBackOff()
	policy.MaxElapsedTime = time.Minute
	attempt := 1
	err = backoff.Retry(func() error {
		if err := db.PingContext(ctx); err != nil {
			log.Info("waiting for database", "engine", engineName, "attempt", attempt)
			attempt++
			return err
		}
		return nil
	}, backoff.WithContext(policy, ctx))
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("connect %s: %w", engineName, err)
	}
	return db, nil
}

func builder(engineName string) sq.StatementBuilderType {
	if engineName == EnginePostgres {
		return sq.StatementBuilder.PlaceholderFormat(sq.Dollar)
	}
	return sq.StatementBuilder.PlaceholderFormat(sq.Question)
}

// PrepareDSN adds WAL journaling and a busy timeout to a SQLite DSN unless already set.
func PrepareDSN(uri string) (string, error) {
	query := url.Values{}
	if i := strings.Index(uri, "?"); i != -1 {
		var err error
		query, err = url.ParseQuery(uri[i+1:])
		if err != nil {
			return uri, fmt.Errorf("error parsing dsn: %w", err)
		}
		uri = uri[:i]
	}

	foundJournalMode := false
	foundBusyTimeout := false
	for _, val := range query["_pragma"] {
		if strings.HasPrefix(val, "journal_mode") {
			foundJournalMode = true
		} else if strings.HasPrefix(val, "busy_timeout") {
			foundBusyTimeout = true
		}
	}
	if !foundJournalMode {
		query.Add("_pragma", "journal_mode(WAL)")
	}
	if !foundBusyTimeout {
		query.Add("_pragma", "busy_timeout(500)")
	}
	if !query.Has("_txlock") {
		query.Set("_txlock", "immediate")
	}
	return uri + "?" + query.Encode(), nil
}

// DB exposes the underlying pool.
func (s *Store) DB() *sql.DB { return s.db }

func (s *Store) Snapshot(ctx context.Context) ([]engine.Record, error) {
	rows, err := s.stbl.
		Select(columns...).
		From(table).
		OrderBy("id").
		QueryContext(ctx)
	if err != nil {
		return nil, classify("snapshot", err)
	}
	defer rows.Close()

	var out []engine.Record
	for rows.Next() {
		var (
			r      engine.Record
			parent sql.NullInt64
		)
		if err := rows.Scan(&r.ID, &parent, &r.Name, &r.Value); err != nil {
			return nil, fmt.Errorf("scan insurance: %w", err)
		}
		if parent.Valid {
			p := parent.Int64
			r.ParentID = &p
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("snapshot", err)
	}
	return out, nil
}

func (s *Store) Upsert(ctx context.Context, records []engine.Record) error {
	return s.inTx(ctx, "upsert", func(stbl sq.StatementBuilderType) error {
		return insert(ctx, stbl, records)
	})
}

func (s *Store) Replace(ctx context.Context, records []engine.Record) error {
	return s.inTx(ctx, "replace", func(stbl sq.StatementBuilderType) error {
		if _, err := stbl.Delete(table).ExecContext(ctx); err != nil {
			return err
		}
		return insert(ctx, stbl, records)
	})
}

func (s *Store) Delete(ctx context.Context, id int64) error {
	res, err := s.stbl.Delete(table).Where(sq.Eq{"id": id}).ExecContext(ctx)
	if err != nil {
		return classify("delete", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete: %w", err)
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) Close() error {
	if s.collector != nil {
		prometheus.Unregister(s.collector)
	}
	return s.db.Close()
}

func (s *Store) inTx(ctx context.Context, op string, fn func(sq.StatementBuilderType) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return classify(op, err)
	}
	if err := fn(builder(s.engine).RunWith(tx)); err != nil {
		_ = tx.Rollback()
		return classify(op, err)
	}
	if err := tx.Commit(); err != nil {
		return classify(op, err)
	}
	return nil
}

func insert(ctx context.Context, stbl sq.StatementBuilderType, records []engine.Record) error {
	for start := 0; start < len(records); start += batchSize {
		end := min(start+batchSize, len(records))
		q := stbl.Insert(table).Columns(columns...)
		for _, r := range records[start:end] {
			var parent any
			if r.ParentID != nil {
				parent = *r.ParentID
			}
			q = q.Values(r.ID, parent, r.Name, r.Value)
		}
		q = q.Suffix("ON CONFLICT (id) DO UPDATE SET parent_id = excluded.parent_id, name = excluded.name, value = excluded.value")
		if _, err := q.ExecContext(ctx); err != nil {
			return err
		}
	}
	return nil
}

// classify marks transient driver failures as retryable.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	if isTransient(err) {
		return &store.RetryableError{Op: op, Err: err}
	}
	return fmt.Errorf("sql %s: %w", op, err)
}

func isTransient(err error) bool {
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// 08: connection exception, 40001: serialization failure, 40P01: deadlock.
		return strings.HasPrefix(pgErr.Code, "08") || pgErr.Code == "40001" || pgErr.Code == "40P01"
	}
	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		code := sqliteErr.Code() & 0xFF
		return code == sqlite3.SQLITE_BUSY || code == sqlite3.SQLITE_LOCKED
	}
	return false
}
