package store

import (
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	_ "github.com/lib/pq"   // PostgreSQL driver
	"go.uber.org/zap"
	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

type Store struct {
	DB     *sql.DB
	driver string
	log    *zap.Logger
}

func NewStore(driver, dataSourceName string, log *zap.Logger) (*Store, error) {
	if driver != DriverSQLite && driver != DriverPostgres {
		return nil, fmt.Errorf("unsupported driver %q", driver)
	}
	db, err := sql.Open(driver, dataSourceName)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}

	if driver == DriverSQLite {
		// One writer at a time; WAL may be unsupported for in-memory databases.
		db.SetMaxOpenConns(1)
		_, _ = db.Exec(`PRAGMA journal_mode=WAL`)
		if _, err := db.Exec(`PRAGMA busy_timeout=5000`); err != nil {
			db.Close()
			return nil, err
		}
	}

	log.Info("Database opened", zap.String("driver", driver))
	return &Store{DB: db, driver: driver, log: log}, nil
}

// NewStoreFromDB wraps an existing handle, e.g. a sqlmock connection in tests.
func NewStoreFromDB(db *sql.DB, driver string, log *zap.Logger) *Store {
	return &Store{DB: db, driver: driver, log: log}
}

func (s *Store) Close() error {
	return s.DB.Close()
}

// rebind rewrites ? placeholders into $1, $2, ... for PostgreSQL.
func (s *Store) rebind(query string) string {
	if s.driver != DriverPostgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
