package database

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	_ "github.com/microsoft/go-mssqldb"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// Supported SQL drivers.
const (
	DriverSQLite    = "sqlite3"
	DriverSQLServer = "sqlserver"
	DriverPostgres  = "postgres"
)

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Store is an open relational store holding one incident table.
type Store struct {
	*sqlx.DB
	Driver string
	Label  string
}

// ColumnInfo is a column as reported by the driver.
type ColumnInfo struct {
	Name         string
	DatabaseType string
}

// ValidIdent reports whether name can be used as a table identifier.
func ValidIdent(name string) bool {
	return identRe.MatchString(name)
}

// ConnectSQL opens a store and verifies it with a ping. A read-only sqlite
// store must already exist; a writable one gets its parent directory created.
func ConnectSQL(ctx context.Context, driver, dsn string, readOnly bool) (*Store, error) {
	label := storeLabel(driver, dsn)
	openDSN := dsn

	switch driver {
	case DriverSQLite:
		path := sqlitePath(dsn)
		if readOnly {
			if _, err := os.Stat(path); err != nil {
				return nil, fmt.Errorf("database not found: %s: %w", path, err)
			}
			openDSN = sqliteReadOnly(dsn)
		} else if dir := filepath.Dir(path); dir != "" && path != ":memory:" {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
			}
		}
	case DriverSQLServer, DriverPostgres:
	default:
		return nil, fmt.Errorf("unsupported driver %q", driver)
	}

	db, err := sqlx.Open(driver, openDSN)
	if err != nil {
		return nil, fmt.Errorf("error opening %s: %w", label, err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("error connecting to %s (ping failed): %w", label, err)
	}

	return &Store{DB: db, Driver: driver, Label: label}, nil
}

// Quote quotes an identifier for the store's dialect.
func (s *Store) Quote(ident string) string {
	if s.Driver == DriverSQLServer {
		return "[" + ident + "]"
	}
	return `"` + ident + `"`
}

// QuoteAll quotes and comma-joins identifiers.
func (s *Store) QuoteAll(idents []string) string {
	quoted := make([]string, len(idents))
	for i, id := range idents {
		quoted[i] = s.Quote(id)
	}
	return strings.Join(quoted, ", ")
}

// OrderClause returns the clause that yields rows in insertion order, or ""
// where the dialect has no such notion.
func (s *Store) OrderClause() string {
	if s.Driver == DriverSQLite {
		return " ORDER BY rowid"
	}
	return ""
}

// Columns lists the table's columns in declaration order.
func (s *Store) Columns(ctx context.Context, table string) ([]ColumnInfo, error) {
	if !ValidIdent(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	rows, err := s.QueryxContext(ctx, fmt.Sprintf("SELECT * FROM %s WHERE 1=0", s.Quote(table)))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	types, err := rows.ColumnTypes()
	if err != nil {
		return nil, err
	}
	cols := make([]ColumnInfo, len(types))
	for i, ct := range types {
		cols[i] = ColumnInfo{Name: ct.Name(), DatabaseType: strings.ToUpper(ct.DatabaseTypeName())}
	}
	return cols, rows.Err()
}

// TableExists reports whether the table can be selected from.
func (s *Store) TableExists(ctx context.Context, table string) bool {
	_, err := s.Columns(ctx, table)
	return err == nil
}

func sqlitePath(dsn string) string {
	p := strings.TrimPrefix(dsn, "file:")
	if i := strings.IndexByte(p, '?'); i >= 0 {
		p = p[:i]
	}
	return p
}

func sqliteReadOnly(dsn string) string {
	if !strings.HasPrefix(dsn, "file:") {
		dsn = "file:" + dsn
	}
	if strings.Contains(dsn, "?") {
		return dsn + "&mode=ro"
	}
	return dsn + "?mode=ro"
}

func storeLabel(driver, dsn string) string {
	if driver == DriverSQLite {
		return driver + ":" + sqlitePath(dsn)
	}
	// server DSNs carry credentials
	return driver
}

// ErrNoMongo is returned when no MongoDB connection string is configured.
var ErrNoMongo = errors.New("MongoDB connection string not set")

func ConnectMongo(ctx context.Context, connString string) (*mongo.Client, error) {
	if connString == "" {
		return nil, ErrNoMongo
	}
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(connString))
	if err != nil {
		return nil, fmt.Errorf("error creating MongoDB client: %w", err)
	}

	pingCtx, pingCancel := context.WithTimeout(ctx, 5*time.Second)
	defer pingCancel()

	err = client.Ping(pingCtx, readpref.Primary())
	if err != nil {
		disconnectCtx, disconnectCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer disconnectCancel()
		_ = client.Disconnect(disconnectCtx)

		return nil, fmt.Errorf("error connecting to MongoDB (ping failed): %w", err)
	}

	return client, nil
}
