package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	_ "github.com/mattn/go-sqlite3"
	"github.com/oklog/ulid/v2"

	"github.com/zenibako/autosave-form/autosave"
)

// ErrNotFound is returned when a record does not exist
var ErrNotFound = errors.New("record not found")

var (
	identifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
	recordID   = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)
)

// Store keeps form records in a sqlite database, one table per form
type Store struct {
	db          *sql.DB
	persistence autosave.Persistence
	mu          sync.RWMutex
	tables      map[string]map[string]autosave.FieldType
}

// Open opens or creates the database at path. ":memory:" keeps it in memory.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database %s: %w", path, err)
	}
	if path == ":memory:" {
		// every pooled connection would get its own empty database
		db.SetMaxOpenConns(1)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to open database %s: %w", path, err)
	}

	log.Debugf("Opened database %s", path)
	return &Store{
		db:          db,
		persistence: autosave.NewUIPersistence(),
		tables:      make(map[string]map[string]autosave.FieldType),
	}, nil
}

// Close closes the database
func (s *Store) Close() error {
	return s.db.Close()
}

// EnsureTable creates table with a column per field, adding columns missing
// from an existing table
func (s *Store) EnsureTable(ctx context.Context, table string, columns map[string]autosave.FieldType) error {
	if !identifier.MatchString(table) {
		return fmt.Errorf("invalid table name %q", table)
	}
	names := sortedColumns(columns)
	for _, name := range names {
		if !identifier.MatchString(name) || name == "id" {
			return fmt.Errorf("invalid column name %q", name)
		}
	}

	defs := []string{"id TEXT NOT NULL PRIMARY KEY"}
	for _, name := range names {
		defs = append(defs, fmt.Sprintf("%s %s", name, columnType(columns[name])))
	}
	if _, err := s.db.ExecContext(ctx, fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", table, strings.Join(defs, ", "))); err != nil {
		return fmt.Errorf("failed to create table %s: %w", table, err)
	}

	existing, err := s.existingColumns(ctx, table)
	if err != nil {
		return err
	}
	for _, name := range names {
		if existing[name] {
			continue
		}
		if _, err := s.db.ExecContext(ctx, fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", table, name, columnType(columns[name]))); err != nil {
			return fmt.Errorf("failed to add column %s.%s: %w", table, name, err)
		}
		log.Infof("Added column %s.%s", table, name)
	}

	copied := make(map[string]autosave.FieldType, len(columns))
	for k, v := range columns {
		copied[k] = v
	}
	s.mu.Lock()
	s.tables[table] = copied
	s.mu.Unlock()
	return nil
}

func (s *Store) existingColumns(ctx context.Context, table string) (map[string]bool, error) {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return nil, fmt.Errorf("failed to inspect table %s: %w", table, err)
	}
	defer rows.Close()

	existing := make(map[string]bool)
	for rows.Next() {
		var (
			cid       int
			name      string
			colType   string
			notNull   int
			dfltValue sql.NullString
			pk        int
		)
		if err := rows.Scan(&cid, &name, &colType, &notNull, &dfltValue, &pk); err != nil {
			return nil, fmt.Errorf("failed to scan column of %s: %w", table, err)
		}
		existing[name] = true
	}
	return existing, rows.Err()
}

func (s *Store) columns(table string) (map[string]autosave.FieldType, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	columns, ok := s.tables[table]
	if !ok {
		return nil, fmt.Errorf("table %s has not been set up", table)
	}
	return columns, nil
}

// Create inserts a new record with a generated id
func (s *Store) Create(ctx context.Context, table string, values map[string]any) (*Record, error) {
	return s.insert(ctx, table, ulid.Make().String(), values)
}

func (s *Store) insert(ctx context.Context, table, id string, values map[string]any) (*Record, error) {
	columns, err := s.columns(table)
	if err != nil {
		return nil, err
	}

	rec := &Record{store: s, table: table, id: id, columns: columns, values: make(map[string]any)}
	for field, value := range values {
		if err := rec.Set(field, value); err != nil {
			return nil, err
		}
	}

	if _, err := s.db.ExecContext(ctx, fmt.Sprintf("INSERT INTO %s (id) VALUES (?)", table), id); err != nil {
		return nil, fmt.Errorf("failed to insert into %s: %w", table, err)
	}
	if err := rec.Save(ctx); err != nil {
		return nil, err
	}

	log.Debug("Created record", "table", table, "id", id)
	return rec, nil
}

// Load reads the record with id
func (s *Store) Load(ctx context.Context, table, id string) (*Record, error) {
	columns, err := s.columns(table)
	if err != nil {
		return nil, err
	}
	names := sortedColumns(columns)

	dest := make([]any, len(names))
	for i := range dest {
		dest[i] = new(any)
	}

	query := fmt.Sprintf("SELECT %s FROM %s WHERE id = ?", strings.Join(names, ", "), table)
	if err := s.db.QueryRowContext(ctx, query, id).Scan(dest...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s %s: %w", table, id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to load %s %s: %w", table, id, err)
	}

	rec := &Record{store: s, table: table, id: id, columns: columns, values: make(map[string]any, len(names))}
	for i, name := range names {
		value := *(dest[i].(*any))
		if b, ok := value.([]byte); ok {
			value = string(b)
		}
		rec.values[name] = value
	}
	return rec, nil
}

// FirstOrCreate loads the record with id, creating it from defaults when it
// does not exist
func (s *Store) FirstOrCreate(ctx context.Context, table, id string, defaults map[string]any) (*Record, error) {
	if !recordID.MatchString(id) {
		return nil, fmt.Errorf("invalid record id %q", id)
	}
	rec, err := s.Load(ctx, table, id)
	if err == nil {
		return rec, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	return s.insert(ctx, table, id, defaults)
}

// save writes every column of rec in canonical form
func (s *Store) save(ctx context.Context, rec *Record) error {
	names := sortedColumns(rec.columns)
	assignments := make([]string, 0, len(names))
	args := make([]any, 0, len(names)+1)

	for _, name := range names {
		c, err := s.persistence.Normalize(rec.columns[name], rec.values[name])
		if err != nil {
			return fmt.Errorf("failed to save %s.%s: %w", rec.table, name, err)
		}
		assignments = append(assignments, name+" = ?")
		if c.Null {
			args = append(args, nil)
		} else {
			args = append(args, c.Text)
		}
	}
	args = append(args, rec.id)

	query := fmt.Sprintf("UPDATE %s SET %s WHERE id = ?", rec.table, strings.Join(assignments, ", "))
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to save %s %s: %w", rec.table, rec.id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%s %s: %w", rec.table, rec.id, ErrNotFound)
	}
	return nil
}

func columnType(t autosave.FieldType) string {
	switch t {
	case autosave.TypeInteger, autosave.TypeBoolean:
		return "INTEGER"
	case autosave.TypeFloat:
		return "REAL"
	default:
		// temporal values stay TEXT so the driver does not turn them into time.Time
		return "TEXT"
	}
}

func sortedColumns(columns map[string]autosave.FieldType) []string {
	names := make([]string, 0, len(columns))
	for name := range columns {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
