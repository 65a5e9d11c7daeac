// Package database provides database connection management, migrations, and
// data access for the academy registry: the content-addressed record store,
// the append-only event outbox, and user accounts.
package database

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/takeyourtokenapp/tyt.app/internal/config"
	"github.com/takeyourtokenapp/tyt.app/internal/database/models"

	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Sentinel errors for record-store operations.
var (
	// ErrRecordExists is returned when a record is created at an occupied
	// address. It realizes the allocator-level uniqueness guarantee.
	ErrRecordExists = errors.New("record already exists at address")

	// ErrRecordNotFound is returned when no record lives at an address.
	ErrRecordNotFound = errors.New("record not found")
)

// Database represents the database connection and operations
type Database struct {
	db     *sql.DB
	dbType string
}

// New creates a new database connection
func New(cfg *config.Config) (*Database, error) {
	var db *sql.DB
	var err error

	switch cfg.Database.Type {
	case "sqlite":
		db, err = sql.Open("sqlite3", cfg.Database.SQLite.Path+"?_foreign_keys=on")
		if err != nil {
			return nil, fmt.Errorf("failed to open SQLite database: %w", err)
		}
		// SQLite only allows one writer at a time
		db.SetMaxOpenConns(1)
	case "postgres":
		db, err = sql.Open("postgres", cfg.GetDSN())
		if err != nil {
			return nil, fmt.Errorf("failed to open PostgreSQL database: %w", err)
		}
		db.SetMaxOpenConns(cfg.Database.Postgres.MaxOpenConns)
		db.SetMaxIdleConns(cfg.Database.Postgres.MaxIdleConns)
	default:
		return nil, fmt.Errorf("unsupported database type: %s", cfg.Database.Type)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Database{
		db:     db,
		dbType: cfg.Database.Type,
	}, nil
}

// Close closes the database connection
func (d *Database) Close() error {
	return d.db.Close()
}

// Migrate runs database migrations
func (d *Database) Migrate() error {
	var migrationFiles []string
	if d.dbType == "postgres" {
		migrationFiles = []string{
			"migrations/000001_init_schema.postgres.up.sql",
		}
	} else {
		migrationFiles = []string{
			"migrations/000001_init_schema.up.sql",
		}
	}

	for _, migrationFile := range migrationFiles {
		content, err := migrationsFS.ReadFile(migrationFile)
		if err != nil {
			return fmt.Errorf("failed to read migration file %s: %w", migrationFile, err)
		}

		// Remove comments and split into statements
		var statements []string
		lines := strings.Split(string(content), "\n")
		var currentStmt strings.Builder

		for _, line := range lines {
			line = strings.TrimSpace(line)
			if strings.HasPrefix(line, "--") || line == "" {
				continue
			}

			currentStmt.WriteString(line)
			currentStmt.WriteString("\n")

			if strings.HasSuffix(line, ";") {
				stmt := strings.TrimSpace(currentStmt.String())
				if stmt != "" {
					statements = append(statements, stmt)
				}
				currentStmt.Reset()
			}
		}

		for _, stmt := range statements {
			if _, err := d.db.Exec(stmt); err != nil {
				if !strings.Contains(err.Error(), "already exists") {
					return fmt.Errorf("migration %s failed: %w\nStatement: %s", migrationFile, err, stmt)
				}
			}
		}
	}

	return nil
}

// DB returns the underlying database connection for direct queries
func (d *Database) DB() *sql.DB {
	return d.db
}

// WithTx runs fn inside a transaction. The transaction is rolled back if fn
// returns an error and committed otherwise; registry operations rely on this
// so that state changes and outbox events become visible together.
func (d *Database) WithTx(fn func(tx *sql.Tx) error) error {
	tx, err := d.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("rollback failed: %v (original error: %w)", rbErr, err)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// isUniqueViolation reports whether err is a primary-key or unique-constraint
// violation from either supported driver.
func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code == sqlite3.ErrConstraint
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return false
}

// Record store operations

// GetRecord retrieves the record stored at an address.
func (d *Database) GetRecord(address []byte) (*models.Record, error) {
	query := `SELECT address, kind, bump, data, created_at, updated_at FROM records WHERE address = ?`
	if d.dbType == "postgres" {
		query = `SELECT address, kind, bump, data, created_at, updated_at FROM records WHERE address = $1`
	}

	var rec models.Record
	err := d.db.QueryRow(query, address).Scan(
		&rec.Address, &rec.Kind, &rec.Bump, &rec.Data, &rec.CreatedAt, &rec.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrRecordNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// GetRecordForUpdateTx retrieves the record stored at an address and locks
// the row for the rest of the transaction. Read-modify-write cycles (issuance
// counters, authority rotation, revocation flags) must use this so two
// transactions cannot both read the same record state and overwrite each
// other's commit. SQLite serializes all writers on its single connection, so
// the plain query suffices there; PostgreSQL needs the explicit row lock.
func (d *Database) GetRecordForUpdateTx(tx *sql.Tx, address []byte) (*models.Record, error) {
	query := `SELECT address, kind, bump, data, created_at, updated_at FROM records WHERE address = ?`
	if d.dbType == "postgres" {
		query = `SELECT address, kind, bump, data, created_at, updated_at FROM records WHERE address = $1 FOR UPDATE`
	}

	var rec models.Record
	err := tx.QueryRow(query, address).Scan(
		&rec.Address, &rec.Kind, &rec.Bump, &rec.Data, &rec.CreatedAt, &rec.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrRecordNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// CreateRecordTx allocates a new record. Returns ErrRecordExists if the
// address is already occupied.
func (d *Database) CreateRecordTx(tx *sql.Tx, rec *models.Record) error {
	query := `INSERT INTO records (address, kind, bump, data, created_at, updated_at)
	          VALUES (?, ?, ?, ?, ?, ?)`
	if d.dbType == "postgres" {
		query = `INSERT INTO records (address, kind, bump, data, created_at, updated_at)
		         VALUES ($1, $2, $3, $4, $5, $6)`
	}

	_, err := tx.Exec(query, rec.Address, rec.Kind, rec.Bump, rec.Data, rec.CreatedAt, rec.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrRecordExists
		}
		return err
	}
	return nil
}

// UpdateRecordDataTx replaces the binary data of an existing record.
func (d *Database) UpdateRecordDataTx(tx *sql.Tx, address, data []byte, updatedAt time.Time) error {
	query := `UPDATE records SET data = ?, updated_at = ? WHERE address = ?`
	if d.dbType == "postgres" {
		query = `UPDATE records SET data = $1, updated_at = $2 WHERE address = $3`
	}

	result, err := tx.Exec(query, data, updatedAt, address)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return ErrRecordNotFound
	}
	return nil
}

// DeleteRecordTx destroys the record at an address, making the address
// available for allocation again.
func (d *Database) DeleteRecordTx(tx *sql.Tx, address []byte) error {
	query := `DELETE FROM records WHERE address = ?`
	if d.dbType == "postgres" {
		query = `DELETE FROM records WHERE address = $1`
	}

	result, err := tx.Exec(query, address)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return ErrRecordNotFound
	}
	return nil
}

// Event outbox operations

// AppendEventTx appends an event to the outbox within a transaction, so the
// event becomes visible exactly when the state change it describes commits.
func (d *Database) AppendEventTx(tx *sql.Tx, eventType string, payload []byte, emittedAt time.Time) error {
	query := `INSERT INTO events (event_type, payload, emitted_at) VALUES (?, ?, ?)`
	if d.dbType == "postgres" {
		query = `INSERT INTO events (event_type, payload, emitted_at) VALUES ($1, $2, $3)`
	}

	_, err := tx.Exec(query, eventType, string(payload), emittedAt)
	return err
}

// ListEvents returns up to limit events with id greater than afterID, in id
// order. Indexers poll this with a cursor.
func (d *Database) ListEvents(afterID int64, limit int) ([]*models.Event, error) {
	query := `SELECT id, event_type, payload, emitted_at FROM events WHERE id > ? ORDER BY id ASC LIMIT ?`
	if d.dbType == "postgres" {
		query = `SELECT id, event_type, payload, emitted_at FROM events WHERE id > $1 ORDER BY id ASC LIMIT $2`
	}

	rows, err := d.db.Query(query, afterID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []*models.Event
	for rows.Next() {
		var ev models.Event
		if err := rows.Scan(&ev.ID, &ev.Type, &ev.Payload, &ev.EmittedAt); err != nil {
			return nil, err
		}
		events = append(events, &ev)
	}

	return events, rows.Err()
}

// User operations

// CreateUser creates a new user
func (d *Database) CreateUser(user *models.User) error {
	query := `INSERT INTO users (id, username, password_hash, identity, created_at)
	          VALUES (?, ?, ?, ?, ?)`
	if d.dbType == "postgres" {
		query = `INSERT INTO users (id, username, password_hash, identity, created_at)
		         VALUES ($1, $2, $3, $4, $5)`
	}

	_, err := d.db.Exec(query, user.ID, user.Username, user.PasswordHash, user.Identity, user.CreatedAt)
	if err != nil && isUniqueViolation(err) {
		return fmt.Errorf("username or identity already registered")
	}
	return err
}

// GetUserByUsername retrieves a user by username
func (d *Database) GetUserByUsername(username string) (*models.User, error) {
	query := `SELECT id, username, password_hash, identity, created_at FROM users WHERE username = ?`
	if d.dbType == "postgres" {
		query = `SELECT id, username, password_hash, identity, created_at FROM users WHERE username = $1`
	}

	var user models.User
	err := d.db.QueryRow(query, username).Scan(
		&user.ID, &user.Username, &user.PasswordHash, &user.Identity, &user.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &user, nil
}
