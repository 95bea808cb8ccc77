// Package store persists mileage log entries and the outgoing email log in
// a local SQLite database.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/mileagekit/mileage/internal/model"
)

const schema = `
CREATE TABLE IF NOT EXISTS log_entries (
	seq INTEGER PRIMARY KEY AUTOINCREMENT,
	id TEXT NOT NULL UNIQUE,
	owner TEXT NOT NULL,
	trip_date TEXT NOT NULL,
	start_location TEXT NOT NULL,
	end_location TEXT NOT NULL,
	business_purpose TEXT NOT NULL,
	start_odometer TEXT,
	end_odometer TEXT,
	total_miles TEXT NOT NULL,
	country TEXT NOT NULL DEFAULT 'US',
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_log_entries_owner ON log_entries(owner);

CREATE TABLE IF NOT EXISTS email_log (
	seq INTEGER PRIMARY KEY AUTOINCREMENT,
	id TEXT NOT NULL UNIQUE,
	recipient TEXT NOT NULL,
	kind TEXT NOT NULL,
	subject TEXT NOT NULL,
	status TEXT NOT NULL,
	error TEXT,
	sent_at TEXT NOT NULL
);
`

const dateFormat = "2006-01-02"

// Store is a SQLite-backed repository for log entries.
type Store struct {
	db     *sql.DB
	path   string
	logger *zap.Logger
}

// Open creates or opens the database at path and applies the schema.
func Open(path string, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating store directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing schema: %w", err)
	}

	logger.Debug("store opened", zap.String("path", path))
	return &Store{db: db, path: path, logger: logger}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// Create inserts an entry for owner.
func (s *Store) Create(ctx context.Context, owner string, e model.LogEntry) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO log_entries (id, owner, trip_date, start_location, end_location,
			business_purpose, start_odometer, end_odometer, total_miles, country)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, owner, e.Date.Format(dateFormat), e.StartLocation, e.EndLocation,
		e.BusinessPurpose, nullText(e.StartOdometer), nullText(e.EndOdometer),
		e.TotalMiles.String(), e.Country)
	if err != nil {
		return fmt.Errorf("inserting entry %s: %w", e.ID, err)
	}
	s.logger.Debug("entry stored", zap.String("owner", owner), zap.String("id", e.ID),
		zap.String("miles", e.TotalMiles.String()))
	return nil
}

// Delete removes one entry. Deleting an absent entry is not an error.
func (s *Store) Delete(ctx context.Context, owner, entryID string) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM log_entries WHERE owner = ? AND id = ?`, owner, entryID)
	if err != nil {
		return fmt.Errorf("deleting entry %s: %w", entryID, err)
	}
	s.logger.Debug("entry deleted", zap.String("owner", owner), zap.String("id", entryID), zap.Int64("rows", s.rowsAffected(res)))
	return nil
}

// DeleteAll removes every entry belonging to owner.
func (s *Store) DeleteAll(ctx context.Context, owner string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM log_entries WHERE owner = ?`, owner)
	if err != nil {
		return fmt.Errorf("clearing entries for %s: %w", owner, err)
	}
	s.logger.Info("log cleared", zap.String("owner", owner), zap.Int64("rows", s.rowsAffected(res)))
	return nil
}

// rowsAffected reports the row count of res for logging. It returns -1 when
// the driver cannot say.
func (s *Store) rowsAffected(res sql.Result) int64 {
	n, err := res.RowsAffected()
	if err != nil {
		s.logger.Warn("row count unavailable", zap.Error(err))
		return -1
	}
	return n
}

// List returns owner's entries in insertion order.
func (s *Store) List(ctx context.Context, owner string) ([]model.LogEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, trip_date, start_location, end_location, business_purpose,
			start_odometer, end_odometer, total_miles, country
		FROM log_entries WHERE owner = ? ORDER BY seq`, owner)
	if err != nil {
		return nil, fmt.Errorf("listing entries for %s: %w", owner, err)
	}
	defer rows.Close()

	var entries []model.LogEntry
	for rows.Next() {
		var (
			e                model.LogEntry
			tripDate, miles  string
			startOdo, endOdo sql.NullString
		)
		if err := rows.Scan(&e.ID, &tripDate, &e.StartLocation, &e.EndLocation,
			&e.BusinessPurpose, &startOdo, &endOdo, &miles, &e.Country); err != nil {
			return nil, fmt.Errorf("scanning entry: %w", err)
		}
		if e.Date, err = time.Parse(dateFormat, tripDate); err != nil {
			return nil, fmt.Errorf("entry %s: parsing date %q: %w", e.ID, tripDate, err)
		}
		if e.TotalMiles, err = decimal.NewFromString(miles); err != nil {
			return nil, fmt.Errorf("entry %s: parsing miles %q: %w", e.ID, miles, err)
		}
		if e.StartOdometer, err = parseNull(startOdo); err != nil {
			return nil, fmt.Errorf("entry %s: parsing start odometer: %w", e.ID, err)
		}
		if e.EndOdometer, err = parseNull(endOdo); err != nil {
			return nil, fmt.Errorf("entry %s: parsing end odometer: %w", e.ID, err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// RecordEmail appends to the email log.
func (s *Store) RecordEmail(ctx context.Context, r model.EmailRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO email_log (id, recipient, kind, subject, status, error, sent_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.Recipient, string(r.Kind), r.Subject, string(r.Status), r.Error,
		r.SentAt.UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("recording email %s: %w", r.ID, err)
	}
	return nil
}

// Emails returns the email log, oldest first.
func (s *Store) Emails(ctx context.Context) ([]model.EmailRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, recipient, kind, subject, status, COALESCE(error, ''), sent_at
		FROM email_log ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("listing emails: %w", err)
	}
	defer rows.Close()

	var out []model.EmailRecord
	for rows.Next() {
		var (
			r            model.EmailRecord
			kind, status string
			sentAt       string
		)
		if err := rows.Scan(&r.ID, &r.Recipient, &kind, &r.Subject, &status, &r.Error, &sentAt); err != nil {
			return nil, fmt.Errorf("scanning email: %w", err)
		}
		r.Kind = model.EmailKind(kind)
		r.Status = model.EmailStatus(status)
		if r.SentAt, err = time.Parse(time.RFC3339, sentAt); err != nil {
			return nil, fmt.Errorf("email %s: parsing sent_at: %w", r.ID, err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func nullText(d decimal.NullDecimal) sql.NullString {
	if !d.Valid {
		return sql.NullString{}
	}
	return sql.NullString{String: d.Decimal.String(), Valid: true}
}

func parseNull(s sql.NullString) (decimal.NullDecimal, error) {
	if !s.Valid {
		return decimal.NullDecimal{}, nil
	}
	d, err := decimal.NewFromString(s.String)
	if err != nil {
		return decimal.NullDecimal{}, err
	}
	return decimal.NewNullDecimal(d), nil
}
