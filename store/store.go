// Package store keeps tracking reports in sqlite, keyed by session identifier.
package store

import (
	"context"
	"database/sql"
	"embed"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	_ "modernc.org/sqlite"

	"github.com/LdDl/vehicletrack/session"
)

//go:embed migrations/*.sql
var migrations embed.FS

// ErrNotFound is returned when there is no report for the session
var ErrNotFound = errors.New("report not found")

// Store is sqlite-backed report storage. It is safe for concurrent use.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) database at path and migrates it to the latest schema
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrapf(err, "can't open database %s", path)
	}
	// sqlite allows a single writer
	db.SetMaxOpenConns(1)
	s := &Store{db: db}
	if err := s.migrateUp(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) migrateUp() error {
	source, err := iofs.New(migrations, "migrations")
	if err != nil {
		return errors.Wrap(err, "can't read migrations")
	}
	driver, err := sqlite.WithInstance(s.db, &sqlite.Config{})
	if err != nil {
		return errors.Wrap(err, "can't create sqlite driver")
	}
	// Note: m is not closed because it would close the underlying DB connection
	m, err := migrate.NewWithInstance("iofs", source, "sqlite", driver)
	if err != nil {
		return errors.Wrap(err, "can't create migrate instance")
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return errors.Wrap(err, "migration up failed")
	}
	return nil
}

// Close closes database
func (s *Store) Close() error {
	return s.db.Close()
}

// Save stores report of the session, replacing previous one
func (s *Store) Save(ctx context.Context, id uuid.UUID, report *session.Report) error {
	data, err := report.MarshalJSON()
	if err != nil {
		return errors.Wrap(err, "can't encode report")
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO sessions (id, created_at, frame_count, report) VALUES (?, ?, ?, ?)`,
		id.String(), time.Now().UnixNano(), report.Len(), string(data),
	)
	if err != nil {
		return errors.Wrapf(err, "can't save report %s", id)
	}
	return nil
}

// Load returns report of the session
func (s *Store) Load(ctx context.Context, id uuid.UUID) (*session.Report, error) {
	var data string
	err := s.db.QueryRowContext(ctx, `SELECT report FROM sessions WHERE id = ?`, id.String()).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errors.Wrapf(ErrNotFound, "session %s", id)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "can't load report %s", id)
	}
	report := session.NewReport()
	if err := report.UnmarshalJSON([]byte(data)); err != nil {
		return nil, errors.Wrapf(err, "stored report %s is broken", id)
	}
	return report, nil
}

// Summary is a short description of a stored report
type Summary struct {
	ID         uuid.UUID `json:"id"`
	CreatedAt  time.Time `json:"created_at"`
	FrameCount int       `json:"frame_count"`
}

// List returns summaries of stored reports, newest first
func (s *Store) List(ctx context.Context) ([]Summary, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, created_at, frame_count FROM sessions ORDER BY created_at DESC`)
	if err != nil {
		return nil, errors.Wrap(err, "can't list reports")
	}
	defer rows.Close()
	summaries := make([]Summary, 0)
	for rows.Next() {
		var (
			rawID     string
			createdAt int64
			summary   Summary
		)
		if err := rows.Scan(&rawID, &createdAt, &summary.FrameCount); err != nil {
			return nil, errors.Wrap(err, "can't scan report summary")
		}
		summary.ID, err = uuid.Parse(rawID)
		if err != nil {
			return nil, errors.Wrapf(err, "bad session id %q", rawID)
		}
		summary.CreatedAt = time.Unix(0, createdAt).UTC()
		summaries = append(summaries, summary)
	}
	return summaries, errors.Wrap(rows.Err(), "can't iterate report summaries")
}
