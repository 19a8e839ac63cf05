// Package sqlite keeps an append-only journal of feedings in SQLite.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"math/rand"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	_ "modernc.org/sqlite"

	"github.com/bnema/petminion/internal/domain"
	"github.com/bnema/petminion/internal/ports"
)

const DefaultFileName = "journal.db"

type Journal struct {
	db *sql.DB

	mu      sync.Mutex
	entropy io.Reader
}

var _ ports.FeedingJournal = (*Journal)(nil)

// Open opens or creates the journal database at path.
func Open(path string) (*Journal, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create journal dir: %w", err)
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}

	j := &Journal{
		db:      db,
		entropy: ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0),
	}

	if err := j.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate journal: %w", err)
	}

	return j, nil
}

func (j *Journal) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS feedings (
		id         TEXT PRIMARY KEY,
		rule       TEXT NOT NULL,
		path       TEXT NOT NULL,
		portions   INTEGER NOT NULL,
		fed_today  INTEGER NOT NULL,
		fed_at     INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_feedings_fed_at ON feedings(fed_at DESC);
	`
	_, err := j.db.Exec(schema)
	return err
}

func (j *Journal) newID(at time.Time) (string, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	id, err := ulid.New(ulid.Timestamp(at), j.entropy)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// Record stores event and returns it with its assigned ID.
func (j *Journal) Record(ctx context.Context, event domain.FeedingEvent) (domain.FeedingEvent, error) {
	if event.FedAt.IsZero() {
		return domain.FeedingEvent{}, fmt.Errorf("record feeding: missing time")
	}

	id, err := j.newID(event.FedAt)
	if err != nil {
		return domain.FeedingEvent{}, fmt.Errorf("generate feeding id: %w", err)
	}
	event.ID = id

	_, err = j.db.ExecContext(ctx,
		`INSERT INTO feedings (id, rule, path, portions, fed_today, fed_at) VALUES (?, ?, ?, ?, ?, ?)`,
		event.ID, event.Rule, string(event.Path), event.Portions, event.FedToday, event.FedAt.UTC().UnixNano(),
	)
	if err != nil {
		return domain.FeedingEvent{}, fmt.Errorf("insert feeding: %w", err)
	}

	return event, nil
}

// Recent returns up to limit feedings, newest first.
func (j *Journal) Recent(ctx context.Context, limit int) ([]domain.FeedingEvent, error) {
	if limit <= 0 {
		return nil, nil
	}

	rows, err := j.db.QueryContext(ctx,
		`SELECT id, rule, path, portions, fed_today, fed_at FROM feedings ORDER BY fed_at DESC, id DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query feedings: %w", err)
	}
	defer rows.Close()

	var events []domain.FeedingEvent
	for rows.Next() {
		var (
			event domain.FeedingEvent
			path  string
			fedAt int64
		)
		if err := rows.Scan(&event.ID, &event.Rule, &path, &event.Portions, &event.FedToday, &fedAt); err != nil {
			return nil, fmt.Errorf("scan feeding: %w", err)
		}
		event.Path = domain.FeedingPath(path)
		event.FedAt = time.Unix(0, fedAt).UTC()
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate feedings: %w", err)
	}

	return events, nil
}

// PortionsSince totals portions dispensed at or after since.
func (j *Journal) PortionsSince(ctx context.Context, since time.Time) (int, error) {
	var total sql.NullInt64
	err := j.db.QueryRowContext(ctx,
		`SELECT SUM(portions) FROM feedings WHERE fed_at >= ?`, since.UTC().UnixNano(),
	).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("sum portions: %w", err)
	}
	return int(total.Int64), nil
}

func (j *Journal) Close() error {
	return j.db.Close()
}
