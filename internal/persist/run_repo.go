package persist

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// RunRow is one finished headless run.
type RunRow struct {
	ID         int64
	Seed       uint64
	Level      string
	Ticks      uint64
	Games      int
	Wins       int
	Losses     int
	Rescued    int
	Outcome    string // outcome of the last game
	Digest     string // hex blake2b-256 of the final world
	RecordedAt time.Time
}

// Summary is a one-line human readable form of the row.
func (r *RunRow) Summary() string {
	p := message.NewPrinter(language.English)
	return p.Sprintf("%s seed %d: %d ticks, %d games (%d won, %d lost), %d birds rescued, last %s",
		r.Level, r.Seed, r.Ticks, r.Games, r.Wins, r.Losses, r.Rescued, r.Outcome)
}

// RunStore saves and lists runs.
type RunStore interface {
	Save(ctx context.Context, row *RunRow) error
	Recent(ctx context.Context, limit int) ([]RunRow, error)
}

type RunRepo struct {
	db *DB
}

func NewRunRepo(db *DB) *RunRepo {
	return &RunRepo{db: db}
}

// Save inserts row and fills in its ID and RecordedAt. The seed is stored
// bit for bit in a signed BIGINT.
func (r *RunRepo) Save(ctx context.Context, row *RunRow) error {
	err := r.db.Pool.QueryRow(ctx,
		`INSERT INTO runs (seed, level, ticks, games, wins, losses, rescued, outcome, digest)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING id, recorded_at`,
		int64(row.Seed), row.Level, int64(row.Ticks), row.Games, row.Wins, row.Losses,
		row.Rescued, row.Outcome, row.Digest,
	).Scan(&row.ID, &row.RecordedAt)
	if err != nil {
		return fmt.Errorf("save run: %w", err)
	}
	return nil
}

// Recent returns up to limit runs, newest first.
func (r *RunRepo) Recent(ctx context.Context, limit int) ([]RunRow, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT id, seed, level, ticks, games, wins, losses, rescued, outcome, digest, recorded_at
		 FROM runs ORDER BY recorded_at DESC, id DESC LIMIT $1`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var out []RunRow
	for rows.Next() {
		var row RunRow
		var seed, ticks int64
		if err := rows.Scan(
			&row.ID, &seed, &row.Level, &ticks, &row.Games, &row.Wins, &row.Losses,
			&row.Rescued, &row.Outcome, &row.Digest, &row.RecordedAt,
		); err != nil {
			return nil, err
		}
		row.Seed, row.Ticks = uint64(seed), uint64(ticks)
		out = append(out, row)
	}
	return out, rows.Err()
}

// MemoryRuns is a RunStore kept in process memory, used when the database
// is disabled.
type MemoryRuns struct {
	mu   sync.Mutex
	rows []RunRow
	now  func() time.Time
}

func NewMemoryRuns() *MemoryRuns {
	return &MemoryRuns{now: time.Now}
}

func (m *MemoryRuns) Save(_ context.Context, row *RunRow) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	row.ID = int64(len(m.rows) + 1)
	row.RecordedAt = m.now()
	m.rows = append(m.rows, *row)
	return nil
}

func (m *MemoryRuns) Recent(_ context.Context, limit int) ([]RunRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := slices.Clone(m.rows)
	slices.Reverse(out)
	if limit >= 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
