package persist

import (
	"context"
	"io/fs"
	"strings"
	"testing"
	"time"

	"github.com/birdhop/game/internal/config"
	"go.uber.org/zap/zaptest"
)

var (
	_ RunStore = (*RunRepo)(nil)
	_ RunStore = (*MemoryRuns)(nil)
)

func TestMemoryRunsRecent(t *testing.T) {
	m := NewMemoryRuns()
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	n := 0
	m.now = func() time.Time { n++; return base.Add(time.Duration(n) * time.Minute) }

	ctx := context.Background()
	for _, lv := range []string{"level_1", "level_2", "level_1"} {
		row := &RunRow{Level: lv, Seed: 42}
		if err := m.Save(ctx, row); err != nil {
			t.Fatal(err)
		}
		if row.ID == 0 || row.RecordedAt.IsZero() {
			t.Fatalf("saved row not filled in: %+v", row)
		}
	}
	got, err := m.Recent(ctx, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].ID != 3 || got[1].ID != 2 {
		t.Fatalf("recent = %+v, want ids 3 and 2", got)
	}
	all, _ := m.Recent(ctx, 10)
	if len(all) != 3 {
		t.Fatalf("recent(10) = %d rows, want 3", len(all))
	}
}

func TestRunSummary(t *testing.T) {
	row := &RunRow{Level: "level_1", Seed: 1234567, Ticks: 36000, Games: 12, Wins: 2, Losses: 10, Rescued: 17, Outcome: "game_over"}
	want := "level_1 seed 1,234,567: 36,000 ticks, 12 games (2 won, 10 lost), 17 birds rescued, last game_over"
	if got := row.Summary(); got != want {
		t.Fatalf("Summary() = %q\nwant %q", got, want)
	}
}

func TestOpenRejectsEmptyDSN(t *testing.T) {
	if _, err := Open(context.Background(), config.DatabaseConfig{Enabled: true}, zaptest.NewLogger(t)); err == nil {
		t.Fatal("Open with an empty dsn succeeded")
	}
}

func TestMigrationsEmbedded(t *testing.T) {
	names, err := fs.Glob(migrations, "migrations/*.sql")
	if err != nil || len(names) == 0 {
		t.Fatalf("migrations = %v, %v", names, err)
	}
	b, err := fs.ReadFile(migrations, names[0])
	if err != nil {
		t.Fatal(err)
	}
	if s := string(b); !strings.Contains(s, "-- +goose Up") || !strings.Contains(s, "CREATE TABLE runs") {
		t.Fatalf("%s lacks the runs table migration", names[0])
	}
}
