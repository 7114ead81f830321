// Package store handles SQLite persistence.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/verte-zerg/spirecurve/internal/model"

	_ "modernc.org/sqlite" // SQLite driver.
)

// Store wraps SQLite access for the run archive.
type Store struct {
	db *sql.DB
}

// RunFilter narrows ListRuns. Zero values match everything.
type RunFilter struct {
	Character model.Character
	Since     *time.Time
}

// Open opens or creates the SQLite database and applies migrations.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		if cerr := db.Close(); cerr != nil {
			// Best-effort close on migration failure.
			_ = cerr
		}
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			local_time TEXT NOT NULL,
			played_unix INTEGER NOT NULL,
			playtime_seconds INTEGER NOT NULL,
			ascension_level INTEGER NOT NULL,
			character TEXT NOT NULL,
			floor_reached INTEGER NOT NULL,
			victory INTEGER NOT NULL,
			victory_field INTEGER,
			deck_size INTEGER NOT NULL,
			max_hp INTEGER NOT NULL,
			is_daily INTEGER NOT NULL,
			killed_by TEXT NOT NULL,
			seed TEXT NOT NULL,
			imported_at TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_runs_played_unix ON runs(played_unix);`,
		`CREATE INDEX IF NOT EXISTS idx_runs_character ON runs(character);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// InsertRuns stores normalized runs, ignoring ids already present. It returns
// the number of rows actually added.
func (s *Store) InsertRuns(ctx context.Context, records []model.RunRecord) (added int, err error) {
	if len(records) == 0 {
		return 0, nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() {
		if err != nil {
			if rerr := tx.Rollback(); rerr != nil {
				// Best-effort rollback.
				_ = rerr
			}
		}
	}()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO runs (id, local_time, played_unix, playtime_seconds, ascension_level, character, floor_reached, victory, victory_field, deck_size, max_hp, is_daily, killed_by, seed, imported_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO NOTHING`)
	if err != nil {
		return 0, err
	}
	defer func() {
		if cerr := stmt.Close(); cerr != nil {
			// Best-effort statement close.
			_ = cerr
		}
	}()

	importedAt := time.Now().Format(time.RFC3339Nano)
	for _, rec := range records {
		if rec.ID == "" {
			return 0, fmt.Errorf("run at %s has no id", rec.Timestamp.Format(time.RFC3339))
		}
		res, err := stmt.ExecContext(ctx,
			rec.ID,
			rec.Timestamp.Format(time.RFC3339Nano),
			rec.Timestamp.Unix(),
			rec.PlaytimeSeconds,
			rec.AscensionLevel,
			string(rec.Character),
			rec.FloorReached,
			rec.Victory,
			nullBool(rec.VictoryField),
			rec.DeckSize,
			rec.MaxHP,
			rec.IsDaily,
			rec.KilledBy,
			rec.Seed,
			importedAt,
		)
		if err != nil {
			return 0, err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, err
		}
		added += int(n)
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return added, nil
}

func nullBool(v *bool) sql.NullBool {
	if v == nil {
		return sql.NullBool{}
	}
	return sql.NullBool{Bool: *v, Valid: true}
}

// ListRuns returns archived runs in chronological order. Victory holds the
// flag derived at import time; callers re-derive it from VictoryField and
// FloorReached under their own settings.
func (s *Store) ListRuns(ctx context.Context, filter RunFilter) ([]model.RunRecord, error) {
	clauses := []string{"1=1"}
	args := []any{}
	if filter.Character != "" && filter.Character != model.AllChars {
		clauses = append(clauses, "character = ?")
		args = append(args, string(filter.Character))
	}
	if filter.Since != nil {
		clauses = append(clauses, "played_unix >= ?")
		args = append(args, filter.Since.Unix())
	}
	query := fmt.Sprintf(`SELECT id, local_time, playtime_seconds, ascension_level, character, floor_reached, victory, victory_field, deck_size, max_hp, is_daily, killed_by, seed
		FROM runs
		WHERE %s
		ORDER BY played_unix ASC, id ASC`, strings.Join(clauses, " AND "))
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var records []model.RunRecord
	for rows.Next() {
		var rec model.RunRecord
		var localTime, character string
		var victoryField sql.NullBool
		if err := rows.Scan(&rec.ID, &localTime, &rec.PlaytimeSeconds, &rec.AscensionLevel, &character,
			&rec.FloorReached, &rec.Victory, &victoryField, &rec.DeckSize, &rec.MaxHP, &rec.IsDaily, &rec.KilledBy, &rec.Seed); err != nil {
			return nil, err
		}
		parsed, err := time.Parse(time.RFC3339Nano, localTime)
		if err != nil {
			return nil, err
		}
		rec.Timestamp = parsed
		rec.Character = model.Character(character)
		if victoryField.Valid {
			v := victoryField.Bool
			rec.VictoryField = &v
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

// CountRuns returns the number of archived runs.
func (s *Store) CountRuns(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM runs`).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}
