package store

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
	"github.com/utakatalp/league-simulator/internal/league"
)

// Store wraps a Postgres connection and provides methods to persist and retrieve league data.
type Store struct {
	DB *sql.DB
}

// NewStore opens a Postgres connection using the given connection string.
func NewStore(ctx context.Context, connStr string) (*Store, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// verify early
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}
	return &Store{DB: db}, nil
}

// Close closes the underlying connection pool.
func (s *Store) Close() error {
	return s.DB.Close()
}

// Migrate creates the necessary tables if they do not exist.
func (s *Store) Migrate(ctx context.Context) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS teams (
		    id       SERIAL PRIMARY KEY,
		    name     TEXT NOT NULL UNIQUE,
		    strength INT  NOT NULL CHECK (strength BETWEEN 0 AND 100)
		);`,
		`CREATE TABLE IF NOT EXISTS matches (
		    id           SERIAL PRIMARY KEY,
		    week         INT NOT NULL CHECK (week > 0),
		    home_team_id INT NOT NULL REFERENCES teams(id) ON DELETE CASCADE,
		    away_team_id INT NOT NULL REFERENCES teams(id) ON DELETE CASCADE,
		    home_score   INT CHECK (home_score >= 0),
		    away_score   INT CHECK (away_score >= 0),
		    played       BOOLEAN NOT NULL DEFAULT FALSE,
		    CHECK (home_team_id <> away_team_id)
		);`,
		`CREATE INDEX IF NOT EXISTS matches_week_played ON matches (week, played);`,
	}
	for _, q := range queries {
		if _, err := s.DB.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("migrating: %w", err)
		}
	}
	return nil
}

// ResetLeague replaces every team and match in one transaction. teams get
// their IDs first, then fixtures builds the matches for them. On any error
// the previous league is left untouched.
func (s *Store) ResetLeague(ctx context.Context, teams []*league.Team, fixtures func([]*league.Team) ([]*league.Match, error)) error {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin ResetLeague tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM matches`); err != nil {
		return fmt.Errorf("deleting matches: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM teams`); err != nil {
		return fmt.Errorf("deleting teams: %w", err)
	}
	if err := insertTeams(ctx, tx, teams); err != nil {
		return err
	}
	matches, err := fixtures(teams)
	if err != nil {
		return err
	}
	if err := insertMatches(ctx, tx, matches); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit ResetLeague tx: %w", err)
	}
	return nil
}

// GetTeams loads every team in insertion order.
func (s *Store) GetTeams(ctx context.Context) ([]*league.Team, error) {
	const q = `SELECT id, name, strength FROM teams ORDER BY id`

	rows, err := s.DB.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("querying teams: %w", err)
	}
	defer rows.Close()

	var teams []*league.Team
	for rows.Next() {
		t := &league.Team{}
		if err := rows.Scan(&t.ID, &t.Name, &t.Strength); err != nil {
			return nil, fmt.Errorf("scanning team row: %w", err)
		}
		teams = append(teams, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating teams rows: %w", err)
	}
	return teams, nil
}

// ReplaceMatches deletes every match and inserts the given ones in a single
// transaction, filling in their IDs.
func (s *Store) ReplaceMatches(ctx context.Context, matches []*league.Match) error {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin ReplaceMatches tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM matches`); err != nil {
		return fmt.Errorf("deleting matches: %w", err)
	}
	if err := insertMatches(ctx, tx, matches); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit ReplaceMatches tx: %w", err)
	}
	return nil
}

// GetMatches loads every match with its teams, ordered by week.
func (s *Store) GetMatches(ctx context.Context) ([]*league.Match, error) {
	const q = `
SELECT m.id, m.week, m.home_score, m.away_score, m.played,
       h.id, h.name, h.strength,
       a.id, a.name, a.strength
FROM matches m
JOIN teams h ON h.id = m.home_team_id
JOIN teams a ON a.id = m.away_team_id
ORDER BY m.week, m.id
`
	rows, err := s.DB.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("querying matches: %w", err)
	}
	defer rows.Close()

	teams := make(map[int]*league.Team)
	team := func(t league.Team) *league.Team {
		if known, ok := teams[t.ID]; ok {
			return known
		}
		teams[t.ID] = &t
		return &t
	}

	var matches []*league.Match
	for rows.Next() {
		var (
			m                    league.Match
			homeScore, awayScore sql.NullInt64
			home, away           league.Team
		)
		if err := rows.Scan(
			&m.ID, &m.Week, &homeScore, &awayScore, &m.Played,
			&home.ID, &home.Name, &home.Strength,
			&away.ID, &away.Name, &away.Strength,
		); err != nil {
			return nil, fmt.Errorf("scanning match: %w", err)
		}
		m.HomeScore = scorePtr(homeScore)
		m.AwayScore = scorePtr(awayScore)
		m.Home = team(home)
		m.Away = team(away)
		matches = append(matches, &m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating match rows: %w", err)
	}
	return matches, nil
}

// UpdateMatches writes the result fields of matches in one transaction.
func (s *Store) UpdateMatches(ctx context.Context, matches []*league.Match) error {
	if len(matches) == 0 {
		return nil
	}
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin UpdateMatches tx: %w", err)
	}
	defer tx.Rollback()

	const q = `UPDATE matches SET home_score = $1, away_score = $2, played = $3 WHERE id = $4`
	for _, m := range matches {
		if _, err := tx.ExecContext(ctx, q, nullScore(m.HomeScore), nullScore(m.AwayScore), m.Played, m.ID); err != nil {
			return fmt.Errorf("updating match %d: %w", m.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit UpdateMatches tx: %w", err)
	}
	return nil
}

// ResetMatches clears every result.
func (s *Store) ResetMatches(ctx context.Context) error {
	_, err := s.DB.ExecContext(ctx, `UPDATE matches SET home_score = NULL, away_score = NULL, played = FALSE`)
	if err != nil {
		return fmt.Errorf("resetting matches: %w", err)
	}
	return nil
}

// NextUnplayedWeek returns the lowest week with an unplayed match; ok is
// false when every match has been played.
func (s *Store) NextUnplayedWeek(ctx context.Context) (week int, ok bool, err error) {
	var w sql.NullInt64
	if err := s.DB.QueryRowContext(ctx, `SELECT MIN(week) FROM matches WHERE NOT played`).Scan(&w); err != nil {
		return 0, false, fmt.Errorf("finding next week: %w", err)
	}
	return int(w.Int64), w.Valid, nil
}

// CountRemainingMatches counts the unplayed matches teamID takes part in.
func (s *Store) CountRemainingMatches(ctx context.Context, teamID int) (int, error) {
	const q = `
SELECT COUNT(*) FROM matches
WHERE NOT played AND (home_team_id = $1 OR away_team_id = $1)
`
	var n int
	if err := s.DB.QueryRowContext(ctx, q, teamID).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting remaining matches for team %d: %w", teamID, err)
	}
	return n, nil
}

func insertTeams(ctx context.Context, tx *sql.Tx, teams []*league.Team) error {
	const q = `INSERT INTO teams (name, strength) VALUES ($1, $2) RETURNING id`
	for _, t := range teams {
		if err := tx.QueryRowContext(ctx, q, t.Name, t.Strength).Scan(&t.ID); err != nil {
			return fmt.Errorf("inserting team %s: %w", t.Name, err)
		}
	}
	return nil
}

func insertMatches(ctx context.Context, tx *sql.Tx, matches []*league.Match) error {
	const q = `
INSERT INTO matches (week, home_team_id, away_team_id, home_score, away_score, played)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING id
`
	for _, m := range matches {
		err := tx.QueryRowContext(ctx, q,
			m.Week, m.Home.ID, m.Away.ID,
			nullScore(m.HomeScore), nullScore(m.AwayScore), m.Played,
		).Scan(&m.ID)
		if err != nil {
			return fmt.Errorf("saving match week %d %d-%d: %w", m.Week, m.Home.ID, m.Away.ID, err)
		}
	}
	return nil
}

func nullScore(score *int) sql.NullInt64 {
	if score == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*score), Valid: true}
}

func scorePtr(n sql.NullInt64) *int {
	if !n.Valid {
		return nil
	}
	v := int(n.Int64)
	return &v
}
