package league

import (
	"errors"
	"fmt"
)

// ErrInvalidInput is returned for arguments the core cannot work with,
// such as an odd team count or a match a team plays against itself.
var ErrInvalidInput = errors.New("invalid input")

// Team represents a club in the league.
type Team struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	Strength int    `json:"strength"`
}

// Match represents a fixture between two teams. Scores are nil until the
// match has been played.
type Match struct {
	ID        int   `json:"id"`
	Home      *Team `json:"home_team"`
	Away      *Team `json:"away_team"`
	Week      int   `json:"week"`
	HomeScore *int  `json:"home_score"`
	AwayScore *int  `json:"away_score"`
	Played    bool  `json:"played"`
}

// StandingsRow holds the standings info for one team.
type StandingsRow struct {
	Team         *Team `json:"team"`
	Played       int   `json:"played"`
	Wins         int   `json:"wins"`
	Draws        int   `json:"draws"`
	Losses       int   `json:"losses"`
	GoalsFor     int   `json:"goals_for"`
	GoalsAgainst int   `json:"goals_against"`
	GoalDiff     int   `json:"goal_difference"`
	Points       int   `json:"points"`
	Position     int   `json:"position"`
}

// Prediction is a team's chance of winning the league, in whole percent.
type Prediction struct {
	Team        *Team `json:"team"`
	Probability int   `json:"probability"`
}

// SetScore records a final score and marks the match played.
func (m *Match) SetScore(home, away int) {
	m.HomeScore = &home
	m.AwayScore = &away
	m.Played = true
}

// Reset puts the match back to its unplayed state.
func (m *Match) Reset() {
	m.HomeScore = nil
	m.AwayScore = nil
	m.Played = false
}

// Clone returns a copy of m that shares its team pointers but not its scores.
func (m *Match) Clone() *Match {
	c := *m
	if m.HomeScore != nil {
		h := *m.HomeScore
		c.HomeScore = &h
	}
	if m.AwayScore != nil {
		a := *m.AwayScore
		c.AwayScore = &a
	}
	return &c
}

// ValidateMatch checks the structural invariants of a match record.
func ValidateMatch(m *Match) error {
	if m.Home == nil || m.Away == nil {
		return fmt.Errorf("match %d: missing team: %w", m.ID, ErrInvalidInput)
	}
	if m.Home.ID == m.Away.ID {
		return fmt.Errorf("match %d: team %d cannot play itself: %w", m.ID, m.Home.ID, ErrInvalidInput)
	}
	if m.Week < 1 {
		return fmt.Errorf("match %d: week %d must be positive: %w", m.ID, m.Week, ErrInvalidInput)
	}
	if (m.HomeScore == nil) != (m.AwayScore == nil) || (m.HomeScore != nil) != m.Played {
		return fmt.Errorf("match %d: scores inconsistent with played flag: %w", m.ID, ErrInvalidInput)
	}
	if m.Played && (*m.HomeScore < 0 || *m.AwayScore < 0) {
		return fmt.Errorf("match %d: negative score: %w", m.ID, ErrInvalidInput)
	}
	return nil
}
