package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/utakatalp/league-simulator/internal/config"
	"github.com/utakatalp/league-simulator/internal/league"
)

// ErrNoWeeksLeft is returned by SimulateNextWeek once every match is played.
var ErrNoWeeksLeft = errors.New("no more weeks to simulate")

// Random strengths for teams configured without one.
const (
	minStrength = 50
	maxStrength = 90
)

// Repository persists teams and matches.
type Repository interface {
	// ResetLeague atomically replaces all teams and matches: teams are
	// stored first, then fixtures(teams) provides the matches. Nothing
	// changes when any step fails.
	ResetLeague(ctx context.Context, teams []*league.Team, fixtures func([]*league.Team) ([]*league.Match, error)) error
	GetTeams(ctx context.Context) ([]*league.Team, error)
	ReplaceMatches(ctx context.Context, matches []*league.Match) error
	GetMatches(ctx context.Context) ([]*league.Match, error)
	UpdateMatches(ctx context.Context, matches []*league.Match) error
	ResetMatches(ctx context.Context) error
	NextUnplayedWeek(ctx context.Context) (int, bool, error)
	CountRemainingMatches(ctx context.Context, teamID int) (int, error)
}

// Cache stores the serialized league view.
type Cache interface {
	Get(ctx context.Context) ([]byte, bool, error)
	Set(ctx context.Context, data []byte) error
	Invalidate(ctx context.Context) error
}

// Data is the combined league view.
type Data struct {
	Matches     []*league.Match        `json:"matches"`
	Table       []*league.StandingsRow `json:"table"`
	Predictions []league.Prediction    `json:"predictions"`
}

// League runs a season on top of a Repository.
type League struct {
	repo   Repository
	cache  Cache
	sim    *league.Simulator
	rng    league.Source
	teams  []config.TeamConfig
	logger *logrus.Logger

	// writers change teams or results; readers build the cached view
	mu sync.RWMutex
}

type Option func(*League)

// WithCache enables the league view cache.
func WithCache(c Cache) Option {
	return func(l *League) { l.cache = c }
}

// WithSource makes both match simulation and initial strengths draw from
// src. src must not be shared with other goroutines.
func WithSource(src league.Source) Option {
	return func(l *League) {
		l.sim = league.NewSimulator(src)
		l.rng = src
	}
}

func New(repo Repository, teams []config.TeamConfig, logger *logrus.Logger, opts ...Option) *League {
	l := &League{
		repo:   repo,
		sim:    league.NewSimulator(nil),
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
		teams:  teams,
		logger: logger,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Initialize removes all teams and matches, creates the configured teams
// and generates their fixtures.
func (l *League) Initialize(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	defer l.invalidate(ctx)

	teams := make([]*league.Team, 0, len(l.teams))
	for _, tc := range l.teams {
		strength := tc.Strength
		if strength == 0 {
			strength = minStrength + l.rng.Intn(maxStrength-minStrength+1)
		}
		teams = append(teams, &league.Team{Name: tc.Name, Strength: strength})
	}
	var matches []*league.Match
	err := l.repo.ResetLeague(ctx, teams, func(stored []*league.Team) ([]*league.Match, error) {
		var err error
		matches, err = league.GenerateFullSeason(stored)
		if err != nil {
			return nil, fmt.Errorf("generating fixtures: %w", err)
		}
		return matches, nil
	})
	if err != nil {
		return err
	}
	l.logger.WithFields(logrus.Fields{
		"teams":   len(teams),
		"matches": len(matches),
	}).Info("league initialized")
	return nil
}

// GenerateFixtures replaces every match with a fresh double round-robin.
func (l *League) GenerateFixtures(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	defer l.invalidate(ctx)
	return l.generateFixtures(ctx)
}

func (l *League) generateFixtures(ctx context.Context) error {
	teams, err := l.repo.GetTeams(ctx)
	if err != nil {
		return err
	}
	matches, err := league.GenerateFullSeason(teams)
	if err != nil {
		return fmt.Errorf("generating fixtures: %w", err)
	}
	if err := l.repo.ReplaceMatches(ctx, matches); err != nil {
		return err
	}
	l.logger.WithFields(logrus.Fields{
		"teams":   len(teams),
		"matches": len(matches),
	}).Info("fixtures generated")
	return nil
}

// SimulateAll plays every unplayed match and returns how many were played.
func (l *League) SimulateAll(ctx context.Context) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.simulate(ctx, func(matches []*league.Match) []*league.Match {
		return l.sim.SimulateAll(matches)
	})
}

// SimulateWeek plays the unplayed matches of week.
func (l *League) SimulateWeek(ctx context.Context, week int) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.simulateWeek(ctx, week)
}

func (l *League) simulateWeek(ctx context.Context, week int) (int, error) {
	return l.simulate(ctx, func(matches []*league.Match) []*league.Match {
		return l.sim.SimulateWeek(matches, week)
	})
}

// SimulateNextWeek plays the earliest week that still has unplayed matches
// and returns it.
func (l *League) SimulateNextWeek(ctx context.Context) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	week, ok, err := l.repo.NextUnplayedWeek(ctx)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, ErrNoWeeksLeft
	}
	if _, err := l.simulateWeek(ctx, week); err != nil {
		return 0, err
	}
	return week, nil
}

// simulate runs with l.mu held for writing.
func (l *League) simulate(ctx context.Context, play func([]*league.Match) []*league.Match) (int, error) {
	matches, err := l.repo.GetMatches(ctx)
	if err != nil {
		return 0, err
	}
	played := play(matches)
	if len(played) == 0 {
		return 0, nil
	}
	defer l.invalidate(ctx)
	if err := l.repo.UpdateMatches(ctx, played); err != nil {
		return 0, err
	}
	for _, m := range played {
		l.logger.WithFields(logrus.Fields{
			"match": m.ID,
			"week":  m.Week,
		}).Debug(m.ScoreLine())
	}
	l.logger.WithField("matches", len(played)).Info("matches simulated")
	return len(played), nil
}

// Reset clears every result.
func (l *League) Reset(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	defer l.invalidate(ctx)

	if err := l.repo.ResetMatches(ctx); err != nil {
		return err
	}
	l.logger.Info("matches reset")
	return nil
}

func (l *League) Matches(ctx context.Context) ([]*league.Match, error) {
	return l.repo.GetMatches(ctx)
}

func (l *League) Table(ctx context.Context) ([]*league.StandingsRow, error) {
	teams, err := l.repo.GetTeams(ctx)
	if err != nil {
		return nil, err
	}
	matches, err := l.repo.GetMatches(ctx)
	if err != nil {
		return nil, err
	}
	return league.BuildTable(teams, matches), nil
}

// Predictions estimates championship chances. Every team has the same
// number of matches left, so it is counted once for the first team.
func (l *League) Predictions(ctx context.Context) ([]league.Prediction, error) {
	teams, err := l.repo.GetTeams(ctx)
	if err != nil {
		return nil, err
	}
	if len(teams) == 0 {
		return []league.Prediction{}, nil
	}
	remaining, err := l.repo.CountRemainingMatches(ctx, teams[0].ID)
	if err != nil {
		return nil, err
	}
	matches, err := l.repo.GetMatches(ctx)
	if err != nil {
		return nil, err
	}
	table := league.BuildTable(teams, matches)
	return league.PredictChampion(teams, table, remaining), nil
}

// Data returns matches, table and predictions together.
func (l *League) Data(ctx context.Context) (*Data, error) {
	matches, err := l.Matches(ctx)
	if err != nil {
		return nil, err
	}
	table, err := l.Table(ctx)
	if err != nil {
		return nil, err
	}
	preds, err := l.Predictions(ctx)
	if err != nil {
		return nil, err
	}
	if matches == nil {
		matches = []*league.Match{}
	}
	return &Data{Matches: matches, Table: table, Predictions: preds}, nil
}

// DataJSON returns the serialized league view, from the cache when one is
// configured and holds a fresh copy. Cache failures are logged and skipped.
// The read lock spans building and storing the copy, so a concurrent
// mutation cannot invalidate the cache between the two.
func (l *League) DataJSON(ctx context.Context) ([]byte, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if l.cache != nil {
		b, ok, err := l.cache.Get(ctx)
		switch {
		case err != nil:
			l.logger.WithError(err).Warn("league cache read failed")
		case ok:
			return b, nil
		}
	}

	data, err := l.Data(ctx)
	if err != nil {
		return nil, err
	}
	b, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("encoding league data: %w", err)
	}
	if l.cache != nil {
		if err := l.cache.Set(ctx, b); err != nil {
			l.logger.WithError(err).Warn("league cache write failed")
		}
	}
	return b, nil
}

// Odds runs a Monte Carlo estimate over the remaining matches.
// It takes the write lock since the simulator's source is not safe for
// concurrent use.
func (l *League) Odds(ctx context.Context, runs int) ([]league.Odds, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	teams, err := l.repo.GetTeams(ctx)
	if err != nil {
		return nil, err
	}
	matches, err := l.repo.GetMatches(ctx)
	if err != nil {
		return nil, err
	}
	return league.MonteCarloOdds(l.sim, teams, matches, runs)
}

func (l *League) invalidate(ctx context.Context) {
	if l.cache == nil {
		return
	}
	if err := l.cache.Invalidate(ctx); err != nil {
		l.logger.WithError(err).Warn("league cache invalidate failed")
	}
}
