package service

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/utakatalp/league-simulator/internal/config"
	"github.com/utakatalp/league-simulator/internal/league"
)

// memRepo is an in-memory Repository. It hands out copies so that only
// UpdateMatches makes results stick.
type memRepo struct {
	teams   []*league.Team
	matches []*league.Match
	nextID  int

	failUpdate error
	failReset  error
	updates    int
}

func (r *memRepo) id() int {
	r.nextID++
	return r.nextID
}

// ResetLeague keeps the previous league unless every step succeeds.
// failReset fails it after the fixtures are built.
func (r *memRepo) ResetLeague(_ context.Context, teams []*league.Team, fixtures func([]*league.Team) ([]*league.Match, error)) error {
	next := r.nextID
	stored := make([]*league.Team, 0, len(teams))
	for _, t := range teams {
		next++
		t.ID = next
		c := *t
		stored = append(stored, &c)
	}
	matches, err := fixtures(teams)
	if err != nil {
		return err
	}
	if r.failReset != nil {
		return r.failReset
	}
	var saved []*league.Match
	for _, m := range matches {
		next++
		m.ID = next
		saved = append(saved, m.Clone())
	}
	r.teams, r.matches, r.nextID = stored, saved, next
	return nil
}

func (r *memRepo) GetTeams(context.Context) ([]*league.Team, error) {
	out := make([]*league.Team, len(r.teams))
	for i, t := range r.teams {
		c := *t
		out[i] = &c
	}
	return out, nil
}

func (r *memRepo) ReplaceMatches(_ context.Context, matches []*league.Match) error {
	r.matches = nil
	for _, m := range matches {
		m.ID = r.id()
		r.matches = append(r.matches, m.Clone())
	}
	return nil
}

func (r *memRepo) GetMatches(context.Context) ([]*league.Match, error) {
	var out []*league.Match
	for _, m := range r.matches {
		out = append(out, m.Clone())
	}
	return out, nil
}

func (r *memRepo) UpdateMatches(_ context.Context, matches []*league.Match) error {
	if r.failUpdate != nil {
		return r.failUpdate
	}
	r.updates++
	for _, m := range matches {
		for i, stored := range r.matches {
			if stored.ID == m.ID {
				r.matches[i] = m.Clone()
			}
		}
	}
	return nil
}

func (r *memRepo) ResetMatches(_ context.Context) error {
	league.ResetMatches(r.matches)
	return nil
}

func (r *memRepo) NextUnplayedWeek(context.Context) (int, bool, error) {
	week, ok := league.UnplayedWeek(r.matches)
	return week, ok, nil
}

func (r *memRepo) CountRemainingMatches(_ context.Context, teamID int) (int, error) {
	return league.RemainingMatches(r.matches, teamID), nil
}

type memCache struct {
	data        []byte
	gets, sets  int
	invalidated int
}

func (c *memCache) Get(context.Context) ([]byte, bool, error) {
	c.gets++
	return c.data, c.data != nil, nil
}

func (c *memCache) Set(_ context.Context, data []byte) error {
	c.sets++
	c.data = data
	return nil
}

func (c *memCache) Invalidate(context.Context) error {
	c.invalidated++
	c.data = nil
	return nil
}

var clubs = []config.TeamConfig{
	{Name: "Liverpool"},
	{Name: "Manchester City", Strength: 88},
	{Name: "Chelsea"},
	{Name: "Arsenal"},
}

func newLeague(t *testing.T, opts ...Option) (*League, *memRepo, *test.Hook) {
	t.Helper()
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	repo := &memRepo{}
	opts = append([]Option{WithSource(rand.New(rand.NewSource(42)))}, opts...)
	l := New(repo, clubs, logger, opts...)
	require.NoError(t, l.Initialize(context.Background()))
	return l, repo, hook
}

func TestInitialize(t *testing.T) {
	l, repo, hook := newLeague(t)

	require.Len(t, repo.teams, 4)
	for _, team := range repo.teams {
		assert.GreaterOrEqual(t, team.Strength, minStrength)
		assert.LessOrEqual(t, team.Strength, maxStrength)
	}
	assert.Equal(t, 88, repo.teams[1].Strength)
	assert.Len(t, repo.matches, 12)
	assert.Equal(t, "league initialized", hook.LastEntry().Message)
	assert.Equal(t, 12, hook.LastEntry().Data["matches"])

	// initializing again replaces everything
	require.NoError(t, l.Initialize(context.Background()))
	assert.Len(t, repo.teams, 4)
	assert.Len(t, repo.matches, 12)
}

func TestInitialize_FailureKeepsLeague(t *testing.T) {
	l, repo, _ := newLeague(t)
	ctx := context.Background()
	_, err := l.SimulateWeek(ctx, 1)
	require.NoError(t, err)
	teams, matches := repo.teams, repo.matches

	repo.failReset = errors.New("insert match: connection reset")
	err = l.Initialize(ctx)
	assert.EqualError(t, err, "insert match: connection reset")
	assert.Equal(t, teams, repo.teams)
	assert.Equal(t, matches, repo.matches)

	repo.failReset = nil
	l.teams = clubs[:3]
	err = l.Initialize(ctx)
	assert.ErrorIs(t, err, league.ErrInvalidInput)
	assert.Equal(t, teams, repo.teams)
	assert.Equal(t, matches, repo.matches)
	remaining, err := l.repo.CountRemainingMatches(ctx, teams[0].ID)
	require.NoError(t, err)
	assert.Equal(t, 5, remaining)
}

func TestGenerateFixtures_OddTeamsKeepsMatches(t *testing.T) {
	l, repo, _ := newLeague(t)
	repo.teams = append(repo.teams, &league.Team{ID: 99, Name: "Extra", Strength: 60})

	err := l.GenerateFixtures(context.Background())
	assert.ErrorIs(t, err, league.ErrInvalidInput)
	assert.Len(t, repo.matches, 12)
}

func TestSimulateNextWeek(t *testing.T) {
	l, repo, _ := newLeague(t)
	ctx := context.Background()

	for want := 1; want <= 6; want++ {
		week, err := l.SimulateNextWeek(ctx)
		require.NoError(t, err)
		assert.Equal(t, want, week)
		for _, m := range repo.matches {
			assert.Equal(t, m.Week <= want, m.Played, "match %d week %d", m.ID, m.Week)
		}
	}

	_, err := l.SimulateNextWeek(ctx)
	assert.ErrorIs(t, err, ErrNoWeeksLeft)
}

func TestSimulateNextWeek_Concurrent(t *testing.T) {
	l, repo, _ := newLeague(t)
	ctx := context.Background()

	weeks := make(chan int, 6)
	var wg sync.WaitGroup
	for i := 0; i < 6; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			week, err := l.SimulateNextWeek(ctx)
			assert.NoError(t, err)
			weeks <- week
		}()
	}
	wg.Wait()
	close(weeks)

	var got []int
	for w := range weeks {
		got = append(got, w)
	}
	assert.ElementsMatch(t, []int{1, 2, 3, 4, 5, 6}, got)
	assert.Equal(t, 6, repo.updates)

	_, err := l.SimulateNextWeek(ctx)
	assert.ErrorIs(t, err, ErrNoWeeksLeft)
}

func TestSimulateAllAndReset(t *testing.T) {
	l, repo, _ := newLeague(t)
	ctx := context.Background()

	n, err := l.SimulateWeek(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = l.SimulateAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 10, n)

	n, err = l.SimulateAll(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, 2, repo.updates)

	preds, err := l.Predictions(ctx)
	require.NoError(t, err)
	assert.Equal(t, 100, preds[0].Probability)

	require.NoError(t, l.Reset(ctx))
	for _, m := range repo.matches {
		assert.False(t, m.Played)
		assert.Nil(t, m.HomeScore)
	}
	table, err := l.Table(ctx)
	require.NoError(t, err)
	for i, row := range table {
		assert.Zero(t, row.Points)
		assert.Equal(t, i+1, row.Position)
	}
}

func TestSimulate_UpdateError(t *testing.T) {
	l, repo, _ := newLeague(t)
	repo.failUpdate = errors.New("db down")

	_, err := l.SimulateAll(context.Background())
	assert.EqualError(t, err, "db down")
	for _, m := range repo.matches {
		assert.False(t, m.Played)
	}
}

func TestPredictions_MidSeason(t *testing.T) {
	l, _, _ := newLeague(t)
	ctx := context.Background()
	_, err := l.SimulateWeek(ctx, 1)
	require.NoError(t, err)

	preds, err := l.Predictions(ctx)
	require.NoError(t, err)
	require.Len(t, preds, 4)
	total := 0
	for _, p := range preds {
		total += p.Probability
	}
	// independent rounding of four shares
	assert.InDelta(t, 100, total, 3)
}

func TestPredictions_NoTeams(t *testing.T) {
	logger, _ := test.NewNullLogger()
	l := New(&memRepo{}, nil, logger)
	preds, err := l.Predictions(context.Background())
	require.NoError(t, err)
	assert.Empty(t, preds)
}

func TestDataJSON_UsesCache(t *testing.T) {
	cache := &memCache{}
	l, _, _ := newLeague(t, WithCache(cache))
	ctx := context.Background()

	b, err := l.DataJSON(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, cache.sets)

	var data Data
	require.NoError(t, json.Unmarshal(b, &data))
	assert.Len(t, data.Matches, 12)
	assert.Len(t, data.Table, 4)
	assert.Len(t, data.Predictions, 4)

	again, err := l.DataJSON(ctx)
	require.NoError(t, err)
	assert.Equal(t, b, again)
	assert.Equal(t, 1, cache.sets)

	before := cache.invalidated
	_, err = l.SimulateNextWeek(ctx)
	require.NoError(t, err)
	assert.Equal(t, before+1, cache.invalidated)

	fresh, err := l.DataJSON(ctx)
	require.NoError(t, err)
	assert.NotEqual(t, b, fresh)
	assert.Equal(t, 2, cache.sets)
}

func TestOdds(t *testing.T) {
	l, repo, _ := newLeague(t)
	odds, err := l.Odds(context.Background(), 50)
	require.NoError(t, err)
	assert.Len(t, odds, 4)
	for _, m := range repo.matches {
		assert.False(t, m.Played)
	}

	_, err = l.Odds(context.Background(), 0)
	assert.ErrorIs(t, err, league.ErrInvalidInput)
}

// interleavedRepo starts a SimulateAll the first time matches are read.
type interleavedRepo struct {
	*memRepo
	league *League
	once   sync.Once
	done   chan error
}

func (r *interleavedRepo) GetMatches(ctx context.Context) ([]*league.Match, error) {
	r.once.Do(func() {
		go func() {
			_, err := r.league.SimulateAll(ctx)
			r.done <- err
		}()
	})
	return r.memRepo.GetMatches(ctx)
}

func TestDataJSON_SimulateDuringBuild(t *testing.T) {
	cache := &memCache{}
	l, mem, _ := newLeague(t, WithCache(cache))
	repo := &interleavedRepo{memRepo: mem, league: l, done: make(chan error, 1)}
	l.repo = repo
	ctx := context.Background()

	_, err := l.DataJSON(ctx)
	require.NoError(t, err)
	require.NoError(t, <-repo.done)

	b, err := l.DataJSON(ctx)
	require.NoError(t, err)
	var data Data
	require.NoError(t, json.Unmarshal(b, &data))
	require.Len(t, data.Matches, 12)
	for _, m := range data.Matches {
		assert.True(t, m.Played, "match %d", m.ID)
	}
	assert.Equal(t, 2, cache.sets)
}
