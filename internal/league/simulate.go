package league

import (
	"math"
	"math/rand"
)

// HomeAdvantage scales the home side's expected goals.
const HomeAdvantage = 1.2

// Strength is divided by a fresh draw from [minDivisor, maxDivisor] to get
// expected goals.
const (
	minDivisor = 25
	maxDivisor = 50
)

// Source is the randomness a Simulator draws from. *rand.Rand satisfies it.
type Source interface {
	Intn(n int) int
	Float64() float64
}

type globalSource struct{}

func (globalSource) Intn(n int) int   { return rand.Intn(n) }
func (globalSource) Float64() float64 { return rand.Float64() }

// Simulator plays matches using team strengths.
type Simulator struct {
	src Source
}

// NewSimulator returns a Simulator drawing from src. A nil src uses the
// math/rand top-level functions, which are safe for concurrent use.
func NewSimulator(src Source) *Simulator {
	if src == nil {
		src = globalSource{}
	}
	return &Simulator{src: src}
}

// Simulate plays m with the given strengths and records the score on it.
// A played match is left alone and Simulate reports false.
func (s *Simulator) Simulate(m *Match, homeStrength, awayStrength int) bool {
	if m.Played {
		return false
	}
	expectedHome := float64(homeStrength) / float64(s.divisor()) * HomeAdvantage
	expectedAway := float64(awayStrength) / float64(s.divisor())

	m.SetScore(s.samplePoisson(expectedHome), s.samplePoisson(expectedAway))
	return true
}

// SimulateMatch plays m using the strengths of its own teams.
func (s *Simulator) SimulateMatch(m *Match) bool {
	return s.Simulate(m, m.Home.Strength, m.Away.Strength)
}

// SimulateAll plays every unplayed match and returns the ones it played.
func (s *Simulator) SimulateAll(matches []*Match) []*Match {
	var played []*Match
	for _, m := range matches {
		if s.SimulateMatch(m) {
			played = append(played, m)
		}
	}
	return played
}

// SimulateWeek plays the unplayed matches of one week and returns them.
func (s *Simulator) SimulateWeek(matches []*Match, week int) []*Match {
	var played []*Match
	for _, m := range matches {
		if m.Week == week && s.SimulateMatch(m) {
			played = append(played, m)
		}
	}
	return played
}

func (s *Simulator) divisor() int {
	return minDivisor + s.src.Intn(maxDivisor-minDivisor+1)
}

// samplePoisson generates a random sample from a Poisson distribution with mean lambda
func (s *Simulator) samplePoisson(lambda float64) int {
	L := math.Exp(-lambda)
	p := 1.0
	k := 0
	for {
		k++
		p *= s.src.Float64()
		if p <= L {
			break
		}
	}
	return max(0, k-1)
}

// ResetMatches clears the result of every match.
func ResetMatches(matches []*Match) []*Match {
	for _, m := range matches {
		m.Reset()
	}
	return matches
}

// UnplayedWeek returns the lowest week that still has an unplayed match.
func UnplayedWeek(matches []*Match) (int, bool) {
	week, found := 0, false
	for _, m := range matches {
		if !m.Played && (!found || m.Week < week) {
			week, found = m.Week, true
		}
	}
	return week, found
}

// RemainingMatches counts the unplayed matches teamID takes part in.
func RemainingMatches(matches []*Match, teamID int) int {
	n := 0
	for _, m := range matches {
		if !m.Played && (m.Home.ID == teamID || m.Away.ID == teamID) {
			n++
		}
	}
	return n
}
