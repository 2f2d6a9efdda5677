package league

import (
	"fmt"
	"math"
	"sort"
)

// Weights of the championship heuristic.
const (
	pointsWeight   = 4
	goalDiffWeight = 2
	strengthWeight = 1
)

// PredictChampion estimates each team's chance of finishing first, in whole
// percent, given the current table and the number of matches every team has
// left. With nothing left the leader gets 100. Otherwise a team that cannot
// catch another team's current points gets 0 and the rest share 100 in
// proportion to 4*points + 2*goal difference + strength. Each share is
// rounded on its own, so the total may be off 100 by a few points.
func PredictChampion(teams []*Team, table []*StandingsRow, remaining int) []Prediction {
	preds := make([]Prediction, len(teams))
	for i, t := range teams {
		preds[i] = Prediction{Team: t}
	}
	if len(teams) == 0 {
		return preds
	}

	if remaining <= 0 {
		if len(table) > 0 {
			leader := table[0].Team.ID
			for i := range preds {
				if preds[i].Team.ID == leader {
					preds[i].Probability = 100
					break
				}
			}
		}
		sortPredictions(preds)
		return preds
	}

	rows := make(map[int]*StandingsRow, len(table))
	for _, r := range table {
		rows[r.Team.ID] = r
	}
	stats := func(id int) StandingsRow {
		if r, ok := rows[id]; ok {
			return *r
		}
		return StandingsRow{}
	}

	maxAdditional := remaining * WinPoints
	scores := make([]int, len(teams))
	total := 0
	for i, t := range teams {
		own := stats(t.ID)
		if eliminated(t.ID, own.Points+maxAdditional, table) {
			continue
		}
		score := own.Points*pointsWeight + own.GoalDiff*goalDiffWeight + t.Strength*strengthWeight
		scores[i] = max(0, score)
		total += scores[i]
	}

	if total > 0 {
		for i := range preds {
			preds[i].Probability = int(math.Round(float64(scores[i]) / float64(total) * 100))
		}
	}
	sortPredictions(preds)
	return preds
}

// eliminated reports whether some other team already has more points than
// id can still reach.
func eliminated(id, maxPossible int, table []*StandingsRow) bool {
	for _, r := range table {
		if r.Team.ID != id && r.Points > maxPossible {
			return true
		}
	}
	return false
}

func sortPredictions(preds []Prediction) {
	sort.SliceStable(preds, func(i, j int) bool {
		return preds[i].Probability > preds[j].Probability
	})
}

// Odds is a Monte Carlo championship estimate in percent.
type Odds struct {
	Team        *Team   `json:"team"`
	Probability float64 `json:"probability"`
}

// MonteCarloOdds plays the unplayed matches runs times on copies and counts
// how often each team tops the final table. The input matches are not
// modified.
func MonteCarloOdds(sim *Simulator, teams []*Team, matches []*Match, runs int) ([]Odds, error) {
	if runs <= 0 {
		return nil, fmt.Errorf("runs must be positive, got %d: %w", runs, ErrInvalidInput)
	}
	wins := make(map[int]int, len(teams))
	season := make([]*Match, len(matches))
	for i := 0; i < runs; i++ {
		for j, m := range matches {
			season[j] = m.Clone()
		}
		sim.SimulateAll(season)
		table := BuildTable(teams, season)
		if len(table) > 0 {
			wins[table[0].Team.ID]++
		}
	}

	odds := make([]Odds, 0, len(teams))
	for _, t := range teams {
		p := float64(wins[t.ID]) / float64(runs) * 100.0
		odds = append(odds, Odds{Team: t, Probability: math.Round(p*100) / 100})
	}
	sort.SliceStable(odds, func(i, j int) bool {
		return odds[i].Probability > odds[j].Probability
	})
	return odds, nil
}
