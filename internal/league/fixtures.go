package league

import "fmt"

// BuildFirstHalf maps schedule slots onto teams, slot A at home, one week
// per round starting at startWeek. It returns the matches and the next
// unused week.
func BuildFirstHalf(schedule [][]Pair, teams []*Team, startWeek int) ([]*Match, int, error) {
	return buildHalf(schedule, teams, startWeek, false)
}

// BuildSecondHalf is BuildFirstHalf with home and away swapped.
func BuildSecondHalf(schedule [][]Pair, teams []*Team, startWeek int) ([]*Match, int, error) {
	return buildHalf(schedule, teams, startWeek, true)
}

func buildHalf(schedule [][]Pair, teams []*Team, startWeek int, swap bool) ([]*Match, int, error) {
	if startWeek < 1 {
		return nil, startWeek, fmt.Errorf("start week %d must be positive: %w", startWeek, ErrInvalidInput)
	}
	var matches []*Match
	week := startWeek
	for _, round := range schedule {
		for _, p := range round {
			if p.A < 0 || p.B < 0 || p.A >= len(teams) || p.B >= len(teams) {
				return nil, startWeek, fmt.Errorf("slot pair (%d,%d) outside %d teams: %w", p.A, p.B, len(teams), ErrInvalidInput)
			}
			home, away := teams[p.A], teams[p.B]
			if swap {
				home, away = away, home
			}
			matches = append(matches, &Match{Home: home, Away: away, Week: week})
		}
		week++
	}
	return matches, week, nil
}

// GenerateFullSeason builds the double round-robin for teams: the first half
// from week 1, then the mirrored second half straight after it.
func GenerateFullSeason(teams []*Team) ([]*Match, error) {
	schedule, err := GenerateSchedule(len(teams))
	if err != nil {
		return nil, err
	}
	first, next, err := BuildFirstHalf(schedule, teams, 1)
	if err != nil {
		return nil, err
	}
	second, _, err := BuildSecondHalf(schedule, teams, next)
	if err != nil {
		return nil, err
	}
	return append(first, second...), nil
}
