package league

import (
	"fmt"
	"io"
	"sort"
)

// ScoreLine formats a match as "Home 2 - 1 Away", or "Home vs Away" when it
// has not been played.
func (m *Match) ScoreLine() string {
	if !m.Played || m.HomeScore == nil || m.AwayScore == nil {
		return fmt.Sprintf("%s vs %s", m.Home.Name, m.Away.Name)
	}
	return fmt.Sprintf("%s %d - %d %s",
		m.Home.Name, *m.HomeScore,
		*m.AwayScore, m.Away.Name,
	)
}

// WriteSchedule prints matches grouped by week.
func WriteSchedule(w io.Writer, label string, matches []*Match) {
	byWeek := make(map[int][]*Match)
	var weeks []int
	for _, m := range matches {
		if _, ok := byWeek[m.Week]; !ok {
			weeks = append(weeks, m.Week)
		}
		byWeek[m.Week] = append(byWeek[m.Week], m)
	}
	sort.Ints(weeks)

	fmt.Fprintln(w, label)
	for _, week := range weeks {
		fmt.Fprintf(w, "Week %d:\n", week)
		for _, m := range byWeek[week] {
			fmt.Fprintf(w, "  %s\n", m.ScoreLine())
		}
	}
}

// WriteTable prints the standings as fixed-width columns under label.
func WriteTable(w io.Writer, label string, table []*StandingsRow) {
	fmt.Fprintln(w, label)
	fmt.Fprintf(w, "%3s %-16s %2s %2s %2s %2s %3s %3s %3s %3s\n",
		"#", "Team", "P", "W", "D", "L", "GF", "GA", "GD", "Pts")
	for _, r := range table {
		fmt.Fprintf(w, "%3d %-16s %2d %2d %2d %2d %3d %3d %3d %3d\n",
			r.Position,
			r.Team.Name,
			r.Played,
			r.Wins,
			r.Draws,
			r.Losses,
			r.GoalsFor,
			r.GoalsAgainst,
			r.GoalDiff,
			r.Points,
		)
	}
}

// WritePredictions prints one line per team with its percentage.
func WritePredictions(w io.Writer, label string, preds []Prediction) {
	fmt.Fprintln(w, label)
	for _, p := range preds {
		fmt.Fprintf(w, "%-16s %3d%%\n", p.Team.Name, p.Probability)
	}
}
