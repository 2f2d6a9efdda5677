package league

import "sort"

// Points per result.
const (
	WinPoints  = 3
	DrawPoints = 1
)

// BuildTable aggregates the played matches of each team and ranks them by
// points, goal difference, goals for and wins. Remaining ties keep the order
// of teams.
func BuildTable(teams []*Team, matches []*Match) []*StandingsRow {
	rows := make([]*StandingsRow, 0, len(teams))
	byID := make(map[int]*StandingsRow, len(teams))
	for _, t := range teams {
		r := &StandingsRow{Team: t}
		rows = append(rows, r)
		byID[t.ID] = r
	}

	for _, m := range matches {
		if !m.Played || m.HomeScore == nil || m.AwayScore == nil {
			continue
		}
		home, away := byID[m.Home.ID], byID[m.Away.ID]
		hg, ag := *m.HomeScore, *m.AwayScore
		if home != nil {
			home.record(hg, ag)
		}
		if away != nil {
			away.record(ag, hg)
		}
	}

	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if a.Points != b.Points {
			return a.Points > b.Points
		}
		if a.GoalDiff != b.GoalDiff {
			return a.GoalDiff > b.GoalDiff
		}
		if a.GoalsFor != b.GoalsFor {
			return a.GoalsFor > b.GoalsFor
		}
		return a.Wins > b.Wins
	})

	for i, r := range rows {
		r.Position = i + 1
	}
	return rows
}

func (r *StandingsRow) record(scored, conceded int) {
	r.Played++
	r.GoalsFor += scored
	r.GoalsAgainst += conceded
	r.GoalDiff = r.GoalsFor - r.GoalsAgainst
	switch {
	case scored > conceded:
		r.Wins++
		r.Points += WinPoints
	case scored < conceded:
		r.Losses++
	default:
		r.Draws++
		r.Points += DrawPoints
	}
}
