package utils

import (
	"math"
	"sort"
)

// Standing is one team's position in a round's ranking.
type Standing struct {
	TeamID     uint
	Average    float64
	Rank       int
	IsInDanger bool
}

// RankTeams averages every team's points and orders the teams best first.
// Teams without any points are left out. Equal averages are ordered by the
// lower team id first so the ranking never depends on query order.
func RankTeams(points map[uint][]int) []Standing {
	standings := make([]Standing, 0, len(points))
	for teamID, values := range points {
		if len(values) == 0 {
			continue
		}
		standings = append(standings, Standing{
			TeamID:  teamID,
			Average: Mean(values),
		})
	}

	sort.Slice(standings, func(i, j int) bool {
		if standings[i].Average != standings[j].Average {
			return standings[i].Average > standings[j].Average
		}
		return standings[i].TeamID < standings[j].TeamID
	})

	for i := range standings {
		standings[i].Rank = i + 1
	}
	return standings
}

// Mean returns the arithmetic mean of values, or 0 for an empty slice.
func Mean(values []int) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0
	for _, v := range values {
		sum += v
	}
	return float64(sum) / float64(len(values))
}

// EliminationCounts splits n ranked teams into the number eliminated (the
// lower half, rounded down) and the number surviving.
func EliminationCounts(n int) (eliminated, survivors int) {
	eliminated = int(math.Floor(float64(n) * 0.5))
	return eliminated, n - eliminated
}

// MarkDanger flags eliminated teams in place. A final round eliminates nobody.
// Standings must already be ranked.
func MarkDanger(standings []Standing, isFinal bool) (eliminated, survivors int) {
	if isFinal {
		for i := range standings {
			standings[i].IsInDanger = false
		}
		return 0, len(standings)
	}

	eliminated, survivors = EliminationCounts(len(standings))
	for i := range standings {
		standings[i].IsInDanger = standings[i].Rank > survivors
	}
	return eliminated, survivors
}

// RoundAverage converts an average to the integer stored with round results.
func RoundAverage(avg float64) int {
	return int(math.Round(avg))
}
