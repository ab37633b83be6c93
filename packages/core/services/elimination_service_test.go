package services

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"core/apperr"
	"core/models"
	"core/notify"
	"core/notify/mocks"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func rankedIDs(ranked []models.RankedTeam) []uint {
	ids := make([]uint, 0, len(ranked))
	for _, r := range ranked {
		ids = append(ids, r.Team.ID)
	}
	return ids
}

func teamIDs(teams []models.Team) []uint {
	ids := make([]uint, 0, len(teams))
	for _, t := range teams {
		ids = append(ids, t.ID)
	}
	return ids
}

func TestTwoRoundCompetition(t *testing.T) {
	env := newTestEnv(t, 2, nil)
	ctx := context.Background()
	teams := env.nTeams(t, 4)
	c := env.criterion(t, "Overall", 100)
	round := env.firstRound(t)

	for i, points := range []int{90, 80, 70, 60} {
		env.submit(t, teams[i].ID, round.ID, map[uint]int{c.ID: points})
	}

	closed, err := env.elimination.CloseRound(ctx, round.ID)
	require.NoError(t, err)
	assert.False(t, closed.IsFinalRound)
	assert.Equal(t, []uint{teams[0].ID, teams[1].ID, teams[2].ID, teams[3].ID}, rankedIDs(closed.Rankings))
	for i, r := range closed.Rankings {
		assert.Equal(t, i+1, r.Rank)
		assert.Equal(t, i >= 2, r.IsInDanger, "rank %d", r.Rank)
	}
	require.NotNil(t, closed.Winner)
	assert.Equal(t, teams[0].ID, closed.Winner.Team.ID)
	assert.Nil(t, closed.OverallWinner)
	assert.Equal(t, &models.EliminationSummary{Total: 4, EliminatedCount: 2, SurvivorCount: 2}, closed.Summary)

	next, err := env.rounds.CreateNextRound(ctx, round.ID)
	require.NoError(t, err)
	assert.Equal(t, uint(2), next.Round.ID)
	assert.True(t, next.IsFinalRound)
	assert.True(t, next.Round.IsFinal)
	assert.False(t, next.Round.IsFirst)
	assert.Equal(t, 2, next.Round.TargetTeamCount)
	assert.Equal(t, "Final round created", next.Message)
	assert.Equal(t, []uint{teams[0].ID, teams[1].ID}, teamIDs(next.Teams))

	var sheets []models.ScoreSheet
	require.NoError(t, env.db.Where("round_id = ?", next.Round.ID).Find(&sheets).Error)
	require.Len(t, sheets, 1)
	assert.Equal(t, c.ID, sheets[0].CriterionID)
	assert.Equal(t, 100, sheets[0].MaxPoints)

	_, err = env.scores.SubmitScores(ctx, teams[2].ID, next.Round.ID, map[uint]int{c.ID: 99})
	assert.ErrorIs(t, err, apperr.ErrTeamNotInRound)

	env.submit(t, teams[0].ID, next.Round.ID, map[uint]int{c.ID: 50})
	env.submit(t, teams[1].ID, next.Round.ID, map[uint]int{c.ID: 70})

	final, err := env.elimination.CloseRound(ctx, next.Round.ID)
	require.NoError(t, err)
	assert.True(t, final.IsFinalRound)
	assert.Nil(t, final.Summary)
	for _, r := range final.Rankings {
		assert.False(t, r.IsInDanger)
	}
	require.NotNil(t, final.OverallWinner)
	assert.Equal(t, teams[1].ID, final.OverallWinner.Team.ID)
	assert.Equal(t, final.Winner, final.OverallWinner)

	_, err = env.rounds.CreateNextRound(ctx, next.Round.ID)
	assert.ErrorIs(t, err, apperr.ErrRoundIsFinal)
}

func TestCloseRoundEliminatesLowerHalf(t *testing.T) {
	tests := []struct {
		teams      int
		eliminated int
		survivors  int
	}{
		{teams: 10, eliminated: 5, survivors: 5},
		{teams: 7, eliminated: 3, survivors: 4},
		{teams: 1, eliminated: 0, survivors: 1},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d teams", tt.teams), func(t *testing.T) {
			env := newTestEnv(t, 3, nil)
			teams := env.nTeams(t, tt.teams)
			c := env.criterion(t, "Overall", 100)
			round := env.firstRound(t)
			for i, team := range teams {
				env.submit(t, team.ID, round.ID, map[uint]int{c.ID: 100 - i})
			}

			closed, err := env.elimination.CloseRound(context.Background(), round.ID)
			require.NoError(t, err)
			assert.Equal(t, tt.eliminated, closed.Summary.EliminatedCount)
			assert.Equal(t, tt.survivors, closed.Summary.SurvivorCount)

			var inDanger int64
			require.NoError(t, env.db.Model(&models.RoundResult{}).
				Where("round_id = ? AND is_in_danger = ?", round.ID, true).Count(&inDanger).Error)
			assert.Equal(t, int64(tt.eliminated), inDanger)

			participants, err := env.rounds.CreateNextRound(context.Background(), round.ID)
			require.NoError(t, err)
			assert.Len(t, participants.Teams, tt.survivors)
		})
	}
}

func TestCloseRoundTiesAndUnscoredTeams(t *testing.T) {
	env := newTestEnv(t, 2, nil)
	ctx := context.Background()
	teams := env.nTeams(t, 4)
	design := env.criterion(t, "Design", 10)
	pitch := env.criterion(t, "Pitch", 10)
	round := env.firstRound(t)

	env.submit(t, teams[2].ID, round.ID, map[uint]int{design.ID: 6})
	env.submit(t, teams[1].ID, round.ID, map[uint]int{design.ID: 7, pitch.ID: 5})
	env.submit(t, teams[0].ID, round.ID, map[uint]int{design.ID: 7, pitch.ID: 8})
	// teams[3] never scored.

	closed, err := env.elimination.CloseRound(ctx, round.ID)
	require.NoError(t, err)

	// 7.5, 6, 6: the tie goes to the lower team id.
	assert.Equal(t, []uint{teams[0].ID, teams[1].ID, teams[2].ID}, rankedIDs(closed.Rankings))
	assert.InDelta(t, 7.5, closed.Rankings[0].AverageScore, 1e-9)
	assert.Equal(t, 3, closed.Summary.Total)
	assert.Equal(t, 1, closed.Summary.EliminatedCount)

	results, err := env.elimination.GetEliminationResults(ctx, round.ID)
	require.NoError(t, err)
	require.Len(t, results.Results, 3)
	assert.Equal(t, 8, results.Results[0].AverageScore, "stored averages are rounded")
	assert.Equal(t, "Team 01", results.Results[0].Team.Name)
	assert.True(t, results.Results[2].IsInDanger)
	assert.Equal(t, models.EliminationSummary{Total: 3, EliminatedCount: 1, SurvivorCount: 2}, results.Summary)

	survivors, err := env.rounds.CreateNextRound(ctx, round.ID)
	require.NoError(t, err)
	assert.NotContains(t, teamIDs(survivors.Teams), teams[3].ID)
}

func TestCloseRoundWithoutScores(t *testing.T) {
	env := newTestEnv(t, 2, nil)
	ctx := context.Background()
	env.nTeams(t, 3)
	round := env.firstRound(t)

	closed, err := env.elimination.CloseRound(ctx, round.ID)
	require.NoError(t, err)
	assert.Empty(t, closed.Rankings)
	assert.NotNil(t, closed.Rankings)
	assert.Nil(t, closed.Winner)
	assert.Equal(t, &models.EliminationSummary{}, closed.Summary)

	stored, err := env.rounds.GetRoundByID(ctx, round.ID)
	require.NoError(t, err)
	assert.True(t, stored.IsClosed)
	assert.NotNil(t, stored.ClosedAt)

	_, err = env.rounds.CreateNextRound(ctx, round.ID)
	assert.ErrorIs(t, err, apperr.ErrNoEliminationResults)

	winner, err := env.elimination.GetWinner(ctx, round.ID)
	require.NoError(t, err)
	assert.Nil(t, winner.Winner)
}

func TestCloseRoundTwice(t *testing.T) {
	env := newTestEnv(t, 2, nil)
	round := env.firstRound(t)

	_, err := env.elimination.CloseRound(context.Background(), round.ID)
	require.NoError(t, err)
	_, err = env.elimination.CloseRound(context.Background(), round.ID)
	assert.ErrorIs(t, err, apperr.ErrRoundClosed)

	_, err = env.elimination.CloseRound(context.Background(), 9)
	assert.ErrorIs(t, err, apperr.ErrRoundNotFound)
}

func TestSingleRoundCompetitionIsFinal(t *testing.T) {
	env := newTestEnv(t, 1, nil)
	teams := env.nTeams(t, 3)
	c := env.criterion(t, "Overall", 10)
	round := env.firstRound(t)
	assert.True(t, round.IsFinal)

	env.submit(t, teams[0].ID, round.ID, map[uint]int{c.ID: 4})
	env.submit(t, teams[1].ID, round.ID, map[uint]int{c.ID: 9})
	env.submit(t, teams[2].ID, round.ID, map[uint]int{c.ID: 1})

	closed, err := env.elimination.CloseRound(context.Background(), round.ID)
	require.NoError(t, err)
	assert.True(t, closed.IsFinalRound)
	require.NotNil(t, closed.OverallWinner)
	assert.Equal(t, teams[1].ID, closed.OverallWinner.Team.ID)
	for _, r := range closed.Rankings {
		assert.False(t, r.IsInDanger)
	}

	export := NewExportService(env.elimination)
	workbook, err := export.ExportRoundResults(context.Background(), round.ID)
	require.NoError(t, err)
	rows := readResultRows(t, workbook)
	assert.Equal(t, "winner", rows[1][3])
	assert.Equal(t, "finalist", rows[2][3])
}

func TestGetWinnerMatchesClose(t *testing.T) {
	env := newTestEnv(t, 2, nil)
	ctx := context.Background()
	teams := env.nTeams(t, 3)
	c := env.criterion(t, "Overall", 10)
	round := env.firstRound(t)

	_, err := env.elimination.GetWinner(ctx, round.ID)
	assert.ErrorIs(t, err, apperr.ErrRoundNotClosed)
	_, err = env.elimination.GetEliminationResults(ctx, round.ID)
	assert.ErrorIs(t, err, apperr.ErrRoundNotClosed)

	env.submit(t, teams[0].ID, round.ID, map[uint]int{c.ID: 3})
	env.submit(t, teams[2].ID, round.ID, map[uint]int{c.ID: 8})

	closed, err := env.elimination.CloseRound(ctx, round.ID)
	require.NoError(t, err)

	winner, err := env.elimination.GetWinner(ctx, round.ID)
	require.NoError(t, err)
	require.NotNil(t, winner.Winner)
	assert.Equal(t, closed.Winner.Team.ID, winner.Winner.Team.ID)
	assert.Equal(t, 1, winner.Winner.Rank)
	assert.False(t, winner.IsFinalRound)
}

func TestCloseRoundPublishesEvent(t *testing.T) {
	ctrl := gomock.NewController(t)
	pub := mocks.NewMockPublisher(ctrl)

	var (
		mu     sync.Mutex
		events []notify.Event
	)
	pub.EXPECT().Publish(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, e notify.Event) error {
		mu.Lock()
		defer mu.Unlock()
		events = append(events, e)
		return nil
	}).AnyTimes()

	env := newTestEnv(t, 2, pub)
	round := env.firstRound(t)
	_, err := env.elimination.CloseRound(context.Background(), round.ID)
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, events, 2)
	assert.Equal(t, notify.EventRoundCreated, events[0].Type)
	assert.Equal(t, notify.EventRoundClosed, events[1].Type)
	assert.Equal(t, round.ID, events[1].RoundID)
}
