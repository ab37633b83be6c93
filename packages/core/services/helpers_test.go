package services

import (
	"context"
	"fmt"
	"testing"

	"core/internal/testdb"
	"core/models"
	"core/notify"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type testEnv struct {
	db          *gorm.DB
	teams       *TeamService
	criteria    *CriterionService
	rounds      *RoundService
	elimination *EliminationService
	scores      *ScoreService
}

func newTestEnv(t *testing.T, totalRounds int, publisher notify.Publisher) *testEnv {
	t.Helper()
	db := testdb.Open(t)
	deps := Deps{TotalRounds: totalRounds, Publisher: publisher}

	teams := NewTeamService(db)
	criteria := NewCriterionService(db)
	return &testEnv{
		db:          db,
		teams:       teams,
		criteria:    criteria,
		rounds:      NewRoundService(db, deps),
		elimination: NewEliminationService(db, deps),
		scores:      NewScoreService(db, teams, criteria, deps),
	}
}

func (e *testEnv) team(t *testing.T, name string) models.Team {
	t.Helper()
	team, err := e.teams.CreateTeam(context.Background(), models.CreateTeamRequest{Name: name})
	require.NoError(t, err)
	return *team
}

func (e *testEnv) nTeams(t *testing.T, n int) []models.Team {
	t.Helper()
	teams := make([]models.Team, 0, n)
	for i := 1; i <= n; i++ {
		teams = append(teams, e.team(t, fmt.Sprintf("Team %02d", i)))
	}
	return teams
}

func (e *testEnv) criterion(t *testing.T, name string, max int) models.Criterion {
	t.Helper()
	c, err := e.criteria.CreateCriterion(context.Background(), name, max)
	require.NoError(t, err)
	return *c
}

func (e *testEnv) firstRound(t *testing.T) *models.Round {
	t.Helper()
	round, err := e.rounds.CreateFirstRound(context.Background(), 0)
	require.NoError(t, err)
	return round
}

func (e *testEnv) submit(t *testing.T, teamID, roundID uint, scores map[uint]int) {
	t.Helper()
	_, err := e.scores.SubmitScores(context.Background(), teamID, roundID, scores)
	require.NoError(t, err)
}

func (e *testEnv) entryCount(t *testing.T, teamID uint) int64 {
	t.Helper()
	var n int64
	require.NoError(t, e.db.Model(&models.ScoreEntry{}).Where("team_id = ?", teamID).Count(&n).Error)
	return n
}
