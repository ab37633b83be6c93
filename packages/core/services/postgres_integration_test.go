//go:build integration

package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"core/apperr"
	"core/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func openPostgres(t *testing.T) *gorm.DB {
	t.Helper()
	ctx := context.Background()

	container, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("judging"),
		postgres.WithUsername("judge"),
		postgres.WithPassword("judge"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(45*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := gorm.Open(gormpostgres.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	for _, stmt := range models.SchemaStatements(db.Dialector.Name()) {
		require.NoError(t, db.Exec(stmt).Error)
	}
	return db
}

func TestPostgresSubmissionsRaceClose(t *testing.T) {
	db := openPostgres(t)
	deps := Deps{TotalRounds: 2}
	teams := NewTeamService(db)
	criteria := NewCriterionService(db)
	rounds := NewRoundService(db, deps)
	elimination := NewEliminationService(db, deps)
	scores := NewScoreService(db, teams, criteria, deps)
	ctx := context.Background()

	const teamCount = 12
	teamIDs := make([]uint, 0, teamCount)
	for i := 0; i < teamCount; i++ {
		team, err := teams.CreateTeam(ctx, models.CreateTeamRequest{Name: fmt.Sprintf("Team %02d", i)})
		require.NoError(t, err)
		teamIDs = append(teamIDs, team.ID)
	}
	design, err := criteria.CreateCriterion(ctx, "Design", 10)
	require.NoError(t, err)
	pitch, err := criteria.CreateCriterion(ctx, "Pitch", 10)
	require.NoError(t, err)
	round, err := rounds.CreateFirstRound(ctx, 0)
	require.NoError(t, err)

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		accepted = make(map[uint]bool)
	)
	for i, teamID := range teamIDs {
		wg.Add(1)
		go func(teamID uint, points int) {
			defer wg.Done()
			_, err := scores.SubmitScores(ctx, teamID, round.ID, map[uint]int{design.ID: points, pitch.ID: points})
			if errors.Is(err, apperr.ErrRoundClosed) {
				return
			}
			assert.NoError(t, err)
			mu.Lock()
			accepted[teamID] = true
			mu.Unlock()
		}(teamID, i%11)
	}

	var closed *models.RoundCloseResult
	wg.Add(1)
	go func() {
		defer wg.Done()
		var err error
		closed, err = elimination.CloseRound(ctx, round.ID)
		assert.NoError(t, err)
	}()
	wg.Wait()
	require.NotNil(t, closed)

	// Every accepted submission is reflected in the ranking; rejected ones
	// left no entries behind.
	var entryTeams []uint
	require.NoError(t, db.Model(&models.ScoreEntry{}).Distinct("team_id").Pluck("team_id", &entryTeams).Error)
	assert.Len(t, entryTeams, len(accepted))
	assert.Len(t, closed.Rankings, len(accepted))
	for _, ranked := range closed.Rankings {
		assert.True(t, accepted[ranked.Team.ID])
	}

	var sheets int64
	require.NoError(t, db.Model(&models.ScoreSheet{}).Where("round_id = ?", round.ID).Count(&sheets).Error)
	assert.LessOrEqual(t, sheets, int64(2))
}

func TestPostgresConcurrentCreateNextRound(t *testing.T) {
	db := openPostgres(t)
	deps := Deps{TotalRounds: 3}
	teams := NewTeamService(db)
	criteria := NewCriterionService(db)
	rounds := NewRoundService(db, deps)
	elimination := NewEliminationService(db, deps)
	scores := NewScoreService(db, teams, criteria, deps)
	ctx := context.Background()

	c, err := criteria.CreateCriterion(ctx, "Overall", 10)
	require.NoError(t, err)
	round, err := rounds.CreateFirstRound(ctx, 0)
	require.NoError(t, err)
	for i := 0; i < 4; i++ {
		team, err := teams.CreateTeam(ctx, models.CreateTeamRequest{Name: fmt.Sprintf("Team %d", i)})
		require.NoError(t, err)
		_, err = scores.SubmitScores(ctx, team.ID, round.ID, map[uint]int{c.ID: i + 1})
		require.NoError(t, err)
	}
	_, err = elimination.CloseRound(ctx, round.ID)
	require.NoError(t, err)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		created   int
		conflicts int
	)
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := rounds.CreateNextRound(ctx, round.ID)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				created++
			case errors.Is(err, apperr.ErrNextRoundExists):
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, created)
	assert.Equal(t, 4, conflicts)
}
