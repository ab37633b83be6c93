package services

import (
	"context"
	"testing"

	"core/apperr"
	"core/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm/clause"
)

func TestCreateFirstRound(t *testing.T) {
	env := newTestEnv(t, 2, nil)
	ctx := context.Background()
	env.nTeams(t, 5)

	round, err := env.rounds.CreateFirstRound(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, uint(1), round.ID)
	assert.True(t, round.IsFirst)
	assert.False(t, round.IsFinal)
	assert.False(t, round.IsClosed)
	assert.Equal(t, 5, round.TargetTeamCount)

	_, err = env.rounds.CreateFirstRound(ctx, 3)
	assert.ErrorIs(t, err, apperr.ErrFirstRoundExists)
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))

	rounds, err := env.rounds.GetAllRounds(ctx)
	require.NoError(t, err)
	assert.Len(t, rounds, 1)
}

func TestCreateFirstRoundExplicitTarget(t *testing.T) {
	env := newTestEnv(t, 2, nil)
	round, err := env.rounds.CreateFirstRound(context.Background(), 12)
	require.NoError(t, err)
	assert.Equal(t, 12, round.TargetTeamCount)
}

func TestCreateNextRoundPreconditions(t *testing.T) {
	ctx := context.Background()

	t.Run("unknown round", func(t *testing.T) {
		env := newTestEnv(t, 3, nil)
		_, err := env.rounds.CreateNextRound(ctx, 4)
		assert.ErrorIs(t, err, apperr.ErrRoundNotFound)
	})

	t.Run("open round", func(t *testing.T) {
		env := newTestEnv(t, 3, nil)
		round := env.firstRound(t)
		_, err := env.rounds.CreateNextRound(ctx, round.ID)
		assert.ErrorIs(t, err, apperr.ErrRoundNotClosed)
		assert.Equal(t, apperr.KindInvalidState, apperr.KindOf(err))
	})

	t.Run("no survivors", func(t *testing.T) {
		env := newTestEnv(t, 3, nil)
		team := env.team(t, "Alpha")
		round := env.firstRound(t)
		_, err := env.elimination.CloseRound(ctx, round.ID)
		require.NoError(t, err)
		require.NoError(t, env.db.Omit(clause.Associations).Create(&models.RoundResult{
			TeamID: team.ID, RoundID: round.ID, Rank: 1, IsInDanger: true,
		}).Error)

		_, err = env.rounds.CreateNextRound(ctx, round.ID)
		assert.ErrorIs(t, err, apperr.ErrNoRemainingTeams)
	})

	t.Run("next round exists", func(t *testing.T) {
		env := newTestEnv(t, 3, nil)
		team := env.team(t, "Alpha")
		c := env.criterion(t, "Overall", 10)
		round := env.firstRound(t)
		env.submit(t, team.ID, round.ID, map[uint]int{c.ID: 5})
		_, err := env.elimination.CloseRound(ctx, round.ID)
		require.NoError(t, err)

		next, err := env.rounds.CreateNextRound(ctx, round.ID)
		require.NoError(t, err)
		assert.False(t, next.IsFinalRound)
		assert.Equal(t, "Next round created", next.Message)

		_, err = env.rounds.CreateNextRound(ctx, round.ID)
		assert.ErrorIs(t, err, apperr.ErrNextRoundExists)
		assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))
	})
}

func TestGetParticipants(t *testing.T) {
	env := newTestEnv(t, 3, nil)
	ctx := context.Background()
	teams := env.nTeams(t, 4)
	c := env.criterion(t, "Overall", 10)
	round := env.firstRound(t)

	all, err := env.rounds.GetParticipants(ctx, round.ID)
	require.NoError(t, err)
	assert.Equal(t, teamIDs(teams), teamIDs(all))

	for i, points := range []int{2, 9, 4, 7} {
		env.submit(t, teams[i].ID, round.ID, map[uint]int{c.ID: points})
	}
	_, err = env.elimination.CloseRound(ctx, round.ID)
	require.NoError(t, err)
	next, err := env.rounds.CreateNextRound(ctx, round.ID)
	require.NoError(t, err)

	survivors, err := env.rounds.GetParticipants(ctx, next.Round.ID)
	require.NoError(t, err)
	assert.Equal(t, []uint{teams[1].ID, teams[3].ID}, teamIDs(survivors))

	_, err = env.rounds.GetParticipants(ctx, 99)
	assert.ErrorIs(t, err, apperr.ErrRoundNotFound)
}

func TestDeleteRound(t *testing.T) {
	env := newTestEnv(t, 3, nil)
	ctx := context.Background()
	team := env.team(t, "Alpha")
	c := env.criterion(t, "Overall", 10)
	round := env.firstRound(t)
	env.submit(t, team.ID, round.ID, map[uint]int{c.ID: 5})
	_, err := env.elimination.CloseRound(ctx, round.ID)
	require.NoError(t, err)
	next, err := env.rounds.CreateNextRound(ctx, round.ID)
	require.NoError(t, err)

	err = env.rounds.DeleteRound(ctx, round.ID)
	assert.ErrorIs(t, err, apperr.ErrRoundNotLatest)

	require.NoError(t, env.rounds.DeleteRound(ctx, next.Round.ID))
	var sheets int64
	require.NoError(t, env.db.Model(&models.ScoreSheet{}).Where("round_id = ?", next.Round.ID).Count(&sheets).Error)
	assert.Zero(t, sheets)

	require.NoError(t, env.rounds.DeleteRound(ctx, round.ID))
	assert.Zero(t, env.entryCount(t, team.ID))
	var results int64
	require.NoError(t, env.db.Model(&models.RoundResult{}).Count(&results).Error)
	assert.Zero(t, results)

	err = env.rounds.DeleteRound(ctx, round.ID)
	assert.ErrorIs(t, err, apperr.ErrRoundNotFound)

	_, err = env.rounds.CreateFirstRound(ctx, 0)
	assert.NoError(t, err, "first round can be recreated once the old one is gone")
}

func TestLatestOpenRound(t *testing.T) {
	env := newTestEnv(t, 3, nil)
	ctx := context.Background()

	open, err := env.rounds.LatestOpenRound(ctx)
	require.NoError(t, err)
	assert.Nil(t, open)

	round := env.firstRound(t)
	open, err = env.rounds.LatestOpenRound(ctx)
	require.NoError(t, err)
	require.NotNil(t, open)
	assert.Equal(t, round.ID, open.ID)

	_, err = env.elimination.CloseRound(ctx, round.ID)
	require.NoError(t, err)
	open, err = env.rounds.LatestOpenRound(ctx)
	require.NoError(t, err)
	assert.Nil(t, open)
}
