package services

import (
	"context"
	"testing"

	"core/apperr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCloseLatestOpenRound(t *testing.T) {
	env := newTestEnv(t, 2, nil)
	ctx := context.Background()
	teams := env.nTeams(t, 2)
	c := env.criterion(t, "Overall", 10)
	auto := NewAutoCloseService(env.rounds, env.elimination, true)

	outcome, err := auto.CloseLatestOpenRound(ctx)
	require.NoError(t, err)
	assert.Nil(t, outcome.Closed)

	round := env.firstRound(t)
	env.submit(t, teams[0].ID, round.ID, map[uint]int{c.ID: 8})
	env.submit(t, teams[1].ID, round.ID, map[uint]int{c.ID: 3})

	outcome, err = auto.CloseLatestOpenRound(ctx)
	require.NoError(t, err)
	require.NotNil(t, outcome.Closed)
	assert.Equal(t, round.ID, outcome.Closed.RoundID)
	require.NotNil(t, outcome.Next)
	assert.Equal(t, uint(2), outcome.Next.Round.ID)
	assert.True(t, outcome.Next.IsFinalRound)

	env.submit(t, teams[0].ID, outcome.Next.Round.ID, map[uint]int{c.ID: 5})
	outcome, err = auto.CloseLatestOpenRound(ctx)
	require.NoError(t, err)
	require.NotNil(t, outcome.Closed)
	assert.True(t, outcome.Closed.IsFinalRound)
	assert.Nil(t, outcome.Next)
}

func TestCloseLatestOpenRoundWithoutAdvance(t *testing.T) {
	env := newTestEnv(t, 2, nil)
	env.firstRound(t)
	auto := NewAutoCloseService(env.rounds, env.elimination, false)

	outcome, err := auto.CloseLatestOpenRound(context.Background())
	require.NoError(t, err)
	require.NotNil(t, outcome.Closed)
	assert.Nil(t, outcome.Next)
}

func TestCloseLatestOpenRoundCannotAdvanceEmptyRound(t *testing.T) {
	env := newTestEnv(t, 2, nil)
	env.firstRound(t)
	auto := NewAutoCloseService(env.rounds, env.elimination, true)

	outcome, err := auto.CloseLatestOpenRound(context.Background())
	assert.ErrorIs(t, err, apperr.ErrNoEliminationResults)
	require.NotNil(t, outcome)
	assert.NotNil(t, outcome.Closed)
}
