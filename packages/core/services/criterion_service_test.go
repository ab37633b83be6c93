package services

import (
	"context"
	"testing"

	"core/apperr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCriterionCatalog(t *testing.T) {
	env := newTestEnv(t, 2, nil)
	ctx := context.Background()

	design := env.criterion(t, "Design", 10)
	env.criterion(t, "Pitch", 20)

	_, err := env.criteria.CreateCriterion(ctx, "Design", 5)
	assert.ErrorIs(t, err, apperr.ErrCriterionNameTaken)
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))

	_, err = env.criteria.CreateCriterion(ctx, "Impact", 0)
	assert.ErrorIs(t, err, apperr.ErrInvalidMax)

	all, err := env.criteria.GetAllCriteria(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "Design", all[0].Name)

	name := "Visual design"
	updated, err := env.criteria.UpdateCriterion(ctx, design.ID, &name, nil)
	require.NoError(t, err)
	assert.Equal(t, "Visual design", updated.Name)
	assert.Equal(t, 10, updated.DefaultMax)

	taken := "Pitch"
	_, err = env.criteria.UpdateCriterion(ctx, design.ID, &taken, nil)
	assert.ErrorIs(t, err, apperr.ErrCriterionNameTaken)

	zero := 0
	_, err = env.criteria.UpdateCriterion(ctx, design.ID, nil, &zero)
	assert.ErrorIs(t, err, apperr.ErrInvalidMax)

	_, err = env.criteria.GetCriterionByID(ctx, 404)
	assert.ErrorIs(t, err, apperr.ErrCriterionNotFound)

	_, err = env.criteria.CriterionMax(ctx, env.db, 404)
	assert.ErrorIs(t, err, apperr.ErrCriterionNotFound)
}

func TestDeleteCriterion(t *testing.T) {
	env := newTestEnv(t, 2, nil)
	ctx := context.Background()
	team := env.team(t, "Alpha")
	used := env.criterion(t, "Design", 10)
	unused := env.criterion(t, "Pitch", 10)
	round := env.firstRound(t)
	env.submit(t, team.ID, round.ID, map[uint]int{used.ID: 4})

	err := env.criteria.DeleteCriterion(ctx, used.ID)
	assert.ErrorIs(t, err, apperr.ErrCriterionInUse)
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))

	require.NoError(t, env.criteria.DeleteCriterion(ctx, unused.ID))
	assert.ErrorIs(t, env.criteria.DeleteCriterion(ctx, unused.ID), apperr.ErrCriterionNotFound)
}

func TestUpdateCriterionLockedByClosedRound(t *testing.T) {
	env := newTestEnv(t, 2, nil)
	ctx := context.Background()
	team := env.team(t, "Alpha")
	scored := env.criterion(t, "Design", 10)
	spare := env.criterion(t, "Pitch", 10)
	round := env.firstRound(t)
	env.submit(t, team.ID, round.ID, map[uint]int{scored.ID: 4})

	// Open rounds keep their own snapshot, so the catalog may still change.
	newMax := 20
	updated, err := env.criteria.UpdateCriterion(ctx, scored.ID, nil, &newMax)
	require.NoError(t, err)
	assert.Equal(t, 20, updated.DefaultMax)

	_, err = env.elimination.CloseRound(ctx, round.ID)
	require.NoError(t, err)

	name := "Visual design"
	_, err = env.criteria.UpdateCriterion(ctx, scored.ID, &name, nil)
	assert.ErrorIs(t, err, apperr.ErrCriterionLocked)
	assert.Equal(t, apperr.KindInvalidState, apperr.KindOf(err))

	newMax = 5
	_, err = env.criteria.UpdateCriterion(ctx, scored.ID, nil, &newMax)
	assert.ErrorIs(t, err, apperr.ErrCriterionLocked)

	unchanged, err := env.criteria.GetCriterionByID(ctx, scored.ID)
	require.NoError(t, err)
	assert.Equal(t, "Design", unchanged.Name)
	assert.Equal(t, 20, unchanged.DefaultMax)

	// Never scored, so never locked.
	renamed, err := env.criteria.UpdateCriterion(ctx, spare.ID, &name, nil)
	require.NoError(t, err)
	assert.Equal(t, "Visual design", renamed.Name)

	_, err = env.criteria.UpdateCriterion(ctx, 404, &name, nil)
	assert.ErrorIs(t, err, apperr.ErrCriterionNotFound)
}
