package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsMatchesByCode(t *testing.T) {
	err := ErrInvalidScore.Withf("criterion %d: %d exceeds max %d", 3, 11, 10)

	assert.True(t, errors.Is(err, ErrInvalidScore))
	assert.False(t, errors.Is(err, ErrRoundClosed))
	assert.Equal(t, "criterion 3: 11 exceeds max 10", err.Error())
}

func TestKindOfWrapped(t *testing.T) {
	err := fmt.Errorf("submit: %w", ErrRoundClosed)

	assert.Equal(t, KindInvalidState, KindOf(err))
	assert.Equal(t, CodeRoundClosed, CodeOf(err))
	assert.Equal(t, KindInternal, KindOf(errors.New("boom")))
	assert.Equal(t, Code(""), CodeOf(errors.New("boom")))
}

func TestWrapKeepsCause(t *testing.T) {
	cause := errors.New("duplicate key")
	err := ErrTeamNameTaken.Wrap(cause)

	assert.ErrorIs(t, err, cause)
	assert.ErrorIs(t, err, ErrTeamNameTaken)
	assert.Equal(t, KindConflict, KindOf(err))
	assert.Contains(t, err.Error(), "duplicate key")
}

func TestKindString(t *testing.T) {
	tests := map[Kind]string{
		KindNotFound:     "not_found",
		KindInvalidInput: "invalid_input",
		KindInvalidState: "invalid_state",
		KindConflict:     "conflict",
		KindInternal:     "internal",
	}
	for kind, want := range tests {
		assert.Equal(t, want, kind.String())
	}
}
