package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"core/apperr"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRespondError(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"not found", apperr.ErrRoundNotFound.Withf("round %d not found", 4), http.StatusNotFound, "round_not_found"},
		{"invalid input", apperr.ErrInvalidScore, http.StatusBadRequest, "invalid_score"},
		{"invalid state", apperr.ErrRoundClosed, http.StatusConflict, "round_closed"},
		{"conflict", apperr.ErrNextRoundExists, http.StatusConflict, "next_round_exists"},
		{"internal", errors.New("connection reset"), http.StatusInternalServerError, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)

			respondError(c, tt.err)

			assert.Equal(t, tt.wantStatus, w.Code)
			var body ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, tt.wantCode, body.Code)
			if tt.wantStatus == http.StatusInternalServerError {
				assert.Equal(t, "Internal server error", body.Error)
				assert.Len(t, c.Errors, 1)
			}
		})
	}
}

func TestParseID(t *testing.T) {
	gin.SetMode(gin.TestMode)

	for _, raw := range []string{"abc", "0", "-3"} {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Params = gin.Params{{Key: "id", Value: raw}}

		_, ok := parseID(c, "id", "round")
		assert.False(t, ok, raw)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "Invalid round ID")
	}

	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Params = gin.Params{{Key: "id", Value: "12"}}
	id, ok := parseID(c, "id", "round")
	assert.True(t, ok)
	assert.Equal(t, uint(12), id)
}
