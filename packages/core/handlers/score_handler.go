package handlers

import (
	"net/http"

	"core/models"
	"core/services"

	"github.com/gin-gonic/gin"
)

type ScoreHandler struct {
	scoreService *services.ScoreService
}

func NewScoreHandler(scoreService *services.ScoreService) *ScoreHandler {
	return &ScoreHandler{
		scoreService: scoreService,
	}
}

// SubmitScores records a team's points for a round
// @Summary Submit scores
// @Description Replace the team's points for the given criteria. Keys are criterion IDs, values whole numbers between 0 and the sheet maximum.
// @Tags scores
// @Accept json
// @Produce json
// @Param id path int true "Round ID"
// @Param teamId path int true "Team ID"
// @Param scores body models.SubmitScoresRequest true "Points per criterion"
// @Success 200 {object} models.TeamScores
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Failure 429 {object} ErrorResponse
// @Router /rounds/{id}/teams/{teamId}/scores [post]
func (h *ScoreHandler) SubmitScores(c *gin.Context) {
	roundID, ok := parseID(c, "id", "round")
	if !ok {
		return
	}
	teamID, ok := parseID(c, "teamId", "team")
	if !ok {
		return
	}

	var req models.SubmitScoresRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	scores, err := services.ParseScoreInput(req.Scores)
	if err != nil {
		respondError(c, err)
		return
	}

	result, err := h.scoreService.SubmitScores(c.Request.Context(), teamID, roundID, scores)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// GetTeamScores returns a team's points for a round
// @Summary Get team scores
// @Description Points per criterion (null when not scored yet) and whether any score is above zero
// @Tags scores
// @Produce json
// @Param id path int true "Round ID"
// @Param teamId path int true "Team ID"
// @Success 200 {object} models.TeamScores
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /rounds/{id}/teams/{teamId}/scores [get]
func (h *ScoreHandler) GetTeamScores(c *gin.Context) {
	roundID, ok := parseID(c, "id", "round")
	if !ok {
		return
	}
	teamID, ok := parseID(c, "teamId", "team")
	if !ok {
		return
	}

	scores, err := h.scoreService.GetTeamScores(c.Request.Context(), teamID, roundID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, scores)
}

// GetTeamsWithMarks lists the round's teams with their marks
// @Summary Get teams with marks
// @Tags scores
// @Produce json
// @Param id path int true "Round ID"
// @Success 200 {array} models.TeamWithMarks
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /rounds/{id}/teams-marks [get]
func (h *ScoreHandler) GetTeamsWithMarks(c *gin.Context) {
	roundID, ok := parseID(c, "id", "round")
	if !ok {
		return
	}

	teams, err := h.scoreService.GetTeamsWithMarks(c.Request.Context(), roundID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, teams)
}
