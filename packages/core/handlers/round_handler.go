package handlers

import (
	"fmt"
	"net/http"

	"core/models"
	"core/services"

	"github.com/gin-gonic/gin"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type RoundHandler struct {
	roundService       *services.RoundService
	eliminationService *services.EliminationService
	exportService      *services.ExportService
}

func NewRoundHandler(roundService *services.RoundService, eliminationService *services.EliminationService, exportService *services.ExportService) *RoundHandler {
	return &RoundHandler{
		roundService:       roundService,
		eliminationService: eliminationService,
		exportService:      exportService,
	}
}

// GetAllRounds lists every round
// @Summary List rounds
// @Tags rounds
// @Produce json
// @Success 200 {array} models.Round
// @Failure 500 {object} ErrorResponse
// @Router /rounds [get]
func (h *RoundHandler) GetAllRounds(c *gin.Context) {
	rounds, err := h.roundService.GetAllRounds(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rounds)
}

// GetRound gets a round by ID
// @Summary Get round by ID
// @Tags rounds
// @Produce json
// @Param id path int true "Round ID"
// @Success 200 {object} models.Round
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /rounds/{id} [get]
func (h *RoundHandler) GetRound(c *gin.Context) {
	id, ok := parseID(c, "id", "round")
	if !ok {
		return
	}

	round, err := h.roundService.GetRoundByID(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, round)
}

// CreateFirstRound opens the competition
// @Summary Create the first round
// @Description Open round 1. Every team takes part. Fails when a round already exists.
// @Tags rounds
// @Accept json
// @Produce json
// @Param round body models.CreateRoundRequest false "Round data"
// @Success 201 {object} models.Round
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /rounds [post]
func (h *RoundHandler) CreateFirstRound(c *gin.Context) {
	var req models.CreateRoundRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
			return
		}
	}

	round, err := h.roundService.CreateFirstRound(c.Request.Context(), req.TargetTeamCount)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, round)
}

// DeleteRound deletes the latest round
// @Summary Delete round
// @Description Delete the latest round with its score sheets, scores and results
// @Tags rounds
// @Produce json
// @Param id path int true "Round ID"
// @Success 200 {object} map[string]string
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /rounds/{id} [delete]
func (h *RoundHandler) DeleteRound(c *gin.Context) {
	id, ok := parseID(c, "id", "round")
	if !ok {
		return
	}

	if err := h.roundService.DeleteRound(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Round deleted successfully"})
}

// GetParticipants lists the teams of a round
// @Summary Get round participants
// @Description All teams for the first round, survivors of the previous round otherwise
// @Tags rounds
// @Produce json
// @Param id path int true "Round ID"
// @Success 200 {array} models.Team
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /rounds/{id}/teams [get]
func (h *RoundHandler) GetParticipants(c *gin.Context) {
	id, ok := parseID(c, "id", "round")
	if !ok {
		return
	}

	teams, err := h.roundService.GetParticipants(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, teams)
}

// CloseRound closes a round and computes eliminations
// @Summary Close round
// @Description Rank scored teams by average, eliminate the lower half (none in the final round) and close the round
// @Tags rounds
// @Produce json
// @Param id path int true "Round ID"
// @Success 200 {object} models.RoundCloseResult
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /rounds/{id}/close [post]
func (h *RoundHandler) CloseRound(c *gin.Context) {
	id, ok := parseID(c, "id", "round")
	if !ok {
		return
	}

	result, err := h.eliminationService.CloseRound(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// GetEliminationResults returns stored results of a closed round
// @Summary Get elimination results
// @Tags rounds
// @Produce json
// @Param id path int true "Round ID"
// @Success 200 {object} models.EliminationResults
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /rounds/{id}/elimination [get]
func (h *RoundHandler) GetEliminationResults(c *gin.Context) {
	id, ok := parseID(c, "id", "round")
	if !ok {
		return
	}

	results, err := h.eliminationService.GetEliminationResults(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, results)
}

// CreateNextRound creates the round following a closed round
// @Summary Create next round
// @Description Carry the survivors of a closed round into a new round seeded with the same score sheets
// @Tags rounds
// @Produce json
// @Param id path int true "Current round ID"
// @Success 201 {object} models.NextRoundResponse
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /rounds/{id}/create-next [post]
func (h *RoundHandler) CreateNextRound(c *gin.Context) {
	id, ok := parseID(c, "id", "round")
	if !ok {
		return
	}

	next, err := h.roundService.CreateNextRound(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, next)
}

// GetWinner returns the best team of a closed round
// @Summary Get round winner
// @Tags rounds
// @Produce json
// @Param id path int true "Round ID"
// @Success 200 {object} models.WinnerResponse
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /rounds/{id}/winner [get]
func (h *RoundHandler) GetWinner(c *gin.Context) {
	id, ok := parseID(c, "id", "round")
	if !ok {
		return
	}

	winner, err := h.eliminationService.GetWinner(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, winner)
}

// ExportResults downloads the results of a closed round as a spreadsheet
// @Summary Export round results (XLSX)
// @Tags exports
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param id path int true "Round ID"
// @Success 200 {file} file
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /rounds/{id}/results.xlsx [get]
func (h *RoundHandler) ExportResults(c *gin.Context) {
	id, ok := parseID(c, "id", "round")
	if !ok {
		return
	}

	data, err := h.exportService.ExportRoundResults(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="round-%d-results.xlsx"`, id))
	c.Data(http.StatusOK, xlsxContentType, data)
}

// ResultsChart renders the results of a closed round as a bar chart
// @Summary Round results chart (PNG)
// @Tags exports
// @Produce png
// @Param id path int true "Round ID"
// @Success 200 {file} file
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /rounds/{id}/results.png [get]
func (h *RoundHandler) ResultsChart(c *gin.Context) {
	id, ok := parseID(c, "id", "round")
	if !ok {
		return
	}

	data, err := h.exportService.RenderRoundChart(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.Data(http.StatusOK, "image/png", data)
}
