package handlers

import (
	"net/http"
	"strconv"

	"core/models"
	"core/services"

	"github.com/gin-gonic/gin"
)

type TeamHandler struct {
	teamService *services.TeamService
}

func NewTeamHandler(teamService *services.TeamService) *TeamHandler {
	return &TeamHandler{
		teamService: teamService,
	}
}

// GetAllTeams gets all teams with pagination
// @Summary Get all teams
// @Description Get all teams with their members, paginated
// @Tags teams
// @Produce json
// @Param page query int false "Page number (default: 1)"
// @Param pageSize query int false "Items per page (default: 20, max: 100)"
// @Success 200 {object} models.PaginatedTeamsResponse
// @Failure 500 {object} ErrorResponse
// @Router /teams [get]
func (h *TeamHandler) GetAllTeams(c *gin.Context) {
	page := 1
	pageSize := 20

	if pageParam := c.Query("page"); pageParam != "" {
		if p, err := strconv.Atoi(pageParam); err == nil && p > 0 {
			page = p
		}
	}
	if pageSizeParam := c.Query("pageSize"); pageSizeParam != "" {
		if ps, err := strconv.Atoi(pageSizeParam); err == nil && ps > 0 && ps <= 100 {
			pageSize = ps
		}
	}

	teams, err := h.teamService.GetAllTeams(c.Request.Context(), page, pageSize)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, teams)
}

// GetTeam gets a team by ID
// @Summary Get team by ID
// @Tags teams
// @Produce json
// @Param id path int true "Team ID"
// @Success 200 {object} models.Team
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /teams/{id} [get]
func (h *TeamHandler) GetTeam(c *gin.Context) {
	id, ok := parseID(c, "id", "team")
	if !ok {
		return
	}

	team, err := h.teamService.GetTeamByID(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, team)
}

// CreateTeam creates a new team
// @Summary Create a new team
// @Tags teams
// @Accept json
// @Produce json
// @Param team body models.CreateTeamRequest true "Team data"
// @Success 201 {object} models.Team
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /teams [post]
func (h *TeamHandler) CreateTeam(c *gin.Context) {
	var req models.CreateTeamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	team, err := h.teamService.CreateTeam(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, team)
}

// UpdateTeam updates a team
// @Summary Update team
// @Tags teams
// @Accept json
// @Produce json
// @Param id path int true "Team ID"
// @Param team body models.UpdateTeamRequest true "Team update data"
// @Success 200 {object} models.Team
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /teams/{id} [put]
func (h *TeamHandler) UpdateTeam(c *gin.Context) {
	id, ok := parseID(c, "id", "team")
	if !ok {
		return
	}

	var req models.UpdateTeamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	team, err := h.teamService.UpdateTeam(c.Request.Context(), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, team)
}

// DeleteTeam deletes a team
// @Summary Delete team
// @Description Delete a team with its members, scores and round results
// @Tags teams
// @Produce json
// @Param id path int true "Team ID"
// @Success 200 {object} map[string]string
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /teams/{id} [delete]
func (h *TeamHandler) DeleteTeam(c *gin.Context) {
	id, ok := parseID(c, "id", "team")
	if !ok {
		return
	}

	if err := h.teamService.DeleteTeam(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Team deleted successfully"})
}

// GetMembers lists a team's members
// @Summary Get team members
// @Tags members
// @Produce json
// @Param id path int true "Team ID"
// @Success 200 {array} models.Member
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /teams/{id}/members [get]
func (h *TeamHandler) GetMembers(c *gin.Context) {
	id, ok := parseID(c, "id", "team")
	if !ok {
		return
	}

	members, err := h.teamService.GetMembers(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, members)
}

// AddMember adds a member to a team
// @Summary Add team member
// @Tags members
// @Accept json
// @Produce json
// @Param id path int true "Team ID"
// @Param member body models.CreateMemberRequest true "Member data"
// @Success 201 {object} models.Member
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /teams/{id}/members [post]
func (h *TeamHandler) AddMember(c *gin.Context) {
	id, ok := parseID(c, "id", "team")
	if !ok {
		return
	}

	var req models.CreateMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	member, err := h.teamService.AddMember(c.Request.Context(), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, member)
}

// GetMember gets a member by ID
// @Summary Get member by ID
// @Tags members
// @Produce json
// @Param id path int true "Member ID"
// @Success 200 {object} models.Member
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /members/{id} [get]
func (h *TeamHandler) GetMember(c *gin.Context) {
	id, ok := parseID(c, "id", "member")
	if !ok {
		return
	}

	member, err := h.teamService.GetMemberByID(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, member)
}

// UpdateMember updates a member
// @Summary Update member
// @Tags members
// @Accept json
// @Produce json
// @Param id path int true "Member ID"
// @Param member body models.UpdateMemberRequest true "Member update data"
// @Success 200 {object} models.Member
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /members/{id} [put]
func (h *TeamHandler) UpdateMember(c *gin.Context) {
	id, ok := parseID(c, "id", "member")
	if !ok {
		return
	}

	var req models.UpdateMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	member, err := h.teamService.UpdateMember(c.Request.Context(), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, member)
}

// DeleteMember deletes a member
// @Summary Delete member
// @Tags members
// @Produce json
// @Param id path int true "Member ID"
// @Success 200 {object} map[string]string
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /members/{id} [delete]
func (h *TeamHandler) DeleteMember(c *gin.Context) {
	id, ok := parseID(c, "id", "member")
	if !ok {
		return
	}

	if err := h.teamService.DeleteMember(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Member deleted successfully"})
}
