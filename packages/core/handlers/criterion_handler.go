package handlers

import (
	"net/http"

	"core/models"
	"core/services"

	"github.com/gin-gonic/gin"
)

type CriterionHandler struct {
	criterionService *services.CriterionService
}

func NewCriterionHandler(criterionService *services.CriterionService) *CriterionHandler {
	return &CriterionHandler{
		criterionService: criterionService,
	}
}

// GetAllCriteria lists the criterion catalog
// @Summary List criteria
// @Description Get every scoring criterion with its default maximum
// @Tags criteria
// @Produce json
// @Success 200 {array} models.Criterion
// @Failure 500 {object} ErrorResponse
// @Router /criteria [get]
func (h *CriterionHandler) GetAllCriteria(c *gin.Context) {
	criteria, err := h.criterionService.GetAllCriteria(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, criteria)
}

// GetCriterion gets a criterion by ID
// @Summary Get criterion by ID
// @Tags criteria
// @Produce json
// @Param id path int true "Criterion ID"
// @Success 200 {object} models.Criterion
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /criteria/{id} [get]
func (h *CriterionHandler) GetCriterion(c *gin.Context) {
	id, ok := parseID(c, "id", "criterion")
	if !ok {
		return
	}

	criterion, err := h.criterionService.GetCriterionByID(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, criterion)
}

// CreateCriterion adds a criterion to the catalog
// @Summary Create criterion
// @Description Add a scoring criterion; its default maximum is copied into score sheets created later
// @Tags criteria
// @Accept json
// @Produce json
// @Param criterion body models.CreateCriterionRequest true "Criterion data"
// @Success 201 {object} models.Criterion
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /criteria [post]
func (h *CriterionHandler) CreateCriterion(c *gin.Context) {
	var req models.CreateCriterionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	criterion, err := h.criterionService.CreateCriterion(c.Request.Context(), req.Name, req.DefaultMax)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, criterion)
}

// UpdateCriterion updates a criterion
// @Summary Update criterion
// @Description Rename a criterion or change its default maximum. Existing score sheets keep their maximum.
// @Tags criteria
// @Accept json
// @Produce json
// @Param id path int true "Criterion ID"
// @Param criterion body models.UpdateCriterionRequest true "Criterion update data"
// @Success 200 {object} models.Criterion
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /criteria/{id} [put]
func (h *CriterionHandler) UpdateCriterion(c *gin.Context) {
	id, ok := parseID(c, "id", "criterion")
	if !ok {
		return
	}

	var req models.UpdateCriterionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	criterion, err := h.criterionService.UpdateCriterion(c.Request.Context(), id, req.Name, req.DefaultMax)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, criterion)
}

// DeleteCriterion deletes an unused criterion
// @Summary Delete criterion
// @Description Delete a criterion that no score sheet references
// @Tags criteria
// @Produce json
// @Param id path int true "Criterion ID"
// @Success 200 {object} map[string]string
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /criteria/{id} [delete]
func (h *CriterionHandler) DeleteCriterion(c *gin.Context) {
	id, ok := parseID(c, "id", "criterion")
	if !ok {
		return
	}

	if err := h.criterionService.DeleteCriterion(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Criterion deleted successfully"})
}
