package handlers

import (
	"net/http"
	"strconv"

	"core/apperr"

	"github.com/gin-gonic/gin"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error string `json:"error" example:"round is closed"`
	Code  string `json:"code,omitempty" example:"round_closed"`
}

func statusFor(kind apperr.Kind) int {
	switch kind {
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindInvalidInput:
		return http.StatusBadRequest
	case apperr.KindInvalidState, apperr.KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func respondError(c *gin.Context, err error) {
	kind := apperr.KindOf(err)
	status := statusFor(kind)
	if kind == apperr.KindInternal {
		_ = c.Error(err)
		c.JSON(status, ErrorResponse{Error: "Internal server error"})
		return
	}
	c.JSON(status, ErrorResponse{Error: err.Error(), Code: string(apperr.CodeOf(err))})
}

// parseID reads a uint path parameter and answers 400 when it is malformed.
func parseID(c *gin.Context, param, label string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(param), 10, 32)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid " + label + " ID"})
		return 0, false
	}
	return uint(id), true
}
