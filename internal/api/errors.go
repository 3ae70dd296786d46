package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"flavoriz-backend-go/internal/core"
)

// errorStatuses maps core errors to HTTP status codes. Order matters only for
// errors that wrap more than one sentinel.
var errorStatuses = []struct {
	err    error
	status int
}{
	{core.ErrUnauthenticated, http.StatusUnauthorized},
	{core.ErrInvalidCredentials, http.StatusUnauthorized},
	{core.ErrForbidden, http.StatusForbidden},
	{core.ErrPlanNotFound, http.StatusNotFound},
	{core.ErrUserNotFound, http.StatusNotFound},
	{core.ErrSavedMealNotFound, http.StatusNotFound},
	{core.ErrDuplicateRecipe, http.StatusConflict},
	{core.ErrAlreadyCollaborator, http.StatusConflict},
	{core.ErrCollaboratorIsOwner, http.StatusConflict},
	{core.ErrConcurrentModification, http.StatusConflict},
	{core.ErrEmailTaken, http.StatusConflict},
	{core.ErrInvalidInput, http.StatusBadRequest},
	{core.ErrQueryTooShort, http.StatusBadRequest},
}

// respondError writes the status and ErrorResponse for err.
func respondError(c *gin.Context, logger *zap.Logger, err error) {
	for _, m := range errorStatuses {
		if errors.Is(err, m.err) {
			resp := ErrorResponse{Error: m.err.Error()}
			if details := err.Error(); details != resp.Error {
				resp.Details = details
			}
			c.JSON(m.status, resp)
			return
		}
	}

	logger.Error("Unhandled error serving request",
		zap.String("method", c.Request.Method),
		zap.String("path", c.Request.URL.Path),
		zap.Error(err),
	)
	c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "An unexpected internal server error occurred."})
}

// bindJSON decodes the request body, answering 400 on failure.
func bindJSON(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request payload", Details: err.Error()})
		return false
	}
	return true
}
