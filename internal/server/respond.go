package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"reelpress/internal/api"
	"reelpress/internal/services"
)

func respondError(c *gin.Context, status int, code, message string) {
	c.JSON(status, api.ErrorEnvelope{Error: api.ErrorBody{Code: code, Message: message}})
}

// respondServiceError maps classified errors onto HTTP statuses. Anything
// without a recognized marker is an internal error.
func respondServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrValidation):
		respondError(c, http.StatusBadRequest, "validation", err.Error())
	case errors.Is(err, services.ErrAuth):
		respondError(c, http.StatusUnauthorized, "unauthorized", err.Error())
	case errors.Is(err, services.ErrNotFound):
		respondError(c, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, services.ErrConfiguration):
		respondError(c, http.StatusServiceUnavailable, "configuration", err.Error())
	default:
		respondError(c, http.StatusInternalServerError, "internal", err.Error())
	}
}
