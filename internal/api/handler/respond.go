package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/timmy/picseek/internal/domain"
)

// respondError maps domain error categories onto HTTP status codes:
// validation failures are the caller's fault, missing ids are 404, and
// everything else is an internal failure.
func respondError(c *gin.Context, err error) {
	switch {
	case domain.IsValidation(err):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case domain.IsNotFound(err):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
