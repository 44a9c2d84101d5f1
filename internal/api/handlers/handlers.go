package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"

	"github.com/johnmangawang-git/mci-delivery-tracker/internal/services"
)

// respondError maps service errors onto HTTP status codes.
func respondError(c *gin.Context, err error) {
	var verr *services.ValidationError
	if errors.As(err, &verr) {
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error": verr.Error(),
			"field": verr.Field,
		})
		return
	}

	var nferr *services.NotFoundError
	if errors.As(err, &nferr) {
		c.JSON(http.StatusNotFound, gin.H{"error": nferr.Error()})
		return
	}

	var perr *services.PartialCompletionError
	if errors.As(err, &perr) {
		c.JSON(http.StatusBadGateway, gin.H{
			"error":      perr.Error(),
			"drNumber":   perr.DRNumber,
			"proofSaved": perr.ProofSaved,
		})
		return
	}

	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}
