package handler

import (
	"errors"
	"net/http"
	"strings"

	"geoquery/internal/model"
	"geoquery/internal/service"

	"github.com/gin-gonic/gin"
)

// QueryHandler handles question-answering HTTP requests
type QueryHandler struct {
	pipeline *service.Pipeline
}

// NewQueryHandler creates a new query handler
func NewQueryHandler(pipeline *service.Pipeline) *QueryHandler {
	return &QueryHandler{pipeline: pipeline}
}

// Query handles POST /api/v1/query
func (h *QueryHandler) Query(c *gin.Context) {
	var req model.QueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	question := strings.TrimSpace(req.Query)
	if question == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Query cannot be empty"})
		return
	}

	response, err := h.pipeline.Answer(c.Request.Context(), question)
	if err != nil {
		// An execution error is a backend problem, never disguised as an
		// empty answer.
		var execErr *service.ExecutionError
		if errors.As(err, &execErr) {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Query execution failed: " + execErr.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process query: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, response)
}
