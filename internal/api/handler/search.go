package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/timmy/picseek/internal/service"
)

// SearchHandler handles text and image search endpoints.
type SearchHandler struct {
	search *service.SearchService
}

// NewSearchHandler creates a new search handler.
func NewSearchHandler(search *service.SearchService) *SearchHandler {
	return &SearchHandler{search: search}
}

// TextSearch handles GET /api/v1/search/text.
func (h *SearchHandler) TextSearch(c *gin.Context) {
	query := c.Query("q")
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "0"))

	items, err := h.search.SearchByText(c.Request.Context(), query, limit)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"query":   query,
		"results": items,
		"count":   len(items),
	})
}

// ImageSearch handles POST /api/v1/search/image (multipart form).
func (h *SearchHandler) ImageSearch(c *gin.Context) {
	data, _, mimeType, err := readUpload(c)
	if err != nil {
		respondError(c, err)
		return
	}

	limit, _ := strconv.Atoi(c.DefaultPostForm("limit", c.DefaultQuery("limit", "0")))

	matches, err := h.search.SearchByImage(c.Request.Context(), data, mimeType, limit)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"results": matches,
		"count":   len(matches),
	})
}
