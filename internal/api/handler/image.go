package handler

import (
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/timmy/picseek/internal/domain"
	"github.com/timmy/picseek/internal/service"
)

// ImageHandler handles image registration and catalog endpoints.
type ImageHandler struct {
	ingest *service.IngestService
	search *service.SearchService
}

// NewImageHandler creates a new image handler.
func NewImageHandler(ingest *service.IngestService, search *service.SearchService) *ImageHandler {
	return &ImageHandler{
		ingest: ingest,
		search: search,
	}
}

// readUpload pulls the "file" part out of a multipart form.
func readUpload(c *gin.Context) ([]byte, string, string, error) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return nil, "", "", domain.NewValidationError("file field is required")
	}

	f, err := fileHeader.Open()
	if err != nil {
		return nil, "", "", domain.NewValidationError("failed to open uploaded file: %v", err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, "", "", domain.NewValidationError("failed to read uploaded file: %v", err)
	}

	mimeType := fileHeader.Header.Get("Content-Type")
	return data, fileHeader.Filename, mimeType, nil
}

// splitTags parses a comma-separated tags form value.
func splitTags(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	tags := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			tags = append(tags, p)
		}
	}
	return tags
}

// CreateImage handles POST /api/v1/images (multipart form).
func (h *ImageHandler) CreateImage(c *gin.Context) {
	data, fileName, mimeType, err := readUpload(c)
	if err != nil {
		respondError(c, err)
		return
	}

	detail, err := h.ingest.CreateImage(c.Request.Context(), &service.CreateImageInput{
		Data:        data,
		FileName:    fileName,
		MimeType:    mimeType,
		DisplayName: c.PostForm("display_name"),
		Description: c.PostForm("description"),
		Tags:        splitTags(c.PostForm("tags")),
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, detail)
}

// GetImage handles GET /api/v1/images/:id.
func (h *ImageHandler) GetImage(c *gin.Context) {
	id := c.Param("id")
	detail, err := h.search.GetImage(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, detail)
}

// ListImages handles GET /api/v1/images.
func (h *ImageHandler) ListImages(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "0"))
	tag := c.Query("tag")

	result, err := h.search.ListImages(c.Request.Context(), page, pageSize, tag)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

type updateImageRequest struct {
	DisplayName *string  `json:"display_name"`
	Description *string  `json:"description"`
	Tags        []string `json:"tags"`
}

// UpdateImage handles PATCH /api/v1/images/:id.
func (h *ImageHandler) UpdateImage(c *gin.Context) {
	id := c.Param("id")

	var req updateImageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, domain.NewValidationError("invalid request body: %v", err))
		return
	}

	detail, err := h.ingest.UpdateImage(c.Request.Context(), id, &service.UpdateImageInput{
		DisplayName: req.DisplayName,
		Description: req.Description,
		Tags:        req.Tags,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, detail)
}

// DeleteImage handles DELETE /api/v1/images/:id.
func (h *ImageHandler) DeleteImage(c *gin.Context) {
	id := c.Param("id")
	if err := h.ingest.DeleteImage(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
