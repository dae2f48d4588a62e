package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/chendurkumaran/Edu-resource-sub000/internal/service"
	"github.com/chendurkumaran/Edu-resource-sub000/pkg/response"
)

// ExportHandler serves gradebook downloads.
type ExportHandler struct {
	exports *service.ExportService
}

// NewExportHandler constructs ExportHandler.
func NewExportHandler(exports *service.ExportService) *ExportHandler {
	return &ExportHandler{exports: exports}
}

// Gradebook godoc
// @Summary Download the course gradebook
// @Tags Exports
// @Produce octet-stream
// @Param id path string true "Course ID"
// @Param format query string false "csv or pdf" default(csv)
// @Success 200 {file} binary
// @Security BearerAuth
// @Router /courses/{id}/gradebook [get]
func (h *ExportHandler) Gradebook(c *gin.Context) {
	format := service.ExportFormat(c.DefaultQuery("format", "csv"))
	data, filename, mime, err := h.exports.Gradebook(c.Request.Context(), claimsFromContext(c), c.Param("id"), format)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(200, mime, data)
}
