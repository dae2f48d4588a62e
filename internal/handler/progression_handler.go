package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/chendurkumaran/Edu-resource-sub000/internal/models"
	"github.com/chendurkumaran/Edu-resource-sub000/internal/service"
	appErrors "github.com/chendurkumaran/Edu-resource-sub000/pkg/errors"
	"github.com/chendurkumaran/Edu-resource-sub000/pkg/response"
)

// ProgressionHandler exposes the module-unlock view.
type ProgressionHandler struct {
	progression *service.ProgressionService
}

// NewProgressionHandler constructs ProgressionHandler.
func NewProgressionHandler(progression *service.ProgressionService) *ProgressionHandler {
	return &ProgressionHandler{progression: progression}
}

// Get godoc
// @Summary Module unlock state for a student in a course
// @Tags Progression
// @Produce json
// @Param id path string true "Course ID"
// @Param studentId query string false "Student ID (staff only, defaults to caller)"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /courses/{id}/progression [get]
func (h *ProgressionHandler) Get(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	studentID := claims.UserID
	if target := c.Query("studentId"); target != "" && target != claims.UserID {
		if claims.Role == models.RoleStudent {
			response.Error(c, appErrors.ErrForbidden)
			return
		}
		studentID = target
	}

	progression, err := h.progression.Evaluate(c.Request.Context(), claims, c.Param("id"), studentID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, progression, nil)
}

// ModuleAccess godoc
// @Summary Whether the caller may open a specific module
// @Tags Progression
// @Produce json
// @Param id path string true "Course ID"
// @Param moduleId path string true "Module ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /courses/{id}/modules/{moduleId}/access [get]
func (h *ProgressionHandler) ModuleAccess(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	unlocked, err := h.progression.CanAccessModule(c.Request.Context(), claims, c.Param("id"), c.Param("moduleId"), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"module_id": c.Param("moduleId"), "unlocked": unlocked}, nil)
}
