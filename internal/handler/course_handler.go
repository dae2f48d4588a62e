package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/chendurkumaran/Edu-resource-sub000/internal/models"
	"github.com/chendurkumaran/Edu-resource-sub000/internal/service"
	appErrors "github.com/chendurkumaran/Edu-resource-sub000/pkg/errors"
	"github.com/chendurkumaran/Edu-resource-sub000/pkg/response"
)

// CourseHandler exposes catalog endpoints: courses, modules and
// assignments.
type CourseHandler struct {
	courses *service.CourseService
}

// NewCourseHandler constructs CourseHandler.
func NewCourseHandler(courses *service.CourseService) *CourseHandler {
	return &CourseHandler{courses: courses}
}

// List godoc
// @Summary List courses
// @Tags Courses
// @Produce json
// @Param search query string false "Search in title and code"
// @Param instructorId query string false "Filter by instructor"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /courses [get]
func (h *CourseHandler) List(c *gin.Context) {
	var filter models.CourseFilter
	filter.Search = c.Query("search")
	filter.InstructorID = c.Query("instructorId")
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}
	filter.SortBy = c.Query("sort")
	filter.SortOrder = c.Query("order")

	courses, total, err := h.courses.List(c.Request.Context(), claimsFromContext(c), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	pagination := models.NewPagination(filter.Page, filter.PageSize, total)
	response.JSON(c, http.StatusOK, courses, &pagination)
}

// Get godoc
// @Summary Course detail with ordered modules
// @Tags Courses
// @Produce json
// @Param id path string true "Course ID"
// @Success 200 {object} response.Envelope
// @Router /courses/{id} [get]
func (h *CourseHandler) Get(c *gin.Context) {
	detail, err := h.courses.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, detail, nil)
}

// Create godoc
// @Summary Create a course
// @Tags Courses
// @Accept json
// @Produce json
// @Param payload body models.CreateCourseRequest true "Course payload"
// @Success 201 {object} response.Envelope
// @Security BearerAuth
// @Router /courses [post]
func (h *CourseHandler) Create(c *gin.Context) {
	var req models.CreateCourseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	course, err := h.courses.Create(c.Request.Context(), claimsFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, course)
}

// Approve godoc
// @Summary Approve or revoke a course for enrollment
// @Tags Courses
// @Accept json
// @Produce json
// @Param id path string true "Course ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /courses/{id}/approval [put]
func (h *CourseHandler) Approve(c *gin.Context) {
	var req struct {
		Approved bool `json:"approved"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	course, err := h.courses.SetApproval(c.Request.Context(), c.Param("id"), req.Approved)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, course, nil)
}

// AddModule godoc
// @Summary Append a module to a course
// @Tags Modules
// @Accept json
// @Produce json
// @Param id path string true "Course ID"
// @Param payload body models.CreateModuleRequest true "Module payload"
// @Success 201 {object} response.Envelope
// @Security BearerAuth
// @Router /courses/{id}/modules [post]
func (h *CourseHandler) AddModule(c *gin.Context) {
	var req models.CreateModuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	module, err := h.courses.AddModule(c.Request.Context(), claimsFromContext(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, module)
}

// SetModuleBlocking godoc
// @Summary Toggle the assignment-blocking flag on a module
// @Tags Modules
// @Accept json
// @Produce json
// @Param moduleId path string true "Module ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /modules/{moduleId}/blocking [put]
func (h *CourseHandler) SetModuleBlocking(c *gin.Context) {
	var req struct {
		Blocking bool `json:"blocking"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	module, err := h.courses.SetModuleBlocking(c.Request.Context(), claimsFromContext(c), c.Param("moduleId"), req.Blocking)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, module, nil)
}

// AttachAssignment godoc
// @Summary Reference an assignment from a module's gating list
// @Tags Modules
// @Produce json
// @Param moduleId path string true "Module ID"
// @Param assignmentId path string true "Assignment ID"
// @Success 204
// @Security BearerAuth
// @Router /modules/{moduleId}/assignments/{assignmentId} [put]
func (h *CourseHandler) AttachAssignment(c *gin.Context) {
	if err := h.courses.AttachAssignment(c.Request.Context(), claimsFromContext(c), c.Param("moduleId"), c.Param("assignmentId")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// DetachAssignment godoc
// @Summary Remove an assignment reference from a module
// @Tags Modules
// @Produce json
// @Param moduleId path string true "Module ID"
// @Param assignmentId path string true "Assignment ID"
// @Success 204
// @Security BearerAuth
// @Router /modules/{moduleId}/assignments/{assignmentId} [delete]
func (h *CourseHandler) DetachAssignment(c *gin.Context) {
	if err := h.courses.DetachAssignment(c.Request.Context(), claimsFromContext(c), c.Param("moduleId"), c.Param("assignmentId")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// CreateAssignment godoc
// @Summary Create an assignment within a course
// @Tags Assignments
// @Accept json
// @Produce json
// @Param id path string true "Course ID"
// @Param payload body models.CreateAssignmentRequest true "Assignment payload"
// @Success 201 {object} response.Envelope
// @Security BearerAuth
// @Router /courses/{id}/assignments [post]
func (h *CourseHandler) CreateAssignment(c *gin.Context) {
	var req models.CreateAssignmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	assignment, err := h.courses.CreateAssignment(c.Request.Context(), claimsFromContext(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, assignment)
}

// ListAssignments godoc
// @Summary List course assignments
// @Tags Assignments
// @Produce json
// @Param id path string true "Course ID"
// @Success 200 {object} response.Envelope
// @Router /courses/{id}/assignments [get]
func (h *CourseHandler) ListAssignments(c *gin.Context) {
	assignments, err := h.courses.ListAssignments(c.Request.Context(), claimsFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, assignments, nil)
}

// GetAssignment godoc
// @Summary Fetch a single assignment
// @Tags Assignments
// @Produce json
// @Param assignmentId path string true "Assignment ID"
// @Success 200 {object} response.Envelope
// @Router /assignments/{assignmentId} [get]
func (h *CourseHandler) GetAssignment(c *gin.Context) {
	assignment, err := h.courses.GetAssignment(c.Request.Context(), claimsFromContext(c), c.Param("assignmentId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, assignment, nil)
}

// PublishAssignment godoc
// @Summary Publish or hide an assignment
// @Tags Assignments
// @Accept json
// @Produce json
// @Param assignmentId path string true "Assignment ID"
// @Success 204
// @Security BearerAuth
// @Router /assignments/{assignmentId}/published [put]
func (h *CourseHandler) PublishAssignment(c *gin.Context) {
	var req struct {
		Published bool `json:"published"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	if err := h.courses.SetAssignmentPublished(c.Request.Context(), claimsFromContext(c), c.Param("assignmentId"), req.Published); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
