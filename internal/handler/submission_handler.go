package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/chendurkumaran/Edu-resource-sub000/internal/models"
	"github.com/chendurkumaran/Edu-resource-sub000/internal/service"
	appErrors "github.com/chendurkumaran/Edu-resource-sub000/pkg/errors"
	"github.com/chendurkumaran/Edu-resource-sub000/pkg/response"
	"github.com/chendurkumaran/Edu-resource-sub000/pkg/storage"
)

// SubmissionHandler exposes the submission lifecycle endpoints.
type SubmissionHandler struct {
	submissions *service.SubmissionService
	attachments *storage.AttachmentStore
	signer      *storage.SignedURLSigner
}

// NewSubmissionHandler constructs SubmissionHandler. attachments and
// signer may be nil when file downloads are disabled.
func NewSubmissionHandler(submissions *service.SubmissionService, attachments *storage.AttachmentStore, signer *storage.SignedURLSigner) *SubmissionHandler {
	return &SubmissionHandler{submissions: submissions, attachments: attachments, signer: signer}
}

// Submit godoc
// @Summary Submit work for an assignment
// @Tags Submissions
// @Accept json
// @Produce json
// @Param payload body models.SubmitRequest true "Submission payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope "Already submitted or window closed"
// @Security BearerAuth
// @Router /submissions [post]
func (h *SubmissionHandler) Submit(c *gin.Context) {
	var req models.SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	submission, err := h.submissions.Submit(c.Request.Context(), claims, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, submission)
}

// Edit godoc
// @Summary Replace the content of the caller's submission
// @Tags Submissions
// @Accept json
// @Produce json
// @Param id path string true "Submission ID"
// @Param payload body models.EditSubmissionRequest true "New content"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /submissions/{id} [put]
func (h *SubmissionHandler) Edit(c *gin.Context) {
	var req models.EditSubmissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	submission, err := h.submissions.Edit(c.Request.Context(), claims, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, submission, nil)
}

// Get godoc
// @Summary Submission detail
// @Tags Submissions
// @Produce json
// @Param id path string true "Submission ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /submissions/{id} [get]
func (h *SubmissionHandler) Get(c *gin.Context) {
	submission, err := h.submissions.Get(c.Request.Context(), claimsFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, submission, nil)
}

// GetMine godoc
// @Summary The caller's submission for an assignment
// @Tags Submissions
// @Produce json
// @Param assignmentId path string true "Assignment ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /assignments/{assignmentId}/submission [get]
func (h *SubmissionHandler) GetMine(c *gin.Context) {
	submission, err := h.submissions.GetForAssignment(c.Request.Context(), claimsFromContext(c), c.Param("assignmentId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, submission, nil)
}

// ListByAssignment godoc
// @Summary All submissions for an assignment (staff)
// @Tags Submissions
// @Produce json
// @Param assignmentId path string true "Assignment ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /assignments/{assignmentId}/submissions [get]
func (h *SubmissionHandler) ListByAssignment(c *gin.Context) {
	submissions, err := h.submissions.ListByAssignment(c.Request.Context(), claimsFromContext(c), c.Param("assignmentId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, submissions, nil)
}

// Grade godoc
// @Summary Record or overwrite the grade on a submission
// @Tags Submissions
// @Accept json
// @Produce json
// @Param id path string true "Submission ID"
// @Param payload body models.GradeRequest true "Grade payload"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /submissions/{id}/grade [put]
func (h *SubmissionHandler) Grade(c *gin.Context) {
	var req models.GradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	submission, grading, err := h.submissions.Grade(c.Request.Context(), claimsFromContext(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, submission, nil, map[string]interface{}{"grading": grading})
}

// GradingContext godoc
// @Summary Lateness facts for grading a submission
// @Tags Submissions
// @Produce json
// @Param id path string true "Submission ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /submissions/{id}/grading-context [get]
func (h *SubmissionHandler) GradingContext(c *gin.Context) {
	grading, err := h.submissions.GradingContextFor(c.Request.Context(), claimsFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, grading, nil)
}

// Delete godoc
// @Summary Delete a submission so the student can resubmit (staff)
// @Tags Submissions
// @Produce json
// @Param id path string true "Submission ID"
// @Success 204
// @Security BearerAuth
// @Router /submissions/{id} [delete]
func (h *SubmissionHandler) Delete(c *gin.Context) {
	if err := h.submissions.Delete(c.Request.Context(), claimsFromContext(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// AttachmentURL godoc
// @Summary Issue a short-lived signed download URL for an attachment
// @Tags Submissions
// @Produce json
// @Param id path string true "Submission ID"
// @Param locator query string true "Attachment storage locator"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /submissions/{id}/attachment-url [get]
func (h *SubmissionHandler) AttachmentURL(c *gin.Context) {
	if h.signer == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "attachment downloads disabled"))
		return
	}
	submissionID := c.Param("id")
	locator := c.Query("locator")

	submission, err := h.submissions.Get(c.Request.Context(), claimsFromContext(c), submissionID)
	if err != nil {
		response.Error(c, err)
		return
	}
	owned := false
	for _, a := range submission.Attachments {
		if a.Kind == models.AttachmentKindFile && a.StorageLocator == locator {
			owned = true
			break
		}
	}
	if !owned {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "attachment not found on submission"))
		return
	}

	token, expiresAt, err := h.signer.Generate(submissionID, locator)
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign url"))
		return
	}
	response.JSON(c, http.StatusOK, gin.H{
		"url":        "/downloads/" + token,
		"expires_at": expiresAt,
	}, nil)
}

// Download serves a previously signed attachment token. The token itself
// authorizes the request, so no JWT is required.
func (h *SubmissionHandler) Download(c *gin.Context) {
	if h.signer == nil || h.attachments == nil {
		response.Error(c, appErrors.ErrNotFound)
		return
	}
	_, locator, _, err := h.signer.Parse(c.Param("token"))
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "invalid or expired download token"))
		return
	}
	path, err := h.attachments.Path(locator)
	if err != nil {
		response.Error(c, appErrors.ErrNotFound)
		return
	}
	c.File(path)
}
