package service

import (
	"context"
	"database/sql"
	"errors"
	"math"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/chendurkumaran/Edu-resource-sub000/internal/models"
	"github.com/chendurkumaran/Edu-resource-sub000/internal/repository"
	appErrors "github.com/chendurkumaran/Edu-resource-sub000/pkg/errors"
	"github.com/chendurkumaran/Edu-resource-sub000/pkg/storage"
)

type submissionAssignmentStore interface {
	FindByID(ctx context.Context, id string) (*models.Assignment, error)
}

type submissionCourseStore interface {
	FindByID(ctx context.Context, id string) (*models.Course, error)
}

type submissionStore interface {
	FindByID(ctx context.Context, id string) (*models.Submission, error)
	FindByStudentAndAssignment(ctx context.Context, studentID, assignmentID string) (*models.Submission, error)
	ListByAssignment(ctx context.Context, assignmentID string) ([]models.Submission, error)
	Create(ctx context.Context, submission *models.Submission) error
	UpdateContent(ctx context.Context, id string, textBody *string) error
	UpdateGrade(ctx context.Context, id string, points float64, feedback *string, gradedBy string, gradedAt time.Time) error
	Delete(ctx context.Context, id string) error
	ListAttachments(ctx context.Context, submissionID string) ([]models.Attachment, error)
	ReplaceAttachments(ctx context.Context, submissionID string, attachments []models.Attachment) error
}

type submissionEnrollmentStore interface {
	FindByStudentAndCourse(ctx context.Context, studentID, courseID string) (*models.Enrollment, error)
}

type attachmentReleaser interface {
	Release(locators []string) error
}

type progressionInvalidator interface {
	Invalidate(ctx context.Context, courseID, studentID string)
}

// SubmissionService owns the submission lifecycle. Two invariants drive
// the implementation: lateness is evaluated exactly once, at the first
// submission instant, and the content path and the grading path write
// disjoint column sets so neither can clobber the other.
type SubmissionService struct {
	assignments submissionAssignmentStore
	courses     submissionCourseStore
	submissions submissionStore
	enrollments submissionEnrollmentStore
	storage     attachmentReleaser
	progression progressionInvalidator
	notifier    eventNotifier
	metrics     *MetricsService
	validator   *validator.Validate
	logger      *zap.Logger
	now         func() time.Time
}

// NewSubmissionService constructs the service. storage, progression,
// notifier and metrics are optional collaborators; nil disables the
// respective hook.
func NewSubmissionService(
	assignments submissionAssignmentStore,
	courses submissionCourseStore,
	submissions submissionStore,
	enrollments submissionEnrollmentStore,
	storage attachmentReleaser,
	progression progressionInvalidator,
	notifier eventNotifier,
	metrics *MetricsService,
	logger *zap.Logger,
) *SubmissionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SubmissionService{
		assignments: assignments,
		courses:     courses,
		submissions: submissions,
		enrollments: enrollments,
		storage:     storage,
		progression: progression,
		notifier:    notifier,
		metrics:     metrics,
		validator:   validator.New(),
		logger:      logger,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Submit creates the single submission for (student, assignment). The row
// records whether it arrived late; that flag is frozen from here on.
func (s *SubmissionService) Submit(ctx context.Context, actor *models.JWTClaims, req models.SubmitRequest) (*models.Submission, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error())
	}

	assignment, course, err := s.loadPublishedAssignment(ctx, req.AssignmentID)
	if err != nil {
		return nil, err
	}
	if err := s.checkStudentAccess(ctx, actor, course); err != nil {
		return nil, err
	}

	if existing, err := s.submissions.FindByStudentAndAssignment(ctx, actor.UserID, assignment.ID); err == nil && existing != nil {
		return nil, appErrors.ErrAlreadySubmitted
	} else if err != nil && err != sql.ErrNoRows {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check existing submission")
	}

	attachments, err := buildAttachments(req.Attachments)
	if err != nil {
		return nil, err
	}
	if err := validateContentType(assignment, req.TextBody, attachments); err != nil {
		return nil, err
	}
	if err := validateAttachmentConstraints(assignment, attachments); err != nil {
		return nil, err
	}

	now := s.now()
	isLate := assignment.PastDue(now)
	if isLate && !assignment.AllowLateSubmission {
		return nil, appErrors.ErrSubmissionClosed
	}

	submission := &models.Submission{
		AssignmentID: assignment.ID,
		StudentID:    actor.UserID,
		TextBody:     req.TextBody,
		SubmittedAt:  now,
		IsLate:       isLate,
		Status:       models.SubmissionStatusSubmitted,
	}
	if err := s.submissions.Create(ctx, submission); err != nil {
		// Two first submissions racing past the existence check both reach
		// the INSERT; the unique index picks the loser.
		if errors.Is(err, repository.ErrDuplicateSubmission) {
			return nil, appErrors.ErrAlreadySubmitted
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create submission")
	}
	if len(attachments) > 0 {
		if err := s.submissions.ReplaceAttachments(ctx, submission.ID, attachments); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store attachments")
		}
		submission.Attachments = attachments
	}

	s.metrics.RecordSubmission(isLate)
	s.logger.Info("submission received",
		zap.String("submission_id", submission.ID),
		zap.String("assignment_id", assignment.ID),
		zap.String("student_id", actor.UserID),
		zap.Bool("is_late", isLate))

	s.afterWrite(ctx, course, actor.UserID)
	if s.notifier != nil {
		s.notifier.Notify(ctx, course.InstructorID, models.EventSubmissionReceived, map[string]interface{}{
			"submission_id": submission.ID,
			"assignment_id": assignment.ID,
			"student_id":    actor.UserID,
			"is_late":       isLate,
		})
	}
	return submission, nil
}

// Edit replaces the content of the caller's submission. Only the content
// columns are written: submitted_at, is_late and any grade stay exactly as
// they were, and editing is refused once the submission has been graded.
func (s *SubmissionService) Edit(ctx context.Context, actor *models.JWTClaims, submissionID string, req models.EditSubmissionRequest) (*models.Submission, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error())
	}

	submission, err := s.submissions.FindByID(ctx, submissionID)
	if err != nil {
		return nil, appErrors.ErrNotFound
	}
	if submission.StudentID != actor.UserID {
		return nil, appErrors.ErrForbidden
	}
	if submission.Status != models.SubmissionStatusSubmitted {
		return nil, appErrors.Clone(appErrors.ErrConflict, "submission has been graded and can no longer be edited")
	}

	assignment, course, err := s.loadPublishedAssignment(ctx, submission.AssignmentID)
	if err != nil {
		return nil, err
	}
	if assignment.PastDue(s.now()) && !assignment.AllowLateSubmission {
		return nil, appErrors.ErrSubmissionClosed
	}

	attachments, err := buildAttachments(req.Attachments)
	if err != nil {
		return nil, err
	}
	if err := validateContentType(assignment, req.TextBody, attachments); err != nil {
		return nil, err
	}
	if err := validateAttachmentConstraints(assignment, attachments); err != nil {
		return nil, err
	}

	previous, err := s.submissions.ListAttachments(ctx, submission.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load attachments")
	}

	if err := s.submissions.UpdateContent(ctx, submission.ID, req.TextBody); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update submission")
	}
	if err := s.submissions.ReplaceAttachments(ctx, submission.ID, attachments); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to replace attachments")
	}
	s.releaseDropped(previous, attachments, submission.ID)

	submission.TextBody = req.TextBody
	submission.Attachments = attachments
	submission.UpdatedAt = s.now()

	s.afterWrite(ctx, course, actor.UserID)
	return submission, nil
}

// Grade records (or overwrites) the grade for a submission. Entries above
// the assignment's total are clamped to the total; negative entries are
// rejected. Only status and grade columns are written, so a concurrent
// content edit is never lost.
func (s *SubmissionService) Grade(ctx context.Context, actor *models.JWTClaims, submissionID string, req models.GradeRequest) (*models.Submission, *models.GradingContext, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error())
	}

	submission, err := s.submissions.FindByID(ctx, submissionID)
	if err != nil {
		return nil, nil, appErrors.ErrNotFound
	}
	assignment, course, err := s.loadAssignment(ctx, submission.AssignmentID)
	if err != nil {
		return nil, nil, err
	}
	if err := requireCourseStaff(actor, course); err != nil {
		return nil, nil, err
	}

	if req.Points < 0 {
		return nil, nil, appErrors.ErrGradeOutOfRange
	}
	points := req.Points
	if points > assignment.TotalPoints {
		points = assignment.TotalPoints
	}

	gradedAt := s.now()
	if err := s.submissions.UpdateGrade(ctx, submission.ID, points, req.Feedback, actor.UserID, gradedAt); err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to grade submission")
	}

	submission.Status = models.SubmissionStatusGraded
	submission.GradePoints = &points
	submission.GradeFeedback = req.Feedback
	submission.GradedAt = &gradedAt
	submission.GradedBy = &actor.UserID
	submission.HydrateGrade()

	grading := buildGradingContext(assignment, submission)

	s.logger.Info("submission graded",
		zap.String("submission_id", submission.ID),
		zap.String("graded_by", actor.UserID),
		zap.Float64("points", points))

	if s.notifier != nil {
		s.notifier.Notify(ctx, submission.StudentID, models.EventSubmissionGraded, map[string]interface{}{
			"submission_id": submission.ID,
			"assignment_id": assignment.ID,
			"points":        points,
			"total_points":  assignment.TotalPoints,
		})
	}
	return submission, grading, nil
}

// Get returns a submission with attachments and grade view. Students see
// only their own; course staff see all submissions for their course.
func (s *SubmissionService) Get(ctx context.Context, actor *models.JWTClaims, submissionID string) (*models.Submission, error) {
	submission, err := s.submissions.FindByID(ctx, submissionID)
	if err != nil {
		return nil, appErrors.ErrNotFound
	}
	if submission.StudentID != actor.UserID {
		_, course, err := s.loadAssignment(ctx, submission.AssignmentID)
		if err != nil {
			return nil, err
		}
		if err := requireCourseStaff(actor, course); err != nil {
			return nil, err
		}
	}
	attachments, err := s.submissions.ListAttachments(ctx, submissionID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load attachments")
	}
	submission.Attachments = attachments
	submission.HydrateGrade()
	return submission, nil
}

// GetForAssignment returns the caller's submission for an assignment, or
// NotFound when none exists yet.
func (s *SubmissionService) GetForAssignment(ctx context.Context, actor *models.JWTClaims, assignmentID string) (*models.Submission, error) {
	submission, err := s.submissions.FindByStudentAndAssignment(ctx, actor.UserID, assignmentID)
	if err != nil {
		return nil, appErrors.ErrNotFound
	}
	return s.Get(ctx, actor, submission.ID)
}

// ListByAssignment returns all submissions for an assignment. Staff only.
func (s *SubmissionService) ListByAssignment(ctx context.Context, actor *models.JWTClaims, assignmentID string) ([]models.Submission, error) {
	_, course, err := s.loadAssignment(ctx, assignmentID)
	if err != nil {
		return nil, err
	}
	if err := requireCourseStaff(actor, course); err != nil {
		return nil, err
	}
	submissions, err := s.submissions.ListByAssignment(ctx, assignmentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list submissions")
	}
	for i := range submissions {
		submissions[i].HydrateGrade()
	}
	return submissions, nil
}

// Delete removes a submission and releases its stored file attachments.
// Staff only; used when a submission must be reset so the student can
// resubmit.
func (s *SubmissionService) Delete(ctx context.Context, actor *models.JWTClaims, submissionID string) error {
	submission, err := s.submissions.FindByID(ctx, submissionID)
	if err != nil {
		return appErrors.ErrNotFound
	}
	_, course, err := s.loadAssignment(ctx, submission.AssignmentID)
	if err != nil {
		return err
	}
	if err := requireCourseStaff(actor, course); err != nil {
		return err
	}

	attachments, err := s.submissions.ListAttachments(ctx, submissionID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load attachments")
	}
	if err := s.submissions.Delete(ctx, submissionID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete submission")
	}

	if s.storage != nil {
		locators := make([]string, 0, len(attachments))
		for _, a := range attachments {
			if a.Kind == models.AttachmentKindFile && a.StorageLocator != "" {
				locators = append(locators, a.StorageLocator)
			}
		}
		if len(locators) > 0 {
			if err := s.storage.Release(locators); err != nil {
				s.logger.Warn("failed to release attachment files", zap.String("submission_id", submissionID), zap.Error(err))
			}
		}
	}

	s.afterWrite(ctx, course, submission.StudentID)
	return nil
}

// GradingContextFor exposes the lateness facts for a submission without
// writing anything. Instructors call this before entering a grade.
func (s *SubmissionService) GradingContextFor(ctx context.Context, actor *models.JWTClaims, submissionID string) (*models.GradingContext, error) {
	submission, err := s.submissions.FindByID(ctx, submissionID)
	if err != nil {
		return nil, appErrors.ErrNotFound
	}
	assignment, course, err := s.loadAssignment(ctx, submission.AssignmentID)
	if err != nil {
		return nil, err
	}
	if err := requireCourseStaff(actor, course); err != nil {
		return nil, err
	}
	return buildGradingContext(assignment, submission), nil
}

// releaseDropped reclaims stored files that an edit removed from the
// attachment list. Deletion failures are logged, not surfaced; the row
// update already committed.
func (s *SubmissionService) releaseDropped(previous, current []models.Attachment, submissionID string) {
	if s.storage == nil {
		return
	}
	kept := make(map[string]bool, len(current))
	for _, a := range current {
		if a.Kind == models.AttachmentKindFile && a.StorageLocator != "" {
			kept[a.StorageLocator] = true
		}
	}
	var dropped []string
	for _, a := range previous {
		if a.Kind == models.AttachmentKindFile && a.StorageLocator != "" && !kept[a.StorageLocator] {
			dropped = append(dropped, a.StorageLocator)
		}
	}
	if len(dropped) == 0 {
		return
	}
	if err := s.storage.Release(dropped); err != nil {
		s.logger.Warn("failed to release attachment files", zap.String("submission_id", submissionID), zap.Error(err))
	}
}

func (s *SubmissionService) afterWrite(ctx context.Context, course *models.Course, studentID string) {
	if s.progression != nil {
		s.progression.Invalidate(ctx, course.ID, studentID)
	}
}

func (s *SubmissionService) loadAssignment(ctx context.Context, assignmentID string) (*models.Assignment, *models.Course, error) {
	assignment, err := s.assignments.FindByID(ctx, assignmentID)
	if err != nil {
		return nil, nil, appErrors.ErrNotFound
	}
	course, err := s.courses.FindByID(ctx, assignment.CourseID)
	if err != nil {
		return nil, nil, appErrors.ErrNotFound
	}
	return assignment, course, nil
}

func (s *SubmissionService) loadPublishedAssignment(ctx context.Context, assignmentID string) (*models.Assignment, *models.Course, error) {
	assignment, course, err := s.loadAssignment(ctx, assignmentID)
	if err != nil {
		return nil, nil, err
	}
	if !assignment.IsPublished {
		return nil, nil, appErrors.ErrNotFound
	}
	if !course.OpenForEnrollment() {
		return nil, nil, appErrors.ErrCourseNotApproved
	}
	return assignment, course, nil
}

func (s *SubmissionService) checkStudentAccess(ctx context.Context, actor *models.JWTClaims, course *models.Course) error {
	if actor.Role != models.RoleStudent {
		return appErrors.Clone(appErrors.ErrForbidden, "only students can submit")
	}
	if course.IsFree {
		return nil
	}
	enrollment, err := s.enrollments.FindByStudentAndCourse(ctx, actor.UserID, course.ID)
	if err != nil || !enrollment.Active() {
		return appErrors.Clone(appErrors.ErrForbidden, "not enrolled in this course")
	}
	return nil
}

func requireCourseStaff(actor *models.JWTClaims, course *models.Course) error {
	if actor.Role == models.RoleAdmin || actor.UserID == course.InstructorID {
		return nil
	}
	return appErrors.ErrForbidden
}

func buildAttachments(inputs []models.AttachmentInput) ([]models.Attachment, error) {
	attachments := make([]models.Attachment, 0, len(inputs))
	for _, in := range inputs {
		switch in.Kind {
		case models.AttachmentKindFile:
			if in.StorageLocator == "" {
				return nil, appErrors.Clone(appErrors.ErrInvalidAttachment, "file attachment requires a storage locator")
			}
			cleaned, err := storage.CleanLocator(in.StorageLocator)
			if err != nil {
				return nil, appErrors.Clone(appErrors.ErrInvalidAttachment, "storage locator must be a relative path inside the upload area")
			}
			in.StorageLocator = cleaned
		case models.AttachmentKindLink:
			if in.URL == "" {
				return nil, appErrors.Clone(appErrors.ErrInvalidAttachment, "link attachment requires a url")
			}
		default:
			return nil, appErrors.Clone(appErrors.ErrInvalidAttachment, "unknown attachment kind")
		}
		attachments = append(attachments, models.Attachment{
			Kind:           in.Kind,
			DisplayName:    in.DisplayName,
			StorageLocator: in.StorageLocator,
			URL:            in.URL,
			MimeType:       in.MimeType,
			SizeBytes:      in.SizeBytes,
		})
	}
	return attachments, nil
}

func validateContentType(assignment *models.Assignment, textBody *string, attachments []models.Attachment) error {
	hasText := textBody != nil && *textBody != ""
	hasFiles := false
	for _, a := range attachments {
		if a.Kind == models.AttachmentKindFile {
			hasFiles = true
			break
		}
	}
	hasContent := hasText || len(attachments) > 0

	switch assignment.SubmissionType {
	case models.SubmissionTypeText:
		if !hasText {
			return appErrors.Clone(appErrors.ErrSubmissionTypeMismatch, "assignment requires a text answer")
		}
		if hasFiles {
			return appErrors.Clone(appErrors.ErrSubmissionTypeMismatch, "assignment does not accept file attachments")
		}
	case models.SubmissionTypeFile:
		if !hasFiles {
			return appErrors.Clone(appErrors.ErrSubmissionTypeMismatch, "assignment requires a file attachment")
		}
	case models.SubmissionTypeBoth:
		if !hasContent {
			return appErrors.Clone(appErrors.ErrSubmissionTypeMismatch, "submission must contain text or an attachment")
		}
	}
	return nil
}

func validateAttachmentConstraints(assignment *models.Assignment, attachments []models.Attachment) error {
	allowed := assignment.AllowedExtensions()
	for _, a := range attachments {
		if a.Kind != models.AttachmentKindFile {
			continue
		}
		if assignment.MaxFileSize > 0 && a.SizeBytes > assignment.MaxFileSize {
			return appErrors.Clone(appErrors.ErrInvalidAttachment, "attachment exceeds the maximum file size")
		}
		if len(allowed) == 0 {
			continue
		}
		ext := a.Extension()
		ok := false
		for _, candidate := range allowed {
			if ext == candidate {
				ok = true
				break
			}
		}
		if !ok {
			return appErrors.Clone(appErrors.ErrInvalidAttachment, "attachment file type is not allowed")
		}
	}
	return nil
}

func buildGradingContext(assignment *models.Assignment, submission *models.Submission) *models.GradingContext {
	grading := &models.GradingContext{
		IsLate:             submission.IsLate,
		LatePenaltyPercent: assignment.LatePenalty,
	}
	if !submission.IsLate || assignment.DueDate == nil {
		return grading
	}
	overdue := submission.SubmittedAt.Sub(*assignment.DueDate)
	grading.DaysLate = int(math.Ceil(overdue.Hours() / 24))
	if grading.DaysLate < 1 {
		grading.DaysLate = 1
	}
	if assignment.LatePenalty > 0 {
		factor := 1 - assignment.LatePenalty/100*float64(grading.DaysLate)
		if factor < 0 {
			factor = 0
		}
		suggested := assignment.TotalPoints * factor
		grading.SuggestedPoints = &suggested
	}
	return grading
}
