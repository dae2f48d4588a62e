package service

import (
	"context"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/chendurkumaran/Edu-resource-sub000/internal/models"
	appErrors "github.com/chendurkumaran/Edu-resource-sub000/pkg/errors"
)

type courseStore interface {
	FindByID(ctx context.Context, id string) (*models.Course, error)
	FindByCode(ctx context.Context, code string) (*models.Course, error)
	List(ctx context.Context, filter models.CourseFilter) ([]models.Course, int, error)
	Create(ctx context.Context, course *models.Course) error
	SetApproval(ctx context.Context, id string, approved bool) error
	ListModules(ctx context.Context, courseID string) ([]models.Module, error)
	CreateModule(ctx context.Context, module *models.Module) error
	SetModuleBlocking(ctx context.Context, moduleID string, blocking bool) error
	AddModuleAssignment(ctx context.Context, moduleID, assignmentID string) error
	RemoveModuleAssignment(ctx context.Context, moduleID, assignmentID string) error
	FindModule(ctx context.Context, moduleID string) (*models.Module, error)
}

type courseAssignmentStore interface {
	FindByID(ctx context.Context, id string) (*models.Assignment, error)
	ListByCourse(ctx context.Context, courseID string) ([]models.Assignment, error)
	Create(ctx context.Context, assignment *models.Assignment) error
	SetPublished(ctx context.Context, id string, published bool) error
	ListSolutionAttachments(ctx context.Context, assignmentID string) ([]models.Attachment, error)
}

// CourseService owns the catalog: courses, their ordered modules and
// assignments, and the module-to-assignment references that drive gating.
// Catalog edits that can change unlock state invalidate the progression
// cache for the whole course.
type CourseService struct {
	courses     courseStore
	assignments courseAssignmentStore
	progression progressionInvalidator
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewCourseService constructs the service.
func NewCourseService(
	courses courseStore,
	assignments courseAssignmentStore,
	progression progressionInvalidator,
	logger *zap.Logger,
) *CourseService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CourseService{
		courses:     courses,
		assignments: assignments,
		progression: progression,
		validator:   validator.New(),
		logger:      logger,
	}
}

// Create registers a new course owned by the instructor. Courses start
// unapproved; admission is impossible until an admin approves them.
func (s *CourseService) Create(ctx context.Context, actor *models.JWTClaims, req models.CreateCourseRequest) (*models.Course, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error())
	}
	if existing, err := s.courses.FindByCode(ctx, req.Code); err == nil && existing != nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "course code already in use")
	}

	course := &models.Course{
		Title:        req.Title,
		Code:         req.Code,
		InstructorID: actor.UserID,
		MaxStudents:  req.MaxStudents,
		IsFree:       req.IsFree,
		IsActive:     true,
	}
	if err := s.courses.Create(ctx, course); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create course")
	}
	s.logger.Info("course created", zap.String("course_id", course.ID), zap.String("code", course.Code))
	return course, nil
}

// Get returns a course with its ordered module list.
func (s *CourseService) Get(ctx context.Context, id string) (*models.CourseDetail, error) {
	course, err := s.courses.FindByID(ctx, id)
	if err != nil {
		return nil, appErrors.ErrNotFound
	}
	modules, err := s.courses.ListModules(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load modules")
	}
	return &models.CourseDetail{Course: *course, Modules: modules}, nil
}

// List returns courses matching the filter. Non-staff callers only see
// approved active courses.
func (s *CourseService) List(ctx context.Context, actor *models.JWTClaims, filter models.CourseFilter) ([]models.Course, int, error) {
	if actor == nil || actor.Role == models.RoleStudent {
		approved, active := true, true
		filter.Approved = &approved
		filter.Active = &active
	}
	courses, total, err := s.courses.List(ctx, filter)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list courses")
	}
	return courses, total, nil
}

// SetApproval opens or closes a course for admission. Admin only; the
// handler enforces the role, the service just records the flip.
func (s *CourseService) SetApproval(ctx context.Context, id string, approved bool) (*models.Course, error) {
	if _, err := s.courses.FindByID(ctx, id); err != nil {
		return nil, appErrors.ErrNotFound
	}
	if err := s.courses.SetApproval(ctx, id, approved); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update approval")
	}
	s.logger.Info("course approval updated", zap.String("course_id", id), zap.Bool("approved", approved))
	return s.courses.FindByID(ctx, id)
}

// AddModule appends a module to the course's ordered list.
func (s *CourseService) AddModule(ctx context.Context, actor *models.JWTClaims, courseID string, req models.CreateModuleRequest) (*models.Module, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error())
	}
	course, err := s.courses.FindByID(ctx, courseID)
	if err != nil {
		return nil, appErrors.ErrNotFound
	}
	if err := requireCourseStaff(actor, course); err != nil {
		return nil, err
	}

	module := &models.Module{
		CourseID:             courseID,
		Title:                req.Title,
		IsAssignmentBlocking: req.IsAssignmentBlocking,
	}
	if err := s.courses.CreateModule(ctx, module); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create module")
	}
	s.invalidateCourse(ctx, courseID)
	return module, nil
}

// SetModuleBlocking toggles the gating flag. Takes effect on the next
// progression read for every student in the course.
func (s *CourseService) SetModuleBlocking(ctx context.Context, actor *models.JWTClaims, moduleID string, blocking bool) (*models.Module, error) {
	module, course, err := s.loadModule(ctx, moduleID)
	if err != nil {
		return nil, err
	}
	if err := requireCourseStaff(actor, course); err != nil {
		return nil, err
	}
	if err := s.courses.SetModuleBlocking(ctx, moduleID, blocking); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update module")
	}
	module.IsAssignmentBlocking = blocking
	s.invalidateCourse(ctx, course.ID)
	return module, nil
}

// AttachAssignment references an assignment from a module's gating list.
// The assignment must belong to the same course.
func (s *CourseService) AttachAssignment(ctx context.Context, actor *models.JWTClaims, moduleID, assignmentID string) error {
	module, course, err := s.loadModule(ctx, moduleID)
	if err != nil {
		return err
	}
	if err := requireCourseStaff(actor, course); err != nil {
		return err
	}
	assignment, err := s.assignments.FindByID(ctx, assignmentID)
	if err != nil {
		return appErrors.Clone(appErrors.ErrNotFound, "assignment not found")
	}
	if assignment.CourseID != module.CourseID {
		return appErrors.Clone(appErrors.ErrValidation, "assignment belongs to a different course")
	}
	if err := s.courses.AddModuleAssignment(ctx, moduleID, assignmentID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to attach assignment")
	}
	s.invalidateCourse(ctx, course.ID)
	return nil
}

// DetachAssignment removes an assignment reference from a module. Dangling
// references are tolerated elsewhere, but removal still clears the cache
// so gating loosens immediately.
func (s *CourseService) DetachAssignment(ctx context.Context, actor *models.JWTClaims, moduleID, assignmentID string) error {
	_, course, err := s.loadModule(ctx, moduleID)
	if err != nil {
		return err
	}
	if err := requireCourseStaff(actor, course); err != nil {
		return err
	}
	if err := s.courses.RemoveModuleAssignment(ctx, moduleID, assignmentID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to detach assignment")
	}
	s.invalidateCourse(ctx, course.ID)
	return nil
}

// CreateAssignment adds an assignment to a course. Assignments start
// unpublished and invisible to students.
func (s *CourseService) CreateAssignment(ctx context.Context, actor *models.JWTClaims, courseID string, req models.CreateAssignmentRequest) (*models.Assignment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error())
	}
	course, err := s.courses.FindByID(ctx, courseID)
	if err != nil {
		return nil, appErrors.ErrNotFound
	}
	if err := requireCourseStaff(actor, course); err != nil {
		return nil, err
	}

	assignment := &models.Assignment{
		CourseID:            courseID,
		Title:               req.Title,
		Description:         req.Description,
		TotalPoints:         req.TotalPoints,
		DueDate:             req.DueDate,
		SubmissionType:      req.SubmissionType,
		AllowLateSubmission: req.AllowLateSubmission,
		LatePenalty:         req.LatePenalty,
		AllowedFileTypes:    req.AllowedFileTypes,
		MaxFileSize:         req.MaxFileSize,
	}
	if err := s.assignments.Create(ctx, assignment); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create assignment")
	}
	return assignment, nil
}

// ListAssignments returns the assignments of a course. Students only see
// published ones.
func (s *CourseService) ListAssignments(ctx context.Context, actor *models.JWTClaims, courseID string) ([]models.Assignment, error) {
	course, err := s.courses.FindByID(ctx, courseID)
	if err != nil {
		return nil, appErrors.ErrNotFound
	}
	assignments, err := s.assignments.ListByCourse(ctx, courseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list assignments")
	}
	if requireCourseStaff(actor, course) == nil {
		return assignments, nil
	}
	published := assignments[:0]
	for _, a := range assignments {
		if a.IsPublished {
			published = append(published, a)
		}
	}
	return published, nil
}

// GetAssignment returns a single assignment. Unpublished assignments are
// invisible to non-staff. Solution attachments are attached for course
// staff always, and for everyone else only once is_solution_visible is set.
func (s *CourseService) GetAssignment(ctx context.Context, actor *models.JWTClaims, assignmentID string) (*models.Assignment, error) {
	assignment, err := s.assignments.FindByID(ctx, assignmentID)
	if err != nil {
		return nil, appErrors.ErrNotFound
	}
	course, err := s.courses.FindByID(ctx, assignment.CourseID)
	if err != nil {
		return nil, appErrors.ErrNotFound
	}
	staff := requireCourseStaff(actor, course) == nil
	if !assignment.IsPublished && !staff {
		return nil, appErrors.ErrNotFound
	}
	if staff || assignment.IsSolutionVisible {
		solutions, err := s.assignments.ListSolutionAttachments(ctx, assignmentID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load solution attachments")
		}
		assignment.SolutionAttachments = solutions
	}
	return assignment, nil
}

// SetAssignmentPublished publishes or hides an assignment.
func (s *CourseService) SetAssignmentPublished(ctx context.Context, actor *models.JWTClaims, assignmentID string, published bool) error {
	assignment, err := s.assignments.FindByID(ctx, assignmentID)
	if err != nil {
		return appErrors.ErrNotFound
	}
	course, err := s.courses.FindByID(ctx, assignment.CourseID)
	if err != nil {
		return appErrors.ErrNotFound
	}
	if err := requireCourseStaff(actor, course); err != nil {
		return err
	}
	if err := s.assignments.SetPublished(ctx, assignmentID, published); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update assignment")
	}
	return nil
}

func (s *CourseService) loadModule(ctx context.Context, moduleID string) (*models.Module, *models.Course, error) {
	module, err := s.courses.FindModule(ctx, moduleID)
	if err != nil {
		return nil, nil, appErrors.ErrNotFound
	}
	course, err := s.courses.FindByID(ctx, module.CourseID)
	if err != nil {
		return nil, nil, appErrors.ErrNotFound
	}
	return module, course, nil
}

func (s *CourseService) invalidateCourse(ctx context.Context, courseID string) {
	if s.progression != nil {
		s.progression.Invalidate(ctx, courseID, "")
	}
}
