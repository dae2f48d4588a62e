package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/chendurkumaran/Edu-resource-sub000/internal/models"
	"github.com/chendurkumaran/Edu-resource-sub000/internal/repository"
	appErrors "github.com/chendurkumaran/Edu-resource-sub000/pkg/errors"
)

type enrollmentCourseStore interface {
	FindByID(ctx context.Context, id string) (*models.Course, error)
}

type admissionStore interface {
	Admit(ctx context.Context, studentID, courseID string) (*models.Enrollment, error)
	Withdraw(ctx context.Context, studentID, courseID string) (*models.Enrollment, error)
}

type enrollmentStore interface {
	FindByStudentAndCourse(ctx context.Context, studentID, courseID string) (*models.Enrollment, error)
	List(ctx context.Context, filter models.EnrollmentFilter) ([]models.Enrollment, int, error)
}

type eventNotifier interface {
	Notify(ctx context.Context, userID string, event models.NotificationEvent, payload interface{})
}

// EnrollmentService owns admission and withdrawal. Seat accounting is
// delegated to the admission store, whose conditional counter update is
// the only code path that mutates current_enrollment.
type EnrollmentService struct {
	courses     enrollmentCourseStore
	admissions  admissionStore
	enrollments enrollmentStore
	notifier    eventNotifier
	metrics     *MetricsService
	logger      *zap.Logger
}

// NewEnrollmentService constructs the service. metrics may be nil.
func NewEnrollmentService(
	courses enrollmentCourseStore,
	admissions admissionStore,
	enrollments enrollmentStore,
	notifier eventNotifier,
	metrics *MetricsService,
	logger *zap.Logger,
) *EnrollmentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EnrollmentService{
		courses:     courses,
		admissions:  admissions,
		enrollments: enrollments,
		notifier:    notifier,
		metrics:     metrics,
		logger:      logger,
	}
}

// Enroll admits a student into a course. Preconditions (approved, active)
// are checked first; the seat itself is claimed atomically so the counter
// can never exceed max_students even under concurrent requests for the
// last seat.
func (s *EnrollmentService) Enroll(ctx context.Context, studentID, courseID string) (*models.Enrollment, error) {
	course, err := s.courses.FindByID(ctx, courseID)
	if err != nil {
		return nil, appErrors.ErrNotFound
	}
	if !course.OpenForEnrollment() {
		return nil, appErrors.ErrCourseNotApproved
	}

	enrollment, err := s.admissions.Admit(ctx, studentID, courseID)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrDuplicateEnrollment):
			s.metrics.RecordAdmission("duplicate")
			return nil, appErrors.ErrAlreadyEnrolled
		case errors.Is(err, repository.ErrCourseFull):
			s.metrics.RecordAdmission("capacity")
			s.logger.Info("admission rejected at capacity",
				zap.String("course_id", courseID),
				zap.String("student_id", studentID),
				zap.Int("max_students", course.MaxStudents))
			if s.notifier != nil {
				s.notifier.Notify(ctx, studentID, models.EventEnrollmentRejected, map[string]interface{}{
					"course_id":    courseID,
					"course_title": course.Title,
					"reason":       "capacity",
				})
			}
			return nil, appErrors.ErrCapacityExceeded
		default:
			s.metrics.RecordAdmission("error")
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to enroll")
		}
	}

	s.metrics.RecordAdmission("admitted")
	s.logger.Info("student enrolled",
		zap.String("course_id", courseID),
		zap.String("student_id", studentID))
	if s.notifier != nil {
		s.notifier.Notify(ctx, course.InstructorID, models.EventStudentEnrolled, map[string]interface{}{
			"course_id":  courseID,
			"student_id": studentID,
		})
	}
	return enrollment, nil
}

// Unenroll drops the student's active enrollment and releases the seat.
// Without an active enrollment nothing changes and the counter is left
// untouched.
func (s *EnrollmentService) Unenroll(ctx context.Context, studentID, courseID string) (*models.Enrollment, error) {
	course, err := s.courses.FindByID(ctx, courseID)
	if err != nil {
		return nil, appErrors.ErrNotFound
	}

	enrollment, err := s.admissions.Withdraw(ctx, studentID, courseID)
	if err != nil {
		if errors.Is(err, repository.ErrNoActiveEnrollment) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "no active enrollment for this course")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to unenroll")
	}

	s.logger.Info("student unenrolled",
		zap.String("course_id", courseID),
		zap.String("student_id", studentID))
	if s.notifier != nil {
		s.notifier.Notify(ctx, course.InstructorID, models.EventStudentUnenrolled, map[string]interface{}{
			"course_id":  courseID,
			"student_id": studentID,
		})
	}
	return enrollment, nil
}

// Status returns the enrollment row for the pair, or nil when none exists.
func (s *EnrollmentService) Status(ctx context.Context, studentID, courseID string) (*models.Enrollment, error) {
	enrollment, err := s.enrollments.FindByStudentAndCourse(ctx, studentID, courseID)
	if err != nil {
		return nil, appErrors.ErrNotFound
	}
	return enrollment, nil
}

// List returns enrollments matching the filter with a total count.
func (s *EnrollmentService) List(ctx context.Context, filter models.EnrollmentFilter) ([]models.Enrollment, int, error) {
	enrollments, total, err := s.enrollments.List(ctx, filter)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list enrollments")
	}
	return enrollments, total, nil
}
