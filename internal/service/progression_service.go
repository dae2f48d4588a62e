package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/chendurkumaran/Edu-resource-sub000/internal/models"
	"github.com/chendurkumaran/Edu-resource-sub000/internal/repository"
	"github.com/chendurkumaran/Edu-resource-sub000/pkg/config"
	appErrors "github.com/chendurkumaran/Edu-resource-sub000/pkg/errors"
)

type progressionCourseStore interface {
	FindByID(ctx context.Context, id string) (*models.Course, error)
	ListModules(ctx context.Context, courseID string) ([]models.Module, error)
}

type progressionSubmissionStore interface {
	ListByStudentAndAssignments(ctx context.Context, studentID string, assignmentIDs []string) ([]models.Submission, error)
}

type progressionEnrollmentStore interface {
	FindByStudentAndCourse(ctx context.Context, studentID, courseID string) (*models.Enrollment, error)
}

type progressionCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

// ProgressionService computes module unlock state. Nothing is persisted:
// unlock state is derived from the current catalog and the student's
// submissions on every evaluation, so retroactive catalog edits (adding
// assignments to a blocking module, toggling the blocking flag) take
// effect on the next read. The cache only shortcuts repeated reads and is
// invalidated on every submission or catalog write.
type ProgressionService struct {
	courses     progressionCourseStore
	submissions progressionSubmissionStore
	enrollments progressionEnrollmentStore
	cache       progressionCache
	metrics     *MetricsService
	cfg         config.ProgressionConfig
	logger      *zap.Logger
}

// NewProgressionService constructs the service. cache may be nil when
// Redis is unavailable; evaluation then always recomputes. metrics may
// be nil.
func NewProgressionService(
	courses progressionCourseStore,
	submissions progressionSubmissionStore,
	enrollments progressionEnrollmentStore,
	cache progressionCache,
	metrics *MetricsService,
	cfg config.ProgressionConfig,
	logger *zap.Logger,
) *ProgressionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProgressionService{
		courses:     courses,
		submissions: submissions,
		enrollments: enrollments,
		cache:       cache,
		metrics:     metrics,
		cfg:         cfg,
		logger:      logger,
	}
}

func progressionCacheKey(courseID, studentID string) string {
	return fmt.Sprintf("progression:%s:%s", courseID, studentID)
}

// Evaluate returns the unlock state of every module in the course for the
// given student, in module order. Callers without content access (not
// enrolled, course not free, not the instructor or an admin) see every
// module locked.
func (s *ProgressionService) Evaluate(ctx context.Context, actor *models.JWTClaims, courseID, studentID string) (*models.Progression, error) {
	course, err := s.courses.FindByID(ctx, courseID)
	if err != nil {
		return nil, appErrors.ErrNotFound
	}

	if !s.hasContentAccess(ctx, actor, course, studentID) {
		modules, err := s.courses.ListModules(ctx, courseID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load modules")
		}
		return lockedProgression(courseID, studentID, modules), nil
	}

	key := progressionCacheKey(courseID, studentID)
	if s.cacheEnabled() {
		var cached models.Progression
		if err := s.cache.Get(ctx, key, &cached); err == nil {
			s.metrics.RecordCacheLookup(true)
			return &cached, nil
		} else if err != repository.ErrCacheMiss {
			s.logger.Warn("progression cache read failed", zap.String("key", key), zap.Error(err))
		}
		s.metrics.RecordCacheLookup(false)
	}

	progression, err := s.compute(ctx, courseID, studentID)
	if err != nil {
		return nil, err
	}

	if s.cacheEnabled() {
		if err := s.cache.Set(ctx, key, progression, s.cfg.CacheTTL); err != nil {
			s.logger.Warn("progression cache write failed", zap.String("key", key), zap.Error(err))
		}
	}
	return progression, nil
}

// Invalidate drops cached unlock state for the pair. Called after every
// submission write and after catalog edits that can change gating.
func (s *ProgressionService) Invalidate(ctx context.Context, courseID, studentID string) {
	if !s.cacheEnabled() {
		return
	}
	pattern := progressionCacheKey(courseID, studentID)
	if studentID == "" {
		pattern = progressionCacheKey(courseID, "*")
	}
	if err := s.cache.DeleteByPattern(ctx, pattern); err != nil {
		s.logger.Warn("progression cache invalidation failed", zap.String("pattern", pattern), zap.Error(err))
	}
}

// CanAccessModule reports whether the student may open the module right
// now. Used by content handlers as the gate check.
func (s *ProgressionService) CanAccessModule(ctx context.Context, actor *models.JWTClaims, courseID, moduleID, studentID string) (bool, error) {
	progression, err := s.Evaluate(ctx, actor, courseID, studentID)
	if err != nil {
		return false, err
	}
	for _, m := range progression.Modules {
		if m.ModuleID == moduleID {
			return m.Unlocked, nil
		}
	}
	return false, appErrors.ErrNotFound
}

func (s *ProgressionService) cacheEnabled() bool {
	return s.cache != nil && s.cfg.CacheEnabled
}

func (s *ProgressionService) hasContentAccess(ctx context.Context, actor *models.JWTClaims, course *models.Course, studentID string) bool {
	if actor != nil {
		if actor.Role == models.RoleAdmin {
			return true
		}
		if actor.UserID == course.InstructorID {
			return true
		}
	}
	if course.IsFree {
		return true
	}
	enrollment, err := s.enrollments.FindByStudentAndCourse(ctx, studentID, course.ID)
	if err != nil {
		return false
	}
	return enrollment.Active()
}

func (s *ProgressionService) compute(ctx context.Context, courseID, studentID string) (*models.Progression, error) {
	modules, err := s.courses.ListModules(ctx, courseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load modules")
	}

	assignmentIDs := make([]string, 0)
	seen := make(map[string]struct{})
	for _, m := range modules {
		for _, id := range m.AssignmentIDs {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			assignmentIDs = append(assignmentIDs, id)
		}
	}

	completed := make(map[string]bool, len(assignmentIDs))
	if len(assignmentIDs) > 0 {
		submissions, err := s.submissions.ListByStudentAndAssignments(ctx, studentID, assignmentIDs)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load submissions")
		}
		for i := range submissions {
			if submissions[i].Completed() {
				completed[submissions[i].AssignmentID] = true
			}
		}
	}

	progression := &models.Progression{
		CourseID:  courseID,
		StudentID: studentID,
		Modules:   make([]models.ModuleAccess, 0, len(modules)),
	}

	// Modules unlock in order: a blocking module with any incomplete
	// assignment locks everything after it. A blocking module with no
	// assignments blocks nothing.
	gateOpen := true
	for _, m := range modules {
		completedCount := 0
		for _, id := range m.AssignmentIDs {
			if completed[id] {
				completedCount++
			}
		}
		progression.Modules = append(progression.Modules, models.ModuleAccess{
			ModuleID:             m.ID,
			Title:                m.Title,
			Position:             m.Position,
			Unlocked:             gateOpen,
			IsAssignmentBlocking: m.IsAssignmentBlocking,
			CompletedAssignments: completedCount,
			TotalAssignments:     len(m.AssignmentIDs),
		})
		if gateOpen && m.IsAssignmentBlocking && completedCount < len(m.AssignmentIDs) {
			gateOpen = false
		}
	}
	return progression, nil
}

func lockedProgression(courseID, studentID string, modules []models.Module) *models.Progression {
	progression := &models.Progression{
		CourseID:  courseID,
		StudentID: studentID,
		Modules:   make([]models.ModuleAccess, 0, len(modules)),
	}
	for _, m := range modules {
		progression.Modules = append(progression.Modules, models.ModuleAccess{
			ModuleID:             m.ID,
			Title:                m.Title,
			Position:             m.Position,
			Unlocked:             false,
			IsAssignmentBlocking: m.IsAssignmentBlocking,
			TotalAssignments:     len(m.AssignmentIDs),
		})
	}
	return progression
}
