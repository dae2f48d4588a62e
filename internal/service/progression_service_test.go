package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/chendurkumaran/Edu-resource-sub000/internal/models"
	"github.com/chendurkumaran/Edu-resource-sub000/internal/repository"
	"github.com/chendurkumaran/Edu-resource-sub000/pkg/config"
)

type mockProgressionCourses struct {
	course  *models.Course
	modules []models.Module
}

func (m *mockProgressionCourses) FindByID(ctx context.Context, id string) (*models.Course, error) {
	if m.course != nil && m.course.ID == id {
		return m.course, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockProgressionCourses) ListModules(ctx context.Context, courseID string) ([]models.Module, error) {
	return m.modules, nil
}

type mockProgressionSubmissions struct {
	submissions []models.Submission
}

func (m *mockProgressionSubmissions) ListByStudentAndAssignments(ctx context.Context, studentID string, assignmentIDs []string) ([]models.Submission, error) {
	return m.submissions, nil
}

type mockProgressionEnrollments struct {
	active map[string]bool
}

func (m *mockProgressionEnrollments) FindByStudentAndCourse(ctx context.Context, studentID, courseID string) (*models.Enrollment, error) {
	if m.active[studentID] {
		return &models.Enrollment{StudentID: studentID, CourseID: courseID, Status: models.EnrollmentStatusEnrolled}, nil
	}
	return nil, sql.ErrNoRows
}

type mapCache struct {
	entries map[string][]byte
	deleted []string
}

func (m *mapCache) Get(ctx context.Context, key string, dest interface{}) error {
	raw, ok := m.entries[key]
	if !ok {
		return repository.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (m *mapCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	if m.entries == nil {
		m.entries = make(map[string][]byte)
	}
	m.entries[key] = raw
	return nil
}

func (m *mapCache) DeleteByPattern(ctx context.Context, pattern string) error {
	m.deleted = append(m.deleted, pattern)
	m.entries = make(map[string][]byte)
	return nil
}

func newProgressionFixture(modules []models.Module, submissions []models.Submission) *ProgressionService {
	courses := &mockProgressionCourses{
		course:  &models.Course{ID: "c1", InstructorID: "i1", IsApproved: true, IsActive: true},
		modules: modules,
	}
	enrollments := &mockProgressionEnrollments{active: map[string]bool{"s1": true}}
	return NewProgressionService(
		courses,
		&mockProgressionSubmissions{submissions: submissions},
		enrollments,
		nil,
		nil,
		config.ProgressionConfig{},
		zap.NewNop(),
	)
}

func studentClaims(id string) *models.JWTClaims {
	return &models.JWTClaims{UserID: id, Role: models.RoleStudent}
}

func TestProgressionBlockingModuleGatesLaterModules(t *testing.T) {
	modules := []models.Module{
		{ID: "m1", Position: 1, IsAssignmentBlocking: true, AssignmentIDs: []string{"a1", "a2"}},
		{ID: "m2", Position: 2},
		{ID: "m3", Position: 3},
	}
	svc := newProgressionFixture(modules, []models.Submission{
		{AssignmentID: "a1", Status: models.SubmissionStatusSubmitted},
	})

	progression, err := svc.Evaluate(context.Background(), studentClaims("s1"), "c1", "s1")
	require.NoError(t, err)
	require.Len(t, progression.Modules, 3)
	assert.True(t, progression.Modules[0].Unlocked)
	assert.False(t, progression.Modules[1].Unlocked)
	assert.False(t, progression.Modules[2].Unlocked)
	assert.Equal(t, 1, progression.Modules[0].CompletedAssignments)
	assert.Equal(t, 2, progression.Modules[0].TotalAssignments)
}

func TestProgressionUnlocksWhenAllBlockingAssignmentsComplete(t *testing.T) {
	modules := []models.Module{
		{ID: "m1", Position: 1, IsAssignmentBlocking: true, AssignmentIDs: []string{"a1", "a2"}},
		{ID: "m2", Position: 2},
	}
	svc := newProgressionFixture(modules, []models.Submission{
		{AssignmentID: "a1", Status: models.SubmissionStatusSubmitted},
		{AssignmentID: "a2", Status: models.SubmissionStatusGraded},
	})

	progression, err := svc.Evaluate(context.Background(), studentClaims("s1"), "c1", "s1")
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, progression.UnlockedPositions())
}

func TestProgressionBlockingModuleWithoutAssignmentsBlocksNothing(t *testing.T) {
	modules := []models.Module{
		{ID: "m1", Position: 1, IsAssignmentBlocking: true},
		{ID: "m2", Position: 2},
	}
	svc := newProgressionFixture(modules, nil)

	progression, err := svc.Evaluate(context.Background(), studentClaims("s1"), "c1", "s1")
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, progression.UnlockedPositions())
}

func TestProgressionNonBlockingModuleNeverGates(t *testing.T) {
	modules := []models.Module{
		{ID: "m1", Position: 1, AssignmentIDs: []string{"a1"}},
		{ID: "m2", Position: 2},
	}
	svc := newProgressionFixture(modules, nil)

	progression, err := svc.Evaluate(context.Background(), studentClaims("s1"), "c1", "s1")
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, progression.UnlockedPositions())
}

func TestProgressionFirstModuleAlwaysUnlocked(t *testing.T) {
	modules := []models.Module{
		{ID: "m1", Position: 1, IsAssignmentBlocking: true, AssignmentIDs: []string{"a1"}},
	}
	svc := newProgressionFixture(modules, nil)

	progression, err := svc.Evaluate(context.Background(), studentClaims("s1"), "c1", "s1")
	require.NoError(t, err)
	require.Len(t, progression.Modules, 1)
	assert.True(t, progression.Modules[0].Unlocked)
}

func TestProgressionLockedForUnenrolledStudent(t *testing.T) {
	modules := []models.Module{
		{ID: "m1", Position: 1},
		{ID: "m2", Position: 2},
	}
	svc := newProgressionFixture(modules, nil)

	progression, err := svc.Evaluate(context.Background(), studentClaims("outsider"), "c1", "outsider")
	require.NoError(t, err)
	assert.Empty(t, progression.UnlockedPositions())
}

func TestProgressionFreeCourseOpenWithoutEnrollment(t *testing.T) {
	svc := newProgressionFixture([]models.Module{{ID: "m1", Position: 1}}, nil)
	svc.courses.(*mockProgressionCourses).course.IsFree = true

	progression, err := svc.Evaluate(context.Background(), studentClaims("outsider"), "c1", "outsider")
	require.NoError(t, err)
	assert.Equal(t, []int{1}, progression.UnlockedPositions())
}

func TestProgressionRetroactiveCatalogEditChangesResult(t *testing.T) {
	courses := &mockProgressionCourses{
		course: &models.Course{ID: "c1", InstructorID: "i1", IsApproved: true, IsActive: true},
		modules: []models.Module{
			{ID: "m1", Position: 1, IsAssignmentBlocking: true, AssignmentIDs: []string{"a1"}},
			{ID: "m2", Position: 2},
		},
	}
	submissions := &mockProgressionSubmissions{submissions: []models.Submission{
		{AssignmentID: "a1", Status: models.SubmissionStatusSubmitted},
	}}
	svc := NewProgressionService(courses, submissions, &mockProgressionEnrollments{active: map[string]bool{"s1": true}}, nil, nil, config.ProgressionConfig{}, zap.NewNop())

	progression, err := svc.Evaluate(context.Background(), studentClaims("s1"), "c1", "s1")
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, progression.UnlockedPositions())

	// Instructor adds an uncompleted assignment to the blocking module;
	// module 2 re-locks on the next read.
	courses.modules[0].AssignmentIDs = []string{"a1", "a2"}
	progression, err = svc.Evaluate(context.Background(), studentClaims("s1"), "c1", "s1")
	require.NoError(t, err)
	assert.Equal(t, []int{1}, progression.UnlockedPositions())
}

func TestProgressionCacheRoundTripAndInvalidation(t *testing.T) {
	courses := &mockProgressionCourses{
		course:  &models.Course{ID: "c1", InstructorID: "i1", IsApproved: true, IsActive: true},
		modules: []models.Module{{ID: "m1", Position: 1}},
	}
	cache := &mapCache{}
	svc := NewProgressionService(courses, &mockProgressionSubmissions{}, &mockProgressionEnrollments{active: map[string]bool{"s1": true}}, cache, nil, config.ProgressionConfig{CacheEnabled: true, CacheTTL: time.Minute}, zap.NewNop())

	_, err := svc.Evaluate(context.Background(), studentClaims("s1"), "c1", "s1")
	require.NoError(t, err)
	assert.Len(t, cache.entries, 1)

	cached, err := svc.Evaluate(context.Background(), studentClaims("s1"), "c1", "s1")
	require.NoError(t, err)
	assert.Equal(t, "c1", cached.CourseID)

	svc.Invalidate(context.Background(), "c1", "s1")
	assert.Contains(t, cache.deleted, "progression:c1:s1")
	assert.Empty(t, cache.entries)
}
