package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/chendurkumaran/Edu-resource-sub000/internal/models"
	appErrors "github.com/chendurkumaran/Edu-resource-sub000/pkg/errors"
)

type mockCourseStore struct {
	courses       map[string]*models.Course
	modules       map[string]*models.Module
	moduleRefs    map[string][]string
	blockingFlags map[string]bool
	approvals     map[string]bool
}

func newMockCourseStore() *mockCourseStore {
	return &mockCourseStore{
		courses:       make(map[string]*models.Course),
		modules:       make(map[string]*models.Module),
		moduleRefs:    make(map[string][]string),
		blockingFlags: make(map[string]bool),
		approvals:     make(map[string]bool),
	}
}

func (m *mockCourseStore) FindByID(ctx context.Context, id string) (*models.Course, error) {
	if c, ok := m.courses[id]; ok {
		return c, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockCourseStore) FindByCode(ctx context.Context, code string) (*models.Course, error) {
	for _, c := range m.courses {
		if c.Code == code {
			return c, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockCourseStore) List(ctx context.Context, filter models.CourseFilter) ([]models.Course, int, error) {
	return nil, 0, nil
}

func (m *mockCourseStore) Create(ctx context.Context, course *models.Course) error {
	if course.ID == "" {
		course.ID = "course-new"
	}
	m.courses[course.ID] = course
	return nil
}

func (m *mockCourseStore) SetApproval(ctx context.Context, id string, approved bool) error {
	m.approvals[id] = approved
	if c, ok := m.courses[id]; ok {
		c.IsApproved = approved
	}
	return nil
}

func (m *mockCourseStore) ListModules(ctx context.Context, courseID string) ([]models.Module, error) {
	var list []models.Module
	for _, mod := range m.modules {
		if mod.CourseID == courseID {
			list = append(list, *mod)
		}
	}
	return list, nil
}

func (m *mockCourseStore) CreateModule(ctx context.Context, module *models.Module) error {
	if module.ID == "" {
		module.ID = "module-new"
	}
	m.modules[module.ID] = module
	return nil
}

func (m *mockCourseStore) SetModuleBlocking(ctx context.Context, moduleID string, blocking bool) error {
	m.blockingFlags[moduleID] = blocking
	return nil
}

func (m *mockCourseStore) AddModuleAssignment(ctx context.Context, moduleID, assignmentID string) error {
	m.moduleRefs[moduleID] = append(m.moduleRefs[moduleID], assignmentID)
	return nil
}

func (m *mockCourseStore) RemoveModuleAssignment(ctx context.Context, moduleID, assignmentID string) error {
	refs := m.moduleRefs[moduleID]
	for i, id := range refs {
		if id == assignmentID {
			m.moduleRefs[moduleID] = append(refs[:i], refs[i+1:]...)
			break
		}
	}
	return nil
}

func (m *mockCourseStore) FindModule(ctx context.Context, moduleID string) (*models.Module, error) {
	if mod, ok := m.modules[moduleID]; ok {
		return mod, nil
	}
	return nil, sql.ErrNoRows
}

type mockCourseAssignments struct {
	assignments map[string]*models.Assignment
	published   map[string]bool
	solutions   map[string][]models.Attachment
}

func (m *mockCourseAssignments) FindByID(ctx context.Context, id string) (*models.Assignment, error) {
	if a, ok := m.assignments[id]; ok {
		return a, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockCourseAssignments) ListByCourse(ctx context.Context, courseID string) ([]models.Assignment, error) {
	var list []models.Assignment
	for _, a := range m.assignments {
		if a.CourseID == courseID {
			list = append(list, *a)
		}
	}
	return list, nil
}

func (m *mockCourseAssignments) Create(ctx context.Context, assignment *models.Assignment) error {
	if assignment.ID == "" {
		assignment.ID = "assignment-new"
	}
	if m.assignments == nil {
		m.assignments = make(map[string]*models.Assignment)
	}
	m.assignments[assignment.ID] = assignment
	return nil
}

func (m *mockCourseAssignments) SetPublished(ctx context.Context, id string, published bool) error {
	if m.published == nil {
		m.published = make(map[string]bool)
	}
	m.published[id] = published
	return nil
}

func (m *mockCourseAssignments) ListSolutionAttachments(ctx context.Context, assignmentID string) ([]models.Attachment, error) {
	return m.solutions[assignmentID], nil
}

func instructorClaims(id string) *models.JWTClaims {
	return &models.JWTClaims{UserID: id, Role: models.RoleInstructor}
}

func TestCourseServiceCreateStartsUnapproved(t *testing.T) {
	store := newMockCourseStore()
	svc := NewCourseService(store, &mockCourseAssignments{}, nil, zap.NewNop())

	course, err := svc.Create(context.Background(), instructorClaims("i1"), models.CreateCourseRequest{
		Title:       "Distributed Systems",
		Code:        "DS-200",
		MaxStudents: 25,
	})
	require.NoError(t, err)
	assert.False(t, course.IsApproved)
	assert.True(t, course.IsActive)
	assert.Equal(t, "i1", course.InstructorID)
}

func TestCourseServiceCreateDuplicateCode(t *testing.T) {
	store := newMockCourseStore()
	store.courses["c1"] = &models.Course{ID: "c1", Code: "DS-200"}
	svc := NewCourseService(store, &mockCourseAssignments{}, nil, zap.NewNop())

	_, err := svc.Create(context.Background(), instructorClaims("i1"), models.CreateCourseRequest{
		Title:       "Distributed Systems",
		Code:        "DS-200",
		MaxStudents: 25,
	})
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
}

func TestCourseServiceAttachAssignmentFromOtherCourseRejected(t *testing.T) {
	store := newMockCourseStore()
	store.courses["c1"] = approvedCourse("c1", "i1")
	store.modules["m1"] = &models.Module{ID: "m1", CourseID: "c1"}
	assignments := &mockCourseAssignments{assignments: map[string]*models.Assignment{
		"a9": {ID: "a9", CourseID: "other-course"},
	}}
	svc := NewCourseService(store, assignments, nil, zap.NewNop())

	err := svc.AttachAssignment(context.Background(), instructorClaims("i1"), "m1", "a9")
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
	assert.Empty(t, store.moduleRefs["m1"])
}

func TestCourseServiceAttachAssignmentInvalidatesProgression(t *testing.T) {
	store := newMockCourseStore()
	store.courses["c1"] = approvedCourse("c1", "i1")
	store.modules["m1"] = &models.Module{ID: "m1", CourseID: "c1"}
	assignments := &mockCourseAssignments{assignments: map[string]*models.Assignment{
		"a1": {ID: "a1", CourseID: "c1"},
	}}
	invalidator := &mockInvalidator{}
	svc := NewCourseService(store, assignments, invalidator, zap.NewNop())

	require.NoError(t, svc.AttachAssignment(context.Background(), instructorClaims("i1"), "m1", "a1"))
	assert.Equal(t, []string{"a1"}, store.moduleRefs["m1"])
	assert.Contains(t, invalidator.calls, "c1:")
}

func TestCourseServiceModuleEditsRequireCourseStaff(t *testing.T) {
	store := newMockCourseStore()
	store.courses["c1"] = approvedCourse("c1", "i1")
	store.modules["m1"] = &models.Module{ID: "m1", CourseID: "c1"}
	svc := NewCourseService(store, &mockCourseAssignments{}, nil, zap.NewNop())

	_, err := svc.SetModuleBlocking(context.Background(), instructorClaims("intruder"), "m1", true)
	assert.ErrorIs(t, err, appErrors.ErrForbidden)

	module, err := svc.SetModuleBlocking(context.Background(), instructorClaims("i1"), "m1", true)
	require.NoError(t, err)
	assert.True(t, module.IsAssignmentBlocking)
	assert.True(t, store.blockingFlags["m1"])
}

func TestCourseServiceGetAssignmentSolutionVisibility(t *testing.T) {
	store := newMockCourseStore()
	store.courses["c1"] = approvedCourse("c1", "i1")
	assignments := &mockCourseAssignments{
		assignments: map[string]*models.Assignment{
			"a1": {ID: "a1", CourseID: "c1", IsPublished: true},
		},
		solutions: map[string][]models.Attachment{
			"a1": {{ID: "att-1", Kind: models.AttachmentKindFile, DisplayName: "solution.pdf"}},
		},
	}
	svc := NewCourseService(store, assignments, nil, zap.NewNop())

	// Hidden from students until the instructor flips is_solution_visible.
	got, err := svc.GetAssignment(context.Background(), studentClaims("s1"), "a1")
	require.NoError(t, err)
	assert.Empty(t, got.SolutionAttachments)

	got, err = svc.GetAssignment(context.Background(), instructorClaims("i1"), "a1")
	require.NoError(t, err)
	assert.Len(t, got.SolutionAttachments, 1)

	assignments.assignments["a1"].IsSolutionVisible = true
	got, err = svc.GetAssignment(context.Background(), studentClaims("s1"), "a1")
	require.NoError(t, err)
	assert.Len(t, got.SolutionAttachments, 1)
}

func TestCourseServiceGetAssignmentUnpublishedHidden(t *testing.T) {
	store := newMockCourseStore()
	store.courses["c1"] = approvedCourse("c1", "i1")
	assignments := &mockCourseAssignments{assignments: map[string]*models.Assignment{
		"a1": {ID: "a1", CourseID: "c1", IsPublished: false},
	}}
	svc := NewCourseService(store, assignments, nil, zap.NewNop())

	_, err := svc.GetAssignment(context.Background(), studentClaims("s1"), "a1")
	assert.ErrorIs(t, err, appErrors.ErrNotFound)

	_, err = svc.GetAssignment(context.Background(), instructorClaims("i1"), "a1")
	assert.NoError(t, err)
}
