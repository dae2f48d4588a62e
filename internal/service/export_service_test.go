package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/chendurkumaran/Edu-resource-sub000/internal/models"
	appErrors "github.com/chendurkumaran/Edu-resource-sub000/pkg/errors"
)

func newExportFixture(t *testing.T) (*ExportService, *mockSubmissionStore) {
	t.Helper()
	courses := &mockCourseReader{courses: map[string]*models.Course{"c1": approvedCourse("c1", "i1")}}
	assignments := &mockCourseAssignments{assignments: map[string]*models.Assignment{
		"a1": {ID: "a1", CourseID: "c1", Title: "Essay", TotalPoints: 100},
	}}
	store := newMockSubmissionStore()
	users := &mockUserStore{users: map[string]*models.User{
		"s1": {ID: "s1", FullName: "Ada Lovelace"},
	}}
	svc := NewExportService(courses, assignments, store, users, zap.NewNop())
	return svc, store
}

func TestExportServiceGradebookCSV(t *testing.T) {
	svc, store := newExportFixture(t)
	points := 87.5
	gradedAt := time.Now().UTC()
	gradedBy := "i1"
	store.add(&models.Submission{
		ID:           "sub-1",
		AssignmentID: "a1",
		StudentID:    "s1",
		SubmittedAt:  time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC),
		IsLate:       true,
		Status:       models.SubmissionStatusGraded,
		GradePoints:  &points,
		GradedAt:     &gradedAt,
		GradedBy:     &gradedBy,
	})

	instructor := instructorClaims("i1")
	data, filename, mime, err := svc.Gradebook(context.Background(), instructor, "c1", ExportFormatCSV)
	require.NoError(t, err)
	assert.Equal(t, "gradebook-ALG-101.csv", filename)
	assert.Equal(t, "text/csv", mime)

	content := string(data)
	assert.Contains(t, content, "Ada Lovelace")
	assert.Contains(t, content, "Essay")
	assert.Contains(t, content, "87.5")
	assert.Contains(t, content, "true")
	assert.Equal(t, 2, strings.Count(content, "\n"))
}

func TestExportServiceGradebookForbiddenForOutsiders(t *testing.T) {
	svc, _ := newExportFixture(t)

	_, _, _, err := svc.Gradebook(context.Background(), instructorClaims("i2"), "c1", ExportFormatCSV)
	assert.ErrorIs(t, err, appErrors.ErrForbidden)
}

func TestExportServiceGradebookUnknownFormat(t *testing.T) {
	svc, _ := newExportFixture(t)

	_, _, _, err := svc.Gradebook(context.Background(), instructorClaims("i1"), "c1", ExportFormat("xml"))
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}
