package handler

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/chendurkumaran/Edu-resource-sub000/internal/middleware"
	"github.com/chendurkumaran/Edu-resource-sub000/internal/models"
	"github.com/chendurkumaran/Edu-resource-sub000/internal/repository"
	"github.com/chendurkumaran/Edu-resource-sub000/internal/service"
	"github.com/chendurkumaran/Edu-resource-sub000/pkg/response"
)

type stubCourseReader struct {
	course *models.Course
}

func (s *stubCourseReader) FindByID(ctx context.Context, id string) (*models.Course, error) {
	if s.course != nil && s.course.ID == id {
		return s.course, nil
	}
	return nil, sql.ErrNoRows
}

type stubAdmissions struct {
	err error
}

func (s *stubAdmissions) Admit(ctx context.Context, studentID, courseID string) (*models.Enrollment, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &models.Enrollment{ID: "e1", StudentID: studentID, CourseID: courseID, Status: models.EnrollmentStatusEnrolled, EnrolledAt: time.Now().UTC()}, nil
}

func (s *stubAdmissions) Withdraw(ctx context.Context, studentID, courseID string) (*models.Enrollment, error) {
	if s.err != nil {
		return nil, s.err
	}
	now := time.Now().UTC()
	return &models.Enrollment{ID: "e1", StudentID: studentID, CourseID: courseID, Status: models.EnrollmentStatusDropped, DroppedAt: &now}, nil
}

type stubEnrollmentReader struct{}

func (s *stubEnrollmentReader) FindByStudentAndCourse(ctx context.Context, studentID, courseID string) (*models.Enrollment, error) {
	return nil, sql.ErrNoRows
}

func (s *stubEnrollmentReader) List(ctx context.Context, filter models.EnrollmentFilter) ([]models.Enrollment, int, error) {
	return nil, 0, nil
}

func newEnrollmentHandlerFixture(admitErr error) *EnrollmentHandler {
	course := &models.Course{ID: "c1", InstructorID: "i1", MaxStudents: 10, IsApproved: true, IsActive: true}
	svc := service.NewEnrollmentService(&stubCourseReader{course: course}, &stubAdmissions{err: admitErr}, &stubEnrollmentReader{}, nil, nil, zap.NewNop())
	return NewEnrollmentHandler(svc)
}

func performEnroll(t *testing.T, h *EnrollmentHandler, claims *models.JWTClaims) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/courses/c1/enroll", nil)
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "c1"}}
	if claims != nil {
		c.Set(middleware.ContextUserKey, claims)
	}
	h.Enroll(c)
	return w
}

func TestEnrollmentHandlerEnroll(t *testing.T) {
	h := newEnrollmentHandlerFixture(nil)
	w := performEnroll(t, h, &models.JWTClaims{UserID: "s1", Role: models.RoleStudent})

	require.Equal(t, http.StatusCreated, w.Code)
	var envelope response.Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.Nil(t, envelope.Error)
}

func TestEnrollmentHandlerEnrollAtCapacityReturnsConflict(t *testing.T) {
	h := newEnrollmentHandlerFixture(repository.ErrCourseFull)
	w := performEnroll(t, h, &models.JWTClaims{UserID: "s1", Role: models.RoleStudent})

	require.Equal(t, http.StatusConflict, w.Code)
	var envelope response.Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.NotNil(t, envelope.Error)
	assert.Equal(t, "CAPACITY_EXCEEDED", envelope.Error.Code)
}

func TestEnrollmentHandlerEnrollWithoutClaims(t *testing.T) {
	h := newEnrollmentHandlerFixture(nil)
	w := performEnroll(t, h, nil)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
