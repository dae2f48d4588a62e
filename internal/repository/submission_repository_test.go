package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/require"

	"github.com/chendurkumaran/Edu-resource-sub000/internal/models"
)

func TestSubmissionRepositoryCreateMapsUniqueViolation(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewSubmissionRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO submissions")).
		WillReturnError(&pq.Error{Code: "23505"})

	err := repo.Create(context.Background(), &models.Submission{AssignmentID: "asg-1", StudentID: "stu-1"})
	require.ErrorIs(t, err, ErrDuplicateSubmission)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSubmissionRepositoryUpdateContentLeavesGradeColumns(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewSubmissionRepository(db)

	text := "revised answer"
	mock.ExpectExec(regexp.QuoteMeta("UPDATE submissions SET text_body = $2, updated_at = $3 WHERE id = $1")).
		WithArgs("sub-1", &text, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.UpdateContent(context.Background(), "sub-1", &text))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSubmissionRepositoryUpdateGradeLeavesContentColumns(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewSubmissionRepository(db)

	gradedAt := time.Now().UTC()
	mock.ExpectExec(regexp.QuoteMeta("SET status = $2, grade_points = $3, grade_feedback = $4, graded_at = $5, graded_by = $6")).
		WithArgs("sub-1", models.SubmissionStatusGraded, 87.5, nil, gradedAt, "instructor-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.UpdateGrade(context.Background(), "sub-1", 87.5, nil, "instructor-1", gradedAt))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSubmissionRepositoryFindByIDHydratesGrade(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewSubmissionRepository(db)

	points := 90.0
	gradedBy := "instructor-1"
	gradedAt := time.Now().UTC()
	rows := sqlmock.NewRows([]string{"id", "assignment_id", "student_id", "text_body", "submitted_at", "is_late", "status", "grade_points", "grade_feedback", "graded_at", "graded_by", "updated_at"}).
		AddRow("sub-1", "asg-1", "stu-1", nil, time.Now(), false, models.SubmissionStatusGraded, points, nil, gradedAt, gradedBy, time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("FROM submissions WHERE id = $1")).
		WithArgs("sub-1").
		WillReturnRows(rows)

	submission, err := repo.FindByID(context.Background(), "sub-1")
	require.NoError(t, err)
	require.NotNil(t, submission.Grade)
	require.Equal(t, 90.0, submission.Grade.Points)
	require.Equal(t, "instructor-1", submission.Grade.GradedBy)
	require.NoError(t, mock.ExpectationsWereMet())
}
