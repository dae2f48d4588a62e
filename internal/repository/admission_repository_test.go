package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chendurkumaran/Edu-resource-sub000/internal/models"
)

func newAdmissionRepo(t *testing.T) (*AdmissionRepository, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, cleanup := newRepoMock(t)
	repo := NewAdmissionRepository(db, NewCourseRepository(db), NewEnrollmentRepository(db))
	return repo, mock, cleanup
}

func enrollmentRows(id string, status models.EnrollmentStatus, droppedAt *time.Time) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "student_id", "course_id", "status", "enrolled_at", "dropped_at"}).
		AddRow(id, "s1", "c1", string(status), time.Now().UTC(), droppedAt)
}

const pairForUpdatePattern = `FROM enrollments WHERE student_id = \$1 AND course_id = \$2 FOR UPDATE`

func TestAdmissionRepositoryAdmitCreatesEnrollment(t *testing.T) {
	repo, mock, cleanup := newAdmissionRepo(t)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectQuery(pairForUpdatePattern).
		WithArgs("s1", "c1").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE courses")).
		WithArgs("c1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO enrollments")).
		WithArgs(sqlmock.AnyArg(), "s1", "c1", string(models.EnrollmentStatusEnrolled), sqlmock.AnyArg(), nil).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	enrollment, err := repo.Admit(context.Background(), "s1", "c1")
	require.NoError(t, err)
	assert.Equal(t, models.EnrollmentStatusEnrolled, enrollment.Status)
	assert.Nil(t, enrollment.DroppedAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAdmissionRepositoryAdmitAtCapacityRollsBack(t *testing.T) {
	repo, mock, cleanup := newAdmissionRepo(t)
	defer cleanup()

	// A course with one seat and two concurrent admissions: the loser's
	// conditional update claims zero rows, so no enrollment row is written
	// and the transaction rolls back.
	mock.ExpectBegin()
	mock.ExpectQuery(pairForUpdatePattern).
		WithArgs("s2", "c1").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE courses")).
		WithArgs("c1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	_, err := repo.Admit(context.Background(), "s2", "c1")
	require.ErrorIs(t, err, ErrCourseFull)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAdmissionRepositoryAdmitDuplicateActive(t *testing.T) {
	repo, mock, cleanup := newAdmissionRepo(t)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectQuery(pairForUpdatePattern).
		WithArgs("s1", "c1").
		WillReturnRows(enrollmentRows("e1", models.EnrollmentStatusEnrolled, nil))
	mock.ExpectRollback()

	_, err := repo.Admit(context.Background(), "s1", "c1")
	require.ErrorIs(t, err, ErrDuplicateEnrollment)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAdmissionRepositoryAdmitReactivatesDroppedRow(t *testing.T) {
	repo, mock, cleanup := newAdmissionRepo(t)
	defer cleanup()

	droppedAt := time.Now().UTC().Add(-time.Hour)
	mock.ExpectBegin()
	mock.ExpectQuery(pairForUpdatePattern).
		WithArgs("s1", "c1").
		WillReturnRows(enrollmentRows("e1", models.EnrollmentStatusDropped, &droppedAt))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE courses")).
		WithArgs("c1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE enrollments SET status = $2, enrolled_at = $3, dropped_at = NULL")).
		WithArgs("e1", string(models.EnrollmentStatusEnrolled), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	enrollment, err := repo.Admit(context.Background(), "s1", "c1")
	require.NoError(t, err)
	assert.Equal(t, "e1", enrollment.ID)
	assert.Equal(t, models.EnrollmentStatusEnrolled, enrollment.Status)
	assert.Nil(t, enrollment.DroppedAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAdmissionRepositoryAdmitInsertRaceMapsDuplicate(t *testing.T) {
	repo, mock, cleanup := newAdmissionRepo(t)
	defer cleanup()

	// The pair lookup saw nothing, but by INSERT time another transaction
	// committed the same pair. The unique index fires and the caller gets
	// the duplicate sentinel rather than a generic failure.
	mock.ExpectBegin()
	mock.ExpectQuery(pairForUpdatePattern).
		WithArgs("s1", "c1").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE courses")).
		WithArgs("c1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO enrollments")).
		WithArgs(sqlmock.AnyArg(), "s1", "c1", string(models.EnrollmentStatusEnrolled), sqlmock.AnyArg(), nil).
		WillReturnError(&pq.Error{Code: "23505"})
	mock.ExpectRollback()

	_, err := repo.Admit(context.Background(), "s1", "c1")
	require.ErrorIs(t, err, ErrDuplicateEnrollment)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAdmissionRepositoryWithdrawReleasesSlot(t *testing.T) {
	repo, mock, cleanup := newAdmissionRepo(t)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectQuery(pairForUpdatePattern).
		WithArgs("s1", "c1").
		WillReturnRows(enrollmentRows("e1", models.EnrollmentStatusEnrolled, nil))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE enrollments SET status = $2, dropped_at = $3")).
		WithArgs("e1", string(models.EnrollmentStatusDropped), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE courses")).
		WithArgs("c1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	enrollment, err := repo.Withdraw(context.Background(), "s1", "c1")
	require.NoError(t, err)
	assert.Equal(t, models.EnrollmentStatusDropped, enrollment.Status)
	require.NotNil(t, enrollment.DroppedAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAdmissionRepositoryWithdrawWithoutActiveEnrollment(t *testing.T) {
	repo, mock, cleanup := newAdmissionRepo(t)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectQuery(pairForUpdatePattern).
		WithArgs("s1", "c1").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	_, err := repo.Withdraw(context.Background(), "s1", "c1")
	require.ErrorIs(t, err, ErrNoActiveEnrollment)

	// A previously dropped row releases nothing either.
	mock.ExpectBegin()
	mock.ExpectQuery(pairForUpdatePattern).
		WithArgs("s1", "c1").
		WillReturnRows(enrollmentRows("e1", models.EnrollmentStatusDropped, nil))
	mock.ExpectRollback()

	_, err = repo.Withdraw(context.Background(), "s1", "c1")
	require.ErrorIs(t, err, ErrNoActiveEnrollment)
	require.NoError(t, mock.ExpectationsWereMet())
}
