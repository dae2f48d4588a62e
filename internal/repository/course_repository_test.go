package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
)

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestCourseRepositoryTryIncrementEnrollmentAdmits(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewCourseRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE courses")).
		WithArgs("course-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	tx, err := repo.BeginTx(context.Background())
	require.NoError(t, err)
	admitted, err := repo.TryIncrementEnrollment(context.Background(), tx, "course-1")
	require.NoError(t, err)
	require.True(t, admitted)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseRepositoryTryIncrementEnrollmentAtCapacity(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewCourseRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE courses")).
		WithArgs("course-1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	tx, err := repo.BeginTx(context.Background())
	require.NoError(t, err)
	admitted, err := repo.TryIncrementEnrollment(context.Background(), tx, "course-1")
	require.NoError(t, err)
	require.False(t, admitted)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseRepositoryListModulesOrdersByPosition(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewCourseRepository(db)

	moduleRows := sqlmock.NewRows([]string{"id", "course_id", "title", "position", "is_assignment_blocking", "created_at"}).
		AddRow("mod-1", "course-1", "Basics", 0, true, time.Now()).
		AddRow("mod-2", "course-1", "Advanced", 1, false, time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("FROM modules WHERE course_id = $1 ORDER BY position ASC")).
		WithArgs("course-1").
		WillReturnRows(moduleRows)

	refRows := sqlmock.NewRows([]string{"module_id", "assignment_id"}).
		AddRow("mod-1", "asg-1").
		AddRow("mod-1", "asg-2")
	mock.ExpectQuery(regexp.QuoteMeta("FROM module_assignments ma")).
		WithArgs("course-1").
		WillReturnRows(refRows)

	modules, err := repo.ListModules(context.Background(), "course-1")
	require.NoError(t, err)
	require.Len(t, modules, 2)
	require.Equal(t, []string{"asg-1", "asg-2"}, modules[0].AssignmentIDs)
	require.Empty(t, modules[1].AssignmentIDs)
	require.NoError(t, mock.ExpectationsWereMet())
}
