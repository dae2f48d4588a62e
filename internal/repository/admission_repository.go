package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/chendurkumaran/Edu-resource-sub000/internal/models"
)

// Sentinel outcomes of the admission transaction. The service layer maps
// these onto the user-facing error taxonomy.
var (
	ErrCourseFull          = errors.New("course at capacity")
	ErrDuplicateEnrollment = errors.New("active enrollment exists")
	ErrNoActiveEnrollment  = errors.New("no active enrollment")
	ErrDuplicateSubmission = errors.New("submission exists for assignment")
)

// isUniqueViolation reports whether err is a PostgreSQL unique_violation.
// Check-then-insert races lose here, so callers translate this into the
// matching duplicate sentinel instead of a generic failure.
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

// AdmissionRepository runs the capacity-guarded admission workflow as a
// single transaction. The counter check and increment execute as one
// conditional UPDATE, so concurrent admissions against the last seat
// serialize at the database and exactly one wins.
type AdmissionRepository struct {
	db          *sqlx.DB
	courses     *CourseRepository
	enrollments *EnrollmentRepository
}

// NewAdmissionRepository constructs the repository.
func NewAdmissionRepository(db *sqlx.DB, courses *CourseRepository, enrollments *EnrollmentRepository) *AdmissionRepository {
	return &AdmissionRepository{db: db, courses: courses, enrollments: enrollments}
}

// Admit creates or reactivates the enrollment row for (student, course)
// while atomically claiming a capacity slot. Returns ErrDuplicateEnrollment
// when an active row already exists and ErrCourseFull when the conditional
// counter update claims no slot.
func (r *AdmissionRepository) Admit(ctx context.Context, studentID, courseID string) (*models.Enrollment, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin admission: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	existing, err := r.enrollments.FindByStudentAndCourseTx(ctx, tx, studentID, courseID)
	if err != nil && err != sql.ErrNoRows {
		return nil, err
	}
	if existing != nil && existing.Active() {
		return nil, ErrDuplicateEnrollment
	}

	admitted, err := r.courses.TryIncrementEnrollment(ctx, tx, courseID)
	if err != nil {
		return nil, err
	}
	if !admitted {
		return nil, ErrCourseFull
	}

	now := time.Now().UTC()
	var enrollment *models.Enrollment
	if existing != nil {
		if err := r.enrollments.ReactivateTx(ctx, tx, existing.ID, now); err != nil {
			return nil, err
		}
		existing.Status = models.EnrollmentStatusEnrolled
		existing.EnrolledAt = now
		existing.DroppedAt = nil
		enrollment = existing
	} else {
		enrollment = &models.Enrollment{
			StudentID:  studentID,
			CourseID:   courseID,
			Status:     models.EnrollmentStatusEnrolled,
			EnrolledAt: now,
		}
		if err := r.enrollments.CreateTx(ctx, tx, enrollment); err != nil {
			if isUniqueViolation(err) {
				return nil, ErrDuplicateEnrollment
			}
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit admission: %w", err)
	}
	return enrollment, nil
}

// Withdraw marks the active enrollment dropped and releases its capacity
// slot. Returns ErrNoActiveEnrollment when there is nothing to release;
// the counter is never driven negative.
func (r *AdmissionRepository) Withdraw(ctx context.Context, studentID, courseID string) (*models.Enrollment, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin withdrawal: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	existing, err := r.enrollments.FindByStudentAndCourseTx(ctx, tx, studentID, courseID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNoActiveEnrollment
		}
		return nil, err
	}
	if !existing.Active() {
		return nil, ErrNoActiveEnrollment
	}

	now := time.Now().UTC()
	if err := r.enrollments.UpdateStatusTx(ctx, tx, existing.ID, models.EnrollmentStatusDropped, &now); err != nil {
		return nil, err
	}
	if err := r.courses.DecrementEnrollment(ctx, tx, courseID); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit withdrawal: %w", err)
	}

	existing.Status = models.EnrollmentStatusDropped
	existing.DroppedAt = &now
	return existing, nil
}
