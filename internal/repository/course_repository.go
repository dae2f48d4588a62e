package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/chendurkumaran/Edu-resource-sub000/internal/models"
)

// CourseRepository handles persistence of the course catalog: courses,
// their ordered modules and the module -> assignment reference lists.
type CourseRepository struct {
	db *sqlx.DB
}

// NewCourseRepository constructs the repository.
func NewCourseRepository(db *sqlx.DB) *CourseRepository {
	return &CourseRepository{db: db}
}

const courseColumns = `id, title, code, instructor_id, max_students, current_enrollment, is_approved, is_active, is_free, created_at, updated_at`

// FindByID returns a course by its ID.
func (r *CourseRepository) FindByID(ctx context.Context, id string) (*models.Course, error) {
	query := fmt.Sprintf(`SELECT %s FROM courses WHERE id = $1`, courseColumns)
	var course models.Course
	if err := r.db.GetContext(ctx, &course, query, id); err != nil {
		return nil, err
	}
	return &course, nil
}

// FindByCode returns a course by its unique code.
func (r *CourseRepository) FindByCode(ctx context.Context, code string) (*models.Course, error) {
	query := fmt.Sprintf(`SELECT %s FROM courses WHERE code = $1`, courseColumns)
	var course models.Course
	if err := r.db.GetContext(ctx, &course, query, code); err != nil {
		return nil, err
	}
	return &course, nil
}

// List returns courses filtered by the provided criteria.
func (r *CourseRepository) List(ctx context.Context, filter models.CourseFilter) ([]models.Course, int, error) {
	var conditions []string
	var args []interface{}

	if filter.InstructorID != "" {
		conditions = append(conditions, fmt.Sprintf("instructor_id = $%d", len(args)+1))
		args = append(args, filter.InstructorID)
	}
	if filter.Approved != nil {
		conditions = append(conditions, fmt.Sprintf("is_approved = $%d", len(args)+1))
		args = append(args, *filter.Approved)
	}
	if filter.Active != nil {
		conditions = append(conditions, fmt.Sprintf("is_active = $%d", len(args)+1))
		args = append(args, *filter.Active)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(title ILIKE $%d OR code ILIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, "%"+filter.Search+"%")
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}

	allowedSorts := map[string]string{
		"title":      "title",
		"code":       "code",
		"created_at": "created_at",
	}
	orderBy := allowedSorts[filter.SortBy]
	if orderBy == "" {
		orderBy = "created_at"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "DESC"
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT %s FROM courses%s ORDER BY %s %s LIMIT %d OFFSET %d`,
		courseColumns, clause, orderBy, order, size, offset)

	var courses []models.Course
	if err := r.db.SelectContext(ctx, &courses, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list courses: %w", err)
	}

	countQuery := "SELECT COUNT(*) FROM courses" + clause
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count courses: %w", err)
	}
	return courses, total, nil
}

// Create persists a new course record.
func (r *CourseRepository) Create(ctx context.Context, course *models.Course) error {
	if course.ID == "" {
		course.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if course.CreatedAt.IsZero() {
		course.CreatedAt = now
	}
	course.UpdatedAt = now
	const query = `INSERT INTO courses (id, title, code, instructor_id, max_students, current_enrollment, is_approved, is_active, is_free, created_at, updated_at)
        VALUES (:id, :title, :code, :instructor_id, :max_students, :current_enrollment, :is_approved, :is_active, :is_free, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, course); err != nil {
		return fmt.Errorf("create course: %w", err)
	}
	return nil
}

// SetApproval flips the approval flag.
func (r *CourseRepository) SetApproval(ctx context.Context, id string, approved bool) error {
	const query = `UPDATE courses SET is_approved = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, approved, time.Now().UTC()); err != nil {
		return fmt.Errorf("set course approval: %w", err)
	}
	return nil
}

// TryIncrementEnrollment performs the admission counter increment as a
// single conditional update. It returns false when the course is at
// capacity; two concurrent callers can never both pass the check because
// the comparison and the increment happen in one statement server-side.
func (r *CourseRepository) TryIncrementEnrollment(ctx context.Context, tx *sqlx.Tx, courseID string) (bool, error) {
	const query = `UPDATE courses
        SET current_enrollment = current_enrollment + 1, updated_at = now()
        WHERE id = $1 AND current_enrollment < max_students`
	res, err := tx.ExecContext(ctx, query, courseID)
	if err != nil {
		return false, fmt.Errorf("increment enrollment counter: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("increment enrollment counter: %w", err)
	}
	return affected == 1, nil
}

// DecrementEnrollment releases one admission slot. The guard keeps the
// counter from going negative when no slot is held.
func (r *CourseRepository) DecrementEnrollment(ctx context.Context, tx *sqlx.Tx, courseID string) error {
	const query = `UPDATE courses
        SET current_enrollment = current_enrollment - 1, updated_at = now()
        WHERE id = $1 AND current_enrollment > 0`
	if _, err := tx.ExecContext(ctx, query, courseID); err != nil {
		return fmt.Errorf("decrement enrollment counter: %w", err)
	}
	return nil
}

// BeginTx opens a transaction for multi-statement admission workflows.
func (r *CourseRepository) BeginTx(ctx context.Context) (*sqlx.Tx, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	return tx, nil
}

// ListModules returns the ordered modules of a course with their
// assignment reference lists.
func (r *CourseRepository) ListModules(ctx context.Context, courseID string) ([]models.Module, error) {
	const query = `SELECT id, course_id, title, position, is_assignment_blocking, created_at
        FROM modules WHERE course_id = $1 ORDER BY position ASC`
	var modules []models.Module
	if err := r.db.SelectContext(ctx, &modules, query, courseID); err != nil {
		return nil, fmt.Errorf("list modules: %w", err)
	}
	if len(modules) == 0 {
		return modules, nil
	}

	const refQuery = `SELECT ma.module_id, ma.assignment_id
        FROM module_assignments ma
        JOIN modules m ON m.id = ma.module_id
        WHERE m.course_id = $1
        ORDER BY ma.position ASC`
	rows, err := r.db.QueryxContext(ctx, refQuery, courseID)
	if err != nil {
		return nil, fmt.Errorf("list module assignments: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	refs := make(map[string][]string)
	for rows.Next() {
		var moduleID, assignmentID string
		if err := rows.Scan(&moduleID, &assignmentID); err != nil {
			return nil, fmt.Errorf("scan module assignment: %w", err)
		}
		refs[moduleID] = append(refs[moduleID], assignmentID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate module assignments: %w", err)
	}

	for i := range modules {
		modules[i].AssignmentIDs = refs[modules[i].ID]
	}
	return modules, nil
}

// CreateModule appends a module at the next position of the course.
func (r *CourseRepository) CreateModule(ctx context.Context, module *models.Module) error {
	if module.ID == "" {
		module.ID = uuid.NewString()
	}
	if module.CreatedAt.IsZero() {
		module.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO modules (id, course_id, title, position, is_assignment_blocking, created_at)
        VALUES ($1, $2, $3, COALESCE((SELECT MAX(position) + 1 FROM modules WHERE course_id = $2), 0), $4, $5)`
	if _, err := r.db.ExecContext(ctx, query, module.ID, module.CourseID, module.Title, module.IsAssignmentBlocking, module.CreatedAt); err != nil {
		return fmt.Errorf("create module: %w", err)
	}
	return nil
}

// SetModuleBlocking updates the gating flag of a module.
func (r *CourseRepository) SetModuleBlocking(ctx context.Context, moduleID string, blocking bool) error {
	const query = `UPDATE modules SET is_assignment_blocking = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, moduleID, blocking); err != nil {
		return fmt.Errorf("set module blocking: %w", err)
	}
	return nil
}

// AddModuleAssignment links an assignment into a module's ordered list.
func (r *CourseRepository) AddModuleAssignment(ctx context.Context, moduleID, assignmentID string) error {
	const query = `INSERT INTO module_assignments (module_id, assignment_id, position)
        VALUES ($1, $2, COALESCE((SELECT MAX(position) + 1 FROM module_assignments WHERE module_id = $1), 0))
        ON CONFLICT (module_id, assignment_id) DO NOTHING`
	if _, err := r.db.ExecContext(ctx, query, moduleID, assignmentID); err != nil {
		return fmt.Errorf("add module assignment: %w", err)
	}
	return nil
}

// RemoveModuleAssignment drops the weak reference; the assignment row and
// any grading history stay intact.
func (r *CourseRepository) RemoveModuleAssignment(ctx context.Context, moduleID, assignmentID string) error {
	const query = `DELETE FROM module_assignments WHERE module_id = $1 AND assignment_id = $2`
	if _, err := r.db.ExecContext(ctx, query, moduleID, assignmentID); err != nil {
		return fmt.Errorf("remove module assignment: %w", err)
	}
	return nil
}

// FindModule returns a single module by ID.
func (r *CourseRepository) FindModule(ctx context.Context, moduleID string) (*models.Module, error) {
	const query = `SELECT id, course_id, title, position, is_assignment_blocking, created_at FROM modules WHERE id = $1`
	var module models.Module
	if err := r.db.GetContext(ctx, &module, query, moduleID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find module: %w", err)
	}
	return &module, nil
}
