package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/chendurkumaran/Edu-resource-sub000/internal/models"
	appErrors "github.com/chendurkumaran/Edu-resource-sub000/pkg/errors"
	"github.com/chendurkumaran/Edu-resource-sub000/pkg/export"
)

// ExportFormat selects the gradebook output encoding.
type ExportFormat string

const (
	ExportFormatCSV ExportFormat = "csv"
	ExportFormatPDF ExportFormat = "pdf"
)

type exportAssignmentStore interface {
	ListByCourse(ctx context.Context, courseID string) ([]models.Assignment, error)
}

type exportSubmissionStore interface {
	ListByAssignment(ctx context.Context, assignmentID string) ([]models.Submission, error)
}

type exportUserStore interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

// ExportService renders the per-course gradebook as CSV or PDF.
type ExportService struct {
	courses     enrollmentCourseStore
	assignments exportAssignmentStore
	submissions exportSubmissionStore
	users       exportUserStore
	csv         *export.CSVExporter
	pdf         *export.PDFExporter
	logger      *zap.Logger
}

// NewExportService constructs the service.
func NewExportService(
	courses enrollmentCourseStore,
	assignments exportAssignmentStore,
	submissions exportSubmissionStore,
	users exportUserStore,
	logger *zap.Logger,
) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{
		courses:     courses,
		assignments: assignments,
		submissions: submissions,
		users:       users,
		csv:         export.NewCSVExporter(),
		pdf:         export.NewPDFExporter(),
		logger:      logger,
	}
}

// Gradebook renders every submission of the course into one table. Staff
// only. Returns content bytes, a filename and the MIME type.
func (s *ExportService) Gradebook(ctx context.Context, actor *models.JWTClaims, courseID string, format ExportFormat) ([]byte, string, string, error) {
	course, err := s.courses.FindByID(ctx, courseID)
	if err != nil {
		return nil, "", "", appErrors.ErrNotFound
	}
	if err := requireCourseStaff(actor, course); err != nil {
		return nil, "", "", err
	}

	assignments, err := s.assignments.ListByCourse(ctx, courseID)
	if err != nil {
		return nil, "", "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list assignments")
	}

	table := export.Table{
		Title:   fmt.Sprintf("Gradebook - %s (%s)", course.Title, course.Code),
		Headers: []string{"Student", "Assignment", "Submitted At", "Late", "Status", "Points", "Total"},
	}

	names := make(map[string]string)
	for _, assignment := range assignments {
		submissions, err := s.submissions.ListByAssignment(ctx, assignment.ID)
		if err != nil {
			return nil, "", "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list submissions")
		}
		for i := range submissions {
			sub := &submissions[i]
			sub.HydrateGrade()
			points := ""
			if sub.Grade != nil {
				points = strconv.FormatFloat(sub.Grade.Points, 'f', -1, 64)
			}
			table.Rows = append(table.Rows, []string{
				s.studentName(ctx, names, sub.StudentID),
				assignment.Title,
				sub.SubmittedAt.Format(time.RFC3339),
				strconv.FormatBool(sub.IsLate),
				string(sub.Status),
				points,
				strconv.FormatFloat(assignment.TotalPoints, 'f', -1, 64),
			})
		}
	}

	switch format {
	case ExportFormatPDF:
		data, err := s.pdf.Render(table)
		if err != nil {
			return nil, "", "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf")
		}
		return data, fmt.Sprintf("gradebook-%s.pdf", course.Code), "application/pdf", nil
	case ExportFormatCSV:
		data, err := s.csv.Render(table)
		if err != nil {
			return nil, "", "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv")
		}
		return data, fmt.Sprintf("gradebook-%s.csv", course.Code), "text/csv", nil
	default:
		return nil, "", "", appErrors.Clone(appErrors.ErrValidation, "unsupported export format")
	}
}

func (s *ExportService) studentName(ctx context.Context, cache map[string]string, studentID string) string {
	if name, ok := cache[studentID]; ok {
		return name
	}
	name := studentID
	if user, err := s.users.FindByID(ctx, studentID); err == nil {
		name = user.FullName
	}
	cache[studentID] = name
	return name
}
