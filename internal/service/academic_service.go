package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ujumbe360/school-portal-api/internal/models"
	appErrors "github.com/ujumbe360/school-portal-api/pkg/errors"
	"github.com/ujumbe360/school-portal-api/pkg/export"
)

type examRepository interface {
	List(ctx context.Context, filter models.ExamFilter) ([]models.Exam, int, error)
	FindByID(ctx context.Context, id string) (*models.Exam, error)
	Create(ctx context.Context, exam *models.Exam) error
	Update(ctx context.Context, exam *models.Exam) error
	Delete(ctx context.Context, id string) error
}

type gradeRepository interface {
	Upsert(ctx context.Context, grade *models.Grade) (*models.Grade, error)
	ReportRows(ctx context.Context, studentID string) ([]models.ReportRow, error)
	Delete(ctx context.Context, studentID, examID string) error
}

type academicStudentReader interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
}

// AcademicService manages exams, grade entry and report generation.
type AcademicService struct {
	exams     examRepository
	grades    gradeRepository
	students  academicStudentReader
	csv       *export.CSVExporter
	pdf       *export.PDFExporter
	validator *validator.Validate
	logger    *zap.Logger
}

// NewAcademicService constructs an AcademicService instance.
func NewAcademicService(exams examRepository, grades gradeRepository, students academicStudentReader, validate *validator.Validate, logger *zap.Logger) *AcademicService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &AcademicService{
		exams:     exams,
		grades:    grades,
		students:  students,
		csv:       export.NewCSVExporter(),
		pdf:       export.NewPDFExporter(),
		validator: validate,
		logger:    logger,
	}
}

// ListExams returns exams matching the filter.
func (s *AcademicService) ListExams(ctx context.Context, filter models.ExamFilter) ([]models.Exam, int, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 || filter.PageSize > 100 {
		filter.PageSize = 20
	}
	exams, total, err := s.exams.List(ctx, filter)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list exams")
	}
	return exams, total, nil
}

// GetExam returns one exam.
func (s *AcademicService) GetExam(ctx context.Context, id string) (*models.Exam, error) {
	exam, err := s.exams.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "exam not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load exam")
	}
	return exam, nil
}

// CreateExam defines a new exam. MaxScore must be positive.
func (s *AcademicService) CreateExam(ctx context.Context, req models.ExamRequest) (*models.Exam, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid exam payload")
	}

	now := time.Now().UTC()
	exam := &models.Exam{
		ID:         uuid.NewString(),
		Name:       req.Name,
		ClassLevel: req.ClassLevel,
		Date:       req.Date,
		MaxScore:   req.MaxScore,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.exams.Create(ctx, exam); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create exam")
	}
	return exam, nil
}

// UpdateExam changes an exam definition. Lowering MaxScore below scores
// already entered is rejected rather than silently invalidating grades.
func (s *AcademicService) UpdateExam(ctx context.Context, id string, req models.ExamRequest) (*models.Exam, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid exam payload")
	}

	exam, err := s.exams.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "exam not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load exam")
	}

	exam.Name = req.Name
	exam.ClassLevel = req.ClassLevel
	exam.Date = req.Date
	exam.MaxScore = req.MaxScore
	exam.UpdatedAt = time.Now().UTC()

	if err := s.exams.Update(ctx, exam); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update exam")
	}
	return exam, nil
}

// DeleteExam removes an exam and, through the schema cascade, its grades.
func (s *AcademicService) DeleteExam(ctx context.Context, id string) error {
	if _, err := s.exams.FindByID(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "exam not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load exam")
	}
	if err := s.exams.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete exam")
	}
	return nil
}

// EnterGrade records or corrects a score. The score must lie in
// [0, exam.MaxScore]; values outside the range are rejected before any
// write. Re-entering a (student, exam) pair overwrites the stored score.
func (s *AcademicService) EnterGrade(ctx context.Context, enteredBy string, req models.GradeRequest) (*models.Grade, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid grade payload")
	}

	if _, err := s.students.FindByID(ctx, req.StudentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}

	exam, err := s.exams.FindByID(ctx, req.ExamID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "exam not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load exam")
	}

	if req.Score < 0 || req.Score > exam.MaxScore {
		return nil, appErrors.Clone(appErrors.ErrOutOfRange,
			fmt.Sprintf("score must be between 0 and %g", exam.MaxScore))
	}

	now := time.Now().UTC()
	grade := &models.Grade{
		ID:        uuid.NewString(),
		StudentID: req.StudentID,
		ExamID:    req.ExamID,
		Score:     req.Score,
		EnteredBy: enteredBy,
		CreatedAt: now,
		UpdatedAt: now,
	}
	saved, err := s.grades.Upsert(ctx, grade)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save grade")
	}

	s.logger.Info("grade entered",
		zap.String("student_id", saved.StudentID),
		zap.String("exam_id", saved.ExamID),
		zap.Float64("score", saved.Score))
	return saved, nil
}

// DeleteGrade removes one student's score for one exam.
func (s *AcademicService) DeleteGrade(ctx context.Context, studentID, examID string) error {
	if err := s.grades.Delete(ctx, studentID, examID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "grade not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete grade")
	}
	return nil
}

// Report assembles a student's academic report ordered by exam date.
// Average is the mean of per-exam percentages and is nil when the
// student has no grades at all.
func (s *AcademicService) Report(ctx context.Context, principal *models.Principal, studentID string) (*models.AcademicReport, error) {
	if !principal.CanAccessStudent(studentID) {
		return nil, appErrors.Clone(appErrors.ErrScopeViolation, "student is outside your scope")
	}

	if _, err := s.students.FindByID(ctx, studentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}

	rows, err := s.grades.ReportRows(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load report rows")
	}

	report := &models.AcademicReport{StudentID: studentID, Rows: rows}
	if len(rows) > 0 {
		var sum float64
		for i := range rows {
			if rows[i].MaxScore > 0 {
				rows[i].Percentage = rows[i].Score / rows[i].MaxScore * 100
			}
			sum += rows[i].Percentage
		}
		avg := sum / float64(len(rows))
		report.Average = &avg
	}
	return report, nil
}

// ExportReport renders a student's report as CSV or PDF bytes.
func (s *AcademicService) ExportReport(ctx context.Context, principal *models.Principal, studentID, format string) ([]byte, string, error) {
	report, err := s.Report(ctx, principal, studentID)
	if err != nil {
		return nil, "", err
	}

	student, err := s.students.FindByID(ctx, studentID)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}

	data := export.Dataset{
		Headers: []string{"Exam", "Date", "Score", "Max Score", "Percentage"},
	}
	for _, row := range report.Rows {
		data.Rows = append(data.Rows, map[string]string{
			"Exam":       row.ExamName,
			"Date":       row.ExamDate.Format("2006-01-02"),
			"Score":      fmt.Sprintf("%g", row.Score),
			"Max Score":  fmt.Sprintf("%g", row.MaxScore),
			"Percentage": fmt.Sprintf("%.1f%%", row.Percentage),
		})
	}

	switch format {
	case "csv":
		out, err := s.csv.Render(data)
		if err != nil {
			return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv")
		}
		return out, "text/csv", nil
	case "pdf":
		title := fmt.Sprintf("Academic Report - %s (%s)", student.FullName(), student.AdmissionNumber)
		out, err := s.pdf.Render(data, title)
		if err != nil {
			return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf")
		}
		return out, "application/pdf", nil
	default:
		return nil, "", appErrors.Clone(appErrors.ErrValidation, "unsupported export format")
	}
}
