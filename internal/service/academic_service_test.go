package service

import (
	"bytes"
	"context"
	"database/sql"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ujumbe360/school-portal-api/internal/models"
	appErrors "github.com/ujumbe360/school-portal-api/pkg/errors"
)

type fakeExamRepo struct {
	exams map[string]*models.Exam
}

func (f *fakeExamRepo) List(_ context.Context, _ models.ExamFilter) ([]models.Exam, int, error) {
	out := make([]models.Exam, 0, len(f.exams))
	for _, e := range f.exams {
		out = append(out, *e)
	}
	return out, len(out), nil
}

func (f *fakeExamRepo) FindByID(_ context.Context, id string) (*models.Exam, error) {
	exam, ok := f.exams[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return exam, nil
}

func (f *fakeExamRepo) Create(_ context.Context, exam *models.Exam) error {
	f.exams[exam.ID] = exam
	return nil
}

func (f *fakeExamRepo) Update(_ context.Context, exam *models.Exam) error {
	f.exams[exam.ID] = exam
	return nil
}

func (f *fakeExamRepo) Delete(_ context.Context, id string) error {
	delete(f.exams, id)
	return nil
}

type fakeGradeRepo struct {
	grades map[string]*models.Grade
	rows   []models.ReportRow
}

func gradeKey(studentID, examID string) string { return studentID + "/" + examID }

func (f *fakeGradeRepo) Upsert(_ context.Context, grade *models.Grade) (*models.Grade, error) {
	key := gradeKey(grade.StudentID, grade.ExamID)
	if existing, ok := f.grades[key]; ok {
		existing.Score = grade.Score
		existing.EnteredBy = grade.EnteredBy
		existing.UpdatedAt = grade.UpdatedAt
		return existing, nil
	}
	f.grades[key] = grade
	return grade, nil
}

func (f *fakeGradeRepo) ReportRows(_ context.Context, _ string) ([]models.ReportRow, error) {
	return f.rows, nil
}

func (f *fakeGradeRepo) Delete(_ context.Context, studentID, examID string) error {
	key := gradeKey(studentID, examID)
	if _, ok := f.grades[key]; !ok {
		return sql.ErrNoRows
	}
	delete(f.grades, key)
	return nil
}

func newAcademicFixture() (*AcademicService, *fakeExamRepo, *fakeGradeRepo) {
	exams := &fakeExamRepo{exams: map[string]*models.Exam{
		"exam-1": {ID: "exam-1", Name: "Midterm", ClassLevel: "P4", Date: time.Now(), MaxScore: 100},
		"exam-2": {ID: "exam-2", Name: "Quiz", ClassLevel: "P4", Date: time.Now(), MaxScore: 20},
	}}
	grades := &fakeGradeRepo{grades: map[string]*models.Grade{}}
	students := &fakeStudentReader{students: map[string]*models.Student{
		"student-1": {ID: "student-1", AdmissionNumber: "ADM-001", FirstName: "Amina", ClassLevel: "P4"},
	}}
	return NewAcademicService(exams, grades, students, nil, zap.NewNop()), exams, grades
}

func TestAcademicServiceEnterGradeWithinRange(t *testing.T) {
	svc, _, grades := newAcademicFixture()

	grade, err := svc.EnterGrade(context.Background(), "staff-1", models.GradeRequest{
		StudentID: "student-1", ExamID: "exam-1", Score: 85,
	})
	require.NoError(t, err)
	assert.Equal(t, 85.0, grade.Score)
	assert.Len(t, grades.grades, 1)
}

func TestAcademicServiceEnterGradeOutOfRange(t *testing.T) {
	svc, _, grades := newAcademicFixture()

	_, err := svc.EnterGrade(context.Background(), "staff-1", models.GradeRequest{
		StudentID: "student-1", ExamID: "exam-2", Score: 25,
	})
	assert.True(t, appErrors.HasCode(err, appErrors.ErrOutOfRange))

	_, err = svc.EnterGrade(context.Background(), "staff-1", models.GradeRequest{
		StudentID: "student-1", ExamID: "exam-2", Score: -1,
	})
	assert.True(t, appErrors.HasCode(err, appErrors.ErrValidation))
	assert.Empty(t, grades.grades)
}

func TestAcademicServiceEnterGradeBoundary(t *testing.T) {
	svc, _, _ := newAcademicFixture()

	grade, err := svc.EnterGrade(context.Background(), "staff-1", models.GradeRequest{
		StudentID: "student-1", ExamID: "exam-2", Score: 20,
	})
	require.NoError(t, err)
	assert.Equal(t, 20.0, grade.Score)

	grade, err = svc.EnterGrade(context.Background(), "staff-1", models.GradeRequest{
		StudentID: "student-1", ExamID: "exam-2", Score: 0,
	})
	require.NoError(t, err)
	assert.Equal(t, 0.0, grade.Score)
}

func TestAcademicServiceReEntryOverwrites(t *testing.T) {
	svc, _, grades := newAcademicFixture()

	_, err := svc.EnterGrade(context.Background(), "staff-1", models.GradeRequest{
		StudentID: "student-1", ExamID: "exam-1", Score: 60,
	})
	require.NoError(t, err)
	saved, err := svc.EnterGrade(context.Background(), "staff-2", models.GradeRequest{
		StudentID: "student-1", ExamID: "exam-1", Score: 72,
	})
	require.NoError(t, err)
	assert.Equal(t, 72.0, saved.Score)
	assert.Len(t, grades.grades, 1)
}

func TestAcademicServiceReportAverage(t *testing.T) {
	svc, _, grades := newAcademicFixture()
	grades.rows = []models.ReportRow{
		{ExamID: "exam-1", ExamName: "Midterm", MaxScore: 100, Score: 80},
		{ExamID: "exam-2", ExamName: "Quiz", MaxScore: 20, Score: 12},
	}

	report, err := svc.Report(context.Background(), staffPrincipal(), "student-1")
	require.NoError(t, err)
	require.NotNil(t, report.Average)
	// (80% + 60%) / 2
	assert.InDelta(t, 70.0, *report.Average, 0.001)
	assert.InDelta(t, 80.0, report.Rows[0].Percentage, 0.001)
	assert.InDelta(t, 60.0, report.Rows[1].Percentage, 0.001)
}

func TestAcademicServiceReportNoGradesNilAverage(t *testing.T) {
	svc, _, _ := newAcademicFixture()

	report, err := svc.Report(context.Background(), staffPrincipal(), "student-1")
	require.NoError(t, err)
	assert.Nil(t, report.Average)
	assert.Empty(t, report.Rows)
}

func TestAcademicServiceReportScope(t *testing.T) {
	svc, _, _ := newAcademicFixture()

	_, err := svc.Report(context.Background(), parentPrincipal("student-9"), "student-1")
	assert.True(t, appErrors.HasCode(err, appErrors.ErrScopeViolation))

	_, err = svc.Report(context.Background(), parentPrincipal("student-1"), "student-1")
	assert.NoError(t, err)
}

func TestAcademicServiceCreateExamValidation(t *testing.T) {
	svc, _, _ := newAcademicFixture()

	_, err := svc.CreateExam(context.Background(), models.ExamRequest{
		Name: "Final", ClassLevel: "P4", Date: time.Now(), MaxScore: 0,
	})
	assert.True(t, appErrors.HasCode(err, appErrors.ErrValidation))
}

func TestAcademicServiceExportReportCSV(t *testing.T) {
	svc, _, grades := newAcademicFixture()
	examDate := time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)
	grades.rows = []models.ReportRow{
		{ExamID: "exam-1", ExamName: "Midterm", ExamDate: examDate, MaxScore: 100, Score: 80},
	}

	payload, contentType, err := svc.ExportReport(context.Background(), staffPrincipal(), "student-1", "csv")
	require.NoError(t, err)
	assert.Equal(t, "text/csv", contentType)

	lines := strings.Split(strings.TrimSpace(string(payload)), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "Exam,Date,Score,Max Score,Percentage", strings.TrimSpace(lines[0]))
	assert.Equal(t, "Midterm,2026-03-14,80,100,80.0%", strings.TrimSpace(lines[1]))

	_, _, err = svc.ExportReport(context.Background(), staffPrincipal(), "student-1", "xml")
	assert.True(t, appErrors.HasCode(err, appErrors.ErrValidation))
}

func TestAcademicServiceExportReportPDF(t *testing.T) {
	svc, _, grades := newAcademicFixture()
	grades.rows = []models.ReportRow{
		{ExamID: "exam-1", ExamName: "Midterm", ExamDate: time.Now(), MaxScore: 100, Score: 80},
		{ExamID: "exam-2", ExamName: "Quiz", ExamDate: time.Now(), MaxScore: 20, Score: 15},
	}

	payload, contentType, err := svc.ExportReport(context.Background(), staffPrincipal(), "student-1", "pdf")
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", contentType)
	assert.True(t, bytes.HasPrefix(payload, []byte("%PDF")))
}
