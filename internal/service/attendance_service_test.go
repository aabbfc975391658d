package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ujumbe360/school-portal-api/internal/models"
	appErrors "github.com/ujumbe360/school-portal-api/pkg/errors"
)

type fakeAttendanceRepo struct {
	records map[string]models.Attendance // keyed student|date
}

func attendanceKey(studentID string, date time.Time) string {
	return studentID + "|" + date.Format("2006-01-02")
}

func (f *fakeAttendanceRepo) Upsert(_ context.Context, record *models.Attendance) (*models.Attendance, error) {
	f.records[attendanceKey(record.StudentID, record.Date)] = *record
	return record, nil
}

func (f *fakeAttendanceRepo) BulkUpsert(_ context.Context, records []models.Attendance) error {
	for _, r := range records {
		f.records[attendanceKey(r.StudentID, r.Date)] = r
	}
	return nil
}

func (f *fakeAttendanceRepo) List(_ context.Context, filter models.AttendanceFilter) ([]models.Attendance, int, error) {
	var out []models.Attendance
	for _, r := range f.records {
		if r.StudentID == filter.StudentID {
			out = append(out, r)
		}
	}
	return out, len(out), nil
}

func (f *fakeAttendanceRepo) Summary(_ context.Context, studentID string, _, _ *time.Time) (*models.AttendanceSummary, error) {
	summary := &models.AttendanceSummary{StudentID: studentID}
	for _, r := range f.records {
		if r.StudentID != studentID {
			continue
		}
		summary.Total++
		switch r.Status {
		case models.AttendanceStatusPresent:
			summary.Present++
		case models.AttendanceStatusAbsent:
			summary.Absent++
		case models.AttendanceStatusLate:
			summary.Late++
		case models.AttendanceStatusExcused:
			summary.Excused++
		}
	}
	if summary.Total > 0 {
		pct := float64(summary.Present) / float64(summary.Total) * 100
		summary.PercentPresent = &pct
	}
	return summary, nil
}

func newAttendanceFixture() (*AttendanceService, *fakeAttendanceRepo) {
	attendance := &fakeAttendanceRepo{records: map[string]models.Attendance{}}
	students := &fakeStudentReader{students: map[string]*models.Student{
		"student-1": {ID: "student-1", ClassLevel: "P4", Active: true},
		"student-2": {ID: "student-2", ClassLevel: "P4", Active: true},
	}}
	return NewAttendanceService(attendance, students, nil, zap.NewNop()), attendance
}

func TestAttendanceServiceMarkOverwritesSameDay(t *testing.T) {
	svc, repo := newAttendanceFixture()
	day := time.Date(2026, 3, 9, 10, 30, 0, 0, time.UTC)

	_, err := svc.Mark(context.Background(), "staff-1", models.AttendanceMarkRequest{
		StudentID: "student-1", Date: day, Status: models.AttendanceStatusAbsent,
	})
	require.NoError(t, err)

	saved, err := svc.Mark(context.Background(), "staff-1", models.AttendanceMarkRequest{
		StudentID: "student-1", Date: day, Status: models.AttendanceStatusLate,
	})
	require.NoError(t, err)

	assert.Len(t, repo.records, 1)
	assert.Equal(t, models.AttendanceStatusLate, saved.Status)
	assert.Equal(t, time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC), saved.Date)
}

func TestAttendanceServiceMarkRejectsUnknownStatus(t *testing.T) {
	svc, repo := newAttendanceFixture()

	_, err := svc.Mark(context.Background(), "staff-1", models.AttendanceMarkRequest{
		StudentID: "student-1", Date: time.Now(), Status: "HOLIDAY",
	})
	assert.True(t, appErrors.HasCode(err, appErrors.ErrValidation))
	assert.Empty(t, repo.records)
}

func TestAttendanceServiceMarkUnknownStudent(t *testing.T) {
	svc, _ := newAttendanceFixture()

	_, err := svc.Mark(context.Background(), "staff-1", models.AttendanceMarkRequest{
		StudentID: "ghost", Date: time.Now(), Status: models.AttendanceStatusPresent,
	})
	assert.True(t, appErrors.HasCode(err, appErrors.ErrNotFound))
}

func TestAttendanceServiceBulkMark(t *testing.T) {
	svc, repo := newAttendanceFixture()
	day := time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC)

	count, err := svc.BulkMark(context.Background(), "staff-1", models.AttendanceBulkRequest{
		Date: day,
		Marks: []models.AttendanceMarkRequest{
			{StudentID: "student-1", Date: day, Status: models.AttendanceStatusPresent},
			{StudentID: "student-2", Date: day, Status: models.AttendanceStatusAbsent},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	assert.Len(t, repo.records, 2)
}

func TestAttendanceServiceBulkMarkRejectsDuplicateStudent(t *testing.T) {
	svc, repo := newAttendanceFixture()
	day := time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC)

	_, err := svc.BulkMark(context.Background(), "staff-1", models.AttendanceBulkRequest{
		Date: day,
		Marks: []models.AttendanceMarkRequest{
			{StudentID: "student-1", Date: day, Status: models.AttendanceStatusPresent},
			{StudentID: "student-1", Date: day, Status: models.AttendanceStatusAbsent},
		},
	})
	assert.True(t, appErrors.HasCode(err, appErrors.ErrValidation))
	assert.Empty(t, repo.records)
}

func TestAttendanceServiceBulkMarkRejectsBadStatus(t *testing.T) {
	svc, repo := newAttendanceFixture()
	day := time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC)

	_, err := svc.BulkMark(context.Background(), "staff-1", models.AttendanceBulkRequest{
		Date: day,
		Marks: []models.AttendanceMarkRequest{
			{StudentID: "student-1", Date: day, Status: models.AttendanceStatusPresent},
			{StudentID: "student-2", Date: day, Status: "SLEEPING"},
		},
	})
	assert.True(t, appErrors.HasCode(err, appErrors.ErrValidation))
	assert.Empty(t, repo.records)
}

func TestAttendanceServiceListRequiresStudent(t *testing.T) {
	svc, _ := newAttendanceFixture()

	_, _, err := svc.List(context.Background(), staffPrincipal(), models.AttendanceFilter{})
	assert.True(t, appErrors.HasCode(err, appErrors.ErrValidation))
}

func TestAttendanceServiceListScope(t *testing.T) {
	svc, _ := newAttendanceFixture()

	_, _, err := svc.List(context.Background(), parentPrincipal("student-2"), models.AttendanceFilter{StudentID: "student-1"})
	assert.True(t, appErrors.HasCode(err, appErrors.ErrScopeViolation))

	_, _, err = svc.List(context.Background(), parentPrincipal("student-1"), models.AttendanceFilter{StudentID: "student-1"})
	assert.NoError(t, err)
}

func TestAttendanceServiceSummaryPercentage(t *testing.T) {
	svc, _ := newAttendanceFixture()

	for i, status := range []models.AttendanceStatus{
		models.AttendanceStatusPresent,
		models.AttendanceStatusPresent,
		models.AttendanceStatusPresent,
		models.AttendanceStatusAbsent,
	} {
		day := time.Date(2026, 3, 2+i, 0, 0, 0, 0, time.UTC)
		_, err := svc.Mark(context.Background(), "staff-1", models.AttendanceMarkRequest{
			StudentID: "student-1", Date: day, Status: status,
		})
		require.NoError(t, err)
	}

	summary, err := svc.Summary(context.Background(), staffPrincipal(), "student-1", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 4, summary.Total)
	assert.Equal(t, 3, summary.Present)
	require.NotNil(t, summary.PercentPresent)
	assert.InDelta(t, 75.0, *summary.PercentPresent, 0.001)
}

func TestAttendanceServiceSummaryNoDataIsNil(t *testing.T) {
	svc, _ := newAttendanceFixture()

	summary, err := svc.Summary(context.Background(), staffPrincipal(), "student-1", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Total)
	assert.Nil(t, summary.PercentPresent)
}

func TestAttendanceServiceSummaryScope(t *testing.T) {
	svc, _ := newAttendanceFixture()

	_, err := svc.Summary(context.Background(), parentPrincipal("student-2"), "student-1", nil, nil)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrScopeViolation))
}
