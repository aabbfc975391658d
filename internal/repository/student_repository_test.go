package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/ujumbe360/school-portal-api/internal/models"
)

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func studentRows(id, admission string) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "admission_number", "first_name", "last_name", "date_of_birth", "class_level", "active", "created_at", "updated_at"}).
		AddRow(id, admission, "Amina", "Njeri", time.Date(2016, 1, 15, 0, 0, 0, 0, time.UTC), "P4", true, time.Now(), time.Now())
}

func TestStudentRepositoryCreateAndFind(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewStudentRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO students")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	student := &models.Student{
		AdmissionNumber: "ADM-001",
		FirstName:       "Amina",
		LastName:        "Njeri",
		DateOfBirth:     time.Date(2016, 1, 15, 0, 0, 0, 0, time.UTC),
		ClassLevel:      "P4",
		Active:          true,
	}
	require.NoError(t, repo.Create(context.Background(), student))
	require.NotEmpty(t, student.ID)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, admission_number")).
		WithArgs(student.ID).
		WillReturnRows(studentRows(student.ID, "ADM-001"))

	found, err := repo.FindByID(context.Background(), student.ID)
	require.NoError(t, err)
	require.Equal(t, "ADM-001", found.AdmissionNumber)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryFindByAdmissionNumber(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewStudentRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta("FROM students WHERE admission_number")).
		WithArgs("ADM-001").
		WillReturnRows(studentRows("student-1", "ADM-001"))

	found, err := repo.FindByAdmissionNumber(context.Background(), "ADM-001")
	require.NoError(t, err)
	require.Equal(t, "student-1", found.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryExistsByAdmissionNumber(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewStudentRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM students WHERE admission_number")).
		WithArgs("ADM-001").
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))

	exists, err := repo.ExistsByAdmissionNumber(context.Background(), "ADM-001", "")
	require.NoError(t, err)
	require.True(t, exists)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM students WHERE admission_number")).
		WithArgs("ADM-404").
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}))

	exists, err = repo.ExistsByAdmissionNumber(context.Background(), "ADM-404", "")
	require.NoError(t, err)
	require.False(t, exists)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryListWithFilters(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewStudentRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT s.id, s.admission_number")).
		WithArgs("P4", true).
		WillReturnRows(studentRows("student-1", "ADM-001"))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*)")).
		WithArgs("P4", true).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	active := true
	students, total, err := repo.List(context.Background(), models.StudentFilter{ClassLevel: "P4", Active: &active})
	require.NoError(t, err)
	require.Len(t, students, 1)
	require.Equal(t, 1, total)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryDeactivate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewStudentRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE students SET active = false")).
		WithArgs("student-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Deactivate(context.Background(), "student-1"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryDeleteCleanStudent(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewStudentRepository(db)
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS(SELECT 1 FROM payments")).
		WithArgs("student-1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM guardian_students WHERE student_id")).
		WithArgs("student-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM students WHERE id")).
		WithArgs("student-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	blocked, err := repo.Delete(context.Background(), "student-1")
	require.NoError(t, err)
	require.False(t, blocked)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryDeleteBlockedByHistory(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewStudentRepository(db)
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS(SELECT 1 FROM payments")).
		WithArgs("student-1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectRollback()

	blocked, err := repo.Delete(context.Background(), "student-1")
	require.NoError(t, err)
	require.True(t, blocked)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryClassLevels(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewStudentRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT DISTINCT class_level FROM students")).
		WillReturnRows(sqlmock.NewRows([]string{"class_level"}).AddRow("P4").AddRow("P5"))

	levels, err := repo.ClassLevels(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{"P4", "P5"}, levels)
	require.NoError(t, mock.ExpectationsWereMet())
}
