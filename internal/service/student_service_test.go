package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ujumbe360/school-portal-api/internal/models"
	appErrors "github.com/ujumbe360/school-portal-api/pkg/errors"
)

type fakeStudentRepo struct {
	students      map[string]*models.Student
	dependents    map[string]bool
	deleteBlocked bool
}

func (f *fakeStudentRepo) List(_ context.Context, _ models.StudentFilter) ([]models.Student, int, error) {
	var out []models.Student
	for _, s := range f.students {
		out = append(out, *s)
	}
	return out, len(out), nil
}

func (f *fakeStudentRepo) FindByID(_ context.Context, id string) (*models.Student, error) {
	s, ok := f.students[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return s, nil
}

func (f *fakeStudentRepo) ExistsByAdmissionNumber(_ context.Context, admissionNumber string, excludeID string) (bool, error) {
	for _, s := range f.students {
		if s.AdmissionNumber == admissionNumber && s.ID != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeStudentRepo) Create(_ context.Context, student *models.Student) error {
	f.students[student.ID] = student
	return nil
}

func (f *fakeStudentRepo) Update(_ context.Context, student *models.Student) error {
	if _, ok := f.students[student.ID]; !ok {
		return sql.ErrNoRows
	}
	f.students[student.ID] = student
	return nil
}

func (f *fakeStudentRepo) Deactivate(_ context.Context, id string) error {
	s, ok := f.students[id]
	if !ok {
		return sql.ErrNoRows
	}
	s.Active = false
	return nil
}

func (f *fakeStudentRepo) HasDependentRecords(_ context.Context, id string) (bool, error) {
	return f.dependents[id], nil
}

func (f *fakeStudentRepo) Delete(_ context.Context, id string) (bool, error) {
	if f.deleteBlocked {
		return true, nil
	}
	delete(f.students, id)
	return false, nil
}

func (f *fakeStudentRepo) ClassLevels(_ context.Context) ([]string, error) {
	seen := map[string]bool{}
	var out []string
	for _, s := range f.students {
		if !seen[s.ClassLevel] {
			seen[s.ClassLevel] = true
			out = append(out, s.ClassLevel)
		}
	}
	return out, nil
}

type fakeGuardianReader struct {
	byStudent map[string][]models.Guardian
}

func (f *fakeGuardianReader) ListByStudent(_ context.Context, studentID string) ([]models.Guardian, error) {
	return f.byStudent[studentID], nil
}

func newStudentFixture() (*StudentService, *fakeStudentRepo) {
	repo := &fakeStudentRepo{
		students: map[string]*models.Student{
			"student-1": {ID: "student-1", AdmissionNumber: "ADM-001", FirstName: "Amina", ClassLevel: "P4", Active: true},
			"student-2": {ID: "student-2", AdmissionNumber: "ADM-002", FirstName: "Brian", ClassLevel: "P5", Active: true},
		},
		dependents: map[string]bool{},
	}
	guardians := &fakeGuardianReader{byStudent: map[string][]models.Guardian{
		"student-1": {{ID: "guardian-1", FirstName: "Grace"}},
	}}
	return NewStudentService(repo, guardians, nil, zap.NewNop()), repo
}

func TestStudentServiceCreate(t *testing.T) {
	svc, repo := newStudentFixture()

	created, err := svc.Create(context.Background(), models.StudentCreateRequest{
		AdmissionNumber: "ADM-003",
		FirstName:       "Cynthia",
		DateOfBirth:     time.Date(2017, 5, 2, 0, 0, 0, 0, time.UTC),
		ClassLevel:      "P3",
	})
	require.NoError(t, err)
	assert.True(t, created.Active)
	assert.NotEmpty(t, created.ID)
	assert.Len(t, repo.students, 3)
}

func TestStudentServiceCreateDuplicateAdmission(t *testing.T) {
	svc, repo := newStudentFixture()

	_, err := svc.Create(context.Background(), models.StudentCreateRequest{
		AdmissionNumber: "ADM-001",
		FirstName:       "Copy",
		DateOfBirth:     time.Date(2017, 5, 2, 0, 0, 0, 0, time.UTC),
		ClassLevel:      "P3",
	})
	assert.True(t, appErrors.HasCode(err, appErrors.ErrConflict))
	assert.Len(t, repo.students, 2)
}

func TestStudentServiceUpdateKeepsAdmissionNumber(t *testing.T) {
	svc, _ := newStudentFixture()

	updated, err := svc.Update(context.Background(), "student-1", models.StudentUpdateRequest{
		FirstName:   "Amina",
		LastName:    "Njeri",
		DateOfBirth: time.Date(2016, 1, 15, 0, 0, 0, 0, time.UTC),
		ClassLevel:  "P5",
	})
	require.NoError(t, err)
	assert.Equal(t, "ADM-001", updated.AdmissionNumber)
	assert.Equal(t, "P5", updated.ClassLevel)
	assert.Equal(t, "Njeri", updated.LastName)
}

func TestStudentServiceGetIncludesGuardians(t *testing.T) {
	svc, _ := newStudentFixture()

	detail, err := svc.Get(context.Background(), staffPrincipal(), "student-1")
	require.NoError(t, err)
	require.Len(t, detail.Guardians, 1)
	assert.Equal(t, "guardian-1", detail.Guardians[0].ID)

	_, err = svc.Get(context.Background(), staffPrincipal(), "ghost")
	assert.True(t, appErrors.HasCode(err, appErrors.ErrNotFound))
}

func TestStudentServiceGetScope(t *testing.T) {
	svc, _ := newStudentFixture()

	_, err := svc.Get(context.Background(), parentPrincipal("student-2"), "student-1")
	assert.True(t, appErrors.HasCode(err, appErrors.ErrScopeViolation))

	detail, err := svc.Get(context.Background(), parentPrincipal("student-1"), "student-1")
	require.NoError(t, err)
	assert.Equal(t, "ADM-001", detail.AdmissionNumber)
}

func TestStudentServiceParentListOnlyLinked(t *testing.T) {
	svc, _ := newStudentFixture()

	students, total, err := svc.List(context.Background(), parentPrincipal("student-2"), models.StudentFilter{})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, students, 1)
	assert.Equal(t, "student-2", students[0].ID)

	// a stale link to a removed student is skipped, not an error
	students, _, err = svc.List(context.Background(), parentPrincipal("student-2", "ghost"), models.StudentFilter{})
	require.NoError(t, err)
	assert.Len(t, students, 1)
}

func TestStudentServiceDeactivate(t *testing.T) {
	svc, repo := newStudentFixture()

	require.NoError(t, svc.Deactivate(context.Background(), "student-1"))
	assert.False(t, repo.students["student-1"].Active)
}

func TestStudentServiceDeleteClean(t *testing.T) {
	svc, repo := newStudentFixture()

	require.NoError(t, svc.Delete(context.Background(), "student-2"))
	_, ok := repo.students["student-2"]
	assert.False(t, ok)
}

func TestStudentServiceDeleteBlockedByHistory(t *testing.T) {
	svc, repo := newStudentFixture()
	repo.dependents["student-1"] = true

	err := svc.Delete(context.Background(), "student-1")
	assert.True(t, appErrors.HasCode(err, appErrors.ErrConflict))
	_, ok := repo.students["student-1"]
	assert.True(t, ok)
}

func TestStudentServiceDeleteBlockedInsideTransaction(t *testing.T) {
	svc, repo := newStudentFixture()
	repo.deleteBlocked = true

	err := svc.Delete(context.Background(), "student-2")
	assert.True(t, appErrors.HasCode(err, appErrors.ErrConflict))
}

func TestStudentServiceClassLevels(t *testing.T) {
	svc, _ := newStudentFixture()

	levels, err := svc.ClassLevels(context.Background())
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"P4", "P5"}, levels)
}
