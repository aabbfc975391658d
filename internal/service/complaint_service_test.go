package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ujumbe360/school-portal-api/internal/models"
	appErrors "github.com/ujumbe360/school-portal-api/pkg/errors"
)

type fakeComplaintRepo struct {
	complaints map[string]*models.Complaint
	replies    map[string][]models.ComplaintReply
	seq        int64
}

func (f *fakeComplaintRepo) List(_ context.Context, filter models.ComplaintFilter) ([]models.Complaint, int, error) {
	var out []models.Complaint
	for _, c := range f.complaints {
		if filter.Status != nil && c.Status != *filter.Status {
			continue
		}
		if len(filter.StudentIDs) > 0 {
			match := false
			for _, id := range filter.StudentIDs {
				if c.StudentID == id {
					match = true
					break
				}
			}
			if !match {
				continue
			}
		}
		out = append(out, *c)
	}
	return out, len(out), nil
}

func (f *fakeComplaintRepo) FindByID(_ context.Context, id string) (*models.Complaint, error) {
	c, ok := f.complaints[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return c, nil
}

func (f *fakeComplaintRepo) Create(_ context.Context, complaint *models.Complaint) error {
	f.complaints[complaint.ID] = complaint
	return nil
}

func (f *fakeComplaintRepo) UpdateStatus(_ context.Context, id string, status models.ComplaintStatus) error {
	c, ok := f.complaints[id]
	if !ok {
		return sql.ErrNoRows
	}
	c.Status = status
	return nil
}

func (f *fakeComplaintRepo) Replies(_ context.Context, complaintID string) ([]models.ComplaintReply, error) {
	return f.replies[complaintID], nil
}

func (f *fakeComplaintRepo) AppendReply(_ context.Context, reply *models.ComplaintReply) (*models.ComplaintReply, error) {
	f.seq++
	reply.Seq = f.seq
	f.replies[reply.ComplaintID] = append(f.replies[reply.ComplaintID], *reply)
	return reply, nil
}

func newComplaintFixture() (*ComplaintService, *fakeComplaintRepo) {
	complaints := &fakeComplaintRepo{
		complaints: map[string]*models.Complaint{
			"c-open": {ID: "c-open", StudentID: "student-1", Subject: "Bus delays", Status: models.ComplaintStatusOpen},
			"c-prog": {ID: "c-prog", StudentID: "student-1", Subject: "Lost book", Status: models.ComplaintStatusInProgress},
			"c-done": {ID: "c-done", StudentID: "student-2", Subject: "Meals", Status: models.ComplaintStatusResolved},
		},
		replies: map[string][]models.ComplaintReply{},
	}
	students := &fakeStudentReader{students: map[string]*models.Student{
		"student-1": {ID: "student-1", ClassLevel: "P4"},
		"student-2": {ID: "student-2", ClassLevel: "P5"},
	}}
	return NewComplaintService(complaints, students, nil, zap.NewNop()), complaints
}

func TestComplaintServiceForwardTransitions(t *testing.T) {
	svc, repo := newComplaintFixture()

	c, err := svc.ChangeStatus(context.Background(), staffPrincipal(), "c-open", models.ComplaintStatusRequest{Status: models.ComplaintStatusInProgress})
	require.NoError(t, err)
	assert.Equal(t, models.ComplaintStatusInProgress, c.Status)

	c, err = svc.ChangeStatus(context.Background(), staffPrincipal(), "c-open", models.ComplaintStatusRequest{Status: models.ComplaintStatusResolved})
	require.NoError(t, err)
	assert.Equal(t, models.ComplaintStatusResolved, repo.complaints["c-open"].Status)
	assert.Equal(t, models.ComplaintStatusResolved, c.Status)
}

func TestComplaintServiceSkippingStateRejected(t *testing.T) {
	svc, repo := newComplaintFixture()

	_, err := svc.ChangeStatus(context.Background(), staffPrincipal(), "c-open", models.ComplaintStatusRequest{Status: models.ComplaintStatusResolved})
	assert.True(t, appErrors.HasCode(err, appErrors.ErrConflict))
	assert.Equal(t, models.ComplaintStatusOpen, repo.complaints["c-open"].Status)
}

func TestComplaintServiceStaffReopen(t *testing.T) {
	svc, _ := newComplaintFixture()

	c, err := svc.ChangeStatus(context.Background(), staffPrincipal(), "c-done", models.ComplaintStatusRequest{Status: models.ComplaintStatusOpen})
	require.NoError(t, err)
	assert.Equal(t, models.ComplaintStatusOpen, c.Status)
}

func TestComplaintServiceParentCannotChangeStatus(t *testing.T) {
	svc, repo := newComplaintFixture()

	_, err := svc.ChangeStatus(context.Background(), parentPrincipal("student-1"), "c-open", models.ComplaintStatusRequest{Status: models.ComplaintStatusInProgress})
	assert.True(t, appErrors.HasCode(err, appErrors.ErrForbidden))
	assert.Equal(t, models.ComplaintStatusOpen, repo.complaints["c-open"].Status)
}

func TestComplaintServiceSameStatusIsNoop(t *testing.T) {
	svc, _ := newComplaintFixture()

	c, err := svc.ChangeStatus(context.Background(), staffPrincipal(), "c-open", models.ComplaintStatusRequest{Status: models.ComplaintStatusOpen})
	require.NoError(t, err)
	assert.Equal(t, models.ComplaintStatusOpen, c.Status)
}

func TestComplaintServiceParentCreateScoped(t *testing.T) {
	svc, repo := newComplaintFixture()

	_, err := svc.Create(context.Background(), parentPrincipal("student-1"), models.ComplaintCreateRequest{
		StudentID: "student-2", Subject: "Noise", Body: "Too loud",
	})
	assert.True(t, appErrors.HasCode(err, appErrors.ErrScopeViolation))

	created, err := svc.Create(context.Background(), parentPrincipal("student-1"), models.ComplaintCreateRequest{
		StudentID: "student-1", Subject: "Noise", Body: "Too loud",
	})
	require.NoError(t, err)
	assert.Equal(t, models.ComplaintStatusOpen, created.Status)
	require.NotNil(t, created.GuardianID)
	assert.Equal(t, "guardian-1", *created.GuardianID)
	assert.Len(t, repo.complaints, 4)
}

func TestComplaintServiceReplyAttributesAuthor(t *testing.T) {
	svc, _ := newComplaintFixture()

	reply, err := svc.Reply(context.Background(), parentPrincipal("student-1"), "c-open", models.ComplaintReplyRequest{Body: "Any update?"})
	require.NoError(t, err)
	assert.Equal(t, models.AuthorGuardian, reply.AuthorKind)
	assert.Equal(t, "guardian-1", reply.AuthorID)

	reply, err = svc.Reply(context.Background(), staffPrincipal(), "c-open", models.ComplaintReplyRequest{Body: "Looking into it"})
	require.NoError(t, err)
	assert.Equal(t, models.AuthorStaff, reply.AuthorKind)
	assert.Equal(t, int64(2), reply.Seq)
}

func TestComplaintServiceReplyScope(t *testing.T) {
	svc, _ := newComplaintFixture()

	_, err := svc.Reply(context.Background(), parentPrincipal("student-1"), "c-done", models.ComplaintReplyRequest{Body: "hello"})
	assert.True(t, appErrors.HasCode(err, appErrors.ErrScopeViolation))
}

func TestComplaintServiceParentListRestricted(t *testing.T) {
	svc, _ := newComplaintFixture()

	complaints, total, err := svc.List(context.Background(), parentPrincipal("student-1"), models.ComplaintFilter{})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	for _, c := range complaints {
		assert.Equal(t, "student-1", c.StudentID)
	}

	complaints, _, err = svc.List(context.Background(), parentPrincipal(), models.ComplaintFilter{})
	require.NoError(t, err)
	assert.Empty(t, complaints)
}

func TestComplaintServiceGetWithThread(t *testing.T) {
	svc, _ := newComplaintFixture()

	_, err := svc.Reply(context.Background(), staffPrincipal(), "c-open", models.ComplaintReplyRequest{Body: "first"})
	require.NoError(t, err)

	detail, err := svc.Get(context.Background(), staffPrincipal(), "c-open")
	require.NoError(t, err)
	assert.Len(t, detail.Replies, 1)
	assert.Equal(t, "first", detail.Replies[0].Body)

	_, err = svc.Get(context.Background(), parentPrincipal("student-1"), "c-done")
	assert.True(t, appErrors.HasCode(err, appErrors.ErrScopeViolation))
}
