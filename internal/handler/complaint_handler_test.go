package handler

import (
	"bytes"
	"context"
	"database/sql"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ujumbe360/school-portal-api/internal/models"
	"github.com/ujumbe360/school-portal-api/internal/service"
)

type complaintRepoStub struct {
	complaints map[string]*models.Complaint
	replies    map[string][]models.ComplaintReply
}

func (f *complaintRepoStub) List(_ context.Context, filter models.ComplaintFilter) ([]models.Complaint, int, error) {
	var out []models.Complaint
	for _, c := range f.complaints {
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

func (f *complaintRepoStub) FindByID(_ context.Context, id string) (*models.Complaint, error) {
	c, ok := f.complaints[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return c, nil
}

func (f *complaintRepoStub) Create(_ context.Context, complaint *models.Complaint) error {
	f.complaints[complaint.ID] = complaint
	return nil
}

func (f *complaintRepoStub) UpdateStatus(_ context.Context, id string, status models.ComplaintStatus) error {
	f.complaints[id].Status = status
	return nil
}

func (f *complaintRepoStub) Replies(_ context.Context, complaintID string) ([]models.ComplaintReply, error) {
	return f.replies[complaintID], nil
}

func (f *complaintRepoStub) AppendReply(_ context.Context, reply *models.ComplaintReply) (*models.ComplaintReply, error) {
	reply.Seq = int64(len(f.replies[reply.ComplaintID]) + 1)
	f.replies[reply.ComplaintID] = append(f.replies[reply.ComplaintID], *reply)
	return reply, nil
}

func buildComplaintRouter(principal *models.Principal) (*gin.Engine, *complaintRepoStub) {
	gin.SetMode(gin.TestMode)
	repo := &complaintRepoStub{
		complaints: map[string]*models.Complaint{
			"c-1": {ID: "c-1", StudentID: "student-1", Subject: "Bus delays", Status: models.ComplaintStatusOpen},
		},
		replies: map[string][]models.ComplaintReply{},
	}
	students := &studentReaderStub{students: map[string]*models.Student{
		"student-1": {ID: "student-1", ClassLevel: "P4", Active: true},
	}}
	complaints := service.NewComplaintService(repo, students, nil, zap.NewNop())
	h := NewComplaintHandler(complaints, &dashboardSpy{})

	router := gin.New()
	router.Use(withPrincipal(principal))
	router.GET("/complaints", h.List)
	router.GET("/complaints/:id", h.Get)
	router.POST("/complaints", h.Create)
	router.POST("/complaints/:id/replies", h.Reply)
	router.PUT("/complaints/:id/status", h.ChangeStatus)
	return router, repo
}

func TestComplaintHandlerStatusChange(t *testing.T) {
	router, repo := buildComplaintRouter(testStaffPrincipal())

	req, _ := http.NewRequest(http.MethodPut, "/complaints/c-1/status", bytes.NewBufferString(`{"status":"IN_PROGRESS"}`))
	req.Header.Set("Content-Type", "application/json")
	resp := performRequest(router, req)

	require.Equal(t, http.StatusOK, resp.Code)
	require.Equal(t, models.ComplaintStatusInProgress, repo.complaints["c-1"].Status)
}

func TestComplaintHandlerStatusChangeParentForbidden(t *testing.T) {
	router, repo := buildComplaintRouter(testParentPrincipal("student-1"))

	req, _ := http.NewRequest(http.MethodPut, "/complaints/c-1/status", bytes.NewBufferString(`{"status":"IN_PROGRESS"}`))
	req.Header.Set("Content-Type", "application/json")
	resp := performRequest(router, req)

	require.Equal(t, http.StatusForbidden, resp.Code)
	require.Equal(t, models.ComplaintStatusOpen, repo.complaints["c-1"].Status)
}

func TestComplaintHandlerSkippingTransitionConflicts(t *testing.T) {
	router, _ := buildComplaintRouter(testStaffPrincipal())

	req, _ := http.NewRequest(http.MethodPut, "/complaints/c-1/status", bytes.NewBufferString(`{"status":"RESOLVED"}`))
	req.Header.Set("Content-Type", "application/json")
	resp := performRequest(router, req)

	require.Equal(t, http.StatusConflict, resp.Code)
	require.Contains(t, resp.Body.String(), "CONFLICT")
}

func TestComplaintHandlerParentCreateAndReply(t *testing.T) {
	router, repo := buildComplaintRouter(testParentPrincipal("student-1"))

	body := `{"student_id":"student-1","subject":"Meals","body":"Portions are too small."}`
	req, _ := http.NewRequest(http.MethodPost, "/complaints", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	resp := performRequest(router, req)
	require.Equal(t, http.StatusCreated, resp.Code)
	require.Len(t, repo.complaints, 2)

	req, _ = http.NewRequest(http.MethodPost, "/complaints/c-1/replies", bytes.NewBufferString(`{"body":"Any update?"}`))
	req.Header.Set("Content-Type", "application/json")
	resp = performRequest(router, req)
	require.Equal(t, http.StatusCreated, resp.Code)
	require.Contains(t, resp.Body.String(), `"author_kind":"GUARDIAN"`)
}

func TestComplaintHandlerParentCannotTouchOthers(t *testing.T) {
	router, _ := buildComplaintRouter(testParentPrincipal("student-9"))

	req, _ := http.NewRequest(http.MethodGet, "/complaints/c-1", nil)
	resp := performRequest(router, req)
	require.Equal(t, http.StatusForbidden, resp.Code)

	body := `{"student_id":"student-1","subject":"Meals","body":"Portions are too small."}`
	req, _ = http.NewRequest(http.MethodPost, "/complaints", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	resp = performRequest(router, req)
	require.Equal(t, http.StatusForbidden, resp.Code)
}

func TestComplaintHandlerListRejectsUnknownStatus(t *testing.T) {
	router, _ := buildComplaintRouter(testStaffPrincipal())

	req, _ := http.NewRequest(http.MethodGet, "/complaints?status=SHREDDED", nil)
	resp := performRequest(router, req)
	require.Equal(t, http.StatusBadRequest, resp.Code)
}
