package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ujumbe360/school-portal-api/internal/models"
)

func announcementRows(id, title, audience string) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "title", "body", "audience", "class_level", "pinned", "created_by", "published_at", "last_edited_at"}).
		AddRow(id, title, "body", audience, nil, false, "staff-1", time.Now(), nil)
}

func TestAnnouncementRepositoryListRestrictedWithLevels(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewAnnouncementRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta("audience = 'ALL' OR class_level = ANY($1)")).
		WillReturnRows(announcementRows("a-1", "Term dates", "ALL"))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM announcements")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	announcements, total, err := repo.List(context.Background(), models.AnnouncementFilter{
		Restricted: true, ClassLevels: []string{"P4"}, Page: 1, PageSize: 20,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Len(t, announcements, 1)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAnnouncementRepositoryListRestrictedNoLevels(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewAnnouncementRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta("audience = 'ALL'") + `\s+ORDER BY`).
		WillReturnRows(announcementRows("a-1", "Term dates", "ALL"))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM announcements")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	announcements, _, err := repo.List(context.Background(), models.AnnouncementFilter{
		Restricted: true, Page: 1, PageSize: 20,
	})
	require.NoError(t, err)
	assert.Len(t, announcements, 1)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAnnouncementRepositoryListUnrestricted(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewAnnouncementRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta("WHERE published_at <= NOW()") + `\s+ORDER BY`).
		WillReturnRows(announcementRows("a-1", "Term dates", "ALL").
			AddRow("a-2", "P4 trip", "body", "CLASS", "P4", false, "staff-1", time.Now(), nil))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM announcements")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))

	announcements, total, err := repo.List(context.Background(), models.AnnouncementFilter{Page: 1, PageSize: 20})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Len(t, announcements, 2)
	require.NoError(t, mock.ExpectationsWereMet())
}
