package models

import "time"

// AnnouncementAudience defines who can see an announcement.
type AnnouncementAudience string

const (
	AnnouncementAudienceAll   AnnouncementAudience = "ALL"
	AnnouncementAudienceClass AnnouncementAudience = "CLASS"
)

// Valid returns true when the audience is a supported value.
func (a AnnouncementAudience) Valid() bool {
	return a == AnnouncementAudienceAll || a == AnnouncementAudienceClass
}

// Announcement is a broadcast notice. Records are immutable once published
// except by explicit staff edit, which stamps LastEditedAt instead of
// silently rewriting history.
type Announcement struct {
	ID           string               `db:"id" json:"id"`
	Title        string               `db:"title" json:"title"`
	Body         string               `db:"body" json:"body"`
	Audience     AnnouncementAudience `db:"audience" json:"audience"`
	ClassLevel   *string              `db:"class_level" json:"class_level,omitempty"`
	Pinned       bool                 `db:"pinned" json:"pinned"`
	CreatedBy    string               `db:"created_by" json:"created_by"`
	PublishedAt  time.Time            `db:"published_at" json:"published_at"`
	LastEditedAt *time.Time           `db:"last_edited_at" json:"last_edited_at,omitempty"`
}

// AnnouncementRequest publishes or edits an announcement. ClassLevel is
// required when the audience is CLASS.
type AnnouncementRequest struct {
	Title      string               `json:"title" validate:"required,max=200"`
	Body       string               `json:"body" validate:"required"`
	Audience   AnnouncementAudience `json:"audience" validate:"required"`
	ClassLevel *string              `json:"class_level,omitempty"`
	Pinned     bool                 `json:"pinned"`
}

// AnnouncementFilter scopes announcement listing. When Restricted is
// set, CLASS-audience notices match only the given levels and ALL
// notices always match; a restricted filter with no levels sees ALL
// notices only. An unrestricted filter is the staff view.
type AnnouncementFilter struct {
	Restricted  bool
	ClassLevels []string
	PinnedOnly  bool
	Page        int
	PageSize    int
}
