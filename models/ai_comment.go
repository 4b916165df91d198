package models

import "time"

// AIComment records a generated comment and its delivery status, keyed by the
// content's external id. Posted rows are pruned after the retention window.
type AIComment struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	UnqExternalID string    `gorm:"size:191;uniqueIndex;not null" json:"unq_external_id"`
	CommentText   string    `gorm:"type:text" json:"comment_text"`
	Posted        bool      `gorm:"not null;default:false" json:"posted"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}
