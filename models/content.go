package models

import "time"

// Content is one piece of externally sourced content. unique_id identifies the
// logical item across repeated ingestions: writes are upserts, never duplicates.
// IsCommented transitions false to true exactly once, set by the final comment
// posting task, and is never reverted.
type Content struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	AuthorID     uint       `gorm:"index;not null" json:"author_id"`
	UniqueID     string     `gorm:"size:191;uniqueIndex;not null" json:"unique_id"`
	URL          string     `gorm:"size:1024" json:"url"`
	Title        string     `gorm:"type:text" json:"title"`
	LikeCount    int64      `gorm:"not null;default:0" json:"like_count"`
	CommentCount int64      `gorm:"not null;default:0" json:"comment_count"`
	ViewCount    int64      `gorm:"not null;default:0" json:"view_count"`
	ShareCount   int64      `gorm:"not null;default:0" json:"share_count"`
	ThumbnailURL string     `gorm:"size:1024" json:"thumbnail_url"`
	Timestamp    *time.Time `gorm:"index" json:"timestamp"`
	BigMetadata  string     `gorm:"type:json" json:"-"`
	SecretValue  string     `gorm:"type:json" json:"-"`
	IsCommented  bool       `gorm:"not null;default:false" json:"is_commented"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	Author       Author     `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
}
