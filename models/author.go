package models

import "time"

// Author is the external identity of a content creator. Rows are keyed by the
// source platform's unique id and upserted on every ingested item.
type Author struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	UniqueID    string    `gorm:"size:191;uniqueIndex;not null" json:"unique_id"`
	Username    string    `gorm:"size:100" json:"username"`
	Name        string    `gorm:"size:100" json:"name"`
	URL         string    `gorm:"size:1024" json:"url"`
	Title       string    `gorm:"size:1024" json:"title"`
	Followers   int64     `gorm:"not null;default:0" json:"followers"`
	BigMetadata string    `gorm:"type:json" json:"-"`
	SecretValue string    `gorm:"type:json" json:"-"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
