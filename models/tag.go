package models

// Tag is a deduplicated label, created lazily the first time a hashtag is seen.
type Tag struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	Name        string `gorm:"size:100;uniqueIndex;not null" json:"name"`
	Description string `gorm:"type:text" json:"description"`
}

// ContentTag joins Content and Tag. The (content, tag) pair is unique so
// repeated upserts cannot duplicate an association.
type ContentTag struct {
	ID        uint    `gorm:"primaryKey" json:"id"`
	ContentID uint    `gorm:"index:idx_content_tag,unique;not null" json:"content_id"`
	TagID     uint    `gorm:"index:idx_content_tag,unique;not null" json:"tag_id"`
	Content   Content `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	Tag       Tag     `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
}
