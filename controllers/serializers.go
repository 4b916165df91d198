package controllers

import (
	"github.com/zelfworks/contentapi/models"
	"github.com/zelfworks/contentapi/store"
)

// The response shapes below are frozen: the mobile and web clients parse them
// field by field, so renames and re-nesting are breaking changes.

// ContentItem is the serialized content half of a listing item: the stored row
// plus its derived metrics and tag names.
type ContentItem struct {
	models.Content
	TotalEngagement int64    `json:"total_engagement"`
	EngagementRate  float64  `json:"engagement_rate"`
	Tags            []string `json:"tags"`
}

// Item pairs a content row with its author, the unit of both the listing
// response and the write API echo.
type Item struct {
	Content ContentItem   `json:"content"`
	Author  models.Author `json:"author"`
}

// PageInfo is the pagination block of the listing response.
type PageInfo struct {
	CurrentPage  int   `json:"current_page"`
	TotalPages   int   `json:"total_pages"`
	TotalItems   int64 `json:"total_items"`
	ItemsPerPage int   `json:"items_per_page"`
	HasNext      bool  `json:"has_next"`
	HasPrevious  bool  `json:"has_previous"`
}

// ListResponse is the full listing payload.
type ListResponse struct {
	Data       []Item   `json:"data"`
	Pagination PageInfo `json:"pagination"`
}

func newItem(row store.ContentRow, author models.Author, tags []string) Item {
	if tags == nil {
		tags = []string{}
	}
	return Item{
		Content: ContentItem{
			Content:         row.Content,
			TotalEngagement: row.TotalEngagement,
			EngagementRate:  row.EngagementRate,
			Tags:            tags,
		},
		Author: author,
	}
}
