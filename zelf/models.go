package zelf

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// Wire types for the Zelf content service. The write API accepts the same
// content payload shape, so the controllers bind against these structs too.

// AuthorPayload identifies a content creator on the source platform.
// Followers is a pointer because the write API's payload does not carry it; an
// absent count must not overwrite what ingestion stored.
type AuthorPayload struct {
	UniqueExternalID string `json:"unique_external_id" binding:"required"`
	UniqueName       string `json:"unique_name" binding:"required"`
	FullName         string `json:"full_name"`
	URL              string `json:"url"`
	Title            string `json:"title"`
	Followers        *int64 `json:"followers"`
}

// StatsPayload carries the engagement counters of one content item.
type StatsPayload struct {
	Likes    int64 `json:"likes"`
	Comments int64 `json:"comments"`
	Shares   int64 `json:"shares"`
	Views    int64 `json:"views"`
}

// ContentPayload is one externally sourced content item.
type ContentPayload struct {
	Author           AuthorPayload `json:"author" binding:"required"`
	UnqExternalID    string        `json:"unq_external_id" binding:"required"`
	Title            string        `json:"title"`
	URL              string        `json:"url"`
	ThumbnailViewURL string        `json:"thumbnail_view_url"`
	Timestamp        *time.Time    `json:"timestamp"`
	Stats            StatsPayload  `json:"stats"`
	Hashtags         []string      `json:"hashtags"`
}

// NextPage is the pull cursor. The service signals "no further page" loosely,
// as 0, null, or false, so decoding folds every falsy form to zero.
type NextPage int

func (n *NextPage) UnmarshalJSON(b []byte) error {
	switch string(bytes.TrimSpace(b)) {
	case "null", "false":
		*n = 0
		return nil
	}
	var v int
	if err := json.Unmarshal(b, &v); err != nil {
		return fmt.Errorf("zelf: decode next page: %w", err)
	}
	*n = NextPage(v)
	return nil
}

// Pagination is the page cursor of a pull response. Next is zero when there is
// no further page.
type Pagination struct {
	Next NextPage `json:"next"`
}

// ContentPullResponse is one page of pulled content.
type ContentPullResponse struct {
	Data       []ContentPayload `json:"data"`
	Pagination Pagination       `json:"pagination"`
}

// AICommentRequest asks the AI service to produce comments for one content item.
type AICommentRequest struct {
	ContentID      string `json:"content_id"`
	Title          string `json:"title"`
	URL            string `json:"url"`
	AuthorUsername string `json:"author_username"`
}

// AIComment is one generated comment returned by the AI service.
type AIComment struct {
	ContentID   string `json:"content_id"`
	CommentText string `json:"comment_text"`
}

// FinalCommentRequest delivers one finalized comment.
type FinalCommentRequest struct {
	ContentID   string `json:"content_id"`
	CommentText string `json:"comment_text"`
}
