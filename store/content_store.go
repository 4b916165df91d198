package store

import (
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/zelfworks/contentapi/models"
	"github.com/zelfworks/contentapi/utils"
	"github.com/zelfworks/contentapi/zelf"
)

// engagement expressions shared by the listing and stats queries. Views are
// floored at one so a zero view count yields a defined rate instead of a
// division error.
const (
	engagementSQL = "(contents.like_count + contents.comment_count + contents.share_count)"
	rateSQL       = engagementSQL + " * 1.0 / (CASE WHEN contents.view_count = 0 THEN 1 ELSE contents.view_count END)"
)

// ContentStore is the persistence layer shared by the HTTP controllers and the
// background tasks.
type ContentStore struct {
	db *gorm.DB
}

// New creates a ContentStore on the given database handle.
func New(db *gorm.DB) *ContentStore {
	return &ContentStore{db: db}
}

// DB exposes the underlying handle for callers that need raw access.
func (s *ContentStore) DB() *gorm.DB {
	return s.db
}

// Filters narrows content queries. Zero values mean "not set"; Timeframe is a
// pointer because zero and negative day counts are valid cutoffs.
type Filters struct {
	AuthorID       uint
	AuthorUsername string
	Timeframe      *int // days back from now against the external timestamp
	TagID          uint
	Title          string // case-insensitive substring
}

// ContentRow is a Content annotated with its derived engagement metrics.
type ContentRow struct {
	models.Content
	TotalEngagement int64
	EngagementRate  float64
}

// Page is one page of annotated content plus pagination bookkeeping.
type Page struct {
	Rows         []ContentRow
	CurrentPage  int
	TotalPages   int
	TotalItems   int64
	ItemsPerPage int
	HasNext      bool
	HasPrevious  bool
}

// Stats are scalar sums across a filtered content set, computed in one query.
type Stats struct {
	TotalLikes          int64   `json:"total_likes"`
	TotalShares         int64   `json:"total_shares"`
	TotalComments       int64   `json:"total_comments"`
	TotalViews          int64   `json:"total_views"`
	TotalFollowers      int64   `json:"total_followers"`
	TotalContents       int64   `json:"total_contents"`
	TotalEngagement     int64   `json:"total_engagement"`
	TotalEngagementRate float64 `json:"total_engagement_rate"`
}

// filtered builds the base query with filters applied. Authors are always
// joined: the username filter and the followers sum both need them, and the
// FK is not null so the inner join never drops rows.
func (s *ContentStore) filtered(f Filters) *gorm.DB {
	q := s.db.Model(&models.Content{}).
		Joins("JOIN authors ON authors.id = contents.author_id")
	if f.AuthorID != 0 {
		q = q.Where("contents.author_id = ?", f.AuthorID)
	}
	if f.AuthorUsername != "" {
		q = q.Where("authors.username = ?", f.AuthorUsername)
	}
	if f.Timeframe != nil {
		// Applied for any day count: a negative value puts the cutoff in the
		// future and matches nothing.
		cutoff := time.Now().AddDate(0, 0, -*f.Timeframe)
		q = q.Where("contents.timestamp >= ?", cutoff)
	}
	if f.TagID != 0 {
		q = q.Where("contents.id IN (SELECT content_id FROM content_tags WHERE tag_id = ?)", f.TagID)
	}
	if f.Title != "" {
		q = q.Where("LOWER(contents.title) LIKE ?", "%"+strings.ToLower(f.Title)+"%")
	}
	return q
}

// ListContents returns one page of content with metrics computed in SQL,
// newest-inserted first. Out-of-range pages clamp to the boundary pages.
func (s *ContentStore) ListContents(f Filters, page, itemsPerPage int) (*Page, error) {
	var total int64
	if err := s.filtered(f).Count(&total).Error; err != nil {
		return nil, fmt.Errorf("count contents: %w", err)
	}

	totalPages := int((total + int64(itemsPerPage) - 1) / int64(itemsPerPage))
	if totalPages < 1 {
		totalPages = 1
	}
	if page > totalPages {
		page = totalPages
	}
	if page < 1 {
		page = 1
	}

	var rows []ContentRow
	err := s.filtered(f).
		Select("contents.*, " + engagementSQL + " AS total_engagement, " + rateSQL + " AS engagement_rate").
		Order("contents.id DESC").
		Offset((page - 1) * itemsPerPage).
		Limit(itemsPerPage).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list contents: %w", err)
	}

	return &Page{
		Rows:         rows,
		CurrentPage:  page,
		TotalPages:   totalPages,
		TotalItems:   total,
		ItemsPerPage: itemsPerPage,
		HasNext:      page < totalPages,
		HasPrevious:  page > 1,
	}, nil
}

// AggregateStats computes every total in a single aggregate query rather than
// one query per metric or per row.
func (s *ContentStore) AggregateStats(f Filters) (*Stats, error) {
	var st Stats
	err := s.filtered(f).
		Select(`COALESCE(SUM(contents.like_count), 0) AS total_likes,
			COALESCE(SUM(contents.share_count), 0) AS total_shares,
			COALESCE(SUM(contents.comment_count), 0) AS total_comments,
			COALESCE(SUM(contents.view_count), 0) AS total_views,
			COALESCE(SUM(authors.followers), 0) AS total_followers,
			COUNT(contents.id) AS total_contents,
			COALESCE(SUM` + engagementSQL + `, 0) AS total_engagement,
			COALESCE(SUM(` + rateSQL + `), 0) AS total_engagement_rate`).
		Scan(&st).Error
	if err != nil {
		return nil, fmt.Errorf("aggregate stats: %w", err)
	}
	return &st, nil
}

// AuthorsByID loads the given authors into a map keyed by id.
func (s *ContentStore) AuthorsByID(ids []uint) (map[uint]models.Author, error) {
	result := make(map[uint]models.Author, len(ids))
	if len(ids) == 0 {
		return result, nil
	}
	var authors []models.Author
	if err := s.db.Where("id IN ?", ids).Find(&authors).Error; err != nil {
		return nil, fmt.Errorf("load authors: %w", err)
	}
	for _, a := range authors {
		result[a.ID] = a
	}
	return result, nil
}

// TagNamesByContentID loads tag names for the given content rows in one query.
func (s *ContentStore) TagNamesByContentID(contentIDs []uint) (map[uint][]string, error) {
	result := make(map[uint][]string, len(contentIDs))
	if len(contentIDs) == 0 {
		return result, nil
	}
	var rows []struct {
		ContentID uint
		Name      string
	}
	err := s.db.Table("content_tags").
		Select("content_tags.content_id, tags.name").
		Joins("JOIN tags ON tags.id = content_tags.tag_id").
		Where("content_tags.content_id IN ?", contentIDs).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("load content tags: %w", err)
	}
	for _, r := range rows {
		result[r.ContentID] = append(result[r.ContentID], r.Name)
	}
	return result, nil
}

// UpsertAuthor writes an author by external id, overwriting mutable fields.
// Followers is only assigned when the payload carried it: the write API's body
// has no followers field, and an absent count must not zero what ingestion
// stored.
func (s *ContentStore) UpsertAuthor(tx *gorm.DB, p zelf.AuthorPayload) (models.Author, error) {
	var author models.Author
	assign := map[string]interface{}{
		"username": p.UniqueName,
		"name":     p.FullName,
		"url":      p.URL,
		"title":    p.Title,
	}
	if p.Followers != nil {
		assign["followers"] = *p.Followers
	}
	err := tx.Where(models.Author{UniqueID: p.UniqueExternalID}).
		Assign(assign).
		FirstOrCreate(&author).Error
	if err != nil {
		return author, fmt.Errorf("upsert author %s: %w", p.UniqueExternalID, err)
	}
	return author, nil
}

// UpsertContent writes a content row by external id. With refresh the counters
// and descriptive fields are overwritten unconditionally, so a repeated write
// always lands the latest stats; without it an existing row is left untouched.
// IsCommented is never part of the assignment and survives every upsert.
func (s *ContentStore) UpsertContent(tx *gorm.DB, authorID uint, p zelf.ContentPayload, refresh bool) (models.Content, error) {
	var content models.Content
	title := utils.Sanitize(p.Title)

	if !refresh {
		attrs := models.Content{
			AuthorID:     authorID,
			Title:        title,
			URL:          p.URL,
			ThumbnailURL: p.ThumbnailViewURL,
			Timestamp:    p.Timestamp,
			LikeCount:    p.Stats.Likes,
			CommentCount: p.Stats.Comments,
			ShareCount:   p.Stats.Shares,
			ViewCount:    p.Stats.Views,
		}
		err := tx.Where(models.Content{UniqueID: p.UnqExternalID}).
			Attrs(attrs).
			FirstOrCreate(&content).Error
		if err != nil {
			return content, fmt.Errorf("upsert content %s: %w", p.UnqExternalID, err)
		}
		return content, nil
	}

	assign := map[string]interface{}{
		"author_id":     authorID,
		"title":         title,
		"url":           p.URL,
		"thumbnail_url": p.ThumbnailViewURL,
		"timestamp":     p.Timestamp,
		"like_count":    p.Stats.Likes,
		"comment_count": p.Stats.Comments,
		"share_count":   p.Stats.Shares,
		"view_count":    p.Stats.Views,
	}
	err := tx.Where(models.Content{UniqueID: p.UnqExternalID}).
		Assign(assign).
		FirstOrCreate(&content).Error
	if err != nil {
		return content, fmt.Errorf("upsert content %s: %w", p.UnqExternalID, err)
	}
	return content, nil
}

// AttachTags ensures the named tags exist and are associated with the content,
// batching the creation of missing tags and missing associations.
func (s *ContentStore) AttachTags(tx *gorm.DB, contentID uint, names []string) error {
	names = utils.UniqueStrings(names)
	if len(names) == 0 {
		return nil
	}

	var existing []models.Tag
	if err := tx.Where("name IN ?", names).Find(&existing).Error; err != nil {
		return fmt.Errorf("load tags: %w", err)
	}
	byName := make(map[string]models.Tag, len(names))
	for _, t := range existing {
		byName[t.Name] = t
	}

	var toCreate []models.Tag
	for _, name := range names {
		if _, ok := byName[name]; !ok {
			toCreate = append(toCreate, models.Tag{Name: name})
		}
	}
	if len(toCreate) > 0 {
		if err := tx.Create(&toCreate).Error; err != nil {
			return fmt.Errorf("create tags: %w", err)
		}
		for _, t := range toCreate {
			byName[t.Name] = t
		}
	}

	var linked []models.ContentTag
	if err := tx.Where("content_id = ?", contentID).Find(&linked).Error; err != nil {
		return fmt.Errorf("load content tags: %w", err)
	}
	has := make(map[uint]bool, len(linked))
	for _, ct := range linked {
		has[ct.TagID] = true
	}

	var assoc []models.ContentTag
	for _, name := range names {
		tag := byName[name]
		if !has[tag.ID] {
			assoc = append(assoc, models.ContentTag{ContentID: contentID, TagID: tag.ID})
		}
	}
	if len(assoc) > 0 {
		if err := tx.Create(&assoc).Error; err != nil {
			return fmt.Errorf("create content tags: %w", err)
		}
	}
	return nil
}

// UpsertPayload applies one external content payload: author, content, and tag
// writes run inside a single transaction.
func (s *ContentStore) UpsertPayload(p zelf.ContentPayload, refresh bool) (models.Content, models.Author, error) {
	var content models.Content
	var author models.Author
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var err error
		author, err = s.UpsertAuthor(tx, p.Author)
		if err != nil {
			return err
		}
		content, err = s.UpsertContent(tx, author.ID, p, refresh)
		if err != nil {
			return err
		}
		return s.AttachTags(tx, content.ID, p.Hashtags)
	})
	return content, author, err
}

// AllContents returns every content row with its author loaded.
func (s *ContentStore) AllContents() ([]models.Content, error) {
	var contents []models.Content
	if err := s.db.Preload("Author").Find(&contents).Error; err != nil {
		return nil, fmt.Errorf("load contents: %w", err)
	}
	return contents, nil
}

// MarkCommented flips is_commented for the content with the given external id.
// The flag only ever moves false to true; concurrent completions are
// last-writer-wins on an idempotent value.
func (s *ContentStore) MarkCommented(uniqueID string) (bool, error) {
	res := s.db.Model(&models.Content{}).
		Where("unique_id = ?", uniqueID).
		Update("is_commented", true)
	if res.Error != nil {
		return false, fmt.Errorf("mark commented %s: %w", uniqueID, res.Error)
	}
	return res.RowsAffected > 0, nil
}

// RecordAIComment upserts the delivery record for a generated comment.
func (s *ContentStore) RecordAIComment(contentID, commentText string, posted bool) error {
	var rec models.AIComment
	err := s.db.Where(models.AIComment{UnqExternalID: contentID}).
		Assign(map[string]interface{}{"comment_text": commentText, "posted": posted}).
		FirstOrCreate(&rec).Error
	if err != nil {
		return fmt.Errorf("record ai comment %s: %w", contentID, err)
	}
	return nil
}
