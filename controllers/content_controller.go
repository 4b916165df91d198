package controllers

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/zelfworks/contentapi/models"
	"github.com/zelfworks/contentapi/store"
	"github.com/zelfworks/contentapi/utils"
	"github.com/zelfworks/contentapi/zelf"
)

const (
	defaultPageSize = 10
	maxPageSize     = 100

	listCacheTTL = 5 * time.Minute
)

// ContentController serves the content listing and the write-side upsert.
type ContentController struct {
	store *store.ContentStore
}

// NewContentController creates the controller on the given store.
func NewContentController(st *store.ContentStore) *ContentController {
	return &ContentController{store: st}
}

// parseFilters reads the shared filter query params. Non-numeric values for
// the numeric filters are ignored rather than erroring, matching the legacy
// behavior the clients rely on.
func parseFilters(ctx *gin.Context) store.Filters {
	var f store.Filters
	if v := ctx.Query("author_id"); v != "" {
		if id, err := strconv.ParseUint(v, 10, 32); err == nil {
			f.AuthorID = uint(id)
		}
	}
	f.AuthorUsername = ctx.Query("author_username")
	if v := ctx.Query("timeframe"); v != "" {
		if days, err := strconv.Atoi(v); err == nil {
			f.Timeframe = &days
		}
	}
	if v := ctx.Query("tag_id"); v != "" {
		if id, err := strconv.ParseUint(v, 10, 32); err == nil {
			f.TagID = uint(id)
		}
	}
	f.Title = ctx.Query("title")
	return f
}

// parsePagination reads page and items_per_page, falling back to defaults on
// invalid values and capping the page size at the hard ceiling.
func parsePagination(ctx *gin.Context) (page, itemsPerPage int) {
	page = 1
	itemsPerPage = defaultPageSize
	if v := ctx.Query("page"); v != "" {
		if p, err := strconv.Atoi(v); err == nil && p > 0 {
			page = p
		}
	}
	if v := ctx.Query("items_per_page"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			itemsPerPage = n
		}
	}
	if itemsPerPage > maxPageSize {
		itemsPerPage = maxPageSize
	}
	return page, itemsPerPage
}

// List handles GET /contents/: a filtered, paginated page of content items
// with derived engagement metrics and tags. Unfiltered pages are served from
// cache when available.
func (c *ContentController) List(ctx *gin.Context) {
	f := parseFilters(ctx)
	page, itemsPerPage := parsePagination(ctx)

	unfiltered := f == store.Filters{}
	cacheKey := fmt.Sprintf("%slist:page=%d:size=%d", utils.ContentCachePrefix, page, itemsPerPage)
	if unfiltered {
		if b, ok := utils.CacheGetBytes(cacheKey); ok {
			ctx.Data(http.StatusOK, "application/json; charset=utf-8", b)
			return
		}
	}

	result, err := c.store.ListContents(f, page, itemsPerPage)
	if err != nil {
		utils.Sugar.Errorf("list contents: %v", err)
		utils.Error(ctx, http.StatusInternalServerError, "failed to load contents")
		return
	}

	contentIDs := make([]uint, 0, len(result.Rows))
	authorIDs := make([]uint, 0, len(result.Rows))
	for _, row := range result.Rows {
		contentIDs = append(contentIDs, row.ID)
		authorIDs = append(authorIDs, row.AuthorID)
	}
	authors, err := c.store.AuthorsByID(authorIDs)
	if err != nil {
		utils.Sugar.Errorf("list contents: %v", err)
		utils.Error(ctx, http.StatusInternalServerError, "failed to load contents")
		return
	}
	tags, err := c.store.TagNamesByContentID(contentIDs)
	if err != nil {
		utils.Sugar.Errorf("list contents: %v", err)
		utils.Error(ctx, http.StatusInternalServerError, "failed to load contents")
		return
	}

	resp := ListResponse{
		Data: make([]Item, 0, len(result.Rows)),
		Pagination: PageInfo{
			CurrentPage:  result.CurrentPage,
			TotalPages:   result.TotalPages,
			TotalItems:   result.TotalItems,
			ItemsPerPage: result.ItemsPerPage,
			HasNext:      result.HasNext,
			HasPrevious:  result.HasPrevious,
		},
	}
	for _, row := range result.Rows {
		resp.Data = append(resp.Data, newItem(row, authors[row.AuthorID], tags[row.ID]))
	}

	if unfiltered {
		utils.CacheSetJSON(cacheKey, resp, listCacheTTL)
	}
	ctx.JSON(http.StatusOK, resp)
}

// Upsert handles POST /contents/: a single content payload or an array of
// them. Every payload is validated before any write happens, so a bad item in
// a batch rejects the whole request instead of leaving it half applied.
func (c *ContentController) Upsert(ctx *gin.Context) {
	body, err := io.ReadAll(ctx.Request.Body)
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, "failed to read request body")
		return
	}

	var payloads []zelf.ContentPayload
	if isJSONArray(body) {
		if err := json.Unmarshal(body, &payloads); err != nil {
			utils.Error(ctx, http.StatusBadRequest, "invalid JSON body")
			return
		}
	} else {
		var single zelf.ContentPayload
		if err := json.Unmarshal(body, &single); err != nil {
			utils.Error(ctx, http.StatusBadRequest, "invalid JSON body")
			return
		}
		payloads = []zelf.ContentPayload{single}
	}
	if len(payloads) == 0 {
		utils.Error(ctx, http.StatusBadRequest, "empty payload")
		return
	}

	for i := range payloads {
		if err := binding.Validator.ValidateStruct(&payloads[i]); err != nil {
			utils.ValidationError(ctx, validationDetail(err))
			return
		}
	}

	rows := make([]store.ContentRow, 0, len(payloads))
	authors := make([]models.Author, 0, len(payloads))
	contentIDs := make([]uint, 0, len(payloads))
	for _, p := range payloads {
		content, author, err := c.store.UpsertPayload(p, true)
		if err != nil {
			utils.Sugar.Errorf("upsert content %s: %v", p.UnqExternalID, err)
			utils.Error(ctx, http.StatusInternalServerError, "failed to store content")
			return
		}
		row := store.ContentRow{Content: content}
		row.TotalEngagement = content.LikeCount + content.CommentCount + content.ShareCount
		views := content.ViewCount
		if views == 0 {
			views = 1
		}
		row.EngagementRate = float64(row.TotalEngagement) / float64(views)
		rows = append(rows, row)
		authors = append(authors, author)
		contentIDs = append(contentIDs, content.ID)
	}

	// Echo the full stored tag set, not just this request's hashtags: the row
	// may already carry tags from earlier writes.
	tags, err := c.store.TagNamesByContentID(contentIDs)
	if err != nil {
		utils.Sugar.Errorf("upsert contents: %v", err)
		utils.Error(ctx, http.StatusInternalServerError, "failed to store content")
		return
	}

	items := make([]Item, 0, len(rows))
	for i, row := range rows {
		items = append(items, newItem(row, authors[i], tags[row.ID]))
	}

	utils.InvalidateContentCache()
	ctx.JSON(http.StatusCreated, items)
}

// isJSONArray reports whether the body's first non-whitespace byte opens an
// array.
func isJSONArray(body []byte) bool {
	trimmed := bytes.TrimLeft(body, " \t\r\n")
	return len(trimmed) > 0 && trimmed[0] == '['
}

// validationDetail flattens validator errors into a field-to-message map.
func validationDetail(err error) map[string]string {
	detail := make(map[string]string)
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		detail["non_field_errors"] = err.Error()
		return detail
	}
	for _, fe := range verrs {
		detail[fe.Field()] = fmt.Sprintf("failed on the '%s' rule", fe.Tag())
	}
	return detail
}
