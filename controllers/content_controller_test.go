package controllers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/zelfworks/contentapi/models"
	"github.com/zelfworks/contentapi/store"
	"github.com/zelfworks/contentapi/zelf"
)

func setupAPI(t *testing.T) (*gin.Engine, *store.ContentStore) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(
		&models.Author{}, &models.Content{}, &models.Tag{}, &models.ContentTag{}, &models.AIComment{},
	))
	t.Cleanup(func() { _ = sqlDB.Close() })

	st := store.New(db)
	contentController := NewContentController(st)
	statsController := NewStatsController(st)

	r := gin.New()
	r.GET("/contents/", contentController.List)
	r.POST("/contents/", contentController.Upsert)
	r.GET("/contents/stats/", statsController.Stats)
	return r, st
}

func seedContent(t *testing.T, st *store.ContentStore, externalID, authorID string, likes, comments, shares, views int64, hashtags ...string) {
	t.Helper()
	ts := time.Now()
	followers := int64(100)
	_, _, err := st.UpsertPayload(zelf.ContentPayload{
		Author: zelf.AuthorPayload{
			UniqueExternalID: authorID,
			UniqueName:       "user_" + authorID,
			Followers:        &followers,
		},
		UnqExternalID: externalID,
		Title:         "post " + externalID,
		URL:           "https://example.com/p/" + externalID,
		Timestamp:     &ts,
		Stats:         zelf.StatsPayload{Likes: likes, Comments: comments, Shares: shares, Views: views},
		Hashtags:      hashtags,
	}, true)
	require.NoError(t, err)
}

func doGET(r *gin.Engine, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	r.ServeHTTP(w, req)
	return w
}

func doPOST(r *gin.Engine, path string, body interface{}) *httptest.ResponseRecorder {
	b, _ := json.Marshal(body)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	return w
}

func TestListResponseShape(t *testing.T) {
	r, st := setupAPI(t)
	seedContent(t, st, "c1", "a1", 10, 5, 2, 0, "go", "api")

	w := doGET(r, "/contents/")
	require.Equal(t, http.StatusOK, w.Code)

	var resp map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Contains(t, resp, "data")
	require.Contains(t, resp, "pagination")

	var data []map[string]map[string]interface{}
	require.NoError(t, json.Unmarshal(resp["data"], &data))
	require.Len(t, data, 1)

	content := data[0]["content"]
	author := data[0]["author"]
	assert.Equal(t, "c1", content["unique_id"])
	assert.EqualValues(t, 17, content["total_engagement"])
	assert.InDelta(t, 17.0, content["engagement_rate"].(float64), 1e-9)
	assert.ElementsMatch(t, []interface{}{"go", "api"}, content["tags"])
	assert.Equal(t, "user_a1", author["username"])

	// The opaque metadata blobs never leave the store.
	assert.NotContains(t, content, "big_metadata")
	assert.NotContains(t, content, "secret_value")
	assert.NotContains(t, author, "big_metadata")
	assert.NotContains(t, author, "secret_value")

	var pagination map[string]interface{}
	require.NoError(t, json.Unmarshal(resp["pagination"], &pagination))
	assert.EqualValues(t, 1, pagination["current_page"])
	assert.EqualValues(t, 1, pagination["total_pages"])
	assert.EqualValues(t, 1, pagination["total_items"])
	assert.EqualValues(t, 10, pagination["items_per_page"])
	assert.Equal(t, false, pagination["has_next"])
	assert.Equal(t, false, pagination["has_previous"])
}

func TestListPageSizeCeiling(t *testing.T) {
	r, st := setupAPI(t)
	seedContent(t, st, "c1", "a1", 1, 1, 1, 1)

	w := doGET(r, "/contents/?items_per_page=1000")
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Pagination PageInfo `json:"pagination"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 100, resp.Pagination.ItemsPerPage)
}

func TestListInvalidParamsFallBackToDefaults(t *testing.T) {
	r, st := setupAPI(t)
	seedContent(t, st, "c1", "a1", 1, 1, 1, 1)

	w := doGET(r, "/contents/?page=abc&items_per_page=xyz&author_id=notanumber&tag_id=!!")
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data       []json.RawMessage `json:"data"`
		Pagination PageInfo          `json:"pagination"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Pagination.CurrentPage)
	assert.Equal(t, 10, resp.Pagination.ItemsPerPage)
	assert.Len(t, resp.Data, 1, "non-numeric filters are ignored, not applied")
}

func TestListFilters(t *testing.T) {
	r, st := setupAPI(t)
	seedContent(t, st, "c1", "a1", 1, 1, 1, 1, "go")
	seedContent(t, st, "c2", "a2", 1, 1, 1, 1, "rust")

	w := doGET(r, "/contents/?author_username=user_a2")
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data []struct {
			Content struct {
				UniqueID string `json:"unique_id"`
			} `json:"content"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Data, 1)
	assert.Equal(t, "c2", resp.Data[0].Content.UniqueID)

	var tag models.Tag
	require.NoError(t, st.DB().Where("name = ?", "go").First(&tag).Error)
	w = doGET(r, fmt.Sprintf("/contents/?tag_id=%d", tag.ID))
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Data, 1)
	assert.Equal(t, "c1", resp.Data[0].Content.UniqueID)
}

func postBody(externalID string, likes int64) map[string]interface{} {
	return map[string]interface{}{
		"author": map[string]interface{}{
			"unique_external_id": "a1",
			"unique_name":        "creator",
			"full_name":          "The Creator",
			"url":                "https://example.com/creator",
			"title":              "prolific poster",
		},
		"unq_external_id":    externalID,
		"title":              "hello world",
		"thumbnail_view_url": "https://example.com/t.jpg",
		"stats": map[string]interface{}{
			"likes":    likes,
			"comments": 2,
			"shares":   1,
			"views":    50,
		},
		"hashtags": []string{"go", "go", "api"},
	}
}

func TestUpsertSingleObject(t *testing.T) {
	r, _ := setupAPI(t)

	w := doPOST(r, "/contents/", postBody("c1", 5))
	require.Equal(t, http.StatusCreated, w.Code)

	var items []map[string]map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &items))
	require.Len(t, items, 1)
	assert.Equal(t, "c1", items[0]["content"]["unique_id"])
	assert.EqualValues(t, 8, items[0]["content"]["total_engagement"])
	assert.Equal(t, "creator", items[0]["author"]["username"])
}

func TestUpsertBatch(t *testing.T) {
	r, st := setupAPI(t)

	w := doPOST(r, "/contents/", []interface{}{postBody("c1", 5), postBody("c2", 7)})
	require.Equal(t, http.StatusCreated, w.Code)

	var items []json.RawMessage
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &items))
	assert.Len(t, items, 2)

	var count int64
	require.NoError(t, st.DB().Model(&models.Content{}).Count(&count).Error)
	assert.EqualValues(t, 2, count)
}

func TestUpsertOverwritesStats(t *testing.T) {
	r, st := setupAPI(t)

	require.Equal(t, http.StatusCreated, doPOST(r, "/contents/", postBody("c1", 5)).Code)
	require.Equal(t, http.StatusCreated, doPOST(r, "/contents/", postBody("c1", 42)).Code)

	var content models.Content
	require.NoError(t, st.DB().Where("unique_id = ?", "c1").First(&content).Error)
	assert.EqualValues(t, 42, content.LikeCount, "the read path must reflect the latest POST")

	var count int64
	require.NoError(t, st.DB().Model(&models.Content{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestUpsertValidation(t *testing.T) {
	r, st := setupAPI(t)

	body := postBody("c1", 5)
	delete(body, "unq_external_id")

	w := doPOST(r, "/contents/", body)
	require.Equal(t, http.StatusBadRequest, w.Code)

	var resp map[string]map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Contains(t, resp, "detail")

	var count int64
	require.NoError(t, st.DB().Model(&models.Content{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestUpsertBatchRejectsWholeRequestOnOneBadItem(t *testing.T) {
	r, st := setupAPI(t)

	bad := postBody("c2", 7)
	delete(bad, "author")

	w := doPOST(r, "/contents/", []interface{}{postBody("c1", 5), bad})
	require.Equal(t, http.StatusBadRequest, w.Code)

	var count int64
	require.NoError(t, st.DB().Model(&models.Content{}).Count(&count).Error)
	assert.Zero(t, count, "validation happens before any write")
}

func TestUpsertWithoutFollowersKeepsIngestedCount(t *testing.T) {
	r, st := setupAPI(t)
	seedContent(t, st, "c1", "a1", 1, 1, 1, 1)

	// The documented POST body carries no followers field.
	body := postBody("c2", 5)
	body["author"].(map[string]interface{})["unique_external_id"] = "a1"
	require.Equal(t, http.StatusCreated, doPOST(r, "/contents/", body).Code)

	var author models.Author
	require.NoError(t, st.DB().Where("unique_id = ?", "a1").First(&author).Error)
	assert.EqualValues(t, 100, author.Followers, "a POST without followers must not zero the ingested count")

	w := doGET(r, "/contents/stats/")
	require.Equal(t, http.StatusOK, w.Code)
	var stats store.Stats
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
	assert.EqualValues(t, 200, stats.TotalFollowers, "one author with 100 followers joined by two contents")
}

func TestUpsertEchoIncludesExistingTags(t *testing.T) {
	r, st := setupAPI(t)
	seedContent(t, st, "c1", "a1", 1, 1, 1, 1, "existing")

	body := postBody("c1", 5)
	body["hashtags"] = []string{"fresh"}

	w := doPOST(r, "/contents/", body)
	require.Equal(t, http.StatusCreated, w.Code)

	var items []struct {
		Content struct {
			Tags []string `json:"tags"`
		} `json:"content"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &items))
	require.Len(t, items, 1)
	assert.ElementsMatch(t, []string{"existing", "fresh"}, items[0].Content.Tags,
		"the echo shows the full stored tag set, same as the read API")
}

func TestStatsEndpoint(t *testing.T) {
	r, st := setupAPI(t)
	seedContent(t, st, "c1", "a1", 10, 5, 2, 0)
	seedContent(t, st, "c2", "a2", 4, 2, 0, 3)

	w := doGET(r, "/contents/stats/")
	require.Equal(t, http.StatusOK, w.Code)

	var stats store.Stats
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
	assert.EqualValues(t, 14, stats.TotalLikes)
	assert.EqualValues(t, 2, stats.TotalShares)
	assert.EqualValues(t, 7, stats.TotalComments)
	assert.EqualValues(t, 3, stats.TotalViews)
	assert.EqualValues(t, 200, stats.TotalFollowers)
	assert.EqualValues(t, 2, stats.TotalContents)
	assert.EqualValues(t, 23, stats.TotalEngagement)
	assert.InDelta(t, 19.0, stats.TotalEngagementRate, 1e-9)
}

func TestStatsEndpointFiltered(t *testing.T) {
	r, st := setupAPI(t)
	seedContent(t, st, "c1", "a1", 10, 0, 0, 10)
	seedContent(t, st, "c2", "a2", 4, 0, 0, 4)

	w := doGET(r, "/contents/stats/?author_username=user_a1")
	require.Equal(t, http.StatusOK, w.Code)

	var stats store.Stats
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
	assert.EqualValues(t, 10, stats.TotalLikes)
	assert.EqualValues(t, 1, stats.TotalContents)
}
