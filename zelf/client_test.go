package zelf

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPullContents(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/v1/contents/", r.URL.Path)
		assert.Equal(t, "3", r.URL.Query().Get("page"))
		assert.Equal(t, "secret", r.Header.Get("x-api-key"))
		_ = json.NewEncoder(w).Encode(ContentPullResponse{
			Data:       []ContentPayload{{UnqExternalID: "c1"}},
			Pagination: Pagination{Next: 4},
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "secret", time.Second)
	resp, err := c.PullContents(context.Background(), 3)
	require.NoError(t, err)
	require.Len(t, resp.Data, 1)
	assert.Equal(t, "c1", resp.Data[0].UnqExternalID)
	assert.EqualValues(t, 4, resp.Pagination.Next)
}

func TestNextPageDecodesFalsyForms(t *testing.T) {
	// The service ends the page cursor loosely: 0, null, or false.
	for _, body := range []string{
		`{"next": 0}`,
		`{"next": null}`,
		`{"next": false}`,
		`{}`,
	} {
		var p Pagination
		require.NoError(t, json.Unmarshal([]byte(body), &p), body)
		assert.EqualValues(t, 0, p.Next, body)
	}

	var p Pagination
	require.NoError(t, json.Unmarshal([]byte(`{"next": 7}`), &p))
	assert.EqualValues(t, 7, p.Next)
}

func TestPullContentsFalseCursorEndsRun(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data": [{"unq_external_id": "c1", "author": {"unique_external_id": "a1", "unique_name": "u"}}], "pagination": {"next": false}}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "secret", time.Second)
	resp, err := c.PullContents(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, resp.Data, 1)
	assert.EqualValues(t, 0, resp.Pagination.Next)
}

func TestRequestAIComments(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1/ai_comment/", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req AICommentRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "c1", req.ContentID)

		_ = json.NewEncoder(w).Encode([]AIComment{{ContentID: "c1", CommentText: "hi"}})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "secret", time.Second)
	comments, err := c.RequestAIComments(context.Background(), AICommentRequest{ContentID: "c1"})
	require.NoError(t, err)
	require.Len(t, comments, 1)
	assert.Equal(t, "hi", comments[0].CommentText)
}

func TestPostFinalCommentStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("try later"))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "secret", time.Second)
	err := c.PostFinalComment(context.Background(), "c1", "hello")
	require.Error(t, err)

	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusServiceUnavailable, se.StatusCode)
	assert.Equal(t, "try later", se.Body)
}

func TestTransportErrorIsNotStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	c := NewClient(srv.URL, "secret", time.Second)
	err := c.PostFinalComment(context.Background(), "c1", "hello")
	require.Error(t, err)

	var se *StatusError
	assert.False(t, errors.As(err, &se))
}
