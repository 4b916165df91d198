package tasks

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/zelfworks/contentapi/utils"
	"github.com/zelfworks/contentapi/zelf"
)

// notAvailablePhrase marks content the comment service permanently refuses.
const notAvailablePhrase = "This content is not available for commenting"

// PostAIComments requests generated comments for every stored content row and
// fans out one delivery job per returned comment. The fan-out is asynchronous:
// this task never waits for deliveries. A single row's failure logs and the
// batch continues.
func (r *Runner) PostAIComments(ctx context.Context) {
	contents, err := r.store.AllContents()
	if err != nil {
		utils.Sugar.Errorf("ai comments: %v", err)
		return
	}

	for _, content := range contents {
		req := zelf.AICommentRequest{
			ContentID:      content.UniqueID,
			Title:          content.Title,
			URL:            content.URL,
			AuthorUsername: content.Author.Username,
		}
		comments, err := r.client.RequestAIComments(ctx, req)
		if err != nil {
			utils.Sugar.Errorf("ai comments: content %s: %v", content.UniqueID, err)
			continue
		}

		for _, c := range comments {
			r.EnqueueFinalComment(c.ContentID, c.CommentText, 0)
		}
	}
}

// EnqueueFinalComment schedules one delivery attempt for a generated comment.
func (r *Runner) EnqueueFinalComment(contentID, commentText string, attempt int) {
	name := fmt.Sprintf("post_final_comment content=%s attempt=%d", contentID, attempt)
	r.dispatcher.Dispatch(QueueFinalComment, name, func(ctx context.Context) {
		r.PostFinalComment(ctx, contentID, commentText, attempt)
	})
}

// PostFinalComment delivers exactly one comment for one content id.
// Outcomes per attempt:
//   - 2xx: content marked commented, delivery recorded; terminal success.
//   - 503: pause, then re-dispatch with the same delay; capped retries, and
//     exhausting the budget is a terminal failure.
//   - 400 carrying the not-available phrase: terminal failure, no retry.
//   - anything else, including transport failures with no response: terminal
//     failure, no retry.
//
// Failures are logged, never re-raised to the scheduler.
func (r *Runner) PostFinalComment(ctx context.Context, contentID, commentText string, attempt int) {
	commentText = utils.Sanitize(commentText)

	err := r.client.PostFinalComment(ctx, contentID, commentText)
	if err == nil {
		ok, merr := r.store.MarkCommented(contentID)
		if merr != nil {
			utils.Sugar.Errorf("final comment: marking content %s: %v", contentID, merr)
		} else if !ok {
			utils.Sugar.Warnf("final comment: no stored content with id %s", contentID)
		}
		if rerr := r.store.RecordAIComment(contentID, commentText, true); rerr != nil {
			utils.Sugar.Warnf("final comment: %v", rerr)
		}
		utils.InvalidateContentCache()
		utils.Sugar.Infof("posted final comment for content %s", contentID)
		return
	}

	var se *zelf.StatusError
	if !errors.As(err, &se) {
		// No HTTP response to inspect; transport failures are terminal.
		utils.Sugar.Errorf("final comment for content %s failed: %v", contentID, err)
		r.recordFailed(contentID, commentText)
		return
	}

	switch {
	case se.StatusCode == http.StatusServiceUnavailable:
		if attempt >= r.opts.MaxRetries {
			utils.Sugar.Errorf("max retries exceeded for content %s", contentID)
			r.recordFailed(contentID, commentText)
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(r.opts.RetryDelay):
		}
		next := attempt + 1
		name := fmt.Sprintf("post_final_comment content=%s attempt=%d", contentID, next)
		r.dispatcher.DispatchAfter(QueueFinalComment, name, func(ctx context.Context) {
			r.PostFinalComment(ctx, contentID, commentText, next)
		}, r.opts.RetryDelay)

	case se.StatusCode == http.StatusBadRequest && strings.Contains(se.Body, notAvailablePhrase):
		utils.Sugar.Warnf("content %s is not available for commenting", contentID)
		r.recordFailed(contentID, commentText)

	default:
		utils.Sugar.Errorf("error posting final comment for content %s: %v", contentID, err)
		r.recordFailed(contentID, commentText)
	}
}

func (r *Runner) recordFailed(contentID, commentText string) {
	if err := r.store.RecordAIComment(contentID, commentText, false); err != nil {
		utils.Sugar.Warnf("final comment: %v", err)
	}
}
