package tasks

import (
	"context"

	"github.com/zelfworks/contentapi/utils"
)

// PullAndStoreContent pulls every page of content from the external source and
// upserts it into the store. Idempotent: an unchanged source produces no new
// rows on a re-run. A request failure aborts the remaining pages for this run;
// the next scheduled run starts over from page one.
func (r *Runner) PullAndStoreContent(ctx context.Context) {
	page := 1
	stored := 0
	for {
		resp, err := r.client.PullContents(ctx, page)
		if err != nil {
			utils.Sugar.Errorf("content pull: page %d: %v", page, err)
			break
		}

		for _, item := range resp.Data {
			if _, _, err := r.store.UpsertPayload(item, r.opts.RefreshOnPull); err != nil {
				utils.Sugar.Errorf("content pull: storing %s: %v", item.UnqExternalID, err)
				continue
			}
			stored++
		}

		if resp.Pagination.Next == 0 {
			break
		}
		page = int(resp.Pagination.Next)
	}

	if stored > 0 {
		utils.InvalidateContentCache()
	}
	utils.Sugar.Infof("content pull finished: %d items stored", stored)
}
