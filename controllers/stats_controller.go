package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/zelfworks/contentapi/store"
	"github.com/zelfworks/contentapi/utils"
)

const statsCacheTTL = 5 * time.Minute

const statsCacheKey = utils.ContentCachePrefix + "stats"

// StatsController serves the aggregate stats endpoint.
type StatsController struct {
	store *store.ContentStore
}

// NewStatsController creates the controller on the given store.
func NewStatsController(st *store.ContentStore) *StatsController {
	return &StatsController{store: st}
}

// Stats handles GET /contents/stats/: scalar sums over the filtered content
// set, computed in one aggregate query. Accepts the same filters as the
// listing endpoint; the unfiltered result is served from cache.
func (c *StatsController) Stats(ctx *gin.Context) {
	f := parseFilters(ctx)

	unfiltered := f == store.Filters{}
	if unfiltered {
		if b, ok := utils.CacheGetBytes(statsCacheKey); ok {
			ctx.Data(http.StatusOK, "application/json; charset=utf-8", b)
			return
		}
	}

	stats, err := c.store.AggregateStats(f)
	if err != nil {
		utils.Sugar.Errorf("content stats: %v", err)
		utils.Error(ctx, http.StatusInternalServerError, "failed to compute stats")
		return
	}

	if unfiltered {
		utils.CacheSetJSON(statsCacheKey, stats, statsCacheTTL)
	}
	ctx.JSON(http.StatusOK, stats)
}
