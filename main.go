package main

import (
	"context"
	"time"

	"github.com/zelfworks/contentapi/config"
	"github.com/zelfworks/contentapi/models"
	"github.com/zelfworks/contentapi/routes"
	"github.com/zelfworks/contentapi/store"
	"github.com/zelfworks/contentapi/tasks"
	"github.com/zelfworks/contentapi/utils"
	"github.com/zelfworks/contentapi/zelf"
)

func main() {
	cfg := config.Load()

	// Initialize logger early
	if err := utils.InitLogger(cfg); err != nil {
		panic(err)
	}

	db := config.InitDatabase(&models.Author{}, &models.Content{}, &models.Tag{}, &models.ContentTag{}, &models.AIComment{})
	st := store.New(db)

	client := zelf.NewClient(cfg.ZelfBaseURL, cfg.ZelfAPIKey, time.Duration(cfg.ZelfTimeoutSeconds)*time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	queue := tasks.NewQueue(cfg.TaskWorkersPerQueue,
		tasks.QueueContentPull, tasks.QueueAIComments, tasks.QueueFinalComment)
	queue.Start(ctx)
	defer queue.Stop()

	runner := tasks.NewRunner(st, client, queue, tasks.Options{
		RefreshOnPull: cfg.ContentRefreshOnPull,
		MaxRetries:    cfg.FinalCommentMaxRetries,
		RetryDelay:    time.Duration(cfg.FinalCommentRetrySeconds) * time.Second,
	})

	scheduler := tasks.NewScheduler(queue)
	scheduler.Register("pull_and_store_content", tasks.QueueContentPull,
		time.Duration(cfg.ContentPullIntervalSeconds)*time.Second, runner.PullAndStoreContent)
	scheduler.Register("post_ai_comments", tasks.QueueAIComments,
		time.Duration(cfg.AICommentIntervalSeconds)*time.Second, runner.PostAIComments)
	scheduler.Start(ctx)

	// Prune delivered comment records in the background (best-effort)
	utils.StartAICommentCleaner(time.Hour)

	r := routes.SetupRouter(db)

	utils.Sugar.Infof("Starting server on port %s (graceful)", cfg.AppPort)
	if err := utils.GraceServer(":"+cfg.AppPort, r); err != nil {
		utils.Sugar.Fatalf("server stopped with error: %v", err)
	}
}
