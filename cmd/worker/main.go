package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"absensipro/internal/activity"
	"absensipro/internal/config"
	"absensipro/internal/queue"
	"absensipro/internal/store"
)

// Worker consumes activity events from the queue and persists them as
// activity-log rows. Domain operations never wait on this pipeline; a lost
// event costs an audit line, not a check-in.
func main() {
	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("shutdown signal received")
		cancel()
	}()

	db, err := store.NewDB(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db connect failed: %v", err)
	}
	defer db.Close()

	if err := db.Migrate(ctx); err != nil {
		log.Fatalf("migrate failed: %v", err)
	}

	redisClient := store.NewRedis(cfg.RedisAddr)

	var q queue.Queue
	if cfg.QueueBackend == "memory" {
		q = queue.NewInMemory(64)
	} else {
		q = queue.NewRedisQueue(redisClient.Client, "absensipro:activity")
	}

	logs := activity.NewRepository(db.Client)

	events, err := q.Consume(ctx)
	if err != nil {
		log.Fatalf("queue consume init failed: %v", err)
	}

	log.Println("worker started, waiting for activity events...")
	for evt := range events {
		entry := activity.Log{Action: evt.Action, Detail: evt.Detail}
		if evt.ActorID != 0 {
			actor := evt.ActorID
			entry.ActorID = &actor
		}
		if err := logs.Insert(ctx, entry); err != nil {
			log.Printf("insert activity log %s failed: %v", evt.ID, err)
			continue
		}
		log.Printf("recorded %s (%s)", evt.Action, evt.ID)
	}

	log.Println("worker stopped")
}
