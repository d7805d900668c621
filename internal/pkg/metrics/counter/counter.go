package counter

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/odontobb/odontobb/internal/pkg/cache"
	"github.com/odontobb/odontobb/internal/pkg/database"
)

const (
	imageViewsKey    = "image:counters:views"
	detectionRunsKey = "detection:counters:runs"

	// FlushInterval is how often the background worker drains pending
	// counters into MySQL.
	FlushInterval = 5 * time.Minute
)

// AddImageView increments the pending view counter for an image in Redis
func AddImageView(imageID string) error {
	ctx := context.Background()
	return cache.GetClient().HIncrBy(ctx, imageViewsKey, imageID, 1).Err()
}

// AddDetectionRun increments the daily inference counter in Redis
func AddDetectionRun() error {
	ctx := context.Background()
	day := time.Now().Format("2006-01-02")
	return cache.GetClient().HIncrBy(ctx, detectionRunsKey, day, 1).Err()
}

// DetectionRuns returns the accumulated inference counters keyed by day.
func DetectionRuns() (map[string]int64, error) {
	ctx := context.Background()
	raw, err := cache.GetClient().HGetAll(ctx, detectionRunsKey).Result()
	if err != nil {
		return nil, err
	}
	out := make(map[string]int64, len(raw))
	for day, v := range raw {
		n, perr := strconv.ParseInt(v, 10, 64)
		if perr != nil {
			continue
		}
		out[day] = n
	}
	return out, nil
}

// FlushImageViews drains pending view counters into the images table
func FlushImageViews() error {
	return flushHashToTable(imageViewsKey, "images", "view_count")
}

// StartFlushWorker runs FlushImageViews on a fixed interval in the
// background. The returned stop function ends the worker; pending increments
// stay in Redis and are picked up by the next flush.
func StartFlushWorker(interval time.Duration) context.CancelFunc {
	ctx, cancel := context.WithCancel(context.Background())
	go runFlushLoop(ctx, interval, func() {
		if err := FlushImageViews(); err != nil {
			log.Errorf("[Counter] view count flush failed: %v", err)
		}
	})
	return cancel
}

func runFlushLoop(ctx context.Context, interval time.Duration, flush func()) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			flush()
		}
	}
}

// flushHashToTable drains a Redis hash atomically and applies batched increments.
// Uses RENAME to a temporary key for atomic drain without losing in-flight increments.
func flushHashToTable(redisKey, table, column string) error {
	ctx := context.Background()
	rdb := cache.GetClient()

	// Atomically move the hash to a temp key for draining
	tmpKey := fmt.Sprintf("%s:tmp:%d", redisKey, time.Now().UnixNano())
	if err := rdb.Do(ctx, "RENAME", redisKey, tmpKey).Err(); err != nil {
		// If key does not exist, nothing to flush
		if strings.Contains(strings.ToLower(err.Error()), "no such key") {
			return nil
		}
		// Some Redis libs return redis.Nil; treat as empty
		if err.Error() == "redis: nil" {
			return nil
		}
		return err
	}

	// Ensure cleanup of tmpKey even if later steps fail
	defer rdb.Del(ctx, tmpKey)

	data, err := rdb.HGetAll(ctx, tmpKey).Result()
	if err != nil {
		return err
	}
	if len(data) == 0 {
		return nil
	}

	type pair struct {
		id  string
		inc int64
	}
	pairs := make([]pair, 0, len(data))
	for k, v := range data {
		inc, ierr := strconv.ParseInt(v, 10, 64)
		if ierr != nil || inc == 0 {
			continue
		}
		pairs = append(pairs, pair{id: k, inc: inc})
	}
	if len(pairs) == 0 {
		return nil
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].id < pairs[j].id })

	// UPDATE <table> SET <column> = <column> + CASE id WHEN ? THEN ? ... END WHERE id IN ( ... )
	var builder strings.Builder
	args := make([]interface{}, 0, len(pairs)*3)
	builder.WriteString("UPDATE ")
	builder.WriteString(table)
	builder.WriteString(" SET ")
	builder.WriteString(column)
	builder.WriteString(" = ")
	builder.WriteString(column)
	builder.WriteString(" + CASE id ")
	for _, p := range pairs {
		builder.WriteString(" WHEN ? THEN ?")
		args = append(args, p.id, p.inc)
	}
	builder.WriteString(" END WHERE id IN (")
	for i, p := range pairs {
		if i > 0 {
			builder.WriteString(",")
		}
		builder.WriteString("?")
		args = append(args, p.id)
	}
	builder.WriteString(")")

	db := database.GetDB()
	return db.Exec(builder.String(), args...).Error
}
