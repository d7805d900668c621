package storage

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/gofiber/fiber/v2/log"
)

// Health is the cached availability state of the blob store.
type Health struct {
	Healthy   bool      `json:"healthy"`
	Bucket    string    `json:"bucket"`
	CheckedAt time.Time `json:"checked_at"`
}

// CheckHealth verifies that the bucket is reachable.
func (c *Client) CheckHealth(ctx context.Context) Health {
	h := Health{Bucket: c.config.Bucket, CheckedAt: time.Now()}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	_, err := c.s3Client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(c.config.Bucket),
	})
	if err != nil {
		log.Warnf("[Storage] health check failed for bucket %s: %v", c.config.Bucket, err)
		return h
	}

	h.Healthy = true
	return h
}
