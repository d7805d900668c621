package storage

import (
	"strings"

	"github.com/odontobb/odontobb/internal/pkg/env"
)

// Config holds S3-compatible blob store settings. EndpointURL is empty for
// AWS proper and set for MinIO/B2 style endpoints.
type Config struct {
	Region          string
	Bucket          string
	AccessKeyID     string
	SecretAccessKey string
	EndpointURL     string
	PublicBaseURL   string
}

func NewConfigFromEnv() *Config {
	return &Config{
		Region:          env.GetEnv("S3_REGION", "us-east-1"),
		Bucket:          env.GetEnv("S3_BUCKET", "odontobb-media"),
		AccessKeyID:     env.GetEnv("S3_ACCESS_KEY_ID", ""),
		SecretAccessKey: env.GetEnv("S3_SECRET_ACCESS_KEY", ""),
		EndpointURL:     env.GetEnv("S3_ENDPOINT_URL", ""),
		PublicBaseURL:   strings.TrimRight(env.GetEnv("S3_PUBLIC_BASE_URL", ""), "/"),
	}
}

// IsEnabled reports whether credentials are configured.
func (c *Config) IsEnabled() bool {
	return c.AccessKeyID != "" && c.SecretAccessKey != ""
}
