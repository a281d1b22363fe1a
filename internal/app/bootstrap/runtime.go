package bootstrap

import (
	"context"
	"crypto/tls"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/redis/go-redis/v9"

	appconfig "github.com/wolfman30/patient-records-viewer/internal/config"
	"github.com/wolfman30/patient-records-viewer/internal/profilecache"
	"github.com/wolfman30/patient-records-viewer/pkg/logging"
)

// BuildRedisClient returns a configured Redis client or nil when no
// address is set. When verify is true, a ping is issued and failures
// return nil.
func BuildRedisClient(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger, verify bool) *redis.Client {
	if cfg == nil || strings.TrimSpace(cfg.RedisAddr) == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	if ctx == nil {
		ctx = context.Background()
	}

	redisOptions := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}
	if cfg.RedisTLS {
		redisOptions.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	client := redis.NewClient(redisOptions)
	if !verify {
		return client
	}
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis not available", "error", err)
		return nil
	}
	return client
}

// BuildProfileStore picks the profile cache store for the configured
// backend. s3Client is only consulted for the s3 backend; pass nil
// otherwise. A backend whose remote is down still gets a store: the
// cache keeps serving from memory and surfaces persistence errors per
// operation.
func BuildProfileStore(ctx context.Context, cfg *appconfig.Config, s3Client *s3.Client, logger *logging.Logger) (profilecache.Store, error) {
	if logger == nil {
		logger = logging.Default()
	}
	switch cfg.CacheBackend {
	case "", "file":
		logger.Info("profile cache on file store", "path", cfg.CacheFilePath)
		return profilecache.NewFileStore(cfg.CacheFilePath), nil
	case "redis":
		client := BuildRedisClient(ctx, cfg, logger, false)
		if client == nil {
			return nil, fmt.Errorf("redis cache backend requires REDIS_ADDR")
		}
		if err := client.Ping(ctx).Err(); err != nil {
			logger.Warn("redis unreachable at startup", "addr", cfg.RedisAddr, "error", err)
		}
		logger.Info("profile cache on redis store", "addr", cfg.RedisAddr, "key", cfg.CacheRedisKey)
		return profilecache.NewRedisStore(client, cfg.CacheRedisKey, cfg.CacheTTL), nil
	case "s3":
		if cfg.S3Bucket == "" {
			return nil, fmt.Errorf("s3 cache backend requires S3_BUCKET")
		}
		if s3Client == nil {
			return nil, fmt.Errorf("s3 cache backend requires an S3 client")
		}
		logger.Info("profile cache on s3 store", "bucket", cfg.S3Bucket, "key", cfg.CacheS3Key)
		return profilecache.NewS3Store(s3Client, cfg.S3Bucket, cfg.CacheS3Key), nil
	default:
		return nil, fmt.Errorf("unknown profile cache backend %q", cfg.CacheBackend)
	}
}
