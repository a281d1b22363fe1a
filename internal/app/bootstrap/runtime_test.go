package bootstrap

import (
	"context"
	"io"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"

	appconfig "github.com/wolfman30/patient-records-viewer/internal/config"
	"github.com/wolfman30/patient-records-viewer/internal/profilecache"
	"github.com/wolfman30/patient-records-viewer/pkg/logging"
)

func testLogger() *logging.Logger {
	return logging.NewWithWriter(io.Discard, "error", "text")
}

func TestBuildProfileStoreFile(t *testing.T) {
	cfg := &appconfig.Config{
		CacheBackend:  "file",
		CacheFilePath: filepath.Join(t.TempDir(), "cache.json"),
	}
	store, err := BuildProfileStore(context.Background(), cfg, nil, testLogger())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := store.(*profilecache.FileStore); !ok {
		t.Fatalf("expected a file store, got %T", store)
	}
}

func TestBuildProfileStoreDefaultsToFile(t *testing.T) {
	cfg := &appconfig.Config{CacheFilePath: filepath.Join(t.TempDir(), "cache.json")}
	store, err := BuildProfileStore(context.Background(), cfg, nil, testLogger())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := store.(*profilecache.FileStore); !ok {
		t.Fatalf("expected a file store, got %T", store)
	}
}

func TestBuildProfileStoreRedis(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	defer mr.Close()

	cfg := &appconfig.Config{
		CacheBackend:  "redis",
		RedisAddr:     mr.Addr(),
		CacheRedisKey: "viewer:profile-cache",
	}
	store, err := BuildProfileStore(context.Background(), cfg, nil, testLogger())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := store.(*profilecache.RedisStore); !ok {
		t.Fatalf("expected a redis store, got %T", store)
	}
}

func TestBuildProfileStoreRedisRequiresAddr(t *testing.T) {
	cfg := &appconfig.Config{CacheBackend: "redis"}
	if _, err := BuildProfileStore(context.Background(), cfg, nil, testLogger()); err == nil {
		t.Fatal("expected an error without a redis address")
	}
}

func TestBuildProfileStoreS3RequiresBucket(t *testing.T) {
	cfg := &appconfig.Config{CacheBackend: "s3"}
	if _, err := BuildProfileStore(context.Background(), cfg, nil, testLogger()); err == nil {
		t.Fatal("expected an error without a bucket")
	}
}

func TestBuildProfileStoreUnknownBackend(t *testing.T) {
	cfg := &appconfig.Config{CacheBackend: "dynamo"}
	if _, err := BuildProfileStore(context.Background(), cfg, nil, testLogger()); err == nil {
		t.Fatal("expected an error for an unknown backend")
	}
}

func TestBuildRedisClientVerify(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	defer mr.Close()

	cfg := &appconfig.Config{RedisAddr: mr.Addr()}
	if client := BuildRedisClient(context.Background(), cfg, testLogger(), true); client == nil {
		t.Fatal("expected a client for a reachable redis")
	}

	cfg = &appconfig.Config{RedisAddr: "127.0.0.1:1"}
	if client := BuildRedisClient(context.Background(), cfg, testLogger(), true); client != nil {
		t.Fatal("expected nil for an unreachable redis")
	}
}

func TestBuildRedisClientNoAddr(t *testing.T) {
	if client := BuildRedisClient(context.Background(), &appconfig.Config{}, testLogger(), false); client != nil {
		t.Fatal("expected nil without an address")
	}
}
