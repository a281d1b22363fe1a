package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/joho/godotenv"

	"github.com/wolfman30/patient-records-viewer/cmd/mainconfig"
	"github.com/wolfman30/patient-records-viewer/internal/app/bootstrap"
	appconfig "github.com/wolfman30/patient-records-viewer/internal/config"
	"github.com/wolfman30/patient-records-viewer/internal/profilecache"
	"github.com/wolfman30/patient-records-viewer/pkg/logging"
)

func usage() {
	fmt.Println("Usage: cachectl <command> [args]")
	fmt.Println("Commands:")
	fmt.Println("  list            list cached patients and their status")
	fmt.Println("  get <patient>   print one cached entry as JSON")
	fmt.Println("  delete <patient>  remove one entry so the next view refetches")
	fmt.Println("  clear           remove every entry")
	fmt.Println("  path            print which backend the cache lives on")
	fmt.Println()
	fmt.Println("The backend comes from the same environment the server reads")
	fmt.Println("(PROFILE_CACHE_BACKEND, PROFILE_CACHE_FILE, REDIS_ADDR, S3_BUCKET, ...).")
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	// Same environment as the server, so the tool hits the same backend.
	_ = godotenv.Load()
	cfg := appconfig.Load()
	logger := logging.New("error", cfg.LogFormat)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	store, err := buildStore(ctx, cfg, logger)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	switch os.Args[1] {
	case "list":
		runList(ctx, store)
	case "get":
		if len(os.Args) < 3 {
			fmt.Println("Usage: cachectl get <patient>")
			os.Exit(1)
		}
		runGet(ctx, store, os.Args[2])
	case "delete":
		if len(os.Args) < 3 {
			fmt.Println("Usage: cachectl delete <patient>")
			os.Exit(1)
		}
		runDelete(ctx, store, os.Args[2])
	case "clear":
		runClear(ctx, store)
	case "path":
		fmt.Println(describeBackend(cfg))
	default:
		usage()
		os.Exit(1)
	}
}

func runList(ctx context.Context, store profilecache.Store) {
	entries := mustLoad(ctx, store)
	if len(entries) == 0 {
		fmt.Println("Cache is empty.")
		return
	}
	names := make([]string, 0, len(entries))
	for name := range entries {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		entry := entries[name]
		if entry.Status == profilecache.StatusFailed {
			fmt.Printf("%-30s failed (%s)\n", name, entry.Reason)
			continue
		}
		fmt.Printf("%-30s ready\n", name)
	}
	fmt.Printf("%d entries\n", len(entries))
}

func runGet(ctx context.Context, store profilecache.Store, name string) {
	entries := mustLoad(ctx, store)
	entry, ok := entries[name]
	if !ok {
		fmt.Printf("No cached entry for %q\n", name)
		os.Exit(1)
	}
	out, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		fmt.Printf("Error encoding entry: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(string(out))
}

func runDelete(ctx context.Context, store profilecache.Store, name string) {
	entries := mustLoad(ctx, store)
	if _, ok := entries[name]; !ok {
		fmt.Printf("No cached entry for %q\n", name)
		os.Exit(1)
	}
	delete(entries, name)
	mustSave(ctx, store, entries)
	fmt.Printf("Deleted %q. The next view of this patient refetches.\n", name)
}

func runClear(ctx context.Context, store profilecache.Store) {
	entries := mustLoad(ctx, store)
	if len(entries) == 0 {
		fmt.Println("Cache is already empty.")
		return
	}
	mustSave(ctx, store, map[string]profilecache.Entry{})
	fmt.Printf("Cleared %d entries.\n", len(entries))
}

func mustLoad(ctx context.Context, store profilecache.Store) map[string]profilecache.Entry {
	entries, err := store.Load(ctx)
	if err != nil {
		fmt.Printf("Error loading cache: %v\n", err)
		os.Exit(1)
	}
	return entries
}

func mustSave(ctx context.Context, store profilecache.Store, entries map[string]profilecache.Entry) {
	if err := store.Save(ctx, entries); err != nil {
		fmt.Printf("Error saving cache: %v\n", err)
		os.Exit(1)
	}
}

func describeBackend(cfg *appconfig.Config) string {
	switch cfg.CacheBackend {
	case "", "file":
		return fmt.Sprintf("file %s", cfg.CacheFilePath)
	case "redis":
		return fmt.Sprintf("redis %s key %s", cfg.RedisAddr, cfg.CacheRedisKey)
	case "s3":
		return fmt.Sprintf("s3 bucket %s key %s", cfg.S3Bucket, cfg.CacheS3Key)
	default:
		return fmt.Sprintf("unknown backend %q", cfg.CacheBackend)
	}
}

func buildStore(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) (profilecache.Store, error) {
	if cfg.CacheBackend != "s3" {
		return bootstrap.BuildProfileStore(ctx, cfg, nil, logger)
	}
	awsCfg, err := mainconfig.LoadAWSConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}
	return bootstrap.BuildProfileStore(ctx, cfg, mainconfig.NewS3Client(awsCfg, cfg), logger)
}
