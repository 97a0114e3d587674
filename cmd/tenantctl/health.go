package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check connectivity to Redis and Qdrant",
	Long: `Check connectivity to both backends of the data-access layer.

Examples:
  # Check with defaults (localhost)
  tenantctl health

  # Check against a remote deployment
  REDIS_URL=redis://cache.internal:6379 QDRANT_URL=https://qdrant.internal tenantctl health`,
	RunE: runHealth,
}

func runHealth(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadRuntime()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx := context.Background()
	healthy := true

	tenantCache, err := newCache(cfg, logger)
	if err != nil {
		fmt.Printf("redis:  unreachable (%v)\n", err)
		healthy = false
	} else {
		defer tenantCache.Close()
		if tenantCache.Connected(ctx) {
			fmt.Printf("redis:  ok (%s)\n", cfg.Redis.URL)
		} else {
			fmt.Printf("redis:  unhealthy (%s)\n", cfg.Redis.URL)
			healthy = false
		}
	}

	store, err := newVectorStore(cfg, logger)
	if err != nil {
		fmt.Printf("qdrant: unreachable (%v)\n", err)
		healthy = false
	} else {
		defer func() { _ = store.Close() }()
		if store.Health(ctx) {
			fmt.Printf("qdrant: ok (%s)\n", cfg.Qdrant.URL)
			if info := store.ClusterInfo(ctx); info != nil {
				fmt.Printf("        %s %s (%s)\n", info.Title, info.Version, info.Commit)
			}
		} else {
			fmt.Printf("qdrant: unhealthy (%s)\n", cfg.Qdrant.URL)
			healthy = false
		}
	}

	if !healthy {
		return fmt.Errorf("one or more backends are unhealthy")
	}
	return nil
}
