// Package main implements the tenantctl CLI for admin operations against the
// tenant data-access layer: backend health, tenant stats, offboarding and
// cross-tenant migration.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/helixdesk/tenantstore/internal/cache"
	"github.com/helixdesk/tenantstore/internal/config"
	"github.com/helixdesk/tenantstore/internal/logging"
	"github.com/helixdesk/tenantstore/internal/qdrant"
	"github.com/helixdesk/tenantstore/internal/redis"
	"github.com/helixdesk/tenantstore/internal/vectorstore"
)

var (
	// configPath is the optional YAML config file; env vars take precedence.
	configPath string
	// version information
	version = "dev"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "tenantctl",
	Short: "Admin CLI for the tenant data-access layer",
	Long: `tenantctl operates directly on the Redis cache and Qdrant vector store
backing the tenant data-access layer. It provides commands for health checks,
tenant statistics, tenant offboarding and cross-tenant data migration.`,
	Version: version,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to YAML config file (environment variables take precedence)")
	rootCmd.AddCommand(healthCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(clearTenantCmd)
	rootCmd.AddCommand(migrateCmd)
}

// loadRuntime loads configuration and builds the logger shared by every command.
func loadRuntime() (*config.Config, *logging.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("loading config: %w", err)
	}

	logger, err := logging.NewLogger(&cfg.Logging)
	if err != nil {
		return nil, nil, fmt.Errorf("building logger: %w", err)
	}

	return cfg, logger, nil
}

// newCache connects to Redis and wraps it in a TenantCache.
func newCache(cfg *config.Config, logger *logging.Logger) (*cache.TenantCache, error) {
	store, err := redis.NewStore(redis.Config{
		URL:          cfg.Redis.URL,
		DisableRetry: cfg.Redis.DisableRetry,
	})
	if err != nil {
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}

	return cache.New(store, logger, cache.Options{
		DefaultTTL: cfg.Cache.DefaultTTL.Duration(),
		ScanCount:  cfg.Cache.ScanCount,
	}), nil
}

// newVectorStore connects to Qdrant and wraps it in a TenantVectorStore.
func newVectorStore(cfg *config.Config, logger *logging.Logger) (*vectorstore.TenantVectorStore, error) {
	host, port, useTLS, err := cfg.Qdrant.Endpoint()
	if err != nil {
		return nil, fmt.Errorf("parsing qdrant url: %w", err)
	}

	client, err := qdrant.NewGRPCClient(&qdrant.ClientConfig{
		Host:           host,
		Port:           port,
		UseTLS:         useTLS,
		APIKey:         cfg.Qdrant.APIKey,
		MaxMessageSize: cfg.Qdrant.MaxMessageSize,
		DialTimeout:    cfg.Qdrant.DialTimeout.Duration(),
		RequestTimeout: cfg.Qdrant.RequestTimeout.Duration(),
		RetryAttempts:  cfg.Qdrant.MaxRetries,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("connecting to qdrant: %w", err)
	}

	return vectorstore.New(client, logger, vectorstore.Options{
		DefaultVectorSize:  cfg.Vector.DefaultVectorSize,
		DefaultThreshold:   cfg.Vector.DefaultThreshold,
		ScrollLimit:        cfg.Vector.ScrollLimit,
		MigrationBatchSize: cfg.Vector.MigrationBatchSize,
	}), nil
}
