package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/helixdesk/tenantstore/internal/vectorstore"
)

var (
	migrateSource       string
	migrateTarget       string
	migrateDeleteSource bool
	migrateBatchSize    uint32
)

func init() {
	migrateCmd.Flags().StringVar(&migrateSource, "source", "", "source tenant id (required)")
	migrateCmd.Flags().StringVar(&migrateTarget, "target", "", "target tenant id (required)")
	migrateCmd.Flags().BoolVar(&migrateDeleteSource, "delete-source", false, "delete the source collection after a fully successful copy")
	migrateCmd.Flags().Uint32Var(&migrateBatchSize, "batch-size", 0, "points per batch (default from config)")

	_ = migrateCmd.MarkFlagRequired("source")
	_ = migrateCmd.MarkFlagRequired("target")
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Copy one tenant's vector data to another tenant",
	Long: `Copy every point from the source tenant's collection into the target
tenant's, rewriting the tenant identifier in each payload. Point ids are
preserved, so re-running an interrupted migration is safe. The source is kept
unless --delete-source is given, and is only deleted after a complete copy.

The target tenant's cache entries are invalidated afterwards so stale reads
cannot shadow the migrated data.

Examples:
  # Non-destructive copy
  tenantctl migrate --source acme --target acme-eu

  # Full move
  tenantctl migrate --source acme --target acme-eu --delete-source`,
	RunE: runMigrate,
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadRuntime()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx := context.Background()

	store, err := newVectorStore(cfg, logger)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	fmt.Printf("Migrating tenant data: %s -> %s\n", migrateSource, migrateTarget)
	if migrateDeleteSource {
		fmt.Println("Source collection will be deleted after the copy.")
	}

	ok := store.MigrateTenantData(ctx, migrateSource, migrateTarget, vectorstore.MigrateOptions{
		BatchSize:    migrateBatchSize,
		DeleteSource: migrateDeleteSource,
	})
	if !ok {
		return fmt.Errorf("migration %s -> %s failed; the target may be partially populated, re-run to resume", migrateSource, migrateTarget)
	}

	// Drop both tenants' cache entries so reads repopulate from the store.
	tenantCache, err := newCache(cfg, logger)
	if err != nil {
		fmt.Printf("Warning: migration succeeded but cache invalidation failed: %v\n", err)
		return nil
	}
	defer tenantCache.Close()

	for _, tenantID := range []string{migrateSource, migrateTarget} {
		deleted := tenantCache.ClearTenant(ctx, tenantID)
		fmt.Printf("cache: %d keys invalidated for %s\n", deleted, tenantID)
	}

	fmt.Println("Migration complete.")
	return nil
}
