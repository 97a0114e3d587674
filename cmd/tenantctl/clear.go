package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var clearYes bool

func init() {
	clearTenantCmd.Flags().BoolVar(&clearYes, "yes", false, "skip the confirmation prompt")
}

var clearTenantCmd = &cobra.Command{
	Use:   "clear-tenant <tenant>",
	Short: "Remove all cached and vector data for a tenant",
	Long: `Remove every cache entry and the whole vector collection belonging to a
tenant. Used for offboarding. This is irreversible.

Examples:
  tenantctl clear-tenant acme --yes`,
	Args: cobra.ExactArgs(1),
	RunE: runClearTenant,
}

func runClearTenant(cmd *cobra.Command, args []string) error {
	tenantID := args[0]

	if !clearYes {
		fmt.Printf("About to delete ALL data for tenant %q. Re-run with --yes to confirm.\n", tenantID)
		return nil
	}

	cfg, logger, err := loadRuntime()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx := context.Background()

	tenantCache, err := newCache(cfg, logger)
	if err != nil {
		return err
	}
	defer tenantCache.Close()

	store, err := newVectorStore(cfg, logger)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	deleted := tenantCache.ClearTenant(ctx, tenantID)
	fmt.Printf("cache:  %d keys deleted\n", deleted)

	if store.ClearTenantData(ctx, tenantID) {
		fmt.Printf("vector: collection removed\n")
	} else {
		return fmt.Errorf("failed to remove vector data for tenant %q", tenantID)
	}

	return nil
}
