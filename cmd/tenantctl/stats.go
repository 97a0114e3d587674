package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats [tenant]",
	Short: "Show vector storage statistics",
	Long: `Show aggregate vector storage statistics, or one tenant's collection
details when a tenant id is given.

Examples:
  # Aggregate over all tenant collections
  tenantctl stats

  # One tenant's collection
  tenantctl stats acme`,
	Args: cobra.MaximumNArgs(1),
	RunE: runStats,
}

func runStats(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadRuntime()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	store, err := newVectorStore(cfg, logger)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	ctx := context.Background()

	if len(args) == 1 {
		tenantID := args[0]
		stats := store.TenantCollectionStats(ctx, tenantID)
		if stats == nil {
			return fmt.Errorf("no collection for tenant %q", tenantID)
		}
		fmt.Printf("Tenant:      %s\n", stats.TenantID)
		fmt.Printf("Collection:  %s\n", stats.CollectionName)
		fmt.Printf("Vector size: %d\n", stats.VectorSize)
		fmt.Printf("Distance:    %s\n", stats.Distance)
		fmt.Printf("Chunks:      %d\n", stats.ChunksCount)
		fmt.Printf("Documents:   %d (scan-bounded, may undercount large tenants)\n", stats.DocumentsCount)
		return nil
	}

	stats := store.VectorStats(ctx)
	if stats == nil {
		return fmt.Errorf("failed to collect vector stats")
	}
	fmt.Printf("Tenant collections: %d\n", stats.Collections)
	fmt.Printf("Total points:       %d\n", stats.Points)
	return nil
}
