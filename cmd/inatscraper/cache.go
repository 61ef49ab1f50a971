package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"inatscraper/pkg/cache"
	"inatscraper/pkg/ui"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect or clear the observation response cache",
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show cache size and entry count",
	RunE:  runCacheStats,
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove every cached response",
	RunE:  runCacheClear,
}

func init() {
	rootCmd.AddCommand(cacheCmd)
	cacheCmd.AddCommand(cacheStatsCmd)
	cacheCmd.AddCommand(cacheClearCmd)
}

func openCache() (cache.Store, error) {
	cfg, err := loadConfig(nil)
	if err != nil {
		return nil, err
	}
	if cfg.Cache.Disabled {
		return nil, fmt.Errorf("the response cache is disabled")
	}
	return cache.NewSQLiteStore(cfg.Cache.Path, cfg.Cache.SizeLimit)
}

func runCacheStats(cmd *cobra.Command, args []string) error {
	store, err := openCache()
	if err != nil {
		return err
	}
	defer store.Close()

	stats, err := store.Stats(context.Background())
	if err != nil {
		return err
	}

	ui.PrintHighlight("Response cache")
	ui.PrintInfo("Path", stats.Path)
	ui.PrintInfo("Entries", fmt.Sprint(stats.Entries))
	ui.PrintInfo("Size", fmt.Sprintf("%s of %s", formatBytes(stats.Bytes), formatBytes(stats.Limit)))
	return nil
}

func runCacheClear(cmd *cobra.Command, args []string) error {
	store, err := openCache()
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.Clear(context.Background()); err != nil {
		return err
	}
	ui.PrintSuccess("Response cache cleared")
	return nil
}

func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
