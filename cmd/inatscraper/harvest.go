package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"inatscraper/pkg/auth"
	"inatscraper/pkg/cache"
	"inatscraper/pkg/config"
	"inatscraper/pkg/logger"
	"inatscraper/pkg/metrics"
	"inatscraper/pkg/scraper"
	"inatscraper/pkg/ui"
)

var (
	speciesNames   []string
	numImages      int
	outputDir      string
	speciesWorkers int
	profile        string
)

func init() {
	rootCmd.Flags().StringSliceVar(&speciesNames, "species", nil, "comma-separated species names to harvest instead of the bulk query")
	rootCmd.Flags().IntVar(&numImages, "num_images", scraper.DefaultImagesPerSpecies, "photos to collect per species")
	rootCmd.Flags().StringVarP(&outputDir, "output", "o", "", "root directory for species folders")
	rootCmd.Flags().IntVar(&speciesWorkers, "species-workers", 0, "species processed concurrently in bulk mode")
	rootCmd.Flags().StringVar(&profile, "profile", auth.DefaultProfile, "stored API token profile")
}

func harvestFlags(cmd *cobra.Command) map[string]interface{} {
	flags := make(map[string]interface{})
	if len(speciesNames) > 0 {
		var names []string
		for _, n := range speciesNames {
			if n = strings.TrimSpace(n); n != "" {
				names = append(names, n)
			}
		}
		flags["species"] = names
	}
	if cmd.Flags().Changed("num_images") {
		flags["num-images"] = numImages
	}
	if outputDir != "" {
		flags["output"] = outputDir
	}
	if speciesWorkers > 0 {
		flags["species-workers"] = speciesWorkers
	}
	return flags
}

func runHarvest(cmd *cobra.Command, args []string) error {
	if cmd.Flags().Changed("num_images") && numImages <= 0 {
		return fmt.Errorf("--num_images must be positive, got %d", numImages)
	}

	cfg, err := loadConfig(harvestFlags(cmd))
	if err != nil {
		return err
	}
	log := logger.GetLogger().WithField("version", version)

	if cfg.API.Token == "" {
		cfg.API.Token = storedToken(profile)
	}

	store, err := cache.Open(cfg.Cache.Path, cfg.Cache.SizeLimit, cfg.Cache.MemoryTTL, cfg.Cache.Disabled)
	if err != nil {
		return fmt.Errorf("failed to open response cache: %w", err)
	}
	defer store.Close()

	m, err := metrics.NewHarvest()
	if err != nil {
		return fmt.Errorf("failed to create metrics: %w", err)
	}

	h, err := scraper.New(cfg, store, m, log)
	if err != nil {
		return fmt.Errorf("failed to initialize harvester: %w", err)
	}

	ui.PrintBanner()
	if len(cfg.Harvest.Species) > 0 {
		ui.PrintInfo("Species", strings.Join(cfg.Harvest.Species, ", "))
	} else {
		ui.PrintInfo("Region", fmt.Sprintf("%.4f, %.4f (%.0f km)", cfg.Source.Latitude, cfg.Source.Longitude, cfg.Source.Radius))
	}
	ui.PrintInfo("Output", cfg.Harvest.RootDirectory)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	summary, err := harvest(ctx, cfg, h, m, log)
	ui.PrintSummary(summary)
	if err != nil {
		return err
	}
	if summary != nil && summary.Failed > 0 {
		ui.PrintWarning("Some species failed; run again to retry them")
	}
	return nil
}

// harvest runs h and, when enabled, the metrics listener in one errgroup.
// The listener is shut down once the harvest returns.
func harvest(ctx context.Context, cfg *config.Config, h *scraper.Harvester, m *metrics.Harvest, log logger.Logger) (*scraper.Summary, error) {
	g, gctx := errgroup.WithContext(ctx)
	done := make(chan struct{})

	var summary *scraper.Summary
	g.Go(func() error {
		defer close(done)
		var err error
		summary, err = h.Run(gctx, cfg.Harvest.Species)
		return err
	})

	if cfg.Metrics.Enabled {
		srv := &http.Server{
			Addr:              cfg.Metrics.Address,
			Handler:           metricsMux(m),
			ReadHeaderTimeout: 5 * time.Second,
		}
		g.Go(func() error {
			log.WithField("address", srv.Addr).Info("Serving metrics")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			select {
			case <-done:
			case <-gctx.Done():
			}
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	err := g.Wait()
	return summary, err
}

func metricsMux(m *metrics.Harvest) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	return mux
}

// storedToken returns the token saved for profile, or "" when the
// credential stores are unavailable or hold nothing
func storedToken(profile string) string {
	manager, err := auth.NewManager()
	if err != nil {
		logger.GetLogger().WithError(err).Debug("Credential stores unavailable")
		return ""
	}
	return manager.Token(profile)
}
