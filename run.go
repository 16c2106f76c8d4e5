package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"catalog-scraper/config"
	"catalog-scraper/extraction"
	"catalog-scraper/models"
	"catalog-scraper/scraper/catalog"
	"catalog-scraper/services"
	"catalog-scraper/storage"
	"catalog-scraper/utils"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Extract the full catalog in checkpointed batches",
	Long: "Signs in, navigates to the product list and keeps triggering lazy loads until the list stops growing. " +
		"Records are persisted as numbered batch files and consolidated into one JSON file at the end.",
	RunE: runExtraction,
}

var (
	runBatchSize  int
	runSettle     time.Duration
	runMaxItems   int
	runOutputDir  string
	runResumeDir  string
	runCSVPath    string
	runHeadless   bool
	runLogLevel   string
	runNoInsights bool
)

func init() {
	runCmd.Flags().IntVar(&runBatchSize, "batch-size", 0, "Records per checkpoint batch")
	runCmd.Flags().DurationVar(&runSettle, "settle", 0, "Wait after each load trigger")
	runCmd.Flags().IntVar(&runMaxItems, "max-items", 0, "Stop after this many records (0 keeps the configured ceiling)")
	runCmd.Flags().StringVarP(&runOutputDir, "output-dir", "o", "", "Directory for batch folders and the final file")
	runCmd.Flags().StringVar(&runResumeDir, "resume", "", "Continue an interrupted run from its batch folder")
	runCmd.Flags().StringVar(&runCSVPath, "csv", "", "Also export the final records as CSV to this path")
	runCmd.Flags().BoolVar(&runHeadless, "headless", true, "Run the browser without a window")
	runCmd.Flags().StringVar(&runLogLevel, "log-level", "", "debug, info, warn or error")
	runCmd.Flags().BoolVar(&runNoInsights, "no-insights", false, "Skip the insight report")

	rootCmd.AddCommand(runCmd)
}

// applyRunFlags overrides config values with flags the user actually set
func applyRunFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("batch-size") {
		cfg.BatchSize = runBatchSize
	}
	if flags.Changed("settle") {
		cfg.SettleInterval = runSettle
	}
	if flags.Changed("max-items") {
		cfg.MaxItems = runMaxItems
	}
	if flags.Changed("output-dir") {
		cfg.OutputDir = runOutputDir
	}
	if flags.Changed("csv") {
		cfg.CSVFilePath = runCSVPath
	}
	if flags.Changed("headless") {
		cfg.Headless = runHeadless
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = runLogLevel
	}
}

func runExtraction(cmd *cobra.Command, _ []string) error {
	// ================== Bootstrap ====================
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	applyRunFlags(cmd, cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := utils.NewLogger(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("Catalog Batch Extraction System")
	logger.Info("Batch size: %d | Settle: %s | Stall confirmations: %d | Retries: %d",
		cfg.BatchSize, cfg.SettleInterval, cfg.StallConfirmations, cfg.MaxTriggerRetries)

	// ================== Batch folder ====================
	timestamp := time.Now().Format("20060102_150405")
	batchDir := filepath.Join(cfg.OutputDir, "batch_data_"+timestamp)
	if runResumeDir != "" {
		batchDir = runResumeDir
	}

	store, err := storage.NewFileStore(batchDir, logger)
	if err != nil {
		return err
	}

	runID := uuid.NewString()
	var resume []*models.Batch
	if runResumeDir != "" {
		resume, err = store.ReadBatches(ctx)
		if err != nil {
			return fmt.Errorf("failed to read batches to resume from %s: %w", batchDir, err)
		}
		if len(resume) > 0 {
			runID = resume[0].Metadata.RunID
		}
		logger.Info("Resuming run %s from %d persisted batches", runID, len(resume))
	}

	// =================== PostgreSQL mirror (optional) ========================
	var mirror storage.RecordMirror
	if cfg.DatabaseURL != "" {
		pgWriter, err := storage.NewPostgresWriter(ctx, cfg.DatabaseURL, logger)
		if err != nil {
			return fmt.Errorf("cannot connect to PostgreSQL: %w", err)
		}
		defer pgWriter.Close()

		if err := pgWriter.CreateTables(ctx); err != nil {
			return fmt.Errorf("failed to create DB tables: %w", err)
		}
		mirror = pgWriter
	}

	// =============== Extraction ===================================
	browser := catalog.NewBrowser(cfg, logger)
	defer browser.Close()

	orch, err := extraction.NewOrchestrator(extraction.Deps{
		Positioner: browser,
		View:       browser,
		Store:      store,
		Mirror:     mirror,
	}, extraction.Options{
		BatchSize:          cfg.BatchSize,
		SettleInterval:     cfg.SettleInterval,
		StallConfirmations: cfg.StallConfirmations,
		MaxItems:           cfg.MaxItems,
		Call: extraction.CallPolicy{
			Timeout:    cfg.CallTimeout,
			MaxRetries: cfg.MaxTriggerRetries,
			Backoff:    cfg.SettleInterval,
		},
		SourceIdentifier: cfg.BaseURL,
		RunID:            runID,
		BatchDir:         batchDir,
		FinalPath:        filepath.Join(cfg.OutputDir, "all_products_"+timestamp+".json"),
		Resume:           resume,
	}, logger)
	if err != nil {
		return err
	}

	report, runErr := orch.Run(ctx)
	if report != nil {
		services.PrintRunSummary(os.Stdout, report)
	}
	if runErr != nil {
		return runErr
	}

	// ========= Post-processing ===========================
	batches, err := store.ReadBatches(context.WithoutCancel(ctx))
	if err != nil {
		return err
	}
	var records []*models.Record
	for _, b := range batches {
		records = append(records, b.Records...)
	}

	if cfg.CSVFilePath != "" {
		csvWriter := storage.NewCSVWriter(cfg.CSVFilePath, logger)
		if err := csvWriter.WriteRecords(records); err != nil {
			// Non-fatal: the JSON artifacts are already on disk
			logger.Error("Failed to write CSV: %v", err)
		}
	}

	if !runNoInsights {
		insights := services.NewInsightService(logger).Generate(records)
		services.PrintInsightReport(os.Stdout, insights)
	}

	return nil
}
