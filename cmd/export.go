package cmd

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/ganpare/densai/internal/export"
	"github.com/spf13/cobra"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write report PDFs and bulk exports to the output directory",
}

var exportBulkCmd = &cobra.Command{
	Use:   "bulk",
	Short: "Bundle one bank's approved reports of a day into a PDF and a workbook",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, app *App) error {
			result, err := app.ExportService.BulkExport(ctx, export.SystemActor, export.BulkExportDTO{
				BankCode: exportBank,
				Date:     exportDate,
			})
			if err != nil {
				return err
			}
			fmt.Printf("%d reports written to %s and %s\n", result.Count, result.PDF.Path, result.Workbook.Path)
			return nil
		})
	},
}

var exportReportCmd = &cobra.Command{
	Use:   "report [report-id]",
	Short: "Write the PDF of one approved report",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, app *App) error {
			file, err := app.ExportService.ExportReportPDF(ctx, export.SystemActor, args[0])
			if err != nil {
				return err
			}
			fmt.Println(file.Path)
			return nil
		})
	},
}

// Backfill writes individual PDFs for every report of a bank approved on a
// day, using the same worker pool as the server.
var exportBackfillCmd = &cobra.Command{
	Use:   "backfill",
	Short: "Write individual PDFs for every report of a bank approved on a day",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, app *App) error {
			return backfill(ctx, app)
		})
	},
}

var (
	exportBank   string
	exportDate   string
	maxWorkers   int
	jobQueueSize int
)

func backfill(ctx context.Context, app *App) error {
	dto := export.BulkExportDTO{BankCode: exportBank, Date: exportDate}
	dto.Normalize()
	if appErr := dto.Validate(); appErr != nil {
		return appErr
	}
	from, err := dto.Day(app.Location)
	if err != nil {
		return err
	}

	reports, err := app.ReportService.ListApprovedForBank(ctx, export.SystemActor, dto.BankCode, from, from.AddDate(0, 0, 1))
	if err != nil {
		return err
	}

	lg := app.Logger
	poolConfig := export.PoolConfig{
		MaxWorkers:   getIntFlag(maxWorkers, app.Config.Export.Workers),
		JobQueueSize: getIntFlag(jobQueueSize, max(app.Config.Export.QueueSize, len(reports))),
	}
	lg.Info("starting pdf backfill",
		"bank_code", dto.BankCode,
		"date", dto.Date,
		"reports", len(reports),
		"max_workers", poolConfig.MaxWorkers,
		"job_queue_size", poolConfig.JobQueueSize)

	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		failed int
	)
	pool := export.NewPool(poolConfig, func(job export.PDFJob) {
		defer wg.Done()
		jobCtx, cancel := context.WithTimeout(ctx, time.Minute)
		defer cancel()
		file, err := app.ExportService.ExportReportPDF(jobCtx, export.SystemActor, job.ReportID)
		if err != nil {
			lg.Error("backfill export failed", "report_id", job.ReportID, "error", err)
			mu.Lock()
			failed++
			mu.Unlock()
			return
		}
		lg.Info("backfill export written", "report_number", job.ReportNumber, "file", file.Name)
	}, lg)

	for _, rp := range reports {
		wg.Add(1)
		if err := pool.Enqueue(export.PDFJob{ReportID: rp.ID, ReportNumber: rp.ReportNumber}); err != nil {
			wg.Done()
			mu.Lock()
			failed++
			mu.Unlock()
		}
	}
	wg.Wait()
	pool.Shutdown()

	fmt.Printf("backfill complete: %d written, %d failed\n", len(reports)-failed, failed)
	if failed > 0 {
		return fmt.Errorf("%d exports failed", failed)
	}
	return nil
}

func withApp(run func(ctx context.Context, app *App) error) error {
	ctx := context.Background()
	cfg, err := loadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	app, err := newApp(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize dependencies: %w", err)
	}
	defer app.Close()
	return run(ctx, app)
}

func getIntFlag(flagValue, configValue int) int {
	if flagValue > 0 {
		return flagValue
	}
	return configValue
}

func init() {
	for _, c := range []*cobra.Command{exportBulkCmd, exportBackfillCmd} {
		c.Flags().StringVar(&exportBank, "bank", "", "financial institution code")
		c.Flags().StringVar(&exportDate, "date", time.Now().Format("2006-01-02"), "approval day, YYYY-MM-DD")
		_ = c.MarkFlagRequired("bank")
	}
	exportBackfillCmd.Flags().IntVar(&maxWorkers, "max-workers", 0, "Maximum number of workers (overrides config)")
	exportBackfillCmd.Flags().IntVar(&jobQueueSize, "job-queue-size", 0, "Job queue buffer size (overrides config)")

	exportCmd.AddCommand(exportBulkCmd)
	exportCmd.AddCommand(exportReportCmd)
	exportCmd.AddCommand(exportBackfillCmd)

	rootCmd.AddCommand(exportCmd)
}
