/**
 * doclab - document processing playground.
 *
 * Subcommands: serve (HTTP API), worker (async job consumer), process
 * (one-shot CLI run), models (cache bookkeeping).
 */

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/doclab/doclab/internal/api"
	"github.com/doclab/doclab/internal/config"
	"github.com/doclab/doclab/internal/engine"
	"github.com/doclab/doclab/internal/janitor"
	"github.com/doclab/doclab/internal/jobs"
	"github.com/doclab/doclab/internal/logging"
	"github.com/doclab/doclab/internal/modelcache"
	"github.com/doclab/doclab/internal/options"
	"github.com/doclab/doclab/internal/pipeline"
	"github.com/doclab/doclab/internal/processor"
	"github.com/doclab/doclab/internal/result"
	"github.com/doclab/doclab/internal/storage"
)

const version = "0.1.0"

func main() {
	root := &cobra.Command{
		Use:           "doclab",
		Short:         "Document processing playground",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(serveCmd(), workerCmd(), processCmd(), modelsCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// bootstrap loads config and builds the shared service components.
type app struct {
	cfg      *config.Config
	logger   *zap.Logger
	engine   *engine.Client
	sessions *pipeline.SessionCache
	proc     *processor.Processor
	models   *modelcache.Manager
}

func bootstrap() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	eng := engine.NewClient(cfg.EngineURL, logger)
	configurator := pipeline.NewConfigurator(eng, cfg.NumThreads, logger)
	sessions, err := pipeline.NewSessionCache(configurator, cfg.SessionCacheSize)
	if err != nil {
		return nil, err
	}

	proc := processor.New(sessions, processor.Config{
		TempDir:         cfg.TempDir,
		MaxFileSize:     cfg.MaxFileSize,
		DownloadTimeout: 60 * time.Second,
	}, logger)

	return &app{
		cfg:      cfg,
		logger:   logger,
		engine:   eng,
		sessions: sessions,
		proc:     proc,
		models:   modelcache.NewManager(cfg.ModelsDir, eng, logger),
	}, nil
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := bootstrap()
			if err != nil {
				return err
			}
			defer a.logger.Sync()

			deps := api.Deps{
				Processor:     a.proc,
				Engine:        a.engine,
				Models:        a.models,
				Sessions:      a.sessions,
				Logger:        a.logger,
				MaxUploadSize: a.cfg.MaxFileSize,
				Version:       version,
			}

			var store *storage.JobStore
			if a.cfg.JobsEnabled() {
				enqueuer, err := jobs.NewEnqueuer(a.cfg.RedisURL, a.logger)
				if err != nil {
					return err
				}
				defer enqueuer.Close()

				pingCtx, cancelPing := context.WithTimeout(context.Background(), 5*time.Second)
				err = enqueuer.Ping(pingCtx)
				cancelPing()
				if err != nil {
					return err
				}

				store, err = storage.NewJobStore(a.cfg.DatabaseURL, a.logger)
				if err != nil {
					return err
				}
				defer store.Close()

				ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				err = store.EnsureSchema(ctx)
				cancel()
				if err != nil {
					return err
				}

				deps.Enqueuer = enqueuer
				deps.Store = store
			}

			j := janitor.New(a.cfg.TempDir, time.Duration(a.cfg.TempTTLMinutes)*time.Minute, a.logger)
			if err := j.Start(); err != nil {
				return err
			}
			defer j.Stop()

			srv := &http.Server{
				Addr:    a.cfg.ListenAddr,
				Handler: api.NewRouter(deps),
			}

			errCh := make(chan error, 1)
			go func() {
				a.logger.Info("listening", zap.String("addr", a.cfg.ListenAddr))
				errCh <- srv.ListenAndServe()
			}()

			stop := make(chan os.Signal, 1)
			signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

			select {
			case err := <-errCh:
				return err
			case sig := <-stop:
				a.logger.Info("shutting down", zap.String("signal", sig.String()))
			}

			ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()
			return srv.Shutdown(ctx)
		},
	}
}

func workerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "worker",
		Short: "Run the async job worker",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := bootstrap()
			if err != nil {
				return err
			}
			defer a.logger.Sync()

			if !a.cfg.JobsEnabled() {
				return fmt.Errorf("REDIS_URL and DATABASE_URL must be configured for the worker")
			}

			store, err := storage.NewJobStore(a.cfg.DatabaseURL, a.logger)
			if err != nil {
				return err
			}
			defer store.Close()

			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			err = store.EnsureSchema(ctx)
			cancel()
			if err != nil {
				return err
			}

			w, err := jobs.NewWorker(jobs.WorkerConfig{
				RedisURL:    a.cfg.RedisURL,
				Concurrency: a.cfg.WorkerConcurrency,
				JobTimeout:  time.Duration(a.cfg.ProcessingTimeout) * time.Second,
			}, a.proc, store, a.logger)
			if err != nil {
				return err
			}

			stop := make(chan os.Signal, 1)
			signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
			go func() {
				<-stop
				w.Shutdown()
			}()

			return w.Run()
		},
	}
}

func processCmd() *cobra.Command {
	var (
		output     string
		ocr        bool
		ocrLibrary string
	)

	cmd := &cobra.Command{
		Use:   "process FILE",
		Short: "Process a single document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := bootstrap()
			if err != nil {
				return err
			}
			defer a.logger.Sync()

			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}

			opts := options.Defaults()
			opts.OutputFormat = options.OutputFormat(output)
			opts.OCREnabled = ocr
			if ocrLibrary != "" {
				opts.OCRLibrary = options.OCRLibrary(ocrLibrary)
				opts.OCRLanguages = []string{options.DefaultLanguageFor(opts.OCRLibrary)}
			}

			res := a.proc.Process(cmd.Context(), processor.Source{
				Filename: args[0],
				Data:     data,
			}, opts)

			if !res.Success {
				return fmt.Errorf("processing failed: %s", res.Error)
			}

			switch opts.OutputFormat {
			case options.FormatMarkdown:
				fmt.Println(res.Markdown)
			case options.FormatJSON:
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(res.JSONData)
			case options.FormatSummary:
				printSummary(res)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&output, "output", "markdown", "output format: markdown, json, or summary")
	cmd.Flags().BoolVar(&ocr, "ocr", true, "enable OCR")
	cmd.Flags().StringVar(&ocrLibrary, "ocr-library", "", "OCR library: rapidocr, easyocr, or tesseract")
	return cmd
}

func printSummary(res *result.ProcessingResult) {
	fmt.Printf("pages:    %d\n", res.Stats.NumPages)
	fmt.Printf("tables:   %d\n", res.Stats.NumTables)
	fmt.Printf("figures:  %d\n", res.Stats.NumFigures)
	fmt.Printf("chunks:   %d\n", res.Stats.NumChunks)
	fmt.Printf("tokens:   %d\n", res.Stats.TotalTokens)
	fmt.Printf("pipeline: %s\n", res.Stats.PipelineUsed)
	if res.Stats.OCRLibraryUsed != "" {
		fmt.Printf("ocr:      %s\n", res.Stats.OCRLibraryUsed)
	}
	if res.Timing != nil {
		fmt.Println(res.Timing.FormatBadge())
	}
}

func modelsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "models",
		Short: "Model cache bookkeeping",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "status",
			Short: "Show model download status",
			RunE: func(cmd *cobra.Command, args []string) error {
				a, err := bootstrap()
				if err != nil {
					return err
				}
				defer a.logger.Sync()

				for _, s := range a.models.Status() {
					mark := " "
					if s.Downloaded {
						mark = "x"
					}
					req := ""
					if s.Required {
						req = " (required)"
					}
					fmt.Printf("[%s] %-20s %5d MB%s\n", mark, s.ID, s.SizeMB, req)
				}
				return nil
			},
		},
		&cobra.Command{
			Use:   "download [MODEL]",
			Short: "Download one model, or all required models",
			Args:  cobra.MaximumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				a, err := bootstrap()
				if err != nil {
					return err
				}
				defer a.logger.Sync()

				if len(args) == 1 {
					return a.models.Download(cmd.Context(), args[0])
				}
				return a.models.DownloadRequired(cmd.Context())
			},
		},
		&cobra.Command{
			Use:   "clear",
			Short: "Clear the model cache",
			RunE: func(cmd *cobra.Command, args []string) error {
				a, err := bootstrap()
				if err != nil {
					return err
				}
				defer a.logger.Sync()
				return a.models.Clear()
			},
		},
		&cobra.Command{
			Use:   "disk-usage",
			Short: "Show model cache disk usage",
			RunE: func(cmd *cobra.Command, args []string) error {
				a, err := bootstrap()
				if err != nil {
					return err
				}
				defer a.logger.Sync()

				usage, err := a.models.Usage()
				if err != nil {
					return err
				}
				fmt.Printf("total:       %s\n", formatBytes(usage.TotalBytes))
				fmt.Printf("huggingface: %s\n", formatBytes(usage.HuggingFaceBytes))
				fmt.Printf("easyocr:     %s\n", formatBytes(usage.EasyOCRBytes))
				return nil
			},
		},
	)
	return cmd
}

func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
