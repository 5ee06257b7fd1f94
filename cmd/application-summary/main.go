package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Lllllllleong/applicationsummaryflow/internal/platform/config"
	"github.com/Lllllllleong/applicationsummaryflow/internal/platform/logging"
	"github.com/Lllllllleong/applicationsummaryflow/internal/platform/tracing"
	"github.com/Lllllllleong/applicationsummaryflow/internal/render"
	"github.com/Lllllllleong/applicationsummaryflow/internal/services"
)

const serviceName = "application-summary"

var rootCmd = &cobra.Command{
	Use:   serviceName,
	Short: "Render application summary PDFs",
	Long: `application-summary turns application JSON documents into PDF summaries.

serve consumes the source queue, renders each referenced document, stores the
PDF next to it and notifies downstream. render converts a local file.`,
	SilenceUsage: true,
}

func main() {
	cobra.OnInitialize(initConfig)
	addPersistentFlags()
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(renderCmd())
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func initConfig() {
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
	logging.Setup(os.Stdout, viper.GetString(config.KeyLogLevel))
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("style-file", "", "YAML file overriding the summary layout")
	_ = viper.BindPFlag(config.KeyLogLevel, rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag(config.KeyStyleFile, rootCmd.PersistentFlags().Lookup("style-file"))
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Consume the source queue until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(viper.GetViper())
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg)
		},
	}
	flags := cmd.Flags()
	flags.String("source-queue", "", "queue of source document references")
	flags.String("notify-queue", "", "queue notifications are published to")
	flags.String("document-bucket", "", "bucket holding source documents and summaries")
	flags.Int("batch-size", 10, "messages received per poll")
	flags.Int("concurrency", 4, "messages processed at once")
	flags.Duration("poll-interval", 30*time.Second, "time between polls")
	flags.String("metrics-addr", ":9090", "address of the /metrics endpoint, empty to disable")
	for key, flag := range map[string]string{
		config.KeySourceQueue:    "source-queue",
		config.KeyNotifyQueue:    "notify-queue",
		config.KeyDocumentBucket: "document-bucket",
		config.KeyBatchSize:      "batch-size",
		config.KeyConcurrency:    "concurrency",
		config.KeyPollInterval:   "poll-interval",
		config.KeyMetricsAddr:    "metrics-addr",
	} {
		_ = viper.BindPFlag(key, flags.Lookup(flag))
	}
	return cmd
}

func serve(ctx context.Context, cfg config.Config) error {
	shutdownTracing, err := tracing.Setup(ctx, tracing.Config{ServiceName: serviceName, Endpoint: cfg.OTLPEndpoint})
	if err != nil {
		return err
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			slog.Warn("Failed to flush traces", "error", err)
		}
	}()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	rt, err := services.Bootstrap(ctx, cfg, reg, true)
	if err != nil {
		return err
	}
	defer rt.Close()

	if cfg.MetricsAddr != "" {
		srv := metricsServer(cfg.MetricsAddr, reg)
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("Metrics server stopped", "error", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	return rt.Poller.Run(ctx)
}

func metricsServer(addr string, reg *prometheus.Registry) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
}

func renderCmd() *cobra.Command {
	var in, out string
	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render a local application JSON file to PDF",
		RunE: func(cmd *cobra.Command, args []string) error {
			style, err := render.LoadStyle(viper.GetString(config.KeyStyleFile))
			if err != nil {
				return err
			}
			renderer, err := render.New(style)
			if err != nil {
				return err
			}
			data, err := os.ReadFile(in)
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", in, err)
			}
			doc, err := services.RenderLocal(renderer, data)
			if err != nil {
				return err
			}
			if err := os.WriteFile(out, doc.Bytes, 0o644); err != nil {
				return fmt.Errorf("failed to write %s: %w", out, err)
			}
			slog.Info("Summary written.", "path", out, "pageCount", doc.PageCount)
			return nil
		},
	}
	cmd.Flags().StringVar(&in, "in", "", "application JSON file")
	cmd.Flags().StringVar(&out, "out", "application-summary.pdf", "PDF to write")
	_ = cmd.MarkFlagRequired("in")
	return cmd
}
