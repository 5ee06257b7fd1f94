package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/GoogleCloudPlatform/functions-framework-go/funcframework"
	"github.com/GoogleCloudPlatform/functions-framework-go/functions"
	cloudevents "github.com/cloudevents/sdk-go/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/viper"

	"github.com/Lllllllleong/applicationsummaryflow/internal/models"
	"github.com/Lllllllleong/applicationsummaryflow/internal/platform/config"
	"github.com/Lllllllleong/applicationsummaryflow/internal/platform/logging"
	"github.com/Lllllllleong/applicationsummaryflow/internal/services"
)

var (
	pipeline *services.Runtime
	once     sync.Once
	initErr  error
)

func init() {
	logging.Setup(os.Stdout, os.Getenv("LOG_LEVEL"))

	// Storage finalize events on the document bucket arrive here.
	functions.CloudEvent("GenerateApplicationSummary", generateApplicationSummary)
}

// main serves the function locally; on Cloud Functions the platform invokes
// the registered handler directly.
func main() {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	if err := funcframework.Start(port); err != nil {
		slog.Error("Functions framework stopped", "error", err)
		os.Exit(1)
	}
}

func generateApplicationSummary(ctx context.Context, e cloudevents.Event) error {
	once.Do(func() {
		cfg, err := config.LoadForEvents(viper.New())
		if err != nil {
			initErr = err
			return
		}
		// Metrics are not scraped from a function instance.
		pipeline, initErr = services.Bootstrap(context.Background(), cfg, prometheus.NewRegistry(), false)
	})
	if initErr != nil {
		slog.Error("Critical error during function initialization", "error", initErr)
		return initErr
	}

	var gcsEvent models.GCSEvent
	if err := json.Unmarshal(e.Data(), &gcsEvent); err != nil {
		slog.Error("Failed to unmarshal event data", "error", err, "data", string(e.Data()))
		return fmt.Errorf("json.Unmarshal: %w", err)
	}

	return pipeline.Function.HandleObjectEvent(ctx, gcsEvent)
}
