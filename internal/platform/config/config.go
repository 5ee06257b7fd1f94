// Package config loads the pipeline configuration from the environment and
// command-line flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Keys understood by Load. Environment variables use the upper-case form.
const (
	KeySourceQueue         = "source_queue"
	KeyNotifyQueue         = "notify_queue"
	KeyDocumentBucket      = "document_bucket"
	KeyRedisURL            = "redis_url"
	KeyConsumerGroup       = "queue_consumer_group"
	KeyConsumerName        = "queue_consumer_name"
	KeyVisibilityTimeout   = "queue_visibility_timeout"
	KeyPollInterval        = "poll_interval"
	KeyBatchSize           = "batch_size"
	KeyConcurrency         = "concurrency"
	KeyMessageTimeout      = "message_timeout"
	KeyWorkDir             = "work_dir"
	KeyStyleFile           = "style_file"
	KeyProjectID           = "project_id"
	KeyFirestoreCollection = "firestore_collection"
	KeyNotifyMode          = "notify_mode"
	KeyWorkflowID          = "workflow_id"
	KeyWorkflowLocation    = "workflow_location"
	KeyMetricsAddr         = "metrics_addr"
	KeyOTLPEndpoint        = "otel_exporter_otlp_endpoint"
	KeyLogLevel            = "log_level"
)

// Notification delivery modes.
const (
	NotifyQueue    = "queue"
	NotifyWorkflow = "workflow"
)

// Config is the full runtime configuration.
type Config struct {
	SourceQueue    string
	NotifyQueue    string
	DocumentBucket string

	RedisURL          string
	ConsumerGroup     string
	ConsumerName      string
	VisibilityTimeout time.Duration

	PollInterval   time.Duration
	BatchSize      int
	Concurrency    int
	MessageTimeout time.Duration

	WorkDir   string
	StyleFile string

	// ProjectID enables the Firestore status tracker when set.
	ProjectID           string
	FirestoreCollection string

	NotifyMode       string
	WorkflowID       string
	WorkflowLocation string

	MetricsAddr  string
	OTLPEndpoint string
	LogLevel     string
}

// SetDefaults registers default values on v.
func SetDefaults(v *viper.Viper) {
	host, _ := os.Hostname()
	if host == "" {
		host = "application-summary"
	}
	v.SetDefault(KeyRedisURL, "redis://localhost:6379/0")
	v.SetDefault(KeyConsumerGroup, "application-summary")
	v.SetDefault(KeyConsumerName, host)
	v.SetDefault(KeyVisibilityTimeout, 5*time.Minute)
	v.SetDefault(KeyPollInterval, 30*time.Second)
	v.SetDefault(KeyBatchSize, 10)
	v.SetDefault(KeyConcurrency, 4)
	v.SetDefault(KeyMessageTimeout, 2*time.Minute)
	v.SetDefault(KeyWorkDir, filepath.Join(os.TempDir(), "application-summary"))
	v.SetDefault(KeyFirestoreCollection, "applicationSummaries")
	v.SetDefault(KeyNotifyMode, NotifyQueue)
	v.SetDefault(KeyWorkflowLocation, "europe-west2")
	v.SetDefault(KeyMetricsAddr, ":9090")
	v.SetDefault(KeyLogLevel, "info")
}

// Load reads the configuration of the queue consumer from v, which is
// expected to have flags bound already. Environment variables are enabled here.
func Load(v *viper.Viper) (Config, error) {
	cfg := read(v)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadForEvents reads the configuration of the storage event function, which
// does not consume the source queue.
func LoadForEvents(v *viper.Viper) (Config, error) {
	cfg := read(v)
	if err := cfg.validate(false); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func read(v *viper.Viper) Config {
	SetDefaults(v)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	return Config{
		SourceQueue:         v.GetString(KeySourceQueue),
		NotifyQueue:         v.GetString(KeyNotifyQueue),
		DocumentBucket:      v.GetString(KeyDocumentBucket),
		RedisURL:            v.GetString(KeyRedisURL),
		ConsumerGroup:       v.GetString(KeyConsumerGroup),
		ConsumerName:        v.GetString(KeyConsumerName),
		VisibilityTimeout:   v.GetDuration(KeyVisibilityTimeout),
		PollInterval:        v.GetDuration(KeyPollInterval),
		BatchSize:           v.GetInt(KeyBatchSize),
		Concurrency:         v.GetInt(KeyConcurrency),
		MessageTimeout:      v.GetDuration(KeyMessageTimeout),
		WorkDir:             v.GetString(KeyWorkDir),
		StyleFile:           v.GetString(KeyStyleFile),
		ProjectID:           v.GetString(KeyProjectID),
		FirestoreCollection: v.GetString(KeyFirestoreCollection),
		NotifyMode:          strings.ToLower(v.GetString(KeyNotifyMode)),
		WorkflowID:          v.GetString(KeyWorkflowID),
		WorkflowLocation:    v.GetString(KeyWorkflowLocation),
		MetricsAddr:         v.GetString(KeyMetricsAddr),
		OTLPEndpoint:        v.GetString(KeyOTLPEndpoint),
		LogLevel:            v.GetString(KeyLogLevel),
	}
}

// Validate reports every missing or inconsistent setting at once.
func (c Config) Validate() error {
	return c.validate(true)
}

func (c Config) validate(needSourceQueue bool) error {
	var errs []error
	if c.DocumentBucket == "" {
		errs = append(errs, errors.New("DOCUMENT_BUCKET environment variable must be set"))
	}
	if needSourceQueue && c.SourceQueue == "" {
		errs = append(errs, errors.New("SOURCE_QUEUE environment variable must be set"))
	}
	switch c.NotifyMode {
	case NotifyQueue:
		if c.NotifyQueue == "" {
			errs = append(errs, errors.New("NOTIFY_QUEUE environment variable must be set"))
		}
	case NotifyWorkflow:
		if c.ProjectID == "" || c.WorkflowID == "" {
			errs = append(errs, errors.New("PROJECT_ID and WORKFLOW_ID must be set when NOTIFY_MODE=workflow"))
		}
	default:
		errs = append(errs, fmt.Errorf("NOTIFY_MODE must be %q or %q, got %q", NotifyQueue, NotifyWorkflow, c.NotifyMode))
	}
	if c.BatchSize < 1 {
		errs = append(errs, fmt.Errorf("BATCH_SIZE must be at least 1, got %d", c.BatchSize))
	}
	if c.Concurrency < 1 {
		errs = append(errs, fmt.Errorf("CONCURRENCY must be at least 1, got %d", c.Concurrency))
	}
	if c.PollInterval <= 0 {
		errs = append(errs, fmt.Errorf("POLL_INTERVAL must be positive, got %s", c.PollInterval))
	}
	if c.MessageTimeout < 0 {
		errs = append(errs, fmt.Errorf("MESSAGE_TIMEOUT must not be negative, got %s", c.MessageTimeout))
	}
	return errors.Join(errs...)
}
