package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/Lllllllleong/applicationsummaryflow/internal/models"
	"github.com/Lllllllleong/applicationsummaryflow/internal/objectstore"
	"github.com/Lllllllleong/applicationsummaryflow/internal/platform/metrics"
	"github.com/Lllllllleong/applicationsummaryflow/internal/platform/tracing"
	"github.com/Lllllllleong/applicationsummaryflow/internal/queue"
	"github.com/Lllllllleong/applicationsummaryflow/internal/render"
	"github.com/Lllllllleong/applicationsummaryflow/internal/split"
)

const (
	jsonContentType = "application/json"
	pdfContentType  = "application/pdf"
)

type SummaryConfig struct {
	DocumentBucket string
	SourceQueue    string
	WorkDir        string
}

// SummaryDeps are the collaborators of a SummaryFunction. Tracker and Metrics
// may be nil.
type SummaryDeps struct {
	Store    objectstore.Store
	Queue    queue.Queue
	Notifier Notifier
	Renderer *render.Renderer
	Tracker  Tracker
	Metrics  *metrics.Metrics
}

// SummaryFunction turns one source queue message into a stored summary PDF,
// a downstream notification and, for funeral cases, the split documents.
type SummaryFunction struct {
	store    objectstore.Store
	queue    queue.Queue
	notifier Notifier
	renderer *render.Renderer
	tracker  Tracker
	metrics  *metrics.Metrics
	stager   *stager
	config   SummaryConfig
}

// Result describes the outputs of one successful attempt.
type Result struct {
	SourceKey   string
	PDFKey      string
	PageCount   int
	Notify      NotifyOutcome
	SplitKey    string
	SplitPDFKey string
}

func NewSummaryFunction(config SummaryConfig, deps SummaryDeps) (*SummaryFunction, error) {
	if config.DocumentBucket == "" {
		return nil, fmt.Errorf("document bucket must be set")
	}
	if deps.Store == nil || deps.Notifier == nil || deps.Renderer == nil {
		return nil, fmt.Errorf("summary function needs a store, a notifier and a renderer")
	}
	tracker := deps.Tracker
	if tracker == nil {
		tracker = NopTracker{}
	}
	st, err := newStager(config.WorkDir)
	if err != nil {
		return nil, err
	}
	return &SummaryFunction{
		store:    deps.Store,
		queue:    deps.Queue,
		notifier: deps.Notifier,
		renderer: deps.Renderer,
		tracker:  tracker,
		metrics:  deps.Metrics,
		stager:   st,
		config:   config,
	}, nil
}

// Process runs the whole pipeline for msg and deletes it from the source
// queue once every step has succeeded. On error the message is left alone so
// the queue redelivers it.
func (f *SummaryFunction) Process(ctx context.Context, msg queue.Message) error {
	attemptID := uuid.NewString()
	logCtx := slog.With("messageId", msg.ID, "attemptId", attemptID)
	logCtx.Info("Processing source queue message.")

	req, err := ParseInboundMessage(msg.Body)
	if err != nil {
		logCtx.Error("Rejected message body", "error", err)
		f.metrics.ObserveMessage(metrics.OutcomeInvalid)
		return err
	}

	rec := &models.ProcessingRecord{SourceKey: req.ApplicationJSONDocumentSummaryKey, AttemptID: attemptID}
	res, err := f.Generate(ctx, logCtx, req, rec)
	if err != nil {
		return err
	}
	logCtx = logCtx.With("sourceKey", res.SourceKey)

	err = f.stage(ctx, "delete", func(ctx context.Context) error {
		if f.queue == nil {
			return errors.New("no source queue configured")
		}
		return f.queue.Delete(ctx, f.config.SourceQueue, msg.ReceiptHandle)
	})
	if err != nil {
		return f.handleError(ctx, logCtx, rec, "Failed to delete source message", &DeleteError{ReceiptHandle: msg.ReceiptHandle, Err: err})
	}
	f.record(ctx, logCtx, rec, models.StatusAcked)
	f.metrics.ObserveMessage(metrics.OutcomeAcked)
	logCtx.Info("Message processed and acknowledged.", "pdfKey", res.PDFKey, "notify", res.Notify)
	return nil
}

// Generate fetches, renders, uploads and notifies for one source document
// without touching the source queue. rec is updated as each state is reached.
func (f *SummaryFunction) Generate(ctx context.Context, logCtx *slog.Logger, req models.InboundMessage, rec *models.ProcessingRecord) (*Result, error) {
	key := req.ApplicationJSONDocumentSummaryKey
	logCtx = logCtx.With("sourceKey", key)
	res := &Result{SourceKey: key}
	f.record(ctx, logCtx, rec, models.StatusReceived)

	doc, err := f.fetch(ctx, key)
	if err != nil {
		return nil, f.handleError(ctx, logCtx, rec, "Failed to load source document", err)
	}
	rec.CaseReference = doc.Meta.CaseReference
	logCtx = logCtx.With("caseReference", doc.Meta.CaseReference)
	f.record(ctx, logCtx, rec, models.StatusFetched)

	rendered, err := f.render(ctx, doc)
	if err != nil {
		return nil, f.handleError(ctx, logCtx, rec, "Failed to render summary", err)
	}
	rec.PageCount = rendered.PageCount
	f.record(ctx, logCtx, rec, models.StatusRendered)

	res.PDFKey = OutputKey(doc.Meta.CaseReference)
	res.PageCount = rendered.PageCount
	if err := f.upload(ctx, res.PDFKey, pdfContentType, rendered.Bytes); err != nil {
		return nil, f.handleError(ctx, logCtx, rec, "Failed to upload summary", err)
	}
	rec.PDFKey = res.PDFKey
	f.record(ctx, logCtx, rec, models.StatusUploaded)
	logCtx.Info("Summary uploaded.", "pdfKey", res.PDFKey, "pageCount", res.PageCount)

	note := models.Notification{
		ApplicationPDFDocumentSummaryKey:  res.PDFKey,
		ApplicationJSONDocumentSummaryKey: key,
		ApplicationCRN:                    doc.Meta.CaseReference,
	}
	res.Notify, err = f.notify(ctx, req, note)
	if err != nil {
		return nil, f.handleError(ctx, logCtx, rec, "Failed to notify downstream", err)
	}
	f.record(ctx, logCtx, rec, models.StatusNotified)

	if split.Applies(doc) {
		if err := f.generateSplit(ctx, logCtx, req, doc, rec, res); err != nil {
			return nil, err
		}
	}
	return res, nil
}

// generateSplit produces the funeral copy of doc. The split document is
// rendered before anything of it is uploaded.
func (f *SummaryFunction) generateSplit(ctx context.Context, logCtx *slog.Logger, req models.InboundMessage, doc *models.Document, rec *models.ProcessingRecord, res *Result) error {
	splitDoc := split.ForFuneral(doc)
	res.SplitKey = split.DeriveKey(res.SourceKey)
	res.SplitPDFKey = OutputKey(splitDoc.Meta.CaseReference)
	logCtx = logCtx.With("splitKey", res.SplitKey, "funeralReference", splitDoc.Meta.CaseReference)

	rendered, err := f.render(ctx, splitDoc)
	if err != nil {
		return f.handleError(ctx, logCtx, rec, "Failed to render split summary", err)
	}
	f.record(ctx, logCtx, rec, models.StatusSplitRendered)

	splitJSON, err := json.Marshal(splitDoc)
	if err != nil {
		return f.handleError(ctx, logCtx, rec, "Failed to encode split document", err)
	}
	if err := f.upload(ctx, res.SplitKey, jsonContentType, splitJSON); err != nil {
		return f.handleError(ctx, logCtx, rec, "Failed to upload split document", err)
	}
	if err := f.upload(ctx, res.SplitPDFKey, pdfContentType, rendered.Bytes); err != nil {
		return f.handleError(ctx, logCtx, rec, "Failed to upload split summary", err)
	}
	rec.SplitPDFKey = res.SplitPDFKey
	f.record(ctx, logCtx, rec, models.StatusSplitUploaded)

	note := models.Notification{
		ApplicationPDFDocumentSummaryKey:  res.SplitPDFKey,
		ApplicationJSONDocumentSummaryKey: res.SplitKey,
		ApplicationCRN:                    splitDoc.Meta.CaseReference,
	}
	if _, err := f.notify(ctx, req, note); err != nil {
		return f.handleError(ctx, logCtx, rec, "Failed to notify downstream of split summary", err)
	}
	f.record(ctx, logCtx, rec, models.StatusSplitNotified)
	logCtx.Info("Split summary uploaded.", "splitPdfKey", res.SplitPDFKey, "pageCount", rendered.PageCount)
	return nil
}

func (f *SummaryFunction) fetch(ctx context.Context, key string) (*models.Document, error) {
	var doc *models.Document
	err := f.stage(ctx, "fetch", func(ctx context.Context) error {
		obj, err := f.store.Get(ctx, f.config.DocumentBucket, key)
		if err != nil {
			return &FetchError{Key: key, Err: err}
		}
		if !isJSON(obj.ContentType) {
			return &UnsupportedContentTypeError{Key: key, ContentType: obj.ContentType}
		}
		doc, err = models.DecodeDocument(obj.Body)
		return err
	})
	return doc, err
}

func isJSON(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	return err == nil && mediaType == jsonContentType
}

func (f *SummaryFunction) render(ctx context.Context, doc *models.Document) (*render.RenderedDocument, error) {
	var out *render.RenderedDocument
	err := f.stage(ctx, "render", func(ctx context.Context) error {
		var err error
		out, err = f.renderer.Render(doc)
		return err
	})
	if err == nil {
		f.metrics.ObservePages(out.PageCount)
	}
	return out, err
}

func (f *SummaryFunction) upload(ctx context.Context, key, contentType string, data []byte) error {
	return f.stage(ctx, "upload", func(ctx context.Context) error {
		if err := f.stager.upload(ctx, f.store, f.config.DocumentBucket, key, contentType, data); err != nil {
			return &UploadError{Key: key, Err: err}
		}
		return nil
	})
}

// notify sends note unless the message only asked for the PDF to be
// regenerated.
func (f *SummaryFunction) notify(ctx context.Context, req models.InboundMessage, note models.Notification) (NotifyOutcome, error) {
	if req.RegeneratePdf {
		return NotifySkipped, nil
	}
	err := f.stage(ctx, "notify", func(ctx context.Context) error {
		if err := f.notifier.Notify(ctx, note); err != nil {
			return &NotifyError{PDFKey: note.ApplicationPDFDocumentSummaryKey, Err: err}
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return NotifySent, nil
}

// stage runs fn in its own span and records its duration.
func (f *SummaryFunction) stage(ctx context.Context, name string, fn func(context.Context) error) error {
	start := time.Now()
	ctx, span := tracing.Tracer().Start(ctx, "summary."+name)
	defer span.End()
	span.SetAttributes(attribute.String("stage", name))

	err := fn(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	f.metrics.ObserveStage(name, start)
	return err
}

func (f *SummaryFunction) record(ctx context.Context, logCtx *slog.Logger, rec *models.ProcessingRecord, status string) {
	rec.Status = status
	if err := f.tracker.Record(ctx, *rec); err != nil {
		logCtx.Warn("Failed to record processing status", "status", status, "error", err)
	}
}

// handleError logs err, marks the record FAILED and returns err unchanged so
// callers can still match it with errors.As.
func (f *SummaryFunction) handleError(ctx context.Context, logCtx *slog.Logger, rec *models.ProcessingRecord, message string, err error) error {
	logCtx.Error(message, "error", err, "status", rec.Status)
	rec.ErrorDetails = fmt.Sprintf("%s: %v", message, err)
	f.record(ctx, logCtx, rec, models.StatusFailed)
	f.metrics.ObserveMessage(metrics.OutcomeFailed)
	return err
}

// RenderLocal renders a source document held in memory. It backs the render
// command and shares the renderer configuration of the pipeline.
func RenderLocal(r *render.Renderer, data []byte) (*render.RenderedDocument, error) {
	doc, err := models.DecodeDocument(bytes.TrimSpace(data))
	if err != nil {
		return nil, err
	}
	return r.Render(doc)
}
