package services

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/Lllllllleong/applicationsummaryflow/internal/models"
	"github.com/Lllllllleong/applicationsummaryflow/internal/split"
)

// HandleObjectEvent runs the pipeline for a source document announced by a
// storage finalize event. There is no message to acknowledge; a returned
// error makes the event source retry. Objects that are not source documents,
// including the summaries and split copies this pipeline writes, are ignored.
func (f *SummaryFunction) HandleObjectEvent(ctx context.Context, e models.GCSEvent) error {
	logCtx := slog.With("gcsBucket", e.Bucket, "gcsObject", e.Name)

	if e.Bucket != f.config.DocumentBucket {
		logCtx.Info("Ignoring object from another bucket.")
		return nil
	}
	if err := ValidateSourceKey(e.Name); err != nil || split.IsDerivedKey(e.Name) {
		logCtx.Debug("Ignoring object that is not a source document.")
		return nil
	}

	attemptID := uuid.NewString()
	rec := &models.ProcessingRecord{SourceKey: e.Name, AttemptID: attemptID}
	req := models.InboundMessage{ApplicationJSONDocumentSummaryKey: e.Name}
	res, err := f.Generate(ctx, logCtx.With("attemptId", attemptID), req, rec)
	if err != nil {
		return err
	}
	f.record(ctx, logCtx, rec, models.StatusAcked)
	logCtx.Info("Object event processed.", "pdfKey", res.PDFKey, "splitPdfKey", res.SplitPDFKey)
	return nil
}
