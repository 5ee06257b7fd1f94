package services

import (
	"context"

	"github.com/Lllllllleong/applicationsummaryflow/internal/models"
)

// Tracker stores the processing status of each source document. Tracker
// failures are logged and never fail a message.
type Tracker interface {
	Record(ctx context.Context, rec models.ProcessingRecord) error
}

// NopTracker discards every record.
type NopTracker struct{}

func (NopTracker) Record(context.Context, models.ProcessingRecord) error { return nil }
