package models

import "time"

// Processing statuses recorded for a source document as it moves through the
// pipeline.
const (
	StatusReceived      = "RECEIVED"
	StatusFetched       = "FETCHED"
	StatusRendered      = "RENDERED"
	StatusUploaded      = "UPLOADED"
	StatusNotified      = "NOTIFIED"
	StatusSplitRendered = "SPLIT_RENDERED"
	StatusSplitUploaded = "SPLIT_UPLOADED"
	StatusSplitNotified = "SPLIT_NOTIFIED"
	StatusAcked         = "ACKED"
	StatusFailed        = "FAILED"
)

// ProcessingRecord is the status document kept in Firestore for each source
// application JSON. It is overwritten on every attempt so a redelivered message
// simply moves the record through the statuses again.
type ProcessingRecord struct {
	SourceKey     string    `firestore:"sourceKey,omitempty"`
	CaseReference string    `firestore:"caseReference,omitempty"`
	Status        string    `firestore:"status,omitempty"`
	ErrorDetails  string    `firestore:"errorDetails,omitempty"`
	PDFKey        string    `firestore:"pdfKey,omitempty"`
	SplitPDFKey   string    `firestore:"splitPdfKey,omitempty"`
	PageCount     int       `firestore:"pageCount,omitempty"`
	AttemptID     string    `firestore:"attemptId,omitempty"` // For traceability
	UpdatedAt     time.Time `firestore:"updatedAt,omitempty"`
}
