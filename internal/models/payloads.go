package models

// These structs define the JSON payloads exchanged over the inbound and
// notification queues.

// InboundMessage is the body of a message on the source queue.
type InboundMessage struct {
	ApplicationJSONDocumentSummaryKey string `json:"applicationJSONDocumentSummaryKey"`
	RegeneratePdf                     bool   `json:"regeneratePdf,omitempty"`
}

// Notification is sent downstream once a summary PDF has been stored.
type Notification struct {
	ApplicationPDFDocumentSummaryKey  string `json:"applicationPDFDocumentSummaryKey"`
	ApplicationJSONDocumentSummaryKey string `json:"applicationJSONDocumentSummaryKey"`
	ApplicationCRN                    string `json:"applicationCRN"`
}

// GCSEvent is the payload of a storage object finalize event.
type GCSEvent struct {
	Bucket      string `json:"bucket"`
	Name        string `json:"name"`
	ContentType string `json:"contentType,omitempty"`
}
