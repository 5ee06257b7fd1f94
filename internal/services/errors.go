package services

import "fmt"

// Errors of the pipeline taxonomy. Each aborts the current message only; the
// message stays on the queue and is redelivered. DeserializationError and
// RenderError live with the code that raises them (models and render).

const invalidReferenceMessage = "Application JSON document location is not in a valid format (.json)"

// InvalidReferenceError means the message body does not name a .json source.
type InvalidReferenceError struct {
	Body string
	Err  error
}

func (e *InvalidReferenceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", invalidReferenceMessage, e.Err)
	}
	return invalidReferenceMessage
}

func (e *InvalidReferenceError) Unwrap() error { return e.Err }

// UnsupportedContentTypeError means the source object is not JSON.
type UnsupportedContentTypeError struct {
	Key         string
	ContentType string
}

func (e *UnsupportedContentTypeError) Error() string {
	return fmt.Sprintf("%s content type is not supported", e.ContentType)
}

// FetchError wraps a failed read of the source document.
type FetchError struct {
	Key string
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("failed to fetch source document %s: %v", e.Key, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// UploadError wraps a failed write to the object store.
type UploadError struct {
	Key string
	Err error
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("failed to upload %s: %v", e.Key, e.Err)
}

func (e *UploadError) Unwrap() error { return e.Err }

// NotifyError wraps a failed downstream notification.
type NotifyError struct {
	PDFKey string
	Err    error
}

func (e *NotifyError) Error() string {
	return fmt.Sprintf("failed to send notification for %s: %v", e.PDFKey, e.Err)
}

func (e *NotifyError) Unwrap() error { return e.Err }

// DeleteError wraps a failed acknowledgement. Uploads and notifications made
// before it are not rolled back.
type DeleteError struct {
	ReceiptHandle string
	Err           error
}

func (e *DeleteError) Error() string {
	return fmt.Sprintf("failed to delete message %s: %v", e.ReceiptHandle, e.Err)
}

func (e *DeleteError) Unwrap() error { return e.Err }
