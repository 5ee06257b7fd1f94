package services

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/Lllllllleong/applicationsummaryflow/internal/models"
)

const (
	sourceExtension = ".json"
	summaryFileName = "application-summary.pdf"
)

// ParseInboundMessage reads a source queue message body. The referenced key
// must end in .json and is returned verbatim.
func ParseInboundMessage(body string) (models.InboundMessage, error) {
	var msg models.InboundMessage
	if err := json.Unmarshal([]byte(body), &msg); err != nil {
		return models.InboundMessage{}, &InvalidReferenceError{Body: body, Err: err}
	}
	if err := ValidateSourceKey(msg.ApplicationJSONDocumentSummaryKey); err != nil {
		return models.InboundMessage{}, &InvalidReferenceError{Body: body}
	}
	return msg, nil
}

// ValidateSourceKey checks that key names a JSON document.
func ValidateSourceKey(key string) error {
	if len(key) <= len(sourceExtension) || !strings.HasSuffix(key, sourceExtension) {
		return errors.New(invalidReferenceMessage)
	}
	return nil
}

// OutputKey is where the summary of a case is stored. Case references are
// backslash separated; the first and last parts are joined with a dash, so
// "23\700001" maps to "23-700001/application-summary.pdf".
func OutputKey(caseReference string) string {
	parts := strings.Split(caseReference, `\`)
	return parts[0] + "-" + parts[len(parts)-1] + "/" + summaryFileName
}
