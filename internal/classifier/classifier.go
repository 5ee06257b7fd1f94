// Package classifier derives the application type shown on a summary.
package classifier

import (
	"strings"

	"github.com/Lllllllleong/applicationsummaryflow/internal/models"
)

// ApplicationType is the kind of claim an application represents.
type ApplicationType int

const (
	Unknown ApplicationType = iota
	Fatal
	Funeral
	PeriodOfAbuse
	PersonalInjury
)

// Theme and question ids consulted by Classify.
const (
	AboutApplicationTheme = "about-application"
	CrimeTheme            = "crime"

	FatalClaimQuestion    = "q-applicant-fatal-claim"
	ClaimTypeQuestion     = "q-applicant-claim-type"
	CrimeDurationQuestion = "q-applicant-did-the-crime-happen-once-or-over-time"

	durationOverTime = "over-a-period-of-time"
	durationOnce     = "once"
)

func (t ApplicationType) String() string {
	switch t {
	case Fatal:
		return "Fatal"
	case Funeral:
		return "Funeral"
	case PeriodOfAbuse:
		return "Period of abuse"
	case PersonalInjury:
		return "Personal injury"
	default:
		return "Unknown"
	}
}

// Classify maps a document to its application type. Fatal claims are checked
// before the crime duration, and a split funeral document is always Funeral.
func Classify(doc *models.Document) ApplicationType {
	if doc == nil {
		return Unknown
	}

	if about := doc.Theme(AboutApplicationTheme); about != nil {
		if q := about.Question(FatalClaimQuestion); q != nil && Truthy(q.Value) {
			if doc.Meta.SplitFuneral || Truthy(claimType(doc, about)) {
				return Funeral
			}
			return Fatal
		}
	}

	if crime := doc.Theme(CrimeTheme); crime != nil {
		if q := crime.Question(CrimeDurationQuestion); q != nil {
			switch v, _ := q.Value.(string); v {
			case durationOverTime:
				return PeriodOfAbuse
			case durationOnce:
				return PersonalInjury
			}
		}
	}

	return Unknown
}

// claimType is asked in about-application but older documents put it elsewhere.
func claimType(doc *models.Document, about *models.Theme) any {
	if q := about.Question(ClaimTypeQuestion); q != nil {
		return q.Value
	}
	if q := doc.FindQuestion(ClaimTypeQuestion); q != nil {
		return q.Value
	}
	return nil
}

// Truthy applies the loose truthiness the application service writes answers
// with: booleans as-is, non-zero numbers, non-empty strings other than
// "false", and non-empty collections.
func Truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case float64:
		return t != 0
	case int:
		return t != 0
	case string:
		return t != "" && !strings.EqualFold(t, "false")
	case []any:
		return len(t) > 0
	case map[string]any:
		return len(t) > 0
	default:
		return true
	}
}
