package models

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `{
  "id": "application-summary",
  "themes": [
    {"type": "theme", "id": "applicant-details", "title": "Your details", "values": [
      {"id": "q-applicant-name", "type": "composite", "label": "Name", "values": [
        {"id": "q-applicant-first-name", "type": "simple", "label": "First name", "value": "Ann"},
        {"id": "q-applicant-last-name", "type": "simple", "label": "Last name", "value": "Lee"}
      ]},
      {"id": "q-applicant-date-of-birth", "type": "simple", "label": "Date of birth",
       "value": "1970-01-01T00:00:00.000Z", "format": {"value": "date-time"}},
      {"id": "q-applicant-when", "type": "simple", "label": "When", "value": "2022-01-01", "format": "date"},
      {"id": "q-applicant-adult", "type": "simple", "label": "Adult?", "value": true},
      {"id": "q-applicant-physical-injuries", "type": "simple", "label": "Injuries",
       "value": ["phyinj-001"], "valueLabel": ["Head"]},
      {"id": "q-applicant-contact-preference", "type": "simple", "label": "How should we contact you?",
       "value": ["email", "post"], "valueLabel": ["Email", "Post"]}
    ]},
    {"type": "theme", "id": "declaration", "title": "Declaration", "values": [
      {"id": "q-applicant-declaration", "type": "simple", "label": "<p>I agree</p>",
       "value": "i-agree", "valueLabel": "Ann Lee"}
    ]}
  ],
  "meta": {"caseReference": "23\\700001", "funeralReference": "23\\700002",
           "submittedDate": "2023-05-17T18:12:10.412Z", "onlineApplicationVersion": 3}
}`

func decodeSample(t *testing.T) *Document {
	t.Helper()
	doc, err := DecodeDocument([]byte(sample))
	require.NoError(t, err)
	return doc
}

func TestDecodeDocumentResolvesKinds(t *testing.T) {
	doc := decodeSample(t)

	require.Len(t, doc.Themes, 2)
	details := doc.Theme("applicant-details")
	require.NotNil(t, details)

	name := details.Question("q-applicant-name")
	require.NotNil(t, name)
	assert.Equal(t, KindComposite, name.Kind)
	assert.Len(t, name.Values, 2)

	first := details.Question("q-applicant-first-name")
	require.NotNil(t, first)
	assert.Equal(t, KindSimple, first.Kind)
	assert.Equal(t, "Ann", first.DisplayValue())

	injuries := doc.FindQuestion(PhysicalInjuriesQuestionID)
	require.NotNil(t, injuries)
	assert.Equal(t, KindPhysicalInjuries, injuries.Kind)
	assert.Equal(t, []string{"Head"}, injuries.ValueLabels)

	contact := details.Question("q-applicant-contact-preference")
	require.NotNil(t, contact)
	assert.Equal(t, KindSimple, contact.Kind)
	assert.Equal(t, "How should we contact you?", contact.Label)
	assert.Equal(t, []string{"Email", "Post"}, contact.ValueLabels)
	assert.Equal(t, "Email\nPost", contact.DisplayValue())

	assert.True(t, details.Question("q-applicant-date-of-birth").IsDate())
	assert.True(t, details.Question("q-applicant-when").IsDate())
	assert.Equal(t, "Yes", details.Question("q-applicant-adult").DisplayValue())
}

func TestDecodeDocumentLiftsDeclaration(t *testing.T) {
	doc := decodeSample(t)

	require.NotNil(t, doc.Declaration)
	assert.Equal(t, KindDeclaration, doc.Declaration.Kind)
	assert.Equal(t, "<p>I agree</p>", doc.Declaration.Label)
	assert.Equal(t, "Ann Lee", doc.Declaration.DisplayValue())
	assert.Same(t, doc.FindQuestion(DeclarationQuestionID), doc.Declaration)
}

func TestDecodeDocumentTopLevelDeclaration(t *testing.T) {
	doc, err := DecodeDocument([]byte(`{
		"themes": [],
		"declaration": {"id": "q-declaration", "label": "<p>Agreed</p>", "valueLabel": "Ann"},
		"meta": {"caseReference": "1\\2"}
	}`))
	require.NoError(t, err)
	require.NotNil(t, doc.Declaration)
	assert.Equal(t, KindDeclaration, doc.Declaration.Kind)
	assert.Equal(t, "<p>Agreed</p>", doc.Declaration.Label)
}

func TestDecodeDocumentRejectsTwoDeclarations(t *testing.T) {
	_, err := DecodeDocument([]byte(`{"themes": [
		{"id": "a", "title": "A", "values": [{"id": "q-applicant-declaration", "label": "x"}]},
		{"id": "b", "title": "B", "values": [{"id": "q-applicant-declaration", "label": "y"}]}
	], "meta": {"caseReference": "1"}}`))
	var decodeErr *DeserializationError
	assert.True(t, errors.As(err, &decodeErr))
}

func TestDecodeDocumentErrors(t *testing.T) {
	for _, data := range []string{
		``,
		`[]`,
		`null`,
		`{"themes": {}}`,
		`{"meta": {"submittedDate": "yesterday"}}`,
	} {
		_, err := DecodeDocument([]byte(data))
		var decodeErr *DeserializationError
		assert.True(t, errors.As(err, &decodeErr), "input %q: %v", data, err)
	}
}

func TestMeta(t *testing.T) {
	doc := decodeSample(t)
	assert.Equal(t, `23\700001`, doc.Meta.CaseReference)
	assert.Equal(t, `23\700002`, doc.Meta.FuneralReference)
	assert.False(t, doc.Meta.SplitFuneral)
	assert.Equal(t, time.Date(2023, 5, 17, 18, 12, 10, 412000000, time.UTC), doc.Meta.SubmittedDate)
}

func TestMarshalKeepsUnknownFields(t *testing.T) {
	doc := decodeSample(t)
	doc.Meta.SplitFuneral = true

	data, err := json.Marshal(doc)
	require.NoError(t, err)

	var out map[string]any
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, "application-summary", out["id"])
	meta := out["meta"].(map[string]any)
	assert.Equal(t, true, meta["splitFuneral"])
	assert.Equal(t, 3.0, meta["onlineApplicationVersion"])

	again, err := DecodeDocument(data)
	require.NoError(t, err)
	assert.Equal(t, doc.Meta.SubmittedDate, again.Meta.SubmittedDate)
	assert.Len(t, again.Themes, 2)
}

func TestCloneIsDeep(t *testing.T) {
	doc := decodeSample(t)
	clone := doc.Clone()

	clone.Meta.CaseReference = "changed"
	clone.Themes[0].Title = "changed"
	clone.FindQuestion("q-applicant-first-name").Value = "changed"
	clone.FindQuestion(PhysicalInjuriesQuestionID).ValueLabels[0] = "changed"
	clone.Declaration.Label = "changed"

	assert.Equal(t, `23\700001`, doc.Meta.CaseReference)
	assert.Equal(t, "Your details", doc.Themes[0].Title)
	assert.Equal(t, "Ann", doc.FindQuestion("q-applicant-first-name").Value)
	assert.Equal(t, "Head", doc.FindQuestion(PhysicalInjuriesQuestionID).ValueLabels[0])
	assert.Equal(t, "<p>I agree</p>", doc.Declaration.Label)

	// The cloned declaration still points into the cloned themes.
	assert.Same(t, clone.FindQuestion(DeclarationQuestionID), clone.Declaration)
}

func TestFormatValue(t *testing.T) {
	assert.Equal(t, "", FormatValue(nil))
	assert.Equal(t, "No", FormatValue(false))
	assert.Equal(t, "42", FormatValue(42.0))
	assert.Equal(t, "a\nb", FormatValue([]any{"a", "b"}))
	assert.Equal(t, `{"k":"v"}`, FormatValue(map[string]any{"k": "v"}))
}
