package split

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Lllllllleong/applicationsummaryflow/internal/models"
)

const source = `{
  "themes": [
    {"type": "theme", "id": "about-application", "title": "About your application", "values": [
      {"id": "q-applicant-fatal-claim", "type": "simple", "label": "Fatal?", "value": true, "valueLabel": "Yes"},
      {"id": "q-applicant-name", "type": "composite", "label": "Name", "values": [
        {"id": "q-applicant-first-name", "type": "simple", "label": "First name", "value": "Ann"}
      ]}
    ]},
    {"type": "theme", "id": "declaration", "title": "Declaration", "values": [
      {"id": "q-applicant-declaration", "type": "simple", "label": "<p>I declare</p>", "value": "i-agree", "valueLabel": "Agreed"}
    ]}
  ],
  "meta": {"caseReference": "23\\700001", "funeralReference": "23\\700002", "submittedDate": "2023-05-17T18:12:10.412Z", "onlineApplication": true}
}`

func decode(t *testing.T) *models.Document {
	t.Helper()
	doc, err := models.DecodeDocument([]byte(source))
	require.NoError(t, err)
	return doc
}

func TestForFuneral(t *testing.T) {
	original := decode(t)
	snapshot := decode(t)

	out := ForFuneral(original)

	assert.Equal(t, "23\\700002", out.Meta.CaseReference)
	assert.True(t, out.Meta.SplitFuneral)
	assert.Equal(t, "23\\700001", original.Meta.CaseReference)
	assert.False(t, original.Meta.SplitFuneral)

	// Themes are copied, not aliased.
	if diff := cmp.Diff(original.Themes, out.Themes); diff != "" {
		t.Fatalf("themes differ after split (-original +split):\n%s", diff)
	}
	out.Themes[0].Values[1].Values[0].Value = "Changed"
	out.Themes[0].Title = "Changed"
	if diff := cmp.Diff(snapshot.Themes, original.Themes); diff != "" {
		t.Fatalf("original mutated through split copy:\n%s", diff)
	}

	require.NotNil(t, out.Declaration)
	assert.NotSame(t, original.Declaration, out.Declaration)
	assert.Same(t, &out.Themes[1].Values[0], out.Declaration)
}

func TestForFuneralKeepsUnknownMetaFields(t *testing.T) {
	out := ForFuneral(decode(t))

	b, err := json.Marshal(out)
	require.NoError(t, err)

	var got struct {
		Meta map[string]any `json:"meta"`
	}
	require.NoError(t, json.Unmarshal(b, &got))
	assert.Equal(t, "23\\700002", got.Meta["caseReference"])
	assert.Equal(t, true, got.Meta["splitFuneral"])
	assert.Equal(t, true, got.Meta["onlineApplication"])
}

func TestApplies(t *testing.T) {
	doc := decode(t)
	assert.True(t, Applies(doc))
	assert.False(t, Applies(ForFuneral(doc)))

	doc.Meta.FuneralReference = ""
	assert.False(t, Applies(doc))
	assert.False(t, Applies(nil))
}

func TestDeriveKey(t *testing.T) {
	tests := map[string]string{
		"testdirectory/originalfile.json": "testdirectory/originalfile-split.json",
		"originalfile.json":               "originalfile-split.json",
		"a/b/c.d/file.json":               "a/b/c.d/file-split.json",
		"dir/noext":                       "dir/noext-split",
	}
	for in, want := range tests {
		assert.Equal(t, want, DeriveKey(in), in)
	}
}

func TestIsDerivedKey(t *testing.T) {
	assert.True(t, IsDerivedKey(DeriveKey("testdirectory/originalfile.json")))
	assert.True(t, IsDerivedKey("a-split.json"))
	assert.False(t, IsDerivedKey("testdirectory/originalfile.json"))
	assert.False(t, IsDerivedKey("a-split/b.json"))
}
