package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Well-known question ids that change how a question is modelled.
const (
	DeclarationQuestionID      = "q-applicant-declaration"
	PhysicalInjuriesQuestionID = "q-applicant-physical-injuries"
)

// QuestionKind discriminates the question variants. It is resolved once when
// the source JSON is decoded.
type QuestionKind int

const (
	KindSimple QuestionKind = iota
	KindComposite
	KindPhysicalInjuries
	KindDeclaration
)

func (k QuestionKind) String() string {
	switch k {
	case KindComposite:
		return "composite"
	case KindPhysicalInjuries:
		return "physical-injuries"
	case KindDeclaration:
		return "declaration"
	default:
		return "simple"
	}
}

// Document is the application summary JSON as stored by the application service.
type Document struct {
	Themes      []Theme
	Declaration *Question
	Meta        Meta

	// top-level fields of the source JSON, kept so that re-encoding a document
	// does not drop anything this model does not understand.
	raw map[string]json.RawMessage
}

// Meta carries the case identifiers of an application.
type Meta struct {
	CaseReference    string
	FuneralReference string
	SplitFuneral     bool
	SubmittedDate    time.Time

	raw map[string]json.RawMessage
}

// Theme is a titled group of questions. Values are kept in source order.
type Theme struct {
	ID     string     `json:"id"`
	Type   string     `json:"type,omitempty"`
	Title  string     `json:"title"`
	Values []Question `json:"values"`
}

// Question is one answered question of the application.
type Question struct {
	Kind          QuestionKind
	ID            string
	Type          string
	Label         string
	Theme         string
	Value         any
	ValueLabel    string
	ValueLabels   []string
	Format        string
	HideOnSummary bool
	Values        []Question
}

// DeserializationError is returned when a source document cannot be decoded.
type DeserializationError struct {
	Err error
}

func (e *DeserializationError) Error() string {
	return fmt.Sprintf("failed to deserialize application document: %v", e.Err)
}

func (e *DeserializationError) Unwrap() error { return e.Err }

// DecodeDocument parses source bytes into a Document.
func DecodeDocument(data []byte) (*Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, &DeserializationError{Err: err}
	}
	return &doc, nil
}

func (d *Document) UnmarshalJSON(data []byte) error {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(data, &top); err != nil {
		return err
	}
	if top == nil {
		return errors.New("document is not a JSON object")
	}

	var out Document
	out.raw = top
	if themes, ok := top["themes"]; ok {
		if err := json.Unmarshal(themes, &out.Themes); err != nil {
			return fmt.Errorf("themes: %w", err)
		}
	}
	if meta, ok := top["meta"]; ok {
		if err := json.Unmarshal(meta, &out.Meta); err != nil {
			return fmt.Errorf("meta: %w", err)
		}
	}

	// The declaration normally lives inside a theme; a top-level "declaration"
	// object is only used when no theme carries one.
	for ti := range out.Themes {
		for qi := range out.Themes[ti].Values {
			q := &out.Themes[ti].Values[qi]
			if q.Kind != KindDeclaration {
				continue
			}
			if out.Declaration != nil {
				return errors.New("document has more than one declaration question")
			}
			out.Declaration = q
		}
	}
	if decl, ok := top["declaration"]; ok && !isNull(decl) && out.Declaration == nil {
		var q Question
		if err := json.Unmarshal(decl, &q); err != nil {
			return fmt.Errorf("declaration: %w", err)
		}
		q.Kind = KindDeclaration
		out.Declaration = &q
	}

	*d = out
	return nil
}

func (d Document) MarshalJSON() ([]byte, error) {
	out := make(map[string]json.RawMessage, len(d.raw)+2)
	for k, v := range d.raw {
		out[k] = v
	}
	meta, err := json.Marshal(d.Meta)
	if err != nil {
		return nil, err
	}
	out["meta"] = meta
	if _, ok := d.raw["themes"]; !ok {
		themes, err := json.Marshal(d.Themes)
		if err != nil {
			return nil, err
		}
		out["themes"] = themes
	}
	return json.Marshal(out)
}

// Clone returns a deep copy that shares no mutable state with d.
func (d *Document) Clone() *Document {
	if d == nil {
		return nil
	}
	out := &Document{
		Meta: d.Meta.clone(),
		raw:  cloneRaw(d.raw),
	}
	if d.Themes != nil {
		out.Themes = make([]Theme, len(d.Themes))
		for i, t := range d.Themes {
			out.Themes[i] = t.clone()
		}
	}
	// Keep the declaration pointing into the cloned themes when it came from them.
	if d.Declaration != nil {
		if q := out.FindQuestion(d.Declaration.ID); d.Declaration.ID != "" && q != nil && q.Kind == KindDeclaration {
			out.Declaration = q
		} else {
			q := d.Declaration.clone()
			out.Declaration = &q
		}
	}
	return out
}

// Theme returns the theme with the given id, or nil.
func (d *Document) Theme(id string) *Theme {
	for i := range d.Themes {
		if d.Themes[i].ID == id {
			return &d.Themes[i]
		}
	}
	return nil
}

// FindQuestion searches every theme, including composite sub-questions.
func (d *Document) FindQuestion(id string) *Question {
	for i := range d.Themes {
		if q := d.Themes[i].Question(id); q != nil {
			return q
		}
	}
	return nil
}

// Question returns the question with the given id from this theme, searching
// composite sub-questions depth first.
func (t *Theme) Question(id string) *Question {
	return findIn(t.Values, id)
}

func findIn(qs []Question, id string) *Question {
	for i := range qs {
		if qs[i].ID == id {
			return &qs[i]
		}
		if q := findIn(qs[i].Values, id); q != nil {
			return q
		}
	}
	return nil
}

func (t Theme) clone() Theme {
	out := t
	out.Values = cloneQuestions(t.Values)
	return out
}

func cloneQuestions(qs []Question) []Question {
	if qs == nil {
		return nil
	}
	out := make([]Question, len(qs))
	for i, q := range qs {
		out[i] = q.clone()
	}
	return out
}

func (q Question) clone() Question {
	out := q
	out.Value = cloneValue(q.Value)
	if q.ValueLabels != nil {
		out.ValueLabels = append([]string(nil), q.ValueLabels...)
	}
	out.Values = cloneQuestions(q.Values)
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = cloneValue(e)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = cloneValue(e)
		}
		return out
	default:
		return v
	}
}

// DisplayValue is the text printed for a question's answer: the value label
// when present, the raw value otherwise.
func (q *Question) DisplayValue() string {
	if q.ValueLabel != "" {
		return q.ValueLabel
	}
	if len(q.ValueLabels) > 0 {
		return strings.Join(q.ValueLabels, "\n")
	}
	return FormatValue(q.Value)
}

// IsDate reports whether the question's format asks for date rendering.
func (q *Question) IsDate() bool {
	return q.Format == "date-time" || q.Format == "date"
}

// FormatValue renders a decoded JSON value as plain text.
func FormatValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		if t {
			return "Yes"
		}
		return "No"
	case float64:
		return fmt.Sprintf("%v", t)
	case []any:
		parts := make([]string, 0, len(t))
		for _, e := range t {
			parts = append(parts, FormatValue(e))
		}
		return strings.Join(parts, "\n")
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprintf("%v", t)
		}
		return string(b)
	}
}

type questionJSON struct {
	ID            string          `json:"id,omitempty"`
	Type          string          `json:"type,omitempty"`
	Label         string          `json:"label"`
	Theme         string          `json:"theme,omitempty"`
	Value         json.RawMessage `json:"value,omitempty"`
	ValueLabel    json.RawMessage `json:"valueLabel,omitempty"`
	Format        json.RawMessage `json:"format,omitempty"`
	HideOnSummary bool            `json:"hideOnSummary,omitempty"`
	Values        []Question      `json:"values,omitempty"`
}

func (q *Question) UnmarshalJSON(data []byte) error {
	var raw questionJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := Question{
		ID:            raw.ID,
		Type:          raw.Type,
		Label:         raw.Label,
		Theme:         raw.Theme,
		HideOnSummary: raw.HideOnSummary,
		Values:        raw.Values,
	}
	if len(raw.Value) > 0 && !isNull(raw.Value) {
		if err := json.Unmarshal(raw.Value, &out.Value); err != nil {
			return fmt.Errorf("question %q value: %w", raw.ID, err)
		}
	}
	if len(raw.ValueLabel) > 0 && !isNull(raw.ValueLabel) {
		if raw.ValueLabel[0] == '[' {
			if err := json.Unmarshal(raw.ValueLabel, &out.ValueLabels); err != nil {
				return fmt.Errorf("question %q valueLabel: %w", raw.ID, err)
			}
		} else if err := json.Unmarshal(raw.ValueLabel, &out.ValueLabel); err != nil {
			return fmt.Errorf("question %q valueLabel: %w", raw.ID, err)
		}
	}
	if len(raw.Format) > 0 && !isNull(raw.Format) {
		format, err := decodeFormat(raw.Format)
		if err != nil {
			return fmt.Errorf("question %q format: %w", raw.ID, err)
		}
		out.Format = format
	}

	switch {
	case out.ID == DeclarationQuestionID:
		out.Kind = KindDeclaration
	case out.ID == PhysicalInjuriesQuestionID:
		out.Kind = KindPhysicalInjuries
	case out.Type == "composite" || len(out.Values) > 0:
		out.Kind = KindComposite
	default:
		out.Kind = KindSimple
	}

	*q = out
	return nil
}

func (q Question) MarshalJSON() ([]byte, error) {
	raw := questionJSON{
		ID:            q.ID,
		Type:          q.Type,
		Label:         q.Label,
		Theme:         q.Theme,
		HideOnSummary: q.HideOnSummary,
		Values:        q.Values,
	}
	if raw.Type == "" {
		raw.Type = "simple"
		if q.Kind == KindComposite {
			raw.Type = "composite"
		}
	}
	var err error
	if q.Value != nil {
		if raw.Value, err = json.Marshal(q.Value); err != nil {
			return nil, err
		}
	}
	switch {
	case q.ValueLabels != nil:
		raw.ValueLabel, err = json.Marshal(q.ValueLabels)
	case q.ValueLabel != "":
		raw.ValueLabel, err = json.Marshal(q.ValueLabel)
	}
	if err != nil {
		return nil, err
	}
	if q.Format != "" {
		if raw.Format, err = json.Marshal(map[string]string{"value": q.Format}); err != nil {
			return nil, err
		}
	}
	return json.Marshal(raw)
}

// format is either "date-time" or {"value": "date-time"}.
func decodeFormat(data json.RawMessage) (string, error) {
	if data[0] == '"' {
		var s string
		err := json.Unmarshal(data, &s)
		return s, err
	}
	var obj struct {
		Value string `json:"value"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return "", err
	}
	return obj.Value, nil
}

type metaJSON struct {
	CaseReference    string `json:"caseReference"`
	FuneralReference string `json:"funeralReference,omitempty"`
	SplitFuneral     bool   `json:"splitFuneral,omitempty"`
	SubmittedDate    string `json:"submittedDate,omitempty"`
}

func (m *Meta) UnmarshalJSON(data []byte) error {
	var raw metaJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	var all map[string]json.RawMessage
	if err := json.Unmarshal(data, &all); err != nil {
		return err
	}
	out := Meta{
		CaseReference:    raw.CaseReference,
		FuneralReference: raw.FuneralReference,
		SplitFuneral:     raw.SplitFuneral,
		raw:              all,
	}
	if raw.SubmittedDate != "" {
		ts, err := time.Parse(time.RFC3339, raw.SubmittedDate)
		if err != nil {
			return fmt.Errorf("submittedDate: %w", err)
		}
		out.SubmittedDate = ts
	}
	*m = out
	return nil
}

func (m Meta) MarshalJSON() ([]byte, error) {
	out := make(map[string]json.RawMessage, len(m.raw)+4)
	for k, v := range m.raw {
		out[k] = v
	}
	set := func(key string, v any) error {
		b, err := json.Marshal(v)
		if err != nil {
			return err
		}
		out[key] = b
		return nil
	}
	if err := set("caseReference", m.CaseReference); err != nil {
		return nil, err
	}
	if m.FuneralReference != "" {
		if err := set("funeralReference", m.FuneralReference); err != nil {
			return nil, err
		}
	}
	if err := set("splitFuneral", m.SplitFuneral); err != nil {
		return nil, err
	}
	if !m.SubmittedDate.IsZero() {
		if err := set("submittedDate", m.SubmittedDate.Format(time.RFC3339Nano)); err != nil {
			return nil, err
		}
	}
	return json.Marshal(out)
}

func (m Meta) clone() Meta {
	out := m
	out.raw = cloneRaw(m.raw)
	return out
}

func cloneRaw(in map[string]json.RawMessage) map[string]json.RawMessage {
	if in == nil {
		return nil
	}
	out := make(map[string]json.RawMessage, len(in))
	for k, v := range in {
		out[k] = append(json.RawMessage(nil), v...)
	}
	return out
}

func isNull(data json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(data), []byte("null"))
}
