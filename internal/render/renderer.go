// Package render lays an application document out as a paginated PDF summary.
package render

import (
	"bytes"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/go-pdf/fpdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/Lllllllleong/applicationsummaryflow/internal/classifier"
	"github.com/Lllllllleong/applicationsummaryflow/internal/models"
)

const (
	physicalInjuriesCaption = "Physical injuries"
	displayDateLayout       = "02/01/2006"
	footerTimeLayout        = "02/01/2006 15:04"
)

// RenderedDocument is the finished summary.
type RenderedDocument struct {
	Bytes     []byte
	PageCount int
}

// Renderer turns documents into PDF summaries. It holds no per-document
// state, so one Renderer may serve concurrent Render calls.
type Renderer struct {
	style Style
}

var disablePdfcpuConfig sync.Once

// New returns a Renderer for the given style.
func New(style Style) (*Renderer, error) {
	if err := style.Validate(); err != nil {
		return nil, fmt.Errorf("invalid render style: %w", err)
	}
	// pdfcpu otherwise writes its config into the user's home directory.
	disablePdfcpuConfig.Do(api.DisableConfigDir)
	return &Renderer{style: style}, nil
}

// Style returns the style the renderer was built with.
func (r *Renderer) Style() Style { return r.style }

// Render lays out doc and returns the finished PDF. Any structural problem
// with the document yields a *RenderError and no output.
func (r *Renderer) Render(doc *models.Document) (*RenderedDocument, error) {
	if err := validateDocument(doc); err != nil {
		return nil, err
	}
	declaration, err := parseDeclaration(doc.Declaration.Label)
	if err != nil {
		return nil, &RenderError{Reason: "malformed declaration", Err: err}
	}

	l := newLayout(r.style, doc)

	// First pass: content. Pagination is final once this returns.
	l.header()
	l.applicationType(classifier.Classify(doc))
	for i := range doc.Themes {
		l.theme(&doc.Themes[i])
	}
	l.declaration(doc, declaration)

	// Second pass: footer over every page already laid out.
	l.footer(footerText(doc.Meta))

	var buf bytes.Buffer
	if err := l.pdf.Output(&buf); err != nil {
		return nil, &RenderError{Reason: "failed to write pdf", Err: err}
	}
	return r.finalize(buf.Bytes())
}

// finalize optionally optimizes the file and reads the page count back from
// the bytes that will actually be stored.
func (r *Renderer) finalize(data []byte) (*RenderedDocument, error) {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	if r.style.Optimize {
		var out bytes.Buffer
		if err := api.Optimize(bytes.NewReader(data), &out, conf); err != nil {
			return nil, &RenderError{Reason: "failed to optimize pdf", Err: err}
		}
		data = out.Bytes()
	}
	pages, err := api.PageCount(bytes.NewReader(data), conf)
	if err != nil {
		return nil, &RenderError{Reason: "failed to read page count", Err: err}
	}
	return &RenderedDocument{Bytes: data, PageCount: pages}, nil
}

func validateDocument(doc *models.Document) error {
	if doc == nil {
		return renderErrorf("document is nil")
	}
	if strings.TrimSpace(doc.Meta.CaseReference) == "" {
		return renderErrorf("meta.caseReference is missing")
	}
	if doc.Declaration == nil {
		return renderErrorf("declaration question %q is missing", models.DeclarationQuestionID)
	}
	if strings.TrimSpace(doc.Declaration.Label) == "" {
		return renderErrorf("declaration question has no label")
	}
	for i, t := range doc.Themes {
		if t.ID == "" {
			return renderErrorf("theme %d has no id", i)
		}
		if t.Title == "" {
			return renderErrorf("theme %q has no title", t.ID)
		}
		if err := validateQuestions(t.ID, t.Values); err != nil {
			return err
		}
	}
	return nil
}

func validateQuestions(themeID string, qs []models.Question) error {
	for _, q := range qs {
		if q.HideOnSummary {
			continue
		}
		switch q.Kind {
		case models.KindDeclaration, models.KindPhysicalInjuries:
			continue
		case models.KindComposite:
			if err := validateQuestions(themeID, q.Values); err != nil {
				return err
			}
		}
		if q.Label == "" {
			return renderErrorf("question %q in theme %q has no label", q.ID, themeID)
		}
	}
	return nil
}

func footerText(meta models.Meta) string {
	submitted := ""
	if !meta.SubmittedDate.IsZero() {
		submitted = meta.SubmittedDate.Format(footerTimeLayout)
	}
	return fmt.Sprintf("Case reference no.: %s  Submitted on: %s", meta.CaseReference, submitted)
}

// formatDate rewrites a date answer as DD/MM/YYYY. Values that are not dates
// are printed as they are.
func formatDate(value string) string {
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02"} {
		if ts, err := time.Parse(layout, value); err == nil {
			return ts.Format(displayDateLayout)
		}
	}
	return value
}

// layout is the state of one Render call; every call owns its own buffer.
type layout struct {
	pdf   *fpdf.Fpdf
	style Style
	tr    func(string) string

	left, width float64
}

func newLayout(style Style, doc *models.Document) *layout {
	pdf := fpdf.New("P", "pt", style.PageSize, "")
	pdf.SetMargins(style.Margins.Left, style.Margins.Top, style.Margins.Right)
	pdf.SetAutoPageBreak(true, style.Margins.Bottom)
	pdf.SetCompression(style.Compress)
	pdf.SetCatalogSort(true)
	if !doc.Meta.SubmittedDate.IsZero() {
		pdf.SetCreationDate(doc.Meta.SubmittedDate)
	}
	pdf.SetTitle(style.Title, true)
	pdf.SetAuthor(style.Organisation, true)
	pdf.SetSubject(doc.Meta.CaseReference, true)
	pdf.SetCreator("applicationsummaryflow", true)
	pdf.AddPage()

	pageW, _ := pdf.GetPageSize()
	return &layout{
		pdf:   pdf,
		style: style,
		tr:    pdf.UnicodeTranslatorFromDescriptor(""),
		left:  style.Margins.Left,
		width: pageW - style.Margins.Left - style.Margins.Right,
	}
}

func (l *layout) lineHeight(size float64) float64 {
	return size * l.style.LineSpacing
}

func (l *layout) setColor(hex string) {
	c := mustColor(hex)
	l.pdf.SetTextColor(c.r, c.g, c.b)
}

// text prints a wrapped block at the given indent.
func (l *layout) text(s string, size float64, fontStyle, color, align string, indent float64) {
	l.pdf.SetFont(l.style.FontFamily, fontStyle, size)
	l.setColor(color)
	l.pdf.SetX(l.left + indent)
	l.pdf.MultiCell(l.width-indent, l.lineHeight(size), l.tr(s), "", align, false)
}

func (l *layout) moveDown(size float64) {
	l.pdf.Ln(l.lineHeight(size))
}

func (l *layout) header() {
	s := l.style
	top := l.pdf.GetY()
	l.text(s.ProtectiveMarking, s.HeaderSize, "", s.MutedColor, "C", 0)
	if s.LogoPath != "" {
		x := l.left + l.width - s.LogoWidth
		l.pdf.ImageOptions(s.LogoPath, x, top+l.lineHeight(s.HeaderSize), s.LogoWidth, 0, false,
			fpdf.ImageOptions{ReadDpi: true}, 0, "")
	}
	for _, line := range s.ContactLines {
		l.text(line, s.HeaderSize, "", s.MutedColor, "L", 0)
	}
	l.moveDown(s.HeaderSize)
	l.text(s.Title, s.TitleSize, "B", s.TextColor, "L", 0)
	l.moveDown(s.HeaderSize)
	l.text(s.Intro, s.HeaderSize, "", s.MutedColor, "L", 0)
	l.moveDown(s.HeaderSize)
}

func (l *layout) applicationType(t classifier.ApplicationType) {
	l.field(l.style.ApplicationTypeLabel, t.String(), 0)
	l.pdf.Ln(l.style.ThemeGap)
}

// field prints a bold label line followed by its value line.
func (l *layout) field(label, value string, indent float64) {
	s := l.style
	l.text(label, s.BodySize, "B", s.TextColor, "L", indent)
	l.text(value, s.BodySize, "", s.TextColor, "L", indent)
}

// needsPageBreak reports whether a banner started at y would leave too little
// room for the content that follows it on the same page.
func needsPageBreak(pageHeight, bottomMargin, y, lineHeight, safetyBuffer float64) bool {
	remaining := pageHeight - bottomMargin - y - lineHeight - safetyBuffer
	return remaining < 0
}

// breakBeforeBanner keeps a banner from being stranded at the foot of a page.
func (l *layout) breakBeforeBanner() {
	_, pageH := l.pdf.GetPageSize()
	_, _, _, bottom := l.pdf.GetMargins()
	_, fontSize := l.pdf.GetFontSize()
	if needsPageBreak(pageH, bottom, l.pdf.GetY(), l.lineHeight(fontSize), l.style.SafetyBuffer) {
		l.pdf.AddPage()
	}
}

func (l *layout) banner(title string) {
	s := l.style
	l.breakBeforeBanner()
	fill := mustColor(s.BannerColor)
	l.pdf.SetFillColor(fill.r, fill.g, fill.b)
	l.pdf.SetFont(s.FontFamily, "B", s.ThemeSize)
	l.setColor(s.BannerTextColor)
	l.pdf.SetX(l.left)
	l.pdf.CellFormat(l.width, s.BannerHeight, l.tr(title), "", 1, "LM", true, 0, "")
	l.pdf.Ln(s.QuestionGap)
}

// printable reports whether q produces output inside its theme. The
// declaration has its own section.
func printable(q *models.Question) bool {
	return !q.HideOnSummary && q.Kind != models.KindDeclaration
}

// theme prints a banner and the theme's questions. Themes with nothing to
// print get no banner.
func (l *layout) theme(t *models.Theme) {
	if !slices.ContainsFunc(t.Values, func(q models.Question) bool { return printable(&q) }) {
		return
	}
	l.banner(t.Title)
	for i := range t.Values {
		q := &t.Values[i]
		if !printable(q) {
			continue
		}
		l.question(q, 0)
		l.pdf.Ln(l.style.QuestionGap)
	}
	l.pdf.Ln(l.style.ThemeGap)
}

func (l *layout) question(q *models.Question, depth int) {
	indent := float64(depth) * l.style.IndentUnit
	switch q.Kind {
	case models.KindDeclaration:
		return
	case models.KindPhysicalInjuries:
		l.field(physicalInjuriesCaption, q.DisplayValue(), indent)
	case models.KindComposite:
		l.text(q.Label, l.style.BodySize, "B", l.style.TextColor, "L", indent)
		for i := range q.Values {
			sub := &q.Values[i]
			if sub.HideOnSummary {
				continue
			}
			l.question(sub, depth+1)
		}
	default:
		l.field(q.Label, l.valueText(q), indent)
	}
}

func (l *layout) valueText(q *models.Question) string {
	if q.IsDate() {
		if v, ok := q.Value.(string); ok {
			return formatDate(v)
		}
	}
	return q.DisplayValue()
}

func (l *layout) declaration(doc *models.Document, blocks []block) {
	s := l.style
	l.banner(s.DeclarationTitle)

	size := s.BodySize
	lh := l.lineHeight(size)
	l.setColor(s.TextColor)
	for _, b := range blocks {
		indent := 0.0
		fontSize := size
		if b.Kind == blockHeading {
			fontSize = s.ThemeSize * 0.8
		}
		if b.Kind == blockListItem {
			indent = float64(b.Level) * s.IndentUnit
		}
		l.pdf.SetLeftMargin(l.left + indent)
		l.pdf.SetX(l.left + indent)
		if b.Mark != "" {
			l.pdf.SetX(l.left + indent - s.IndentUnit/2)
			l.pdf.SetFont(s.FontFamily, "", fontSize)
			l.pdf.Write(l.lineHeight(fontSize), l.tr(b.Mark)+" ")
			l.pdf.SetX(l.left + indent)
		}
		for _, r := range b.Runs {
			l.pdf.SetFont(s.FontFamily, r.fontStyle(), fontSize)
			if r.Link != "" {
				l.pdf.WriteLinkString(l.lineHeight(fontSize), l.tr(r.Text), r.Link)
			} else {
				l.pdf.Write(l.lineHeight(fontSize), l.tr(r.Text))
			}
		}
		l.pdf.Ln(l.lineHeight(fontSize))
		l.pdf.Ln(s.QuestionGap)
		l.pdf.SetLeftMargin(l.left)
	}

	submitted := ""
	if !doc.Meta.SubmittedDate.IsZero() {
		submitted = doc.Meta.SubmittedDate.Format(displayDateLayout)
	}
	l.pdf.Ln(lh / 2)
	l.text("Submitted on: "+submitted, size, "B", s.TextColor, "L", 0)
	l.text(doc.Declaration.DisplayValue(), size, "B", s.TextColor, "L", 0)
}

// footer draws text near the bottom of every page produced by the content
// pass. Auto page breaks are disabled while drawing inside the bottom margin
// and restored afterwards.
func (l *layout) footer(text string) {
	s := l.style
	auto, margin := l.pdf.GetAutoPageBreak()
	l.pdf.SetAutoPageBreak(false, 0)

	pageW, pageH := l.pdf.GetPageSize()
	c := mustColor(s.MutedColor)
	for page := 1; page <= l.pdf.PageCount(); page++ {
		l.pdf.SetPage(page)
		// fpdf only emits font and colour operators when they change, and each
		// page's stream ends in whatever state its content left behind.
		l.pdf.SetFont(s.FontFamily, "B", s.FooterSize)
		l.pdf.SetFont(s.FontFamily, "", s.FooterSize)
		l.pdf.SetFillColor(c.r, c.g, c.b)
		l.pdf.SetTextColor(c.r, c.g, c.b)
		l.pdf.SetXY(0, pageH-s.FooterOffset)
		l.pdf.CellFormat(pageW, l.lineHeight(s.FooterSize), l.tr(text), "", 0, "C", false, 0, "")
	}

	l.pdf.SetAutoPageBreak(auto, margin)
}
