package render

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// The declaration label is an HTML fragment. It is sanitized down to the tags
// the layout understands and then flattened into blocks of styled runs.

type blockKind int

const (
	blockParagraph blockKind = iota
	blockHeading
	blockListItem
)

type run struct {
	Text      string
	Bold      bool
	Italic    bool
	Underline bool
	Link      string
}

func (r run) fontStyle() string {
	var s string
	if r.Bold {
		s += "B"
	}
	if r.Italic {
		s += "I"
	}
	if r.Underline {
		s += "U"
	}
	return s
}

type block struct {
	Kind  blockKind
	Level int    // list nesting depth, 1 for a top-level item
	Mark  string // bullet or ordinal of a list item
	Runs  []run
}

func (b block) text() string {
	var sb strings.Builder
	for _, r := range b.Runs {
		sb.WriteString(r.Text)
	}
	return sb.String()
}

var (
	declarationPolicyOnce sync.Once
	declarationPolicy     *bluemonday.Policy
)

func declarationSanitizer() *bluemonday.Policy {
	declarationPolicyOnce.Do(func() {
		policy := bluemonday.StrictPolicy()
		policy.AllowElements(
			"p", "div", "span", "br",
			"strong", "b", "em", "i", "u",
			"ul", "ol", "li",
			"h1", "h2", "h3", "h4",
		)
		policy.AllowAttrs("href").OnElements("a")
		policy.AllowStandardURLs()
		declarationPolicy = policy
	})
	return declarationPolicy
}

// parseDeclaration converts the declaration HTML into drawable blocks.
func parseDeclaration(fragment string) ([]block, error) {
	clean := strings.TrimSpace(declarationSanitizer().Sanitize(fragment))
	if clean == "" {
		return nil, errors.New("declaration label has no content")
	}

	p := &declarationParser{}
	z := html.NewTokenizer(strings.NewReader(clean))
	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			if err := z.Err(); !errors.Is(err, io.EOF) {
				return nil, fmt.Errorf("failed to tokenize declaration: %w", err)
			}
			p.flush()
			if len(p.blocks) == 0 {
				return nil, errors.New("declaration label has no text")
			}
			return p.blocks, nil
		case html.TextToken:
			p.text(string(z.Text()))
		case html.StartTagToken, html.SelfClosingTagToken:
			name, hasAttr := z.TagName()
			var href string
			for hasAttr {
				var key, val []byte
				key, val, hasAttr = z.TagAttr()
				if string(key) == "href" {
					href = string(val)
				}
			}
			p.start(atom.Lookup(name), href, tt == html.SelfClosingTagToken)
		case html.EndTagToken:
			name, _ := z.TagName()
			p.end(atom.Lookup(name))
		}
	}
}

type listState struct {
	ordered bool
	next    int
}

type declarationParser struct {
	blocks []block
	cur    block
	open   bool

	bold, italic, underline int
	links                   []string
	lists                   []listState
}

func (p *declarationParser) begin(kind blockKind) {
	p.flush()
	p.cur = block{Kind: kind}
	p.open = true
	if kind == blockListItem && len(p.lists) > 0 {
		l := &p.lists[len(p.lists)-1]
		p.cur.Level = len(p.lists)
		if l.ordered {
			l.next++
			p.cur.Mark = fmt.Sprintf("%d.", l.next)
		} else {
			p.cur.Mark = "•"
		}
	}
}

// flush closes the current block, trimming the whitespace at its edges.
func (p *declarationParser) flush() {
	if !p.open {
		return
	}
	p.open = false
	runs := p.cur.Runs
	for len(runs) > 0 {
		runs[0].Text = strings.TrimLeft(runs[0].Text, " ")
		if runs[0].Text != "" {
			break
		}
		runs = runs[1:]
	}
	for len(runs) > 0 {
		last := &runs[len(runs)-1]
		last.Text = strings.TrimRight(last.Text, " ")
		if last.Text != "" {
			break
		}
		runs = runs[:len(runs)-1]
	}
	if len(runs) == 0 {
		return
	}
	p.cur.Runs = runs
	p.blocks = append(p.blocks, p.cur)
}

func (p *declarationParser) text(raw string) {
	t := collapseSpace(raw)
	if t == "" {
		return
	}
	if !p.open {
		if strings.TrimSpace(t) == "" {
			return
		}
		p.begin(blockParagraph)
	}
	r := run{
		Text:      t,
		Bold:      p.bold > 0 || p.cur.Kind == blockHeading,
		Italic:    p.italic > 0,
		Underline: p.underline > 0,
	}
	if len(p.links) > 0 {
		r.Link = p.links[len(p.links)-1]
	}
	// Avoid doubled spaces across run boundaries.
	if n := len(p.cur.Runs); n > 0 && strings.HasSuffix(p.cur.Runs[n-1].Text, " ") {
		r.Text = strings.TrimLeft(r.Text, " ")
	}
	if r.Text != "" {
		p.cur.Runs = append(p.cur.Runs, r)
	}
}

func (p *declarationParser) start(a atom.Atom, href string, selfClosing bool) {
	switch a {
	case atom.P, atom.Div:
		p.begin(blockParagraph)
	case atom.H1, atom.H2, atom.H3, atom.H4:
		p.begin(blockHeading)
	case atom.Br:
		kind := p.cur.Kind
		if !p.open {
			kind = blockParagraph
		}
		p.flush()
		p.cur = block{Kind: kind, Level: p.cur.Level}
		p.open = true
	case atom.Ul, atom.Ol:
		p.flush()
		p.lists = append(p.lists, listState{ordered: a == atom.Ol})
	case atom.Li:
		p.begin(blockListItem)
	case atom.B, atom.Strong:
		if !selfClosing {
			p.bold++
		}
	case atom.I, atom.Em:
		if !selfClosing {
			p.italic++
		}
	case atom.U:
		if !selfClosing {
			p.underline++
		}
	case atom.A:
		if !selfClosing {
			p.links = append(p.links, href)
		}
	}
}

func (p *declarationParser) end(a atom.Atom) {
	switch a {
	case atom.P, atom.Div, atom.H1, atom.H2, atom.H3, atom.H4, atom.Li:
		p.flush()
	case atom.Ul, atom.Ol:
		p.flush()
		if len(p.lists) > 0 {
			p.lists = p.lists[:len(p.lists)-1]
		}
	case atom.B, atom.Strong:
		p.bold = max(0, p.bold-1)
	case atom.I, atom.Em:
		p.italic = max(0, p.italic-1)
	case atom.U:
		p.underline = max(0, p.underline-1)
	case atom.A:
		if len(p.links) > 0 {
			p.links = p.links[:len(p.links)-1]
		}
	}
}

// collapseSpace folds runs of whitespace into single spaces, keeping one
// leading or trailing space when the source had any.
func collapseSpace(s string) string {
	if s == "" {
		return ""
	}
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return " "
	}
	out := strings.Join(fields, " ")
	if isSpace(s[0]) {
		out = " " + out
	}
	if isSpace(s[len(s)-1]) {
		out += " "
	}
	return out
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\n' || c == '\t' || c == '\r' || c == '\f'
}
