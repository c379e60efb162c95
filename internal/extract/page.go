package extract

import (
	"bytes"
	"net/url"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// SegmentKind tags a run of visible page text.
type SegmentKind int

const (
	SegmentBody SegmentKind = iota
	SegmentHeading
	SegmentAnchor
)

// Segment is one run of collapsed visible text.
type Segment struct {
	Kind SegmentKind
	Text string
}

// Page is the parsed view of an HTML document that strategies work on.
type Page struct {
	URL      *url.URL
	Raw      []byte
	JSONLD   []string
	Meta     map[string]string
	Styles   []string
	Segments []Segment
}

// MetaValue returns the first non-empty content among keys.
func (p *Page) MetaValue(keys ...string) string {
	if p == nil {
		return ""
	}
	for _, k := range keys {
		if v := strings.TrimSpace(p.Meta[strings.ToLower(k)]); v != "" {
			return v
		}
	}
	return ""
}

// Text returns every visible segment joined by single spaces.
func (p *Page) Text() string {
	if p == nil {
		return ""
	}
	parts := make([]string, 0, len(p.Segments))
	for _, s := range p.Segments {
		parts = append(parts, s.Text)
	}
	return strings.Join(parts, " ")
}

var skippedElements = map[atom.Atom]bool{
	atom.Head:     true,
	atom.Script:   true,
	atom.Style:    true,
	atom.Noscript: true,
	atom.Template: true,
	atom.Svg:      true,
	atom.Iframe:   true,
}

var inlineElements = map[atom.Atom]bool{
	atom.Span:   true,
	atom.Strong: true,
	atom.B:      true,
	atom.Em:     true,
	atom.I:      true,
	atom.U:      true,
	atom.Small:  true,
	atom.Mark:   true,
	atom.Time:   true,
	atom.Abbr:   true,
	atom.Sup:    true,
	atom.Sub:    true,
	atom.Code:   true,
}

var headingElements = map[atom.Atom]bool{
	atom.H1: true, atom.H2: true, atom.H3: true,
	atom.H4: true, atom.H5: true, atom.H6: true,
}

// ParsePage parses body leniently. It never fails; unparseable markup gives
// an empty page that still carries the URL and raw bytes.
func ParsePage(body []byte, pageURL *url.URL) *Page {
	page := &Page{URL: pageURL, Raw: body, Meta: map[string]string{}}
	root, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return page
	}
	w := &pageWalker{page: page}
	w.walk(root)
	w.flush(SegmentBody)
	return page
}

type pageWalker struct {
	page *Page
	buf  strings.Builder
}

func (w *pageWalker) walk(n *html.Node) {
	if n.Type == html.ElementNode {
		w.collectAttributes(n)
		switch {
		case w.collectRaw(n):
			return
		case n.DataAtom == atom.Head:
			w.walkHead(n)
			return
		case skippedElements[n.DataAtom]:
			return
		case headingElements[n.DataAtom]:
			w.flush(SegmentBody)
			w.appendSegment(SegmentHeading, nodeText(n))
			return
		case n.DataAtom == atom.A:
			w.flush(SegmentBody)
			w.appendSegment(SegmentAnchor, nodeText(n))
			return
		case n.DataAtom == atom.Br:
			w.flush(SegmentBody)
			return
		}
	}
	if n.Type == html.TextNode {
		w.buf.WriteString(n.Data)
		return
	}
	block := n.Type == html.ElementNode && !inlineElements[n.DataAtom]
	if block {
		w.flush(SegmentBody)
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		w.walk(c)
	}
	if block {
		w.flush(SegmentBody)
	}
}

// walkHead collects metadata and structured data only; head text is never visible.
func (w *pageWalker) walkHead(n *html.Node) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode {
			continue
		}
		w.collectAttributes(c)
		if !w.collectRaw(c) {
			w.walkHead(c)
		}
	}
}

// collectRaw records JSON-LD scripts and stylesheets. It reports whether n
// was a script or style element.
func (w *pageWalker) collectRaw(n *html.Node) bool {
	switch n.DataAtom {
	case atom.Script:
		if strings.EqualFold(strings.TrimSpace(attr(n, "type")), "application/ld+json") {
			if text := strings.TrimSpace(nodeText(n)); text != "" {
				w.page.JSONLD = append(w.page.JSONLD, text)
			}
		}
		return true
	case atom.Style:
		if text := strings.TrimSpace(nodeText(n)); text != "" {
			w.page.Styles = append(w.page.Styles, text)
		}
		return true
	}
	return false
}

func (w *pageWalker) collectAttributes(n *html.Node) {
	if style := strings.TrimSpace(attr(n, "style")); style != "" {
		w.page.Styles = append(w.page.Styles, style)
	}
	if n.DataAtom != atom.Meta {
		return
	}
	content := strings.TrimSpace(attr(n, "content"))
	if content == "" {
		return
	}
	for _, key := range []string{"property", "name", "itemprop"} {
		name := strings.ToLower(strings.TrimSpace(attr(n, key)))
		if name == "" {
			continue
		}
		if _, exists := w.page.Meta[name]; !exists {
			w.page.Meta[name] = content
		}
	}
}

func (w *pageWalker) flush(kind SegmentKind) {
	if w.buf.Len() == 0 {
		return
	}
	w.appendSegment(kind, w.buf.String())
	w.buf.Reset()
}

func (w *pageWalker) appendSegment(kind SegmentKind, text string) {
	text = collapseSpace(text)
	if text == "" {
		return
	}
	w.page.Segments = append(w.page.Segments, Segment{Kind: kind, Text: text})
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if strings.EqualFold(a.Key, key) {
			return a.Val
		}
	}
	return ""
}

func nodeText(n *html.Node) string {
	var b strings.Builder
	var visit func(*html.Node)
	visit = func(node *html.Node) {
		if node.Type == html.TextNode {
			b.WriteString(node.Data)
			return
		}
		if node.Type == html.ElementNode && node != n && skippedElements[node.DataAtom] {
			return
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			visit(c)
		}
	}
	visit(n)
	return b.String()
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// StripMarkup returns the visible text of an HTML fragment with whitespace
// collapsed. Plain text passes through unchanged apart from whitespace.
func StripMarkup(fragment string) string {
	if !strings.ContainsAny(fragment, "<&") {
		return collapseSpace(fragment)
	}
	z := html.NewTokenizer(strings.NewReader(fragment))
	var b strings.Builder
	skip := 0
	for {
		switch z.Next() {
		case html.ErrorToken:
			return collapseSpace(b.String())
		case html.TextToken:
			if skip == 0 {
				b.Write(z.Text())
				b.WriteByte(' ')
			}
		case html.StartTagToken:
			name, _ := z.TagName()
			if a := atom.Lookup(name); a == atom.Script || a == atom.Style {
				skip++
			}
			b.WriteByte(' ')
		case html.EndTagToken:
			name, _ := z.TagName()
			if a := atom.Lookup(name); (a == atom.Script || a == atom.Style) && skip > 0 {
				skip--
			}
			b.WriteByte(' ')
		}
	}
}
