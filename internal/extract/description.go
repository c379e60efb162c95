package extract

import (
	"html"
	"strings"
)

var descriptionStartPhrases = []string{
	"about this event",
	"about",
	"description",
	"event details",
	"overview",
}

var sectionStopPhrases = []string{
	"location",
	"date and time",
	"tags",
	"organized by",
	"organised by",
	"refund policy",
	"tickets",
}

// JoinDescriptions unescapes HTML entities in each part, drops empty parts
// and joins the rest with a blank line.
func JoinDescriptions(parts ...string) string {
	kept := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(html.UnescapeString(p))
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, "\n\n")
}

// DescriptionBetweenHeadings collects the body text that follows a known
// description heading, up to the next heading or known section label.
func DescriptionBetweenHeadings(in Input) (string, bool) {
	if in.Page == nil {
		return "", false
	}
	segments := in.Page.Segments
	for i, seg := range segments {
		if !isLabel(seg, descriptionStartPhrases) {
			continue
		}
		var parts []string
		for _, next := range segments[i+1:] {
			if next.Kind == SegmentHeading || isLabel(next, sectionStopPhrases) {
				break
			}
			parts = append(parts, next.Text)
		}
		if text := collapseSpace(strings.Join(parts, " ")); text != "" {
			return text, true
		}
	}
	return "", false
}

// JSONLDDescription reads the event object's description, markup stripped.
func JSONLDDescription(in Input) (string, bool) {
	obj, ok := EventObject(in.Page)
	if !ok {
		return "", false
	}
	text := StripMarkup(stringField(obj, "description"))
	return text, text != ""
}

// MetaDescription reads the Open Graph or Twitter description. The plain
// <meta name="description"> is site boilerplate, not event data, and is
// ignored like <title>.
func MetaDescription(in Input) (string, bool) {
	text := StripMarkup(in.Page.MetaValue("og:description", "twitter:description"))
	return text, text != ""
}

// PageDescriptionStrategies is the description priority order for pages.
var PageDescriptionStrategies = []Strategy[string]{
	{Name: "jsonld", Extract: JSONLDDescription},
	{Name: "meta", Extract: MetaDescription},
	{Name: "headings", Extract: DescriptionBetweenHeadings},
}

// isLabel reports whether the whole segment text is one of phrases.
func isLabel(seg Segment, phrases []string) bool {
	text := normalizeLabel(seg.Text)
	for _, p := range phrases {
		if text == p {
			return true
		}
	}
	return false
}

func normalizeLabel(s string) string {
	s = strings.ToLower(collapseSpace(s))
	return strings.TrimRight(s, " :.-")
}
