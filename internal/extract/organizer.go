package extract

import (
	"regexp"
	"strings"
)

var organizerPhrase = regexp.MustCompile(`(?i)\b(?:organi[sz]ed|presented|hosted)\s+by\b\s*:?\s*(.*)$`)

var organizerLabels = []string{"organizer", "organiser", "organizers", "organisers", "presenter", "host"}

const maxOrganizerLen = 120

// JSONLDOrganizer reads the event object's organizer.
func JSONLDOrganizer(in Input) (string, bool) {
	obj, ok := EventObject(in.Page)
	if !ok {
		return "", false
	}
	name := StripMarkup(nameOf(obj["organizer"]))
	return name, name != ""
}

// TextOrganizer looks for an "organized by" phrase with the name in the same
// segment or the one right after it, or an organizer label segment followed
// by the name.
func TextOrganizer(in Input) (string, bool) {
	if in.Page == nil {
		return "", false
	}
	segments := in.Page.Segments
	for i, seg := range segments {
		if m := organizerPhrase.FindStringSubmatch(seg.Text); m != nil {
			if name := cleanOrganizer(m[1]); name != "" {
				return name, true
			}
			if name := followingName(segments, i); name != "" {
				return name, true
			}
			continue
		}
		if isLabel(seg, organizerLabels) {
			if name := followingName(segments, i); name != "" {
				return name, true
			}
		}
	}
	return "", false
}

func followingName(segments []Segment, i int) string {
	if i+1 >= len(segments) {
		return ""
	}
	next := segments[i+1]
	if next.Kind == SegmentHeading {
		return ""
	}
	return cleanOrganizer(next.Text)
}

func cleanOrganizer(s string) string {
	s = collapseSpace(s)
	if i := strings.IndexAny(s, "|•·\n"); i >= 0 {
		s = s[:i]
	}
	s = strings.TrimSpace(strings.TrimRight(s, " .,;:-"))
	if len(s) > maxOrganizerLen {
		return ""
	}
	return s
}

// OrganizerStrategies is the organizer priority order for pages.
var OrganizerStrategies = []Strategy[string]{
	{Name: "jsonld", Extract: JSONLDOrganizer},
	{Name: "text", Extract: TextOrganizer},
}
