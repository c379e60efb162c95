package extract

import (
	"encoding/json"
	"strings"
)

// EventObject returns the first JSON-LD object on the page whose @type is or
// ends with "Event". Malformed blocks are skipped.
func EventObject(page *Page) (map[string]any, bool) {
	if page == nil {
		return nil, false
	}
	for _, block := range page.JSONLD {
		var doc any
		if err := json.Unmarshal([]byte(block), &doc); err != nil {
			continue
		}
		if obj, ok := findEvent(doc, 0); ok {
			return obj, true
		}
	}
	return nil, false
}

func findEvent(node any, depth int) (map[string]any, bool) {
	if depth > 8 {
		return nil, false
	}
	switch v := node.(type) {
	case []any:
		for _, item := range v {
			if obj, ok := findEvent(item, depth+1); ok {
				return obj, true
			}
		}
	case map[string]any:
		if isEventType(v["@type"]) {
			return v, true
		}
		if graph, ok := v["@graph"]; ok {
			return findEvent(graph, depth+1)
		}
	}
	return nil, false
}

func isEventType(t any) bool {
	switch v := t.(type) {
	case string:
		name := v
		if i := strings.LastIndexAny(name, "/:#"); i >= 0 {
			name = name[i+1:]
		}
		return strings.HasSuffix(name, "Event")
	case []any:
		for _, item := range v {
			if isEventType(item) {
				return true
			}
		}
	}
	return false
}

// stringField reads a string property, trimming whitespace.
func stringField(obj map[string]any, key string) string {
	s, _ := obj[key].(string)
	return strings.TrimSpace(s)
}

// nameOf reads a string, an object's name, or the first usable array item.
func nameOf(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case map[string]any:
		return stringField(t, "name")
	case []any:
		for _, item := range t {
			if name := nameOf(item); name != "" {
				return name
			}
		}
	}
	return ""
}

// urlOf reads a string, an object's url/@id/contentUrl, or the first usable array item.
func urlOf(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case map[string]any:
		for _, key := range []string{"url", "contentUrl", "@id"} {
			if s := stringField(t, key); s != "" {
				return s
			}
		}
	case []any:
		for _, item := range t {
			if s := urlOf(item); s != "" {
				return s
			}
		}
	}
	return ""
}

// EventName reads the event name from structured data.
func EventName(in Input) (string, bool) {
	obj, ok := EventObject(in.Page)
	if !ok {
		return "", false
	}
	name := StripMarkup(stringField(obj, "name"))
	return name, name != ""
}

// MetaTitle reads the Open Graph or Twitter title.
func MetaTitle(in Input) (string, bool) {
	title := StripMarkup(in.Page.MetaValue("og:title", "twitter:title"))
	return title, title != ""
}

// TitleStrategies is the page title priority order.
var TitleStrategies = []Strategy[string]{
	{Name: "jsonld", Extract: EventName},
	{Name: "meta", Extract: MetaTitle},
}
