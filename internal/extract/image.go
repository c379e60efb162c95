package extract

import (
	"html"
	"regexp"
	"strings"
)

var backgroundImage = regexp.MustCompile(`(?i)background-image\s*:\s*url\(\s*['"]?([^'")]+?)['"]?\s*\)`)

// JSONLDImage reads the event object's image property.
func JSONLDImage(in Input) (string, bool) {
	obj, ok := EventObject(in.Page)
	if !ok {
		return "", false
	}
	return resolveOnPage(in.Page, urlOf(obj["image"]))
}

// MetaImage reads the Open Graph or Twitter image.
func MetaImage(in Input) (string, bool) {
	return resolveOnPage(in.Page, in.Page.MetaValue("og:image", "og:image:url", "twitter:image"))
}

// BackgroundImage reads the first inline background-image url(...).
func BackgroundImage(in Input) (string, bool) {
	if in.Page == nil {
		return "", false
	}
	for _, style := range in.Page.Styles {
		for _, m := range backgroundImage.FindAllStringSubmatch(style, -1) {
			if u, ok := resolveOnPage(in.Page, html.UnescapeString(m[1])); ok {
				return u, true
			}
		}
	}
	return "", false
}

func resolveOnPage(page *Page, ref string) (string, bool) {
	ref = strings.TrimSpace(ref)
	if ref == "" || strings.HasPrefix(strings.ToLower(ref), "data:") {
		return "", false
	}
	if page == nil {
		return ResolveURL(nil, ref)
	}
	return ResolveURL(page.URL, ref)
}

// ImageStrategies is the image priority order. The first success wins.
var ImageStrategies = []Strategy[string]{
	{Name: "jsonld", Extract: JSONLDImage},
	{Name: "meta", Extract: MetaImage},
	{Name: "background", Extract: BackgroundImage},
}
