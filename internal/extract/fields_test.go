package extract

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const eventPage = `<!doctype html>
<html>
<head>
  <title>Ignored title</title>
  <meta property="og:title" content="Meta Title">
  <meta property="og:image" content="/img/og.jpg">
  <script type="application/ld+json">{"@context":"https://schema.org","@type":"Organization","name":"Venue"}</script>
  <script type="application/ld+json">{"@context":"https://schema.org","@graph":[
    {"@type":"WebPage","name":"Page"},
    {"@type":["Thing","MusicEvent"],"name":"Graph Event","startDate":"2025-06-01T20:00",
     "image":[{"@type":"ImageObject","url":"https://cdn.example.com/poster.png"}],
     "organizer":[{"@type":"Organization","name":"Night Owls"}],
     "description":"<p>Loud &amp; late.</p>"}
  ]}</script>
</head>
<body>
  <div style="background-image: url('/img/bg.jpg')">hero</div>
</body>
</html>`

func TestStructuredDataWinsForEveryField(t *testing.T) {
	page := mustPage(t, eventPage, "https://events.example.com/e/1")
	in := Input{Page: page}

	name, ok := First(in, TitleStrategies)
	require.True(t, ok)
	assert.Equal(t, "Graph Event", name.Value)
	assert.Equal(t, "jsonld", name.Strategy)

	img, ok := First(in, ImageStrategies)
	require.True(t, ok)
	assert.Equal(t, "https://cdn.example.com/poster.png", img.Value)

	org, ok := First(in, OrganizerStrategies)
	require.True(t, ok)
	assert.Equal(t, "Night Owls", org.Value)

	desc, ok := First(in, PageDescriptionStrategies)
	require.True(t, ok)
	assert.Equal(t, "Loud & late.", desc.Value)
}

func TestImageStrategiesFallBackInOrder(t *testing.T) {
	page := mustPage(t, `<html><head><meta property="og:image" content="/img/og.jpg"></head>
<body><div style="background-image:url(/img/bg.jpg)"></div></body></html>`, "https://events.example.com/e/1")

	img, ok := First(Input{Page: page}, ImageStrategies)
	require.True(t, ok)
	assert.Equal(t, "https://events.example.com/img/og.jpg", img.Value)
	assert.Equal(t, "meta", img.Strategy)

	page = mustPage(t, `<section style="color:red; background-image: url(&quot;../bg.jpg&quot;)"></section>`, "https://events.example.com/e/1")
	img, ok = First(Input{Page: page}, ImageStrategies)
	require.True(t, ok)
	assert.Equal(t, "https://events.example.com/bg.jpg", img.Value)
	assert.Equal(t, "background", img.Strategy)

	page = mustPage(t, `<p>nothing here</p>`, "https://events.example.com/e/1")
	_, ok = First(Input{Page: page}, ImageStrategies)
	assert.False(t, ok)
}

func TestJoinDescriptions(t *testing.T) {
	assert.Equal(t, "Short & sweet\n\nLong <b>form</b>", JoinDescriptions("Short &amp; sweet", " Long &lt;b&gt;form&lt;/b&gt; "))
	assert.Equal(t, "only long", JoinDescriptions("", "only long"))
	assert.Equal(t, "only short", JoinDescriptions("only short", "   "))
	assert.Equal(t, "", JoinDescriptions("", ""))
}

func TestDescriptionBetweenHeadings(t *testing.T) {
	page := mustPage(t, `<body>
<h1>Jazz Night</h1>
<h2>About this event</h2>
<p>An evening of   <strong>standards</strong>.</p>
<p>Bring friends.</p>
<h2>Location</h2>
<p>Main hall</p>
</body>`, "https://events.example.com/e/1")

	desc, ok := DescriptionBetweenHeadings(Input{Page: page})
	require.True(t, ok)
	assert.Equal(t, "An evening of standards. Bring friends.", desc)
}

func TestDescriptionStopsAtSectionLabel(t *testing.T) {
	page := mustPage(t, `<body>
<div><strong>Description</strong></div>
<div>Line one</div>
<div>Refund policy</div>
<div>No refunds</div>
</body>`, "https://events.example.com/e/1")

	desc, ok := DescriptionBetweenHeadings(Input{Page: page})
	require.True(t, ok)
	assert.Equal(t, "Line one", desc)
}

func TestTextOrganizer(t *testing.T) {
	cases := []struct {
		name string
		html string
		want string
	}{
		{name: "same segment", html: `<p>Presented by The Folk Club.</p>`, want: "The Folk Club"},
		{name: "anchor after phrase", html: `<p>Organized by <a href="/o/1">Riverside Arts</a></p>`, want: "Riverside Arts"},
		{name: "heading label before name", html: `<h4>Organizer</h4><div><a href="/o/2">Late Shows Ltd</a></div>`, want: "Late Shows Ltd"},
		{name: "body label before name", html: `<div>Organiser:</div><div>Late Shows Ltd</div>`, want: "Late Shows Ltd"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			page := mustPage(t, tc.html, "https://events.example.com/e/1")
			got, ok := TextOrganizer(Input{Page: page})
			require.True(t, ok)
			assert.Equal(t, tc.want, got)
		})
	}

	page := mustPage(t, `<p>No credits on this page.</p>`, "https://events.example.com/e/1")
	_, ok := TextOrganizer(Input{Page: page})
	assert.False(t, ok)
}

func TestParsePageSegments(t *testing.T) {
	page := mustPage(t, `<html><head><title>T</title><meta name="description" content="D"></head>
<body><h2>Heading <em>one</em></h2><p>Body <span>text</span> <a href="#">link</a> tail</p></body></html>`, "https://events.example.com/")

	assert.Equal(t, "D", page.MetaValue("description"))
	assert.Equal(t, []Segment{
		{Kind: SegmentHeading, Text: "Heading one"},
		{Kind: SegmentBody, Text: "Body text"},
		{Kind: SegmentAnchor, Text: "link"},
		{Kind: SegmentBody, Text: "tail"},
	}, page.Segments)
}

func TestResolveURL(t *testing.T) {
	base, err := url.Parse("https://events.example.com/e/1/")
	require.NoError(t, err)

	got, ok := ResolveURL(base, "../img/a.png")
	require.True(t, ok)
	assert.Equal(t, "https://events.example.com/e/img/a.png", got)

	got, ok = ResolveURL(base, "//cdn.example.com/b.png")
	require.True(t, ok)
	assert.Equal(t, "https://cdn.example.com/b.png", got)

	_, ok = ResolveURL(nil, "/relative.png")
	assert.False(t, ok)
	_, ok = ResolveURL(base, "javascript:alert(1)")
	assert.False(t, ok)
}

func TestMetaDescriptionIgnoresPlainMetaTag(t *testing.T) {
	page := mustPage(t, `<html><head><meta name="description" content="Site boilerplate"></head></html>`, "https://events.example.com/")
	_, ok := MetaDescription(Input{Page: page})
	assert.False(t, ok)

	page = mustPage(t, `<html><head><meta name="description" content="Site boilerplate">
<meta property="og:description" content="Late show, doors at eight"></head></html>`, "https://events.example.com/")
	got, ok := MetaDescription(Input{Page: page})
	require.True(t, ok)
	assert.Equal(t, "Late show, doors at eight", got)
}
