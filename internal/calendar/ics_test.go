package calendar

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/fr0stylo/venuecal/internal/app/domain"
)

var stamp = time.Date(2025, 2, 1, 9, 0, 0, 0, time.UTC)

func TestFeedTimedEventUsesLiteralLocalTime(t *testing.T) {
	feed := Feed([]domain.Event{{
		ID:         "abc",
		Name:       "Jazz Night",
		Date:       "2025-03-01",
		Time:       "19:30",
		TicketsURL: "https://tickets.example.com/jazz",
	}}, FeedOptions{Name: "The Venue", Timezone: "Europe/London"}, stamp)

	assert.Contains(t, feed, "UID:abc@venuecal")
	assert.Contains(t, feed, "SUMMARY:Jazz Night")
	assert.Contains(t, feed, "DTSTART;TZID=Europe/London:20250301T193000")
	assert.Contains(t, feed, "DTEND;TZID=Europe/London:20250301T213000")
	assert.Contains(t, feed, "X-WR-CALNAME:The Venue")
	assert.Contains(t, feed, "URL:https://tickets.example.com/jazz")
}

func TestFeedUnspecifiedTimeIsAllDay(t *testing.T) {
	feed := Feed([]domain.Event{{ID: "d", Name: "Market", Date: "2025-12-31"}}, FeedOptions{}, stamp)

	assert.Contains(t, feed, "DTSTART;VALUE=DATE:20251231")
	assert.Contains(t, feed, "DTEND;VALUE=DATE:20260101")
}

func TestFeedUnknownZoneIsFloating(t *testing.T) {
	feed := Feed([]domain.Event{{ID: "f", Name: "Talk", Date: "2025-03-01", Time: "08:05"}}, FeedOptions{Timezone: "Mars/Olympus", Duration: time.Hour}, stamp)

	assert.Contains(t, feed, "DTSTART:20250301T080500")
	assert.Contains(t, feed, "DTEND:20250301T090500")
	assert.NotContains(t, feed, "TZID")
}

func TestFeedDescriptionAndImage(t *testing.T) {
	feed := Feed([]domain.Event{{
		ID:          "i",
		Name:        "Show",
		Date:        "2025-03-01",
		Organizer:   "House Band",
		Description: "Doors at seven",
		Image:       "/uploads/x-poster.png",
	}}, FeedOptions{PublicURL: "https://venue.example.com/"}, stamp)

	assert.Contains(t, feed, "Presented by House Band")
	assert.Contains(t, feed, "ATTACH:https://venue.example.com/uploads/x-poster.png")
}

func TestFeedSkipsUndatedRecords(t *testing.T) {
	feed := Feed([]domain.Event{{ID: "bad", Name: "Broken", Date: "2025-02-30"}}, FeedOptions{}, stamp)

	assert.False(t, strings.Contains(feed, "BEGIN:VEVENT"))
	assert.Contains(t, feed, "BEGIN:VCALENDAR")
}
