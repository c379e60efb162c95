// Package calendar renders the catalog as an iCalendar feed.
package calendar

import (
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	"github.com/fr0stylo/venuecal/internal/app/domain"
)

const (
	productID = "-//venuecal//events//EN"
	uidSuffix = "@venuecal"

	// DefaultDuration is the length given to timed events, which carry no end.
	DefaultDuration = 2 * time.Hour
)

// FeedOptions controls feed labelling.
type FeedOptions struct {
	Name string
	// Timezone is an IANA zone name attached to timed events as TZID. Empty
	// or unknown zones produce floating local times.
	Timezone string
	// PublicURL resolves relative image references such as /uploads/x.png.
	PublicURL string
	Duration  time.Duration
}

// Feed builds a VCALENDAR with one VEVENT per event. Events with the
// unspecified time become all-day entries.
func Feed(events []domain.Event, opts FeedOptions, stamp time.Time) string {
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(productID)
	if opts.Name != "" {
		cal.SetXWRCalName(opts.Name)
	}
	tz := zoneName(opts.Timezone)
	if tz != "" {
		cal.SetXWRTimezone(tz)
	}
	duration := opts.Duration
	if duration <= 0 {
		duration = DefaultDuration
	}

	for _, event := range events {
		start, timed, err := event.StartTime(time.UTC)
		if err != nil {
			continue
		}
		vevent := cal.AddEvent(event.ID + uidSuffix)
		vevent.SetDtStampTime(stamp.UTC())
		vevent.SetSummary(event.Name)

		if timed {
			end := start.Add(duration)
			vevent.SetProperty(ical.ComponentPropertyDtStart, start.Format(localLayout), zoneParams(tz)...)
			vevent.SetProperty(ical.ComponentPropertyDtEnd, end.Format(localLayout), zoneParams(tz)...)
		} else {
			vevent.SetAllDayStartAt(start)
			vevent.SetAllDayEndAt(start.AddDate(0, 0, 1))
		}

		if description := describe(event); description != "" {
			vevent.SetDescription(description)
		}
		if event.TicketsURL != "" {
			vevent.SetURL(event.TicketsURL)
		}
		if image := absolute(opts.PublicURL, event.Image); image != "" {
			vevent.SetProperty(ical.ComponentPropertyAttach, image)
		}
	}
	return cal.Serialize()
}

const localLayout = "20060102T150405"

func zoneName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	if _, err := time.LoadLocation(name); err != nil {
		return ""
	}
	return name
}

func zoneParams(tz string) []ical.PropertyParameter {
	if tz == "" {
		return nil
	}
	return []ical.PropertyParameter{&ical.KeyValues{Key: string(ical.ParameterTzid), Value: []string{tz}}}
}

func describe(event domain.Event) string {
	parts := make([]string, 0, 2)
	if event.Organizer != "" {
		parts = append(parts, "Presented by "+event.Organizer)
	}
	if event.Description != "" {
		parts = append(parts, event.Description)
	}
	return strings.Join(parts, "\n\n")
}

func absolute(base, ref string) string {
	ref = strings.TrimSpace(ref)
	switch {
	case ref == "":
		return ""
	case strings.HasPrefix(ref, "http://"), strings.HasPrefix(ref, "https://"):
		return ref
	case base == "":
		return ""
	}
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(ref, "/")
}
