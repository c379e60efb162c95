package domain

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

const (
	dateLayout  = "2006-01-02"
	clockLayout = "15:04"
)

// Date is a calendar date without a time zone, formatted YYYY-MM-DD.
type Date string

// Clock is a 24-hour wall-clock time formatted HH:MM.
// The zero value is the "unspecified" sentinel, distinct from midnight.
type Clock string

// TimeUnspecified marks an event whose source gave no time of day.
const TimeUnspecified Clock = ""

// ParseDate validates a YYYY-MM-DD string as a real calendar date.
func ParseDate(value string) (Date, error) {
	value = strings.TrimSpace(value)
	t, err := time.Parse(dateLayout, value)
	if err != nil {
		return "", fmt.Errorf("invalid date %q: %w", value, err)
	}
	return Date(t.Format(dateLayout)), nil
}

// NewDate builds a Date from components, rejecting impossible dates.
func NewDate(year int, month time.Month, day int) (Date, bool) {
	t := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	if t.Year() != year || t.Month() != month || t.Day() != day {
		return "", false
	}
	return Date(t.Format(dateLayout)), true
}

// ParseClock validates an HH:MM string. An empty string yields the sentinel.
func ParseClock(value string) (Clock, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return TimeUnspecified, nil
	}
	t, err := time.Parse(clockLayout, value)
	if err != nil {
		return "", fmt.Errorf("invalid time %q: %w", value, err)
	}
	return Clock(t.Format(clockLayout)), nil
}

// NewClock builds a Clock from hour and minute.
func NewClock(hour, minute int) (Clock, bool) {
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return "", false
	}
	return Clock(fmt.Sprintf("%02d:%02d", hour, minute)), true
}

// canonicalDate returns the YYYY-MM-DD form of d, or d trimmed when it does
// not parse so validation still rejects it.
func canonicalDate(d Date) Date {
	if parsed, err := ParseDate(string(d)); err == nil {
		return parsed
	}
	return Date(strings.TrimSpace(string(d)))
}

// canonicalClock returns the zero-padded HH:MM form of c ("9:30" -> "09:30").
func canonicalClock(c Clock) Clock {
	if parsed, err := ParseClock(string(c)); err == nil {
		return parsed
	}
	return Clock(strings.TrimSpace(string(c)))
}

// Specified reports whether the clock carries a real time of day.
func (c Clock) Specified() bool {
	return c != TimeUnspecified
}

// sortKey places the unspecified sentinel after every concrete time of a day.
func (c Clock) sortKey() string {
	if !c.Specified() {
		return "24:00"
	}
	return string(c)
}

// IsZero reports whether the date is absent.
func (d Date) IsZero() bool {
	return strings.TrimSpace(string(d)) == ""
}

// Time returns the date at midnight in loc.
func (d Date) Time(loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	return time.ParseInLocation(dateLayout, string(d), loc)
}

// Event is the canonical persisted record for one calendar entry.
type Event struct {
	ID          string `json:"id" yaml:"id" validate:"required"`
	Name        string `json:"name" yaml:"name" validate:"required"`
	Date        Date   `json:"date" yaml:"date" validate:"required,caldate"`
	Time        Clock  `json:"time" yaml:"time" validate:"clock"`
	Organizer   string `json:"organizer" yaml:"organizer"`
	Image       string `json:"image" yaml:"image"`
	TicketsURL  string `json:"ticketsUrl,omitempty" yaml:"ticketsUrl" validate:"omitempty,http_url"`
	Description string `json:"description,omitempty" yaml:"description"`
}

// Draft is a partial record produced by a source adapter. Every field is optional.
type Draft struct {
	Name        string `json:"name"`
	Date        Date   `json:"date"`
	Time        Clock  `json:"time"`
	Organizer   string `json:"organizer"`
	Image       string `json:"image"`
	TicketsURL  string `json:"ticketsUrl"`
	Description string `json:"description"`
}

// Patch carries the fields an update changes; nil fields are left untouched.
type Patch struct {
	Name        *string `json:"name,omitempty"`
	Date        *Date   `json:"date,omitempty"`
	Time        *Clock  `json:"time,omitempty"`
	Organizer   *string `json:"organizer,omitempty"`
	Image       *string `json:"image,omitempty"`
	TicketsURL  *string `json:"ticketsUrl,omitempty"`
	Description *string `json:"description,omitempty"`
}

// Materialize turns a draft into a record with the given id. Date and time are
// stored in canonical form so string ordering matches calendar ordering.
func (d Draft) Materialize(id string) Event {
	return Event{
		ID:          id,
		Name:        strings.TrimSpace(d.Name),
		Date:        canonicalDate(d.Date),
		Time:        canonicalClock(d.Time),
		Organizer:   strings.TrimSpace(d.Organizer),
		Image:       strings.TrimSpace(d.Image),
		TicketsURL:  strings.TrimSpace(d.TicketsURL),
		Description: strings.TrimSpace(d.Description),
	}
}

// Draft returns the record's fields without its id.
func (e Event) Draft() Draft {
	return Draft{
		Name:        e.Name,
		Date:        e.Date,
		Time:        e.Time,
		Organizer:   e.Organizer,
		Image:       e.Image,
		TicketsURL:  e.TicketsURL,
		Description: e.Description,
	}
}

// Apply merges patch fields onto e. The id is never changed.
func (e Event) Apply(p Patch) Event {
	if p.Name != nil {
		e.Name = strings.TrimSpace(*p.Name)
	}
	if p.Date != nil {
		e.Date = canonicalDate(*p.Date)
	}
	if p.Time != nil {
		e.Time = canonicalClock(*p.Time)
	}
	if p.Organizer != nil {
		e.Organizer = strings.TrimSpace(*p.Organizer)
	}
	if p.Image != nil {
		e.Image = strings.TrimSpace(*p.Image)
	}
	if p.TicketsURL != nil {
		e.TicketsURL = strings.TrimSpace(*p.TicketsURL)
	}
	if p.Description != nil {
		e.Description = strings.TrimSpace(*p.Description)
	}
	return e
}

// Before reports whether e orders strictly before other by (date, time).
func (e Event) Before(other Event) bool {
	if e.Date != other.Date {
		return e.Date < other.Date
	}
	return e.Time.sortKey() < other.Time.sortKey()
}

// SortEvents orders events by (date, time) keeping the relative order of ties.
func SortEvents(events []Event) {
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Before(events[j])
	})
}

// IsPast reports whether the event is over at now. An unspecified time counts
// as the end of its day so same-day events stay current until midnight.
func (e Event) IsPast(now time.Time) bool {
	loc := now.Location()
	day, err := e.Date.Time(loc)
	if err != nil {
		return false
	}
	if !e.Time.Specified() {
		return !now.Before(day.AddDate(0, 0, 1))
	}
	clock, err := time.Parse(clockLayout, string(e.Time))
	if err != nil {
		return !now.Before(day.AddDate(0, 0, 1))
	}
	start := day.Add(time.Duration(clock.Hour())*time.Hour + time.Duration(clock.Minute())*time.Minute)
	return now.After(start)
}

// StartTime returns the event start in loc, and false when the time is unspecified.
func (e Event) StartTime(loc *time.Location) (time.Time, bool, error) {
	day, err := e.Date.Time(loc)
	if err != nil {
		return time.Time{}, false, err
	}
	if !e.Time.Specified() {
		return day, false, nil
	}
	clock, err := time.Parse(clockLayout, string(e.Time))
	if err != nil {
		return time.Time{}, false, err
	}
	return day.Add(time.Duration(clock.Hour())*time.Hour + time.Duration(clock.Minute())*time.Minute), true, nil
}
