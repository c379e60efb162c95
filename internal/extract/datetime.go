package extract

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/fr0stylo/venuecal/internal/app/domain"
)

var (
	isoTimestamp = regexp.MustCompile(`^\s*(\d{4})-(\d{2})-(\d{2})(?:[T ](\d{1,2}):(\d{2})(?::\d{2}(?:\.\d+)?)?)?`)
	csvTimestamp = regexp.MustCompile(`^\s*(\d{4})-(\d{2})-(\d{2}) (\d{2}):(\d{2}):(\d{2})\s*$`)
	clockText    = regexp.MustCompile(`(?i)\b(\d{1,2}):(\d{2})\s*([ap])\.?\s?m\b\.?`)
)

// ParseTimestamp reads an ISO-8601 style timestamp literally. A trailing
// offset or zone is ignored; the written local date and time are kept.
func ParseTimestamp(value string) (DateTime, bool) {
	m := isoTimestamp.FindStringSubmatch(value)
	if m == nil {
		return DateTime{}, false
	}
	date, ok := dateFromParts(m[1], m[2], m[3])
	if !ok {
		return DateTime{}, false
	}
	if m[4] == "" {
		return DateTime{Date: date, Time: domain.TimeUnspecified}, true
	}
	clock, ok := clockFromParts(m[4], m[5])
	if !ok {
		return DateTime{}, false
	}
	return DateTime{Date: date, Time: clock}, true
}

// ParseCSVTimestamp reads the strict spreadsheet form YYYY-MM-DD HH:MM:SS.
// Midnight is the placeholder for "no time given".
func ParseCSVTimestamp(value string) (DateTime, bool) {
	m := csvTimestamp.FindStringSubmatch(value)
	if m == nil {
		return DateTime{}, false
	}
	date, ok := dateFromParts(m[1], m[2], m[3])
	if !ok {
		return DateTime{}, false
	}
	if sec, _ := strconv.Atoi(m[6]); sec > 59 {
		return DateTime{}, false
	}
	if m[4] == "00" && m[5] == "00" && m[6] == "00" {
		return DateTime{Date: date, Time: domain.TimeUnspecified}, true
	}
	clock, ok := clockFromParts(m[4], m[5])
	if !ok {
		return DateTime{}, false
	}
	return DateTime{Date: date, Time: clock}, true
}

// FindClockText returns the first H:MM AM/PM time in text.
func FindClockText(text string) (domain.Clock, bool) {
	for _, m := range clockText.FindAllStringSubmatch(text, -1) {
		hour, err := strconv.Atoi(m[1])
		if err != nil || hour < 1 || hour > 12 {
			continue
		}
		minute, err := strconv.Atoi(m[2])
		if err != nil {
			continue
		}
		hour %= 12
		if strings.EqualFold(m[3], "p") {
			hour += 12
		}
		if clock, ok := domain.NewClock(hour, minute); ok {
			return clock, true
		}
	}
	return "", false
}

func dateFromParts(y, m, d string) (domain.Date, bool) {
	year, err1 := strconv.Atoi(y)
	month, err2 := strconv.Atoi(m)
	day, err3 := strconv.Atoi(d)
	if err1 != nil || err2 != nil || err3 != nil || month < 1 || month > 12 {
		return "", false
	}
	return domain.NewDate(year, time.Month(month), day)
}

func clockFromParts(h, m string) (domain.Clock, bool) {
	hour, err1 := strconv.Atoi(h)
	minute, err2 := strconv.Atoi(m)
	if err1 != nil || err2 != nil {
		return "", false
	}
	return domain.NewClock(hour, minute)
}

// JSONLDDateTime reads startDate from the page's event object.
func JSONLDDateTime(in Input) (DateTime, bool) {
	obj, ok := EventObject(in.Page)
	if !ok {
		return DateTime{}, false
	}
	return ParseTimestamp(stringField(obj, "startDate"))
}

var startTimeMetaKeys = []string{
	"event:start_time",
	"og:event:start_time",
	"startdate",
	"event:start_date",
}

// MetaDateTime reads the start timestamp from page metadata.
func MetaDateTime(in Input) (DateTime, bool) {
	if in.Page == nil {
		return DateTime{}, false
	}
	for _, key := range startTimeMetaKeys {
		if v := in.Page.MetaValue(key); v != "" {
			if dt, ok := ParseTimestamp(v); ok {
				return dt, true
			}
		}
	}
	return DateTime{}, false
}

// TextDateTime scans visible text for a time of day. It needs a date that is
// already known and yields nothing without one.
func TextDateTime(in Input) (DateTime, bool) {
	if in.Known.Date.IsZero() || in.Page == nil {
		return DateTime{}, false
	}
	clock, ok := FindClockText(in.Page.Text())
	if !ok {
		return DateTime{}, false
	}
	return DateTime{Date: in.Known.Date, Time: clock}, true
}

// CSVDateTime reads the row's start cell.
func CSVDateTime(in Input) (DateTime, bool) {
	return ParseCSVTimestamp(in.Cell)
}

var (
	jsonldDateTime = Strategy[DateTime]{Name: "jsonld", Extract: JSONLDDateTime}
	metaDateTime   = Strategy[DateTime]{Name: "meta", Extract: MetaDateTime}
	textDateTime   = Strategy[DateTime]{Name: "text", Extract: TextDateTime}
	csvDateTime    = Strategy[DateTime]{Name: "csv", Extract: CSVDateTime}
)

// PageDateTimeStrategies is the priority order for single event pages.
var PageDateTimeStrategies = []Strategy[DateTime]{jsonldDateTime, metaDateTime, textDateTime}

// RowDateTimeStrategies is the priority order for spreadsheet rows; the page
// strategies run against the row's linked page.
var RowDateTimeStrategies = []Strategy[DateTime]{csvDateTime, jsonldDateTime, metaDateTime, textDateTime}
