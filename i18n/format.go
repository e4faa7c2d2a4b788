package i18n

import (
	"strconv"
	"time"
)

var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

func parseTimestamp(value string) (time.Time, bool) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// FormatDate renders value as a medium date in the configured time zone.
// Values that are not timestamps are returned unchanged.
func (c *Catalog) FormatDate(value, locale string) string {
	if value == "" {
		return ""
	}
	t, ok := parseTimestamp(value)
	if !ok {
		return value
	}
	return mediumDate(t.In(c.loc), locale)
}

// FormatDateTime renders value as a medium date followed by a short time.
func (c *Catalog) FormatDateTime(value, locale string) string {
	if value == "" {
		return ""
	}
	t, ok := parseTimestamp(value)
	if !ok {
		return value
	}
	t = t.In(c.loc)
	switch locale {
	case "ko":
		return mediumDate(t, locale) + " " + koreanClock(t)
	case "ja":
		return mediumDate(t, locale) + " " + t.Format("15:04")
	default:
		return mediumDate(t, locale) + ", " + t.Format("3:04 PM")
	}
}

func mediumDate(t time.Time, locale string) string {
	switch locale {
	case "ko":
		return strconv.Itoa(t.Year()) + ". " + strconv.Itoa(int(t.Month())) + ". " + strconv.Itoa(t.Day()) + "."
	case "ja":
		return t.Format("2006/01/02")
	default:
		return t.Format("Jan 2, 2006")
	}
}

func koreanClock(t time.Time) string {
	period := "오전"
	if t.Hour() >= 12 {
		period = "오후"
	}
	return period + " " + t.Format("3:04")
}
