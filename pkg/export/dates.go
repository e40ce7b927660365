package export

import (
	"strings"
	"time"

	"golang.org/x/text/language"
)

// DefaultLocale matches the operator locale of the original deployment.
const DefaultLocale = "es-ES"

var (
	localeSpanish  = language.MustParse("es-ES")
	localeAmerican = language.AmericanEnglish

	localeMatcher = language.NewMatcher([]language.Tag{
		language.Und,
		localeSpanish,
		localeAmerican,
	})

	localeLayouts = map[language.Tag]string{
		localeSpanish:  "02/01/2006, 15:04",
		localeAmerican: "01/02/2006, 03:04 PM",
	}

	// English outside the United States writes the day first.
	dayFirstEnglishLayout = "02/01/2006, 15:04"
	regionUS              = language.MustParseRegion("US")

	fallbackLayout = "2006-01-02 15:04"

	inputLayouts = []string{
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02T15:04:05.999999999",
		"2006-01-02T15:04:05",
		"2006-01-02T15:04",
		"2006-01-02 15:04:05",
		"2006-01-02 15:04",
		"2006-01-02",
	}
)

// DateFormatter renders backend timestamps for one locale.
type DateFormatter struct {
	layout   string
	location *time.Location
}

// NewDateFormatter picks a layout for locale ("es-ES", "en-US", ...).
// Unknown or unparsable locales fall back to "yyyy-mm-dd hh:mm". A nil
// location means time.Local.
func NewDateFormatter(locale string, location *time.Location) DateFormatter {
	if location == nil {
		location = time.Local
	}
	return DateFormatter{layout: layoutFor(locale), location: location}
}

func layoutFor(locale string) string {
	locale = strings.TrimSpace(locale)
	if locale == "" {
		locale = DefaultLocale
	}
	tag, err := language.Parse(locale)
	if err != nil {
		return fallbackLayout
	}
	_, idx, confidence := localeMatcher.Match(tag)
	if confidence == language.No || idx == 0 {
		return fallbackLayout
	}
	switch idx {
	case 1:
		return localeLayouts[localeSpanish]
	default:
		if region, conf := tag.Region(); conf == language.Exact && region != regionUS {
			return dayFirstEnglishLayout
		}
		return localeLayouts[localeAmerican]
	}
}

// Format renders raw. Values that do not parse as a timestamp are returned
// unchanged; blank values render as "".
func (f DateFormatter) Format(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	parsed, ok := ParseTimestamp(raw, f.location)
	if !ok {
		return raw
	}
	return parsed.In(f.location).Format(f.layout)
}

// ParseTimestamp accepts RFC 3339 and the naive ISO layouts emitted by the
// backend. Naive values are read in loc.
func ParseTimestamp(raw string, loc *time.Location) (time.Time, bool) {
	if loc == nil {
		loc = time.Local
	}
	for _, layout := range inputLayouts {
		if parsed, err := time.ParseInLocation(layout, raw, loc); err == nil {
			return parsed, true
		}
	}
	return time.Time{}, false
}
