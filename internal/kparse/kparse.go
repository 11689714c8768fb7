// Package kparse parses the loosely formatted values Korean utility
// services emit: dates in a dozen shapes, numbers with grouping commas and
// unit suffixes, and credential masking for diagnostics.
package kparse

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Seoul is the zone Korean services report times in. Payloads carry no
// offset, so parsing pins them here.
var Seoul = time.FixedZone("KST", 9*60*60)

// Layouts tried in order for Date. Unpadded month/day tokens also accept
// zero-padded input, and a trailing fractional second in the value parses
// without appearing in the layout.
var dateLayouts = []string{
	"2006-1-2 15:4:5",
	"2006-1-2",
	"20060102150405",
	"200601021504",
	"2006/1/2",
	"2006.1.2",
	"2006-1",
	"2006.1",
	"1/2/2006",
	"1.2.2006",
}

var (
	koreanDateRe      = regexp.MustCompile(`^(\d{4})년\s*(\d{1,2})월(?:\s*(\d{1,2})일)?$`)
	monthDayHourRe    = regexp.MustCompile(`^(\d{1,2})/(\d{1,2})\s+(\d{1,2})$`)
	numberRe          = regexp.MustCompile(`-?[\d,]+(?:\.\d+)?`)
	leadingDigitsRe   = regexp.MustCompile(`\d+`)
	yearMonthCompact  = regexp.MustCompile(`^\d{6}$`)
	fullDateCompactRe = regexp.MustCompile(`^\d{8}$`)
)

// Date parses the date and timestamp shapes the services emit. now supplies
// the year for shapes like "08/01 10" that omit it. The second return is
// false when no known shape matches.
func Date(value string, now time.Time) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}

	if ts, err := time.Parse(time.RFC3339, value); err == nil {
		return ts, true
	}

	if m := koreanDateRe.FindStringSubmatch(value); m != nil {
		year, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		day := 1
		if m[3] != "" {
			day, _ = strconv.Atoi(m[3])
		}
		return date(year, month, day), true
	}

	if m := monthDayHourRe.FindStringSubmatch(value); m != nil {
		month, _ := strconv.Atoi(m[1])
		day, _ := strconv.Atoi(m[2])
		hour, _ := strconv.Atoi(m[3])
		return time.Date(now.Year(), time.Month(month), day, hour, 0, 0, 0, Seoul), true
	}

	// Compact digit runs are ambiguous between layouts; dispatch by length
	// so "202501" never parses as a malformed yyyymmdd.
	if yearMonthCompact.MatchString(value) {
		if ts, err := time.ParseInLocation("200601", value, Seoul); err == nil {
			return ts, true
		}
		return time.Time{}, false
	}
	if fullDateCompactRe.MatchString(value) {
		if ts, err := time.ParseInLocation("20060102", value, Seoul); err == nil {
			return ts, true
		}
		return time.Time{}, false
	}

	for _, layout := range dateLayouts {
		if ts, err := time.ParseInLocation(layout, value, Seoul); err == nil {
			return ts, true
		}
	}
	return time.Time{}, false
}

func date(year, month, day int) time.Time {
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, Seoul)
}

// Number extracts a numeric amount from strings like "1,550원", "12.5 m³"
// or plain "1234". Grouping commas are dropped.
func Number(value string) (float64, bool) {
	match := numberRe.FindString(value)
	if match == "" {
		return 0, false
	}
	parsed, err := strconv.ParseFloat(strings.ReplaceAll(match, ",", ""), 64)
	if err != nil {
		return 0, false
	}
	return parsed, true
}

// LeadingInt extracts the first digit run from strings like "28분" (28
// minutes). Used for durations where the unit is part of the text.
func LeadingInt(value string) (int, bool) {
	match := leadingDigitsRe.FindString(value)
	if match == "" {
		return 0, false
	}
	parsed, err := strconv.Atoi(match)
	if err != nil {
		return 0, false
	}
	return parsed, true
}

// Mask hides the middle of a secret for diagnostics. Short values mask
// entirely so length leaks nothing.
func Mask(value string) string {
	runes := []rune(value)
	if len(runes) == 0 {
		return ""
	}
	if len(runes) <= 4 {
		return strings.Repeat("*", len(runes))
	}
	return string(runes[:2]) + strings.Repeat("*", len(runes)-4) + string(runes[len(runes)-2:])
}
