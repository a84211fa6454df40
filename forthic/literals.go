package forthic

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// ============================================================================
// Boolean Literals
// ============================================================================

// ToBool parses boolean literals: TRUE, FALSE
func ToBool(str string) (interface{}, bool) {
	if str == "TRUE" {
		return true, true
	}
	if str == "FALSE" {
		return false, true
	}
	return nil, false
}

// ============================================================================
// Numeric Literals
// ============================================================================

// ToFloat parses float literals: 3.14, -2.5, 0.0
// Must contain a decimal point
func ToFloat(str string) (interface{}, bool) {
	if !strings.Contains(str, ".") {
		return nil, false
	}
	result, err := strconv.ParseFloat(str, 64)
	if err != nil {
		return nil, false
	}
	return result, true
}

// ToInt parses integer literals: 42, -10, 0
// Round-trip checked so "42abc" is rejected
func ToInt(str string) (interface{}, bool) {
	if strings.Contains(str, ".") {
		return nil, false
	}
	result, err := strconv.ParseInt(str, 10, 64)
	if err != nil {
		return nil, false
	}
	if strconv.FormatInt(result, 10) != str {
		return nil, false
	}
	return result, true
}

// ============================================================================
// Time Literals
// ============================================================================

// ToTime parses time literals: 9:00, 11:30 PM, 22:15
func ToTime(str string) (interface{}, bool) {
	// Pattern: HH:MM or HH:MM AM/PM
	re := regexp.MustCompile(`^(\d{1,2}):(\d{2})(?:\s*(AM|PM))?$`)
	match := re.FindStringSubmatch(str)
	if match == nil {
		return nil, false
	}

	hours, err := strconv.Atoi(match[1])
	if err != nil {
		return nil, false
	}
	minutes, err := strconv.Atoi(match[2])
	if err != nil {
		return nil, false
	}
	meridiem := match[3]

	// Adjust for AM/PM; "22:15 AM" style anomalies wrap back into range
	if meridiem == "PM" && hours < 12 {
		hours += 12
	} else if meridiem == "AM" && hours == 12 {
		hours = 0
	} else if meridiem == "AM" && hours > 12 {
		hours -= 12
	}

	if hours > 23 || minutes >= 60 {
		return nil, false
	}

	return NewClockTime(hours, minutes), true
}

// ============================================================================
// Date Literals
// ============================================================================

// ToLiteralDate creates a date literal handler
// Parses: 2020-06-05, with YYYY/MM/DD wildcards substituted from today in
// the given timezone
func ToLiteralDate(timezone *time.Location) LiteralHandler {
	return func(str string) (interface{}, bool) {
		re := regexp.MustCompile(`^(\d{4}|YYYY)-(\d{2}|MM)-(\d{2}|DD)$`)
		match := re.FindStringSubmatch(str)
		if match == nil {
			return nil, false
		}

		now := time.Now().In(timezone)
		year := now.Year()
		month := int(now.Month())
		day := now.Day()

		if match[1] != "YYYY" {
			y, err := strconv.Atoi(match[1])
			if err != nil {
				return nil, false
			}
			year = y
		}

		if match[2] != "MM" {
			m, err := strconv.Atoi(match[2])
			if err != nil {
				return nil, false
			}
			month = m
		}

		if match[3] != "DD" {
			d, err := strconv.Atoi(match[3])
			if err != nil {
				return nil, false
			}
			day = d
		}

		return NewPlainDate(year, time.Month(month), day, timezone), true
	}
}

// ============================================================================
// ZonedDateTime Literals
// ============================================================================

// ToZonedDateTime creates a zoned datetime literal handler
// Parses:
// - 2025-05-24T10:15:00[America/Los_Angeles] (IANA named timezone, RFC 9557)
// - 2025-05-24T10:15:00-07:00[America/Los_Angeles] (offset + IANA timezone)
// - 2025-05-24T10:15:00Z (UTC)
// - 2025-05-24T10:15:00-05:00 (offset timezone)
// - 2025-05-24T10:15:00 (uses the interpreter's timezone)
func ToZonedDateTime(timezone *time.Location) LiteralHandler {
	return func(str string) (interface{}, bool) {
		if !strings.Contains(str, "T") {
			return nil, false
		}

		// IANA named timezone in bracket notation (RFC 9557)
		if strings.Contains(str, "[") && strings.HasSuffix(str, "]") {
			bracketStart := strings.Index(str, "[")
			bracketEnd := strings.Index(str, "]")
			tzName := str[bracketStart+1 : bracketEnd]

			loc, err := time.LoadLocation(tzName)
			if err != nil {
				return nil, false
			}

			dtStr := str[:bracketStart]

			// An explicit offset pins the instant; the instant is then
			// converted into the named zone
			if strings.Contains(dtStr, "+") || strings.LastIndex(dtStr, "-") > 10 {
				t, err := time.Parse(time.RFC3339, dtStr)
				if err != nil {
					return nil, false
				}
				return t.In(loc), true
			}

			// No offset: the wall clock is read in the named zone
			t, err := time.Parse("2006-01-02T15:04:05", dtStr)
			if err != nil {
				return nil, false
			}
			return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), loc), true
		}

		// Explicit UTC (Z suffix)
		if strings.HasSuffix(str, "Z") {
			t, err := time.Parse(time.RFC3339, str)
			if err != nil {
				return nil, false
			}
			return t.UTC(), true
		}

		// Explicit timezone offset (+05:00, -05:00)
		offsetRe := regexp.MustCompile(`[+-]\d{2}:\d{2}$`)
		if offsetRe.MatchString(str) {
			t, err := time.Parse(time.RFC3339, str)
			if err != nil {
				return nil, false
			}
			return t.UTC(), true
		}

		// No timezone specified, use the interpreter's timezone
		t, err := time.Parse("2006-01-02T15:04:05", str)
		if err != nil {
			return nil, false
		}
		return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), timezone), true
	}
}
