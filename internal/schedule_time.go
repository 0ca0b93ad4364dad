package internal

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	datePattern     = regexp.MustCompile(`^(\d{4})-(\d{1,2})-(\d{1,2})$`)
	clock12Pattern  = regexp.MustCompile(`^(\d{1,2})(?::(\d{2}))?\s*(am|pm)$`)
	clock24Pattern  = regexp.MustCompile(`^(\d{1,2}):(\d{2})$`)
	bareHourPattern = regexp.MustCompile(`^(\d{1,2})$`)
)

// ParseScheduleTime resolves phrases like "9am", "10:30pm", "14:00" or
// "2025-01-15 9am" to an absolute time in now's location.
//
// A time without a date that is not strictly after now resolves to the same
// wall-clock time tomorrow. A full date and time is returned unchanged even
// when it lies in the past.
func ParseScheduleTime(phrase string, now time.Time) (time.Time, error) {
	s := strings.ToLower(strings.TrimSpace(phrase))
	if s == "" {
		return time.Time{}, fmt.Errorf("%w: empty input", ErrParseFailure)
	}

	if datePart, timePart, ok := strings.Cut(s, " "); ok && datePattern.MatchString(datePart) {
		year, month, day, err := parseDate(datePart)
		if err != nil {
			return time.Time{}, err
		}
		hour, minute, err := parseClock(strings.TrimSpace(timePart), false)
		if err != nil {
			return time.Time{}, err
		}
		return time.Date(year, month, day, hour, minute, 0, 0, now.Location()), nil
	}

	hour, minute, err := parseClock(s, true)
	if err != nil {
		return time.Time{}, err
	}
	result := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())
	if !result.After(now) {
		result = result.AddDate(0, 0, 1)
	}
	return result, nil
}

func parseDate(s string) (int, time.Month, int, error) {
	m := datePattern.FindStringSubmatch(s)
	if m == nil {
		return 0, 0, 0, fmt.Errorf("%w: bad date %q", ErrParseFailure, s)
	}
	year, _ := strconv.Atoi(m[1])
	month, _ := strconv.Atoi(m[2])
	day, _ := strconv.Atoi(m[3])

	// time.Date normalises out-of-range values, so round-trip to reject them
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if t.Year() != year || int(t.Month()) != month || t.Day() != day {
		return 0, 0, 0, fmt.Errorf("%w: no such date %q", ErrParseFailure, s)
	}
	return year, time.Month(month), day, nil
}

// parseClock returns hour and minute for "9am", "9 am", "10:30pm" or "14:00".
// A bare 24-hour hour ("14") is only accepted when allowBareHour is set.
func parseClock(s string, allowBareHour bool) (int, int, error) {
	if m := clock12Pattern.FindStringSubmatch(s); m != nil {
		hour, _ := strconv.Atoi(m[1])
		minute := 0
		if m[2] != "" {
			minute, _ = strconv.Atoi(m[2])
		}
		if hour < 1 || hour > 12 || minute > 59 {
			return 0, 0, fmt.Errorf("%w: bad time %q", ErrParseFailure, s)
		}
		hour %= 12
		if m[3] == "pm" {
			hour += 12
		}
		return hour, minute, nil
	}

	if m := clock24Pattern.FindStringSubmatch(s); m != nil {
		hour, _ := strconv.Atoi(m[1])
		minute, _ := strconv.Atoi(m[2])
		if hour > 23 || minute > 59 {
			return 0, 0, fmt.Errorf("%w: bad time %q", ErrParseFailure, s)
		}
		return hour, minute, nil
	}

	if allowBareHour {
		if m := bareHourPattern.FindStringSubmatch(s); m != nil {
			hour, _ := strconv.Atoi(m[1])
			if hour > 23 {
				return 0, 0, fmt.Errorf("%w: bad hour %q", ErrParseFailure, s)
			}
			return hour, 0, nil
		}
	}

	return 0, 0, fmt.Errorf("%w: %q", ErrParseFailure, s)
}
