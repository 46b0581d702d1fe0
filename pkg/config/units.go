package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ParseInformationSize parses strings like "1B", "1KB" (=1000), "1KiB"
// (=1024), up to TiB, case-insensitive with an optional space before the
// unit, into a byte count. This is stdlib-only: it is a tiny closed-form
// unit grammar (a handful of suffix/multiplier pairs), not something that
// warrants pulling in a parsing library for.
func ParseInformationSize(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("parse information size: empty value")
	}

	numEnd := 0
	for numEnd < len(s) && (s[numEnd] == '.' || s[numEnd] == '-' || (s[numEnd] >= '0' && s[numEnd] <= '9')) {
		numEnd++
	}
	if numEnd == 0 {
		return 0, fmt.Errorf("parse information size %q: no leading number", s)
	}

	value, err := strconv.ParseFloat(s[:numEnd], 64)
	if err != nil {
		return 0, fmt.Errorf("parse information size %q: %w", s, err)
	}

	unit := strings.ToUpper(strings.TrimSpace(s[numEnd:]))
	multiplier, ok := informationUnits[unit]
	if !ok {
		return 0, fmt.Errorf("parse information size %q: unknown unit %q", s, unit)
	}

	return int64(value * float64(multiplier)), nil
}

var informationUnits = map[string]int64{
	"":    1,
	"B":   1,
	"KB":  1_000,
	"KIB": 1024,
	"MB":  1_000_000,
	"MIB": 1024 * 1024,
	"GB":  1_000_000_000,
	"GIB": 1024 * 1024 * 1024,
	"TB":  1_000_000_000_000,
	"TIB": 1024 * 1024 * 1024 * 1024,
}

// ParseTimeInterval parses strings like "30SEC", "5 MINUTES", "2HR",
// "1DAY", "3WK" (plural "S" optional, case-insensitive, space-optional)
// into a time.Duration.
func ParseTimeInterval(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("parse time interval: empty value")
	}

	numEnd := 0
	for numEnd < len(s) && (s[numEnd] == '.' || s[numEnd] == '-' || (s[numEnd] >= '0' && s[numEnd] <= '9')) {
		numEnd++
	}
	if numEnd == 0 {
		return 0, fmt.Errorf("parse time interval %q: no leading number", s)
	}

	value, err := strconv.ParseFloat(s[:numEnd], 64)
	if err != nil {
		return 0, fmt.Errorf("parse time interval %q: %w", s, err)
	}

	unit := strings.ToUpper(strings.TrimSpace(s[numEnd:]))
	unit = strings.TrimSuffix(unit, "S")
	perUnit, ok := timeUnits[unit]
	if !ok {
		return 0, fmt.Errorf("parse time interval %q: unknown unit %q", s, unit)
	}

	return time.Duration(value * float64(perUnit)), nil
}

var timeUnits = map[string]time.Duration{
	"SEC":    time.Second,
	"SECOND": time.Second,
	"MIN":    time.Minute,
	"MINUTE": time.Minute,
	"HR":     time.Hour,
	"HOUR":   time.Hour,
	"DAY":    24 * time.Hour,
	"WK":     7 * 24 * time.Hour,
	"WEEK":   7 * 24 * time.Hour,
}
