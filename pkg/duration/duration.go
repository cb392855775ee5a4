// Package duration provides human-readable duration parsing and
// formatting. Parsing extends Go's time.ParseDuration with days and weeks;
// formatting renders the largest whole units down to seconds.
package duration

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const (
	// Day is 24 hours.
	Day = 24 * time.Hour
	// Week is 7 days.
	Week = 7 * Day
)

// extendedUnits maps the extra unit spellings to their hour multiplier.
var extendedUnits = map[string]int64{
	"w":     7 * 24,
	"wk":    7 * 24,
	"wks":   7 * 24,
	"week":  7 * 24,
	"weeks": 7 * 24,
	"d":     24,
	"day":   24,
	"days":  24,
}

// extendedPattern matches day and week components with optional whitespace
// between number and unit, e.g. "30d", "2 weeks", "1w2d".
var extendedPattern = regexp.MustCompile(`(?i)(\d+)\s*(weeks?|wks?|w|days?|d)`)

// Parse parses a duration string. Day and week units are converted to
// hours, the rest is handed to time.ParseDuration. Whitespace between a
// number and its unit is allowed.
func Parse(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("duration: empty string")
	}

	negative := strings.HasPrefix(s, "-")
	if negative {
		s = strings.TrimSpace(strings.TrimPrefix(s, "-"))
	}

	var hours int64
	remaining := extendedPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := extendedPattern.FindStringSubmatch(match)
		value, _ := strconv.ParseInt(parts[1], 10, 64)
		if mult, ok := extendedUnits[strings.ToLower(parts[2])]; ok {
			hours += value * mult
		}
		return ""
	})
	remaining = strings.Join(strings.Fields(remaining), "")

	str := remaining
	if hours > 0 {
		str = fmt.Sprintf("%dh%s", hours, remaining)
	}
	if str == "" {
		str = "0s"
	}

	d, err := time.ParseDuration(str)
	if err != nil {
		return 0, fmt.Errorf("duration: %w", err)
	}
	if negative {
		d = -d
	}
	return d, nil
}

// MustParse is Parse that panics on error. For constants only.
func MustParse(s string) time.Duration {
	d, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return d
}

// Format renders a duration with its largest whole units, omitting zero
// components and anything below one second: 90061s becomes "1d1h1m1s".
func Format(d time.Duration) string {
	if d == 0 {
		return "0s"
	}
	negative := d < 0
	if negative {
		d = -d
	}

	var b strings.Builder
	for _, unit := range []struct {
		size  time.Duration
		label string
	}{
		{Week, "w"},
		{Day, "d"},
		{time.Hour, "h"},
		{time.Minute, "m"},
		{time.Second, "s"},
	} {
		if n := d / unit.size; n > 0 {
			fmt.Fprintf(&b, "%d%s", n, unit.label)
			d -= n * unit.size
		}
	}

	if b.Len() == 0 {
		return "0s"
	}
	if negative {
		return "-" + b.String()
	}
	return b.String()
}
