// Package bytesize provides human-readable byte size parsing and
// formatting using binary (1024) units.
package bytesize

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Size is a byte count.
type Size int64

// Binary size constants.
const (
	B  Size = 1
	KB Size = 1024
	MB Size = 1024 * KB
	GB Size = 1024 * MB
	TB Size = 1024 * GB
	PB Size = 1024 * TB
)

// units maps unit spellings to their multiplier. Both "MB" and "MiB"
// style names resolve to the binary value.
var units = map[string]Size{
	"":    B,
	"b":   B,
	"k":   KB,
	"kb":  KB,
	"kib": KB,
	"m":   MB,
	"mb":  MB,
	"mib": MB,
	"g":   GB,
	"gb":  GB,
	"gib": GB,
	"t":   TB,
	"tb":  TB,
	"tib": TB,
	"p":   PB,
	"pb":  PB,
	"pib": PB,
}

var sizePattern = regexp.MustCompile(`^([\d.]+)\s*([a-zA-Z]*)$`)

// Parse parses strings like "5MB", "1.5 GiB" or "1024" (bytes) into a
// Size.
func Parse(s string) (Size, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("bytesize: empty string")
	}

	m := sizePattern.FindStringSubmatch(s)
	if m == nil {
		return 0, fmt.Errorf("bytesize: invalid size %q", s)
	}

	value, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, fmt.Errorf("bytesize: invalid number %q: %w", m[1], err)
	}

	mult, ok := units[strings.ToLower(m[2])]
	if !ok {
		return 0, fmt.Errorf("bytesize: unknown unit %q", m[2])
	}

	return Size(value * float64(mult)), nil
}

// MustParse is Parse that panics on error. For constants only.
func MustParse(s string) Size {
	size, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return size
}

// Format renders a size with its largest fitting unit, one decimal place
// when the value is not whole: "1.5GB", "512MB", "100B".
func Format(s Size) string {
	for _, u := range []struct {
		size  Size
		label string
	}{
		{PB, "PB"},
		{TB, "TB"},
		{GB, "GB"},
		{MB, "MB"},
		{KB, "KB"},
	} {
		if s >= u.size {
			value := float64(s) / float64(u.size)
			if value == float64(int64(value)) {
				return fmt.Sprintf("%d%s", int64(value), u.label)
			}
			return fmt.Sprintf("%.1f%s", value, u.label)
		}
	}
	return fmt.Sprintf("%dB", int64(s))
}

// Bytes returns the size as an int64 byte count.
func (s Size) Bytes() int64 { return int64(s) }

// String implements fmt.Stringer.
func (s Size) String() string { return Format(s) }
