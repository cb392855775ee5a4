package duration

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected time.Duration
		wantErr  bool
	}{
		{name: "standard go format", input: "90m", expected: 90 * time.Minute},
		{name: "days", input: "3d", expected: 3 * Day},
		{name: "days with whitespace", input: "3 days", expected: 3 * Day},
		{name: "weeks", input: "2w", expected: 2 * Week},
		{name: "week word", input: "1 week", expected: Week},
		{name: "mixed units", input: "1w2d12h", expected: Week + 2*Day + 12*time.Hour},
		{name: "mixed with spaces", input: "1 week 2 days", expected: Week + 2*Day},
		{name: "negative", input: "-2d", expected: -2 * Day},
		{name: "case insensitive", input: "1W", expected: Week},
		{name: "empty", input: "", wantErr: true},
		{name: "garbage", input: "soon", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestFormat(t *testing.T) {
	tests := []struct {
		name     string
		input    time.Duration
		expected string
	}{
		{name: "zero", input: 0, expected: "0s"},
		{name: "seconds only", input: 42 * time.Second, expected: "42s"},
		{name: "skips zero components", input: time.Hour + 10*time.Second, expected: "1h10s"},
		{name: "full spread", input: Day + time.Hour + time.Minute + time.Second, expected: "1d1h1m1s"},
		{name: "weeks", input: 2*Week + 3*Day, expected: "2w3d"},
		{name: "sub-second truncates", input: 1500 * time.Millisecond, expected: "1s"},
		{name: "below one second", input: 10 * time.Millisecond, expected: "0s"},
		{name: "negative", input: -(time.Hour + time.Minute), expected: "-1h1m"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Format(tt.input))
		})
	}
}

func TestParseFormatStable(t *testing.T) {
	for _, s := range []string{"1w2d12h", "3d", "1h30m"} {
		d := MustParse(s)
		assert.Equal(t, d, MustParse(Format(d)))
	}
}
