package backends

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLegacyDate(t *testing.T) {
	tests := []struct {
		input string
		want  time.Time
	}{
		{"1400000000", time.Unix(1400000000, 0).UTC()},
		{"0", time.Unix(0, 0).UTC()},
		{"2014-05-13 16:53:20", time.Date(2014, 5, 13, 16, 53, 20, 0, time.UTC)},
		{" 2014-05-13 16:53:20 ", time.Date(2014, 5, 13, 16, 53, 20, 0, time.UTC)},
	}
	for _, tt := range tests {
		got, err := parseLegacyDate(tt.input)
		require.NoError(t, err, "parseLegacyDate(%q)", tt.input)
		assert.True(t, tt.want.Equal(got), "parseLegacyDate(%q) = %v, want %v", tt.input, got, tt.want)
	}
}

func TestParseLegacyDate_Invalid(t *testing.T) {
	for _, input := range []string{"", "yesterday", "2014-05-13T16:53:20Z", "12a4"} {
		_, err := parseLegacyDate(input)
		assert.Error(t, err, "parseLegacyDate(%q)", input)
	}
}

func TestParseISODate(t *testing.T) {
	want := time.Date(2014, 6, 1, 12, 30, 0, 0, time.UTC)
	for _, input := range []string{
		"2014-06-01T12:30:00Z",
		"2014-06-01T12:30:00+0000",
		"2014-06-01T12:30:00+00:00",
		"2014-06-01T08:30:00-04:00",
		"2014-06-01T14:30:00+02:00",
	} {
		got, err := parseISODate(input)
		require.NoError(t, err, "parseISODate(%q)", input)
		assert.True(t, want.Equal(got), "parseISODate(%q) = %v, want %v", input, got, want)
	}
}

func TestParseISODate_ZuluMatchesZeroOffset(t *testing.T) {
	z, err := parseISODate("2020-02-29T23:59:59Z")
	require.NoError(t, err)
	plus, err := parseISODate("2020-02-29T23:59:59+0000")
	require.NoError(t, err)
	assert.True(t, z.Equal(plus))
}

func TestParseISODate_FractionalSeconds(t *testing.T) {
	got, err := parseISODate("2014-06-01T12:30:00.250-04:00")
	require.NoError(t, err)
	assert.Equal(t, 250*time.Millisecond, time.Duration(got.Nanosecond()))
	assert.True(t, time.Date(2014, 6, 1, 16, 30, 0, 250000000, time.UTC).Equal(got))
}

func TestParseISODate_Invalid(t *testing.T) {
	for _, input := range []string{"", "1400000000", "2014-06-01 12:30:00", "2014-06-01T12:30:00"} {
		_, err := parseISODate(input)
		assert.Error(t, err, "parseISODate(%q)", input)
	}
}
