package units

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGPSToUTC_Epoch(t *testing.T) {
	assert.Equal(t, time.Date(1980, 1, 6, 0, 0, 0, 0, time.UTC), GPSToUTC(0))
}

func TestGPSToUTC_LeapBoundary(t *testing.T) {
	// One second before 1981-07-01 UTC no leap second has been inserted.
	d := time.Date(1981, 7, 1, 0, 0, 0, 0, time.UTC)
	before := d.Add(-time.Second).Sub(gpsEpoch).Seconds()
	assert.Equal(t, 0, LeapSeconds(before))
	assert.Equal(t, d.Add(-time.Second), GPSToUTC(before))

	at := d.Sub(gpsEpoch).Seconds() + 1
	assert.Equal(t, 1, LeapSeconds(at))
	assert.Equal(t, d, GPSToUTC(at))
}

func TestAdjustedGPSToUTC(t *testing.T) {
	want := time.Date(2020, 1, 1, 0, 0, 0, 500_000_000, time.UTC)
	gps := want.Sub(gpsEpoch).Seconds() + 18
	assert.Equal(t, 18, LeapSeconds(gps))

	got := AdjustedGPSToUTC(gps - ADJUSTED_GPS_OFFSET)
	assert.WithinDuration(t, want, got, time.Microsecond)
}

func TestGPSTimeKindOf(t *testing.T) {
	tests := []struct {
		encoding uint16
		want     GPSTimeKind
	}{
		{0, GPSWeekTime},
		{1, AdjustedStandardGPSTime},
		{0x10, GPSWeekTime},
		{0x11, AdjustedStandardGPSTime},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, GPSTimeKindOf(tt.encoding), "encoding %#x", tt.encoding)
	}
	assert.Equal(t, "GPS week time", GPSWeekTime.String())
}

func TestCreationDate(t *testing.T) {
	tests := []struct {
		name      string
		year, day uint16
		want      time.Time
		ok        bool
	}{
		{"leap day", 2024, 60, time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC), true},
		{"last day of leap year", 2024, 366, time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC), true},
		{"day 366 of common year", 2023, 366, time.Time{}, false},
		{"year unset", 0, 10, time.Time{}, false},
		{"day unset", 2024, 0, time.Time{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := CreationDate(tt.year, tt.day)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFormatGPSTime(t *testing.T) {
	assert.Equal(t, "12.500000s of week", FormatGPSTime(12.5, GPSWeekTime, time.UTC))

	gps := time.Date(2021, 6, 1, 12, 0, 0, 0, time.UTC).Sub(gpsEpoch).Seconds() + 18 - ADJUSTED_GPS_OFFSET
	assert.Equal(t, "2021-06-01T12:00:00Z", FormatGPSTime(gps, AdjustedStandardGPSTime, time.UTC))
}
