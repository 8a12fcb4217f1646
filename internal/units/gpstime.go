// Package units converts the time representations found in LAS files to
// wall-clock time.
package units

import (
	"fmt"
	"math"
	"time"
)

// ADJUSTED_GPS_OFFSET is subtracted from GPS seconds to get Adjusted
// Standard GPS Time.
const ADJUSTED_GPS_OFFSET = 1e9

// GLOBAL_ENCODING_GPS_TIME is the header global encoding bit selecting
// Adjusted Standard GPS Time.
const GLOBAL_ENCODING_GPS_TIME = 1 << 0

var gpsEpoch = time.Date(1980, 1, 6, 0, 0, 0, 0, time.UTC)

// UTC dates at which GPS-UTC grew by one second.
var leapDates = []time.Time{
	time.Date(1981, 7, 1, 0, 0, 0, 0, time.UTC),
	time.Date(1982, 7, 1, 0, 0, 0, 0, time.UTC),
	time.Date(1983, 7, 1, 0, 0, 0, 0, time.UTC),
	time.Date(1985, 7, 1, 0, 0, 0, 0, time.UTC),
	time.Date(1988, 1, 1, 0, 0, 0, 0, time.UTC),
	time.Date(1990, 1, 1, 0, 0, 0, 0, time.UTC),
	time.Date(1991, 1, 1, 0, 0, 0, 0, time.UTC),
	time.Date(1992, 7, 1, 0, 0, 0, 0, time.UTC),
	time.Date(1993, 7, 1, 0, 0, 0, 0, time.UTC),
	time.Date(1994, 7, 1, 0, 0, 0, 0, time.UTC),
	time.Date(1996, 1, 1, 0, 0, 0, 0, time.UTC),
	time.Date(1997, 7, 1, 0, 0, 0, 0, time.UTC),
	time.Date(1999, 1, 1, 0, 0, 0, 0, time.UTC),
	time.Date(2006, 1, 1, 0, 0, 0, 0, time.UTC),
	time.Date(2009, 1, 1, 0, 0, 0, 0, time.UTC),
	time.Date(2012, 7, 1, 0, 0, 0, 0, time.UTC),
	time.Date(2015, 7, 1, 0, 0, 0, 0, time.UTC),
	time.Date(2017, 1, 1, 0, 0, 0, 0, time.UTC),
}

// leapThresholds[i] is the GPS second at which GPS-UTC becomes i+1.
var leapThresholds = func() []float64 {
	th := make([]float64, len(leapDates))
	for i, d := range leapDates {
		th[i] = d.Sub(gpsEpoch).Seconds() + float64(i+1)
	}
	return th
}()

// GPSTimeKind is the meaning of a point's GPS time value.
type GPSTimeKind int

const (
	GPSWeekTime GPSTimeKind = iota // seconds into the GPS week
	AdjustedStandardGPSTime
)

// GPSTimeKindOf reads the GPS time type from a header's global encoding.
func GPSTimeKindOf(globalEncoding uint16) GPSTimeKind {
	if globalEncoding&GLOBAL_ENCODING_GPS_TIME != 0 {
		return AdjustedStandardGPSTime
	}
	return GPSWeekTime
}

func (k GPSTimeKind) String() string {
	if k == AdjustedStandardGPSTime {
		return "adjusted standard GPS time"
	}
	return "GPS week time"
}

// LeapSeconds returns GPS-UTC at GPS second s.
func LeapSeconds(s float64) int {
	n := 0
	for n < len(leapThresholds) && s >= leapThresholds[n] {
		n++
	}
	return n
}

// GPSToUTC converts seconds since the GPS epoch to UTC.
func GPSToUTC(s float64) time.Time {
	whole := math.Floor(s)
	frac := s - whole
	t := gpsEpoch.Add(time.Duration(whole-float64(LeapSeconds(s))) * time.Second)
	return t.Add(time.Duration(math.Round(frac * 1e9)))
}

// AdjustedGPSToUTC converts an Adjusted Standard GPS Time value to UTC.
func AdjustedGPSToUTC(t float64) time.Time {
	return GPSToUTC(t + ADJUSTED_GPS_OFFSET)
}

// CreationDate converts a header's creation year and day of year to a date.
// ok is false when either is unset or the day does not exist in that year.
func CreationDate(year, dayOfYear uint16) (date time.Time, ok bool) {
	if year == 0 || dayOfYear == 0 {
		return time.Time{}, false
	}
	date = time.Date(int(year), time.January, int(dayOfYear), 0, 0, 0, 0, time.UTC)
	if date.Year() != int(year) {
		return time.Time{}, false
	}
	return date, true
}

// FormatGPSTime renders a GPS time value for display in loc. Week time has
// no absolute reference and is printed as seconds.
func FormatGPSTime(t float64, kind GPSTimeKind, loc *time.Location) string {
	if kind != AdjustedStandardGPSTime {
		return fmt.Sprintf("%.6fs of week", t)
	}
	return AdjustedGPSToUTC(t).In(loc).Format(time.RFC3339Nano)
}
