package welcome

import (
	"fmt"
	"time"
)

// TimeLayout is the timestamp format used by ToTimeString and ToEpoch.
const TimeLayout = "2006-01-02_15:04:05"

// ToTimeString formats an epoch second in local time as YYYY-MM-DD_HH:MM:SS.
func ToTimeString(epoch int64) string {
	return time.Unix(epoch, 0).In(time.Local).Format(TimeLayout)
}

// ToEpoch parses a YYYY-MM-DD_HH:MM:SS local time back into epoch seconds.
func ToEpoch(value string) (int64, error) {
	t, err := time.ParseInLocation(TimeLayout, value, time.Local)
	if err != nil {
		return 0, fmt.Errorf("welcome: parse time %q: %w", value, err)
	}
	return t.Unix(), nil
}

// TodayStamps returns the epoch bounds [start, start+86400) of the current
// local day.
func TodayStamps() (start, end int64) {
	return DayStamps(time.Now())
}

// DayStamps returns the epoch bounds [start, start+86400) of the local day
// containing t. The end is always 86400 seconds after the start, including
// on daylight saving transitions.
func DayStamps(t time.Time) (start, end int64) {
	t = t.In(time.Local)
	midnight := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.Local)
	start = midnight.Unix()
	return start, start + 24*60*60
}
