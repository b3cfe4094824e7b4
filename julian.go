package dbf

import (
	"fmt"

	"github.com/carlosjhr64/jd"
)

// unixEpochJDN is the Julian Day Number of 1970-01-01, used to translate
// between Julian Day Numbers and Unix days and timestamps.
const unixEpochJDN = 2440588

// Date is a naive calendar date with no timezone concept, matching the
// Date (D) field's on-disk YYYYMMDD representation. Field ranges are
// checked (year <= 9999, month <= 12, day <= 31) but no calendar validation
// (e.g. February 30th) is performed.
type Date struct {
	Year, Month, Day int
}

// NewDate builds a Date, returning an error if year, month or day is out of
// the ranges the on-disk format can represent.
func NewDate(year, month, day int) (Date, error) {
	d := Date{Year: year, Month: month, Day: day}
	if year < 0 || year > 9999 {
		return Date{}, fmt.Errorf("dbf: year %d out of range 0..9999", year)
	}
	if month < 0 || month > 12 {
		return Date{}, fmt.Errorf("dbf: month %d out of range 0..12", month)
	}
	if day < 0 || day > 31 {
		return Date{}, fmt.Errorf("dbf: day %d out of range 0..31", day)
	}
	return d, nil
}

// ToJulianDayNumber converts the date to a Julian Day Number using the
// Richards (2013) algorithm.
func (d Date) ToJulianDayNumber() int {
	month, year := d.Month, d.Year
	if month > 2 {
		month -= 3
	} else {
		month += 9
		year--
	}
	century := year / 100
	decade := year - 100*century
	return (146097*century)/4 + (1461*decade)/4 + (153*month+2)/5 + d.Day + 1721119
}

// ToUnixDays returns the number of days since 1970-01-01.
func (d Date) ToUnixDays() int {
	return d.ToJulianDayNumber() - unixEpochJDN
}

// DateFromJulianDayNumber is the inverse of Date.ToJulianDayNumber, via
// github.com/carlosjhr64/jd's J2YMD.
func DateFromJulianDayNumber(jdn int) Date {
	y, m, d := jd.J2YMD(jdn)
	return Date{Year: y, Month: m, Day: d}
}

// Time is a naive time-of-day with second precision, matching the
// milliseconds-within-day half of a DateTime (T) field.
type Time struct {
	Hour, Minute, Second int
}

// NewTime builds a Time, returning an error if any component is out of range.
func NewTime(hour, minute, second int) (Time, error) {
	if hour < 0 || hour > 24 {
		return Time{}, fmt.Errorf("dbf: hour %d out of range 0..24", hour)
	}
	if minute < 0 || minute > 60 {
		return Time{}, fmt.Errorf("dbf: minute %d out of range 0..60", minute)
	}
	if second < 0 || second > 60 {
		return Time{}, fmt.Errorf("dbf: second %d out of range 0..60", second)
	}
	return Time{Hour: hour, Minute: minute, Second: second}, nil
}

// millisecondsWithinDay returns the field's "second integer", milliseconds
// since midnight.
func (t Time) millisecondsWithinDay() int32 {
	return int32(t.Hour*3_600_000 + t.Minute*60_000 + t.Second*1_000)
}

// timeFromMilliseconds decodes the milliseconds-within-day integer back to
// hours, minutes and seconds (whole seconds; sub-second precision is not
// modeled).
func timeFromMilliseconds(ms int32) Time {
	remaining := ms
	hours := remaining / 3_600_000
	remaining -= hours * 3_600_000
	minutes := remaining / 60_000
	remaining -= minutes * 60_000
	seconds := remaining / 1_000
	return Time{Hour: int(hours), Minute: int(minutes), Second: int(seconds)}
}

// DateTime combines a Date and a Time, matching the DateTime (T) field
// type, which is always 8 bytes on disk.
type DateTime struct {
	Date Date
	Time Time
}

// NewDateTime builds a DateTime from its Date and Time parts.
func NewDateTime(date Date, t Time) DateTime {
	return DateTime{Date: date, Time: t}
}

// ToUnixTimestamp returns the number of seconds since the Unix epoch.
func (dt DateTime) ToUnixTimestamp() int64 {
	return int64(dt.Date.ToUnixDays())*86400 +
		int64(dt.Time.Hour)*3600 +
		int64(dt.Time.Minute)*60 +
		int64(dt.Time.Second)
}
