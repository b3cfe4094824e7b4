package dbf

import "time"

// This file contains best-effort casting helpers for FieldValue, for callers
// who'd rather get a zero value on a type mismatch or null than check an
// error: the FieldValue accessors in value.go (AsString, AsFloat64, ...) are
// the strict counterparts these wrap.

// ToString always returns a string: the Character/Memo payload, or "" if v
// holds a different variant or is null.
func ToString(v FieldValue) string {
	s, err := v.AsString()
	if err != nil {
		return ""
	}
	return s
}

// ToFloat64 always returns a float64: the Numeric/Currency/Double payload,
// or 0 if v holds a different variant or is null.
func ToFloat64(v FieldValue) float64 {
	f, err := v.AsFloat64()
	if err != nil {
		return 0
	}
	return f
}

// ToBool always returns a bool: the Logical payload, or false if v holds a
// different variant or is null.
func ToBool(v FieldValue) bool {
	b, err := v.AsBool()
	if err != nil {
		return false
	}
	return b
}

// ToInt32 always returns an int32: the Integer payload, or 0 if v holds a
// different variant.
func ToInt32(v FieldValue) int32 {
	i, err := v.AsInt32()
	if err != nil {
		return 0
	}
	return i
}

// ToTime always returns a time.Time in UTC: Date converts to midnight on
// that day, DateTime converts via its Unix timestamp; any other variant, or
// a null Date, returns the zero time.Time.
func ToTime(v FieldValue) time.Time {
	switch v.Kind() {
	case KindDate:
		d, err := v.AsDate()
		if err != nil {
			return time.Time{}
		}
		return time.Date(d.Year, time.Month(d.Month), d.Day, 0, 0, 0, 0, time.UTC)
	case KindDateTime:
		dt, err := v.AsDateTime()
		if err != nil {
			return time.Time{}
		}
		return time.Unix(dt.ToUnixTimestamp(), 0).UTC()
	default:
		return time.Time{}
	}
}
