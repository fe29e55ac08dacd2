// Package utils converts values coming back from database drivers into the
// few Go types the pipeline works with.
package utils

import (
	"fmt"
	"strconv"
	"time"
)

// ConvertToText renders a driver value as text. nil stays nil.
func ConvertToText(val interface{}) *string {
	var s string
	switch v := val.(type) {
	case nil:
		return nil
	case string:
		s = v
	case []byte:
		s = string(v)
	case int64:
		s = strconv.FormatInt(v, 10)
	case int:
		s = strconv.Itoa(v)
	case int32:
		s = strconv.FormatInt(int64(v), 10)
	case float64:
		s = strconv.FormatFloat(v, 'f', -1, 64)
	case time.Time:
		s = v.Format("2006-01-02")
	default:
		s = fmt.Sprintf("%v", v)
	}
	return &s
}

// ConvertToInt converts integer-like driver values. Strings are parsed.
func ConvertToInt(val interface{}) (int64, error) {
	switch v := val.(type) {
	case int:
		return int64(v), nil
	case int32:
		return int64(v), nil
	case int64:
		return v, nil
	case float64:
		if v != float64(int64(v)) {
			return 0, fmt.Errorf("cannot convert %v to int: not integral", v)
		}
		return int64(v), nil
	case string:
		return strconv.ParseInt(v, 10, 64)
	case []byte:
		return strconv.ParseInt(string(v), 10, 64)
	default:
		return 0, fmt.Errorf("cannot convert %T to int", val)
	}
}

// IsInteger reports whether a driver value is stored as an integer. Unlike
// ConvertToInt it does not accept numeric text.
func IsInteger(val interface{}) bool {
	switch v := val.(type) {
	case int, int32, int64:
		return true
	case float64:
		return v == float64(int64(v))
	default:
		return false
	}
}

// IsText reports whether a driver value is stored as text.
func IsText(val interface{}) bool {
	switch val.(type) {
	case string, []byte:
		return true
	default:
		return false
	}
}

// ConvertDateTime parses an ISO calendar date. Only the exact YYYY-MM-DD
// layout is accepted.
func ConvertDateTime(val interface{}) (time.Time, error) {
	s := ConvertToText(val)
	if s == nil {
		return time.Time{}, fmt.Errorf("unable to parse date: NULL")
	}
	if len(*s) != len("2006-01-02") {
		return time.Time{}, fmt.Errorf("unable to parse date: %s", *s)
	}
	t, err := time.Parse("2006-01-02", *s)
	if err != nil {
		return time.Time{}, fmt.Errorf("unable to parse date: %s", *s)
	}
	return t, nil
}
