package mirs

import (
	"fmt"
	"reflect"
	"time"

	"github.com/couchcryptid/tc-mirs-merge/internal/dataset"
)

// timeLayouts are the coverage-timestamp formats seen across MIRS product
// versions. All are UTC.
var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

func attrTime(attrs *dataset.Attrs, key string) (time.Time, error) {
	s, err := attrString(attrs, key)
	if err != nil {
		return time.Time{}, err
	}
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("attribute %q: cannot parse time %q", key, s)
}

func attrString(attrs *dataset.Attrs, key string) (string, error) {
	raw, ok := attrs.Get(key)
	if !ok {
		return "", fmt.Errorf("attribute %q not found", key)
	}
	switch v := raw.(type) {
	case string:
		return v, nil
	case []string:
		if len(v) > 0 {
			return v[0], nil
		}
	}
	return "", fmt.Errorf("attribute %q is not a string (%T)", key, raw)
}

// attrFloat coerces a numeric attribute to float64. NetCDF attributes are
// arrays on disk; single-element slices are unwrapped.
func attrFloat(attrs *dataset.Attrs, key string) (float64, error) {
	raw, ok := attrs.Get(key)
	if !ok {
		return 0, fmt.Errorf("attribute %q not found", key)
	}
	v := reflect.ValueOf(raw)
	if v.Kind() == reflect.Slice {
		if v.Len() == 0 {
			return 0, fmt.Errorf("attribute %q is empty", key)
		}
		v = v.Index(0)
	}
	switch v.Kind() {
	case reflect.Float32, reflect.Float64:
		return v.Float(), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(v.Int()), nil
	case reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(v.Uint()), nil
	default:
		return 0, fmt.Errorf("attribute %q is not numeric (%T)", key, raw)
	}
}
