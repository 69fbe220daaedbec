// Package patch decodes partial-update bodies into mo.Option fields.
//
// A key missing from the body is mo.None. For nullable columns a JSON null
// is mo.Some(nil), which clears the column; for required columns it is an
// error.
package patch

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/samber/mo"
)

const DateLayout = "2006-01-02"

var (
	ErrNullField    = errors.New("field cannot be null")
	ErrInvalidField = errors.New("invalid field value")
)

// Body is a decoded JSON object, values left raw.
type Body map[string]json.RawMessage

func isNull(raw json.RawMessage) bool {
	return string(raw) == "null"
}

// Field decodes a required (non-nullable) field.
func Field[T any](body Body, key string) (mo.Option[T], error) {
	raw, ok := body[key]
	if !ok {
		return mo.None[T](), nil
	}
	if isNull(raw) {
		return mo.None[T](), fmt.Errorf("%s: %w", key, ErrNullField)
	}
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return mo.None[T](), fmt.Errorf("%s: %w: %v", key, ErrInvalidField, err)
	}
	return mo.Some(v), nil
}

// Nullable decodes a field whose column accepts NULL.
func Nullable[T any](body Body, key string) (mo.Option[*T], error) {
	raw, ok := body[key]
	if !ok {
		return mo.None[*T](), nil
	}
	if isNull(raw) {
		return mo.Some[*T](nil), nil
	}
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return mo.None[*T](), fmt.Errorf("%s: %w: %v", key, ErrInvalidField, err)
	}
	return mo.Some(&v), nil
}

// Time decodes an RFC 3339 timestamp and converts it to loc.
func Time(body Body, key string, loc *time.Location) (mo.Option[time.Time], error) {
	s, err := Field[string](body, key)
	if err != nil || s.IsAbsent() {
		return mo.None[time.Time](), err
	}
	t, err := time.Parse(time.RFC3339, s.MustGet())
	if err != nil {
		return mo.None[time.Time](), fmt.Errorf("%s: %w: %v", key, ErrInvalidField, err)
	}
	return mo.Some(t.In(loc)), nil
}

// NullableDate decodes a YYYY-MM-DD calendar date as midnight in loc.
func NullableDate(body Body, key string, loc *time.Location) (mo.Option[*time.Time], error) {
	s, err := Nullable[string](body, key)
	if err != nil || s.IsAbsent() {
		return mo.None[*time.Time](), err
	}
	if s.MustGet() == nil {
		return mo.Some[*time.Time](nil), nil
	}
	d, err := time.ParseInLocation(DateLayout, *s.MustGet(), loc)
	if err != nil {
		return mo.None[*time.Time](), fmt.Errorf("%s: %w: %v", key, ErrInvalidField, err)
	}
	return mo.Some(&d), nil
}
