// Package properties validates raw property values against their definitions.
// Validation is stateless; callers run it inside the writing transaction so a
// rejection aborts before any row exists.
package properties

import (
	"fmt"
	"math"
	"time"

	"github.com/relata/relata/internal/model"
)

// acceptedDateLayouts are tried in order when normalizing a date value.
var acceptedDateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// Validate checks raw against the definition's type and returns the value in
// its normalized form. A nil raw is the clear sentinel and always passes.
func Validate(def *model.PropertyDefinition, raw interface{}) (interface{}, error) {
	if raw == nil {
		return nil, nil
	}
	switch def.Type {
	case model.PropertyString:
		s, ok := raw.(string)
		if !ok {
			return nil, invalid(def.Key, "expected a string, got %T", raw)
		}
		return s, nil
	case model.PropertyNumber:
		n, ok := asNumber(raw)
		if !ok {
			return nil, invalid(def.Key, "expected a number, got %T", raw)
		}
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return nil, invalid(def.Key, "number must be finite")
		}
		return n, nil
	case model.PropertyBoolean:
		b, ok := raw.(bool)
		if !ok {
			return nil, invalid(def.Key, "expected a boolean, got %T", raw)
		}
		return b, nil
	case model.PropertyDate:
		s, ok := raw.(string)
		if !ok {
			return nil, invalid(def.Key, "expected a date string, got %T", raw)
		}
		for _, layout := range acceptedDateLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t.UTC().Format(time.RFC3339), nil
			}
		}
		return nil, invalid(def.Key, "%q is not a parseable timestamp", s)
	case model.PropertyEnum:
		s, ok := raw.(string)
		if !ok {
			return nil, invalid(def.Key, "expected an option string, got %T", raw)
		}
		for _, opt := range def.Options {
			if opt == s {
				return s, nil
			}
		}
		return nil, invalid(def.Key, "%q is not one of the configured options", s)
	default:
		return nil, invalid(def.Key, "unknown property type %q", def.Type)
	}
}

// asNumber accepts the numeric shapes JSON decoding and Go callers produce.
func asNumber(raw interface{}) (float64, bool) {
	switch n := raw.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

func invalid(key, format string, args ...interface{}) error {
	return fmt.Errorf("%w: property %q: %s", model.ErrInvalidPropertyValue, key, fmt.Sprintf(format, args...))
}
