package handlers

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/mariyam933/fyp/internal/apperr"
)

// Request bodies are decoded into map[string]any so one bad field can be
// reported by name. Numbers may arrive as JSON numbers or numeric strings
// (multipart forms only have strings).

func toNumber(v any) (float64, bool) {
	var f float64
	switch t := v.(type) {
	case float64:
		f = t
	case json.Number:
		n, err := t.Float64()
		if err != nil {
			return 0, false
		}
		f = n
	case string:
		n, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0, false
		}
		f = n
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// present reports whether key was sent with a non-empty value.
func present(body map[string]any, key string) bool {
	v, ok := body[key]
	if !ok || v == nil {
		return false
	}
	if s, isString := v.(string); isString && strings.TrimSpace(s) == "" {
		return false
	}
	return true
}

func optionalNumber(body map[string]any, key string) (*float64, error) {
	if !present(body, key) {
		return nil, nil
	}
	f, ok := toNumber(body[key])
	if !ok {
		return nil, invalidField(key)
	}
	return &f, nil
}

func requiredNumber(body map[string]any, key string) (float64, error) {
	if !present(body, key) {
		return 0, apperr.Validation(key, "%s is required", key)
	}
	f, err := optionalNumber(body, key)
	if err != nil {
		return 0, err
	}
	return *f, nil
}

func requiredID(body map[string]any, key string) (uint, error) {
	f, err := requiredNumber(body, key)
	if err != nil {
		return 0, err
	}
	if f <= 0 || f != math.Trunc(f) || f > math.MaxUint32 {
		return 0, invalidField(key)
	}
	return uint(f), nil
}

func optionalString(body map[string]any, key string) (*string, error) {
	v, ok := body[key]
	if !ok || v == nil {
		return nil, nil
	}
	s, isString := v.(string)
	if !isString {
		return nil, invalidField(key)
	}
	return &s, nil
}

func optionalBool(body map[string]any, key string) (bool, error) {
	if !present(body, key) {
		return false, nil
	}
	switch t := body[key].(type) {
	case bool:
		return t, nil
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(t))
		if err != nil {
			return false, invalidField(key)
		}
		return b, nil
	default:
		return false, invalidField(key)
	}
}

func invalidField(key string) error {
	return apperr.Validation(key, "invalid %s", key)
}
