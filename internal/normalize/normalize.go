// Package normalize coerces loosely typed JSON records into fully populated
// models. Every field is defaulted on its own and ranged fields are clamped,
// so callers never see missing or out-of-range values.
package normalize

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/wildwatch/wildwatch-server/internal/models"
)

// Epoch is the timestamp substituted for missing or unparsable times
var Epoch = time.Unix(0, 0).UTC()

// Number converts v to a finite float64, returning fallback when it cannot
func Number(v interface{}, fallback float64) float64 {
	var f float64
	switch n := v.(type) {
	case nil:
		return fallback
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int64:
		f = float64(n)
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return fallback
		}
		f = parsed
	case string:
		s := strings.TrimSpace(n)
		if s == "" {
			return fallback
		}
		parsed, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return fallback
		}
		f = parsed
	case bool:
		if n {
			return 1
		}
		return 0
	default:
		return fallback
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return fallback
	}
	return f
}

// Percent converts v and clamps it into [0,100]
func Percent(v interface{}, fallback float64) float64 {
	return models.ClampPercent(Number(v, fallback))
}

// String renders scalars as strings; objects, arrays and nil yield fallback
func String(v interface{}, fallback string) string {
	switch s := v.(type) {
	case nil:
		return fallback
	case string:
		return s
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	case json.Number:
		return s.String()
	case bool:
		return strconv.FormatBool(s)
	case int, int64:
		return fmt.Sprint(s)
	default:
		return fallback
	}
}

// Time parses an RFC 3339 timestamp, returning fallback otherwise
func Time(v interface{}, fallback time.Time) time.Time {
	s, ok := v.(string)
	if !ok {
		return fallback
	}
	t, err := time.Parse(time.RFC3339Nano, strings.TrimSpace(s))
	if err != nil {
		return fallback
	}
	return t
}

// Bool is true only for a JSON true
func Bool(v interface{}) bool {
	b, ok := v.(bool)
	return ok && b
}

// Object returns v as a JSON object, or nil
func Object(v interface{}) map[string]interface{} {
	m, _ := v.(map[string]interface{})
	return m
}

// DeviceLocation defaults each location field independently from def.
// A value that is not an object yields def unchanged.
func DeviceLocation(v interface{}, def models.DeviceLocation) models.DeviceLocation {
	m := Object(v)
	if m == nil {
		return def
	}
	return models.DeviceLocation{
		Lat:  Number(m["lat"], def.Lat),
		Lng:  Number(m["lng"], def.Lng),
		Zone: String(m["zone"], def.Zone),
	}
}

// AlertLocation defaults each location field independently from def
func AlertLocation(v interface{}, def models.AlertLocation) models.AlertLocation {
	m := Object(v)
	if m == nil {
		return def
	}
	return models.AlertLocation{
		Lat:  Number(m["lat"], def.Lat),
		Lng:  Number(m["lng"], def.Lng),
		Name: String(m["name"], def.Name),
	}
}
