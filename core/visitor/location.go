package visitor

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/trezcool/duka/core"
)

// parseCoordinate parses a lenient coordinate value (number, numeric
// string or json.Number). NaN and infinities are treated as invalid.
func parseCoordinate(v interface{}) (float64, bool) {
	var f float64
	switch val := v.(type) {
	case nil:
		return 0, false
	case float64:
		f = val
	case float32:
		f = float64(val)
	case int:
		f = float64(val)
	case int64:
		f = float64(val)
	case json.Number:
		parsed, err := val.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	case *float64:
		if val == nil {
			return 0, false
		}
		f = *val
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// SanitizeLocation turns a lenient inbound location into a normalized
// one. Malformed coordinate values are dropped rather than erroring:
// a pair is kept only when both components parse to finite numbers.
// Scalar latitude/longitude are authoritative when valid; otherwise the
// [longitude, latitude] coordinates pair is used and the scalars
// derived from it. Returns nil for a nil input.
func SanitizeLocation(raw *RawLocation) *Location {
	if raw == nil {
		return nil
	}

	loc := &Location{
		Country:     core.CleanString(raw.Country),
		City:        core.CleanString(raw.City),
		CountryCode: core.CleanString(raw.CountryCode),
	}

	if lat, latOK := parseCoordinate(raw.Latitude); latOK {
		if lng, lngOK := parseCoordinate(raw.Longitude); lngOK {
			return loc.setCoordinates(lat, lng)
		}
	}

	if len(raw.Coordinates) == 2 {
		if lng, lngOK := parseCoordinate(raw.Coordinates[0]); lngOK {
			if lat, latOK := parseCoordinate(raw.Coordinates[1]); latOK {
				return loc.setCoordinates(lat, lng)
			}
		}
	}

	return loc
}

// NormalizeLocation reconciles the two coordinate representations of an
// already-parsed location: valid scalars win and the pair is rederived;
// failing that a valid pair backfills the scalars; failing both, all
// coordinate fields are cleared. Normalizing an already-normalized
// location is a no-op. Returns nil for a nil input.
func NormalizeLocation(loc *Location) *Location {
	if loc == nil {
		return nil
	}

	out := &Location{
		Country:     loc.Country,
		City:        loc.City,
		CountryCode: loc.CountryCode,
	}

	if lat, latOK := parseCoordinate(loc.Latitude); latOK {
		if lng, lngOK := parseCoordinate(loc.Longitude); lngOK {
			return out.setCoordinates(lat, lng)
		}
	}

	if len(loc.Coordinates) == 2 {
		lng, lat := loc.Coordinates[0], loc.Coordinates[1]
		if finite(lng) && finite(lat) {
			return out.setCoordinates(lat, lng)
		}
	}

	return out
}

func (l *Location) setCoordinates(lat, lng float64) *Location {
	l.Latitude = &lat
	l.Longitude = &lng
	l.Coordinates = []float64{lng, lat}
	return l
}

// Point resolves a single renderable (lat, lng) pair, preferring the
// scalar fields and falling back to the coordinates array. ok is false
// when neither representation yields two finite numbers.
func (l *Location) Point() (lat, lng float64, ok bool) {
	if l == nil {
		return 0, 0, false
	}
	if l.Latitude != nil && l.Longitude != nil && finite(*l.Latitude) && finite(*l.Longitude) {
		return *l.Latitude, *l.Longitude, true
	}
	if len(l.Coordinates) == 2 && finite(l.Coordinates[0]) && finite(l.Coordinates[1]) {
		return l.Coordinates[1], l.Coordinates[0], true
	}
	return 0, 0, false
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
