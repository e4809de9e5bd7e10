package visitor

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/duka/core"
)

const (
	// Unknown is the default for descriptive fields the client never supplied.
	Unknown = "Unknown"

	// AnonymousName is the display name of visitors that never identified themselves.
	AnonymousName = "Anonymous Visitor"
)

type (
	// Location is a visitor's normalized geographic location.
	// Latitude/Longitude scalars and the GeoJSON-style Coordinates pair
	// ([longitude, latitude]) are kept consistent: whenever one
	// representation is valid the other is derived from it. A location
	// may legitimately have neither (unknown position).
	Location struct {
		Country     string    `json:"country"`
		City        string    `json:"city"`
		CountryCode string    `json:"country_code"`
		Latitude    *float64  `json:"latitude" validate:"omitempty,latitude"`
		Longitude   *float64  `json:"longitude" validate:"omitempty,longitude"`
		Coordinates []float64 `json:"coordinates,omitempty"`
	}

	// Visitor is one tracked client, keyed by IP address. Soft-deleted
	// records stay in storage but are excluded from every query.
	Visitor struct {
		ID            string    `json:"id"`
		IPAddress     string    `json:"ip_address"`
		Name          string    `json:"name"`
		Location      *Location `json:"location,omitempty"`
		DeviceInfo    string    `json:"device_info"`
		Browser       string    `json:"browser"`
		OS            string    `json:"os"`
		Referrer      string    `json:"referrer"`
		VisitCount    int       `json:"visit_count"`
		LastVisitedAt time.Time `json:"last_visited_at"` // UTC
		IsDeleted     bool      `json:"-"`
		CreatedAt     time.Time `json:"created_at"` // UTC
		UpdatedAt     time.Time `json:"updated_at"` // UTC
	}

	// MapPoint is one renderable marker on the geography map.
	MapPoint struct {
		ID            string    `json:"id"`
		Name          string    `json:"name"`
		City          string    `json:"city"`
		Country       string    `json:"country"`
		Latitude      float64   `json:"latitude"`
		Longitude     float64   `json:"longitude"`
		VisitCount    int       `json:"visit_count"`
		LastVisitedAt time.Time `json:"last_visited_at"`
		IPAddress     string    `json:"ip_address"`
	}

	// CountryCount is one per-country aggregate: ID is the country code,
	// Value the summed visit counts.
	CountryCount struct {
		ID    string `json:"id"`
		Value int    `json:"value"`
	}

	// Page is one page of visitors, newest visit first.
	Page struct {
		Visitors    []Visitor `json:"visitors"`
		TotalPages  int       `json:"totalPages"`
		CurrentPage int       `json:"currentPage"`
	}
)

// RawLocation is the lenient inbound location shape: latitude/longitude
// may arrive as numbers or strings, coordinates as any slice. Malformed
// values are dropped by SanitizeLocation, never rejected.
type RawLocation struct {
	Country     string        `json:"country"`
	City        string        `json:"city"`
	CountryCode string        `json:"country_code"`
	Latitude    interface{}   `json:"latitude"`
	Longitude   interface{}   `json:"longitude"`
	Coordinates []interface{} `json:"coordinates"`
}

// NewVisitor contains information needed to record a visit; repeat
// visits from the same IP increment the existing record instead of
// creating a new one.
type NewVisitor struct {
	IPAddress  string       `json:"ip_address" validate:"required"`
	Name       string       `json:"name"`
	Location   *RawLocation `json:"location"`
	DeviceInfo string       `json:"device_info"`
	Browser    string       `json:"browser"`
	OS         string       `json:"os"`
	Referrer   string       `json:"referrer"`
	VisitCount int          `json:"visit_count" validate:"omitempty,min=1"`

	// UserAgent is set by the API from the request header; descriptive
	// fields left empty are derived from it.
	UserAgent string `json:"-"`
}

func (nv *NewVisitor) Validate(validate *validator.Validate) error {
	nv.IPAddress = core.CleanString(nv.IPAddress)
	nv.Name = core.CleanString(nv.Name)
	if err := validate.Struct(nv); err != nil {
		return err
	}
	// malformed coordinates were already dropped by sanitization; what
	// survives must be in range
	if loc := SanitizeLocation(nv.Location); loc != nil {
		return validate.Struct(loc)
	}
	return nil
}

// UpdateVisitor defines what information may be provided to modify an
// existing Visitor from the admin UI. Only fields actually present in
// the request are applied; a revisit count bump never happens here.
type UpdateVisitor struct {
	Name       *string      `json:"name"`
	Location   *RawLocation `json:"location"`
	DeviceInfo *string      `json:"device_info"`
	Browser    *string      `json:"browser"`
	OS         *string      `json:"os"`
	Referrer   *string      `json:"referrer"`
	VisitCount *int         `json:"visit_count" validate:"omitempty,min=1"`
}

func (uv *UpdateVisitor) Validate(validate *validator.Validate) error {
	if err := validate.Struct(uv); err != nil {
		return err
	}
	if loc := SanitizeLocation(uv.Location); loc != nil {
		return validate.Struct(loc)
	}
	return nil
}

// Revisit applies a repeat visit onto v: the count is bumped by one,
// the visit timestamp refreshed, and incoming fields overwrite existing
// ones only when actually supplied.
func (v *Visitor) Revisit(in Visitor, now time.Time) {
	v.VisitCount++
	v.LastVisitedAt = now
	v.UpdatedAt = now
	if in.Location != nil {
		v.Location = in.Location
	}
	if in.Name != "" {
		v.Name = in.Name
	}
	if in.DeviceInfo != "" {
		v.DeviceInfo = in.DeviceInfo
	}
	if in.Browser != "" {
		v.Browser = in.Browser
	}
	if in.OS != "" {
		v.OS = in.OS
	}
	if in.Referrer != "" {
		v.Referrer = in.Referrer
	}
}

// FirstVisit builds the record persisted on a visitor's first request.
func FirstVisit(in Visitor, now time.Time) Visitor {
	v := in
	if v.DeviceInfo == "" {
		v.DeviceInfo = Unknown
	}
	if v.Browser == "" {
		v.Browser = Unknown
	}
	if v.OS == "" {
		v.OS = Unknown
	}
	if v.VisitCount < 1 {
		v.VisitCount = 1
	}
	v.LastVisitedAt = now
	v.CreatedAt = now
	v.UpdatedAt = now
	return v
}
