package visitor

import (
	"math"
	"reflect"
	"testing"
)

func fptr(f float64) *float64 { return &f }

func TestSanitizeLocation(t *testing.T) {
	tests := []struct {
		name string
		raw  *RawLocation
		want *Location
	}{
		{name: "nil input"},
		{
			name: "number scalars",
			raw:  &RawLocation{Country: "Kenya", City: "Nairobi", CountryCode: "KE", Latitude: -1.2921, Longitude: 36.8219},
			want: &Location{Country: "Kenya", City: "Nairobi", CountryCode: "KE", Latitude: fptr(-1.2921), Longitude: fptr(36.8219), Coordinates: []float64{36.8219, -1.2921}},
		},
		{
			name: "string scalars",
			raw:  &RawLocation{CountryCode: "US", Latitude: "40.7", Longitude: " -74.0 "},
			want: &Location{CountryCode: "US", Latitude: fptr(40.7), Longitude: fptr(-74.0), Coordinates: []float64{-74.0, 40.7}},
		},
		{
			name: "integer scalars",
			raw:  &RawLocation{Latitude: 10, Longitude: 20},
			want: &Location{Latitude: fptr(10), Longitude: fptr(20), Coordinates: []float64{20, 10}},
		},
		{
			name: "coordinates fallback is lng,lat",
			raw:  &RawLocation{CountryCode: "FR", Coordinates: []interface{}{2.3522, 48.8566}},
			want: &Location{CountryCode: "FR", Latitude: fptr(48.8566), Longitude: fptr(2.3522), Coordinates: []float64{2.3522, 48.8566}},
		},
		{
			name: "scalars win over coordinates",
			raw:  &RawLocation{Latitude: 1.0, Longitude: 2.0, Coordinates: []interface{}{9.0, 9.0}},
			want: &Location{Latitude: fptr(1.0), Longitude: fptr(2.0), Coordinates: []float64{2.0, 1.0}},
		},
		{
			name: "partial scalars fall back to coordinates",
			raw:  &RawLocation{Latitude: 1.0, Coordinates: []interface{}{"2.5", "3.5"}},
			want: &Location{Latitude: fptr(3.5), Longitude: fptr(2.5), Coordinates: []float64{2.5, 3.5}},
		},
		{
			name: "malformed strings dropped",
			raw:  &RawLocation{City: "Lagos", Latitude: "not-a-number", Longitude: "nope"},
			want: &Location{City: "Lagos"},
		},
		{
			name: "NaN dropped",
			raw:  &RawLocation{Latitude: math.NaN(), Longitude: 1.0},
			want: &Location{},
		},
		{
			name: "infinity dropped",
			raw:  &RawLocation{Latitude: 1.0, Longitude: math.Inf(1)},
			want: &Location{},
		},
		{
			name: "wrong-sized coordinates dropped",
			raw:  &RawLocation{Coordinates: []interface{}{1.0}},
			want: &Location{},
		},
		{
			name: "non-numeric coordinates dropped",
			raw:  &RawLocation{Coordinates: []interface{}{"a", "b"}},
			want: &Location{},
		},
		{
			name: "nil scalars",
			raw:  &RawLocation{Country: "Ghana"},
			want: &Location{Country: "Ghana"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SanitizeLocation(tt.raw)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("SanitizeLocation() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestNormalizeLocation(t *testing.T) {
	tests := []struct {
		name string
		loc  *Location
		want *Location
	}{
		{name: "nil input"},
		{
			name: "scalars rederive the pair",
			loc:  &Location{CountryCode: "KE", Latitude: fptr(-1.0), Longitude: fptr(36.0), Coordinates: []float64{9.0, 9.0}},
			want: &Location{CountryCode: "KE", Latitude: fptr(-1.0), Longitude: fptr(36.0), Coordinates: []float64{36.0, -1.0}},
		},
		{
			name: "pair backfills missing scalars",
			loc:  &Location{Coordinates: []float64{36.0, -1.0}},
			want: &Location{Latitude: fptr(-1.0), Longitude: fptr(36.0), Coordinates: []float64{36.0, -1.0}},
		},
		{
			name: "neither valid clears all",
			loc:  &Location{City: "Kisumu", Latitude: fptr(1.0)},
			want: &Location{City: "Kisumu"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizeLocation(tt.loc)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("NormalizeLocation() = %+v, want %+v", got, tt.want)
			}
			// normalizing again must be a no-op
			if again := NormalizeLocation(got); !reflect.DeepEqual(again, got) {
				t.Errorf("NormalizeLocation() not idempotent: %+v then %+v", got, again)
			}
		})
	}
}

func TestLocationPoint(t *testing.T) {
	tests := []struct {
		name             string
		loc              *Location
		wantLat, wantLng float64
		wantOK           bool
	}{
		{name: "nil location"},
		{name: "empty location", loc: &Location{}},
		{name: "scalars", loc: &Location{Latitude: fptr(1.5), Longitude: fptr(2.5)}, wantLat: 1.5, wantLng: 2.5, wantOK: true},
		{name: "coordinates fallback", loc: &Location{Coordinates: []float64{2.5, 1.5}}, wantLat: 1.5, wantLng: 2.5, wantOK: true},
		{name: "single scalar is not a point", loc: &Location{Latitude: fptr(1.5)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lat, lng, ok := tt.loc.Point()
			if ok != tt.wantOK || lat != tt.wantLat || lng != tt.wantLng {
				t.Errorf("Point() = (%v, %v, %v), want (%v, %v, %v)", lat, lng, ok, tt.wantLat, tt.wantLng, tt.wantOK)
			}
		})
	}
}
