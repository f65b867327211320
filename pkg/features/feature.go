// Package features defines the GeoJSON point features exchanged between the
// bank sources, the registry and the exporter.
package features

import (
	"bytes"
	"fmt"
	"strconv"

	"github.com/goccy/go-json"

	"github.com/agentstation/atmap/pkg/errors"
)

// GeoJSON type discriminators.
const (
	TypeFeature           = "Feature"
	TypeFeatureCollection = "FeatureCollection"
	TypePoint             = "Point"
)

// Point is a longitude/latitude pair. It has no setters.
type Point struct {
	lon float64
	lat float64
}

// NewPoint returns the point at lon, lat.
func NewPoint(lon, lat float64) Point {
	return Point{lon: lon, lat: lat}
}

// Lon returns the longitude.
func (p Point) Lon() float64 { return p.lon }

// Lat returns the latitude.
func (p Point) Lat() float64 { return p.lat }

// Key returns the exact coordinate key "lon,lat" used to detect features
// sharing a location.
func (p Point) Key() string {
	return formatCoord(p.lon) + "," + formatCoord(p.lat)
}

// String implements fmt.Stringer.
func (p Point) String() string {
	return "(" + p.Key() + ")"
}

func formatCoord(f float64) string {
	if f == 0 {
		// -0 prints as "-0"
		f = 0
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// MarshalJSON implements json.Marshaler.
func (p Point) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(`{"type":"Point","coordinates":[`)
	buf.WriteString(formatCoord(p.lon))
	buf.WriteByte(',')
	buf.WriteString(formatCoord(p.lat))
	buf.WriteString(`]}`)
	return buf.Bytes(), nil
}

// UnmarshalJSON implements json.Unmarshaler. Coordinates may be numbers or
// numeric strings; some bank sites send the latter.
func (p *Point) UnmarshalJSON(data []byte) error {
	var geometry struct {
		Type        string            `json:"type"`
		Coordinates []json.RawMessage `json:"coordinates"`
	}
	if err := json.Unmarshal(data, &geometry); err != nil {
		return err
	}
	if geometry.Type != "" && geometry.Type != TypePoint {
		return errors.NewValidationError("geometry.type", geometry.Type, "only Point geometries are supported")
	}
	if len(geometry.Coordinates) != 2 {
		return errors.NewValidationError("geometry.coordinates", len(geometry.Coordinates), "expected [lon, lat]")
	}
	lon, err := ParseCoordinate(geometry.Coordinates[0])
	if err != nil {
		return err
	}
	lat, err := ParseCoordinate(geometry.Coordinates[1])
	if err != nil {
		return err
	}
	*p = NewPoint(lon, lat)
	return nil
}

// ParseCoordinate decodes a JSON number or numeric string.
func ParseCoordinate(msg []byte) (float64, error) {
	text := string(bytes.Trim(bytes.TrimSpace(msg), `"`))
	f, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return 0, errors.NewValidationError("coordinate", text, "not a number")
	}
	return f, nil
}

// Feature is one point of interest.
type Feature struct {
	Geometry   Point
	Properties Properties
}

// New returns a feature at lon, lat. A nil props starts empty.
func New(lon, lat float64, props Properties) *Feature {
	if props == nil {
		props = Properties{}
	}
	return &Feature{Geometry: NewPoint(lon, lat), Properties: props}
}

// Key returns the coordinate key of the feature's geometry.
func (f *Feature) Key() string {
	return f.Geometry.Key()
}

// Describe names the feature for logs and errors.
func (f *Feature) Describe() string {
	name := f.Properties.Text(PropName)
	if name == "" {
		return f.Geometry.String()
	}
	return fmt.Sprintf("%s %s", name, f.Geometry)
}

// Validate checks that every baseline property is present. Values are not
// inspected; an empty string is a valid value.
func (f *Feature) Validate() error {
	for _, name := range Baseline {
		if !f.Properties.Has(name) {
			return errors.NewMissingPropertyError(f.Describe(), name)
		}
	}
	return nil
}

// Clone returns a deep copy of f.
func (f *Feature) Clone() *Feature {
	return &Feature{Geometry: f.Geometry, Properties: f.Properties.Clone()}
}

type featureJSON struct {
	Type       string     `json:"type"`
	Geometry   Point      `json:"geometry"`
	Properties Properties `json:"properties"`
}

// MarshalJSON implements json.Marshaler.
func (f *Feature) MarshalJSON() ([]byte, error) {
	props := f.Properties
	if props == nil {
		props = Properties{}
	}
	return json.Marshal(featureJSON{
		Type:       TypeFeature,
		Geometry:   f.Geometry,
		Properties: props,
	})
}

// UnmarshalJSON implements json.Unmarshaler.
func (f *Feature) UnmarshalJSON(data []byte) error {
	var raw featureJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw.Type != "" && raw.Type != TypeFeature {
		return errors.NewValidationError("type", raw.Type, "expected Feature")
	}
	if raw.Properties == nil {
		raw.Properties = Properties{}
	}
	f.Geometry = raw.Geometry
	f.Properties = raw.Properties
	return nil
}

// FeatureCollection is the GeoJSON container written for each bucket.
type FeatureCollection struct {
	Features []*Feature
}

type collectionJSON struct {
	Type     string     `json:"type"`
	Features []*Feature `json:"features"`
}

// MarshalJSON implements json.Marshaler.
func (c FeatureCollection) MarshalJSON() ([]byte, error) {
	list := c.Features
	if list == nil {
		list = []*Feature{}
	}
	return json.Marshal(collectionJSON{Type: TypeFeatureCollection, Features: list})
}

// UnmarshalJSON implements json.Unmarshaler.
func (c *FeatureCollection) UnmarshalJSON(data []byte) error {
	var raw collectionJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw.Type != "" && raw.Type != TypeFeatureCollection {
		return errors.NewValidationError("type", raw.Type, "expected FeatureCollection")
	}
	c.Features = raw.Features
	return nil
}
