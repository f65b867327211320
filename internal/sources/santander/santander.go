// Package santander fetches ATMs and branches from the Santander branch
// locator. The locator is an HTML page: municipalities and neighborhoods
// come as <option> lists and the points of a neighborhood are embedded as a
// "mapData = {...};" script.
package santander

import (
	"context"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/goccy/go-json"
	"golang.org/x/text/encoding/charmap"

	"github.com/agentstation/atmap/internal/sources/site"
	"github.com/agentstation/atmap/internal/transport"
	"github.com/agentstation/atmap/pkg/errors"
	"github.com/agentstation/atmap/pkg/features"
	"github.com/agentstation/atmap/pkg/logging"
	"github.com/agentstation/atmap/pkg/normalize"
	"github.com/agentstation/atmap/pkg/regions"
	"github.com/agentstation/atmap/pkg/sources"
)

// DefaultBaseURL is the locator endpoint.
const DefaultBaseURL = "https://servicios.santander.com.mx/sucursales2012/MapaAJAX.php"

// BankName is written into the bank property.
const BankName = "Santander"

// markerATM is the marker type of an ATM; every other type is filed under
// the "other" category.
const markerATM = "cajero"

var (
	optionPattern  = regexp.MustCompile(`(?i)<option value="([\w\s\x{00C0}-\x{017F}]+)">[\w\s\x{00C0}-\x{017F}]+</option>`)
	mapDataPattern = regexp.MustCompile(`(?is)<script>\s*mapData\s*=\s*(.+?);\s*</script>`)
	branchPrefix   = regexp.MustCompile(`(?i)^(x?\d+\s?[\d/]*[-\s]?)`)
)

// Marker is one point of a neighborhood page.
type Marker struct {
	Type         string          `json:"tipo"`
	Branch       string          `json:"sucursal"`
	Street       string          `json:"calle"`
	Number       site.FlexString `json:"numero"`
	Neighborhood string          `json:"colonia"`
	ZipCode      site.FlexString `json:"cp"`
	Phone        string          `json:"telefono"`
	Longitude    site.FlexString `json:"longitud"`
	Latitude     site.FlexString `json:"latitud"`
}

// Category returns the registry category of the marker.
func (m Marker) Category() string {
	if strings.EqualFold(strings.TrimSpace(m.Type), markerATM) {
		return sources.CategoryATM
	}
	return sources.CategoryOther
}

type mapData struct {
	Markers []Marker `json:"markers"`
}

// Source fetches Santander ATMs and branches.
type Source struct {
	cfg site.Config
}

// New creates a Santander source.
func New(cfg site.Config) *Source {
	return &Source{cfg: cfg.Resolve(string(sources.SantanderID), DefaultBaseURL)}
}

// ID implements sources.Source.
func (s *Source) ID() sources.ID { return sources.SantanderID }

// Name implements sources.Source.
func (s *Source) Name() string { return BankName }

// Fetch implements sources.Source.
func (s *Source) Fetch(ctx context.Context, req sources.Request, sink sources.Sink) error {
	return site.ForEach(ctx, 1, req.RegionList(), func(ctx context.Context, r regions.Region) error {
		ctx = logging.WithRegion(ctx, r.Slug())
		state := r.Query()

		municipalities := req.Municipalities
		if len(municipalities) == 0 {
			var err error
			municipalities, err = s.Municipalities(ctx, state)
			if err != nil {
				return errors.WrapSource(s.ID().String(), r.Slug(), err)
			}
		}

		return site.ForEach(ctx, s.cfg.Concurrency, municipalities, func(ctx context.Context, m string) error {
			if err := s.fetchMunicipality(ctx, r, m, sink); err != nil {
				return errors.WrapSource(s.ID().String(), r.Slug()+"/"+m, err)
			}
			return nil
		})
	})
}

// Municipalities lists the municipalities of a state, given by its
// upper-case unaccented name.
func (s *Source) Municipalities(ctx context.Context, state string) ([]string, error) {
	body, err := s.get(ctx, state, "", "")
	if err != nil {
		return nil, err
	}
	return ParseOptions(body), nil
}

// Neighborhoods lists the neighborhoods of a municipality.
func (s *Source) Neighborhoods(ctx context.Context, state, municipality string) ([]string, error) {
	body, err := s.get(ctx, state, municipality, "")
	if err != nil {
		return nil, err
	}
	return ParseOptions(body), nil
}

// Markers returns the points of a neighborhood.
func (s *Source) Markers(ctx context.Context, state, municipality, neighborhood string) ([]Marker, error) {
	body, err := s.get(ctx, state, municipality, neighborhood)
	if err != nil {
		return nil, err
	}
	return ParseMarkers(body)
}

func (s *Source) fetchMunicipality(ctx context.Context, r regions.Region, municipality string, sink sources.Sink) error {
	logger := logging.FromContext(ctx)
	logger.Debug().Str("municipality", municipality).Msg("Retrieving municipality")

	neighborhoods, err := s.Neighborhoods(ctx, r.Query(), municipality)
	if err != nil {
		return err
	}

	return site.ForEach(ctx, s.cfg.Concurrency, neighborhoods, func(ctx context.Context, n string) error {
		logger.Debug().Str("neighborhood", n).Msg("Retrieving neighborhood")
		markers, err := s.Markers(ctx, r.Query(), municipality, n)
		if err != nil {
			return err
		}
		for _, m := range markers {
			f, err := ToFeature(r.Query(), municipality, m)
			if err != nil {
				logger.Warn().Err(err).Str("branch", m.Branch).Msg("Skipping malformed marker")
				continue
			}
			if err := sink.Accept(r.Slug(), m.Category(), f); err != nil {
				logger.Warn().Err(err).Msg("Feature not accepted")
			}
		}
		return nil
	})
}

func (s *Source) get(ctx context.Context, state, municipality, neighborhood string) (string, error) {
	params := []transport.Param{
		{Key: "option1", Value: "true"},
		{Key: "option2", Value: "true"},
		{Key: "option3", Value: "true"},
		{Key: "option4", Value: "true"},
		{Key: "estado", Value: state},
	}
	if municipality != "" {
		params = append(params, transport.Param{Key: "municipio", Value: municipality})
	}
	if neighborhood != "" {
		params = append(params,
			transport.Param{Key: "colonia", Value: neighborhood},
			transport.Param{Key: "actionmap", Value: "sucursales"})
	}

	body, err := s.cfg.Client.Get(ctx, transport.BuildURL(s.cfg.BaseURL, params...), transport.RetryOnEmpty())
	if err != nil {
		return "", err
	}
	return decode(body), nil
}

// decode reads pages served as Latin-1.
func decode(body []byte) string {
	if utf8.Valid(body) {
		return string(body)
	}
	out, err := charmap.ISO8859_1.NewDecoder().Bytes(body)
	if err != nil {
		return string(body)
	}
	return string(out)
}

// ParseOptions returns the values of the <option> elements of a page.
func ParseOptions(page string) []string {
	var out []string
	for _, m := range optionPattern.FindAllStringSubmatch(page, -1) {
		if v := strings.TrimSpace(m[1]); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// ParseMarkers extracts the markers embedded in a neighborhood page. A page
// without map data has no markers.
func ParseMarkers(page string) ([]Marker, error) {
	m := mapDataPattern.FindStringSubmatch(page)
	if m == nil {
		return nil, nil
	}
	var data mapData
	if err := json.Unmarshal([]byte(m[1]), &data); err != nil {
		return nil, errors.WrapParse("json", "mapData", err)
	}
	return data.Markers, nil
}

// ToFeature converts a marker found under state and municipality into a
// feature.
func ToFeature(state, municipality string, m Marker) (*features.Feature, error) {
	lon, err := site.Coordinate(m.Longitude.String())
	if err != nil {
		return nil, err
	}
	lat, err := site.Coordinate(m.Latitude.String())
	if err != nil {
		return nil, err
	}

	name, prefix := SplitBranch(m.Branch)
	atmID, branchID := SplitATM(prefix)

	phone := features.String(strings.TrimSpace(m.Phone))
	if strings.Contains(m.Phone, "/") {
		phone = features.Null()
	}

	return features.New(lon, lat, features.Properties{
		features.PropBank:         features.String(BankName),
		features.PropType:         features.String(strings.ToLower(strings.TrimSpace(m.Type))),
		features.PropState:        features.String(normalize.Titleize(state)),
		features.PropMunicipality: features.String(normalize.Titleize(municipality)),
		features.PropName:         features.String(name),
		features.PropAddress:      features.String(normalize.Titleize(strings.TrimSpace(m.Street) + " " + m.Number.String())),
		features.PropNeighborhood: features.String(normalize.Titleize(m.Neighborhood)),
		features.PropZipCode:      features.String(m.ZipCode.String()),
		features.PropPhone:        phone,
		features.PropBranchID:     features.String(branchID),
		features.PropATMID:        features.String(atmID),
		features.PropOpeningHours: features.Raw([]byte("{}")),
		features.PropIsVerified:   features.Bool(false),
	}), nil
}

// SplitBranch separates the leading id block of a marker name from the
// display name. Names look like "999 name", "X999 123-name" or
// "X999 123/456 name". The display name is title-cased and loses any
// trailing sequence number.
func SplitBranch(raw string) (name, prefix string) {
	name = raw
	if m := branchPrefix.FindString(raw); m != "" {
		prefix = strings.TrimSpace(strings.Replace(m, "-", "", 1))
		name = strings.TrimPrefix(raw, m)
	}
	return normalize.StripBranchNumber(normalize.Titleize(name)), prefix
}

// SplitATM splits an id block "atm branch" into its parts. A block without
// a space is an ATM id alone.
func SplitATM(prefix string) (atmID, branchID string) {
	parts := strings.Split(prefix, " ")
	if len(parts) > 1 {
		return parts[0], parts[1]
	}
	return prefix, ""
}
