// Package bbva fetches ATMs from the BBVA Bancomer branch locator, a JSON
// web service walked state, municipality, locality.
package bbva

import (
	"context"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/agentstation/atmap/internal/sources/site"
	"github.com/agentstation/atmap/internal/transport"
	"github.com/agentstation/atmap/pkg/errors"
	"github.com/agentstation/atmap/pkg/features"
	"github.com/agentstation/atmap/pkg/logging"
	"github.com/agentstation/atmap/pkg/normalize"
	"github.com/agentstation/atmap/pkg/regions"
	"github.com/agentstation/atmap/pkg/sources"
)

// DefaultBaseURL is the locator service endpoint.
const DefaultBaseURL = "http://184.106.19.51/BuscadorSucursales/ServicioMapa.asmx"

// BankName is written into the bank property.
const BankName = "BBVA Bancomer"

// Service operations.
const (
	opMunicipalities = "/ObtenerMunicipios"
	opLocalities     = "/ObtenerLocalidades"
	opSearch         = "/BusquedaGeografica"
)

var letters = regexp.MustCompile(`(?i)[a-z]+`)

type municipalitiesResponse struct {
	D []struct {
		ID   site.FlexString `json:"IdMunicipio"`
		Name string          `json:"Municipio"`
	} `json:"d"`
}

type localitiesResponse struct {
	D []struct {
		ID   site.FlexString `json:"IdLocalidad"`
		Name string          `json:"Localidad"`
	} `json:"d"`
}

// Field is one labelled value of a search result.
type Field struct {
	Label string `json:"Etiqueta"`
	Value string `json:"Valor"`
}

// Result is one search result.
type Result struct {
	Name      string          `json:"Nombre"`
	Longitude site.FlexString `json:"Longitud"`
	Latitude  site.FlexString `json:"Latitud"`
	Fields    []Field         `json:"Campos"`
}

// Lookup returns the value labelled label.
func (r Result) Lookup(label string) string {
	for _, f := range r.Fields {
		if f.Label == label {
			return strings.TrimSpace(f.Value)
		}
	}
	return ""
}

type searchResponse struct {
	D []Result `json:"d"`
}

// Place is a municipality or locality.
type Place struct {
	ID   string
	Name string
}

// Source fetches BBVA Bancomer ATMs.
type Source struct {
	cfg     site.Config
	referer transport.Decorator

	mu    sync.Mutex
	names map[string]map[string]string // state id -> municipality id -> name
}

// New creates a BBVA Bancomer source. Requests carry a Referer header
// pointing at the root of the service host, which the service checks.
func New(cfg site.Config) *Source {
	cfg = cfg.Resolve(string(sources.BBVAID), DefaultBaseURL)
	return &Source{
		cfg:     cfg,
		referer: transport.Referer(refererFor(cfg.BaseURL)),
		names:   make(map[string]map[string]string),
	}
}

func refererFor(base string) string {
	u, err := url.Parse(base)
	if err != nil || u.Host == "" {
		return base
	}
	return u.Scheme + "://" + u.Host + "/"
}

func (s *Source) post(ctx context.Context, op string, payload map[string]string, target any) error {
	body, err := s.cfg.Client.PostJSON(ctx, s.cfg.BaseURL+op, payload, transport.Decorate(s.referer))
	if err != nil {
		return err
	}
	return transport.DecodeJSON(body, target)
}

// ID implements sources.Source.
func (s *Source) ID() sources.ID { return sources.BBVAID }

// Name implements sources.Source.
func (s *Source) Name() string { return BankName }

// Fetch implements sources.Source.
func (s *Source) Fetch(ctx context.Context, req sources.Request, sink sources.Sink) error {
	return site.ForEach(ctx, 1, req.RegionList(), func(ctx context.Context, r regions.Region) error {
		ctx = logging.WithRegion(ctx, r.Slug())
		stateID := strconv.Itoa(r.ID)

		municipalities, err := s.Municipalities(ctx, stateID)
		if err != nil {
			return errors.WrapSource(s.ID().String(), r.Slug(), err)
		}
		if len(req.Municipalities) > 0 {
			municipalities = selectPlaces(municipalities, req.Municipalities)
		}

		return site.ForEach(ctx, s.cfg.Concurrency, municipalities, func(ctx context.Context, m Place) error {
			if err := s.fetchMunicipality(ctx, stateID, m, sink); err != nil {
				return errors.WrapSource(s.ID().String(), r.Slug()+"/"+m.ID, err)
			}
			return nil
		})
	})
}

// Municipalities lists the municipalities of a state and remembers their
// names for the features built later.
func (s *Source) Municipalities(ctx context.Context, stateID string) ([]Place, error) {
	var resp municipalitiesResponse
	if err := s.post(ctx, opMunicipalities, map[string]string{"idEstado": stateID}, &resp); err != nil {
		return nil, err
	}

	places := make([]Place, 0, len(resp.D))
	names := make(map[string]string, len(resp.D))
	for _, m := range resp.D {
		p := Place{ID: m.ID.String(), Name: normalize.Titleize(m.Name)}
		places = append(places, p)
		names[p.ID] = p.Name
	}

	s.mu.Lock()
	s.names[stateID] = names
	s.mu.Unlock()
	return places, nil
}

// Localities lists the localities of a municipality.
func (s *Source) Localities(ctx context.Context, stateID, municipalityID string) ([]Place, error) {
	var resp localitiesResponse
	payload := map[string]string{"idEstado": stateID, "idMunicipio": municipalityID}
	if err := s.post(ctx, opLocalities, payload, &resp); err != nil {
		return nil, err
	}

	places := make([]Place, 0, len(resp.D))
	for _, l := range resp.D {
		places = append(places, Place{ID: l.ID.String(), Name: normalize.Titleize(l.Name)})
	}
	return places, nil
}

func (s *Source) fetchMunicipality(ctx context.Context, stateID string, m Place, sink sources.Sink) error {
	localities, err := s.Localities(ctx, stateID, m.ID)
	if err != nil {
		return err
	}
	return site.ForEach(ctx, s.cfg.Concurrency, localities, func(ctx context.Context, l Place) error {
		return s.fetchLocality(ctx, stateID, m, l, sink)
	})
}

func (s *Source) fetchLocality(ctx context.Context, stateID string, m Place, l Place, sink sources.Sink) error {
	logger := logging.FromContext(ctx)
	logger.Debug().Str("municipality", m.ID).Str("locality", l.ID).Msg("Retrieving locality")

	var resp searchResponse
	err := s.post(ctx, opSearch, map[string]string{
		"idCategoria": "1",
		"idEstado":    stateID,
		"idMunicipio": m.ID,
		"idLocalidad": l.ID,
		"idColonia":   "0",
		"criterio":    "",
	}, &resp)
	if err != nil {
		return err
	}

	for _, result := range resp.D {
		f, err := s.ToFeature(result, m.Name)
		if err != nil {
			logger.Warn().Err(err).Str("name", result.Name).Msg("Skipping malformed result")
			continue
		}
		region := normalize.Slug(f.Properties.Text(features.PropState))
		if err := sink.Accept(region, sources.CategoryATM, f); err != nil {
			logger.Warn().Err(err).Msg("Feature not accepted")
		}
	}
	return nil
}

// ToFeature converts a search result into a feature. The municipality name
// is looked up from the result's ids and falls back to municipality.
func (s *Source) ToFeature(r Result, municipality string) (*features.Feature, error) {
	lon, err := site.Coordinate(r.Longitude.String())
	if err != nil {
		return nil, err
	}
	lat, err := site.Coordinate(r.Latitude.String())
	if err != nil {
		return nil, err
	}

	if name := s.municipalityName(r.Lookup("ID_ESTADO"), r.Lookup("ID_MUNICIPIO")); name != "" {
		municipality = name
	}

	return features.New(lon, lat, features.Properties{
		features.PropBank:         features.String(BankName),
		features.PropType:         features.String("ATM"),
		features.PropState:        features.String(normalize.Titleize(strings.ReplaceAll(r.Lookup("ESTADO"), "_", " "))),
		features.PropMunicipality: features.String(normalize.Titleize(municipality)),
		features.PropName:         features.String(normalize.Titleize(normalize.StripBranchNumber(strings.TrimSpace(r.Name)))),
		features.PropAddress:      features.String(normalize.SanitizeAddress(r.Lookup("DOMICILIO"))),
		features.PropNeighborhood: features.String(normalize.Titleize(r.Lookup("COL"))),
		features.PropZipCode:      features.String(normalize.PadZip(r.Lookup("CP"))),
		features.PropPhone:        features.String(""),
		features.PropATMID:        features.String(CleanATMID(r.Lookup("ATM"))),
		features.PropOpeningHours: features.Raw([]byte("{}")),
		features.PropIsVerified:   features.Bool(false),
	}), nil
}

func (s *Source) municipalityName(stateID, municipalityID string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.names[stateID][municipalityID]
}

// CleanATMID drops letters from an ATM id and reads the rest as a number,
// so "ATM0042" becomes "42". Ids that are still not numeric are returned
// without the letters.
func CleanATMID(id string) string {
	digits := strings.TrimSpace(letters.ReplaceAllString(id, ""))
	n, err := strconv.Atoi(digits)
	if err != nil {
		return digits
	}
	return strconv.Itoa(n)
}

func selectPlaces(places []Place, wanted []string) []Place {
	var out []Place
	for _, p := range places {
		for _, w := range wanted {
			if p.ID == w || strings.EqualFold(p.Name, w) {
				out = append(out, p)
				break
			}
		}
	}
	return out
}
