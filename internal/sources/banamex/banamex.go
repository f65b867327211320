// Package banamex fetches ATMs from the Banamex branch locator.
//
// The locator answers in plain text. Municipality lists look like
// "<header>=<id>|<name>||<id>|<name>||...". ATM lists are records ended by
// "^" whose fields are separated by "|"; see the field indexes below.
package banamex

import (
	"context"
	"regexp"
	"strconv"
	"strings"

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
const DefaultBaseURL = "http://portal.banamex.com.mx/c719_050/mapasAction.do"

// BankName is written into the bank property.
const BankName = "Banamex"

// Field indexes of an ATM record.
const (
	fieldATMID        = 0
	fieldName         = 1
	fieldState        = 2
	fieldMunicipality = 4
	fieldStreet       = 6
	fieldNumber       = 7
	fieldNeighborhood = 8
	fieldZipCode      = 9
	fieldLongitude    = 21
	fieldLatitude     = 22
	minFields         = 23
)

var federalDistrictSuffix = regexp.MustCompile(`(?i)(\s*,\s*|\s+)(d\.\s?f\.?|d\s?f)$`)

// Source fetches Banamex ATMs.
type Source struct {
	cfg site.Config
}

// Municipality is one entry of the locator's municipality list.
type Municipality struct {
	ID   string
	Name string
}

// New creates a Banamex source.
func New(cfg site.Config) *Source {
	return &Source{cfg: cfg.Resolve(string(sources.BanamexID), DefaultBaseURL)}
}

// ID implements sources.Source.
func (s *Source) ID() sources.ID { return sources.BanamexID }

// Name implements sources.Source.
func (s *Source) Name() string { return BankName }

// Fetch implements sources.Source.
func (s *Source) Fetch(ctx context.Context, req sources.Request, sink sources.Sink) error {
	return site.ForEach(ctx, 1, req.RegionList(), func(ctx context.Context, r regions.Region) error {
		ctx = logging.WithRegion(ctx, r.Slug())
		ids := req.Municipalities
		if len(ids) == 0 {
			municipalities, err := s.Municipalities(ctx, r)
			if err != nil {
				return errors.WrapSource(s.ID().String(), r.Slug(), err)
			}
			for _, m := range municipalities {
				ids = append(ids, m.ID)
			}
		}

		return site.ForEach(ctx, s.cfg.Concurrency, ids, func(ctx context.Context, id string) error {
			if err := s.fetchMunicipality(ctx, r, id, sink); err != nil {
				return errors.WrapSource(s.ID().String(), r.Slug()+"/"+id, err)
			}
			return nil
		})
	})
}

// Municipalities lists the municipalities of region r.
func (s *Source) Municipalities(ctx context.Context, r regions.Region) ([]Municipality, error) {
	url := transport.BuildURL(s.cfg.BaseURL,
		transport.Param{Key: "opcion", Value: "llenaCombos"},
		transport.Param{Key: "id_estado", Value: strconv.Itoa(r.ID)})
	body, err := s.cfg.Client.Get(ctx, url, transport.RetryOnEmpty())
	if err != nil {
		return nil, err
	}
	return ParseMunicipalities(string(body))
}

func (s *Source) fetchMunicipality(ctx context.Context, r regions.Region, id string, sink sources.Sink) error {
	logger := logging.FromContext(ctx)
	logger.Debug().Str("municipality", id).Msg("Retrieving municipality")

	url := transport.BuildURL(s.cfg.BaseURL,
		transport.Param{Key: "opcion", Value: "buscar"},
		transport.Param{Key: "accion", Value: "cajero-porDom"},
		transport.Param{Key: "tipoBus", Value: "300"},
		transport.Param{Key: "idioma", Value: "esp"},
		transport.Param{Key: "estado", Value: strconv.Itoa(r.ID)},
		transport.Param{Key: "iddel", Value: id})
	body, err := s.cfg.Client.Get(ctx, url, transport.RetryOnEmpty("No"))
	if err != nil {
		return err
	}

	for _, record := range strings.Split(string(body), "^") {
		if strings.TrimSpace(record) == "" {
			continue
		}
		f, err := ToFeature(record)
		if err != nil {
			logger.Warn().Err(err).Str("municipality", id).Msg("Skipping malformed record")
			continue
		}
		region := normalize.Slug(f.Properties.Text(features.PropState))
		if err := sink.Accept(region, sources.CategoryATM, f); err != nil {
			logger.Warn().Err(err).Msg("Feature not accepted")
		}
	}
	return nil
}

// ParseMunicipalities parses the municipality list answer.
func ParseMunicipalities(body string) ([]Municipality, error) {
	_, list, ok := strings.Cut(strings.TrimSpace(body), "=")
	if !ok {
		return nil, errors.NewParseError("text", "", "municipality list has no '=' separator", nil)
	}

	var out []Municipality
	for _, section := range strings.Split(list, "||") {
		parts := strings.Split(section, "|")
		if len(parts) < 2 || strings.TrimSpace(parts[0]) == "" {
			continue
		}
		out = append(out, Municipality{
			ID:   strings.TrimSpace(parts[0]),
			Name: normalize.Titleize(parts[1]),
		})
	}
	return out, nil
}

// ToFeature converts one ATM record into a feature.
func ToFeature(record string) (*features.Feature, error) {
	fields := strings.Split(strings.TrimSpace(record), "|")
	if len(fields) < minFields {
		return nil, errors.NewParseError("text", "", "record has "+strconv.Itoa(len(fields))+" fields", nil)
	}

	lon, err := site.Coordinate(fields[fieldLongitude])
	if err != nil {
		return nil, err
	}
	lat, err := site.Coordinate(fields[fieldLatitude])
	if err != nil {
		return nil, err
	}

	field := func(i int) string { return strings.TrimSpace(fields[i]) }
	return features.New(lon, lat, features.Properties{
		features.PropBank:         features.String(BankName),
		features.PropType:         features.String("ATM"),
		features.PropState:        features.String(normalize.Titleize(field(fieldState))),
		features.PropMunicipality: features.String(normalize.Titleize(field(fieldMunicipality))),
		features.PropName:         features.String(CleanName(field(fieldName))),
		features.PropAddress:      features.String(normalize.Titleize(field(fieldStreet) + " " + field(fieldNumber))),
		features.PropNeighborhood: features.String(normalize.Titleize(field(fieldNeighborhood))),
		features.PropZipCode:      features.String(field(fieldZipCode)),
		features.PropPhone:        features.String(""),
		features.PropATMID:        features.String(field(fieldATMID)),
		features.PropOpeningHours: features.Raw([]byte("{}")),
		features.PropIsVerified:   features.Bool(false),
	}), nil
}

// CleanName drops the branch number and a trailing federal district mark
// from an ATM name.
func CleanName(name string) string {
	name = federalDistrictSuffix.ReplaceAllString(strings.TrimSpace(name), "")
	return normalize.Titleize(normalize.StripBranchNumber(name))
}
