// Package regions lists the Mexican states the bank sites are queried by.
// Ids follow the INEGI numbering the sites use in their request parameters.
package regions

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/agentstation/atmap/pkg/errors"
	"github.com/agentstation/atmap/pkg/normalize"
)

// All selects every region in Parse.
const All = "all"

// Region is one state.
type Region struct {
	ID   int
	Name string
}

// Slug returns the region key used for buckets and output directories.
func (r Region) Slug() string {
	return normalize.Slug(r.Name)
}

// Query returns the unaccented upper-case name some sites expect.
func (r Region) Query() string {
	return strings.ToUpper(strings.ReplaceAll(r.Slug(), "-", " "))
}

// String implements fmt.Stringer.
func (r Region) String() string {
	return fmt.Sprintf("%d: %s", r.ID, r.Name)
}

var states = []Region{
	{1, "Aguascalientes"},
	{2, "Baja California"},
	{3, "Baja California Sur"},
	{4, "Campeche"},
	{5, "Coahuila"},
	{6, "Colima"},
	{7, "Chiapas"},
	{8, "Chihuahua"},
	{9, "Distrito Federal"},
	{10, "Durango"},
	{11, "Guanajuato"},
	{12, "Guerrero"},
	{13, "Hidalgo"},
	{14, "Jalisco"},
	{15, "Estado de México"},
	{16, "Michoacán"},
	{17, "Morelos"},
	{18, "Nayarit"},
	{19, "Nuevo León"},
	{20, "Oaxaca"},
	{21, "Puebla"},
	{22, "Querétaro"},
	{23, "Quintana Roo"},
	{24, "San Luis Potosí"},
	{25, "Sinaloa"},
	{26, "Sonora"},
	{27, "Tabasco"},
	{28, "Tamaulipas"},
	{29, "Tlaxcala"},
	{30, "Veracruz"},
	{31, "Yucatán"},
	{32, "Zacatecas"},
}

// List returns every region ordered by id.
func List() []Region {
	out := make([]Region, len(states))
	copy(out, states)
	return out
}

// ByID returns the region with the given id.
func ByID(id int) (Region, bool) {
	if id < 1 || id > len(states) {
		return Region{}, false
	}
	return states[id-1], true
}

// BySlug returns the region whose slug, or slugified name, equals s.
func BySlug(s string) (Region, bool) {
	slug := normalize.Slug(s)
	for _, r := range states {
		if r.Slug() == slug {
			return r, true
		}
	}
	return Region{}, false
}

// Parse resolves a comma-separated list of ids, slugs or names. "all" or an
// empty string selects every region.
func Parse(s string) ([]Region, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, All) {
		return List(), nil
	}

	var out []Region
	seen := make(map[int]bool)
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		var (
			r  Region
			ok bool
		)
		if id, err := strconv.Atoi(part); err == nil {
			r, ok = ByID(id)
		} else {
			r, ok = BySlug(part)
		}
		if !ok {
			return nil, errors.NewNotFoundError("region", part)
		}
		if !seen[r.ID] {
			seen[r.ID] = true
			out = append(out, r)
		}
	}
	return out, nil
}
