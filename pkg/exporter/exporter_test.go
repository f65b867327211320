package exporter_test

import (
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/atmap/pkg/exporter"
	"github.com/agentstation/atmap/pkg/features"
	"github.com/agentstation/atmap/pkg/logging"
	"github.com/agentstation/atmap/pkg/registry"
)

func atm(lon, lat float64, branchID, name string) *features.Feature {
	f := features.New(lon, lat, features.Properties{
		features.PropBank:         features.String("Santander"),
		features.PropType:         features.String("ATM"),
		features.PropState:        features.String("Jalisco"),
		features.PropMunicipality: features.String("Guadalajara"),
		features.PropName:         features.String(name),
		features.PropAddress:      features.String("Juarez 100"),
		features.PropNeighborhood: features.String("Centro"),
		features.PropZipCode:      features.String("44100"),
		features.PropPhone:        features.Null(),
		features.PropATMID:        features.String(""),
	})
	if branchID != "" {
		f.Properties.SetString(features.PropBranchID, branchID)
	}
	return f
}

func newRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	reg, err := registry.New(registry.WithLogger(logging.NewNopLogger()))
	require.NoError(t, err)
	return reg
}

func TestFlushOrdersByBranchID(t *testing.T) {
	reg := newRegistry(t)
	require.NoError(t, reg.Accept("jalisco", "atm", atm(-103.1, 20.1, "003", "Tres")))
	require.NoError(t, reg.Accept("jalisco", "atm", atm(-103.2, 20.2, "001", "Uno")))
	require.NoError(t, reg.Accept("jalisco", "atm", atm(-103.3, 20.3, "002", "Dos")))

	collections := exporter.Flush(reg)
	require.Len(t, collections, 1)

	var ids []string
	for _, f := range collections[0].Features {
		ids = append(ids, f.Properties.Text(features.PropBranchID))
	}
	assert.Equal(t, []string{"001", "002", "003"}, ids)
}

func TestFlushIsIndependentOfInsertionOrder(t *testing.T) {
	fs := func() []*features.Feature {
		return []*features.Feature{
			atm(-103.1, 20.1, "", "A"),
			atm(-103.3, 20.1, "", "B"),
			atm(-103.2, 20.1, "010", "C"),
			atm(-103.2, 20.5, "", "D"),
		}
	}

	render := func(order []int) string {
		reg := newRegistry(t)
		all := fs()
		for _, i := range order {
			require.NoError(t, reg.Accept("jalisco", "atm", all[i]))
		}
		data, err := json.Marshal(exporter.Flush(reg))
		require.NoError(t, err)
		return string(data)
	}

	want := render([]int{0, 1, 2, 3})
	assert.Equal(t, want, render([]int{3, 2, 1, 0}))
	assert.Equal(t, want, render([]int{2, 0, 3, 1}))

	reg := newRegistry(t)
	for _, f := range fs() {
		require.NoError(t, reg.Accept("jalisco", "atm", f))
	}
	var names []string
	for _, f := range exporter.Flush(reg)[0].Features {
		names = append(names, f.Properties.Text(features.PropName))
	}
	// Missing branch ids sort first, then by coordinate text.
	assert.Equal(t, []string{"A", "D", "B", "C"}, names)
}

func TestFlushBucketOrder(t *testing.T) {
	reg := newRegistry(t)
	require.NoError(t, reg.Accept("jalisco", "other", atm(-103.1, 20.1, "", "A")))
	require.NoError(t, reg.Accept("colima", "atm", atm(-103.7, 19.2, "", "B")))
	require.NoError(t, reg.Accept("jalisco", "atm", atm(-103.1, 20.1, "", "A")))

	var got []string
	for _, c := range exporter.Flush(reg) {
		got = append(got, c.Region+"/"+c.Category)
		assert.Equal(t, 1, c.Len())
	}
	assert.Equal(t, []string{"colima/atm", "jalisco/atm", "jalisco/other"}, got)
}

func TestCollectionJSON(t *testing.T) {
	reg := newRegistry(t)
	require.NoError(t, reg.Accept("jalisco", "atm", atm(-103.1, 20.1, "001", "Uno")))

	data, err := json.Marshal(exporter.Flush(reg)[0])
	require.NoError(t, err)

	want := `{"type":"FeatureCollection","features":[{"type":"Feature",` +
		`"geometry":{"type":"Point","coordinates":[-103.1,20.1]},"properties":{` +
		`"bank":"Santander","type":"ATM","state":"Jalisco","municipality":"Guadalajara",` +
		`"name":"Uno","address":"Juarez 100","neighborhood":"Centro","zipCode":"44100",` +
		`"phone":null,"branchId":"001","atmId":""}}]}`
	assert.Equal(t, want, string(data))
}

func TestFix(t *testing.T) {
	merged := atm(-103.1, 20.1, "001", "Uno")
	merged.Properties.Set(features.PropName, features.List("Uno", "Uno Centro"))
	merged.Properties.Set(features.PropATMID, features.List("1", "2"))
	merged.Properties.AddIssue("name")
	plain := atm(-103.2, 20.2, "002", "Dos")
	plain.Properties.SetString(features.PropType, "Sucursal")

	changed := exporter.Fix([]*features.Feature{merged, plain}, "ATM")

	assert.Equal(t, 2, changed)
	assert.Equal(t, features.String("Uno"), merged.Properties[features.PropName])
	assert.Equal(t, features.List("1", "2"), merged.Properties[features.PropATMID])
	assert.Equal(t, []string{"name"}, merged.Properties.Issues())
	assert.Equal(t, "ATM", plain.Properties.Text(features.PropType))

	assert.Equal(t, 0, exporter.Fix([]*features.Feature{plain}, ""))
}

func TestFixSkipsBlankAlternatives(t *testing.T) {
	f := atm(-103.1, 20.1, "001", "Uno")
	f.Properties.Set(features.PropNeighborhood, features.List("", "Centro"))
	f.Properties.Set(features.PropAddress, features.List("", ""))

	require.Equal(t, 1, exporter.Fix([]*features.Feature{f}, ""))

	assert.Equal(t, features.String("Centro"), f.Properties[features.PropNeighborhood])
	assert.Equal(t, features.String(""), f.Properties[features.PropAddress])
}
