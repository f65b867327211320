package santander_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/atmap/internal/sources/santander"
	"github.com/agentstation/atmap/internal/sources/site"
	"github.com/agentstation/atmap/internal/transport"
	"github.com/agentstation/atmap/pkg/features"
	"github.com/agentstation/atmap/pkg/logging"
	"github.com/agentstation/atmap/pkg/regions"
	"github.com/agentstation/atmap/pkg/registry"
	"github.com/agentstation/atmap/pkg/sources"
)

func testdata(t *testing.T, name string) []byte {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("testdata", name))
	require.NoError(t, err)
	return data
}

func testConfig(url string) site.Config {
	return site.Config{
		BaseURL: url + "/sucursales2012/MapaAJAX.php",
		Client: transport.New("santander",
			transport.WithRequestDelay(0),
			transport.WithRetry(transport.RetryConfig{MaxRetries: 2, InitialInterval: time.Millisecond, MaxInterval: time.Millisecond})),
	}
}

func newServer(t *testing.T, pages *int32) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "true", q.Get("option1"))
		assert.Equal(t, "true", q.Get("option4"))
		assert.Equal(t, "DISTRITO FEDERAL", q.Get("estado"))

		switch {
		case q.Get("municipio") == "":
			_, _ = w.Write(testdata(t, "state.html"))
		case q.Get("colonia") == "":
			if q.Get("municipio") == "BENITO JUAREZ" {
				_, _ = w.Write([]byte(`<option value="NARVARTE">NARVARTE</option>`))
				return
			}
			_, _ = w.Write(testdata(t, "municipality.html"))
		default:
			atomic.AddInt32(pages, 1)
			assert.Equal(t, "sucursales", q.Get("actionmap"))
			if q.Get("colonia") == "NARVARTE" {
				_, _ = w.Write([]byte(`<html><body>Sin resultados</body></html>`))
				return
			}
			_, _ = w.Write(testdata(t, "neighborhood.html"))
		}
	}))
}

func TestFetch(t *testing.T) {
	var pages int32
	srv := newServer(t, &pages)
	defer srv.Close()

	reg, err := registry.New(registry.WithLogger(logging.NewNopLogger()))
	require.NoError(t, err)

	df, _ := regions.ByID(9)
	src := santander.New(testConfig(srv.URL))
	assert.Equal(t, sources.SantanderID, src.ID())
	assert.Equal(t, "Santander", src.Name())

	require.NoError(t, src.Fetch(context.Background(), sources.Request{Regions: []regions.Region{df}}, reg))
	assert.Equal(t, int32(2), atomic.LoadInt32(&pages))

	atms, ok := reg.Bucket("distrito-federal", sources.CategoryATM)
	require.True(t, ok)
	assert.Equal(t, 2, atms.Len())

	others, ok := reg.Bucket("distrito-federal", sources.CategoryOther)
	require.True(t, ok)
	assert.Equal(t, 1, others.Len())

	f, ok := atms.Lookup("-99.1412,19.4355")
	require.True(t, ok)
	props := f.Properties
	assert.Equal(t, "Santander", props.Text(features.PropBank))
	assert.Equal(t, "cajero", props.Text(features.PropType))
	assert.Equal(t, "Distrito Federal", props.Text(features.PropState))
	assert.Equal(t, "Cuauhtemoc", props.Text(features.PropMunicipality))
	assert.Equal(t, "Plaza Juarez", props.Text(features.PropName))
	assert.Equal(t, "Av Juarez 14", props.Text(features.PropAddress))
	assert.Equal(t, "Centro", props.Text(features.PropNeighborhood))
	assert.Equal(t, "06000", props.Text(features.PropZipCode))
	assert.Equal(t, "55 5169 4300", props.Text(features.PropPhone))
	assert.Equal(t, "X4512", props.Text(features.PropATMID))
	assert.Equal(t, "0873", props.Text(features.PropBranchID))
}

func TestFetchSelectedMunicipality(t *testing.T) {
	var pages int32
	srv := newServer(t, &pages)
	defer srv.Close()

	reg, err := registry.New(registry.WithLogger(logging.NewNopLogger()))
	require.NoError(t, err)

	df, _ := regions.ByID(9)
	req := sources.Request{Regions: []regions.Region{df}, Municipalities: []string{"BENITO JUAREZ"}}
	require.NoError(t, santander.New(testConfig(srv.URL)).Fetch(context.Background(), req, reg))
	assert.Equal(t, int32(1), atomic.LoadInt32(&pages))
	assert.Equal(t, 0, reg.Len())
}

func TestMunicipalitiesLatin1(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<option value=\"SAN JOS\xc9\">SAN JOS\xc9</option>"))
	}))
	defer srv.Close()

	got, err := santander.New(testConfig(srv.URL)).Municipalities(context.Background(), "SONORA")
	require.NoError(t, err)
	assert.Equal(t, []string{"SAN JOSÉ"}, got)
}

func TestParseMarkers(t *testing.T) {
	markers, err := santander.ParseMarkers(string(testdata(t, "neighborhood.html")))
	require.NoError(t, err)
	require.Len(t, markers, 4)
	assert.Equal(t, "21", markers[1].Number.String())
	assert.Equal(t, "-99.1365", markers[1].Longitude.String())
	assert.Equal(t, sources.CategoryATM, markers[0].Category())
	assert.Equal(t, sources.CategoryOther, markers[2].Category())

	markers, err = santander.ParseMarkers("<html></html>")
	require.NoError(t, err)
	assert.Empty(t, markers)

	_, err = santander.ParseMarkers("<script>mapData = {broken;</script>")
	assert.Error(t, err)
}

func TestToFeature(t *testing.T) {
	markers, err := santander.ParseMarkers(string(testdata(t, "neighborhood.html")))
	require.NoError(t, err)

	f, err := santander.ToFeature("DISTRITO FEDERAL", "CUAUHTEMOC", markers[1])
	require.NoError(t, err)
	assert.Equal(t, "Madero", f.Properties.Text(features.PropName))
	assert.Equal(t, "4513", f.Properties.Text(features.PropATMID))
	assert.Equal(t, "", f.Properties.Text(features.PropBranchID))
	phone, ok := f.Properties.Get(features.PropPhone)
	require.True(t, ok)
	assert.Equal(t, features.KindNull, phone.Kind())
	require.NoError(t, f.Validate())

	_, err = santander.ToFeature("DISTRITO FEDERAL", "CUAUHTEMOC", markers[3])
	assert.Error(t, err)
}

func TestSplitBranch(t *testing.T) {
	tests := []struct {
		raw    string
		name   string
		prefix string
	}{
		{"999 PLAZA SATELITE", "Plaza Satelite", "999"},
		{"X999 123-CENTRO HISTORICO", "Centro Historico", "X999 123"},
		{"X999 123/456 LOMAS 3", "Lomas", "X999 123/456"},
		{"PERISUR", "Perisur", ""},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			name, prefix := santander.SplitBranch(tt.raw)
			assert.Equal(t, tt.name, name)
			assert.Equal(t, tt.prefix, prefix)
		})
	}
}

func TestSplitATM(t *testing.T) {
	atm, branch := santander.SplitATM("X999 123")
	assert.Equal(t, "X999", atm)
	assert.Equal(t, "123", branch)

	atm, branch = santander.SplitATM("999")
	assert.Equal(t, "999", atm)
	assert.Equal(t, "", branch)
}
