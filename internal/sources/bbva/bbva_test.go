package bbva_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/atmap/internal/sources/bbva"
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
		BaseURL: url + "/BuscadorSucursales/ServicioMapa.asmx",
		Client: transport.New("bbva-bancomer",
			transport.WithRequestDelay(0),
			transport.WithRetry(transport.RetryConfig{MaxRetries: 2, InitialInterval: time.Millisecond, MaxInterval: time.Millisecond})),
	}
}

func newServer(t *testing.T, searches *int32) *httptest.Server {
	t.Helper()
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, srv.URL+"/", r.Header.Get("Referer"))

		data, err := io.ReadAll(r.Body)
		assert.NoError(t, err)
		var payload map[string]string
		assert.NoError(t, json.Unmarshal(data, &payload))
		assert.Equal(t, "9", payload["idEstado"])

		switch {
		case strings.HasSuffix(r.URL.Path, "/ObtenerMunicipios"):
			_, _ = w.Write(testdata(t, "municipalities.json"))
		case strings.HasSuffix(r.URL.Path, "/ObtenerLocalidades"):
			_, _ = w.Write(testdata(t, "localities.json"))
		case strings.HasSuffix(r.URL.Path, "/BusquedaGeografica"):
			atomic.AddInt32(searches, 1)
			assert.Equal(t, "1", payload["idCategoria"])
			assert.Equal(t, "1", payload["idLocalidad"])
			if payload["idMunicipio"] == "16" {
				_, _ = w.Write([]byte(`{"d":[]}`))
				return
			}
			_, _ = w.Write(testdata(t, "search.json"))
		default:
			http.NotFound(w, r)
		}
	}))
	return srv
}

func TestFetch(t *testing.T) {
	var searches int32
	srv := newServer(t, &searches)
	defer srv.Close()

	reg, err := registry.New(registry.WithLogger(logging.NewNopLogger()))
	require.NoError(t, err)

	df, _ := regions.ByID(9)
	src := bbva.New(testConfig(srv.URL))
	assert.Equal(t, sources.BBVAID, src.ID())
	assert.Equal(t, "BBVA Bancomer", src.Name())

	require.NoError(t, src.Fetch(context.Background(), sources.Request{Regions: []regions.Region{df}}, reg))
	assert.Equal(t, int32(2), atomic.LoadInt32(&searches))

	b, ok := reg.Bucket("distrito-federal", "atm")
	require.True(t, ok)
	require.Equal(t, 2, b.Len())

	reforma, ok := b.Lookup("-99.1624,19.4292")
	require.True(t, ok)
	props := reforma.Properties
	assert.Equal(t, "BBVA Bancomer", props.Text(features.PropBank))
	assert.Equal(t, "Distrito Federal", props.Text(features.PropState))
	assert.Equal(t, "Cuauhtemoc", props.Text(features.PropMunicipality))
	assert.Equal(t, "Reforma 222", props.Text(features.PropName))
	assert.Equal(t, "Paseo De La Reforma 222", props.Text(features.PropAddress))
	assert.Equal(t, "Juarez", props.Text(features.PropNeighborhood))
	assert.Equal(t, "06600", props.Text(features.PropZipCode))
	assert.Equal(t, "42", props.Text(features.PropATMID))
}

func TestFetchSelectedMunicipality(t *testing.T) {
	var searches int32
	srv := newServer(t, &searches)
	defer srv.Close()

	reg, err := registry.New(registry.WithLogger(logging.NewNopLogger()))
	require.NoError(t, err)

	df, _ := regions.ByID(9)
	req := sources.Request{Regions: []regions.Region{df}, Municipalities: []string{"miguel hidalgo"}}
	require.NoError(t, bbva.New(testConfig(srv.URL)).Fetch(context.Background(), req, reg))
	assert.Equal(t, int32(1), atomic.LoadInt32(&searches))
	assert.Equal(t, 0, reg.Len())
}

func TestCleanATMID(t *testing.T) {
	tests := map[string]string{
		"ATM0042": "42",
		"1187":    "1187",
		"a12b":    "12",
		"12-3":    "12-3",
		"":        "",
	}
	for in, want := range tests {
		assert.Equal(t, want, bbva.CleanATMID(in), in)
	}
}

func TestResultLookup(t *testing.T) {
	r := bbva.Result{Fields: []bbva.Field{{Label: "CP", Value: " 6600 "}}}
	assert.Equal(t, "6600", r.Lookup("CP"))
	assert.Equal(t, "", r.Lookup("COL"))
}
