package app

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/atmap"
	"github.com/agentstation/atmap/internal/store"
	"github.com/agentstation/atmap/pkg/features"
	"github.com/agentstation/atmap/pkg/logging"
	"github.com/agentstation/atmap/pkg/sources"
)

type stubSource struct{}

func (stubSource) ID() sources.ID { return sources.ID("banamex") }
func (stubSource) Name() string   { return "Banamex" }

func (stubSource) Fetch(_ context.Context, _ sources.Request, sink sources.Sink) error {
	return sink.Accept("oaxaca", sources.CategoryATM, features.New(-96.72, 17.06, features.Properties{
		features.PropBank:         features.String("Banamex"),
		features.PropType:         features.String("ATM"),
		features.PropState:        features.String("Oaxaca"),
		features.PropMunicipality: features.String("Oaxaca De Juarez"),
		features.PropName:         features.String("Zocalo"),
		features.PropAddress:      features.String("Independencia 500"),
		features.PropNeighborhood: features.String("Centro"),
		features.PropZipCode:      features.String("68000"),
		features.PropPhone:        features.String(""),
		features.PropATMID:        features.String("77"),
	}))
}

func testConfig(t *testing.T) *Config {
	t.Helper()
	return &Config{
		Format:             "json",
		OutputDir:          t.TempDir(),
		Concurrency:        2,
		RequestConcurrency: 3,
		MaxRetries:         1,
		LogOutput:          "discard",
	}
}

func newTestApp(t *testing.T, config *Config) *App {
	t.Helper()
	a, err := New("1.2.3", "abc123", "2026-10-18", "test",
		WithConfig(config),
		WithLogger(logging.NewNopLogger()))
	require.NoError(t, err)
	return a
}

func TestNew(t *testing.T) {
	config := testConfig(t)
	a := newTestApp(t, config)

	assert.Equal(t, "1.2.3", a.Version())
	assert.Equal(t, "abc123", a.Commit())
	assert.Equal(t, "2026-10-18", a.Date())
	assert.Equal(t, "test", a.BuiltBy())
	assert.Same(t, config, a.Config())
	assert.NotNil(t, a.Logger())
	assert.Equal(t, "json", a.OutputFormat())
	assert.Equal(t, config.OutputDir, a.OutputDir())
}

func TestNewInvalidConfig(t *testing.T) {
	config := testConfig(t)
	config.Concurrency = 0

	_, err := New("dev", "", "", "", WithConfig(config))
	require.Error(t, err)
}

func TestSiteConfig(t *testing.T) {
	cfg := newTestApp(t, testConfig(t)).SiteConfig()

	assert.Equal(t, 3, cfg.Concurrency)
	assert.Len(t, cfg.ClientOptions, 3)
	assert.Nil(t, cfg.Client)
}

func TestAtmapWithOptions(t *testing.T) {
	config := testConfig(t)
	config.MetricsFile = filepath.Join(t.TempDir(), "atmap.prom")
	a := newTestApp(t, config)

	am, err := a.AtmapWithOptions(
		atmap.WithSources(stubSource{}),
		atmap.WithStore(store.New(config.OutputDir)),
	)
	require.NoError(t, err)

	result, err := am.Run(context.Background(), sources.Request{})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Features())
	assert.Equal(t, []string{filepath.Join(config.OutputDir, "oaxaca", "atms-atm.raw.geojson")}, result.Paths())

	data, err := os.ReadFile(config.MetricsFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), "atmap_features_accepted_total")
}

func TestVersionCommand(t *testing.T) {
	a := newTestApp(t, testConfig(t))
	root := a.createRootCommand()

	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"version", "--verbose"})
	require.NoError(t, root.Execute())

	assert.Contains(t, out.String(), "atmap 1.2.3")
	assert.Contains(t, out.String(), "commit:   abc123")
}

func TestListCommand(t *testing.T) {
	a := newTestApp(t, testConfig(t))
	root := a.createRootCommand()

	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"list", "banks", "--format", "json", "--log-level", "error"})
	require.NoError(t, root.Execute())

	assert.Contains(t, out.String(), `"id": "santander"`)
	assert.Equal(t, "error", a.Config().LogLevel)
}

func TestSetupCommandConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, "output_dir: "+dir+"\nformat: yaml\n")

	a := newTestApp(t, testConfig(t))
	root := a.createRootCommand()
	root.SetOut(&bytes.Buffer{})
	root.SetArgs([]string{"version", "--config", path})
	require.NoError(t, root.Execute())

	assert.Equal(t, dir, a.OutputDir())
	assert.Equal(t, "yaml", a.OutputFormat())
	assert.Equal(t, path, a.Config().ConfigFile)
}
