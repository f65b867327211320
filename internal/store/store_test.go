package store_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/atmap/internal/store"
	"github.com/agentstation/atmap/pkg/errors"
	"github.com/agentstation/atmap/pkg/exporter"
	"github.com/agentstation/atmap/pkg/features"
	"github.com/agentstation/atmap/pkg/logging"
)

func testCollection() exporter.Collection {
	return exporter.Collection{
		Region:   "distrito-federal",
		Category: "atm",
		Features: []*features.Feature{
			features.New(-99.1365, 19.4334, features.Properties{
				features.PropBank: features.String("Banamex"),
				features.PropName: features.List("Madero", "Zocalo"),
			}),
			features.New(-99.1412, 19.4355, features.Properties{
				features.PropBank:  features.String("Santander"),
				features.PropPhone: features.Null(),
			}),
		},
	}
}

func TestWriteRaw(t *testing.T) {
	dir := t.TempDir()
	s := store.New(dir, store.WithLogger(logging.NewNopLogger()))

	path, err := s.WriteRaw(testCollection())
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "distrito-federal", "atms-atm.raw.geojson"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(data)
	assert.True(t, strings.HasPrefix(text, "{\n  \"type\": \"FeatureCollection\""), text)
	assert.True(t, strings.HasSuffix(text, "\n"))

	fc, err := s.Read(path)
	require.NoError(t, err)
	require.Len(t, fc.Features, 2)
	assert.Equal(t, "-99.1365,19.4334", fc.Features[0].Key())
	assert.Equal(t, []string{"Madero", "Zocalo"}, fc.Features[0].Properties[features.PropName].Strings())
	assert.Equal(t, features.KindNull, fc.Features[1].Properties[features.PropPhone].Kind())
}

func TestCompression(t *testing.T) {
	dir := t.TempDir()
	s := store.New(dir,
		store.WithLogger(logging.NewNopLogger()),
		store.WithCompression(true),
		store.WithPrefix("santander"))

	path, err := s.WriteRaw(testCollection())
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "distrito-federal", "santander-atm.raw.geojson.gz"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x1f, 0x8b}, data[:2])

	fc, err := s.Read(path)
	require.NoError(t, err)
	assert.Len(t, fc.Features, 2)
}

func TestWriteFixed(t *testing.T) {
	dir := t.TempDir()
	s := store.New(dir, store.WithLogger(logging.NewNopLogger()))

	paths, err := s.WriteAll([]exporter.Collection{testCollection()})
	require.NoError(t, err)
	require.Len(t, paths, 1)

	files, err := s.RawFiles()
	require.NoError(t, err)
	assert.Equal(t, paths, files)

	fc, err := s.Read(files[0])
	require.NoError(t, err)
	exporter.Fix(fc.Features, "ATM")

	fixed, err := s.WriteFixed(files[0], fc)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "distrito-federal", "atms-atm.geojson"), fixed)

	back, err := s.Read(fixed)
	require.NoError(t, err)
	assert.Equal(t, "Madero", back.Features[0].Properties.Text(features.PropName))
	assert.Equal(t, "ATM", back.Features[1].Properties.Text(features.PropType))

	// Fixed files are not raw files.
	files, err = s.RawFiles()
	require.NoError(t, err)
	assert.Len(t, files, 1)
}

func TestFixedPath(t *testing.T) {
	assert.Equal(t, "mx/oaxaca/atms-atm.geojson", store.FixedPath("mx/oaxaca/atms-atm.raw.geojson"))
	assert.Equal(t, "mx/oaxaca/atms-atm.geojson.gz", store.FixedPath("mx/oaxaca/atms-atm.raw.geojson.gz"))
}

func TestCategory(t *testing.T) {
	assert.Equal(t, "atm", store.Category("mx/oaxaca/atms-atm.raw.geojson"))
	assert.Equal(t, "other", store.Category("mx/oaxaca/bbva-bancomer-other.geojson.gz"))
	assert.Equal(t, "", store.Category("mx/oaxaca/readme.txt"))
	assert.Equal(t, "", store.Category("mx/oaxaca/atm.geojson"))
}

func TestReadMissing(t *testing.T) {
	s := store.New(t.TempDir(), store.WithLogger(logging.NewNopLogger()))
	_, err := s.Read(filepath.Join(s.Dir(), "nope.raw.geojson"))
	assert.True(t, errors.IsNotFound(err))
}

func TestDefaultDir(t *testing.T) {
	assert.Equal(t, "mx", store.New("").Dir())
}
