// Package store persists exported collections as GeoJSON files laid out as
// <dir>/<region>/<prefix>-<category>.raw.geojson, optionally gzip-compressed,
// and reads them back for the fix pass.
package store

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/goccy/go-json"
	"github.com/klauspost/compress/gzip"
	"github.com/rs/zerolog"

	"github.com/agentstation/atmap/pkg/constants"
	"github.com/agentstation/atmap/pkg/errors"
	"github.com/agentstation/atmap/pkg/exporter"
	"github.com/agentstation/atmap/pkg/features"
	"github.com/agentstation/atmap/pkg/logging"
)

// Store reads and writes collection files under one directory.
type Store struct {
	dir      string
	prefix   string
	compress bool
	logger   *zerolog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithPrefix sets the file name prefix. Empty keeps the default.
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		if prefix != "" {
			s.prefix = prefix
		}
	}
}

// WithCompression gzips written files and appends ".gz" to their names.
func WithCompression(enabled bool) Option {
	return func(s *Store) {
		s.compress = enabled
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zerolog.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New creates a store rooted at dir, or at the default output directory
// when dir is empty.
func New(dir string, opts ...Option) *Store {
	if dir == "" {
		dir = constants.DefaultOutputDir
	}
	s := &Store{
		dir:    dir,
		prefix: constants.DefaultFilePrefix,
		logger: logging.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Dir returns the root directory.
func (s *Store) Dir() string { return s.dir }

// RawPath returns the file a raw collection for region and category is
// written to.
func (s *Store) RawPath(region, category string) string {
	return s.path(region, s.prefix+"-"+category+constants.RawExtension)
}

func (s *Store) path(region, name string) string {
	if s.compress {
		name += constants.GzipExtension
	}
	return filepath.Join(s.dir, region, name)
}

// FixedPath returns the fixed counterpart of a raw file.
func FixedPath(raw string) string {
	gz := strings.HasSuffix(raw, constants.GzipExtension)
	p := strings.TrimSuffix(raw, constants.GzipExtension)
	p = strings.TrimSuffix(p, constants.RawExtension) + constants.FixedExtension
	if gz {
		p += constants.GzipExtension
	}
	return p
}

// Category returns the category encoded in a collection file name, or ""
// when the name does not follow the store layout.
func Category(path string) string {
	name := strings.TrimSuffix(filepath.Base(path), constants.GzipExtension)
	switch {
	case strings.HasSuffix(name, constants.RawExtension):
		name = strings.TrimSuffix(name, constants.RawExtension)
	case strings.HasSuffix(name, constants.FixedExtension):
		name = strings.TrimSuffix(name, constants.FixedExtension)
	default:
		return ""
	}
	i := strings.LastIndex(name, "-")
	if i < 0 {
		return ""
	}
	return name[i+1:]
}

// WriteRaw writes c to its raw path and returns that path.
func (s *Store) WriteRaw(c exporter.Collection) (string, error) {
	path := s.RawPath(c.Region, c.Category)
	if err := s.write(path, c); err != nil {
		return "", err
	}
	s.logger.Info().
		Str("region", c.Region).
		Str("category", c.Category).
		Int("features", c.Len()).
		Str("path", path).
		Msg("Wrote collection")
	return path, nil
}

// WriteAll writes every collection and returns the written paths in order.
func (s *Store) WriteAll(cs []exporter.Collection) ([]string, error) {
	paths := make([]string, 0, len(cs))
	for _, c := range cs {
		path, err := s.WriteRaw(c)
		if err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

// WriteFixed writes fc next to the raw file it was read from and returns
// the new path.
func (s *Store) WriteFixed(raw string, fc features.FeatureCollection) (string, error) {
	path := FixedPath(raw)
	if err := s.write(path, fc); err != nil {
		return "", err
	}
	s.logger.Info().Int("features", len(fc.Features)).Str("path", path).Msg("Wrote fixed collection")
	return path, nil
}

// RawFiles lists the raw files under the root directory, sorted.
func (s *Store) RawFiles() ([]string, error) {
	var out []string
	for _, pattern := range []string{
		"*" + constants.RawExtension,
		"*" + constants.RawExtension + constants.GzipExtension,
	} {
		matches, err := filepath.Glob(filepath.Join(s.dir, "*", pattern))
		if err != nil {
			return nil, errors.WrapIO("glob", s.dir, err)
		}
		out = append(out, matches...)
	}
	sort.Strings(out)
	return out, nil
}

// Read loads a collection file. Files ending in ".gz" are decompressed.
func (s *Store) Read(path string) (features.FeatureCollection, error) {
	var fc features.FeatureCollection

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fc, errors.NewNotFoundError("collection", path)
		}
		return fc, errors.WrapIO("open", path, err)
	}
	defer func() { _ = f.Close() }()

	var r io.Reader = f
	if strings.HasSuffix(path, constants.GzipExtension) {
		zr, err := gzip.NewReader(f)
		if err != nil {
			return fc, errors.WrapIO("read", path, err)
		}
		defer func() { _ = zr.Close() }()
		r = zr
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return fc, errors.WrapIO("read", path, err)
	}
	if err := json.Unmarshal(data, &fc); err != nil {
		return fc, errors.WrapParse("json", path, err)
	}
	return fc, nil
}

func (s *Store) write(path string, v any) error {
	data, err := encode(v)
	if err != nil {
		return errors.WrapParse("json", path, err)
	}

	if strings.HasSuffix(path, constants.GzipExtension) {
		var buf bytes.Buffer
		zw := gzip.NewWriter(&buf)
		if _, err := zw.Write(data); err != nil {
			return errors.WrapIO("compress", path, err)
		}
		if err := zw.Close(); err != nil {
			return errors.WrapIO("compress", path, err)
		}
		data = buf.Bytes()
	}

	if err := os.MkdirAll(filepath.Dir(path), constants.DirPermissions); err != nil {
		return errors.WrapIO("create", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, data, constants.FilePermissions); err != nil {
		return errors.WrapIO("write", path, err)
	}
	return nil
}

// encode renders v as JSON indented by two spaces.
func encode(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, data, "", "  "); err != nil {
		return nil, err
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}
