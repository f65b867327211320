package atmap

import (
	"context"

	"github.com/agentstation/atmap/internal/store"
	"github.com/agentstation/atmap/pkg/errors"
	"github.com/agentstation/atmap/pkg/exporter"
	"github.com/agentstation/atmap/pkg/sources"
)

// Fix reads every raw collection of the store, collapses list-valued
// display properties and writes the fixed collection next to the raw one.
// Features of ATM collections also get their type set to featureType when
// it is not empty.
func (a *atmap) Fix(ctx context.Context, featureType string) (*FixResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	files, err := a.config.store.RawFiles()
	if err != nil {
		return nil, err
	}

	result := &FixResult{}
	for _, raw := range files {
		if err := ctx.Err(); err != nil {
			return result, errors.Join(errors.ErrCanceled, err)
		}

		fc, err := a.config.store.Read(raw)
		if err != nil {
			return result, err
		}
		typ := ""
		if store.Category(raw) == sources.CategoryATM {
			typ = featureType
		}
		changed := exporter.Fix(fc.Features, typ)

		fixed, err := a.config.store.WriteFixed(raw, fc)
		if err != nil {
			return result, err
		}
		result.Files = append(result.Files, FixedFile{
			Raw:      raw,
			Fixed:    fixed,
			Features: len(fc.Features),
			Changed:  changed,
		})
	}

	a.config.logger.Info().
		Int("files", len(result.Files)).
		Int("changed", result.Changed()).
		Msg("Fixed collections")
	return result, nil
}
