package site_test

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/atmap/internal/sources/site"
	"github.com/agentstation/atmap/internal/transport"
	"github.com/agentstation/atmap/pkg/constants"
	"github.com/agentstation/atmap/pkg/errors"
)

func TestForEach(t *testing.T) {
	var sum int64
	err := site.ForEach(context.Background(), 2, []int{1, 2, 3, 4}, func(_ context.Context, n int) error {
		atomic.AddInt64(&sum, int64(n))
		if n == 3 {
			return fmt.Errorf("unit %d failed", n)
		}
		return nil
	})
	require.NoError(t, err, "partial failure is tolerated")
	assert.Equal(t, int64(10), atomic.LoadInt64(&sum))
}

func TestForEachAllFail(t *testing.T) {
	err := site.ForEach(context.Background(), 0, []string{"a", "b"}, func(_ context.Context, s string) error {
		return errors.NewSourceError("test", s, errors.ErrEmptyResponse)
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrEmptyResponse)
	assert.Contains(t, err.Error(), "region a")
	assert.Contains(t, err.Error(), "region b")
}

func TestForEachCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := site.ForEach(ctx, 1, []int{1}, func(context.Context, int) error { return nil })
	assert.True(t, errors.IsCanceled(err))
}

func TestForEachEmpty(t *testing.T) {
	assert.NoError(t, site.ForEach(context.Background(), 1, nil, func(context.Context, int) error {
		return errors.New("never called")
	}))
}

func TestFlexString(t *testing.T) {
	var v struct {
		A site.FlexString `json:"a"`
		B site.FlexString `json:"b"`
		C site.FlexString `json:"c"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"a":"-99.13 ","b":19.43,"c":null}`), &v))
	assert.Equal(t, "-99.13", v.A.String())
	assert.Equal(t, "19.43", v.B.String())
	assert.Equal(t, "", v.C.String())
}

func TestCoordinate(t *testing.T) {
	f, err := site.Coordinate(" -99.133209")
	require.NoError(t, err)
	assert.InDelta(t, -99.133209, f, 1e-9)

	_, err = site.Coordinate("n/a")
	var parseErr *errors.ParseError
	assert.ErrorAs(t, err, &parseErr)
}

func TestResolve(t *testing.T) {
	cfg := site.Config{
		BaseURL:       "http://example.test/locator/",
		ClientOptions: []transport.Option{transport.WithRequestDelay(0)},
	}.Resolve("banamex", "http://default.test")
	assert.Equal(t, "http://example.test/locator", cfg.BaseURL)
	assert.NotNil(t, cfg.Client)
	assert.Equal(t, constants.MaxConcurrentRequests, cfg.Concurrency)

	cfg = site.Config{Concurrency: 1}.Resolve("banamex", "http://default.test")
	assert.Equal(t, "http://default.test", cfg.BaseURL)
	assert.Equal(t, 1, cfg.Concurrency)
}
