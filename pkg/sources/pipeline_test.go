package sources_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/atmap/pkg/errors"
	"github.com/agentstation/atmap/pkg/features"
	"github.com/agentstation/atmap/pkg/logging"
	"github.com/agentstation/atmap/pkg/regions"
	"github.com/agentstation/atmap/pkg/registry"
	"github.com/agentstation/atmap/pkg/sources"
)

type fakeSource struct {
	id       sources.ID
	features []*features.Feature
	err      error
	delay    time.Duration

	running, peak *int32
}

func (s *fakeSource) ID() sources.ID { return s.id }
func (s *fakeSource) Name() string   { return string(s.id) }

func (s *fakeSource) Fetch(ctx context.Context, _ sources.Request, sink sources.Sink) error {
	if s.running != nil {
		n := atomic.AddInt32(s.running, 1)
		defer atomic.AddInt32(s.running, -1)
		for {
			p := atomic.LoadInt32(s.peak)
			if n <= p || atomic.CompareAndSwapInt32(s.peak, p, n) {
				break
			}
		}
	}
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	for _, f := range s.features {
		_ = sink.Accept("distrito-federal", sources.CategoryATM, f)
	}
	return s.err
}

func atm(lon float64, bank string) *features.Feature {
	return features.New(lon, 19.4, features.Properties{
		features.PropBank:         features.String(bank),
		features.PropType:         features.String("ATM"),
		features.PropState:        features.String("Distrito Federal"),
		features.PropMunicipality: features.String("Cuauhtemoc"),
		features.PropName:         features.String("Centro"),
		features.PropAddress:      features.String("Madero 21"),
		features.PropNeighborhood: features.String("Centro"),
		features.PropZipCode:      features.String("06000"),
		features.PropPhone:        features.String(""),
		features.PropATMID:        features.String("1"),
	})
}

func newRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	reg, err := registry.New(registry.WithLogger(logging.NewNopLogger()))
	require.NoError(t, err)
	return reg
}

type fetchRecorder struct {
	mu    sync.Mutex
	calls map[sources.ID]error
}

func (r *fetchRecorder) ObserveFetch(id sources.ID, _ time.Duration, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls[id] = err
}

func TestPipelineRun(t *testing.T) {
	broken := atm(-99.3, "Santander")
	delete(broken.Properties, features.PropZipCode)

	srcs := []sources.Source{
		&fakeSource{id: sources.BanamexID, features: []*features.Feature{atm(-99.1, "Banamex"), atm(-99.2, "Banamex")}},
		&fakeSource{id: sources.SantanderID, features: []*features.Feature{atm(-99.1, "Santander"), broken}},
		&fakeSource{id: sources.BBVAID, err: errors.ErrEmptyResponse},
	}
	rec := &fetchRecorder{calls: make(map[sources.ID]error)}
	reg := newRegistry(t)

	p := sources.NewPipeline(srcs,
		sources.WithLogger(logging.NewNopLogger()),
		sources.WithFetchObserver(rec))
	result, err := p.Run(context.Background(), sources.Request{}, reg)
	require.NoError(t, err)

	require.Len(t, result.Stats, 3)
	assert.Equal(t, 2, result.Stats[sources.BanamexID].Submitted)
	assert.Equal(t, 0, result.Stats[sources.BanamexID].Rejected)
	assert.Equal(t, 2, result.Stats[sources.SantanderID].Submitted)
	assert.Equal(t, 1, result.Stats[sources.SantanderID].Rejected)
	assert.Equal(t, []sources.ID{sources.BBVAID}, result.Failed())
	assert.ErrorIs(t, result.Stats[sources.BBVAID].Err, errors.ErrEmptyResponse)
	assert.Contains(t, result.Summary(), "4 features from 2/3 sources, 1 rejected")

	b, ok := reg.Bucket("distrito-federal", sources.CategoryATM)
	require.True(t, ok)
	assert.Equal(t, 2, b.Len())

	assert.Len(t, rec.calls, 3)
	assert.NoError(t, rec.calls[sources.BanamexID])
	assert.Error(t, rec.calls[sources.BBVAID])
}

func TestPipelineAllSourcesFail(t *testing.T) {
	srcs := []sources.Source{
		&fakeSource{id: sources.BanamexID, err: errors.ErrEmptyResponse},
		&fakeSource{id: sources.BBVAID, err: errors.ErrSourceUnavailable},
	}

	result, err := sources.NewPipeline(srcs, sources.WithLogger(logging.NewNopLogger())).
		Run(context.Background(), sources.Request{}, newRegistry(t))
	require.Error(t, err)
	require.NotNil(t, result)
	assert.ErrorIs(t, err, errors.ErrEmptyResponse)
	assert.ErrorIs(t, err, errors.ErrSourceUnavailable)
	assert.Contains(t, err.Error(), "source banamex failed")
}

func TestPipelineConcurrencyLimit(t *testing.T) {
	var running, peak int32
	var srcs []sources.Source
	for _, id := range []sources.ID{"a", "b", "c", "d", "e"} {
		srcs = append(srcs, &fakeSource{id: id, delay: 20 * time.Millisecond, running: &running, peak: &peak})
	}

	_, err := sources.NewPipeline(srcs,
		sources.WithConcurrency(2),
		sources.WithLogger(logging.NewNopLogger())).
		Run(context.Background(), sources.Request{}, newRegistry(t))
	require.NoError(t, err)
	assert.LessOrEqual(t, atomic.LoadInt32(&peak), int32(2))
}

func TestPipelineCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	srcs := []sources.Source{&fakeSource{id: sources.BanamexID, delay: time.Second}}
	_, err := sources.NewPipeline(srcs, sources.WithLogger(logging.NewNopLogger())).
		Run(ctx, sources.Request{}, newRegistry(t))
	assert.True(t, errors.IsCanceled(err))
}

func TestPipelineRejectsInvalidRequest(t *testing.T) {
	req := sources.Request{Municipalities: []string{"1"}}
	_, err := sources.NewPipeline(nil).Run(context.Background(), req, newRegistry(t))
	assert.True(t, errors.IsValidationError(err))

	r, _ := regions.ByID(9)
	req.Regions = []regions.Region{r}
	result, err := sources.NewPipeline(nil).Run(context.Background(), req, newRegistry(t))
	require.NoError(t, err)
	assert.Empty(t, result.Stats)
}

func TestSources(t *testing.T) {
	s := sources.NewSources(&fakeSource{id: sources.SantanderID}, &fakeSource{id: sources.BanamexID})
	assert.Equal(t, 2, s.Len())
	assert.Equal(t, []sources.ID{sources.BanamexID, sources.SantanderID}, s.IDs())

	s.Set(sources.BBVAID, &fakeSource{id: sources.BBVAID})
	src, ok := s.Get(sources.BBVAID)
	require.True(t, ok)
	assert.Equal(t, sources.BBVAID, src.ID())

	s.Delete(sources.BanamexID)
	var ids []sources.ID
	for _, src := range s.List() {
		ids = append(ids, src.ID())
	}
	assert.Equal(t, []sources.ID{sources.BBVAID, sources.SantanderID}, ids)

	assert.True(t, sources.BBVAID.IsValid())
	assert.False(t, sources.ID("hsbc").IsValid())
}

func TestRequestRegionList(t *testing.T) {
	assert.Len(t, sources.Request{}.RegionList(), 32)
	r, _ := regions.ByID(14)
	assert.Equal(t, []regions.Region{r}, sources.Request{Regions: []regions.Region{r}}.RegionList())
}
