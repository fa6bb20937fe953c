package provider

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProvider struct {
	name    Name
	fail    bool
	delay   time.Duration
	calls   int32
	active  int32
	peak    int32
	mu      sync.Mutex
	lastReq Request
}

func (f *fakeProvider) Name() Name { return f.name }

func (f *fakeProvider) generate(req Request) (*Response, error) {
	atomic.AddInt32(&f.calls, 1)
	cur := atomic.AddInt32(&f.active, 1)
	defer atomic.AddInt32(&f.active, -1)
	for {
		p := atomic.LoadInt32(&f.peak)
		if cur <= p || atomic.CompareAndSwapInt32(&f.peak, p, cur) {
			break
		}
	}
	f.mu.Lock()
	f.lastReq = req
	f.mu.Unlock()
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if f.fail {
		return nil, errors.New("backend down")
	}
	return &Response{Text: `{"ok":true}`, Model: req.Model, Usage: Usage{Input: 1000, Output: 500, Total: 1500}}, nil
}

func (f *fakeProvider) GenerateText(_ context.Context, req Request) (*Response, error) {
	return f.generate(req)
}
func (f *fakeProvider) GenerateWithVision(_ context.Context, req Request) (*Response, error) {
	return f.generate(req)
}
func (f *fakeProvider) GenerateStructured(_ context.Context, req Request) (*Response, error) {
	return f.generate(req)
}

func newTestRegistry(gemini, oai Provider, limits Limits) *Registry {
	return NewRegistry(map[Name]Provider{Gemini: gemini, OpenAI: oai}, limits, nil, nil)
}

func TestGenerate_PrimarySucceeds(t *testing.T) {
	g := &fakeProvider{name: Gemini}
	o := &fakeProvider{name: OpenAI}
	r := newTestRegistry(g, o, Limits{})

	resp, err := r.Generate(context.Background(), Call{Kind: AuditVisual, Mode: ModeVision, Request: Request{Prompt: "p"}})
	require.NoError(t, err)
	assert.Equal(t, "gemini-2.5-flash", resp.Model)
	assert.EqualValues(t, 1, g.calls)
	assert.EqualValues(t, 0, o.calls)
}

func TestGenerate_FallbackOnPrimaryFailure(t *testing.T) {
	g := &fakeProvider{name: Gemini, fail: true}
	o := &fakeProvider{name: OpenAI}
	r := newTestRegistry(g, o, Limits{})

	resp, err := r.Generate(context.Background(), Call{Kind: AuditVisual, Request: Request{Prompt: "p"}})
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o", resp.Model)
	// Same prompt forwarded to the fallback.
	o.mu.Lock()
	assert.Equal(t, "p", o.lastReq.Prompt)
	o.mu.Unlock()
	assert.ElementsMatch(t, []string{"gemini", "openai"}, r.ProvidersUsed())
}

func TestGenerate_BothFail(t *testing.T) {
	g := &fakeProvider{name: Gemini, fail: true}
	o := &fakeProvider{name: OpenAI, fail: true}
	r := newTestRegistry(g, o, Limits{})

	_, err := r.Generate(context.Background(), Call{Kind: AuditSERP, Request: Request{Prompt: "p"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fallback")
}

func TestGenerate_SemaphoreBoundsConcurrency(t *testing.T) {
	g := &fakeProvider{name: Gemini, delay: 20 * time.Millisecond}
	r := newTestRegistry(g, &fakeProvider{name: OpenAI}, Limits{Gemini: 2})

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = r.Generate(context.Background(), Call{Kind: AuditVisual, Request: Request{Prompt: "p"}})
		}()
	}
	wg.Wait()
	assert.LessOrEqual(t, g.peak, int32(2), "more than maxConcurrent calls in flight")
}

func TestGenerate_CostAccumulates(t *testing.T) {
	g := &fakeProvider{name: Gemini}
	r := newTestRegistry(g, &fakeProvider{name: OpenAI}, Limits{})

	_, err := r.Generate(context.Background(), Call{Kind: AuditVisual, Request: Request{Prompt: "p"}})
	require.NoError(t, err)
	// 1000 in * 0.0003 + 500 out * 0.0025 per 1k for gemini-2.5-flash.
	assert.InDelta(t, 0.0003+0.00125, r.TotalCost(), 1e-9)
}

func TestGenerate_MissingProviderIsSoft(t *testing.T) {
	r := NewRegistry(map[Name]Provider{}, Limits{}, nil, nil)
	_, err := r.Generate(context.Background(), Call{Kind: AuditSynthesis, Request: Request{Prompt: "p"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not configured")
}

func TestPricing_UnknownModelIsZero(t *testing.T) {
	table := DefaultPricing()
	assert.Zero(t, table.Cost(OpenAI, "some-unknown", Usage{Input: 1000, Output: 1000}))
	assert.NotZero(t, table.Cost(OpenAI, "gpt-4o-2024-08-06", Usage{Input: 1000, Output: 1000}))
	assert.NotZero(t, table.Cost(OpenAI, "gpt-4o-mini-2024-07-18", Usage{Input: 1000, Output: 1000}))
}
