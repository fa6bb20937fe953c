package provider

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"
)

// AuditKind keys the assignment table.
type AuditKind string

const (
	AuditVisual    AuditKind = "visual"
	AuditSERP      AuditKind = "serp"
	AuditSynthesis AuditKind = "synthesis"
)

// Assignment maps an audit kind to its providers and model.
type Assignment struct {
	Primary       Name
	Fallback      Name
	PrimaryModel  string
	FallbackModel string
}

// DefaultAssignments is the static audit-type → provider table.
func DefaultAssignments() map[AuditKind]Assignment {
	return map[AuditKind]Assignment{
		AuditVisual:    {Primary: Gemini, Fallback: OpenAI, PrimaryModel: "gemini-2.5-flash", FallbackModel: "gpt-4o"},
		AuditSERP:      {Primary: Gemini, Fallback: OpenAI, PrimaryModel: "gemini-2.5-flash", FallbackModel: "gpt-4o-mini"},
		AuditSynthesis: {Primary: OpenAI, Fallback: Gemini, PrimaryModel: "gpt-4o", FallbackModel: "gemini-2.5-flash"},
	}
}

// Call is a registry invocation: which capability to exercise and with
// what request. Model is filled from the assignment when empty.
type Call struct {
	Kind    AuditKind
	Mode    Mode
	Request Request
}

// Mode selects the provider capability.
type Mode int

const (
	ModeText Mode = iota
	ModeVision
	ModeStructured
)

// Registry holds the configured providers behind process-scoped
// semaphores and retries failed calls on the fallback provider.
type Registry struct {
	providers   map[Name]Provider
	sems        map[Name]*semaphore.Weighted
	assignments map[AuditKind]Assignment
	pricing     PricingTable

	mu        sync.Mutex
	totalCost float64
	used      map[Name]bool
}

// Limits carries per-provider maxConcurrent (default 4 each).
type Limits struct {
	Gemini int
	OpenAI int
}

// NewRegistry wires providers, semaphores, assignments, and pricing.
// Providers may be nil; calls routed to a missing provider fail softly.
func NewRegistry(providers map[Name]Provider, limits Limits, assignments map[AuditKind]Assignment, pricing PricingTable) *Registry {
	if assignments == nil {
		assignments = DefaultAssignments()
	}
	if pricing == nil {
		pricing = DefaultPricing()
	}
	if limits.Gemini <= 0 {
		limits.Gemini = 4
	}
	if limits.OpenAI <= 0 {
		limits.OpenAI = 4
	}
	return &Registry{
		providers: providers,
		sems: map[Name]*semaphore.Weighted{
			Gemini: semaphore.NewWeighted(int64(limits.Gemini)),
			OpenAI: semaphore.NewWeighted(int64(limits.OpenAI)),
		},
		assignments: assignments,
		pricing:     pricing,
		used:        make(map[Name]bool),
	}
}

// Generate runs the call on the assigned primary provider and retries the
// fallback with the same prompt on failure. It blocks while the provider
// semaphore is saturated, up to the request's own timeout via ctx.
func (r *Registry) Generate(ctx context.Context, call Call) (*Response, error) {
	assign, ok := r.assignments[call.Kind]
	if !ok {
		return nil, fmt.Errorf("no provider assignment for audit kind %q", call.Kind)
	}

	resp, primaryErr := r.generateWith(ctx, assign.Primary, assign.PrimaryModel, call)
	if primaryErr == nil {
		return resp, nil
	}
	log.Warn().Err(primaryErr).
		Str("provider", string(assign.Primary)).
		Str("kind", string(call.Kind)).
		Msg("primary provider failed, trying fallback")

	resp, fallbackErr := r.generateWith(ctx, assign.Fallback, assign.FallbackModel, call)
	if fallbackErr == nil {
		return resp, nil
	}
	return nil, fmt.Errorf("primary (%s): %v; fallback (%s): %w",
		assign.Primary, primaryErr, assign.Fallback, fallbackErr)
}

// GenerateWith runs the call on one named provider, blocking until a
// semaphore slot is free.
func (r *Registry) GenerateWith(ctx context.Context, name Name, call Call) (*Response, error) {
	return r.generateWith(ctx, name, call.Request.Model, call)
}

func (r *Registry) generateWith(ctx context.Context, name Name, model string, call Call) (*Response, error) {
	p, ok := r.providers[name]
	if !ok || p == nil {
		return nil, fmt.Errorf("provider %q not configured", name)
	}
	sem := r.sems[name]
	if err := sem.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("provider %q slot: %w", name, err)
	}
	defer sem.Release(1)

	r.markUsed(name)

	req := call.Request
	if model != "" {
		req.Model = model
	}

	var resp *Response
	var err error
	switch call.Mode {
	case ModeVision:
		resp, err = p.GenerateWithVision(ctx, req)
	case ModeStructured:
		resp, err = p.GenerateStructured(ctx, req)
	default:
		resp, err = p.GenerateText(ctx, req)
	}
	if err != nil {
		return nil, err
	}
	r.addCost(r.pricing.Cost(name, resp.Model, resp.Usage))
	return resp, nil
}

func (r *Registry) markUsed(name Name) {
	r.mu.Lock()
	r.used[name] = true
	r.mu.Unlock()
}

func (r *Registry) addCost(c float64) {
	r.mu.Lock()
	r.totalCost += c
	r.mu.Unlock()
}

// TotalCost returns the accumulated USD cost of all calls so far.
func (r *Registry) TotalCost() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.totalCost
}

// ProvidersUsed lists providers that served or attempted at least one call.
func (r *Registry) ProvidersUsed() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.used))
	for _, n := range []Name{Gemini, OpenAI} {
		if r.used[n] {
			out = append(out, string(n))
		}
	}
	return out
}
