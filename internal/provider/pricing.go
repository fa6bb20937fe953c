package provider

import "strings"

// ModelPrice is USD per 1k tokens.
type ModelPrice struct {
	InputPer1k  float64
	OutputPer1k float64
}

// PricingTable maps "provider/model" to prices. Read-only config loaded
// once per process; unknown models cost zero so billing gaps are visible
// rather than invented.
type PricingTable map[string]ModelPrice

// DefaultPricing covers the models in the default assignment table.
func DefaultPricing() PricingTable {
	return PricingTable{
		"openai/gpt-4o":          {InputPer1k: 0.0025, OutputPer1k: 0.01},
		"openai/gpt-4o-mini":     {InputPer1k: 0.00015, OutputPer1k: 0.0006},
		"gemini/gemini-2.5-flash": {InputPer1k: 0.0003, OutputPer1k: 0.0025},
		"gemini/gemini-2.5-pro":   {InputPer1k: 0.00125, OutputPer1k: 0.01},
	}
}

// Cost computes the USD cost of one call.
func (t PricingTable) Cost(provider Name, model string, usage Usage) float64 {
	price, ok := t[string(provider)+"/"+normalizeModel(model)]
	if !ok {
		return 0
	}
	return float64(usage.Input)/1000*price.InputPer1k + float64(usage.Output)/1000*price.OutputPer1k
}

func normalizeModel(model string) string {
	model = strings.TrimSpace(strings.ToLower(model))
	// Providers report dated snapshots like gpt-4o-2024-08-06. Longest
	// prefix first so gpt-4o-mini is not swallowed by gpt-4o.
	for _, prefix := range []string{"gemini-2.5-flash", "gemini-2.5-pro", "gpt-4o-mini", "gpt-4o"} {
		if strings.HasPrefix(model, prefix) {
			return prefix
		}
	}
	return model
}
