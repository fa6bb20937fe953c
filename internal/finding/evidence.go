package finding

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Evidence is a tagged variant: one shape per known evidence kind, with a
// string map as the last resort for anything else.
type Evidence struct {
	Header    *HeaderEvidence    `json:"header,omitempty"`
	URLs      *URLSetEvidence    `json:"urls,omitempty"`
	Threshold *ThresholdEvidence `json:"threshold,omitempty"`
	Text      *TextEvidence      `json:"text,omitempty"`
	Extra     map[string]string  `json:"extra,omitempty"`
}

// HeaderEvidence records an observed (or missing) response header.
type HeaderEvidence struct {
	Name  string `json:"name"`
	Value string `json:"value,omitempty"`
}

// URLSetEvidence lists the URLs a pattern matched on.
type URLSetEvidence struct {
	URLs []string `json:"urls"`
}

// ThresholdEvidence records a measured value against its threshold.
type ThresholdEvidence struct {
	Metric    string  `json:"metric"`
	Measured  float64 `json:"measured"`
	Threshold float64 `json:"threshold"`
	Unit      string  `json:"unit,omitempty"`
}

// TextEvidence carries a raw sample, truncated by the producer.
type TextEvidence struct {
	Sample string `json:"sample"`
}

// HeaderEv, URLsEv, ThresholdEv, TextEv, ExtraEv are the constructors
// audits use; they keep call sites one-liners.
func HeaderEv(name, value string) Evidence {
	return Evidence{Header: &HeaderEvidence{Name: name, Value: value}}
}

func URLsEv(urls []string) Evidence {
	return Evidence{URLs: &URLSetEvidence{URLs: urls}}
}

func ThresholdEv(metric string, measured, threshold float64, unit string) Evidence {
	return Evidence{Threshold: &ThresholdEvidence{Metric: metric, Measured: measured, Threshold: threshold, Unit: unit}}
}

func TextEv(sample string) Evidence {
	return Evidence{Text: &TextEvidence{Sample: sample}}
}

func ExtraEv(kv map[string]string) Evidence {
	return Evidence{Extra: kv}
}

// Summary renders the evidence as one line for prompts and confidence
// measurement.
func (e Evidence) Summary() string {
	switch {
	case e.Header != nil:
		if e.Header.Value == "" {
			return fmt.Sprintf("header %s absent", e.Header.Name)
		}
		return fmt.Sprintf("header %s: %s", e.Header.Name, e.Header.Value)
	case e.Threshold != nil:
		return fmt.Sprintf("%s measured %.2f against threshold %.2f %s",
			e.Threshold.Metric, e.Threshold.Measured, e.Threshold.Threshold, e.Threshold.Unit)
	case e.URLs != nil:
		return fmt.Sprintf("%d affected urls: %s", len(e.URLs.URLs), strings.Join(e.URLs.URLs, ", "))
	case e.Text != nil:
		return e.Text.Sample
	case len(e.Extra) > 0:
		b, _ := json.Marshal(e.Extra)
		return string(b)
	}
	return ""
}

// IsZero reports whether no variant is set.
func (e Evidence) IsZero() bool {
	return e.Header == nil && e.URLs == nil && e.Threshold == nil && e.Text == nil && len(e.Extra) == 0
}
