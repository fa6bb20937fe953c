package finding

import (
	"strings"
	"testing"
)

func TestIDSpacesAreDisjoint(t *testing.T) {
	f := New(Finding{Type: TypeMissingHSTS, Message: "m"})
	pf := NewPrivateFlag("exposed_secret", "m", "ctx")
	if !strings.HasPrefix(f.ID, "f-") {
		t.Fatalf("finding id: %s", f.ID)
	}
	if !strings.HasPrefix(pf.FlagID, "pf-") {
		t.Fatalf("flag id: %s", pf.FlagID)
	}
}

func TestNewKeepsExistingID(t *testing.T) {
	f := New(Finding{ID: "f-fixed", Message: "m"})
	if f.ID != "f-fixed" {
		t.Fatalf("id overwritten: %s", f.ID)
	}
}

func TestEvidenceSummary(t *testing.T) {
	cases := []struct {
		ev   Evidence
		want string
	}{
		{HeaderEv("strict-transport-security", ""), "header strict-transport-security absent"},
		{HeaderEv("server", "nginx/1.25"), "header server: nginx/1.25"},
		{TextEv("raw sample"), "raw sample"},
	}
	for _, tc := range cases {
		if got := tc.ev.Summary(); got != tc.want {
			t.Errorf("summary: %q want %q", got, tc.want)
		}
	}
	th := ThresholdEv("lcp", 5200, 2500, "ms")
	if !strings.Contains(th.Summary(), "5200") || !strings.Contains(th.Summary(), "2500") {
		t.Errorf("threshold summary: %q", th.Summary())
	}
	urls := URLsEv([]string{"https://a", "https://b"})
	if !strings.Contains(urls.Summary(), "2 affected") {
		t.Errorf("urls summary: %q", urls.Summary())
	}
}

func TestEvidenceIsZero(t *testing.T) {
	var ev Evidence
	if !ev.IsZero() {
		t.Fatal("zero evidence")
	}
	if TextEv("x").IsZero() {
		t.Fatal("text evidence is not zero")
	}
}
