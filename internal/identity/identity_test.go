package identity

import "testing"

func TestNormalize(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{" HTTPS://Example.COM:443/Path/?b=2&a=1#x ", "https://example.com/Path?a=1&b=2"},
		{"http://Example.com:80/", "http://example.com/"},
		{"example.com", "https://example.com/"},
		{"https://example.com/a/b/", "https://example.com/a/b"},
		{"https://example.com", "https://example.com/"},
		{"https://example.com/?z=1&a=2", "https://example.com/?a=2&z=1"},
		{"https://example.com:8443/x", "https://example.com:8443/x"},
	}
	for _, tc := range cases {
		got, err := Normalize(tc.in)
		if err != nil {
			t.Fatalf("Normalize(%q): %v", tc.in, err)
		}
		if got != tc.want {
			t.Errorf("Normalize(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	inputs := []string{
		" HTTPS://Example.COM:443/Path/?b=2&a=1#x ",
		"http://www.example.com/a?x=1",
		"https://example.com/deep/path/",
	}
	for _, in := range inputs {
		once, err := Normalize(in)
		if err != nil {
			t.Fatalf("first: %v", err)
		}
		twice, err := Normalize(once)
		if err != nil {
			t.Fatalf("second: %v", err)
		}
		if once != twice {
			t.Errorf("not idempotent: %q -> %q -> %q", in, once, twice)
		}
	}
}

func TestNormalize_Rejects(t *testing.T) {
	for _, in := range []string{"", "   ", "ftp://example.com/x", "https://"} {
		if _, err := Normalize(in); err == nil {
			t.Errorf("Normalize(%q): expected error", in)
		}
	}
}

func TestCacheKey_Deterministic(t *testing.T) {
	a, err := New("https://Example.com/", "", "root=1;dns=1", "visual=2")
	if err != nil {
		t.Fatal(err)
	}
	b, err := New("example.com", "", "root=1;dns=1", "visual=2")
	if err != nil {
		t.Fatal(err)
	}
	if a.CacheKey() != b.CacheKey() {
		t.Fatal("equal identities must share a cache key")
	}
	c, _ := New("example.com", "", "root=2;dns=1", "visual=2")
	if a.CacheKey() == c.CacheKey() {
		t.Fatal("tool version change must rotate the cache key")
	}
	if len(a.CacheKey()) != 64 {
		t.Fatalf("expected sha256 hex, got %q", a.CacheKey())
	}
}

func TestOriginAndHost(t *testing.T) {
	id, err := New("https://www.example.com/shop/item?x=1", "", "", "")
	if err != nil {
		t.Fatal(err)
	}
	if id.Origin() != "https://www.example.com" {
		t.Fatalf("origin: %s", id.Origin())
	}
	if id.Host() != "www.example.com" {
		t.Fatalf("host: %s", id.Host())
	}
}

func TestSameHost(t *testing.T) {
	if !SameHost("https://www.example.com/a", "https://example.com/b") {
		t.Fatal("www should match apex")
	}
	if SameHost("https://example.com/a", "https://other.com/b") {
		t.Fatal("different hosts must not match")
	}
}
