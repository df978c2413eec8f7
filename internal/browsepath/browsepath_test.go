package browsepath

import (
	"strings"
	"testing"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"/a//b/", "/a/b/"},
		{"", ""},
		{"/", "/"},
		{"//", "/"},
		{"///", "/"},
		{"docs////2024//", "docs/2024/"},
		{"/a/b", "/a/b"},
	}
	for _, tt := range tests {
		if got := Normalize(tt.in); got != tt.want {
			t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNormalizeNeverLeavesDoubledSeparator(t *testing.T) {
	for n := 1; n < 12; n++ {
		raw := "/x" + strings.Repeat("/", n) + "y" + strings.Repeat("/", n)
		if got := Normalize(raw); strings.Contains(got, "//") {
			t.Errorf("Normalize(%q) = %q still contains //", raw, got)
		}
	}
}

func TestParent(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"/a/b/", "/a"},
		{"/a/b", "/a"},
		{"/a", ""},
		{"/a/", ""},
		{"", ""},
		{"/", ""},
		{"/docs/2024/reports", "/docs/2024"},
		{"docs", "docs"},
	}
	for _, tt := range tests {
		if got := Parent(tt.in); got != tt.want {
			t.Errorf("Parent(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestJoin(t *testing.T) {
	tests := []struct {
		dir, name, want string
	}{
		{"", "pub", "/pub"},
		{"/", "pub", "/pub"},
		{"/docs", "a.txt", "/docs/a.txt"},
		{"/docs/", "a.txt", "/docs/a.txt"},
	}
	for _, tt := range tests {
		if got := Join(tt.dir, tt.name); got != tt.want {
			t.Errorf("Join(%q, %q) = %q, want %q", tt.dir, tt.name, got, tt.want)
		}
	}
}

func TestCrumbs(t *testing.T) {
	got := Crumbs("/a/b")
	want := []Crumb{{"a", "/a"}, {"b", "/a/b"}}
	if len(got) != len(want) {
		t.Fatalf("Crumbs = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("crumb %d = %v, want %v", i, got[i], want[i])
		}
	}

	if c := Crumbs(""); len(c) != 0 {
		t.Errorf("Crumbs(\"\") = %v, want none", c)
	}
	if c := Crumbs("/docs/2024/"); len(c) != 2 || c[1].Path != "/docs/2024" {
		t.Errorf("Crumbs trailing slash = %v", c)
	}
}

func TestDownloadName(t *testing.T) {
	tests := map[string]string{
		"/docs/report.pdf": "report.pdf",
		"report.pdf":       "report.pdf",
		"":                 DefaultDownloadName,
		"/docs/":           DefaultDownloadName,
	}
	for in, want := range tests {
		if got := DownloadName(in); got != want {
			t.Errorf("DownloadName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestDisplay(t *testing.T) {
	if Display("") != "/" {
		t.Error("root should display as /")
	}
	if Display("/pub") != "/pub" {
		t.Error("non-root path should display unchanged")
	}
}
