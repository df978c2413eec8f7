package qrterm

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/boombuler/barcode/qr"
)

func TestWriteShape(t *testing.T) {
	const url = "http://192.168.1.20:8080/"
	code, err := qr.Encode(url, qr.M, qr.Auto)
	if err != nil {
		t.Fatal(err)
	}
	width := code.Bounds().Dx() + 2*quietZone

	var sb strings.Builder
	if err := Write(&sb, url); err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSuffix(sb.String(), "\n"), "\n")

	if want := (width + 1) / 2; len(lines) != want {
		t.Fatalf("got %d lines, want %d", len(lines), want)
	}
	for i, l := range lines {
		if n := utf8.RuneCountInString(l); n != width {
			t.Errorf("line %d has %d cells, want %d", i, n, width)
		}
	}
	// The quiet zone is two light rows, so the first line is solid.
	if strings.Trim(lines[0], "█") != "" {
		t.Errorf("first line %q is not all quiet zone", lines[0])
	}
	if !strings.ContainsAny(sb.String(), " ▀▄") {
		t.Error("no dark modules drawn")
	}
}

func TestWriteDiffersByContent(t *testing.T) {
	var a, b strings.Builder
	if err := Write(&a, "http://10.0.0.1:8080/"); err != nil {
		t.Fatal(err)
	}
	if err := Write(&b, "http://10.0.0.2:8080/"); err != nil {
		t.Fatal(err)
	}
	if a.String() == b.String() {
		t.Error("different URLs drew the same code")
	}
}
