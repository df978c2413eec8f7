package render

import (
	"bytes"
	"strings"
	"testing"

	"golang.org/x/net/html"

	"github.com/ahaoboy/ftp-web/internal/listing"
)

func TestBreadcrumb(t *testing.T) {
	got := Breadcrumb("/docs/2024")
	want := []Link{
		{Name: "/", Href: "/"},
		{Name: "docs", Href: "/ftp/docs"},
		{Name: "2024", Href: "/ftp/docs/2024"},
	}
	if len(got) != len(want) {
		t.Fatalf("Breadcrumb = %+v, want %+v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("link %d = %+v, want %+v", i, got[i], want[i])
		}
	}

	if root := Breadcrumb(""); len(root) != 1 || root[0].Href != "/" {
		t.Errorf("Breadcrumb(\"\") = %+v, want only the root link", root)
	}
}

func TestRows(t *testing.T) {
	l := &listing.Listing{
		Path:   "/docs/2024",
		Parent: "/docs",
		Entries: []listing.Entry{
			{Name: "report.pdf", Kind: listing.KindFile, LastModified: "Jan 15 10:30", Size: 1500, HasSize: true},
			{Name: "q1", Kind: listing.KindDir, LastModified: "Jan 02 15:04"},
			{Name: "a b#c.txt", Kind: listing.KindFile, Size: 3, HasSize: true},
		},
	}

	rows := Rows(l)
	want := []Row{
		{Name: "..", Href: "/ftp/docs/", IsDir: true},
		{Name: "report.pdf", Href: "/file/docs/2024/report.pdf", LastModified: "Jan 15 10:30", Size: "1.5 KB"},
		{Name: "q1", Href: "/ftp/docs/2024/q1/", IsDir: true, LastModified: "Jan 02 15:04"},
		{Name: "a b#c.txt", Href: "/file/docs/2024/a%20b%23c.txt", Size: "3 B"},
	}
	if len(rows) != len(want) {
		t.Fatalf("got %d rows, want %d", len(rows), len(want))
	}
	for i := range want {
		if rows[i] != want[i] {
			t.Errorf("row %d = %+v, want %+v", i, rows[i], want[i])
		}
	}
}

func TestRowsAtRoot(t *testing.T) {
	rows := Rows(&listing.Listing{
		Entries: []listing.Entry{{Name: "pub", Kind: listing.KindDir}},
	})
	if rows[0].Href != "/ftp/" {
		t.Errorf("parent href = %q, want /ftp/", rows[0].Href)
	}
	if rows[1].Href != "/ftp/pub/" {
		t.Errorf("dir href = %q, want /ftp/pub/", rows[1].Href)
	}
}

func TestHumanSize(t *testing.T) {
	tests := []struct {
		n    int64
		want string
	}{
		{0, "0 B"},
		{999, "999 B"},
		{1000, "1.0 KB"},
		{1500, "1.5 KB"},
		{2_000_000, "2.0 MB"},
		{3_500_000_000, "3.5 GB"},
	}
	for _, tt := range tests {
		if got := HumanSize(tt.n); got != tt.want {
			t.Errorf("HumanSize(%d) = %q, want %q", tt.n, got, tt.want)
		}
	}
}

func TestStyleByName(t *testing.T) {
	for _, name := range []string{"default", "emoji", "plain"} {
		s, err := StyleByName(name)
		if err != nil {
			t.Fatalf("StyleByName(%q): %v", name, err)
		}
		if s.Name != name {
			t.Errorf("StyleByName(%q).Name = %q", name, s.Name)
		}
	}
	if _, err := StyleByName("neon"); err == nil {
		t.Error("expected error for unknown style")
	}
}

// parsed is what the tests inspect in a rendered page.
type parsed struct {
	title string
	links map[string]string // text -> href
	text  string
	style bool
	svg   int
}

func parsePage(t *testing.T, b []byte) parsed {
	t.Helper()
	doc, err := html.Parse(bytes.NewReader(b))
	if err != nil {
		t.Fatalf("parse page: %v", err)
	}

	p := parsed{links: map[string]string{}}
	var sb strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "title":
				if n.FirstChild != nil {
					p.title = n.FirstChild.Data
				}
			case "style":
				p.style = true
			case "svg":
				p.svg++
			case "a":
				var href string
				for _, a := range n.Attr {
					if a.Key == "href" {
						href = a.Val
					}
				}
				if n.FirstChild != nil && n.FirstChild.Type == html.TextNode {
					p.links[n.FirstChild.Data] = href
				}
			}
		}
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	p.text = sb.String()
	return p
}

func TestPageDefaultStyle(t *testing.T) {
	l := &listing.Listing{
		Path:   "/docs",
		Parent: "",
		Entries: []listing.Entry{
			{Name: "notes.txt", Kind: listing.KindFile, Size: 42, HasSize: true},
			{Name: "2024", Kind: listing.KindDir},
		},
	}

	var buf bytes.Buffer
	if err := New(DefaultStyle).Page(&buf, l); err != nil {
		t.Fatal(err)
	}
	p := parsePage(t, buf.Bytes())

	if p.title != "Index of /docs" {
		t.Errorf("title = %q", p.title)
	}
	if !p.style {
		t.Error("default style should include a stylesheet")
	}
	if p.svg == 0 {
		t.Error("default style should include svg icons")
	}
	links := map[string]string{
		"..":        "/ftp/",
		"notes.txt": "/file/docs/notes.txt",
		"2024":      "/ftp/docs/2024/",
		"docs":      "/ftp/docs",
	}
	for text, href := range links {
		if got, ok := p.links[text]; !ok || got != href {
			t.Errorf("link %q = %q, want %q", text, got, href)
		}
	}
	if !strings.Contains(p.text, "42 B") {
		t.Error("file size missing from page")
	}
}

func TestPageRootTitle(t *testing.T) {
	var buf bytes.Buffer
	if err := New(PlainStyle).Page(&buf, &listing.Listing{}); err != nil {
		t.Fatal(err)
	}
	p := parsePage(t, buf.Bytes())
	if p.title != "Index of /" {
		t.Errorf("title = %q, want %q", p.title, "Index of /")
	}
	if p.style || p.svg != 0 {
		t.Error("plain style should have no stylesheet or icons")
	}
}

func TestPageEscapesNames(t *testing.T) {
	evil := `<script>alert("x")</script>`
	l := &listing.Listing{
		Path:    "/" + evil,
		Entries: []listing.Entry{{Name: evil, Kind: listing.KindFile, Size: 1, HasSize: true}},
	}

	for _, style := range []Style{DefaultStyle, EmojiStyle, PlainStyle} {
		var buf bytes.Buffer
		if err := New(style).Page(&buf, l); err != nil {
			t.Fatal(err)
		}
		if strings.Contains(buf.String(), "<script>") {
			t.Errorf("%s style: raw <script> in output", style.Name)
		}
		p := parsePage(t, buf.Bytes())
		if _, ok := p.links[evil]; !ok {
			t.Errorf("%s style: escaped name not rendered as link text", style.Name)
		}
	}
}

func TestPageEmojiStyle(t *testing.T) {
	l := &listing.Listing{
		Path:    "/pub",
		Entries: []listing.Entry{{Name: "music", Kind: listing.KindDir}},
	}
	var buf bytes.Buffer
	if err := New(EmojiStyle).Page(&buf, l); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if !strings.Contains(out, "\U0001F4C1") {
		t.Error("folder emoji missing")
	}
	if strings.Contains(out, "<style>") {
		t.Error("emoji style should not include a stylesheet")
	}
}
