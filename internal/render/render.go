// Package render turns a directory listing into an HTML navigation page.
// It performs no protocol operations.
package render

import (
	"fmt"
	"html/template"
	"io"
	"net/url"
	"strings"

	"github.com/ahaoboy/ftp-web/internal/browsepath"
	"github.com/ahaoboy/ftp-web/internal/listing"
)

// Link is a named href.
type Link struct {
	Name string
	Href string
}

// Row is one line of the listing table.
type Row struct {
	Name         string
	Href         string
	IsDir        bool
	LastModified string
	Size         string
}

// Breadcrumb returns the root link followed by one link per path segment,
// each pointing at the cumulative prefix under /ftp.
func Breadcrumb(p string) []Link {
	links := []Link{{Name: "/", Href: "/"}}
	for _, c := range browsepath.Crumbs(p) {
		links = append(links, Link{Name: c.Name, Href: "/ftp" + escapePath(c.Path)})
	}
	return links
}

// Rows returns a ".." row for the parent directory followed by one row per
// entry, in listing order.
func Rows(l *listing.Listing) []Row {
	rows := make([]Row, 0, len(l.Entries)+1)
	rows = append(rows, Row{
		Name:  "..",
		Href:  "/ftp" + escapePath(l.Parent) + "/",
		IsDir: true,
	})

	for _, e := range l.Entries {
		child := browsepath.Join(l.Path, e.Name)
		r := Row{
			Name:         e.Name,
			IsDir:        e.IsDir(),
			LastModified: e.LastModified,
		}
		if e.IsDir() {
			r.Href = "/ftp" + escapePath(child) + "/"
		} else {
			r.Href = "/file" + escapePath(child)
			if e.HasSize {
				r.Size = HumanSize(e.Size)
			}
		}
		rows = append(rows, r)
	}
	return rows
}

// HumanSize formats n with decimal units: "999 B", "1.5 KB", "2.0 MB".
func HumanSize(n int64) string {
	if n < 1000 {
		return fmt.Sprintf("%d B", n)
	}
	const units = "KMGTPE"
	v := float64(n)
	i := -1
	for v >= 1000 && i < len(units)-1 {
		v /= 1000
		i++
	}
	return fmt.Sprintf("%.1f %cB", v, units[i])
}

// escapePath escapes each segment of a slash-separated path.
func escapePath(p string) string {
	segs := strings.Split(p, "/")
	for i, s := range segs {
		segs[i] = url.PathEscape(s)
	}
	return strings.Join(segs, "/")
}

type page struct {
	Title  string
	Style  Style
	Crumbs []Link
	Rows   []Row
}

var pageTemplate = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width">
<title>Index of {{.Title}}</title>
{{- if .Style.CSS}}
<style>{{.Style.CSS}}</style>
{{- end}}
</head>
<body>
<header>
<h3>Index of: {{if .Style.Breadcrumb}}{{range $i, $c := .Crumbs}}{{if eq $i 0}}<a href="{{$c.Href}}">{{if $.Style.HomeIcon}}{{$.Style.HomeIcon}}{{else}}{{$c.Name}}{{end}}</a>{{else}}/<a href="{{$c.Href}}">{{$c.Name}}</a>{{end}}{{end}}{{else}}{{.Title}}{{end}}</h3>
</header>
<hr>
<table>
<tr><th></th><th>Name</th><th>Last modified</th><th>Size</th></tr>
{{- range .Rows}}
<tr>
<td>{{if .IsDir}}{{$.Style.DirIcon}}{{else}}{{$.Style.FileIcon}}{{end}}</td>
<td>{{if .IsDir}}<a href="{{.Href}}">{{.Name}}</a>{{else}}<a download href="{{.Href}}">{{.Name}}</a>{{end}}</td>
<td>{{.LastModified}}</td>
<td class="size">{{.Size}}</td>
</tr>
{{- end}}
</table>
<hr>
<footer><a href="https://github.com/ahaoboy/ftp-web" target="_blank">ftp-web</a></footer>
</body>
</html>
`))

// Renderer writes listing pages in one style.
type Renderer struct {
	style Style
}

// New creates a Renderer for style.
func New(style Style) *Renderer {
	return &Renderer{style: style}
}

// Page writes the complete HTML document for l.
func (r *Renderer) Page(w io.Writer, l *listing.Listing) error {
	p := page{
		Title:  browsepath.Display(l.Path),
		Style:  r.style,
		Crumbs: Breadcrumb(l.Path),
		Rows:   Rows(l),
	}
	if err := pageTemplate.Execute(w, p); err != nil {
		return fmt.Errorf("render %s: %w", p.Title, err)
	}
	return nil
}
