// Package browsepath canonicalizes remote browse paths and derives the
// navigation targets built from them.
//
// Paths are slash-separated and rooted ("/docs/2024/"). The empty string
// stands for the server's default directory and is displayed as "/".
package browsepath

import "strings"

// DefaultDownloadName is used when a download path has no final segment.
const DefaultDownloadName = "download"

// Normalize collapses every run of doubled separators into one. Nothing else
// is escaped or validated.
func Normalize(raw string) string {
	for strings.Contains(raw, "//") {
		raw = strings.ReplaceAll(raw, "//", "/")
	}
	return raw
}

// Parent returns the target of the ".." row. A single trailing separator is
// ignored; when only one segment remains the path is returned unchanged.
//
//	Parent("/a/b/") == "/a"
//	Parent("/a")    == ""
//	Parent("")      == ""
func Parent(p string) string {
	segs := strings.Split(strings.TrimSuffix(p, "/"), "/")
	if len(segs) > 1 {
		segs = segs[:len(segs)-1]
	}
	return strings.Join(segs, "/")
}

// Join returns the path of name inside dir.
func Join(dir, name string) string {
	return strings.TrimSuffix(dir, "/") + "/" + strings.Trim(name, "/")
}

// Display returns p as shown to users: "/" for the root.
func Display(p string) string {
	if p == "" {
		return "/"
	}
	return p
}

// Crumb is one ancestor of a path.
type Crumb struct {
	Name string // segment label
	Path string // cumulative path up to and including Name
}

// Crumbs returns one entry per non-empty segment of p with its cumulative
// prefix, e.g. "/a/b" yields {a /a} {b /a/b}.
func Crumbs(p string) []Crumb {
	var crumbs []Crumb
	prefix := ""
	for _, seg := range strings.Split(strings.Trim(p, "/"), "/") {
		if seg == "" {
			continue
		}
		prefix += "/" + seg
		crumbs = append(crumbs, Crumb{Name: seg, Path: prefix})
	}
	return crumbs
}

// DownloadName returns the suggested file name for a download of p.
func DownloadName(p string) string {
	name := p[strings.LastIndex(p, "/")+1:]
	if name == "" {
		return DefaultDownloadName
	}
	return name
}
