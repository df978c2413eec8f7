package render

import (
	"fmt"
	"html/template"
	"sort"
)

// Style controls how a listing page looks. Names are always escaped by the
// page template; icons and CSS are trusted constants.
type Style struct {
	Name       string
	CSS        template.CSS
	DirIcon    template.HTML
	FileIcon   template.HTML
	HomeIcon   template.HTML
	Breadcrumb bool
}

const defaultCSS = `
:root {
  --bg-color: #fff;
  --text-color: #222;
  --link-color: #0366d6;
  --link-visited-color: #f22526;
  --dir-icon-color: #79b8ff;
  --file-icon-color: #959da5;
}
body {background: var(--bg-color); color: var(--text-color);}
a {text-decoration: none; color: var(--link-color);}
a:visited {color: var(--link-visited-color);}
a:hover {text-decoration: underline;}
header a {padding: 0 6px;}
footer {text-align: center; font-size: 12px;}
table {text-align: left; border-collapse: collapse;}
tr {border-bottom: solid 1px #ccc;}
tr:last-child {border-bottom: none;}
th, td {padding: 5px;}
th {text-align: center;}
th:first-child, td:first-child {text-align: center;}
td.size {text-align: right;}
svg[data-icon="dir"] {vertical-align: text-bottom; color: var(--dir-icon-color); fill: currentColor;}
svg[data-icon="file"] {vertical-align: text-bottom; color: var(--file-icon-color); fill: currentColor;}
svg[data-icon="home"] {width: 18px;}
@media (prefers-color-scheme: dark) {
  :root {
    --bg-color: #222;
    --text-color: #ddd;
    --link-color: #539bf5;
    --link-visited-color: #f25555;
    --dir-icon-color: #7da3d0;
    --file-icon-color: #545d68;
  }
}`

const (
	svgDir  = `<svg aria-label="Directory" data-icon="dir" width="20" height="20" viewBox="0 0 512 512" role="img"><path fill="currentColor" d="M464 128H272l-64-64H48C21.49 64 0 85.49 0 112v288c0 26.51 21.49 48 48 48h416c26.51 0 48-21.49 48-48V176c0-26.51-21.49-48-48-48z"></path></svg>`
	svgFile = `<svg aria-label="File" data-icon="file" width="20" height="20" viewBox="0 0 384 512" role="img"><path d="M369.9 97.9L286 14C277 5 264.8-.1 252.1-.1H48C21.5 0 0 21.5 0 48v416c0 26.5 21.5 48 48 48h288c26.5 0 48-21.5 48-48V131.9c0-12.7-5.1-25-14.1-34zM332.1 128H256V51.9l76.1 76.1zM48 464V48h160v104c0 13.3 10.7 24 24 24h104v288H48z"/></svg>`
	svgHome = `<svg aria-hidden="true" data-icon="home" viewBox="0 0 576 512"><path fill="currentColor" d="M280.37 148.26L96 300.11V464a16 16 0 0 0 16 16l112.06-.29a16 16 0 0 0 15.92-16V368a16 16 0 0 1 16-16h64a16 16 0 0 1 16 16v95.64a16 16 0 0 0 16 16.05L464 480a16 16 0 0 0 16-16V300L295.67 148.26a12.19 12.19 0 0 0-15.3 0zM571.6 251.47L488 182.56V44.05a12 12 0 0 0-12-12h-56a12 12 0 0 0-12 12v72.61L318.47 43a48 48 0 0 0-61 0L4.34 251.47a12 12 0 0 0-1.6 16.9l25.5 31A12 12 0 0 0 45.15 301l235.22-193.74a12.19 12.19 0 0 1 15.3 0L530.9 301a12 12 0 0 0 16.9-1.6l25.5-31a12 12 0 0 0-1.7-16.93z"></path></svg>`
)

var (
	// DefaultStyle has SVG icons, CSS with a dark variant and a breadcrumb.
	DefaultStyle = Style{
		Name:       "default",
		CSS:        defaultCSS,
		DirIcon:    svgDir,
		FileIcon:   svgFile,
		HomeIcon:   svgHome,
		Breadcrumb: true,
	}

	// EmojiStyle uses emoji icons and no stylesheet.
	EmojiStyle = Style{
		Name:       "emoji",
		DirIcon:    "\U0001F4C1",
		FileIcon:   "\U0001F4C4",
		HomeIcon:   "\U0001F3E0",
		Breadcrumb: true,
	}

	// PlainStyle is a bare table.
	PlainStyle = Style{
		Name: "plain",
	}
)

var styles = map[string]Style{
	DefaultStyle.Name: DefaultStyle,
	EmojiStyle.Name:   EmojiStyle,
	PlainStyle.Name:   PlainStyle,
}

// StyleByName looks up a built-in style.
func StyleByName(name string) (Style, error) {
	s, ok := styles[name]
	if !ok {
		return Style{}, fmt.Errorf("unknown style %q (available: %v)", name, StyleNames())
	}
	return s, nil
}

// StyleNames lists the built-in styles in sorted order.
func StyleNames() []string {
	names := make([]string, 0, len(styles))
	for name := range styles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
