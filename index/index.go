package index

import (
	"bytes"
	"fmt"
	"html"
	"sort"

	"github.com/Kazzer/s3pi/dist"
)

// Page is a rendered index page and the storage key it belongs at.
type Page struct {
	Key  string
	HTML []byte
}

// Index is the complete set of pages for one run.
type Index struct {
	// Root lists every project. Its key is {prefix}index.html.
	Root Page

	// Packages holds one page per project, sorted by project name.
	Packages []Page
}

// ArtifactKey returns the storage key an artifact is published under:
// {prefix}{package}/{filename}.
func ArtifactKey(prefix string, a dist.Artifact) string {
	return prefix + a.Package + "/" + a.Filename
}

// RootKey returns the storage key of the root index page.
func RootKey(prefix string) string {
	return prefix + "index.html"
}

// PackageKey returns the storage key of a project's index page.
func PackageKey(prefix, pkg string) string {
	return prefix + pkg + "/index.html"
}

// Build renders the root and per-project pages for the given artifacts.
// Output is deterministic: projects sorted alphabetically, files sorted by
// filename.
func Build(prefix string, artifacts []dist.Artifact) *Index {
	groups := make(map[string][]dist.Artifact)
	for _, a := range artifacts {
		groups[a.Package] = append(groups[a.Package], a)
	}

	names := make([]string, 0, len(groups))
	for name := range groups {
		names = append(names, name)
	}
	sort.Strings(names)

	idx := &Index{
		Root: Page{
			Key:  RootKey(prefix),
			HTML: renderRoot(names),
		},
	}

	for _, name := range names {
		files := groups[name]
		sort.Slice(files, func(i, j int) bool {
			return files[i].Filename < files[j].Filename
		})
		idx.Packages = append(idx.Packages, Page{
			Key:  PackageKey(prefix, name),
			HTML: renderPackage(prefix, name, files),
		})
	}

	return idx
}

func renderRoot(names []string) []byte {
	var buf bytes.Buffer
	openDocument(&buf, "Simple Index")
	for _, name := range names {
		fmt.Fprintf(&buf, "    <a href=\"%s/\">%s</a>\n", html.EscapeString(name), html.EscapeString(name))
		buf.WriteString("    <br />\n")
	}
	closeDocument(&buf)
	return buf.Bytes()
}

func renderPackage(prefix, name string, files []dist.Artifact) []byte {
	var buf bytes.Buffer
	openDocument(&buf, "Links for "+html.EscapeString(name))
	for _, a := range files {
		// Root-relative keys resolve on a website-hosted bucket.
		fmt.Fprintf(&buf, "    <a href=\"/%s\">%s</a>\n",
			html.EscapeString(ArtifactKey(prefix, a)), html.EscapeString(a.Filename))
		buf.WriteString("    <br />\n")
	}
	closeDocument(&buf)
	return buf.Bytes()
}

func openDocument(buf *bytes.Buffer, title string) {
	buf.WriteString("<!DOCTYPE html>\n")
	buf.WriteString("<html>\n")
	buf.WriteString("  <head>\n")
	fmt.Fprintf(buf, "    <title>%s</title>\n", title)
	buf.WriteString("    <meta name=\"api-version\" value=\"2\" />\n")
	buf.WriteString("  </head>\n")
	buf.WriteString("  <body>\n")
}

func closeDocument(buf *bytes.Buffer) {
	buf.WriteString("  </body>\n")
	buf.WriteString("</html>\n")
}
