// Package index builds the static HTML pages of a simple package index.
//
// The root page links to one page per project; each project page links to
// that project's distribution files by storage key. Building is a pure
// function of the artifact set: the same artifacts always produce
// byte-identical pages, so repeated runs upload nothing.
package index
