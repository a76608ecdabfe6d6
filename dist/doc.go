// Package dist scans a local directory for Python distribution artifacts
// and derives each artifact's normalized project name.
//
// Recognition is a closed set of distribution suffixes (wheels, sdists,
// eggs); anything else in the directory is skipped. Project names follow
// the simple-index naming rules: lowercase, with runs of ".", "_" and "-"
// collapsed to a single "-".
package dist
