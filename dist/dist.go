package dist

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

// NotFoundError indicates the distribution directory is missing or not a
// directory.
//
// The original underlying error (if any) can be accessed via errors.Unwrap.
type NotFoundError struct {
	Path  string
	cause error
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("distribution directory %s not found", e.Path)
}

func (e *NotFoundError) Unwrap() error { return e.cause }

// Suffix is one of the recognized distribution file suffixes.
type Suffix string

// The closed set of recognized distribution formats. Extending it is an
// explicit, reviewable change.
const (
	SuffixWheel  Suffix = ".whl"
	SuffixSdist  Suffix = ".tar.gz"
	SuffixSdist2 Suffix = ".tar.bz2"
	SuffixZip    Suffix = ".zip"
	SuffixEgg    Suffix = ".egg"
)

var suffixes = []Suffix{SuffixWheel, SuffixSdist, SuffixSdist2, SuffixZip, SuffixEgg}

// Artifact is a single distribution file found in the scanned directory.
type Artifact struct {
	// Filename is the base name, e.g. "foo-1.0.tar.gz".
	Filename string

	// Package is the normalized project name, e.g. "foo".
	Package string

	// Path is the absolute or directory-relative location on disk.
	Path string

	// Size is the file size in bytes.
	Size int64
}

// ContentType returns the MIME type to store with the artifact.
func (a Artifact) ContentType() string {
	suffix, _ := matchSuffix(a.Filename)
	switch suffix {
	case SuffixWheel, SuffixZip, SuffixEgg:
		return "application/zip"
	case SuffixSdist:
		return "application/gzip"
	case SuffixSdist2:
		return "application/x-bzip2"
	default:
		return "application/octet-stream"
	}
}

// Scan enumerates the distribution artifacts directly inside dir, sorted by
// filename. Subdirectories and unrecognized files are skipped. A missing or
// non-directory path yields a NotFoundError.
func Scan(dir string) ([]Artifact, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, &NotFoundError{Path: dir, cause: err}
	}
	if !info.IsDir() {
		return nil, &NotFoundError{Path: dir}
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, &NotFoundError{Path: dir, cause: err}
	}

	var artifacts []Artifact
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		name := entry.Name()
		pkg, ok := PackageName(name)
		if !ok {
			continue
		}

		fi, err := entry.Info()
		if err != nil {
			continue
		}

		artifacts = append(artifacts, Artifact{
			Filename: name,
			Package:  pkg,
			Path:     filepath.Join(dir, name),
			Size:     fi.Size(),
		})
	}

	sort.Slice(artifacts, func(i, j int) bool {
		return artifacts[i].Filename < artifacts[j].Filename
	})
	return artifacts, nil
}

// PackageName derives the normalized project name from a distribution
// filename. ok is false when the filename does not carry a recognized
// suffix.
func PackageName(filename string) (name string, ok bool) {
	suffix, ok := matchSuffix(filename)
	if !ok {
		return "", false
	}

	stem := strings.TrimSuffix(filename, string(suffix))

	// The project name ends at the first name/version delimiter.
	project := stem
	if idx := strings.IndexAny(stem, "-_"); idx >= 0 {
		project = stem[:idx]
	}
	if project == "" {
		return "", false
	}
	return Normalize(project), true
}

var separatorRuns = regexp.MustCompile(`[-_.]+`)

// Normalize applies the simple-index naming rules: lowercase with runs of
// ".", "_" and "-" collapsed to a single "-".
func Normalize(name string) string {
	return strings.ToLower(separatorRuns.ReplaceAllString(name, "-"))
}

func matchSuffix(filename string) (Suffix, bool) {
	for _, s := range suffixes {
		if strings.HasSuffix(filename, string(s)) {
			return s, true
		}
	}
	return "", false
}
