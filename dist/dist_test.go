package dist

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPackageName(t *testing.T) {
	tests := []struct {
		filename string
		want     string
		ok       bool
	}{
		{"foo-1.0.tar.gz", "foo", true},
		{"Foo_1.1.whl", "foo", true},
		{"bar-2.0.whl", "bar", true},
		{"zope.interface-5.4.0.tar.gz", "zope-interface", true},
		{"My.Lib_Extra-0.1.zip", "my-lib", true},
		{"baz-0.9.tar.bz2", "baz", true},
		{"legacy-0.1.egg", "legacy", true},
		{"README.md", "", false},
		{"notes.txt", "", false},
		{"-1.0.tar.gz", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			got, ok := PackageName(tt.filename)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Foo", "foo"},
		{"foo.bar", "foo-bar"},
		{"foo__bar", "foo-bar"},
		{"foo-._bar", "foo-bar"},
		{"already-normal", "already-normal"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := Normalize(tt.in)
			assert.Equal(t, tt.want, got)
			// Idempotent.
			assert.Equal(t, got, Normalize(got))
		})
	}
}

func TestScan(t *testing.T) {
	dir := t.TempDir()
	files := []string{"foo-1.0.tar.gz", "Foo_1.1.whl", "bar-2.0.whl", "README.md"}
	for _, name := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(name), 0o644))
	}
	// Subdirectories are skipped, not descended into.
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "nested", "baz-1.0.whl"), []byte("x"), 0o644))

	artifacts, err := Scan(dir)
	require.NoError(t, err)
	require.Len(t, artifacts, 3)

	// Sorted by filename.
	assert.Equal(t, "Foo_1.1.whl", artifacts[0].Filename)
	assert.Equal(t, "bar-2.0.whl", artifacts[1].Filename)
	assert.Equal(t, "foo-1.0.tar.gz", artifacts[2].Filename)

	assert.Equal(t, "foo", artifacts[0].Package)
	assert.Equal(t, "bar", artifacts[1].Package)
	assert.Equal(t, "foo", artifacts[2].Package)

	for _, a := range artifacts {
		assert.Equal(t, filepath.Join(dir, a.Filename), a.Path)
		assert.Equal(t, int64(len(a.Filename)), a.Size)
	}
}

func TestScan_Empty(t *testing.T) {
	artifacts, err := Scan(t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, artifacts)
}

func TestScan_Missing(t *testing.T) {
	_, err := Scan(filepath.Join(t.TempDir(), "nope"))

	var nfe *NotFoundError
	require.ErrorAs(t, err, &nfe)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestScan_NotADirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))

	var nfe *NotFoundError
	_, err := Scan(path)
	require.ErrorAs(t, err, &nfe)
}

func TestContentType(t *testing.T) {
	assert.Equal(t, "application/zip", Artifact{Filename: "a-1.whl"}.ContentType())
	assert.Equal(t, "application/gzip", Artifact{Filename: "a-1.tar.gz"}.ContentType())
	assert.Equal(t, "application/x-bzip2", Artifact{Filename: "a-1.tar.bz2"}.ContentType())
	assert.Equal(t, "application/octet-stream", Artifact{Filename: "weird"}.ContentType())
}
