// Package config loads the INI-style settings file that points the tool at
// an object store bucket.
//
// The file carries a [default] section:
//
//	[default]
//	s3.bucket=my-package-bucket
//	s3.prefix=simple/
//	upload=true
//
// Settings are parsed once at startup into an immutable Config value that
// is passed explicitly to every component; nothing reads process-wide
// state afterwards.
package config
