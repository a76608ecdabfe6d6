package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/Unknwon/goconfig"
	"github.com/mitchellh/go-homedir"
)

// DefaultUserPath is the per-user configuration file consulted when no
// explicit path is given.
const DefaultUserPath = "~/.s3pi/config"

// DefaultSystemPath is the system-wide fallback consulted when the
// per-user file is absent.
const DefaultSystemPath = "/etc/s3pi/config"

// DefaultConcurrency bounds parallel artifact uploads when the file does
// not say otherwise.
const DefaultConcurrency = 4

// Error indicates an invalid or unusable configuration.
//
// The original underlying error (if any) can be accessed via errors.Unwrap.
type Error struct {
	Path   string
	Reason string
	cause  error
}

func (e *Error) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("config %s: %s", e.Path, e.Reason)
	}
	return fmt.Sprintf("config: %s", e.Reason)
}

func (e *Error) Unwrap() error { return e.cause }

// Config is the immutable settings value constructed once at startup.
type Config struct {
	// Bucket is the destination bucket name. Never empty.
	Bucket string

	// Prefix is the key prefix under which the index lives. Normalized to
	// no leading slash and a single trailing slash; empty means the bucket
	// root.
	Prefix string

	// Upload enables writes. False turns the run into a dry run.
	Upload bool

	// Region is the bucket's region.
	Region string

	// Endpoint points at an S3-compatible deployment; empty means AWS.
	Endpoint string

	// PathStyle forces path-style addressing, required by most non-AWS
	// endpoints.
	PathStyle bool

	// Driver selects the store adapter: "aws" (default) or "minio".
	Driver string

	// AccessKey and SecretKey are static credentials; empty defers to the
	// SDK credential chain.
	AccessKey string
	SecretKey string

	// ACL is a canned ACL applied to uploaded objects, e.g. "public-read"
	// for website-hosted buckets. Empty applies none.
	ACL string

	// Compress gzips index pages and uploads them with
	// Content-Encoding: gzip.
	Compress bool

	// Concurrency bounds parallel artifact uploads.
	Concurrency int

	// Throttle caps store requests per second; 0 means unlimited.
	Throttle float64
}

// Load reads the configuration from path. An empty path consults
// DefaultUserPath, then DefaultSystemPath. An explicit path that does not
// exist is an error.
func Load(path string) (*Config, error) {
	if path != "" {
		file, err := goconfig.LoadConfigFile(path)
		if err != nil {
			return nil, &Error{Path: path, Reason: "cannot read configuration file", cause: err}
		}
		return parse(file, path)
	}

	userPath, err := homedir.Expand(DefaultUserPath)
	if err == nil {
		if _, statErr := os.Stat(userPath); statErr == nil {
			file, loadErr := goconfig.LoadConfigFile(userPath)
			if loadErr != nil {
				return nil, &Error{Path: userPath, Reason: "cannot read configuration file", cause: loadErr}
			}
			return parse(file, userPath)
		}
	}

	if _, statErr := os.Stat(DefaultSystemPath); statErr == nil {
		file, loadErr := goconfig.LoadConfigFile(DefaultSystemPath)
		if loadErr != nil {
			return nil, &Error{Path: DefaultSystemPath, Reason: "cannot read configuration file", cause: loadErr}
		}
		return parse(file, DefaultSystemPath)
	}

	return nil, &Error{Reason: fmt.Sprintf("no configuration file found (looked at %s, %s)", DefaultUserPath, DefaultSystemPath)}
}

func parse(file *goconfig.ConfigFile, path string) (*Config, error) {
	section := pickSection(file)
	if section == "" {
		return nil, &Error{Path: path, Reason: "no usable section"}
	}

	bucket := file.MustValue(section, "s3.bucket", "")
	if bucket == "" {
		return nil, &Error{Path: path, Reason: "s3.bucket is required"}
	}

	cfg := &Config{
		Bucket:      bucket,
		Prefix:      NormalizePrefix(file.MustValue(section, "s3.prefix", "simple")),
		Upload:      file.MustBool(section, "upload", true),
		Region:      file.MustValue(section, "s3.region", "us-east-1"),
		Endpoint:    file.MustValue(section, "s3.endpoint", ""),
		PathStyle:   file.MustBool(section, "s3.path_style", false),
		Driver:      strings.ToLower(file.MustValue(section, "s3.driver", "aws")),
		AccessKey:   file.MustValue(section, "s3.access_key", ""),
		SecretKey:   file.MustValue(section, "s3.secret_key", ""),
		ACL:         file.MustValue(section, "s3.acl", ""),
		Compress:    file.MustBool(section, "compress", false),
		Concurrency: file.MustInt(section, "concurrency", DefaultConcurrency),
		Throttle:    file.MustFloat64(section, "throttle", 0),
	}

	if cfg.Driver != "aws" && cfg.Driver != "minio" {
		return nil, &Error{Path: path, Reason: fmt.Sprintf("unknown s3.driver %q", cfg.Driver)}
	}
	if cfg.Concurrency < 1 {
		cfg.Concurrency = DefaultConcurrency
	}
	if cfg.Throttle < 0 {
		cfg.Throttle = 0
	}

	return cfg, nil
}

// pickSection returns "default" when present, otherwise the first real
// section in the file.
func pickSection(file *goconfig.ConfigFile) string {
	if _, err := file.GetSection("default"); err == nil {
		return "default"
	}
	for _, s := range file.GetSectionList() {
		if s == goconfig.DEFAULT_SECTION {
			continue
		}
		return s
	}
	return ""
}

// NormalizePrefix strips any leading slashes and guarantees a single
// trailing slash. Normalization is idempotent; the empty prefix stays
// empty.
func NormalizePrefix(prefix string) string {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		return ""
	}
	return prefix + "/"
}
