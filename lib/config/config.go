// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	platformerrors "github.com/jmgilman/go/errors"
	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"
)

// EnvironmentVariable names the configuration file when no path is given.
const EnvironmentVariable = "GITFS_CONFIG"

// Defaults.
const (
	DefaultRevision     = "HEAD"
	DefaultSandbox      = "chroot"
	DefaultCacheTimeout = 24 * time.Hour
	DefaultMaxBlobSize  = int64(1 << 30)
)

// Config holds every setting the command line can also provide.
type Config struct {
	// Revision is the commit, tree, reference or revision expression
	// to mount.
	Revision string `yaml:"revision" json:"revision" validate:"required"`

	// Debug enables debug logging and FUSE protocol tracing.
	Debug bool `yaml:"debug" json:"debug"`

	// OIDFiles adds the .<program>-tree-id and .<program>-commit-id
	// files to the mount root.
	OIDFiles bool `yaml:"oid_files" json:"oid_files"`

	// Sandbox is the isolation mode: "chroot" or "none".
	Sandbox string `yaml:"sandbox" json:"sandbox" validate:"required,oneof=chroot none"`

	// CacheTimeout is how long the kernel caches entries and
	// attributes, written as a Go duration ("24h", "90m").
	CacheTimeout Duration `yaml:"cache_timeout" json:"cache_timeout"`

	// MaxBlobSize is the largest blob, in bytes, read into memory on
	// open.
	MaxBlobSize int64 `yaml:"max_blob_size" json:"max_blob_size" validate:"gt=0"`

	// AllowOther lets other users access the mount. Requires
	// user_allow_other in /etc/fuse.conf.
	AllowOther bool `yaml:"allow_other" json:"allow_other"`

	// MountOptions are extra FUSE mount options, one per element.
	MountOptions []string `yaml:"mount_options" json:"mount_options" validate:"dive,required,excludesall=0x2C"`
}

// Duration is a time.Duration written as a string in configuration
// files.
type Duration time.Duration

// UnmarshalText parses a Go duration string.
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// MarshalText formats the duration as a Go duration string.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// String formats the duration like time.Duration.
func (d Duration) String() string {
	return time.Duration(d).String()
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Revision:     DefaultRevision,
		OIDFiles:     true,
		Sandbox:      DefaultSandbox,
		CacheTimeout: Duration(DefaultCacheTimeout),
		MaxBlobSize:  DefaultMaxBlobSize,
	}
}

// Load reads the file at path, or the file named by GITFS_CONFIG when
// path is empty. With neither, it returns Default().
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv(EnvironmentVariable)
	}
	if path == "" {
		return Default(), nil
	}
	return LoadFile(path)
}

// LoadFile reads and validates the file at path. Keys absent from the
// file keep their default values.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, platformerrors.Wrapf(err, platformerrors.CodeInvalidConfig, "reading config %s", path)
	}

	cfg := Default()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".jsonc":
		decoder := json.NewDecoder(bytes.NewReader(jsonc.ToJSON(data)))
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(cfg); err != nil {
			return nil, platformerrors.Wrapf(err, platformerrors.CodeInvalidConfig, "parsing config %s", path)
		}
	default:
		decoder := yaml.NewDecoder(bytes.NewReader(data))
		decoder.KnownFields(true)
		// An empty file decodes to io.EOF and means "all defaults".
		if err := decoder.Decode(cfg); err != nil && len(bytes.TrimSpace(data)) > 0 {
			return nil, platformerrors.Wrapf(err, platformerrors.CodeInvalidConfig, "parsing config %s", path)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, platformerrors.Wrapf(err, platformerrors.CodeInvalidConfig, "config %s", path)
	}
	return cfg, nil
}
