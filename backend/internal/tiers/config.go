package tiers

import (
	"errors"
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hashicorp/hcl"
	yaml "gopkg.in/yaml.v2"
)

// `ErrConfig` wraps all configuration errors.  They are fatal, because there
// is no safe default for tier roots.
var ErrConfig = errors.New("configuration error")

const (
	ConfigFileYml = "tierarch.yml"
	ConfigFileHcl = "tierarch.config.hcl" // DEPRECATED

	DefaultArchiveExt       = "tar.zst"
	DefaultSyncDriver       = "local"
	DefaultInventoryTimeout = 30 * time.Second
)

var ArchiveExts = []string{"tar.zst", "tar.gz"}

type Config struct {
	LiveRoot    string          `yaml:"liveRoot" hcl:"liveRoot"`
	ArchiveRoot string          `yaml:"archiveRoot" hcl:"archiveRoot"`
	ArchiveExt  string          `yaml:"archiveExt" hcl:"archiveExt"`
	Sync        SyncConfig      `yaml:"sync" hcl:"sync"`
	Inventory   InventoryConfig `yaml:"inventory" hcl:"inventory"`
}

type SyncConfig struct {
	// `Driver` is `local` or `rsync`.
	Driver       string   `yaml:"driver" hcl:"driver"`
	RsyncOptions []string `yaml:"rsyncOptions" hcl:"rsyncOptions"`
	// `BandwidthLimit` in bytes per second; `k`, `m`, ... are binary SI.
	BandwidthLimit string `yaml:"bandwidthLimit" hcl:"bandwidthLimit"`
}

type InventoryConfig struct {
	URL     string `yaml:"url" hcl:"url"`
	Token   string `yaml:"token" hcl:"token"`
	Timeout string `yaml:"timeout" hcl:"timeout"`
}

type Logger interface {
	Warnw(msg string, kv ...interface{})
}

// `Load()` reads the config from `dir`, preferring `tierarch.yml` over the
// deprecated `tierarch.config.hcl`.
func Load(lg Logger, dir string) (*Config, error) {
	yml := filepath.Join(dir, ConfigFileYml)
	if exists(yml) {
		return LoadFile(lg, yml)
	}
	hclFile := filepath.Join(dir, ConfigFileHcl)
	if exists(hclFile) {
		return LoadFile(lg, hclFile)
	}
	return nil, fmt.Errorf("%w: missing config file `%s`", ErrConfig, yml)
}

// `LoadFile()` reads a YAML or HCL config file, applies defaults, and
// validates it.
func LoadFile(lg Logger, path string) (*Config, error) {
	dat, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfig, err)
	}

	var cfg Config
	if strings.HasSuffix(path, ".hcl") {
		if err := hcl.Unmarshal(dat, &cfg); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrConfig, err)
		}
		lg.Warnw(
			"DEPRECATED HCL config.  " +
				"You should migrate to `tierarch.yml`.",
		)
	} else {
		if err := yaml.Unmarshal(dat, &cfg); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrConfig, err)
		}
	}

	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (cfg *Config) SetDefaults() {
	if cfg.ArchiveExt == "" {
		cfg.ArchiveExt = DefaultArchiveExt
	}
	cfg.ArchiveExt = strings.TrimPrefix(cfg.ArchiveExt, ".")
	if cfg.Sync.Driver == "" {
		cfg.Sync.Driver = DefaultSyncDriver
	}
}

// `Validate()` checks that both tier roots are distinct absolute
// directories.
func (cfg *Config) Validate() error {
	for _, r := range []struct {
		key  string
		path string
	}{
		{"liveRoot", cfg.LiveRoot},
		{"archiveRoot", cfg.ArchiveRoot},
	} {
		if r.path == "" {
			return fmt.Errorf("%w: missing `%s`", ErrConfig, r.key)
		}
		if !filepath.IsAbs(r.path) {
			return fmt.Errorf(
				"%w: `%s` must be an absolute path",
				ErrConfig, r.key,
			)
		}
		if !isDir(r.path) {
			return fmt.Errorf(
				"%w: `%s` `%s` is not a directory",
				ErrConfig, r.key, r.path,
			)
		}
	}
	if filepath.Clean(cfg.LiveRoot) == filepath.Clean(cfg.ArchiveRoot) {
		return fmt.Errorf(
			"%w: `liveRoot` and `archiveRoot` must differ", ErrConfig,
		)
	}

	if !isValidExt(cfg.ArchiveExt) {
		return fmt.Errorf(
			"%w: unsupported `archiveExt` `%s`",
			ErrConfig, cfg.ArchiveExt,
		)
	}

	switch cfg.Sync.Driver {
	case "local", "rsync":
		break // ok
	default:
		return fmt.Errorf(
			"%w: invalid sync driver `%s`", ErrConfig, cfg.Sync.Driver,
		)
	}

	if err := validateRsyncOptions(cfg.Sync.RsyncOptions); err != nil {
		return err
	}
	if _, err := cfg.BandwidthLimit(); err != nil {
		return err
	}
	if _, err := cfg.InventoryTimeout(); err != nil {
		return err
	}
	return nil
}

// `BandwidthLimit()` returns the parsed `sync.bandwidthLimit` in bytes per
// second, 0 if unlimited.
func (cfg *Config) BandwidthLimit() (uint64, error) {
	if cfg.Sync.BandwidthLimit == "" {
		return 0, nil
	}
	v, err := ParseUint64Si(cfg.Sync.BandwidthLimit)
	if err != nil {
		return 0, fmt.Errorf(
			"%w: invalid `sync.bandwidthLimit`: %v", ErrConfig, err,
		)
	}
	return v, nil
}

func (cfg *Config) InventoryTimeout() (time.Duration, error) {
	if cfg.Inventory.Timeout == "" {
		return DefaultInventoryTimeout, nil
	}
	d, err := time.ParseDuration(cfg.Inventory.Timeout)
	if err != nil {
		return 0, fmt.Errorf(
			"%w: invalid `inventory.timeout`: %v", ErrConfig, err,
		)
	}
	return d, nil
}

// rsync options that remove data.  Transfers must only copy.
var refusedRsyncOptions = []string{
	"--remove-source-files",
	"--remove-sent-files",
	"--del",
	"--delete",
}

// `validateRsyncOptions()` accepts only options, no extra paths, and refuses
// options that would delete files at either tier.
func validateRsyncOptions(opts []string) error {
	for _, o := range opts {
		if !strings.HasPrefix(o, "-") {
			return fmt.Errorf(
				"%w: `sync.rsyncOptions`: `%s` is not an option",
				ErrConfig, o,
			)
		}
		name := strings.SplitN(o, "=", 2)[0]
		for _, r := range refusedRsyncOptions {
			if name == r || strings.HasPrefix(name, "--delete-") {
				return fmt.Errorf(
					"%w: `sync.rsyncOptions`: `%s` deletes data",
					ErrConfig, o,
				)
			}
		}
	}
	return nil
}

func isValidExt(ext string) bool {
	for _, e := range ArchiveExts {
		if ext == e {
			return true
		}
	}
	return false
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func isDir(path string) bool {
	inf, err := os.Stat(path)
	if err != nil {
		return false
	}
	return inf.IsDir()
}
