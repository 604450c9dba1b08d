package befunge

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

const ConfigFile = "befunge.toml"

// Config is the befunge.toml run configuration.
type Config struct {
	MaxSteps    int      `toml:"max_steps"`
	Timeout     Duration `toml:"timeout"`
	Seed        int64    `toml:"seed"`
	Rectangular bool     `toml:"rectangular"`
	Verbosity   int      `toml:"verbosity"`
	LogFile     string   `toml:"log_file"`

	// Path is the file the config was loaded from, if any.
	Path string `toml:"-"`
}

// Duration decodes TOML strings such as "1.5s".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	var c Config
	if err := toml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}
	if c.MaxSteps < 0 {
		return nil, fmt.Errorf("%s: max_steps must not be negative", path)
	}
	if c.Timeout.Duration < 0 {
		return nil, fmt.Errorf("%s: timeout must not be negative", path)
	}

	c.Path = path
	return &c, nil
}

// FindConfig walks up from startDir looking for befunge.toml. It returns an
// empty config when none is found.
func FindConfig(startDir string) (*Config, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", startDir, err)
	}

	for {
		path := filepath.Join(dir, ConfigFile)
		if _, err := os.Stat(path); err == nil {
			return LoadConfig(path)
		} else if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("cannot stat %s: %w", path, err)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return &Config{}, nil
		}
		dir = parent
	}
}

// Options converts the config into machine options. The timeout is not an
// option; callers apply it to the context they run with.
func (c *Config) Options() []Option {
	var opts []Option
	if c.MaxSteps > 0 {
		opts = append(opts, WithMaxSteps(c.MaxSteps))
	}
	if c.Seed != 0 {
		opts = append(opts, WithSeed(c.Seed))
	}
	if c.Rectangular {
		opts = append(opts, WithRectangular())
	}
	return opts
}
