package config

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/flickyourselfon/railhint/level"
	"github.com/flickyourselfon/railhint/zobrist"
)

const (
	ConfigDebug               = "debug"
	ConfigHashMode            = "hash-mode"
	ConfigMaxSearchSteps      = "max-search-steps"
	ConfigSearchTimeout       = "search-timeout"
	ConfigStateMemoryFraction = "state-memory-fraction"
	ConfigBucketCount         = "bucket-count"
	ConfigLevelsPath          = "levels-path"
	ConfigBenchDB             = "bench-db"
	ConfigCPUProfile          = "cpu-profile"
	ConfigConfigFile          = "config"

	ConfigBenchStates       = "bench-states"
	ConfigBenchWorkers      = "bench-workers"
	ConfigBenchRandomLevels = "bench-random-levels"
	ConfigBenchSeed         = "bench-seed"
)

const EnvPrefix = "RAILHINT"

var ErrBadValue = errors.New("bad config value")

type Config struct {
	*viper.Viper
}

// DefaultConfig has every key at its default and nothing read from the
// environment.
func DefaultConfig() *Config {
	c := &Config{Viper: viper.New()}
	c.setDefaults()
	return c
}

func (c *Config) setDefaults() {
	c.SetDefault(ConfigDebug, false)
	c.SetDefault(ConfigHashMode, zobrist.ModeXOR)
	c.SetDefault(ConfigMaxSearchSteps, 0)
	c.SetDefault(ConfigSearchTimeout, time.Duration(0))
	c.SetDefault(ConfigStateMemoryFraction, level.DefaultStateMemoryFraction)
	c.SetDefault(ConfigBucketCount, level.DefaultBucketCount)
	c.SetDefault(ConfigLevelsPath, "./testdata/levels.yaml")
	c.SetDefault(ConfigBenchDB, "")
	c.SetDefault(ConfigCPUProfile, "")
	c.SetDefault(ConfigBenchStates, 100)
	c.SetDefault(ConfigBenchWorkers, runtime.NumCPU())
	c.SetDefault(ConfigBenchRandomLevels, 0)
	c.SetDefault(ConfigBenchSeed, 0)
}

// Load reads command-line flags, then RAILHINT_* environment variables, then
// an optional YAML config file named by --config. Flags win over env, and
// env over the file. It returns the positional arguments left over.
func (c *Config) Load(args []string) ([]string, error) {
	fs := pflag.NewFlagSet("railhint", pflag.ContinueOnError)
	fs.Bool(ConfigDebug, false, "log at debug level")
	fs.String(ConfigHashMode, zobrist.ModeXOR, "state hash: xor, zobrist or xxhash")
	fs.Int(ConfigMaxSearchSteps, 0, "give up on searches past this many steps (0 for no limit)")
	fs.Duration(ConfigSearchTimeout, 0, "give up on searches that run longer than this (0 for no limit)")
	fs.Float64(ConfigStateMemoryFraction, level.DefaultStateMemoryFraction, "fraction of system memory the state arena may use")
	fs.Int(ConfigBucketCount, level.DefaultBucketCount, "hash buckets per plane")
	fs.String(ConfigLevelsPath, "./testdata/levels.yaml", "level description file")
	fs.String(ConfigBenchDB, "", "sqlite file to record benchmark runs in")
	fs.String(ConfigCPUProfile, "", "write a cpu profile to this file")
	fs.String(ConfigConfigFile, "", "yaml config file")
	fs.Int(ConfigBenchStates, 100, "random rail states to search per level")
	fs.Int(ConfigBenchWorkers, runtime.NumCPU(), "parallel searches, each with its own workspace")
	fs.Int(ConfigBenchRandomLevels, 0, "benchmark this many generated levels instead of the level file")
	fs.Uint64(ConfigBenchSeed, 0, "seed for generated levels and states (0 for a random seed)")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if err := c.BindPFlags(fs); err != nil {
		return nil, err
	}
	c.SetEnvPrefix(EnvPrefix)
	c.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	c.AutomaticEnv()

	if path := c.GetString(ConfigConfigFile); path != "" {
		c.SetConfigFile(path)
		c.SetConfigType("yaml")
		if err := c.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return fs.Args(), nil
}

func (c *Config) validate() error {
	if _, err := zobrist.New(c.GetString(ConfigHashMode)); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrBadValue, ConfigHashMode, err)
	}
	if f := c.GetFloat64(ConfigStateMemoryFraction); f < 0 || f > 1 {
		return fmt.Errorf("%w: %s must be within [0, 1], got %v", ErrBadValue, ConfigStateMemoryFraction, f)
	}
	if c.GetInt(ConfigBucketCount) < 1 {
		return fmt.Errorf("%w: %s must be positive", ErrBadValue, ConfigBucketCount)
	}
	if c.GetInt(ConfigBenchWorkers) < 1 {
		return fmt.Errorf("%w: %s must be positive", ErrBadValue, ConfigBenchWorkers)
	}
	if c.GetInt(ConfigMaxSearchSteps) < 0 {
		return fmt.Errorf("%w: %s must not be negative", ErrBadValue, ConfigMaxSearchSteps)
	}
	return nil
}

func (c *Config) SearchOptions() level.WorkspaceOptions {
	return level.WorkspaceOptions{
		HashMode:            c.GetString(ConfigHashMode),
		BucketCount:         c.GetInt(ConfigBucketCount),
		MaxSearchSteps:      c.GetInt(ConfigMaxSearchSteps),
		StateMemoryFraction: c.GetFloat64(ConfigStateMemoryFraction),
	}
}

func (c *Config) SearchTimeout() time.Duration {
	return c.GetDuration(ConfigSearchTimeout)
}
