// Package config loads the service's runtime configuration through the
// same layered precedence the original repository uses: defaults, then
// an optional YAML file, then environment variables, then command-line
// flags, each overriding the last (C11).
package config

import (
	"fmt"
	"os"
	"runtime"
	"strings"

	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

// Specification holds every tunable of the search core. WriterMemoryMB
// and ThreadCount are the two index-writer knobs named in the spec;
// the rest are ambient service concerns (index location, HTTP port,
// logging) carried the way the original repository carries them.
type Specification struct {
	IndexDir       string `yaml:"indexDir" split_words:"true"`
	WriterMemoryMB int    `yaml:"writerMemoryMB" split_words:"true"`
	ThreadCount    int    `yaml:"threadCount" split_words:"true"`

	Port     int    `yaml:"port" split_words:"true"`
	LogLevel string `yaml:"logLevel" split_words:"true"`

	flags *pflag.FlagSet `ignored:"true"`
}

const envPrefix = "CODESEARCH"

const (
	minWriterMemoryMB = 50
	maxWriterMemoryMB = 8000
	defaultWriterMB   = 200
)

func (s *Specification) Usage() {
	fmt.Fprint(os.Stderr, s.flags.FlagUsages())
}

// Load resolves configuration in precedence order: defaults < YAML <
// env < flags. configPath may be "", in which case a handful of
// conventional locations are auto-discovered.
func Load(configPath string, fs *pflag.FlagSet) (Specification, error) {
	var cfg Specification

	setDefaults(&cfg)
	bindFlags(fs, &cfg)

	path := configPath
	if path == "" {
		if v := os.Getenv(envPrefix + "_CONFIG"); v != "" {
			path = v
		} else {
			for _, cand := range []string{
				"config/codesearch.yaml",
				"config/config.yaml",
				"./codesearch.yaml",
				"./config.yaml",
			} {
				if fileExists(cand) {
					path = cand
					break
				}
			}
		}
	}

	if path != "" {
		if !fileExists(path) {
			return Specification{}, fmt.Errorf("config file not found: %s", path)
		}
		if err := loadYAML(path, &cfg); err != nil {
			return Specification{}, fmt.Errorf("load yaml %s: %w", path, err)
		}
	}

	if err := envconfig.Process(envPrefix, &cfg); err != nil {
		return Specification{}, fmt.Errorf("env override: %w", err)
	}

	if err := fs.Parse(os.Args[1:]); err != nil {
		return Specification{}, err
	}
	applyChangedFlags(fs, &cfg)

	if strings.TrimSpace(cfg.IndexDir) == "" {
		return Specification{}, fmt.Errorf("%s_INDEX_DIR is required (env/file/flag)", envPrefix)
	}
	if strings.TrimSpace(cfg.LogLevel) == "" {
		cfg.LogLevel = "info"
	}

	normalizeWriterKnobs(&cfg)

	return cfg, nil
}

// normalizeWriterKnobs clamps an out-of-range writer memory budget back
// to the default rather than rejecting the whole config, and resolves a
// thread count of 0 to the host's CPU count. The writer itself never
// observes an invalid value.
func normalizeWriterKnobs(cfg *Specification) {
	if cfg.WriterMemoryMB < minWriterMemoryMB || cfg.WriterMemoryMB > maxWriterMemoryMB {
		cfg.WriterMemoryMB = defaultWriterMB
	}
	if cfg.ThreadCount <= 0 {
		cfg.ThreadCount = runtime.NumCPU()
	} else if cfg.ThreadCount > 2*runtime.NumCPU() {
		cfg.ThreadCount = 2 * runtime.NumCPU()
	}
}

func loadYAML(path string, into any) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(b, into)
}

func fileExists(p string) bool {
	fi, err := os.Stat(p)
	return err == nil && !fi.IsDir()
}

func bindFlags(fs *pflag.FlagSet, c *Specification) {
	fs.String("config", "", "Path to config file")

	for i, a := range os.Args {
		if a == "--config" {
			if i+1 < len(os.Args) && !strings.HasPrefix(os.Args[i+1], "-") {
				_ = os.Setenv(envPrefix+"_CONFIG", os.Args[i+1])
			}
		} else if strings.HasPrefix(a, "--config=") {
			parts := strings.SplitN(a, "=", 2)
			if len(parts) == 2 {
				_ = os.Setenv(envPrefix+"_CONFIG", parts[1])
			}
		}
	}

	fs.String("index-dir", c.IndexDir, "Directory the index is stored under")
	fs.Int("writer-memory-mb", c.WriterMemoryMB, "Writer memory budget in MB (50-8000)")
	fs.Int("thread-count", c.ThreadCount, "Indexing thread count (0 = auto-detect)")

	fs.Int("port", c.Port, "API server port")
	fs.String("log-level", c.LogLevel, "Log level (debug|info|warn|error)")

	copied := pflag.NewFlagSet("temp", pflag.ContinueOnError)
	*copied = *fs
	c.flags = copied
}

func applyChangedFlags(fs *pflag.FlagSet, c *Specification) {
	setStr := func(name string, dst *string) {
		if fs.Changed(name) {
			v, _ := fs.GetString(name)
			*dst = v
		}
	}
	setInt := func(name string, dst *int) {
		if fs.Changed(name) {
			v, _ := fs.GetInt(name)
			*dst = v
		}
	}

	setStr("index-dir", &c.IndexDir)
	setInt("writer-memory-mb", &c.WriterMemoryMB)
	setInt("thread-count", &c.ThreadCount)
	setInt("port", &c.Port)
	setStr("log-level", &c.LogLevel)
}

func setDefaults(c *Specification) {
	c.IndexDir = "./data/index"
	c.WriterMemoryMB = defaultWriterMB
	c.ThreadCount = 0
	c.Port = 8080
	c.LogLevel = "info"
}
