package main

import (
	"log/slog"
	"os"

	"github.com/ar90n/kmeanstree/metric"
	"github.com/cockroachdb/errors"
	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Dim           uint   `yaml:"dim"`
	K             uint   `yaml:"k"`
	Depth         uint   `yaml:"depth"`
	MaxIterations uint   `yaml:"max-iterations"`
	MaxGoroutines uint   `yaml:"max-goroutines"`
	Metric        string `yaml:"metric"`
	DType         string `yaml:"dtype"`
	LogLevel      string `yaml:"log-level"`
}

func DefaultConfig() Config {
	return Config{
		Dim:           2,
		K:             4,
		Depth:         3,
		MaxIterations: 1024,
		Metric:        "euclidean",
		DType:         "float32",
		LogLevel:      "info",
	}
}

func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, errors.Wrapf(err, "reading config %s", path)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, errors.Wrapf(err, "parsing config %s", path)
	}
	return cfg, nil
}

func (cfg Config) Validate() error {
	if cfg.Dim == 0 {
		return errors.New("dim must be positive")
	}
	if cfg.K == 0 {
		return errors.New("k must be positive")
	}
	if cfg.Depth == 0 {
		return errors.New("depth must be positive")
	}
	if _, err := metric.ByName[float64](cfg.Metric); err != nil {
		return err
	}
	switch cfg.DType {
	case "float32", "float64", "uint8":
	default:
		return errors.Newf("unknown dtype: %s", cfg.DType)
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		return errors.Wrapf(err, "log level %q", cfg.LogLevel)
	}
	return nil
}

func configFlags() []cli.Flag {
	defaults := DefaultConfig()
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "config",
			Usage: "yaml config file, overridden by explicit flags",
		},
		&cli.UintFlag{
			Name:  "dim",
			Value: defaults.Dim,
			Usage: "dimension of feature",
		},
		&cli.UintFlag{
			Name:  "k",
			Value: defaults.K,
			Usage: "number of sub-clusters per node",
		},
		&cli.UintFlag{
			Name:  "depth",
			Value: defaults.Depth,
			Usage: "maximum number of partition levels",
		},
		&cli.UintFlag{
			Name:  "max-iterations",
			Value: defaults.MaxIterations,
			Usage: "refinement passes per node before giving up, 0 for no limit",
		},
		&cli.UintFlag{
			Name:  "max-goroutines",
			Value: defaults.MaxGoroutines,
			Usage: "assignment workers, 0 for one per cpu",
		},
		&cli.StringFlag{
			Name:  "metric",
			Value: defaults.Metric,
			Usage: "distance metric",
		},
		&cli.StringFlag{
			Name:  "dtype",
			Value: defaults.DType,
			Usage: "data type",
		},
		&cli.StringFlag{
			Name:  "log-level",
			Value: defaults.LogLevel,
			Usage: "debug, info, warn or error",
		},
	}
}

// resolveConfig starts from the defaults, applies the config file when
// given and then every flag set on the command line.
func resolveConfig(c *cli.Context) (Config, error) {
	cfg := DefaultConfig()
	if path := c.String("config"); path != "" {
		loaded, err := LoadConfig(path)
		if err != nil {
			return cfg, err
		}
		cfg = loaded
	}

	if c.IsSet("dim") {
		cfg.Dim = c.Uint("dim")
	}
	if c.IsSet("k") {
		cfg.K = c.Uint("k")
	}
	if c.IsSet("depth") {
		cfg.Depth = c.Uint("depth")
	}
	if c.IsSet("max-iterations") {
		cfg.MaxIterations = c.Uint("max-iterations")
	}
	if c.IsSet("max-goroutines") {
		cfg.MaxGoroutines = c.Uint("max-goroutines")
	}
	if c.IsSet("metric") {
		cfg.Metric = c.String("metric")
	}
	if c.IsSet("dtype") {
		cfg.DType = c.String("dtype")
	}
	if c.IsSet("log-level") {
		cfg.LogLevel = c.String("log-level")
	}

	return cfg, cfg.Validate()
}
