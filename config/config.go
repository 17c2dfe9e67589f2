package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v2"

	"riskscreen/logging"
	"riskscreen/ml"
)

type Config struct {
	Http struct {
		Port           int           `yaml:"port"`
		Timeout        time.Duration `yaml:"timeout"`
		AllowedOrigins []string      `yaml:"allowed_origins"`
		MaxBodyBytes   int64         `yaml:"max_body_bytes"`
	} `yaml:"http"`
	Model struct {
		Path      string `yaml:"path"`
		Watch     bool   `yaml:"watch"`
		CacheSize int    `yaml:"cache_size"`
	} `yaml:"model"`
	Features struct {
		BoundPolicy string `yaml:"bound_policy"`
		Strict      bool   `yaml:"strict"`
	} `yaml:"features"`
	Database struct {
		Path string `yaml:"path"`
	} `yaml:"database"`
	Log logging.Config `yaml:"log"`
}

func Default() *Config {
	c := &Config{}
	c.Http.Port = 8501
	c.Http.Timeout = 30 * time.Second
	c.Http.AllowedOrigins = []string{"*"}
	c.Http.MaxBodyBytes = 1 << 20
	c.Model.Path = "diabetes_model.json"
	c.Model.CacheSize = 1024
	c.Features.BoundPolicy = ml.BoundPassThrough.String()
	c.Log = logging.DefaultConfig()
	return c
}

// Load reads a YAML file over the defaults. Relative model, database and log
// paths are resolved against the directory of the config file.
func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	config := Default()
	if err := yaml.NewDecoder(file).Decode(config); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	dir := filepath.Dir(path)
	config.Model.Path = resolve(dir, config.Model.Path)
	config.Database.Path = resolve(dir, config.Database.Path)
	config.Log.File = resolve(dir, config.Log.File)
	return config, nil
}

// LoadOrDefault behaves like Load but falls back to Default when path does not exist.
func LoadOrDefault(path string) (*Config, error) {
	config, err := Load(path)
	if errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	return config, err
}

func (c *Config) Validate() error {
	if c.Http.Port <= 0 || c.Http.Port > 65535 {
		return fmt.Errorf("http.port %d out of range", c.Http.Port)
	}
	if c.Http.Timeout <= 0 {
		return errors.New("http.timeout must be positive")
	}
	if c.Model.Path == "" {
		return errors.New("model.path is required")
	}
	if c.Model.CacheSize < 0 {
		return errors.New("model.cache_size must not be negative")
	}
	if _, err := ml.ParseBoundPolicy(c.Features.BoundPolicy); err != nil {
		return fmt.Errorf("features.bound_policy: %w", err)
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	return nil
}

// BuilderOptions turns the features section into row builder options.
func (c *Config) BuilderOptions() []ml.BuilderOption {
	policy, _ := ml.ParseBoundPolicy(c.Features.BoundPolicy)
	return []ml.BuilderOption{
		ml.WithBoundPolicy(policy),
		ml.WithStrict(c.Features.Strict),
	}
}

func resolve(dir, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(dir, path)
}
