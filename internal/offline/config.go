// Package offline is the technician device agent: it captures photos,
// keeps them in a local queue while the device is offline and replays them
// once connectivity returns.
package offline

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultSettleDelay = 5 * time.Second
	defaultTimeout     = 30 * time.Second
)

// Config is the agent's YAML configuration file.
type Config struct {
	ServerURL        string        `yaml:"server_url"`
	AccessToken      string        `yaml:"access_token"`
	TechnicianID     string        `yaml:"technician_id"`
	QueueDir         string        `yaml:"queue_dir"`
	NetworkStateFile string        `yaml:"network_state_file"`
	SettleDelay      time.Duration `yaml:"settle_delay"`
	RequestTimeout   time.Duration `yaml:"request_timeout"`
	RetryCount       int           `yaml:"retry_count"`
}

// LoadConfig reads and validates the YAML file at path.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	return ParseConfig(data)
}

// ParseConfig decodes YAML and applies defaults.
func ParseConfig(data []byte) (Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	if cfg.SettleDelay <= 0 {
		cfg.SettleDelay = defaultSettleDelay
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = defaultTimeout
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	var errs []error
	if c.ServerURL == "" {
		errs = append(errs, errors.New("server_url is required"))
	}
	if c.AccessToken == "" {
		errs = append(errs, errors.New("access_token is required"))
	}
	if c.QueueDir == "" {
		errs = append(errs, errors.New("queue_dir is required"))
	}
	if c.RetryCount < 0 {
		errs = append(errs, errors.New("retry_count cannot be negative"))
	}
	return errors.Join(errs...)
}
