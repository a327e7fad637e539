package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/qsc591/seatboard/go/clients/board_client"
	"github.com/qsc591/seatboard/go/internal/board/engine"
)

const defaultConfigPath = "seatboard.yaml"

type Config struct {
	Server struct {
		URL            string        `yaml:"url"`
		GroupID        string        `yaml:"group_id"`
		RequestTimeout time.Duration `yaml:"request_timeout"`
	} `yaml:"server"`
	Board struct {
		PollInterval  time.Duration `yaml:"poll_interval"`
		ToastDuration time.Duration `yaml:"toast_duration"`
		Timezone      string        `yaml:"timezone"`
		ProbeImages   bool          `yaml:"probe_images"`
	} `yaml:"board"`
	Mirror struct {
		Addr           string   `yaml:"addr"`
		AllowedOrigins []string `yaml:"allowed_origins"`
	} `yaml:"mirror"`
	Journal struct {
		NATSURL       string `yaml:"nats_url"`
		StreamName    string `yaml:"stream_name"`
		SubjectPrefix string `yaml:"subject_prefix"`
	} `yaml:"journal"`
	Log struct {
		Level string `yaml:"level"`
		File  string `yaml:"file"`
	} `yaml:"log"`
}

func defaultConfig() *Config {
	var config Config
	config.Server.URL = board_client.DefaultBaseURL
	config.Server.RequestTimeout = 5 * time.Second
	config.Board.PollInterval = engine.DefaultPollInterval
	config.Board.ToastDuration = engine.DefaultToastDuration
	config.Board.ProbeImages = true
	config.Mirror.AllowedOrigins = []string{"*"}
	config.Log.Level = "info"
	config.Log.File = "seatboard.log"
	return &config
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
		if ms, err := strconv.Atoi(value); err == nil {
			return time.Duration(ms) * time.Millisecond
		}
	}
	return defaultValue
}

// loadConfig layers defaults, the YAML file and the environment. A missing
// file is only an error when the path was given explicitly.
func loadConfig(path string, explicit bool) (*Config, error) {
	config := defaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, config); err != nil {
				return nil, fmt.Errorf("failed to parse config: %w", err)
			}
		case errors.Is(err, fs.ErrNotExist) && !explicit:
		default:
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	config.Server.URL = getEnv("SEATBOARD_SERVER_URL", config.Server.URL)
	config.Server.GroupID = getEnv("SEATBOARD_GROUP_ID", config.Server.GroupID)
	config.Board.PollInterval = getEnvAsDuration("SEATBOARD_POLL_INTERVAL", config.Board.PollInterval)
	config.Mirror.Addr = getEnv("SEATBOARD_MIRROR_ADDR", config.Mirror.Addr)
	config.Journal.NATSURL = getEnv("NATS_URL", config.Journal.NATSURL)
	config.Log.Level = getEnv("LOG_LEVEL", config.Log.Level)

	if err := config.validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func (c *Config) validate() error {
	if !strings.HasPrefix(c.Server.URL, "http://") && !strings.HasPrefix(c.Server.URL, "https://") {
		return fmt.Errorf("server url must start with http:// or https://: %q", c.Server.URL)
	}
	if c.Board.PollInterval <= 0 {
		return fmt.Errorf("poll interval must be positive: %s", c.Board.PollInterval)
	}
	if c.Board.ToastDuration <= 0 {
		return fmt.Errorf("toast duration must be positive: %s", c.Board.ToastDuration)
	}
	if _, err := c.location(); err != nil {
		return err
	}
	return nil
}

// location is the zone used for captured-at timestamps.
func (c *Config) location() (*time.Location, error) {
	if c.Board.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Board.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", c.Board.Timezone, err)
	}
	return loc, nil
}
