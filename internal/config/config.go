package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server  ServerConfig  `json:"server"`
	Bill    BillConfig    `json:"bill"`
	Logging LoggingConfig `json:"logging"`
}

type ServerConfig struct {
	Port            int           `json:"port"`
	Host            string        `json:"host"`
	ShutdownTimeout time.Duration `json:"shutdown_timeout"`
	MaxBodyBytes    int64         `json:"max_body_bytes"`
}

// BillConfig controls document layout and the form's input-collection policy.
type BillConfig struct {
	LayoutName       string       `json:"layout"`
	Layout           LayoutConfig `json:"-"` // resolved from LayoutName
	DefaultItemCount int          `json:"default_item_count"`
	MinItems         int          `json:"min_items"`
	MaxItems         int          `json:"max_items"`
	FilenamePrefix   string       `json:"filename_prefix"`
	FallbackName     string       `json:"fallback_name"`
}

type LoggingConfig struct {
	Level       string `json:"level"`
	File        string `json:"file"`
	Environment string `json:"environment"`
}

func (s ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// MarshalJSON writes shutdown_timeout as a duration string ("10s").
func (s ServerConfig) MarshalJSON() ([]byte, error) {
	type plain ServerConfig
	return json.Marshal(struct {
		plain
		ShutdownTimeout string `json:"shutdown_timeout"`
	}{plain: plain(s), ShutdownTimeout: s.ShutdownTimeout.String()})
}

// UnmarshalJSON reads shutdown_timeout in the same format as SHUTDOWN_TIMEOUT.
// Plain numbers are taken as nanoseconds.
func (s *ServerConfig) UnmarshalJSON(data []byte) error {
	type plain ServerConfig
	aux := struct {
		*plain
		ShutdownTimeout json.RawMessage `json:"shutdown_timeout"`
	}{plain: (*plain)(s)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if len(aux.ShutdownTimeout) == 0 || string(aux.ShutdownTimeout) == "null" {
		return nil
	}

	var raw string
	if err := json.Unmarshal(aux.ShutdownTimeout, &raw); err == nil {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return fmt.Errorf("invalid shutdown_timeout %q: %w", raw, err)
		}
		s.ShutdownTimeout = d
		return nil
	}
	var nanos int64
	if err := json.Unmarshal(aux.ShutdownTimeout, &nanos); err != nil {
		return fmt.Errorf("invalid shutdown_timeout %s: %w", aux.ShutdownTimeout, err)
	}
	s.ShutdownTimeout = time.Duration(nanos)
	return nil
}

func LoadConfig(path string) (*Config, error) {
	// .env values only fill variables that are not already set
	_ = godotenv.Load()

	// Start with default config
	config := getDefaultConfig()

	// Override with environment variables if they exist
	loadFromEnvironment(config)

	// Try to load from file if it exists
	if path != "" {
		file, err := os.Open(path)
		if err == nil {
			defer file.Close()
			decoder := json.NewDecoder(file)
			if err := decoder.Decode(config); err != nil {
				return nil, fmt.Errorf("failed to decode config %s: %w", path, err)
			}
			// Override again with environment variables to give them priority
			loadFromEnvironment(config)
		}
	}

	layout, err := LayoutByName(config.Bill.LayoutName)
	if err != nil {
		return nil, err
	}
	config.Bill.Layout = layout

	if err := config.validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func (c *Config) Save(path string) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	return encoder.Encode(c)
}

func (c *Config) validate() error {
	b := c.Bill
	if b.MinItems < 0 || b.MaxItems < b.MinItems {
		return fmt.Errorf("invalid item bounds: min=%d max=%d", b.MinItems, b.MaxItems)
	}
	if strings.TrimSpace(b.FilenamePrefix) == "" {
		return errors.New("bill filename prefix cannot be empty")
	}
	return nil
}

// Default returns the built-in configuration without reading files or the environment.
func Default() *Config {
	return getDefaultConfig()
}

func getDefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			Host:            "localhost",
			ShutdownTimeout: 10 * time.Second,
			MaxBodyBytes:    1 << 20,
		},
		Bill: BillConfig{
			LayoutName:       LayoutEnhanced,
			Layout:           EnhancedLayout(),
			DefaultItemCount: 5,
			MinItems:         1,
			MaxItems:         50,
			FilenamePrefix:   "S_S_Enterprises",
			FallbackName:     "Bill",
		},
		Logging: LoggingConfig{
			Level:       "info",
			File:        "stdout",
			Environment: "development",
		},
	}
}

// loadFromEnvironment loads configuration from environment variables
func loadFromEnvironment(config *Config) {
	// Server configuration
	if host := os.Getenv("SERVER_HOST"); host != "" {
		config.Server.Host = host
	}
	if port := os.Getenv("SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if timeout := os.Getenv("SHUTDOWN_TIMEOUT"); timeout != "" {
		if d, err := time.ParseDuration(timeout); err == nil {
			config.Server.ShutdownTimeout = d
		}
	}

	// Bill configuration
	if layout := os.Getenv("BILL_LAYOUT"); layout != "" {
		config.Bill.LayoutName = layout
	}
	if maxItems := os.Getenv("BILL_MAX_ITEMS"); maxItems != "" {
		if m, err := strconv.Atoi(maxItems); err == nil {
			config.Bill.MaxItems = m
		}
	}
	if prefix := os.Getenv("BILL_FILENAME_PREFIX"); prefix != "" {
		config.Bill.FilenamePrefix = prefix
	}

	// Logging configuration
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if file := os.Getenv("LOG_FILE"); file != "" {
		config.Logging.File = file
	}
	if env := os.Getenv("APP_ENV"); env != "" {
		config.Logging.Environment = env
	}
}
