package config

import (
	"net"
	"strconv"
)

// Config represents the complete hookprobe configuration.
type Config struct {
	// Secret is the shared HMAC-SHA256 key, used verbatim.
	Secret string `yaml:"secret"`

	Host string `yaml:"host"`
	Port int    `yaml:"port"`

	// MaxBodySize caps the request body read from the wire (e.g. "2MB", "65536").
	MaxBodySize string `yaml:"max_body_size"`

	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`

	// Color controls report styling: auto, always or never.
	Color string `yaml:"color"`

	// MetricsListen enables the Prometheus endpoint on a separate address.
	MetricsListen string `yaml:"metrics_listen,omitempty"`
}

// Color modes
const (
	ColorAuto   = "auto"
	ColorAlways = "always"
	ColorNever  = "never"
)

// Defaults returns a Config with the values hookprobe uses when nothing else is given.
func Defaults() *Config {
	return &Config{
		Secret:      "sk_prod_123456",
		Host:        "0.0.0.0",
		Port:        3000,
		MaxBodySize: "2MB",
		LogLevel:    "info",
		LogFormat:   "text",
		Color:       ColorAuto,
	}
}

// Listen returns the host:port address the inspector binds to.
func (c *Config) Listen() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// MaxBodyBytes returns MaxBodySize in bytes.
func (c *Config) MaxBodyBytes() (int64, error) {
	return ParseSize(c.MaxBodySize)
}
