package client

import (
	"net/url"
	"os"
	"strings"
	"time"
)

const (
	envBaseURL = "KILN_BASE_URL"
	envHost    = "KILN_HOST"

	defaultPort = "5678"
)

// Config captures runtime configuration for the CLI client.
type Config struct {
	BaseURL     *url.URL
	HTTPTimeout time.Duration
}

// LoadConfig reads configuration values from the environment and
// applies sane defaults if values are not provided.
func LoadConfig() (*Config, error) {
	baseURL := strings.TrimSpace(os.Getenv(envBaseURL))

	if baseURL == "" {
		host := strings.TrimSpace(os.Getenv(envHost))
		if host == "" {
			baseURL = "http://127.0.0.1:" + defaultPort
		} else {
			if strings.HasPrefix(host, "http://") || strings.HasPrefix(host, "https://") {
				baseURL = host
			} else {
				baseURL = "http://" + host
			}

			if !strings.Contains(baseURL[strings.Index(baseURL, "://")+3:], ":") {
				baseURL = strings.TrimRight(baseURL, "/") + ":" + defaultPort
			}
		}
	}

	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		BaseURL:     u,
		HTTPTimeout: 10 * time.Second,
	}

	return cfg, nil
}

// FromEnv builds a client from LoadConfig.
func FromEnv() (*Client, error) {
	cfg, err := LoadConfig()
	if err != nil {
		return nil, err
	}
	return New(cfg), nil
}
