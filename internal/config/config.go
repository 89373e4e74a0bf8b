// Package config provides configuration loading for dataverse-mcp.
//
// Configuration is assembled from hardcoded defaults, an optional YAML file
// and environment variables. See LoadWithFile for precedence rules.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Config holds the complete dataverse-mcp configuration.
type Config struct {
	Dataverse DataverseConfig `koanf:"dataverse"`
	Context   ContextConfig   `koanf:"context"`
	Server    ServerConfig    `koanf:"server"`
	Logging   LoggingConfig   `koanf:"logging"`
	Telemetry TelemetryConfig `koanf:"telemetry"`
	Secrets   SecretsConfig   `koanf:"secrets"`
}

// DataverseConfig holds Web API connection settings.
type DataverseConfig struct {
	// URL is the environment URL, e.g. https://contoso.crm.dynamics.com
	URL        string `koanf:"url"`
	APIVersion string `koanf:"api_version"`

	// Client-credentials flow. Ignored when AccessToken is set.
	Authority    string `koanf:"authority"` // Entra ID host
	TenantID     string `koanf:"tenant_id"`
	ClientID     string `koanf:"client_id"`
	ClientSecret Secret `koanf:"client_secret"`

	// AccessToken is a pre-acquired bearer token.
	AccessToken Secret `koanf:"access_token"`

	Timeout   Duration `koanf:"timeout"`
	RateLimit float64  `koanf:"rate_limit"` // requests per second
	RateBurst int      `koanf:"rate_burst"`
}

// ContextConfig controls where the solution context is persisted.
type ContextConfig struct {
	Dir      string `koanf:"dir"`
	FileName string `koanf:"file_name"`
	Watch    bool   `koanf:"watch"`
}

// ServerConfig holds MCP transport configuration.
type ServerConfig struct {
	Transport       string   `koanf:"transport"` // stdio or http
	HTTPHost        string   `koanf:"http_host"`
	HTTPPort        int      `koanf:"http_port"`
	ShutdownTimeout Duration `koanf:"shutdown_timeout"`
}

// LoggingConfig holds the subset of logging settings exposed to users.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	OTEL   bool   `koanf:"otel"`
}

// TelemetryConfig holds OpenTelemetry exporter settings.
type TelemetryConfig struct {
	Enabled     bool   `koanf:"enabled"`
	Endpoint    string `koanf:"endpoint"`
	Protocol    string `koanf:"protocol"` // grpc or http/protobuf
	Insecure    bool   `koanf:"insecure"`
	ServiceName string `koanf:"service_name"`
}

// SecretsConfig controls scrubbing of tool output.
type SecretsConfig struct {
	Enabled bool `koanf:"enabled"`
}

// Transports accepted by ServerConfig.Transport.
const (
	TransportStdio = "stdio"
	TransportHTTP  = "http"
)

// Default returns a Config populated with defaults. Loaders unmarshal on top
// of it, so keys absent from file and environment keep these values.
func Default() *Config {
	return &Config{
		Dataverse: DataverseConfig{
			APIVersion: "v9.2",
			Authority:  "https://login.microsoftonline.com",
			Timeout:    Duration(30 * time.Second),
			RateLimit:  10,
			RateBurst:  5,
		},
		Context: ContextConfig{
			Dir:      ".",
			FileName: ".mcp-dataverse",
			Watch:    false,
		},
		Server: ServerConfig{
			Transport:       TransportStdio,
			HTTPHost:        "localhost",
			HTTPPort:        9191,
			ShutdownTimeout: Duration(10 * time.Second),
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Telemetry: TelemetryConfig{
			Enabled:     false,
			Endpoint:    "localhost:4317",
			Protocol:    "grpc",
			Insecure:    true,
			ServiceName: "dataverse-mcp",
		},
		Secrets: SecretsConfig{
			Enabled: true,
		},
	}
}

// Validate validates the configuration.
//
// Returns an error if:
//   - the Dataverse URL is missing or not an absolute http(s) URL
//   - neither an access token nor a complete client-credentials triple is set
//   - the transport is unknown or the HTTP port is out of range
//   - rate limiting values are negative
func (c *Config) Validate() error {
	if err := c.Dataverse.Validate(); err != nil {
		return fmt.Errorf("dataverse: %w", err)
	}
	return c.ValidateLocal()
}

// ValidateLocal validates everything except the Dataverse connection.
func (c *Config) ValidateLocal() error {
	if c.Context.FileName == "" {
		return errors.New("context.file_name is required")
	}
	if strings.ContainsAny(c.Context.FileName, `/\`) {
		return fmt.Errorf("context.file_name must be a bare file name, got %q", c.Context.FileName)
	}

	switch c.Server.Transport {
	case TransportStdio:
	case TransportHTTP:
		if c.Server.HTTPPort < 1 || c.Server.HTTPPort > 65535 {
			return fmt.Errorf("invalid server http port: %d (must be 1-65535)", c.Server.HTTPPort)
		}
	default:
		return fmt.Errorf("server.transport must be %q or %q, got %q", TransportStdio, TransportHTTP, c.Server.Transport)
	}

	if c.Server.ShutdownTimeout.Duration() <= 0 {
		return errors.New("shutdown timeout must be positive")
	}

	if c.Telemetry.Enabled && c.Telemetry.ServiceName == "" {
		return errors.New("service name required when telemetry is enabled")
	}

	return nil
}

// Validate checks connection settings.
func (d *DataverseConfig) Validate() error {
	if d.URL == "" {
		return errors.New("url is required (set DATAVERSE_URL)")
	}
	u, err := url.Parse(d.URL)
	if err != nil {
		return fmt.Errorf("invalid url: %w", err)
	}
	if u.Scheme != "https" && u.Scheme != "http" {
		return fmt.Errorf("url must use http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("url has no host: %q", d.URL)
	}

	if !d.AccessToken.IsSet() {
		var missing []string
		if d.TenantID == "" {
			missing = append(missing, "tenant_id")
		}
		if d.ClientID == "" {
			missing = append(missing, "client_id")
		}
		if !d.ClientSecret.IsSet() {
			missing = append(missing, "client_secret")
		}
		if len(missing) > 0 {
			return fmt.Errorf("access_token or client credentials required, missing: %s", strings.Join(missing, ", "))
		}
		if a, err := url.Parse(d.Authority); err != nil || a.Scheme != "https" && a.Scheme != "http" || a.Host == "" {
			return fmt.Errorf("invalid authority: %q", d.Authority)
		}
	}

	if d.APIVersion == "" {
		return errors.New("api_version is required")
	}
	if d.Timeout.Duration() <= 0 {
		return errors.New("timeout must be positive")
	}
	if d.RateLimit < 0 {
		return fmt.Errorf("rate_limit must be >= 0, got %v", d.RateLimit)
	}
	if d.RateLimit > 0 && d.RateBurst < 1 {
		return fmt.Errorf("rate_burst must be >= 1 when rate_limit is set, got %d", d.RateBurst)
	}
	return nil
}

// HTTPAddr returns host:port for the HTTP transport.
func (s ServerConfig) HTTPAddr() string {
	return fmt.Sprintf("%s:%d", s.HTTPHost, s.HTTPPort)
}
