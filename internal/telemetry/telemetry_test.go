package telemetry

import (
	"context"
	"testing"

	"github.com/fyrsmithlabs/dataverse-mcp/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

func TestNew_Disabled(t *testing.T) {
	tel, err := New(context.Background(), NewDefaultConfig())
	require.NoError(t, err)

	assert.NotNil(t, tel.Tracer("test"))
	assert.NotNil(t, tel.Meter("test"))
	assert.False(t, tel.IsEnabled())

	health := tel.Health()
	assert.True(t, health.Healthy)
	assert.False(t, health.Degraded)

	require.NoError(t, tel.Shutdown(context.Background()))
}

func TestNew_InvalidConfig(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Enabled = true
	cfg.Endpoint = ""

	tel, err := New(context.Background(), cfg)
	require.Error(t, err)
	assert.Nil(t, tel)
	assert.Contains(t, err.Error(), "invalid telemetry config")
}

func TestTelemetry_NilSafe(t *testing.T) {
	var tel *Telemetry
	assert.NotNil(t, tel.Tracer("x"))
	assert.NotNil(t, tel.Meter("x"))
	assert.NoError(t, tel.Shutdown(context.Background()))
	assert.False(t, tel.IsEnabled())
	assert.True(t, tel.Health().Degraded)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "disabled skips checks", mutate: func(c *Config) { c.Enabled = false; c.Endpoint = "" }},
		{name: "local insecure", mutate: func(c *Config) {}},
		{name: "ipv6 loopback", mutate: func(c *Config) { c.Endpoint = "[::1]:4317" }},
		{name: "http scheme local", mutate: func(c *Config) { c.Protocol = ProtocolHTTP; c.Endpoint = "http://127.0.0.1:4318" }},
		{name: "remote tls", mutate: func(c *Config) { c.Endpoint = "otel.example.com:4317"; c.Insecure = false }},
		{name: "remote insecure", mutate: func(c *Config) { c.Endpoint = "otel.example.com:4317" }, wantErr: "insecure connections"},
		{name: "bad protocol", mutate: func(c *Config) { c.Protocol = "udp" }, wantErr: "protocol"},
		{name: "bad rate", mutate: func(c *Config) { c.Sampling.Rate = 2 }, wantErr: "sampling.rate"},
		{name: "no service", mutate: func(c *Config) { c.ServiceName = "" }, wantErr: "service_name"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewDefaultConfig()
			cfg.Enabled = true
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestFromSettings(t *testing.T) {
	cfg := FromSettings(config.TelemetryConfig{
		Enabled:  true,
		Endpoint: "collector:4318",
		Protocol: ProtocolHTTP,
	}, "1.2.3")

	assert.True(t, cfg.Enabled)
	assert.Equal(t, "collector:4318", cfg.Endpoint)
	assert.Equal(t, ProtocolHTTP, cfg.Protocol)
	assert.Equal(t, "dataverse-mcp", cfg.ServiceName)
	assert.Equal(t, "1.2.3", cfg.ServiceVersion)
	assert.False(t, cfg.Insecure)
}

func TestTestTelemetry_RecordsGlobals(t *testing.T) {
	tt := NewTestTelemetry()
	defer tt.Restore()

	ctx := context.Background()
	_, span := otel.Tracer("test").Start(ctx, "dataverse.GET")
	span.SetAttributes(attribute.Int("http.status_code", 200))
	span.End()

	counter, err := otel.Meter("test").Int64Counter("calls")
	require.NoError(t, err)
	counter.Add(ctx, 2, metric.WithAttributes(attribute.String("tool", "a")))
	counter.Add(ctx, 3, metric.WithAttributes(attribute.String("tool", "b")))

	tt.AssertSpanExists(t, "dataverse.GET")
	tt.AssertSpanAttribute(t, "dataverse.GET", "http.status_code", int64(200))
	assert.Equal(t, int64(2), tt.CounterValue(t, "calls", attribute.String("tool", "a")))
	assert.Equal(t, int64(5), tt.CounterValue(t, "calls"))
	assert.Equal(t, int64(-1), tt.CounterValue(t, "missing"))
}

func TestNewDegradedTelemetry(t *testing.T) {
	tel := NewDegradedTelemetry("meter provider: boom", "tracer provider: boom")

	health := tel.Health()
	assert.True(t, health.Healthy)
	assert.True(t, health.Degraded)
	assert.Equal(t, []string{"meter provider: boom", "tracer provider: boom"}, health.Problems)
	assert.False(t, tel.IsEnabled())
	require.NoError(t, tel.Shutdown(context.Background()))
}
