package config

import (
	"testing"
	"time"
)

func TestParse_Defaults(t *testing.T) {
	cfg, err := Parse([]byte("name: test-agent\n"))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if cfg.Server.Port != 8000 {
		t.Errorf("default port = %d, want 8000", cfg.Server.Port)
	}
	if cfg.Registry.TTL.Duration() != 60*time.Second {
		t.Errorf("default ttl = %s, want 60s", cfg.Registry.TTL)
	}
	if cfg.Registry.SweepInterval.Duration() != 30*time.Second {
		t.Errorf("default sweep_interval = %s, want 30s", cfg.Registry.SweepInterval)
	}
	if cfg.Transport.RetryAttempts != 3 {
		t.Errorf("default retry_attempts = %d, want 3", cfg.Transport.RetryAttempts)
	}
	if cfg.Logging.Level != "info" || cfg.Logging.Format != "simple" {
		t.Errorf("default logging = %s/%s, want info/simple", cfg.Logging.Level, cfg.Logging.Format)
	}
	if cfg.Auth.Enabled() {
		t.Error("auth should be disabled by default")
	}
}

func TestParse_FullConfig(t *testing.T) {
	yaml := `
name: analyzer
server:
  host: 127.0.0.1
  port: 9001
registry:
  url: http://registry:9000
  ttl: 30s
  heartbeat_interval: 10s
transport:
  retry_attempts: 5
  retry_base_delay: 100ms
  timeout: 10s
  tls:
    ca_cert: /etc/protolink/ca.pem
    insecure_skip_verify: true
auth:
  jwks_url: https://issuer/.well-known/jwks.json
  issuer: https://issuer
  audience: protolink
logging:
  level: debug
  format: json
`
	cfg, err := Parse([]byte(yaml))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if cfg.Server.Address() != "127.0.0.1:9001" {
		t.Errorf("address = %s", cfg.Server.Address())
	}
	if cfg.Registry.TTL.Duration() != 30*time.Second {
		t.Errorf("ttl = %s, want 30s", cfg.Registry.TTL)
	}
	if cfg.Transport.RetryBaseDelay.Duration() != 100*time.Millisecond {
		t.Errorf("retry_base_delay = %s, want 100ms", cfg.Transport.RetryBaseDelay)
	}
	if !cfg.Auth.Enabled() {
		t.Error("auth should be enabled")
	}
	if !cfg.Transport.TLS.Enabled() {
		t.Error("tls should be enabled")
	}
	if cfg.Transport.TLS.CACert != "/etc/protolink/ca.pem" {
		t.Errorf("ca_cert = %s", cfg.Transport.TLS.CACert)
	}
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"bad port", "server:\n  port: 99999\n"},
		{"bad level", "logging:\n  level: loud\n"},
		{"bad format", "logging:\n  format: xml\n"},
		{"bad duration", "registry:\n  ttl: soon\n"},
		{"issuer without jwks", "auth:\n  issuer: https://issuer\n"},
		{"not yaml", ": : :\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse([]byte(tt.yaml)); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("PROTOLINK_TEST_HOST", "registry.internal")

	tests := []struct {
		input string
		want  string
	}{
		{"${PROTOLINK_TEST_HOST}", "registry.internal"},
		{"$PROTOLINK_TEST_HOST", "registry.internal"},
		{"${PROTOLINK_TEST_MISSING:-fallback}", "fallback"},
		{"${PROTOLINK_TEST_HOST:-fallback}", "registry.internal"},
		{"http://${PROTOLINK_TEST_HOST}:9000", "http://registry.internal:9000"},
		{"no vars here", "no vars here"},
	}

	for _, tt := range tests {
		if got := ExpandEnvVars(tt.input); got != tt.want {
			t.Errorf("ExpandEnvVars(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestParse_EnvExpansion(t *testing.T) {
	t.Setenv("PROTOLINK_TEST_PORT", "9005")

	cfg, err := Parse([]byte("server:\n  port: ${PROTOLINK_TEST_PORT}\n"))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if cfg.Server.Port != 9005 {
		t.Errorf("port = %d, want 9005", cfg.Server.Port)
	}
}
