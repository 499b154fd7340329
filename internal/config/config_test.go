package config

import (
	"os"
	"strings"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	os.Clearenv()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.App.Addr() != "0.0.0.0:8080" {
		t.Errorf("Addr = %q", cfg.App.Addr())
	}
	if cfg.Postgres.UsePostgres() {
		t.Error("expected in-memory storage without POSTGRES_DSN")
	}
	if cfg.Routing.ConfidenceThreshold != 0.7 {
		t.Errorf("ConfidenceThreshold = %v", cfg.Routing.ConfidenceThreshold)
	}
	if !cfg.Routing.AutoAssignOnCreate {
		t.Error("AutoAssignOnCreate should default to true")
	}
	if cfg.Routing.MaxAutoAttempts != 3 {
		t.Errorf("MaxAutoAttempts = %d", cfg.Routing.MaxAutoAttempts)
	}
	if cfg.Classification.Workers != 2 || cfg.Classification.QueueSize != 64 {
		t.Errorf("Classification = %+v", cfg.Classification)
	}
	if cfg.Classification.Timeout().Seconds() != 30 {
		t.Errorf("Timeout = %v", cfg.Classification.Timeout())
	}
	if cfg.Redis.ChannelPrefix != "tickets" || cfg.Redis.EventsEnabled {
		t.Errorf("Redis = %+v", cfg.Redis)
	}
	if cfg.Auth.Enabled {
		t.Error("auth should be disabled by default")
	}
}

func TestLoadOverrides(t *testing.T) {
	os.Clearenv()
	os.Setenv("POSTGRES_DSN", "postgres://localhost/router")
	os.Setenv("ROUTING_CONFIDENCE_THRESHOLD", "0.85")
	os.Setenv("ROUTING_AUTO_ASSIGN_ON_CREATE", "false")
	os.Setenv("CLASSIFY_WORKERS", "4")
	os.Setenv("AUTH_OPERATOR_EMAIL", "Ops@Example.com")
	defer os.Clearenv()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !cfg.Postgres.UsePostgres() {
		t.Error("expected postgres storage")
	}
	if cfg.Routing.ConfidenceThreshold != 0.85 {
		t.Errorf("ConfidenceThreshold = %v", cfg.Routing.ConfidenceThreshold)
	}
	if cfg.Routing.AutoAssignOnCreate {
		t.Error("AutoAssignOnCreate should be false")
	}
	if cfg.Classification.Workers != 4 {
		t.Errorf("Workers = %d", cfg.Classification.Workers)
	}
	if cfg.Auth.OperatorEmail != "ops@example.com" {
		t.Errorf("OperatorEmail = %q", cfg.Auth.OperatorEmail)
	}
}

func TestLoadRejectsMalformedValues(t *testing.T) {
	tests := []struct {
		key, value string
	}{
		{"CLASSIFY_WORKERS", "two"},
		{"ROUTING_CONFIDENCE_THRESHOLD", "high"},
		{"ROUTING_CONFIDENCE_THRESHOLD", "1.5"},
		{"AUTH_ENABLED", "maybe"},
		{"REDIS_DB", "x"},
	}
	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			os.Clearenv()
			os.Setenv(tt.key, tt.value)
			defer os.Clearenv()

			_, err := Load()
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.key) {
				t.Errorf("error %q does not name %s", err, tt.key)
			}
		})
	}
}
