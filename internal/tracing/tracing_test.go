package tracing

import (
	"context"
	"testing"

	"github.com/nextlevelbuilder/tgwatch/internal/config"
)

func TestSetup(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.TelemetryConfig
		wantErr bool
	}{
		{"disabled", config.TelemetryConfig{}, false},
		{"no endpoint", config.TelemetryConfig{Enabled: true}, true},
		{"bad protocol", config.TelemetryConfig{Enabled: true, Endpoint: "localhost:4317", Protocol: "udp"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			shutdown, err := Setup(context.Background(), tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if shutdown == nil {
				t.Fatal("shutdown func is nil")
			}
			if err := shutdown(context.Background()); err != nil {
				t.Errorf("shutdown: %v", err)
			}
		})
	}
}
