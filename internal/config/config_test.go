package config

import (
	"strings"
	"testing"
)

func TestValidate(t *testing.T) {
	cases := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"valid", Config{Endpoint: ":9090", MaxNameValueLen: 255}, false},
		{"empty endpoint", Config{Endpoint: "  ", MaxNameValueLen: 255}, true},
		{"zero max len", Config{Endpoint: ":9090", MaxNameValueLen: 0}, true},
		{"max len too large", Config{Endpoint: ":9090", MaxNameValueLen: 256}, true},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			err := c.cfg.Validate()
			if c.wantErr && err == nil {
				t.Fatal("Validate: got nil error, want error")
			}
			if !c.wantErr && err != nil {
				t.Fatalf("Validate: got %v, want nil", err)
			}
		})
	}
}

func TestStringRendersDisabledMetrics(t *testing.T) {
	c := Config{Endpoint: ":9090", LogLevel: "info", MaxNameValueLen: 255}
	out := c.String()
	if out == "" {
		t.Fatal("String returned empty output")
	}
	if !strings.Contains(out, "(disabled)") {
		t.Fatalf("String output missing (disabled) for empty metrics endpoint, got:\n%s", out)
	}
}
