package config

import (
	"os"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	os.Clearenv()
	os.Setenv("HTTP_ADDR", ":8080")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg == nil {
		t.Fatal("Load returned nil config")
	}
	if cfg.HTTPAddr != ":8080" {
		t.Errorf("HTTPAddr = %q, want %q", cfg.HTTPAddr, ":8080")
	}
	if cfg.JWTIssuer != "testhub-auth" {
		t.Errorf("JWTIssuer = %q, want %q", cfg.JWTIssuer, "testhub-auth")
	}
	if cfg.JWTAudience != "testhub-api" {
		t.Errorf("JWTAudience = %q, want %q", cfg.JWTAudience, "testhub-api")
	}
	if cfg.JWTAccessTTL != "15m" {
		t.Errorf("JWTAccessTTL = %q, want %q", cfg.JWTAccessTTL, "15m")
	}
	if cfg.JWTRefreshTTL != "168h" {
		t.Errorf("JWTRefreshTTL = %q, want %q", cfg.JWTRefreshTTL, "168h")
	}
	if cfg.Argon2Memory != 65536 {
		t.Errorf("Argon2Memory = %d, want 65536", cfg.Argon2Memory)
	}
	if cfg.Argon2Iterations != 3 {
		t.Errorf("Argon2Iterations = %d, want 3", cfg.Argon2Iterations)
	}
	if cfg.Argon2Parallelism != 2 {
		t.Errorf("Argon2Parallelism = %d, want 2", cfg.Argon2Parallelism)
	}
	if cfg.RedisURL != "redis://localhost:6379/0" {
		t.Errorf("RedisURL = %q, want default", cfg.RedisURL)
	}
}

func TestLoad_EnvVarOverride(t *testing.T) {
	os.Clearenv()
	os.Setenv("HTTP_ADDR", ":9090")
	os.Setenv("JWT_ISSUER", "custom-issuer")
	os.Setenv("ARGON2_ITERATIONS", "4")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTPAddr != ":9090" {
		t.Errorf("HTTPAddr = %q, want %q", cfg.HTTPAddr, ":9090")
	}
	if cfg.JWTIssuer != "custom-issuer" {
		t.Errorf("JWTIssuer = %q, want %q", cfg.JWTIssuer, "custom-issuer")
	}
	if cfg.Argon2Iterations != 4 {
		t.Errorf("Argon2Iterations = %d, want 4", cfg.Argon2Iterations)
	}
}

func TestLoad_ZeroArgonParamsRejected(t *testing.T) {
	os.Clearenv()
	os.Setenv("HTTP_ADDR", ":8080")
	os.Setenv("ARGON2_MEMORY_KIB", "0")

	cfg, err := Load()
	if err == nil {
		t.Fatal("Load should reject zero argon2 memory")
	}
	if cfg != nil {
		t.Error("Load should return nil config on error")
	}
}

func TestAccessTTL(t *testing.T) {
	cases := []struct {
		name  string
		value string
		want  time.Duration
	}{
		{"valid", "30m", 30 * time.Minute},
		{"invalid", "invalid", 15 * time.Minute},
		{"zero", "0", 15 * time.Minute},
		{"negative", "-5m", 15 * time.Minute},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			os.Clearenv()
			os.Setenv("HTTP_ADDR", ":8080")
			os.Setenv("JWT_ACCESS_TTL", tc.value)

			cfg, err := Load()
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			if got := cfg.AccessTTL(); got != tc.want {
				t.Errorf("AccessTTL = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestRefreshTTL(t *testing.T) {
	cases := []struct {
		name  string
		value string
		want  time.Duration
	}{
		{"valid", "336h", 14 * 24 * time.Hour},
		{"invalid", "invalid", 168 * time.Hour},
		{"negative", "-1h", 168 * time.Hour},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			os.Clearenv()
			os.Setenv("HTTP_ADDR", ":8080")
			os.Setenv("JWT_REFRESH_TTL", tc.value)

			cfg, err := Load()
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			if got := cfg.RefreshTTL(); got != tc.want {
				t.Errorf("RefreshTTL = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestTimeout(t *testing.T) {
	os.Clearenv()
	os.Setenv("HTTP_ADDR", ":8080")
	os.Setenv("REQUEST_TIMEOUT", "10s")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := cfg.Timeout(); got != 10*time.Second {
		t.Errorf("Timeout = %v, want 10s", got)
	}
}
