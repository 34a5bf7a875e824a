package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	yamlContent := `
app:
  name: "autoservice"
database:
  path: "test.db"
booking:
  daily_capacity: 3
  closed_weekday: "monday"
api:
  enabled: true
  auth:
    api_keys:
      - key: "${TEST_API_KEY}"
        extra: "extra-1"
        name: "portal"
`
	if err := os.WriteFile(configPath, []byte(yamlContent), 0o644); err != nil {
		t.Fatalf("failed to write temp config: %v", err)
	}

	// Подстановка переменных окружения в YAML
	t.Setenv("TEST_API_KEY", "key-from-env")

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Database.Path != "test.db" {
		t.Errorf("expected database path test.db, got %s", cfg.Database.Path)
	}
	if cfg.Booking.DailyCapacity != 3 {
		t.Errorf("expected daily capacity 3, got %d", cfg.Booking.DailyCapacity)
	}
	if len(cfg.API.Auth.APIKeys) != 1 || cfg.API.Auth.APIKeys[0].Key != "key-from-env" {
		t.Errorf("expected api key expanded from environment, got %+v", cfg.API.Auth.APIKeys)
	}
}

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{
			name: "valid config",
			cfg: Config{
				Database: DatabaseConfig{Path: "data.db"},
			},
			wantErr: false,
		},
		{
			name:    "missing database path",
			cfg:     Config{},
			wantErr: true,
		},
		{
			name: "push enabled without credentials",
			cfg: Config{
				Database: DatabaseConfig{Path: "data.db"},
				Push:     PushConfig{Enabled: true, BaseURL: "https://push.example.com"},
			},
			wantErr: true,
		},
		{
			name: "telegram enabled without token",
			cfg: Config{
				Database: DatabaseConfig{Path: "data.db"},
				Telegram: TelegramConfig{Enabled: true},
			},
			wantErr: true,
		},
		{
			name: "unknown closed weekday",
			cfg: Config{
				Database: DatabaseConfig{Path: "data.db"},
				Booking:  BookingConfig{ClosedWeekday: "someday"},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := &Config{}
	cfg.applyDefaults()

	if cfg.API.HTTP.Port != 8080 {
		t.Errorf("expected default HTTP port 8080, got %d", cfg.API.HTTP.Port)
	}
	if cfg.Booking.DailyCapacity != 5 {
		t.Errorf("expected default daily capacity 5, got %d", cfg.Booking.DailyCapacity)
	}
	if cfg.Booking.MaxBookingDays != 90 {
		t.Errorf("expected default booking horizon 90, got %d", cfg.Booking.MaxBookingDays)
	}
	if cfg.API.Auth.HeaderAPIKey != "x-api-key" {
		t.Errorf("expected default api key header x-api-key, got %s", cfg.API.Auth.HeaderAPIKey)
	}
	if cfg.Booking.RateLimitAttempts != 20 {
		t.Errorf("expected default rate limit attempts 20, got %d", cfg.Booking.RateLimitAttempts)
	}
	if cfg.Booking.RateLimitWindow != 60 {
		t.Errorf("expected default rate limit window 60, got %d", cfg.Booking.RateLimitWindow)
	}
}

func TestValidateServices(t *testing.T) {
	tests := []struct {
		name     string
		services []ServiceOffering
		wantErr  bool
	}{
		{
			name: "valid catalog",
			services: []ServiceOffering{
				{Name: "Замена масла", IsActive: true},
				{Name: "Шиномонтаж", IsActive: true},
			},
			wantErr: false,
		},
		{
			name: "duplicate name",
			services: []ServiceOffering{
				{Name: "Замена масла"},
				{Name: "Замена масла"},
			},
			wantErr: true,
		},
		{
			name:     "empty name",
			services: []ServiceOffering{{Name: "  "}},
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateServices(tt.services)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateServices() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestParseWeekday(t *testing.T) {
	day, err := ParseWeekday("")
	if err != nil || day != time.Sunday {
		t.Errorf("empty weekday must default to Sunday, got %v, %v", day, err)
	}

	day, err = ParseWeekday("Monday")
	if err != nil || day != time.Monday {
		t.Errorf("expected Monday, got %v, %v", day, err)
	}

	if _, err := ParseWeekday("someday"); err == nil {
		t.Error("expected error for unknown weekday")
	}
}
