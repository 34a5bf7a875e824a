package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"autoservice/internal/models"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	App        AppConfig          `yaml:"app"`
	Database   DatabaseConfig     `yaml:"database"`
	Redis      RedisConfig        `yaml:"redis"`
	Backup     BackupConfig       `yaml:"backup"`
	Monitoring MonitoringConfig   `yaml:"monitoring"`
	Logging    LoggingConfig      `yaml:"logging"`
	API        APIConfig          `yaml:"api"`
	Push       PushConfig         `yaml:"push"`
	Telegram   TelegramConfig     `yaml:"telegram"`
	Booking    BookingConfig      `yaml:"booking"`
	Services   []ServiceOffering  `yaml:"services"`
	Exports    ExportConfig       `yaml:"exports"`
}

// ServiceOffering одна услуга из каталога мастерской
type ServiceOffering struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	IsActive    bool   `yaml:"is_active"`
}

type BookingConfig struct {
	DailyCapacity     int64  `yaml:"daily_capacity"`
	ClosedWeekday     string `yaml:"closed_weekday"`
	MaxBookingDays    int    `yaml:"max_booking_days"`
	MinBookingAdvance int    `yaml:"min_booking_advance"`
	StateTTLSeconds   int    `yaml:"state_ttl_seconds"`
	RateLimitAttempts int    `yaml:"rate_limit_attempts"`
	RateLimitWindow   int    `yaml:"rate_limit_window"` // секунды
}

type APIConfig struct {
	Enabled   bool               `yaml:"enabled"`
	HTTP      APIHTTPConfig      `yaml:"http"`
	Auth      APIAuthConfig      `yaml:"auth"`
	RateLimit APIRateLimitConfig `yaml:"rate_limit"`
}

type APIHTTPConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

type APIAuthConfig struct {
	Enabled      bool           `yaml:"enabled"`
	HeaderAPIKey string         `yaml:"header_api_key"`
	HeaderExtra  string         `yaml:"header_extra"`
	APIKeys      []APIClientKey `yaml:"api_keys"`
}

type APIClientKey struct {
	Key         string   `yaml:"key"`
	Extra       string   `yaml:"extra"`
	Name        string   `yaml:"name"`
	Permissions []string `yaml:"permissions"`
}

type APIRateLimitConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

// PushConfig внешний push-провайдер. Учетные данные приходят только через
// переменные окружения, никогда литералами в конфиге.
type PushConfig struct {
	Enabled      bool   `yaml:"enabled"`
	BaseURL      string `yaml:"base_url"`
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
}

type TelegramConfig struct {
	Enabled   bool   `yaml:"enabled"`
	BotToken  string `yaml:"bot_token"`
	StaffChat int64  `yaml:"staff_chat"`
}

type ExportConfig struct {
	Path string `yaml:"path"`
}

type AppConfig struct {
	Name        string `yaml:"name"`
	Environment string `yaml:"environment"`
	Version     string `yaml:"version"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type RedisConfig struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
}

type BackupConfig struct {
	Enabled       bool   `yaml:"enabled"`
	Schedule      string `yaml:"schedule"`
	RetentionDays int    `yaml:"retention_days"`
	StoragePath   string `yaml:"storage_path"`
}

type MonitoringConfig struct {
	PrometheusEnabled bool `yaml:"prometheus_enabled"`
	PrometheusPort    int  `yaml:"prometheus_port"`
}

type LoggingConfig struct {
	Level    string `yaml:"level"`
	Format   string `yaml:"format"`
	Output   string `yaml:"output"`
	FilePath string `yaml:"file_path"`
}

func Load(configPath string) (*Config, error) {
	// .env не обязателен: в проде переменные приходят из окружения
	_ = godotenv.Load(".env")

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	// Предварительная замена переменных окружения в YAML
	expandedData := []byte(os.ExpandEnv(string(data)))

	var config Config
	if err := yaml.Unmarshal(expandedData, &config); err != nil {
		return nil, err
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return errors.New("database path is required")
	}

	if c.Push.Enabled {
		if c.Push.BaseURL == "" {
			return errors.New("push base_url is required when push is enabled")
		}
		if c.Push.ClientID == "" || c.Push.ClientSecret == "" {
			return errors.New("push client_id and client_secret must come from environment")
		}
	}

	if c.Telegram.Enabled && c.Telegram.BotToken == "" {
		return errors.New("telegram bot token is required when telegram is enabled")
	}

	if _, err := ParseWeekday(c.Booking.ClosedWeekday); err != nil {
		return err
	}

	return ValidateServices(c.Services)
}

// ValidateServices проверяет каталог услуг на дубликаты
func ValidateServices(services []ServiceOffering) error {
	seen := make(map[string]bool)
	for _, svc := range services {
		name := strings.TrimSpace(svc.Name)
		if name == "" {
			return errors.New("service with empty name in catalog")
		}
		if seen[name] {
			return fmt.Errorf("duplicate service in catalog: %s", name)
		}
		seen[name] = true
	}
	return nil
}

// ParseWeekday разбирает название дня недели; пустая строка — воскресенье
func ParseWeekday(name string) (time.Weekday, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "sunday":
		return time.Sunday, nil
	case "monday":
		return time.Monday, nil
	case "tuesday":
		return time.Tuesday, nil
	case "wednesday":
		return time.Wednesday, nil
	case "thursday":
		return time.Thursday, nil
	case "friday":
		return time.Friday, nil
	case "saturday":
		return time.Saturday, nil
	}
	return time.Sunday, fmt.Errorf("unknown weekday: %s", name)
}

func (c *Config) applyDefaults() {
	if c.API.HTTP.Port == 0 {
		c.API.HTTP.Port = 8080
	}
	if c.Monitoring.PrometheusEnabled && c.Monitoring.PrometheusPort == 0 {
		c.Monitoring.PrometheusPort = 9090
	}
	// auth enabled by default when API is enabled
	if !c.API.Auth.Enabled {
		c.API.Auth.Enabled = true
	}
	if !c.API.HTTP.Enabled && c.API.Enabled {
		c.API.HTTP.Enabled = true
	}
	if c.API.Auth.HeaderAPIKey == "" {
		c.API.Auth.HeaderAPIKey = "x-api-key"
	}
	if c.API.Auth.HeaderExtra == "" {
		c.API.Auth.HeaderExtra = "x-api-extra"
	}

	if c.Booking.DailyCapacity == 0 {
		c.Booking.DailyCapacity = models.DefaultDailyCapacity
	}
	if c.Booking.MaxBookingDays == 0 {
		c.Booking.MaxBookingDays = 90
	}
	if c.Booking.StateTTLSeconds == 0 {
		c.Booking.StateTTLSeconds = models.DefaultStateTTL
	}
	if c.Booking.RateLimitAttempts == 0 {
		c.Booking.RateLimitAttempts = models.RateLimitAttempts
	}
	if c.Booking.RateLimitWindow == 0 {
		c.Booking.RateLimitWindow = models.RateLimitWindow
	}
}
