// config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultUserAgent is sent with every page request unless overridden.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"

type SMTPConfig struct {
	Server    string `yaml:"server" env:"SMTP_SERVER"`
	Port      int    `yaml:"port" env:"SMTP_PORT"`
	Username  string `yaml:"username" env:"EMAIL_USERNAME"`
	Password  string `yaml:"password" env:"EMAIL_PASSWORD"`
	Recipient string `yaml:"recipient" env:"EMAIL_RECIPIENT"`
	From      string `yaml:"from" env:"EMAIL_FROM"` // Defaults to Username
	Subject   string `yaml:"subject" env:"EMAIL_SUBJECT"`
	Body      string `yaml:"body" env:"EMAIL_BODY"`
}

// Complete reports whether enough is configured to attempt a send.
func (c SMTPConfig) Complete() bool {
	return c.Server != "" && c.Port > 0 && c.Username != "" && c.Password != "" && c.Recipient != ""
}

type ScheduleConfig struct {
	IntervalMinutes int    `yaml:"interval_minutes" env:"SCHEDULE_INTERVAL"`
	StartTime       string `yaml:"start_time" env:"SCHEDULE_START_TIME"` // HH:MM, 24-hour
	RunOnWeekends   *bool  `yaml:"run_on_weekends" env:"SCHEDULE_RUN_WEEKENDS"`
	Timezone        string `yaml:"timezone" env:"SCHEDULE_TIMEZONE"`
}

// Weekends reports the effective run-on-weekends flag (default true).
func (c ScheduleConfig) Weekends() bool {
	return c.RunOnWeekends == nil || *c.RunOnWeekends
}

type ExcelConfig struct {
	OutputFile        string `yaml:"output_file" env:"EXCEL_OUTPUT_FILE"`
	SheetName         string `yaml:"sheet_name" env:"EXCEL_SHEET_NAME"`
	OutputDir         string `yaml:"output_dir" env:"EXCEL_OUTPUT_DIR"`
	UseTimestamp      bool   `yaml:"use_timestamp" env:"EXCEL_USE_TIMESTAMP"`
	IncludeProvenance *bool  `yaml:"include_provenance" env:"EXCEL_INCLUDE_PROVENANCE"`
	FallbackFile      string `yaml:"fallback_file" env:"EXCEL_FALLBACK_FILE"`
}

// Provenance reports whether the diagnostic columns are written (default true).
func (c ExcelConfig) Provenance() bool {
	return c.IncludeProvenance == nil || *c.IncludeProvenance
}

type CSVConfig struct {
	Enabled bool   `yaml:"enabled" env:"CSV_ENABLED"`
	Path    string `yaml:"path" env:"CSV_PATH"`
}

type LoggingConfig struct {
	File  string `yaml:"file" env:"LOG_FILE"`
	Level string `yaml:"level" env:"LOG_LEVEL"`
}

type ScraperConfig struct {
	SitesFile      string `yaml:"sites_file" env:"SITES_FILE"`
	MaxRetries     int    `yaml:"max_retries" env:"MAX_RETRIES"`
	TimeoutSeconds int    `yaml:"timeout_seconds" env:"REQUEST_TIMEOUT"`
	UserAgent      string `yaml:"user_agent" env:"USER_AGENT"`
	Concurrency    int    `yaml:"concurrency" env:"SCRAPER_CONCURRENCY"`
}

// Timeout returns the per-request timeout as a duration.
func (c ScraperConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

type DatabaseConfig struct {
	Enabled  bool   `yaml:"enabled" env:"DB_ENABLED"`
	Host     string `yaml:"host" env:"DB_HOST"`
	Port     string `yaml:"port" env:"DB_PORT"`
	User     string `yaml:"user" env:"DB_USER"`
	Password string `yaml:"password" env:"DB_PASSWORD"`
	DBName   string `yaml:"dbname" env:"DB_NAME"`
}

type ServerConfig struct {
	Enabled bool   `yaml:"enabled" env:"SERVER_ENABLED"`
	Port    string `yaml:"port" env:"SERVER_PORT"`
}

type Config struct {
	SMTP     SMTPConfig     `yaml:"smtp"`
	Schedule ScheduleConfig `yaml:"schedule"`
	Excel    ExcelConfig    `yaml:"excel"`
	CSV      CSVConfig      `yaml:"csv"`
	Logging  LoggingConfig  `yaml:"logging"`
	Scraper  ScraperConfig  `yaml:"scraper"`
	Database DatabaseConfig `yaml:"database"`
	Server   ServerConfig   `yaml:"server"`
}

// Load builds a Config from an optional YAML file, .env files and environment
// variables, in increasing order of precedence, then applies defaults and
// validates. An empty path or a missing file yields a config built from the
// environment alone.
func Load(path string) (*Config, error) {
	if err := loadEnvFiles(); err != nil {
		return nil, err
	}

	cfg := &Config{}
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to unmarshal config %s: %w", path, err)
			}
		case errors.Is(err, os.ErrNotExist):
			// env-only configuration
		default:
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(reflect.ValueOf(cfg).Elem())
	cfg.SetDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// SetDefaults fills zero values with the documented defaults.
func (c *Config) SetDefaults() {
	if c.SMTP.Port == 0 {
		c.SMTP.Port = 587
	}
	if c.SMTP.From == "" {
		c.SMTP.From = c.SMTP.Username
	}
	if c.Schedule.IntervalMinutes == 0 {
		c.Schedule.IntervalMinutes = 60
	}
	if c.Schedule.StartTime == "" {
		c.Schedule.StartTime = "08:00"
	}
	if c.Excel.OutputFile == "" {
		c.Excel.OutputFile = "scraped_data.xlsx"
	}
	if c.Excel.SheetName == "" {
		c.Excel.SheetName = "Projects"
	}
	if c.Excel.FallbackFile == "" {
		c.Excel.FallbackFile = "scraped_data_fallback.xlsx"
	}
	if c.CSV.Path == "" {
		c.CSV.Path = "data/scraped_data.csv"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Scraper.SitesFile == "" {
		c.Scraper.SitesFile = "config/websites.json"
	}
	if c.Scraper.MaxRetries == 0 {
		c.Scraper.MaxRetries = 3
	}
	if c.Scraper.TimeoutSeconds == 0 {
		c.Scraper.TimeoutSeconds = 10
	}
	if c.Scraper.UserAgent == "" {
		c.Scraper.UserAgent = DefaultUserAgent
	}
	if c.Scraper.Concurrency == 0 {
		c.Scraper.Concurrency = 1
	}
	if c.Database.Port == "" {
		c.Database.Port = "3306"
	}
	if c.Server.Port == "" {
		c.Server.Port = "8080"
	}
}

// Validate rejects values no component can work with. Missing SMTP
// credentials are not an error here: they only disable the email step.
func (c *Config) Validate() error {
	if c.Scraper.MaxRetries < 1 {
		return fmt.Errorf("scraper.max_retries must be at least 1, got %d", c.Scraper.MaxRetries)
	}
	if c.Scraper.TimeoutSeconds < 1 {
		return fmt.Errorf("scraper.timeout_seconds must be at least 1, got %d", c.Scraper.TimeoutSeconds)
	}
	if c.Scraper.Concurrency < 1 {
		return fmt.Errorf("scraper.concurrency must be at least 1, got %d", c.Scraper.Concurrency)
	}
	if c.Schedule.IntervalMinutes < 1 {
		return fmt.Errorf("schedule.interval_minutes must be at least 1, got %d", c.Schedule.IntervalMinutes)
	}
	if _, err := time.Parse("15:04", c.Schedule.StartTime); err != nil {
		return fmt.Errorf("schedule.start_time %q is not HH:MM: %w", c.Schedule.StartTime, err)
	}
	if c.SMTP.Port < 1 || c.SMTP.Port > 65535 {
		return fmt.Errorf("smtp.port must be between 1 and 65535, got %d", c.SMTP.Port)
	}
	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "warning", "error", "fatal":
	default:
		return fmt.Errorf("logging.level must be one of debug, info, warn, error, fatal, got %q", c.Logging.Level)
	}
	if c.Database.Enabled && (c.Database.Host == "" || c.Database.DBName == "") {
		return errors.New("database.host and database.dbname are required when database.enabled is true")
	}
	return nil
}

// loadEnvFiles loads ENV_FILE if set, otherwise .env.local then .env.
// godotenv never overrides variables already present in the environment.
func loadEnvFiles() error {
	if envFile := os.Getenv("ENV_FILE"); envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("load env file %s: %w", envFile, err)
		}
		return nil
	}
	for _, f := range []string{".env.local", ".env"} {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

// applyEnvOverrides walks the struct and sets every field carrying an `env`
// tag whose variable is non-empty.
func applyEnvOverrides(v reflect.Value) {
	t := v.Type()
	for i := range v.NumField() {
		field := v.Field(i)
		if !field.CanSet() {
			continue
		}
		if field.Kind() == reflect.Struct {
			applyEnvOverrides(field)
			continue
		}
		name := t.Field(i).Tag.Get("env")
		if name == "" {
			continue
		}
		val, ok := os.LookupEnv(name)
		if !ok || val == "" {
			continue
		}
		setFromString(field, val)
	}
}

func setFromString(field reflect.Value, val string) {
	switch field.Kind() {
	case reflect.String:
		field.SetString(val)
	case reflect.Int:
		if n, err := strconv.Atoi(strings.TrimSpace(val)); err == nil {
			field.SetInt(int64(n))
		}
	case reflect.Bool:
		field.SetBool(parseBool(val))
	case reflect.Ptr:
		if field.Type().Elem().Kind() == reflect.Bool {
			b := parseBool(val)
			field.Set(reflect.ValueOf(&b))
		}
	}
}

func parseBool(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	return s == "true" || s == "1" || s == "yes"
}
