package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	defaultTimezone   = "UTC"
	configPathEnv     = "TNS_DIGEST_CONFIG"
	tnsAPIKeyEnv      = "TNS_API_KEY"
	tnsBotIDEnv       = "TNS_BOT_ID"
	tnsBotNameEnv     = "TNS_BOT_NAME"
	databaseDSNEnv    = "DATABASE_DSN"
	s3BucketEnv       = "REPORT_S3_BUCKET"
	telegramTokenEnv  = "TELEGRAM_BOT_TOKEN"
	telegramChatIDEnv = "TELEGRAM_CHAT_ID"
	logLevelEnv       = "LOG_LEVEL"
)

// Known NED result formats.
const (
	FormatVOTable = "votable"
	FormatHTML    = "html"
)

// Config holds high-level settings required across the application.
type Config struct {
	Logging       LoggingConfig      `yaml:"logging"`
	TNS           TNSConfig          `yaml:"tns"`
	NED           NEDConfig          `yaml:"ned"`
	Cosmology     CosmologyConfig    `yaml:"cosmology"`
	Pipeline      PipelineConfig     `yaml:"pipeline"`
	Report        ReportConfig       `yaml:"report"`
	Database      DatabaseConfig     `yaml:"database"`
	Publish       PublishConfig      `yaml:"publish"`
	Notifications NotificationConfig `yaml:"notifications"`
	Scheduler     SchedulerConfig    `yaml:"scheduler"`
}

// LoggingConfig selects slog level and handler format (text or json).
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// TNSConfig describes how to reach the Transient Name Server API.
type TNSConfig struct {
	BaseURL           string        `yaml:"baseUrl"`
	APIKey            string        `yaml:"apiKey"`
	BotID             string        `yaml:"botId"`
	BotName           string        `yaml:"botName"`
	Timeout           time.Duration `yaml:"timeout"`
	RequestsPerMinute int           `yaml:"requestsPerMinute"`
}

// NEDConfig describes the galaxy catalog cone search.
type NEDConfig struct {
	BaseURL      string        `yaml:"baseUrl"`
	Format       string        `yaml:"format"`
	RadiusArcmin float64       `yaml:"radiusArcmin"`
	Timeout      time.Duration `yaml:"timeout"`
}

// CosmologyConfig fixes the flat ΛCDM parameters.
type CosmologyConfig struct {
	H0  float64 `yaml:"h0"`
	Om0 float64 `yaml:"om0"`
}

// PipelineConfig tunes enrichment.
type PipelineConfig struct {
	Workers int `yaml:"workers"`
}

// ReportConfig says where CSV files land.
type ReportConfig struct {
	OutputDir string `yaml:"outputDir"`
}

// DatabaseConfig describes the optional Postgres archive.
type DatabaseConfig struct {
	DSN string `yaml:"dsn"`
}

// PublishConfig groups report upload targets.
type PublishConfig struct {
	S3 S3Config `yaml:"s3"`
}

// S3Config wires the optional S3 upload; an empty bucket disables it.
type S3Config struct {
	Bucket   string `yaml:"bucket"`
	Region   string `yaml:"region"`
	Endpoint string `yaml:"endpoint"`
	Prefix   string `yaml:"prefix"`
}

// NotificationConfig encapsulates outbound channels (Telegram, etc.).
type NotificationConfig struct {
	Telegram TelegramConfig `yaml:"telegram"`
}

// TelegramConfig wires all data required to send messages.
type TelegramConfig struct {
	BotToken string `yaml:"botToken"`
	ChatID   string `yaml:"chatId"`
}

// SchedulerConfig defines how often the schedule command runs the pipeline.
type SchedulerConfig struct {
	Interval time.Duration  `yaml:"interval"`
	Timezone string         `yaml:"timezone"`
	location *time.Location `yaml:"-"`
}

// Location resolves the scheduler timezone string to a time.Location.
func (s SchedulerConfig) Location() *time.Location {
	if s.location != nil {
		return s.location
	}
	loc, _ := time.LoadLocation(defaultTimezone)
	return loc
}

// LoadEnvFiles loads .env style files into the process environment; missing files are skipped.
func LoadEnvFiles(paths ...string) {
	for _, path := range paths {
		if path == "" {
			continue
		}
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			log.Printf("config: cannot load env file %s: %v", path, err)
		}
	}
}

// Load reads YAML configuration (if present) and applies environment overrides.
// An explicit path wins over TNS_DIGEST_CONFIG.
func Load(path string) (Config, error) {
	cfg := defaultConfig()

	if path == "" {
		path = os.Getenv(configPathEnv)
	}
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
		// Decoding on top of the defaults keeps explicit zero values such as requestsPerMinute: 0.
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg.applyEnvOverrides()
	cfg.bindTimezone()

	return cfg, nil
}

// Validate checks settings that would otherwise fail deep inside a run.
func (c Config) Validate() error {
	if c.TNS.APIKey == "" {
		return fmt.Errorf("tns api key is not set (use %s or tns.apiKey)", tnsAPIKeyEnv)
	}
	if c.TNS.BotID != "" {
		if _, err := strconv.ParseUint(c.TNS.BotID, 10, 64); err != nil {
			return fmt.Errorf("tns bot id must be numeric, got %q", c.TNS.BotID)
		}
	}
	if c.TNS.BaseURL == "" {
		return fmt.Errorf("tns base url is empty")
	}
	if c.NED.BaseURL == "" {
		return fmt.Errorf("ned base url is empty")
	}
	if c.NED.Format != FormatVOTable && c.NED.Format != FormatHTML {
		return fmt.Errorf("unknown ned format %q", c.NED.Format)
	}
	if !(c.NED.RadiusArcmin > 0) {
		return fmt.Errorf("ned search radius must be positive, got %v", c.NED.RadiusArcmin)
	}
	if !(c.Cosmology.H0 > 0) {
		return fmt.Errorf("cosmology h0 must be positive, got %v", c.Cosmology.H0)
	}
	if c.Cosmology.Om0 < 0 || c.Cosmology.Om0 > 1 {
		return fmt.Errorf("cosmology om0 must be within [0, 1], got %v", c.Cosmology.Om0)
	}
	if c.Pipeline.Workers < 1 {
		return fmt.Errorf("pipeline workers must be at least 1, got %d", c.Pipeline.Workers)
	}
	if c.Scheduler.Interval <= 0 {
		return fmt.Errorf("scheduler interval must be positive, got %s", c.Scheduler.Interval)
	}
	return nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(tnsAPIKeyEnv); v != "" {
		c.TNS.APIKey = v
	}

	if v := os.Getenv(tnsBotIDEnv); v != "" {
		c.TNS.BotID = v
	}

	if v := os.Getenv(tnsBotNameEnv); v != "" {
		c.TNS.BotName = v
	}

	if v := os.Getenv(databaseDSNEnv); v != "" {
		c.Database.DSN = v
	}

	if v := os.Getenv(s3BucketEnv); v != "" {
		c.Publish.S3.Bucket = v
	}

	if v := os.Getenv(telegramTokenEnv); v != "" {
		c.Notifications.Telegram.BotToken = v
	}

	if v := os.Getenv(telegramChatIDEnv); v != "" {
		c.Notifications.Telegram.ChatID = v
	}

	if v := os.Getenv(logLevelEnv); v != "" {
		c.Logging.Level = v
	}
}

func (c *Config) bindTimezone() {
	tz := c.Scheduler.Timezone
	if tz == "" {
		tz = defaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		log.Printf("config: unknown timezone %s, reverting to %s", tz, defaultTimezone)
		loc, _ = time.LoadLocation(defaultTimezone)
	}
	c.Scheduler.location = loc
}

func defaultConfig() Config {
	tz, _ := time.LoadLocation(defaultTimezone)
	return Config{
		Logging: LoggingConfig{Level: "info", Format: "text"},
		TNS: TNSConfig{
			BaseURL:           "https://www.wis-tns.org/api/get",
			Timeout:           60 * time.Second,
			RequestsPerMinute: 25,
		},
		NED: NEDConfig{
			BaseURL:      "https://ned.ipac.caltech.edu/cgi-bin/objsearch",
			Format:       FormatVOTable,
			RadiusArcmin: 1.0,
			Timeout:      60 * time.Second,
		},
		Cosmology: CosmologyConfig{H0: 70, Om0: 0.3},
		Pipeline:  PipelineConfig{Workers: 1},
		Report:    ReportConfig{OutputDir: "."},
		Publish:   PublishConfig{S3: S3Config{Region: "us-east-1"}},
		Scheduler: SchedulerConfig{Interval: 24 * time.Hour, Timezone: defaultTimezone, location: tz},
	}
}
