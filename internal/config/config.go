package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

const DefaultAPIBaseURL = "https://graph.facebook.com/v18.0"

type Config struct {
	WhatsApp WhatsAppConfig `yaml:"whatsapp" toml:"whatsapp"`
	Server   ServerConfig   `yaml:"server" toml:"server"`
	Media    MediaConfig    `yaml:"media" toml:"media"`
	API      APIConfig      `yaml:"api" toml:"api"`
	RabbitMQ RabbitMQConfig `yaml:"rabbitmq" toml:"rabbitmq"`
	Log      LogConfig      `yaml:"log" toml:"log"`
}

type WhatsAppConfig struct {
	PhoneNumberID      string `yaml:"phone_number_id" toml:"phone_number_id"`
	AccessToken        string `yaml:"access_token" toml:"access_token"`
	WebhookVerifyToken string `yaml:"webhook_verify_token" toml:"webhook_verify_token"`
	AppSecret          string `yaml:"app_secret" toml:"app_secret"`
	APIBaseURL         string `yaml:"api_base_url" toml:"api_base_url"`
}

type ServerConfig struct {
	Host  string `yaml:"host" toml:"host"`
	Port  int    `yaml:"port" toml:"port"`
	Debug bool   `yaml:"debug" toml:"debug"`
}

type MediaConfig struct {
	BaseURL   string `yaml:"base_url" toml:"base_url"`
	UploadDir string `yaml:"upload_dir" toml:"upload_dir"`
	Workers   int    `yaml:"workers" toml:"workers"`
	QueueSize int    `yaml:"queue_size" toml:"queue_size"`
}

type APIConfig struct {
	Token string `yaml:"token" toml:"token"`
}

type RabbitMQConfig struct {
	URL   string `yaml:"url" toml:"url"`
	Queue string `yaml:"queue" toml:"queue"`
}

type LogConfig struct {
	Level string `yaml:"level" toml:"level"`
}

func defaults() Config {
	return Config{
		WhatsApp: WhatsAppConfig{APIBaseURL: DefaultAPIBaseURL},
		Server:   ServerConfig{Host: "0.0.0.0", Port: 8000},
		Media:    MediaConfig{UploadDir: "uploads", Workers: 2, QueueSize: 64},
		RabbitMQ: RabbitMQConfig{Queue: "wa_relay_inbound"},
		Log:      LogConfig{Level: "info"},
	}
}

// LoadConfig reads .env, then the config file at path (YAML, or TOML for a
// .toml extension), then applies environment overrides. Env vars always win.
// A missing file is not an error.
func LoadConfig(path string) (*Config, error) {
	_ = godotenv.Load(".env")

	cfg := defaults()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("failed to read config file: %w", err)
		default:
			if err := decode(path, data, &cfg); err != nil {
				return nil, fmt.Errorf("failed to unmarshal config: %w", err)
			}
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func decode(path string, data []byte, cfg *Config) error {
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		_, err := toml.Decode(string(data), cfg)
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

func applyEnv(cfg *Config) error {
	str := map[string]*string{
		"WHATSAPP_PHONE_NUMBER_ID":      &cfg.WhatsApp.PhoneNumberID,
		"WHATSAPP_ACCESS_TOKEN":         &cfg.WhatsApp.AccessToken,
		"WHATSAPP_WEBHOOK_VERIFY_TOKEN": &cfg.WhatsApp.WebhookVerifyToken,
		"WHATSAPP_APP_SECRET":           &cfg.WhatsApp.AppSecret,
		"WHATSAPP_API_BASE_URL":         &cfg.WhatsApp.APIBaseURL,
		"HOST":                          &cfg.Server.Host,
		"MEDIA_BASE_URL":                &cfg.Media.BaseURL,
		"UPLOAD_DIR":                    &cfg.Media.UploadDir,
		"API_TOKEN":                     &cfg.API.Token,
		"RABBITMQ_URL":                  &cfg.RabbitMQ.URL,
		"LOG_LEVEL":                     &cfg.Log.Level,
	}
	for key, dst := range str {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}

	ints := map[string]*int{
		"PORT":          &cfg.Server.Port,
		"MEDIA_WORKERS": &cfg.Media.Workers,
	}
	for key, dst := range ints {
		if v := os.Getenv(key); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("invalid %s %q: %w", key, v, err)
			}
			*dst = n
		}
	}

	if v := os.Getenv("DEBUG"); v != "" {
		cfg.Server.Debug = strings.EqualFold(v, "true") || v == "1"
	}
	return nil
}

// Validate returns the names of missing WhatsApp settings. An empty result
// means the relay can talk to the provider.
func (c *Config) Validate() []string {
	var missing []string
	if c.WhatsApp.PhoneNumberID == "" {
		missing = append(missing, "WHATSAPP_PHONE_NUMBER_ID")
	}
	if c.WhatsApp.AccessToken == "" {
		missing = append(missing, "WHATSAPP_ACCESS_TOKEN")
	}
	if c.WhatsApp.WebhookVerifyToken == "" {
		missing = append(missing, "WHATSAPP_WEBHOOK_VERIFY_TOKEN")
	}
	return missing
}

// WhatsAppConfigured reports whether Validate found nothing missing.
func (c *Config) WhatsAppConfigured() bool {
	return len(c.Validate()) == 0
}

// Addr is the HTTP listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// MediaBaseURL is the public prefix for uploaded files. Without a configured
// value it falls back to localhost, which the provider cannot reach.
func (c *Config) MediaBaseURL(log logrus.FieldLogger) string {
	if c.Media.BaseURL != "" {
		return strings.TrimRight(c.Media.BaseURL, "/")
	}
	base := fmt.Sprintf("http://localhost:%d", c.Server.Port)
	if log != nil {
		log.WithField("media_base_url", base).Warn("MEDIA_BASE_URL not set, media links will not be reachable by WhatsApp")
	}
	return base
}
