package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	BackendNode = "node"
	BackendS3   = "s3"
)

type Config struct {
	ListenAddr string   `yaml:"listen_addr" json:"listen_addr"`
	MetaDSN    string   `yaml:"meta_dsn" json:"-"`
	Storages   []string `yaml:"storages" json:"storages"`

	// Backend выбирает, куда кладутся части: "node" (свои узлы) или "s3".
	Backend       string        `yaml:"backend" json:"backend"`
	SigningSecret string        `yaml:"signing_secret" json:"-"`
	URLTTL        time.Duration `yaml:"url_ttl" json:"url_ttl"`
	KeyPrefix     string        `yaml:"key_prefix" json:"key_prefix"`
	MaxParts      int           `yaml:"max_parts" json:"max_parts"`
	// APITokens: bearer-токены клиентов. Пустой список отключает авторизацию.
	APITokens           []string `yaml:"api_tokens" json:"-"`
	MaxStorageLoadBytes int64    `yaml:"max_storage_load_bytes" json:"max_storage_load_bytes"`

	Log    LogConfig    `yaml:"log" json:"log"`
	S3     S3Config     `yaml:"s3" json:"s3"`
	Upload UploadConfig `yaml:"upload" json:"upload"`
}

type LogConfig struct {
	Level     string `yaml:"level" json:"level"`
	AddSource bool   `yaml:"add_source" json:"add_source"`
}

type S3Config struct {
	Bucket       string `yaml:"bucket" json:"bucket"`
	Region       string `yaml:"region" json:"region"`
	Endpoint     string `yaml:"endpoint" json:"endpoint"`
	UsePathStyle bool   `yaml:"use_path_style" json:"use_path_style"`
}

// UploadConfig настраивает клиента-загрузчика (cmd/upload).
type UploadConfig struct {
	BackendURL  string `yaml:"backend_url" json:"backend_url"`
	Token       string `yaml:"token" json:"-"`
	PartSize    int64  `yaml:"part_size" json:"part_size"`
	Concurrency int    `yaml:"concurrency" json:"concurrency"`
	// AbortOnFailure (расширение): при сбое передачи или сборки отменять сессию на бэкенде.
	AbortOnFailure bool `yaml:"abort_on_failure" json:"abort_on_failure"`
}

// Load читает YAML-конфигурацию, применяет ENV-переопределения и возвращает актуальную структуру.
func Load() (*Config, error) {
	return LoadFile(getenv("CONFIG_PATH", "./config.yaml"))
}

// LoadFile читает конфигурацию из конкретного файла.
func LoadFile(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	if err := c.applyEnv(); err != nil {
		return nil, err
	}
	c.applyDefaults()

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// LoadUploadFile читает только секцию upload; серверные настройки клиенту не нужны.
func LoadUploadFile(path string) (UploadConfig, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return UploadConfig{}, err
	}

	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return UploadConfig{}, fmt.Errorf("parse %s: %w", path, err)
	}
	return c.Upload, nil
}

// ENV override
func (c *Config) applyEnv() error {
	if v := os.Getenv("LISTEN_ADDR"); v != "" {
		c.ListenAddr = v
	}
	if v := os.Getenv("META_DSN"); v != "" {
		c.MetaDSN = v
	}
	if v := os.Getenv("STORAGES"); v != "" {
		c.Storages = splitComma(v)
	}
	if v := os.Getenv("BACKEND"); v != "" {
		c.Backend = v
	}
	if v := os.Getenv("SIGNING_SECRET"); v != "" {
		c.SigningSecret = v
	}
	if v := os.Getenv("API_TOKENS"); v != "" {
		c.APITokens = splitComma(v)
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("S3_BUCKET"); v != "" {
		c.S3.Bucket = v
	}
	if v := os.Getenv("S3_ENDPOINT"); v != "" {
		c.S3.Endpoint = v
	}
	if v := os.Getenv("URL_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("URL_TTL: %w", err)
		}
		c.URLTTL = d
	}
	if v := os.Getenv("MAX_STORAGE_LOAD_BYTES"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("MAX_STORAGE_LOAD_BYTES: %w", err)
		}
		c.MaxStorageLoadBytes = n
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.ListenAddr == "" {
		c.ListenAddr = ":8080"
	}
	if c.Backend == "" {
		c.Backend = BackendNode
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

// Validate проверяет согласованность выбранного бэкенда и его настроек.
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendNode:
		if c.SigningSecret == "" {
			return fmt.Errorf("signing_secret is required for node backend")
		}
	case BackendS3:
		if c.S3.Bucket == "" {
			return fmt.Errorf("s3.bucket is required for s3 backend")
		}
	default:
		return fmt.Errorf("unknown backend %q", c.Backend)
	}
	if c.URLTTL < 0 {
		return fmt.Errorf("url_ttl must not be negative")
	}
	if c.MaxParts < 0 {
		return fmt.Errorf("max_parts must not be negative")
	}
	return nil
}

func splitComma(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}

	return out
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}

	return def
}
