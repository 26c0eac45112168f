package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultGroqBaseURL = "https://api.groq.com/openai/v1"
	DefaultGroqModel   = "llama-3.3-70b-versatile"
	DefaultTemperature = 0.7

	// APIKeyName is looked up in the secrets file and the environment.
	APIKeyName = "GROQ_API_KEY"
)

type Config struct {
	Server struct {
		Port           int               `yaml:"port"`
		MaxUploadMB    int64             `yaml:"maxUploadMB"`
		ReadTimeout    time.Duration     `yaml:"readTimeout"`
		WriteTimeout   time.Duration     `yaml:"writeTimeout"`
		AllowedOrigins []string          `yaml:"allowedOrigins"`
		APIKeys        map[string]string `yaml:"apiKeys"`
		RateLimit      struct {
			Capacity   int `yaml:"capacity"`
			RefillRate int `yaml:"refillRate"`
		} `yaml:"rateLimit"`
	} `yaml:"server"`

	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`

	Groq struct {
		APIKey      string        `yaml:"apiKey"`
		BaseURL     string        `yaml:"baseURL"`
		Model       string        `yaml:"model"`
		Temperature *float32      `yaml:"temperature"`
		Timeout     time.Duration `yaml:"timeout"`
	} `yaml:"groq"`

	Secrets struct {
		File string `yaml:"file"`
	} `yaml:"secrets"`

	// Database is optional; history is disabled when Driver is empty.
	Database struct {
		Driver   string `yaml:"driver"` // mysql | postgres
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		User     string `yaml:"user"`
		Password string `yaml:"password"`
		Name     string `yaml:"name"`
		SSLMode  string `yaml:"sslMode"`
	} `yaml:"database"`

	// Storage archives original uploads; disabled when Provider is empty.
	Storage struct {
		Provider   string `yaml:"provider"` // minio | s3 | r2
		Endpoint   string `yaml:"endpoint"`
		AccessKey  string `yaml:"accessKey"`
		SecretKey  string `yaml:"secretKey"`
		BucketName string `yaml:"bucketName"`
		Region     string `yaml:"region"`
		UseSSL     bool   `yaml:"useSSL"`
	} `yaml:"storage"`

	// Events publishes analysis notifications; disabled when Provider is empty.
	Events struct {
		Provider     string   `yaml:"provider"` // rabbitmq | kafka
		RabbitMQURL  string   `yaml:"rabbitmqURL"`
		Exchange     string   `yaml:"exchange"`
		KafkaBrokers []string `yaml:"kafkaBrokers"`
		Topic        string   `yaml:"topic"`
	} `yaml:"events"`
}

// Load reads the YAML config at path and fills in defaults.
// A missing file is not an error: the service runs on defaults and environment.
func Load(path string) (*Config, error) {
	var cfg Config
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	case os.IsNotExist(err):
	default:
		return nil, err
	}
	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.MaxUploadMB <= 0 {
		c.Server.MaxUploadMB = 200
	}
	if c.Server.ReadTimeout <= 0 {
		c.Server.ReadTimeout = 30 * time.Second
	}
	// must outlive the outbound analysis call
	if c.Server.WriteTimeout <= 0 {
		c.Server.WriteTimeout = 90 * time.Second
	}
	if c.Server.RateLimit.Capacity <= 0 {
		c.Server.RateLimit.Capacity = 20
	}
	if c.Server.RateLimit.RefillRate <= 0 {
		c.Server.RateLimit.RefillRate = 1
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Groq.BaseURL == "" {
		c.Groq.BaseURL = DefaultGroqBaseURL
	}
	if c.Groq.Model == "" {
		c.Groq.Model = DefaultGroqModel
	}
	// nil means unset; an explicit 0 is kept
	if c.Groq.Temperature == nil {
		t := float32(DefaultTemperature)
		c.Groq.Temperature = &t
	}
	if c.Groq.Timeout <= 0 {
		c.Groq.Timeout = 60 * time.Second
	}
	if c.Events.Exchange == "" {
		c.Events.Exchange = "resume_analyses"
	}
	if c.Events.Topic == "" {
		c.Events.Topic = "resume-analyses"
	}
	if c.Database.SSLMode == "" {
		c.Database.SSLMode = "disable"
	}
}

// MaxUploadBytes is the request body cap for uploads.
func (c *Config) MaxUploadBytes() int64 {
	return c.Server.MaxUploadMB << 20
}

// MySQLDSN builds the go-sql-driver DSN.
func (c *Config) MySQLDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&charset=utf8mb4&loc=UTC",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
	)
}

// PostgresDSN builds the lib/pq connection string.
func (c *Config) PostgresDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.Name,
		c.Database.SSLMode,
	)
}
