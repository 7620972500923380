package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server     ServerConfig
	DB         DBConfig
	DHIS2      DHIS2Config
	Recognizer RecognizerConfig
	S3         S3Config
	Log        LogConfig
	CORS       CORSConfig
	Upload     UploadConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port         string        `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	Environment  string        `mapstructure:"environment"`
}

// DBConfig holds PostgreSQL connection settings.
type DBConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`
	MaxOpen  int    `mapstructure:"max_open"`
	MaxIdle  int    `mapstructure:"max_idle"`
}

// DSN returns the PostgreSQL connection string.
func (d *DBConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode,
	)
}

// DHIS2Config holds the DHIS2 instance endpoint and basic-auth credentials.
type DHIS2Config struct {
	BaseURL     string `mapstructure:"base_url"`
	Username    string `mapstructure:"username"`
	Password    string `mapstructure:"password"`
	TimeoutSecs int    `mapstructure:"timeout_secs"`
}

// RecognizerConfig holds the vision model recognition settings.
type RecognizerConfig struct {
	APIKey      string `mapstructure:"api_key"`
	Model       string `mapstructure:"model"`
	MaxRetries  int    `mapstructure:"max_retries"`
	TimeoutSecs int    `mapstructure:"timeout_secs"`
}

// S3Config holds AWS S3 settings for page image archival.
type S3Config struct {
	Region    string `mapstructure:"region"`
	Bucket    string `mapstructure:"bucket"`
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// CORSConfig holds CORS settings.
type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// UploadConfig holds page upload limits.
type UploadConfig struct {
	MaxFileSizeMB int64 `mapstructure:"max_file_size_mb"`
}

// Load reads configuration from environment variables with the TALLYOCR_ prefix.
func Load() (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("TALLYOCR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Server defaults
	v.SetDefault("server.port", ":8080")
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "120s")
	v.SetDefault("server.environment", "development")

	// DB defaults
	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.user", "tallyocr")
	v.SetDefault("db.password", "tallyocr_secret")
	v.SetDefault("db.name", "tallyocr_db")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("db.max_open", 25)
	v.SetDefault("db.max_idle", 10)

	// DHIS2 defaults (credentials intentionally have no default)
	v.SetDefault("dhis2.base_url", "")
	v.SetDefault("dhis2.username", "")
	v.SetDefault("dhis2.password", "")
	v.SetDefault("dhis2.timeout_secs", 30)

	// Recognizer defaults
	v.SetDefault("recognizer.api_key", "")
	v.SetDefault("recognizer.model", "gpt-4o")
	v.SetDefault("recognizer.max_retries", 2)
	v.SetDefault("recognizer.timeout_secs", 120)

	// S3 defaults
	v.SetDefault("s3.region", "us-east-1")
	v.SetDefault("s3.bucket", "tallyocr-pages")
	v.SetDefault("s3.endpoint", "")

	// Log defaults
	v.SetDefault("log.level", "debug")
	v.SetDefault("log.format", "console")

	// CORS defaults (localhost origins for development)
	v.SetDefault("cors.allowed_origins", "http://localhost:3000,http://127.0.0.1:3000")

	// Upload defaults
	v.SetDefault("upload.max_file_size_mb", 20)

	// Bind environment variables explicitly for nested keys
	envBindings := map[string]string{
		"server.port":             "TALLYOCR_SERVER_PORT",
		"server.read_timeout":     "TALLYOCR_SERVER_READ_TIMEOUT",
		"server.write_timeout":    "TALLYOCR_SERVER_WRITE_TIMEOUT",
		"server.environment":      "TALLYOCR_SERVER_ENVIRONMENT",
		"db.host":                 "TALLYOCR_DB_HOST",
		"db.port":                 "TALLYOCR_DB_PORT",
		"db.user":                 "TALLYOCR_DB_USER",
		"db.password":             "TALLYOCR_DB_PASSWORD",
		"db.name":                 "TALLYOCR_DB_NAME",
		"db.sslmode":              "TALLYOCR_DB_SSLMODE",
		"db.max_open":             "TALLYOCR_DB_MAX_OPEN",
		"db.max_idle":             "TALLYOCR_DB_MAX_IDLE",
		"dhis2.base_url":          "TALLYOCR_DHIS2_BASE_URL",
		"dhis2.username":          "TALLYOCR_DHIS2_USERNAME",
		"dhis2.password":          "TALLYOCR_DHIS2_PASSWORD",
		"dhis2.timeout_secs":      "TALLYOCR_DHIS2_TIMEOUT_SECS",
		"recognizer.api_key":      "TALLYOCR_RECOGNIZER_API_KEY",
		"recognizer.model":        "TALLYOCR_RECOGNIZER_MODEL",
		"recognizer.max_retries":  "TALLYOCR_RECOGNIZER_MAX_RETRIES",
		"recognizer.timeout_secs": "TALLYOCR_RECOGNIZER_TIMEOUT_SECS",
		"s3.region":               "TALLYOCR_S3_REGION",
		"s3.bucket":               "TALLYOCR_S3_BUCKET",
		"s3.endpoint":             "TALLYOCR_S3_ENDPOINT",
		"s3.access_key":           "TALLYOCR_S3_ACCESS_KEY",
		"s3.secret_key":           "TALLYOCR_S3_SECRET_KEY",
		"log.level":               "TALLYOCR_LOG_LEVEL",
		"log.format":              "TALLYOCR_LOG_FORMAT",
		"cors.allowed_origins":    "TALLYOCR_CORS_ALLOWED_ORIGINS",
		"upload.max_file_size_mb": "TALLYOCR_UPLOAD_MAX_FILE_SIZE_MB",
	}
	for key, env := range envBindings {
		_ = v.BindEnv(key, env)
	}

	cfg := &Config{}

	// Railway/Heroku/Render set a PORT env var. Use it if TALLYOCR_SERVER_PORT is not explicitly set.
	serverPort := v.GetString("server.port")
	if port := os.Getenv("PORT"); port != "" && os.Getenv("TALLYOCR_SERVER_PORT") == "" {
		serverPort = ":" + port
	}

	cfg.Server = ServerConfig{
		Port:         serverPort,
		ReadTimeout:  v.GetDuration("server.read_timeout"),
		WriteTimeout: v.GetDuration("server.write_timeout"),
		Environment:  v.GetString("server.environment"),
	}
	cfg.DB = DBConfig{
		Host:     v.GetString("db.host"),
		Port:     v.GetInt("db.port"),
		User:     v.GetString("db.user"),
		Password: v.GetString("db.password"),
		Name:     v.GetString("db.name"),
		SSLMode:  v.GetString("db.sslmode"),
		MaxOpen:  v.GetInt("db.max_open"),
		MaxIdle:  v.GetInt("db.max_idle"),
	}
	cfg.DHIS2 = DHIS2Config{
		BaseURL:     strings.TrimRight(v.GetString("dhis2.base_url"), "/"),
		Username:    v.GetString("dhis2.username"),
		Password:    v.GetString("dhis2.password"),
		TimeoutSecs: v.GetInt("dhis2.timeout_secs"),
	}
	cfg.Recognizer = RecognizerConfig{
		APIKey:      v.GetString("recognizer.api_key"),
		Model:       v.GetString("recognizer.model"),
		MaxRetries:  v.GetInt("recognizer.max_retries"),
		TimeoutSecs: v.GetInt("recognizer.timeout_secs"),
	}
	cfg.S3 = S3Config{
		Region:    v.GetString("s3.region"),
		Bucket:    v.GetString("s3.bucket"),
		Endpoint:  v.GetString("s3.endpoint"),
		AccessKey: v.GetString("s3.access_key"),
		SecretKey: v.GetString("s3.secret_key"),
	}
	cfg.Log = LogConfig{
		Level:  v.GetString("log.level"),
		Format: v.GetString("log.format"),
	}
	// Parse CORS allowed origins from comma-separated string
	var corsOrigins []string
	for _, o := range strings.Split(v.GetString("cors.allowed_origins"), ",") {
		o = strings.TrimSpace(o)
		if o != "" {
			corsOrigins = append(corsOrigins, o)
		}
	}
	cfg.CORS = CORSConfig{
		AllowedOrigins: corsOrigins,
	}
	cfg.Upload = UploadConfig{
		MaxFileSizeMB: v.GetInt64("upload.max_file_size_mb"),
	}

	return cfg, nil
}

// Validate fails fast on missing credentials so the process never starts
// half-configured and fails mid-session instead.
func (c *Config) Validate() error {
	var missing []string
	if c.DHIS2.BaseURL == "" {
		missing = append(missing, "TALLYOCR_DHIS2_BASE_URL")
	}
	if c.DHIS2.Username == "" {
		missing = append(missing, "TALLYOCR_DHIS2_USERNAME")
	}
	if c.DHIS2.Password == "" {
		missing = append(missing, "TALLYOCR_DHIS2_PASSWORD")
	}
	if c.Recognizer.APIKey == "" {
		missing = append(missing, "TALLYOCR_RECOGNIZER_API_KEY")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}
	return nil
}
