package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server       ServerConfig       `mapstructure:"server"`
	Log          LogConfig          `mapstructure:"log"`
	Database     DatabaseConfig     `mapstructure:"database"`
	Auth         AuthConfig         `mapstructure:"auth"`
	Confirmation ConfirmationConfig `mapstructure:"confirmation"`
	Mail         MailConfig         `mapstructure:"mail"`
	Storage      StorageConfig      `mapstructure:"storage"`
	Media        MediaConfig        `mapstructure:"media"`
	S3           S3Config           `mapstructure:"s3"`
}

type ServerConfig struct {
	Port string `mapstructure:"port"`
	// PublicURL prefixes the filePath stored on every file record.
	PublicURL string `mapstructure:"public_url"`
	// APIURL is the base of confirmation links.
	APIURL          string        `mapstructure:"api_url"`
	AllowedOrigins  []string      `mapstructure:"allowed_origins"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type DatabaseConfig struct {
	Driver        string `mapstructure:"driver"`
	Host          string `mapstructure:"host"`
	Port          string `mapstructure:"port"`
	User          string `mapstructure:"user"`
	Password      string `mapstructure:"password"`
	Name          string `mapstructure:"name"`
	SSLMode       string `mapstructure:"sslmode"`
	MongoURI      string `mapstructure:"mongo_uri"`
	MongoDatabase string `mapstructure:"mongo_database"`
}

type AuthConfig struct {
	TokenSecret string        `mapstructure:"token_secret"`
	TokenTTL    time.Duration `mapstructure:"token_ttl"`
	BcryptCost  int           `mapstructure:"bcrypt_cost"`
}

type ConfirmationConfig struct {
	Algorithm string `mapstructure:"algorithm"`
	SecretKey string `mapstructure:"secret_key"`
	IV        string `mapstructure:"iv"`
}

type MailConfig struct {
	Host              string `mapstructure:"host"`
	Port              int    `mapstructure:"port"`
	Username          string `mapstructure:"username"`
	Password          string `mapstructure:"password"`
	From              string `mapstructure:"from"`
	OAuthClientID     string `mapstructure:"oauth_client_id"`
	OAuthClientSecret string `mapstructure:"oauth_client_secret"`
	OAuthRefreshToken string `mapstructure:"oauth_refresh_token"`
}

type StorageConfig struct {
	StagingDir     string `mapstructure:"staging_dir"`
	PublicPrefix   string `mapstructure:"public_prefix"`
	MaxUploadBytes int64  `mapstructure:"max_upload_bytes"`
}

type MediaConfig struct {
	ImageBackend    string  `mapstructure:"image_backend"`
	ImageWidth      int     `mapstructure:"image_width"`
	ImageHeight     int     `mapstructure:"image_height"`
	BlurSigma       float64 `mapstructure:"blur_sigma"`
	JPEGQuality     int     `mapstructure:"jpeg_quality"`
	WatermarkPath   string  `mapstructure:"watermark_path"`
	DictionaryPath  string  `mapstructure:"dictionary_path"`
	SuggestionLimit int     `mapstructure:"suggestion_limit"`
	MaxEditDistance int     `mapstructure:"max_edit_distance"`
}

type S3Config struct {
	Enabled         bool   `mapstructure:"enabled"`
	Endpoint        string `mapstructure:"endpoint"`
	Region          string `mapstructure:"region"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	Bucket          string `mapstructure:"bucket"`
	Prefix          string `mapstructure:"prefix"`
	PublicURL       string `mapstructure:"public_url"`
}

// envBindings maps config keys to the environment variables the service has
// always been deployed with.
var envBindings = map[string]string{
	"server.port":              "HTTP_PORT",
	"server.public_url":        "BASE_URL",
	"server.api_url":           "API_URL",
	"server.allowed_origins":   "CORS_ALLOWED_ORIGINS",
	"log.level":                "LOG_LEVEL",
	"log.format":               "LOG_FORMAT",
	"database.driver":          "DATABASE_DRIVER",
	"database.host":            "DATABASE_HOST",
	"database.port":            "DATABASE_PORT",
	"database.user":            "DATABASE_USER",
	"database.password":        "DATABASE_PASSWORD",
	"database.name":            "DATABASE_NAME",
	"database.sslmode":         "DATABASE_SSLMODE",
	"database.mongo_uri":       "MONGO_URI",
	"database.mongo_database":  "MONGO_DATABASE",
	"auth.token_secret":        "TOKEN_SECRET_KEY",
	"auth.token_ttl":           "TOKEN_TTL",
	"auth.bcrypt_cost":         "SALT",
	"confirmation.algorithm":   "CRYPTO_ALGORITHM",
	"confirmation.secret_key":  "CONFIRMATION_SECRET_KEY",
	"confirmation.iv":          "INITIALIZATION_VECTOR",
	"mail.host":                "SMTP_HOST",
	"mail.port":                "SMTP_PORT",
	"mail.username":            "GMAIL_EMAIL",
	"mail.password":            "SMTP_PASSWORD",
	"mail.from":                "MAIL_FROM",
	"mail.oauth_client_id":     "OAUTH_CLIENT_ID",
	"mail.oauth_client_secret": "OAUTH_CLIENT_SECRET",
	"mail.oauth_refresh_token": "OAUTH_REFRESH_TOKEN",
	"storage.staging_dir":      "STAGING_DIR",
	"storage.public_prefix":    "STAGING_PUBLIC_PREFIX",
	"storage.max_upload_bytes": "MAX_UPLOAD_BYTES",
	"media.image_backend":      "IMAGE_BACKEND",
	"media.watermark_path":     "WATERMARK_PATH",
	"media.dictionary_path":    "DICTIONARY_PATH",
	"s3.enabled":               "S3_ENABLED",
	"s3.endpoint":              "S3_ENDPOINT",
	"s3.region":                "S3_REGION",
	"s3.access_key_id":         "S3_ACCESS_KEY_ID",
	"s3.secret_access_key":     "S3_SECRET_ACCESS_KEY",
	"s3.bucket":                "S3_BUCKET",
	"s3.prefix":                "S3_PREFIX",
	"s3.public_url":            "S3_PUBLIC_URL",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "5000")
	v.SetDefault("server.public_url", "http://localhost:5000")
	v.SetDefault("server.api_url", "http://localhost:5000")
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("server.request_timeout", 5*time.Minute)
	v.SetDefault("server.shutdown_timeout", 30*time.Second)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.name", "sharedrive")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.mongo_database", "sharedrive")

	v.SetDefault("auth.token_ttl", 2*time.Hour)
	v.SetDefault("auth.bcrypt_cost", 10)

	v.SetDefault("confirmation.algorithm", "aes-256-cbc")

	v.SetDefault("mail.port", 587)
	v.SetDefault("mail.from", "no-reply@sharedrive.local")

	v.SetDefault("storage.staging_dir", "uploads")
	v.SetDefault("storage.public_prefix", "/uploads")
	v.SetDefault("storage.max_upload_bytes", int64(100<<20))

	v.SetDefault("media.image_backend", "imaging")
	v.SetDefault("media.image_width", 350)
	v.SetDefault("media.image_height", 0)
	v.SetDefault("media.blur_sigma", 1.0)
	v.SetDefault("media.jpeg_quality", 80)
	v.SetDefault("media.suggestion_limit", 5)
	v.SetDefault("media.max_edit_distance", 2)

	v.SetDefault("s3.region", "us-east-1")
}

// NewConfig reads the optional config file at path and overlays the bound
// environment variables. A missing file is not an error.
func NewConfig(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", env, err)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			fmt.Printf("Warning: using defaults and environment variables only: %v\n", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Env values for list settings arrive as one comma separated string.
	var origins []string
	for _, o := range cfg.Server.AllowedOrigins {
		origins = append(origins, splitAndTrim(o)...)
	}
	cfg.Server.AllowedOrigins = origins
	cfg.Server.PublicURL = strings.TrimRight(cfg.Server.PublicURL, "/")
	cfg.Server.APIURL = strings.TrimRight(cfg.Server.APIURL, "/")

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate reports settings the service cannot start with. A missing token
// secret is tolerated here; signup reports it per request.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "postgres":
		if c.Database.Host == "" || c.Database.Port == "" || c.Database.User == "" || c.Database.Name == "" {
			return fmt.Errorf("database configuration is incomplete: host=%s, port=%s, user=%s, name=%s",
				c.Database.Host, c.Database.Port, c.Database.User, c.Database.Name)
		}
	case "mongo":
		if c.Database.MongoURI == "" {
			return fmt.Errorf("database configuration is incomplete: mongo_uri is required")
		}
	case "memory":
	default:
		return fmt.Errorf("unknown database driver %q", c.Database.Driver)
	}

	switch c.Media.ImageBackend {
	case "imaging", "vips":
	default:
		return fmt.Errorf("unknown image backend %q", c.Media.ImageBackend)
	}

	if c.Media.ImageWidth <= 0 {
		return fmt.Errorf("media.image_width must be positive")
	}
	if c.Storage.StagingDir == "" {
		return fmt.Errorf("storage.staging_dir is required")
	}

	if c.S3.Enabled && (c.S3.AccessKeyID == "" || c.S3.SecretAccessKey == "" || c.S3.Bucket == "") {
		return fmt.Errorf("s3 configuration is incomplete: access key, secret key and bucket are required")
	}

	return nil
}

func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host,
		c.Port,
		c.User,
		c.Password,
		c.Name,
		c.SSLMode,
	)
}

func splitAndTrim(raw string) []string {
	var out []string
	for _, p := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
