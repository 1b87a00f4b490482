package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds runtime configuration values for the API service.
type Config struct {
	AppName                string
	AppEnv                 string
	AppPort                string
	DatabaseURL            string
	RedisURL               string
	NATSURL                string
	JWTSecret              string
	JWTTTL                 time.Duration
	Timezone               string
	Location               *time.Location
	ReportCacheTTL         time.Duration
	DraftTTL               time.Duration
	NotificationChannel    string
	NotificationKeepAlive  time.Duration
	LoginRateLimit         int
	CloudinaryCloudName    string
	CloudinaryAPIKey       string
	CloudinaryAPISecret    string
	CloudinaryUploadFolder string
	UploadMaxMB            int
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// UploadLimitBytes converts the configured upload limit to bytes.
func (c Config) UploadLimitBytes() int64 {
	return int64(c.UploadMaxMB) * 1024 * 1024
}

// Load reads configuration values from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("EDUDASH")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "EduDash API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("jwt.ttl", "12h")
	v.SetDefault("timezone", "UTC")
	v.SetDefault("report.cache_ttl", "10m")
	v.SetDefault("draft.ttl", "24h")
	v.SetDefault("notification.channel", "edudash")
	v.SetDefault("notification.keepalive", "25s")
	v.SetDefault("login.rate_limit", 10)
	v.SetDefault("cloudinary.folder", "edudash")
	v.SetDefault("upload.max_mb", 5)

	return fromViper(v)
}

func fromViper(v *viper.Viper) (Config, error) {
	jwtTTL, err := parseDuration(v, "jwt.ttl")
	if err != nil {
		return Config{}, err
	}
	reportTTL, err := parseDuration(v, "report.cache_ttl")
	if err != nil {
		return Config{}, err
	}
	draftTTL, err := parseDuration(v, "draft.ttl")
	if err != nil {
		return Config{}, err
	}
	keepAlive, err := parseDuration(v, "notification.keepalive")
	if err != nil {
		return Config{}, err
	}

	tz := strings.TrimSpace(v.GetString("timezone"))
	if tz == "" {
		tz = "UTC"
	}
	location, err := time.LoadLocation(tz)
	if err != nil {
		return Config{}, fmt.Errorf("invalid timezone %q: %w", tz, err)
	}

	cfg := Config{
		AppName:                v.GetString("app.name"),
		AppEnv:                 v.GetString("app.env"),
		AppPort:                v.GetString("app.port"),
		DatabaseURL:            v.GetString("database.url"),
		RedisURL:               v.GetString("redis.url"),
		NATSURL:                v.GetString("nats.url"),
		JWTSecret:              v.GetString("jwt.secret"),
		JWTTTL:                 jwtTTL,
		Timezone:               tz,
		Location:               location,
		ReportCacheTTL:         reportTTL,
		DraftTTL:               draftTTL,
		NotificationChannel:    v.GetString("notification.channel"),
		NotificationKeepAlive:  keepAlive,
		LoginRateLimit:         v.GetInt("login.rate_limit"),
		CloudinaryCloudName:    v.GetString("cloudinary.cloud_name"),
		CloudinaryAPIKey:       v.GetString("cloudinary.api_key"),
		CloudinaryAPISecret:    v.GetString("cloudinary.api_secret"),
		CloudinaryUploadFolder: v.GetString("cloudinary.folder"),
		UploadMaxMB:            v.GetInt("upload.max_mb"),
	}

	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("jwt secret must be provided")
	}

	if cfg.LoginRateLimit <= 0 {
		cfg.LoginRateLimit = 10
	}

	if cfg.UploadMaxMB <= 0 {
		cfg.UploadMaxMB = 5
	}

	return cfg, nil
}

func parseDuration(v *viper.Viper, key string) (time.Duration, error) {
	raw := strings.TrimSpace(v.GetString(key))
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", strings.ReplaceAll(key, ".", " "), err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("invalid %s: must be positive", strings.ReplaceAll(key, ".", " "))
	}
	return d, nil
}
