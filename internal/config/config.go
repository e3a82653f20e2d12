package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds application level configuration loaded from environment variables
// and an optional config file.
type Config struct {
	ServerPort string
	AppEnv     string

	LogLevel  string
	LogFormat string

	DBDriver      string
	DBDSN         string
	DBAutoMigrate bool

	RedisAddr    string
	RedisDB      int
	RedisPass    string
	UserCacheTTL time.Duration

	AuthURL            string
	AuthAnonKey        string
	AuthServiceRoleKey string
	PasswordResetURL   string

	S3Endpoint       string
	S3Region         string
	S3AccessKey      string
	S3SecretKey      string
	S3ForcePathStyle bool
	StorageBuckets   []string
	NotesBucket      string
	UploadMaxBytes   string

	CORSAllowOrigins []string

	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	SMTPFrom     string

	SwaggerHost string
}

// IsDevelopment reports whether provider error details may be echoed to clients.
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

// MailEnabled reports whether SMTP settings are complete enough to send mail.
func (c *Config) MailEnabled() bool {
	return c.SMTPHost != "" && c.SMTPFrom != ""
}

// Load builds Config from environment with sensible defaults. A config file named
// config.yaml in the working directory (or the file named by CONFIG_FILE) is read
// when present; environment variables always win.
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.AutomaticEnv()
	if path := v.GetString("config_file"); path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	return fromViper(v), nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server_port", "8080")
	v.SetDefault("app_env", "production")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "json")
	v.SetDefault("db_driver", "postgres")
	v.SetDefault("db_dsn", "host=localhost user=postgres password=postgres dbname=postgres port=5432 sslmode=disable")
	v.SetDefault("db_auto_migrate", true)
	v.SetDefault("redis_addr", "localhost:6379")
	v.SetDefault("redis_db", 0)
	v.SetDefault("redis_password", "")
	v.SetDefault("user_cache_ttl", 5*time.Minute)
	v.SetDefault("auth_url", "http://localhost:9999")
	v.SetDefault("auth_anon_key", "")
	v.SetDefault("auth_service_role_key", "")
	v.SetDefault("password_reset_redirect_url", "http://localhost:5173/reset-password")
	v.SetDefault("s3_endpoint", "")
	v.SetDefault("s3_region", "us-east-1")
	v.SetDefault("s3_access_key", "")
	v.SetDefault("s3_secret_key", "")
	v.SetDefault("s3_force_path_style", true)
	v.SetDefault("storage_buckets", "uploads")
	v.SetDefault("notes_bucket", "uploads")
	v.SetDefault("upload_max_bytes", "10M")
	v.SetDefault("cors_allow_origins", "*")
	v.SetDefault("smtp_host", "")
	v.SetDefault("smtp_port", 587)
	v.SetDefault("smtp_username", "")
	v.SetDefault("smtp_password", "")
	v.SetDefault("smtp_from", "")
	v.SetDefault("swagger_host", "")
	v.SetDefault("config_file", "")
}

func fromViper(v *viper.Viper) *Config {
	return &Config{
		ServerPort:         v.GetString("server_port"),
		AppEnv:             v.GetString("app_env"),
		LogLevel:           v.GetString("log_level"),
		LogFormat:          v.GetString("log_format"),
		DBDriver:           v.GetString("db_driver"),
		DBDSN:              v.GetString("db_dsn"),
		DBAutoMigrate:      v.GetBool("db_auto_migrate"),
		RedisAddr:          v.GetString("redis_addr"),
		RedisDB:            v.GetInt("redis_db"),
		RedisPass:          v.GetString("redis_password"),
		UserCacheTTL:       v.GetDuration("user_cache_ttl"),
		AuthURL:            strings.TrimRight(v.GetString("auth_url"), "/"),
		AuthAnonKey:        v.GetString("auth_anon_key"),
		AuthServiceRoleKey: v.GetString("auth_service_role_key"),
		PasswordResetURL:   v.GetString("password_reset_redirect_url"),
		S3Endpoint:         v.GetString("s3_endpoint"),
		S3Region:           v.GetString("s3_region"),
		S3AccessKey:        v.GetString("s3_access_key"),
		S3SecretKey:        v.GetString("s3_secret_key"),
		S3ForcePathStyle:   v.GetBool("s3_force_path_style"),
		StorageBuckets:     splitList(v.GetString("storage_buckets")),
		NotesBucket:        v.GetString("notes_bucket"),
		UploadMaxBytes:     v.GetString("upload_max_bytes"),
		CORSAllowOrigins:   splitList(v.GetString("cors_allow_origins")),
		SMTPHost:           v.GetString("smtp_host"),
		SMTPPort:           v.GetInt("smtp_port"),
		SMTPUsername:       v.GetString("smtp_username"),
		SMTPPassword:       v.GetString("smtp_password"),
		SMTPFrom:           v.GetString("smtp_from"),
		SwaggerHost:        v.GetString("swagger_host"),
	}
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
