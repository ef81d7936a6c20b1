package config

import "time"

type ServerConfig struct {
	Env            string
	Port           string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	RequestTimeout time.Duration
}

type DatabaseConfig struct {
	DSN         string
	MaxConns    int
	MinConns    int
	MaxLifetime time.Duration
	MaxIdleTime time.Duration
}

type AuthConfig struct {
	JWTSecret   string
	TokenExpiry time.Duration
}

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Auth     AuthConfig
}

// Load reads configuration from environment variables with sane defaults.
// Call after godotenv has populated the environment.
func Load() Config {
	return Config{
		Server: ServerConfig{
			Env:            getEnvAsString("APP_ENV", "development"),
			Port:           getEnvAsString("APP_PORT", "8080"),
			ReadTimeout:    getEnvAsDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:   getEnvAsDuration("SERVER_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:    getEnvAsDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
			RequestTimeout: getEnvAsDuration("SERVER_REQUEST_TIMEOUT", 10*time.Second),
		},
		Database: DatabaseConfig{
			DSN:         getEnvAsString("DB_DSN", ""),
			MaxConns:    getEnvAsInt("DB_MAX_CONNS", 10),
			MinConns:    getEnvAsInt("DB_MIN_CONNS", 2),
			MaxLifetime: getEnvAsDuration("DB_MAX_LIFETIME", 30*time.Minute),
			MaxIdleTime: getEnvAsDuration("DB_MAX_IDLE_TIME", 5*time.Minute),
		},
		Auth: AuthConfig{
			JWTSecret:   getEnvAsString("JWT_SECRET", "dev_fallback_secret"),
			TokenExpiry: getEnvAsDuration("JWT_TOKEN_EXPIRY", 24*time.Hour),
		},
	}
}

// LogLevel picks the slog level for the current environment.
func (c Config) LogLevel() string {
	if c.Server.Env == "production" {
		return "info"
	}
	return "debug"
}
