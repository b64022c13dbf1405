package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration.
type Config struct {
	HTTP    HTTPConfig
	GRPC    GRPCConfig
	Auth    AuthConfig
	Storage StorageConfig
	Debug   bool
}

// HTTPConfig contains HTTP API settings.
type HTTPConfig struct {
	Host            string
	Port            int
	AllowedOrigins  []string
	ShutdownTimeout time.Duration
}

// Address returns the host:port the HTTP server listens on.
func (h HTTPConfig) Address() string {
	return net.JoinHostPort(h.Host, strconv.Itoa(h.Port))
}

// GRPCConfig contains gRPC health server settings.
type GRPCConfig struct {
	Address string // empty disables the gRPC listener
}

// AuthConfig contains authentication settings.
type AuthConfig struct {
	JWTSecret string        // JWT signing secret
	TokenTTL  time.Duration // lifetime of issued tokens
}

// StorageConfig locates the users file and the image batches on disk.
type StorageConfig struct {
	ImagesDir string
	UsersFile string
}

// Load loads configuration from environment variables with sensible defaults.
// A .env file in the working directory is read first when present.
func Load() (*Config, error) {
	cfg, err := load("")
	if err != nil {
		return nil, err
	}

	// Validate critical settings
	if cfg.Auth.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET environment variable is not set; required for production")
	}
	return cfg, nil
}

// LoadWithDefaults is like Load but uses a safe default for JWT_SECRET in development.
// WARNING: Only use in development! Use Load() in production.
func LoadWithDefaults() (*Config, error) {
	return load("dev-secret-change-me")
}

func load(defaultSecret string) (*Config, error) {
	_ = godotenv.Load()

	port, err := getEnvInt("HTTP_PORT", 5000)
	if err != nil {
		return nil, err
	}
	ttlHours, err := getEnvInt("TOKEN_TTL_HOURS", 24)
	if err != nil {
		return nil, err
	}
	if ttlHours <= 0 {
		return nil, fmt.Errorf("TOKEN_TTL_HOURS must be > 0")
	}
	shutdownSec, err := getEnvInt("SHUTDOWN_TIMEOUT_SEC", 5)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		HTTP: HTTPConfig{
			Host:            getEnv("HTTP_HOST", "0.0.0.0"),
			Port:            port,
			AllowedOrigins:  parseList(getEnv("ALLOWED_ORIGINS", "http://localhost:3000")),
			ShutdownTimeout: time.Duration(shutdownSec) * time.Second,
		},
		GRPC: GRPCConfig{
			Address: getEnv("GRPC_ADDRESS", ":50051"),
		},
		Auth: AuthConfig{
			JWTSecret: getEnv("JWT_SECRET", defaultSecret),
			TokenTTL:  time.Duration(ttlHours) * time.Hour,
		},
		Storage: StorageConfig{
			ImagesDir: getEnv("IMAGES_DIR", "images"),
			UsersFile: getEnv("USERS_CONFIG_FILE", "config.json"),
		},
		Debug: getEnvBool("DEBUG", false),
	}
	if cfg.Storage.ImagesDir == "" {
		return nil, fmt.Errorf("IMAGES_DIR must not be empty")
	}
	if cfg.Storage.UsersFile == "" {
		return nil, fmt.Errorf("USERS_CONFIG_FILE must not be empty")
	}
	return cfg, nil
}

// getEnv retrieves an environment variable with a default fallback.
func getEnv(key, defaultVal string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultVal
}

// getEnvInt retrieves an environment variable as an integer with a default fallback.
func getEnvInt(key string, defaultVal int) (int, error) {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		intVal, err := strconv.Atoi(value)
		if err != nil {
			return 0, fmt.Errorf("invalid integer for %s: %w", key, err)
		}
		return intVal, nil
	}
	return defaultVal, nil
}

// getEnvBool treats true, 1, t and yes (any case) as true.
func getEnvBool(key string, defaultVal bool) bool {
	value, exists := os.LookupEnv(key)
	if !exists || value == "" {
		return defaultVal
	}
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "true", "1", "t", "yes":
		return true
	default:
		return false
	}
}

func parseList(s string) []string {
	var result []string
	for _, item := range strings.Split(s, ",") {
		item = strings.TrimSpace(item)
		if item != "" {
			result = append(result, item)
		}
	}
	return result
}

// String returns a string representation of the config (sensitive values are masked).
func (c *Config) String() string {
	return fmt.Sprintf("Config{HTTP: %s, gRPC: %s, Images: %s, Users: %s, Debug: %t, Auth: *** (masked) ***}",
		c.HTTP.Address(), c.GRPC.Address, c.Storage.ImagesDir, c.Storage.UsersFile, c.Debug)
}
