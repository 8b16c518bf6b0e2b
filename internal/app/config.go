package app

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/yungbote/syncraft-backend/internal/http/middleware"
	"github.com/yungbote/syncraft-backend/internal/pkg/envutil"
	"github.com/yungbote/syncraft-backend/internal/pkg/logger"
)

type Config struct {
	Environment    string
	Version        string
	ServiceName    string
	Addr           string
	AllowedOrigins []string

	JWTSecret      string
	JWTIssuer      string
	AccessTokenTTL time.Duration
	AuthDisabled   bool
	LocalUserID    string
	LocalUsername  string

	AutoMigrate bool
}

// LoadEnv reads .env (when present) and then the YAML file named by
// CONFIG_FILE. Neither overrides a variable that is already set.
func LoadEnv() error {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("load .env: %w", err)
	}
	path := strings.TrimSpace(os.Getenv("CONFIG_FILE"))
	if path == "" {
		return nil
	}
	return applyYAMLOverlay(path)
}

// applyYAMLOverlay sets every top-level scalar in the file as an environment
// variable (keys upper-cased) unless the environment already defines it.
func applyYAMLOverlay(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	var values map[string]any
	if err := yaml.Unmarshal(raw, &values); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	for k, v := range values {
		key := strings.ToUpper(strings.TrimSpace(k))
		if key == "" || v == nil {
			continue
		}
		if _, set := os.LookupEnv(key); set {
			continue
		}
		var val string
		switch t := v.(type) {
		case []any:
			parts := make([]string, 0, len(t))
			for _, p := range t {
				parts = append(parts, fmt.Sprint(p))
			}
			val = strings.Join(parts, ",")
		case map[string]any:
			return fmt.Errorf("config %s: key %q must be a scalar or list", path, k)
		default:
			val = fmt.Sprint(t)
		}
		if err := os.Setenv(key, val); err != nil {
			return fmt.Errorf("set %s: %w", key, err)
		}
	}
	return nil
}

func LoadConfig(log *logger.Logger) Config {
	port := envutil.GetEnv("PORT", "8080", log)
	return Config{
		Environment:    envutil.GetEnv("APP_ENV", "development", log),
		Version:        envutil.GetEnv("APP_VERSION", "dev", log),
		ServiceName:    envutil.GetEnv("OTEL_SERVICE_NAME", "syncraft-api", log),
		Addr:           envutil.GetEnv("HTTP_ADDR", ":"+port, log),
		AllowedOrigins: splitList(envutil.GetEnv("CORS_ALLOWED_ORIGINS", strings.Join(middleware.DefaultAllowedOrigins, ","), log)),
		JWTSecret:      envutil.GetEnv("JWT_SECRET", "", log),
		JWTIssuer:      envutil.GetEnv("JWT_ISSUER", "syncraft", log),
		AccessTokenTTL: envutil.GetEnvAsDuration("ACCESS_TOKEN_TTL", 24*time.Hour, log),
		AuthDisabled:   envutil.GetEnvAsBool("AUTH_DISABLED", false, log),
		LocalUserID:    envutil.GetEnv("LOCAL_USER_ID", "local", log),
		LocalUsername:  envutil.GetEnv("LOCAL_USERNAME", "local", log),
		AutoMigrate:    envutil.GetEnvAsBool("DB_AUTO_MIGRATE", true, log),
	}
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
