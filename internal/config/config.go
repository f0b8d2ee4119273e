package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type OAuthClient struct {
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	RedirectURL  string `yaml:"redirect_url"`
}

// Enabled reports whether both client credentials are set.
func (c OAuthClient) Enabled() bool {
	return c.ClientID != "" && c.ClientSecret != ""
}

type Config struct {
	Server struct {
		Port            string   `yaml:"port"`
		AllowedOrigins  []string `yaml:"allowed_origins"`
		ShutdownTimeout string   `yaml:"shutdown_timeout"`
	} `yaml:"server"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		TTL      string `yaml:"ttl"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Quiz struct {
		// cache TTL for loaded cases
		TTL string `yaml:"ttl"`
		// idle timeout for in-progress sessions
		SessionIdle string `yaml:"session_idle"`
		// seed file for the in-memory catalog when Postgres is not configured
		SeedFile string `yaml:"seed_file"`
	} `yaml:"quiz"`
	Auth struct {
		JWTSecret string `yaml:"jwt_secret"`
		TokenTTL  string `yaml:"token_ttl"`
		ResetTTL  string `yaml:"reset_ttl"`
		RateLimit struct {
			PerMinute int `yaml:"per_minute"`
			Burst     int `yaml:"burst"`
		} `yaml:"rate_limit"`
		Google OAuthClient `yaml:"google"`
		GitHub OAuthClient `yaml:"github"`
	} `yaml:"auth"`
	Storage struct {
		PublicBaseURL string `yaml:"public_base_url"`
		Minio         struct {
			Endpoint  string `yaml:"endpoint"`
			AccessKey string `yaml:"access_key"`
			SecretKey string `yaml:"secret_key"`
			Bucket    string `yaml:"bucket"`
			Region    string `yaml:"region"`
			UseSSL    bool   `yaml:"use_ssl"`
			URLExpiry string `yaml:"url_expiry"`
		} `yaml:"minio"`
	} `yaml:"storage"`
	Log struct {
		Level      string `yaml:"level"`
		File       string `yaml:"file"`
		MaxSizeMB  int    `yaml:"max_size_mb"`
		MaxBackups int    `yaml:"max_backups"`
		MaxAgeDays int    `yaml:"max_age_days"`
	} `yaml:"log"`
}

// Load reads YAML config from path and applies environment overrides.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	cfg.applyEnv(os.LookupEnv)
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) {
	for env, dst := range map[string]*string{
		"PORT":                       &c.Server.Port,
		"JWT_SECRET":                 &c.Auth.JWTSecret,
		"POSTGRES_URL":               &c.Postgres.URL,
		"REDIS_ADDR":                 &c.Redis.Addr,
		"REDIS_PASSWORD":             &c.Redis.Password,
		"OAUTH_GOOGLE_CLIENT_SECRET": &c.Auth.Google.ClientSecret,
		"OAUTH_GITHUB_CLIENT_SECRET": &c.Auth.GitHub.ClientSecret,
		"MINIO_SECRET_KEY":           &c.Storage.Minio.SecretKey,
	} {
		if v, ok := lookup(env); ok && v != "" {
			*dst = v
		}
	}
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
