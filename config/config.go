package config

import "time"

// Config holds app configuration.
type Config struct {
	Address           string   `json:"address" yaml:"address"`
	ReadTimeout       Duration `json:"read_timeout" yaml:"read_timeout"`
	WriteTimeout      Duration `json:"write_timeout" yaml:"write_timeout"`
	IdleTimeout       Duration `json:"idle_timeout" yaml:"idle_timeout"`
	ReadHeaderTimeout Duration `json:"read_header_timeout" yaml:"read_header_timeout"`
	ShutdownTimeout   Duration `json:"shutdown_timeout" yaml:"shutdown_timeout"`
	MaxHeaderBytes    int      `json:"max_header_bytes" yaml:"max_header_bytes"`

	LogLevel  string `json:"log_level" yaml:"log_level"`
	LogFormat string `json:"log_format" yaml:"log_format"`

	JWT       JWT       `json:"jwt" yaml:"jwt"`
	CORS      CORS      `json:"cors" yaml:"cors"`
	RateLimit RateLimit `json:"rate_limit" yaml:"rate_limit"`
	Session   Session   `json:"session" yaml:"session"`
	Redis     Redis     `json:"redis" yaml:"redis"`
	Identity  Identity  `json:"identity" yaml:"identity"`
}

// JWT configures bearer token verification.
type JWT struct {
	Secret   string   `json:"secret" yaml:"secret"`
	KeyID    string   `json:"key_id" yaml:"key_id"`
	Issuer   string   `json:"issuer" yaml:"issuer"`
	Audience string   `json:"audience" yaml:"audience"`
	Leeway   Duration `json:"leeway" yaml:"leeway"`
	Timeout  Duration `json:"timeout" yaml:"timeout"`
}

// CORS configures the allow-list applied to every response.
type CORS struct {
	AllowedOrigins []string `json:"allowed_origins" yaml:"allowed_origins"`
	AllowedMethods []string `json:"allowed_methods" yaml:"allowed_methods"`
	AllowedHeaders []string `json:"allowed_headers" yaml:"allowed_headers"`
	MaxAge         Duration `json:"max_age" yaml:"max_age"`
}

// RateLimit configures the per-client request quota.
type RateLimit struct {
	Limit      int      `json:"limit" yaml:"limit"`
	Window     Duration `json:"window" yaml:"window"`
	Backend    string   `json:"backend" yaml:"backend"`
	TrustProxy bool     `json:"trust_proxy" yaml:"trust_proxy"`
}

// Session configures the session store that carries anti-forgery tokens.
type Session struct {
	Name    string   `json:"name" yaml:"name"`
	TTL     Duration `json:"ttl" yaml:"ttl"`
	Backend string   `json:"backend" yaml:"backend"`
	Secure  bool     `json:"secure" yaml:"secure"`
}

// Redis configures the shared Redis client.
type Redis struct {
	Address  string `json:"address" yaml:"address"`
	Password string `json:"password" yaml:"password"`
	DB       int    `json:"db" yaml:"db"`
	Prefix   string `json:"prefix" yaml:"prefix"`
}

// Identity configures the principal lookup collaborator.
type Identity struct {
	DSN             string   `json:"dsn" yaml:"dsn"`
	Table           string   `json:"table" yaml:"table"`
	CacheTTL        Duration `json:"cache_ttl" yaml:"cache_ttl"`
	CacheSize       int      `json:"cache_size" yaml:"cache_size"`
	BreakerFailures uint32   `json:"breaker_failures" yaml:"breaker_failures"`
	BreakerOpenFor  Duration `json:"breaker_open_for" yaml:"breaker_open_for"`
}

const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// Default returns safe defaults.
func Default() Config {
	return Config{
		Address:           ":8080",
		ReadTimeout:       Duration(10 * time.Second),
		WriteTimeout:      Duration(20 * time.Second),
		IdleTimeout:       Duration(60 * time.Second),
		ReadHeaderTimeout: Duration(5 * time.Second),
		ShutdownTimeout:   Duration(10 * time.Second),
		MaxHeaderBytes:    1 << 20,
		LogLevel:          "info",
		LogFormat:         "text",
		JWT: JWT{
			Timeout: Duration(2 * time.Second),
		},
		CORS: CORS{
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders: []string{"Content-Type", "Authorization", "X-Csrf-Token"},
			MaxAge:         Duration(86400 * time.Second),
		},
		RateLimit: RateLimit{
			Limit:   1000,
			Window:  Duration(3600 * time.Second),
			Backend: BackendMemory,
		},
		Session: Session{
			Name:    "bulwark_session",
			TTL:     Duration(24 * time.Hour),
			Backend: BackendMemory,
		},
		Redis: Redis{
			Address: "127.0.0.1:6379",
			Prefix:  "bulwark:",
		},
		Identity: Identity{
			Table:           "users",
			CacheTTL:        Duration(30 * time.Second),
			CacheSize:       10000,
			BreakerFailures: 5,
			BreakerOpenFor:  Duration(30 * time.Second),
		},
	}
}
