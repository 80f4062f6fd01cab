package config

import (
	"os"
	"strconv"
	"strings"
)

// LoadFromEnv applies environment overrides with a prefix (e.g. BULWARK_).
// Malformed values are ignored and the base value is kept.
func LoadFromEnv(prefix string, base Config) Config {
	get := func(key string) string { return os.Getenv(prefix + key) }

	setString(get("ADDRESS"), &base.Address)
	setDuration(get("READ_TIMEOUT"), &base.ReadTimeout)
	setDuration(get("WRITE_TIMEOUT"), &base.WriteTimeout)
	setDuration(get("IDLE_TIMEOUT"), &base.IdleTimeout)
	setDuration(get("READ_HEADER_TIMEOUT"), &base.ReadHeaderTimeout)
	setDuration(get("SHUTDOWN_TIMEOUT"), &base.ShutdownTimeout)
	setInt(get("MAX_HEADER_BYTES"), &base.MaxHeaderBytes)
	setString(get("LOG_LEVEL"), &base.LogLevel)
	setString(get("LOG_FORMAT"), &base.LogFormat)

	setString(get("JWT_SECRET"), &base.JWT.Secret)
	setString(get("JWT_KEY_ID"), &base.JWT.KeyID)
	setString(get("JWT_ISSUER"), &base.JWT.Issuer)
	setString(get("JWT_AUDIENCE"), &base.JWT.Audience)
	setDuration(get("JWT_LEEWAY"), &base.JWT.Leeway)
	setDuration(get("JWT_TIMEOUT"), &base.JWT.Timeout)

	setList(get("CORS_ALLOWED_ORIGINS"), &base.CORS.AllowedOrigins)
	setList(get("CORS_ALLOWED_METHODS"), &base.CORS.AllowedMethods)
	setList(get("CORS_ALLOWED_HEADERS"), &base.CORS.AllowedHeaders)
	setDuration(get("CORS_MAX_AGE"), &base.CORS.MaxAge)

	setInt(get("RATE_LIMIT"), &base.RateLimit.Limit)
	setDuration(get("RATE_LIMIT_WINDOW"), &base.RateLimit.Window)
	setString(get("RATE_LIMIT_BACKEND"), &base.RateLimit.Backend)
	setBool(get("RATE_LIMIT_TRUST_PROXY"), &base.RateLimit.TrustProxy)

	setString(get("SESSION_NAME"), &base.Session.Name)
	setDuration(get("SESSION_TTL"), &base.Session.TTL)
	setString(get("SESSION_BACKEND"), &base.Session.Backend)
	setBool(get("SESSION_SECURE"), &base.Session.Secure)

	setString(get("REDIS_ADDRESS"), &base.Redis.Address)
	setString(get("REDIS_PASSWORD"), &base.Redis.Password)
	setInt(get("REDIS_DB"), &base.Redis.DB)
	setString(get("REDIS_PREFIX"), &base.Redis.Prefix)

	setString(get("IDENTITY_DSN"), &base.Identity.DSN)
	setString(get("IDENTITY_TABLE"), &base.Identity.Table)
	setDuration(get("IDENTITY_CACHE_TTL"), &base.Identity.CacheTTL)
	setInt(get("IDENTITY_CACHE_SIZE"), &base.Identity.CacheSize)

	return base
}

func setString(value string, dst *string) {
	if value != "" {
		*dst = value
	}
}

func setDuration(value string, dst *Duration) {
	if value == "" {
		return
	}
	var d Duration
	if err := d.parse(value); err == nil {
		*dst = d
	}
}

func setInt(value string, dst *int) {
	if value == "" {
		return
	}
	if n, err := strconv.Atoi(value); err == nil {
		*dst = n
	}
}

func setBool(value string, dst *bool) {
	if value == "" {
		return
	}
	if enabled, err := strconv.ParseBool(value); err == nil {
		*dst = enabled
	}
}

func setList(value string, dst *[]string) {
	if value == "" {
		return
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) > 0 {
		*dst = out
	}
}
