package dbconfig

import (
	"net"
	"net/url"
	"os"
)

// Config holds Postgres connection settings for the pgx pool. A full
// DATABASE_URL, when set, wins over the individual DB_* fields.
type Config struct {
	URL          string
	Host         string
	Port         string
	User         string
	Password     string
	Database     string
	SSLMode      string
	PoolMaxConns string
}

// Load reads connection settings from the environment.
func Load() Config {
	return Config{
		URL:          os.Getenv("DATABASE_URL"),
		Host:         envOr("DB_HOST", "localhost"),
		Port:         envOr("DB_PORT", "5432"),
		User:         envOr("DB_USER", "postgres"),
		Password:     envOr("DB_PASSWORD", "postgres"),
		Database:     envOr("DB_NAME", "hotstreak"),
		SSLMode:      envOr("DB_SSLMODE", "disable"),
		PoolMaxConns: os.Getenv("DB_POOL_MAX_CONNS"),
	}
}

// DSN builds the pool connection URL. Credentials go through url.UserPassword
// so passwords with reserved characters survive the round trip.
func (c Config) DSN() string {
	if c.URL != "" {
		return c.URL
	}

	q := url.Values{}
	q.Set("sslmode", c.SSLMode)
	if c.PoolMaxConns != "" {
		q.Set("pool_max_conns", c.PoolMaxConns)
	}

	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     net.JoinHostPort(c.Host, c.Port),
		Path:     "/" + c.Database,
		RawQuery: q.Encode(),
	}
	return u.String()
}

// Addr returns the host:port pair, for log context.
func (c Config) Addr() string {
	return net.JoinHostPort(c.Host, c.Port)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
