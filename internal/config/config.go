package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	AppPort  string
	AppEnv   string
	LogLevel string

	Admins Roster

	DBDriver   string
	DBLogLevel string

	MySQLHost string
	MySQLPort string
	MySQLDB   string
	MySQLUser string
	MySQLPass string

	PostgresDSN string
	SQLitePath  string

	// RedisAddr empty disables idempotency and forces the in-process locker.
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	IdempTTLSecs int

	LockBackend string

	MonitorInterval  time.Duration
	NotifyTimeout    time.Duration
	RequestRetention time.Duration

	Notifier          string
	SMTPHost          string
	SMTPPort          string
	SMTPUsername      string
	SMTPPassword      string
	NotifyFrom        string
	NotifyEmailDomain string

	AnnounceChannelID string
	JWTSecret         string
}

func getenv(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func getint(k string, d int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return d
}

func getduration(k string, d time.Duration) time.Duration {
	if v := os.Getenv(k); v != "" {
		if n, err := time.ParseDuration(v); err == nil {
			return n
		}
	}
	return d
}

func Load() *Config {
	return &Config{
		AppPort:  getenv("APP_PORT", "8080"),
		AppEnv:   getenv("APP_ENV", "production"),
		LogLevel: getenv("LOG_LEVEL", "info"),

		Admins: ParseRoster(os.Getenv("ADMIN_USER_IDS")),

		DBDriver:   strings.ToLower(getenv("DB_DRIVER", "mysql")),
		DBLogLevel: getenv("DB_LOG_LEVEL", "warn"),

		MySQLHost: getenv("MYSQL_HOST", "mysql"),
		MySQLPort: getenv("MYSQL_PORT", "3306"),
		MySQLDB:   getenv("MYSQL_DB", "ledger"),
		MySQLUser: getenv("MYSQL_USER", "ledger"),
		MySQLPass: getenv("MYSQL_PASS", "ledger"),

		PostgresDSN: os.Getenv("POSTGRES_DSN"),
		SQLitePath:  getenv("SQLITE_PATH", "ledger.db"),

		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       getint("REDIS_DB", 0),

		IdempTTLSecs: getint("IDEMPOTENCY_TTL_SECONDS", 300),

		LockBackend: strings.ToLower(getenv("LOCK_BACKEND", "memory")),

		MonitorInterval:  getduration("MONITOR_INTERVAL", time.Hour),
		NotifyTimeout:    getduration("NOTIFY_TIMEOUT", 5*time.Second),
		RequestRetention: getduration("REQUEST_RETENTION", 24*time.Hour),

		Notifier:          strings.ToLower(getenv("NOTIFIER", "log")),
		SMTPHost:          os.Getenv("SMTP_HOST"),
		SMTPPort:          getenv("SMTP_PORT", "587"),
		SMTPUsername:      os.Getenv("SMTP_USERNAME"),
		SMTPPassword:      os.Getenv("SMTP_PASSWORD"),
		NotifyFrom:        getenv("NOTIFY_FROM", "ledger@localhost"),
		NotifyEmailDomain: os.Getenv("NOTIFY_EMAIL_DOMAIN"),

		AnnounceChannelID: os.Getenv("ANNOUNCE_CHANNEL_ID"),
		JWTSecret:         os.Getenv("JWT_SECRET"),
	}
}

func (c *Config) Validate() error {
	if c.AppPort == "" {
		return errors.New("missing APP_PORT")
	}
	if c.Admins.Len() == 0 {
		return errors.New("missing ADMIN_USER_IDS")
	}
	switch c.DBDriver {
	case "mysql":
		if c.MySQLHost == "" || c.MySQLPort == "" || c.MySQLDB == "" || c.MySQLUser == "" {
			return errors.New("missing MySQL config (MYSQL_HOST/PORT/DB/USER)")
		}
		if _, err := net.LookupPort("tcp", c.MySQLPort); err != nil {
			return fmt.Errorf("invalid MYSQL_PORT %q: %w", c.MySQLPort, err)
		}
	case "postgres":
		if c.PostgresDSN == "" {
			return errors.New("missing POSTGRES_DSN")
		}
	case "sqlite":
		if c.SQLitePath == "" {
			return errors.New("missing SQLITE_PATH")
		}
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.DBDriver)
	}
	switch c.LockBackend {
	case "memory":
	case "redis":
		if c.RedisAddr == "" {
			return errors.New("LOCK_BACKEND=redis requires REDIS_ADDR")
		}
	default:
		return fmt.Errorf("unsupported LOCK_BACKEND %q", c.LockBackend)
	}
	switch c.Notifier {
	case "log":
	case "email":
		if c.SMTPHost == "" {
			return errors.New("NOTIFIER=email requires SMTP_HOST")
		}
	default:
		return fmt.Errorf("unsupported NOTIFIER %q", c.Notifier)
	}
	if c.MonitorInterval <= 0 {
		return errors.New("MONITOR_INTERVAL must be positive")
	}
	if c.RequestRetention < 0 {
		return errors.New("REQUEST_RETENTION must not be negative")
	}
	return nil
}

func (c *Config) mysqlAddr() string { return net.JoinHostPort(c.MySQLHost, c.MySQLPort) }

func (c *Config) MySQLDSN() string {
	// parseTime needed for DATETIME
	return fmt.Sprintf("%s:%s@tcp(%s)/%s?parseTime=true&loc=UTC&charset=utf8mb4,utf8",
		c.MySQLUser, c.MySQLPass, c.mysqlAddr(), c.MySQLDB)
}

// DSN returns the connection string for the configured DB_DRIVER.
func (c *Config) DSN() string {
	switch c.DBDriver {
	case "postgres":
		return c.PostgresDSN
	case "sqlite":
		return c.SQLitePath
	default:
		return c.MySQLDSN()
	}
}
