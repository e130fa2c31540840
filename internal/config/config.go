package config // package config loads application configuration from environment variables

import (
	"fmt"      // fmt builds error messages for malformed duration values
	"log"      // log is used to report configuration errors and halt execution
	"os"       // os provides access to environment variables
	"strconv"  // strconv converts strings to other types
	"strings"  // strings helps split duration values into number and unit
	"time"     // time.Duration is the canonical type for every expiry below
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.  Secrets are kept per token type so that a leaked
// email-verification secret cannot be used to forge access tokens.
type Config struct {
	Env  string // application environment (e.g. "dev", "prod")
	Port string // HTTP port to listen on

	DBUser string // database username
	DBPass string // database password (optional)
	DBHost string // database host address
	DBPort string // database port number
	DBName string // database name

	AccessSecret        string // secret used to sign ACCESS tokens
	RefreshSecret       string // secret used to sign REFRESH tokens
	VerifyEmailSecret   string // secret used to sign EMAIL_VERIFICATION tokens
	ResetPasswordSecret string // secret used to sign PASSWORD_RESET tokens

	AccessExpiry        time.Duration // lifetime of ACCESS tokens
	RefreshExpiry       time.Duration // lifetime of REFRESH tokens
	VerifyEmailExpiry   time.Duration // lifetime of EMAIL_VERIFICATION tokens
	ResetPasswordExpiry time.Duration // lifetime of PASSWORD_RESET tokens

	MaxLoginAttempts int           // failed logins inside AttemptWindow before lockout
	AttemptWindow    time.Duration // rolling window over failed login attempts
	LockoutDuration  time.Duration // how long a locked account stays locked
	MaxSessions      int           // concurrent session cap per user
	SessionTimeout   time.Duration // inactivity after which a session is purged
	CleanupInterval  time.Duration // how often the background sweep runs
	LogRetention     time.Duration // how long security/audit rows are kept

	SuspiciousThreshold int           // WARNING+ events inside SuspiciousWindow before escalation
	SuspiciousWindow    time.Duration // rolling window for suspicious-activity counting

	BcryptCost int // bcrypt cost for password hashing
}

// Load reads configuration values from environment variables and returns a
// Config.  Required variables are enforced by must() and missing values
// cause the program to exit with a fatal log message.  Policy values all
// have documented defaults and may be omitted.
func Load() Config {
	return Config{
		Env:  must("APP_ENV"),  // environment (dev/test/prod)
		Port: must("APP_PORT"), // port to bind the HTTP server

		DBUser: must("DB_USER"),      // database user
		DBPass: os.Getenv("DB_PASS"), // database password (empty allowed)
		DBHost: must("DB_HOST"),      // database host
		DBPort: must("DB_PORT"),      // database port
		DBName: must("DB_NAME"),      // database name

		AccessSecret:        must("JWT_ACCESS_SECRET"),
		RefreshSecret:       must("JWT_REFRESH_SECRET"),
		VerifyEmailSecret:   must("JWT_VERIFY_EMAIL_SECRET"),
		ResetPasswordSecret: must("JWT_RESET_PASSWORD_SECRET"),

		AccessExpiry:        mustExpiry("ACCESS_TOKEN_EXPIRY", "15m"),
		RefreshExpiry:       mustExpiry("REFRESH_TOKEN_EXPIRY", "7d"),
		VerifyEmailExpiry:   mustExpiry("VERIFY_EMAIL_EXPIRY", "24h"),
		ResetPasswordExpiry: mustExpiry("RESET_PASSWORD_EXPIRY", "1h"),

		MaxLoginAttempts: envInt("MAX_LOGIN_ATTEMPTS", 5),
		AttemptWindow:    mustExpiry("LOGIN_ATTEMPT_WINDOW", "15m"),
		LockoutDuration:  mustExpiry("ACCOUNT_LOCKOUT_DURATION", "30m"),
		MaxSessions:      envInt("MAX_CONCURRENT_SESSIONS", 5),
		SessionTimeout:   mustExpiry("SESSION_TIMEOUT", "24h"),
		CleanupInterval:  mustExpiry("CLEANUP_INTERVAL", "1h"),
		LogRetention:     mustExpiry("LOG_RETENTION", "30d"),

		SuspiciousThreshold: envInt("SUSPICIOUS_ACTIVITY_THRESHOLD", 3),
		SuspiciousWindow:    mustExpiry("SUSPICIOUS_ACTIVITY_WINDOW", "10m"),

		BcryptCost: envInt("BCRYPT_COST", 10),
	}
}

// ParseExpiry parses a duration string using a fixed unit grammar: a decimal
// number followed by exactly one of s, m, h or d.  It exists because token
// expiries are commonly configured as "7d", which time.ParseDuration does
// not understand.  Malformed input is an explicit error, never a silent
// default.
func ParseExpiry(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if len(s) < 2 {
		return 0, fmt.Errorf("invalid duration %q: want <number><s|m|h|d>", s)
	}
	unit := s[len(s)-1]
	n, err := strconv.Atoi(s[:len(s)-1])
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid duration %q: want <number><s|m|h|d>", s)
	}
	switch unit {
	case 's':
		return time.Duration(n) * time.Second, nil
	case 'm':
		return time.Duration(n) * time.Minute, nil
	case 'h':
		return time.Duration(n) * time.Hour, nil
	case 'd':
		return time.Duration(n) * 24 * time.Hour, nil
	}
	return 0, fmt.Errorf("invalid duration %q: unknown unit %q", s, string(unit))
}

// must retrieves the value of a required environment variable.  If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}

// mustExpiry reads a duration env var in the s/m/h/d grammar, falling back
// to def when unset.  A set-but-malformed value is a configuration error
// and aborts startup.
func mustExpiry(key, def string) time.Duration {
	s := os.Getenv(key)
	if s == "" {
		s = def
	}
	d, err := ParseExpiry(s)
	if err != nil {
		log.Fatalf("invalid duration for %s: %v", key, err)
	}
	return d
}

// envInt reads an integer env var with a default for unset values.
func envInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Fatalf("invalid int for %s: %q", key, v)
	}
	return n
}
