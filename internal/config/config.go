package config

import (
	"encoding/base64"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/example/poolside-scheduler/internal/booking"
)

type Config struct {
	HTTPAddr string
	LogLevel string

	// Persistence: a Postgres URL, or a data directory for file-backed
	// token and outcome records. Exactly one is required.
	DatabaseURL string
	DataDir     string

	// Optional Redis for the cross-process run lock. With Postgres
	// configured, advisory locks are used instead.
	RedisAddr     string
	RedisPassword string

	// Optional 16/24/32-byte key sealing the file token record at rest.
	CredEncKey []byte

	// Remote API.
	IdentityURL string
	TablesURL   string
	ClientID    string

	// Booking parameters.
	Venues       []booking.Venue
	TargetTime   booking.TimeOfDay
	LeadHours    int
	Tolerance    time.Duration
	Blackout     []time.Weekday
	PartySize    int
	PhoneCountry string
	PhoneNumber  string
	GuestNotes   string

	AuthSafetyMargin time.Duration
	MaxVenueRetries  int
	RetryBackoff     time.Duration

	// Trigger cadence.
	CronSpec string
	Timezone *time.Location
}

func FromEnv() (Config, error) {
	cfg := Config{
		HTTPAddr:    envDefault("HTTP_ADDR", ":8080"),
		LogLevel:    envDefault("LOG_LEVEL", "info"),
		DatabaseURL: strings.TrimSpace(os.Getenv("DATABASE_URL")),
		DataDir:     strings.TrimSpace(os.Getenv("DATA_DIR")),

		RedisAddr:     strings.TrimSpace(os.Getenv("REDIS_ADDR")),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),

		IdentityURL: strings.TrimSpace(os.Getenv("IDENTITY_URL")),
		TablesURL:   strings.TrimSpace(os.Getenv("TABLES_URL")),
		ClientID:    strings.TrimSpace(os.Getenv("CLIENT_ID")),

		PhoneCountry: envDefault("PHONE_COUNTRY", "US"),
		PhoneNumber:  strings.TrimSpace(os.Getenv("PHONE_NUMBER")),
		GuestNotes:   os.Getenv("GUEST_NOTES"),

		CronSpec: envDefault("CRON_SPEC", "*/5 11-13 * * *"),
	}

	if cfg.DatabaseURL == "" && cfg.DataDir == "" {
		return cfg, fmt.Errorf("one of DATABASE_URL or DATA_DIR is required")
	}
	if cfg.ClientID == "" {
		return cfg, fmt.Errorf("CLIENT_ID is required")
	}
	if cfg.PhoneNumber == "" {
		return cfg, fmt.Errorf("PHONE_NUMBER is required")
	}

	venues, err := booking.ParseVenueList(envDefault("VENUES", "NY_POOLSIDE=NY Poolside,DUMBO_POOL=Dumbo Pool"))
	if err != nil {
		return cfg, fmt.Errorf("VENUES: %w", err)
	}
	cfg.Venues = venues

	cfg.TargetTime, err = booking.ParseTimeOfDay(envDefault("TARGET_TIME", "13:30"))
	if err != nil {
		return cfg, fmt.Errorf("TARGET_TIME: %w", err)
	}

	if cfg.LeadHours, err = envInt("LEAD_HOURS", 48); err != nil {
		return cfg, err
	}
	if cfg.PartySize, err = envInt("PARTY_SIZE", 2); err != nil {
		return cfg, err
	}
	if cfg.MaxVenueRetries, err = envInt("MAX_VENUE_RETRIES", 2); err != nil {
		return cfg, err
	}

	if cfg.Tolerance, err = envDuration("TRIGGER_TOLERANCE", 5*time.Minute); err != nil {
		return cfg, err
	}
	if cfg.AuthSafetyMargin, err = envDuration("AUTH_SAFETY_MARGIN", 5*time.Minute); err != nil {
		return cfg, err
	}
	if cfg.RetryBackoff, err = envDuration("RETRY_BACKOFF", 2*time.Second); err != nil {
		return cfg, err
	}

	if cfg.Blackout, err = parseWeekdays(os.Getenv("BLACKOUT_DAYS")); err != nil {
		return cfg, fmt.Errorf("BLACKOUT_DAYS: %w", err)
	}

	tz := envDefault("TIMEZONE", "America/New_York")
	if cfg.Timezone, err = time.LoadLocation(tz); err != nil {
		return cfg, fmt.Errorf("TIMEZONE: %w", err)
	}

	if v := strings.TrimSpace(os.Getenv("CRED_ENC_KEY")); v != "" {
		key, err := b64(v)
		if err != nil {
			return cfg, fmt.Errorf("CRED_ENC_KEY: %w", err)
		}
		switch len(key) {
		case 16, 24, 32:
		default:
			return cfg, fmt.Errorf("CRED_ENC_KEY must decode to 16, 24 or 32 bytes (got %d)", len(key))
		}
		cfg.CredEncKey = key
	}

	return cfg, nil
}

// Window builds the booking window calculator from this configuration.
func (c Config) Window() booking.Window {
	return booking.Window{
		TargetTime: c.TargetTime,
		LeadHours:  c.LeadHours,
		Tolerance:  c.Tolerance,
		Location:   c.Timezone,
		Blackout:   c.Blackout,
	}
}

var weekdays = map[string]time.Weekday{
	"sunday": time.Sunday, "monday": time.Monday, "tuesday": time.Tuesday,
	"wednesday": time.Wednesday, "thursday": time.Thursday,
	"friday": time.Friday, "saturday": time.Saturday,
}

func parseWeekdays(s string) ([]time.Weekday, error) {
	var out []time.Weekday
	for _, part := range strings.Split(s, ",") {
		part = strings.ToLower(strings.TrimSpace(part))
		if part == "" {
			continue
		}
		d, ok := weekdays[part]
		if !ok {
			return nil, fmt.Errorf("unknown weekday %q", part)
		}
		out = append(out, d)
	}
	return out, nil
}

func envDefault(k, d string) string {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return d
	}
	return v
}

func envInt(k string, d int) (int, error) {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return d, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", k, err)
	}
	return n, nil
}

func envDuration(k string, d time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return d, nil
	}
	out, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", k, err)
	}
	return out, nil
}

func b64(s string) ([]byte, error) {
	if b, err := base64.StdEncoding.DecodeString(s); err == nil {
		return b, nil
	}
	return base64.RawStdEncoding.DecodeString(s)
}
