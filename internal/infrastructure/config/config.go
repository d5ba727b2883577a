package config

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/example/route-scheduler/internal/application/scheduler"
	"github.com/example/route-scheduler/internal/domain/booking"
	"github.com/gorilla/securecookie"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	ProviderEstimate = "estimate"
	ProviderGoogle   = "google"
)

type Config struct {
	Env      string `mapstructure:"ENV"`
	LogLevel string `mapstructure:"LOG_LEVEL"`

	HTTPAddr          string `mapstructure:"HTTP_ADDR"`
	MaxRequestsPerMin int    `mapstructure:"MAX_REQUESTS_PER_MIN"`
	// bcrypt hash of the admin API key; empty disables admin endpoints.
	AdminKeyHash string `mapstructure:"ADMIN_KEY_HASH"`

	// Empty DATABASE_URL runs against the in-memory store.
	DatabaseURL string `mapstructure:"DATABASE_URL"`

	HoldHashKeyB64  string        `mapstructure:"HOLD_HASH_KEY"`
	HoldBlockKeyB64 string        `mapstructure:"HOLD_BLOCK_KEY"`
	HoldTTL         time.Duration `mapstructure:"HOLD_TTL"`

	DistanceProvider string        `mapstructure:"DISTANCE_PROVIDER"`
	GoogleAPIKey     string        `mapstructure:"GOOGLE_API_KEY"`
	GeocodeQPS       float64       `mapstructure:"GEOCODE_QPS"`
	GeocodeTimeout   time.Duration `mapstructure:"GEOCODE_TIMEOUT"`
	// JSON file of address -> {lat, lng}; used when no Google key is set.
	AddressBook string `mapstructure:"ADDRESS_BOOK"`

	RedisAddr     string        `mapstructure:"REDIS_ADDR"`
	RedisPassword string        `mapstructure:"REDIS_PASSWORD"`
	RedisDB       int           `mapstructure:"REDIS_DB"`
	GeocacheTTL   time.Duration `mapstructure:"GEOCACHE_TTL"`

	SweepInterval time.Duration `mapstructure:"SWEEP_INTERVAL"`

	BaseName                       string  `mapstructure:"BASE_NAME"`
	BaseLatitude                   float64 `mapstructure:"BASE_LAT"`
	BaseLongitude                  float64 `mapstructure:"BASE_LNG"`
	MaxServiceRadiusMiles          float64 `mapstructure:"MAX_SERVICE_RADIUS_MILES"`
	MaxDistanceFromAnchorMiles     float64 `mapstructure:"MAX_DISTANCE_FROM_ANCHOR_MILES"`
	MaxTravelTimeFromAnchorMinutes int     `mapstructure:"MAX_TRAVEL_TIME_FROM_ANCHOR_MINUTES"`
	MaxBookingsPerDay              int     `mapstructure:"MAX_BOOKINGS_PER_DAY"`
	WorkStartHour                  int     `mapstructure:"WORK_START_HOUR"`
	WorkEndHour                    int     `mapstructure:"WORK_END_HOUR"`
	WorkingDays                    string  `mapstructure:"WORKING_DAYS"`
	DefaultTimeSlots               string  `mapstructure:"DEFAULT_TIME_SLOTS"`
	MaxDaysToSuggest               int     `mapstructure:"MAX_DAYS_TO_SUGGEST"`
	MinBookingGapMinutes           int     `mapstructure:"MIN_BOOKING_GAP_MINUTES"`

	HoldHashKey  []byte `mapstructure:"-"`
	HoldBlockKey []byte `mapstructure:"-"`
}

func setDefaults(v *viper.Viper) {
	p := scheduler.DefaultPolicy()

	v.SetDefault("ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("HTTP_ADDR", ":8080")
	v.SetDefault("MAX_REQUESTS_PER_MIN", 120)
	v.SetDefault("ADMIN_KEY_HASH", "")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("HOLD_HASH_KEY", "")
	v.SetDefault("HOLD_BLOCK_KEY", "")
	v.SetDefault("HOLD_TTL", 30*time.Minute)
	v.SetDefault("DISTANCE_PROVIDER", ProviderEstimate)
	v.SetDefault("GOOGLE_API_KEY", "")
	v.SetDefault("GEOCODE_QPS", 10.0)
	v.SetDefault("GEOCODE_TIMEOUT", 10*time.Second)
	v.SetDefault("ADDRESS_BOOK", "")
	v.SetDefault("REDIS_ADDR", "")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("GEOCACHE_TTL", 30*24*time.Hour)
	v.SetDefault("SWEEP_INTERVAL", time.Hour)

	v.SetDefault("BASE_NAME", p.Base.Name)
	v.SetDefault("BASE_LAT", p.Base.Latitude)
	v.SetDefault("BASE_LNG", p.Base.Longitude)
	v.SetDefault("MAX_SERVICE_RADIUS_MILES", p.MaxServiceRadiusMiles)
	v.SetDefault("MAX_DISTANCE_FROM_ANCHOR_MILES", p.MaxDistanceFromAnchorMiles)
	v.SetDefault("MAX_TRAVEL_TIME_FROM_ANCHOR_MINUTES", p.MaxTravelTimeFromAnchorMinutes)
	v.SetDefault("MAX_BOOKINGS_PER_DAY", p.MaxBookingsPerDay)
	v.SetDefault("WORK_START_HOUR", p.WorkStartHour)
	v.SetDefault("WORK_END_HOUR", p.WorkEndHour)
	v.SetDefault("WORKING_DAYS", "mon,tue,wed,thu,fri,sat")
	v.SetDefault("DEFAULT_TIME_SLOTS", "08:00,11:30,15:00")
	v.SetDefault("MAX_DAYS_TO_SUGGEST", p.MaxDaysToSuggest)
	v.SetDefault("MIN_BOOKING_GAP_MINUTES", p.MinBookingGapMinutes)
}

// Load reads .env (if present), then an optional config.yaml from ".",
// "./config" or file, with environment variables taking precedence.
func Load(file string) (Config, error) {
	// A missing .env is normal outside development.
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()
	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.resolveHoldKeys(); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) IsProduction() bool { return c.Env == "production" }

func (c Config) Validate() error {
	switch c.DistanceProvider {
	case ProviderEstimate:
	case ProviderGoogle:
		if c.GoogleAPIKey == "" {
			return fmt.Errorf("DISTANCE_PROVIDER=google requires GOOGLE_API_KEY")
		}
	default:
		return fmt.Errorf("DISTANCE_PROVIDER must be %q or %q (got %q)", ProviderEstimate, ProviderGoogle, c.DistanceProvider)
	}
	if c.GoogleAPIKey == "" && c.AddressBook == "" && c.IsProduction() {
		return fmt.Errorf("GOOGLE_API_KEY or ADDRESS_BOOK is required in production")
	}
	if c.GeocodeQPS <= 0 {
		return fmt.Errorf("GEOCODE_QPS must be > 0")
	}
	if c.HoldTTL <= 0 {
		return fmt.Errorf("HOLD_TTL must be > 0")
	}
	if c.GeocacheTTL <= 0 || c.SweepInterval <= 0 {
		return fmt.Errorf("GEOCACHE_TTL and SWEEP_INTERVAL must be > 0")
	}
	if c.MaxRequestsPerMin < 0 {
		return fmt.Errorf("MAX_REQUESTS_PER_MIN must be >= 0")
	}
	p, err := c.Policy()
	if err != nil {
		return err
	}
	return p.Validate()
}

// Policy builds the scheduling policy from the configured thresholds.
func (c Config) Policy() (scheduler.Policy, error) {
	days, err := ParseWeekdays(c.WorkingDays)
	if err != nil {
		return scheduler.Policy{}, err
	}
	slots, err := booking.ParseClocks(splitList(c.DefaultTimeSlots))
	if err != nil {
		return scheduler.Policy{}, fmt.Errorf("DEFAULT_TIME_SLOTS: %w", err)
	}
	return scheduler.Policy{
		Base: scheduler.Base{
			Name:      c.BaseName,
			Latitude:  c.BaseLatitude,
			Longitude: c.BaseLongitude,
		},
		MaxServiceRadiusMiles:          c.MaxServiceRadiusMiles,
		MaxDistanceFromAnchorMiles:     c.MaxDistanceFromAnchorMiles,
		MaxTravelTimeFromAnchorMinutes: c.MaxTravelTimeFromAnchorMinutes,
		MaxBookingsPerDay:              c.MaxBookingsPerDay,
		WorkStartHour:                  c.WorkStartHour,
		WorkEndHour:                    c.WorkEndHour,
		WorkingDays:                    days,
		DefaultTimeSlots:               slots,
		MaxDaysToSuggest:               c.MaxDaysToSuggest,
		MinBookingGapMinutes:           c.MinBookingGapMinutes,
	}, nil
}

var weekdays = map[string]time.Weekday{
	"sun": time.Sunday, "mon": time.Monday, "tue": time.Tuesday, "wed": time.Wednesday,
	"thu": time.Thursday, "fri": time.Friday, "sat": time.Saturday,
}

// ParseWeekdays accepts a comma separated list of day names ("mon,tue" or
// "Monday,Tuesday").
func ParseWeekdays(s string) ([]time.Weekday, error) {
	var out []time.Weekday
	seen := map[time.Weekday]bool{}
	for _, name := range splitList(s) {
		key := strings.ToLower(name)
		if len(key) > 3 {
			key = key[:3]
		}
		d, ok := weekdays[key]
		if !ok {
			return nil, fmt.Errorf("WORKING_DAYS: unknown day %q", name)
		}
		if !seen[d] {
			seen[d] = true
			out = append(out, d)
		}
	}
	return out, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// resolveHoldKeys decodes the hold-token keys. Outside production missing
// keys are generated, so tokens do not survive a restart.
func (c *Config) resolveHoldKeys() error {
	var err error
	if c.HoldHashKey, err = decodeKey("HOLD_HASH_KEY", c.HoldHashKeyB64, 32); err != nil {
		return err
	}
	if c.HoldBlockKey, err = decodeKey("HOLD_BLOCK_KEY", c.HoldBlockKeyB64, 32); err != nil {
		return err
	}
	if c.HoldHashKey == nil || c.HoldBlockKey == nil {
		if c.IsProduction() {
			return fmt.Errorf("HOLD_HASH_KEY and HOLD_BLOCK_KEY are required in production")
		}
		if c.HoldHashKey == nil {
			c.HoldHashKey = securecookie.GenerateRandomKey(32)
		}
		if c.HoldBlockKey == nil {
			c.HoldBlockKey = securecookie.GenerateRandomKey(32)
		}
	}
	return nil
}

func decodeKey(name, v string, size int) ([]byte, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil, nil
	}
	b, err := base64.StdEncoding.DecodeString(v)
	if err != nil {
		if b, err = base64.RawStdEncoding.DecodeString(v); err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
	}
	if len(b) != size {
		return nil, fmt.Errorf("%s must decode to %d bytes (got %d)", name, size, len(b))
	}
	return b, nil
}
