package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	HTTP     HTTPConfig     `yaml:"http"`
	GRPC     GRPCConfig     `yaml:"grpc"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Kafka    KafkaConfig    `yaml:"kafka"`
	Booking  BookingConfig  `yaml:"booking"`
	Worker   WorkerConfig   `yaml:"worker"`
	Auth     AuthConfig     `yaml:"auth"`
	Log      LogConfig      `yaml:"log"`
}

type HTTPConfig struct {
	Address     string   `yaml:"address"`
	SwaggerDir  string   `yaml:"swagger_dir"`
	CORSOrigins []string `yaml:"cors_origins"`
}

type GRPCConfig struct {
	Address string `yaml:"address"`
}

type DatabaseConfig struct {
	// Driver is one of "pgx", "postgres" (lib/pq) or "memory".
	Driver   string `yaml:"driver"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
	SSLMode  string `yaml:"ssl_mode"`
	MaxConns int    `yaml:"max_conns"`
	Migrate  bool   `yaml:"migrate"`
	// Fixtures seeds the memory driver with flights and fare classes.
	Fixtures string `yaml:"fixtures"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s", d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

func (r RedisConfig) Enabled() bool {
	return r.Addr != ""
}

type KafkaConfig struct {
	Brokers               []string `yaml:"brokers"`
	BookingEventsTopic    string   `yaml:"booking_events_topic"`
	NotificationsTopic    string   `yaml:"notifications_topic"`
	PaymentRequestsTopic  string   `yaml:"payment_requests_topic"`
	PaymentCallbacksTopic string   `yaml:"payment_callbacks_topic"`
	GroupID               string   `yaml:"group_id"`
}

func (k KafkaConfig) Enabled() bool {
	return len(k.Brokers) > 0
}

type BookingConfig struct {
	MaxBookingHoldDurationHours int `yaml:"max_booking_hold_duration_hours"`
	HoldTTLMinutes              int `yaml:"hold_ttl_minutes"`
	MinHoldAgeMinutes           int `yaml:"min_hold_age_minutes"`
	SeatLockTTLSeconds          int `yaml:"seat_lock_ttl_seconds"`
	FlightsCacheTTL             int `yaml:"flights_cache_ttl_seconds"`
	MinFlightDurationMinutes    int `yaml:"min_flight_duration_minutes"`
	MinBookingInAdvanceHours    int `yaml:"min_booking_in_advance_hours"`
}

func (b BookingConfig) MaxHoldDuration() time.Duration {
	return time.Duration(b.MaxBookingHoldDurationHours) * time.Hour
}

func (b BookingConfig) HoldTTL() time.Duration {
	return time.Duration(b.HoldTTLMinutes) * time.Minute
}

func (b BookingConfig) MinHoldAge() time.Duration {
	return time.Duration(b.MinHoldAgeMinutes) * time.Minute
}

func (b BookingConfig) SeatLockTTL() time.Duration {
	return time.Duration(b.SeatLockTTLSeconds) * time.Second
}

func (b BookingConfig) FlightsCacheDuration() time.Duration {
	return time.Duration(b.FlightsCacheTTL) * time.Second
}

type WorkerConfig struct {
	ReclaimIntervalSeconds int `yaml:"reclaim_interval_seconds"`
	ReclaimBatchSize       int `yaml:"reclaim_batch_size"`
	IdempotencyTTLHours    int `yaml:"idempotency_ttl_hours"`
}

func (w WorkerConfig) ReclaimInterval() time.Duration {
	return time.Duration(w.ReclaimIntervalSeconds) * time.Second
}

type AuthConfig struct {
	// JWTSecret enables customer identification from bearer tokens. Empty means every booking is a guest booking.
	JWTSecret string `yaml:"jwt_secret"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

func LoadConfig(path string) (*Config, error) {
	// a missing .env is normal outside local development
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnv()
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("DATABASE_HOST"); v != "" {
		c.Database.Host = v
	}
	if v := os.Getenv("DATABASE_PASSWORD"); v != "" {
		c.Database.Password = v
	}
	if v := os.Getenv("DATABASE_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Database.Port = port
		}
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("JWT_SECRET"); v != "" {
		c.Auth.JWTSecret = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
}

func (c *Config) applyDefaults() {
	if c.HTTP.Address == "" {
		c.HTTP.Address = ":8080"
	}
	if c.GRPC.Address == "" {
		c.GRPC.Address = ":9090"
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "pgx"
	}
	if c.Database.SSLMode == "" {
		c.Database.SSLMode = "disable"
	}
	if c.Database.MaxConns == 0 {
		c.Database.MaxConns = 10
	}
	if c.Booking.MaxBookingHoldDurationHours == 0 {
		c.Booking.MaxBookingHoldDurationHours = 24
	}
	if c.Booking.SeatLockTTLSeconds == 0 {
		c.Booking.SeatLockTTLSeconds = 30
	}
	if c.Booking.FlightsCacheTTL == 0 {
		c.Booking.FlightsCacheTTL = 60
	}
	if c.Worker.ReclaimIntervalSeconds == 0 {
		c.Worker.ReclaimIntervalSeconds = 60
	}
	if c.Worker.ReclaimBatchSize == 0 {
		c.Worker.ReclaimBatchSize = 100
	}
	if c.Worker.IdempotencyTTLHours == 0 {
		c.Worker.IdempotencyTTLHours = 24
	}
	if c.Kafka.GroupID == "" {
		c.Kafka.GroupID = "seatbooking"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

func (c *Config) Validate() error {
	var errs []error
	switch c.Database.Driver {
	case "pgx", "postgres", "memory":
	default:
		errs = append(errs, fmt.Errorf("unknown database driver %q", c.Database.Driver))
	}
	if c.Booking.MaxBookingHoldDurationHours < 0 {
		errs = append(errs, errors.New("booking.max_booking_hold_duration_hours must not be negative"))
	}
	if c.Booking.HoldTTLMinutes < 0 || c.Booking.MinHoldAgeMinutes < 0 {
		errs = append(errs, errors.New("booking hold durations must not be negative"))
	}
	if c.Worker.ReclaimIntervalSeconds < 0 {
		errs = append(errs, errors.New("worker.reclaim_interval_seconds must not be negative"))
	}
	return errors.Join(errs...)
}
