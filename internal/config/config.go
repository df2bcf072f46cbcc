package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/Harborview-Hotels/service-booking/internal/platform/database"
)

// SchedulerConfig holds the reconciliation sweep cadences.
type SchedulerConfig struct {
	BookingSweepInterval time.Duration
	RoomSweepInterval    time.Duration
}

// ServiceConfig holds all configuration for the booking service.
type ServiceConfig struct {
	Port      string
	AppEnv    string
	DB        database.PostgresConfig
	JWTSecret string
	Kafka     struct {
		Brokers []string
	}
	Scheduler SchedulerConfig
}

// Load reads configuration from BOOKING_-prefixed environment variables with
// sensible defaults for local development.
func Load() (*ServiceConfig, error) {
	v := viper.New()
	v.SetEnvPrefix("BOOKING")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("service_port", ":8080")
	v.SetDefault("app_env", "development")
	v.SetDefault("db_host", "localhost")
	v.SetDefault("db_port", "5432")
	v.SetDefault("db_user", "booking")
	v.SetDefault("db_password", "booking")
	v.SetDefault("db_name", "booking")
	v.SetDefault("db_sslmode", "disable")
	v.SetDefault("jwt_secret", "dev-secret")
	v.SetDefault("kafka_brokers", "localhost:9092")
	v.SetDefault("booking_sweep_interval", "5m")
	v.SetDefault("room_sweep_interval", "1h")

	cfg := &ServiceConfig{
		Port:      v.GetString("service_port"),
		AppEnv:    v.GetString("app_env"),
		JWTSecret: v.GetString("jwt_secret"),
		DB: database.PostgresConfig{
			Host:     v.GetString("db_host"),
			Port:     v.GetString("db_port"),
			User:     v.GetString("db_user"),
			Password: v.GetString("db_password"),
			DBName:   v.GetString("db_name"),
			SSLMode:  v.GetString("db_sslmode"),
		},
		Scheduler: SchedulerConfig{
			BookingSweepInterval: v.GetDuration("booking_sweep_interval"),
			RoomSweepInterval:    v.GetDuration("room_sweep_interval"),
		},
	}
	cfg.Kafka.Brokers = strings.Split(v.GetString("kafka_brokers"), ",")

	return cfg, nil
}
