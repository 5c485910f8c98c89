package config

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Load reads configuration from environment variables and an optional
// config.yaml in the working directory. Environment variables take
// precedence and use the TASKTRACK_ prefix with underscores for nesting,
// e.g. TASKTRACK_DATABASE_URL or TASKTRACK_JOBS_OVERDUE_CRON.
// Returns a populated Config or an error if loading or validation fails.
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvPrefix("TASKTRACK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// A missing config file is fine; env vars alone can carry everything.
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// AutomaticEnv only resolves keys viper already knows about, so bind
	// the nested keys explicitly.
	for _, key := range []string{
		"server.port", "server.log_level",
		"database.url",
		"auth.jwt_secret", "auth.token_lifetime_minutes", "auth.bcrypt_cost",
		"mail.host", "mail.port", "mail.username", "mail.password",
		"mail.from", "mail.default_to",
		"jobs.overdue_cron", "jobs.archival_cron", "jobs.archive_after_days",
		"jobs.reminder_window_days", "jobs.scheduler_lock_key",
		"worker.queue_size", "worker.recovery_interval_minutes",
		"worker.recovery_min_age_minutes",
	} {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("failed to bind env for %s: %w", key, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	validate := validator.New()
	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// setDefaults registers the defaults for everything that has a sensible
// one. Required secrets (database URL, JWT secret) deliberately have none.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.log_level", "info")

	v.SetDefault("auth.token_lifetime_minutes", 30)
	v.SetDefault("auth.bcrypt_cost", 10)

	v.SetDefault("mail.port", 587)

	// Sweep mid-morning, archive in the small hours.
	v.SetDefault("jobs.overdue_cron", "0 9 * * *")
	v.SetDefault("jobs.archival_cron", "0 2 * * *")
	v.SetDefault("jobs.archive_after_days", 30)
	v.SetDefault("jobs.reminder_window_days", 2)
	v.SetDefault("jobs.scheduler_lock_key", 7342)

	v.SetDefault("worker.queue_size", 256)
	v.SetDefault("worker.recovery_interval_minutes", 5)
	v.SetDefault("worker.recovery_min_age_minutes", 10)
}
