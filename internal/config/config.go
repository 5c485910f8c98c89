package config

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"   validate:"required"`
	Database DatabaseConfig `mapstructure:"database" validate:"required"`
	Auth     AuthConfig     `mapstructure:"auth"     validate:"required"`
	Mail     MailConfig     `mapstructure:"mail"`
	Jobs     JobsConfig     `mapstructure:"jobs"     validate:"required"`
	Worker   WorkerConfig   `mapstructure:"worker"   validate:"required"`
}

// ServerConfig contains all HTTP server related settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port"      validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
}

// DatabaseConfig contains all database-related configuration settings.
type DatabaseConfig struct {
	URL string `mapstructure:"url" validate:"required,url"`
}

// AuthConfig contains authentication and token settings.
type AuthConfig struct {
	JWTSecret            string `mapstructure:"jwt_secret"             validate:"required,min=32"`
	TokenLifetimeMinutes int    `mapstructure:"token_lifetime_minutes" validate:"required,gt=0"`
	BcryptCost           int    `mapstructure:"bcrypt_cost"            validate:"gte=0,lte=31"`
}

// MailConfig contains the SMTP transport settings. An empty Host is the
// valid "disabled" state: notifications are still logged and recorded, but
// nothing leaves the process.
type MailConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"     validate:"gte=0,lte=65535"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"     validate:"omitempty,email"`
	// DefaultTo receives notifications whose log row has no recipient.
	DefaultTo string `mapstructure:"default_to" validate:"omitempty,email"`
}

// JobsConfig contains the background job schedules. The two jobs run at
// different times to avoid write contention; only the process holding the
// scheduler lock runs them.
type JobsConfig struct {
	// OverdueCron is the cron spec for the overdue sweep.
	OverdueCron string `mapstructure:"overdue_cron"  validate:"required"`
	// ArchivalCron is the cron spec for the archival job.
	ArchivalCron string `mapstructure:"archival_cron" validate:"required"`
	// ArchiveAfterDays is how long completed tasks stay live.
	ArchiveAfterDays int `mapstructure:"archive_after_days" validate:"required,gt=0"`
	// ReminderWindowDays is the look-ahead horizon for due-soon reminders.
	ReminderWindowDays int `mapstructure:"reminder_window_days" validate:"required,gt=0"`
	// SchedulerLockKey identifies the advisory lock arbitrating which
	// process runs the scheduler.
	SchedulerLockKey int64 `mapstructure:"scheduler_lock_key" validate:"required"`
}

// WorkerConfig contains the notification delivery worker settings.
type WorkerConfig struct {
	// QueueSize is the capacity of the in-process dispatch channel.
	QueueSize int `mapstructure:"queue_size" validate:"required,gt=0"`
	// RecoveryIntervalMinutes is how often the worker re-enqueues pending
	// log rows that were orphaned by a crash or a full queue.
	RecoveryIntervalMinutes int `mapstructure:"recovery_interval_minutes" validate:"required,gt=0"`
	// RecoveryMinAgeMinutes is how old a pending row must be before the
	// periodic recovery pass picks it up.
	RecoveryMinAgeMinutes int `mapstructure:"recovery_min_age_minutes" validate:"required,gt=0"`
}
