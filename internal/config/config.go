package config

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server        ServerConfig        `mapstructure:"server"        validate:"required"`
	Database      DatabaseConfig      `mapstructure:"database"      validate:"required"`
	Auth          AuthConfig          `mapstructure:"auth"          validate:"required"`
	Realtime      RealtimeConfig      `mapstructure:"realtime"      validate:"required"`
	Tasks         TasksConfig         `mapstructure:"tasks"         validate:"required"`
	Notifications NotificationsConfig `mapstructure:"notifications" validate:"required"`
	Admin         AdminConfig         `mapstructure:"admin"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port                   int    `mapstructure:"port"                     validate:"required,gt=0,lt=65536"`
	LogLevel               string `mapstructure:"log_level"                validate:"required,oneof=debug info warn error"`
	ShutdownTimeoutSeconds int    `mapstructure:"shutdown_timeout_seconds" validate:"gte=1"`
}

// DatabaseConfig contains all database-related configuration settings.
type DatabaseConfig struct {
	URL                    string `mapstructure:"url"                       validate:"required,url"`
	MaxOpenConns           int    `mapstructure:"max_open_conns"            validate:"gte=1"`
	MaxIdleConns           int    `mapstructure:"max_idle_conns"            validate:"gte=0"`
	ConnMaxLifetimeMinutes int    `mapstructure:"conn_max_lifetime_minutes" validate:"gte=1"`
}

// AuthConfig contains the bearer token settings used to resolve caller identity.
type AuthConfig struct {
	JWTSecret            string `mapstructure:"jwt_secret"             validate:"required,min=32"`
	Issuer               string `mapstructure:"issuer"                 validate:"required"`
	Audience             string `mapstructure:"audience"               validate:"required"`
	TokenLifetimeMinutes int    `mapstructure:"token_lifetime_minutes" validate:"required,gt=0"`
}

// RealtimeConfig tunes the websocket fan-out channel.
type RealtimeConfig struct {
	// SendBufferSize is the per-connection queue length; events beyond it are dropped.
	SendBufferSize      int      `mapstructure:"send_buffer_size"      validate:"gte=1,lte=4096"`
	WriteTimeoutSeconds int      `mapstructure:"write_timeout_seconds" validate:"gte=1"`
	AllowedOrigins      []string `mapstructure:"allowed_origins"`
}

// TasksConfig bounds task listing.
type TasksConfig struct {
	DefaultPageSize int `mapstructure:"default_page_size" validate:"gte=1,ltefield=MaxPageSize"`
	MaxPageSize     int `mapstructure:"max_page_size"     validate:"gte=1,lte=500"`
}

// NotificationsConfig controls archiving and retention of delivered events.
type NotificationsConfig struct {
	Archive       bool   `mapstructure:"archive"`
	RetentionDays int    `mapstructure:"retention_days" validate:"gte=1"`
	PruneSchedule string `mapstructure:"prune_schedule" validate:"required"`
}

// AdminConfig describes the bootstrap administrator created on first start.
type AdminConfig struct {
	Email    string `mapstructure:"email"     validate:"omitempty,email"`
	FullName string `mapstructure:"full_name"`
	Password string `mapstructure:"password"  validate:"omitempty,min=12,max=72"`
}
