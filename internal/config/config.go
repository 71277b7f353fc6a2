package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
	"github.com/wb-go/wbf/zlog"
)

// Config holds the main configuration for all three processes.
type Config struct {
	Server   Server   `mapstructure:"server"`
	Database Database `mapstructure:"database"`
	Storage  Storage  `mapstructure:"storage"`
	Rabbit   Rabbit   `mapstructure:"rabbit"`
	Logger   Logger   `mapstructure:"logger"`
	Upscale  Upscale  `mapstructure:"upscale"`
}

// Server holds HTTP server-related configuration.
type Server struct {
	HTTPPort string `mapstructure:"http_port"` // HTTP port to listen on
}

// Database holds database master and slave configuration.
type Database struct {
	Master DatabaseNode   `mapstructure:"master"`
	Slaves []DatabaseNode `mapstructure:"slaves"`

	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// DatabaseNode holds connection parameters for a single database node.
type DatabaseNode struct {
	Host    string `mapstructure:"host"`
	Port    string `mapstructure:"port"`
	User    string `mapstructure:"user"`
	Pass    string `mapstructure:"pass"`
	Name    string `mapstructure:"name"`
	SSLMode string `mapstructure:"ssl_mode"`
}

// Storage holds configuration for the image file storage.
type Storage struct {
	Dir string `mapstructure:"dir"` // root directory for image files
}

// Rabbit holds configuration for the message broker.
type Rabbit struct {
	URL         string        `mapstructure:"url"`          // amqp:// connection URL
	DialTimeout time.Duration `mapstructure:"dial_timeout"` // startup connect timeout
	Queues      Queues        `mapstructure:"queues"`
}

// Queues holds the names of the durable queues. The logging queue names are
// fixed by the wire contract; the job queue name is deployment configuration.
type Queues struct {
	Jobs         string `mapstructure:"jobs"`
	DatabaseLogs string `mapstructure:"database_logs"`
	WorkerLogs   string `mapstructure:"worker_logs"`
}

// Logger holds configuration for the aggregator's day-file sink.
type Logger struct {
	Dir string `mapstructure:"dir"` // directory for daily log files
}

// Upscale holds configuration for the super-resolution inference service.
type Upscale struct {
	Endpoint string        `mapstructure:"endpoint"` // base URL of the service
	Timeout  time.Duration `mapstructure:"timeout"`  // per-request timeout
}

// DSN returns the PostgreSQL DSN string for connecting to this database node.
func (n DatabaseNode) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		n.User, n.Pass, n.Host, n.Port, n.Name, n.SSLMode,
	)
}

// mustBindEnv binds critical environment variables to Viper keys.
//
// It panics if any environment variable cannot be bound.
func mustBindEnv() {
	bindings := map[string]string{
		"database.master.host": "DB_HOST",
		"database.master.port": "DB_PORT",
		"database.master.user": "DB_USER",
		"database.master.pass": "DB_PASSWORD",
		"database.master.name": "DB_NAME",
		"rabbit.url":           "RABBITMQ_URL",
	}

	for key, env := range bindings {
		if err := viper.BindEnv(key, env); err != nil {
			zlog.Logger.Panic().Err(err).Msgf("failed to bind env %s", env)
		}
	}
}

// MustLoad loads the configuration from the specified file path.
// It panics if the configuration file cannot be loaded or unmarshaled.
func MustLoad(path string) *Config {
	viper.SetConfigFile(path)
	viper.SetConfigType("yaml")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		zlog.Logger.Panic().Err(err).Msg("failed to read config")
	}

	mustBindEnv()

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		zlog.Logger.Panic().Err(err).Msgf("failed to unmarshal config: %v", err)
	}

	return &cfg
}
