package config

import (
	"github.com/spf13/viper"
)

// Config carries the service settings resolved from flags, environment and
// the optional config file.
type Config struct {
	// DatabaseURL is the Postgres connection string.
	DatabaseURL string
	// ListenAddress is the host:port the HTTP server binds to.
	ListenAddress string
	// DebugSQL attaches generated SQL to internal errors. Off in production.
	DebugSQL bool
	// RequestLogging enables per-request access logging.
	RequestLogging bool
	// RunMigrations applies pending schema migrations on startup.
	RunMigrations bool
}

// FromViper reads the settings bound by the command line.
func FromViper(v *viper.Viper) Config {
	return Config{
		DatabaseURL:    v.GetString("database-url"),
		ListenAddress:  v.GetString("listen"),
		DebugSQL:       v.GetBool("debug-sql"),
		RequestLogging: v.GetBool("request-logging"),
		RunMigrations:  v.GetBool("migrate"),
	}
}
