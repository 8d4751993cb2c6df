package cmd

import (
	"context"
	"fmt"
	log2 "log"
	"net/http"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/facilimate/tquery/config"
	"github.com/facilimate/tquery/engine"
	"github.com/facilimate/tquery/log"
	"github.com/facilimate/tquery/migrations"
	"github.com/facilimate/tquery/rest"
	"github.com/facilimate/tquery/schema"
)

// Environment variables prefixed with "TQUERY_" can override settings
// e.g. "TQUERY_DATABASE_URL"
const envVarPrefix = "tquery"

var cfgFile string
var logger log.Logger

var serverCmd = &cobra.Command{
	Use:   os.Args[0] + " --database-url [URL] [OPTIONS]",
	Short: "Tabular query endpoint for facility data",
	Args: func(cmd *cobra.Command, args []string) error {
		if viper.GetString("database-url") == "" {
			return fmt.Errorf("database-url is required")
		}
		return nil
	},
	Run: func(cmd *cobra.Command, args []string) {
		cfg := config.FromViper(viper.GetViper())
		ctx := context.Background()

		if cfg.RunMigrations {
			if err := migrations.Run(cfg.DatabaseURL, logger); err != nil {
				logger.Fatal("unable to run migrations", "error", err)
			}
		}

		session, err := engine.NewPgxSession(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Fatal("unable to connect to the database", "error", err)
		}
		defer session.Close()

		server := rest.NewServer(schema.DefaultRegistry(), session, logger, cfg.DebugSQL)
		handler := http.Handler(server.ApiRouter())
		if cfg.RequestLogging {
			handler = log.NewLoggingHandler(handler, logger)
		}

		logger.Info("server listening", "address", cfg.ListenAddress)
		if err := http.ListenAndServe(cfg.ListenAddress, handler); err != nil {
			logger.Fatal("unable to start server",
				"address", cfg.ListenAddress,
				"error", err)
		}
	},
}

// Execute starts the query endpoint.
func Execute() {
	zapLogger, err := zap.NewProduction()
	if err != nil {
		log2.Fatalf("unable to initialize logger: %v", err)
	}

	logger = log.NewZapLogger(zapLogger)

	flags := serverCmd.PersistentFlags()

	flags.StringVarP(&cfgFile, "config", "c", "", "config file")
	flags.String("database-url", "", "Postgres connection string")
	flags.String("listen", ":8080", "address to bind the endpoint to")
	flags.Bool("debug-sql", false, "attach generated SQL to error responses")
	flags.Bool("request-logging", false, "enable request logging")
	flags.Bool("migrate", false, "apply pending schema migrations on startup")

	flags.VisitAll(func(flag *pflag.Flag) {
		if flag.Name != "config" {
			_ = viper.BindPFlag(flag.Name, flags.Lookup(flag.Name))
		}
	})

	cobra.OnInitialize(initialize)

	viper.SetEnvPrefix(envVarPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	if err := serverCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func initialize() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
		if err := viper.ReadInConfig(); err == nil {
			logger.Info("using config file",
				"file", viper.ConfigFileUsed())
		}
	}
}
