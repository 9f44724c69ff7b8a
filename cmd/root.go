package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/asima2006/Grocery-Cart-Automater/internal/config"
	"github.com/asima2006/Grocery-Cart-Automater/internal/observability"
)

var (
	cfgFile string
	cfg     *config.Config
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:     "grocery-cart-automater",
	Short:   "Drives a headless browser through the grocery site's login and cart workflow.",
	Version: Version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// A local .env is optional; real deployments set the environment
		// directly.
		_ = godotenv.Load()

		if err := initializeConfig(); err != nil {
			return fmt.Errorf("failed to initialize configuration: %w", err)
		}

		loaded, err := config.Load(viper.GetViper())
		if err != nil {
			observability.InitializeLogger(config.LoggerConfig{Level: "info", Format: "console", ServiceName: "grocery-cart-automater"})
			return err
		}
		cfg = loaded

		observability.InitializeLogger(cfg.Logger)
		return nil
	},
}

// Execute runs the root command with the provided context so signals cancel
// long-running subcommands.
func Execute(ctx context.Context) error {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		if logger := observability.GetLogger(); logger != nil {
			if ctx.Err() == nil {
				logger.Error("Command execution failed", zap.Error(err))
			}
		} else {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		return err
	}
	return nil
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default is ./config.yaml)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)
}

// initializeConfig reads in the config file and environment variables if set.
func initializeConfig() error {
	config.SetDefaults(viper.GetViper())

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("GCA")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Connection strings are usually injected through the environment only.
	_ = viper.BindEnv("redis.url", "GCA_REDIS_URL")
	_ = viper.BindEnv("postgres.url", "GCA_POSTGRES_URL")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("error reading config file: %w", err)
		}
		// No config file is fine; defaults and environment carry the rest.
	}
	return nil
}
