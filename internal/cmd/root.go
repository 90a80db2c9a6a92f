package cmd

import (
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/stride-dev/stride/internal/config"
)

var rootCmd = &cobra.Command{
	Use:   "stride",
	Short: "Event-driven workflow pipeline for agent-assisted projects",
	Long: `Stride watches a project's workflow documents (state, task list,
roadmap, session transcripts), turns file writes into typed domain
events, and drives a four-step workflow (design, analyze, implement,
verify) from what the documents actually say. Observers subscribe to
the event stream over SSE or with the built-in monitor dashboard.`,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringP("config", "c", "", "config file (default is $HOME/.config/stride/config.yaml)")
	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
}

func initConfig() {
	// Set defaults first so they're available even without a config file
	config.SetDefaults()

	if cfgFile := viper.GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(config.ConfigDir())
		viper.AddConfigPath("$HOME/.config/stride")
		viper.AddConfigPath(".")
	}

	viper.AutomaticEnv()
	viper.SetEnvPrefix("STRIDE")
	// Replace dots with underscores for nested keys in env vars
	// e.g., STRIDE_HUB_QUEUE_SIZE for hub.queue_size
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Read config file if it exists (ignore error if not found)
	_ = viper.ReadInConfig()
}

// loadConfig unmarshals and validates the effective configuration.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, config.ValidationErrors(errs)
	}
	return cfg, nil
}
