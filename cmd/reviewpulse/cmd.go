package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/getzep/reviewpulse/config"
	"github.com/getzep/reviewpulse/internal"
	"github.com/getzep/reviewpulse/pkg/pipeline"
)

var (
	log *logrus.Logger

	cfgFile     string
	showVersion bool
	dumpConfig  bool
	generateKey bool
)

var cmd = &cobra.Command{
	Use:   "reviewpulse",
	Short: "reviewpulse annotates pending hotel reviews with sentiment and stores the results",
	Run:   func(cmd *cobra.Command, args []string) { run() },
	// errors are logged, usage is only printed for flag errors
	SilenceUsage: true,
}

var processCmd = &cobra.Command{
	Use:   "process",
	Short: "Run the sentiment pipeline once and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		appState, closeStores, err := NewAppState(cfg)
		if err != nil {
			return err
		}
		defer closeStores()

		report, err := pipeline.NewPipelineFromAppState(appState).Run(cmd.Context())
		_, message := pipeline.Summarize(report, err)
		fmt.Println(message)
		return err
	},
}

var fetchReviewsCmd = &cobra.Command{
	Use:   "fetch-reviews",
	Short: "Fetch the latest hotel reviews once and print them",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		appState, closeStores, err := NewAppState(cfg)
		if err != nil {
			return err
		}
		defer closeStores()

		data, err := appState.ReviewFetcher.Fetch(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Println(string(data))
		return nil
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the source and destination tables if they do not exist",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		if err := migrate(cmd.Context(), cfg); err != nil {
			return err
		}
		fmt.Println("Schema created successfully.")
		return nil
	},
}

var dumpJsonSchemaCmd = &cobra.Command{
	Use:     "json-schema",
	Short:   "Generates JSON Schema for the reviewpulse configuration file",
	Example: "reviewpulse json-schema > reviewpulse_config_schema.json",
	RunE: func(cmd *cobra.Command, args []string) error {
		schema, err := config.JSONSchema()
		if err != nil {
			return err
		}
		fmt.Println(string(schema))
		return nil
	},
}

func init() {
	cmd.AddCommand(processCmd)
	cmd.AddCommand(fetchReviewsCmd)
	cmd.AddCommand(migrateCmd)
	cmd.AddCommand(dumpJsonSchemaCmd)

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default config.yaml)")
	cmd.PersistentFlags().BoolVarP(&showVersion, "version", "v", false, "print version number")
	cmd.PersistentFlags().BoolVarP(&dumpConfig, "dump-config", "d", false, "dump config")
	cmd.PersistentFlags().
		BoolVarP(&generateKey, "generate-token", "g", false, "generate a new JWT token")
}

// loadConfig loads the config, applies the log settings and handles the flags that
// exit before any work is done.
func loadConfig() *config.Config {
	cfg, err := config.LoadConfig(cfgFile)
	if err != nil {
		log.Fatalf("Error configuring reviewpulse: %s", err)
	}
	config.SetLogLevel(cfg)
	handleCLIOptions(cfg)
	return cfg
}

// Execute executes the root cobra command.
func Execute() {
	log = internal.GetLogger()
	log.SetLevel(logrus.InfoLevel)

	err := cmd.ExecuteContext(context.Background())

	if err != nil {
		os.Exit(1)
	}
}
