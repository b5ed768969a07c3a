package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Siddhant-K-code/minelab/pkg/config"
	"github.com/Siddhant-K-code/minelab/pkg/errors"
	"github.com/Siddhant-K-code/minelab/pkg/logging"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "minelab",
	Short: "minelab - K-Means clustering and association rule mining",
	Long: `minelab clusters 3-D points with K-Means and mines pairwise association
rules from item catalogues or raw transactions.

Features:
  - K-Means with first-k or k-means++ seeding, silhouette quality score
  - k sweeps with best-k and elbow selection
  - Apriori pair rules with support, confidence, lift and strength
  - PCA projection of high-dimensional vectors
  - Points from built-in datasets, JSONL files, Qdrant or Pinecone

Environment Variables:
  MINELAB_*           Override any config key, e.g. MINELAB_SERVER_PORT
  PINECONE_API_KEY    Referenced from minelab.yaml as ${PINECONE_API_KEY}`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	registerCompletions()
	err := rootCmd.Execute()
	logging.Sync()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./minelab.yaml or $HOME/minelab.yaml)")
	rootCmd.PersistentFlags().Bool("verbose", false, "enable debug logging")
	rootCmd.PersistentFlags().Bool("json-logs", false, "emit logs as JSON")

	// Bind to viper
	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	_ = viper.BindPFlag("logging.json", rootCmd.PersistentFlags().Lookup("json-logs"))
}

// initConfig reads in config file and ENV variables if set. The template is
// loaded first so every key is known to viper and can be overridden from the
// environment.
func initConfig() {
	viper.SetConfigType("yaml")
	_ = viper.ReadConfig(strings.NewReader(config.GenerateTemplate()))
	viper.SetConfigType("")

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			viper.AddConfigPath(home)
		}
		viper.SetConfigName("minelab")
	}

	// Read environment variables
	viper.SetEnvPrefix("MINELAB")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Merge config file over the template if it exists
	if err := viper.MergeInConfig(); err == nil {
		if viper.GetBool("verbose") {
			fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
		}
	} else if cfgFile != "" {
		fmt.Fprintf(os.Stderr, "Warning: could not read config %s: %v\n", cfgFile, err)
	}
}

// loadConfig builds the validated config and starts the logger from it.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return nil, err
	}
	if viper.GetBool("verbose") {
		cfg.Logging.Level = "debug"
	}
	if err := logging.Initialize(logging.Config{
		Level:      cfg.Logging.Level,
		JSON:       cfg.Logging.JSON,
		File:       cfg.Logging.File,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAgeDays: cfg.Logging.MaxAgeDays,
	}); err != nil {
		return nil, errors.Wrap(err, "init logging")
	}
	return cfg, nil
}
