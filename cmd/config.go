package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/Siddhant-K-code/minelab/pkg/config"
	"github.com/Siddhant-K-code/minelab/pkg/errors"
	"github.com/Siddhant-K-code/minelab/pkg/service"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage minelab configuration",
	Long:  `Commands for creating and validating minelab.yaml configuration files.`,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Generate a minelab.yaml template",
	Long: `Creates a minelab.yaml configuration file with all available options
and their default values.

Example:
  minelab config init
  minelab config init --output /etc/minelab/minelab.yaml`,
	RunE: runConfigInit,
}

var configValidateCmd = &cobra.Command{
	Use:   "validate [file]",
	Short: "Validate a minelab.yaml configuration file",
	Long: `Reads and validates a configuration file, reporting any errors.
Catalogue and transaction files named in the mining section are loaded
as well, so a config that validates will also start.

Example:
  minelab config validate
  minelab config validate minelab.yaml
  minelab config validate --config /etc/minelab/minelab.yaml`,
	Args: cobra.MaximumNArgs(1),
	RunE: runConfigValidate,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configValidateCmd)

	configInitCmd.Flags().StringP("output", "o", "minelab.yaml", "output file path")
	configInitCmd.Flags().Bool("stdout", false, "print to stdout instead of file")
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	toStdout, _ := cmd.Flags().GetBool("stdout")
	output, _ := cmd.Flags().GetString("output")

	template := config.GenerateTemplate()

	if toStdout {
		fmt.Print(template)
		return nil
	}

	// Check if file already exists
	if _, err := os.Stat(output); err == nil {
		return errors.Newf("file %s already exists (use --stdout to print to stdout)", output)
	}

	if err := os.WriteFile(output, []byte(template), 0o644); err != nil {
		return errors.Wrap(err, "failed to write config file")
	}

	fmt.Fprintf(os.Stderr, "Created %s\n", output)
	return nil
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	cfgPath, err := findConfigFile(args)
	if err != nil {
		return err
	}

	cfg, err := config.LoadFromFile(cfgPath)
	if err != nil {
		return errors.Wrapf(err, "validation failed for %s", cfgPath)
	}

	// Catalogue and transaction files are only read by the service
	svc, err := service.New(cfg, service.Deps{})
	if err != nil {
		return errors.Wrapf(err, "validation failed for %s", cfgPath)
	}
	defer svc.Close()

	datasets := svc.Datasets()
	if err := renderTable([][]string{
		{"Setting", "Value"},
		{"server", fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)},
		{"cluster", fmt.Sprintf("%s, k=%d, init=%s", cfg.Cluster.Dataset, cfg.Cluster.K, cfg.Cluster.Init)},
		{"mining", fmt.Sprintf("%s, support=%.2f, confidence=%.2f, %s", cfg.Mining.Dataset, cfg.Mining.MinSupport, cfg.Mining.MinConfidence, cfg.Mining.CoOccurrence)},
		{"catalogues", strconv.Itoa(len(datasets.Catalogues))},
		{"source", orNone(cfg.Source.Backend)},
		{"cache", strconv.FormatBool(cfg.Cache.Enabled)},
		{"history", strconv.FormatBool(cfg.History.Enabled)},
		{"api keys", strconv.Itoa(len(cfg.Auth.APIKeys))},
		{"tracing", strconv.FormatBool(cfg.Telemetry.Tracing.Enabled)},
	}); err != nil {
		return err
	}

	pterm.Success.Printf("Config file %s is valid\n", cfgPath)
	return nil
}

// findConfigFile picks the explicit argument, then --config, then the first
// default location that exists.
func findConfigFile(args []string) (string, error) {
	if len(args) > 0 {
		return args[0], nil
	}
	if cfgFile != "" {
		return cfgFile, nil
	}

	candidates := []string{"minelab.yaml", "minelab.yml"}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates,
			filepath.Join(home, "minelab.yaml"),
			filepath.Join(home, "minelab.yml"),
		)
	}
	for _, c := range candidates {
		if _, err := os.Stat(c); err == nil {
			return c, nil
		}
	}
	return "", errors.New("no config file found (try: minelab config validate <file>)")
}

func orNone(s string) string {
	if s == "" {
		return "none"
	}
	return s
}
