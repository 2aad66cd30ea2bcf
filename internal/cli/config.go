package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/mrz1836/addrsync/internal/config"
	"github.com/mrz1836/addrsync/internal/output"
	syncerr "github.com/mrz1836/addrsync/pkg/errors"
)

// configCmd is the parent command for configuration operations.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
	Long:  `View and initialize addrsync configuration.`,
}

// configInitCmd writes the default configuration.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration",
	Long: `Create a default configuration file at ~/.addrsync/config.yaml.

If a configuration file already exists, this command will not overwrite it
unless --force is specified.

Example:
  addrsync config init
  addrsync config init --force`,
	RunE: runConfigInit,
}

// configShowCmd prints the effective configuration.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long: `Display the effective configuration: the config file with environment
and flag overrides applied.

Example:
  addrsync config show
  addrsync config show -o json`,
	RunE: runConfigShow,
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level flag variables
var configForce bool

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)

	configInitCmd.Flags().BoolVar(&configForce, "force", false, "overwrite existing configuration")
}

func runConfigInit(cmd *cobra.Command, _ []string) error {
	cc := GetCmdContext(cmd)
	configPath := config.Path(cc.Cfg.GetHome())

	if _, err := os.Stat(configPath); err == nil && !configForce {
		return syncerr.WithSuggestion(
			syncerr.ErrGeneral,
			fmt.Sprintf("configuration already exists at %s. Use --force to overwrite.", configPath),
		)
	}

	defaults := config.Defaults()
	defaults.Home = cc.Cfg.Home
	if err := config.Save(defaults, configPath); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	w := cmd.OutOrStdout()
	if cc.Fmt.IsJSON() {
		return output.FormatSuccess(w, "configuration initialized at "+configPath, output.FormatJSON)
	}
	cc.Fmt.Successf("Configuration initialized at %s", configPath)
	outln(w)
	outln(w, "Edit this file to configure:")
	outln(w, "  - node.url: Your ledger node endpoint")
	outln(w, "  - sync.batch_size: Addresses derived per discovery round")
	outln(w, "  - storage.backend: file or bolt")
	outln(w, "  - logging.level: Log level (off/error/debug)")
	return nil
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	cc := GetCmdContext(cmd)
	w := cmd.OutOrStdout()

	if !cc.Fmt.IsJSON() {
		outln(w, cc.Cfg.String())
		return nil
	}

	// Round-trip through YAML so JSON keys match the config file.
	data, err := yaml.Marshal(cc.Cfg)
	if err != nil {
		return err
	}
	var tree map[string]any
	if err := yaml.Unmarshal(data, &tree); err != nil {
		return err
	}
	return cc.Fmt.JSON(tree)
}
