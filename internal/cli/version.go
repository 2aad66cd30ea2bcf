package cli

import (
	"github.com/spf13/cobra"

	"github.com/mrz1836/addrsync/internal/version"
)

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level flag variables
var (
	versionCheck      bool
	versionReleaseURL string
)

// versionCmd prints build information.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Long: `Show the addrsync version, commit and build platform.

With --check the latest published release is fetched and compared.

Example:
  addrsync version
  addrsync version --check -o json`,
	RunE: runVersion,
}

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	rootCmd.AddCommand(versionCmd)
	versionCmd.Flags().BoolVar(&versionCheck, "check", false, "check for a newer release")
	versionCmd.Flags().StringVar(&versionReleaseURL, "release-url", "", "release feed to check against")
	_ = versionCmd.Flags().MarkHidden("release-url")
}

func runVersion(cmd *cobra.Command, _ []string) error {
	cc := GetCmdContext(cmd)
	info := version.Current()

	if versionCheck {
		ctx, cancel := contextWithTimeout(cmd, version.DefaultTimeout)
		defer cancel()

		var err error
		if info, err = version.NewChecker(versionReleaseURL, nil).Check(ctx, info); err != nil {
			return err
		}
	}

	w := cmd.OutOrStdout()
	if cc.Fmt.IsJSON() {
		return cc.Fmt.JSON(info)
	}
	out(w, "addrsync %s (commit %s, built %s)\n", info.Version, info.Commit, info.Date)
	out(w, "%s %s\n", info.GoVersion, info.Platform)
	if versionCheck {
		if info.Outdated {
			out(w, "A newer release is available: %s\n", info.Latest)
		} else {
			out(w, "Up to date (latest %s)\n", info.Latest)
		}
	}
	return nil
}
