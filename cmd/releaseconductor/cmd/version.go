package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/grokify/releaseconductor/internal/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Version arithmetic and tag checks",
	Long: `Compute neighbouring versions and check tags the way reconciliation does.

Examples:
  releaseconductor version next-patch v10.0.1     # v10.0.2
  releaseconductor version next-minor vrs10.5.8   # vrs10.6.8
  releaseconductor version previous-patch v1.1.2  # v1.1.1
  releaseconductor version from-branch refs/heads/release/10.0
  releaseconductor version matches v10.0.3 --line 10.0
  releaseconductor version is-major v10.0.0`,
}

func versionFunc(use, short string, fn func(string) (string, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <version>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := fn(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), out)
			return nil
		},
	}
}

var versionMatchesCmd = &cobra.Command{
	Use:   "matches <tag>",
	Short: "Report whether a tag follows the numbering of a release line",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		line, _ := cmd.Flags().GetString("line")
		prefix := viper.GetString("tag-prefix")

		var ok bool
		if line == "" {
			ok = version.MatchesNumbering(args[0], prefix)
		} else {
			ok = version.MatchesReleaseLine(args[0], prefix, line)
		}
		fmt.Fprintln(cmd.OutOrStdout(), strconv.FormatBool(ok))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)

	versionCmd.AddCommand(
		versionFunc("next-patch", "Print the next patch version", version.NextPatch),
		versionFunc("next-minor", "Print the next minor version (patch kept)", version.NextMinor),
		versionFunc("previous-patch", "Print the previous patch version", version.PreviousPatch),
		versionFunc("from-branch", "Print the release line of a branch ref", func(ref string) (string, error) {
			return version.FromBranch(ref, viper.GetString("branch-type")), nil
		}),
		versionFunc("is-major", "Report whether a tag is a major version", func(tag string) (string, error) {
			return strconv.FormatBool(version.IsMajorVersion(tag)), nil
		}),
		versionMatchesCmd,
	)

	versionMatchesCmd.Flags().String("line", "", "Release line (e.g., 10.0); empty checks numbering only")
}
