package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/grokify/releaseconductor/pkg/model"
)

var publishCmd = &cobra.Command{
	Use:   "publish <tag>",
	Short: "Reconcile a published release",
	Long: `Reconcile a published release: set fix versions, record the release on its
master ticket and prepare the next patch release.

Examples:
  # Reconcile release v10.0.1 built from release/10.0
  releaseconductor publish v10.0.1 --target release/10.0 --release-id 123 --revision $GITHUB_SHA`,
	Args: cobra.ExactArgs(1),
	RunE: runPublish,
}

func init() {
	rootCmd.AddCommand(publishCmd)

	publishCmd.Flags().String("target", "", "Release target branch (e.g., release/10.0)")
	publishCmd.Flags().Bool("prerelease", false, "The release is a prerelease")
	publishCmd.Flags().Bool("draft", false, "The release is a draft")
	publishCmd.Flags().Int64("release-id", 0, "GitHub release ID, used to update the release note")
	publishCmd.Flags().String("revision", "", "Commit SHA of the release")
	_ = publishCmd.MarkFlagRequired("target")

	_ = viper.BindPFlag("publish.target", publishCmd.Flags().Lookup("target"))
	_ = viper.BindPFlag("publish.prerelease", publishCmd.Flags().Lookup("prerelease"))
	_ = viper.BindPFlag("publish.draft", publishCmd.Flags().Lookup("draft"))
	_ = viper.BindPFlag("publish.release-id", publishCmd.Flags().Lookup("release-id"))
	_ = viper.BindPFlag("publish.revision", publishCmd.Flags().Lookup("revision"))
}

func runPublish(cmd *cobra.Command, args []string) error {
	ev := model.NewPublishedEvent(model.PublishedEvent{
		TagName:      args[0],
		TargetBranch: viper.GetString("publish.target"),
		Prerelease:   viper.GetBool("publish.prerelease"),
		Draft:        viper.GetBool("publish.draft"),
		ReleaseID:    viper.GetInt64("publish.release-id"),
		Revision:     viper.GetString("publish.revision"),
	})
	return runReconcile(cmd.Context(), ev)
}
