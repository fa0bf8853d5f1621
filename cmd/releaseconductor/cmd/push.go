package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/grokify/releaseconductor/pkg/model"
)

var pushCmd = &cobra.Command{
	Use:   "push <ref>",
	Short: "Reconcile a push to a release branch",
	Long: `Reconcile the issues pushed to a release branch with the branch's next release.

The fix version is the next release of the branch: the first release of the
line when it has no tag yet, else the existing (draft) release for the next
patch or next minor version.

Examples:
  # Reconcile release branch 10.0
  releaseconductor push refs/heads/release/10.0

  # Show what would change
  releaseconductor push refs/heads/release/10.0 --dry-run --format markdown`,
	Args: cobra.ExactArgs(1),
	RunE: runPush,
}

func init() {
	rootCmd.AddCommand(pushCmd)
}

func runPush(cmd *cobra.Command, args []string) error {
	if args[0] == "" {
		return fmt.Errorf("ref required")
	}
	return runReconcile(cmd.Context(), model.NewPushEvent(args[0]))
}
