package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/grokify/releaseconductor/internal/event"
	"github.com/grokify/releaseconductor/pkg/model"
)

var eventCmd = &cobra.Command{
	Use:   "event",
	Short: "Reconcile the GitHub Actions event of the current workflow run",
	Long: `Read the triggering event from GITHUB_EVENT_NAME and GITHUB_EVENT_PATH and
reconcile it. Pushes and published releases are handled; other events are
ignored.

Examples:
  # In a workflow triggered on push to release/** and release: published
  releaseconductor event

  # Replay a saved webhook payload
  releaseconductor event --name release --payload release.json`,
	RunE: runEvent,
}

func init() {
	rootCmd.AddCommand(eventCmd)

	eventCmd.Flags().String("name", "", "Event name (default $GITHUB_EVENT_NAME)")
	eventCmd.Flags().String("payload", "", "Webhook payload file (default $GITHUB_EVENT_PATH)")
}

func runEvent(cmd *cobra.Command, args []string) error {
	name, _ := cmd.Flags().GetString("name")
	payload, _ := cmd.Flags().GetString("payload")

	var (
		ev  model.ReleaseEvent
		err error
	)
	if name != "" && payload != "" {
		ev, err = event.FromFile(name, payload, os.Getenv("GITHUB_SHA"))
	} else {
		ev, err = event.FromActions()
	}
	if errors.Is(err, event.ErrIgnored) {
		fmt.Fprintln(os.Stderr, "Nothing to do:", err)
		return nil
	}
	if err != nil {
		return err
	}

	return runReconcile(cmd.Context(), ev)
}
