package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/grokify/releaseconductor/pkg/model"
)

// TableFormatter formats results as text tables.
type TableFormatter struct{}

// NewTableFormatter creates a new table formatter.
func NewTableFormatter() *TableFormatter {
	return &TableFormatter{}
}

// FormatReconcileResult formats a reconciliation result as text.
func (f *TableFormatter) FormatReconcileResult(result *model.ReconcileResult) (string, error) {
	var sb strings.Builder

	if result.DryRun {
		sb.WriteString("Release Reconciliation Dry Run")
	} else {
		sb.WriteString("Release Reconciliation")
	}
	sb.WriteString(fmt.Sprintf(" (%s)\n", result.Timestamp.Format(time.RFC3339)))

	kind := "patch"
	if result.MajorVersion {
		kind = "major"
	}
	sb.WriteString(fmt.Sprintf("Event: %s | Release Line: %s | Fix Version: %s (%s)\n",
		result.Event, result.ReleaseLine, result.FixVersion, kind))
	sb.WriteString(fmt.Sprintf("Discovered: %d | Updated: %d | Linked: %d | Failed: %d\n",
		len(result.DiscoveredKeys), len(result.Updated), len(result.Linked), len(result.Failures)))
	sb.WriteString(fmt.Sprintf("States: %s\n", joinStates(result.States)))
	sb.WriteString(strings.Repeat("-", 80) + "\n")

	if len(result.Versions) > 0 {
		sb.WriteString("\nVersions:\n")
		for _, v := range result.Versions {
			action := "found"
			if v.Created {
				action = "created"
			}
			sb.WriteString(fmt.Sprintf("  %-10s %-20s %-10s %s\n", v.ProjectKey, v.Name, v.ID, action))
		}
	}

	if len(result.Updated) > 0 {
		sb.WriteString("\nFix Version Applied:\n")
		for _, u := range result.Updated {
			sb.WriteString(fmt.Sprintf("  ✅ %s → %s\n", u.IssueKey, u.VersionID))
		}
	}

	if result.MasterTicket != "" {
		sb.WriteString(fmt.Sprintf("\nMaster Ticket: %s\n", result.MasterTicket))
		for _, k := range result.Linked {
			sb.WriteString(fmt.Sprintf("  🔗 %s\n", k))
		}
		for _, k := range result.AlreadyLinked {
			sb.WriteString(fmt.Sprintf("  ⏭️  %s (already linked)\n", k))
		}
	}

	if result.Comparison != nil {
		sb.WriteString(fmt.Sprintf("\nDiff %s...%s: %d commits, %d files\n",
			result.Comparison.Base, result.Comparison.Head,
			result.Comparison.CommitCount, result.Comparison.FileCount))
	}

	if result.NextVersion != "" {
		sb.WriteString(fmt.Sprintf("\nNext Version: %s", result.NextVersion))
		if result.NextMasterTicket != "" {
			sb.WriteString(fmt.Sprintf(" (master ticket %s)", result.NextMasterTicket))
		}
		sb.WriteString("\n")
	}

	if len(result.Failures) > 0 {
		sb.WriteString("\nFailed:\n")
		for _, fail := range result.Failures {
			sb.WriteString(fmt.Sprintf("  ❌ %s [%s]: %s\n", fail.Item, fail.Step, truncate(fail.Error, 100)))
		}
	}

	if result.Error != "" {
		sb.WriteString(fmt.Sprintf("\nError: %s\n", result.Error))
	}

	return sb.String(), nil
}

func joinStates(states []model.State) string {
	parts := make([]string, len(states))
	for i, s := range states {
		parts[i] = string(s)
	}
	return strings.Join(parts, " → ")
}
