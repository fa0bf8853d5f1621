package report

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/grokify/releaseconductor/pkg/model"
)

// MarkdownFormatter formats results as Markdown.
type MarkdownFormatter struct{}

// NewMarkdownFormatter creates a new Markdown formatter.
func NewMarkdownFormatter() *MarkdownFormatter {
	return &MarkdownFormatter{}
}

// FormatReconcileResult formats a reconciliation result as Markdown.
func (f *MarkdownFormatter) FormatReconcileResult(result *model.ReconcileResult) (string, error) {
	var sb strings.Builder

	if result.DryRun {
		sb.WriteString("# Release Reconciliation (Dry Run)\n\n")
	} else {
		sb.WriteString("# Release Reconciliation\n\n")
	}
	sb.WriteString(fmt.Sprintf("**Time:** %s\n\n", result.Timestamp.Format(time.RFC3339)))
	sb.WriteString(fmt.Sprintf("**Event:** %s\n\n", result.Event))
	sb.WriteString(fmt.Sprintf("**Fix Version:** %s (release line %s)\n\n", result.FixVersion, result.ReleaseLine))
	sb.WriteString(fmt.Sprintf("**Major Version:** %t\n\n", result.MajorVersion))
	sb.WriteString(fmt.Sprintf("**States:** %s\n\n", joinStates(result.States)))

	if len(result.DiscoveredKeys) > 0 {
		updated := map[string]string{}
		for _, u := range result.Updated {
			updated[u.IssueKey] = u.VersionID
		}

		sb.WriteString("## Issues\n\n")
		sb.WriteString("| Issue | Version ID | Linked |\n")
		sb.WriteString("|-------|------------|--------|\n")
		for _, key := range result.DiscoveredKeys {
			linked := ""
			switch {
			case slices.Contains(result.Linked, key):
				linked = "✅"
			case slices.Contains(result.AlreadyLinked, key):
				linked = "already"
			}
			sb.WriteString(fmt.Sprintf("| %s | %s | %s |\n", key, updated[key], linked))
		}
		sb.WriteString("\n")
	}

	if result.MasterTicket != "" {
		sb.WriteString(fmt.Sprintf("**Master Ticket:** %s\n\n", result.MasterTicket))
	}

	if result.ReleaseNote != "" {
		sb.WriteString("## Release Note\n\n")
		sb.WriteString(result.ReleaseNote + "\n\n")
	}

	if result.NextVersion != "" {
		sb.WriteString(fmt.Sprintf("**Next Version:** %s\n\n", result.NextVersion))
	}

	if len(result.Failures) > 0 {
		sb.WriteString("## Failures\n\n")
		for _, fail := range result.Failures {
			sb.WriteString(fmt.Sprintf("- **%s** (%s): %s\n", fail.Item, fail.Step, fail.Error))
		}
	}

	if result.Error != "" {
		sb.WriteString(fmt.Sprintf("\n**Error:** %s\n", result.Error))
	}

	return sb.String(), nil
}
