package report

import (
	"bytes"
	"encoding/csv"
	"slices"

	"github.com/grokify/releaseconductor/pkg/model"
)

// CSVFormatter formats results as CSV with one row per discovered issue.
type CSVFormatter struct{}

// NewCSVFormatter creates a new CSV formatter.
func NewCSVFormatter() *CSVFormatter {
	return &CSVFormatter{}
}

// FormatReconcileResult formats a reconciliation result as CSV.
func (f *CSVFormatter) FormatReconcileResult(result *model.ReconcileResult) (string, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	// Header
	header := []string{"Issue", "Fix Version", "Needed Update", "Updated", "Linked", "Error"}
	if err := w.Write(header); err != nil {
		return "", err
	}

	updated := map[string]bool{}
	for _, u := range result.Updated {
		updated[u.IssueKey] = true
	}
	failures := map[string]string{}
	for _, fail := range result.Failures {
		failures[fail.Item] = fail.Error
	}

	// Data rows
	for _, key := range result.DiscoveredKeys {
		row := []string{
			key,
			result.FixVersion,
			boolString(slices.Contains(result.FilteredKeys, key)),
			boolString(updated[key]),
			boolString(slices.Contains(result.Linked, key) || slices.Contains(result.AlreadyLinked, key)),
			failures[key],
		}
		if err := w.Write(row); err != nil {
			return "", err
		}
	}

	w.Flush()
	return buf.String(), w.Error()
}

func boolString(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
