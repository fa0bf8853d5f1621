// Package report renders reconciliation results and release notes.
package report

import (
	"fmt"
	"strings"

	"github.com/grokify/releaseconductor/pkg/model"
)

// Formatter defines the interface for formatting results.
type Formatter interface {
	// FormatReconcileResult formats a reconciliation result.
	FormatReconcileResult(result *model.ReconcileResult) (string, error)
}

// NewFormatter returns the formatter for a format name: table, json,
// markdown (or md), yaml (or yml) and csv.
func NewFormatter(format string) (Formatter, error) {
	switch strings.ToLower(format) {
	case "", "table":
		return NewTableFormatter(), nil
	case "json":
		return NewJSONFormatter(), nil
	case "markdown", "md":
		return NewMarkdownFormatter(), nil
	case "yaml", "yml":
		return NewYAMLFormatter(), nil
	case "csv":
		return NewCSVFormatter(), nil
	default:
		return nil, fmt.Errorf("unknown format %q", format)
	}
}

// truncate shortens a string to maxLen, adding "..." if truncated.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
