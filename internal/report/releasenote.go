package report

import (
	"strings"

	"github.com/grokify/releaseconductor/pkg/model"
)

// ReleaseNote renders one "- <key> <summary>" line per issue, in input
// order, joined by newlines without a trailing newline.
func ReleaseNote(issues []model.Issue) string {
	lines := make([]string, len(issues))
	for i, is := range issues {
		lines[i] = "- " + is.Key + " " + is.Summary
	}
	return strings.Join(lines, "\n")
}
