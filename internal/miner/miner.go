// Package miner extracts the issue keys referenced by the commits of a
// release range.
package miner

import (
	"context"
	"strings"
)

// Request scopes a mining run.
type Request struct {
	ReleaseLine string   // e.g., "10.0"
	ProjectKeys []string // ordered tracker project keys
	Workspace   string   // local checkout path
	TagPrefix   string   // e.g., "v"
	Since       string   // exclusive lower bound revision; empty mines the full history
	Until       string   // inclusive upper bound revision, e.g., a branch ref or tag
}

// Miner returns the raw issue-key list for a release range as a
// comma-separated string.
type Miner interface {
	Mine(ctx context.Context, req Request) (string, error)
}

// ParseIssueKeys normalizes raw miner output into issue keys. Segments are
// separated by commas or line breaks, surrounding whitespace is trimmed and
// empty segments are dropped. Blank input yields an empty list.
func ParseIssueKeys(raw string) []string {
	fields := strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || r == '\n' || r == '\r'
	})

	keys := []string{}
	for _, f := range fields {
		if k := strings.TrimSpace(f); k != "" {
			keys = append(keys, k)
		}
	}
	return keys
}

// Unique returns keys without duplicates, keeping first-seen order.
func Unique(keys []string) []string {
	seen := make(map[string]struct{}, len(keys))
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	return out
}
