package model

import "strings"

// Project is a tracker project identified by its numeric ID and key.
type Project struct {
	ID  string `json:"id" yaml:"id" mapstructure:"id"`
	Key string `json:"key" yaml:"key" mapstructure:"key"`
}

// MasterProject is the project holding one master ticket per release.
type MasterProject struct {
	Project   `yaml:",inline" mapstructure:",squash"`
	IssueType string `json:"issueType" yaml:"issueType" mapstructure:"issue-type"`
}

// ProjectForKey returns the first project whose key is a prefix of
// issueKey. The order of projects is significant.
func ProjectForKey(projects []Project, issueKey string) (Project, bool) {
	for _, p := range projects {
		if strings.HasPrefix(issueKey, p.Key) {
			return p, true
		}
	}
	return Project{}, false
}

// ProjectKeys returns the keys of projects in order.
func ProjectKeys(projects []Project) []string {
	keys := make([]string, len(projects))
	for i, p := range projects {
		keys[i] = p.Key
	}
	return keys
}

// TrackerVersion is a version (fix version) record in a tracker project.
type TrackerVersion struct {
	ID        string `json:"id,omitempty" yaml:"id,omitempty"`
	Name      string `json:"name" yaml:"name"`
	ProjectID string `json:"projectId,omitempty" yaml:"projectId,omitempty"`
	Archived  bool   `json:"archived" yaml:"archived"`
	Released  bool   `json:"released" yaml:"released"`
}

// Issue is the subset of a tracker issue the reconciler reads.
type Issue struct {
	Key     string      `json:"key"`
	Summary string      `json:"summary,omitempty"`
	Links   []IssueLink `json:"links,omitempty"`
}

// HasOutwardLinkTo reports whether the issue already links outward to key.
func (i Issue) HasOutwardLinkTo(key string) bool {
	for _, l := range i.Links {
		if l.OutwardKey == key {
			return true
		}
	}
	return false
}

// IssueLink is a directed link between two issues.
type IssueLink struct {
	Type       string `json:"type"`
	InwardKey  string `json:"inwardKey,omitempty"`
	OutwardKey string `json:"outwardKey,omitempty"`
}

// FixVersionUpdate binds an issue to a tracker version.
type FixVersionUpdate struct {
	IssueKey  string `json:"issueKey"`
	VersionID string `json:"versionId"`
}

// IssueUpdate is a field update applied to an existing issue.
type IssueUpdate struct {
	AddFixVersionID string         `json:"addFixVersionId,omitempty"`
	Description     string         `json:"description,omitempty"`
	Fields          map[string]any `json:"fields,omitempty"` // Raw field values set as-is
}

// NewIssue contains the fields used to create an issue.
type NewIssue struct {
	ProjectID     string         `json:"projectId"`
	IssueTypeID   string         `json:"issueTypeId"`
	Summary       string         `json:"summary"`
	Description   string         `json:"description,omitempty"`
	FixVersionIDs []string       `json:"fixVersionIds,omitempty"`
	Fields        map[string]any `json:"fields,omitempty"` // Extra raw fields, e.g., custom fields
}
