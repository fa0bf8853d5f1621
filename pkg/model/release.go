package model

// Release represents a GitHub release, published or draft.
type Release struct {
	ID              int64  `json:"id" yaml:"id"`
	TagName         string `json:"tagName" yaml:"tagName"`
	Name            string `json:"name" yaml:"name"`
	Body            string `json:"body,omitempty" yaml:"body,omitempty"`
	TargetCommitish string `json:"targetCommitish,omitempty" yaml:"targetCommitish,omitempty"`
	Draft           bool   `json:"draft" yaml:"draft"`
	Prerelease      bool   `json:"prerelease" yaml:"prerelease"`
	HTMLURL         string `json:"htmlUrl,omitempty" yaml:"htmlUrl,omitempty"`
}

// ReleaseRequest contains the information needed to create or edit a release.
type ReleaseRequest struct {
	TagName         string `json:"tagName"`
	TargetCommitish string `json:"targetCommitish,omitempty"` // Branch or commit SHA
	Name            string `json:"name"`
	Body            string `json:"body,omitempty"`
	Draft           bool   `json:"draft"`
	Prerelease      bool   `json:"prerelease"`
}

// TagPage is one page of tag names, newest first. NextPage is zero on the
// last page.
type TagPage struct {
	Names    []string `json:"names"`
	NextPage int      `json:"nextPage,omitempty"`
}

// Comparison summarizes the difference between two refs.
type Comparison struct {
	Base        string `json:"base" yaml:"base"`
	Head        string `json:"head" yaml:"head"`
	CommitCount int    `json:"commitCount" yaml:"commitCount"`
	FileCount   int    `json:"fileCount" yaml:"fileCount"`
	HTMLURL     string `json:"htmlUrl,omitempty" yaml:"htmlUrl,omitempty"`
}
