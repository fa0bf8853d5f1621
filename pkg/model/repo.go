package model

import "strings"

// RepoRef is a lightweight reference to a repository.
type RepoRef struct {
	Owner string `json:"owner" yaml:"owner"`
	Name  string `json:"name" yaml:"name"`
}

// FullName returns the full repository name in owner/repo format.
func (r RepoRef) FullName() string {
	return r.Owner + "/" + r.Name
}

// HTMLURL returns the repository web URL on github.com.
func (r RepoRef) HTMLURL() string {
	return "https://github.com/" + r.FullName()
}

// IsZero reports whether the reference is empty.
func (r RepoRef) IsZero() bool {
	return r.Owner == "" && r.Name == ""
}

// ParseRepoRef parses a full name like "owner/repo" into a RepoRef.
func ParseRepoRef(fullName string) RepoRef {
	owner, name, ok := strings.Cut(fullName, "/")
	if !ok {
		return RepoRef{Name: fullName}
	}
	return RepoRef{Owner: owner, Name: name}
}
