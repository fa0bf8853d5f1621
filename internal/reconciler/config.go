package reconciler

import (
	"fmt"
	"slices"

	"github.com/grokify/releaseconductor/internal/batch"
	"github.com/grokify/releaseconductor/pkg/model"
)

// Default configuration values.
const (
	DefaultTagPrefix  = "v"
	DefaultBranchType = "release"
	DefaultLinkType   = "Drives"
)

// Config holds the settings of a Reconciler. It is copied at construction
// and never changed afterwards.
type Config struct {
	Repo       model.RepoRef
	TagPrefix  string
	BranchType string // token identifying release branches, e.g., "release"
	Workspace  string // local checkout used for issue mining

	// Projects are matched against issue keys in order; the first project
	// whose key prefixes an issue key owns the issue.
	Projects []model.Project
	Master   model.MasterProject

	BatchSize int    // issue keys per tracker search
	LinkType  string // link from an issue to the master ticket
	DryRun    bool   // plan without mutating calls
}

func (c Config) withDefaults() Config {
	if c.TagPrefix == "" {
		c.TagPrefix = DefaultTagPrefix
	}
	if c.BranchType == "" {
		c.BranchType = DefaultBranchType
	}
	if c.Workspace == "" {
		c.Workspace = "."
	}
	if c.BatchSize <= 0 {
		c.BatchSize = batch.DefaultSize
	}
	if c.LinkType == "" {
		c.LinkType = DefaultLinkType
	}
	c.Projects = slices.Clone(c.Projects)
	return c
}

// Validate checks that the configuration names at least one project and
// a master project.
func (c Config) Validate() error {
	if len(c.Projects) == 0 {
		return fmt.Errorf("at least one tracker project required")
	}
	for _, p := range c.Projects {
		if p.Key == "" || p.ID == "" {
			return fmt.Errorf("project %q: id and key required", p.Key)
		}
	}
	if c.Master.Key == "" || c.Master.ID == "" {
		return fmt.Errorf("master project id and key required")
	}
	return nil
}

func (c Config) projectKeys() []string {
	return model.ProjectKeys(c.Projects)
}

func (c Config) releaseBranch(line string) string {
	return c.BranchType + "/" + line
}
