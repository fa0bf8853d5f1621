package tracker

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	jira "github.com/andygrunwald/go-jira"

	"github.com/grokify/releaseconductor/pkg/model"
)

// DefaultPageSize is the number of issues fetched per search request.
const DefaultPageSize = 50

// searchValidation makes Jira drop unknown issue keys and versions from a
// query with a warning instead of rejecting the whole search.
const searchValidation = "warn"

// JiraConfig configures the Jira client.
type JiraConfig struct {
	BaseURL   string            // e.g., "https://example.atlassian.net"
	User      string            // account email
	Token     string            // API token
	PageSize  int               // search page size; 0 uses DefaultPageSize
	Transport http.RoundTripper // optional base transport, e.g., a retry transport
	Logger    *slog.Logger
}

// JiraClient implements Client for Jira Cloud and Jira Server REST API v2.
type JiraClient struct {
	client   *jira.Client
	pageSize int
	logger   *slog.Logger
}

var _ Client = (*JiraClient)(nil)

// NewJiraClient creates a Jira client using basic authentication.
func NewJiraClient(cfg JiraConfig) (*JiraClient, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("jira base URL required")
	}

	tp := jira.BasicAuthTransport{
		Username:  cfg.User,
		Password:  cfg.Token,
		Transport: cfg.Transport,
	}

	client, err := jira.NewClient(tp.Client(), cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create jira client: %w", err)
	}

	pageSize := cfg.PageSize
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &JiraClient{client: client, pageSize: pageSize, logger: logger}, nil
}

// SearchIssues returns all issues matching query, following pagination.
func (c *JiraClient) SearchIssues(ctx context.Context, query string, fields []string) ([]model.Issue, error) {
	c.logger.Debug("searching issues", "jql", query)

	var issues []model.Issue
	startAt := 0

	for {
		page, resp, err := c.client.Issue.SearchWithContext(ctx, query, &jira.SearchOptions{
			StartAt:       startAt,
			MaxResults:    c.pageSize,
			Fields:        fields,
			ValidateQuery: searchValidation,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to search issues: %w", err)
		}

		for _, is := range page {
			issues = append(issues, convertIssue(is))
		}

		startAt += len(page)
		if len(page) == 0 || startAt >= resp.Total {
			break
		}
	}

	return issues, nil
}

// jiraVersion is the REST representation of a project version.
type jiraVersion struct {
	ID        string `json:"id,omitempty"`
	Name      string `json:"name"`
	ProjectID int    `json:"projectId,omitempty"`
	Archived  bool   `json:"archived"`
	Released  bool   `json:"released"`
}

// ListVersions returns all versions of a project.
func (c *JiraClient) ListVersions(ctx context.Context, projectKey string) ([]model.TrackerVersion, error) {
	endpoint := "rest/api/2/project/" + url.PathEscape(projectKey) + "/versions"
	req, err := c.client.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	var out []jiraVersion
	resp, err := c.client.Do(req, &out)
	if err != nil {
		return nil, wrapError(resp, err)
	}

	versions := make([]model.TrackerVersion, 0, len(out))
	for _, v := range out {
		versions = append(versions, convertVersion(v))
	}
	return versions, nil
}

// CreateVersion creates a project version.
func (c *JiraClient) CreateVersion(ctx context.Context, v model.TrackerVersion) (*model.TrackerVersion, error) {
	projectID, err := strconv.Atoi(v.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("invalid project id %q: %w", v.ProjectID, err)
	}

	body := jiraVersion{
		Name:      v.Name,
		ProjectID: projectID,
		Archived:  v.Archived,
		Released:  v.Released,
	}
	req, err := c.client.NewRequestWithContext(ctx, http.MethodPost, "rest/api/2/version", body)
	if err != nil {
		return nil, err
	}

	var out jiraVersion
	resp, err := c.client.Do(req, &out)
	if err != nil {
		return nil, wrapError(resp, err)
	}

	created := convertVersion(out)
	return &created, nil
}

// UpdateIssue applies a fix-version addition and field updates to an issue.
func (c *JiraClient) UpdateIssue(ctx context.Context, issueKey string, update model.IssueUpdate) error {
	data := map[string]any{}

	if update.AddFixVersionID != "" {
		data["update"] = map[string]any{
			"fixVersions": []any{
				map[string]any{"add": map[string]any{"id": update.AddFixVersionID}},
			},
		}
	}

	fields := map[string]any{}
	for k, v := range update.Fields {
		fields[k] = v
	}
	if update.Description != "" {
		fields["description"] = update.Description
	}
	if len(fields) > 0 {
		data["fields"] = fields
	}

	if _, err := c.client.Issue.UpdateIssueWithContext(ctx, issueKey, data); err != nil {
		return fmt.Errorf("failed to update %s: %w", issueKey, err)
	}
	return nil
}

// CreateIssueLink links the inward issue to the outward issue.
func (c *JiraClient) CreateIssueLink(ctx context.Context, link model.IssueLink) error {
	_, err := c.client.Issue.AddLinkWithContext(ctx, &jira.IssueLink{
		Type:         jira.IssueLinkType{Name: link.Type},
		InwardIssue:  &jira.Issue{Key: link.InwardKey},
		OutwardIssue: &jira.Issue{Key: link.OutwardKey},
	})
	if err != nil {
		return fmt.Errorf("failed to link %s to %s: %w", link.InwardKey, link.OutwardKey, err)
	}
	return nil
}

// CreateIssue creates an issue. Extra fields are sent unchanged, which
// allows instance-specific custom fields.
func (c *JiraClient) CreateIssue(ctx context.Context, issue model.NewIssue) (*model.Issue, error) {
	fields := map[string]any{}
	for k, v := range issue.Fields {
		fields[k] = v
	}
	fields["project"] = map[string]any{"id": issue.ProjectID}
	fields["issuetype"] = map[string]any{"id": issue.IssueTypeID}
	fields["summary"] = issue.Summary
	if issue.Description != "" {
		fields["description"] = issue.Description
	}
	if len(issue.FixVersionIDs) > 0 {
		fixVersions := make([]any, 0, len(issue.FixVersionIDs))
		for _, id := range issue.FixVersionIDs {
			fixVersions = append(fixVersions, map[string]any{"id": id})
		}
		fields["fixVersions"] = fixVersions
	}

	req, err := c.client.NewRequestWithContext(ctx, http.MethodPost, "rest/api/2/issue", map[string]any{"fields": fields})
	if err != nil {
		return nil, err
	}

	var out struct {
		ID  string `json:"id"`
		Key string `json:"key"`
	}
	resp, err := c.client.Do(req, &out)
	if err != nil {
		return nil, wrapError(resp, err)
	}

	return &model.Issue{Key: out.Key, Summary: issue.Summary}, nil
}

func convertIssue(is jira.Issue) model.Issue {
	issue := model.Issue{Key: is.Key}
	if is.Fields == nil {
		return issue
	}

	issue.Summary = is.Fields.Summary
	for _, l := range is.Fields.IssueLinks {
		if l == nil {
			continue
		}
		link := model.IssueLink{Type: l.Type.Name}
		if l.InwardIssue != nil {
			link.InwardKey = l.InwardIssue.Key
		}
		if l.OutwardIssue != nil {
			link.OutwardKey = l.OutwardIssue.Key
		}
		issue.Links = append(issue.Links, link)
	}
	return issue
}

func convertVersion(v jiraVersion) model.TrackerVersion {
	tv := model.TrackerVersion{
		ID:       v.ID,
		Name:     v.Name,
		Archived: v.Archived,
		Released: v.Released,
	}
	if v.ProjectID != 0 {
		tv.ProjectID = strconv.Itoa(v.ProjectID)
	}
	return tv
}

// wrapError adds the Jira error body to err for raw requests. The issue
// service methods already do this themselves.
func wrapError(resp *jira.Response, err error) error {
	if resp == nil {
		return err
	}
	return jira.NewJiraError(resp, err)
}
