// Package jql builds Jira Query Language expressions from structured
// clauses. Every literal is quoted so that keys and version names never
// change the shape of the query.
package jql

import "strings"

// Query is an AND-joined list of clauses.
type Query struct {
	clauses []string
	orderBy string
}

// New returns an empty query.
func New() *Query {
	return &Query{}
}

// ProjectIn restricts the query to the given project keys.
func (q *Query) ProjectIn(keys ...string) *Query {
	return q.add("project in " + list(keys))
}

// ProjectEquals restricts the query to a single project key.
func (q *Query) ProjectEquals(key string) *Query {
	return q.add("project = " + Quote(key))
}

// IssueKeyIn restricts the query to the given issue keys.
func (q *Query) IssueKeyIn(keys ...string) *Query {
	return q.add("issuekey in " + list(keys))
}

// FixVersionIn matches issues carrying any of the given fix versions.
func (q *Query) FixVersionIn(versions ...string) *Query {
	return q.add("fixVersion in " + list(versions))
}

// FixVersionNotInOrEmpty matches issues that do not carry any of the given
// fix versions, including issues without a fix version.
func (q *Query) FixVersionNotInOrEmpty(versions ...string) *Query {
	return q.add("(fixVersion not in " + list(versions) + " OR fixVersion is EMPTY)")
}

// OrderBy sets the ordering field, e.g., "key ASC".
func (q *Query) OrderBy(order string) *Query {
	q.orderBy = order
	return q
}

// String serializes the query.
func (q *Query) String() string {
	s := strings.Join(q.clauses, " AND ")
	if q.orderBy != "" {
		s += " ORDER BY " + q.orderBy
	}
	return s
}

func (q *Query) add(clause string) *Query {
	q.clauses = append(q.clauses, clause)
	return q
}

func list(values []string) string {
	quoted := make([]string, len(values))
	for i, v := range values {
		quoted[i] = Quote(v)
	}
	return "(" + strings.Join(quoted, ", ") + ")"
}

// Quote returns v as a double-quoted JQL string literal.
func Quote(v string) string {
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`)
	return `"` + r.Replace(v) + `"`
}
