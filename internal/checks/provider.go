// Package checks answers "what is the current check state of this
// workstream's external reference?". Retry and backoff policy, if any,
// belongs to the provider implementation, not to callers.
package checks

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

// Summary is the aggregate check state of one external reference.
type Summary struct {
	Passing      int
	Pending      int
	Failing      int
	Total        int
	FailingNames []string
}

// Ref locates a pull request on the hosting service.
type Ref struct {
	Owner  string
	Repo   string
	Number int
}

func (r Ref) String() string {
	return fmt.Sprintf("%s/%s#%d", r.Owner, r.Repo, r.Number)
}

// Provider fetches check summaries for external references.
type Provider interface {
	CheckSummary(ctx context.Context, ref Ref) (*Summary, error)
}

// RefFromMetadata extracts a Ref from workstream metadata: "repo" holds
// "owner/name" and "prNumber" the PR number. Reports false when either
// is missing or malformed.
func RefFromMetadata(md map[string]string) (Ref, bool) {
	repo := md["repo"]
	owner, name, ok := strings.Cut(repo, "/")
	if !ok || owner == "" || name == "" {
		return Ref{}, false
	}
	num, err := strconv.Atoi(md["prNumber"])
	if err != nil || num <= 0 {
		return Ref{}, false
	}
	return Ref{Owner: owner, Repo: name, Number: num}, true
}
