package checks

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"
)

// GitHubProvider implements Provider using the gh CLI. It performs no
// retries; a failed invocation surfaces directly to the caller.
type GitHubProvider struct{}

// NewGitHubProvider returns a new GitHubProvider.
func NewGitHubProvider() *GitHubProvider {
	return &GitHubProvider{}
}

// Available reports whether the gh CLI is on PATH. Callers use this to
// decide whether background polling can run at all.
func (p *GitHubProvider) Available() bool {
	_, err := exec.LookPath("gh")
	return err == nil
}

func ghCmd(ctx context.Context, args ...string) (string, error) {
	out, err := exec.CommandContext(ctx, "gh", args...).Output()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			return "", fmt.Errorf("gh %s: %s", strings.Join(args, " "), strings.TrimSpace(string(exitErr.Stderr)))
		}
		return "", fmt.Errorf("gh %s: %w", strings.Join(args, " "), err)
	}
	return strings.TrimSpace(string(out)), nil
}

type checkRun struct {
	Name   string `json:"name"`
	Bucket string `json:"bucket"` // pass, fail, pending, skipping, cancel
}

// CheckSummary fetches the PR's check runs and buckets them into an
// aggregate summary. Skipped and cancelled runs are ignored entirely so
// a PR whose remaining checks all pass still reads as fully passing.
func (p *GitHubProvider) CheckSummary(ctx context.Context, ref Ref) (*Summary, error) {
	out, err := ghCmd(ctx, "pr", "checks", fmt.Sprintf("%d", ref.Number),
		"--repo", fmt.Sprintf("%s/%s", ref.Owner, ref.Repo),
		"--json", "name,bucket",
	)
	if err != nil {
		return nil, err
	}

	var runs []checkRun
	if err := json.Unmarshal([]byte(out), &runs); err != nil {
		return nil, fmt.Errorf("parse checks for %s: %w", ref, err)
	}

	s := &Summary{}
	for _, run := range runs {
		switch run.Bucket {
		case "pass":
			s.Passing++
		case "fail":
			s.Failing++
			s.FailingNames = append(s.FailingNames, run.Name)
		case "pending":
			s.Pending++
		default:
			continue
		}
		s.Total++
	}
	return s, nil
}
