package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"agentmesh/internal/a2a"
)

// Analyze synthesizes repository metadata from the fixture catalog.
func Analyze(ctx context.Context, owner, name string) (RepoDetails, error) {
	select {
	case <-ctx.Done():
		return RepoDetails{}, ctx.Err()
	default:
	}

	repo, ok := findRepo(owner, name)
	if !ok {
		return RepoDetails{}, fmt.Errorf("repository not found: %s/%s", owner, name)
	}
	return RepoDetails{
		Owner:       repo.Organization,
		Name:        repo.Name,
		Language:    repo.Language,
		Description: repo.Description,
		Stars:       repo.Stars,
	}, nil
}

// analyzeTextCommand matches the literal example in spec.md §4.4 step 3:
// "analyze repository: owner/repo[, branch: X]".
var analyzeTextCommand = regexp.MustCompile(`(?i)^analyze repository:\s*([\w.-]+)/([\w.-]+)\s*(?:,\s*branch:\s*(\S+))?\s*$`)

// getDetailsCommand matches the orchestrator's get_repository_details tool
// call rendered as text, per spec.md §4.5 step 2.
var getDetailsCommand = regexp.MustCompile(`(?i)^get_repository_details\s*(\{.*\})?\s*$`)

type repoDetailsParams struct {
	Owner string `json:"owner"`
	Name  string `json:"name"`
}

// Analysis is the analysis worker's Domain implementation.
type Analysis struct{}

// Execute parses either command form and returns a single JSON artifact
// with the repository's details.
func (Analysis) Execute(ctx context.Context, command string) ([]a2a.Artifact, error) {
	command = strings.TrimSpace(command)

	var owner, name, branch string
	switch {
	case analyzeTextCommand.MatchString(command):
		m := analyzeTextCommand.FindStringSubmatch(command)
		owner, name, branch = m[1], m[2], m[3]
	case getDetailsCommand.MatchString(command):
		m := getDetailsCommand.FindStringSubmatch(command)
		var params repoDetailsParams
		if len(m) > 1 && m[1] != "" {
			_ = json.Unmarshal([]byte(m[1]), &params)
		}
		owner, name = params.Owner, params.Name
	default:
		return nil, fmt.Errorf("unrecognized analysis command: %q", command)
	}

	details, err := Analyze(ctx, owner, name)
	if err != nil {
		return nil, err
	}
	details.Branch = branch

	artifact, err := jsonArtifact("repository-details", details)
	if err != nil {
		return nil, err
	}
	return []a2a.Artifact{artifact}, nil
}
