package worker

import (
	"context"
	"encoding/json"
	"regexp"
	"strings"

	"agentmesh/internal/a2a"
)

// List filters the repository fixture catalog by organization and topic;
// either may be empty to mean "no filter". Stands in for the out-of-scope
// third-party code-hosting dependency (spec.md §1 Non-goals).
func List(ctx context.Context, organization, topic string) ([]Repository, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	var out []Repository
	for _, r := range fixtures {
		if organization != "" && !strings.EqualFold(r.Organization, organization) {
			continue
		}
		if topic != "" && !strings.EqualFold(r.Topic, topic) {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

// listCommand matches the orchestrator's list_repositories tool call,
// rendered as text per spec.md §4.5 step 2: a JSON object following the
// "list_repositories" command word.
var listCommand = regexp.MustCompile(`(?i)^list_repositories\s*(\{.*\})?\s*$`)

type listParams struct {
	Organization string `json:"organization"`
	Topic        string `json:"topic"`
}

// Discovery is the discovery worker's Domain implementation (executor.Domain).
type Discovery struct{}

// Execute parses the command and returns a single JSON artifact containing
// the filtered repository list. Unparsed text falls back to an unfiltered
// listing, per spec.md §4.4 step 3 ("unparsed messages are accepted
// generically").
func (Discovery) Execute(ctx context.Context, command string) ([]a2a.Artifact, error) {
	var params listParams
	if m := listCommand.FindStringSubmatch(command); m != nil && m[1] != "" {
		_ = json.Unmarshal([]byte(m[1]), &params)
	}

	repos, err := List(ctx, params.Organization, params.Topic)
	if err != nil {
		return nil, err
	}
	artifact, err := jsonArtifact("repositories", repos)
	if err != nil {
		return nil, err
	}
	return []a2a.Artifact{artifact}, nil
}
