// Package worker implements the three workers' domain logic: discovery,
// analysis, and relationship. Spec.md treats third-party code hosting as an
// out-of-scope black box (§1 Non-goals), so each function here operates
// over a small fixture set rather than a real code-hosting client — enough
// to exercise the Executor and Orchestrator end to end.
package worker

// Repository is a minimal code-hosting repository record.
type Repository struct {
	Organization string `json:"organization"`
	Name         string `json:"name"`
	Topic        string `json:"topic"`
	Language     string `json:"language"`
	Description  string `json:"description"`
	Stars        int    `json:"stars"`
}

// RepoDetails is the result of analyzing a single repository.
type RepoDetails struct {
	Owner       string `json:"owner"`
	Name        string `json:"name"`
	Branch      string `json:"branch"`
	Language    string `json:"language"`
	Description string `json:"description"`
	Stars       int    `json:"stars"`
}

// DependencyGraph is a trivial dependency relationship fixture for a
// repository, present by analogy per spec.md §9's Open Question on the
// relationship worker.
type DependencyGraph struct {
	Owner        string   `json:"owner"`
	Name         string   `json:"name"`
	DependsOn    []string `json:"dependsOn"`
	DependedOnBy []string `json:"dependedOnBy"`
}

// fixtures is the shared in-memory catalog every worker's domain function
// reads from.
var fixtures = []Repository{
	{Organization: "cortside", Name: "cortside.datetimeextensions", Topic: "libraries", Language: "C#", Description: "DateTime extension helpers", Stars: 12},
	{Organization: "cortside", Name: "cortside.rest", Topic: "rest", Language: "C#", Description: "REST client conventions", Stars: 8},
	{Organization: "cortside", Name: "cortside.healthcheck", Topic: "observability", Language: "C#", Description: "Health check endpoints", Stars: 5},
	{Organization: "thehivegroup-ai", Name: "developer-agent", Topic: "agents", Language: "Go", Description: "Multi-agent developer platform", Stars: 41},
	{Organization: "thehivegroup-ai", Name: "agent-sdk", Topic: "agents", Language: "TypeScript", Description: "Client SDK for agent workflows", Stars: 19},
}

var dependencyGraphs = map[string]DependencyGraph{
	"cortside/cortside.rest": {
		Owner:        "cortside",
		Name:         "cortside.rest",
		DependsOn:    []string{"cortside.datetimeextensions"},
		DependedOnBy: []string{"cortside.healthcheck"},
	},
	"thehivegroup-ai/developer-agent": {
		Owner:        "thehivegroup-ai",
		Name:         "developer-agent",
		DependsOn:    []string{"agent-sdk"},
		DependedOnBy: nil,
	},
}

func findRepo(owner, name string) (Repository, bool) {
	for _, r := range fixtures {
		if r.Organization == owner && r.Name == name {
			return r, true
		}
	}
	return Repository{}, false
}
