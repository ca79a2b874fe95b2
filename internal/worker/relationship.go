package worker

import (
	"context"
	"fmt"
	"regexp"

	"agentmesh/internal/a2a"
)

// Graph returns the dependency graph fixture for a repository, present by
// analogy with discovery/analysis per spec.md §9's Open Question: the
// relationship worker's RPC surface is specified but not exercised by the
// supplied tests.
func Graph(ctx context.Context, owner, name string) (DependencyGraph, error) {
	select {
	case <-ctx.Done():
		return DependencyGraph{}, ctx.Err()
	default:
	}

	graph, ok := dependencyGraphs[owner+"/"+name]
	if !ok {
		return DependencyGraph{Owner: owner, Name: name}, nil
	}
	return graph, nil
}

var graphCommand = regexp.MustCompile(`(?i)^graph repository:\s*([\w.-]+)/([\w.-]+)\s*$`)

// Relationship is the relationship worker's Domain implementation.
type Relationship struct{}

// Execute parses a "graph repository: owner/repo" command and returns a
// single JSON artifact with the dependency graph fixture.
func (Relationship) Execute(ctx context.Context, command string) ([]a2a.Artifact, error) {
	m := graphCommand.FindStringSubmatch(command)
	if m == nil {
		return nil, fmt.Errorf("unrecognized relationship command: %q", command)
	}

	graph, err := Graph(ctx, m[1], m[2])
	if err != nil {
		return nil, err
	}
	artifact, err := jsonArtifact("dependency-graph", graph)
	if err != nil {
		return nil, err
	}
	return []a2a.Artifact{artifact}, nil
}
