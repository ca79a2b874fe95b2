package worker

import (
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"agentmesh/internal/a2a"
)

// jsonArtifact encodes v as a base64 data: URI artifact, per spec.md's
// artifact encoding rule (§6, §9): base64 is preferred over percent-encoding
// to avoid ambiguity with JSON string characters.
func jsonArtifact(name string, v any) (a2a.Artifact, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return a2a.Artifact{}, fmt.Errorf("marshal artifact %s: %w", name, err)
	}
	encoded := base64.StdEncoding.EncodeToString(body)
	return a2a.Artifact{
		ArtifactID: uuid.New().String(),
		Name:       name,
		MimeType:   "application/json",
		Data:       body,
		URI:        "data:application/json;base64," + encoded,
	}, nil
}
