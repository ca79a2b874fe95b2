package a2a

import (
	"encoding/base64"
	"fmt"
	"net/url"
	"strings"
)

// DecodeData returns an artifact's body bytes. Data survives only within a
// single process (it is tagged json:"-" so it never crosses the wire); once
// an artifact has round-tripped through tasks/get over HTTP, only URI is
// populated and must be decoded (spec.md §6/§9's artifact encoding rule).
func (a Artifact) DecodeData() ([]byte, error) {
	if len(a.Data) > 0 {
		return a.Data, nil
	}
	return DecodeDataURI(a.URI)
}

// DecodeDataURI decodes a data: URI's payload, supporting both the
// ";base64," form produced by worker/artifact.go and plain percent-encoding,
// per spec.md §6/§9: "Base64/percent-encoded artifact bodies decode back to
// byte-identical JSON".
func DecodeDataURI(uri string) ([]byte, error) {
	if uri == "" {
		return nil, nil
	}
	rest, ok := strings.CutPrefix(uri, "data:")
	if !ok {
		return nil, fmt.Errorf("decode data uri: missing data: scheme")
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return nil, fmt.Errorf("decode data uri: missing comma separator")
	}
	if strings.HasSuffix(meta, ";base64") {
		decoded, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			return nil, fmt.Errorf("decode base64 data uri: %w", err)
		}
		return decoded, nil
	}
	decoded, err := url.QueryUnescape(payload)
	if err != nil {
		return nil, fmt.Errorf("decode percent-encoded data uri: %w", err)
	}
	return []byte(decoded), nil
}
