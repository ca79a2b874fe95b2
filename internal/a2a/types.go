// Package a2a implements the Agent-to-Agent (A2A) data model and task
// lifecycle state machine: Task, Message, Part, Artifact, and Agent Card,
// plus the Task Manager that owns task state on behalf of a worker.
//
// Field names use camelCase JSON tags to match the A2A wire protocol.
package a2a

import (
	"encoding/json"
	"time"
)

// State is a task's lifecycle state, per spec §3.
type State string

const (
	StateSubmitted     State = "submitted"
	StateWorking       State = "working"
	StateInputRequired State = "input-required"
	StateCompleted     State = "completed"
	StateFailed        State = "failed"
	StateCanceled      State = "canceled"
	StateRejected      State = "rejected"
	StateAuthRequired  State = "auth-required"
	StateUnknown       State = "unknown"
)

// terminal is the set of states from which no further transition is
// possible, per spec §3's invariant.
var terminal = map[State]bool{
	StateCompleted: true,
	StateFailed:    true,
	StateCanceled:  true,
	StateRejected:  true,
}

// IsTerminal reports whether state is one from which no further transition
// is allowed.
func IsTerminal(state State) bool {
	return terminal[state]
}

// transitions enumerates the allowed edges of the task state machine, per
// spec §4.1. All other (from, to) pairs are rejected.
var transitions = map[State]map[State]bool{
	StateSubmitted: {
		StateWorking:       true,
		StateCanceled:      true,
		StateFailed:        true,
		StateRejected:      true,
		StateAuthRequired:  true,
		StateInputRequired: true,
	},
	StateWorking: {
		StateCompleted:     true,
		StateFailed:        true,
		StateCanceled:      true,
		StateInputRequired: true,
		StateAuthRequired:  true,
	},
	StateInputRequired: {
		StateWorking:  true,
		StateCanceled: true,
		StateFailed:   true,
	},
	StateAuthRequired: {
		StateWorking:  true,
		StateCanceled: true,
		StateFailed:   true,
	},
}

// CanTransition reports whether moving from 'from' to 'to' is an allowed
// edge of the task state machine.
func CanTransition(from, to State) bool {
	edges, ok := transitions[from]
	if !ok {
		return false
	}
	return edges[to]
}

// Status is a single point-in-time snapshot of a task's lifecycle state.
type Status struct {
	Timestamp time.Time `json:"timestamp"`
	State     State     `json:"state"`
	Message   string    `json:"message,omitempty"`
}

// Role identifies the sender of a Message.
type Role string

const (
	RoleUser   Role = "user"
	RoleAgent  Role = "agent"
	RoleSystem Role = "system"
)

// PartType tags the variant carried by a MessagePart.
type PartType string

const (
	PartText  PartType = "text"
	PartData  PartType = "data"
	PartFile  PartType = "file"
	PartError PartType = "error"
)

// Part is a single tagged-union content part of a Message, per spec §3.
// The wire protocol accepts either "type" or "kind" as the discriminator
// (spec §6); unmarshalling normalizes both into Type.
type Part struct {
	Type     PartType        `json:"type"`
	Text     string          `json:"text,omitempty"`
	Data     json.RawMessage `json:"data,omitempty"`
	URI      string          `json:"uri,omitempty"`
	MimeType string          `json:"mimeType,omitempty"`
	Error    string          `json:"error,omitempty"`
}

// partWire is the literal wire shape, used to accept both "type" and "kind"
// as the part discriminator on input (spec §6).
type partWire struct {
	Type     string          `json:"type,omitempty"`
	Kind     string          `json:"kind,omitempty"`
	Text     string          `json:"text,omitempty"`
	Data     json.RawMessage `json:"data,omitempty"`
	URI      string          `json:"uri,omitempty"`
	ImageURL string          `json:"imageUrl,omitempty"`
	MimeType string          `json:"mimeType,omitempty"`
	Error    string          `json:"error,omitempty"`
}

// UnmarshalJSON accepts either "type" or "kind" as the part discriminator.
func (p *Part) UnmarshalJSON(b []byte) error {
	var w partWire
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	discriminator := w.Type
	if discriminator == "" {
		discriminator = w.Kind
	}
	uri := w.URI
	if uri == "" {
		uri = w.ImageURL
	}
	*p = Part{
		Type:     PartType(discriminator),
		Text:     w.Text,
		Data:     w.Data,
		URI:      uri,
		MimeType: w.MimeType,
		Error:    w.Error,
	}
	return nil
}

// MarshalJSON emits both "type" and "kind" for maximum compatibility with
// consumers that expect either discriminator spelling.
func (p Part) MarshalJSON() ([]byte, error) {
	w := partWire{
		Type:     string(p.Type),
		Kind:     string(p.Type),
		Text:     p.Text,
		Data:     p.Data,
		URI:      p.URI,
		MimeType: p.MimeType,
		Error:    p.Error,
	}
	return json.Marshal(w)
}

// Message is one turn of A2A conversation, per spec §3.
type Message struct {
	MessageID string    `json:"messageId"`
	Role      Role      `json:"role"`
	Parts     []Part    `json:"parts"`
	TaskID    string    `json:"taskId,omitempty"`
	ContextID string    `json:"contextId,omitempty"`
	Metadata  any       `json:"metadata,omitempty"`
}

// Text concatenates the text parts of the message with "\n", per spec
// §4.4 step 3.
func (m Message) Text() string {
	var out string
	for i, p := range m.Parts {
		if p.Type != PartText {
			continue
		}
		if i > 0 && out != "" {
			out += "\n"
		}
		out += p.Text
	}
	return out
}

// Artifact is a produced result attached to a task, per spec §3.
type Artifact struct {
	ArtifactID string `json:"artifactId"`
	Name       string `json:"name,omitempty"`
	MimeType   string `json:"mimeType,omitempty"`
	Data       []byte `json:"-"`
	URI        string `json:"uri,omitempty"`
}

// Task is the unit of work offered across the A2A boundary, per spec §3.
type Task struct {
	ID        string     `json:"id"`
	ContextID string     `json:"contextId,omitempty"`
	Status    Status     `json:"status"`
	History   []Status   `json:"history"`
	Artifacts []Artifact `json:"artifacts,omitempty"`
	Metadata  any        `json:"metadata,omitempty"`
}

// Snapshot returns a deep copy of the task suitable for returning across a
// concurrency boundary without aliasing mutable slices.
func (t *Task) Snapshot() *Task {
	if t == nil {
		return nil
	}
	cp := *t
	cp.History = append([]Status(nil), t.History...)
	cp.Artifacts = append([]Artifact(nil), t.Artifacts...)
	return &cp
}

// AgentCardTransport describes one transport the agent supports, per
// spec §3.
type AgentCardTransport struct {
	Type     string `json:"type"`
	URL      string `json:"url"`
	Protocol string `json:"protocol"`
}

// Skill is one capability a worker's Agent Card advertises, per spec §3.
type Skill struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Tags        []string `json:"tags,omitempty"`
}

// AgentCard is a worker's self-description, served at
// /.well-known/agent-card.json, per spec §3/§6. ProtocolVersion is always
// "0.3.0".
type AgentCard struct {
	ProtocolVersion string               `json:"protocolVersion"`
	Name            string               `json:"name"`
	Description     string               `json:"description,omitempty"`
	BaseURL         string               `json:"baseUrl"`
	Transports      []AgentCardTransport `json:"transports,omitempty"`
	Capabilities    Capabilities         `json:"capabilities"`
	InputModes      []string             `json:"defaultInputModes,omitempty"`
	OutputModes     []string             `json:"defaultOutputModes,omitempty"`
	Skills          []Skill              `json:"skills"`
	Provider        Provider             `json:"provider,omitempty"`
}

// Capabilities captures protocol-level capability flags, per spec §3.
type Capabilities struct {
	Streaming   bool `json:"streaming"`
	MultiModal  bool `json:"multiModal"`
}

// Provider identifies the organization publishing an Agent Card.
type Provider struct {
	Name string `json:"name,omitempty"`
	URL  string `json:"url,omitempty"`
}

// ProtocolVersion is the literal A2A protocol version this implementation
// speaks, per spec §3/§6.
const ProtocolVersion = "0.3.0"
