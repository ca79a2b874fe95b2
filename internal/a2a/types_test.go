package a2a

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanTransitionAllowedEdges(t *testing.T) {
	cases := []struct {
		from, to State
		want     bool
	}{
		{StateSubmitted, StateWorking, true},
		{StateSubmitted, StateCompleted, false},
		{StateWorking, StateCompleted, true},
		{StateWorking, StateSubmitted, false},
		{StateInputRequired, StateWorking, true},
		{StateAuthRequired, StateCanceled, true},
		{StateCompleted, StateWorking, false},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, CanTransition(c.from, c.to), "from %s to %s", c.from, c.to)
	}
}

func TestIsTerminal(t *testing.T) {
	for _, s := range []State{StateCompleted, StateFailed, StateCanceled, StateRejected} {
		assert.True(t, IsTerminal(s), "%s should be terminal", s)
	}
	for _, s := range []State{StateSubmitted, StateWorking, StateInputRequired, StateAuthRequired} {
		assert.False(t, IsTerminal(s), "%s should not be terminal", s)
	}
}

func TestPartUnmarshalAcceptsTypeOrKind(t *testing.T) {
	var withType Part
	require.NoError(t, json.Unmarshal([]byte(`{"type":"text","text":"hi"}`), &withType))
	assert.Equal(t, PartText, withType.Type)

	var withKind Part
	require.NoError(t, json.Unmarshal([]byte(`{"kind":"text","text":"hi"}`), &withKind))
	assert.Equal(t, PartText, withKind.Type)
}

func TestPartMarshalEmitsBothDiscriminators(t *testing.T) {
	p := Part{Type: PartText, Text: "hi"}
	b, err := json.Marshal(p)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(b, &raw))
	assert.Equal(t, "text", raw["type"])
	assert.Equal(t, "text", raw["kind"])
}

func TestMessageTextConcatenatesTextParts(t *testing.T) {
	m := Message{
		Parts: []Part{
			{Type: PartText, Text: "first"},
			{Type: PartData, Data: json.RawMessage(`{}`)},
			{Type: PartText, Text: "second"},
		},
	}
	assert.Equal(t, "first\nsecond", m.Text())
}

func TestTaskSnapshotDoesNotAlias(t *testing.T) {
	task := &Task{
		ID:      "t1",
		History: []Status{{State: StateSubmitted}},
	}
	snap := task.Snapshot()
	snap.History[0].State = StateWorking
	assert.Equal(t, StateSubmitted, task.History[0].State, "mutating a snapshot must not affect the original")
}
